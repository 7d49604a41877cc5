package badger

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/recall/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageUpsertAndFind(t *testing.T) {
	convRepo, msgRepo, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer func() { convRepo.Close(); backend.Close() }()

	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	conv, err := convRepo.Create(ctx, newTestConversation("ext-msg", now))
	require.NoError(t, err)

	err = msgRepo.UpsertMany(ctx,
		&core.Message{ConversationId: conv.Id, Seq: 0, Role: core.RoleUser, Content: "question", Timestamp: now},
		&core.Message{ConversationId: conv.Id, Seq: 1, Role: core.RoleAssistant, Content: "answer", Timestamp: now.Add(time.Second)},
	)
	require.NoError(t, err)

	messages, err := msgRepo.FindByConversationId(ctx, conv.Id)
	require.NoError(t, err)
	require.Len(t, messages, 2)

	assert.Equal(t, "question", messages[0].Content)
	assert.Equal(t, core.RoleUser, messages[0].Role)
	assert.Equal(t, "answer", messages[1].Content)
	assert.Equal(t, core.RoleAssistant, messages[1].Role)
}

func TestMessageUpsert_OverwritesSameSeq(t *testing.T) {
	convRepo, msgRepo, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer func() { convRepo.Close(); backend.Close() }()

	ctx := context.Background()
	now := time.Now().UTC()

	conv, err := convRepo.Create(ctx, newTestConversation("ext-ow", now))
	require.NoError(t, err)

	err = msgRepo.UpsertMany(ctx,
		&core.Message{ConversationId: conv.Id, Seq: 0, Role: core.RoleUser, Content: "first draft", Timestamp: now},
	)
	require.NoError(t, err)

	err = msgRepo.UpsertMany(ctx,
		&core.Message{ConversationId: conv.Id, Seq: 0, Role: core.RoleUser, Content: "final", Timestamp: now},
	)
	require.NoError(t, err)

	messages, err := msgRepo.FindByConversationId(ctx, conv.Id)
	require.NoError(t, err)
	require.Len(t, messages, 1)
	assert.Equal(t, "final", messages[0].Content)
}

func TestMessageSeqOrdering(t *testing.T) {
	convRepo, msgRepo, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer func() { convRepo.Close(); backend.Close() }()

	ctx := context.Background()
	now := time.Now().UTC()

	conv, err := convRepo.Create(ctx, newTestConversation("ext-ord", now))
	require.NoError(t, err)

	// Written out of order; reads must come back in seq order
	err = msgRepo.UpsertMany(ctx,
		&core.Message{ConversationId: conv.Id, Seq: 2, Role: core.RoleUser, Content: "third", Timestamp: now},
		&core.Message{ConversationId: conv.Id, Seq: 0, Role: core.RoleUser, Content: "first", Timestamp: now},
		&core.Message{ConversationId: conv.Id, Seq: 1, Role: core.RoleAssistant, Content: "second", Timestamp: now},
	)
	require.NoError(t, err)

	messages, err := msgRepo.FindByConversationId(ctx, conv.Id)
	require.NoError(t, err)
	require.Len(t, messages, 3)
	assert.Equal(t, "first", messages[0].Content)
	assert.Equal(t, "second", messages[1].Content)
	assert.Equal(t, "third", messages[2].Content)
}

func TestMessageFindByConversationIds(t *testing.T) {
	convRepo, msgRepo, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer func() { convRepo.Close(); backend.Close() }()

	ctx := context.Background()
	now := time.Now().UTC()

	first, err := convRepo.Create(ctx, newTestConversation("ext-multi-a", now))
	require.NoError(t, err)
	second, err := convRepo.Create(ctx, newTestConversation("ext-multi-b", now))
	require.NoError(t, err)

	err = msgRepo.UpsertMany(ctx,
		&core.Message{ConversationId: first.Id, Seq: 0, Role: core.RoleUser, Content: "a0", Timestamp: now},
		&core.Message{ConversationId: second.Id, Seq: 0, Role: core.RoleUser, Content: "b0", Timestamp: now},
		&core.Message{ConversationId: second.Id, Seq: 1, Role: core.RoleAssistant, Content: "b1", Timestamp: now},
	)
	require.NoError(t, err)

	messages, err := msgRepo.FindByConversationIds(ctx, first.Id, second.Id)
	require.NoError(t, err)
	assert.Len(t, messages, 3)
}

func TestMessageDeleteByConversationId(t *testing.T) {
	convRepo, msgRepo, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer func() { convRepo.Close(); backend.Close() }()

	ctx := context.Background()
	now := time.Now().UTC()

	keep, err := convRepo.Create(ctx, newTestConversation("ext-keep", now))
	require.NoError(t, err)
	drop, err := convRepo.Create(ctx, newTestConversation("ext-drop", now))
	require.NoError(t, err)

	err = msgRepo.UpsertMany(ctx,
		&core.Message{ConversationId: keep.Id, Seq: 0, Role: core.RoleUser, Content: "keep me", Timestamp: now},
		&core.Message{ConversationId: drop.Id, Seq: 0, Role: core.RoleUser, Content: "drop me", Timestamp: now},
	)
	require.NoError(t, err)

	err = msgRepo.DeleteByConversationId(ctx, drop.Id)
	require.NoError(t, err)

	dropped, err := msgRepo.FindByConversationId(ctx, drop.Id)
	require.NoError(t, err)
	assert.Empty(t, dropped)

	kept, err := msgRepo.FindByConversationId(ctx, keep.Id)
	require.NoError(t, err)
	assert.Len(t, kept, 1)
}

func TestMessageDeleteFromSeq(t *testing.T) {
	convRepo, msgRepo, _, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer func() { convRepo.Close(); backend.Close() }()

	ctx := context.Background()
	now := time.Now().UTC()

	conv, err := convRepo.Create(ctx, newTestConversation("ext-trim", now))
	require.NoError(t, err)
	other, err := convRepo.Create(ctx, newTestConversation("ext-trim-other", now))
	require.NoError(t, err)

	for seq := 0; seq < 4; seq++ {
		require.NoError(t, msgRepo.UpsertMany(ctx,
			&core.Message{ConversationId: conv.Id, Seq: seq, Role: core.RoleUser, Content: "turn", Timestamp: now},
		))
	}
	require.NoError(t, msgRepo.UpsertMany(ctx,
		&core.Message{ConversationId: other.Id, Seq: 0, Role: core.RoleUser, Content: "untouched", Timestamp: now},
	))

	err = msgRepo.DeleteFromSeq(ctx, conv.Id, 2)
	require.NoError(t, err)

	msgs, err := msgRepo.FindByConversationId(ctx, conv.Id)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, 0, msgs[0].Seq)
	assert.Equal(t, 1, msgs[1].Seq)

	// Neighboring conversations are untouched
	otherMsgs, err := msgRepo.FindByConversationId(ctx, other.Id)
	require.NoError(t, err)
	assert.Len(t, otherMsgs, 1)

	// Deleting past the tail is a no-op
	err = msgRepo.DeleteFromSeq(ctx, conv.Id, 10)
	require.NoError(t, err)

	msgs, err = msgRepo.FindByConversationId(ctx, conv.Id)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}
