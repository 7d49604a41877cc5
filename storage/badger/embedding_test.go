package badger

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/recall/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbeddingUpsertAndGet(t *testing.T) {
	convRepo, _, embRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer func() { convRepo.Close(); backend.Close() }()

	ctx := context.Background()

	conv, err := convRepo.Create(ctx, newTestConversation("ext-emb", time.Now().UTC()))
	require.NoError(t, err)

	err = embRepo.Upsert(ctx, conv.Id, []float32{0.1, 0.2, 0.3})
	require.NoError(t, err)

	got, err := embRepo.Get(ctx, conv.Id)
	require.NoError(t, err)
	assert.Equal(t, conv.Id, got.ConversationId)
	assert.Equal(t, []float32{0.1, 0.2, 0.3}, got.Vector)
	assert.False(t, got.ComputedAt.IsZero())
}

func TestEmbeddingUpsert_Replaces(t *testing.T) {
	convRepo, _, embRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer func() { convRepo.Close(); backend.Close() }()

	ctx := context.Background()

	conv, err := convRepo.Create(ctx, newTestConversation("ext-emb2", time.Now().UTC()))
	require.NoError(t, err)

	err = embRepo.Upsert(ctx, conv.Id, []float32{1.0, 0.0})
	require.NoError(t, err)
	err = embRepo.Upsert(ctx, conv.Id, []float32{0.0, 1.0})
	require.NoError(t, err)

	got, err := embRepo.Get(ctx, conv.Id)
	require.NoError(t, err)
	assert.Equal(t, []float32{0.0, 1.0}, got.Vector)

	// Still exactly one row
	matches, err := embRepo.FindNearest(ctx, []float32{0.0, 1.0}, 10)
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestEmbeddingGet_NotFound(t *testing.T) {
	convRepo, _, embRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer func() { convRepo.Close(); backend.Close() }()

	_, err = embRepo.Get(context.Background(), 77)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestFindNearest_EmptyIndex(t *testing.T) {
	convRepo, _, embRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer func() { convRepo.Close(); backend.Close() }()

	_, err = embRepo.FindNearest(context.Background(), []float32{1.0, 0.0}, 5)
	assert.ErrorIs(t, err, storage.ErrEmptyIndex)
}

func TestFindNearest_Ordering(t *testing.T) {
	convRepo, _, embRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer func() { convRepo.Close(); backend.Close() }()

	ctx := context.Background()
	now := time.Now().UTC()

	closest, err := convRepo.Create(ctx, newTestConversation("ext-n1", now))
	require.NoError(t, err)
	middle, err := convRepo.Create(ctx, newTestConversation("ext-n2", now))
	require.NoError(t, err)
	farthest, err := convRepo.Create(ctx, newTestConversation("ext-n3", now))
	require.NoError(t, err)

	require.NoError(t, embRepo.Upsert(ctx, farthest.Id, []float32{0.0, 1.0, 0.0}))
	require.NoError(t, embRepo.Upsert(ctx, closest.Id, []float32{1.0, 0.0, 0.0}))
	require.NoError(t, embRepo.Upsert(ctx, middle.Id, []float32{0.8, 0.6, 0.0}))

	matches, err := embRepo.FindNearest(ctx, []float32{1.0, 0.0, 0.0}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 3)

	assert.Equal(t, closest.Id, matches[0].ConversationId)
	assert.Equal(t, middle.Id, matches[1].ConversationId)
	assert.Equal(t, farthest.Id, matches[2].ConversationId)

	for i := 0; i < len(matches)-1; i++ {
		assert.LessOrEqual(t, matches[i].Distance, matches[i+1].Distance)
	}
}

func TestFindNearest_CapsAtK(t *testing.T) {
	convRepo, _, embRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer func() { convRepo.Close(); backend.Close() }()

	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 8; i++ {
		conv, err := convRepo.Create(ctx, newTestConversation("ext-cap-"+string(rune('a'+i)), now))
		require.NoError(t, err)
		require.NoError(t, embRepo.Upsert(ctx, conv.Id, []float32{float32(i), 1.0}))
	}

	matches, err := embRepo.FindNearest(ctx, []float32{1.0, 1.0}, 5)
	require.NoError(t, err)
	assert.Len(t, matches, 5)
}

func TestFindNearest_TieBreakByConversationId(t *testing.T) {
	convRepo, _, embRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer func() { convRepo.Close(); backend.Close() }()

	ctx := context.Background()
	now := time.Now().UTC()

	first, err := convRepo.Create(ctx, newTestConversation("ext-tie-a", now))
	require.NoError(t, err)
	second, err := convRepo.Create(ctx, newTestConversation("ext-tie-b", now))
	require.NoError(t, err)

	// Identical vectors, identical distances
	require.NoError(t, embRepo.Upsert(ctx, second.Id, []float32{1.0, 0.0}))
	require.NoError(t, embRepo.Upsert(ctx, first.Id, []float32{1.0, 0.0}))

	matches, err := embRepo.FindNearest(ctx, []float32{1.0, 0.0}, 5)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Less(t, matches[0].ConversationId, matches[1].ConversationId)
}

func TestEmbeddingDelete(t *testing.T) {
	convRepo, _, embRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer func() { convRepo.Close(); backend.Close() }()

	ctx := context.Background()

	conv, err := convRepo.Create(ctx, newTestConversation("ext-embdel", time.Now().UTC()))
	require.NoError(t, err)

	require.NoError(t, embRepo.Upsert(ctx, conv.Id, []float32{0.2, 0.8}))
	require.NoError(t, embRepo.Delete(ctx, conv.Id))

	_, err = embRepo.Get(ctx, conv.Id)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// Deleting a missing row is not an error
	assert.NoError(t, embRepo.Delete(ctx, conv.Id))
}

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name     string
		a        []float32
		b        []float32
		expected float32
	}{
		{
			name:     "identical vectors",
			a:        []float32{1.0, 0.0, 0.0},
			b:        []float32{1.0, 0.0, 0.0},
			expected: 0.0,
		},
		{
			name:     "orthogonal vectors",
			a:        []float32{1.0, 0.0, 0.0},
			b:        []float32{0.0, 1.0, 0.0},
			expected: 1.0,
		},
		{
			name:     "opposite vectors",
			a:        []float32{1.0, 0.0},
			b:        []float32{-1.0, 0.0},
			expected: 2.0,
		},
		{
			name:     "general case",
			a:        []float32{0.6, 0.8},
			b:        []float32{0.8, 0.6},
			expected: 0.04, // 1 - 0.96
		},
		{
			name:     "zero vector",
			a:        []float32{0.0, 0.0},
			b:        []float32{1.0, 0.0},
			expected: 1.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := cosineDistance(tt.a, tt.b)
			assert.InDelta(t, tt.expected, result, 0.0001)
		})
	}
}
