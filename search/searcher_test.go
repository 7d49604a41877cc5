package search

import (
	"context"
	"testing"
	"time"

	"github.com/poiesic/recall/ai/mock"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
	"github.com/poiesic/recall/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchFixture struct {
	searcher *Searcher
	embedder *mock.MockEmbedder
	convRepo storage.ConversationRepository
	msgRepo  storage.MessageRepository
	embRepo  storage.EmbeddingRepository
}

func setupSearcher(t *testing.T) *searchFixture {
	t.Helper()

	convRepo, msgRepo, embRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		convRepo.Close()
		backend.Close()
	})

	provider := mock.NewMockProvider()
	searcher, err := NewSearcher(convRepo, msgRepo, embRepo, provider)
	require.NoError(t, err)

	return &searchFixture{
		searcher: searcher,
		embedder: provider.(*mock.MockProvider).GetMockEmbedder(),
		convRepo: convRepo,
		msgRepo:  msgRepo,
		embRepo:  embRepo,
	}
}

// seedEmbedded creates a conversation with one message and a fixed vector.
func (f *searchFixture) seedEmbedded(t *testing.T, externalId string, createdAt time.Time, vector []float32) *core.Conversation {
	t.Helper()
	ctx := context.Background()

	conv, err := f.convRepo.Create(ctx, &core.Conversation{
		ExternalId:   externalId,
		Title:        "Conversation " + externalId,
		CreatedAt:    createdAt,
		MessageCount: 1,
	})
	require.NoError(t, err)

	err = f.msgRepo.UpsertMany(ctx, &core.Message{
		ConversationId: conv.Id,
		Seq:            0,
		Role:           core.RoleUser,
		Content:        "content of " + externalId,
		Timestamp:      createdAt,
	})
	require.NoError(t, err)

	if vector != nil {
		require.NoError(t, f.embRepo.Upsert(ctx, conv.Id, vector))
	}
	return conv
}

func TestSearch_RankedResults(t *testing.T) {
	f := setupSearcher(t)
	ctx := context.Background()
	now := time.Now().UTC()

	far := f.seedEmbedded(t, "far", now, []float32{0.0, 1.0})
	near := f.seedEmbedded(t, "near", now, []float32{1.0, 0.0})
	mid := f.seedEmbedded(t, "mid", now, []float32{0.7, 0.7})

	f.embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1.0, 0.0}, nil
	}

	results, err := f.searcher.Search(ctx, "anything")
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, near.Id, results[0].Conversation.Id)
	assert.Equal(t, mid.Id, results[1].Conversation.Id)
	assert.Equal(t, far.Id, results[2].Conversation.Id)

	// Distances ride along with the ranking
	assert.Less(t, results[0].Distance, results[1].Distance)
	assert.Less(t, results[1].Distance, results[2].Distance)

	// Hydration attaches the message sets
	require.Len(t, results[0].Messages, 1)
	assert.Equal(t, "content of near", results[0].Messages[0].Content)
}

func TestSearch_CapsAtMaxHits(t *testing.T) {
	f := setupSearcher(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < MaxHits+3; i++ {
		f.seedEmbedded(t, "cap-"+string(rune('a'+i)), now, []float32{float32(i + 1), 1.0})
	}

	f.embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1.0, 1.0}, nil
	}

	results, err := f.searcher.Search(ctx, "query")
	require.NoError(t, err)
	assert.Len(t, results, MaxHits)
}

func TestSearch_EmptyIndex(t *testing.T) {
	f := setupSearcher(t)
	ctx := context.Background()

	// A conversation exists but nothing has been embedded
	f.seedEmbedded(t, "unembedded", time.Now().UTC(), nil)

	_, err := f.searcher.Search(ctx, "query")
	assert.ErrorIs(t, err, storage.ErrEmptyIndex)
}

func TestSearch_EmbedderFailure(t *testing.T) {
	f := setupSearcher(t)
	ctx := context.Background()

	f.seedEmbedded(t, "x", time.Now().UTC(), []float32{1.0})

	f.embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, assert.AnError
	}

	_, err := f.searcher.Search(ctx, "query")
	assert.Error(t, err)
}

type recordingMonitor struct {
	started  bool
	embedded bool
	matches  int
	finished int
}

func (m *recordingMonitor) Start(_ string)                       { m.started = true }
func (m *recordingMonitor) AfterQueryEmbedding(_ []float32)      { m.embedded = true }
func (m *recordingMonitor) AfterNearestSearch(matches []*core.NearestMatch) {
	m.matches = len(matches)
}
func (m *recordingMonitor) Finish(results []*core.ConversationResult) {
	m.finished = len(results)
}

func TestSearchWithMonitor(t *testing.T) {
	f := setupSearcher(t)
	ctx := context.Background()

	f.seedEmbedded(t, "monitored", time.Now().UTC(), []float32{1.0, 0.0})

	f.embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return []float32{1.0, 0.0}, nil
	}

	monitor := &recordingMonitor{}
	results, err := f.searcher.SearchWithMonitor(ctx, "query", monitor)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.True(t, monitor.started)
	assert.True(t, monitor.embedded)
	assert.Equal(t, 1, monitor.matches)
	assert.Equal(t, 1, monitor.finished)
}

func TestGetByDateRange(t *testing.T) {
	f := setupSearcher(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	old := f.seedEmbedded(t, "old", now.Add(-72*time.Hour), nil)
	recent := f.seedEmbedded(t, "recent", now, nil)

	from := now.Add(-24 * time.Hour)
	results, err := f.searcher.GetByDateRange(ctx, &from, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, recent.Id, results[0].Conversation.Id)
	assert.Zero(t, results[0].Distance)
	require.Len(t, results[0].Messages, 1)

	// Widen to catch both, oldest first
	from = now.Add(-96 * time.Hour)
	to := now
	results, err = f.searcher.GetByDateRange(ctx, &from, &to)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, old.Id, results[0].Conversation.Id)
	assert.Equal(t, recent.Id, results[1].Conversation.Id)
}

func TestGetByDateRange_SingleInstant(t *testing.T) {
	f := setupSearcher(t)
	ctx := context.Background()
	instant := time.Now().UTC().Truncate(time.Microsecond)

	conv := f.seedEmbedded(t, "instant", instant, nil)

	// from == to must still match a conversation created exactly then
	results, err := f.searcher.GetByDateRange(ctx, &instant, &instant)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, conv.Id, results[0].Conversation.Id)
}

func TestGetByDateRange_NoBounds(t *testing.T) {
	f := setupSearcher(t)

	_, err := f.searcher.GetByDateRange(context.Background(), nil, nil)
	assert.ErrorIs(t, err, storage.ErrInvalidRange)
}

func TestNewSearcher_Validation(t *testing.T) {
	convRepo, msgRepo, embRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer func() { convRepo.Close(); backend.Close() }()

	provider := mock.NewMockProvider()

	_, err = NewSearcher(nil, msgRepo, embRepo, provider)
	assert.ErrorIs(t, err, ErrConversationRepositoryRequired)

	_, err = NewSearcher(convRepo, nil, embRepo, provider)
	assert.ErrorIs(t, err, ErrMessageRepositoryRequired)

	_, err = NewSearcher(convRepo, msgRepo, nil, provider)
	assert.ErrorIs(t, err, ErrEmbeddingRepositoryRequired)

	_, err = NewSearcher(convRepo, msgRepo, embRepo, nil)
	assert.ErrorIs(t, err, ErrAIProviderRequired)
}
