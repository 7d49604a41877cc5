package search

import (
	"context"
	"log/slog"
	"time"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

// MaxHits is the fixed number of results returned by semantic search.
const MaxHits = 5

// Searcher provides semantic and date-range retrieval over conversations.
type Searcher struct {
	conversations storage.ConversationRepository
	messages      storage.MessageRepository
	embeddings    storage.EmbeddingRepository
	embedder      ai.Embedder
	logger        *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(
	conversations storage.ConversationRepository,
	messages storage.MessageRepository,
	embeddings storage.EmbeddingRepository,
	provider ai.AIProvider,
	opts ...Option,
) (*Searcher, error) {
	if conversations == nil {
		return nil, ErrConversationRepositoryRequired
	}
	if messages == nil {
		return nil, ErrMessageRepositoryRequired
	}
	if embeddings == nil {
		return nil, ErrEmbeddingRepositoryRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	s := &Searcher{
		conversations: conversations,
		messages:      messages,
		embeddings:    embeddings,
		embedder:      provider.Embedder(),
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Search returns up to MaxHits conversations semantically closest to the
// query, nearest first. The raw query text is embedded as-is.
// Returns storage.ErrEmptyIndex when no conversation has been embedded yet.
func (s *Searcher) Search(ctx context.Context, query string) ([]*core.ConversationResult, error) {
	return s.SearchWithMonitor(ctx, query, nil)
}

// SearchWithMonitor is Search with stage callbacks for observability.
func (s *Searcher) SearchWithMonitor(ctx context.Context, query string, monitor SearchMonitor) ([]*core.ConversationResult, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	monitor.Start(query)

	vector, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "err", err)
		return nil, err
	}
	monitor.AfterQueryEmbedding(vector)

	matches, err := s.embeddings.FindNearest(ctx, vector, MaxHits)
	if err != nil {
		s.logger.Error("error querying nearest embeddings", "err", err)
		return nil, err
	}
	monitor.AfterNearestSearch(matches)

	results, err := s.hydrate(ctx, matches)
	if err != nil {
		return nil, err
	}

	monitor.Finish(results)
	return results, nil
}

// GetByDateRange returns conversations created within [from, to], oldest
// first, with messages attached. A nil bound is open; both nil is
// storage.ErrInvalidRange.
func (s *Searcher) GetByDateRange(ctx context.Context, from, to *time.Time) ([]*core.ConversationResult, error) {
	conversations, err := s.conversations.FindByDateRange(ctx, from, to)
	if err != nil {
		return nil, err
	}

	return s.attachMessages(ctx, conversations, nil)
}

// hydrate joins nearest-neighbor matches with conversation metadata and
// messages, preserving the match ranking.
func (s *Searcher) hydrate(ctx context.Context, matches []*core.NearestMatch) ([]*core.ConversationResult, error) {
	ids := make([]core.ID, len(matches))
	distances := make(map[core.ID]float32, len(matches))
	for i, match := range matches {
		ids[i] = match.ConversationId
		distances[match.ConversationId] = match.Distance
	}

	conversations, err := s.conversations.FindByIds(ctx, ids...)
	if err != nil {
		s.logger.Error("error retrieving conversations", "count", len(ids), "err", err)
		return nil, err
	}

	// FindByIds preserves input order and skips missing rows, so ranking
	// survives the join even if a conversation vanished mid-search.
	return s.attachMessages(ctx, conversations, distances)
}

// attachMessages loads the message sets for the given conversations and
// builds the final results in the conversations' order.
func (s *Searcher) attachMessages(ctx context.Context, conversations []*core.Conversation, distances map[core.ID]float32) ([]*core.ConversationResult, error) {
	ids := make([]core.ID, len(conversations))
	for i, conversation := range conversations {
		ids[i] = conversation.Id
	}

	msgs, err := s.messages.FindByConversationIds(ctx, ids...)
	if err != nil {
		s.logger.Error("error retrieving messages", "conversations", len(ids), "err", err)
		return nil, err
	}

	byConversation := make(map[core.ID][]*core.Message, len(conversations))
	for _, msg := range msgs {
		byConversation[msg.ConversationId] = append(byConversation[msg.ConversationId], msg)
	}

	results := make([]*core.ConversationResult, len(conversations))
	for i, conversation := range conversations {
		results[i] = &core.ConversationResult{
			Conversation: conversation,
			Messages:     byConversation[conversation.Id],
			Distance:     distances[conversation.Id],
		}
	}
	return results, nil
}
