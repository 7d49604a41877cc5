package reembed

import (
	"context"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

const (
	// DefaultBatchSize is the default number of conversations per batch
	DefaultBatchSize = 50
)

// ConversationIterator walks every stored conversation in batches.
type ConversationIterator struct {
	conversations storage.ConversationRepository
	batchSize     int
}

// NewConversationIterator creates a new iterator.
// batchSize: number of conversations per batch (must be > 0)
func NewConversationIterator(conversations storage.ConversationRepository, batchSize int) *ConversationIterator {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &ConversationIterator{
		conversations: conversations,
		batchSize:     batchSize,
	}
}

// Count returns the total number of conversations the iterator will visit.
func (it *ConversationIterator) Count(ctx context.Context) (int, error) {
	all, err := it.fetchAll(ctx)
	if err != nil {
		return 0, err
	}
	return len(all), nil
}

// ForEach calls fn for each batch of conversations, in creation order.
// Iteration stops on the first error from fn. Context cancellation is
// checked between batches.
func (it *ConversationIterator) ForEach(ctx context.Context, fn func([]*core.Conversation) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	all, err := it.fetchAll(ctx)
	if err != nil {
		return err
	}

	for i := 0; i < len(all); i += it.batchSize {
		end := i + it.batchSize
		if end > len(all) {
			end = len(all)
		}

		if err := fn(all[i:end]); err != nil {
			return err
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}

	return nil
}

// fetchAll enumerates the primary keyspace directly, so the sweep visits
// every conversation no matter how strange its creation timestamp.
func (it *ConversationIterator) fetchAll(ctx context.Context) ([]*core.Conversation, error) {
	return it.conversations.FindAll(ctx)
}
