package storage

import (
	"context"
	"time"

	"github.com/poiesic/recall/core"
)

// ConversationRepository provides operations for managing conversations.
// Implementations must be thread-safe and must enforce external-ID
// uniqueness.
type ConversationRepository interface {
	// Create inserts a new conversation, assigning a fresh internal ID and
	// setting UpdatedAt. Returns ErrDuplicateKey if a conversation with the
	// same external ID already exists.
	Create(ctx context.Context, conversation *core.Conversation) (*core.Conversation, error)

	// Update rewrites an existing conversation, bumping UpdatedAt.
	// CreatedAt and the internal ID are never changed.
	// Returns ErrNotFound if the conversation doesn't exist.
	Update(ctx context.Context, conversation *core.Conversation) (*core.Conversation, error)

	// FindByExternalId retrieves a conversation by its external stable ID.
	// Returns ErrNotFound if no conversation has that external ID.
	FindByExternalId(ctx context.Context, externalId string) (*core.Conversation, error)

	// FindByIds retrieves multiple conversations by their internal IDs.
	// Returns only the conversations that exist (no error for missing IDs).
	FindByIds(ctx context.Context, ids ...core.ID) ([]*core.Conversation, error)

	// FindByDateRange retrieves conversations whose creation timestamp falls
	// within [from, to], both bounds inclusive. A nil bound is open.
	// Returns ErrInvalidRange if both bounds are nil.
	FindByDateRange(ctx context.Context, from, to *time.Time) ([]*core.Conversation, error)

	// FindAll retrieves every stored conversation, ordered by creation
	// time (ties by internal ID). Unlike FindByDateRange this walks the
	// primary keyspace, so it sees rows with timestamps outside any
	// indexable range.
	FindAll(ctx context.Context) ([]*core.Conversation, error)

	// FindIdsMissingEmbedding returns the IDs of every conversation that has
	// no embedding row, ordered by internal ID.
	FindIdsMissingEmbedding(ctx context.Context) ([]core.ID, error)

	// Delete removes a conversation and cascades to its messages and
	// embedding. Returns ErrNotFound if the conversation doesn't exist.
	Delete(ctx context.Context, id core.ID) error

	// Close releases resources held by the repository.
	Close() error
}

// MessageRepository provides operations for managing messages.
// (conversationId, seq) is the upsert key.
type MessageRepository interface {
	// UpsertMany writes messages, overwriting any existing row with the same
	// (conversationId, seq) pair. Rows are never duplicated.
	UpsertMany(ctx context.Context, messages ...*core.Message) error

	// FindByConversationId retrieves all messages for a conversation,
	// ordered by sequence number.
	FindByConversationId(ctx context.Context, conversationId core.ID) ([]*core.Message, error)

	// FindByConversationIds retrieves all messages for multiple
	// conversations, ordered by sequence number within each conversation.
	FindByConversationIds(ctx context.Context, conversationIds ...core.ID) ([]*core.Message, error)

	// DeleteFromSeq removes every message of a conversation whose sequence
	// number is at or above fromSeq. Trims stale tail rows when a
	// conversation shrinks.
	DeleteFromSeq(ctx context.Context, conversationId core.ID, fromSeq int) error

	// DeleteByConversationId removes every message owned by a conversation.
	DeleteByConversationId(ctx context.Context, conversationId core.ID) error
}

// EmbeddingRepository provides operations for managing conversation
// embeddings and nearest-neighbor lookup. At most one embedding row exists
// per conversation.
type EmbeddingRepository interface {
	// Upsert writes the embedding for a conversation, replacing the vector
	// and computation timestamp if a row already exists.
	Upsert(ctx context.Context, conversationId core.ID, vector []float32) error

	// Get retrieves the embedding for a conversation.
	// Returns ErrNotFound if no embedding exists.
	Get(ctx context.Context, conversationId core.ID) (*core.Embedding, error)

	// FindNearest returns the k embeddings closest to the query vector by
	// cosine distance, nearest first. Ties are broken by ascending
	// conversation ID. Returns ErrEmptyIndex if no embeddings exist at all.
	FindNearest(ctx context.Context, queryVector []float32, k int) ([]*core.NearestMatch, error)

	// Delete removes the embedding for a conversation. Removing a missing
	// embedding is not an error.
	Delete(ctx context.Context, conversationId core.ID) error
}
