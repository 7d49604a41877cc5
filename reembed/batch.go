package reembed

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/embedding"
	"github.com/poiesic/recall/storage"
)

// BatchProcessor embeds batches of conversations and writes the vectors.
type BatchProcessor struct {
	messages       storage.MessageRepository
	embeddings     storage.EmbeddingRepository
	embedder       ai.Embedder
	maxRetries     int
	retryBaseDelay time.Duration
}

// NewBatchProcessor creates a new batch processor.
// maxRetries: maximum number of retry attempts for embedding API calls
// retryBaseDelay: base delay for exponential backoff
func NewBatchProcessor(
	messages storage.MessageRepository,
	embeddings storage.EmbeddingRepository,
	embedder ai.Embedder,
	maxRetries int,
	retryBaseDelay time.Duration,
) *BatchProcessor {
	return &BatchProcessor{
		messages:       messages,
		embeddings:     embeddings,
		embedder:       embedder,
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
	}
}

// Process regenerates embeddings for a batch of conversations.
// Conversations without messages are skipped; they have nothing to embed.
// Vectors are normalized before storage so cosine comparisons stay cheap.
func (bp *BatchProcessor) Process(ctx context.Context, conversations []*core.Conversation) error {
	if len(conversations) == 0 {
		return nil
	}

	// Build transcripts, dropping empty conversations
	ids := make([]core.ID, 0, len(conversations))
	transcripts := make([]string, 0, len(conversations))
	for _, conversation := range conversations {
		msgs, err := bp.messages.FindByConversationId(ctx, conversation.Id)
		if err != nil {
			return fmt.Errorf("failed to load messages for conversation %d: %w", conversation.Id, err)
		}
		if len(msgs) == 0 {
			continue
		}

		ids = append(ids, conversation.Id)
		transcripts = append(transcripts, embedding.Transcript(msgs))
	}

	if len(transcripts) == 0 {
		return nil
	}

	// Generate embeddings with retry
	var vectors [][]float32
	err := RetryWithBackoff(ctx, func() error {
		var err error
		vectors, err = bp.embedder.EmbedTexts(ctx, transcripts)
		return err
	}, bp.maxRetries, bp.retryBaseDelay)
	if err != nil {
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", bp.maxRetries, err)
	}

	if len(vectors) != len(ids) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(ids), len(vectors))
	}

	for i, id := range ids {
		if err := bp.embeddings.Upsert(ctx, id, NormalizeVector(vectors[i])); err != nil {
			return fmt.Errorf("failed to store embedding for conversation %d: %w", id, err)
		}
	}

	return nil
}
