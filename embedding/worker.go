package embedding

import (
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

// Worker drains the queue: for each claimed conversation it builds a
// transcript from the stored messages, embeds it, and upserts the vector.
type Worker struct {
	queue         *Queue
	conversations storage.ConversationRepository
	messages      storage.MessageRepository
	embeddings    storage.EmbeddingRepository
	embedder      ai.Embedder
	logger        *slog.Logger
}

// NewWorker creates a worker bound to the given queue and repositories.
func NewWorker(
	queue *Queue,
	conversations storage.ConversationRepository,
	messages storage.MessageRepository,
	embeddings storage.EmbeddingRepository,
	embedder ai.Embedder,
	logger *slog.Logger,
) (*Worker, error) {
	if queue == nil {
		return nil, ErrQueueRequired
	}
	if conversations == nil {
		return nil, ErrConversationRepositoryRequired
	}
	if messages == nil {
		return nil, ErrMessageRepositoryRequired
	}
	if embeddings == nil {
		return nil, ErrEmbeddingRepositoryRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Worker{
		queue:         queue,
		conversations: conversations,
		messages:      messages,
		embeddings:    embeddings,
		embedder:      embedder,
		logger:        logger.With("component", "embedding-worker"),
	}, nil
}

// ProcessNext claims one conversation from the queue and embeds it.
// Returns false when there was nothing to process. The claim is always
// released, so a failed conversation does not wedge the queue; it can be
// re-enqueued by a later reload sweep.
func (w *Worker) ProcessNext(ctx context.Context) (bool, error) {
	id, ok := w.queue.ClaimNext()
	if !ok {
		return false, nil
	}
	defer w.queue.Done()

	if err := w.embedConversation(ctx, id); err != nil {
		w.logger.Error("error embedding conversation", "conversation_id", id, "err", err)
		return true, err
	}

	w.logger.Debug("embedded conversation", "conversation_id", id)
	return true, nil
}

// embedConversation builds the transcript for one conversation, embeds it,
// and stores the vector.
func (w *Worker) embedConversation(ctx context.Context, id core.ID) error {
	msgs, err := w.messages.FindByConversationId(ctx, id)
	if err != nil {
		return err
	}
	if len(msgs) == 0 {
		return ErrEmptyConversation
	}

	vector, err := w.embedder.EmbedText(ctx, Transcript(msgs))
	if err != nil {
		return err
	}

	return w.embeddings.Upsert(ctx, id, vector)
}

// ReloadQueue re-enqueues every conversation that has no stored embedding.
// Returns the number of conversations enqueued. This is the recovery path
// after a crash or restart loses the in-memory queue.
func (w *Worker) ReloadQueue(ctx context.Context) (int, error) {
	ids, err := w.conversations.FindIdsMissingEmbedding(ctx)
	if err != nil {
		return 0, err
	}

	for _, id := range ids {
		w.queue.Enqueue(id)
	}

	w.logger.Info("reloaded embedding queue", "enqueued", len(ids))
	return len(ids), nil
}

// Transcript renders messages as the canonical embedding input: one
// "{role}: {content}" line per message, in sequence order.
func Transcript(msgs []*core.Message) string {
	var b strings.Builder
	for i, msg := range msgs {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(msg.Role.String())
		b.WriteString(": ")
		b.WriteString(msg.Content)
	}
	return b.String()
}
