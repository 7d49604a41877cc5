package ingestion

import (
	"context"
	"log/slog"
	"time"

	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/embedding"
	"github.com/poiesic/recall/storage"
)

// ConversationPayload is one conversation in an ingestion batch.
type ConversationPayload struct {
	ExternalId string           `json:"id"`
	Title      string           `json:"title"`
	CreatedAt  time.Time        `json:"created_at"`
	Messages   []MessagePayload `json:"messages"`
}

// MessagePayload is one message within a conversation payload. Role is the
// wire string ("user" or "assistant").
type MessagePayload struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Result summarizes one ingestion batch. Unchanged payloads are invisible
// here: a no-op increments nothing.
type Result struct {
	Processed int // Conversations written, created plus updated
	Created   int // New conversations inserted
	Updated   int // Existing conversations rewritten
}

// Upserter ingests conversation payloads idempotently. A payload whose
// external ID is unknown creates a conversation; a known ID with a changed
// message count rewrites it; a known ID with the same count is skipped.
// Created and updated conversations are enqueued for embedding.
type Upserter struct {
	conversations storage.ConversationRepository
	messages      storage.MessageRepository
	queue         *embedding.Queue
	logger        *slog.Logger
}

// UpserterOption configures an Upserter.
type UpserterOption func(*Upserter) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) UpserterOption {
	return func(u *Upserter) error {
		if logger == nil {
			logger = slog.Default()
		}
		u.logger = logger
		return nil
	}
}

// NewUpserter creates a new ingestion upserter.
func NewUpserter(
	conversations storage.ConversationRepository,
	messages storage.MessageRepository,
	queue *embedding.Queue,
	opts ...UpserterOption,
) (*Upserter, error) {
	if conversations == nil {
		return nil, ErrConversationRepositoryRequired
	}
	if messages == nil {
		return nil, ErrMessageRepositoryRequired
	}
	if queue == nil {
		return nil, ErrQueueRequired
	}

	u := &Upserter{
		conversations: conversations,
		messages:      messages,
		queue:         queue,
		logger:        slog.Default(),
	}

	for _, opt := range opts {
		if err := opt(u); err != nil {
			return nil, err
		}
	}

	u.logger = u.logger.With("component", "ingestion")
	return u, nil
}

// Upsert processes a batch of payloads in order. The batch stops at the
// first failing payload; conversations already written stay written. The
// returned Result counts only what completed.
func (u *Upserter) Upsert(ctx context.Context, payloads ...*ConversationPayload) (*Result, error) {
	result := &Result{}

	for _, payload := range payloads {
		created, updated, err := u.upsertOne(ctx, payload)
		if err != nil {
			u.logger.Error("error upserting conversation",
				"external_id", payload.ExternalId, "err", err)
			return result, err
		}

		if created || updated {
			result.Processed++
		}
		if created {
			result.Created++
		}
		if updated {
			result.Updated++
		}
	}

	u.logger.Info("ingestion batch complete",
		"processed", result.Processed, "created", result.Created, "updated", result.Updated)
	return result, nil
}

func (u *Upserter) upsertOne(ctx context.Context, payload *ConversationPayload) (created, updated bool, err error) {
	msgs, err := u.buildMessages(payload)
	if err != nil {
		return false, false, err
	}

	conversation := &core.Conversation{
		ExternalId:   payload.ExternalId,
		Title:        payload.Title,
		CreatedAt:    payload.CreatedAt.UTC(),
		MessageCount: len(msgs),
	}
	if conversation.Title == "" {
		conversation.Title = core.DefaultTitle
	}
	if err := core.ValidateConversation(conversation); err != nil {
		return false, false, err
	}

	existing, err := u.conversations.FindByExternalId(ctx, payload.ExternalId)
	switch {
	case err == storage.ErrNotFound:
		return true, false, u.create(ctx, conversation, msgs)
	case err != nil:
		return false, false, err
	}

	// Message count is the change signal. An unchanged count means an
	// unchanged transcript, because ingested conversations are append-only.
	if existing.MessageCount == len(msgs) {
		u.logger.Debug("conversation unchanged, skipping",
			"external_id", payload.ExternalId, "messages", len(msgs))
		return false, false, nil
	}

	conversation.Id = existing.Id
	return false, true, u.update(ctx, conversation, msgs)
}

func (u *Upserter) create(ctx context.Context, conversation *core.Conversation, msgs []*core.Message) error {
	stored, err := u.conversations.Create(ctx, conversation)
	if err != nil {
		return err
	}

	if len(msgs) == 0 {
		return nil
	}

	for _, msg := range msgs {
		msg.ConversationId = stored.Id
	}
	if err := u.messages.UpsertMany(ctx, msgs...); err != nil {
		return err
	}

	u.queue.Enqueue(stored.Id)
	return nil
}

func (u *Upserter) update(ctx context.Context, conversation *core.Conversation, msgs []*core.Message) error {
	for _, msg := range msgs {
		msg.ConversationId = conversation.Id
	}
	if err := u.messages.UpsertMany(ctx, msgs...); err != nil {
		return err
	}

	// A shrunk conversation leaves stale rows past the new tail; drop them
	// so sequence numbers stay exactly 0..n-1.
	if err := u.messages.DeleteFromSeq(ctx, conversation.Id, len(msgs)); err != nil {
		return err
	}

	if _, err := u.conversations.Update(ctx, conversation); err != nil {
		return err
	}

	if len(msgs) > 0 {
		u.queue.Enqueue(conversation.Id)
	}
	return nil
}

// buildMessages converts and validates the payload messages. Seq follows
// array position.
func (u *Upserter) buildMessages(payload *ConversationPayload) ([]*core.Message, error) {
	msgs := make([]*core.Message, len(payload.Messages))
	for i, pm := range payload.Messages {
		role, err := core.ParseRole(pm.Role)
		if err != nil {
			return nil, err
		}

		msg := &core.Message{
			Seq:       i,
			Role:      role,
			Content:   pm.Content,
			Timestamp: pm.Timestamp.UTC(),
		}
		if err := core.ValidateMessage(msg); err != nil {
			return nil, err
		}
		msgs[i] = msg
	}
	return msgs, nil
}
