package embedding

import "errors"

var (
	// ErrEmptyConversation is returned when a claimed conversation has no
	// messages to embed.
	ErrEmptyConversation = errors.New("conversation has no messages to embed")

	// ErrQueueRequired is returned when a queue is not provided.
	ErrQueueRequired = errors.New("queue required")

	// ErrConversationRepositoryRequired is returned when a conversation repository is not provided.
	ErrConversationRepositoryRequired = errors.New("conversation repository required")

	// ErrMessageRepositoryRequired is returned when a message repository is not provided.
	ErrMessageRepositoryRequired = errors.New("message repository required")

	// ErrEmbeddingRepositoryRequired is returned when an embedding repository is not provided.
	ErrEmbeddingRepositoryRequired = errors.New("embedding repository required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")
)
