package ingestion

import "errors"

var (
	// ErrConversationRepositoryRequired is returned when a conversation repository is not provided.
	ErrConversationRepositoryRequired = errors.New("conversation repository required")

	// ErrMessageRepositoryRequired is returned when a message repository is not provided.
	ErrMessageRepositoryRequired = errors.New("message repository required")

	// ErrQueueRequired is returned when an embedding queue is not provided.
	ErrQueueRequired = errors.New("embedding queue required")
)
