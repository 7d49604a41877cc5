package core

//go:generate go run ../cmd/musgen

import (
	"fmt"
	"time"
)

// ID is a unique identifier for domain entities.
// Internal conversation IDs are generated from database sequences and are
// immutable for the lifetime of the record.
type ID uint64

// Role identifies the source of a message within a conversation.
type Role int

const (
	// RoleUser represents the human originator of a conversation turn.
	RoleUser Role = iota + 1
	// RoleAssistant represents the AI responder.
	RoleAssistant
)

// String returns the wire representation of the role.
func (r Role) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleAssistant:
		return "assistant"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// ParseRole converts a wire role string into a Role.
func ParseRole(s string) (Role, error) {
	switch s {
	case "user":
		return RoleUser, nil
	case "assistant":
		return RoleAssistant, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
}

// DefaultTitle is used for conversations ingested without a title.
const DefaultTitle = "Untitled conversation"

// Conversation is a single ingested chat transcript.
// Identity is a pair: Id is generated by the store and never changes,
// ExternalId is supplied by the caller and acts as the idempotency key
// for upserts. ExternalId is unique across all conversations.
type Conversation struct {
	Id           ID
	ExternalId   string
	Title        string
	CreatedAt    time.Time // Caller-supplied, authoritative
	UpdatedAt    time.Time // Bumped by the store on every mutating write
	MessageCount int       // Cached message total, the change-detection signal
}

// Message is a single turn in a conversation. The conversation exclusively
// owns its messages; they are deleted with the parent.
// (ConversationId, Seq) is the message-level upsert key.
type Message struct {
	ConversationId ID
	Seq            int // Zero-based position in the ingested message array
	Role           Role
	Content        string
	Timestamp      time.Time
}

// Embedding is the vector representation of a conversation's combined
// message text. At most one embedding exists per conversation.
type Embedding struct {
	ConversationId ID
	Vector         []float32
	ComputedAt     time.Time
}

// NearestMatch is a single hit from a nearest-neighbor lookup.
type NearestMatch struct {
	ConversationId ID
	Vector         []float32
	Distance       float32 // Cosine distance, smaller is closer
}

// ConversationResult is a hydrated retrieval result: conversation metadata
// joined with its full message set, ordered by sequence number.
type ConversationResult struct {
	Conversation *Conversation
	Messages     []*Message
	Distance     float32 // Zero for date-range results
}
