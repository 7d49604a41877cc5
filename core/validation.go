// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import "fmt"

// ValidateConversation validates a Conversation according to domain rules.
//
// Validation rules:
//   - ExternalId must not be empty
//   - CreatedAt must be set
//
// NOT validated (populated by the store):
//   - Id (0 is valid before the store assigns a sequence value)
//   - UpdatedAt (managed by the store)
//   - Title (empty titles are replaced with DefaultTitle at ingestion)
func ValidateConversation(conversation *Conversation) error {
	if conversation == nil {
		return fmt.Errorf("%w: conversation is nil", ErrInvalidConversation)
	}

	if conversation.ExternalId == "" {
		return fmt.Errorf("%w: %w", ErrInvalidConversation, ErrEmptyExternalId)
	}

	if conversation.CreatedAt.IsZero() {
		return fmt.Errorf("%w: %w", ErrInvalidConversation, ErrZeroTimestamp)
	}

	return nil
}

// ValidateMessage validates a Message according to domain rules.
//
// Validation rules:
//   - Content must not be empty
//   - Role must be valid (user or assistant)
//   - Seq must not be negative
//
// NOT validated:
//   - ConversationId (0 is valid before the parent is created)
//   - Timestamp (caller-supplied, passed through as-is)
func ValidateMessage(message *Message) error {
	if message == nil {
		return fmt.Errorf("%w: message is nil", ErrInvalidMessage)
	}

	if message.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, ErrEmptyContent)
	}

	if err := ValidateRole(message.Role); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}

	if message.Seq < 0 {
		return fmt.Errorf("%w: negative sequence number %d", ErrInvalidMessage, message.Seq)
	}

	return nil
}

// ValidateRole validates that a Role has a valid value.
func ValidateRole(role Role) error {
	if role != RoleUser && role != RoleAssistant {
		return fmt.Errorf("%w: value %d", ErrInvalidRole, role)
	}
	return nil
}
