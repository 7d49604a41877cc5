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

import "errors"

// Domain validation errors
var (
	// ErrInvalidConversation indicates a conversation payload failed validation.
	ErrInvalidConversation = errors.New("invalid conversation")

	// ErrInvalidMessage indicates a message failed validation.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrEmptyExternalId indicates the external stable ID is missing.
	ErrEmptyExternalId = errors.New("external id cannot be empty")

	// ErrEmptyContent indicates the Content field is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrInvalidRole indicates an unknown role value.
	ErrInvalidRole = errors.New("invalid role")

	// ErrZeroTimestamp indicates a required timestamp was not supplied.
	ErrZeroTimestamp = errors.New("timestamp is required")
)
