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

// Package ingestion handles idempotent conversation upserts.
//
// Callers submit batches of ConversationPayload values, each identified by
// an external stable ID. Re-submitting an unchanged conversation is a no-op;
// a conversation whose message count changed is rewritten in place. The
// expensive embedding work never happens inline: changed conversations are
// enqueued on the embedding queue and processed asynchronously.
package ingestion
