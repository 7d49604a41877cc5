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

// Package embedding implements the asynchronous embedding pipeline.
//
// Ingestion enqueues conversation IDs onto an in-memory FIFO Queue rather
// than embedding inline, keeping writes fast. A Worker drains the queue one
// conversation at a time: it joins the conversation's messages into a
// "{role}: {content}" transcript, requests a vector from the configured
// ai.Embedder, and upserts the result into storage.
//
// The queue is deliberately lossy across restarts. Worker.ReloadQueue
// reconciles by re-enqueueing every conversation that has no stored
// embedding, so the transcript store remains the source of truth.
package embedding
