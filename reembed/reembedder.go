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

package reembed

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

// Config holds configuration for the reembedding operation.
type Config struct {
	// BatchSize is the number of conversations to process in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of conversations)
	ReportInterval int

	// MaxRetries is the maximum number of retry attempts for failed operations
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BatchSize:      50,
		ReportInterval: 50,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Reembedder recomputes the embedding of every conversation in the store.
// Used after switching embedding models, when all stored vectors become
// incomparable with newly computed ones.
type Reembedder struct {
	conversations storage.ConversationRepository
	config        *Config
	progress      io.Writer
	processor     *BatchProcessor
	iterator      *ConversationIterator
}

// NewReembedder creates a new reembedder.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(
	conversations storage.ConversationRepository,
	messages storage.MessageRepository,
	embeddings storage.EmbeddingRepository,
	embedder ai.Embedder,
	config *Config,
	progress io.Writer,
) *Reembedder {
	if config == nil {
		config = DefaultConfig()
	}

	return &Reembedder{
		conversations: conversations,
		config:        config,
		progress:      progress,
		processor:     NewBatchProcessor(messages, embeddings, embedder, config.MaxRetries, config.RetryDelay),
		iterator:      NewConversationIterator(conversations, config.BatchSize),
	}
}

// Run executes the reembedding operation over every stored conversation.
// Progress is reported to the configured writer.
func (r *Reembedder) Run(ctx context.Context) error {
	total, err := r.iterator.Count(ctx)
	if err != nil {
		return fmt.Errorf("failed to count conversations: %w", err)
	}

	if total == 0 {
		fmt.Fprintf(r.progress, "No conversations found in database\n")
		return nil
	}

	fmt.Fprintf(r.progress, "Starting reembedding of %d conversations (batch size: %d)\n",
		total, r.config.BatchSize)

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	processed := 0
	err = r.iterator.ForEach(ctx, func(batch []*core.Conversation) error {
		if err := r.processor.Process(ctx, batch); err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}

		processed += len(batch)
		tracker.Update(processed)
		return nil
	})
	if err != nil {
		return err
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reembedding complete. Processed %d conversations in %v (%.1f conversations/sec)\n",
		total, elapsed.Round(time.Second), float64(total)/elapsed.Seconds())

	return nil
}
