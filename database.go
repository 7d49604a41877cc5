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

package recall

import (
	"context"
	"log/slog"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/recall/ai"
	"github.com/poiesic/recall/ai/openai"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/embedding"
	"github.com/poiesic/recall/ingestion"
	"github.com/poiesic/recall/search"
	"github.com/poiesic/recall/storage"
	"github.com/poiesic/recall/storage/badger"
)

// Database is the composition root. It owns the storage backend, the
// repositories, the AI provider, the embedding queue and worker, and a
// single-worker pool that drains the queue in the background after each
// ingest.
type Database struct {
	backend   *badger.Backend
	convRepo  storage.ConversationRepository
	msgRepo   storage.MessageRepository
	embRepo   storage.EmbeddingRepository
	provider  ai.AIProvider
	queue     *embedding.Queue
	upserter  *ingestion.Upserter
	worker    *embedding.Worker
	searcher  *search.Searcher
	drainPool *ants.Pool
	logger    *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig *ai.Config
	provider ai.AIProvider
	inMemory bool
}

// WithAIConfig sets the AI configuration used to build the default
// OpenAI-compatible provider.
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.aiConfig = config
	}
}

// WithProvider injects a pre-built AI provider, bypassing the default
// OpenAI-compatible one. The database takes ownership and closes it.
func WithProvider(provider ai.AIProvider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// WithInMemory opens the storage backend in memory. Used in tests.
func WithInMemory() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// NewDatabase opens a database at filePath and wires the full pipeline.
func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(),
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	convRepo, err := badger.NewConversationRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	msgRepo := badger.NewMessageRepository(backend)
	embRepo := badger.NewEmbeddingRepository(backend)

	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			convRepo.Close()
			backend.Close()
			return nil, err
		}
	}

	queue := embedding.NewQueue()

	upserter, err := ingestion.NewUpserter(convRepo, msgRepo, queue)
	if err != nil {
		provider.Close()
		convRepo.Close()
		backend.Close()
		return nil, err
	}

	worker, err := embedding.NewWorker(queue, convRepo, msgRepo, embRepo, provider.Embedder(), nil)
	if err != nil {
		provider.Close()
		convRepo.Close()
		backend.Close()
		return nil, err
	}

	searcher, err := search.NewSearcher(convRepo, msgRepo, embRepo, provider)
	if err != nil {
		provider.Close()
		convRepo.Close()
		backend.Close()
		return nil, err
	}

	// One background goroutine: the queue's single-claim guard makes more
	// workers pointless, and a single drainer keeps embedding order FIFO.
	drainPool, err := ants.NewPool(1, ants.WithNonblocking(true))
	if err != nil {
		provider.Close()
		convRepo.Close()
		backend.Close()
		return nil, err
	}

	return &Database{
		backend:   backend,
		convRepo:  convRepo,
		msgRepo:   msgRepo,
		embRepo:   embRepo,
		provider:  provider,
		queue:     queue,
		upserter:  upserter,
		worker:    worker,
		searcher:  searcher,
		drainPool: drainPool,
		logger:    slog.Default(),
	}, nil
}

// UpsertConversations ingests a batch of conversation payloads and kicks
// the background drainer for any newly enqueued embedding work.
func (db *Database) UpsertConversations(ctx context.Context, payloads ...*ingestion.ConversationPayload) (*ingestion.Result, error) {
	result, err := db.upserter.Upsert(ctx, payloads...)

	// Even a failed batch may have enqueued earlier payloads
	db.kickDrain()

	return result, err
}

// Search returns the conversations semantically closest to the query.
func (db *Database) Search(ctx context.Context, query string) ([]*core.ConversationResult, error) {
	return db.searcher.Search(ctx, query)
}

// GetByDateRange returns conversations created within the inclusive range.
func (db *Database) GetByDateRange(ctx context.Context, from, to *time.Time) ([]*core.ConversationResult, error) {
	return db.searcher.GetByDateRange(ctx, from, to)
}

// ProcessNextEmbedding synchronously processes one queued conversation.
// Returns false when the queue was empty.
func (db *Database) ProcessNextEmbedding(ctx context.Context) (bool, error) {
	return db.worker.ProcessNext(ctx)
}

// ReloadQueue re-enqueues all conversations missing an embedding and kicks
// the background drainer. Returns the number enqueued.
func (db *Database) ReloadQueue(ctx context.Context) (int, error) {
	count, err := db.worker.ReloadQueue(ctx)
	if err != nil {
		return 0, err
	}

	db.kickDrain()
	return count, nil
}

// DrainEmbeddings synchronously processes queued conversations until the
// queue is empty. Processing errors are logged and skipped so one bad
// conversation cannot stall the rest.
func (db *Database) DrainEmbeddings(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		processed, err := db.worker.ProcessNext(ctx)
		if err != nil {
			db.logger.Error("error draining embedding queue", "err", err)
			continue
		}
		if !processed {
			return nil
		}
	}
}

// DeleteConversation removes a conversation, its messages, and its
// embedding.
func (db *Database) DeleteConversation(ctx context.Context, id core.ID) error {
	return db.convRepo.Delete(ctx, id)
}

// QueueSize returns the number of conversations awaiting embedding.
func (db *Database) QueueSize() int {
	return db.queue.Size()
}

// QueueBusy reports whether embedding work is queued or in flight.
func (db *Database) QueueBusy() bool {
	return db.queue.Busy()
}

// ConversationRepository exposes the conversation repository for tooling.
func (db *Database) ConversationRepository() storage.ConversationRepository {
	return db.convRepo
}

// MessageRepository exposes the message repository for tooling.
func (db *Database) MessageRepository() storage.MessageRepository {
	return db.msgRepo
}

// EmbeddingRepository exposes the embedding repository for tooling.
func (db *Database) EmbeddingRepository() storage.EmbeddingRepository {
	return db.embRepo
}

// Embedder exposes the underlying embedder for maintenance tooling.
func (db *Database) Embedder() ai.Embedder {
	return db.provider.Embedder()
}

// kickDrain schedules a background drain. The pool is nonblocking with
// capacity 1, so a kick while a drain is already running is dropped; the
// running drain will pick up the new items anyway.
func (db *Database) kickDrain() {
	err := db.drainPool.Submit(func() {
		if err := db.DrainEmbeddings(context.Background()); err != nil {
			db.logger.Error("background embedding drain aborted", "err", err)
		}
	})
	if err != nil && err != ants.ErrPoolOverload {
		db.logger.Error("error scheduling embedding drain", "err", err)
	}
}

// Close releases the worker pool, the AI provider, the repositories, and
// the backend, in that order.
func (db *Database) Close() error {
	db.drainPool.Release()

	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}

	if err := db.convRepo.Close(); err != nil {
		db.logger.Error("error closing conversation repository", "err", err)
		return err
	}

	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}
