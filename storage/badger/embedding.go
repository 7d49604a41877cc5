package badger

import (
	"context"
	"math"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

// EmbeddingRepository implements storage.EmbeddingRepository for BadgerDB.
// Nearest-neighbor lookup is a full scan over the embedding rows, which is
// adequate for the single-user scale this store serves.
type EmbeddingRepository struct {
	backend *Backend
}

var _ storage.EmbeddingRepository = (*EmbeddingRepository)(nil)

// NewEmbeddingRepository creates a new EmbeddingRepository.
func NewEmbeddingRepository(backend *Backend) *EmbeddingRepository {
	return &EmbeddingRepository{backend: backend}
}

// Upsert writes the embedding for a conversation. The single key per
// conversation means a second write replaces the vector and timestamp
// rather than adding a row.
func (r *EmbeddingRepository) Upsert(ctx context.Context, conversationId core.ID, vector []float32) error {
	embedding := &core.Embedding{
		ConversationId: conversationId,
		Vector:         vector,
		ComputedAt:     time.Now().UTC(),
	}
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeEmbeddingKey(conversationId)
		if err := tx.Set(key, storage.MarshalEmbedding(embedding)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Get retrieves the embedding for a conversation.
func (r *EmbeddingRepository) Get(ctx context.Context, conversationId core.ID) (*core.Embedding, error) {
	var result *core.Embedding
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeEmbeddingKey(conversationId))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			result, unmarshalErr = storage.UnmarshalEmbedding(val)
			return unmarshalErr
		})
	}, false)
	return result, err
}

// FindNearest returns the k embeddings closest to the query vector by
// cosine distance, nearest first. Equal distances tie-break by ascending
// conversation ID. Returns storage.ErrEmptyIndex when the store holds no
// embeddings at all.
func (r *EmbeddingRepository) FindNearest(ctx context.Context, queryVector []float32, k int) ([]*core.NearestMatch, error) {
	var matches []*core.NearestMatch
	scanned := 0

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(embeddingPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var embedding *core.Embedding
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				embedding, err = storage.UnmarshalEmbedding(val)
				return err
			}); err != nil {
				return err
			}
			if embedding == nil || len(embedding.Vector) == 0 {
				continue
			}
			scanned++

			matches = append(matches, &core.NearestMatch{
				ConversationId: embedding.ConversationId,
				Vector:         embedding.Vector,
				Distance:       cosineDistance(queryVector, embedding.Vector),
			})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	if scanned == 0 {
		return nil, storage.ErrEmptyIndex
	}

	// Nearest first; ties broken by conversation ID
	slices.SortFunc(matches, func(a, b *core.NearestMatch) int {
		if a.Distance < b.Distance {
			return -1
		}
		if a.Distance > b.Distance {
			return 1
		}
		if a.ConversationId < b.ConversationId {
			return -1
		}
		if a.ConversationId > b.ConversationId {
			return 1
		}
		return 0
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// Delete removes the embedding for a conversation. Missing rows are not an
// error.
func (r *EmbeddingRepository) Delete(ctx context.Context, conversationId core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Delete(makeEmbeddingKey(conversationId)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// cosineDistance computes 1 - cosine similarity between two vectors.
// A zero-magnitude vector is treated as maximally distant.
func cosineDistance(a, b []float32) float32 {
	var dot, normA, normB float64
	minLen := len(a)
	if len(b) < minLen {
		minLen = len(b)
	}
	for i := 0; i < minLen; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return float32(1 - dot/(math.Sqrt(normA)*math.Sqrt(normB)))
}
