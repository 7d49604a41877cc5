package badger

import (
	"context"
	"slices"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

// ConversationRepository implements storage.ConversationRepository for
// BadgerDB. External-ID uniqueness is enforced through a dedicated index
// checked inside the same write transaction as the record insert.
type ConversationRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.ConversationRepository = (*ConversationRepository)(nil)

// NewConversationRepository creates a new ConversationRepository.
func NewConversationRepository(backend *Backend) (*ConversationRepository, error) {
	idSeq, err := backend.GetSequence(conversationIDSeq)
	if err != nil {
		return nil, err
	}

	return &ConversationRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *ConversationRepository) Close() error {
	return r.idSeq.Release()
}

// Create inserts a new conversation, assigning a fresh internal ID.
func (r *ConversationRepository) Create(ctx context.Context, conversation *core.Conversation) (*core.Conversation, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		// External-ID uniqueness check
		extKey := makeConversationExtKey(conversation.ExternalId)
		if _, err := tx.Get(extKey); err == nil {
			return storage.ErrDuplicateKey
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		nextID, err := r.idSeq.Next()
		if err != nil {
			return err
		}
		// BadgerDB sequences can return 0 on first call, so we skip it
		if nextID == 0 {
			nextID, err = r.idSeq.Next()
			if err != nil {
				return err
			}
		}
		conversation.Id = core.ID(nextID)
		conversation.UpdatedAt = time.Now().UTC()

		// Store primary record
		key := makeConversationKey(conversation.Id)
		if err := tx.Set(key, storage.MarshalConversation(conversation)); err != nil {
			return err
		}

		// External-ID index
		if err := tx.Set(extKey, storage.MarshalID(conversation.Id)); err != nil {
			return err
		}

		// Creation-date index
		dateKey := makeConversationDateKey(conversation.CreatedAt, conversation.Id)
		if err := tx.Set(dateKey, storage.MarshalID(conversation.Id)); err != nil {
			return err
		}

		return tx.Commit()
	}, true)

	return conversation, err
}

// Update rewrites an existing conversation, bumping UpdatedAt.
func (r *ConversationRepository) Update(ctx context.Context, conversation *core.Conversation) (*core.Conversation, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeConversationKey(conversation.Id)

		old, err := readConversation(tx, key)
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}

		// Internal ID and creation timestamp are immutable
		conversation.CreatedAt = old.CreatedAt
		conversation.ExternalId = old.ExternalId
		conversation.UpdatedAt = time.Now().UTC()

		if err := tx.Set(key, storage.MarshalConversation(conversation)); err != nil {
			return err
		}

		return tx.Commit()
	}, true)

	return conversation, err
}

// FindByExternalId retrieves a conversation by its external stable ID.
func (r *ConversationRepository) FindByExternalId(ctx context.Context, externalId string) (*core.Conversation, error) {
	var result *core.Conversation
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeConversationExtKey(externalId))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}

		var id core.ID
		if err := item.Value(func(val []byte) error {
			var err error
			id, err = storage.UnmarshalID(val)
			return err
		}); err != nil {
			return err
		}

		result, err = readConversation(tx, makeConversationKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// FindByIds retrieves multiple conversations by their internal IDs.
func (r *ConversationRepository) FindByIds(ctx context.Context, ids ...core.ID) ([]*core.Conversation, error) {
	var result []*core.Conversation
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			conversation, err := readConversation(tx, makeConversationKey(id))
			if err != nil {
				return err
			}
			if conversation != nil {
				result = append(result, conversation)
			}
		}
		return nil
	}, false)
	return result, err
}

// FindByDateRange retrieves conversations created within [from, to],
// both bounds inclusive. A nil bound is open; both nil is ErrInvalidRange.
func (r *ConversationRepository) FindByDateRange(ctx context.Context, from, to *time.Time) ([]*core.Conversation, error) {
	if from == nil && to == nil {
		return nil, storage.ErrInvalidRange
	}

	start := time.UnixMicro(0).UTC()
	if from != nil {
		start = *from
	}

	// The end key carries the maximum ID suffix so conversations created
	// exactly at the upper bound are included.
	endKey := makeConversationDateKey(time.Date(9999, 12, 31, 23, 59, 59, 999999000, time.UTC), core.ID(^uint64(0)))
	if to != nil {
		endKey = makeConversationDateKey(*to, core.ID(^uint64(0)))
	}

	var results []*core.Conversation
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		startKey := makePartialConversationDateKey(start)
		prefix := []byte(conversationDatePrefix + ":")

		iter := tx.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()

		for iter.Seek(startKey); iter.Valid(); iter.Next() {
			key := iter.Item().Key()
			if len(key) < len(prefix) || slices.Compare(key[:len(prefix)], prefix) != 0 {
				break
			}
			if slices.Compare(key, endKey) > 0 {
				break
			}

			var id core.ID
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				id, err = storage.UnmarshalID(val)
				return err
			}); err != nil {
				return err
			}

			conversation, err := readConversation(tx, makeConversationKey(id))
			if err != nil {
				return err
			}
			if conversation != nil {
				results = append(results, conversation)
			}
		}
		return nil
	}, false)

	return results, err
}

// FindAll retrieves every conversation by scanning the primary keyspace,
// ordered by creation time with internal ID as the tie-break.
func (r *ConversationRepository) FindAll(ctx context.Context) ([]*core.Conversation, error) {
	var results []*core.Conversation
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(conversationPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var conversation *core.Conversation
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				conversation, err = storage.UnmarshalConversation(val)
				return err
			}); err != nil {
				return err
			}
			if conversation != nil {
				results = append(results, conversation)
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(results, func(a, b *core.Conversation) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		switch {
		case a.Id < b.Id:
			return -1
		case a.Id > b.Id:
			return 1
		default:
			return 0
		}
	})
	return results, nil
}

// FindIdsMissingEmbedding returns the IDs of conversations with no
// embedding row. This is the anti-join backing the queue reload sweep.
func (r *ConversationRepository) FindIdsMissingEmbedding(ctx context.Context) ([]core.ID, error) {
	var ids []core.ID
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(conversationPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var conversation *core.Conversation
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				conversation, err = storage.UnmarshalConversation(val)
				return err
			}); err != nil {
				return err
			}
			if conversation == nil {
				continue
			}

			_, err := tx.Get(makeEmbeddingKey(conversation.Id))
			if err == badger.ErrKeyNotFound {
				ids = append(ids, conversation.Id)
				continue
			}
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.Sort(ids)
	return ids, nil
}

// Delete removes a conversation, its indices, its messages, and its
// embedding.
func (r *ConversationRepository) Delete(ctx context.Context, id core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeConversationKey(id)
		conversation, err := readConversation(tx, key)
		if err != nil {
			return err
		}
		if conversation == nil {
			return storage.ErrNotFound
		}

		// Cascade: messages first
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialMessageKey(id)
		iter := tx.NewIterator(opts)
		var msgKeys [][]byte
		for iter.Rewind(); iter.Valid(); iter.Next() {
			msgKeys = append(msgKeys, iter.Item().KeyCopy(nil))
		}
		iter.Close()
		for _, mk := range msgKeys {
			if err := tx.Delete(mk); err != nil {
				return err
			}
		}

		// Embedding, if any
		if err := tx.Delete(makeEmbeddingKey(id)); err != nil {
			return err
		}

		// Indices
		if err := tx.Delete(makeConversationExtKey(conversation.ExternalId)); err != nil {
			return err
		}
		if err := tx.Delete(makeConversationDateKey(conversation.CreatedAt, id)); err != nil {
			return err
		}

		// Primary record
		if err := tx.Delete(key); err != nil {
			return err
		}

		return tx.Commit()
	}, true)
}

// readConversation reads a conversation record from the transaction.
func readConversation(tx *badger.Txn, key []byte) (*core.Conversation, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var conversation *core.Conversation
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		conversation, unmarshalErr = storage.UnmarshalConversation(val)
		return unmarshalErr
	})
	return conversation, err
}
