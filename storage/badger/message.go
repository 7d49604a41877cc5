package badger

import (
	"context"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/recall/core"
	"github.com/poiesic/recall/storage"
)

// MessageRepository implements storage.MessageRepository for BadgerDB.
// Messages are keyed by (conversationId, seq), so writing a message at an
// existing sequence number overwrites it in place.
type MessageRepository struct {
	backend *Backend
}

var _ storage.MessageRepository = (*MessageRepository)(nil)

// NewMessageRepository creates a new MessageRepository.
func NewMessageRepository(backend *Backend) *MessageRepository {
	return &MessageRepository{backend: backend}
}

// UpsertMany writes messages, overwriting existing rows at the same
// (conversationId, seq) key.
func (r *MessageRepository) UpsertMany(ctx context.Context, messages ...*core.Message) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, message := range messages {
			key := makeMessageKey(message.ConversationId, message.Seq)
			if err := tx.Set(key, storage.MarshalMessage(message)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// FindByConversationId retrieves all messages for a conversation, ordered
// by sequence number. Key order gives sequence order for free.
func (r *MessageRepository) FindByConversationId(ctx context.Context, conversationId core.ID) ([]*core.Message, error) {
	var results []*core.Message
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		results, err = readConversationMessages(tx, conversationId)
		return err
	}, false)
	return results, err
}

// FindByConversationIds retrieves all messages for multiple conversations,
// ordered by sequence number within each conversation.
func (r *MessageRepository) FindByConversationIds(ctx context.Context, conversationIds ...core.ID) ([]*core.Message, error) {
	var results []*core.Message
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range conversationIds {
			messages, err := readConversationMessages(tx, id)
			if err != nil {
				return err
			}
			results = append(results, messages...)
		}
		return nil
	}, false)
	return results, err
}

// DeleteFromSeq removes every message of a conversation with a sequence
// number at or above fromSeq. Key order is sequence order, so a single
// seek lands on the first stale row.
func (r *MessageRepository) DeleteFromSeq(ctx context.Context, conversationId core.ID, fromSeq int) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialMessageKey(conversationId)
		iter := tx.NewIterator(opts)
		var keys [][]byte
		for iter.Seek(makeMessageKey(conversationId, fromSeq)); iter.Valid(); iter.Next() {
			keys = append(keys, iter.Item().KeyCopy(nil))
		}
		iter.Close()

		for _, key := range keys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// DeleteByConversationId removes every message owned by a conversation.
func (r *MessageRepository) DeleteByConversationId(ctx context.Context, conversationId core.ID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialMessageKey(conversationId)
		iter := tx.NewIterator(opts)
		var keys [][]byte
		for iter.Rewind(); iter.Valid(); iter.Next() {
			keys = append(keys, iter.Item().KeyCopy(nil))
		}
		iter.Close()

		for _, key := range keys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// readConversationMessages reads all messages of one conversation from the
// transaction, in sequence order.
func readConversationMessages(tx *badger.Txn, conversationId core.ID) ([]*core.Message, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = makePartialMessageKey(conversationId)
	iter := tx.NewIterator(opts)
	defer iter.Close()

	var results []*core.Message
	for iter.Rewind(); iter.Valid(); iter.Next() {
		var message *core.Message
		if err := iter.Item().Value(func(val []byte) error {
			var err error
			message, err = storage.UnmarshalMessage(val)
			return err
		}); err != nil {
			return nil, err
		}
		if message != nil {
			results = append(results, message)
		}
	}
	return results, nil
}
