package badger

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/poiesic/recall/core"
)

// Key prefixes for different data types
const (
	conversationPrefix     = "conv"
	conversationExtPrefix  = "convext"
	conversationDatePrefix = "convd"
	conversationIDSeq      = "convseq"
	messagePrefix          = "msg"
	embeddingPrefix        = "emb"
)

// makeConversationKey generates a key for a conversation record by ID.
func makeConversationKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", conversationPrefix, id))
}

// makeConversationExtKey generates a key for the external-ID uniqueness
// index. Format: prefix:externalId
func makeConversationExtKey(externalId string) []byte {
	return []byte(conversationExtPrefix + ":" + externalId)
}

// makeConversationDateKey generates a composite key for the creation-date
// index. Format: prefix:timestamp:id
func makeConversationDateKey(timestamp time.Time, id core.ID) []byte {
	prefix := conversationDatePrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 16 // 8 bytes for timestamp + 8 bytes for ID
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialConversationDateKey generates a partial key for date range
// queries. Format: prefix:timestamp
func makePartialConversationDateKey(timestamp time.Time) []byte {
	prefix := conversationDatePrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8 // 8 bytes for timestamp
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(timestamp.UnixMicro()))
	return buf
}

// makeMessageKey generates a composite key for a message.
// Format: prefix:conversationId:seq, BigEndian so iteration over a
// conversation's prefix yields messages in sequence order.
func makeMessageKey(conversationId core.ID, seq int) []byte {
	prefix := messagePrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 16 // 8 bytes for conversationId + 8 bytes for seq
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(conversationId))
	offset += 8
	binary.BigEndian.PutUint64(buf[offset:], uint64(seq))
	return buf
}

// makePartialMessageKey generates a partial key covering all messages of a
// conversation. Format: prefix:conversationId
func makePartialMessageKey(conversationId core.ID) []byte {
	prefix := messagePrefix + ":"
	prefixBytes := []byte(prefix)
	prefixSize := len(prefixBytes)
	totalSize := prefixSize + 8 // 8 bytes for conversationId
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	binary.BigEndian.PutUint64(buf[offset:], uint64(conversationId))
	return buf
}

// makeEmbeddingKey generates a key for a conversation's embedding.
// One key per conversation is what enforces the one-embedding-per-
// conversation invariant.
func makeEmbeddingKey(conversationId core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", embeddingPrefix, conversationId))
}
