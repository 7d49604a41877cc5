package embedding

import (
	"sync"

	"github.com/poiesic/recall/core"
)

// Queue is an in-memory FIFO of conversation IDs awaiting embedding.
// The same ID may be enqueued more than once; processing is idempotent so
// duplicate entries only cost a redundant embed. At most one item can be
// claimed at a time, and the claim must be released with Done before the
// next item can be taken.
//
// Queue contents do not survive a process restart. ReloadQueue on the
// worker rebuilds the backlog from storage.
type Queue struct {
	mu      sync.Mutex
	items   []core.ID
	claimed bool
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue appends a conversation ID to the back of the queue.
func (q *Queue) Enqueue(id core.ID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, id)
}

// ClaimNext removes and returns the ID at the front of the queue.
// Returns false when the queue is empty or another claim is outstanding.
func (q *Queue) ClaimNext() (core.ID, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.claimed || len(q.items) == 0 {
		return 0, false
	}

	id := q.items[0]
	q.items = q.items[1:]
	q.claimed = true
	return id, true
}

// Done releases the outstanding claim. Safe to call without a claim.
func (q *Queue) Done() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.claimed = false
}

// Size returns the number of queued items, excluding any claimed one.
func (q *Queue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// IsEmpty reports whether no items are queued. A claimed item in flight
// does not count as queued.
func (q *Queue) IsEmpty() bool {
	return q.Size() == 0
}

// Busy reports whether items are queued or a claim is outstanding.
func (q *Queue) Busy() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.claimed || len(q.items) > 0
}
