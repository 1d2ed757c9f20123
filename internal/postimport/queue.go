package postimport

import (
	"sync"

	"github.com/roach88/datastore/internal/ir"
)

// Queue is a thread-safe, unbounded FIFO of resources awaiting
// post-import processing.
//
// Importers enqueue from any goroutine while Workers dequeue. The signal
// channel enables context-aware waiting in worker loops.
type Queue struct {
	mu     sync.Mutex
	items  []ir.Resource
	closed bool
	signal chan struct{} // Signals availability (buffered, size 1)
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		items:  make([]ir.Resource, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds a resource to the back of the queue.
// Returns false if the queue is closed.
func (q *Queue) Enqueue(res ir.Resource) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.items = append(q.items, res)

	// Non-blocking: a buffer of 1 coalesces multiple signals.
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes the front resource without blocking.
// Returns (ir.Resource{}, false) if the queue is empty.
func (q *Queue) TryDequeue() (ir.Resource, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return ir.Resource{}, false
	}

	res := q.items[0]
	// Clear the slot so the backing array does not retain the dictionary.
	q.items[0] = ir.Resource{}
	if len(q.items) == 1 {
		q.items = q.items[:0]
	} else {
		q.items = q.items[1:]
	}

	// More work remains: keep another waiter awake.
	if len(q.items) > 0 && !q.closed {
		select {
		case q.signal <- struct{}{}:
		default:
		}
	}
	return res, true
}

// Wait returns a channel that signals when resources may be available.
// The channel is closed once the queue is closed.
func (q *Queue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Closed reports whether Close has been called.
func (q *Queue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

// Close signals that no more resources will be enqueued. Queued
// resources can still be dequeued.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal) // Wakes all waiters
}
