package concurrency

import (
	"context"
	"sync"
)

// BlockingQueue is an unbounded FIFO shared by any number of producers and consumers.
// Take blocks while the queue is empty.
//
// Waiters park on a wake channel that is captured under the same lock as the
// emptiness check, and Add closes that channel under the lock when the queue
// becomes non-empty. A producer can therefore never slip its notification in
// between a consumer's check and its wait.
type BlockingQueue[T any] struct {
	mu     sync.Mutex
	items  []T
	wake   chan struct{}
	closed bool
}

// NewBlockingQueue creates an empty queue
func NewBlockingQueue[T any]() *BlockingQueue[T] {
	return &BlockingQueue[T]{
		items: make([]T, 0, 16),
		wake:  make(chan struct{}),
	}
}

// Add appends item to the tail.
// Returns ErrQueueClosed once Close has been called.
func (q *BlockingQueue[T]) Add(item T) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return ErrQueueClosed
	}

	q.items = append(q.items, item)
	if len(q.items) == 1 {
		q.broadcastLocked()
	}
	return nil
}

// Take removes and returns the head, waiting while the queue is empty.
// If ctx is done first, nothing is dequeued and the returned error matches
// both ErrInterrupted and ctx.Err().
func (q *BlockingQueue[T]) Take(ctx context.Context) (T, error) {
	var zero T

	q.mu.Lock()
	for len(q.items) == 0 && !q.closed {
		wake := q.wake
		q.mu.Unlock()

		select {
		case <-wake:
		case <-ctx.Done():
			return zero, interrupted(ctx.Err())
		}

		q.mu.Lock()
	}
	defer q.mu.Unlock()

	if q.closed {
		return zero, ErrQueueClosed
	}
	return q.popLocked(), nil
}

// TryTake removes and returns the head without waiting
func (q *BlockingQueue[T]) TryTake() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || len(q.items) == 0 {
		var zero T
		return zero, false
	}
	return q.popLocked(), true
}

// Close stops the queue. Blocked and future Take calls return ErrQueueClosed;
// items still queued stay in place for Drain. Calling Close twice is a no-op.
func (q *BlockingQueue[T]) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	q.broadcastLocked()
}

// Drain removes every remaining item and returns them in FIFO order
func (q *BlockingQueue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()

	drained := q.items
	q.items = make([]T, 0)
	return drained
}

// Len returns the number of queued items
func (q *BlockingQueue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// IsClosed returns true after Close
func (q *BlockingQueue[T]) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

func (q *BlockingQueue[T]) popLocked() T {
	var zero T
	head := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	return head
}

// broadcastLocked wakes every goroutine parked in Take. Caller holds q.mu.
func (q *BlockingQueue[T]) broadcastLocked() {
	close(q.wake)
	q.wake = make(chan struct{})
}
