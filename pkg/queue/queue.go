package queue

import (
	"context"
	"errors"
	"sync"
)

// ErrQueueClosed is returned by Enqueue and Dequeue once the queue has
// been shut down.
var ErrQueueClosed = errors.New("queue: closed")

// Queue is a bounded FIFO of Work Items. Unlike a plain Go channel, it
// supports scanning for the first item matching a given ShapeKey while
// leaving every other item in place — the "leave mismatched items in
// the queue" requirement of §4.1 step 2, which a channel cannot express
// without consuming items it doesn't want yet.
type Queue struct {
	mu       sync.Mutex
	items    []*WorkItem
	capacity int
	closed   bool

	wake      chan struct{} // signaled when an item is enqueued, or on close
	spaceFree chan struct{} // signaled when an item is removed
}

// NewQueue creates an empty Queue bounded at capacity items.
func NewQueue(capacity int) *Queue {
	return &Queue{
		capacity:  capacity,
		wake:      make(chan struct{}, 1),
		spaceFree: make(chan struct{}, 1),
	}
}

func notify(ch chan struct{}) {
	select {
	case ch <- struct{}{}:
	default:
	}
}

// Enqueue appends item, blocking while the queue is at capacity until
// space frees up or ctx is canceled. Returns ErrQueueClosed once the
// queue has been shut down.
func (q *Queue) Enqueue(ctx context.Context, item *WorkItem) error {
	for {
		q.mu.Lock()
		if q.closed {
			q.mu.Unlock()
			return ErrQueueClosed
		}
		if len(q.items) < q.capacity {
			q.items = append(q.items, item)
			q.mu.Unlock()
			notify(q.wake)
			return nil
		}
		q.mu.Unlock()

		select {
		case <-q.spaceFree:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// Dequeue blocks until the oldest item is available, ctx is canceled,
// or the queue is closed (in which case any items already drained by
// Close have been completed and Dequeue returns ErrQueueClosed).
func (q *Queue) Dequeue(ctx context.Context) (*WorkItem, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			item := q.items[0]
			q.items = q.items[1:]
			q.mu.Unlock()
			notify(q.spaceFree)
			return item, nil
		}
		closed := q.closed
		q.mu.Unlock()
		if closed {
			return nil, ErrQueueClosed
		}

		select {
		case <-q.wake:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// DequeueMatching non-blockingly removes and returns the first queued
// item whose Shape equals shape, scanning front-to-back. Items it skips
// over are left exactly where they were (§4.1 step 2).
func (q *Queue) DequeueMatching(shape ShapeKey) (*WorkItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for i, it := range q.items {
		if it.Shape == shape {
			q.items = append(q.items[:i:i], q.items[i+1:]...)
			notify(q.spaceFree)
			return it, true
		}
	}
	return nil, false
}

// Len reports the current queue depth.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Close marks the queue shut down, completes every item still queued
// with a shutting_down application error (§4.2), and wakes any blocked
// Dequeue callers so they return promptly.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	pending := q.items
	q.items = nil
	q.mu.Unlock()

	for _, item := range pending {
		item.Box.SetApplicationError("shutting_down")
	}
	notify(q.wake)
	notify(q.spaceFree)
}
