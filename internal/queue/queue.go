// Package queue provides an unbounded FIFO used to hand values from
// callback goroutines (audio capture, recognizer) to a single consumer.
package queue

import (
	"context"
	"sync"
)

// Queue is an unbounded, goroutine-safe FIFO. Put never blocks; Get blocks
// until an item is available or the context is done.
type Queue[T any] struct {
	mu     sync.Mutex
	items  []T
	notify chan struct{}
}

// New creates an empty Queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{notify: make(chan struct{}, 1)}
}

// Put appends item to the tail of the queue.
func (q *Queue[T]) Put(item T) {
	q.mu.Lock()
	q.items = append(q.items, item)
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default: // a wakeup is already pending
	}
}

// TryGet removes and returns the head of the queue without blocking.
func (q *Queue[T]) TryGet() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	item := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	return item, true
}

// Get removes and returns the head of the queue, waiting for one to arrive
// if the queue is empty. It returns ctx.Err() if ctx is done first.
func (q *Queue[T]) Get(ctx context.Context) (T, error) {
	for {
		if item, ok := q.TryGet(); ok {
			return item, nil
		}
		select {
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		case <-q.notify:
		}
	}
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
