package workqueue

import (
	"fmt"
	"sync"
	"time"
)

// State allows us to keep track of the current state of the queue.
type State string

const (
	Open   State = "open"
	Closed State = "closed"
)

// Queue is an unbounded, thread-safe FIFO queue. Enqueue never blocks the
// producer, and TryDequeue never blocks a consumer: it reports emptiness
// instead of waiting for new arrivals. All operations are mutually exclusive,
// so an emptiness check and a removal can never interleave with another
// goroutine's operation.
type Queue[T any] struct {
	mtx   sync.Mutex
	items []T
	head  int
	state State

	enqueued uint64 // Items ever enqueued.
	dequeued uint64 // Items ever removed.
	done     uint64 // Removed items marked as processed via TaskDone.
}

// New creates an empty, open queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{
		items: make([]T, 0),
		state: Open,
	}
}

// Enqueue appends the given item to the tail of the queue. It only fails if
// the queue has been closed.
func (q *Queue[T]) Enqueue(item T) error {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	if q.state == Closed {
		return ErrClosed{}
	}
	q.items = append(q.items, item)
	q.enqueued++
	return nil
}

// TryDequeue removes and returns the item at the head of the queue. If
// nothing is currently available it returns ErrEmpty while the queue is open,
// and ErrClosed once the queue has been closed (since nothing more will ever
// arrive).
func (q *Queue[T]) TryDequeue() (T, error) {
	var zero T
	q.mtx.Lock()
	defer q.mtx.Unlock()
	if q.head == len(q.items) {
		if q.state == Closed {
			return zero, ErrClosed{}
		}
		return zero, ErrEmpty{}
	}
	item := q.items[q.head]
	q.items[q.head] = zero
	q.head++
	q.dequeued++
	q.compact()
	return item, nil
}

// compact releases the consumed prefix of the backing slice once it makes up
// at least half of it. Must be called with the lock held.
func (q *Queue[T]) compact() {
	if q.head == len(q.items) {
		q.items = q.items[:0]
		q.head = 0
		return
	}
	if q.head >= 64 && q.head*2 >= len(q.items) {
		remaining := make([]T, len(q.items)-q.head)
		copy(remaining, q.items[q.head:])
		q.items = remaining
		q.head = 0
	}
}

// TaskDone marks a previously dequeued item as fully processed.
func (q *Queue[T]) TaskDone() {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	if q.done < q.dequeued {
		q.done++
	}
}

// Size returns the number of items currently waiting in the queue.
func (q *Queue[T]) Size() int {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	return len(q.items) - q.head
}

// Empty reports whether there are no items currently waiting in the queue.
func (q *Queue[T]) Empty() bool {
	return q.Size() == 0
}

// State reports the current state of this queue.
func (q *Queue[T]) State() State {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	return q.state
}

// Enqueued returns the total number of items ever added to the queue.
func (q *Queue[T]) Enqueued() uint64 {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	return q.enqueued
}

// Dequeued returns the total number of items ever removed from the queue.
func (q *Queue[T]) Dequeued() uint64 {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	return q.dequeued
}

// Pending returns the number of items that have been removed from the queue
// but not yet marked as done.
func (q *Queue[T]) Pending() uint64 {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	return q.dequeued - q.done
}

// Close marks the queue as closed. Items already in the queue can still be
// dequeued, but no new items will be accepted. Closing is idempotent.
func (q *Queue[T]) Close() {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	q.state = Closed
}

// PollSize calls the given callback at the specified frequency to report back
// on how many items are currently in the queue. It returns a channel that,
// when closed, stops the reporting loop. The reporting loop is spawned in a
// separate goroutine.
func (q *Queue[T]) PollSize(d time.Duration, callback func(n int)) chan struct{} {
	closeChan := make(chan struct{})
	go func() {
		ticker := time.NewTicker(d)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				callback(q.Size())

			case <-closeChan:
				return
			}
		}
	}()
	return closeChan
}

func (q *Queue[T]) String() string {
	q.mtx.Lock()
	defer q.mtx.Unlock()
	return fmt.Sprintf(
		"Queue{state=%s, size=%d, enqueued=%d, dequeued=%d}",
		q.state,
		len(q.items)-q.head,
		q.enqueued,
		q.dequeued,
	)
}
