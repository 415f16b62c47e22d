package workqueue

type (
	// ErrEmpty is returned by a non-blocking dequeue when no item is available
	// right now, but the queue is still open and more may arrive.
	ErrEmpty struct{}

	// ErrClosed is returned when enqueueing into a closed queue, or when
	// dequeueing from a queue that is closed and fully drained.
	ErrClosed struct{}
)

func (e ErrEmpty) Error() string {
	return "queue is empty"
}

func (e ErrClosed) Error() string {
	return "queue is closed"
}
