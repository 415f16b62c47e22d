package loadtest_test

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/informalsystems/msg-load-test/internal/logging"
	"github.com/informalsystems/msg-load-test/pkg/loadtest"
	"github.com/informalsystems/msg-load-test/pkg/workqueue"
	"github.com/stretchr/testify/require"
)

// flakySink rejects every n-th message it is given.
type flakySink struct {
	mtx      sync.Mutex
	n        int
	calls    int
	accepted []loadtest.Message
	closed   bool
}

var _ loadtest.MessageSink = (*flakySink)(nil)

func (s *flakySink) Enqueue(msg loadtest.Message) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.calls++
	if s.n > 0 && s.calls%s.n == 0 {
		return errors.New("out of memory")
	}
	s.accepted = append(s.accepted, msg)
	return nil
}

func (s *flakySink) Close() {
	s.mtx.Lock()
	s.closed = true
	s.mtx.Unlock()
}

func newTestGenerator(sink loadtest.MessageSink, count int, opts ...loadtest.GeneratorOption) *loadtest.Generator {
	opts = append([]loadtest.GeneratorOption{
		loadtest.GeneratorRand(rand.New(rand.NewSource(1))),
		loadtest.GeneratorLogger(logging.NewNoopLogger()),
	}, opts...)
	return loadtest.NewGenerator(sink, count, opts...)
}

func TestGeneratorEnqueuesExactCount(t *testing.T) {
	testCases := []int{1, 10, 250}
	for _, count := range testCases {
		q := workqueue.New[loadtest.Message]()
		gen := newTestGenerator(q, count, loadtest.ThrottleDelay(0))
		require.NoError(t, gen.Run(context.Background()))

		// nobody is draining, so everything must still be in the queue
		require.Equal(t, count, q.Size())
		require.EqualValues(t, count, q.Enqueued())
		require.EqualValues(t, count, gen.Generated())
		require.EqualValues(t, 0, gen.InsertFailures())
		require.Equal(t, workqueue.Closed, q.State())
	}
}

func TestGeneratorContinuesAfterInsertFailure(t *testing.T) {
	sink := &flakySink{n: 3}
	gen := newTestGenerator(sink, 9, loadtest.ThrottleDelay(0))
	require.NoError(t, gen.Run(context.Background()))

	require.Equal(t, 9, sink.calls)
	require.Len(t, sink.accepted, 6)
	require.EqualValues(t, 6, gen.Generated())
	require.EqualValues(t, 3, gen.InsertFailures())
	require.True(t, sink.closed)
}

func TestGeneratorThrottlesInsertions(t *testing.T) {
	q := workqueue.New[loadtest.Message]()
	gen := newTestGenerator(q, 6)
	startTime := time.Now()
	require.NoError(t, gen.Run(context.Background()))
	// 5 gaps between 6 insertions
	require.GreaterOrEqual(t, time.Since(startTime), 5*loadtest.DefaultThrottleDelay-time.Millisecond)
	require.Equal(t, 6, q.Size())
}

func TestGeneratorCancellation(t *testing.T) {
	q := workqueue.New[loadtest.Message]()
	gen := newTestGenerator(q, 1000000, loadtest.ThrottleDelay(time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	err := gen.Run(ctx)
	require.Error(t, err)
	require.Less(t, gen.Generated(), uint64(1000000))
	require.Equal(t, workqueue.Closed, q.State())
}
