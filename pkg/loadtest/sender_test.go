package loadtest

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/informalsystems/msg-load-test/internal/logging"
	"github.com/informalsystems/msg-load-test/pkg/workqueue"
	"github.com/stretchr/testify/require"
)

func newTestSender(t *testing.T, source MessageSource, cfg Config) *Sender {
	t.Helper()
	s := NewSender(0, source, &cfg, rand.New(rand.NewSource(1)))
	s.logger = logging.NewNoopLogger()
	return s
}

func queueWith(n int) *workqueue.Queue[Message] {
	q := workqueue.New[Message]()
	r := rand.New(rand.NewSource(3))
	for i := 0; i < n; i++ {
		_ = q.Enqueue(NewRandomMessage(r))
	}
	return q
}

func runWithTimeout(t *testing.T, s *Sender, timeout time.Duration) {
	t.Helper()
	donec := make(chan struct{})
	go func() {
		defer close(donec)
		s.Run(context.Background())
	}()
	select {
	case <-donec:
	case <-time.After(timeout):
		t.Fatal("Sender did not terminate in time")
	}
}

func TestSingleMessageOutcome(t *testing.T) {
	testCases := []struct {
		failureRate    float64
		expectedSent   uint64
		expectedFailed uint64
	}{
		{0.0, 1, 0},
		{1.0, 0, 1},
	}
	for i, tc := range testCases {
		q := queueWith(1)
		q.Close()
		s := newTestSender(t, q, Config{MeanProcessingTime: 0.1, FailureRate: tc.failureRate})
		runWithTimeout(t, s, 5*time.Second)

		if s.SentCount() != tc.expectedSent || s.FailedCount() != tc.expectedFailed {
			t.Errorf(
				"Test case %d: expected sent=%d failed=%d, but got sent=%d failed=%d",
				i, tc.expectedSent, tc.expectedFailed, s.SentCount(), s.FailedCount(),
			)
		}
		require.True(t, q.Empty())
		require.EqualValues(t, 0, q.Pending())
	}
}

func TestProcessingDelayFloor(t *testing.T) {
	s := newTestSender(t, queueWith(0), Config{MeanProcessingTime: -10})
	for i := 0; i < 1000; i++ {
		require.Equal(t, 100*time.Millisecond, s.processingDelay())
	}

	s = newTestSender(t, queueWith(0), Config{MeanProcessingTime: 3})
	var total time.Duration
	const samples = 10000
	for i := 0; i < samples; i++ {
		d := s.processingDelay()
		require.GreaterOrEqual(t, d, 100*time.Millisecond)
		total += d
	}
	mean := total.Seconds() / samples
	require.InDelta(t, 3.0, mean, 0.05)
}

func TestDrainOnEmptyStopsImmediately(t *testing.T) {
	// the queue is open and empty: a faithful sender just gives up
	q := workqueue.New[Message]()
	s := newTestSender(t, q, Config{DrainPolicy: DrainOnEmpty})
	runWithTimeout(t, s, 100*time.Millisecond)
	require.EqualValues(t, 0, s.SentCount()+s.FailedCount())
}

func TestDrainUntilClosedWaitsForProducer(t *testing.T) {
	q := workqueue.New[Message]()
	s := newTestSender(t, q, Config{DrainPolicy: DrainUntilClosed})
	s.delay = func() time.Duration { return 0 }

	donec := make(chan struct{})
	go func() {
		defer close(donec)
		s.Run(context.Background())
	}()

	// an early empty queue must not make the sender quit
	time.Sleep(50 * time.Millisecond)
	select {
	case <-donec:
		t.Fatal("Sender terminated while the queue was still open")
	default:
	}

	r := rand.New(rand.NewSource(5))
	for i := 0; i < 3; i++ {
		require.NoError(t, q.Enqueue(NewRandomMessage(r)))
	}
	q.Close()

	select {
	case <-donec:
	case <-time.After(time.Second):
		t.Fatal("Sender did not terminate after the queue was closed")
	}
	require.EqualValues(t, 3, s.SentCount())
}

func TestSenderCancellation(t *testing.T) {
	q := queueWith(10)
	s := newTestSender(t, q, Config{MeanProcessingTime: 60})
	ctx, cancel := context.WithCancel(context.Background())
	donec := make(chan struct{})
	go func() {
		defer close(donec)
		s.Run(ctx)
	}()
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-donec:
	case <-time.After(time.Second):
		t.Fatal("Sender did not stop on cancellation")
	}
	require.EqualValues(t, 0, s.SentCount()+s.FailedCount())
	// the message being processed when we cancelled is left pending
	require.EqualValues(t, 1, q.Pending())
	require.Equal(t, 9, q.Size())
}

func TestSimulateSendRespectsFailureRate(t *testing.T) {
	s := newTestSender(t, queueWith(0), Config{FailureRate: 0.25})
	const sends = 20000
	for i := 0; i < sends; i++ {
		s.simulateSend(Message{})
	}
	require.EqualValues(t, sends, s.SentCount()+s.FailedCount())
	require.InDelta(t, 0.25, float64(s.FailedCount())/sends, 0.02)
}
