package loadtest

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/informalsystems/msg-load-test/internal/logging"
	"github.com/informalsystems/msg-load-test/pkg/workqueue"
)

const (
	processingTimeStdDev = 0.5 // seconds
	minProcessingTime    = 0.1 // seconds

	// How long a sender waits before checking an empty (but still open)
	// queue again under DrainUntilClosed.
	emptyQueuePollInterval = 10 * time.Millisecond
)

// MessageSource is where senders take their messages from.
type MessageSource interface {
	// TryDequeue must not block. It returns workqueue.ErrEmpty if nothing is
	// available right now, and workqueue.ErrClosed if nothing ever will be.
	TryDequeue() (Message, error)
	// TaskDone marks a dequeued message as processed.
	TaskDone()
}

// Sender simulates sending messages taken from a shared MessageSource. Its
// counters are only ever written by its own goroutine, but may be read from
// any goroutine at any time, including after the sender has finished.
type Sender struct {
	id                 int
	source             MessageSource
	meanProcessingTime float64 // seconds
	failureRate        float64
	drainPolicy        DrainPolicy
	rng                *rand.Rand
	logger             logging.Logger

	// Computes the simulated processing time for the next message.
	delay func() time.Duration

	sent   atomic.Uint64
	failed atomic.Uint64
}

// NewSender creates a sender with the given ID that will drain the given
// source according to the configuration.
func NewSender(id int, source MessageSource, cfg *Config, rng *rand.Rand) *Sender {
	s := &Sender{
		id:                 id,
		source:             source,
		meanProcessingTime: cfg.MeanProcessingTime,
		failureRate:        cfg.FailureRate,
		drainPolicy:        cfg.DrainPolicy,
		rng:                rng,
		logger:             logging.NewLogrusLogger(fmt.Sprintf("sender[%d]", id)),
	}
	if s.drainPolicy == "" {
		s.drainPolicy = DrainUntilClosed
	}
	s.delay = s.processingDelay
	return s
}

// Run takes messages from the source and simulates sending each of them
// until the source is exhausted or the context is cancelled.
func (s *Sender) Run(ctx context.Context) {
	s.logger.Debug("Sender started")
	defer func() {
		s.logger.Debug("Sender finished", "sent", s.SentCount(), "failed", s.FailedCount())
	}()

	for {
		msg, err := s.source.TryDequeue()
		if err != nil {
			if !s.shouldWaitForMore(err) {
				return
			}
			if sleepContext(ctx, emptyQueuePollInterval) != nil {
				return
			}
			continue
		}
		if err := sleepContext(ctx, s.delay()); err != nil {
			// cancelled mid-send: the message stays pending and is not counted
			return
		}
		s.simulateSend(msg)
		s.source.TaskDone()
	}
}

// shouldWaitForMore decides, on a failed dequeue, whether the sender should
// keep polling or terminate.
func (s *Sender) shouldWaitForMore(err error) bool {
	if !errors.As(err, new(workqueue.ErrEmpty)) {
		return false
	}
	return s.drainPolicy == DrainUntilClosed
}

// processingDelay draws a simulated send latency from a normal distribution
// around the configured mean, never going below minProcessingTime.
func (s *Sender) processingDelay() time.Duration {
	secs := s.rng.NormFloat64()*processingTimeStdDev + s.meanProcessingTime
	if secs < minProcessingTime {
		secs = minProcessingTime
	}
	return time.Duration(secs * float64(time.Second))
}

// simulateSend determines the outcome of sending msg. No transmission takes
// place. It reports whether the send succeeded.
func (s *Sender) simulateSend(_ Message) bool {
	if s.rng.Float64() < s.failureRate {
		s.failed.Add(1)
		return false
	}
	s.sent.Add(1)
	return true
}

func (s *Sender) ID() int {
	return s.id
}

// SentCount returns the number of messages this sender has successfully
// (simulated) sent.
func (s *Sender) SentCount() uint64 {
	return s.sent.Load()
}

// FailedCount returns the number of messages whose (simulated) send failed.
func (s *Sender) FailedCount() uint64 {
	return s.failed.Load()
}
