package loadtest

import (
	"context"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/informalsystems/msg-load-test/internal/logging"
	"golang.org/x/time/rate"
)

// DefaultThrottleDelay is the pause the generator takes between successive
// message insertions, to emulate throttled arrival.
const DefaultThrottleDelay = 10 * time.Millisecond

// MessageSink is where the generator puts the messages it produces. Close is
// called once generation has finished, signalling consumers that no more
// messages will arrive.
type MessageSink interface {
	Enqueue(msg Message) error
	Close()
}

// Generator produces a fixed number of random messages into a MessageSink.
type Generator struct {
	sink    MessageSink
	count   int
	limiter *rate.Limiter // nil when throttling is disabled
	rng     *rand.Rand
	logger  logging.Logger

	generated      atomic.Uint64 // Messages successfully enqueued.
	insertFailures atomic.Uint64 // Messages that could not be enqueued.
}

// GeneratorOption overrides part of a generator's default configuration.
type GeneratorOption func(g *Generator)

// ThrottleDelay overrides the pause between insertions. A delay of 0 turns
// throttling off.
func ThrottleDelay(d time.Duration) GeneratorOption {
	return func(g *Generator) {
		if d <= 0 {
			g.limiter = nil
			return
		}
		g.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

// GeneratorRand supplies the generator's source of randomness.
func GeneratorRand(r *rand.Rand) GeneratorOption {
	return func(g *Generator) {
		g.rng = r
	}
}

// GeneratorLogger overrides the generator's logger.
func GeneratorLogger(logger logging.Logger) GeneratorOption {
	return func(g *Generator) {
		g.logger = logger
	}
}

// NewGenerator creates a generator that will put count messages into sink.
func NewGenerator(sink MessageSink, count int, opts ...GeneratorOption) *Generator {
	g := &Generator{
		sink:    sink,
		count:   count,
		limiter: rate.NewLimiter(rate.Every(DefaultThrottleDelay), 1),
		logger:  logging.NewLogrusLogger("generator"),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.rng == nil {
		g.rng = newRand(resolveSeed(0), 0)
	}
	return g
}

// Run generates and enqueues all of the messages, blocking until it is done
// or the context is cancelled. A message that fails to be enqueued is logged
// and skipped; it does not abort the batch. The sink is always closed before
// returning.
func (g *Generator) Run(ctx context.Context) error {
	defer g.sink.Close()
	g.logger.Debug("Starting message generation", "count", g.count)

	for i := 0; i < g.count; i++ {
		if err := g.throttle(ctx); err != nil {
			g.logger.Info("Message generation cancelled", "generated", g.Generated())
			return err
		}
		msg := NewRandomMessage(g.rng)
		if err := g.sink.Enqueue(msg); err != nil {
			g.insertFailures.Add(1)
			g.logger.Error(
				"Exception in putting message into the queue",
				"err", NewError(ErrQueueInsertFailed, err).Error(),
				"recipient", msg.Recipient,
			)
			continue
		}
		g.generated.Add(1)
	}

	g.logger.Debug("Message generation complete", "generated", g.Generated(), "insertFailures", g.InsertFailures())
	return nil
}

func (g *Generator) throttle(ctx context.Context) error {
	if g.limiter == nil {
		return ctx.Err()
	}
	return g.limiter.Wait(ctx)
}

// Generated returns the number of messages successfully enqueued so far.
func (g *Generator) Generated() uint64 {
	return g.generated.Load()
}

// InsertFailures returns the number of messages that could not be enqueued.
func (g *Generator) InsertFailures() uint64 {
	return g.insertFailures.Load()
}
