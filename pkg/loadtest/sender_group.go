package loadtest

import (
	"context"
	"sync"
	"sync/atomic"
)

// SenderGroup allows us to encapsulate the management of a pool of senders
// all draining the same message source.
type SenderGroup struct {
	senders []*Sender

	wg     sync.WaitGroup
	active atomic.Int64
	done   chan struct{} // Closed once every sender has finished.

	cancelMtx sync.Mutex
	cancel    context.CancelFunc

	errMtx  sync.Mutex
	err     error           // The first panic raised by any sender.
	onPanic func(err error) // Optional.
}

// SenderGroupOption overrides part of a sender group's default
// configuration.
type SenderGroupOption func(g *SenderGroup)

// OnSenderPanic registers a callback receiving the first panic raised by any
// of the group's senders, converted to an ErrUnexpected error.
func OnSenderPanic(f func(err error)) SenderGroupOption {
	return func(g *SenderGroup) {
		g.onPanic = f
	}
}

// SenderGroup implements SenderPool.
var _ SenderPool = (*SenderGroup)(nil)

// NewSenderGroup instantiates cfg.NumSenders senders over the given source.
// Each sender gets its own source of randomness derived from seed.
func NewSenderGroup(source MessageSource, cfg *Config, seed int64, opts ...SenderGroupOption) *SenderGroup {
	g := &SenderGroup{
		senders: make([]*Sender, 0, cfg.NumSenders),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	for i := 0; i < cfg.NumSenders; i++ {
		// stream 0 belongs to the generator
		g.senders = append(g.senders, NewSender(i, source, cfg, newRand(seed, i+1)))
	}
	return g
}

// Start will launch every sender in its own goroutine. It must only be
// called once. A panicking sender cancels the whole group.
func (g *SenderGroup) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	g.cancelMtx.Lock()
	g.cancel = cancel
	g.cancelMtx.Unlock()

	g.active.Store(int64(len(g.senders)))
	for _, s := range g.senders {
		g.wg.Add(1)
		go func(_s *Sender) {
			defer g.wg.Done()
			defer g.active.Add(-1)
			runRecovered(func() { _s.Run(ctx) }, g.fail)
		}(s)
	}
	go func() {
		g.wg.Wait()
		cancel()
		close(g.done)
	}()
}

// Cancel signals to all senders to stop their operations at their next
// suspension point.
func (g *SenderGroup) Cancel() {
	g.cancelMtx.Lock()
	defer g.cancelMtx.Unlock()
	if g.cancel != nil {
		g.cancel()
	}
}

// Wait will block until all senders have finished.
func (g *SenderGroup) Wait() {
	<-g.done
}

func (g *SenderGroup) fail(err error) {
	g.errMtx.Lock()
	first := g.err == nil
	if first {
		g.err = err
	}
	g.errMtx.Unlock()
	g.Cancel()
	if first && g.onPanic != nil {
		g.onPanic(err)
	}
}

// Err returns the error from the first sender that panicked, if any.
func (g *SenderGroup) Err() error {
	g.errMtx.Lock()
	defer g.errMtx.Unlock()
	return g.err
}

// Done returns a channel that is closed once all senders have finished.
func (g *SenderGroup) Done() <-chan struct{} {
	return g.done
}

// Active returns the number of senders that have not yet finished.
func (g *SenderGroup) Active() int {
	return int(g.active.Load())
}

// Senders returns the group's senders.
func (g *SenderGroup) Senders() []*Sender {
	return g.senders
}

// Stats exposes each sender's counters.
func (g *SenderGroup) Stats() []SenderStats {
	stats := make([]SenderStats, len(g.senders))
	for i, s := range g.senders {
		stats[i] = s
	}
	return stats
}

func (g *SenderGroup) totalSent() uint64 {
	var total uint64
	for _, s := range g.senders {
		total += s.SentCount()
	}
	return total
}

func (g *SenderGroup) totalFailed() uint64 {
	var total uint64
	for _, s := range g.senders {
		total += s.FailedCount()
	}
	return total
}
