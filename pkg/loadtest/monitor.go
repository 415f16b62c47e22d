package loadtest

import (
	"context"
	"fmt"
	"time"

	"github.com/informalsystems/msg-load-test/internal/logging"
)

// SenderStats gives read-only access to a single sender's counters.
type SenderStats interface {
	SentCount() uint64
	FailedCount() uint64
}

// SenderPool is what the progress monitor observes.
type SenderPool interface {
	Stats() []SenderStats
	Active() int
	// Done must be closed once no sender in the pool is active any more.
	Done() <-chan struct{}
}

// ProgressSnapshot is a point-in-time aggregation of all senders' counters.
type ProgressSnapshot struct {
	TotalSent   uint64
	TotalFailed uint64
	Elapsed     time.Duration // Time since the monitor started.
}

// Total returns the number of messages processed, successfully or not.
func (s ProgressSnapshot) Total() uint64 {
	return s.TotalSent + s.TotalFailed
}

// AvgTimePerMessage returns the average elapsed time per processed message,
// in seconds. It is 0 when no messages have been processed yet.
func (s ProgressSnapshot) AvgTimePerMessage() float64 {
	total := s.Total()
	if total == 0 {
		return 0
	}
	return s.Elapsed.Seconds() / float64(total)
}

// ProgressMonitor periodically reports on the progress of a pool of senders
// until none of them is active any more.
type ProgressMonitor struct {
	pool      SenderPool
	interval  time.Duration
	startTime time.Time
	now       func() time.Time
	logger    logging.Logger
	metrics   *Metrics
}

// MonitorOption overrides part of a monitor's default configuration.
type MonitorOption func(m *ProgressMonitor)

func MonitorLogger(logger logging.Logger) MonitorOption {
	return func(m *ProgressMonitor) {
		m.logger = logger
	}
}

// MonitorMetrics makes the monitor publish every snapshot to the given
// metrics.
func MonitorMetrics(metrics *Metrics) MonitorOption {
	return func(m *ProgressMonitor) {
		m.metrics = metrics
	}
}

// MonitorClock replaces the monitor's source of the current time. The start
// time is taken from the clock at construction.
func MonitorClock(now func() time.Time) MonitorOption {
	return func(m *ProgressMonitor) {
		m.now = now
	}
}

// NewProgressMonitor creates a monitor over the given pool, reporting at the
// given interval. Elapsed time is measured from this call.
func NewProgressMonitor(pool SenderPool, interval time.Duration, opts ...MonitorOption) *ProgressMonitor {
	m := &ProgressMonitor{
		pool:     pool,
		interval: interval,
		now:      time.Now,
		logger:   logging.NewLogrusLogger("monitor"),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.startTime = m.now()
	return m
}

// Run reports progress every interval for as long as at least one sender in
// the pool is active. A pool finishing mid-interval still gets that
// interval's report, after which Run returns. It returns immediately if the
// context is cancelled.
func (m *ProgressMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for !m.poolFinished() {
		select {
		case <-ticker.C:
			m.report(m.Snapshot())

		case <-ctx.Done():
			return
		}
	}
}

func (m *ProgressMonitor) poolFinished() bool {
	select {
	case <-m.pool.Done():
		return true
	default:
		return false
	}
}

// Snapshot sums the counters of all senders in the pool. It does not modify
// any state.
func (m *ProgressMonitor) Snapshot() ProgressSnapshot {
	var snap ProgressSnapshot
	for _, s := range m.pool.Stats() {
		snap.TotalSent += s.SentCount()
		snap.TotalFailed += s.FailedCount()
	}
	snap.Elapsed = m.now().Sub(m.startTime)
	return snap
}

func (m *ProgressMonitor) report(snap ProgressSnapshot) {
	active := m.pool.Active()
	m.logger.Info(
		fmt.Sprintf(
			"Messages Sent: %d, Messages Failed: %d, Average Time per Message: %.2f seconds",
			snap.TotalSent,
			snap.TotalFailed,
			snap.AvgTimePerMessage(),
		),
		"sent", snap.TotalSent,
		"failed", snap.TotalFailed,
		"avgTimePerMessage", snap.AvgTimePerMessage(),
		"elapsed", snap.Elapsed.Seconds(),
		"activeSenders", active,
	)
	if m.metrics != nil {
		m.metrics.ObserveSnapshot(snap, active)
	}
}
