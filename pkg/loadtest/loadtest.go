package loadtest

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/informalsystems/msg-load-test/internal/logging"
	"github.com/informalsystems/msg-load-test/pkg/workqueue"
)

// How often the queue depth metric gets refreshed.
const queueDepthPollInterval = 1 * time.Second

// ExecuteSimulation runs a whole simulation with the given configuration,
// blocking until the generator, every sender and the progress monitor have
// terminated.
func ExecuteSimulation(cfg *Config) error {
	logger := logging.NewLogrusLogger("loadtest", "run", cfg.RunID)
	return executeSimulation(cfg, logger, nil)
}

// executeSimulation allows tests to supply their own cancellation signal in
// place of the OS interrupt trap.
func executeSimulation(cfg *Config, logger logging.Logger, interrupt <-chan struct{}) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	seed := resolveSeed(cfg.Seed)
	logger.Debug("Starting simulation", "seed", seed)

	metrics := NewMetrics(cfg.RunID)
	queue := workqueue.New[Message]()
	gen := NewGenerator(
		queue,
		cfg.NumMessages,
		GeneratorRand(newRand(seed, 0)),
		GeneratorLogger(logging.NewLogrusLogger("generator", "run", cfg.RunID)),
	)

	// the first panic in any of the simulation's goroutines stops the run and
	// becomes its result
	var failMtx sync.Mutex
	var failure error
	fail := func(err error) {
		failMtx.Lock()
		if failure == nil {
			failure = err
		}
		failMtx.Unlock()
		cancel()
	}

	senders := NewSenderGroup(queue, cfg, seed, OnSenderPanic(fail))
	monitor := NewProgressMonitor(
		senders,
		time.Duration(cfg.UpdateInterval)*time.Second,
		MonitorLogger(logging.NewLogrusLogger("monitor", "run", cfg.RunID)),
		MonitorMetrics(metrics),
	)

	var cancelled atomic.Bool
	onKill := func() {
		cancelled.Store(true)
		cancel()
	}
	if interrupt == nil {
		cancelTrap := trapInterrupts(onKill, logger)
		defer close(cancelTrap)
	} else {
		go func() {
			select {
			case <-interrupt:
				logger.Info("Process interrupted by user")
				onKill()
			case <-ctx.Done():
			}
		}()
	}

	stopQueuePoll := queue.PollSize(queueDepthPollInterval, metrics.SetQueueDepth)
	defer close(stopQueuePoll)

	startTime := time.Now()

	// there's no barrier between the generator and the senders: senders may
	// well see an empty queue before the first message arrives
	var genErr error
	genDone := make(chan struct{})
	go func() {
		defer close(genDone)
		runRecovered(func() { genErr = gen.Run(ctx) }, fail)
	}()
	senders.Start(ctx)
	monitorDone := make(chan struct{})
	go func() {
		defer close(monitorDone)
		runRecovered(func() { monitor.Run(ctx) }, fail)
	}()

	<-genDone
	senders.Wait()
	<-monitorDone

	stats := AggregateStats{
		TotalGenerated:   gen.Generated(),
		InsertFailures:   gen.InsertFailures(),
		TotalSent:        senders.totalSent(),
		TotalFailed:      senders.totalFailed(),
		Unprocessed:      uint64(queue.Size()) + queue.Pending(),
		TotalTimeSeconds: time.Since(startTime).Seconds(),
	}
	metrics.SetGeneratorStats(stats.TotalGenerated, stats.InsertFailures)
	metrics.SetQueueDepth(queue.Size())
	metrics.ObserveSnapshot(ProgressSnapshot{
		TotalSent:   stats.TotalSent,
		TotalFailed: stats.TotalFailed,
		Elapsed:     time.Since(startTime),
	}, senders.Active())
	stats.Log(logger)

	if err := writeOutputs(cfg, stats, metrics, logger); err != nil {
		return err
	}

	failMtx.Lock()
	err := failure
	failMtx.Unlock()
	if err != nil {
		return err
	}
	if cancelled.Load() {
		logger.Debug("Generator stopped early", "err", genErr)
		return NewError(ErrKilled, nil)
	}
	return checkStats(cfg, stats, logger)
}

func writeOutputs(cfg *Config, stats AggregateStats, metrics *Metrics, logger logging.Logger) error {
	if len(cfg.StatsOutputFile) > 0 {
		if err := writeAggregateStats(cfg.StatsOutputFile, stats); err != nil {
			logger.Error("Failed to write aggregate statistics", "err", err)
			return NewError(ErrFailedToWriteStats, err)
		}
		logger.Debug("Wrote aggregate statistics", "file", cfg.StatsOutputFile)
	}
	if len(cfg.MetricsOutputFile) > 0 {
		if err := metrics.WriteToTextfile(cfg.MetricsOutputFile); err != nil {
			logger.Error("Failed to write metrics", "err", err)
			return NewError(ErrFailedToWriteMetrics, err)
		}
		logger.Debug("Wrote metrics", "file", cfg.MetricsOutputFile)
	}
	return nil
}

// checkStats verifies that no message was double-counted or dropped. Only
// DrainUntilClosed guarantees that every enqueued message gets processed;
// under DrainOnEmpty a shortfall is expected and merely reported.
func checkStats(cfg *Config, stats AggregateStats, logger logging.Logger) error {
	processed := stats.TotalProcessed()
	if processed > stats.TotalGenerated {
		return NewError(
			ErrStatsSanityCheckFailed,
			nil,
			fmt.Sprintf("processed %d messages, but only %d were generated", processed, stats.TotalGenerated),
		)
	}
	if processed == stats.TotalGenerated {
		return nil
	}
	if cfg.DrainPolicy == DrainOnEmpty {
		logger.Warn(
			"Senders stopped before the queue was fully drained",
			"generated", stats.TotalGenerated,
			"processed", processed,
			"unprocessed", stats.Unprocessed,
		)
		return nil
	}
	return NewError(
		ErrStatsSanityCheckFailed,
		nil,
		fmt.Sprintf("processed %d messages, but %d were generated", processed, stats.TotalGenerated),
	)
}

func trapInterrupts(onKill func(), logger logging.Logger) chan struct{} {
	sigc := make(chan os.Signal, 1)
	cancelTrap := make(chan struct{})
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigc)
		select {
		case <-sigc:
			logger.Info("Process interrupted by user")
			onKill()
		case <-cancelTrap:
			return
		}
	}()
	return cancelTrap
}
