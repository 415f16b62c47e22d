package loadtest

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/informalsystems/msg-load-test/internal/logging"
)

// AggregateStats summarizes the outcome of a whole simulation run.
type AggregateStats struct {
	TotalGenerated   uint64  // The number of messages successfully enqueued.
	InsertFailures   uint64  // The number of messages the generator failed to enqueue.
	TotalSent        uint64  // The number of messages successfully sent.
	TotalFailed      uint64  // The number of messages whose send failed.
	Unprocessed      uint64  // Messages left in the queue or abandoned mid-send.
	TotalTimeSeconds float64 // The total time taken by the run.

	// Computed statistics
	AvgMsgRate        float64 // The rate at which messages were processed (msgs/sec).
	AvgTimePerMessage float64 // Seconds per processed message.
	FailureRatio      float64 // The fraction of processed messages that failed.
}

// TotalProcessed returns the number of messages that went through a
// simulated send, whatever its outcome.
func (s *AggregateStats) TotalProcessed() uint64 {
	return s.TotalSent + s.TotalFailed
}

func (s *AggregateStats) String() string {
	return fmt.Sprintf(
		"AggregateStats{TotalTimeSeconds: %.3f, TotalGenerated: %d, TotalSent: %d, TotalFailed: %d, AvgMsgRate: %.6f, AvgTimePerMessage: %.6f}",
		s.TotalTimeSeconds,
		s.TotalGenerated,
		s.TotalSent,
		s.TotalFailed,
		s.AvgMsgRate,
		s.AvgTimePerMessage,
	)
}

func (s *AggregateStats) Compute() {
	s.AvgMsgRate = 0
	s.AvgTimePerMessage = 0
	s.FailureRatio = 0
	processed := s.TotalProcessed()
	if s.TotalTimeSeconds > 0.0 {
		s.AvgMsgRate = float64(processed) / s.TotalTimeSeconds
	}
	if processed > 0 {
		s.AvgTimePerMessage = s.TotalTimeSeconds / float64(processed)
		s.FailureRatio = float64(s.TotalFailed) / float64(processed)
	}
}

// Log will output the statistics as a run summary using the specified logger.
func (s *AggregateStats) Log(logger logging.Logger) {
	s.Compute()
	logger.Info(
		"Simulation summary",
		"generated", s.TotalGenerated,
		"insertFailures", s.InsertFailures,
		"sent", s.TotalSent,
		"failed", s.TotalFailed,
		"unprocessed", s.Unprocessed,
		"totalTime", fmt.Sprintf("%.3f seconds", s.TotalTimeSeconds),
		"avgRate", fmt.Sprintf("%.2f msgs/sec", s.AvgMsgRate),
		"avgTimePerMessage", fmt.Sprintf("%.2f seconds", s.AvgTimePerMessage),
	)
}

func writeAggregateStats(filename string, stats AggregateStats) error {
	stats.Compute()
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	records := [][]string{
		{"Parameter", "Value", "Units"},
		{"total_time", fmt.Sprintf("%.3f", stats.TotalTimeSeconds), "seconds"},
		{"total_generated", fmt.Sprintf("%d", stats.TotalGenerated), "count"},
		{"insert_failures", fmt.Sprintf("%d", stats.InsertFailures), "count"},
		{"total_sent", fmt.Sprintf("%d", stats.TotalSent), "count"},
		{"total_failed", fmt.Sprintf("%d", stats.TotalFailed), "count"},
		{"unprocessed", fmt.Sprintf("%d", stats.Unprocessed), "count"},
		{"avg_msg_rate", fmt.Sprintf("%.6f", stats.AvgMsgRate), "messages per second"},
		{"avg_time_per_message", fmt.Sprintf("%.6f", stats.AvgTimePerMessage), "seconds"},
		{"failure_ratio", fmt.Sprintf("%.6f", stats.FailureRatio), "ratio"},
	}
	return w.WriteAll(records)
}
