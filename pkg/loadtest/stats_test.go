package loadtest

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAggregateStatsCompute(t *testing.T) {
	testCases := []struct {
		stats             AggregateStats
		avgMsgRate        float64
		avgTimePerMessage float64
		failureRatio      float64
	}{
		{AggregateStats{}, 0, 0, 0},
		{AggregateStats{TotalSent: 75, TotalFailed: 25, TotalTimeSeconds: 50}, 2, 0.5, 0.25},
		{AggregateStats{TotalSent: 10, TotalTimeSeconds: 0}, 0, 0, 0},
	}
	for i, tc := range testCases {
		tc.stats.Compute()
		if tc.stats.AvgMsgRate != tc.avgMsgRate {
			t.Errorf("Test case %d: expected AvgMsgRate %f, but got %f", i, tc.avgMsgRate, tc.stats.AvgMsgRate)
		}
		if tc.stats.AvgTimePerMessage != tc.avgTimePerMessage {
			t.Errorf("Test case %d: expected AvgTimePerMessage %f, but got %f", i, tc.avgTimePerMessage, tc.stats.AvgTimePerMessage)
		}
		if tc.stats.FailureRatio != tc.failureRatio {
			t.Errorf("Test case %d: expected FailureRatio %f, but got %f", i, tc.failureRatio, tc.stats.FailureRatio)
		}
	}
}

func TestWriteAggregateStats(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "stats.csv")
	stats := AggregateStats{
		TotalGenerated:   100,
		InsertFailures:   1,
		TotalSent:        90,
		TotalFailed:      10,
		TotalTimeSeconds: 20,
	}
	require.NoError(t, writeAggregateStats(filename, stats))

	f, err := os.Open(filename)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)

	values := make(map[string]string)
	for _, rec := range records[1:] {
		require.Len(t, rec, 3)
		values[rec[0]] = rec[1]
	}
	require.Equal(t, []string{"Parameter", "Value", "Units"}, records[0])
	require.Equal(t, "100", values["total_generated"])
	require.Equal(t, "90", values["total_sent"])
	require.Equal(t, "10", values["total_failed"])
	require.Equal(t, "5.000000", values["avg_msg_rate"])
	require.Equal(t, "0.200000", values["avg_time_per_message"])
	require.Equal(t, "0.100000", values["failure_ratio"])
}
