package loadtest

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestMetricsObserveSnapshot(t *testing.T) {
	m := NewMetrics("abc")
	m.ObserveSnapshot(ProgressSnapshot{TotalSent: 6, TotalFailed: 2, Elapsed: 4 * time.Second}, 3)
	m.SetQueueDepth(12)
	m.SetGeneratorStats(20, 1)

	require.Equal(t, 6.0, testutil.ToFloat64(m.sentMetric))
	require.Equal(t, 2.0, testutil.ToFloat64(m.failedMetric))
	require.Equal(t, 0.5, testutil.ToFloat64(m.avgTimePerMessageMetric))
	require.Equal(t, 4.0, testutil.ToFloat64(m.elapsedMetric))
	require.Equal(t, 3.0, testutil.ToFloat64(m.activeSendersMetric))
	require.Equal(t, 12.0, testutil.ToFloat64(m.queueDepthMetric))
	require.Equal(t, 20.0, testutil.ToFloat64(m.generatedMetric))
	require.Equal(t, 1.0, testutil.ToFloat64(m.insertFailuresMetric))
}

func TestSeparateRunsDoNotCollide(t *testing.T) {
	// each run has its own registry, so registering twice must not panic
	a, b := NewMetrics("a"), NewMetrics("b")
	a.SetQueueDepth(1)
	b.SetQueueDepth(2)
	require.Equal(t, 1.0, testutil.ToFloat64(a.queueDepthMetric))
	require.Equal(t, 2.0, testutil.ToFloat64(b.queueDepthMetric))
}

func TestMetricsWriteToTextfile(t *testing.T) {
	m := NewMetrics("run1")
	m.ObserveSnapshot(ProgressSnapshot{TotalSent: 9}, 0)
	filename := filepath.Join(t.TempDir(), "metrics.prom")
	require.NoError(t, m.WriteToTextfile(filename))

	b, err := os.ReadFile(filename)
	require.NoError(t, err)
	require.Contains(t, string(b), `msgloadtest_messages_sent{run_id="run1"} 9`)
}
