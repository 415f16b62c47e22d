package loadtest

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for a single simulation run. Each run
// gets its own registry, so multiple runs in one process don't collide.
type Metrics struct {
	registry *prometheus.Registry

	generatedMetric         prometheus.Gauge // The number of messages successfully enqueued by the generator.
	insertFailuresMetric    prometheus.Gauge // The number of messages the generator failed to enqueue.
	queueDepthMetric        prometheus.Gauge // The number of messages currently waiting in the queue.
	sentMetric              prometheus.Gauge // The total number of messages sent by all senders.
	failedMetric            prometheus.Gauge // The total number of failed sends across all senders.
	activeSendersMetric     prometheus.Gauge // The number of senders still draining the queue.
	avgTimePerMessageMetric prometheus.Gauge // Elapsed seconds per processed message.
	elapsedMetric           prometheus.Gauge // Seconds since progress monitoring began.
}

// NewMetrics creates the metrics for the run with the given ID.
func NewMetrics(runID string) *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	labels := prometheus.Labels{"run_id": runID}
	return &Metrics{
		registry: registry,
		generatedMetric: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "msgloadtest_generator_messages",
			Help:        "The number of messages successfully enqueued by the generator",
			ConstLabels: labels,
		}),
		insertFailuresMetric: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "msgloadtest_generator_insert_failures",
			Help:        "The number of messages the generator failed to enqueue",
			ConstLabels: labels,
		}),
		queueDepthMetric: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "msgloadtest_queue_depth",
			Help:        "The number of messages currently waiting in the work queue",
			ConstLabels: labels,
		}),
		sentMetric: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "msgloadtest_messages_sent",
			Help:        "The total number of messages successfully sent by all senders",
			ConstLabels: labels,
		}),
		failedMetric: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "msgloadtest_messages_failed",
			Help:        "The total number of message sends that failed across all senders",
			ConstLabels: labels,
		}),
		activeSendersMetric: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "msgloadtest_active_senders",
			Help:        "The number of senders still draining the work queue",
			ConstLabels: labels,
		}),
		avgTimePerMessageMetric: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "msgloadtest_avg_time_per_message_seconds",
			Help:        "The elapsed time divided by the number of processed messages",
			ConstLabels: labels,
		}),
		elapsedMetric: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "msgloadtest_elapsed_seconds",
			Help:        "The time elapsed since progress monitoring began",
			ConstLabels: labels,
		}),
	}
}

// ObserveSnapshot publishes a progress snapshot.
func (m *Metrics) ObserveSnapshot(snap ProgressSnapshot, activeSenders int) {
	m.sentMetric.Set(float64(snap.TotalSent))
	m.failedMetric.Set(float64(snap.TotalFailed))
	m.avgTimePerMessageMetric.Set(snap.AvgTimePerMessage())
	m.elapsedMetric.Set(snap.Elapsed.Seconds())
	m.activeSendersMetric.Set(float64(activeSenders))
}

func (m *Metrics) SetQueueDepth(n int) {
	m.queueDepthMetric.Set(float64(n))
}

func (m *Metrics) SetGeneratorStats(generated, insertFailures uint64) {
	m.generatedMetric.Set(float64(generated))
	m.insertFailuresMetric.Set(float64(insertFailures))
}

// Gatherer exposes the run's registry.
func (m *Metrics) Gatherer() prometheus.Gatherer {
	return m.registry
}

// WriteToTextfile writes all metrics in the Prometheus text exposition format,
// suitable for the node exporter's textfile collector.
func (m *Metrics) WriteToTextfile(filename string) error {
	return prometheus.WriteToTextfile(filename, m.registry)
}
