// Package observability provides Prometheus metrics for monitoring.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	// Ingestion metrics
	PendingSeen    prometheus.Counter
	PendingEvicted prometheus.Counter

	// Resolution metrics
	FetchRetries  prometheus.Counter
	FetchFailures prometheus.Counter

	// Detection and sweep metrics
	Detections      prometheus.Counter
	SweepsSubmitted prometheus.Counter
	SweepErrors     prometheus.Counter

	// Worker metrics
	DetectorCycles prometheus.Counter
	SweeperCycles  prometheus.Counter

	// Queue metrics
	IngestQueueDepth prometheus.Gauge
	SweepQueueDepth  prometheus.Gauge
}

// NewMetrics creates a new Metrics instance with all metrics registered.
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "sweepwatch"
	}

	return &Metrics{
		PendingSeen: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "pending_seen_total",
			Help:      "Total number of pending transaction hashes received",
		}),
		PendingEvicted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "pending_evicted_total",
			Help:      "Total number of hashes evicted from the full ingest queue",
		}),
		FetchRetries: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "retries_total",
			Help:      "Total number of transaction lookup retries",
		}),
		FetchFailures: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "failures_total",
			Help:      "Total number of lookups that exhausted the retry budget",
		}),
		Detections: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detector",
			Name:      "detections_total",
			Help:      "Total number of incoming transfers to the watched account",
		}),
		SweepsSubmitted: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweeper",
			Name:      "sweeps_submitted_total",
			Help:      "Total number of sweep transfers accepted by the node",
		}),
		SweepErrors: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweeper",
			Name:      "sweep_errors_total",
			Help:      "Total number of failed sweep submissions",
		}),
		DetectorCycles: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "detector",
			Name:      "cycles_total",
			Help:      "Total number of detection drain cycles started",
		}),
		SweeperCycles: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "sweeper",
			Name:      "cycles_total",
			Help:      "Total number of sweep drain cycles started",
		}),
		IngestQueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "queue_depth",
			Help:      "Current number of hashes in the ingest queue",
		}),
		SweepQueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "sweeper",
			Name:      "queue_depth",
			Help:      "Current number of triggers in the sweep queue",
		}),
	}
}

// Handler returns an HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// DefaultMetrics is the default metrics instance.
var DefaultMetrics = NewMetrics("")

// RecordPendingSeen increments the pending hashes received counter.
func RecordPendingSeen() {
	DefaultMetrics.PendingSeen.Inc()
}

// RecordPendingEvicted increments the ingest queue eviction counter.
func RecordPendingEvicted() {
	DefaultMetrics.PendingEvicted.Inc()
}

// RecordFetchRetry increments the lookup retry counter.
func RecordFetchRetry() {
	DefaultMetrics.FetchRetries.Inc()
}

// RecordFetchFailure increments the exhausted-retry counter.
func RecordFetchFailure() {
	DefaultMetrics.FetchFailures.Inc()
}

// RecordDetection increments the detection counter.
func RecordDetection() {
	DefaultMetrics.Detections.Inc()
}

// RecordSweepSubmitted increments the submitted sweep counter.
func RecordSweepSubmitted() {
	DefaultMetrics.SweepsSubmitted.Inc()
}

// RecordSweepError increments the failed sweep counter.
func RecordSweepError() {
	DefaultMetrics.SweepErrors.Inc()
}

// RecordDetectorCycle increments the detection cycle counter.
func RecordDetectorCycle() {
	DefaultMetrics.DetectorCycles.Inc()
}

// RecordSweeperCycle increments the sweep cycle counter.
func RecordSweeperCycle() {
	DefaultMetrics.SweeperCycles.Inc()
}

// SetIngestQueueDepth updates the ingest queue depth gauge.
func SetIngestQueueDepth(n int) {
	DefaultMetrics.IngestQueueDepth.Set(float64(n))
}

// SetSweepQueueDepth updates the sweep queue depth gauge.
func SetSweepQueueDepth(n int) {
	DefaultMetrics.SweepQueueDepth.Set(float64(n))
}
