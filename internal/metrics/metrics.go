// Package metrics exposes Prometheus collectors for the identification and
// enrollment pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides observability for attempts, comparator calls and storage.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Attempt outcomes by mode (identify, enroll) and result
	AttemptOutcome *prometheus.CounterVec

	// Full attempt latency by mode
	AttemptLatency *prometheus.HistogramVec

	// Capture invocations by purpose and result (ok, no_template, error)
	Captures *prometheus.CounterVec

	// Comparator invocations by result (scored, unparsable, error)
	CompareCalls *prometheus.CounterVec

	// Comparator latency
	CompareLatency prometheus.Histogram

	// Candidates examined per identification
	CandidatesScanned prometheus.Histogram

	// Storage operation failures by operation
	StorageErrors *prometheus.CounterVec

	// Poller probes dropped because they repeated the previous scan
	DuplicateProbes prometheus.Counter
}

// New creates a Metrics instance registered on its own registry, together
// with the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		AttemptOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fingergate_attempt_outcomes_total",
			Help: "Total attempt outcomes by mode and result",
		}, []string{"mode", "result"}),

		AttemptLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fingergate_attempt_duration_seconds",
			Help:    "Duration of a full attempt from capture to report",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 15, 30, 60},
		}, []string{"mode"}),

		Captures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fingergate_captures_total",
			Help: "Capture engine invocations by purpose and result",
		}, []string{"purpose", "result"}),

		CompareCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fingergate_compare_calls_total",
			Help: "Comparator invocations by result",
		}, []string{"result"}),

		CompareLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "fingergate_compare_duration_seconds",
			Help:    "Duration of one comparator invocation",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),

		CandidatesScanned: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "fingergate_candidates_scanned",
			Help:    "Candidates compared before an identification resolved",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),

		StorageErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fingergate_storage_errors_total",
			Help: "Storage failures by operation",
		}, []string{"operation"}),

		DuplicateProbes: factory.NewCounter(prometheus.CounterOpts{
			Name: "fingergate_duplicate_probes_total",
			Help: "Polling probes skipped because they repeated the previous scan",
		}),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// IncrementOutcome records an attempt outcome.
func (m *Metrics) IncrementOutcome(mode, result string) {
	if m != nil {
		m.AttemptOutcome.WithLabelValues(mode, result).Inc()
	}
}

// ObserveAttemptLatency records the duration of a full attempt.
func (m *Metrics) ObserveAttemptLatency(mode string, d time.Duration) {
	if m != nil {
		m.AttemptLatency.WithLabelValues(mode).Observe(d.Seconds())
	}
}

// IncrementCapture records a capture invocation.
func (m *Metrics) IncrementCapture(purpose, result string) {
	if m != nil {
		m.Captures.WithLabelValues(purpose, result).Inc()
	}
}

// ObserveCompare records one comparator invocation.
func (m *Metrics) ObserveCompare(result string, d time.Duration) {
	if m != nil {
		m.CompareCalls.WithLabelValues(result).Inc()
		m.CompareLatency.Observe(d.Seconds())
	}
}

// ObserveCandidatesScanned records how many candidates a search compared.
func (m *Metrics) ObserveCandidatesScanned(n int) {
	if m != nil {
		m.CandidatesScanned.Observe(float64(n))
	}
}

// IncrementStorageError records a failed storage operation.
func (m *Metrics) IncrementStorageError(operation string) {
	if m != nil {
		m.StorageErrors.WithLabelValues(operation).Inc()
	}
}

// IncrementDuplicateProbe records a probe dropped by the deduplicator.
func (m *Metrics) IncrementDuplicateProbe() {
	if m != nil {
		m.DuplicateProbes.Inc()
	}
}
