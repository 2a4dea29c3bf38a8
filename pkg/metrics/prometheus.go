// Package metrics provides Prometheus metrics for the elorank session.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the ranking session.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         prometheus.Registerer

	// Session metrics
	votes               prometheus.Counter
	skips               prometheus.Counter
	pairsServed         prometheus.Counter
	repeatFallbacks     prometheus.Counter
	persistenceFailures prometheus.Counter
	voteLatency         prometheus.Histogram
	items               prometheus.Gauge

	// Command pipeline
	queueSize          prometheus.Gauge
	duplicateCommands  prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorsByComponent *prometheus.CounterVec
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "elorank",
		subsystem:        "session",
		histogramBuckets: []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) initializeMetrics() { //nolint:funlen // flat list of metric definitions
	auto := promauto.With(m.registry)

	m.votes = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "votes_total",
		Help:      "Total number of votes applied and persisted",
	})

	m.skips = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "skips_total",
		Help:      "Total number of pairs skipped without a vote",
	})

	m.pairsServed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "pairs_served_total",
		Help:      "Total number of pairs selected by the scheduler",
	})

	m.repeatFallbacks = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "repeat_fallbacks_total",
		Help:      "Total number of selections that accepted a repeat after exhausting retries",
	})

	m.persistenceFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "persistence_failures_total",
		Help:      "Total number of votes rejected because persistence failed",
	})

	m.voteLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "vote_latency_milliseconds",
		Help:      "Histogram of vote latency in milliseconds, rating update through persistence",
		Buckets:   m.histogramBuckets,
	})

	m.items = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "items",
		Help:      "Number of items in the working area",
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_size",
		Help:      "Current number of commands waiting for the dispatcher",
	})

	m.duplicateCommands = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "duplicate_commands_total",
		Help:      "Total number of commands dropped because their id was already seen",
	})

	m.queueEnqueueErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueue_errors_total",
		Help:      "Total number of commands rejected by a full or closed queue",
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorsByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_component_total",
			Help:      "Errors by component and kind",
		},
		[]string{"component", "error_type"},
	)
}

// RecordVote increments the votes counter.
func RecordVote() {
	globalManager.votes.Inc()
}

// RecordSkip increments the skips counter.
func RecordSkip() {
	globalManager.skips.Inc()
}

// RecordPairServed increments the pairs served counter.
func RecordPairServed() {
	globalManager.pairsServed.Inc()
}

// RecordRepeatFallback increments the repeat fallback counter.
func RecordRepeatFallback() {
	globalManager.repeatFallbacks.Inc()
}

// RecordPersistenceFailure increments the persistence failure counter.
func RecordPersistenceFailure() {
	globalManager.persistenceFailures.Inc()
}

// RecordVoteLatency records vote latency in milliseconds.
func RecordVoteLatency(latencyMs float64) {
	globalManager.voteLatency.Observe(latencyMs)
}

// UpdateItems sets the number of items in the working area.
func UpdateItems(count int) {
	globalManager.items.Set(float64(count))
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// RecordDuplicateCommand increments the duplicate command counter.
func RecordDuplicateCommand() {
	globalManager.duplicateCommands.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error by component and kind.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
