// Package metrics provides Prometheus metrics for the formation engine and
// the lineup service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the formation service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Gesture metrics
	dragsStarted   prometheus.Counter
	dragsCommitted prometheus.Counter
	dragsCancelled prometheus.Counter
	dragsClamped   prometheus.Counter

	// Lineup store metrics
	lineupLoads       *prometheus.CounterVec
	placementsApplied prometheus.Counter
	playersTracked    prometheus.Gauge

	// Save pipeline metrics
	savesIssued       prometheus.Counter
	saveResults       *prometheus.CounterVec
	saveLatency       prometheus.Histogram
	saveQueueSize     prometheus.Gauge
	saveQueueCapacity prometheus.Gauge
	workerCount       prometheus.Gauge

	// Remote client metrics
	remoteRequests     *prometheus.CounterVec
	remoteBreakerState prometheus.Gauge

	// Repository metrics
	repositoryWrites       *prometheus.CounterVec
	repositoryWriteLatency prometheus.Histogram
	repositoryReadLatency  prometheus.Histogram

	// HTTP metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

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
		namespace:        "formation",
		subsystem:        "lineup",
		histogramBuckets: prometheus.DefBuckets,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogram(name, help string) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        name,
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	})
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	m.dragsStarted = m.counter("drags_started_total", "Total number of drag sessions started")
	m.dragsCommitted = m.counter("drags_committed_total", "Total number of drag sessions committed into a placement")
	m.dragsCancelled = m.counter("drags_cancelled_total", "Total number of drag sessions cancelled without a placement")
	m.dragsClamped = m.counter("drags_clamped_total", "Total number of commits whose position was clamped to the pitch bounds")

	m.lineupLoads = m.counterVec("lineup_loads_total", "Lineup loads by outcome", "outcome")
	m.placementsApplied = m.counter("placements_applied_total", "Total number of optimistic placement updates")
	m.playersTracked = m.gauge("players_tracked", "Number of placements held by the lineup store")

	m.savesIssued = m.counter("saves_issued_total", "Total number of remote placement saves issued")
	m.saveResults = m.counterVec("save_results_total", "Remote placement save results by status", "status")
	m.saveLatency = m.histogram("save_latency_milliseconds", "Remote placement save latency in milliseconds")
	m.saveQueueSize = m.gauge("save_queue_size", "Current number of saves waiting in the queue")
	m.saveQueueCapacity = m.gauge("save_queue_capacity", "Maximum number of saves the queue holds")
	m.workerCount = m.gauge("save_worker_count", "Number of save workers")

	m.remoteRequests = m.counterVec("remote_requests_total", "Requests made to the lineup service by operation and outcome", "operation", "outcome")
	m.remoteBreakerState = m.gauge("remote_breaker_state", "Circuit breaker state (0 closed, 1 half-open, 2 open)")

	m.repositoryWrites = m.counterVec("repository_writes_total", "Repository placement writes by outcome", "backend", "outcome")
	m.repositoryWriteLatency = m.histogram("repository_write_latency_milliseconds", "Repository write latency in milliseconds")
	m.repositoryReadLatency = m.histogram("repository_read_latency_milliseconds", "Repository read latency in milliseconds")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "http_request_duration_milliseconds",
		Help:        "HTTP request duration in milliseconds",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}, []string{"endpoint", "method", "status_code"})

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Total number of errors by component", "component", "error_type")
}

// RecordDragStarted increments the drag start counter.
func RecordDragStarted() {
	globalManager.dragsStarted.Inc()
}

// RecordDragCommitted increments the commit counter and, when the commit had
// to be clamped, the clamp counter.
func RecordDragCommitted(clamped bool) {
	globalManager.dragsCommitted.Inc()
	if clamped {
		globalManager.dragsClamped.Inc()
	}
}

// RecordDragCancelled increments the cancellation counter.
func RecordDragCancelled() {
	globalManager.dragsCancelled.Inc()
}

// RecordLineupLoad records a lineup load outcome ("ok" or "error").
func RecordLineupLoad(outcome string) {
	globalManager.lineupLoads.WithLabelValues(outcome).Inc()
}

// RecordPlacementApplied increments the optimistic update counter.
func RecordPlacementApplied() {
	globalManager.placementsApplied.Inc()
}

// UpdatePlayersTracked sets the number of placements in the store.
func UpdatePlayersTracked(count int) {
	globalManager.playersTracked.Set(float64(count))
}

// RecordSaveIssued increments the issued saves counter.
func RecordSaveIssued() {
	globalManager.savesIssued.Inc()
}

// RecordSaveResult records the status of a finished save and its latency.
func RecordSaveResult(status string, latencyMs float64) {
	globalManager.saveResults.WithLabelValues(status).Inc()
	globalManager.saveLatency.Observe(latencyMs)
}

// UpdateSaveQueueSize sets the current save queue length.
func UpdateSaveQueueSize(size int) {
	globalManager.saveQueueSize.Set(float64(size))
}

// UpdateSaveQueueCapacity sets the save queue capacity.
func UpdateSaveQueueCapacity(capacity int) {
	globalManager.saveQueueCapacity.Set(float64(capacity))
}

// UpdateWorkerCount sets the current worker count.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordRemoteRequest records a call to the lineup service.
func RecordRemoteRequest(operation, outcome string) {
	globalManager.remoteRequests.WithLabelValues(operation, outcome).Inc()
}

// UpdateRemoteBreakerState sets the numeric circuit breaker state.
func UpdateRemoteBreakerState(state int) {
	globalManager.remoteBreakerState.Set(float64(state))
}

// RecordRepositoryWrite records a repository write outcome and latency.
func RecordRepositoryWrite(backend, outcome string, latencyMs float64) {
	globalManager.repositoryWrites.WithLabelValues(backend, outcome).Inc()
	globalManager.repositoryWriteLatency.Observe(latencyMs)
}

// RecordRepositoryReadLatency records repository read latency.
func RecordRepositoryReadLatency(latencyMs float64) {
	globalManager.repositoryReadLatency.Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
