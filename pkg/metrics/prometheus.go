// Package metrics provides Prometheus metrics for the allot service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the allot service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Allocation
	allocationPasses    prometheus.Counter
	allocationLatency   prometheus.Histogram
	requestsMatched     prometheus.Counter
	requestsUnmatched   prometheus.Counter
	lastPassUnmatched   prometheus.Gauge
	workersRegistered   prometheus.Gauge
	requestsQueued      prometheus.Gauge
	requestsDuplicate   prometheus.Counter
	validationFailures  *prometheus.CounterVec
	capabilityRequested *prometheus.CounterVec

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Errors
	errorRateByType     *prometheus.CounterVec
	errorRateByEndpoint *prometheus.CounterVec
	errorLatency        *prometheus.HistogramVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "allot",
		subsystem:        "allocator",
		histogramBuckets: prometheus.DefBuckets,
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
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
		Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.allocationPasses = m.counter("allocation_passes_total", "Total number of allocation passes run")
	m.allocationLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "allocation_latency_milliseconds",
		Help:        "Duration of an allocation pass in milliseconds",
		Buckets:     []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 50, 100, 500, 1000},
		ConstLabels: m.constLabels,
	})
	m.requestsMatched = m.counter("requests_matched_total", "Total number of requests assigned a worker across passes")
	m.requestsUnmatched = m.counter("requests_unmatched_total", "Total number of requests with no qualifying worker across passes")
	m.lastPassUnmatched = m.gauge("last_pass_unmatched", "Number of unmatched requests in the most recent pass")
	m.workersRegistered = m.gauge("workers_registered", "Number of worker profiles in the registry")
	m.requestsQueued = m.gauge("requests_queued", "Number of requests in the queue")
	m.requestsDuplicate = m.counter("requests_duplicate_total", "Total number of request submissions rejected as duplicates")
	m.validationFailures = m.counterVec("validation_failures_total", "Total number of rejected input records", "record")
	m.capabilityRequested = m.counterVec("capability_requested_total", "Total number of requests demanding a capability", "capability")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds",
		"endpoint", "method", "status_code")

	m.errorRateByType = m.counterVec("errors_by_type_total", "Total number of errors by type", "error_type", "severity")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "Total number of errors by endpoint",
		"endpoint", "method", "error_type")
	m.errorLatency = m.histogramVec("error_latency_milliseconds", "Latency of operations that resulted in errors",
		"component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        "system_gc_pause_time_milliseconds",
		Help:        "GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: m.constLabels,
	})
}

// RecordAllocationPass records one pass with its latency and outcome counts.
func RecordAllocationPass(latencyMs float64, matched, unmatched int) {
	globalManager.allocationPasses.Inc()
	globalManager.allocationLatency.Observe(latencyMs)
	globalManager.requestsMatched.Add(float64(matched))
	globalManager.requestsUnmatched.Add(float64(unmatched))
	globalManager.lastPassUnmatched.Set(float64(unmatched))
}

// UpdateWorkersRegistered sets the registry size.
func UpdateWorkersRegistered(count int) {
	globalManager.workersRegistered.Set(float64(count))
}

// UpdateRequestsQueued sets the queue length.
func UpdateRequestsQueued(count int) {
	globalManager.requestsQueued.Set(float64(count))
}

// RecordRequestDuplicate increments the duplicate submission counter.
func RecordRequestDuplicate() {
	globalManager.requestsDuplicate.Inc()
}

// RecordValidationFailure counts a rejected record of kind "worker" or "request".
func RecordValidationFailure(record string) {
	globalManager.validationFailures.WithLabelValues(record).Inc()
}

// RecordCapabilityRequested counts a request demanding capability.
func RecordCapabilityRequested(capability string) {
	globalManager.capabilityRequested.WithLabelValues(capability).Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
