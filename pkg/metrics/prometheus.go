// Package metrics provides Prometheus metrics for the paxstats service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the paxstats service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	metricPrefix     string
	registry         prometheus.Registerer

	// Data source
	fetchTotal     *prometheus.CounterVec
	fetchErrors    *prometheus.CounterVec
	fetchRetries   *prometheus.CounterVec
	fetchLatency   *prometheus.HistogramVec
	fetchCoalesced prometheus.Counter

	// Ingestion
	recordsSkipped  *prometheus.CounterVec
	recordsRepaired *prometheus.CounterVec

	// Snapshot
	snapshotEvents   prometheus.Gauge
	snapshotPeople   prometheus.Gauge
	snapshotLoadUnix prometheus.Gauge
	snapshotLoads    *prometheus.CounterVec

	// Aggregation
	aggregationLatency *prometheus.HistogramVec
	aggregationErrors  *prometheus.CounterVec

	// Refresh queue and workers
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter
	workerCount        prometheus.Gauge
	workerLatency      prometheus.Histogram
	workerErrors       prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
	errorRateByEndpoint *prometheus.CounterVec
	rateLimited         *prometheus.CounterVec

	// Errors
	errorRateByComponent *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

var globalManager *Manager //nolint:gochecknoglobals // singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // metrics registry

func init() { //nolint:gochecknoinits // global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// Configure replaces the global manager with one built from opts on a fresh
// registry. Call it once at startup, before the metrics handler is created
// and before anything records.
func Configure(opts ...Option) *Manager {
	customRegistry = prometheus.NewRegistry()
	globalManager = NewManager(append(opts, WithPrometheusRegistry(customRegistry))...)
	return globalManager
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "paxstats",
		subsystem:        "engine",
		histogramBuckets: []float64{0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

func (m *Manager) name(n string) string {
	if m.metricPrefix == "" {
		return n
	}
	return m.metricPrefix + "_" + n
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) counter(name, help string) prometheus.Counter {
	return promauto.With(m.registry).NewCounter(prometheus.CounterOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) gauge(name, help string) prometheus.Gauge {
	return promauto.With(m.registry).NewGauge(prometheus.GaugeOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		ConstLabels: m.customLabels,
	})
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name(name),
		Help:        help,
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.fetchTotal = m.counterVec("fetch_total", "Upstream fetches by source and dataset", "source", "dataset")
	m.fetchErrors = m.counterVec("fetch_errors_total", "Failed upstream fetches after retries", "source", "dataset")
	m.fetchRetries = m.counterVec("fetch_retries_total", "Retried upstream fetch attempts", "source", "dataset")
	m.fetchLatency = m.histogramVec("fetch_latency_milliseconds", "Upstream fetch latency including retries", "source", "dataset")
	m.fetchCoalesced = m.counter("fetch_coalesced_total", "Snapshot callers that joined an in-flight fetch")

	m.recordsSkipped = m.counterVec("records_skipped_total", "Records quarantined at ingestion", "reason")
	m.recordsRepaired = m.counterVec("records_repaired_total", "Records repaired at ingestion", "reason")

	m.snapshotEvents = m.gauge("snapshot_events", "Events in the active snapshot")
	m.snapshotPeople = m.gauge("snapshot_people", "People in the active snapshot")
	m.snapshotLoadUnix = m.gauge("snapshot_loaded_unix_seconds", "Unix time the active snapshot was fetched")
	m.snapshotLoads = m.counterVec("snapshot_loads_total", "Snapshot loads by origin", "origin")

	m.aggregationLatency = m.histogramVec("aggregation_latency_milliseconds", "Aggregation latency by view", "view")
	m.aggregationErrors = m.counterVec("aggregation_errors_total", "Aggregation failures by view", "view")

	m.queueSize = m.gauge("refresh_queue_size", "Pending refresh requests")
	m.queueCapacity = m.gauge("refresh_queue_capacity", "Refresh queue capacity")
	m.queueEnqueued = m.counter("refresh_enqueued_total", "Refresh requests accepted")
	m.queueDequeued = m.counter("refresh_dequeued_total", "Refresh requests handed to workers")
	m.queueEnqueueErrors = m.counter("refresh_enqueue_errors_total", "Refresh requests rejected by the queue")
	m.workerCount = m.gauge("refresh_workers", "Running refresh workers")
	m.workerLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("refresh_latency_milliseconds"),
		Help:        "Time spent by a worker on one refresh request",
		Buckets:     m.histogramBuckets,
		ConstLabels: m.customLabels,
	})
	m.workerErrors = m.counter("refresh_errors_total", "Refresh requests that failed")

	m.httpRequests = m.counterVec("http_requests_total", "HTTP requests by endpoint and method", "endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds", "endpoint", "method", "status_code")
	m.errorRateByEndpoint = m.counterVec("errors_by_endpoint_total", "HTTP errors by endpoint", "endpoint", "method", "error_type")
	m.rateLimited = m.counterVec("rate_limited_total", "Requests rejected by the rate limiter", "endpoint")

	m.errorRateByComponent = m.counterVec("errors_by_component_total", "Errors by component and type", "component", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "Heap bytes allocated")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace:   m.namespace,
		Subsystem:   m.subsystem,
		Name:        m.name("system_gc_pause_time_milliseconds"),
		Help:        "GC pause time in milliseconds",
		Buckets:     []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		ConstLabels: m.customLabels,
	})
}

// Enabled reports whether the manager records observations.
func (m *Manager) Enabled() bool { return m.enabled }

// RefreshInterval is how often background gauges should be refreshed.
func (m *Manager) RefreshInterval() time.Duration { return m.refreshInterval }

// Data source.

// RecordFetch counts one fetch of dataset from source and its latency.
func RecordFetch(source, dataset string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.fetchTotal.WithLabelValues(source, dataset).Inc()
	globalManager.fetchLatency.WithLabelValues(source, dataset).Observe(latencyMs)
}

// RecordFetchError counts a fetch that failed after all retries.
func RecordFetchError(source, dataset string) {
	if !globalManager.enabled {
		return
	}
	globalManager.fetchErrors.WithLabelValues(source, dataset).Inc()
}

// RecordFetchRetry counts one retried attempt.
func RecordFetchRetry(source, dataset string) {
	if !globalManager.enabled {
		return
	}
	globalManager.fetchRetries.WithLabelValues(source, dataset).Inc()
}

// RecordFetchCoalesced counts a caller that shared another caller's fetch.
func RecordFetchCoalesced() {
	if !globalManager.enabled {
		return
	}
	globalManager.fetchCoalesced.Inc()
}

// Ingestion.

// RecordSkipped adds n quarantined records for reason.
func RecordSkipped(reason string, n int) {
	if !globalManager.enabled || n <= 0 {
		return
	}
	globalManager.recordsSkipped.WithLabelValues(reason).Add(float64(n))
}

// RecordRepaired adds n repaired records for reason.
func RecordRepaired(reason string, n int) {
	if !globalManager.enabled || n <= 0 {
		return
	}
	globalManager.recordsRepaired.WithLabelValues(reason).Add(float64(n))
}

// Snapshot.

// UpdateSnapshot publishes the size and age of the active snapshot.
func UpdateSnapshot(events, people int, fetchedAt time.Time) {
	if !globalManager.enabled {
		return
	}
	globalManager.snapshotEvents.Set(float64(events))
	globalManager.snapshotPeople.Set(float64(people))
	globalManager.snapshotLoadUnix.Set(float64(fetchedAt.Unix()))
}

// RecordSnapshotLoad counts a snapshot served from origin ("cache", "store", "source").
func RecordSnapshotLoad(origin string) {
	if !globalManager.enabled {
		return
	}
	globalManager.snapshotLoads.WithLabelValues(origin).Inc()
}

// Aggregation.

// RecordAggregationLatency records how long a view took to compute.
func RecordAggregationLatency(view string, latencyMs float64) {
	if !globalManager.enabled {
		return
	}
	globalManager.aggregationLatency.WithLabelValues(view).Observe(latencyMs)
}

// RecordAggregationError counts a failed view computation.
func RecordAggregationError(view string) {
	if !globalManager.enabled {
		return
	}
	globalManager.aggregationErrors.WithLabelValues(view).Inc()
}

// Refresh queue and workers.

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the maximum queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() {
	globalManager.queueEnqueued.Inc()
}

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() {
	globalManager.queueDequeued.Inc()
}

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() {
	globalManager.queueEnqueueErrors.Inc()
}

// UpdateWorkerCount sets the number of running workers.
func UpdateWorkerCount(count int) {
	globalManager.workerCount.Set(float64(count))
}

// RecordWorkerLatency records how long one refresh took.
func RecordWorkerLatency(latencyMs float64) {
	globalManager.workerLatency.Observe(latencyMs)
}

// RecordWorkerError increments the worker error counter.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// HTTP.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordRateLimited counts a request rejected by the limiter.
func RecordRateLimited(endpoint string) {
	globalManager.rateLimited.WithLabelValues(endpoint).Inc()
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// System.

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
