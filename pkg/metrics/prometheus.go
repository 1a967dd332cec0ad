// Package metrics provides Prometheus metrics for the happymap dashboard service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager manages all Prometheus metrics for the service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Dataset
	datasetRows    prometheus.Gauge
	datasetYears   prometheus.Gauge
	datasetRegions prometheus.Gauge
	rowsCoerced    prometheus.Counter
	rowsSkipped    prometheus.Counter

	// Dashboard
	redraws       *prometheus.CounterVec
	renderLatency *prometheus.HistogramVec
	highlights    *prometheus.CounterVec
	playbackTicks prometheus.Counter
	exports       prometheus.Counter

	// Sessions
	sessionsActive   prometheus.Gauge
	sessionsCreated  prometheus.Counter
	sessionsEvicted  prometheus.Counter
	sessionsRejected prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Frame pipeline
	framesEnqueued   prometheus.Counter
	framesDropped    prometheus.Counter
	framesDelivered  prometheus.Counter
	wsClients        prometheus.Gauge
	queueSize        prometheus.Gauge
	queueCapacity    prometheus.Gauge
	queueUtilization prometheus.Gauge

	// Workers
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// Errors
	errorsByComponent *prometheus.CounterVec
	errorsByEndpoint  *prometheus.CounterVec

	// System
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
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
		namespace:        "happymap",
		subsystem:        "dashboard",
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

func (m *Manager) histogram(name, help string, buckets []float64) prometheus.Histogram {
	return promauto.With(m.registry).NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: buckets,
	})
}

func (m *Manager) counterVec(name, help string, labels ...string) *prometheus.CounterVec {
	return promauto.With(m.registry).NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels,
	}, labels)
}

func (m *Manager) histogramVec(name, help string, labels ...string) *prometheus.HistogramVec {
	return promauto.With(m.registry).NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: m.histogramBuckets,
	}, labels)
}

func (m *Manager) initializeMetrics() {
	m.datasetRows = m.gauge("dataset_rows", "Rows in the loaded dataset")
	m.datasetYears = m.gauge("dataset_years", "Distinct years in the loaded dataset")
	m.datasetRegions = m.gauge("dataset_regions", "Distinct regions in the loaded dataset")
	m.rowsCoerced = m.counter("rows_coerced_total", "Rows whose malformed numeric fields were coerced to zero")
	m.rowsSkipped = m.counter("rows_skipped_total", "Rows dropped while loading the dataset")

	m.redraws = m.counterVec("redraws_total", "Full dashboard redraws by trigger", "trigger")
	m.renderLatency = m.histogramVec("render_latency_milliseconds", "View render latency in milliseconds", "view")
	m.highlights = m.counterVec("highlights_total", "Country highlights by click source", "source")
	m.playbackTicks = m.counter("playback_ticks_total", "Playback timer ticks that advanced a year")
	m.exports = m.counter("exports_total", "Spreadsheet exports served")

	m.sessionsActive = m.gauge("sessions_active", "Open dashboard sessions")
	m.sessionsCreated = m.counter("sessions_created_total", "Dashboard sessions created")
	m.sessionsEvicted = m.counter("sessions_evicted_total", "Dashboard sessions expired for inactivity")
	m.sessionsRejected = m.counter("sessions_rejected_total", "Dashboard sessions refused at capacity")

	m.httpRequests = m.counterVec("http_requests_total", "Total number of HTTP requests by endpoint and method",
		"endpoint", "method", "status_code")
	m.httpRequestDuration = m.histogramVec("http_request_duration_milliseconds", "HTTP request duration in milliseconds",
		"endpoint", "method", "status_code")

	m.framesEnqueued = m.counter("frames_enqueued_total", "Frames accepted by the delivery queue")
	m.framesDropped = m.counter("frames_dropped_total", "Frames dropped because the delivery queue was full or closed")
	m.framesDelivered = m.counter("frames_delivered_total", "Frames written to WebSocket subscribers")
	m.wsClients = m.gauge("websocket_clients", "Connected WebSocket subscribers")
	m.queueSize = m.gauge("queue_size", "Frames waiting in the delivery queue")
	m.queueCapacity = m.gauge("queue_capacity", "Capacity of the delivery queue")
	m.queueUtilization = m.gauge("queue_utilization_ratio", "Delivery queue fill ratio (0-1)")

	m.workerActiveCount = m.gauge("worker_active_count", "Running delivery workers")
	m.workerProcessingLatency = m.histogram("worker_processing_latency_milliseconds",
		"Frame delivery latency in milliseconds", m.histogramBuckets)
	m.workerErrors = m.counter("worker_errors_total", "Frame delivery failures")

	m.errorsByComponent = m.counterVec("errors_by_component_total", "Errors by component and type",
		"component", "error_type")
	m.errorsByEndpoint = m.counterVec("errors_by_endpoint_total", "Errors by HTTP endpoint",
		"endpoint", "method", "error_type")

	m.systemMemoryUsage = m.gauge("system_memory_usage_bytes", "System memory usage in bytes")
	m.systemGoroutineCount = m.gauge("system_goroutine_count", "Number of goroutines")
	m.systemGCPauseTime = m.histogram("system_gc_pause_time_milliseconds", "GC pause time in milliseconds",
		[]float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000})
}

// UpdateDataset records the size of the loaded dataset.
func UpdateDataset(rows, years, regions int) {
	globalManager.datasetRows.Set(float64(rows))
	globalManager.datasetYears.Set(float64(years))
	globalManager.datasetRegions.Set(float64(regions))
}

// RecordRowsCoerced adds to the coerced rows counter.
func RecordRowsCoerced(n int) {
	globalManager.rowsCoerced.Add(float64(n))
}

// RecordRowsSkipped adds to the skipped rows counter.
func RecordRowsSkipped(n int) {
	globalManager.rowsSkipped.Add(float64(n))
}

// RecordRedraw counts a full redraw caused by trigger.
func RecordRedraw(trigger string) {
	globalManager.redraws.WithLabelValues(trigger).Inc()
}

// RecordRenderLatency records how long one view took to render.
func RecordRenderLatency(view string, latencyMs float64) {
	globalManager.renderLatency.WithLabelValues(view).Observe(latencyMs)
}

// RecordHighlight counts a country highlight from source.
func RecordHighlight(source string) {
	globalManager.highlights.WithLabelValues(source).Inc()
}

// RecordPlaybackTick counts a timer tick.
func RecordPlaybackTick() {
	globalManager.playbackTicks.Inc()
}

// RecordExport counts a spreadsheet export.
func RecordExport() {
	globalManager.exports.Inc()
}

// UpdateSessionsActive sets the open session count.
func UpdateSessionsActive(count int) {
	globalManager.sessionsActive.Set(float64(count))
}

// RecordSessionCreated counts a new session.
func RecordSessionCreated() {
	globalManager.sessionsCreated.Inc()
}

// RecordSessionsEvicted adds expired sessions.
func RecordSessionsEvicted(n int) {
	globalManager.sessionsEvicted.Add(float64(n))
}

// RecordSessionRejected counts a session refused at capacity.
func RecordSessionRejected() {
	globalManager.sessionsRejected.Inc()
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordFrameEnqueued counts a queued frame.
func RecordFrameEnqueued() {
	globalManager.framesEnqueued.Inc()
}

// RecordFrameDropped counts a frame that never reached the queue.
func RecordFrameDropped() {
	globalManager.framesDropped.Inc()
}

// RecordFrameDelivered counts frames written to subscribers.
func RecordFrameDelivered(n int) {
	globalManager.framesDelivered.Add(float64(n))
}

// UpdateWebSocketClients sets the subscriber count.
func UpdateWebSocketClients(count int) {
	globalManager.wsClients.Set(float64(count))
}

// UpdateQueueSize sets the current queue size.
func UpdateQueueSize(size int) {
	globalManager.queueSize.Set(float64(size))
}

// UpdateQueueCapacity sets the queue capacity.
func UpdateQueueCapacity(capacity int) {
	globalManager.queueCapacity.Set(float64(capacity))
}

// UpdateQueueUtilization sets the queue fill ratio.
func UpdateQueueUtilization(utilization float64) {
	globalManager.queueUtilization.Set(utilization)
}

// UpdateWorkerActiveCount sets the number of running workers.
func UpdateWorkerActiveCount(count int) {
	globalManager.workerActiveCount.Set(float64(count))
}

// RecordWorkerProcessingLatency records delivery latency in milliseconds.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError counts a delivery failure.
func RecordWorkerError() {
	globalManager.workerErrors.Inc()
}

// RecordErrorByComponent records an error in a component.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByEndpoint records an error returned by an endpoint.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorsByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// UpdateSystemMemoryUsage sets heap usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records a GC pause.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the registry the global metrics are registered on.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
