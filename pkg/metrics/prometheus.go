// Package metrics provides Prometheus metrics for the cricscore service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager owns every metric the service exports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	constLabels      prometheus.Labels
	registry         prometheus.Registerer

	// Scoring
	deliveriesApplied   prometheus.Counter
	deliveriesRejected  *prometheus.CounterVec
	deliveriesDuplicate prometheus.Counter
	wickets             *prometheus.CounterVec
	engineLatency       prometheus.Histogram
	matchesCreated      prometheus.Counter
	matchesCompleted    prometheus.Counter
	undos               prometheus.Counter
	liveMatches         prometheus.Gauge

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// History
	historySize    prometheus.Gauge
	historyLatency *prometheus.HistogramVec

	// Archive queue
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueUtilization   prometheus.Gauge
	queueEnqueued      prometheus.Counter
	queueDequeued      prometheus.Counter
	queueEnqueueErrors prometheus.Counter

	// Archive workers
	workerCount             prometheus.Gauge
	workerActiveCount       prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter
	matchesArchived         prometheus.Counter

	// Live feed
	liveClients         prometheus.Gauge
	liveMessagesDropped prometheus.Counter

	// Process
	systemMemory     prometheus.Gauge
	systemGoroutines prometheus.Gauge
	systemGCPause    prometheus.Gauge

	errorsByComponent *prometheus.CounterVec
}

var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a metrics manager and registers its metrics.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "cricscore",
		subsystem:        "scorebook",
		histogramBuckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 25, 50, 100, 250, 500, 1000},
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) counterOpts(name, help string) prometheus.CounterOpts {
	return prometheus.CounterOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) gaugeOpts(name, help string) prometheus.GaugeOpts {
	return prometheus.GaugeOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels}
}

func (m *Manager) histogramOpts(name, help string) prometheus.HistogramOpts {
	return prometheus.HistogramOpts{Namespace: m.namespace, Subsystem: m.subsystem, Name: name, Help: help, ConstLabels: m.constLabels, Buckets: m.histogramBuckets}
}

func (m *Manager) initializeMetrics() { //nolint:funlen // one place for every metric definition
	auto := promauto.With(m.registry)

	m.deliveriesApplied = auto.NewCounter(m.counterOpts("deliveries_applied_total", "Deliveries accepted by the scoring engine"))
	m.deliveriesRejected = auto.NewCounterVec(m.counterOpts("deliveries_rejected_total", "Deliveries rejected by the scoring engine"), []string{"reason"})
	m.deliveriesDuplicate = auto.NewCounter(m.counterOpts("deliveries_duplicate_total", "Deliveries ignored because their idempotency key was seen"))
	m.wickets = auto.NewCounterVec(m.counterOpts("wickets_total", "Wickets by dismissal type"), []string{"type"})
	m.engineLatency = auto.NewHistogram(m.histogramOpts("engine_latency_milliseconds", "Time spent applying one delivery"))
	m.matchesCreated = auto.NewCounter(m.counterOpts("matches_created_total", "Matches started"))
	m.matchesCompleted = auto.NewCounter(m.counterOpts("matches_completed_total", "Matches that reached a result"))
	m.undos = auto.NewCounter(m.counterOpts("undo_total", "Deliveries or changes undone"))
	m.liveMatches = auto.NewGauge(m.gaugeOpts("live_matches", "Matches currently being scored"))

	m.httpRequests = auto.NewCounterVec(m.counterOpts("http_requests_total", "HTTP requests by endpoint and method"), []string{"endpoint", "method", "status_code"})
	m.httpRequestDuration = auto.NewHistogramVec(m.histogramOpts("http_request_duration_milliseconds", "HTTP request duration in milliseconds"), []string{"endpoint", "method", "status_code"})

	m.historySize = auto.NewGauge(m.gaugeOpts("history_matches", "Matches stored in the history"))
	m.historyLatency = auto.NewHistogramVec(m.histogramOpts("history_latency_milliseconds", "History store operation latency in milliseconds"), []string{"backend", "operation"})

	m.queueSize = auto.NewGauge(m.gaugeOpts("archive_queue_size", "Completed matches waiting to be archived"))
	m.queueCapacity = auto.NewGauge(m.gaugeOpts("archive_queue_capacity", "Capacity of the archive queue"))
	m.queueUtilization = auto.NewGauge(m.gaugeOpts("archive_queue_utilization_ratio", "Archive queue fill ratio (0-1)"))
	m.queueEnqueued = auto.NewCounter(m.counterOpts("archive_queue_enqueued_total", "Matches put on the archive queue"))
	m.queueDequeued = auto.NewCounter(m.counterOpts("archive_queue_dequeued_total", "Matches taken off the archive queue"))
	m.queueEnqueueErrors = auto.NewCounter(m.counterOpts("archive_queue_enqueue_errors_total", "Matches refused by a full or closed archive queue"))

	m.workerCount = auto.NewGauge(m.gaugeOpts("archive_workers", "Archive workers started"))
	m.workerActiveCount = auto.NewGauge(m.gaugeOpts("archive_workers_active", "Archive workers currently saving a match"))
	m.workerProcessingLatency = auto.NewHistogram(m.histogramOpts("archive_latency_milliseconds", "Time to archive one match"))
	m.workerErrors = auto.NewCounter(m.counterOpts("archive_errors_total", "Matches that failed to archive"))
	m.matchesArchived = auto.NewCounter(m.counterOpts("matches_archived_total", "Matches written to the history"))

	m.liveClients = auto.NewGauge(m.gaugeOpts("live_clients", "Connected live feed clients"))
	m.liveMessagesDropped = auto.NewCounter(m.counterOpts("live_messages_dropped_total", "Live feed messages dropped for slow clients"))

	m.systemMemory = auto.NewGauge(m.gaugeOpts("system_memory_bytes", "Heap bytes allocated"))
	m.systemGoroutines = auto.NewGauge(m.gaugeOpts("system_goroutines", "Running goroutines"))
	m.systemGCPause = auto.NewGauge(m.gaugeOpts("system_gc_pause_milliseconds", "Average GC pause in milliseconds"))

	m.errorsByComponent = auto.NewCounterVec(m.counterOpts("errors_by_component_total", "Errors by component and type"), []string{"component", "error_type"})
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

// Scoring.

// RecordDeliveryApplied increments the accepted deliveries counter.
func RecordDeliveryApplied() { globalManager.deliveriesApplied.Inc() }

// RecordDeliveryRejected counts a rejected delivery by reason.
func RecordDeliveryRejected(reason string) {
	globalManager.deliveriesRejected.WithLabelValues(reason).Inc()
}

// RecordDeliveryDuplicate counts a delivery skipped by idempotency key.
func RecordDeliveryDuplicate() { globalManager.deliveriesDuplicate.Inc() }

// RecordWicket counts a wicket by dismissal type.
func RecordWicket(kind string) { globalManager.wickets.WithLabelValues(kind).Inc() }

// RecordEngineLatency records the time taken to apply one delivery.
func RecordEngineLatency(d time.Duration) { globalManager.engineLatency.Observe(ms(d)) }

// RecordMatchCreated increments the matches created counter.
func RecordMatchCreated() { globalManager.matchesCreated.Inc() }

// RecordMatchCompleted increments the matches completed counter.
func RecordMatchCompleted() { globalManager.matchesCompleted.Inc() }

// RecordUndo increments the undo counter.
func RecordUndo() { globalManager.undos.Inc() }

// UpdateLiveMatches sets the number of matches being scored.
func UpdateLiveMatches(n int) { globalManager.liveMatches.Set(float64(n)) }

// HTTP.

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// History.

// UpdateHistorySize sets the number of stored matches.
func UpdateHistorySize(n int) { globalManager.historySize.Set(float64(n)) }

// RecordHistoryLatency records the latency of a history store operation.
func RecordHistoryLatency(backend, operation string, d time.Duration) {
	globalManager.historyLatency.WithLabelValues(backend, operation).Observe(ms(d))
}

// Archive queue.

// UpdateQueueSize sets the current archive queue depth.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the archive queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// UpdateQueueUtilization sets the archive queue fill ratio.
func UpdateQueueUtilization(ratio float64) { globalManager.queueUtilization.Set(ratio) }

// RecordQueueEnqueue increments the enqueue counter.
func RecordQueueEnqueue() { globalManager.queueEnqueued.Inc() }

// RecordQueueDequeue increments the dequeue counter.
func RecordQueueDequeue() { globalManager.queueDequeued.Inc() }

// RecordQueueEnqueueError increments the enqueue error counter.
func RecordQueueEnqueueError() { globalManager.queueEnqueueErrors.Inc() }

// Archive workers.

// UpdateWorkerCount sets the number of started archive workers.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// UpdateWorkerActiveCount sets the number of busy archive workers.
func UpdateWorkerActiveCount(count int) { globalManager.workerActiveCount.Set(float64(count)) }

// RecordWorkerProcessingLatency records the time to archive one match.
func RecordWorkerProcessingLatency(d time.Duration) {
	globalManager.workerProcessingLatency.Observe(ms(d))
}

// RecordWorkerError increments the archive error counter.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// RecordMatchArchived increments the archived matches counter.
func RecordMatchArchived() { globalManager.matchesArchived.Inc() }

// Live feed.

// UpdateLiveClients sets the number of connected live feed clients.
func UpdateLiveClients(n int) { globalManager.liveClients.Set(float64(n)) }

// RecordLiveMessageDropped counts a message a slow client missed.
func RecordLiveMessageDropped() { globalManager.liveMessagesDropped.Inc() }

// Process.

// UpdateSystemMemoryUsage sets the allocated heap bytes.
func UpdateSystemMemoryUsage(bytes uint64) { globalManager.systemMemory.Set(float64(bytes)) }

// UpdateSystemGoroutineCount sets the goroutine count.
func UpdateSystemGoroutineCount(n int) { globalManager.systemGoroutines.Set(float64(n)) }

// RecordSystemGCPauseTime sets the average GC pause.
func RecordSystemGCPauseTime(ms float64) { globalManager.systemGCPause.Set(ms) }

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorsByComponent.WithLabelValues(component, errorType).Inc()
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
