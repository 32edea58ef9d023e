// Package metrics provides Prometheus metrics for the timing engine.
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
	registry         prometheus.Registerer

	// Pipeline metrics - the outcome of every passage through the engine.
	passagesAccepted   prometheus.Counter
	passagesRejected   *prometheus.CounterVec
	passagesDiscarded  *prometheus.CounterVec
	passagesSuperseded prometheus.Counter
	passagesFailed     prometheus.Counter

	// Merge metrics - batch reconciliation behavior.
	mergeBatchSize prometheus.Histogram
	mergeLatency   prometheus.Histogram
	syncBatches    prometheus.Counter

	// Device telemetry.
	devicePending *prometheus.GaugeVec

	// Timeline store.
	storeShardCount    prometheus.Gauge
	storeUpdateLatency prometheus.Histogram
	timelineRecords    prometheus.Gauge
	trackedRiders      prometheus.Gauge

	// Queue metrics.
	queueSize          prometheus.Gauge
	queueCapacity      prometheus.Gauge
	queueEnqueues      prometheus.Counter
	queueDequeues      prometheus.Counter
	queueEnqueueErrors *prometheus.CounterVec

	// Worker metrics.
	workerCount             prometheus.Gauge
	workerProcessingLatency prometheus.Histogram
	workerErrors            prometheus.Counter

	// HTTP metrics.
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
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
		namespace:        "chicane",
		subsystem:        "timing",
		histogramBuckets: prometheus.DefBuckets,
		registry:         prometheus.DefaultRegisterer,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.passagesAccepted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "passages_accepted_total",
		Help:      "Total passages committed as non-discarded computed times",
	})
	m.passagesRejected = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "passages_rejected_total",
		Help:      "Total passages rejected by validation, by reason",
	}, []string{"reason"})
	m.passagesDiscarded = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "passages_discarded_total",
		Help:      "Total passages recorded as discarded audit rows, by reason",
	}, []string{"reason"})
	m.passagesSuperseded = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "passages_superseded_total",
		Help:      "Total committed records replaced by causally earlier stragglers",
	})
	m.passagesFailed = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "passages_failed_total",
		Help:      "Total passages aborted by invariant or storage failures",
	})

	m.mergeBatchSize = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "merge_batch_size",
		Help:      "Histogram of merged batch sizes",
		Buckets:   []float64{1, 5, 10, 50, 100, 500, 1000, 5000},
	})
	m.mergeLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "merge_latency_milliseconds",
		Help:      "Histogram of batch merge latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})
	m.syncBatches = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "sync_batches_total",
		Help:      "Total offline sync batches submitted by devices",
	})

	m.devicePending = auto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "device_pending_readings",
		Help:      "Last known pending reading backlog per device",
	}, []string{"device"})

	m.storeShardCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_shard_count",
		Help:      "Number of lock shards in the timeline store",
	})
	m.storeUpdateLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "store_update_latency_milliseconds",
		Help:      "Histogram of timeline store write latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})
	m.timelineRecords = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "timeline_records",
		Help:      "Total computed time records stored, discarded rows included",
	})
	m.trackedRiders = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "tracked_riders",
		Help:      "Number of rider timelines tracked",
	})

	m.queueSize = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_size",
		Help:      "Current number of live passages queued",
	})
	m.queueCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_capacity",
		Help:      "Configured live queue capacity",
	})
	m.queueEnqueues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueues_total",
		Help:      "Total successful enqueues of live passages",
	})
	m.queueDequeues = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_dequeues_total",
		Help:      "Total dequeues of live passages",
	})
	m.queueEnqueueErrors = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "queue_enqueue_errors_total",
		Help:      "Total failed enqueues, by cause",
	}, []string{"cause"})

	m.workerCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_count",
		Help:      "Number of live-path workers running",
	})
	m.workerProcessingLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_processing_latency_milliseconds",
		Help:      "Histogram of per-passage processing latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})
	m.workerErrors = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "worker_errors_total",
		Help:      "Total worker-level processing failures",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "Total HTTP requests, by endpoint, method and status",
	}, []string{"endpoint", "method", "status"})
	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_milliseconds",
		Help:      "Histogram of HTTP request duration in milliseconds",
		Buckets:   m.histogramBuckets,
	}, []string{"endpoint", "method", "status"})
}

// Package-level helpers operating on the global manager.

// RecordPassageAccepted counts a committed, non-discarded result.
func RecordPassageAccepted() { globalManager.passagesAccepted.Inc() }

// RecordPassageRejected counts a validation rejection.
func RecordPassageRejected(reason string) {
	globalManager.passagesRejected.WithLabelValues(reason).Inc()
}

// RecordPassageDiscarded counts a discarded audit row.
func RecordPassageDiscarded(reason string) {
	globalManager.passagesDiscarded.WithLabelValues(reason).Inc()
}

// RecordPassageSuperseded counts a committed record replaced by a
// causally earlier straggler.
func RecordPassageSuperseded() { globalManager.passagesSuperseded.Inc() }

// RecordPassageFailed counts a single-event fatal failure.
func RecordPassageFailed() { globalManager.passagesFailed.Inc() }

// RecordMergeBatch observes the size of a merged batch.
func RecordMergeBatch(size int) { globalManager.mergeBatchSize.Observe(float64(size)) }

// RecordMergeLatency observes batch merge latency in milliseconds.
func RecordMergeLatency(latencyMs float64) { globalManager.mergeLatency.Observe(latencyMs) }

// RecordSyncBatch counts an offline sync submission.
func RecordSyncBatch(size int) {
	globalManager.syncBatches.Inc()
	globalManager.mergeBatchSize.Observe(float64(size))
}

// UpdateDevicePending sets the last known backlog for a device.
func UpdateDevicePending(device string, pending int) {
	globalManager.devicePending.WithLabelValues(device).Set(float64(pending))
}

// UpdateStoreShardCount sets the timeline store shard count.
func UpdateStoreShardCount(count int) { globalManager.storeShardCount.Set(float64(count)) }

// RecordStoreUpdateLatency observes a timeline write latency in milliseconds.
func RecordStoreUpdateLatency(latencyMs float64) {
	globalManager.storeUpdateLatency.Observe(latencyMs)
}

// UpdateTimelineRecords sets the total stored record count.
func UpdateTimelineRecords(count int) { globalManager.timelineRecords.Set(float64(count)) }

// UpdateTrackedRiders sets the number of rider timelines tracked.
func UpdateTrackedRiders(count int) { globalManager.trackedRiders.Set(float64(count)) }

// UpdateQueueSize sets the current live queue depth.
func UpdateQueueSize(size int) { globalManager.queueSize.Set(float64(size)) }

// UpdateQueueCapacity sets the configured live queue capacity.
func UpdateQueueCapacity(capacity int) { globalManager.queueCapacity.Set(float64(capacity)) }

// RecordQueueEnqueue counts a successful enqueue.
func RecordQueueEnqueue() { globalManager.queueEnqueues.Inc() }

// RecordQueueDequeue counts a dequeue.
func RecordQueueDequeue() { globalManager.queueDequeues.Inc() }

// RecordQueueEnqueueError counts a failed enqueue by cause.
func RecordQueueEnqueueError(cause string) {
	globalManager.queueEnqueueErrors.WithLabelValues(cause).Inc()
}

// UpdateWorkerCount sets the number of running workers.
func UpdateWorkerCount(count int) { globalManager.workerCount.Set(float64(count)) }

// RecordWorkerProcessingLatency observes per-passage latency in milliseconds.
func RecordWorkerProcessingLatency(latencyMs float64) {
	globalManager.workerProcessingLatency.Observe(latencyMs)
}

// RecordWorkerError counts a worker-level failure.
func RecordWorkerError() { globalManager.workerErrors.Inc() }

// RecordHTTPRequest counts an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration observes an HTTP request duration in milliseconds.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, durationMs float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(durationMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
