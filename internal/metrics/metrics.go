package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// HTTP metrics
var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_resize_ai_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "image_resize_ai_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	HTTPRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "image_resize_ai_http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Database metrics
var (
	DBQueryTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_resize_ai_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "image_resize_ai_db_query_duration_seconds",
			Help:    "Database query duration in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"operation"},
	)

	DBConnectionsOpen = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "image_resize_ai_db_connections_open",
			Help: "Number of open database connections",
		},
	)
)

// Transform metrics
var (
	TransformRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_resize_ai_transform_requests_total",
			Help: "Total number of transform requests by outcome (hit, miss, error)",
		},
		[]string{"result"},
	)

	TransformErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_resize_ai_transform_errors_total",
			Help: "Total number of failed transform requests by error kind",
		},
		[]string{"kind"},
	)

	TransformBuildDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "image_resize_ai_transform_build_duration_seconds",
			Help:    "Time spent building a transformed artifact",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"source"}, // "transform" or "prompt"
	)

	TransformBuildsInProgress = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "image_resize_ai_transform_builds_in_progress",
			Help: "Number of artifact builds currently running in this process",
		},
	)

	TransformSharedResults = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "image_resize_ai_transform_shared_results_total",
			Help: "Requests answered by an identical in-process build",
		},
	)
)

// Cache metrics
var (
	CacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "image_resize_ai_cache_entries",
			Help: "Number of committed cache entries",
		},
	)

	CacheSizeBytes = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "image_resize_ai_cache_size_bytes",
			Help: "Total size of committed cache entries in bytes",
		},
	)

	CacheWritesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_resize_ai_cache_writes_total",
			Help: "Total number of cache writes by status",
		},
		[]string{"status"},
	)

	CacheSweepRemovedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "image_resize_ai_cache_sweep_removed_total",
			Help: "Total number of cache entries removed by TTL sweeps",
		},
	)

	CacheSweepLastTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "image_resize_ai_cache_sweep_last_timestamp",
			Help: "Timestamp of the last completed cache sweep",
		},
	)
)

// Build lock metrics
var (
	LockAcquisitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_resize_ai_lock_acquisitions_total",
			Help: "Build lock acquisition attempts by backend and outcome (acquired, held, reclaimed, error)",
		},
		[]string{"backend", "outcome"},
	)

	LockReleasesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_resize_ai_lock_releases_total",
			Help: "Build lock releases by backend and outcome (released, not_holder, error)",
		},
		[]string{"backend", "outcome"},
	)

	LockWaitDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "image_resize_ai_lock_wait_duration_seconds",
			Help:    "Time spent waiting on a build lock held by another worker",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	LockWaitTimeoutsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "image_resize_ai_lock_wait_timeouts_total",
			Help: "Number of requests that gave up waiting on a build lock",
		},
	)
)

// Video job metrics
var (
	JobSubmissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_resize_ai_job_submissions_total",
			Help: "Video submissions by outcome (cached, pending, submitted, failed, error)",
		},
		[]string{"outcome"},
	)

	JobPollsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_resize_ai_job_polls_total",
			Help: "Video polls by outcome (completed, running, failed, error)",
		},
		[]string{"outcome"},
	)

	JobsByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "image_resize_ai_jobs",
			Help: "Number of recorded video jobs by status",
		},
		[]string{"status"},
	)

	ProviderRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "image_resize_ai_provider_request_duration_seconds",
			Help:    "Remote provider call duration by operation",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"operation"},
	)

	ProviderErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_resize_ai_provider_errors_total",
			Help: "Remote provider call failures by operation",
		},
		[]string{"operation"},
	)
)

// Filesystem metrics
var (
	FilesystemOperationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "image_resize_ai_filesystem_operation_duration_seconds",
			Help:    "Filesystem operation duration by volume and operation",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"volume", "operation"},
	)

	FilesystemOperationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_resize_ai_filesystem_operation_errors_total",
			Help: "Filesystem operation errors by volume and operation",
		},
		[]string{"volume", "operation"},
	)

	FilesystemRetryAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_resize_ai_filesystem_retry_attempts_total",
			Help: "NFS retry attempts by operation and volume",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetrySuccess = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_resize_ai_filesystem_retry_success_total",
			Help: "Operations that succeeded after at least one retry",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_resize_ai_filesystem_retry_failures_total",
			Help: "Operations that failed after exhausting retries",
		},
		[]string{"operation", "volume"},
	)

	FilesystemRetryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "image_resize_ai_filesystem_retry_duration_seconds",
			Help:    "Total time spent in retried filesystem operations",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2},
		},
		[]string{"operation", "volume"},
	)

	FilesystemStaleErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "image_resize_ai_filesystem_stale_errors_total",
			Help: "ESTALE errors observed by operation and volume",
		},
		[]string{"operation", "volume"},
	)
)

// Memory metrics
var (
	MemoryUsageRatio = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "image_resize_ai_memory_usage_ratio",
			Help: "Heap allocation as a fraction of the configured memory limit",
		},
	)

	MemoryPaused = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "image_resize_ai_memory_paused",
			Help: "Whether builds are paused due to memory pressure (1 = paused)",
		},
	)

	MemoryGCPauses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "image_resize_ai_memory_gc_pauses_total",
			Help: "Number of times builds were paused for memory pressure",
		},
	)

	GoMemLimit = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "image_resize_ai_go_memlimit_bytes",
			Help: "Configured GOMEMLIMIT in bytes",
		},
	)
)

// Application info
var (
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "image_resize_ai_app_info",
			Help: "Application build information",
		},
		[]string{"version", "commit", "go_version"},
	)
)
