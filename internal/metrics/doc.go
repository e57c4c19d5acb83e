// Package metrics provides Prometheus instrumentation for image-resize-ai.
//
// All metrics are registered with promauto at package init and prefixed with
// "image_resize_ai_". They are served by the dedicated metrics listener
// started in main (METRICS_PORT), never on the application port.
//
// # Metric Categories
//
// ## HTTP Metrics
//   - HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight
//
// ## Transform Metrics
//   - TransformRequestsTotal: requests by result (hit, miss, error)
//   - TransformErrorsTotal: failures by error kind
//   - TransformBuildDuration: build time by source (transform, prompt)
//   - TransformBuildsInProgress, TransformSharedResults
//
// ## Cache Metrics
//   - CacheEntries, CacheSizeBytes: set by the Collector
//   - CacheWritesTotal, CacheSweepRemovedTotal, CacheSweepLastTimestamp
//
// ## Build Lock Metrics
//   - LockAcquisitionsTotal, LockReleasesTotal: by backend (file, sqlite) and outcome
//   - LockWaitDuration, LockWaitTimeoutsTotal
//
// ## Video Job Metrics
//   - JobSubmissionsTotal, JobPollsTotal, JobsByStatus
//   - ProviderRequestDuration, ProviderErrorsTotal
//
// ## Filesystem Metrics
//
// Recorded through NewFilesystemObserver, which implements filesystem.Observer
// so the filesystem package stays free of a metrics import:
//   - FilesystemOperationDuration, FilesystemOperationErrors
//   - FilesystemRetryAttempts, FilesystemRetrySuccess, FilesystemRetryFailures,
//     FilesystemRetryDuration, FilesystemStaleErrors
//
// ## Memory Metrics
//   - MemoryUsageRatio, MemoryPaused, MemoryGCPauses, GoMemLimit
//
// # Initialization
//
// Call InitializeMetrics once at startup so every labelled series exists
// from the first scrape, then start a Collector with a StatsProvider to keep
// the cache and job gauges current.
package metrics
