package metrics

// InitializeMetrics pre-populates all expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	// --- Filesystem operation metrics (per volume × operation) ---
	volumes := []string{"media", "cache", "database", "unknown"}
	fsOps := []string{"stat", "open", "read", "write", "rename"}

	for _, vol := range volumes {
		for _, op := range fsOps {
			FilesystemOperationDuration.WithLabelValues(vol, op)
			FilesystemOperationErrors.WithLabelValues(vol, op)
			FilesystemRetryAttempts.WithLabelValues(op, vol)
			FilesystemRetrySuccess.WithLabelValues(op, vol)
			FilesystemRetryFailures.WithLabelValues(op, vol)
			FilesystemStaleErrors.WithLabelValues(op, vol)
			FilesystemRetryDuration.WithLabelValues(op, vol)
		}
	}

	// --- Transform outcomes ---
	for _, r := range []string{"hit", "miss", "error"} {
		TransformRequestsTotal.WithLabelValues(r)
	}
	for _, k := range []string{"invalid_params", "asset_not_found", "lock_timeout",
		"build_failure", "store_io", "provider", "unknown"} {
		TransformErrorsTotal.WithLabelValues(k)
	}
	for _, s := range []string{"transform", "prompt"} {
		TransformBuildDuration.WithLabelValues(s)
	}
	for _, s := range []string{"success", "error"} {
		CacheWritesTotal.WithLabelValues(s)
	}

	// --- Build locks ---
	for _, backend := range []string{"file", "sqlite"} {
		for _, o := range []string{"acquired", "held", "reclaimed", "error"} {
			LockAcquisitionsTotal.WithLabelValues(backend, o)
		}
		for _, o := range []string{"released", "not_holder", "error"} {
			LockReleasesTotal.WithLabelValues(backend, o)
		}
	}

	// --- Video jobs ---
	for _, o := range []string{"cached", "pending", "submitted", "failed", "error"} {
		JobSubmissionsTotal.WithLabelValues(o)
	}
	for _, o := range []string{"completed", "running", "failed", "error"} {
		JobPollsTotal.WithLabelValues(o)
	}
	for _, s := range []string{"submitted", "running", "completed", "failed"} {
		JobsByStatus.WithLabelValues(s)
	}
	for _, op := range []string{"submit", "status", "download", "generate_image"} {
		ProviderRequestDuration.WithLabelValues(op)
		ProviderErrorsTotal.WithLabelValues(op)
	}

	// --- DB query operations ---
	for _, op := range []string{"initialize_schema", "create_job", "get_job", "get_job_by_operation",
		"set_job_running", "complete_job", "fail_job", "delete_job", "count_jobs",
		"lock_acquire", "lock_reclaim", "lock_release", "get_metadata", "set_metadata"} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}
}
