/*
Package filesystem provides resilient filesystem operations with automatic retry logic
for NFS stale file handle errors, plus the atomic write used by the artifact cache.

# Retry Behavior

StatWithRetry, OpenWithRetry and ReadFileWithRetry wrap the os equivalents.
Only ESTALE (errno 116) triggers a retry; every other error is returned
immediately. Defaults: 3 retries, 50ms initial backoff doubling to 500ms.

	info, err := filesystem.StatWithRetry(path, filesystem.DefaultRetryConfig())

# Atomic Writes

WriteFileAtomic writes to a uniquely named temp file in the destination
directory, fsyncs it, and renames it into place. Concurrent writers of the
same path each rename a complete file; the last rename wins and no reader
ever observes a torn file.

# Metrics

The package does not import the metrics package. Call SetObserver at startup
with metrics.NewFilesystemObserver() and SetDefaultVolumeResolver with the
configured media, cache and database roots to label operations by volume.
*/
package filesystem
