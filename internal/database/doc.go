// Package database provides SQLite storage for the image-resize-ai service.
//
// It holds:
//   - Video job records, one row per fingerprint (implements jobs.Store)
//   - Build locks for deployments without a shared filesystem
//     (Database.Locker implements lock.Locker)
//   - Service metadata such as the last cache sweep time
//
// The database uses WAL mode with a busy timeout so several server and CLI
// processes can share one file. Insert-if-absent and compare-and-delete
// statements are the only coordination primitives; no row is locked across
// calls.
package database
