// Package memory sizes the Go heap for containers and throttles artifact
// builds under memory pressure.
//
// # Configuration
//
// Call [ConfigureFromEnv] first thing in main:
//
//   - GOMEMLIMIT: standard Go variable, takes precedence when set.
//   - MEMORY_LIMIT: container limit in bytes (Kubernetes Downward API).
//   - MEMORY_RATIO: share of MEMORY_LIMIT given to the Go heap, default 0.85.
//     Decoded images held by libvips live outside the Go heap, so
//     transform-heavy deployments should lower it to around 0.75.
//
// # Build Throttling
//
// [Monitor] samples heap usage and pauses new builds once usage crosses the
// critical watermark, resuming below the high watermark. The transform
// engine calls [Monitor.Wait] before decoding a source image:
//
//	monitor := memory.NewMonitor(memory.DefaultConfig())
//	monitor.Start()
//	defer monitor.Stop()
//	eng := engine.New(..., engine.WithThrottle(monitor))
//
// Cache hits never wait; only builds do.
package memory
