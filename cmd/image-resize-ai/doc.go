// Package main provides the entry point for the image-resize-ai server.
//
// image-resize-ai serves resized, re-encoded and AI-edited images on demand
// and runs asynchronous image-to-video jobs against the Gemini API. Every
// result is cached on disk under a deterministic fingerprint, so identical
// requests are built once no matter how many clients or processes ask.
//
// # Application Lifecycle
//
//  1. Memory Configuration: Sets GOMEMLIMIT from MEMORY_LIMIT when running in a container
//  2. Configuration Loading: .env, optional CONFIG_FILE (YAML), then environment variables
//  3. Database Initialization: Opens the SQLite job and lock database
//  4. Component Initialization:
//     - Cache store and asset resolver
//     - Build locker (file or sqlite backend)
//     - Image transformer (libvips, falling back to pure Go)
//     - Gemini clients when GEMINI_API_KEY is set
//     - Transform engine, throttled by the memory monitor
//     - Video job service
//  5. HTTP Server Setup: Routes, logging, compression and metrics middleware
//  6. Graceful Shutdown: SIGINT/SIGTERM stops the listener, then background work
//
// # Background Services
//
//   - Memory Monitor: pauses new builds under memory pressure
//   - Metrics Collector: refreshes cache and job gauges every minute
//   - Cache Sweeper: removes entries older than CACHE_TTL every SWEEP_INTERVAL
//
// # HTTP Server
//
//  1. Main Server (default port 8080):
//     - GET /media/{path}: transformed image bytes
//     - GET /api/transform/{path}: JSON descriptor of the same artifact
//     - POST /api/video, GET /api/video/status: video jobs
//     - GET /cache/{path}: cached artifacts such as generated videos
//     - /health, /healthz, /livez, /readyz, /version
//
//  2. Metrics Server (default port 9090, optional):
//     - Prometheus metrics endpoint (/metrics)
//     - Liveness endpoint (/health)
//
// # Environment Variables
//
//   - MEDIA_DIR, CACHE_DIR, DATABASE_DIR: source assets, artifacts, SQLite file
//   - PORT, METRICS_PORT, METRICS_ENABLED
//   - PUBLIC_BASE_URL: prefix for returned artifact URLs
//   - GEMINI_API_KEY, GOOGLE_API_DOMAIN, IMAGE_MODEL, VIDEO_MODEL
//   - PROVIDER_TIMEOUT, DOWNLOAD_TIMEOUT, POLL_TIMEOUT, POLL_INTERVAL
//   - LOCK_BACKEND, LOCK_STALE_AFTER, LOCK_WAIT_TIMEOUT, LOCK_RETRY_INTERVAL,
//     LOCK_WAIT_POLICY, LOCK_RECLAIM_POLICY
//   - CACHE_TTL, SWEEP_INTERVAL
//   - STRICT_PARAMS, PROMPT_POLICY, TOKEN_SIGNING_KEY, MAX_DIMENSION, DEFAULT_QUALITY
//   - DEBUG, LOG_LEVEL, LOG_STATIC_FILES, LOG_HEALTH_CHECKS
//   - GOMEMLIMIT, MEMORY_LIMIT, MEMORY_RATIO
//
// # Build Requirements
//
// CGO is required for SQLite and libvips:
//
//	go build -o image-resize-ai ./cmd/image-resize-ai
//
// # Related Packages
//
//   - [image-resize-ai/internal/app]: component wiring shared with mediactl
//   - [image-resize-ai/internal/engine]: transform cache engine
//   - [image-resize-ai/internal/jobs]: video job state machine
//   - [image-resize-ai/internal/handlers]: HTTP request handlers
//   - [image-resize-ai/internal/startup]: configuration and initialization
package main
