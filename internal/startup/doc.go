// Package startup handles application initialization, configuration loading,
// and startup/shutdown logging.
//
// # Configuration
//
// [LoadConfig] reads settings in increasing precedence from a .env file in
// the working directory, the YAML file named by CONFIG_FILE (a flat mapping
// of variable names to scalar values), and the process environment.
//
// Directories and server:
//   - MEDIA_DIR: source assets (default: /media)
//   - CACHE_DIR: transform and video artifacts (default: /cache)
//   - DATABASE_DIR: SQLite database and file locks (default: /database)
//   - PORT, METRICS_PORT, METRICS_ENABLED (default: 8080, 9090, true)
//   - PUBLIC_BASE_URL: prefix of returned artifact URLs
//
// Provider:
//   - GEMINI_API_KEY: enables video and prompt generation
//   - GOOGLE_API_DOMAIN, IMAGE_MODEL, VIDEO_MODEL
//   - PROVIDER_TIMEOUT, DOWNLOAD_TIMEOUT, POLL_TIMEOUT, POLL_INTERVAL
//
// Build locks:
//   - LOCK_BACKEND: file or sqlite (default: file)
//   - LOCK_STALE_AFTER, LOCK_WAIT_TIMEOUT, LOCK_RETRY_INTERVAL
//   - LOCK_WAIT_POLICY: wait or failfast
//   - LOCK_RECLAIM_POLICY: rebuild or resubmit
//
// Requests and cache:
//   - STRICT_PARAMS: reject unknown parameters (default: false)
//   - PROMPT_POLICY: deny, signed or allow (default: deny)
//   - TOKEN_SIGNING_KEY: key for signed opaque tokens
//   - MAX_DIMENSION, DEFAULT_QUALITY
//   - CACHE_TTL: sweep entries older than this; 0 disables (default: 0)
//   - SWEEP_INTERVAL: how often the sweeper runs (default: 1h)
//
// Logging and memory:
//   - LOG_LEVEL, LOG_STATIC_FILES, LOG_HEALTH_CHECKS
//   - MEMORY_LIMIT, MEMORY_RATIO, GOMEMLIMIT
//
// Durations accept Go syntax ("90s", "5m") or bare seconds.
//
// # Build Information
//
// Build-time variables are injected via ldflags and exposed via [GetBuildInfo].
//
// # Lifecycle Logging
//
//   - [LogDatabaseInit], [LogTransformerInit], [LogProviderInit]
//   - [LogHTTPRoutes]: registered routes (debug level)
//   - [LogServerStarted], [LogShutdownInitiated], [LogShutdownComplete]
package startup
