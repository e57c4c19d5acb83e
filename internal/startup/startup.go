package startup

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"image-resize-ai/internal/cache"
	"image-resize-ai/internal/gemini"
	"image-resize-ai/internal/lock"
	"image-resize-ai/internal/logging"
	"image-resize-ai/internal/media"
	"image-resize-ai/internal/params"
)

// Build-time variables (injected via -ldflags)
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
	GoVersion = runtime.Version()
)

// BuildInfo contains version and build information
type BuildInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildTime string `json:"buildTime"`
	GoVersion string `json:"goVersion"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// GetBuildInfo returns the current build information
func GetBuildInfo() BuildInfo {
	return BuildInfo{
		Version:   Version,
		Commit:    Commit,
		BuildTime: BuildTime,
		GoVersion: GoVersion,
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
}

// RouteInfo contains information about a registered route
type RouteInfo struct {
	Method string
	Path   string
	Name   string
}

// Lock backends.
const (
	LockBackendFile   = "file"
	LockBackendSQLite = "sqlite"
)

// Config holds all application configuration
type Config struct {
	MediaDir       string
	CacheDir       string
	DatabaseDir    string
	Port           string
	MetricsPort    string
	MetricsEnabled bool
	PublicBaseURL  string

	// Provider
	GeminiAPIKey    string
	GoogleAPIDomain string
	ImageModel      string
	VideoModel      string
	ProviderTimeout time.Duration
	DownloadTimeout time.Duration
	PollTimeout     time.Duration
	PollInterval    time.Duration

	// Build locks
	LockBackend       string
	LockStaleAfter    time.Duration
	LockWaitTimeout   time.Duration
	LockRetryInterval time.Duration
	LockWaitPolicy    lock.Policy
	LockReclaimPolicy lock.ReclaimPolicy

	// Cache lifecycle
	CacheTTL      time.Duration
	SweepInterval time.Duration

	// Request decoding and transforms
	StrictParams    bool
	PromptPolicy    params.PromptPolicy
	TokenSigningKey string
	MaxDimension    int
	DefaultQuality  int

	LogStaticFiles  bool
	LogHealthChecks bool

	// Derived paths
	DatabasePath string
	LockDir      string
}

// LoadConfig loads and validates configuration from .env, the optional
// CONFIG_FILE and environment variables, in increasing precedence.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")

	if err := loadEnvironment(); err != nil {
		return nil, err
	}

	config := readConfig()
	config.log()

	if err := config.Validate(); err != nil {
		return nil, err
	}

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	if err := config.resolveDirectories(); err != nil {
		return nil, err
	}

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Database:          ENABLED (required)")
	logging.Info("    Video generation:  %s", enabledString(config.GeminiAPIKey != ""))
	logging.Info("    Prompt transforms: %s", enabledString(config.GeminiAPIKey != "" && config.PromptPolicy != params.PromptDeny))
	logging.Info("    Cache sweeper:     %s", enabledString(config.CacheTTL > 0))
	logging.Info("    Metrics:           %s", enabledString(config.MetricsEnabled))

	return config, nil
}

// LoadToolConfig loads configuration the same way as LoadConfig without the
// banner and configuration report, for command-line tools whose stdout
// carries results.
func LoadToolConfig() (*Config, error) {
	if err := loadEnvironment(); err != nil {
		return nil, err
	}
	config := readConfig()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := config.resolveDirectories(); err != nil {
		return nil, err
	}
	return config, nil
}

// readConfig reads every setting from the environment without touching
// the filesystem.
func readConfig() *Config {
	wait := lock.DefaultWaitOptions()
	return &Config{
		MediaDir:       getEnv("MEDIA_DIR", "/media"),
		CacheDir:       getEnv("CACHE_DIR", "/cache"),
		DatabaseDir:    getEnv("DATABASE_DIR", "/database"),
		Port:           getEnv("PORT", "8080"),
		MetricsPort:    getEnv("METRICS_PORT", "9090"),
		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
		PublicBaseURL:  cache.NormalizeBaseURL(getEnv("PUBLIC_BASE_URL", "")),

		GeminiAPIKey:    strings.TrimSpace(getEnv("GEMINI_API_KEY", "")),
		GoogleAPIDomain: getEnv("GOOGLE_API_DOMAIN", gemini.DefaultBaseURL),
		ImageModel:      getEnv("IMAGE_MODEL", gemini.DefaultImageModel),
		VideoModel:      getEnv("VIDEO_MODEL", gemini.DefaultVideoModel),
		ProviderTimeout: getEnvDuration("PROVIDER_TIMEOUT", 60*time.Second),
		DownloadTimeout: getEnvDuration("DOWNLOAD_TIMEOUT", 5*time.Minute),
		PollTimeout:     getEnvDuration("POLL_TIMEOUT", 300*time.Second),
		PollInterval:    getEnvDuration("POLL_INTERVAL", 10*time.Second),

		LockBackend:       strings.ToLower(getEnv("LOCK_BACKEND", LockBackendFile)),
		LockStaleAfter:    getEnvDuration("LOCK_STALE_AFTER", wait.StaleAfter),
		LockWaitTimeout:   getEnvDuration("LOCK_WAIT_TIMEOUT", wait.Timeout),
		LockRetryInterval: getEnvDuration("LOCK_RETRY_INTERVAL", wait.RetryInterval),
		LockWaitPolicy:    lock.ParsePolicy(getEnv("LOCK_WAIT_POLICY", string(lock.PolicyWait))),
		LockReclaimPolicy: lock.ParseReclaimPolicy(getEnv("LOCK_RECLAIM_POLICY", string(lock.ReclaimRebuild))),

		CacheTTL:      getEnvDuration("CACHE_TTL", 0),
		SweepInterval: getEnvDuration("SWEEP_INTERVAL", time.Hour),

		StrictParams:    getEnvBool("STRICT_PARAMS", false),
		PromptPolicy:    params.ParsePromptPolicy(getEnv("PROMPT_POLICY", string(params.PromptDeny))),
		TokenSigningKey: getEnv("TOKEN_SIGNING_KEY", ""),
		MaxDimension:    getEnvInt("MAX_DIMENSION", params.DefaultMaxDimension),
		DefaultQuality:  getEnvInt("DEFAULT_QUALITY", media.DefaultQuality),

		LogStaticFiles:  getEnvBool("LOG_STATIC_FILES", false),
		LogHealthChecks: getEnvBool("LOG_HEALTH_CHECKS", true),
	}
}

func (c *Config) log() {
	logging.Info("  MEDIA_DIR:            %s", c.MediaDir)
	logging.Info("  CACHE_DIR:            %s", c.CacheDir)
	logging.Info("  DATABASE_DIR:         %s", c.DatabaseDir)
	logging.Info("  PORT:                 %s", c.Port)
	logging.Info("  METRICS_PORT:         %s", c.MetricsPort)
	logging.Info("  METRICS_ENABLED:      %v", c.MetricsEnabled)
	logging.Info("  PUBLIC_BASE_URL:      %s", c.PublicBaseURL)
	logging.Info("  GEMINI_API_KEY:       %s", maskSecret(c.GeminiAPIKey))
	logging.Info("  GOOGLE_API_DOMAIN:    %s", c.GoogleAPIDomain)
	logging.Info("  IMAGE_MODEL:          %s", c.ImageModel)
	logging.Info("  VIDEO_MODEL:          %s", c.VideoModel)
	logging.Info("  PROVIDER_TIMEOUT:     %v", c.ProviderTimeout)
	logging.Info("  DOWNLOAD_TIMEOUT:     %v", c.DownloadTimeout)
	logging.Info("  POLL_TIMEOUT:         %v", c.PollTimeout)
	logging.Info("  POLL_INTERVAL:        %v", c.PollInterval)
	logging.Info("  LOCK_BACKEND:         %s", c.LockBackend)
	logging.Info("  LOCK_STALE_AFTER:     %v", c.LockStaleAfter)
	logging.Info("  LOCK_WAIT_TIMEOUT:    %v", c.LockWaitTimeout)
	logging.Info("  LOCK_RETRY_INTERVAL:  %v", c.LockRetryInterval)
	logging.Info("  LOCK_WAIT_POLICY:     %s", c.LockWaitPolicy)
	logging.Info("  LOCK_RECLAIM_POLICY:  %s", c.LockReclaimPolicy)
	logging.Info("  CACHE_TTL:            %v", c.CacheTTL)
	logging.Info("  SWEEP_INTERVAL:       %v", c.SweepInterval)
	logging.Info("  STRICT_PARAMS:        %v", c.StrictParams)
	logging.Info("  PROMPT_POLICY:        %s", c.PromptPolicy)
	logging.Info("  TOKEN_SIGNING_KEY:    %s", maskSecret(c.TokenSigningKey))
	logging.Info("  MAX_DIMENSION:        %d", c.MaxDimension)
	logging.Info("  DEFAULT_QUALITY:      %d", c.DefaultQuality)
	logging.Info("  LOG_STATIC_FILES:     %v", c.LogStaticFiles)
	logging.Info("  LOG_HEALTH_CHECKS:    %v", c.LogHealthChecks)
	logging.Info("  LOG_LEVEL:            %s", logging.GetLevel())
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.LockBackend != LockBackendFile && c.LockBackend != LockBackendSQLite {
		return fmt.Errorf("LOCK_BACKEND must be %q or %q, got %q", LockBackendFile, LockBackendSQLite, c.LockBackend)
	}
	if c.PromptPolicy == params.PromptSigned && c.TokenSigningKey == "" {
		return fmt.Errorf("PROMPT_POLICY=signed requires TOKEN_SIGNING_KEY")
	}
	if c.DefaultQuality < 1 || c.DefaultQuality > 100 {
		return fmt.Errorf("DEFAULT_QUALITY must be between 1 and 100, got %d", c.DefaultQuality)
	}
	if c.MaxDimension < 1 {
		return fmt.Errorf("MAX_DIMENSION must be positive, got %d", c.MaxDimension)
	}
	if c.LockRetryInterval <= 0 {
		return fmt.Errorf("LOCK_RETRY_INTERVAL must be positive")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("POLL_INTERVAL must be positive")
	}
	return nil
}

func (c *Config) resolveDirectories() error {
	var err error
	for _, d := range []struct {
		path *string
		name string
	}{
		{&c.MediaDir, "media"},
		{&c.CacheDir, "cache"},
		{&c.DatabaseDir, "database"},
	} {
		*d.path, err = filepath.Abs(*d.path)
		if err != nil {
			return fmt.Errorf("failed to resolve %s directory path: %w", d.name, err)
		}
		logging.Info("  %s directory (absolute): %s", strings.ToUpper(d.name[:1])+d.name[1:], *d.path)
	}

	// Media is mounted read-only in most deployments: warn, don't fail.
	if err := ensureDirectory(c.MediaDir, "media"); err != nil {
		logging.Warn("  Media directory issue: %v", err)
	}

	for _, d := range []struct {
		path string
		name string
	}{
		{c.DatabaseDir, "database"},
		{c.CacheDir, "cache"},
	} {
		if err := ensureDirectory(d.path, d.name); err != nil {
			return fmt.Errorf("%s directory error: %w", d.name, err)
		}
		if err := testWriteAccess(d.path); err != nil {
			return fmt.Errorf("%s directory is not writable: %w", d.name, err)
		}
		logging.Info("  [OK] %s directory is writable", d.name)
	}

	c.DatabasePath = filepath.Join(c.DatabaseDir, "image-resize-ai.db")
	c.LockDir = filepath.Join(c.DatabaseDir, "locks")
	if c.LockBackend == LockBackendFile {
		if err := ensureDirectory(c.LockDir, "lock"); err != nil {
			return fmt.Errorf("lock directory error: %w", err)
		}
	}
	return nil
}

// WaitOptions returns the build lock wait settings.
func (c *Config) WaitOptions() lock.WaitOptions {
	return lock.WaitOptions{
		Policy:        c.LockWaitPolicy,
		Reclaim:       c.LockReclaimPolicy,
		Timeout:       c.LockWaitTimeout,
		RetryInterval: c.LockRetryInterval,
		StaleAfter:    c.LockStaleAfter,
	}
}

// DecodeOptions returns the request decoding settings, building the token
// signer when a signing key is configured.
func (c *Config) DecodeOptions() (params.DecodeOptions, error) {
	opts := params.DecodeOptions{
		Parse:        params.ParseOptions{Strict: c.StrictParams, MaxDimension: c.MaxDimension},
		PromptPolicy: c.PromptPolicy,
	}
	if c.TokenSigningKey != "" {
		signer, err := params.NewSigner([]byte(c.TokenSigningKey))
		if err != nil {
			return params.DecodeOptions{}, fmt.Errorf("token signer: %w", err)
		}
		opts.Signer = signer
	}
	return opts, nil
}

// GeminiOptions returns the provider client settings.
func (c *Config) GeminiOptions() gemini.Options {
	return gemini.Options{
		APIKey:     c.GeminiAPIKey,
		BaseURL:    c.GoogleAPIDomain,
		ImageModel: c.ImageModel,
		VideoModel: c.VideoModel,
	}
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

// LogDatabaseInit logs database initialization
func LogDatabaseInit(duration time.Duration) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DATABASE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  [OK] Database initialized in %v", duration)
}

// LogTransformerInit logs which image backend serves transforms.
func LogTransformerInit(vipsAvailable bool, lockBackend string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("TRANSFORM ENGINE INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	if vipsAvailable {
		logging.Info("  [OK] libvips backend (all formats)")
	} else {
		logging.Warn("  libvips unavailable, using the pure Go backend")
		logging.Warn("  WebP, AVIF and HEIF output will be rejected")
	}
	logging.Info("  Build lock backend: %s", lockBackend)
}

// LogProviderInit logs whether the generative provider is configured.
func LogProviderInit(configured bool, videoModel, imageModel string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("PROVIDER INITIALIZATION")
	logging.Info("------------------------------------------------------------")
	if !configured {
		logging.Warn("  GEMINI_API_KEY not set: video and prompt generation disabled")
		return
	}
	logging.Info("  [OK] Video model: %s", videoModel)
	logging.Info("  [OK] Image model: %s", imageModel)
}

// GetRoutes extracts all registered routes from a mux.Router
func GetRoutes(router *mux.Router) ([]RouteInfo, error) {
	var routes []RouteInfo

	err := router.Walk(func(route *mux.Route, _ *mux.Router, _ []*mux.Route) error {
		pathTemplate, err := route.GetPathTemplate()
		if err != nil {
			return err
		}

		methods, err := route.GetMethods()
		if err != nil {
			methods = []string{"*"}
		}

		for _, method := range methods {
			routes = append(routes, RouteInfo{
				Method: method,
				Path:   pathTemplate,
				Name:   route.GetName(),
			})
		}
		return nil
	})

	return routes, err
}

// LogHTTPRoutes logs all registered HTTP routes at debug level
func LogHTTPRoutes(router *mux.Router, logStaticFiles, logHealthChecks bool) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("HTTP SERVER SETUP")
	logging.Info("------------------------------------------------------------")

	if logging.IsDebugEnabled() {
		routes, err := GetRoutes(router)
		if err != nil {
			logging.Warn("error walking routes: %v", err)
		}

		logging.Debug("  Registered routes (%d total):", len(routes))
		logging.Debug("")

		groups := make(map[string][]RouteInfo)
		for _, route := range routes {
			prefix := getRouteGroup(route.Path)
			groups[prefix] = append(groups[prefix], route)
		}

		groupKeys := make([]string, 0, len(groups))
		for k := range groups {
			groupKeys = append(groupKeys, k)
		}
		sort.Strings(groupKeys)

		for _, group := range groupKeys {
			if group != "" {
				logging.Debug("  [%s]", group)
			} else {
				logging.Debug("  [root]")
			}
			for _, route := range groups[group] {
				logging.Debug("    %-6s %s", route.Method, route.Path)
			}
			logging.Debug("")
		}
	}

	logging.Info("  HTTP logging enabled")
	if logStaticFiles {
		logging.Info("    Cache file logging: ON")
	} else {
		logging.Info("    Cache file logging: OFF (set LOG_STATIC_FILES=true to enable)")
	}
	if logHealthChecks {
		logging.Info("    Health check logging: ON")
	} else {
		logging.Info("    Health check logging: OFF (set LOG_HEALTH_CHECKS=true to enable)")
	}
}

// getRouteGroup extracts a group name from a route path
func getRouteGroup(path string) string {
	path = strings.TrimPrefix(path, "/")

	parts := strings.SplitN(path, "/", 2)
	first := parts[0]

	if first == "api" && len(parts) > 1 {
		subParts := strings.SplitN(parts[1], "/", 2)
		return "api/" + subParts[0]
	}

	return first
}

// ServerConfig holds configuration for the server startup log
type ServerConfig struct {
	Port            string
	MetricsPort     string
	MetricsEnabled  bool
	StartupDuration time.Duration
}

// LogServerStarted logs successful server start with all endpoint information
func LogServerStarted(config ServerConfig) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SERVER STARTED")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Startup time:    %v", config.StartupDuration)
	logging.Info("")
	logging.Info("  Endpoints:")
	logging.Info("    Application:   http://0.0.0.0:%s", config.Port)
	if config.MetricsEnabled {
		logging.Info("    Metrics:       http://0.0.0.0:%s/metrics", config.MetricsPort)
	} else {
		logging.Info("    Metrics:       DISABLED")
	}
	logging.Info("")
	logging.Info("  Press Ctrl+C to stop the server")
	logging.Info("------------------------------------------------------------")
	logging.Info("")
}

// LogShutdownInitiated logs shutdown start
func LogShutdownInitiated(signal string) {
	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("SHUTDOWN INITIATED (received %s)", signal)
	logging.Info("------------------------------------------------------------")
}

// LogShutdownStep logs a shutdown step
func LogShutdownStep(step string) {
	logging.Debug("  %s...", step)
}

// LogShutdownStepComplete logs a completed shutdown step
func LogShutdownStepComplete(step string) {
	logging.Info("  [OK] %s", step)
}

// LogShutdownComplete logs shutdown completion
func LogShutdownComplete() {
	logging.Info("  [OK] Shutdown complete")
}

// LogFatal logs a fatal error and exits
func LogFatal(format string, args ...interface{}) {
	logging.Fatal(format, args...)
}

func printBanner() {
	banner := `
------------------------------------------------------------
  _                                            _
 (_)_ __ ___   __ _  __ _  ___       _ __ ___ (_)_______
 | | '_ ' _ \ / _' |/ _' |/ _ \_____| '__/ _ \| |_  / _ \
 | | | | | | | (_| | (_| |  __/_____| | |  __/| |/ /  __/
 |_|_| |_| |_|\__,_|\__, |\___|     |_|  \___||_/___\___|
                    |___/                          + ai
------------------------------------------------------------`
	fmt.Println(banner)
	logging.Info("  Version:    %s", Version)
	logging.Info("  Commit:     %s", Commit)
	logging.Info("  Build Time: %s", BuildTime)
	logging.Info("  Started:    %s", time.Now().Format(time.RFC1123))
	logging.Info("")
}

func logSystemInfo() {
	logging.Info("------------------------------------------------------------")
	logging.Info("SYSTEM INFORMATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  Go version:      %s", runtime.Version())
	logging.Info("  OS/Arch:         %s/%s", runtime.GOOS, runtime.GOARCH)
	logging.Info("  CPUs available:  %d", runtime.NumCPU())
	logging.Info("  GOMAXPROCS:      %d", runtime.GOMAXPROCS(0))

	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		logging.Info("  (Container CPU limit detected)")
	}

	if logging.IsDebugEnabled() {
		if hostname, err := os.Hostname(); err == nil {
			logging.Debug("  Hostname:        %s", hostname)
		}
	}

	logging.Info("")
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}
