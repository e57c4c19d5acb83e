// Package app assembles the transform engine, the video job service and
// their storage from a startup.Config. The server and mediactl both start
// from here.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"image-resize-ai/internal/assets"
	"image-resize-ai/internal/cache"
	"image-resize-ai/internal/database"
	"image-resize-ai/internal/engine"
	"image-resize-ai/internal/filesystem"
	"image-resize-ai/internal/gemini"
	"image-resize-ai/internal/jobs"
	"image-resize-ai/internal/lock"
	"image-resize-ai/internal/logging"
	"image-resize-ai/internal/media"
	"image-resize-ai/internal/memory"
	"image-resize-ai/internal/metrics"
	"image-resize-ai/internal/startup"
)

// App holds the wired components. Videos is always set; without an API key
// every submission fails with a provider error.
type App struct {
	Config   *startup.Config
	DB       *database.Database
	Cache    *cache.Store
	Assets   *assets.Resolver
	Locker   lock.Locker
	Engine   *engine.Engine
	Videos   *jobs.Service
	Monitor  *memory.Monitor
	Provider bool

	vips bool
}

// Options controls the optional parts of New.
type Options struct {
	// Vips starts libvips; without it the pure-Go backend serves.
	Vips bool
	// Monitor starts the memory monitor and throttles builds on it.
	Monitor bool
}

// New opens the database and builds every component. Close releases them.
func New(ctx context.Context, cfg *startup.Config, opts Options) (*App, error) {
	a := &App{Config: cfg}
	filesystem.SetObserver(metrics.NewFilesystemObserver())
	filesystem.SetDefaultVolumeResolver(filesystem.NewVolumeResolver(map[string]string{
		"media":    cfg.MediaDir,
		"cache":    cfg.CacheDir,
		"database": cfg.DatabaseDir,
	}))

	dbStart := time.Now()
	db, err := database.New(ctx, cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("initialize database: %w", err)
	}
	a.DB = db
	startup.LogDatabaseInit(time.Since(dbStart))

	if err := a.build(ctx, opts); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context, opts Options) error {
	cfg := a.Config

	var err error
	if a.Cache, err = cache.New(cfg.CacheDir); err != nil {
		return err
	}
	if a.Assets, err = assets.NewResolver(cfg.MediaDir); err != nil {
		return err
	}

	switch cfg.LockBackend {
	case startup.LockBackendSQLite:
		a.Locker = a.DB.Locker()
	default:
		if a.Locker, err = lock.NewFileLocker(cfg.LockDir); err != nil {
			return err
		}
	}

	if opts.Vips {
		if err := media.InitVips(); err != nil {
			logging.Warn("libvips unavailable, using the pure-Go backend: %v", err)
		} else {
			a.vips = true
		}
	}
	startup.LogTransformerInit(media.IsVipsAvailable(), cfg.LockBackend)

	mediaOpts := media.DefaultOptions()
	mediaOpts.DefaultQuality = cfg.DefaultQuality
	transformer := media.NewTransformer(mediaOpts)

	var (
		generator media.PromptGenerator
		provider  jobs.Provider
	)
	client, err := gemini.NewClient(ctx, cfg.GeminiOptions())
	switch {
	case errors.Is(err, gemini.ErrNoAPIKey):
	case err != nil:
		return fmt.Errorf("initialize gemini client: %w", err)
	default:
		generator = gemini.NewImageClient(client)
		provider = gemini.NewVideoClient(client)
		a.Provider = true
	}
	startup.LogProviderInit(a.Provider, cfg.VideoModel, cfg.ImageModel)

	decode, err := cfg.DecodeOptions()
	if err != nil {
		return err
	}

	a.Engine = engine.New(a.Assets, a.Cache, a.Locker, transformer, generator, engine.Config{
		Wait:          cfg.WaitOptions(),
		Decode:        decode,
		PublicBaseURL: cfg.PublicBaseURL,
	})
	if opts.Monitor {
		a.Monitor = memory.NewMonitor(memory.DefaultConfig())
		a.Monitor.Start()
		a.Engine.WithThrottle(a.Monitor)
	}

	jobCfg := jobs.DefaultConfig()
	jobCfg.ProviderTimeout = cfg.ProviderTimeout
	jobCfg.DownloadTimeout = cfg.DownloadTimeout
	jobCfg.PollTimeout = cfg.PollTimeout
	jobCfg.PollInterval = cfg.PollInterval
	jobCfg.PublicBaseURL = cfg.PublicBaseURL
	jobCfg.Lock = cfg.WaitOptions()
	a.Videos = jobs.NewService(a.DB, provider, a.Assets, a.Cache, a.Locker, jobCfg)
	return nil
}

// Stats feeds the metrics collector.
func (a *App) Stats() metrics.Stats {
	var stats metrics.Stats
	if entries, bytes, err := a.Cache.Usage(); err != nil {
		logging.Warn("Failed to measure cache usage: %v", err)
	} else {
		stats.CacheEntries = entries
		stats.CacheBytes = bytes
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if counts, err := a.DB.CountJobsByStatus(ctx); err != nil {
		logging.Warn("Failed to count jobs: %v", err)
	} else {
		stats.JobsByStatus = counts
	}
	a.DB.UpdateDBMetrics()
	return stats
}

// Close stops the monitor, shuts libvips down and closes the database.
func (a *App) Close() {
	if a.Monitor != nil {
		a.Monitor.Stop()
	}
	if a.vips {
		media.ShutdownVips()
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			logging.Warn("Failed to close database: %v", err)
		}
	}
}
