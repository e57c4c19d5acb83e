package app

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"image-resize-ai/internal/jobs"
	"image-resize-ai/internal/lock"
	"image-resize-ai/internal/media"
	"image-resize-ai/internal/mediaerr"
	"image-resize-ai/internal/params"
	"image-resize-ai/internal/startup"
)

func testConfig(t *testing.T) *startup.Config {
	t.Helper()
	root := t.TempDir()
	cfg := &startup.Config{
		MediaDir:          filepath.Join(root, "media"),
		CacheDir:          filepath.Join(root, "cache"),
		DatabaseDir:       filepath.Join(root, "db"),
		DatabasePath:      filepath.Join(root, "db", "image-resize-ai.db"),
		LockDir:           filepath.Join(root, "db", "locks"),
		LockBackend:       startup.LockBackendFile,
		LockStaleAfter:    time.Minute,
		LockWaitTimeout:   5 * time.Second,
		LockRetryInterval: 10 * time.Millisecond,
		LockWaitPolicy:    lock.PolicyWait,
		LockReclaimPolicy: lock.ReclaimRebuild,
		PromptPolicy:      params.PromptDeny,
		MaxDimension:      params.DefaultMaxDimension,
		DefaultQuality:    media.DefaultQuality,
		PollTimeout:       time.Second,
		PollInterval:      10 * time.Millisecond,
	}
	for _, dir := range []string{cfg.MediaDir, cfg.CacheDir, cfg.DatabaseDir, cfg.LockDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	return cfg
}

func writePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 10), G: uint8(y * 10), B: 120, A: 255})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func TestNewWiresTransformsAndJobs(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	for _, backend := range []string{startup.LockBackendFile, startup.LockBackendSQLite} {
		t.Run(backend, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.LockBackend = backend
			writePNG(t, filepath.Join(cfg.MediaDir, "cat.png"), 20, 10)

			a, err := New(context.Background(), cfg, Options{})
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			defer a.Close()

			if a.Provider {
				t.Error("Provider = true without an API key")
			}

			first, err := a.Engine.HandleRaw(context.Background(), "cat.png", "w=8&f=png")
			if err != nil {
				t.Fatalf("first transform: %v", err)
			}
			second, err := a.Engine.HandleRaw(context.Background(), "pub/media/cat.png", "format=png&width=8")
			if err != nil {
				t.Fatalf("second transform: %v", err)
			}
			if first.FromCache || !second.FromCache {
				t.Errorf("FromCache = %v then %v, want false then true", first.FromCache, second.FromCache)
			}
			if first.CacheKey != second.CacheKey {
				t.Errorf("cache keys differ: %s vs %s", first.CacheKey, second.CacheKey)
			}

			_, err = a.Videos.Submit(context.Background(), jobs.SubmitRequest{Asset: "cat.png", Prompt: "the cat waves"})
			if !errors.Is(err, mediaerr.ErrProvider) {
				t.Errorf("Submit without provider error = %v, want provider error", err)
			}

			stats := a.Stats()
			if stats.CacheEntries != 1 {
				t.Errorf("CacheEntries = %d, want 1", stats.CacheEntries)
			}
		})
	}
}
