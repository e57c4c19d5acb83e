package handlers

import (
	"context"
	"sync/atomic"
	"time"

	"image-resize-ai/internal/engine"
	"image-resize-ai/internal/filesystem"
	"image-resize-ai/internal/jobs"
)

// Transformer serves image transform requests. *engine.Engine implements it.
type Transformer interface {
	HandleRaw(ctx context.Context, rawPath, rawQuery string) (engine.Result, error)
}

// VideoService runs video jobs. *jobs.Service implements it.
type VideoService interface {
	Submit(ctx context.Context, req jobs.SubmitRequest) (jobs.Result, error)
	Poll(ctx context.Context, req jobs.PollRequest) (jobs.Result, error)
	SubmitAndWait(ctx context.Context, req jobs.SubmitRequest, timeout, interval time.Duration) (jobs.Result, error)
	Config() jobs.Config
}

// Pinger reports whether a dependency is reachable. *database.Database
// implements it.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Handlers struct {
	transformer Transformer
	videos      VideoService
	db          Pinger
	cacheDir    string
	retry       filesystem.RetryConfig
	started     time.Time
	ready       atomic.Bool
}

// New creates the handler set. videos may be nil when no provider is
// configured; the video endpoints then answer 503.
func New(transformer Transformer, videos VideoService, db Pinger, cacheDir string) *Handlers {
	return &Handlers{
		transformer: transformer,
		videos:      videos,
		db:          db,
		cacheDir:    cacheDir,
		retry:       filesystem.DefaultRetryConfig(),
		started:     time.Now(),
	}
}

// SetReady flips the readiness probe once startup has finished.
func (h *Handlers) SetReady(ready bool) {
	h.ready.Store(ready)
}
