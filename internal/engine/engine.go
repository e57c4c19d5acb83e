package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"image-resize-ai/internal/assets"
	"image-resize-ai/internal/cache"
	"image-resize-ai/internal/fingerprint"
	"image-resize-ai/internal/lock"
	"image-resize-ai/internal/logging"
	"image-resize-ai/internal/media"
	"image-resize-ai/internal/mediaerr"
	"image-resize-ai/internal/metrics"
	"image-resize-ai/internal/params"
	"image-resize-ai/internal/workers"
)

// AssetReader loads source assets. *assets.Resolver implements it.
type AssetReader interface {
	Read(virtual string) ([]byte, string, error)
}

// Throttle delays builds under resource pressure. *memory.Monitor
// implements it.
type Throttle interface {
	Wait(ctx context.Context) error
}

// Config tunes an Engine.
type Config struct {
	Wait   lock.WaitOptions
	Decode params.DecodeOptions
	// PublicBaseURL prefixes Result.URL; empty gives host-relative URLs.
	PublicBaseURL string
	// MaxConcurrentBuilds bounds builds running in this process. Zero
	// sizes it from the CPU quota.
	MaxConcurrentBuilds int
}

// Request is one transform: the asset, its params and what the caller may
// use.
type Request struct {
	Asset  assets.Ref
	Params params.Params
	Grants params.Grants
}

// Engine turns transform requests into cached artifacts. Identical
// requests share one build: in-process through singleflight, across
// processes through the Locker.
type Engine struct {
	assets      AssetReader
	store       *cache.Store
	locker      lock.Locker
	transformer media.Transformer
	generator   media.PromptGenerator
	throttle    Throttle
	cfg         Config
	group       singleflight.Group
	slots       chan struct{}
}

// New creates an Engine. generator may be nil, in which case prompt
// requests fail with a build failure.
func New(src AssetReader, store *cache.Store, locker lock.Locker, transformer media.Transformer, generator media.PromptGenerator, cfg Config) *Engine {
	if cfg.Wait.RetryInterval <= 0 && cfg.Wait.Timeout <= 0 {
		cfg.Wait = lock.DefaultWaitOptions()
	}
	if cfg.MaxConcurrentBuilds <= 0 {
		cfg.MaxConcurrentBuilds = workers.ForCPU(0)
	}
	return &Engine{
		assets:      src,
		store:       store,
		locker:      locker,
		transformer: transformer,
		generator:   generator,
		cfg:         cfg,
		slots:       make(chan struct{}, cfg.MaxConcurrentBuilds),
	}
}

// WithThrottle makes every build wait on t before reading its source.
func (e *Engine) WithThrottle(t Throttle) *Engine {
	e.throttle = t
	return e
}

// HandleRaw decodes a request path and query and transforms it.
func (e *Engine) HandleRaw(ctx context.Context, rawPath, rawQuery string) (Result, error) {
	ref, p, grants, err := params.DecodeRequest(rawPath, rawQuery, e.cfg.Decode)
	if err != nil {
		e.recordError(err)
		return Result{}, err
	}
	return e.Transform(ctx, Request{Asset: ref, Params: p, Grants: grants})
}

// Transform returns the artifact for req, building and caching it on a
// miss.
func (e *Engine) Transform(ctx context.Context, req Request) (Result, error) {
	if err := req.Params.Validate(e.cfg.Decode.Parse); err != nil {
		e.recordError(err)
		return Result{}, err
	}

	normalized, err := assets.NormalizePath(req.Asset.Path)
	if err != nil {
		err = mediaerr.New(mediaerr.ErrInvalidParams, "transform", "invalid asset path", err)
		e.recordError(err)
		return Result{}, err
	}
	req.Asset.Path = normalized

	p := req.Params.ForGrants(req.Grants)
	key := fingerprint.Compute(req.Asset, p)
	ckey := cache.Key{Asset: req.Asset.Path, CacheKey: key.CacheKey}

	if res, ok, err := e.lookup(ckey, key); err != nil {
		e.recordError(err)
		return Result{}, err
	} else if ok {
		metrics.TransformRequestsTotal.WithLabelValues("hit").Inc()
		logging.Debug("Transform HIT %s (%s)", key.CacheKey, key.RawCacheKey)
		return res, nil
	}

	// The build outlives any one caller: it runs detached from the
	// leader's cancellation and every caller waits on its own context.
	buildCtx := context.WithoutCancel(ctx)
	ch := e.group.DoChan(key.CacheKey, func() (interface{}, error) {
		return e.build(buildCtx, req.Asset, p, key, ckey)
	})

	select {
	case <-ctx.Done():
		return Result{}, ctx.Err()
	case r := <-ch:
		if r.Err != nil {
			e.recordError(r.Err)
			return Result{}, r.Err
		}
		if r.Shared {
			metrics.TransformSharedResults.Inc()
		}
		res := r.Val.(Result)
		if res.FromCache {
			metrics.TransformRequestsTotal.WithLabelValues("hit").Inc()
		} else {
			metrics.TransformRequestsTotal.WithLabelValues("miss").Inc()
		}
		return res, nil
	}
}

// build runs the miss path: lock, recheck, produce, store, release.
func (e *Engine) build(ctx context.Context, ref assets.Ref, p params.Params, key fingerprint.Key, ckey cache.Key) (Result, error) {
	holder := lock.NewHolderID()
	recheck := func() bool { return e.store.Exists(ckey) }

	wr, err := lock.AcquireWithWait(ctx, e.locker, key.CacheKey, holder, e.cfg.Wait, recheck)
	switch {
	case errors.Is(err, lock.ErrWaitTimeout):
		return Result{}, mediaerr.New(mediaerr.ErrLockTimeout, "transform", "build lock still held, retry later", err)
	case errors.Is(err, lock.ErrReclaimed):
		return Result{}, mediaerr.New(mediaerr.ErrLockTimeout, "transform", "stale build lock cleared, retry the request", err)
	case err != nil:
		return Result{}, mediaerr.New(mediaerr.ErrStoreIO, "transform", "acquire build lock", err)
	}

	if wr.Satisfied {
		return e.mustLookup(ckey, key)
	}
	defer e.release(key.CacheKey, holder)

	if wr.Reclaimed {
		logging.Warn("Reclaimed stale build lock for %s", key.CacheKey)
	}

	// Another process may have finished between our miss and the lock.
	if res, ok, err := e.lookup(ckey, key); err != nil || ok {
		return res, err
	}

	out, err := e.produce(ctx, ref, p)
	if err != nil {
		return Result{}, err
	}

	dataPath, err := e.store.Write(ckey, out.Data, cache.Metadata{
		MimeType:    out.MimeType,
		Extension:   media.ExtensionFor(out.MimeType),
		RawCacheKey: key.RawCacheKey,
	})
	if err != nil {
		return Result{}, mediaerr.New(mediaerr.ErrStoreIO, "transform", "store artifact", err)
	}

	meta, _, err := e.store.Stat(ckey)
	if err != nil {
		return Result{}, mediaerr.New(mediaerr.ErrStoreIO, "transform", "stat stored artifact", err)
	}

	logging.Info("Transform MISS %s built %d bytes %s for %s", key.CacheKey, meta.ByteSize, meta.MimeType, ref.Path)
	return e.result(dataPath, meta, key, false), nil
}

// produce reads the source and runs the transformation capability.
func (e *Engine) produce(ctx context.Context, ref assets.Ref, p params.Params) (media.Output, error) {
	if e.throttle != nil {
		if err := e.throttle.Wait(ctx); err != nil {
			return media.Output{}, mediaerr.New(mediaerr.ErrLockTimeout, "transform", "server under memory pressure", err)
		}
	}

	src, err := e.readAsset(ref.Path)
	if err != nil {
		return media.Output{}, err
	}
	var look []byte
	if p.HasPrompt() && p.Look != "" {
		if look, err = e.readAsset(p.Look); err != nil {
			return media.Output{}, err
		}
	}

	select {
	case e.slots <- struct{}{}:
		defer func() { <-e.slots }()
	case <-ctx.Done():
		return media.Output{}, mediaerr.New(mediaerr.ErrLockTimeout, "transform", "no build slot available", ctx.Err())
	}

	metrics.TransformBuildsInProgress.Inc()
	defer metrics.TransformBuildsInProgress.Dec()

	source := "transform"
	start := time.Now()
	defer func() {
		metrics.TransformBuildDuration.WithLabelValues(source).Observe(time.Since(start).Seconds())
	}()

	if p.HasPrompt() {
		source = "prompt"
		if e.generator == nil {
			return media.Output{}, mediaerr.New(mediaerr.ErrBuildFailure, "transform", "prompt generation is not configured", nil)
		}
		generated, err := e.generator.GenerateFromPrompt(ctx, src, look, p.Prompt, p)
		if err != nil {
			return media.Output{}, asBuildFailure(err)
		}
		src = generated.Data
		p.Prompt = ""
		p.Look = ""
	}

	out, err := e.transformer.Transform(ctx, src, p)
	if err != nil {
		return media.Output{}, asBuildFailure(err)
	}
	return out, nil
}

func (e *Engine) readAsset(virtual string) ([]byte, error) {
	data, _, err := e.assets.Read(virtual)
	switch {
	case err == nil:
		return data, nil
	case errors.Is(err, assets.ErrNotFound):
		return nil, mediaerr.New(mediaerr.ErrAssetNotFound, "transform", "source asset not found: "+virtual, nil)
	case errors.Is(err, assets.ErrTraversal):
		return nil, mediaerr.New(mediaerr.ErrInvalidParams, "transform", "invalid asset path", err)
	default:
		return nil, mediaerr.New(mediaerr.ErrStoreIO, "transform", "read source asset", err)
	}
}

func (e *Engine) lookup(ckey cache.Key, key fingerprint.Key) (Result, bool, error) {
	meta, dataPath, err := e.store.Stat(ckey)
	if errors.Is(err, cache.ErrNotFound) {
		return Result{}, false, nil
	}
	if err != nil {
		return Result{}, false, mediaerr.New(mediaerr.ErrStoreIO, "transform", "cache lookup", err)
	}
	return e.result(dataPath, meta, key, true), true, nil
}

func (e *Engine) mustLookup(ckey cache.Key, key fingerprint.Key) (Result, error) {
	res, ok, err := e.lookup(ckey, key)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{}, mediaerr.New(mediaerr.ErrStoreIO, "transform", "cache entry vanished after build", nil)
	}
	return res, nil
}

func (e *Engine) result(dataPath string, meta cache.Metadata, key fingerprint.Key, fromCache bool) Result {
	res := Result{
		Path:        dataPath,
		MimeType:    meta.MimeType,
		ByteSize:    meta.ByteSize,
		FromCache:   fromCache,
		CacheKey:    key.CacheKey,
		RawCacheKey: key.RawCacheKey,
		CreatedAt:   meta.CreatedAt,
	}
	if rel, err := e.store.RelativePath(dataPath); err == nil {
		res.URL = cache.PublicURL(e.cfg.PublicBaseURL, rel)
	}
	return res
}

func (e *Engine) release(key, holder string) {
	err := e.locker.Release(context.Background(), key, holder)
	switch {
	case err == nil:
	case errors.Is(err, lock.ErrNotHolder):
		logging.Debug("Build lock %s was reclaimed before release", key)
	default:
		logging.Warn("Failed to release build lock %s: %v", key, err)
	}
}

func (e *Engine) recordError(err error) {
	metrics.TransformRequestsTotal.WithLabelValues("error").Inc()
	metrics.TransformErrorsTotal.WithLabelValues(mediaerr.Label(err)).Inc()
}

func asBuildFailure(err error) error {
	if mediaerr.KindOf(err) != nil {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return mediaerr.New(mediaerr.ErrBuildFailure, "transform", "build interrupted", err)
	}
	return mediaerr.Wrap(mediaerr.ErrBuildFailure, "transform", fmt.Errorf("build: %w", err))
}
