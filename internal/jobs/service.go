package jobs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"image-resize-ai/internal/assets"
	"image-resize-ai/internal/cache"
	"image-resize-ai/internal/engine"
	"image-resize-ai/internal/fingerprint"
	"image-resize-ai/internal/lock"
	"image-resize-ai/internal/logging"
	"image-resize-ai/internal/mediaerr"
	"image-resize-ai/internal/metrics"
)

// DefaultAspectRatio is used when a submission names none.
const DefaultAspectRatio = "16:9"

// VideoAssetPrefix namespaces video artifacts inside the cache so they
// never collide with image transforms of the same source.
const VideoAssetPrefix = "video/"

const maxClaimAttempts = 3

var aspectRatioPattern = regexp.MustCompile(`^[1-9][0-9]*:[1-9][0-9]*$`)

// AssetReader loads source assets. *assets.Resolver implements it.
type AssetReader interface {
	Read(virtual string) ([]byte, string, error)
}

// Config tunes a Service.
type Config struct {
	// StaleAfter is how long a claimed but unsent job blocks resubmission.
	StaleAfter time.Duration
	// ProviderTimeout bounds each submit and status call.
	ProviderTimeout time.Duration
	// DownloadTimeout bounds fetching a finished video.
	DownloadTimeout time.Duration
	PollTimeout     time.Duration
	PollInterval    time.Duration
	// PollRetries is how many consecutive status errors a poll tolerates.
	PollRetries   int
	PublicBaseURL string
	Lock          lock.WaitOptions
}

// DefaultConfig returns the built-in timings.
func DefaultConfig() Config {
	return Config{
		StaleAfter:      2 * time.Minute,
		ProviderTimeout: 60 * time.Second,
		DownloadTimeout: 5 * time.Minute,
		PollTimeout:     5 * time.Minute,
		PollInterval:    10 * time.Second,
		PollRetries:     3,
		Lock:            lock.DefaultWaitOptions(),
	}
}

// Outcome is what a submit or poll observed.
type Outcome string

// Outcomes. OutcomeStillRunning is not an error: the job continues at the
// provider and can be polled again.
const (
	OutcomeCompleted    Outcome = "completed"
	OutcomeStillRunning Outcome = "running"
	OutcomeFailed       Outcome = "failed"
)

// SubmitRequest asks for a video generated from one or two images.
type SubmitRequest struct {
	Asset         string
	SecondAsset   string
	Prompt        string
	AspectRatio   string
	Silent        bool
	AutoReference bool
	// Resubmit replaces a stored failure with a new provider submission.
	Resubmit bool
}

// PollRequest identifies a job by operation name, cache key, or both.
type PollRequest struct {
	OperationName string
	CacheKey      string
	// Timeout is the wall-clock ceiling; zero means a single status check.
	Timeout  time.Duration
	Interval time.Duration
}

// Result is the state of a video job as seen by a caller.
type Result struct {
	Outcome       Outcome
	FromCache     bool
	CacheKey      string
	RawCacheKey   string
	OperationName string
	// Video is set when Outcome is completed.
	Video     *engine.Result
	EmbedHTML string
	// Error is the stored failure when Outcome is failed.
	Error string
}

// Service runs the video job state machine against a Store and a Provider.
type Service struct {
	store     Store
	provider  Provider
	assets    AssetReader
	artifacts *cache.Store
	locker    lock.Locker
	cfg       Config
}

// NewService creates a Service. provider may be nil, in which case only
// stored results can be returned.
func NewService(store Store, provider Provider, src AssetReader, artifacts *cache.Store, locker lock.Locker, cfg Config) *Service {
	def := DefaultConfig()
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = def.StaleAfter
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = def.ProviderTimeout
	}
	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = def.DownloadTimeout
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.PollRetries < 0 {
		cfg.PollRetries = 0
	}
	if cfg.Lock.RetryInterval <= 0 && cfg.Lock.Timeout <= 0 {
		cfg.Lock = def.Lock
	}
	return &Service{store: store, provider: provider, assets: src, artifacts: artifacts, locker: locker, cfg: cfg}
}

// Config returns the effective configuration.
func (s *Service) Config() Config {
	return s.cfg
}

// =============================================================================
// Submit
// =============================================================================

// Submit returns the stored result of an identical earlier submission, or
// claims the fingerprint and starts a provider operation.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (Result, error) {
	res, outcome, err := s.submit(ctx, req)
	if err != nil {
		metrics.JobSubmissionsTotal.WithLabelValues("error").Inc()
		return Result{}, err
	}
	metrics.JobSubmissionsTotal.WithLabelValues(outcome).Inc()
	return res, nil
}

func (s *Service) submit(ctx context.Context, req SubmitRequest) (Result, string, error) {
	spec, vreq, err := s.prepare(req)
	if err != nil {
		return Result{}, "", err
	}
	key := fingerprint.ComputeVideo(spec)
	base := Result{CacheKey: key.CacheKey, RawCacheKey: key.RawCacheKey}

	for attempt := 0; attempt < maxClaimAttempts; attempt++ {
		job, err := s.store.GetJob(ctx, key.CacheKey)
		if errors.Is(err, ErrNotFound) {
			created, res, err := s.claimAndSubmit(ctx, key, spec, vreq)
			if err != nil {
				return Result{}, "", err
			}
			if created {
				return res, "submitted", nil
			}
			continue
		}
		if err != nil {
			return Result{}, "", storeError("load job", err)
		}

		switch job.Status {
		case StatusCompleted:
			video, ok, err := s.video(job, true)
			if err != nil {
				return Result{}, "", err
			}
			if ok {
				logging.Debug("Video %s served from cache", key.CacheKey)
				return s.completed(base, job, video, true), "cached", nil
			}
			logging.Warn("Video %s is recorded complete but its artifact is gone; resubmitting", key.CacheKey)
			if err := s.discard(ctx, job); err != nil {
				return Result{}, "", err
			}

		case StatusRunning:
			base.Outcome = OutcomeStillRunning
			base.OperationName = job.OperationName
			return base, "pending", nil

		case StatusSubmitted:
			if time.Since(job.UpdatedAt) < s.cfg.StaleAfter {
				base.Outcome = OutcomeStillRunning
				return base, "pending", nil
			}
			logging.Warn("Reclaiming video claim %s left unsent for %v", key.CacheKey, time.Since(job.UpdatedAt).Round(time.Second))
			if err := s.discard(ctx, job); err != nil {
				return Result{}, "", err
			}

		case StatusFailed:
			if !req.Resubmit {
				base.Outcome = OutcomeFailed
				base.FromCache = true
				base.OperationName = job.OperationName
				base.Error = job.Error
				return base, "failed", nil
			}
			logging.Info("Resubmitting failed video %s", key.CacheKey)
			if err := s.discard(ctx, job); err != nil {
				return Result{}, "", err
			}
		}
	}
	return Result{}, "", mediaerr.New(mediaerr.ErrLockTimeout, "submit video", "job record kept changing, retry the request", nil)
}

// prepare validates req, loads the source images and builds the fingerprint
// spec and provider request.
func (s *Service) prepare(req SubmitRequest) (fingerprint.VideoSpec, VideoRequest, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return fingerprint.VideoSpec{}, VideoRequest{}, mediaerr.New(mediaerr.ErrInvalidParams, "submit video", "prompt is required", nil)
	}
	aspect := strings.TrimSpace(req.AspectRatio)
	if aspect == "" {
		aspect = DefaultAspectRatio
	}
	if !aspectRatioPattern.MatchString(aspect) {
		return fingerprint.VideoSpec{}, VideoRequest{}, mediaerr.New(mediaerr.ErrInvalidParams, "submit video",
			fmt.Sprintf("invalid aspect ratio %q", aspect), nil)
	}

	first, firstImg, err := s.load(req.Asset)
	if err != nil {
		return fingerprint.VideoSpec{}, VideoRequest{}, err
	}
	spec := fingerprint.VideoSpec{Asset: first, AspectRatio: aspect, Silent: req.Silent, AutoReference: req.AutoReference}
	vreq := VideoRequest{Image: firstImg, AspectRatio: aspect}
	names := []string{first.Path}

	if strings.TrimSpace(req.SecondAsset) != "" {
		second, secondImg, err := s.load(req.SecondAsset)
		if err != nil {
			return fingerprint.VideoSpec{}, VideoRequest{}, err
		}
		spec.SecondAsset = &second
		vreq.SecondImage = &secondImg
		names = append(names, second.Path)
	}

	prompt := EffectivePrompt(req.Prompt, names, req.AutoReference, req.Silent)
	spec.Prompt = prompt
	vreq.Prompt = prompt
	return spec, vreq, nil
}

func (s *Service) load(virtual string) (assets.Ref, Image, error) {
	normalized, err := assets.NormalizePath(virtual)
	if err != nil {
		if errors.Is(err, assets.ErrTraversal) {
			return assets.Ref{}, Image{}, mediaerr.New(mediaerr.ErrInvalidParams, "submit video", "invalid asset path", err)
		}
		return assets.Ref{}, Image{}, mediaerr.New(mediaerr.ErrInvalidParams, "submit video", "asset path is required", nil)
	}

	data, mimeType, err := s.assets.Read(normalized)
	if err != nil {
		if errors.Is(err, assets.ErrNotFound) {
			return assets.Ref{}, Image{}, mediaerr.New(mediaerr.ErrAssetNotFound, "submit video", "source image not found: "+normalized, nil)
		}
		if errors.Is(err, assets.ErrTraversal) {
			return assets.Ref{}, Image{}, mediaerr.New(mediaerr.ErrInvalidParams, "submit video", "invalid asset path", err)
		}
		return assets.Ref{}, Image{}, mediaerr.New(mediaerr.ErrStoreIO, "submit video", "read source image", err)
	}
	if !strings.HasPrefix(mimeType, "image/") {
		mimeType = "image/jpeg"
	}

	ref := assets.Ref{Path: normalized, Digest: fingerprint.Digest(data)}
	return ref, Image{Data: data, MimeType: mimeType}, nil
}

// claimAndSubmit inserts the job record and, when this call created it,
// sends the request to the provider. created is false when another
// submitter claimed the fingerprint first.
func (s *Service) claimAndSubmit(ctx context.Context, key fingerprint.Key, spec fingerprint.VideoSpec, vreq VideoRequest) (bool, Result, error) {
	if s.provider == nil {
		return false, Result{}, mediaerr.New(mediaerr.ErrProvider, "submit video", "video generation is not configured (set GEMINI_API_KEY)", nil)
	}

	job, created, err := s.store.CreateJob(ctx, Job{
		CacheKey:    key.CacheKey,
		RawCacheKey: key.RawCacheKey,
		Asset:       spec.Asset.Path,
		Prompt:      spec.Prompt,
	})
	if err != nil {
		return false, Result{}, storeError("claim job", err)
	}
	if !created {
		return false, Result{}, nil
	}

	pctx, cancel := context.WithTimeout(ctx, s.cfg.ProviderTimeout)
	defer cancel()
	op, err := s.provider.SubmitJob(pctx, vreq)
	if err != nil {
		msg := mediaerr.Message(err)
		if ferr := s.store.FailJob(context.WithoutCancel(ctx), job.CacheKey, msg); ferr != nil {
			logging.Error("Failed to record submission failure for %s: %v", job.CacheKey, ferr)
		}
		return false, Result{}, asProviderError("submit video", err)
	}

	if err := s.store.SetJobRunning(ctx, job.CacheKey, op); err != nil {
		return false, Result{}, storeError("record operation", err)
	}

	logging.Info("Video %s submitted as %s", key.CacheKey, op)
	return true, Result{
		Outcome:       OutcomeStillRunning,
		CacheKey:      key.CacheKey,
		RawCacheKey:   key.RawCacheKey,
		OperationName: op,
	}, nil
}

func (s *Service) discard(ctx context.Context, job Job) error {
	if _, err := s.store.DeleteJob(ctx, job.CacheKey, job.Status, job.UpdatedAt); err != nil {
		return storeError("discard job", err)
	}
	return nil
}

// =============================================================================
// Poll
// =============================================================================

// Poll checks a job at the provider until it finishes or the timeout
// passes. A timeout returns OutcomeStillRunning and leaves the job as is.
func (s *Service) Poll(ctx context.Context, req PollRequest) (Result, error) {
	res, err := s.poll(ctx, req)
	if err != nil {
		metrics.JobPollsTotal.WithLabelValues("error").Inc()
		return Result{}, err
	}
	metrics.JobPollsTotal.WithLabelValues(string(res.Outcome)).Inc()
	return res, nil
}

func (s *Service) poll(ctx context.Context, req PollRequest) (Result, error) {
	job, err := s.find(ctx, req)
	if err != nil {
		return Result{}, err
	}

	interval := req.Interval
	if interval <= 0 {
		interval = s.cfg.PollInterval
	}
	deadline := time.Now().Add(req.Timeout)

	// A claim without an operation name belongs to a submitter that has
	// not heard back from the provider yet.
	for job.Status == StatusSubmitted && time.Now().Add(interval).Before(deadline) {
		if err := sleep(ctx, interval); err != nil {
			return Result{}, err
		}
		next, err := s.store.GetJob(ctx, job.CacheKey)
		if errors.Is(err, ErrNotFound) {
			// Stale claim cleared; its reclaimer creates a new one.
			continue
		}
		if err != nil {
			return Result{}, storeError("load job", err)
		}
		job = next
	}

	base := Result{CacheKey: job.CacheKey, RawCacheKey: job.RawCacheKey, OperationName: job.OperationName}

	switch job.Status {
	case StatusCompleted:
		video, ok, err := s.video(job, true)
		if err != nil {
			return Result{}, err
		}
		if !ok {
			return Result{}, mediaerr.New(mediaerr.ErrStoreIO, "poll video", "completed video is missing from the cache, resubmit", nil)
		}
		return s.completed(base, job, video, true), nil
	case StatusFailed:
		base.Outcome = OutcomeFailed
		base.FromCache = true
		base.Error = job.Error
		return base, nil
	case StatusSubmitted:
		base.Outcome = OutcomeStillRunning
		return base, nil
	}

	if s.provider == nil {
		return Result{}, mediaerr.New(mediaerr.ErrProvider, "poll video", "video generation is not configured (set GEMINI_API_KEY)", nil)
	}

	failures := 0

	for {
		status, err := s.status(ctx, job.OperationName)
		if err != nil {
			failures++
			if failures > s.cfg.PollRetries || ctx.Err() != nil || time.Now().Add(interval).After(deadline) {
				return Result{}, asProviderError("poll video", err)
			}
			logging.Warn("Status check for %s failed (%d/%d): %v", job.OperationName, failures, s.cfg.PollRetries, err)
		} else {
			failures = 0
			switch status.State {
			case ProviderCompleted:
				return s.finish(ctx, job, base, status.Artifact)
			case ProviderFailed:
				return s.fail(ctx, job, base, status.Reason)
			}
		}

		if time.Now().Add(interval).After(deadline) {
			logging.Debug("Video %s still running after poll budget", job.CacheKey)
			base.Outcome = OutcomeStillRunning
			return base, nil
		}

		if err := sleep(ctx, interval); err != nil {
			return Result{}, err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (s *Service) find(ctx context.Context, req PollRequest) (Job, error) {
	var (
		job Job
		err error
	)
	switch {
	case req.CacheKey != "":
		job, err = s.store.GetJob(ctx, req.CacheKey)
	case req.OperationName != "":
		job, err = s.store.GetJobByOperation(ctx, req.OperationName)
	default:
		return Job{}, mediaerr.New(mediaerr.ErrInvalidParams, "poll video", "operation name or cache key is required", nil)
	}
	if errors.Is(err, ErrNotFound) {
		return Job{}, mediaerr.New(mediaerr.ErrInvalidParams, "poll video", "no video job matches the request", nil)
	}
	if err != nil {
		return Job{}, storeError("load job", err)
	}
	if req.OperationName != "" && job.OperationName != "" && req.OperationName != job.OperationName {
		return Job{}, mediaerr.New(mediaerr.ErrInvalidParams, "poll video", "operation name does not match cache key", nil)
	}
	return job, nil
}

func (s *Service) status(ctx context.Context, operation string) (ProviderStatus, error) {
	pctx, cancel := context.WithTimeout(ctx, s.cfg.ProviderTimeout)
	defer cancel()
	return s.provider.GetStatus(pctx, operation)
}

// finish stores the artifact under the build lock and marks the job
// completed.
func (s *Service) finish(ctx context.Context, job Job, base Result, artifact Artifact) (Result, error) {
	if err := s.materialize(ctx, job, artifact); err != nil {
		return Result{}, err
	}

	video, ok, err := s.video(job, false)
	if err != nil {
		return Result{}, err
	}
	if !ok {
		return Result{}, mediaerr.New(mediaerr.ErrStoreIO, "poll video", "stored video vanished", nil)
	}

	rel, _ := s.artifacts.RelativePath(video.Path)
	err = s.store.CompleteJob(ctx, job.CacheKey, rel)
	if errors.Is(err, ErrConflict) {
		current, gerr := s.store.GetJob(ctx, job.CacheKey)
		if gerr == nil && current.Status == StatusFailed {
			base.Outcome = OutcomeFailed
			base.Error = current.Error
			return base, nil
		}
		err = gerr
	}
	if err != nil {
		return Result{}, storeError("complete job", err)
	}

	logging.Info("Video %s completed: %s", job.CacheKey, video.URL)
	return s.completed(base, job, video, false), nil
}

func (s *Service) materialize(ctx context.Context, job Job, artifact Artifact) error {
	ckey := s.cacheKey(job)
	holder := lock.NewHolderID()
	lockKey := "video:" + job.CacheKey

	wr, err := lock.AcquireWithWait(ctx, s.locker, lockKey, holder, s.cfg.Lock, func() bool { return s.artifacts.Exists(ckey) })
	switch {
	case errors.Is(err, lock.ErrWaitTimeout), errors.Is(err, lock.ErrReclaimed):
		return mediaerr.New(mediaerr.ErrLockTimeout, "poll video", "video is being stored by another worker, retry", err)
	case err != nil:
		return mediaerr.New(mediaerr.ErrStoreIO, "poll video", "acquire build lock", err)
	}
	if wr.Satisfied {
		return nil
	}
	defer func() {
		if err := s.locker.Release(context.Background(), lockKey, holder); err != nil && !errors.Is(err, lock.ErrNotHolder) {
			logging.Warn("Failed to release video lock %s: %v", lockKey, err)
		}
	}()

	if s.artifacts.Exists(ckey) {
		return nil
	}

	dctx, cancel := context.WithTimeout(ctx, s.cfg.DownloadTimeout)
	defer cancel()
	data, err := s.provider.Download(dctx, artifact)
	if err != nil {
		return asProviderError("download video", err)
	}

	mimeType := artifact.MimeType
	if mimeType == "" || !strings.HasPrefix(mimeType, "video/") {
		mimeType = http.DetectContentType(data)
		if !strings.HasPrefix(mimeType, "video/") {
			mimeType = "video/mp4"
		}
	}
	if _, err := s.artifacts.Write(ckey, data, cache.Metadata{
		MimeType:    mimeType,
		Extension:   "mp4",
		RawCacheKey: job.RawCacheKey,
	}); err != nil {
		return mediaerr.New(mediaerr.ErrStoreIO, "poll video", "store video", err)
	}
	return nil
}

func (s *Service) fail(ctx context.Context, job Job, base Result, reason string) (Result, error) {
	if reason == "" {
		reason = "video generation failed"
	}
	err := s.store.FailJob(ctx, job.CacheKey, reason)
	if errors.Is(err, ErrConflict) {
		current, gerr := s.store.GetJob(ctx, job.CacheKey)
		if gerr == nil && current.Status == StatusCompleted {
			if video, ok, verr := s.video(current, true); verr == nil && ok {
				return s.completed(base, current, video, true), nil
			}
		}
		err = gerr
	}
	if err != nil {
		return Result{}, storeError("fail job", err)
	}

	logging.Warn("Video %s failed: %s", job.CacheKey, reason)
	base.Outcome = OutcomeFailed
	base.Error = reason
	return base, nil
}

// =============================================================================
// Synchronous mode
// =============================================================================

// SubmitAndWait submits and then polls the same job until it finishes or
// the poll budget runs out.
func (s *Service) SubmitAndWait(ctx context.Context, req SubmitRequest, timeout, interval time.Duration) (Result, error) {
	res, err := s.Submit(ctx, req)
	if err != nil || res.Outcome != OutcomeStillRunning {
		return res, err
	}
	if timeout <= 0 {
		timeout = s.cfg.PollTimeout
	}
	return s.Poll(ctx, PollRequest{
		OperationName: res.OperationName,
		CacheKey:      res.CacheKey,
		Timeout:       timeout,
		Interval:      interval,
	})
}

// =============================================================================
// Helpers
// =============================================================================

func (s *Service) cacheKey(job Job) cache.Key {
	return cache.Key{Asset: VideoAssetPrefix + job.Asset, CacheKey: job.CacheKey}
}

// video loads the committed artifact of job. ok is false when no entry
// exists.
func (s *Service) video(job Job, fromCache bool) (*engine.Result, bool, error) {
	meta, dataPath, err := s.artifacts.Stat(s.cacheKey(job))
	if errors.Is(err, cache.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, mediaerr.New(mediaerr.ErrStoreIO, "load video", "cache lookup", err)
	}

	res := &engine.Result{
		Path:        dataPath,
		MimeType:    meta.MimeType,
		ByteSize:    meta.ByteSize,
		FromCache:   fromCache,
		CacheKey:    job.CacheKey,
		RawCacheKey: job.RawCacheKey,
		CreatedAt:   meta.CreatedAt,
	}
	if rel, err := s.artifacts.RelativePath(dataPath); err == nil {
		res.URL = cache.PublicURL(s.cfg.PublicBaseURL, rel)
	}
	return res, true, nil
}

func (s *Service) completed(base Result, job Job, video *engine.Result, fromCache bool) Result {
	base.Outcome = OutcomeCompleted
	base.FromCache = fromCache
	base.OperationName = job.OperationName
	base.Video = video
	base.EmbedHTML = cache.EmbedHTML(video.URL)
	return base
}

func storeError(detail string, err error) error {
	return mediaerr.New(mediaerr.ErrStoreIO, "video job", detail, err)
}

func asProviderError(op string, err error) error {
	if mediaerr.KindOf(err) != nil {
		return err
	}
	return mediaerr.Wrap(mediaerr.ErrProvider, op, err)
}
