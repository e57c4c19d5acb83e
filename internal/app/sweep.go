package app

import (
	"context"
	"time"

	"image-resize-ai/internal/cache"
	"image-resize-ai/internal/logging"
)

// SweepStore is what a Sweeper needs. *database.Database implements it.
type SweepStore interface {
	GetLastSweep(ctx context.Context) (time.Time, error)
	SetLastSweep(ctx context.Context, t time.Time) error
}

// Sweeper runs the cache TTL sweep on an interval. The last run time is
// shared through the database so several processes sweep at most once
// per interval between them.
type Sweeper struct {
	cache    *cache.Store
	store    SweepStore
	ttl      time.Duration
	interval time.Duration
	now      func() time.Time
}

// NewSweeper creates a Sweeper. A ttl of zero disables sweeping.
func NewSweeper(c *cache.Store, store SweepStore, ttl, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{cache: c, store: store, ttl: ttl, interval: interval, now: time.Now}
}

// Run sweeps whenever the interval has passed since the last recorded
// sweep, until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	if s.ttl <= 0 {
		logging.Info("Cache sweeper disabled (CACHE_TTL not set)")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunIfDue(ctx); err != nil {
			logging.Warn("Cache sweep failed: %v", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunIfDue sweeps unless another sweep finished less than one interval
// ago. It reports whether a sweep ran.
func (s *Sweeper) RunIfDue(ctx context.Context) (bool, error) {
	last, err := s.store.GetLastSweep(ctx)
	if err != nil {
		return false, err
	}
	if !last.IsZero() && s.now().Sub(last) < s.interval {
		logging.Debug("Cache sweep skipped, last run %s", last.Format(time.RFC3339))
		return false, nil
	}
	_, err = s.Sweep(ctx)
	return err == nil, err
}

// Sweep runs one sweep unconditionally and records it.
func (s *Sweeper) Sweep(ctx context.Context) (cache.SweepStats, error) {
	stats, err := s.cache.Sweep(s.ttl)
	if err != nil {
		return stats, err
	}
	if err := s.store.SetLastSweep(ctx, s.now()); err != nil {
		logging.Warn("Failed to record sweep time: %v", err)
	}
	logging.Info("Cache sweep removed %d entries and %d orphans (%d bytes) in %v",
		stats.Removed, stats.Orphans, stats.FreedBytes, stats.Duration)
	return stats, nil
}
