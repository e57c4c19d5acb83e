package lock

import (
	"context"
	"errors"
	"strings"
	"time"

	"image-resize-ai/internal/metrics"
)

// Policy decides what a caller does when the lock is held by someone else.
type Policy string

const (
	// PolicyWait polls until the lock frees or the timeout elapses.
	PolicyWait Policy = "wait"
	// PolicyFailFast gives up as soon as the lock is found held.
	PolicyFailFast Policy = "failfast"
)

// ReclaimPolicy decides what happens after a stale lock is reclaimed.
type ReclaimPolicy string

const (
	// ReclaimRebuild keeps the reclaimed lock and builds.
	ReclaimRebuild ReclaimPolicy = "rebuild"
	// ReclaimResubmit clears the stale lock and asks the client to retry.
	ReclaimResubmit ReclaimPolicy = "resubmit"
)

// ParsePolicy parses a wait policy, defaulting to PolicyWait.
func ParsePolicy(s string) Policy {
	if Policy(strings.ToLower(strings.TrimSpace(s))) == PolicyFailFast {
		return PolicyFailFast
	}
	return PolicyWait
}

// ParseReclaimPolicy parses a reclaim policy, defaulting to ReclaimRebuild.
func ParseReclaimPolicy(s string) ReclaimPolicy {
	if ReclaimPolicy(strings.ToLower(strings.TrimSpace(s))) == ReclaimResubmit {
		return ReclaimResubmit
	}
	return ReclaimRebuild
}

// WaitOptions bounds AcquireWithWait.
type WaitOptions struct {
	Policy        Policy
	Reclaim       ReclaimPolicy
	Timeout       time.Duration
	RetryInterval time.Duration
	StaleAfter    time.Duration
}

// DefaultWaitOptions returns the defaults used by the server.
func DefaultWaitOptions() WaitOptions {
	return WaitOptions{
		Policy:        PolicyWait,
		Reclaim:       ReclaimRebuild,
		Timeout:       30 * time.Second,
		RetryInterval: 100 * time.Millisecond,
		StaleAfter:    2 * time.Minute,
	}
}

// WaitResult reports how AcquireWithWait finished.
type WaitResult struct {
	// Acquired means the caller now holds the lock and must release it.
	Acquired bool
	// Satisfied means recheck reported the work done while waiting; the
	// lock is not held.
	Satisfied bool
	Reclaimed bool
	Waited    time.Duration
}

// AcquireWithWait takes the lock for key, or waits for whoever holds it.
// After every failed attempt it calls recheck (if non-nil); when recheck
// reports true the wait ends with Satisfied. It returns ErrWaitTimeout when
// the budget runs out, ErrReclaimed under ReclaimResubmit, or ctx.Err().
func AcquireWithWait(ctx context.Context, l Locker, key, holder string, opts WaitOptions, recheck func() bool) (WaitResult, error) {
	if opts.RetryInterval <= 0 {
		opts.RetryInterval = 100 * time.Millisecond
	}
	start := time.Now()
	deadline := start.Add(opts.Timeout)

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		acq, err := l.TryAcquire(ctx, key, holder, opts.StaleAfter)
		if err != nil {
			return WaitResult{Waited: time.Since(start)}, err
		}
		if acq.Acquired {
			waited := time.Since(start)
			metrics.LockWaitDuration.Observe(waited.Seconds())
			if acq.Reclaimed && opts.Reclaim == ReclaimResubmit {
				if err := l.Release(ctx, key, holder); err != nil && !errors.Is(err, ErrNotHolder) {
					return WaitResult{Waited: waited}, err
				}
				return WaitResult{Reclaimed: true, Waited: waited}, ErrReclaimed
			}
			return WaitResult{Acquired: true, Reclaimed: acq.Reclaimed, Waited: waited}, nil
		}

		if recheck != nil && recheck() {
			waited := time.Since(start)
			metrics.LockWaitDuration.Observe(waited.Seconds())
			return WaitResult{Satisfied: true, Waited: waited}, nil
		}

		if opts.Policy == PolicyFailFast || !time.Now().Before(deadline) {
			metrics.LockWaitTimeoutsTotal.Inc()
			return WaitResult{Waited: time.Since(start)}, ErrWaitTimeout
		}

		sleep := opts.RetryInterval
		if remaining := time.Until(deadline); remaining < sleep {
			sleep = remaining
		}
		if timer == nil {
			timer = time.NewTimer(sleep)
		} else {
			timer.Reset(sleep)
		}
		select {
		case <-ctx.Done():
			return WaitResult{Waited: time.Since(start)}, ctx.Err()
		case <-timer.C:
		}
	}
}
