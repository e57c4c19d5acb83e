// Package lock provides the cross-process build lock that serialises
// artifact builds per fingerprint.
package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrNotHolder is returned by Release when the caller no longer holds
	// the lock, usually because it was reclaimed as stale.
	ErrNotHolder = errors.New("lock not held by caller")
	// ErrWaitTimeout is returned by AcquireWithWait when the lock stayed
	// held past the wait budget.
	ErrWaitTimeout = errors.New("timed out waiting for build lock")
	// ErrReclaimed is returned by AcquireWithWait under ReclaimResubmit after
	// a stale lock was cleared; the caller should retry the request.
	ErrReclaimed = errors.New("stale build lock reclaimed, resubmit request")
)

// Acquisition is the result of one TryAcquire call.
type Acquisition struct {
	Acquired  bool
	Reclaimed bool
	// Holder and Age describe the current holder when Acquired is false.
	Holder string
	Age    time.Duration
}

// Locker is an exclusive, named lock visible to every process sharing the
// backend. TryAcquire never blocks on the lock itself. A held lock older
// than staleAfter (when positive) is reclaimed.
type Locker interface {
	TryAcquire(ctx context.Context, key, holder string, staleAfter time.Duration) (Acquisition, error)
	Release(ctx context.Context, key, holder string) error
}

// NewHolderID returns an identity unique to this process and call site.
func NewHolderID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return fmt.Sprintf("%s:%d:%s", host, os.Getpid(), uuid.NewString())
}
