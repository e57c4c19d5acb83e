package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"image-resize-ai/internal/lock"
	"image-resize-ai/internal/logging"
	"image-resize-ai/internal/metrics"
)

const backendSQLite = "sqlite"

// Locker implements lock.Locker on the build_locks table, for deployments
// where every process shares the database but not a filesystem.
type Locker struct {
	d *Database
}

// Locker returns a lock.Locker backed by this database.
func (d *Database) Locker() *Locker {
	return &Locker{d: d}
}

var _ lock.Locker = (*Locker)(nil)

// TryAcquire inserts the lock row if absent. A row older than staleAfter is
// removed with a compare-and-delete on its holder and timestamp, then the
// insert is retried once.
func (l *Locker) TryAcquire(ctx context.Context, key, holder string, staleAfter time.Duration) (lock.Acquisition, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	reclaimed := false
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := l.insert(ctx, key, holder)
		if err != nil {
			metrics.LockAcquisitionsTotal.WithLabelValues(backendSQLite, "error").Inc()
			return lock.Acquisition{}, err
		}
		if ok {
			outcome := "acquired"
			if reclaimed {
				outcome = "reclaimed"
			}
			metrics.LockAcquisitionsTotal.WithLabelValues(backendSQLite, outcome).Inc()
			return lock.Acquisition{Acquired: true, Reclaimed: reclaimed}, nil
		}

		current, acquiredAt, err := l.current(ctx, key)
		if errors.Is(err, sql.ErrNoRows) {
			continue
		}
		if err != nil {
			metrics.LockAcquisitionsTotal.WithLabelValues(backendSQLite, "error").Inc()
			return lock.Acquisition{}, err
		}

		age := time.Since(time.Unix(0, acquiredAt))
		if staleAfter <= 0 || age < staleAfter || attempt > 0 {
			metrics.LockAcquisitionsTotal.WithLabelValues(backendSQLite, "held").Inc()
			return lock.Acquisition{Holder: current, Age: age}, nil
		}

		removed, err := l.deleteIf(ctx, "lock_reclaim", key, current, &acquiredAt)
		if err != nil {
			metrics.LockAcquisitionsTotal.WithLabelValues(backendSQLite, "error").Inc()
			return lock.Acquisition{}, err
		}
		if removed {
			logging.Warn("Reclaimed stale build lock %s from %s (age %v)", key, current, age.Round(time.Second))
			reclaimed = true
		}
	}

	metrics.LockAcquisitionsTotal.WithLabelValues(backendSQLite, "held").Inc()
	return lock.Acquisition{}, nil
}

// Release deletes the lock row if holder still owns it.
func (l *Locker) Release(ctx context.Context, key, holder string) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	removed, err := l.deleteIf(ctx, "lock_release", key, holder, nil)
	if err != nil {
		metrics.LockReleasesTotal.WithLabelValues(backendSQLite, "error").Inc()
		return err
	}
	if !removed {
		metrics.LockReleasesTotal.WithLabelValues(backendSQLite, "not_holder").Inc()
		return lock.ErrNotHolder
	}
	metrics.LockReleasesTotal.WithLabelValues(backendSQLite, "released").Inc()
	return nil
}

func (l *Locker) insert(ctx context.Context, key, holder string) (bool, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery("lock_acquire", start, err) }()

	l.d.mu.Lock()
	defer l.d.mu.Unlock()

	var res sql.Result
	res, err = l.d.db.ExecContext(ctx, `
		INSERT INTO build_locks (lock_key, holder, acquired_at) VALUES (?, ?, ?)
		ON CONFLICT(lock_key) DO NOTHING
	`, key, holder, time.Now().UTC().UnixNano())
	if err != nil {
		return false, fmt.Errorf("insert build lock: %w", err)
	}
	rows, _ := res.RowsAffected()
	return rows == 1, nil
}

func (l *Locker) current(ctx context.Context, key string) (string, int64, error) {
	l.d.mu.RLock()
	defer l.d.mu.RUnlock()

	var holder string
	var acquiredAt int64
	err := l.d.db.QueryRowContext(ctx,
		"SELECT holder, acquired_at FROM build_locks WHERE lock_key = ?", key).Scan(&holder, &acquiredAt)
	return holder, acquiredAt, err
}

// deleteIf removes the row for key when it still belongs to holder (and,
// when acquiredAt is non-nil, was taken at that instant).
func (l *Locker) deleteIf(ctx context.Context, op, key, holder string, acquiredAt *int64) (bool, error) {
	start := time.Now()
	var err error
	defer func() { recordQuery(op, start, err) }()

	l.d.mu.Lock()
	defer l.d.mu.Unlock()

	query := "DELETE FROM build_locks WHERE lock_key = ? AND holder = ?"
	args := []any{key, holder}
	if acquiredAt != nil {
		query += " AND acquired_at = ?"
		args = append(args, *acquiredAt)
	}

	var res sql.Result
	res, err = l.d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("delete build lock: %w", err)
	}
	rows, _ := res.RowsAffected()
	return rows == 1, nil
}
