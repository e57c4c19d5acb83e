package lock

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"image-resize-ai/internal/logging"
	"image-resize-ai/internal/metrics"
)

const backendFile = "file"

// record is the JSON body of a lock file.
type record struct {
	Holder     string    `json:"holder"`
	PID        int       `json:"pid"`
	Host       string    `json:"host"`
	AcquiredAt time.Time `json:"acquiredAt"`
}

// FileLocker implements Locker with O_EXCL lock files in one directory.
// It works across processes on the same host or on a shared volume that
// honours exclusive create.
type FileLocker struct {
	dir string
}

// NewFileLocker creates dir if needed.
func NewFileLocker(dir string) (*FileLocker, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}
	return &FileLocker{dir: dir}, nil
}

func (l *FileLocker) path(key string) string {
	return filepath.Join(l.dir, url.QueryEscape(key)+".lock")
}

// TryAcquire creates the lock file exclusively. If it already exists and is
// older than staleAfter, it is moved aside to a unique tombstone and the
// create is retried once.
func (l *FileLocker) TryAcquire(ctx context.Context, key, holder string, staleAfter time.Duration) (Acquisition, error) {
	if err := ctx.Err(); err != nil {
		return Acquisition{}, err
	}

	path := l.path(key)
	reclaimed := false

	for attempt := 0; attempt < 2; attempt++ {
		created, err := l.create(path, holder)
		if err != nil {
			metrics.LockAcquisitionsTotal.WithLabelValues(backendFile, "error").Inc()
			return Acquisition{}, err
		}
		if created {
			outcome := "acquired"
			if reclaimed {
				outcome = "reclaimed"
			}
			metrics.LockAcquisitionsTotal.WithLabelValues(backendFile, outcome).Inc()
			return Acquisition{Acquired: true, Reclaimed: reclaimed}, nil
		}

		current, age, err := readRecord(path)
		if os.IsNotExist(err) {
			// Released between our create and read.
			continue
		}
		if err != nil {
			metrics.LockAcquisitionsTotal.WithLabelValues(backendFile, "error").Inc()
			return Acquisition{}, err
		}

		if staleAfter <= 0 || age < staleAfter || attempt > 0 {
			metrics.LockAcquisitionsTotal.WithLabelValues(backendFile, "held").Inc()
			return Acquisition{Holder: current.Holder, Age: age}, nil
		}

		ok, err := l.reclaim(path, current)
		if err != nil {
			metrics.LockAcquisitionsTotal.WithLabelValues(backendFile, "error").Inc()
			return Acquisition{}, err
		}
		if ok {
			logging.Warn("Reclaimed stale build lock %s from %s (age %v)", key, current.Holder, age.Round(time.Second))
			reclaimed = true
		}
	}

	metrics.LockAcquisitionsTotal.WithLabelValues(backendFile, "held").Inc()
	return Acquisition{}, nil
}

func (l *FileLocker) create(path, holder string) (bool, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("create lock file: %w", err)
	}

	host, _ := os.Hostname()
	body, _ := json.Marshal(record{
		Holder:     holder,
		PID:        os.Getpid(),
		Host:       host,
		AcquiredAt: time.Now().UTC(),
	})
	_, werr := f.Write(body)
	cerr := f.Close()
	if werr != nil || cerr != nil {
		_ = os.Remove(path)
		return false, fmt.Errorf("write lock file: %w", firstErr(werr, cerr))
	}
	return true, nil
}

// reclaim moves a stale lock aside. If the file it moved turns out to be a
// different lock than the one judged stale, it is restored.
func (l *FileLocker) reclaim(path string, stale record) (bool, error) {
	tomb := path + "." + uuid.NewString() + ".stale"
	if err := os.Rename(path, tomb); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("reclaim lock file: %w", err)
	}

	moved, _, err := readRecord(tomb)
	if err == nil && (moved.Holder != stale.Holder || !moved.AcquiredAt.Equal(stale.AcquiredAt)) {
		// A fresh holder took the lock between our read and rename.
		if linkErr := os.Link(tomb, path); linkErr != nil {
			logging.Warn("Lost fresh build lock %s while reclaiming: %v", path, linkErr)
		}
		_ = os.Remove(tomb)
		return false, nil
	}

	_ = os.Remove(tomb)
	return true, nil
}

// Release removes the lock if holder still owns it. The file is moved to a
// unique tombstone before its owner is checked, so a lock recreated by a
// reclaimer after our read is never removed.
func (l *FileLocker) Release(ctx context.Context, key, holder string) error {
	path := l.path(key)
	current, _, err := readRecord(path)
	if os.IsNotExist(err) {
		metrics.LockReleasesTotal.WithLabelValues(backendFile, "not_holder").Inc()
		return ErrNotHolder
	}
	if err != nil {
		metrics.LockReleasesTotal.WithLabelValues(backendFile, "error").Inc()
		return err
	}
	if current.Holder != holder {
		metrics.LockReleasesTotal.WithLabelValues(backendFile, "not_holder").Inc()
		return ErrNotHolder
	}

	tomb := path + "." + uuid.NewString() + ".released"
	if err := os.Rename(path, tomb); err != nil {
		if os.IsNotExist(err) {
			metrics.LockReleasesTotal.WithLabelValues(backendFile, "not_holder").Inc()
			return ErrNotHolder
		}
		metrics.LockReleasesTotal.WithLabelValues(backendFile, "error").Inc()
		return fmt.Errorf("release lock file: %w", err)
	}

	moved, _, err := readRecord(tomb)
	if err != nil || moved.Holder != holder {
		// Reclaimed and retaken between our read and rename.
		if linkErr := os.Link(tomb, path); linkErr != nil {
			logging.Warn("Lost build lock %s while releasing: %v", path, linkErr)
		}
		_ = os.Remove(tomb)
		metrics.LockReleasesTotal.WithLabelValues(backendFile, "not_holder").Inc()
		return ErrNotHolder
	}

	if err := os.Remove(tomb); err != nil && !os.IsNotExist(err) {
		logging.Warn("Failed to remove released lock %s: %v", tomb, err)
	}
	metrics.LockReleasesTotal.WithLabelValues(backendFile, "released").Inc()
	return nil
}

// readRecord returns the lock record and its age. A file that exists but
// has no readable body yet (crash between create and write) is aged by its
// modification time and has an empty holder.
func readRecord(path string) (record, time.Duration, error) {
	info, err := os.Stat(path)
	if err != nil {
		return record{}, 0, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return record{}, 0, err
	}

	var rec record
	if err := json.Unmarshal(raw, &rec); err != nil || rec.AcquiredAt.IsZero() {
		return record{AcquiredAt: info.ModTime()}, time.Since(info.ModTime()), nil
	}
	return rec, time.Since(rec.AcquiredAt), nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
