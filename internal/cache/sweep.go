package cache

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"image-resize-ai/internal/filesystem"
	"image-resize-ai/internal/logging"
	"image-resize-ai/internal/metrics"
)

// SweepStats summarises one Sweep run.
type SweepStats struct {
	Scanned    int           `json:"scanned"`
	Removed    int           `json:"removed"`
	FreedBytes int64         `json:"freedBytes"`
	Orphans    int           `json:"orphans"`
	PrunedDirs int           `json:"prunedDirs"`
	Duration   time.Duration `json:"duration"`
}

// Sweep removes entries committed more than ttl ago, plus temp files and
// uncommitted data files older than ttl, then prunes empty directories.
func (s *Store) Sweep(ttl time.Duration) (SweepStats, error) {
	return s.sweepAt(time.Now(), ttl)
}

func (s *Store) sweepAt(now time.Time, ttl time.Duration) (SweepStats, error) {
	var stats SweepStats
	if ttl <= 0 {
		return stats, fmt.Errorf("sweep ttl must be positive, got %v", ttl)
	}
	start := time.Now()
	cutoff := now.Add(-ttl)

	committed := make(map[string]bool)
	var dirs []string
	var others []string

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if os.IsNotExist(walkErr) {
				return nil
			}
			return walkErr
		}
		if d.IsDir() {
			if path != s.root {
				dirs = append(dirs, path)
			}
			return nil
		}
		if !strings.HasSuffix(d.Name(), metaSuffix) {
			others = append(others, path)
			return nil
		}

		stats.Scanned++
		meta, ok := readMeta(path)
		dataPath := filepath.Join(filepath.Dir(path), meta.File)
		if ok && meta.CreatedAt.After(cutoff) {
			committed[dataPath] = true
			return nil
		}

		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			logging.Warn("Cache sweep: failed to remove %s: %v", path, err)
			return nil
		}
		if ok && meta.File != "" {
			if err := os.Remove(dataPath); err != nil && !os.IsNotExist(err) {
				logging.Warn("Cache sweep: failed to remove %s: %v", dataPath, err)
			}
		}
		stats.Removed++
		stats.FreedBytes += meta.ByteSize
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("walk cache: %w", err)
	}

	for _, path := range others {
		if committed[path] {
			continue
		}
		info, err := os.Stat(path)
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		// Uncommitted data or a leftover temp file from a crashed writer.
		if filesystem.IsTempFile(filepath.Base(path)) || !isCommittedElsewhere(path) {
			if err := os.Remove(path); err == nil {
				stats.Orphans++
				stats.FreedBytes += info.Size()
			}
		}
	}

	// Deepest first so parents empty out before they are visited.
	sort.Slice(dirs, func(i, j int) bool { return len(dirs[i]) > len(dirs[j]) })
	for _, dir := range dirs {
		if err := os.Remove(dir); err == nil {
			stats.PrunedDirs++
		}
	}

	stats.Duration = time.Since(start)
	metrics.CacheSweepRemovedTotal.Add(float64(stats.Removed + stats.Orphans))
	metrics.CacheSweepLastTimestamp.Set(float64(now.Unix()))

	logging.Info("Cache sweep: scanned=%d removed=%d orphans=%d freed=%d bytes pruned_dirs=%d in %v",
		stats.Scanned, stats.Removed, stats.Orphans, stats.FreedBytes, stats.PrunedDirs, stats.Duration)
	return stats, nil
}

// isCommittedElsewhere reports whether a data file has a sidecar that the
// walk skipped, which happens when the sidecar was written mid-sweep.
func isCommittedElsewhere(dataPath string) bool {
	base := filepath.Base(dataPath)
	cacheKey, _, ok := strings.Cut(base, ".")
	if !ok {
		return false
	}
	_, err := os.Stat(filepath.Join(filepath.Dir(dataPath), cacheKey+metaSuffix))
	return err == nil
}
