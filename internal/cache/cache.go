// Package cache stores built artifacts on disk, one directory per source
// asset, with a JSON sidecar per entry acting as the commit marker.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"image-resize-ai/internal/assets"
	"image-resize-ai/internal/filesystem"
	"image-resize-ai/internal/logging"
	"image-resize-ai/internal/metrics"
)

// ErrNotFound is returned when no committed entry exists for a key.
var ErrNotFound = errors.New("cache entry not found")

const metaSuffix = ".meta.json"

// Key addresses one entry: the asset it was derived from and its fingerprint.
type Key struct {
	Asset    string
	CacheKey string
}

// Metadata is the sidecar written after the data file. Its presence means
// the entry is complete.
type Metadata struct {
	MimeType    string    `json:"mimeType"`
	Extension   string    `json:"extension"`
	ByteSize    int64     `json:"byteSize"`
	CreatedAt   time.Time `json:"createdAt"`
	RawCacheKey string    `json:"rawCacheKey,omitempty"`
	File        string    `json:"file"`
}

// Store is a filesystem-backed cache rooted at a directory.
type Store struct {
	root  string
	retry filesystem.RetryConfig
}

// New creates the cache root if needed.
func New(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve cache root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create cache root: %w", err)
	}
	return &Store{root: abs, retry: filesystem.DefaultRetryConfig()}, nil
}

// Root returns the absolute cache root.
func (s *Store) Root() string {
	return s.root
}

func (s *Store) assetDir(asset string) (string, error) {
	rel, err := assets.NormalizePath(asset)
	if err != nil {
		return "", fmt.Errorf("invalid cache asset %q: %w", asset, err)
	}
	return filepath.Join(s.root, filepath.FromSlash(rel)), nil
}

func (s *Store) metaPath(key Key) (string, error) {
	if key.CacheKey == "" || strings.ContainsAny(key.CacheKey, `/\.`) {
		return "", fmt.Errorf("invalid cache key %q", key.CacheKey)
	}
	dir, err := s.assetDir(key.Asset)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, key.CacheKey+metaSuffix), nil
}

// Stat returns the metadata of a committed entry and the absolute path of
// its data file.
func (s *Store) Stat(key Key) (Metadata, string, error) {
	mp, err := s.metaPath(key)
	if err != nil {
		return Metadata{}, "", err
	}
	raw, err := filesystem.ReadFileWithRetry(mp, s.retry)
	if err != nil {
		if os.IsNotExist(err) {
			return Metadata{}, "", ErrNotFound
		}
		return Metadata{}, "", fmt.Errorf("read cache metadata: %w", err)
	}

	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return Metadata{}, "", fmt.Errorf("decode cache metadata %s: %w", mp, err)
	}

	dataPath := filepath.Join(filepath.Dir(mp), meta.File)
	if _, err := filesystem.StatWithRetry(dataPath, s.retry); err != nil {
		if os.IsNotExist(err) {
			return Metadata{}, "", ErrNotFound
		}
		return Metadata{}, "", fmt.Errorf("stat cache data: %w", err)
	}
	return meta, dataPath, nil
}

// Exists reports whether a committed entry exists for key.
func (s *Store) Exists(key Key) bool {
	_, _, err := s.Stat(key)
	return err == nil
}

// Read returns the bytes and metadata of a committed entry.
func (s *Store) Read(key Key) ([]byte, Metadata, error) {
	meta, dataPath, err := s.Stat(key)
	if err != nil {
		return nil, Metadata{}, err
	}
	data, err := filesystem.ReadFileWithRetry(dataPath, s.retry)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, Metadata{}, ErrNotFound
		}
		return nil, Metadata{}, fmt.Errorf("read cache data: %w", err)
	}
	return data, meta, nil
}

// Write stores data under key and returns the absolute data path. The data
// file is written first and the sidecar last, each atomically, so readers
// never observe a partial entry. A committed entry is never overwritten.
func (s *Store) Write(key Key, data []byte, meta Metadata) (string, error) {
	if existing, dataPath, err := s.Stat(key); err == nil {
		logging.Debug("Cache entry %s/%s already committed (%s), keeping it", key.Asset, key.CacheKey, existing.File)
		return dataPath, nil
	}

	mp, err := s.metaPath(key)
	if err != nil {
		return "", err
	}
	ext := strings.TrimPrefix(meta.Extension, ".")
	if ext == "" {
		ext = "bin"
	}

	meta.Extension = ext
	meta.File = key.CacheKey + "." + ext
	meta.ByteSize = int64(len(data))
	if meta.CreatedAt.IsZero() {
		meta.CreatedAt = time.Now().UTC()
	}

	dataPath := filepath.Join(filepath.Dir(mp), meta.File)
	if err := filesystem.WriteFileAtomic(dataPath, data, 0o644, s.retry); err != nil {
		metrics.CacheWritesTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("write cache data: %w", err)
	}

	encoded, err := json.Marshal(meta)
	if err != nil {
		metrics.CacheWritesTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("encode cache metadata: %w", err)
	}
	if err := filesystem.WriteFileAtomic(mp, encoded, 0o644, s.retry); err != nil {
		metrics.CacheWritesTotal.WithLabelValues("error").Inc()
		return "", fmt.Errorf("commit cache entry: %w", err)
	}

	metrics.CacheWritesTotal.WithLabelValues("success").Inc()
	return dataPath, nil
}

// InvalidateAsset removes every entry derived from asset.
func (s *Store) InvalidateAsset(asset string) (int, error) {
	dir, err := s.assetDir(asset)
	if err != nil {
		return 0, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("list cache entries: %w", err)
	}

	removed := 0
	// Sidecars first so no reader sees a committed entry without data.
	for _, e := range entries {
		if !e.Type().IsRegular() || !strings.HasSuffix(e.Name(), metaSuffix) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("remove %s: %w", e.Name(), err)
		}
		removed++
	}
	for _, e := range entries {
		if !e.Type().IsRegular() || strings.HasSuffix(e.Name(), metaSuffix) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("remove %s: %w", e.Name(), err)
		}
	}
	_ = os.Remove(dir)

	logging.Info("Invalidated %d cache entries for %s", removed, asset)
	return removed, nil
}

// RelativePath returns abs relative to the cache root in slash form.
func (s *Store) RelativePath(abs string) (string, error) {
	rel, err := filepath.Rel(s.root, abs)
	if err != nil {
		return "", err
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%s is outside the cache root", abs)
	}
	return filepath.ToSlash(rel), nil
}

// Usage counts committed entries and their total size.
func (s *Store) Usage() (entries int, bytes int64, err error) {
	err = filepath.WalkDir(s.root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if os.IsNotExist(walkErr) {
				return nil
			}
			return walkErr
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), metaSuffix) {
			return nil
		}
		meta, ok := readMeta(path)
		if !ok {
			return nil
		}
		entries++
		bytes += meta.ByteSize
		return nil
	})
	return entries, bytes, err
}

func readMeta(path string) (Metadata, bool) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, false
	}
	var meta Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return Metadata{}, false
	}
	return meta, true
}
