package cache

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return s
}

func TestWriteThenRead(t *testing.T) {
	s := newTestStore(t)
	key := Key{Asset: "catalog/shoe.jpg", CacheKey: "0123456789abcdef0123456789abcdef"}
	data := []byte("webp bytes")

	path, err := s.Write(key, data, Metadata{MimeType: "image/webp", Extension: "webp", RawCacheKey: "img:catalog/shoe.jpg?w=1"})
	if err != nil {
		t.Fatalf("Write() error: %v", err)
	}
	if want := filepath.Join(s.Root(), "catalog", "shoe.jpg", key.CacheKey+".webp"); path != want {
		t.Errorf("Write() path = %q, want %q", path, want)
	}

	got, meta, err := s.Read(key)
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Read() data = %q, want %q", got, data)
	}
	if meta.MimeType != "image/webp" || meta.ByteSize != int64(len(data)) || meta.CreatedAt.IsZero() {
		t.Errorf("Read() meta = %+v", meta)
	}
	if !s.Exists(key) {
		t.Error("Exists() = false after Write")
	}

	rel, err := s.RelativePath(path)
	if err != nil || rel != "catalog/shoe.jpg/"+key.CacheKey+".webp" {
		t.Errorf("RelativePath() = %q, %v", rel, err)
	}
}

func TestReadMissing(t *testing.T) {
	s := newTestStore(t)
	key := Key{Asset: "a.jpg", CacheKey: "ffff"}

	if _, _, err := s.Read(key); !errors.Is(err, ErrNotFound) {
		t.Errorf("Read() error = %v, want ErrNotFound", err)
	}
	if s.Exists(key) {
		t.Error("Exists() = true for missing entry")
	}
}

func TestDataWithoutSidecarIsNotCommitted(t *testing.T) {
	s := newTestStore(t)
	key := Key{Asset: "a.jpg", CacheKey: "abcd"}
	dir := filepath.Join(s.Root(), "a.jpg")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "abcd.png"), []byte("partial"), 0o644); err != nil {
		t.Fatal(err)
	}

	if s.Exists(key) {
		t.Error("Exists() = true for data file with no sidecar")
	}
}

func TestWriteKeepsCommittedEntry(t *testing.T) {
	s := newTestStore(t)
	key := Key{Asset: "a.jpg", CacheKey: "abcd"}

	if _, err := s.Write(key, []byte("first"), Metadata{Extension: "png"}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Write(key, []byte("second"), Metadata{Extension: "png"}); err != nil {
		t.Fatal(err)
	}

	got, _, err := s.Read(key)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "first" {
		t.Errorf("Read() = %q, want first write to win", got)
	}
}

func TestWriteRejectsBadKeys(t *testing.T) {
	s := newTestStore(t)
	tests := []Key{
		{Asset: "../escape.jpg", CacheKey: "abcd"},
		{Asset: "a.jpg", CacheKey: "../abcd"},
		{Asset: "a.jpg", CacheKey: ""},
	}
	for _, key := range tests {
		if _, err := s.Write(key, []byte("x"), Metadata{}); err == nil {
			t.Errorf("Write(%+v) = nil error, want error", key)
		}
	}
}

func TestConcurrentReadersNeverSeePartialEntries(t *testing.T) {
	s := newTestStore(t)
	key := Key{Asset: "big.jpg", CacheKey: "feed"}
	data := bytes.Repeat([]byte("x"), 1<<20)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	errs := make(chan error, 8)

	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				got, _, err := s.Read(key)
				if errors.Is(err, ErrNotFound) {
					continue
				}
				if err != nil {
					errs <- err
					return
				}
				if len(got) != len(data) {
					errs <- fmt.Errorf("read %d bytes, want %d", len(got), len(data))
					return
				}
			}
		}()
	}

	if _, err := s.Write(key, data, Metadata{Extension: "jpg"}); err != nil {
		t.Fatal(err)
	}
	time.Sleep(20 * time.Millisecond)
	close(stop)
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestInvalidateAsset(t *testing.T) {
	s := newTestStore(t)
	a1 := Key{Asset: "catalog/a.jpg", CacheKey: "k1"}
	a2 := Key{Asset: "catalog/a.jpg", CacheKey: "k2"}
	b := Key{Asset: "catalog/b.jpg", CacheKey: "k1"}
	for _, k := range []Key{a1, a2, b} {
		if _, err := s.Write(k, []byte("x"), Metadata{Extension: "png"}); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := s.InvalidateAsset("catalog/a.jpg")
	if err != nil {
		t.Fatalf("InvalidateAsset() error: %v", err)
	}
	if removed != 2 {
		t.Errorf("InvalidateAsset() removed %d, want 2", removed)
	}
	if s.Exists(a1) || s.Exists(a2) {
		t.Error("entries for invalidated asset still exist")
	}
	if !s.Exists(b) {
		t.Error("entry for other asset was removed")
	}

	if removed, err := s.InvalidateAsset("never/cached.jpg"); err != nil || removed != 0 {
		t.Errorf("InvalidateAsset(uncached) = %d, %v; want 0, nil", removed, err)
	}
}

func TestUsage(t *testing.T) {
	s := newTestStore(t)
	for i, size := range []int{10, 20} {
		key := Key{Asset: "a.jpg", CacheKey: fmt.Sprintf("k%d", i)}
		if _, err := s.Write(key, make([]byte, size), Metadata{Extension: "png"}); err != nil {
			t.Fatal(err)
		}
	}

	entries, size, err := s.Usage()
	if err != nil {
		t.Fatalf("Usage() error: %v", err)
	}
	if entries != 2 || size != 30 {
		t.Errorf("Usage() = %d entries, %d bytes; want 2, 30", entries, size)
	}
}
