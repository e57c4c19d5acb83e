package cache

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSweepRemovesExpiredEntries(t *testing.T) {
	s := newTestStore(t)
	now := time.Now()

	old := Key{Asset: "catalog/old.jpg", CacheKey: "old"}
	fresh := Key{Asset: "catalog/fresh.jpg", CacheKey: "fresh"}

	if _, err := s.Write(old, []byte("old"), Metadata{Extension: "png", CreatedAt: now.Add(-48 * time.Hour)}); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Write(fresh, []byte("fresh"), Metadata{Extension: "png", CreatedAt: now}); err != nil {
		t.Fatal(err)
	}

	stats, err := s.sweepAt(now, 24*time.Hour)
	if err != nil {
		t.Fatalf("Sweep() error: %v", err)
	}

	if stats.Scanned != 2 || stats.Removed != 1 {
		t.Errorf("Sweep() stats = %+v, want scanned=2 removed=1", stats)
	}
	if s.Exists(old) {
		t.Error("expired entry still exists")
	}
	if !s.Exists(fresh) {
		t.Error("fresh entry was removed")
	}
	if _, err := os.Stat(filepath.Join(s.Root(), "catalog", "old.jpg")); !os.IsNotExist(err) {
		t.Errorf("empty asset directory not pruned: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.Root(), "catalog")); err != nil {
		t.Errorf("non-empty parent pruned: %v", err)
	}
}

func TestSweepRemovesStaleOrphans(t *testing.T) {
	s := newTestStore(t)
	dir := filepath.Join(s.Root(), "a.jpg")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}

	orphan := filepath.Join(dir, "dead.png")
	temp := filepath.Join(dir, ".dead.png.1234.tmp")
	young := filepath.Join(dir, "young.png")
	for _, p := range []string{orphan, temp, young} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	past := time.Now().Add(-2 * time.Hour)
	for _, p := range []string{orphan, temp} {
		if err := os.Chtimes(p, past, past); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := s.Sweep(time.Hour)
	if err != nil {
		t.Fatalf("Sweep() error: %v", err)
	}
	if stats.Orphans != 2 {
		t.Errorf("Sweep() orphans = %d, want 2", stats.Orphans)
	}
	if _, err := os.Stat(young); err != nil {
		t.Errorf("young uncommitted file removed: %v", err)
	}
}

func TestSweepRejectsNonPositiveTTL(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.Sweep(0); err == nil {
		t.Error("Sweep(0) = nil error, want error")
	}
}
