package filesystem

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"
)

func TestDefaultRetryConfig(t *testing.T) {
	config := DefaultRetryConfig()

	if config.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", config.MaxRetries)
	}
	if config.InitialBackoff != 50*time.Millisecond {
		t.Errorf("InitialBackoff = %v, want 50ms", config.InitialBackoff)
	}
	if config.MaxBackoff != 500*time.Millisecond {
		t.Errorf("MaxBackoff = %v, want 500ms", config.MaxBackoff)
	}
	if config.VolumeResolver != nil {
		t.Error("VolumeResolver should be nil by default")
	}
}

func TestIsNFSStaleError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error", nil, false},
		{"ESTALE error", syscall.ESTALE, true},
		{"wrapped ESTALE", &os.PathError{Op: "stat", Path: "/x", Err: syscall.ESTALE}, true},
		{"ENOENT error", syscall.ENOENT, false},
		{"generic error", os.ErrNotExist, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isNFSStaleError(tt.err); got != tt.want {
				t.Errorf("isNFSStaleError() = %v, want %v", got, tt.want)
			}
		})
	}
}

// =============================================================================
// VolumeResolver Tests
// =============================================================================

func TestVolumeResolver_Resolve(t *testing.T) {
	vr := NewVolumeResolver(map[string]string{
		"media":    "/media",
		"cache":    "/cache",
		"locks":    "/cache/locks",
		"database": "/database",
	})

	tests := []struct {
		name string
		path string
		want string
	}{
		{"media root", "/media", "media"},
		{"media file", "/media/catalog/product/a.jpg", "media"},
		{"cache entry", "/cache/images/catalog/a.jpg/abc.webp", "cache"},
		{"longest prefix wins", "/cache/locks/abc.lock", "locks"},
		{"database file", "/database/jobs.db", "database"},
		{"similar prefix is not a match", "/media-backup/a.jpg", "unknown"},
		{"unrelated", "/tmp/x", "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := vr.Resolve(tt.path); got != tt.want {
				t.Errorf("Resolve(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

func TestVolumeResolver_Resolve_NilResolver(t *testing.T) {
	var vr *VolumeResolver
	if got := vr.Resolve("/media/a.jpg"); got != "unknown" {
		t.Errorf("nil Resolve() = %q, want unknown", got)
	}
}

func TestRetryConfig_ResolveVolume_UsesConfigResolver(t *testing.T) {
	config := DefaultRetryConfig()
	config.VolumeResolver = NewVolumeResolver(map[string]string{"cache": "/cache"})

	if got := config.resolveVolume("/cache/a"); got != "cache" {
		t.Errorf("resolveVolume() = %q, want cache", got)
	}
}

// =============================================================================
// Retry wrappers
// =============================================================================

func TestStatWithRetry_Success(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	if err := os.WriteFile(path, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}

	info, err := StatWithRetry(path, DefaultRetryConfig())
	if err != nil {
		t.Fatalf("StatWithRetry() error = %v", err)
	}
	if info.Size() != 5 {
		t.Errorf("Size() = %d, want 5", info.Size())
	}
}

func TestStatWithRetry_NotExistFailsFast(t *testing.T) {
	config := RetryConfig{MaxRetries: 3, InitialBackoff: time.Second, MaxBackoff: time.Second}

	start := time.Now()
	_, err := StatWithRetry(filepath.Join(t.TempDir(), "missing"), config)
	if !os.IsNotExist(err) {
		t.Fatalf("StatWithRetry() error = %v, want not-exist", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("non-ESTALE errors must not be retried")
	}
}

func TestReadFileWithRetry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.bin")
	want := []byte{1, 2, 3}
	if err := os.WriteFile(path, want, 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := ReadFileWithRetry(path, DefaultRetryConfig())
	if err != nil {
		t.Fatalf("ReadFileWithRetry() error = %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("ReadFileWithRetry() = %v, want %v", got, want)
	}
}

func TestWithRetry_RetriesStaleHandles(t *testing.T) {
	config := RetryConfig{MaxRetries: 3, InitialBackoff: time.Millisecond, MaxBackoff: 2 * time.Millisecond}

	calls := 0
	got, err := withRetry("stat", "/x", config, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, syscall.ESTALE
		}
		return 42, nil
	})
	if err != nil {
		t.Fatalf("withRetry() error = %v", err)
	}
	if got != 42 || calls != 3 {
		t.Errorf("withRetry() = %d after %d calls, want 42 after 3", got, calls)
	}
}

func TestWithRetry_GivesUp(t *testing.T) {
	config := RetryConfig{MaxRetries: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}

	calls := 0
	_, err := withRetry("open", "/x", config, func() (int, error) {
		calls++
		return 0, syscall.ESTALE
	})
	if !errors.Is(err, syscall.ESTALE) {
		t.Errorf("withRetry() error = %v, want ESTALE", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3 (initial + 2 retries)", calls)
	}
}

// =============================================================================
// WriteFileAtomic
// =============================================================================

func TestWriteFileAtomic_CreatesParentsAndLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "deeper", "out.bin")

	if err := WriteFileAtomic(path, []byte("payload"), 0o644, DefaultRetryConfig()); err != nil {
		t.Fatalf("WriteFileAtomic() error = %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "payload" {
		t.Errorf("content = %q, want payload", got)
	}

	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range entries {
		if IsTempFile(e.Name()) {
			t.Errorf("temp file left behind: %s", e.Name())
		}
	}
}

func TestWriteFileAtomic_ConcurrentWritersNeverTear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.bin")
	a := bytes.Repeat([]byte("a"), 64*1024)
	b := bytes.Repeat([]byte("b"), 64*1024)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			data := a
			if i%2 == 1 {
				data = b
			}
			if err := WriteFileAtomic(path, data, 0o644, DefaultRetryConfig()); err != nil {
				t.Errorf("WriteFileAtomic() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, a) && !bytes.Equal(got, b) {
		t.Error("final content is a mix of writers")
	}
}

func TestIsTempFile(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{".abc.webp.0f3c.tmp", true},
		{"abc.webp", false},
		{".hidden", false},
		{"abc.tmp", false},
	}
	for _, tt := range tests {
		if got := IsTempFile(tt.name); got != tt.want {
			t.Errorf("IsTempFile(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

// =============================================================================
// Observer wiring
// =============================================================================

type countingObserver struct {
	mu     sync.Mutex
	ops    map[string]int
	stale  int
	errors int
}

func (o *countingObserver) ObserveOperation(_ string, op string, _ float64, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.ops == nil {
		o.ops = map[string]int{}
	}
	o.ops[op]++
	if err != nil {
		o.errors++
	}
}
func (o *countingObserver) ObserveRetryAttempt(string, string)            {}
func (o *countingObserver) ObserveRetrySuccess(string, string)            {}
func (o *countingObserver) ObserveRetryFailure(string, string)            {}
func (o *countingObserver) ObserveRetryDuration(string, string, float64) {}
func (o *countingObserver) ObserveStaleError(string, string) {
	o.mu.Lock()
	o.stale++
	o.mu.Unlock()
}

func TestObserverReceivesOperations(t *testing.T) {
	obs := &countingObserver{}
	SetObserver(obs)
	defer SetObserver(nil)

	path := filepath.Join(t.TempDir(), "x")
	if err := WriteFileAtomic(path, []byte("x"), 0o644, DefaultRetryConfig()); err != nil {
		t.Fatal(err)
	}
	if _, err := ReadFileWithRetry(path, DefaultRetryConfig()); err != nil {
		t.Fatal(err)
	}
	_, _ = StatWithRetry(path+".missing", DefaultRetryConfig())

	obs.mu.Lock()
	defer obs.mu.Unlock()
	if obs.ops["write"] != 1 || obs.ops["rename"] != 1 || obs.ops["read"] != 1 || obs.ops["stat"] != 1 {
		t.Errorf("ops = %v, want one each of write/rename/read/stat", obs.ops)
	}
	if obs.errors != 1 {
		t.Errorf("errors = %d, want 1 (the missing stat)", obs.errors)
	}
}
