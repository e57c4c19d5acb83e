package assets

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{"plain", "catalog/shoe.jpg", "catalog/shoe.jpg", nil},
		{"leading slash", "/catalog/shoe.jpg", "catalog/shoe.jpg", nil},
		{"dot slash", "./catalog/shoe.jpg", "catalog/shoe.jpg", nil},
		{"store prefix", "pub/media/catalog/shoe.jpg", "catalog/shoe.jpg", nil},
		{"media prefix", "/media/catalog/shoe.jpg", "catalog/shoe.jpg", nil},
		{"double slashes", "catalog//shoe.jpg", "catalog/shoe.jpg", nil},
		{"parent segment", "catalog/../../etc/passwd", "", ErrTraversal},
		{"bare parent", "..", "", ErrTraversal},
		{"backslash", `catalog\..\secret`, "", ErrTraversal},
		{"nul byte", "shoe.jpg\x00.png", "", ErrTraversal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizePath(tt.in)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("NormalizePath(%q) error = %v, want %v", tt.in, err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("NormalizePath(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("NormalizePath(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalizePathEmpty(t *testing.T) {
	for _, in := range []string{"", "/", "./", "media/"} {
		if _, err := NormalizePath(in); err == nil {
			t.Errorf("NormalizePath(%q) = nil error, want error", in)
		}
	}
}

func newTestResolver(t *testing.T) (*Resolver, string) {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "catalog"), 0o755); err != nil {
		t.Fatal(err)
	}
	png := []byte("\x89PNG\r\n\x1a\n0000")
	if err := os.WriteFile(filepath.Join(root, "catalog", "shoe.png"), png, 0o644); err != nil {
		t.Fatal(err)
	}
	r, err := NewResolver(root)
	if err != nil {
		t.Fatalf("NewResolver() error: %v", err)
	}
	return r, root
}

func TestResolverRead(t *testing.T) {
	r, _ := newTestResolver(t)

	data, mime, err := r.Read("pub/media/catalog/shoe.png")
	if err != nil {
		t.Fatalf("Read() error: %v", err)
	}
	if len(data) == 0 {
		t.Error("Read() returned no data")
	}
	if mime != "image/png" {
		t.Errorf("Read() mime = %q, want image/png", mime)
	}
}

func TestResolverErrors(t *testing.T) {
	r, root := newTestResolver(t)

	outside := t.TempDir()
	if err := os.WriteFile(filepath.Join(outside, "secret.jpg"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(outside, filepath.Join(root, "escape")); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}

	tests := []struct {
		name string
		path string
		want error
	}{
		{"missing file", "catalog/missing.png", ErrNotFound},
		{"directory", "catalog", ErrNotFound},
		{"traversal", "../secret.jpg", ErrTraversal},
		{"symlink escape", "escape/secret.jpg", ErrTraversal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve(tt.path)
			if !errors.Is(err, tt.want) {
				t.Errorf("Resolve(%q) error = %v, want %v", tt.path, err, tt.want)
			}
			if r.Exists(tt.path) {
				t.Errorf("Exists(%q) = true, want false", tt.path)
			}
		})
	}
}

func TestIsSubPath(t *testing.T) {
	tests := []struct {
		root, child string
		want        bool
	}{
		{"/media", "/media", true},
		{"/media", "/media/a/b.jpg", true},
		{"/media", "/media-backup/a.jpg", false},
		{"/media", "/etc/passwd", false},
		{"/media", "/media/..hidden", true},
	}

	for _, tt := range tests {
		if got := isSubPath(tt.root, tt.child); got != tt.want {
			t.Errorf("isSubPath(%q, %q) = %v, want %v", tt.root, tt.child, got, tt.want)
		}
	}
}
