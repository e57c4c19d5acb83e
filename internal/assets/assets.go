// Package assets resolves virtual asset paths against the media root.
package assets

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"image-resize-ai/internal/filesystem"
)

var (
	// ErrNotFound is returned when the asset does not exist under the root.
	ErrNotFound = errors.New("asset not found")
	// ErrTraversal is returned for paths that would escape the root.
	ErrTraversal = errors.New("path escapes media root")
)

// Prefixes stripped from incoming paths. Store-style URLs often carry them.
var strippedPrefixes = []string{"pub/media/", "media/"}

// Ref identifies a source asset. Digest is optional and, when set, is the
// content digest of the source bytes.
type Ref struct {
	Path   string
	Digest string
}

// NormalizePath turns a client-supplied path into the slash-separated path
// relative to the media root.
func NormalizePath(p string) (string, error) {
	if strings.ContainsRune(p, 0) || strings.Contains(p, `\`) {
		return "", ErrTraversal
	}

	for _, seg := range strings.Split(p, "/") {
		if seg == ".." {
			return "", ErrTraversal
		}
	}

	p = strings.TrimLeft(p, "/")
	for strings.HasPrefix(p, "./") {
		p = strings.TrimLeft(p[2:], "/")
	}
	for _, prefix := range strippedPrefixes {
		if strings.HasPrefix(p, prefix) {
			p = p[len(prefix):]
			break
		}
	}

	p = path.Clean("/" + p)[1:]
	if p == "" || p == "." {
		return "", fmt.Errorf("empty asset path")
	}
	return p, nil
}

// Resolver maps virtual asset paths to files below root.
type Resolver struct {
	root  string
	retry filesystem.RetryConfig
}

// NewResolver creates a resolver rooted at root.
func NewResolver(root string) (*Resolver, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve media root: %w", err)
	}
	if real, err := filepath.EvalSymlinks(abs); err == nil {
		abs = real
	}
	return &Resolver{root: abs, retry: filesystem.DefaultRetryConfig()}, nil
}

// Root returns the absolute media root.
func (r *Resolver) Root() string {
	return r.root
}

// Resolve returns the physical path of an existing regular file.
func (r *Resolver) Resolve(virtual string) (string, error) {
	rel, err := NormalizePath(virtual)
	if err != nil {
		if errors.Is(err, ErrTraversal) {
			return "", err
		}
		return "", ErrNotFound
	}

	full := filepath.Join(r.root, filepath.FromSlash(rel))
	if !isSubPath(r.root, full) {
		return "", ErrTraversal
	}

	real, err := filepath.EvalSymlinks(full)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("resolve %s: %w", rel, err)
	}
	if !isSubPath(r.root, real) {
		return "", ErrTraversal
	}

	info, err := filesystem.StatWithRetry(real, r.retry)
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("stat %s: %w", rel, err)
	}
	if !info.Mode().IsRegular() {
		return "", ErrNotFound
	}
	return real, nil
}

// Exists reports whether virtual names a readable asset.
func (r *Resolver) Exists(virtual string) bool {
	_, err := r.Resolve(virtual)
	return err == nil
}

// Read returns the asset bytes and their sniffed MIME type.
func (r *Resolver) Read(virtual string) ([]byte, string, error) {
	full, err := r.Resolve(virtual)
	if err != nil {
		return nil, "", err
	}
	data, err := filesystem.ReadFileWithRetry(full, r.retry)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("read %s: %w", virtual, err)
	}
	return data, http.DetectContentType(data), nil
}

// isSubPath reports whether child is root itself or lies below it.
func isSubPath(root, child string) bool {
	rel, err := filepath.Rel(root, child)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
