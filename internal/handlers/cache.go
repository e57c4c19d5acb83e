package handlers

import (
	"errors"
	"io/fs"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	"github.com/gorilla/mux"

	"image-resize-ai/internal/filesystem"
	"image-resize-ai/internal/logging"
	"image-resize-ai/internal/media"
)

const metaSidecarSuffix = ".meta.json"

// ServeCache answers GET /cache/{path}: materialised artifacts, chiefly the
// videos whose URLs the video endpoints hand out. Sidecars and in-flight
// temp files are never served.
func (h *Handlers) ServeCache(w http.ResponseWriter, r *http.Request) {
	rel := mux.Vars(r)["path"]
	name := path.Base(rel)
	if rel == "" || strings.HasSuffix(name, metaSidecarSuffix) || filesystem.IsTempFile(name) {
		writeJSONError(w, "File not found", http.StatusNotFound)
		return
	}

	fullPath := filepath.Join(h.cacheDir, filepath.FromSlash(path.Clean("/"+rel)))
	if !isSubPath(h.cacheDir, fullPath) {
		logging.Warn("Cache: path outside cache dir: %s", rel)
		writeJSONError(w, "Invalid path", http.StatusBadRequest)
		return
	}

	info, err := filesystem.StatWithRetry(fullPath, h.retry)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			writeJSONError(w, "File not found", http.StatusNotFound)
		} else {
			logging.Error("Cache: failed to stat %s: %v", fullPath, err)
			writeJSONError(w, "Failed to access file", http.StatusInternalServerError)
		}
		return
	}
	if info.IsDir() {
		writeJSONError(w, "File not found", http.StatusNotFound)
		return
	}

	f, err := filesystem.OpenWithRetry(fullPath, h.retry)
	if err != nil {
		logging.Error("Cache: failed to open %s: %v", fullPath, err)
		writeJSONError(w, "Failed to access file", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	if mimeType, ok := media.MimeTypeForExtension(path.Ext(name)); ok {
		w.Header().Set("Content-Type", mimeType)
	}
	w.Header().Set("Cache-Control", artifactCacheControl)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeContent(w, r, name, info.ModTime(), f)
}

func isSubPath(parent, child string) bool {
	parent, err := filepath.Abs(parent)
	if err != nil {
		return false
	}
	child, err = filepath.Abs(child)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
