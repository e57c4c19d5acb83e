package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"image-resize-ai/internal/engine"
	"image-resize-ai/internal/filesystem"
	"image-resize-ai/internal/logging"
	"image-resize-ai/internal/mediaerr"
)

const artifactCacheControl = "public, max-age=86400"

// ServeTransform answers GET /media/{path}: the transformed image bytes.
// Params come from the query string or a /media/t/{token}/ prefix.
func (h *Handlers) ServeTransform(w http.ResponseWriter, r *http.Request) {
	res, err := h.transformer.HandleRaw(r.Context(), mux.Vars(r)["path"], r.URL.RawQuery)
	if err != nil {
		writeError(w, r, err)
		return
	}

	f, err := filesystem.OpenWithRetry(res.Path, h.retry)
	if err != nil {
		writeError(w, r, mediaerr.New(mediaerr.ErrStoreIO, "serve", "open cached artifact", err))
		return
	}
	defer f.Close()

	setCacheHeaders(w, res)
	w.Header().Set("Cache-Control", artifactCacheControl)
	w.Header().Set("X-Content-Type-Options", "nosniff")
	http.ServeContent(w, r, "", res.CreatedAt, f)
}

// GetTransform answers GET /api/transform/{path} with the JSON descriptor
// of the artifact instead of its bytes.
func (h *Handlers) GetTransform(w http.ResponseWriter, r *http.Request) {
	res, err := h.transformer.HandleRaw(r.Context(), mux.Vars(r)["path"], r.URL.RawQuery)
	if err != nil {
		writeError(w, r, err)
		return
	}

	logging.Debug("Transform descriptor %s (%s)", res.CacheKey, res.CacheStatus())
	setCacheHeaders(w, res)
	w.Header().Set("Cache-Control", "no-cache")
	writeJSONStatusCode(w, res, http.StatusOK)
}

func setCacheHeaders(w http.ResponseWriter, res engine.Result) {
	w.Header().Set("Content-Type", res.MimeType)
	w.Header().Set("X-Cache", res.CacheStatus())
	w.Header().Set("X-Cache-Key", res.CacheKey)
}
