package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"image-resize-ai/internal/logging"
	"image-resize-ai/internal/mediaerr"
)

// errorResponse is the body of every failed API call.
type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// writeJSON encodes v as JSON and writes it to the response writer.
// Any encoding or write errors are logged since we typically cannot
// recover from them in an HTTP handler context.
func writeJSON(w http.ResponseWriter, v interface{}) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Error("failed to encode JSON response: %v", err)
	}
}

// writeJSONStatusCode writes v as JSON with the given status code.
func writeJSONStatusCode(w http.ResponseWriter, v interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	writeJSON(w, v)
}

// writeJSONError writes an error response as JSON with the given status code.
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSONStatusCode(w, errorResponse{Error: message}, statusCode)
}

// writeError maps err onto its status and writes the client-facing message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mediaerr.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logging.Error("%s %s failed: %v", r.Method, r.URL.Path, err)
	} else {
		logging.Debug("%s %s rejected: %v", r.Method, r.URL.Path, err)
	}
	if mediaerr.Retryable(err) {
		w.Header().Set("Retry-After", "1")
	}
	writeJSONError(w, mediaerr.Message(err), status)
}

// writeJSONStatus writes a simple status response as JSON.
func writeJSONStatus(w http.ResponseWriter, status string) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, map[string]string{"status": status})
}

// parseSeconds reads a duration query value given as a Go duration or as
// bare seconds. Empty yields def.
func parseSeconds(v string, def time.Duration) (time.Duration, bool) {
	if v == "" {
		return def, true
	}
	if d, err := time.ParseDuration(v); err == nil && d >= 0 {
		return d, true
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil || secs < 0 {
		return 0, false
	}
	return time.Duration(secs * float64(time.Second)), true
}
