package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"image-resize-ai/internal/jobs"
	"image-resize-ai/internal/logging"
)

const maxVideoRequestBody = 1 << 20

// VideoRequest is the body of POST /api/video.
type VideoRequest struct {
	Image         string `json:"image"`
	SecondImage   string `json:"secondImage,omitempty"`
	Prompt        string `json:"prompt"`
	AspectRatio   string `json:"aspectRatio,omitempty"`
	Silent        bool   `json:"silent,omitempty"`
	AutoReference bool   `json:"autoReference,omitempty"`
	RetryFailed   bool   `json:"retryFailed,omitempty"`
	// Wait blocks until the video is ready or the poll budget is spent.
	Wait            bool    `json:"wait,omitempty"`
	TimeoutSeconds  float64 `json:"timeoutSeconds,omitempty"`
	IntervalSeconds float64 `json:"intervalSeconds,omitempty"`
}

// SubmitVideo answers POST /api/video. Without wait it returns as soon as
// the job is submitted, cached or found in flight.
func (h *Handlers) SubmitVideo(w http.ResponseWriter, r *http.Request) {
	if h.videos == nil {
		writeJSONError(w, "video generation is not configured", http.StatusServiceUnavailable)
		return
	}

	var body VideoRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxVideoRequestBody))
	if err := dec.Decode(&body); err != nil {
		writeJSONError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if body.TimeoutSeconds < 0 || body.IntervalSeconds < 0 {
		writeJSONError(w, "timeoutSeconds and intervalSeconds must not be negative", http.StatusBadRequest)
		return
	}

	req := jobs.SubmitRequest{
		Asset:         body.Image,
		SecondAsset:   body.SecondImage,
		Prompt:        body.Prompt,
		AspectRatio:   body.AspectRatio,
		Silent:        body.Silent,
		AutoReference: body.AutoReference,
		Resubmit:      body.RetryFailed,
	}

	var (
		res jobs.Result
		err error
	)
	if body.Wait {
		timeout := seconds(body.TimeoutSeconds, h.videos.Config().PollTimeout)
		interval := seconds(body.IntervalSeconds, h.videos.Config().PollInterval)
		res, err = h.videos.SubmitAndWait(r.Context(), req, timeout, interval)
	} else {
		res, err = h.videos.Submit(r.Context(), req)
	}
	if err != nil {
		writeError(w, r, err)
		return
	}

	logging.Debug("Video %s for %s: %s", res.CacheKey, body.Image, res.Outcome)
	writeVideoResult(w, res)
}

// GetVideoStatus answers GET /api/video/status. operation and cacheKey
// identify the job; timeout zero checks the provider once.
func (h *Handlers) GetVideoStatus(w http.ResponseWriter, r *http.Request) {
	if h.videos == nil {
		writeJSONError(w, "video generation is not configured", http.StatusServiceUnavailable)
		return
	}

	q := r.URL.Query()
	req := jobs.PollRequest{
		OperationName: strings.TrimSpace(q.Get("operation")),
		CacheKey:      strings.TrimSpace(q.Get("cacheKey")),
	}
	if req.OperationName == "" && req.CacheKey == "" {
		writeJSONError(w, "operation or cacheKey is required", http.StatusBadRequest)
		return
	}

	var ok bool
	if req.Timeout, ok = parseSeconds(q.Get("timeout"), 0); !ok {
		writeJSONError(w, "invalid timeout", http.StatusBadRequest)
		return
	}
	if req.Interval, ok = parseSeconds(q.Get("interval"), h.videos.Config().PollInterval); !ok {
		writeJSONError(w, "invalid interval", http.StatusBadRequest)
		return
	}

	res, err := h.videos.Poll(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeVideoResult(w, res)
}

// writeVideoResult answers 200 for terminal outcomes and 202 while the
// provider is still working.
func writeVideoResult(w http.ResponseWriter, res jobs.Result) {
	status := http.StatusOK
	if res.Outcome == jobs.OutcomeStillRunning {
		status = http.StatusAccepted
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSONStatusCode(w, res.Payload(), status)
}

func seconds(v float64, def time.Duration) time.Duration {
	if v <= 0 {
		return def
	}
	return time.Duration(v * float64(time.Second))
}
