package jobs

import (
	"testing"

	"image-resize-ai/internal/engine"
)

func TestResultPayload(t *testing.T) {
	tests := []struct {
		name        string
		result      Result
		wantSuccess bool
		wantStatus  string
		wantURL     string
	}{
		{
			name: "completed",
			result: Result{
				Outcome:   OutcomeCompleted,
				CacheKey:  "abc",
				FromCache: true,
				Video:     &engine.Result{URL: "/cache/video/a.jpg/abc.mp4", Path: "/data/abc.mp4", MimeType: "video/mp4"},
				EmbedHTML: "<video></video>",
			},
			wantSuccess: true,
			wantStatus:  "completed",
			wantURL:     "/cache/video/a.jpg/abc.mp4",
		},
		{
			name:        "running",
			result:      Result{Outcome: OutcomeStillRunning, OperationName: "operations/1"},
			wantSuccess: true,
			wantStatus:  "running",
		},
		{
			name:        "failed",
			result:      Result{Outcome: OutcomeFailed, Error: "blocked"},
			wantSuccess: false,
			wantStatus:  "failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tt.result.Payload()
			if p.Success != tt.wantSuccess || p.Status != tt.wantStatus || p.VideoURL != tt.wantURL {
				t.Errorf("Payload() = %+v", p)
			}
			if tt.result.Outcome == OutcomeStillRunning && p.Message == "" {
				t.Error("running payload has no message")
			}
			if tt.result.Outcome == OutcomeFailed && p.Error != tt.result.Error {
				t.Errorf("Error = %q, want %q", p.Error, tt.result.Error)
			}
		})
	}
}
