package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"

	"image-resize-ai/internal/engine"
	"image-resize-ai/internal/handlers"
)

type stubTransformer struct{}

func (stubTransformer) HandleRaw(context.Context, string, string) (engine.Result, error) {
	return engine.Result{}, nil
}

func TestSetupRouter(t *testing.T) {
	r := setupRouter(handlers.New(stubTransformer{}, nil, nil, t.TempDir()))

	tests := []struct {
		method    string
		path      string
		wantMatch bool
	}{
		{"GET", "/health", true},
		{"GET", "/healthz", true},
		{"HEAD", "/livez", true},
		{"GET", "/readyz", true},
		{"GET", "/version", true},
		{"GET", "/media/catalog/cat.jpg", true},
		{"HEAD", "/media/t/abc.sig/cat.jpg", true},
		{"GET", "/api/transform/cat.jpg", true},
		{"POST", "/api/video", true},
		{"GET", "/api/video/status", true},
		{"GET", "/cache/video/cat.jpg/k.mp4", true},
		{"POST", "/media/cat.jpg", false},
		{"GET", "/api/video", false},
		{"GET", "/metrics", false},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.path, nil)
			var match mux.RouteMatch
			got := r.Match(req, &match) && match.MatchErr == nil
			if got != tt.wantMatch {
				t.Errorf("Match(%s %s) = %v, want %v", tt.method, tt.path, got, tt.wantMatch)
			}
		})
	}
}

func TestMetricsServer(t *testing.T) {
	srv := newMetricsServer("9999", handlers.New(stubTransformer{}, nil, nil, t.TempDir()))

	if srv.Addr != ":9999" {
		t.Errorf("Addr = %q", srv.Addr)
	}
	if srv.ReadTimeout <= 0 || srv.WriteTimeout <= 0 || srv.IdleTimeout <= 0 {
		t.Errorf("metrics server timeouts must be positive: %v %v %v", srv.ReadTimeout, srv.WriteTimeout, srv.IdleTimeout)
	}

	for _, path := range []string{"/metrics", "/health"} {
		rec := httptest.NewRecorder()
		srv.Handler.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}

func TestShutdownTimeout(t *testing.T) {
	if shutdownTimeout < serverReadHeaderTimeout {
		t.Errorf("shutdownTimeout %v shorter than header timeout %v", shutdownTimeout, serverReadHeaderTimeout)
	}
}
