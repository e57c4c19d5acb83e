package gemini

import (
	"context"
	"errors"
	"testing"

	"image-resize-ai/internal/mediaerr"
)

func TestSplitBaseURL(t *testing.T) {
	tests := []struct {
		raw         string
		wantBase    string
		wantVersion string
		wantErr     bool
	}{
		{"https://generativelanguage.googleapis.com/v1beta", "https://generativelanguage.googleapis.com/", "v1beta", false},
		{"https://generativelanguage.googleapis.com/v1beta/", "https://generativelanguage.googleapis.com/", "v1beta", false},
		{"https://generativelanguage.googleapis.com", "https://generativelanguage.googleapis.com/", "v1beta", false},
		{"http://localhost:8089/mock/v1", "http://localhost:8089/mock/", "v1", false},
		{"not a url", "", "", true},
		{"/relative/v1beta", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			base, version, err := splitBaseURL(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("splitBaseURL() error = %v, wantErr %v", err, tt.wantErr)
			}
			if base != tt.wantBase || version != tt.wantVersion {
				t.Errorf("splitBaseURL() = %q, %q, want %q, %q", base, version, tt.wantBase, tt.wantVersion)
			}
		})
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(context.Background(), Options{}); !errors.Is(err, ErrNoAPIKey) {
		t.Errorf("NewClient() error = %v, want ErrNoAPIKey", err)
	}
}

func TestNewClientDefaults(t *testing.T) {
	c, err := NewClient(context.Background(), Options{APIKey: "test-key"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	if c.imageModel != DefaultImageModel {
		t.Errorf("imageModel = %q, want %q", c.imageModel, DefaultImageModel)
	}
	if c.videoModel != DefaultVideoModel {
		t.Errorf("videoModel = %q, want %q", c.videoModel, DefaultVideoModel)
	}
	if c.apiHost != "generativelanguage.googleapis.com" {
		t.Errorf("apiHost = %q", c.apiHost)
	}
}

func TestProviderErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"plain", errors.New("connection reset")},
		{"deadline", context.DeadlineExceeded},
		{"already classified", mediaerr.New(mediaerr.ErrProvider, "x", "y", nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := providerError("status", tt.err); !errors.Is(err, mediaerr.ErrProvider) {
				t.Errorf("providerError() = %v, want ErrProvider kind", err)
			}
		})
	}
}
