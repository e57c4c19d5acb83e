package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"google.golang.org/genai"

	"image-resize-ai/internal/logging"
	"image-resize-ai/internal/mediaerr"
	"image-resize-ai/internal/metrics"
)

// Default model names.
const (
	DefaultImageModel = "gemini-2.5-flash-image"
	DefaultVideoModel = "veo-3.1-generate-preview"
	DefaultBaseURL    = "https://generativelanguage.googleapis.com/v1beta"
)

// ErrNoAPIKey is returned by NewClient without an API key.
var ErrNoAPIKey = errors.New("gemini: API key is required")

// Options configures a Client.
type Options struct {
	APIKey string
	// BaseURL may carry an API version suffix such as /v1beta. A mock
	// server URL works here.
	BaseURL    string
	ImageModel string
	VideoModel string
	// HTTPClient is used for API calls and video downloads. Per-call
	// deadlines come from the context.
	HTTPClient *http.Client
}

// Client wraps a genai client with the settings both capabilities share.
type Client struct {
	genai      *genai.Client
	apiKey     string
	apiHost    string
	imageModel string
	videoModel string
	http       *http.Client
}

// NewClient creates a Gemini API client.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if opts.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.ImageModel == "" {
		opts.ImageModel = DefaultImageModel
	}
	if opts.VideoModel == "" {
		opts.VideoModel = DefaultVideoModel
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}

	base, version, err := splitBaseURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    base,
			APIVersion: version,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	u, _ := url.Parse(base)
	logging.Info("Gemini client configured: endpoint=%s version=%s image_model=%s video_model=%s",
		base, version, opts.ImageModel, opts.VideoModel)

	return &Client{
		genai:      gc,
		apiKey:     opts.APIKey,
		apiHost:    u.Host,
		imageModel: opts.ImageModel,
		videoModel: opts.VideoModel,
		http:       opts.HTTPClient,
	}, nil
}

// splitBaseURL separates a trailing API version path segment from raw.
func splitBaseURL(raw string) (base, version string, err error) {
	u, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", "", fmt.Errorf("gemini: invalid base URL %q", raw)
	}

	version = "v1beta"
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if last := segments[len(segments)-1]; strings.HasPrefix(last, "v1") {
		version = last
		segments = segments[:len(segments)-1]
	}
	u.Path = "/" + strings.Join(segments, "/")
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String(), version, nil
}

// observe records a provider call and converts its error.
func observe(op string, start time.Time, err error) error {
	metrics.ProviderRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	if err == nil {
		return nil
	}
	metrics.ProviderErrorsTotal.WithLabelValues(op).Inc()
	return providerError(op, err)
}

func providerError(op string, err error) error {
	if mediaerr.KindOf(err) != nil {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return mediaerr.New(mediaerr.ErrProvider, "gemini "+op, "request timed out", err)
	}

	var apiErr *genai.APIError
	if errors.As(err, &apiErr) {
		return mediaerr.New(mediaerr.ErrProvider, "gemini "+op, describeAPIError(apiErr), err)
	}
	return mediaerr.Wrap(mediaerr.ErrProvider, "gemini "+op, err)
}

func describeAPIError(e *genai.APIError) string {
	switch e.Code {
	case http.StatusBadRequest:
		return "request rejected"
	case http.StatusUnauthorized, http.StatusForbidden:
		return "API key is invalid, expired, or lacks permissions"
	case http.StatusNotFound:
		return "model or operation not found"
	case http.StatusTooManyRequests:
		return "rate limit exceeded, try again later"
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return "provider server error, try again later"
	}
	return fmt.Sprintf("provider returned %d", e.Code)
}
