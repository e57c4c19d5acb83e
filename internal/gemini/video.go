package gemini

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"google.golang.org/genai"

	"image-resize-ai/internal/jobs"
	"image-resize-ai/internal/logging"
	"image-resize-ai/internal/mediaerr"
)

var _ jobs.Provider = (*VideoClient)(nil)

// maxVideoBytes bounds a downloaded video.
const maxVideoBytes = 512 << 20

// VideoClient drives the Veo long-running video operations. It implements
// jobs.Provider.
type VideoClient struct {
	*Client
}

// NewVideoClient returns the video capability of c.
func NewVideoClient(c *Client) *VideoClient {
	return &VideoClient{Client: c}
}

// SubmitJob starts a generation and returns its operation name. The first
// image is the start frame; a second image becomes the last frame.
func (c *VideoClient) SubmitJob(ctx context.Context, req jobs.VideoRequest) (string, error) {
	start := time.Now()

	config := &genai.GenerateVideosConfig{
		NumberOfVideos: 1,
		AspectRatio:    req.AspectRatio,
	}
	if req.SecondImage != nil {
		config.LastFrame = &genai.Image{ImageBytes: req.SecondImage.Data, MIMEType: req.SecondImage.MimeType}
	}
	image := &genai.Image{ImageBytes: req.Image.Data, MIMEType: req.Image.MimeType}

	op, err := c.genai.Models.GenerateVideos(ctx, c.videoModel, req.Prompt, image, config)
	if err != nil {
		return "", observe("submit", start, err)
	}
	if op == nil || op.Name == "" {
		return "", observe("submit", start,
			mediaerr.New(mediaerr.ErrProvider, "gemini submit", "operation name missing from response", nil))
	}
	_ = observe("submit", start, nil)

	logging.Info("Submitted video operation %s (model=%s, aspect=%s)", op.Name, c.videoModel, req.AspectRatio)
	return op.Name, nil
}

// GetStatus reports the state of an operation.
func (c *VideoClient) GetStatus(ctx context.Context, operationName string) (jobs.ProviderStatus, error) {
	start := time.Now()

	op, err := c.genai.Operations.GetVideosOperation(ctx, &genai.GenerateVideosOperation{Name: operationName}, nil)
	if err != nil {
		return jobs.ProviderStatus{}, observe("status", start, err)
	}
	_ = observe("status", start, nil)

	return statusFromOperation(op), nil
}

// statusFromOperation maps a Veo operation onto a provider status.
func statusFromOperation(op *genai.GenerateVideosOperation) jobs.ProviderStatus {
	if op == nil || !op.Done {
		return jobs.ProviderStatus{State: jobs.ProviderRunning}
	}

	if len(op.Error) > 0 {
		msg, _ := op.Error["message"].(string)
		if msg == "" {
			msg = fmt.Sprintf("%v", op.Error)
		}
		return jobs.ProviderStatus{State: jobs.ProviderFailed, Reason: "video generation failed: " + msg}
	}

	resp := op.Response
	if resp == nil {
		return jobs.ProviderStatus{State: jobs.ProviderFailed, Reason: "no video found in completed operation response"}
	}
	if len(resp.RAIMediaFilteredReasons) > 0 {
		count := int(resp.RAIMediaFilteredCount)
		if count == 0 {
			count = len(resp.RAIMediaFilteredReasons)
		}
		return jobs.ProviderStatus{State: jobs.ProviderFailed, Reason: SafetyMessage(resp.RAIMediaFilteredReasons, count)}
	}

	for _, gv := range resp.GeneratedVideos {
		if gv == nil || gv.Video == nil {
			continue
		}
		if gv.Video.URI == "" && len(gv.Video.VideoBytes) == 0 {
			continue
		}
		mimeType := gv.Video.MIMEType
		if mimeType == "" {
			mimeType = "video/mp4"
		}
		return jobs.ProviderStatus{
			State:    jobs.ProviderCompleted,
			Artifact: jobs.Artifact{URI: gv.Video.URI, Data: gv.Video.VideoBytes, MimeType: mimeType},
		}
	}
	return jobs.ProviderStatus{State: jobs.ProviderFailed, Reason: "no video found in completed operation response"}
}

// SafetyMessage explains a safety-filter rejection and how to retry.
func SafetyMessage(reasons []string, count int) string {
	return fmt.Sprintf("Video generation was blocked by safety filters. Reason(s): %s. Filtered count: %d. "+
		"Suggestions: 1) Simplify your prompt (remove brand names, celebrities, or copyrighted content), "+
		"2) If audio is the issue, retry with --silent-video or add 'silent video' to your prompt, "+
		"3) Check that your image doesn't contain restricted content. "+
		"You have not been charged for this attempt.",
		strings.Join(reasons, ", "), count)
}

// Download returns the video bytes for artifact. Inline bytes are returned
// as is; a URI is fetched with the API key attached, following redirects.
func (c *VideoClient) Download(ctx context.Context, artifact jobs.Artifact) ([]byte, error) {
	if len(artifact.Data) > 0 {
		return artifact.Data, nil
	}
	if artifact.URI == "" {
		return nil, mediaerr.New(mediaerr.ErrProvider, "gemini download", "artifact has neither data nor URI", nil)
	}

	start := time.Now()
	data, err := c.download(ctx, artifact.URI)
	if err != nil {
		return nil, observe("download", start, err)
	}
	_ = observe("download", start, nil)

	logging.Debug("Downloaded %d-byte video in %v", len(data), time.Since(start))
	return data, nil
}

func (c *VideoClient) download(ctx context.Context, uri string) ([]byte, error) {
	target, err := c.authorizedURL(uri)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download video: %w", err)
	}
	defer func() {
		if cerr := resp.Body.Close(); cerr != nil {
			logging.Warn("failed to close download body: %v", cerr)
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, mediaerr.New(mediaerr.ErrProvider, "gemini download",
			fmt.Sprintf("download returned %s", resp.Status), nil)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxVideoBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read video: %w", err)
	}
	if len(data) == 0 {
		return nil, mediaerr.New(mediaerr.ErrProvider, "gemini download", "video download returned empty content", nil)
	}
	if len(data) > maxVideoBytes {
		return nil, mediaerr.New(mediaerr.ErrProvider, "gemini download", "video exceeds size limit", nil)
	}
	return data, nil
}

// authorizedURL adds the key as a query parameter for API-host URIs so it
// survives redirects that drop headers.
func (c *VideoClient) authorizedURL(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil || u.Scheme == "" {
		return "", mediaerr.New(mediaerr.ErrProvider, "gemini download", "invalid video URI", err)
	}
	if u.Host == c.apiHost {
		q := u.Query()
		if q.Get("key") == "" {
			q.Set("key", c.apiKey)
			u.RawQuery = q.Encode()
		}
	}
	return u.String(), nil
}
