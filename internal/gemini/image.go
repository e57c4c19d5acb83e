package gemini

import (
	"context"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"image-resize-ai/internal/logging"
	"image-resize-ai/internal/media"
	"image-resize-ai/internal/mediaerr"
	"image-resize-ai/internal/params"
)

var _ media.PromptGenerator = (*ImageClient)(nil)

// ImageClient generates images from a source image and a prompt. It
// implements media.PromptGenerator.
type ImageClient struct {
	*Client
}

// NewImageClient returns the image capability of c.
func NewImageClient(c *Client) *ImageClient {
	return &ImageClient{Client: c}
}

// GenerateFromPrompt sends the prompt, the source image and the optional
// look image to the image model and returns the first image in the
// response. Only the prompt is used here; the caller applies the remaining
// params afterwards.
func (c *ImageClient) GenerateFromPrompt(ctx context.Context, src, look []byte, prompt string, p params.Params) (media.Output, error) {
	start := time.Now()

	logging.Debug("Sending %d-byte source and %d-byte look image to %s", len(src), len(look), c.imageModel)

	contents := promptContents(src, look, prompt)
	config := &genai.GenerateContentConfig{
		ResponseModalities: []string{"TEXT", "IMAGE"},
	}

	resp, err := c.genai.Models.GenerateContent(ctx, c.imageModel, contents, config)
	if err != nil {
		return media.Output{}, observe("generate_image", start, err)
	}

	out, text, ok := firstImage(resp)
	if !ok {
		detail := "response contained no image"
		if text != "" {
			detail += ": " + text
		}
		return media.Output{}, observe("generate_image", start,
			mediaerr.New(mediaerr.ErrProvider, "gemini generate_image", detail, nil))
	}
	_ = observe("generate_image", start, nil)

	logging.Debug("Image model returned %d-byte %s in %v", len(out.Data), out.MimeType, time.Since(start))
	return out, nil
}

// promptContents builds the request: the prompt, the source image, then the
// look image when there is one.
func promptContents(src, look []byte, prompt string) []*genai.Content {
	parts := []*genai.Part{
		{Text: prompt},
		{InlineData: &genai.Blob{MIMEType: http.DetectContentType(src), Data: src}},
	}
	if len(look) > 0 {
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: http.DetectContentType(look), Data: look}})
	}
	return []*genai.Content{{Role: "user", Parts: parts}}
}

// firstImage returns the first inline image in resp, plus any text parts
// seen along the way.
func firstImage(resp *genai.GenerateContentResponse) (media.Output, string, bool) {
	if resp == nil {
		return media.Output{}, "", false
	}

	var text []string
	for _, cand := range resp.Candidates {
		if cand == nil || cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part == nil {
				continue
			}
			if part.Text != "" {
				text = append(text, strings.TrimSpace(part.Text))
			}
			if part.InlineData == nil || len(part.InlineData.Data) == 0 {
				continue
			}
			mimeType := part.InlineData.MIMEType
			if !strings.HasPrefix(mimeType, "image/") {
				mimeType = http.DetectContentType(part.InlineData.Data)
			}
			if !strings.HasPrefix(mimeType, "image/") {
				continue
			}
			return media.Output{Data: part.InlineData.Data, MimeType: mimeType}, strings.Join(text, " "), true
		}
	}
	return media.Output{}, strings.Join(text, " "), false
}
