package media

import (
	"context"
	"net/http"

	"image-resize-ai/internal/logging"
	"image-resize-ai/internal/mediaerr"
	"image-resize-ai/internal/params"
)

// DefaultQuality is used for lossy encoders when the request sets none.
const DefaultQuality = 85

// Output is an encoded artifact.
type Output struct {
	Data     []byte
	MimeType string
}

// Transformer applies resize, crop, format and quality parameters to
// source image bytes. Prompt fields are ignored.
type Transformer interface {
	Transform(ctx context.Context, src []byte, p params.Params) (Output, error)
}

// PromptGenerator produces a new image from a source image and a prompt.
// look is an optional second image to compose in; nil means none.
type PromptGenerator interface {
	GenerateFromPrompt(ctx context.Context, src, look []byte, prompt string, p params.Params) (Output, error)
}

// Options configures the transformers built by NewTransformer.
type Options struct {
	DefaultQuality int
	// MaxSourcePixels bounds decoded source size; larger sources are
	// downscaled before any other work.
	MaxSourcePixels int
}

// DefaultOptions returns the built-in limits.
func DefaultOptions() Options {
	return Options{
		DefaultQuality:  DefaultQuality,
		MaxSourcePixels: MaxImagePixels,
	}
}

// NewTransformer returns the libvips transformer when libvips is running and
// the pure-Go imaging transformer otherwise.
func NewTransformer(opts Options) Transformer {
	imaging := NewImagingTransformer(opts)
	if IsVipsAvailable() {
		logging.Info("Image transforms use libvips")
		return NewVipsTransformer(opts, imaging)
	}
	logging.Info("Image transforms use the pure-Go imaging backend (webp, avif and heif output unavailable)")
	return imaging
}

// outputFormat picks the requested format, else the source's own format
// when it can be encoded, else JPEG.
func outputFormat(p params.Params, src []byte, vips bool) (Format, error) {
	name := p.Format
	if name == "" {
		if detected, ok := FormatFromMime(http.DetectContentType(src)); ok {
			name = detected
		}
		if f, ok := LookupFormat(name); !ok || (f.NeedsVips && !vips) {
			name = "jpeg"
		}
	}

	f, ok := LookupFormat(name)
	if !ok || f.Name == "mp4" {
		return Format{}, mediaerr.New(mediaerr.ErrInvalidParams, "transform", "unsupported output format "+name, nil)
	}
	if f.NeedsVips && !vips {
		return Format{}, mediaerr.New(mediaerr.ErrBuildFailure, "transform", name+" output requires libvips", nil)
	}
	return f, nil
}

func quality(p params.Params, def int) int {
	if p.Quality > 0 {
		return p.Quality
	}
	if def > 0 {
		return def
	}
	return DefaultQuality
}

func buildFailure(detail string, err error) error {
	return mediaerr.New(mediaerr.ErrBuildFailure, "transform", detail, err)
}
