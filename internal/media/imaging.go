package media

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp" // WebP format support

	"image-resize-ai/internal/logging"
	"image-resize-ai/internal/params"
)

const (
	// MaxImagePixels bounds decoded source images. A 20MP RGBA image uses
	// about 80MB.
	MaxImagePixels = 20_000_000

	// trimThreshold is the per-channel difference from the corner colour
	// below which a pixel counts as border.
	trimThreshold = 10
)

// ImagingTransformer implements Transformer with disintegration/imaging.
// It cannot encode WebP, AVIF or HEIF.
type ImagingTransformer struct {
	opts Options
}

// NewImagingTransformer creates a pure-Go transformer.
func NewImagingTransformer(opts Options) *ImagingTransformer {
	return &ImagingTransformer{opts: opts}
}

// Transform decodes src, applies p and encodes the result.
func (t *ImagingTransformer) Transform(ctx context.Context, src []byte, p params.Params) (Output, error) {
	format, err := outputFormat(p, src, false)
	if err != nil {
		return Output{}, err
	}

	img, err := t.decode(src)
	if err != nil {
		return Output{}, err
	}
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}

	if p.Trim {
		img = trimBorder(img)
	}

	pl := planGeometry(img.Bounds().Dx(), img.Bounds().Dy(), p)
	img = applyPlan(img, pl, p.Background)

	if p.Grayscale {
		img = imaging.Grayscale(img)
	}

	data, err := encodeImage(img, format, quality(p, t.opts.DefaultQuality))
	if err != nil {
		return Output{}, buildFailure("encode "+format.Name, err)
	}
	return Output{Data: data, MimeType: format.MimeType}, nil
}

// decode loads src with EXIF orientation applied, downscaling sources that
// exceed MaxSourcePixels.
func (t *ImagingTransformer) decode(src []byte) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(src))
	if err != nil {
		return nil, buildFailure("unrecognised source image", err)
	}

	img, err := imaging.Decode(bytes.NewReader(src), imaging.AutoOrientation(true))
	if err != nil {
		return nil, buildFailure("decode source image", err)
	}

	maxPixels := t.opts.MaxSourcePixels
	if maxPixels <= 0 {
		maxPixels = MaxImagePixels
	}
	if pixels := cfg.Width * cfg.Height; pixels > maxPixels {
		scale := float64(maxPixels) / float64(pixels)
		w := scaled(img.Bounds().Dx(), math.Sqrt(scale))
		h := scaled(img.Bounds().Dy(), math.Sqrt(scale))
		logging.Info("Constraining large source image from %dx%d to %dx%d", cfg.Width, cfg.Height, w, h)
		img = imaging.Resize(img, w, h, imaging.Lanczos)
	}
	return img, nil
}

func applyPlan(img image.Image, pl plan, background string) image.Image {
	b := img.Bounds()
	if pl.noop(b.Dx(), b.Dy()) {
		return img
	}

	switch pl.mode {
	case params.AspectCrop:
		return imaging.Fill(img, pl.canvasW, pl.canvasH, imaging.Center, imaging.Lanczos)
	case params.AspectStretch:
		return imaging.Resize(img, pl.canvasW, pl.canvasH, imaging.Lanczos)
	case params.AspectPad:
		resized := imaging.Resize(img, pl.resizeW, pl.resizeH, imaging.Lanczos)
		canvas := imaging.New(pl.canvasW, pl.canvasH, parseBackground(background))
		return imaging.PasteCenter(canvas, resized)
	default:
		return imaging.Resize(img, pl.resizeW, pl.resizeH, imaging.Lanczos)
	}
}

func encodeImage(img image.Image, f Format, q int) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch f.Name {
	case "jpeg":
		err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: q})
	case "png":
		err = png.Encode(&buf, img)
	case "gif":
		err = gif.Encode(&buf, img, nil)
	case "bmp":
		err = bmp.Encode(&buf, img)
	case "tiff":
		err = tiff.Encode(&buf, img, &tiff.Options{Compression: tiff.Deflate})
	default:
		return nil, buildFailure(f.Name+" output requires libvips", nil)
	}
	return buf.Bytes(), err
}

// trimBorder crops away a uniform border matching the top-left pixel.
func trimBorder(img image.Image) image.Image {
	b := img.Bounds()
	ref := color.NRGBAModel.Convert(img.At(b.Min.X, b.Min.Y)).(color.NRGBA)

	differs := func(x, y int) bool {
		c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
		return absDiff(c.R, ref.R) > trimThreshold || absDiff(c.G, ref.G) > trimThreshold ||
			absDiff(c.B, ref.B) > trimThreshold || absDiff(c.A, ref.A) > trimThreshold
	}

	minX, minY, maxX, maxY := b.Max.X, b.Max.Y, b.Min.X-1, b.Min.Y-1
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if !differs(x, y) {
				continue
			}
			minX, maxX = min(minX, x), max(maxX, x)
			minY, maxY = min(minY, y), max(maxY, y)
		}
	}

	if maxX < minX || maxY < minY {
		// Entirely border; keep as is.
		return img
	}
	return imaging.Crop(img, image.Rect(minX, minY, maxX+1, maxY+1))
}

func absDiff(a, b uint8) uint8 {
	if a > b {
		return a - b
	}
	return b - a
}

// parseBackground turns a validated 6-digit hex string into a colour,
// defaulting to white.
func parseBackground(hex string) color.NRGBA {
	if len(hex) != 6 {
		return color.NRGBA{R: 255, G: 255, B: 255, A: 255}
	}
	var rgb [3]uint8
	for i := 0; i < 3; i++ {
		rgb[i] = hexByte(hex[i*2])<<4 | hexByte(hex[i*2+1])
	}
	return color.NRGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255}
}

func hexByte(c byte) uint8 {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	}
	return 0
}
