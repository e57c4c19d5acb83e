package media

import (
	"context"
	"sync"

	"image-resize-ai/internal/logging"
	"image-resize-ai/internal/params"

	"github.com/davidbyttow/govips/v2/vips"
)

var (
	vipsInitialized bool
	vipsInitMutex   sync.Mutex
	vipsAvailable   bool
)

// InitVips starts libvips and routes its log output through the
// application logger at the configured level. Call once at startup.
func InitVips() error {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		return nil
	}

	// Map our log level to vips log level
	// Configure vips logging BEFORE Startup() to respect LOG_LEVEL environment variable
	var vipsLogLevel vips.LogLevel
	var logHandler func(string, vips.LogLevel, string)

	appLevel := logging.GetLevel()
	switch appLevel {
	case logging.LevelDebug:
		// Debug: Show all vips messages including INFO
		vipsLogLevel = vips.LogLevelInfo
		logHandler = func(domain string, level vips.LogLevel, msg string) {
			switch level {
			case vips.LogLevelError, vips.LogLevelCritical:
				logging.Error("[%s] %s", domain, msg)
			case vips.LogLevelWarning:
				logging.Warn("[%s] %s", domain, msg)
			case vips.LogLevelMessage, vips.LogLevelInfo, vips.LogLevelDebug:
				logging.Debug("[%s] %s", domain, msg)
			}
		}
	case logging.LevelInfo:
		// Info: Only show warnings and errors
		vipsLogLevel = vips.LogLevelWarning
		logHandler = func(domain string, level vips.LogLevel, msg string) {
			switch level {
			case vips.LogLevelError, vips.LogLevelCritical:
				logging.Error("[%s] %s", domain, msg)
			case vips.LogLevelWarning:
				logging.Warn("[%s] %s", domain, msg)
			case vips.LogLevelMessage, vips.LogLevelInfo, vips.LogLevelDebug:
				// Suppressed at Info level
			}
		}
	case logging.LevelWarn:
		// Warn: Only show errors
		vipsLogLevel = vips.LogLevelError
		logHandler = func(domain string, level vips.LogLevel, msg string) {
			if level >= vips.LogLevelError {
				logging.Error("[%s] %s", domain, msg)
			}
		}
	case logging.LevelError:
		// Error: Only show critical errors
		vipsLogLevel = vips.LogLevelCritical
		logHandler = func(domain string, level vips.LogLevel, msg string) {
			if level >= vips.LogLevelCritical {
				logging.Error("[%s] %s", domain, msg)
			}
		}
	default:
		// Default to suppressing most logs
		vipsLogLevel = vips.LogLevelWarning
		logHandler = func(domain string, level vips.LogLevel, msg string) {
			if level >= vips.LogLevelError {
				logging.Warn("[%s] %s", domain, msg)
			}
		}
	}

	vips.LoggingSettings(logHandler, vipsLogLevel)

	// Builds are already bounded by the worker pool; keep libvips itself small.
	vips.Startup(&vips.Config{
		ConcurrencyLevel: 1,
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     100,
		ReportLeaks:      false,
		CacheTrace:       false,
		CollectStats:     false,
	})

	vipsInitialized = true
	vipsAvailable = true
	logging.Info("libvips initialized successfully (version: %s)", vips.Version)
	return nil
}

// ShutdownVips cleans up libvips resources
func ShutdownVips() {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		vips.Shutdown()
		vipsInitialized = false
		vipsAvailable = false
		logging.Info("libvips shutdown complete")
	}
}

// IsVipsAvailable returns whether libvips is initialized and available
func IsVipsAvailable() bool {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()
	return vipsAvailable
}

// VipsTransformer implements Transformer with libvips. BMP output, and
// sources libvips cannot load, go through the fallback transformer.
type VipsTransformer struct {
	opts     Options
	fallback Transformer
}

// NewVipsTransformer creates a libvips transformer. InitVips must have
// succeeded first.
func NewVipsTransformer(opts Options, fallback Transformer) *VipsTransformer {
	return &VipsTransformer{opts: opts, fallback: fallback}
}

// Transform decodes src with libvips, applies p and exports the result.
func (t *VipsTransformer) Transform(ctx context.Context, src []byte, p params.Params) (Output, error) {
	format, err := outputFormat(p, src, true)
	if err != nil {
		return Output{}, err
	}
	if format.Name == "bmp" {
		return t.fallback.Transform(ctx, src, p)
	}

	ref, err := vips.NewImageFromBuffer(src)
	if err != nil {
		logging.Debug("libvips could not load source, using fallback: %v", err)
		return t.fallback.Transform(ctx, src, p)
	}
	defer ref.Close()

	if err := ref.AutoRotate(); err != nil {
		return Output{}, buildFailure("auto-rotate", err)
	}

	if p.Trim {
		if err := vipsTrim(ref); err != nil {
			return Output{}, buildFailure("trim", err)
		}
	}
	if err := ctx.Err(); err != nil {
		return Output{}, err
	}

	pl := planGeometry(ref.Width(), ref.Height(), p)
	if err := vipsApplyPlan(ref, pl, p.Background); err != nil {
		return Output{}, buildFailure("resize", err)
	}

	if p.Grayscale {
		if err := ref.ToColorSpace(vips.InterpretationBW); err != nil {
			return Output{}, buildFailure("grayscale", err)
		}
	}

	data, err := vipsExport(ref, format, quality(p, t.opts.DefaultQuality))
	if err != nil {
		return Output{}, buildFailure("encode "+format.Name, err)
	}
	return Output{Data: data, MimeType: format.MimeType}, nil
}

func vipsTrim(ref *vips.ImageRef) error {
	corner, err := ref.GetPoint(0, 0)
	if err != nil {
		return err
	}
	bg := &vips.Color{R: 255, G: 255, B: 255}
	if len(corner) >= 3 {
		bg = &vips.Color{R: uint8(corner[0]), G: uint8(corner[1]), B: uint8(corner[2])}
	} else if len(corner) >= 1 {
		bg = &vips.Color{R: uint8(corner[0]), G: uint8(corner[0]), B: uint8(corner[0])}
	}

	left, top, width, height, err := ref.FindTrim(trimThreshold, bg)
	if err != nil {
		return err
	}
	if width <= 0 || height <= 0 {
		return nil
	}
	return ref.ExtractArea(left, top, width, height)
}

func vipsApplyPlan(ref *vips.ImageRef, pl plan, background string) error {
	srcW, srcH := ref.Width(), ref.Height()
	if pl.noop(srcW, srcH) {
		return nil
	}

	if pl.mode == params.AspectCrop {
		return ref.ThumbnailWithSize(pl.canvasW, pl.canvasH, vips.InterestingCentre, vips.SizeBoth)
	}

	hScale := float64(pl.resizeW) / float64(srcW)
	vScale := float64(pl.resizeH) / float64(srcH)
	if err := ref.ResizeWithVScale(hScale, vScale, vips.KernelLanczos3); err != nil {
		return err
	}

	if pl.mode == params.AspectPad {
		bg := parseBackground(background)
		left := (pl.canvasW - ref.Width()) / 2
		top := (pl.canvasH - ref.Height()) / 2
		return ref.EmbedBackground(left, top, pl.canvasW, pl.canvasH, &vips.Color{R: bg.R, G: bg.G, B: bg.B})
	}
	return nil
}

func vipsExport(ref *vips.ImageRef, f Format, q int) ([]byte, error) {
	var data []byte
	var err error
	switch f.Name {
	case "jpeg":
		ep := vips.NewJpegExportParams()
		ep.Quality = q
		ep.StripMetadata = true
		ep.OptimizeCoding = true
		data, _, err = ref.ExportJpeg(ep)
	case "png":
		ep := vips.NewPngExportParams()
		ep.StripMetadata = true
		data, _, err = ref.ExportPng(ep)
	case "webp":
		ep := vips.NewWebpExportParams()
		ep.Quality = q
		ep.StripMetadata = true
		data, _, err = ref.ExportWebp(ep)
	case "avif":
		ep := vips.NewAvifExportParams()
		ep.Quality = q
		data, _, err = ref.ExportAvif(ep)
	case "heif":
		ep := vips.NewHeifExportParams()
		ep.Quality = q
		data, _, err = ref.ExportHeif(ep)
	case "gif":
		data, _, err = ref.ExportGIF(vips.NewGifExportParams())
	case "tiff":
		ep := vips.NewTiffExportParams()
		ep.Quality = q
		data, _, err = ref.ExportTiff(ep)
	default:
		return nil, buildFailure("libvips cannot encode "+f.Name, nil)
	}
	return data, err
}
