package media

import (
	"math"

	"image-resize-ai/internal/params"
)

// plan is the resize a transform performs, independent of the backend.
type plan struct {
	// resizeW x resizeH is the size the image content is scaled to.
	resizeW, resizeH int
	// canvasW x canvasH is the final size; larger than resize only for pad.
	canvasW, canvasH int
	mode             params.AspectMode
}

func (pl plan) noop(srcW, srcH int) bool {
	return pl.resizeW == srcW && pl.resizeH == srcH && pl.canvasW == srcW && pl.canvasH == srcH
}

// planGeometry decides output dimensions. fit never upscales; crop, stretch
// and pad produce exactly the requested box when both sides are given. With
// a single side every mode scales proportionally to it.
func planGeometry(srcW, srcH int, p params.Params) plan {
	mode := p.AspectMode()
	w, h := p.Width, p.Height

	if w == 0 && h == 0 {
		return plan{resizeW: srcW, resizeH: srcH, canvasW: srcW, canvasH: srcH, mode: params.AspectFit}
	}

	if w == 0 || h == 0 {
		var scale float64
		if w > 0 {
			scale = float64(w) / float64(srcW)
		} else {
			scale = float64(h) / float64(srcH)
		}
		if mode == params.AspectFit && scale > 1 {
			scale = 1
		}
		rw, rh := scaled(srcW, scale), scaled(srcH, scale)
		return plan{resizeW: rw, resizeH: rh, canvasW: rw, canvasH: rh, mode: params.AspectFit}
	}

	switch mode {
	case params.AspectCrop, params.AspectStretch:
		return plan{resizeW: w, resizeH: h, canvasW: w, canvasH: h, mode: mode}
	case params.AspectPad:
		scale := math.Min(float64(w)/float64(srcW), float64(h)/float64(srcH))
		rw, rh := min(scaled(srcW, scale), w), min(scaled(srcH, scale), h)
		return plan{resizeW: rw, resizeH: rh, canvasW: w, canvasH: h, mode: mode}
	default:
		scale := math.Min(math.Min(float64(w)/float64(srcW), float64(h)/float64(srcH)), 1)
		rw, rh := scaled(srcW, scale), scaled(srcH, scale)
		return plan{resizeW: rw, resizeH: rh, canvasW: rw, canvasH: rh, mode: params.AspectFit}
	}
}

func scaled(n int, scale float64) int {
	v := int(math.Round(float64(n) * scale))
	if v < 1 {
		return 1
	}
	return v
}
