package media

import (
	"testing"

	"image-resize-ai/internal/params"
)

func TestPlanGeometry(t *testing.T) {
	tests := []struct {
		name             string
		srcW, srcH       int
		p                params.Params
		resizeW, resizeH int
		canvasW, canvasH int
		wantNoop         bool
	}{
		{"no dimensions", 800, 600, params.Params{}, 800, 600, 800, 600, true},
		{"width only", 800, 600, params.Params{Width: 400}, 400, 300, 400, 300, false},
		{"height only", 800, 600, params.Params{Height: 150}, 200, 150, 200, 150, false},
		{"fit never upscales single side", 100, 50, params.Params{Width: 400}, 100, 50, 100, 50, true},
		{"stretch upscales single side", 100, 50, params.Params{Width: 400, Aspect: params.AspectStretch}, 400, 200, 400, 200, false},
		{"fit box landscape", 800, 600, params.Params{Width: 200, Height: 200}, 200, 150, 200, 150, false},
		{"fit box never upscales", 100, 50, params.Params{Width: 400, Height: 400}, 100, 50, 100, 50, true},
		{"crop box", 800, 600, params.Params{Width: 200, Height: 200, Aspect: params.AspectCrop}, 200, 200, 200, 200, false},
		{"stretch box", 800, 600, params.Params{Width: 100, Height: 300, Aspect: params.AspectStretch}, 100, 300, 100, 300, false},
		{"pad box", 800, 600, params.Params{Width: 200, Height: 200, Aspect: params.AspectPad}, 200, 150, 200, 200, false},
		{"pad upscales", 100, 50, params.Params{Width: 400, Height: 400, Aspect: params.AspectPad}, 400, 200, 400, 400, false},
		{"tiny result floors at one", 1000, 10, params.Params{Width: 10}, 10, 1, 10, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pl := planGeometry(tt.srcW, tt.srcH, tt.p)
			if pl.resizeW != tt.resizeW || pl.resizeH != tt.resizeH {
				t.Errorf("resize = %dx%d, want %dx%d", pl.resizeW, pl.resizeH, tt.resizeW, tt.resizeH)
			}
			if pl.canvasW != tt.canvasW || pl.canvasH != tt.canvasH {
				t.Errorf("canvas = %dx%d, want %dx%d", pl.canvasW, pl.canvasH, tt.canvasW, tt.canvasH)
			}
			if got := pl.noop(tt.srcW, tt.srcH); got != tt.wantNoop {
				t.Errorf("noop() = %v, want %v", got, tt.wantNoop)
			}
		})
	}
}
