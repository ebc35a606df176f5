package raster

import (
	"image"
	"math"
)

// wrapUV folds a texture coordinate into [0,1) (repeat addressing).
func wrapUV(t float64) float64 {
	t -= math.Floor(t)
	if t >= 1 {
		t = 0
	}
	return t
}

// SampleLinear bilinearly filters tex at (u, v) with repeat wrapping.
// Texels are decoded from sRGB before filtering; the result is linear RGB
// and alpha in [0,1]. Accesses tex.Pix directly for performance.
func SampleLinear(tex *image.NRGBA, u, v float64) (rgb [3]float64, alpha float64) {
	w := tex.Rect.Dx()
	h := tex.Rect.Dy()
	if w == 0 || h == 0 {
		return rgb, 0
	}

	fx := wrapUV(u) * float64(w-1)
	fy := wrapUV(v) * float64(h-1)
	x0, y0 := int(fx), int(fy)
	x1, y1 := (x0+1)%w, (y0+1)%h
	dx, dy := fx-float64(x0), fy-float64(y0)

	taps := [4]struct {
		off    int
		weight float64
	}{
		{y0*tex.Stride + x0*4, (1 - dx) * (1 - dy)},
		{y0*tex.Stride + x1*4, dx * (1 - dy)},
		{y1*tex.Stride + x0*4, (1 - dx) * dy},
		{y1*tex.Stride + x1*4, dx * dy},
	}
	for _, tp := range taps {
		p := tex.Pix[tp.off : tp.off+4]
		rgb[0] += srgbToLinear[p[0]] * tp.weight
		rgb[1] += srgbToLinear[p[1]] * tp.weight
		rgb[2] += srgbToLinear[p[2]] * tp.weight
		alpha += float64(p[3]) / 255 * tp.weight
	}
	return rgb, alpha
}
