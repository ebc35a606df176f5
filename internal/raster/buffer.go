package raster

import (
	"image"
	"image/color"
	"math"
)

// FrameBuffer holds the rendering target as flat slices for cache locality.
// Color is opaque RGBA, so premultiplied and straight alpha coincide.
type FrameBuffer struct {
	Width  int
	Height int
	Color  []uint8   // RGBA interleaved, len = W*H*4
	ZBuf   []float64 // depth per pixel, larger is nearer, initialized to -inf
}

// NewFrameBuffer allocates a buffer filled with bg and a -inf z-buffer.
func NewFrameBuffer(w, h int, bg color.NRGBA) *FrameBuffer {
	n := w * h
	fb := &FrameBuffer{
		Width:  w,
		Height: h,
		Color:  make([]uint8, n*4),
		ZBuf:   make([]float64, n),
	}
	fb.Clear(bg)
	return fb
}

// Clear resets every pixel to bg and every depth to -inf.
func (fb *FrameBuffer) Clear(bg color.NRGBA) {
	for i := range fb.ZBuf {
		fb.ZBuf[i] = math.Inf(-1)
		fb.Color[i*4] = bg.R
		fb.Color[i*4+1] = bg.G
		fb.Color[i*4+2] = bg.B
		fb.Color[i*4+3] = 255
	}
}

// RGBA wraps the color buffer as an image without copying.
func (fb *FrameBuffer) RGBA() *image.RGBA {
	return &image.RGBA{Pix: fb.Color, Stride: fb.Width * 4, Rect: image.Rect(0, 0, fb.Width, fb.Height)}
}
