package encode

import (
	"fmt"
	"image"
	"image/draw"
	"io"
	"time"
)

// Writer encodes artifacts in one container format.
type Writer interface {
	Ext() string
	WriteStill(w io.Writer, img image.Image) error
	// WriteAnimation writes frames in order as one endlessly looping image.
	WriteAnimation(w io.Writer, frames []image.Image, delay time.Duration) error
}

// NewWriter returns the writer for "webp" or "png".
func NewWriter(format string) (Writer, error) {
	switch format {
	case "", "webp":
		return WebPWriter{}, nil
	case "png", "apng":
		return PNGWriter{}, nil
	}
	return nil, fmt.Errorf("encode: unknown format %q", format)
}

// toNRGBA returns img as *image.NRGBA anchored at the origin, copying only
// when needed.
func toNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

func checkFrames(frames []image.Image) error {
	if len(frames) == 0 {
		return fmt.Errorf("encode: no frames")
	}
	size := frames[0].Bounds().Size()
	for i, f := range frames[1:] {
		if f.Bounds().Size() != size {
			return fmt.Errorf("encode: frame %d is %v, want %v", i+1, f.Bounds().Size(), size)
		}
	}
	return nil
}
