package raster

import (
	"image"

	"golang.org/x/image/draw"
)

// Downsample reduces an opaque supersampled render to targetSize with
// CatmullRom filtering (approximates Lanczos). Opaque pixels make the
// premultiplied and straight representations identical, so the RGBA
// result is re-wrapped as NRGBA without conversion.
func Downsample(img *image.RGBA, targetSize int) *image.NRGBA {
	b := img.Bounds()
	if b.Dx() == targetSize && b.Dy() == targetSize {
		return &image.NRGBA{Pix: img.Pix, Stride: img.Stride, Rect: img.Rect}
	}

	dst := image.NewRGBA(image.Rect(0, 0, targetSize, targetSize))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)

	// Filter overshoot can leave alpha below 255 at the border; keep the frame opaque
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 255
	}
	return &image.NRGBA{Pix: dst.Pix, Stride: dst.Stride, Rect: dst.Rect}
}
