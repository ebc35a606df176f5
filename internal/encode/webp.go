package encode

import (
	"image"
	"io"
	"time"

	"github.com/HugoSmits86/nativewebp"
)

// webpBackground is #F2F6FF as ARGB, used as the animation canvas color.
const webpBackground uint32 = 0xFFF2F6FF

// WebPWriter writes lossless WebP stills and animations.
type WebPWriter struct{}

func (WebPWriter) Ext() string { return ".webp" }

func (WebPWriter) WriteStill(w io.Writer, img image.Image) error {
	return nativewebp.Encode(w, toNRGBA(img), nil)
}

func (WebPWriter) WriteAnimation(w io.Writer, frames []image.Image, delay time.Duration) error {
	if err := checkFrames(frames); err != nil {
		return err
	}
	ms := uint(delay / time.Millisecond)
	ani := &nativewebp.Animation{
		Images:          make([]image.Image, len(frames)),
		Durations:       make([]uint, len(frames)),
		Disposals:       make([]uint, len(frames)),
		LoopCount:       0,
		BackgroundColor: webpBackground,
	}
	for i, f := range frames {
		ani.Images[i] = toNRGBA(f)
		ani.Durations[i] = ms
	}
	return nativewebp.EncodeAll(w, ani, nil)
}
