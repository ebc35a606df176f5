package texture

import (
	"fmt"
	"image"
	"image/draw"
	"os"
	"path/filepath"
	"strings"
)

// LoadTexture reads a texture file and returns it as NRGBA. OZJ and OZT are
// JPEG and TGA with a short proprietary header; other formats are decoded
// directly.
func LoadTexture(path string) (*image.NRGBA, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("texture: read %s: %w", path, err)
	}

	imgData := raw
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".ozj":
		// 24-byte header + JPEG data
		if len(raw) <= 24 {
			return nil, fmt.Errorf("texture: OZJ too short: %s", path)
		}
		imgData = raw[24:]
	case ".ozt":
		// 4-byte header + TGA data
		if len(raw) <= 4 {
			return nil, fmt.Errorf("texture: OZT too short: %s", path)
		}
		imgData = raw[4:]
	}

	img, err := Decode(imgData, ext)
	if err != nil {
		return nil, fmt.Errorf("texture: decode %s: %w", path, err)
	}
	return ToNRGBA(img), nil
}

// ToNRGBA converts any image to NRGBA anchored at the origin.
func ToNRGBA(src image.Image) *image.NRGBA {
	if n, ok := src.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}
