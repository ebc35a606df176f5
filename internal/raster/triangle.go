package raster

import (
	"image"
	"math"
)

// Vertex is a projected vertex: screen position, depth (larger is nearer)
// and texture coordinate.
type Vertex struct {
	X, Y, Z float64
	U, V    float64
}

// Surface describes how a triangle is colored.
type Surface struct {
	Texture   *image.NRGBA // nil means flat Albedo
	Albedo    [3]float64   // linear, used without a texture
	BaseColor [4]float64   // linear multiplier (glTF baseColorFactor)
	Light     [3]float64   // per-face light from the Shader
}

// RasterizeTriangle fills one triangle with texture mapping, z-buffer,
// linear-space lighting and ACES tone mapping.
//
// This is the HOT PATH: no allocation in the pixel loop. Lighting is
// flat-shaded (per face); texels with alpha below 8/255 are discarded.
func RasterizeTriangle(fb *FrameBuffer, v0, v1, v2 Vertex, surf *Surface, tm ToneMapper) {
	size := fb.Width

	// Bounding box
	minX := int(math.Floor(math.Min(math.Min(v0.X, v1.X), v2.X)))
	maxX := int(math.Ceil(math.Max(math.Max(v0.X, v1.X), v2.X)))
	minY := int(math.Floor(math.Min(math.Min(v0.Y, v1.Y), v2.Y)))
	maxY := int(math.Ceil(math.Max(math.Max(v0.Y, v1.Y), v2.Y)))

	if minX < 0 {
		minX = 0
	}
	if maxX >= size {
		maxX = size - 1
	}
	if minY < 0 {
		minY = 0
	}
	if maxY >= fb.Height {
		maxY = fb.Height - 1
	}
	if minX > maxX || minY > maxY {
		return
	}

	// Barycentric setup
	det := (v1.Y-v2.Y)*(v0.X-v2.X) + (v2.X-v1.X)*(v0.Y-v2.Y)
	if det > -1e-12 && det < 1e-12 {
		return
	}
	invDet := 1.0 / det

	dy12 := v1.Y - v2.Y
	dx21 := v2.X - v1.X
	dy20 := v2.Y - v0.Y
	dx02 := v0.X - v2.X

	hasTex := surf.Texture != nil
	light := surf.Light
	base := surf.BaseColor
	alb := surf.Albedo

	// Sample at pixel centers
	for sy := minY; sy <= maxY; sy++ {
		dsy := float64(sy) + 0.5 - v2.Y
		rowOff := sy * size
		for sx := minX; sx <= maxX; sx++ {
			dsx := float64(sx) + 0.5 - v2.X
			w0 := (dy12*dsx + dx21*dsy) * invDet
			w1 := (dy20*dsx + dx02*dsy) * invDet
			w2 := 1.0 - w0 - w1

			if w0 < -1e-9 || w1 < -1e-9 || w2 < -1e-9 {
				continue
			}

			z := w0*v0.Z + w1*v1.Z + w2*v2.Z
			zIdx := rowOff + sx
			if z <= fb.ZBuf[zIdx] {
				continue
			}

			lin := alb
			if hasTex {
				u := w0*v0.U + w1*v1.U + w2*v2.U
				v := w0*v0.V + w1*v1.V + w2*v2.V
				var a float64
				lin, a = SampleLinear(surf.Texture, u, v)
				if a*base[3] < 8.0/255 {
					continue
				}
			}
			fb.ZBuf[zIdx] = z

			r, g, b := tm.Encode(
				lin[0]*base[0]*light[0],
				lin[1]*base[1]*light[1],
				lin[2]*base[2]*light[2],
			)
			px := zIdx * 4
			fb.Color[px] = r
			fb.Color[px+1] = g
			fb.Color[px+2] = b
			fb.Color[px+3] = 255
		}
	}
}
