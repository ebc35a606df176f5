package scene

import (
	"image"
	"image/color"

	"github.com/go-gl/mathgl/mgl64"
)

// Mesh holds indexed triangle geometry.
type Mesh struct {
	Name      string
	Positions [][3]float32
	UVs       [][2]float32 // optional, parallel to Positions
	Indices   []uint32     // triangle list

	// Joints binds each vertex rigidly to a skeleton node (vertex is in joint space).
	// Nil for unskinned meshes. A negative entry leaves the vertex in mesh space.
	Joints   []int
	Skeleton []*Node
	// InverseBind, when set, maps mesh space into each joint's space
	// (glTF skins). BMD vertices are stored in joint space already.
	InverseBind []mgl64.Mat4

	Material *Material
}

// TriangleCount returns the number of complete triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// Material is the subset of surface state the thumbnail renderer honors.
type Material struct {
	Name        string
	BaseColor   [4]float64 // linear RGBA multiplier
	Texture     *image.NRGBA
	DoubleSided bool

	// Dirty is set when lighting or world state changed and cached shading
	// inputs must be rebuilt before the next draw.
	Dirty bool

	avg    color.NRGBA
	hasAvg bool
}

// NewMaterial returns a white, single-sided material.
func NewMaterial(name string) *Material {
	return &Material{
		Name:      name,
		BaseColor: [4]float64{1, 1, 1, 1},
		Dirty:     true,
	}
}

// AverageColor returns the cached average texel color, rebuilding it when dirty.
func (m *Material) AverageColor() color.NRGBA {
	if m.Dirty || !m.hasAvg {
		m.avg = averageColor(m.Texture)
		m.hasAvg = true
		m.Dirty = false
	}
	return m.avg
}

func averageColor(tex *image.NRGBA) color.NRGBA {
	if tex == nil {
		return color.NRGBA{R: 200, G: 200, B: 205, A: 255}
	}
	b := tex.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return color.NRGBA{R: 200, G: 200, B: 205, A: 255}
	}

	var sumR, sumG, sumB float64
	for y := 0; y < h; y++ {
		off := y * tex.Stride
		for x := 0; x < w; x++ {
			i := off + x*4
			sumR += float64(tex.Pix[i])
			sumG += float64(tex.Pix[i+1])
			sumB += float64(tex.Pix[i+2])
		}
	}
	n := float64(w * h)
	return color.NRGBA{R: uint8(sumR/n + 0.5), G: uint8(sumG/n + 0.5), B: uint8(sumB/n + 0.5), A: 255}
}
