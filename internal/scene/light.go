package scene

import (
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// LightKind distinguishes the supported light types.
type LightKind int

const (
	AmbientLight LightKind = iota
	DirectionalLight
)

// Light is an ambient or directional light. Direction points from the
// surface toward the light.
type Light struct {
	Kind      LightKind
	Color     [3]float64
	Intensity float64
	Direction mgl64.Vec3
}

// DefaultLights returns the fallback rig used when no environment map is set:
// white ambient at intensity 1 and a white directional light from (1,1,1).
func DefaultLights() []Light {
	return []Light{
		{Kind: AmbientLight, Color: [3]float64{1, 1, 1}, Intensity: 1},
		{Kind: DirectionalLight, Color: [3]float64{1, 1, 1}, Intensity: 1, Direction: mgl64.Vec3{1, 1, 1}.Normalize()},
	}
}

// Environment is an equirectangular radiance map in linear RGB.
type Environment struct {
	Width, Height int
	Pix           []float32 // RGB triplets, row-major

	irr       []float32
	irrW      int
	irrH      int
	irrLoaded bool
}

// At returns the linear radiance stored at texel (x, y).
func (e *Environment) At(x, y int) [3]float64 {
	i := (y*e.Width + x) * 3
	return [3]float64{float64(e.Pix[i]), float64(e.Pix[i+1]), float64(e.Pix[i+2])}
}

// Sample returns the radiance seen along dir (nearest texel).
func (e *Environment) Sample(dir mgl64.Vec3) [3]float64 {
	if e == nil || e.Width == 0 || e.Height == 0 {
		return [3]float64{}
	}
	u, v := equirectUV(dir)
	x := int(u * float64(e.Width))
	y := int(v * float64(e.Height))
	if x >= e.Width {
		x = e.Width - 1
	}
	if y >= e.Height {
		y = e.Height - 1
	}
	return e.At(x, y)
}

// Irradiance returns the cosine-weighted diffuse light arriving at a surface
// with normal n. The irradiance table is built lazily at low resolution.
func (e *Environment) Irradiance(n mgl64.Vec3) [3]float64 {
	if e == nil || e.Width == 0 || e.Height == 0 {
		return [3]float64{}
	}
	if !e.irrLoaded {
		e.buildIrradiance()
	}
	u, v := equirectUV(n)
	x := int(u * float64(e.irrW))
	y := int(v * float64(e.irrH))
	if x >= e.irrW {
		x = e.irrW - 1
	}
	if y >= e.irrH {
		y = e.irrH - 1
	}
	i := (y*e.irrW + x) * 3
	return [3]float64{float64(e.irr[i]), float64(e.irr[i+1]), float64(e.irr[i+2])}
}

const (
	irrTableW  = 16
	irrTableH  = 8
	irrSampleW = 32
	irrSampleH = 16
)

func (e *Environment) buildIrradiance() {
	// Coarse radiance samples with their directions and solid angles
	type texel struct {
		dir   mgl64.Vec3
		rad   [3]float64
		omega float64
	}
	samples := make([]texel, 0, irrSampleW*irrSampleH)
	for sy := 0; sy < irrSampleH; sy++ {
		theta := (float64(sy) + 0.5) / irrSampleH * math.Pi
		omega := (2 * math.Pi / irrSampleW) * (math.Pi / irrSampleH) * math.Sin(theta)
		for sx := 0; sx < irrSampleW; sx++ {
			u := (float64(sx) + 0.5) / irrSampleW
			v := (float64(sy) + 0.5) / irrSampleH
			d := equirectDir(u, v)
			samples = append(samples, texel{dir: d, rad: e.Sample(d), omega: omega})
		}
	}

	e.irrW, e.irrH = irrTableW, irrTableH
	e.irr = make([]float32, irrTableW*irrTableH*3)
	for ty := 0; ty < irrTableH; ty++ {
		for tx := 0; tx < irrTableW; tx++ {
			n := equirectDir((float64(tx)+0.5)/irrTableW, (float64(ty)+0.5)/irrTableH)
			var sum [3]float64
			for _, s := range samples {
				c := n.Dot(s.dir)
				if c <= 0 {
					continue
				}
				w := c * s.omega / math.Pi
				sum[0] += s.rad[0] * w
				sum[1] += s.rad[1] * w
				sum[2] += s.rad[2] * w
			}
			i := (ty*irrTableW + tx) * 3
			e.irr[i] = float32(sum[0])
			e.irr[i+1] = float32(sum[1])
			e.irr[i+2] = float32(sum[2])
		}
	}
	e.irrLoaded = true
}

// equirectUV maps a direction to equirectangular texture coordinates in [0,1).
func equirectUV(d mgl64.Vec3) (float64, float64) {
	d = d.Normalize()
	u := math.Atan2(d[2], d[0])/(2*math.Pi) + 0.5
	y := math.Max(-1, math.Min(1, d[1]))
	v := math.Acos(y) / math.Pi
	return u, v
}

// equirectDir is the inverse of equirectUV.
func equirectDir(u, v float64) mgl64.Vec3 {
	phi := (u - 0.5) * 2 * math.Pi
	theta := v * math.Pi
	return mgl64.Vec3{math.Sin(theta) * math.Cos(phi), math.Cos(theta), math.Sin(theta) * math.Sin(phi)}
}

// Scene is everything the renderer draws: the asset root, the normalization
// group wrapping it, lights and an optional environment.
type Scene struct {
	Root        *Node
	Group       *Node
	Lights      []Light
	Environment *Environment
	Background  color.NRGBA
}

// New returns an empty scene whose root holds one identity group node.
func New(background color.NRGBA) *Scene {
	root := NewNode("scene")
	group := NewNode("model-group")
	root.Add(group)
	return &Scene{Root: root, Group: group, Background: background}
}

// Materials returns every distinct material in the scene.
func (s *Scene) Materials() []*Material {
	seen := make(map[*Material]bool)
	var out []*Material
	s.Root.EachMesh(func(_ *Node, m *Mesh) {
		if m.Material != nil && !seen[m.Material] {
			seen[m.Material] = true
			out = append(out, m.Material)
		}
	})
	return out
}
