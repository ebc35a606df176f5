package raster

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"asset-thumbnailer/internal/scene"
)

// Shader turns a face normal into the linear light reaching it.
type Shader struct {
	Lights       []scene.Light
	Env          *scene.Environment
	EnvIntensity float64
	ViewDir      mgl64.Vec3 // unit direction the camera looks along
}

// NewShader captures the lights of s for one frame.
func NewShader(s *scene.Scene, viewDir mgl64.Vec3) *Shader {
	return &Shader{
		Lights:       s.Lights,
		Env:          s.Environment,
		EnvIntensity: 1,
		ViewDir:      viewDir,
	}
}

// Light returns the RGB light for a face normal. Surfaces are lit from
// both sides: the normal is turned toward the camera first.
func (sh *Shader) Light(normal mgl64.Vec3) [3]float64 {
	if normal.Dot(sh.ViewDir) > 0 {
		normal = normal.Mul(-1)
	}

	var out [3]float64
	if sh.Env != nil {
		irr := sh.Env.Irradiance(normal)
		for k := 0; k < 3; k++ {
			out[k] += irr[k] * sh.EnvIntensity
		}
	}
	for _, l := range sh.Lights {
		var f float64
		switch l.Kind {
		case scene.AmbientLight:
			f = l.Intensity
		case scene.DirectionalLight:
			f = math.Max(0, normal.Dot(l.Direction)) * l.Intensity
		}
		for k := 0; k < 3; k++ {
			out[k] += l.Color[k] * f
		}
	}
	return out
}

// Precomputed sRGB-to-linear lookup table (256 entries).
var srgbToLinear [256]float64

func init() {
	for i := 0; i < 256; i++ {
		srgbToLinear[i] = math.Pow(float64(i)/255.0, 2.2)
	}
}

// SRGBToLinear decodes one 8-bit sRGB channel.
func SRGBToLinear(c uint8) float64 {
	return srgbToLinear[c]
}

// ACESTonemap applies ACES Filmic tone mapping to a linear value.
func ACESTonemap(x float64) float64 {
	return (x * (2.51*x + 0.03)) / (x*(2.43*x+0.59) + 0.14)
}

// ToneMapper converts linear HDR color to 8-bit sRGB.
type ToneMapper struct {
	Exposure float64
	InvGamma float64
}

// DefaultToneMapper returns exposure 1 and gamma 2.2.
func DefaultToneMapper() ToneMapper {
	return ToneMapper{Exposure: 1.0, InvGamma: 1.0 / 2.2}
}

// Encode maps linear RGB through exposure, ACES and gamma.
func (tm ToneMapper) Encode(r, g, b float64) (uint8, uint8, uint8) {
	fr := math.Pow(ACESTonemap(r*tm.Exposure), tm.InvGamma)
	fg := math.Pow(ACESTonemap(g*tm.Exposure), tm.InvGamma)
	fb := math.Pow(ACESTonemap(b*tm.Exposure), tm.InvGamma)
	return clamp255(fr * 255), clamp255(fg * 255), clamp255(fb * 255)
}

func clamp255(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
