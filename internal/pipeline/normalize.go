package pipeline

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"asset-thumbnailer/internal/mathutil"
)

// Fixed framing constants.
const (
	CanvasSize     = 512
	TargetFraction = 0.7
)

// Framing selects how the group is recentered.
type Framing int

const (
	// FramingCentered translates by the scaled center on every axis, so the
	// normalized object is centered at the origin for any box.
	FramingCentered Framing = iota
	// FramingReference subtracts the raw X/Z center and the scaled Y center,
	// reproducing the historical thumbnails bit for bit.
	FramingReference
)

func (f Framing) String() string {
	if f == FramingReference {
		return "reference"
	}
	return "centered"
}

// ParseFraming parses "centered" or "reference".
func ParseFraming(s string) (Framing, error) {
	switch s {
	case "", "centered":
		return FramingCentered, nil
	case "reference":
		return FramingReference, nil
	}
	return 0, fmt.Errorf("pipeline: unknown framing %q", s)
}

// Transform is the uniform scale and translation applied to the model group.
// A group point p lands at p*Scale + Translation.
type Transform struct {
	Scale       float64
	Translation mgl64.Vec3
}

// Identity is the transform of a freshly loaded group.
var Identity = Transform{Scale: 1}

// Matrix returns the transform as T * S.
func (t Transform) Matrix() mgl64.Mat4 {
	return mgl64.Translate3D(t.Translation[0], t.Translation[1], t.Translation[2]).
		Mul4(mgl64.Scale3D(t.Scale, t.Scale, t.Scale))
}

// Normalization is the result of fitting a raw box into the canvas.
type Normalization struct {
	Transform
	// MaxDimension is the largest extent of the raw box, before scaling.
	MaxDimension float64
}

// Normalize computes the scale and recentering translation that fit raw
// into targetFraction of a canvas of the given size. The Y correction of
// the second pass is not included; see YCorrection.
func Normalize(raw mathutil.Box3, canvas int, framing Framing) (Normalization, error) {
	if raw.IsEmpty() {
		return Normalization{}, &PreconditionError{Reason: "asset has no geometry"}
	}
	maxDim := raw.MaxDimension()
	scale := TargetFraction * float64(canvas) / maxDim
	if math.IsNaN(scale) || math.IsInf(scale, 0) || scale <= 0 {
		return Normalization{}, &PreconditionError{
			Reason: fmt.Sprintf("bounding box has zero extent (max dimension %g)", maxDim),
		}
	}

	c := raw.Center()
	var tr mgl64.Vec3
	switch framing {
	case FramingReference:
		tr = mgl64.Vec3{-c[0], -c[1] * scale, -c[2]}
	default:
		tr = c.Mul(-scale)
	}
	return Normalization{
		Transform:    Transform{Scale: scale, Translation: tr},
		MaxDimension: maxDim,
	}, nil
}

// YCorrection compensates vertical asymmetry between the measured scaled
// box and the raw height scaled analytically.
func YCorrection(raw, scaled mathutil.Box3, scale float64) float64 {
	return (scaled.Size()[1] - raw.Size()[1]*scale) / 2
}
