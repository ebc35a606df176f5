package pipeline

import "github.com/go-gl/mathgl/mgl64"

// Camera is an orthographic camera placement.
type Camera struct {
	Eye    mgl64.Vec3
	Target mgl64.Vec3
	Up     mgl64.Vec3

	Left, Right, Top, Bottom float64
	Near, Far                float64
}

const (
	eyeDistanceFactor = 1.5
	depthRange        = 1000
)

// PlaceCamera positions the camera at 1.5×maxDimension on every axis,
// looking at the origin. maxDimension is the pre-scale extent. The frustum
// planes depend only on the canvas size.
func PlaceCamera(maxDimension float64, canvas int) Camera {
	d := maxDimension * eyeDistanceFactor
	half := float64(canvas) / 2
	return Camera{
		Eye:    mgl64.Vec3{d, d, d},
		Up:     mgl64.Vec3{0, 1, 0},
		Left:   -half,
		Right:  half,
		Top:    half,
		Bottom: -half,
		Near:   -depthRange,
		Far:    depthRange,
	}
}
