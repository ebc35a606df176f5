package mathutil

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Deg2Rad converts degrees to radians.
func Deg2Rad(d float64) float64 {
	return d * math.Pi / 180
}

// EulerToQuat converts Euler XYZ angles (radians) to a unit quaternion.
// Matches the bone rotation convention of legacy BMD models.
func EulerToQuat(rx, ry, rz float64) mgl64.Quat {
	cx, sx := math.Cos(rx*0.5), math.Sin(rx*0.5)
	cy, sy := math.Cos(ry*0.5), math.Sin(ry*0.5)
	cz, sz := math.Cos(rz*0.5), math.Sin(rz*0.5)

	return mgl64.Quat{
		W: cx*cy*cz + sx*sy*sz,
		V: mgl64.Vec3{
			sx*cy*cz - cx*sy*sz,
			cx*sy*cz + sx*cy*sz,
			cx*cy*sz - sx*sy*cz,
		},
	}
}

// ZUpToYUp rotates Z-up (DirectX style) model space into the Y-up world: Rx(-90°).
var ZUpToYUp = mgl64.QuatRotate(-math.Pi/2, mgl64.Vec3{1, 0, 0})
