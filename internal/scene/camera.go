package scene

import "github.com/go-gl/mathgl/mgl64"

// OrthoCamera is an orthographic camera looking from Eye at Target.
type OrthoCamera struct {
	Eye    mgl64.Vec3
	Target mgl64.Vec3
	Up     mgl64.Vec3

	Left, Right, Top, Bottom float64
	Near, Far                float64
}

// View returns the world-to-camera matrix.
func (c OrthoCamera) View() mgl64.Mat4 {
	up := c.Up
	if up.Len() == 0 {
		up = mgl64.Vec3{0, 1, 0}
	}
	return mgl64.LookAtV(c.Eye, c.Target, up)
}

// Projection returns the orthographic projection matrix.
func (c OrthoCamera) Projection() mgl64.Mat4 {
	return mgl64.Ortho(c.Left, c.Right, c.Bottom, c.Top, c.Near, c.Far)
}

// ViewProjection returns Projection * View.
func (c OrthoCamera) ViewProjection() mgl64.Mat4 {
	return c.Projection().Mul4(c.View())
}

// Forward returns the unit viewing direction.
func (c OrthoCamera) Forward() mgl64.Vec3 {
	return c.Target.Sub(c.Eye).Normalize()
}
