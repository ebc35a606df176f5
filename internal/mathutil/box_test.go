package mathutil

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
)

func TestEmptyBox(t *testing.T) {
	b := EmptyBox()
	assert.True(t, b.IsEmpty())
	assert.Equal(t, mgl64.Vec3{}, b.Size())
	assert.Equal(t, mgl64.Vec3{}, b.Center())
	assert.Zero(t, b.MaxDimension())
}

func TestBoxFromPoints(t *testing.T) {
	b := BoxFromPoints(mgl64.Vec3{1, -2, 3}, mgl64.Vec3{-1, 4, 0})

	assert.Equal(t, mgl64.Vec3{-1, -2, 0}, b.Min)
	assert.Equal(t, mgl64.Vec3{1, 4, 3}, b.Max)
	assert.Equal(t, mgl64.Vec3{2, 6, 3}, b.Size())
	assert.Equal(t, mgl64.Vec3{0, 1, 1.5}, b.Center())
	assert.Equal(t, 6.0, b.MaxDimension())
}

func TestSinglePointBoxHasZeroExtent(t *testing.T) {
	b := BoxFromPoints(mgl64.Vec3{5, 5, 5})
	assert.False(t, b.IsEmpty())
	assert.Zero(t, b.MaxDimension())
}

func TestUnion(t *testing.T) {
	a := BoxFromPoints(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{1, 1, 1})
	b := BoxFromPoints(mgl64.Vec3{2, -1, 0}, mgl64.Vec3{3, 0, 1})

	u := a.Union(b)
	assert.Equal(t, mgl64.Vec3{0, -1, 0}, u.Min)
	assert.Equal(t, mgl64.Vec3{3, 1, 1}, u.Max)
	assert.Equal(t, a, a.Union(EmptyBox()))
}

func TestTransformScaleTranslate(t *testing.T) {
	b := BoxFromPoints(mgl64.Vec3{-1, -1, -1}, mgl64.Vec3{1, 1, 1})
	m := mgl64.Translate3D(10, 0, 0).Mul4(mgl64.Scale3D(2, 2, 2))

	out := b.Transform(m)
	assert.InDelta(t, 8.0, out.Min[0], 1e-9)
	assert.InDelta(t, 12.0, out.Max[0], 1e-9)
	assert.InDelta(t, 4.0, out.MaxDimension(), 1e-9)
}

func TestTransformRotationGrowsBox(t *testing.T) {
	b := BoxFromPoints(mgl64.Vec3{-1, -1, -1}, mgl64.Vec3{1, 1, 1})
	m := mgl64.HomogRotate3DY(math.Pi / 4)

	out := b.Transform(m)
	assert.InDelta(t, 2*math.Sqrt2, out.Size()[0], 1e-9)
	assert.InDelta(t, 2.0, out.Size()[1], 1e-9)
}

func TestEulerToQuatIdentity(t *testing.T) {
	q := EulerToQuat(0, 0, 0)
	assert.InDelta(t, 1.0, q.W, 1e-12)
	assert.Equal(t, mgl64.Vec3{}, q.V)
}

func TestZUpToYUp(t *testing.T) {
	up := ZUpToYUp.Rotate(mgl64.Vec3{0, 0, 1})
	assert.InDelta(t, 0.0, up[0], 1e-9)
	assert.InDelta(t, 1.0, up[1], 1e-9)
	assert.InDelta(t, 0.0, up[2], 1e-9)
}
