package scene

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cubeMesh(half float32) *Mesh {
	var pos [][3]float32
	for i := 0; i < 8; i++ {
		p := [3]float32{-half, -half, -half}
		for k := 0; k < 3; k++ {
			if i&(1<<k) != 0 {
				p[k] = half
			}
		}
		pos = append(pos, p)
	}
	return &Mesh{Positions: pos, Indices: []uint32{0, 1, 3, 0, 3, 2}, Material: NewMaterial("m")}
}

func TestWorldMatricesChain(t *testing.T) {
	root := NewNode("root")
	child := NewNode("child")
	root.Add(child)
	root.Translation = mgl64.Vec3{10, 0, 0}
	child.Scale = mgl64.Vec3{2, 2, 2}

	w := root.WorldMatrices()[child]
	p := mgl64.TransformCoordinate(mgl64.Vec3{1, 1, 1}, w)
	assert.InDelta(t, 12.0, p[0], 1e-9)
	assert.InDelta(t, 2.0, p[1], 1e-9)
	assert.Same(t, root, child.Parent)
	assert.True(t, root.Contains(child))
	assert.False(t, child.Contains(root))
	assert.Same(t, child, root.Find("child"))
}

func TestComputeBoundsFollowsTransforms(t *testing.T) {
	s := New(color.NRGBA{})
	model := NewNode("model")
	model.Meshes = []*Mesh{cubeMesh(1)}
	s.Group.Add(model)

	box := ComputeBounds(s.Root)
	assert.Equal(t, 2.0, box.MaxDimension())

	s.Group.Scale = mgl64.Vec3{3, 3, 3}
	s.Group.Translation = mgl64.Vec3{0, 5, 0}
	box = ComputeBounds(s.Root)
	assert.InDelta(t, 6.0, box.MaxDimension(), 1e-9)
	assert.InDelta(t, 5.0, box.Center()[1], 1e-9)
}

func TestComputeBoundsRigidSkinning(t *testing.T) {
	root := NewNode("root")
	bone := NewNode("bone")
	bone.Translation = mgl64.Vec3{0, 10, 0}
	root.Add(bone)

	mesh := &Mesh{
		Positions: [][3]float32{{0, 0, 0}, {1, 0, 0}},
		Joints:    []int{0, -1},
		Skeleton:  []*Node{bone},
	}
	holder := NewNode("holder")
	holder.Meshes = []*Mesh{mesh}
	root.Add(holder)

	box := ComputeBounds(root)
	assert.InDelta(t, 0.0, box.Min[1], 1e-9)
	assert.InDelta(t, 10.0, box.Max[1], 1e-9)
}

func TestComputeBoundsEmpty(t *testing.T) {
	assert.True(t, ComputeBounds(NewNode("empty")).IsEmpty())
}

func TestTrackLinearTranslation(t *testing.T) {
	n := NewNode("n")
	clip := NewClip("move", []Track{{
		Target: n,
		Path:   PathTranslation,
		Times:  []float64{0, 1},
		Values: [][4]float64{{0, 0, 0}, {10, 0, 0}},
	}})
	require.Equal(t, 1.0, clip.Duration)

	clip.Apply(0.25)
	assert.InDelta(t, 2.5, n.Translation[0], 1e-9)

	clip.Apply(5)
	assert.InDelta(t, 10.0, n.Translation[0], 1e-9)
}

func TestTrackStep(t *testing.T) {
	n := NewNode("n")
	clip := NewClip("step", []Track{{
		Target: n,
		Path:   PathScale,
		Times:  []float64{0, 1, 2},
		Values: [][4]float64{{1, 1, 1}, {2, 2, 2}, {3, 3, 3}},
		Interp: InterpStep,
	}})
	clip.Apply(1.5)
	assert.Equal(t, mgl64.Vec3{2, 2, 2}, n.Scale)
}

func TestTrackRotationSlerp(t *testing.T) {
	n := NewNode("n")
	q := mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 1, 0})
	clip := NewClip("spin", []Track{{
		Target: n,
		Path:   PathRotation,
		Times:  []float64{0, 1},
		Values: [][4]float64{{0, 0, 0, 1}, {q.V[0], q.V[1], q.V[2], q.W}},
	}})
	clip.Apply(0.5)

	want := mgl64.QuatRotate(math.Pi/4, mgl64.Vec3{0, 1, 0})
	assert.InDelta(t, want.W, n.Rotation.W, 1e-9)
	assert.InDelta(t, want.V[1], n.Rotation.V[1], 1e-9)
}

func TestMixerPlaysAllActionsAndLoops(t *testing.T) {
	a, b := NewNode("a"), NewNode("b")
	clipA := NewClip("a", []Track{{Target: a, Path: PathTranslation, Times: []float64{0, 1}, Values: [][4]float64{{0}, {1}}}})
	clipB := NewClip("b", []Track{{Target: b, Path: PathTranslation, Times: []float64{0, 2}, Values: [][4]float64{{0}, {2}}}})

	m := NewMixer(NewNode("root"))
	m.ClipAction(clipA).Play()
	m.ClipAction(clipB).Play()
	assert.Same(t, m.ClipAction(clipA), m.ClipAction(clipA))
	assert.Equal(t, 2, m.Playing())

	m.Update(0.5)
	assert.InDelta(t, 0.5, a.Translation[0], 1e-9)
	assert.InDelta(t, 0.5, b.Translation[0], 1e-9)

	m.Update(0.75)
	assert.InDelta(t, 0.25, a.Translation[0], 1e-9, "clip a wraps after 1s")
	assert.InDelta(t, 1.25, b.Translation[0], 1e-9)
	assert.InDelta(t, 1.25, m.Elapsed(), 1e-9)
}

func TestMixerSkipsStoppedActions(t *testing.T) {
	n := NewNode("n")
	clip := NewClip("a", []Track{{Target: n, Path: PathTranslation, Times: []float64{0, 1}, Values: [][4]float64{{0}, {1}}}})
	m := NewMixer(n)
	act := m.ClipAction(clip)
	m.Update(0.5)
	assert.Zero(t, n.Translation[0])
	assert.False(t, act.IsPlaying())
}

func TestMaterialAverageColorRebuildsWhenDirty(t *testing.T) {
	m := NewMaterial("m")
	tex := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	tex.SetNRGBA(0, 0, color.NRGBA{R: 100, A: 255})
	tex.SetNRGBA(1, 0, color.NRGBA{R: 200, A: 255})
	m.Texture = tex

	assert.Equal(t, uint8(150), m.AverageColor().R)
	assert.False(t, m.Dirty)

	tex.SetNRGBA(0, 0, color.NRGBA{R: 200, A: 255})
	assert.Equal(t, uint8(150), m.AverageColor().R, "cached until marked dirty")
	m.Dirty = true
	assert.Equal(t, uint8(200), m.AverageColor().R)
}

func TestEnvironmentIrradianceUniform(t *testing.T) {
	env := &Environment{Width: 8, Height: 4, Pix: make([]float32, 8*4*3)}
	for i := range env.Pix {
		env.Pix[i] = 1
	}
	irr := env.Irradiance(mgl64.Vec3{0, 1, 0})
	assert.InDelta(t, 1.0, irr[0], 0.1)
	assert.Equal(t, [3]float64{1, 1, 1}, env.Sample(mgl64.Vec3{1, 0, 0}))
}

func TestCameraProjectsTargetToCenter(t *testing.T) {
	cam := OrthoCamera{
		Eye: mgl64.Vec3{3, 3, 3}, Up: mgl64.Vec3{0, 1, 0},
		Left: -256, Right: 256, Top: 256, Bottom: -256, Near: -1000, Far: 1000,
	}
	p := mgl64.TransformCoordinate(mgl64.Vec3{}, cam.ViewProjection())
	assert.InDelta(t, 0.0, p[0], 1e-9)
	assert.InDelta(t, 0.0, p[1], 1e-9)
}
