package raster

import (
	"image"
	"image/color"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asset-thumbnailer/internal/scene"
)

var testBackground = color.NRGBA{R: 0xF2, G: 0xF6, B: 0xFF, A: 0xFF}

// quadScene returns a scene with one square of side 2*half facing +Z.
func quadScene(half float32) *scene.Scene {
	s := scene.New(testBackground)
	mat := scene.NewMaterial("red")
	mat.BaseColor = [4]float64{1, 0, 0, 1}
	mat.DoubleSided = true
	mesh := &scene.Mesh{
		Positions: [][3]float32{{-half, -half, 0}, {half, -half, 0}, {half, half, 0}, {-half, half, 0}},
		Indices:   []uint32{0, 1, 2, 0, 2, 3},
		Material:  mat,
	}
	node := scene.NewNode("quad")
	node.Meshes = []*scene.Mesh{mesh}
	s.Group.Add(node)
	s.Lights = scene.DefaultLights()
	return s
}

func frontCamera() scene.OrthoCamera {
	return scene.OrthoCamera{
		Eye: mgl64.Vec3{0, 0, 10}, Up: mgl64.Vec3{0, 1, 0},
		Left: -256, Right: 256, Top: 256, Bottom: -256, Near: -1000, Far: 1000,
	}
}

func TestRenderBackgroundAndCoverage(t *testing.T) {
	r := NewRenderer(64, 1)
	s := quadScene(128) // half of the ±256 frustum

	img := r.Render(s, frontCamera())
	require.Equal(t, image.Rect(0, 0, 64, 64), img.Bounds())

	assert.Equal(t, testBackground, img.NRGBAAt(0, 0), "corner keeps the clear color")
	center := img.NRGBAAt(32, 32)
	assert.Greater(t, center.R, center.B, "center is covered by the red quad")

	// Quad spans the middle half of the canvas
	assert.Equal(t, testBackground, img.NRGBAAt(10, 32))
	assert.NotEqual(t, testBackground, img.NRGBAAt(20, 32))
}

func TestRenderSupersampleKeepsSize(t *testing.T) {
	r := NewRenderer(32, 2)
	img := r.Render(quadScene(128), frontCamera())
	assert.Equal(t, 32, img.Bounds().Dx())
	assert.Equal(t, uint8(255), img.NRGBAAt(16, 16).A)
}

func TestSingleSidedBackFaceCulled(t *testing.T) {
	s := quadScene(128)
	s.Root.EachMesh(func(_ *scene.Node, m *scene.Mesh) { m.Material.DoubleSided = false })

	cam := frontCamera()
	cam.Eye = mgl64.Vec3{0, 0, -10}
	img := NewRenderer(32, 1).Render(s, cam)
	assert.Equal(t, testBackground, img.NRGBAAt(16, 16))

	img = NewRenderer(32, 1).Render(s, frontCamera())
	assert.NotEqual(t, testBackground, img.NRGBAAt(16, 16))
}

func TestDepthTestKeepsNearest(t *testing.T) {
	s := quadScene(128)
	blue := scene.NewMaterial("blue")
	blue.BaseColor = [4]float64{0, 0, 1, 1}
	blue.DoubleSided = true
	near := scene.NewNode("near")
	near.Translation = mgl64.Vec3{0, 0, 5}
	near.Meshes = []*scene.Mesh{{
		Positions: [][3]float32{{-64, -64, 0}, {64, -64, 0}, {64, 64, 0}, {-64, 64, 0}},
		Indices:   []uint32{0, 1, 2, 0, 2, 3},
		Material:  blue,
	}}
	s.Group.Add(near)

	img := NewRenderer(64, 1).Render(s, frontCamera())
	c := img.NRGBAAt(32, 32)
	assert.Greater(t, c.B, c.R, "nearer blue quad wins the depth test")
}

func TestShaderTurnsNormalTowardCamera(t *testing.T) {
	sh := &Shader{
		Lights:  []scene.Light{{Kind: scene.DirectionalLight, Color: [3]float64{1, 1, 1}, Intensity: 1, Direction: mgl64.Vec3{0, 0, 1}}},
		ViewDir: mgl64.Vec3{0, 0, -1},
	}
	front := sh.Light(mgl64.Vec3{0, 0, 1})
	back := sh.Light(mgl64.Vec3{0, 0, -1})
	assert.Equal(t, front, back)
	assert.InDelta(t, 1.0, front[0], 1e-9)
}

func TestToneMapperMonotonic(t *testing.T) {
	tm := DefaultToneMapper()
	lo, _, _ := tm.Encode(0.1, 0, 0)
	hi, _, _ := tm.Encode(1.0, 0, 0)
	assert.Less(t, lo, hi)
	black, _, _ := tm.Encode(0, 0, 0)
	assert.Equal(t, uint8(0), black)
}

func TestSampleLinearWraps(t *testing.T) {
	tex := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for i := range tex.Pix {
		tex.Pix[i] = 255
	}
	rgb, a := SampleLinear(tex, 1.25, -0.5)
	assert.InDelta(t, 1.0, rgb[0], 1e-9)
	assert.InDelta(t, 1.0, a, 1e-9)
}
