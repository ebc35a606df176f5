// Package raster is a CPU triangle rasterizer that draws a scene graph
// through an orthographic camera into a square image.
package raster

import (
	"image"
	"image/color"

	"github.com/go-gl/mathgl/mgl64"

	"asset-thumbnailer/internal/scene"
)

// Renderer draws scenes at Size×Size, internally at Size*Supersample.
// It is not safe for concurrent use; each host owns one.
type Renderer struct {
	Size        int
	Supersample int
	Tone        ToneMapper

	fb *FrameBuffer

	bg       *FrameBuffer
	bgCamera scene.OrthoCamera
	bgEnv    *scene.Environment
}

// NewRenderer returns a renderer for a size×size canvas.
func NewRenderer(size, supersample int) *Renderer {
	if supersample < 1 {
		supersample = 1
	}
	return &Renderer{Size: size, Supersample: supersample, Tone: DefaultToneMapper()}
}

// Render draws s as seen by cam and returns a new opaque image.
func (r *Renderer) Render(s *scene.Scene, cam scene.OrthoCamera) *image.NRGBA {
	rs := r.Size * r.Supersample
	if r.fb == nil || r.fb.Width != rs {
		r.fb = NewFrameBuffer(rs, rs, s.Background)
	}
	r.clear(s, cam)

	worlds := s.Root.WorldMatrices()
	vp := cam.ViewProjection()
	shader := NewShader(s, cam.Forward())

	s.Root.EachMesh(func(owner *scene.Node, m *scene.Mesh) {
		r.drawMesh(m, worlds[owner], worlds, vp, shader)
	})

	// Copy out so the shared framebuffer can be reused next frame
	out := image.NewRGBA(image.Rect(0, 0, rs, rs))
	copy(out.Pix, r.fb.Color)
	if r.Supersample > 1 {
		return Downsample(out, r.Size)
	}
	return &image.NRGBA{Pix: out.Pix, Stride: out.Stride, Rect: out.Rect}
}

func (r *Renderer) clear(s *scene.Scene, cam scene.OrthoCamera) {
	if s.Environment == nil {
		r.fb.Clear(s.Background)
		return
	}
	if r.bg == nil || r.bg.Width != r.fb.Width || r.bgCamera != cam || r.bgEnv != s.Environment {
		r.bg = environmentBackground(s.Environment, cam, r.fb.Width, r.Tone)
		r.bgCamera = cam
		r.bgEnv = s.Environment
	}
	copy(r.fb.Color, r.bg.Color)
	copy(r.fb.ZBuf, r.bg.ZBuf)
}

// environmentBackground paints the panorama as seen through a 90° frustum
// oriented like cam. Orthographic rays would all hit one texel.
func environmentBackground(env *scene.Environment, cam scene.OrthoCamera, size int, tm ToneMapper) *FrameBuffer {
	fb := NewFrameBuffer(size, size, color.NRGBA{})
	fwd := cam.Forward()
	up := cam.Up
	if up.Len() == 0 {
		up = mgl64.Vec3{0, 1, 0}
	}
	right := fwd.Cross(up).Normalize()
	up = right.Cross(fwd).Normalize()

	for y := 0; y < size; y++ {
		sy := 1 - 2*(float64(y)+0.5)/float64(size)
		for x := 0; x < size; x++ {
			sx := 2*(float64(x)+0.5)/float64(size) - 1
			dir := fwd.Add(right.Mul(sx)).Add(up.Mul(sy))
			rad := env.Sample(dir)
			cr, cg, cb := tm.Encode(rad[0], rad[1], rad[2])
			i := (y*size + x) * 4
			fb.Color[i] = cr
			fb.Color[i+1] = cg
			fb.Color[i+2] = cb
			fb.Color[i+3] = 255
		}
	}
	return fb
}

func (r *Renderer) drawMesh(m *scene.Mesh, meshWorld mgl64.Mat4, worlds map[*scene.Node]mgl64.Mat4, vp mgl64.Mat4, shader *Shader) {
	n := len(m.Positions)
	if n == 0 {
		return
	}
	rs := float64(r.fb.Width)

	world := make([]mgl64.Vec3, n)
	proj := make([]Vertex, n)
	for i, p := range m.Positions {
		v := mgl64.Vec3{float64(p[0]), float64(p[1]), float64(p[2])}
		w := mgl64.TransformCoordinate(v, scene.VertexMatrix(m, i, meshWorld, worlds))
		ndc := mgl64.TransformCoordinate(w, vp)
		world[i] = w
		proj[i] = Vertex{
			X: (ndc[0] + 1) * 0.5 * rs,
			Y: (1 - ndc[1]) * 0.5 * rs,
			Z: -ndc[2],
		}
		if i < len(m.UVs) {
			proj[i].U = float64(m.UVs[i][0])
			proj[i].V = float64(m.UVs[i][1])
		}
	}

	mat := m.Material
	if mat == nil {
		mat = scene.NewMaterial("default")
		mat.DoubleSided = true
	}
	surf := Surface{BaseColor: mat.BaseColor, Texture: mat.Texture}
	if len(m.UVs) < n {
		// Without coordinates the texture collapses to its average color
		surf.Texture = nil
	}
	avg := mat.AverageColor()
	surf.Albedo = [3]float64{SRGBToLinear(avg.R), SRGBToLinear(avg.G), SRGBToLinear(avg.B)}

	for t := 0; t+2 < len(m.Indices); t += 3 {
		i0, i1, i2 := int(m.Indices[t]), int(m.Indices[t+1]), int(m.Indices[t+2])
		if i0 >= n || i1 >= n || i2 >= n {
			continue
		}
		a, b, c := proj[i0], proj[i1], proj[i2]

		if !mat.DoubleSided {
			// Counter-clockwise in NDC (y up) is front-facing; screen y points down
			area := (b.X-a.X)*(c.Y-a.Y) - (b.Y-a.Y)*(c.X-a.X)
			if area >= 0 {
				continue
			}
		}

		normal := world[i1].Sub(world[i0]).Cross(world[i2].Sub(world[i0]))
		if normal.Len() < 1e-12 {
			continue
		}
		surf.Light = shader.Light(normal.Normalize())
		RasterizeTriangle(r.fb, a, b, c, &surf, r.Tone)
	}
}
