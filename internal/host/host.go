// Package host is the off-screen rendering host: it owns one scene, a
// software renderer and a render loop goroutine that redraws the canvas on
// a fixed interval and publishes every frame for capture.
package host

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"go.uber.org/zap"

	"asset-thumbnailer/internal/asset"
	"asset-thumbnailer/internal/mathutil"
	"asset-thumbnailer/internal/pipeline"
	"asset-thumbnailer/internal/raster"
	"asset-thumbnailer/internal/scene"
)

// Background is the canvas clear color, #F2F6FF.
var Background = color.NRGBA{R: 0xF2, G: 0xF6, B: 0xFF, A: 0xFF}

// ErrClosed is returned by Capture once the render loop has stopped.
var ErrClosed = errors.New("host: render loop stopped")

// Config sizes the canvas and paces the render loop.
type Config struct {
	Canvas      int
	Supersample int
	// Interval between render loop iterations.
	Interval time.Duration
}

// DefaultConfig matches a 60 Hz display at the pipeline canvas size.
func DefaultConfig() Config {
	return Config{
		Canvas:      pipeline.CanvasSize,
		Supersample: 2,
		Interval:    16 * time.Millisecond,
	}
}

// Host implements pipeline.Host on the software rasterizer. Every method is
// safe to call while the render loop runs.
type Host struct {
	cfg      Config
	loader   asset.Loader
	renderer *raster.Renderer
	log      *zap.Logger

	mu     sync.Mutex
	scene  *scene.Scene
	asset  *asset.Asset
	camera scene.OrthoCamera
	driver *driver
	mode   pipeline.SamplingMode
	tick   float64

	latest *image.NRGBA
	frame  uint64
	next   chan struct{} // closed when the next frame is published

	cancel context.CancelFunc
	done   chan struct{}
}

var _ pipeline.Host = (*Host)(nil)

// New returns a host with an empty scene. Call Start to run the render loop.
func New(cfg Config, loader asset.Loader, log *zap.Logger) *Host {
	if cfg.Canvas <= 0 {
		cfg.Canvas = pipeline.CanvasSize
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}
	if log == nil {
		log = zap.NewNop()
	}
	half := float64(cfg.Canvas) / 2
	return &Host{
		cfg:      cfg,
		loader:   loader,
		renderer: raster.NewRenderer(cfg.Canvas, cfg.Supersample),
		log:      log.Named("host"),
		scene:    scene.New(Background),
		camera: scene.OrthoCamera{
			Eye:  mgl64.Vec3{1, 1, 1},
			Up:   mgl64.Vec3{0, 1, 0},
			Left: -half, Right: half, Top: half, Bottom: -half,
			Near: -1000, Far: 1000,
		},
		next: make(chan struct{}),
	}
}

// Start launches the render loop. It runs until ctx is done or Close is called.
func (h *Host) Start(ctx context.Context) {
	h.mu.Lock()
	if h.done != nil {
		h.mu.Unlock()
		return
	}
	ctx, h.cancel = context.WithCancel(ctx)
	h.done = make(chan struct{})
	h.mu.Unlock()

	go h.loop(ctx)
}

// Close stops the render loop and waits for it to exit.
func (h *Host) Close() error {
	h.mu.Lock()
	cancel, done := h.cancel, h.done
	h.mu.Unlock()
	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return nil
}

func (h *Host) loop(ctx context.Context) {
	defer close(h.done)
	t := time.NewTicker(h.cfg.Interval)
	defer t.Stop()

	h.renderFrame()
	for {
		select {
		case <-ctx.Done():
			h.log.Debug("render loop stopped", zap.Uint64("frames", h.Frames()))
			return
		case <-t.C:
			h.renderFrame()
		}
	}
}

// renderFrame advances free-running animation, draws and publishes one
// frame. The whole iteration holds the lock so a frame never mixes two
// scene states.
func (h *Host) renderFrame() {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.driver != nil && h.mode == pipeline.SamplingFreeRunning {
		h.driver.mixer.Update(h.tick)
	}
	h.latest = h.renderer.Render(h.scene, h.camera)
	h.frame++
	close(h.next)
	h.next = make(chan struct{})
}

// Frames returns the number of frames published so far.
func (h *Host) Frames() uint64 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.frame
}

// Load decodes path and places its root under the group node, replacing any
// previous asset.
func (h *Host) Load(ctx context.Context, path string) (pipeline.SceneHandle, error) {
	a, err := h.loader.Load(ctx, path)
	if err != nil {
		return pipeline.SceneHandle{}, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	g := h.scene.Group
	for _, c := range g.Children {
		c.Parent = nil
	}
	g.Children = nil
	g.Add(a.Root)
	h.asset = a
	h.driver = nil

	h.log.Debug("asset loaded", zap.String("asset", a.Name), zap.Strings("clips", a.ClipNames()))
	return pipeline.SceneHandle{Name: a.Name, Clips: a.ClipNames()}, nil
}

func (h *Host) SetTransform(t pipeline.Transform) {
	h.mu.Lock()
	defer h.mu.Unlock()
	g := h.scene.Group
	g.Scale = mgl64.Vec3{t.Scale, t.Scale, t.Scale}
	g.Translation = t.Translation
	g.Rotation = mgl64.QuatIdent()
	g.Matrix = nil
}

func (h *Host) ComputeBoundingBox() mathutil.Box3 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return scene.ComputeBounds(h.scene.Group)
}

func (h *Host) SetCamera(c pipeline.Camera) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.camera = scene.OrthoCamera{
		Eye: c.Eye, Target: c.Target, Up: c.Up,
		Left: c.Left, Right: c.Right, Top: c.Top, Bottom: c.Bottom,
		Near: c.Near, Far: c.Far,
	}
}

func (h *Host) AddDefaultLights() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.scene.Lights = append(h.scene.Lights, scene.DefaultLights()...)
}

// SetEnvironment uses env as both background and image-based light.
func (h *Host) SetEnvironment(env *scene.Environment) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.scene.Environment = env
}

func (h *Host) PrepareMaterials() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, m := range h.scene.Materials() {
		m.DoubleSided = true
		m.Dirty = true
	}
}

// Camera returns the current camera.
func (h *Host) Camera() scene.OrthoCamera {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.camera
}

// Capture waits for the next frame the render loop publishes and returns a
// copy of rect.
func (h *Host) Capture(ctx context.Context, rect image.Rectangle) (image.Image, error) {
	canvas := image.Rect(0, 0, h.cfg.Canvas, h.cfg.Canvas)
	if rect.Empty() || !rect.In(canvas) {
		return nil, fmt.Errorf("host: capture rect %v outside canvas %v", rect, canvas)
	}

	h.mu.Lock()
	next, done := h.next, h.done
	h.mu.Unlock()
	if done == nil {
		return nil, errors.New("host: render loop not started")
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-done:
		return nil, ErrClosed
	case <-next:
	}

	h.mu.Lock()
	src := h.latest
	h.mu.Unlock()

	out := image.NewNRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	for y := 0; y < rect.Dy(); y++ {
		off := src.PixOffset(rect.Min.X, rect.Min.Y+y)
		copy(out.Pix[y*out.Stride:y*out.Stride+rect.Dx()*4], src.Pix[off:off+rect.Dx()*4])
	}
	return out, nil
}
