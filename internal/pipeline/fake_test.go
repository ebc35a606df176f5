package pipeline

import (
	"context"
	"errors"
	"image"
	"image/color"
	"sync"

	"asset-thumbnailer/internal/encode"
	"asset-thumbnailer/internal/mathutil"
	"asset-thumbnailer/internal/scene"
)

// fakeHost measures a fixed raw box through the current transform and
// returns frames tagged with their capture index in the red channel.
type fakeHost struct {
	mu sync.Mutex

	raw     mathutil.Box3
	clips   []string
	block   bool // Load waits for cancellation
	loadErr error
	failAt  int // capture index that fails, -1 for never

	transform     Transform
	camera        Camera
	defaultLights int
	env           *scene.Environment
	prepared      bool
	captures      int
	stepsSeen     []int // driver steps at each capture
	driver        *fakeDriver
	mode          SamplingMode
	animated      bool
}

func newFakeHost(raw mathutil.Box3, clips ...string) *fakeHost {
	return &fakeHost{raw: raw, clips: clips, failAt: -1, transform: Identity}
}

func (h *fakeHost) Load(ctx context.Context, _ string) (SceneHandle, error) {
	if h.block {
		<-ctx.Done()
		return SceneHandle{}, ctx.Err()
	}
	if h.loadErr != nil {
		return SceneHandle{}, h.loadErr
	}
	return SceneHandle{Name: "fake", Clips: h.clips}, nil
}

func (h *fakeHost) SetTransform(t Transform) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.transform = t
}

func (h *fakeHost) ComputeBoundingBox() mathutil.Box3 {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.raw.Transform(h.transform.Matrix())
}

func (h *fakeHost) SetCamera(c Camera) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.camera = c
}

func (h *fakeHost) AddDefaultLights() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.defaultLights++
}

func (h *fakeHost) SetEnvironment(env *scene.Environment) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.env = env
}

func (h *fakeHost) PrepareMaterials() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.prepared = true
}

func (h *fakeHost) NewAnimationDriver() AnimationDriver {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.driver = &fakeDriver{known: h.clips}
	return h.driver
}

func (h *fakeHost) Animate(_ AnimationDriver, mode SamplingMode, _ float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.animated = true
	h.mode = mode
}

func (h *fakeHost) Capture(_ context.Context, rect image.Rectangle) (image.Image, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	i := h.captures
	h.captures++
	if h.driver != nil {
		h.stepsSeen = append(h.stepsSeen, h.driver.steps)
	}
	if i == h.failAt {
		return nil, errors.New("host lost the canvas")
	}
	img := image.NewNRGBA(rect)
	for p := 0; p < len(img.Pix); p += 4 {
		img.Pix[p], img.Pix[p+1], img.Pix[p+2], img.Pix[p+3] = uint8(i), 0xF6, 0xFF, 0xFF
	}
	return img, nil
}

func (h *fakeHost) captureCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.captures
}

type fakeDriver struct {
	known   []string
	playing []int
	steps   int
}

func (d *fakeDriver) Play(i int) error {
	if i < 0 || i >= len(d.known) {
		return errors.New("no such clip")
	}
	d.playing = append(d.playing, i)
	return nil
}

func (d *fakeDriver) Playing() []int { return d.playing }

func (d *fakeDriver) Step(float64) { d.steps++ }

// recordingEncoder remembers what it was asked to write. Sequences are
// consumed like the real assembler does.
type recordingEncoder struct {
	stills    int
	sequences int
	order     []uint8
	err       error
}

func (e *recordingEncoder) WriteStill(_ context.Context, img image.Image, dst string) (encode.Result, error) {
	e.stills++
	e.order = append(e.order, color.NRGBAModel.Convert(img.At(0, 0)).(color.NRGBA).R)
	return encode.Result{Path: dst, Frames: 1}, e.err
}

func (e *recordingEncoder) Assemble(_ context.Context, seq *encode.FrameSequence, dst string) (res encode.Result, err error) {
	defer func() { res.CleanupWarnings = seq.Cleanup() }()
	e.sequences++
	for i := 0; i < seq.Len(); i++ {
		img, err := seq.Frame(i)
		if err != nil {
			return res, err
		}
		e.order = append(e.order, color.NRGBAModel.Convert(img.At(0, 0)).(color.NRGBA).R)
	}
	if e.err != nil {
		return res, e.err
	}
	return encode.Result{Path: dst, Frames: seq.Len()}, nil
}

type fakeEnvLoader struct {
	env *scene.Environment
	err error
}

func (l fakeEnvLoader) Load(context.Context, string) (*scene.Environment, error) {
	return l.env, l.err
}
