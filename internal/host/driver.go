package host

import (
	"fmt"
	"slices"

	"asset-thumbnailer/internal/pipeline"
	"asset-thumbnailer/internal/scene"
)

// driver plays clips of the loaded asset through a mixer bound to the
// group node. All state is guarded by the host mutex.
type driver struct {
	h       *Host
	mixer   *scene.Mixer
	playing []int
}

func (h *Host) NewAnimationDriver() pipeline.AnimationDriver {
	h.mu.Lock()
	defer h.mu.Unlock()
	return &driver{h: h, mixer: scene.NewMixer(h.scene.Group)}
}

// Animate hands d to the render loop. Drivers from another host are
// ignored by the loop but can still be stepped by the caller.
func (h *Host) Animate(d pipeline.AnimationDriver, mode pipeline.SamplingMode, tick float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	own, ok := d.(*driver)
	if !ok || own.h != h {
		h.log.Warn("animation driver not owned by this host")
		return
	}
	h.driver = own
	h.mode = mode
	h.tick = tick
}

func (d *driver) Play(i int) error {
	d.h.mu.Lock()
	defer d.h.mu.Unlock()
	if d.h.asset == nil {
		return fmt.Errorf("host: no asset loaded")
	}
	if i < 0 || i >= len(d.h.asset.Clips) {
		return fmt.Errorf("host: clip %d out of range (%d clips)", i, len(d.h.asset.Clips))
	}
	d.mixer.ClipAction(d.h.asset.Clips[i]).Play()
	if !slices.Contains(d.playing, i) {
		d.playing = append(d.playing, i)
	}
	return nil
}

func (d *driver) Playing() []int {
	d.h.mu.Lock()
	defer d.h.mu.Unlock()
	return slices.Clone(d.playing)
}

func (d *driver) Step(dt float64) {
	d.h.mu.Lock()
	defer d.h.mu.Unlock()
	d.mixer.Update(dt)
}

// Elapsed returns the simulated time the mixer has advanced.
func (d *driver) Elapsed() float64 {
	d.h.mu.Lock()
	defer d.h.mu.Unlock()
	return d.mixer.Elapsed()
}
