package pipeline

import (
	"context"
	"image"
	"time"

	"go.uber.org/zap"

	"asset-thumbnailer/internal/encode"
)

// Capture defaults.
const (
	FrameCount = 30
	Tick       = 0.016
)

// StillEncoder writes a single captured frame as the artifact.
type StillEncoder interface {
	WriteStill(ctx context.Context, img image.Image, dst string) (encode.Result, error)
}

// SequenceEncoder merges a frame sequence into one animated artifact and
// takes ownership of its transient frames.
type SequenceEncoder interface {
	Assemble(ctx context.Context, seq *encode.FrameSequence, dst string) (encode.Result, error)
}

// Recorder receives capture measurements. A nil Recorder is allowed.
type Recorder interface {
	FrameCaptured(d time.Duration)
	TransientFrames(n int)
	CleanupFailed(n int)
}

// Artifact is the terminal output of a run.
type Artifact struct {
	Path     string
	Frames   int
	Animated bool
	Bytes    int64
}

// Orchestrator captures the static frame or the animated sequence once the
// scene is ready.
type Orchestrator struct {
	Host     Host
	Still    StillEncoder
	Sequence SequenceEncoder
	// NewSequence creates transient frame storage; only the animated
	// branch calls it.
	NewSequence func() (*encode.FrameSequence, error)

	Canvas     int
	FrameCount int
	Tick       float64
	Sampling   SamplingMode

	Log     *zap.Logger
	Metrics Recorder
}

func (o *Orchestrator) canvasRect() image.Rectangle {
	return image.Rect(0, 0, o.Canvas, o.Canvas)
}

// Run takes the static branch when anim is absent, otherwise the animated one.
func (o *Orchestrator) Run(ctx context.Context, anim AnimationState, dst string) (Artifact, error) {
	if !anim.Present {
		return o.captureStatic(ctx, dst)
	}
	return o.captureAnimated(ctx, anim, dst)
}

func (o *Orchestrator) captureStatic(ctx context.Context, dst string) (Artifact, error) {
	img, err := o.capture(ctx, 0)
	if err != nil {
		return Artifact{}, err
	}
	res, err := o.Still.WriteStill(ctx, img, dst)
	if err != nil {
		return Artifact{}, &EncodeError{Path: dst, Err: err}
	}
	o.log().Info("still image saved", zap.String("path", res.Path), zap.Int64("bytes", res.Bytes))
	return Artifact{Path: res.Path, Frames: 1, Bytes: res.Bytes}, nil
}

func (o *Orchestrator) captureAnimated(ctx context.Context, anim AnimationState, dst string) (Artifact, error) {
	o.Host.Animate(anim.Driver, o.Sampling, o.Tick)

	seq, err := o.NewSequence()
	if err != nil {
		return Artifact{}, &CaptureError{Frame: 0, Err: err}
	}

	for i := 0; i < o.FrameCount; i++ {
		// Deterministic frame i shows (i+1)*Tick.
		if o.Sampling == SamplingDeterministic {
			anim.Driver.Step(o.Tick)
		}
		img, err := o.capture(ctx, i)
		if err == nil {
			_, err = seq.Append(img)
			if err != nil {
				err = &CaptureError{Frame: i, Err: err}
			}
		}
		if err != nil {
			o.cleanup(seq)
			return Artifact{}, err
		}
		o.record(func(r Recorder) { r.TransientFrames(seq.Len()) })
		o.log().Debug("frame captured", zap.Int("frame", i))
	}

	n := seq.Len()
	res, err := o.Sequence.Assemble(ctx, seq, dst)
	o.reportCleanup(res.CleanupWarnings)
	o.log().Debug("transient frames deleted", zap.Int("frames", n-len(res.CleanupWarnings)))
	o.record(func(r Recorder) { r.TransientFrames(0) })
	if err != nil {
		return Artifact{}, &EncodeError{Path: dst, Err: err}
	}
	o.log().Info("animated image saved",
		zap.String("path", res.Path),
		zap.Int("frames", res.Frames),
		zap.Int64("bytes", res.Bytes),
	)
	return Artifact{Path: res.Path, Frames: res.Frames, Animated: true, Bytes: res.Bytes}, nil
}

func (o *Orchestrator) capture(ctx context.Context, frame int) (image.Image, error) {
	start := time.Now()
	img, err := o.Host.Capture(ctx, o.canvasRect())
	if err != nil {
		return nil, &CaptureError{Frame: frame, Err: err}
	}
	o.record(func(r Recorder) { r.FrameCaptured(time.Since(start)) })
	return img, nil
}

// cleanup discards a partial sequence after a failed capture.
func (o *Orchestrator) cleanup(seq *encode.FrameSequence) {
	n := seq.Len()
	o.reportCleanup(seq.Cleanup())
	o.record(func(r Recorder) { r.TransientFrames(0) })
	o.log().Debug("partial frame sequence discarded", zap.Int("frames", n))
}

func (o *Orchestrator) reportCleanup(warns []*CleanupWarning) {
	for _, w := range warns {
		o.log().Warn("transient frame cleanup failed", zap.String("slot", w.Slot), zap.Error(w.Err))
	}
	if len(warns) > 0 {
		o.record(func(r Recorder) { r.CleanupFailed(len(warns)) })
	}
}

func (o *Orchestrator) log() *zap.Logger {
	if o.Log == nil {
		return zap.NewNop()
	}
	return o.Log
}

func (o *Orchestrator) record(fn func(Recorder)) {
	if o.Metrics != nil {
		fn(o.Metrics)
	}
}
