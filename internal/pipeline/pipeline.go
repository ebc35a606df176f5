// Package pipeline frames a loaded 3D asset on a fixed square canvas and
// captures it as a still image or a fixed-length animated sequence.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"asset-thumbnailer/internal/encode"
	"asset-thumbnailer/internal/scene"
)

// DefaultReadinessTimeout bounds the wait for scene setup.
const DefaultReadinessTimeout = 5 * time.Second

// Options tunes a run. The zero value is not usable; start from DefaultOptions.
type Options struct {
	Canvas           int
	FrameCount       int
	Tick             float64
	ReadinessTimeout time.Duration
	Framing          Framing
	Sampling         SamplingMode
	Clips            ClipPolicy
	EnvMapURL        string
	// TransientDir holds per-frame slots; empty means os.TempDir.
	TransientDir string
}

// DefaultOptions returns the fixed canvas, frame count and tick.
func DefaultOptions() Options {
	return Options{
		Canvas:           CanvasSize,
		FrameCount:       FrameCount,
		Tick:             Tick,
		ReadinessTimeout: DefaultReadinessTimeout,
	}
}

// EnvironmentLoader fetches an HDR environment map.
type EnvironmentLoader interface {
	Load(ctx context.Context, uri string) (*scene.Environment, error)
}

// Encoder writes both kinds of artifact.
type Encoder interface {
	StillEncoder
	SequenceEncoder
}

// Pipeline runs one asset through setup, readiness and capture.
type Pipeline struct {
	Host    Host
	Env     EnvironmentLoader
	Encoder Encoder
	Options Options
	Log     *zap.Logger
	Metrics Recorder
}

// Run renders assetPath into dst. All errors are fatal and leave no artifact.
func (p *Pipeline) Run(ctx context.Context, assetPath, dst string) (Artifact, error) {
	if assetPath == "" {
		return Artifact{}, ErrMissingAsset
	}
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.String("asset", assetPath))
	opts := p.Options

	p.setupLighting(ctx, log)

	gate := NewReadyGate()
	setupCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	failed := make(chan error, 1)
	var handle SceneHandle
	start := time.Now()
	go func() {
		h, err := p.setup(setupCtx, assetPath)
		if err != nil {
			failed <- err
			return
		}
		handle = h
		gate.Fire()
	}()

	if err := gate.Wait(ctx, opts.ReadinessTimeout, failed); err != nil {
		return Artifact{}, err
	}
	log.Debug("scene ready", zap.Duration("elapsed", time.Since(start)))

	anim, err := DetectAnimation(p.Host, handle, opts.Clips)
	if err != nil {
		return Artifact{}, err
	}
	if anim.Present {
		log.Info("animation detected",
			zap.Strings("clips", clipNames(handle, anim.Driver.Playing())),
			zap.Stringer("policy", opts.Clips),
			zap.Stringer("sampling", opts.Sampling),
		)
	}

	orch := &Orchestrator{
		Host:     p.Host,
		Still:    p.Encoder,
		Sequence: p.Encoder,
		NewSequence: func() (*encode.FrameSequence, error) {
			return encode.NewFrameSequence(opts.TransientDir)
		},
		Canvas:     opts.Canvas,
		FrameCount: opts.FrameCount,
		Tick:       opts.Tick,
		Sampling:   opts.Sampling,
		Log:        log,
		Metrics:    p.Metrics,
	}
	return orch.Run(ctx, anim, dst)
}

func (p *Pipeline) setupLighting(ctx context.Context, log *zap.Logger) {
	url := p.Options.EnvMapURL
	if url == "" || p.Env == nil {
		p.Host.AddDefaultLights()
		return
	}
	env, err := p.Env.Load(ctx, url)
	if err != nil {
		log.Warn("environment map unavailable, using default lights", zap.String("url", url), zap.Error(err))
		p.Host.AddDefaultLights()
		return
	}
	p.Host.SetEnvironment(env)
}

// setup loads the asset, normalizes it and places the camera. Nothing
// changes the geometry afterwards.
func (p *Pipeline) setup(ctx context.Context, assetPath string) (SceneHandle, error) {
	handle, err := p.Host.Load(ctx, assetPath)
	if err != nil {
		return SceneHandle{}, fmt.Errorf("pipeline: load %s: %w", assetPath, err)
	}
	norm, err := ApplyNormalization(p.Host, p.Options.Canvas, p.Options.Framing)
	if err != nil {
		return SceneHandle{}, err
	}
	p.Host.SetCamera(PlaceCamera(norm.MaxDimension, p.Options.Canvas))
	p.Host.PrepareMaterials()
	return handle, nil
}

func clipNames(handle SceneHandle, idx []int) []string {
	names := make([]string, 0, len(idx))
	for _, i := range idx {
		if i >= 0 && i < len(handle.Clips) {
			names = append(names, handle.Clips[i])
		}
	}
	return names
}

// ApplyNormalization measures the group under an identity transform, fits
// it into the canvas, then measures again to apply the Y correction.
func ApplyNormalization(h Host, canvas int, framing Framing) (Normalization, error) {
	h.SetTransform(Identity)
	raw := h.ComputeBoundingBox()
	n, err := Normalize(raw, canvas, framing)
	if err != nil {
		return Normalization{}, err
	}
	h.SetTransform(n.Transform)
	scaled := h.ComputeBoundingBox()
	n.Translation[1] += YCorrection(raw, scaled, n.Scale)
	h.SetTransform(n.Transform)
	return n, nil
}
