// Package thumbnail wires the asset loaders, the rendering host, the
// environment loader and the encoders into one render call per asset.
package thumbnail

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"asset-thumbnailer/internal/asset"
	"asset-thumbnailer/internal/config"
	"asset-thumbnailer/internal/encode"
	"asset-thumbnailer/internal/envmap"
	"asset-thumbnailer/internal/host"
	"asset-thumbnailer/internal/metrics"
	"asset-thumbnailer/internal/pipeline"
)

// Service renders assets according to one resolved config. It is safe for
// concurrent use: every Render gets its own host and pipeline.
type Service struct {
	Loader  asset.Loader
	Env     pipeline.EnvironmentLoader
	Encoder *encode.Assembler
	Options pipeline.Options
	Host    host.Config
	Log     *zap.Logger
	Metrics *metrics.Collector
}

// New builds a service from a resolved config.
func New(cfg *config.Config, log *zap.Logger, m *metrics.Collector) (*Service, error) {
	if log == nil {
		log = zap.NewNop()
	}
	keys, err := cfg.BMDKeys()
	if err != nil {
		return nil, err
	}
	opts, err := cfg.PipelineOptions()
	if err != nil {
		return nil, err
	}
	enc, err := encode.NewAssembler(cfg.OutputFormat, cfg.FrameDelay())
	if err != nil {
		return nil, err
	}
	hc := host.DefaultConfig()
	hc.Supersample = cfg.Supersample

	reg := asset.DefaultRegistry(keys)
	if cfg.BMD.SkipEffects {
		reg.Register(".bmd", asset.BMDLoader{Keys: keys, SkipEffects: true})
	}

	return &Service{
		Loader:  reg,
		Env:     envmap.NewLoader(log),
		Encoder: enc,
		Options: opts,
		Host:    hc,
		Log:     log,
		Metrics: m,
	}, nil
}

// OutputPath returns <dir>/<asset stem><ext>.
func (s *Service) OutputPath(dir, assetPath string) string {
	base := filepath.Base(assetPath)
	return filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base))+s.Encoder.Ext())
}

// Render produces the thumbnail of assetPath at dst.
func (s *Service) Render(ctx context.Context, assetPath, dst string) (pipeline.Artifact, error) {
	if assetPath == "" {
		return pipeline.Artifact{}, pipeline.ErrMissingAsset
	}
	if _, err := os.Stat(assetPath); err != nil {
		return pipeline.Artifact{}, fmt.Errorf("%w: %v", pipeline.ErrMissingAsset, err)
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return pipeline.Artifact{}, fmt.Errorf("thumbnail: create output dir: %w", err)
	}

	h := host.New(s.Host, s.Loader, s.Log)
	h.Start(ctx)
	defer h.Close()

	p := &pipeline.Pipeline{
		Host:    h,
		Env:     s.Env,
		Encoder: s.Encoder,
		Options: s.Options,
		Log:     s.Log,
	}
	if s.Metrics != nil {
		p.Metrics = s.Metrics
	}

	start := time.Now()
	art, err := p.Run(ctx, assetPath, dst)
	s.record(art, err)
	if err != nil {
		return art, err
	}
	s.Log.Info("thumbnail written",
		zap.String("asset", assetPath),
		zap.String("path", art.Path),
		zap.Int("frames", art.Frames),
		zap.Duration("elapsed", time.Since(start)),
	)
	return art, nil
}

// record counts the render. Failed runs are labeled unknown since they may
// stop before animation detection.
func (s *Service) record(art pipeline.Artifact, err error) {
	if s.Metrics == nil {
		return
	}
	kind := metrics.KindStatic
	switch {
	case err != nil:
		kind = metrics.KindUnknown
	case art.Animated:
		kind = metrics.KindAnimated
	}
	s.Metrics.RenderFinished(kind, err)
}
