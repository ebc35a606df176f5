// Package batch renders many assets with a worker pool. Every asset gets
// its own host and pipeline; workers share only the renderer settings.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"asset-thumbnailer/internal/pipeline"
)

// Renderer produces one thumbnail.
type Renderer interface {
	Render(ctx context.Context, assetPath, dst string) (pipeline.Artifact, error)
	OutputPath(dir, assetPath string) string
}

// Config holds the shared settings of a batch run.
type Config struct {
	// SourceDir is the root the asset paths are relative to; output keeps
	// the same directory layout under OutputDir.
	SourceDir string
	OutputDir string
	Workers   int
	Renderer  Renderer
	Log       *zap.Logger
	// ProgressInterval between progress log lines; zero disables them.
	ProgressInterval time.Duration
}

// Result holds the outcome of one asset.
type Result struct {
	Asset    string
	Output   string
	Animated bool
	Frames   int
	Success  bool
	Error    string
	Elapsed  time.Duration
}

// Discover lists every file under dir that supports accepts, sorted.
func Discover(dir string, supports func(path string) bool) ([]string, error) {
	var out []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && supports(path) {
			out = append(out, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("batch: scan %s: %w", dir, err)
	}
	sort.Strings(out)
	return out, nil
}

// Run renders all assets and returns one result per asset in input order.
// Cancelling ctx stops handing out new assets; results of skipped assets
// carry the context error.
func Run(ctx context.Context, cfg Config, assets []string) []Result {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	workers := max(1, cfg.Workers)
	total := len(assets)
	results := make([]Result, total)
	outputs := OutputPaths(cfg, assets)
	var processed, failed atomic.Int64

	start := time.Now()

	// Progress reporter
	done := make(chan struct{})
	if cfg.ProgressInterval > 0 {
		go func() {
			ticker := time.NewTicker(cfg.ProgressInterval)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					if p := processed.Load(); p > 0 {
						log.Info("batch progress",
							zap.Int64("done", p),
							zap.Int("total", total),
							zap.Int64("failed", failed.Load()),
							zap.Float64("assets_per_sec", float64(p)/time.Since(start).Seconds()),
						)
					}
				}
			}
		}()
	}

	// Worker pool
	work := make(chan int, workers*2)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range work {
				results[idx] = processAsset(ctx, cfg, assets[idx], outputs[idx])
				if !results[idx].Success {
					failed.Add(1)
					log.Warn("asset failed", zap.String("asset", assets[idx]), zap.String("error", results[idx].Error))
				}
				processed.Add(1)
			}
		}()
	}

	// Send work
	next := 0
send:
	for ; next < total; next++ {
		select {
		case <-ctx.Done():
			break send
		case work <- next:
		}
	}
	close(work)
	wg.Wait()
	close(done)

	for i := next; i < total; i++ {
		results[i] = Result{Asset: assets[i], Output: outputs[i], Error: ctx.Err().Error()}
	}

	log.Info("batch finished",
		zap.Int("total", total),
		zap.Int64("failed", failed.Load()+int64(total-next)),
		zap.Duration("elapsed", time.Since(start)),
	)
	return results
}

// OutputPaths maps each asset to its thumbnail path, mirroring the source
// layout under cfg.OutputDir. Assets that would share a path, such as a.glb
// and a.bmd in one directory, keep their source extension in the name
// (a-glb.webp, a-bmd.webp).
func OutputPaths(cfg Config, assets []string) []string {
	out := make([]string, len(assets))
	seen := make(map[string]int, len(assets))
	for i, a := range assets {
		out[i] = cfg.Renderer.OutputPath(outputDir(cfg, a), a)
		seen[out[i]]++
	}
	for i, a := range assets {
		if seen[out[i]] < 2 {
			continue
		}
		ext := filepath.Ext(out[i])
		src := strings.ToLower(strings.TrimPrefix(filepath.Ext(a), "."))
		out[i] = strings.TrimSuffix(out[i], ext) + "-" + src + ext
	}
	return out
}

func outputDir(cfg Config, assetPath string) string {
	if cfg.SourceDir == "" {
		return cfg.OutputDir
	}
	rel, err := filepath.Rel(cfg.SourceDir, filepath.Dir(assetPath))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return cfg.OutputDir
	}
	return filepath.Join(cfg.OutputDir, rel)
}

func processAsset(ctx context.Context, cfg Config, assetPath, output string) Result {
	res := Result{Asset: assetPath, Output: output}
	if err := ctx.Err(); err != nil {
		res.Error = err.Error()
		return res
	}

	start := time.Now()
	art, err := cfg.Renderer.Render(ctx, assetPath, res.Output)
	res.Elapsed = time.Since(start)
	if err != nil {
		res.Error = describe(err)
		return res
	}
	res.Success = true
	res.Animated = art.Animated
	res.Frames = art.Frames
	return res
}

// describe prefixes the error class so the manifest can be grepped.
func describe(err error) string {
	var (
		pre *pipeline.PreconditionError
		to  *pipeline.ReadinessTimeoutError
		ce  *pipeline.CaptureError
		ee  *pipeline.EncodeError
	)
	switch {
	case errors.As(err, &pre):
		return "precondition: " + err.Error()
	case errors.As(err, &to):
		return "timeout: " + err.Error()
	case errors.As(err, &ce):
		return "capture: " + err.Error()
	case errors.As(err, &ee):
		return "encode: " + err.Error()
	}
	return err.Error()
}
