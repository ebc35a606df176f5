package batch

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"asset-thumbnailer/internal/pipeline"
)

type fakeRenderer struct {
	mu       sync.Mutex
	rendered map[string]string
	active   atomic.Int32
	peak     atomic.Int32
	delay    time.Duration
}

func (f *fakeRenderer) OutputPath(dir, assetPath string) string {
	base := filepath.Base(assetPath)
	return filepath.Join(dir, strings.TrimSuffix(base, filepath.Ext(base))+".webp")
}

func (f *fakeRenderer) Render(ctx context.Context, assetPath, dst string) (pipeline.Artifact, error) {
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(f.delay)

	f.mu.Lock()
	if f.rendered == nil {
		f.rendered = make(map[string]string)
	}
	f.rendered[assetPath] = dst
	f.mu.Unlock()

	switch {
	case strings.Contains(assetPath, "flat"):
		return pipeline.Artifact{}, &pipeline.PreconditionError{Reason: "zero extent"}
	case strings.Contains(assetPath, "walk"):
		return pipeline.Artifact{Path: dst, Frames: 30, Animated: true}, nil
	}
	return pipeline.Artifact{Path: dst, Frames: 1}, nil
}

func TestRunProcessesAllInOrder(t *testing.T) {
	r := &fakeRenderer{delay: 5 * time.Millisecond}
	assets := []string{"/src/a.glb", "/src/chars/walk.glb", "/src/flat.bmd", "/src/d.glb"}
	results := Run(context.Background(), Config{
		SourceDir: "/src",
		OutputDir: "/out",
		Workers:   2,
		Renderer:  r,
	}, assets)

	require.Len(t, results, 4)
	for i, res := range results {
		assert.Equal(t, assets[i], res.Asset)
	}
	assert.True(t, results[0].Success)
	assert.Equal(t, filepath.Join("/out", "a.webp"), results[0].Output)
	assert.Equal(t, filepath.Join("/out", "chars", "walk.webp"), results[1].Output)
	assert.True(t, results[1].Animated)
	assert.Equal(t, 30, results[1].Frames)
	assert.False(t, results[2].Success)
	assert.True(t, strings.HasPrefix(results[2].Error, "precondition: "))

	assert.LessOrEqual(t, r.peak.Load(), int32(2))
}

func TestRunSeparatesSameStemAssets(t *testing.T) {
	r := &fakeRenderer{}
	assets := []string{"/src/a.bmd", "/src/a.glb", "/src/b.glb", "/src/sub/a.glb"}
	results := Run(context.Background(), Config{
		SourceDir: "/src",
		OutputDir: "/out",
		Workers:   2,
		Renderer:  r,
	}, assets)

	require.Len(t, results, 4)
	assert.Equal(t, filepath.Join("/out", "a-bmd.webp"), results[0].Output)
	assert.Equal(t, filepath.Join("/out", "a-glb.webp"), results[1].Output)
	assert.Equal(t, filepath.Join("/out", "b.webp"), results[2].Output)
	assert.Equal(t, filepath.Join("/out", "sub", "a.webp"), results[3].Output)

	seen := map[string]bool{}
	for _, res := range results {
		assert.True(t, res.Success)
		assert.False(t, seen[res.Output], res.Output)
		seen[res.Output] = true
		assert.Equal(t, res.Output, r.rendered[res.Asset])
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results := Run(ctx, Config{OutputDir: t.TempDir(), Workers: 1, Renderer: &fakeRenderer{}}, []string{"a.glb", "b.glb"})
	for _, res := range results {
		assert.False(t, res.Success)
		assert.Equal(t, context.Canceled.Error(), res.Error)
	}
}

func TestDiscover(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.glb", "a.bmd", "sub/c.gltf", "notes.txt"} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, nil, 0o644))
	}
	got, err := Discover(dir, func(p string) bool { return filepath.Ext(p) != ".txt" })
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "a.bmd"),
		filepath.Join(dir, "b.glb"),
		filepath.Join(dir, "sub", "c.gltf"),
	}, got)

	_, err = Discover(filepath.Join(dir, "missing"), func(string) bool { return true })
	assert.Error(t, err)
}

func TestManifest(t *testing.T) {
	out := t.TempDir()
	m := BuildManifest(out, []Result{
		{Asset: "a.glb", Output: filepath.Join(out, "x", "a.webp"), Success: true, Frames: 1, Elapsed: 1500 * time.Millisecond},
		{Asset: "b.glb", Error: describe(&pipeline.ReadinessTimeoutError{After: time.Second})},
		{Asset: "c.glb", Error: describe(&pipeline.CaptureError{Frame: 3, Err: errors.New("lost")})},
	})
	assert.Equal(t, 3, m.Total)
	assert.Equal(t, 2, m.Failed)
	assert.Equal(t, "x/a.webp", m.Entries[0].Image)
	assert.Equal(t, int64(1500), m.Entries[0].Millis)
	assert.True(t, strings.HasPrefix(m.Entries[1].Error, "timeout: "))
	assert.True(t, strings.HasPrefix(m.Entries[2].Error, "capture: "))

	path := filepath.Join(out, "manifest.json")
	require.NoError(t, WriteManifest(path, m))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var back Manifest
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, m, back)
}
