package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"asset-thumbnailer/internal/bmd"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.Execute()
	return out.String(), err
}

func writePlate(t *testing.T, dir string) string {
	t.Helper()
	m := &bmd.Model{
		Name: "Plate",
		Meshes: []bmd.Mesh{{
			Verts: [][3]float32{{0, 0, 0}, {4, 0, 0}, {4, 2, 0}, {0, 2, 0}},
			Nodes: []int16{0, 0, 0, 0},
			Tris:  []bmd.Triangle{{Polygon: 4, VI: [4]int16{0, 1, 2, 3}}},
		}},
		Actions: []bmd.Action{{NumKeys: 1}},
		Bones: []bmd.Bone{{Name: "root", Parent: -1, Actions: []bmd.BoneKeys{{
			Positions: [][3]float32{{0, 0, 0}},
			Rotations: [][3]float32{{0, 0, 0}},
		}}}},
	}
	path := filepath.Join(dir, "plate.bmd")
	require.NoError(t, os.WriteFile(path, bmd.Encode(m), 0o644))
	return path
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "thumbnail.yaml")

	out, err := run(t, "config", "init", path, "--format", "png", "--sampling", "deterministic")
	require.NoError(t, err)
	assert.Contains(t, out, path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(raw, &doc))
	assert.Equal(t, "png", doc["output_format"])
	assert.Equal(t, "deterministic", doc["sampling"])

	_, err = run(t, "config", "init", path)
	assert.ErrorContains(t, err, "already exists")

	_, err = run(t, "config", "init", path, "--force")
	assert.NoError(t, err)
}

func TestRenderPrintsArtifactPath(t *testing.T) {
	dir := t.TempDir()
	src := writePlate(t, dir)
	dst := filepath.Join(dir, "out", "plate.png")

	out, err := run(t, "render", src, "-o", dst, "--format", "png", "--supersample", "1")
	require.NoError(t, err)
	assert.Equal(t, dst, strings.TrimSpace(out))
	assert.FileExists(t, dst)
}

func TestRenderMissingAsset(t *testing.T) {
	_, err := run(t, "render", filepath.Join(t.TempDir(), "nope.glb"))
	assert.Error(t, err)
}

func TestRejectsBadFlags(t *testing.T) {
	_, err := run(t, "render", "x.glb", "--format", "gif")
	assert.Error(t, err)

	_, err = run(t, "render", "x.glb", "--clip-policy", "named")
	assert.Error(t, err)
}

func TestBatchWritesManifest(t *testing.T) {
	src := t.TempDir()
	writePlate(t, src)
	require.NoError(t, os.WriteFile(filepath.Join(src, "readme.txt"), []byte("skip"), 0o644))
	outDir := t.TempDir()

	out, err := run(t, "batch", src, "--output-dir", outDir, "--format", "png", "--supersample", "1", "--workers", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Rendered: 1/1")
	assert.FileExists(t, filepath.Join(outDir, "plate.png"))
	assert.FileExists(t, filepath.Join(outDir, "manifest.json"))
}

func TestInspect(t *testing.T) {
	dir := t.TempDir()
	src := writePlate(t, dir)
	exportDir := filepath.Join(dir, "plain")

	out, err := run(t, "inspect", src, "--export-bmd", exportDir)
	require.NoError(t, err)
	assert.Contains(t, out, "meshes=1 triangles=2")
	assert.Contains(t, out, "clips: none")
	assert.FileExists(t, filepath.Join(exportDir, "plate.bmd"))

	_, err = run(t, "inspect", filepath.Join(dir, "missing.bmd"))
	assert.Error(t, err)
}
