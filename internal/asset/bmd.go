package asset

import (
	"context"
	"fmt"
	"path/filepath"

	"asset-thumbnailer/internal/bmd"
	"asset-thumbnailer/internal/filter"
	"asset-thumbnailer/internal/mathutil"
	"asset-thumbnailer/internal/scene"
	"asset-thumbnailer/internal/skeleton"
	"asset-thumbnailer/internal/texture"
)

// BMDLoader reads legacy BMD models. Textures are looked up next to the
// model and in its texture/ subdirectory.
type BMDLoader struct {
	Keys bmd.Keys
	// SkipEffects drops glow and sprite overlays so they do not count toward
	// the bounding box. A model made only of such meshes is kept whole.
	SkipEffects bool
}

func (l BMDLoader) Load(ctx context.Context, path string) (*Asset, error) {
	model, err := bmd.Parse(path, l.Keys)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	root := scene.NewNode(stem(path))
	// BMD is Z-up
	root.Rotation = mathutil.ZUpToYUp

	rig := skeleton.BuildRig(model.Bones, root)
	textures := texture.NewCache(texture.BuildIndex(filepath.Dir(path)))

	skip := l.effectMeshes(model)
	for i := range model.Meshes {
		if skip[i] {
			continue
		}
		m := convertBMDMesh(&model.Meshes[i], rig, textures)
		if len(m.Indices) == 0 {
			continue
		}
		m.Name = fmt.Sprintf("%s-mesh-%02d", root.Name, i)
		root.Meshes = append(root.Meshes, m)
	}

	return &Asset{Name: root.Name, Root: root, Clips: rig.Clips(model)}, nil
}

func (l BMDLoader) effectMeshes(model *bmd.Model) map[int]bool {
	if !l.SkipEffects {
		return nil
	}
	skip := make(map[int]bool)
	for i := range model.Meshes {
		if filter.IsEffectMesh(&model.Meshes[i]) {
			skip[i] = true
		}
	}
	if len(skip) == len(model.Meshes) {
		return nil
	}
	return skip
}

// convertBMDMesh unrolls BMD triangles, whose corners index positions and
// texture coordinates separately, into a plain indexed triangle list.
func convertBMDMesh(src *bmd.Mesh, rig *skeleton.Rig, textures texture.Resolver) *scene.Mesh {
	m := &scene.Mesh{Skeleton: rig.Bones}
	corner := func(vi, ti int16) bool {
		if int(vi) < 0 || int(vi) >= len(src.Verts) {
			return false
		}
		m.Positions = append(m.Positions, src.Verts[vi])
		var uv [2]float32
		if int(ti) >= 0 && int(ti) < len(src.UVs) {
			uv = src.UVs[ti]
		}
		m.UVs = append(m.UVs, uv)
		joint := -1
		if int(vi) < len(src.Nodes) {
			joint = int(src.Nodes[vi])
		}
		m.Joints = append(m.Joints, joint)
		return true
	}

	emit := func(t *bmd.Triangle, a, b, c int) {
		base := uint32(len(m.Positions))
		for _, k := range [3]int{a, b, c} {
			if !corner(t.VI[k], t.TI[k]) {
				// Drop the partial triangle
				m.Positions = m.Positions[:base]
				m.UVs = m.UVs[:base]
				m.Joints = m.Joints[:base]
				return
			}
		}
		m.Indices = append(m.Indices, base, base+1, base+2)
	}

	for i := range src.Tris {
		t := &src.Tris[i]
		emit(t, 0, 1, 2)
		if t.Polygon == 4 {
			emit(t, 0, 2, 3)
		}
	}

	mat := scene.NewMaterial(src.TexPath)
	if src.TexPath != "" && textures != nil {
		mat.Texture = textures.Resolve(src.TexPath)
	}
	m.Material = mat
	return m
}
