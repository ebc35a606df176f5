package asset

import (
	"context"
	"fmt"
	"image"
	"net/url"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"asset-thumbnailer/internal/scene"
	"asset-thumbnailer/internal/texture"
)

// GLTFLoader reads glTF 2.0 (.gltf with external or embedded buffers) and
// binary .glb files. Only triangle primitives are kept; skinned vertices
// follow their most weighted joint.
type GLTFLoader struct{}

func (GLTFLoader) Load(ctx context.Context, path string) (*Asset, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("asset: open %s: %w", path, err)
	}
	b := &gltfBuilder{
		doc:       doc,
		dir:       filepath.Dir(path),
		nodes:     make([]*scene.Node, len(doc.Nodes)),
		materials: make(map[int]*scene.Material),
		textures:  make(map[int]*image.NRGBA),
	}

	root := scene.NewNode(stem(path))
	for i, n := range doc.Nodes {
		b.nodes[i] = gltfNode(n, i)
	}
	for i, n := range doc.Nodes {
		for _, c := range n.Children {
			if c >= 0 && c < len(b.nodes) && b.nodes[c].Parent == nil && c != i {
				b.nodes[i].Add(b.nodes[c])
			}
		}
	}
	b.attachRoots(root)

	for i, n := range doc.Nodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if n.Mesh == nil {
			continue
		}
		meshes, err := b.meshes(n)
		if err != nil {
			return nil, fmt.Errorf("asset: %s node %d: %w", path, i, err)
		}
		b.nodes[i].Meshes = meshes
	}

	clips, err := b.clips()
	if err != nil {
		return nil, fmt.Errorf("asset: %s: %w", path, err)
	}
	return &Asset{Name: root.Name, Root: root, Clips: clips}, nil
}

type gltfBuilder struct {
	doc       *gltf.Document
	dir       string
	nodes     []*scene.Node
	materials map[int]*scene.Material
	textures  map[int]*image.NRGBA
}

func gltfNode(n *gltf.Node, i int) *scene.Node {
	name := n.Name
	if name == "" {
		name = fmt.Sprintf("node-%d", i)
	}
	sn := scene.NewNode(name)
	if m := mgl64.Mat4(n.MatrixOrDefault()); m != mgl64.Ident4() {
		sn.Matrix = &m
		return sn
	}
	t := n.TranslationOrDefault()
	r := n.RotationOrDefault()
	s := n.ScaleOrDefault()
	sn.Translation = mgl64.Vec3{t[0], t[1], t[2]}
	sn.Rotation = mgl64.Quat{W: r[3], V: mgl64.Vec3{r[0], r[1], r[2]}}
	sn.Scale = mgl64.Vec3{s[0], s[1], s[2]}
	return sn
}

// attachRoots hangs the default scene's root nodes under root, or every
// parentless node when the file declares no scene.
func (b *gltfBuilder) attachRoots(root *scene.Node) {
	doc := b.doc
	idx := 0
	if doc.Scene != nil {
		idx = int(*doc.Scene)
	}
	if idx >= 0 && idx < len(doc.Scenes) {
		for _, ni := range doc.Scenes[idx].Nodes {
			if ni >= 0 && ni < len(b.nodes) && b.nodes[ni].Parent == nil {
				root.Add(b.nodes[ni])
			}
		}
		return
	}
	for _, n := range b.nodes {
		if n.Parent == nil {
			root.Add(n)
		}
	}
}

func (b *gltfBuilder) accessor(i int) (*gltf.Accessor, error) {
	if i < 0 || i >= len(b.doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range", i)
	}
	return b.doc.Accessors[i], nil
}

func (b *gltfBuilder) meshes(n *gltf.Node) ([]*scene.Mesh, error) {
	mi := int(*n.Mesh)
	if mi < 0 || mi >= len(b.doc.Meshes) {
		return nil, fmt.Errorf("mesh %d out of range", mi)
	}
	src := b.doc.Meshes[mi]

	var skel []*scene.Node
	var ibm []mgl64.Mat4
	if n.Skin != nil && int(*n.Skin) < len(b.doc.Skins) {
		var err error
		if skel, ibm, err = b.skin(b.doc.Skins[int(*n.Skin)]); err != nil {
			return nil, err
		}
	}

	var out []*scene.Mesh
	for pi, p := range src.Primitives {
		if p.Mode != gltf.PrimitiveTriangles {
			continue
		}
		posIdx, ok := p.Attributes["POSITION"]
		if !ok {
			continue
		}
		acc, err := b.accessor(int(posIdx))
		if err != nil {
			return nil, err
		}
		m := &scene.Mesh{Name: fmt.Sprintf("%s-%d", src.Name, pi)}
		if m.Positions, err = modeler.ReadPosition(b.doc, acc, nil); err != nil {
			return nil, fmt.Errorf("read positions: %w", err)
		}

		if p.Indices != nil {
			acc, err := b.accessor(int(*p.Indices))
			if err != nil {
				return nil, err
			}
			if m.Indices, err = modeler.ReadIndices(b.doc, acc, nil); err != nil {
				return nil, fmt.Errorf("read indices: %w", err)
			}
		} else {
			m.Indices = make([]uint32, len(m.Positions))
			for i := range m.Indices {
				m.Indices[i] = uint32(i)
			}
		}

		if uvIdx, ok := p.Attributes["TEXCOORD_0"]; ok {
			acc, err := b.accessor(int(uvIdx))
			if err != nil {
				return nil, err
			}
			if m.UVs, err = modeler.ReadTextureCoord(b.doc, acc, nil); err != nil {
				return nil, fmt.Errorf("read uvs: %w", err)
			}
		}

		if skel != nil {
			if err := b.bindJoints(m, p); err != nil {
				return nil, err
			}
			m.Skeleton = skel
			m.InverseBind = ibm
		}

		m.Material = b.material(p.Material)
		out = append(out, m)
	}
	return out, nil
}

func (b *gltfBuilder) skin(s *gltf.Skin) ([]*scene.Node, []mgl64.Mat4, error) {
	skel := make([]*scene.Node, len(s.Joints))
	for i, j := range s.Joints {
		if int(j) >= 0 && int(j) < len(b.nodes) {
			skel[i] = b.nodes[j]
		}
	}
	ibm := make([]mgl64.Mat4, len(s.Joints))
	for i := range ibm {
		ibm[i] = mgl64.Ident4()
	}
	if s.InverseBindMatrices == nil {
		return skel, ibm, nil
	}
	acc, err := b.accessor(int(*s.InverseBindMatrices))
	if err != nil {
		return nil, nil, err
	}
	data, err := modeler.ReadAccessor(b.doc, acc, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("read inverse bind matrices: %w", err)
	}
	mats, ok := data.([][4][4]float32)
	if !ok {
		return nil, nil, fmt.Errorf("inverse bind matrices have type %T", data)
	}
	for i := 0; i < len(mats) && i < len(ibm); i++ {
		for c := 0; c < 4; c++ {
			for r := 0; r < 4; r++ {
				ibm[i][c*4+r] = float64(mats[i][c][r])
			}
		}
	}
	return skel, ibm, nil
}

// bindJoints assigns each vertex to its most weighted joint.
func (b *gltfBuilder) bindJoints(m *scene.Mesh, p *gltf.Primitive) error {
	jIdx, ok := p.Attributes["JOINTS_0"]
	if !ok {
		return nil
	}
	acc, err := b.accessor(int(jIdx))
	if err != nil {
		return err
	}
	joints, err := modeler.ReadJoints(b.doc, acc, nil)
	if err != nil {
		return fmt.Errorf("read joints: %w", err)
	}
	var weights [][4]float32
	if wIdx, ok := p.Attributes["WEIGHTS_0"]; ok {
		acc, err := b.accessor(int(wIdx))
		if err != nil {
			return err
		}
		if weights, err = modeler.ReadWeights(b.doc, acc, nil); err != nil {
			return fmt.Errorf("read weights: %w", err)
		}
	}

	m.Joints = make([]int, len(m.Positions))
	for v := range m.Joints {
		m.Joints[v] = -1
		if v >= len(joints) {
			continue
		}
		best := 0
		if v < len(weights) {
			for k := 1; k < 4; k++ {
				if weights[v][k] > weights[v][best] {
					best = k
				}
			}
		}
		m.Joints[v] = int(joints[v][best])
	}
	return nil
}

func (b *gltfBuilder) material(idx *int) *scene.Material {
	if idx == nil || int(*idx) < 0 || int(*idx) >= len(b.doc.Materials) {
		return scene.NewMaterial("default")
	}
	i := int(*idx)
	if m, ok := b.materials[i]; ok {
		return m
	}
	src := b.doc.Materials[i]
	m := scene.NewMaterial(src.Name)
	m.DoubleSided = src.DoubleSided
	if pbr := src.PBRMetallicRoughness; pbr != nil {
		m.BaseColor = pbr.BaseColorFactorOrDefault()
		if pbr.BaseColorTexture != nil {
			m.Texture = b.texture(int(pbr.BaseColorTexture.Index))
		}
	}
	b.materials[i] = m
	return m
}

// texture decodes a texture's image. Missing or undecodable images leave
// the material untextured.
func (b *gltfBuilder) texture(i int) *image.NRGBA {
	if img, ok := b.textures[i]; ok {
		return img
	}
	img := b.decodeTexture(i)
	b.textures[i] = img
	return img
}

func (b *gltfBuilder) decodeTexture(i int) *image.NRGBA {
	doc := b.doc
	if i < 0 || i >= len(doc.Textures) || doc.Textures[i].Source == nil {
		return nil
	}
	si := int(*doc.Textures[i].Source)
	if si < 0 || si >= len(doc.Images) {
		return nil
	}
	src := doc.Images[si]

	var data []byte
	var err error
	switch {
	case src.BufferView != nil && int(*src.BufferView) < len(doc.BufferViews):
		data, err = modeler.ReadBufferView(doc, doc.BufferViews[int(*src.BufferView)])
	case src.IsEmbeddedResource():
		data, err = src.MarshalData()
	case src.URI != "":
		name, uerr := url.PathUnescape(src.URI)
		if uerr != nil {
			name = src.URI
		}
		data, err = os.ReadFile(filepath.Join(b.dir, filepath.FromSlash(name)))
	default:
		return nil
	}
	if err != nil {
		return nil
	}
	img, err := texture.Decode(data, filepath.Ext(src.URI))
	if err != nil {
		return nil
	}
	return texture.ToNRGBA(img)
}
