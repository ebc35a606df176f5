package scene

import (
	"github.com/go-gl/mathgl/mgl64"

	"asset-thumbnailer/internal/mathutil"
)

// ComputeBounds returns the world-space box of every vertex under root,
// honoring rigid skinning. It always computes from scratch.
func ComputeBounds(root *Node) mathutil.Box3 {
	worlds := root.WorldMatrices()
	box := mathutil.EmptyBox()

	root.EachMesh(func(owner *Node, m *Mesh) {
		meshWorld := worlds[owner]
		for vi, p := range m.Positions {
			v := mgl64.Vec3{float64(p[0]), float64(p[1]), float64(p[2])}
			box = box.ExpandByPoint(mgl64.TransformCoordinate(v, VertexMatrix(m, vi, meshWorld, worlds)))
		}
	})
	return box
}

// VertexMatrix returns the matrix taking vertex vi of m to world space.
func VertexMatrix(m *Mesh, vi int, meshWorld mgl64.Mat4, worlds map[*Node]mgl64.Mat4) mgl64.Mat4 {
	if m.Joints == nil || vi >= len(m.Joints) {
		return meshWorld
	}
	j := m.Joints[vi]
	if j < 0 || j >= len(m.Skeleton) || m.Skeleton[j] == nil {
		return meshWorld
	}
	if w, ok := worlds[m.Skeleton[j]]; ok {
		if j < len(m.InverseBind) {
			return w.Mul4(m.InverseBind[j])
		}
		return w
	}
	return meshWorld
}
