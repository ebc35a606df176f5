// Package scene holds the in-memory scene graph shared by asset loaders,
// the software renderer and the capture pipeline.
package scene

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Node is one transform in the scene hierarchy.
type Node struct {
	Name        string
	Translation mgl64.Vec3
	Rotation    mgl64.Quat
	Scale       mgl64.Vec3

	// Matrix overrides TRS when set (static glTF nodes with an explicit matrix).
	Matrix *mgl64.Mat4

	Meshes   []*Mesh
	Children []*Node
	Parent   *Node
}

// NewNode returns a node with an identity transform.
func NewNode(name string) *Node {
	return &Node{
		Name:     name,
		Rotation: mgl64.QuatIdent(),
		Scale:    mgl64.Vec3{1, 1, 1},
	}
}

// Add attaches child under n.
func (n *Node) Add(child *Node) {
	child.Parent = n
	n.Children = append(n.Children, child)
}

// LocalMatrix returns T * R * S (or the explicit matrix).
func (n *Node) LocalMatrix() mgl64.Mat4 {
	if n.Matrix != nil {
		return *n.Matrix
	}
	t := mgl64.Translate3D(n.Translation[0], n.Translation[1], n.Translation[2])
	r := n.Rotation.Normalize().Mat4()
	s := mgl64.Scale3D(n.Scale[0], n.Scale[1], n.Scale[2])
	return t.Mul4(r).Mul4(s)
}

// Walk visits n and all descendants depth-first with their world matrices.
// parent is the world matrix of n's parent (identity for a root).
func (n *Node) Walk(parent mgl64.Mat4, fn func(node *Node, world mgl64.Mat4)) {
	world := parent.Mul4(n.LocalMatrix())
	fn(n, world)
	for _, c := range n.Children {
		c.Walk(world, fn)
	}
}

// WorldMatrices returns the world matrix of every node under n.
func (n *Node) WorldMatrices() map[*Node]mgl64.Mat4 {
	out := make(map[*Node]mgl64.Mat4)
	n.Walk(mgl64.Ident4(), func(node *Node, world mgl64.Mat4) {
		out[node] = world
	})
	return out
}

// Find returns the first node named name under n, or nil.
func (n *Node) Find(name string) *Node {
	if n.Name == name {
		return n
	}
	for _, c := range n.Children {
		if f := c.Find(name); f != nil {
			return f
		}
	}
	return nil
}

// Contains reports whether target is n or one of its descendants.
func (n *Node) Contains(target *Node) bool {
	for p := target; p != nil; p = p.Parent {
		if p == n {
			return true
		}
	}
	return false
}

// EachMesh calls fn for every mesh under n.
func (n *Node) EachMesh(fn func(owner *Node, m *Mesh)) {
	n.Walk(mgl64.Ident4(), func(node *Node, _ mgl64.Mat4) {
		for _, m := range node.Meshes {
			fn(node, m)
		}
	})
}
