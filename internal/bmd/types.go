package bmd

// Triangle holds polygon type and index triples into vertex/normal/texcoord arrays.
// Polygon == 4 means quad (two triangles: 0-1-2 and 0-2-3).
type Triangle struct {
	Polygon int
	VI      [4]int16
	NI      [4]int16
	TI      [4]int16
}

// Mesh holds parsed geometry for one sub-mesh within a BMD file.
// Vertex positions are in the space of the bone named by Nodes.
type Mesh struct {
	Verts   [][3]float32
	Nodes   []int16 // bone index per vertex
	Normals [][3]float32
	UVs     [][2]float32
	Tris    []Triangle
	TexPath string // texture reference from BMD (e.g. "sword04.jpg")
}

// Action is one animation stored in the file.
type Action struct {
	NumKeys       int
	LockPositions bool
}

// BoneKeys holds one bone's keyframes for one action.
type BoneKeys struct {
	Positions [][3]float32
	Rotations [][3]float32 // Euler XYZ radians
}

// Bone is one node of the skeleton with keyframes per action.
type Bone struct {
	Name    string
	Parent  int
	IsDummy bool
	Actions []BoneKeys
}

// Bind returns the bone's rest pose: key 0 of the first action with keys.
func (b *Bone) Bind() (pos, rot [3]float64) {
	for _, a := range b.Actions {
		if len(a.Positions) == 0 {
			continue
		}
		p, r := a.Positions[0], a.Rotations[0]
		return [3]float64{float64(p[0]), float64(p[1]), float64(p[2])},
			[3]float64{float64(r[0]), float64(r[1]), float64(r[2])}
	}
	return pos, rot
}

// Model is a parsed BMD file.
type Model struct {
	Name    string
	Version byte
	Meshes  []Mesh
	Bones   []Bone
	Actions []Action
}
