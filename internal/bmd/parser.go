package bmd

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	"asset-thumbnailer/internal/crypto"
)

// Keys holds the decryption keys for encrypted BMD versions.
type Keys struct {
	XOR [16]byte
	// LEA is required for v15 files; nil means v15 is rejected.
	LEA *[32]byte
}

// DefaultKeys returns the known v12 key and no v15 key.
func DefaultKeys() Keys {
	return Keys{XOR: crypto.DefaultXORKey}
}

// Parse reads a BMD file.
// Supports versions 10 (unencrypted), 12 (XOR), and 15 (LEA-256 ECB).
func Parse(path string, keys Keys) (*Model, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("bmd: read %s: %w", path, err)
	}
	return ParseBytes(raw, filepath.Base(path), keys)
}

// ParseBytes decodes a BMD image already in memory. name is used in errors.
func ParseBytes(raw []byte, name string, keys Keys) (*Model, error) {
	if len(raw) < 4 || string(raw[:3]) != "BMD" {
		return nil, fmt.Errorf("bmd: invalid header in %s", name)
	}

	version := raw[3]
	var data []byte

	switch version {
	case 15, 12:
		if len(raw) < 8 {
			return nil, fmt.Errorf("bmd: truncated v%d header in %s", version, name)
		}
		size := binary.LittleEndian.Uint32(raw[4:8])
		if 8+uint64(size) > uint64(len(raw)) {
			return nil, fmt.Errorf("bmd: truncated v%d data in %s", version, name)
		}
		if version == 12 {
			data = crypto.DecryptXOR(raw[8:8+size], keys.XOR)
			break
		}
		if keys.LEA == nil {
			return nil, fmt.Errorf("bmd: %s is v15 and no LEA key is configured", name)
		}
		data = crypto.DecryptLEA(raw[8:8+size], *keys.LEA)
	default:
		data = raw[4:]
	}

	r := &reader{data: data}
	m, err := r.parse(name)
	if err != nil {
		return nil, err
	}
	m.Version = version
	return m, nil
}

type reader struct {
	data []byte
	off  int
}

func (r *reader) readStr(n int) string {
	if r.off+n > len(r.data) {
		r.off = len(r.data)
		return ""
	}
	s := r.data[r.off : r.off+n]
	r.off += n
	// Find null terminator
	for i, b := range s {
		if b == 0 {
			return string(s[:i])
		}
	}
	return string(s)
}

func (r *reader) readI16() int16 {
	if r.off+2 > len(r.data) {
		r.off = len(r.data)
		return 0
	}
	v := int16(binary.LittleEndian.Uint16(r.data[r.off:]))
	r.off += 2
	return v
}

func (r *reader) readU16() uint16 {
	if r.off+2 > len(r.data) {
		r.off = len(r.data)
		return 0
	}
	v := binary.LittleEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v
}

func (r *reader) readF32() float32 {
	if r.off+4 > len(r.data) {
		r.off = len(r.data)
		return 0
	}
	v := math.Float32frombits(binary.LittleEndian.Uint32(r.data[r.off:]))
	r.off += 4
	return v
}

func (r *reader) readByte() byte {
	if r.off >= len(r.data) {
		return 0
	}
	b := r.data[r.off]
	r.off++
	return b
}

func (r *reader) parse(name string) (*Model, error) {
	m := &Model{Name: r.readStr(32)}
	meshCount := int(r.readU16())
	boneCount := int(r.readU16())
	actionCount := int(r.readU16())

	if meshCount > 100 {
		return nil, fmt.Errorf("bmd: invalid mesh count %d in %s", meshCount, name)
	}

	m.Meshes = make([]Mesh, 0, meshCount)
	for i := 0; i < meshCount; i++ {
		nv := int(r.readI16())
		nn := int(r.readI16())
		ntc := int(r.readI16())
		nt := int(r.readI16())
		_ = r.readI16() // texture index
		if nv < 0 || nn < 0 || ntc < 0 || nt < 0 {
			return nil, fmt.Errorf("bmd: negative element count in mesh %d of %s", i, name)
		}

		// Vertices: 16 bytes each (node:i16, pad:i16, x:f32, y:f32, z:f32)
		verts := make([][3]float32, nv)
		nodes := make([]int16, nv)
		for j := 0; j < nv; j++ {
			nodes[j] = r.readI16()
			_ = r.readI16() // padding
			verts[j][0] = r.readF32()
			verts[j][1] = r.readF32()
			verts[j][2] = r.readF32()
		}

		// Normals: 20 bytes each (node:i16, pad:i16, nx:f32, ny:f32, nz:f32, bind:i16, pad:i16)
		normals := make([][3]float32, nn)
		for j := 0; j < nn; j++ {
			_ = r.readI16() // node
			_ = r.readI16() // padding
			normals[j][0] = r.readF32()
			normals[j][1] = r.readF32()
			normals[j][2] = r.readF32()
			_ = r.readI16() // bindVertex
			_ = r.readI16() // padding
		}

		// TexCoords: 8 bytes each (u:f32, v:f32)
		uvs := make([][2]float32, ntc)
		for j := 0; j < ntc; j++ {
			uvs[j][0] = r.readF32()
			uvs[j][1] = r.readF32()
		}

		// Triangles: 64 bytes each
		tris := make([]Triangle, 0, nt)
		for j := 0; j < nt; j++ {
			base := r.off
			if base+64 > len(r.data) {
				r.off = len(r.data)
				break
			}
			var tri Triangle
			tri.Polygon = int(r.data[base])
			for k := 0; k < 4; k++ {
				tri.VI[k] = int16(binary.LittleEndian.Uint16(r.data[base+2+k*2:]))
				tri.NI[k] = int16(binary.LittleEndian.Uint16(r.data[base+10+k*2:]))
				tri.TI[k] = int16(binary.LittleEndian.Uint16(r.data[base+18+k*2:]))
			}
			tris = append(tris, tri)
			r.off += 64
		}

		texPath := strings.ReplaceAll(r.readStr(32), "\\", "/")

		m.Meshes = append(m.Meshes, Mesh{
			Verts:   verts,
			Nodes:   nodes,
			Normals: normals,
			UVs:     uvs,
			Tris:    tris,
			TexPath: texPath,
		})
	}

	// Actions: key count, lock flag, optional locked positions
	m.Actions = make([]Action, actionCount)
	for a := range m.Actions {
		numKeys := int(r.readI16())
		if numKeys < 0 {
			numKeys = 0
		}
		lock := r.readByte() > 0
		if lock {
			r.off += numKeys * 12
		}
		m.Actions[a] = Action{NumKeys: numKeys, LockPositions: lock}
	}

	m.Bones = make([]Bone, 0, boneCount)
	for b := 0; b < boneCount; b++ {
		if r.readByte() > 0 {
			m.Bones = append(m.Bones, Bone{Parent: -1, IsDummy: true})
			continue
		}

		bone := Bone{
			Name:    r.readStr(32),
			Parent:  int(r.readI16()),
			Actions: make([]BoneKeys, actionCount),
		}
		for a, act := range m.Actions {
			if act.NumKeys == 0 {
				continue
			}
			keys := BoneKeys{
				Positions: make([][3]float32, act.NumKeys),
				Rotations: make([][3]float32, act.NumKeys),
			}
			for k := range keys.Positions {
				keys.Positions[k] = r.readVec3()
			}
			for k := range keys.Rotations {
				keys.Rotations[k] = r.readVec3()
			}
			bone.Actions[a] = keys
		}
		m.Bones = append(m.Bones, bone)
	}

	if r.off > len(r.data) {
		return nil, fmt.Errorf("bmd: truncated body in %s", name)
	}
	return m, nil
}

func (r *reader) readVec3() [3]float32 {
	return [3]float32{r.readF32(), r.readF32(), r.readF32()}
}
