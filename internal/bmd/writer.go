package bmd

import (
	"bytes"
	"encoding/binary"
	"math"
	"strings"
)

// Encode serializes m as an unencrypted v10 file. Parsing the result
// yields the same model.
func Encode(m *Model) []byte {
	w := &writer{}
	w.buf.WriteString("BMD")
	w.buf.WriteByte(10)
	w.str(m.Name, 32)
	w.u16(uint16(len(m.Meshes)))
	w.u16(uint16(len(m.Bones)))
	w.u16(uint16(len(m.Actions)))

	for _, mesh := range m.Meshes {
		w.i16(int16(len(mesh.Verts)))
		w.i16(int16(len(mesh.Normals)))
		w.i16(int16(len(mesh.UVs)))
		w.i16(int16(len(mesh.Tris)))
		w.i16(0)
		for i, v := range mesh.Verts {
			var node int16
			if i < len(mesh.Nodes) {
				node = mesh.Nodes[i]
			}
			w.i16(node)
			w.i16(0)
			w.vec3(v)
		}
		for _, n := range mesh.Normals {
			w.i16(0)
			w.i16(0)
			w.vec3(n)
			w.i16(0)
			w.i16(0)
		}
		for _, uv := range mesh.UVs {
			w.f32(uv[0])
			w.f32(uv[1])
		}
		for _, t := range mesh.Tris {
			var rec [64]byte
			rec[0] = byte(t.Polygon)
			for k := 0; k < 4; k++ {
				binary.LittleEndian.PutUint16(rec[2+k*2:], uint16(t.VI[k]))
				binary.LittleEndian.PutUint16(rec[10+k*2:], uint16(t.NI[k]))
				binary.LittleEndian.PutUint16(rec[18+k*2:], uint16(t.TI[k]))
			}
			w.buf.Write(rec[:])
		}
		w.str(strings.ReplaceAll(mesh.TexPath, "/", "\\"), 32)
	}

	for _, a := range m.Actions {
		w.i16(int16(a.NumKeys))
		w.buf.WriteByte(0) // locked positions are not preserved
	}

	for _, b := range m.Bones {
		if b.IsDummy {
			w.buf.WriteByte(1)
			continue
		}
		w.buf.WriteByte(0)
		w.str(b.Name, 32)
		w.i16(int16(b.Parent))
		for ai, a := range m.Actions {
			if a.NumKeys == 0 {
				continue
			}
			var keys BoneKeys
			if ai < len(b.Actions) {
				keys = b.Actions[ai]
			}
			for k := 0; k < a.NumKeys; k++ {
				w.vec3(keyAt(keys.Positions, k))
			}
			for k := 0; k < a.NumKeys; k++ {
				w.vec3(keyAt(keys.Rotations, k))
			}
		}
	}
	return w.buf.Bytes()
}

func keyAt(keys [][3]float32, k int) [3]float32 {
	if k < len(keys) {
		return keys[k]
	}
	return [3]float32{}
}

type writer struct {
	buf bytes.Buffer
}

func (w *writer) u16(v uint16) {
	w.buf.Write(binary.LittleEndian.AppendUint16(nil, v))
}

func (w *writer) i16(v int16) { w.u16(uint16(v)) }

func (w *writer) f32(v float32) {
	w.buf.Write(binary.LittleEndian.AppendUint32(nil, math.Float32bits(v)))
}

func (w *writer) vec3(v [3]float32) {
	w.f32(v[0])
	w.f32(v[1])
	w.f32(v[2])
}

func (w *writer) str(s string, n int) {
	b := make([]byte, n)
	copy(b, s)
	w.buf.Write(b)
}
