// Package stl writes a mesh.Mesh in the standard binary STL format: an
// external collaborator the core hands finished meshes to (spec.md §6),
// not something the core depends on.
package stl

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/soypat/geometry/ms3"

	"github.com/nyarurato/millsim/mesh"
)

// headerSize is the fixed 80-byte binary STL header.
const headerSize = 80

// WriteBinary writes m to w in the standard binary STL layout: an
// 80-byte header, a little-endian u32 triangle count, then per triangle
// 12 little-endian f32s (face normal, then 3 vertices) and a trailing
// u16 attribute byte count of 0.
func WriteBinary(w io.Writer, m mesh.Mesh) error {
	var header [headerSize]byte
	copy(header[:], "millsim binary STL export")
	if _, err := w.Write(header[:]); err != nil {
		return err
	}

	n := uint32(m.NumTriangles())
	if err := binary.Write(w, binary.LittleEndian, n); err != nil {
		return err
	}

	buf := make([]byte, 50) // 12 f32 (48 bytes) + u16 attribute (2 bytes)
	for i := 0; i+2 < len(m.Indices); i += 3 {
		i0, i1, i2 := m.Indices[i], m.Indices[i+1], m.Indices[i+2]
		v0, v1, v2 := m.Positions[i0], m.Positions[i1], m.Positions[i2]
		nrm := faceNormal(v0, v1, v2)

		putVec(buf[0:12], nrm)
		putVec(buf[12:24], v0)
		putVec(buf[24:36], v1)
		putVec(buf[36:48], v2)
		buf[48], buf[49] = 0, 0

		if _, err := w.Write(buf); err != nil {
			return err
		}
	}
	return nil
}

func faceNormal(v0, v1, v2 ms3.Vec) ms3.Vec {
	a := ms3.Sub(v1, v0)
	b := ms3.Sub(v2, v0)
	n := ms3.Vec{
		X: a.Y*b.Z - a.Z*b.Y,
		Y: a.Z*b.X - a.X*b.Z,
		Z: a.X*b.Y - a.Y*b.X,
	}
	if ms3.Norm(n) < 1e-9 {
		return ms3.Vec{}
	}
	return ms3.Unit(n)
}

func putVec(dst []byte, v ms3.Vec) {
	binary.LittleEndian.PutUint32(dst[0:4], math.Float32bits(v.X))
	binary.LittleEndian.PutUint32(dst[4:8], math.Float32bits(v.Y))
	binary.LittleEndian.PutUint32(dst[8:12], math.Float32bits(v.Z))
}
