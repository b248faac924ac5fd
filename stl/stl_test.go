package stl

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"

	"github.com/soypat/geometry/ms3"

	"github.com/nyarurato/millsim/mesh"
)

func singleTriangleMesh() mesh.Mesh {
	return mesh.Mesh{
		Positions: []ms3.Vec{
			{X: 0, Y: 0, Z: 0},
			{X: 1, Y: 0, Z: 0},
			{X: 0, Y: 1, Z: 0},
		},
		Normals: []ms3.Vec{
			{Z: 1}, {Z: 1}, {Z: 1},
		},
		Indices: []uint32{0, 1, 2},
	}
}

func TestWriteBinaryLayout(t *testing.T) {
	m := singleTriangleMesh()
	var buf bytes.Buffer
	if err := WriteBinary(&buf, m); err != nil {
		t.Fatal(err)
	}

	data := buf.Bytes()
	wantLen := headerSize + 4 + 50
	if len(data) != wantLen {
		t.Fatalf("output length = %d, want %d", len(data), wantLen)
	}

	count := binary.LittleEndian.Uint32(data[headerSize : headerSize+4])
	if count != 1 {
		t.Fatalf("triangle count = %d, want 1", count)
	}

	triStart := headerSize + 4
	nx := math.Float32frombits(binary.LittleEndian.Uint32(data[triStart : triStart+4]))
	ny := math.Float32frombits(binary.LittleEndian.Uint32(data[triStart+4 : triStart+8]))
	nz := math.Float32frombits(binary.LittleEndian.Uint32(data[triStart+8 : triStart+12]))
	if nx != 0 || ny != 0 || nz != 1 {
		t.Fatalf("face normal = (%g,%g,%g), want (0,0,1)", nx, ny, nz)
	}

	v0x := math.Float32frombits(binary.LittleEndian.Uint32(data[triStart+12 : triStart+16]))
	if v0x != 0 {
		t.Fatalf("first vertex X = %g, want 0", v0x)
	}

	attr := binary.LittleEndian.Uint16(data[triStart+48 : triStart+50])
	if attr != 0 {
		t.Fatalf("attribute byte count = %d, want 0", attr)
	}
}

func TestWriteBinaryEmptyMesh(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteBinary(&buf, mesh.Mesh{}); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != headerSize+4 {
		t.Fatalf("empty mesh output length = %d, want %d", buf.Len(), headerSize+4)
	}
}
