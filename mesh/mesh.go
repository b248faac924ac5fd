// Package mesh implements the Mesh value type (C6) and the Isosurface
// Extractor (C5): face extrusion from a Volume Store, Marching Cubes
// and Dual Contouring extraction from an SDF Engine, both with
// gradient-consistent winding, boundary-shell closure, and geometric
// vertex deduplication.
package mesh

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

// Mesh is a value type: parallel arrays of vertex positions, per-vertex
// unit normals, and triangle indices. It carries no back-reference to
// whatever produced it (spec.md §3's "once produced, independent of the
// source").
type Mesh struct {
	Positions []ms3.Vec
	Normals   []ms3.Vec
	Indices   []uint32
}

// NumTriangles returns len(Indices)/3.
func (m *Mesh) NumTriangles() int { return len(m.Indices) / 3 }

// dedupEps is the geometric-equality tolerance (world units) used to
// merge coincident vertices emitted independently by neighboring cells.
const dedupEps = 1e-3

// vertexKey quantizes a position to dedupEps-sized cells so that two
// positions within epsilon of each other (axis-aligned) hash identically
// in the common case of exact cell-boundary agreement between adjacent
// cube/cell extractions.
type vertexKey struct {
	x, y, z int32
}

func quantize(v float32) int32 {
	return int32(math32.Floor(v / dedupEps))
}

func keyOf(p ms3.Vec) vertexKey {
	return vertexKey{quantize(p.X), quantize(p.Y), quantize(p.Z)}
}

// cross computes the 3D cross product of two vectors.
func cross(a, b ms3.Vec) ms3.Vec {
	return ms3.Vec{
		X: a.Y*b.Z - a.Z*b.Y,
		Y: a.Z*b.X - a.X*b.Z,
		Z: a.X*b.Y - a.Y*b.X,
	}
}

// builder accumulates deduplicated vertices and per-vertex normal
// accumulators while triangles are appended; finish() normalizes.
type builder struct {
	index   map[vertexKey]uint32
	pos     []ms3.Vec
	normAcc []ms3.Vec
	indices []uint32
}

func newBuilder() *builder {
	return &builder{index: make(map[vertexKey]uint32)}
}

// vertex returns the index of p, creating a new deduplicated vertex slot
// if no existing vertex quantizes to the same dedupEps-sized cell.
func (b *builder) vertex(p ms3.Vec) uint32 {
	k := keyOf(p)
	if idx, ok := b.index[k]; ok {
		return idx
	}
	idx := uint32(len(b.pos))
	b.index[k] = idx
	b.pos = append(b.pos, p)
	b.normAcc = append(b.normAcc, ms3.Vec{})
	return idx
}

// triangle appends a triangle (p0,p1,p2) with face normal nface
// (un-normalized is fine) accumulated into each vertex's normal sum.
// Degenerate (near-zero-area) triangles are silently dropped, per
// spec.md §4.5's failure-mode rule.
func (b *builder) triangle(p0, p1, p2, nface ms3.Vec) {
	if math32.IsNaN(nface.X) || math32.IsNaN(nface.Y) || math32.IsNaN(nface.Z) {
		return
	}
	if ms3.Norm(nface) < 1e-6 {
		return
	}
	if math32.IsNaN(p0.X) || math32.IsNaN(p1.X) || math32.IsNaN(p2.X) {
		return
	}
	unit := ms3.Unit(nface)
	i0, i1, i2 := b.vertex(p0), b.vertex(p1), b.vertex(p2)
	b.normAcc[i0] = ms3.Add(b.normAcc[i0], unit)
	b.normAcc[i1] = ms3.Add(b.normAcc[i1], unit)
	b.normAcc[i2] = ms3.Add(b.normAcc[i2], unit)
	b.indices = append(b.indices, i0, i1, i2)
}

func (b *builder) finish() Mesh {
	normals := make([]ms3.Vec, len(b.normAcc))
	for i, n := range b.normAcc {
		if ms3.Norm(n) < 1e-9 {
			normals[i] = ms3.Vec{Y: 1}
			continue
		}
		normals[i] = ms3.Unit(n)
	}
	return Mesh{Positions: b.pos, Normals: normals, Indices: b.indices}
}
