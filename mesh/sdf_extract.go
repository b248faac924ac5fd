package mesh

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"

	"github.com/nyarurato/millsim/grid"
	"github.com/nyarurato/millsim/internal/parallel"
	"github.com/nyarurato/millsim/sdfgrid"
)

// sdfSource is the subset of *sdfgrid.Grid the extractor needs; kept as
// an interface so mesh doesn't otherwise depend on sdfgrid's internals.
type sdfSource interface {
	Grid() grid.Grid
	DistanceAtIndex(idx grid.Index) float32
	GradientAtWorld(p ms3.Vec) ms3.Vec
}

// edgeZeroEps is the denominator-closeness threshold below which the
// edge crossing interpolation falls back to the edge's first endpoint,
// per spec.md §4.5 step 3.
const edgeZeroEps = 1e-8

type mcTriangle struct {
	v0, v1, v2 ms3.Vec
	n0, n1, n2 ms3.Vec
	hasNaN     bool
}

// ExtractFromSDF runs Marching Cubes over sg (Mode B, spec.md §4.5):
// cubes are iterated from -1 to N-1 inclusive on every axis to close the
// outer shell, each cube's 8 corners sampled through the SDF's
// out-of-range extrapolation, triangulated via the standard 256-entry
// table, and wound to agree with the SDF gradient at each vertex.
func ExtractFromSDF(sg sdfSource) Mesh {
	g := sg.Grid()
	dims := g.Dims()

	zLo, zHi := -1, dims.K-1
	trisPerSlice := make([][]mcTriangle, zHi-zLo+1)

	genSlice := func(z int) {
		var tris []mcTriangle
		for y := -1; y <= dims.J-1; y++ {
			for x := -1; x <= dims.I-1; x++ {
				tris = marchCube(sg, x, y, z, tris)
			}
		}
		trisPerSlice[z-zLo] = tris
	}

	total := (zHi - zLo + 1) * (dims.J + 1) * (dims.I + 1)
	if total < parallel.Threshold {
		for z := zLo; z <= zHi; z++ {
			genSlice(z)
		}
	} else {
		parallel.For(zHi-zLo+1, func(lo, hi int) {
			for i := lo; i < hi; i++ {
				genSlice(zLo + i)
			}
		})
	}

	b := newBuilder()
	for _, tris := range trisPerSlice {
		for _, t := range tris {
			if t.hasNaN {
				continue
			}
			emitWoundTriangle(b, t)
		}
	}
	return b.finish()
}

// marchCube triangulates the single cube whose minimum corner is voxel
// index (x,y,z), appending to dst.
func marchCube(sg sdfSource, x, y, z int, dst []mcTriangle) []mcTriangle {
	var corner [8]ms3.Vec
	var dist [8]float32
	for i := 0; i < 8; i++ {
		idx := grid.Index{
			I: x + cornerOffset[i][0],
			J: y + cornerOffset[i][1],
			K: z + cornerOffset[i][2],
		}
		corner[i] = sg.Grid().VoxelCenterWorld(idx)
		dist[i] = sg.DistanceAtIndex(idx)
	}

	cubeIndex := 0
	for i := 0; i < 8; i++ {
		if dist[i] < 0 {
			cubeIndex |= 1 << uint(i)
		}
	}
	if cubeIndex == 0 || cubeIndex == 255 {
		return dst
	}

	var edgeVert [12]ms3.Vec
	var edgeComputed [12]bool
	vertexAt := func(e int) ms3.Vec {
		if edgeComputed[e] {
			return edgeVert[e]
		}
		a, b := edgeCorners[e][0], edgeCorners[e][1]
		fa, fb := dist[a], dist[b]
		var v ms3.Vec
		if math32.Abs(fa-fb) < edgeZeroEps {
			v = corner[a]
		} else {
			t := fa / (fa - fb)
			v = ms3.Add(corner[a], ms3.Scale(t, ms3.Sub(corner[b], corner[a])))
		}
		edgeVert[e] = v
		edgeComputed[e] = true
		return v
	}

	row := mcTriTable[cubeIndex]
	for i := 0; i < 16 && row[i] != -1; i += 3 {
		v0 := vertexAt(int(row[i]))
		v1 := vertexAt(int(row[i+1]))
		v2 := vertexAt(int(row[i+2]))
		g0 := sg.GradientAtWorld(v0)
		g1 := sg.GradientAtWorld(v1)
		g2 := sg.GradientAtWorld(v2)
		t := mcTriangle{
			v0: v0, v1: v1, v2: v2,
			// Negate the gradient so the vertex normal points outward
			// from material into empty (spec.md §4.5 step 4).
			n0: ms3.Scale(-1, g0),
			n1: ms3.Scale(-1, g1),
			n2: ms3.Scale(-1, g2),
		}
		if hasNaNVec(v0) || hasNaNVec(v1) || hasNaNVec(v2) ||
			hasNaNVec(t.n0) || hasNaNVec(t.n1) || hasNaNVec(t.n2) {
			t.hasNaN = true
		}
		dst = append(dst, t)
	}
	return dst
}

func hasNaNVec(v ms3.Vec) bool {
	return math32.IsNaN(v.X) || math32.IsNaN(v.Y) || math32.IsNaN(v.Z)
}

// emitWoundTriangle computes the geometric face normal, drops the
// triangle if degenerate, and flips winding to agree with the averaged
// vertex (gradient-derived) normal before handing it to the builder.
func emitWoundTriangle(b *builder, t mcTriangle) {
	nface := cross(ms3.Sub(t.v1, t.v0), ms3.Sub(t.v2, t.v0))
	if ms3.Norm(nface) < 1e-6 {
		return
	}
	avg := ms3.Scale(1.0/3, ms3.Add(ms3.Add(t.n0, t.n1), t.n2))
	if ms3.Norm(avg) < 1e-9 {
		return
	}
	if ms3.Dot(ms3.Unit(nface), ms3.Unit(avg)) < 0 {
		t.v1, t.v2 = t.v2, t.v1
		t.n1, t.n2 = t.n2, t.n1
		nface = cross(ms3.Sub(t.v1, t.v0), ms3.Sub(t.v2, t.v0))
	}
	b.triangle(t.v0, t.v1, t.v2, nface)
}
