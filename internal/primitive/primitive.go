// Package primitive holds the analytic sphere/cylinder/capsule geometry
// shared by the Volume Store's boolean membership tests and the SDF
// Engine's continuous signed-distance CSG subtraction: candidate-AABB
// computation (so callers only ever touch the voxels that could
// possibly be affected) and the capped-cylinder / capsule distance
// formulas, generalized from a Z-axis-local cylinder to an arbitrary
// world-space segment.
package primitive

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"

	"github.com/nyarurato/millsim/grid"
)

// DegenerateSegmentEps is the minimum segment length spec.md §4.2
// requires before a cylinder removal degenerates to a sphere removal.
const DegenerateSegmentEps = 1e-6

// SegmentIsDegenerate reports whether start/end are close enough that a
// cylinder/capsule removal must fall back to a sphere removal at start.
func SegmentIsDegenerate(start, end ms3.Vec) bool {
	return ms3.Norm(ms3.Sub(end, start)) < DegenerateSegmentEps
}

// SphereAABB returns the voxel-index AABB of every voxel whose center
// could possibly lie within radius of center, clamped to g.
func SphereAABB(g grid.Grid, center ms3.Vec, radius float32) (grid.Index, grid.Index) {
	pad := ms3.Vec{X: radius, Y: radius, Z: radius}
	lo := g.WorldToVoxel(ms3.Sub(center, pad))
	hi := g.WorldToVoxel(ms3.Add(center, pad))
	return g.ClampRegion(lo, hi)
}

// CylinderAABB returns the voxel-index AABB bounding a radius-padded
// segment from start to end, clamped to g.
func CylinderAABB(g grid.Grid, start, end ms3.Vec, radius float32) (grid.Index, grid.Index) {
	pad := ms3.Vec{X: radius, Y: radius, Z: radius}
	min := ms3.MinElem(start, end)
	max := ms3.MaxElem(start, end)
	lo := g.WorldToVoxel(ms3.Sub(min, pad))
	hi := g.WorldToVoxel(ms3.Add(max, pad))
	return g.ClampRegion(lo, hi)
}

// SphereDistance returns the signed distance from p to a sphere of the
// given radius centered at center: negative inside.
func SphereDistance(p, center ms3.Vec, radius float32) float32 {
	return ms3.Norm(ms3.Sub(p, center)) - radius
}

// CylinderDistance returns the signed distance from p to a flat-ended
// (flatEnds) or hemispherical-capped (capsule, !flatEnds) cylinder of
// the given radius running from start to end: negative inside.
func CylinderDistance(p, start, end ms3.Vec, radius float32, flatEnds bool) float32 {
	if flatEnds {
		return sdCappedCylinder(p, start, end, radius)
	}
	return sdCapsule(p, start, end, radius)
}

// sdCappedCylinder is Inigo Quilez's capped-cylinder distance formula,
// generalized to an arbitrary world-space axis instead of a local one.
func sdCappedCylinder(p, a, b ms3.Vec, r float32) float32 {
	ba := ms3.Sub(b, a)
	pa := ms3.Sub(p, a)
	baba := ms3.Dot(ba, ba)
	paba := ms3.Dot(pa, ba)
	x := ms3.Norm(ms3.Sub(ms3.Scale(baba, pa), ms3.Scale(paba, ba))) - r*baba
	y := math32.Abs(paba-baba*0.5) - baba*0.5
	x2 := x * x
	y2 := y * y * baba
	var d float32
	if math32.Max(x, y) < 0 {
		d = -math32.Min(x2, y2)
	} else {
		var xp, yp float32
		if x > 0 {
			xp = x2
		}
		if y > 0 {
			yp = y2
		}
		d = xp + yp
	}
	return signf(d) * math32.Sqrt(math32.Abs(d)) / baba
}

// sdCapsule is the standard round-capped capsule distance formula.
func sdCapsule(p, a, b ms3.Vec, r float32) float32 {
	pa := ms3.Sub(p, a)
	ba := ms3.Sub(b, a)
	h := clamp01(ms3.Dot(pa, ba) / ms3.Dot(ba, ba))
	return ms3.Norm(ms3.Sub(pa, ms3.Scale(h, ba))) - r
}

func clamp01(t float32) float32 {
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

func signf(v float32) float32 {
	if v < 0 {
		return -1
	}
	return 1
}
