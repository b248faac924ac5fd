// Package volume implements the Volume Store component: an occupancy
// grid (dense bitmap or sparse octree) that is the ground truth for
// stock material, with sphere/cylinder removal mutators and a
// change-region event subscription used to drive SDF Engine updates.
package volume

import (
	"github.com/soypat/geometry/ms3"

	"github.com/nyarurato/millsim/grid"
	"github.com/nyarurato/millsim/internal/parallel"
	"github.com/nyarurato/millsim/internal/primitive"
)

// Store is the common contract shared by Dense and Sparse. Both
// representations have identical observable semantics (spec'd data model
// §3): default state is material, out-of-range reads are empty, every
// mutator that changes at least one voxel fires exactly one change event.
type Store interface {
	Grid() grid.Grid

	IsMaterial(idx grid.Index) bool
	IsMaterialAtWorld(p ms3.Vec) bool
	CountMaterial() uint64

	RemoveSphere(center ms3.Vec, radius float32)
	RemoveCylinder(start, end ms3.Vec, radius float32, flatEnds bool)
	Set(idx grid.Index, material bool)
	Clear()

	// Subscribe registers fn to be called once per mutator call that
	// changes at least one voxel. Returns a releasable handle.
	Subscribe(fn ChangeFunc) Subscription
}

const segmentParamEps = 1e-5

// sphereAABB returns the voxel-index AABB of candidate voxels whose
// center could possibly lie within radius of center.
func sphereAABB(g grid.Grid, center ms3.Vec, radius float32) (grid.Index, grid.Index) {
	return primitive.SphereAABB(g, center, radius)
}

// insideSphere reports whether p lies in the closed ball of the given
// radius around center.
func insideSphere(p, center ms3.Vec, radius float32) bool {
	return ms3.Norm(ms3.Sub(p, center)) <= radius
}

// cylinderAABB returns the voxel-index AABB bounding a radius-padded
// capsule/cylinder from start to end.
func cylinderAABB(g grid.Grid, start, end ms3.Vec, radius float32) (grid.Index, grid.Index) {
	return primitive.CylinderAABB(g, start, end, radius)
}

// insideCylinder implements the remove_cylinder membership test from
// spec.md §4.2: project p onto the start-end segment; if the projection
// parameter lies in [-eps, 1+eps] and the perpendicular distance is
// within radius, p is inside the (possibly flat-ended) cylinder. If
// flatEnds is false the two spherical caps are also tested (capsule).
func insideCylinder(p, start, end ms3.Vec, radius float32, flatEnds bool) bool {
	axis := ms3.Sub(end, start)
	axisLenSq := ms3.Dot(axis, axis)
	rel := ms3.Sub(p, start)
	t := ms3.Dot(rel, axis) / axisLenSq

	if t >= -segmentParamEps && t <= 1+segmentParamEps {
		closest := ms3.Add(start, ms3.Scale(clamp01(t), axis))
		if ms3.Norm(ms3.Sub(p, closest)) <= radius {
			return true
		}
	}
	if !flatEnds {
		if insideSphere(p, start, radius) || insideSphere(p, end, radius) {
			return true
		}
	}
	return false
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

// segmentIsDegenerate reports whether a start/end pair is short enough
// that remove_cylinder must degenerate to remove_sphere(start, r).
func segmentIsDegenerate(start, end ms3.Vec) bool {
	return primitive.SegmentIsDegenerate(start, end)
}

// regionVoxelCount returns the number of voxels enclosed by [min,max]
// inclusive, used to decide whether a mutator should parallelize per
// spec.md §5's ~1000-voxel threshold.
func regionVoxelCount(min, max grid.Index) int {
	if grid.RegionEmpty(min, max) {
		return 0
	}
	return (max.I - min.I + 1) * (max.J - min.J + 1) * (max.K - min.K + 1)
}

// forEachZSlice runs fn(z) for every z in [min.K, max.K], in parallel
// across Z when the region is large enough to be worth the dispatch
// overhead, sequentially otherwise.
func forEachZSlice(min, max grid.Index, fn func(z int)) {
	n := max.K - min.K + 1
	if n <= 0 {
		return
	}
	if regionVoxelCount(min, max) < parallel.Threshold {
		for z := min.K; z <= max.K; z++ {
			fn(z)
		}
		return
	}
	parallel.For(n, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			fn(min.K + i)
		}
	})
}
