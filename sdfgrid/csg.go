package sdfgrid

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"

	"github.com/nyarurato/millsim/grid"
	"github.com/nyarurato/millsim/internal/parallel"
	"github.com/nyarurato/millsim/internal/primitive"
)

// RemoveSphere performs an analytic SDF CSG subtraction of a sphere:
// f(v) <- min(f(v), d) for every voxel in the primitive's AABB, where d
// is the signed distance of the voxel center from the sphere (negative
// inside). Spec.md §4.4's "analytic primitive subtraction".
func (sg *Grid) RemoveSphere(center ms3.Vec, radius float32) {
	min, max := primitive.SphereAABB(sg.g, center, radius)
	sg.subtract(min, max, func(p ms3.Vec) float32 {
		return primitive.SphereDistance(p, center, radius)
	})
}

// RemoveCylinder performs an analytic SDF CSG subtraction of a
// flat-ended cylinder or round-capped capsule, degenerating to
// RemoveSphere for a near-zero-length segment exactly as the Volume
// Store's equivalent mutator does.
func (sg *Grid) RemoveCylinder(start, end ms3.Vec, radius float32, flatEnds bool) {
	if primitive.SegmentIsDegenerate(start, end) {
		sg.RemoveSphere(start, radius)
		return
	}
	min, max := primitive.CylinderAABB(sg.g, start, end, radius)
	sg.subtract(min, max, func(p ms3.Vec) float32 {
		return primitive.CylinderDistance(p, start, end, radius, flatEnds)
	})
}

// subtract applies f(v) <- min(f(v), primDist(center(v))) over every
// voxel in [min,max], clamping the result to the narrow band.
func (sg *Grid) subtract(min, max grid.Index, primDist func(p ms3.Vec) float32) {
	if grid.RegionEmpty(min, max) {
		return
	}
	dims := sg.g.Dims()
	n := max.K - min.K + 1
	run := func(z int) {
		for y := min.J; y <= max.J; y++ {
			base := y*dims.I + z*dims.I*dims.J
			for x := min.I; x <= max.I; x++ {
				idx := grid.Index{I: x, J: y, K: z}
				d := primDist(sg.g.VoxelCenterWorld(idx))
				flat := base + x
				cur := sg.dist[flat]
				next := math32.Min(cur, d)
				if next < -sg.narrowBand {
					next = -sg.narrowBand
				} else if next > sg.narrowBand {
					next = sg.narrowBand
				}
				sg.dist[flat] = next
			}
		}
	}
	if regionVoxelCount(min, max) < parallel.Threshold {
		for z := min.K; z <= max.K; z++ {
			run(z)
		}
		return
	}
	parallel.For(n, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			run(min.K + i)
		}
	})
}
