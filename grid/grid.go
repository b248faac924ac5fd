// Package grid implements the Grid Geometry component: an immutable
// axis-aligned bounding box subdivided into a uniform voxel resolution,
// plus the pure world<->voxel mapping functions every other component
// builds on.
package grid

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

// Index is an integer voxel coordinate triple. It has no bounds check
// built in; whether a given Index is interior to a Grid is a property of
// the query, not of the type.
type Index struct {
	I, J, K int
}

// Grid is an immutable axis-aligned bounding box divided into cubic
// voxels of edge length Resolution. It holds no mutable state: every
// method is a pure function of its receiver and arguments.
type Grid struct {
	bounds ms3.Box
	res    float32
	dims   Index
}

// New constructs a Grid over bounds subdivided at the given resolution
// (voxel edge length, world units). It fails only on invalid
// construction: non-positive resolution or inverted/degenerate bounds.
func New(bounds ms3.Box, resolution float32) (Grid, error) {
	if resolution <= 0 {
		return Grid{}, fmt.Errorf("grid: non-positive resolution %g", resolution)
	}
	size := bounds.Size()
	if size.X <= 0 || size.Y <= 0 || size.Z <= 0 {
		return Grid{}, errors.New("grid: inverted or degenerate bounds")
	}
	dims := Index{
		I: int(math32.Ceil(size.X / resolution)),
		J: int(math32.Ceil(size.Y / resolution)),
		K: int(math32.Ceil(size.Z / resolution)),
	}
	if dims.I <= 0 || dims.J <= 0 || dims.K <= 0 {
		return Grid{}, errors.New("grid: resolution too coarse for bounds")
	}
	return Grid{bounds: bounds, res: resolution, dims: dims}, nil
}

// Bounds returns the grid's world-space axis-aligned bounding box.
func (g Grid) Bounds() ms3.Box { return g.bounds }

// Resolution returns the voxel edge length in world units.
func (g Grid) Resolution() float32 { return g.res }

// Dims returns (Nx, Ny, Nz) as an Index.
func (g Grid) Dims() Index { return g.dims }

// NumVoxels returns Nx*Ny*Nz.
func (g Grid) NumVoxels() int { return g.dims.I * g.dims.J * g.dims.K }

// InBounds reports whether idx addresses an interior voxel.
func (g Grid) InBounds(idx Index) bool {
	return idx.I >= 0 && idx.I < g.dims.I &&
		idx.J >= 0 && idx.J < g.dims.J &&
		idx.K >= 0 && idx.K < g.dims.K
}

// WorldToVoxel floors p into the voxel whose cube contains it: closed on
// the min face, open on the max face of each axis.
func (g Grid) WorldToVoxel(p ms3.Vec) Index {
	rel := ms3.Sub(p, g.bounds.Min)
	return Index{
		I: int(math32.Floor(rel.X / g.res)),
		J: int(math32.Floor(rel.Y / g.res)),
		K: int(math32.Floor(rel.Z / g.res)),
	}
}

// VoxelCenterWorld returns the world-space center of voxel (i,j,k).
func (g Grid) VoxelCenterWorld(idx Index) ms3.Vec {
	return ms3.Add(g.bounds.Min, ms3.Vec{
		X: (float32(idx.I) + 0.5) * g.res,
		Y: (float32(idx.J) + 0.5) * g.res,
		Z: (float32(idx.K) + 0.5) * g.res,
	})
}

// VoxelAABBWorld returns the world-space min/max corners of voxel (i,j,k).
func (g Grid) VoxelAABBWorld(idx Index) ms3.Box {
	min := ms3.Add(g.bounds.Min, ms3.Vec{
		X: float32(idx.I) * g.res,
		Y: float32(idx.J) * g.res,
		Z: float32(idx.K) * g.res,
	})
	max := ms3.Add(min, ms3.Vec{X: g.res, Y: g.res, Z: g.res})
	return ms3.Box{Min: min, Max: max}
}

// ClampRegion clamps [min,max] (inclusive, voxel indices) to the grid's
// valid interior range [0, N-1] per axis. If the input range lies
// entirely outside the grid on some axis, the clamped range on that axis
// collapses to an empty (min > max) interval, which callers must check
// for before iterating.
func (g Grid) ClampRegion(min, max Index) (Index, Index) {
	clampAxis := func(lo, hi, n int) (int, int) {
		if lo < 0 {
			lo = 0
		}
		if hi > n-1 {
			hi = n - 1
		}
		return lo, hi
	}
	min.I, max.I = clampAxis(min.I, max.I, g.dims.I)
	min.J, max.J = clampAxis(min.J, max.J, g.dims.J)
	min.K, max.K = clampAxis(min.K, max.K, g.dims.K)
	return min, max
}

// RegionEmpty reports whether a (min,max) region produced by ClampRegion
// (or any other call site) contains no voxels.
func RegionEmpty(min, max Index) bool {
	return min.I > max.I || min.J > max.J || min.K > max.K
}

// DistanceToBounds returns the (non-negative) Euclidean distance from p
// to the closest point of the grid's bounding box; zero if p is inside.
func (g Grid) DistanceToBounds(p ms3.Vec) float32 {
	clamp := func(v, lo, hi float32) float32 {
		if v < lo {
			return lo
		}
		if v > hi {
			return hi
		}
		return v
	}
	closest := ms3.Vec{
		X: clamp(p.X, g.bounds.Min.X, g.bounds.Max.X),
		Y: clamp(p.Y, g.bounds.Min.Y, g.bounds.Max.Y),
		Z: clamp(p.Z, g.bounds.Min.Z, g.bounds.Max.Z),
	}
	return ms3.Norm(ms3.Sub(p, closest))
}
