package volume

import (
	"sync/atomic"

	"github.com/soypat/geometry/ms3"

	"github.com/nyarurato/millsim/grid"
)

// Dense is a one-bit-per-voxel occupancy store, row-major in (x, then y,
// then z) per spec.md §3. Default state (zero value bitset) is material.
type Dense struct {
	g    grid.Grid
	bits []uint64 // 1 bit per voxel; bit set means EMPTY (removed). Zero value = all material.
	// material is an incrementally maintained count, kept consistent by
	// every mutator below (invariant V3).
	material uint64
	notif    notifier
}

// NewDense constructs a Dense store fully filled with material.
func NewDense(g grid.Grid) *Dense {
	n := g.NumVoxels()
	d := &Dense{
		g:        g,
		bits:     make([]uint64, (n+63)/64),
		material: uint64(n),
	}
	return d
}

func (d *Dense) Grid() grid.Grid { return d.g }

func (d *Dense) flatIndex(idx grid.Index) int {
	dims := d.g.Dims()
	return idx.I + idx.J*dims.I + idx.K*dims.I*dims.J
}

func (d *Dense) isEmptyBit(flat int) bool {
	return d.bits[flat/64]&(1<<uint(flat%64)) != 0
}

// setEmptyBit flips the bit for flat to the requested state, reporting
// whether it changed. A 64-voxel word can straddle a Z-slice boundary
// (Nx*Ny need not be a multiple of 64), so two parallel Z-chunks may
// target the same word concurrently; the update goes through a CAS loop
// rather than a plain read-modify-write so that race stays benign.
func (d *Dense) setEmptyBit(flat int, empty bool) (changed bool) {
	word := flat / 64
	mask := uint64(1) << uint(flat%64)
	addr := &d.bits[word]
	for {
		old := atomic.LoadUint64(addr)
		was := old&mask != 0
		if was == empty {
			return false
		}
		var next uint64
		if empty {
			next = old | mask
		} else {
			next = old &^ mask
		}
		if atomic.CompareAndSwapUint64(addr, old, next) {
			return true
		}
	}
}

// IsMaterial reports voxel occupancy; out-of-range indices are empty (V1).
func (d *Dense) IsMaterial(idx grid.Index) bool {
	if !d.g.InBounds(idx) {
		return false
	}
	return !d.isEmptyBit(d.flatIndex(idx))
}

func (d *Dense) IsMaterialAtWorld(p ms3.Vec) bool {
	return d.IsMaterial(d.g.WorldToVoxel(p))
}

func (d *Dense) CountMaterial() uint64 { return d.material }

func (d *Dense) Subscribe(fn ChangeFunc) Subscription { return d.notif.subscribe(fn) }

// Set writes a single voxel and, if it changed, fires a change event
// whose AABB is exactly that one voxel.
func (d *Dense) Set(idx grid.Index, material bool) {
	if !d.g.InBounds(idx) {
		return
	}
	changed := d.setEmptyBit(d.flatIndex(idx), !material)
	if !changed {
		return
	}
	if material {
		d.material++
	} else {
		d.material--
	}
	d.notif.fire(idx, idx)
}

// Clear restores every voxel to material.
func (d *Dense) Clear() {
	dims := d.g.Dims()
	if dims.I == 0 {
		return
	}
	anySet := false
	for _, w := range d.bits {
		if w != 0 {
			anySet = true
			break
		}
	}
	if !anySet {
		return
	}
	for i := range d.bits {
		d.bits[i] = 0
	}
	d.material = uint64(d.g.NumVoxels())
	d.notif.fire(grid.Index{}, grid.Index{I: dims.I - 1, J: dims.J - 1, K: dims.K - 1})
}

// RemoveSphere clears every voxel whose center lies in the closed ball.
func (d *Dense) RemoveSphere(center ms3.Vec, radius float32) {
	min, max := sphereAABB(d.g, center, radius)
	d.removeWhere(min, max, func(p ms3.Vec) bool {
		return insideSphere(p, center, radius)
	})
}

// RemoveCylinder clears voxels inside the swept cylinder/capsule, or
// degenerates to RemoveSphere for a near-zero-length segment.
func (d *Dense) RemoveCylinder(start, end ms3.Vec, radius float32, flatEnds bool) {
	if segmentIsDegenerate(start, end) {
		d.RemoveSphere(start, radius)
		return
	}
	min, max := cylinderAABB(d.g, start, end, radius)
	d.removeWhere(min, max, func(p ms3.Vec) bool {
		return insideCylinder(p, start, end, radius, flatEnds)
	})
}

// removeWhere clears every voxel in [min,max] whose world center
// satisfies test, parallelizing across Z slices above the ~1000-voxel
// threshold, and fires exactly one change event covering the whole
// candidate AABB if at least one voxel changed.
func (d *Dense) removeWhere(min, max grid.Index, test func(p ms3.Vec) bool) {
	if grid.RegionEmpty(min, max) {
		return
	}
	dims := d.g.Dims()
	removedPerSlice := make([]uint64, max.K-min.K+1)
	forEachZSlice(min, max, func(z int) {
		var removed uint64
		for y := min.J; y <= max.J; y++ {
			base := y*dims.I + z*dims.I*dims.J
			for x := min.I; x <= max.I; x++ {
				idx := grid.Index{I: x, J: y, K: z}
				p := d.g.VoxelCenterWorld(idx)
				if !test(p) {
					continue
				}
				flat := base + x
				if d.setEmptyBit(flat, true) {
					removed++
				}
			}
		}
		removedPerSlice[z-min.K] = removed
	})
	var total uint64
	for _, r := range removedPerSlice {
		total += r
	}
	if total == 0 {
		return
	}
	d.material -= total
	d.notif.fire(min, max)
}
