package sdfgrid

import (
	"github.com/chewxy/math32"

	"github.com/nyarurato/millsim/grid"
	"github.com/nyarurato/millsim/internal/parallel"
)

// surfaceSeedVox is the seed magnitude (voxel units, scaled by resolution)
// assigned to voxels adjacent to a material/empty boundary, per spec.md
// §4.4 step 1 ("+0.1 / -0.1 in voxel units").
const surfaceSeedVox = 0.1

// sweepDirections enumerates the 8 axis-sign combinations in a fixed,
// documented order so that two runs over identical input produce
// bit-identical results (spec.md §5, determinism).
var sweepDirections = [8][3]int{
	{+1, +1, +1}, {+1, +1, -1}, {+1, -1, +1}, {+1, -1, -1},
	{-1, +1, +1}, {-1, +1, -1}, {-1, -1, +1}, {-1, -1, -1},
}

// recomputeFull runs the complete Fast Sweeping solve (init + sweep)
// over the whole grid, given a material test.
func (sg *Grid) recomputeFull(isMaterial func(grid.Index) bool) {
	sg.initRegion(isMaterial, grid.Index{}, sg.lastIndex())
	if sg.fastMode {
		return // fast mode: seeded field only, no propagation sweep.
	}
	sg.sweepRegion(grid.Index{}, sg.lastIndex())
}

// recomputeRegion re-initializes and re-sweeps the dilated subregion
// around a change event, per spec.md §4.4's region-update rule. The
// result must match a full recompute restricted to this subregion given
// the current occupancy (to floating-point associativity).
func (sg *Grid) recomputeRegion(isMaterial func(grid.Index) bool, min, max grid.Index) {
	sg.initRegion(isMaterial, min, max)
	if sg.fastMode {
		return
	}
	sg.sweepRegion(min, max)
}

func (sg *Grid) lastIndex() grid.Index {
	dims := sg.g.Dims()
	return grid.Index{I: dims.I - 1, J: dims.J - 1, K: dims.K - 1}
}

// initRegion seeds every voxel in [min,max] as surface (differs in
// material from any 26-neighbor) or bulk material/empty.
func (sg *Grid) initRegion(isMaterial func(grid.Index) bool, min, max grid.Index) {
	res := sg.g.Resolution()
	seed := surfaceSeedVox * res
	n := max.K - min.K + 1
	if n <= 0 {
		return
	}
	run := func(z int) {
		for y := min.J; y <= max.J; y++ {
			for x := min.I; x <= max.I; x++ {
				idx := grid.Index{I: x, J: y, K: z}
				mat := isMaterial(idx)
				surface := false
				for dz := -1; dz <= 1 && !surface; dz++ {
					for dy := -1; dy <= 1 && !surface; dy++ {
						for dx := -1; dx <= 1; dx++ {
							if dx == 0 && dy == 0 && dz == 0 {
								continue
							}
							n := grid.Index{I: x + dx, J: y + dy, K: z + dz}
							if isMaterial(n) != mat {
								surface = true
								break
							}
						}
					}
				}
				var f float32
				switch {
				case surface && mat:
					f = seed
				case surface && !mat:
					f = -seed
				case mat:
					f = sg.narrowBand
				default:
					f = -sg.narrowBand
				}
				sg.dist[sg.flatIndex(idx)] = f
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

func regionVoxelCount(min, max grid.Index) int {
	if grid.RegionEmpty(min, max) {
		return 0
	}
	return (max.I - min.I + 1) * (max.J - min.J + 1) * (max.K - min.K + 1)
}

// sweepRegion performs 2 iterations of the 8 direction combinations,
// restricted to [min,max], per spec.md §4.4 step 2.
func (sg *Grid) sweepRegion(min, max grid.Index) {
	for iter := 0; iter < 2; iter++ {
		for _, dir := range sweepDirections {
			sg.sweepPass(min, max, dir[0], dir[1], dir[2])
		}
	}
}

// sweepPass performs one axis-sign sweep over [min,max]. Z-slices are
// processed strictly in zDir order, one at a time: the z-neighbor
// reference therefore always reads an already-finalized slice. Within a
// slice, rows (fixed y, scanning x) are distributed across goroutines;
// each reads the y-neighbor from a snapshot taken at the start of the
// slice (oldSlice) rather than from a row a sibling goroutine might be
// updating concurrently, and writes into a private output buffer later
// copied back — so no two goroutines ever touch the same memory, and
// results never depend on scheduling.
func (sg *Grid) sweepPass(min, max grid.Index, xDir, yDir, zDir int) {
	dims := sg.g.Dims()
	res := sg.g.Resolution()
	stride := dims.I * dims.J
	skipBelow := surfaceSeedVox * res

	width := max.I - min.I + 1
	height := max.J - min.J + 1
	if width <= 0 || height <= 0 {
		return
	}
	oldSlice := make([]float32, dims.I*dims.J)
	outSlice := make([]float32, dims.I*dims.J)

	xs := axisOrder(min.I, max.I, xDir)
	ys := axisOrder(min.J, max.J, yDir)
	zs := axisOrder(min.K, max.K, zDir)

	for _, z := range zs {
		base := z * stride
		// Copy the whole XY slice, not just the rows inside the update
		// region: a row just outside [min.J,max.J] is still a legal
		// y-neighbor boundary condition and must read the grid's real
		// current value, not a zero-filled placeholder. (The x-neighbor,
		// by contrast, is only taken from inside [min.I,max.I].)
		copy(oldSlice, sg.dist[base:base+stride])
		copy(outSlice, oldSlice)

		runRow := func(y int) {
			rowBase := y * dims.I
			yn := y - yDir
			hasY := yn >= 0 && yn < dims.J
			yNeighborBase := yn * dims.I

			zn := z - zDir
			hasZ := zn >= 0 && zn < dims.K
			zBase := zn * stride

			for _, x := range xs {
				cur := oldSlice[rowBase+x]
				if math32.Abs(cur) < skipBelow {
					continue // already surface-accurate, spec.md step 2.
				}
				sign := float32(1)
				if cur < 0 {
					sign = -1
				}
				best := math32.Abs(cur)

				xn := x - xDir
				if xn >= min.I && xn <= max.I {
					nv := outSlice[rowBase+xn]
					if sameSign(nv, sign) {
						cand := math32.Abs(nv) + res
						if cand < best {
							best = cand
						}
					}
				}
				if hasY {
					nv := oldSlice[yNeighborBase+x]
					if sameSign(nv, sign) {
						cand := math32.Abs(nv) + res
						if cand < best {
							best = cand
						}
					}
				}
				if hasZ {
					nv := sg.dist[zBase+x]
					if sameSign(nv, sign) {
						cand := math32.Abs(nv) + res
						if cand < best {
							best = cand
						}
					}
				}
				if best > sg.narrowBand {
					best = sg.narrowBand
				}
				outSlice[rowBase+x] = sign * best
			}
		}

		if len(ys)*width < parallel.Threshold {
			for _, y := range ys {
				runRow(y)
			}
		} else {
			parallel.For(len(ys), func(lo, hi int) {
				for i := lo; i < hi; i++ {
					runRow(ys[i])
				}
			})
		}

		for y := min.J; y <= max.J; y++ {
			rowBase := y * dims.I
			copy(sg.dist[base+rowBase+min.I:base+rowBase+max.I+1], outSlice[rowBase+min.I:rowBase+max.I+1])
		}
	}
}

func sameSign(v, sign float32) bool {
	if sign > 0 {
		return v >= 0
	}
	return v < 0
}

// axisOrder returns [lo..hi] walked in the direction dir requests: dir>0
// ascending, dir<0 descending. Either way every index in [lo,hi] appears
// exactly once, so both orders visit the identical voxel set — only the
// causal (already-updated-neighbor) direction changes.
func axisOrder(lo, hi, dir int) []int {
	n := hi - lo + 1
	if n <= 0 {
		return nil
	}
	out := make([]int, n)
	if dir > 0 {
		for i := 0; i < n; i++ {
			out[i] = lo + i
		}
	} else {
		for i := 0; i < n; i++ {
			out[i] = hi - i
		}
	}
	return out
}
