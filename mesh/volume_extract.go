package mesh

import (
	"github.com/soypat/geometry/ms3"

	"github.com/nyarurato/millsim/grid"
	"github.com/nyarurato/millsim/internal/parallel"
	"github.com/nyarurato/millsim/volume"
)

// faceDir enumerates the six axis-aligned voxel face directions.
const (
	facePosX = iota
	faceNegX
	facePosY
	faceNegY
	facePosZ
	faceNegZ
)

var faceNeighbor = [6]grid.Index{
	facePosX: {I: 1}, faceNegX: {I: -1},
	facePosY: {J: 1}, faceNegY: {J: -1},
	facePosZ: {K: 1}, faceNegZ: {K: -1},
}

// faceCorners returns the 4 corners of voxel face dir (wound so that
// cross(p1-p0, p3-p0) points outward along that face's axis), for a
// voxel whose world AABB minimum corner is min and whose edge length
// is r.
func faceCorners(min ms3.Vec, r float32, dir int) [4]ms3.Vec {
	x0, y0, z0 := min.X, min.Y, min.Z
	x1, y1, z1 := x0+r, y0+r, z0+r
	switch dir {
	case facePosX:
		return [4]ms3.Vec{{X: x1, Y: y0, Z: z0}, {X: x1, Y: y1, Z: z0}, {X: x1, Y: y1, Z: z1}, {X: x1, Y: y0, Z: z1}}
	case faceNegX:
		return [4]ms3.Vec{{X: x0, Y: y0, Z: z0}, {X: x0, Y: y0, Z: z1}, {X: x0, Y: y1, Z: z1}, {X: x0, Y: y1, Z: z0}}
	case facePosY:
		return [4]ms3.Vec{{X: x0, Y: y1, Z: z0}, {X: x0, Y: y1, Z: z1}, {X: x1, Y: y1, Z: z1}, {X: x1, Y: y1, Z: z0}}
	case faceNegY:
		return [4]ms3.Vec{{X: x0, Y: y0, Z: z0}, {X: x1, Y: y0, Z: z0}, {X: x1, Y: y0, Z: z1}, {X: x0, Y: y0, Z: z1}}
	case facePosZ:
		return [4]ms3.Vec{{X: x0, Y: y0, Z: z1}, {X: x1, Y: y0, Z: z1}, {X: x1, Y: y1, Z: z1}, {X: x0, Y: y1, Z: z1}}
	default: // faceNegZ
		return [4]ms3.Vec{{X: x0, Y: y0, Z: z0}, {X: x0, Y: y1, Z: z0}, {X: x1, Y: y1, Z: z0}, {X: x1, Y: y0, Z: z0}}
	}
}

type faceJob struct {
	min ms3.Vec
	dir int
}

// ExtractFromVolume builds a mesh by face extrusion directly from a
// Volume Store (Mode A, spec.md §4.5): every face of a material voxel
// whose 6-neighbor is empty or out of grid becomes a quad, wound so its
// normal points from material into empty. Z-slices are scanned in
// parallel (per-slice job lists have no shared mutable state); the
// resulting jobs are merged into the deduplicated mesh sequentially, in
// slice order, so the merge itself stays deterministic.
func ExtractFromVolume(vs volume.Store) Mesh {
	g := vs.Grid()
	dims := g.Dims()
	r := g.Resolution()

	jobsPerSlice := make([][]faceJob, dims.K)
	genSlice := func(z int) {
		var jobs []faceJob
		for y := 0; y < dims.J; y++ {
			for x := 0; x < dims.I; x++ {
				idx := grid.Index{I: x, J: y, K: z}
				if !vs.IsMaterial(idx) {
					continue
				}
				min := g.VoxelAABBWorld(idx).Min
				for dir := 0; dir < 6; dir++ {
					n := faceNeighbor[dir]
					neighbor := grid.Index{I: x + n.I, J: y + n.J, K: z + n.K}
					if vs.IsMaterial(neighbor) {
						continue
					}
					jobs = append(jobs, faceJob{min: min, dir: dir})
				}
			}
		}
		jobsPerSlice[z] = jobs
	}

	if dims.K*dims.J*dims.I < parallel.Threshold {
		for z := 0; z < dims.K; z++ {
			genSlice(z)
		}
	} else {
		parallel.For(dims.K, func(lo, hi int) {
			for z := lo; z < hi; z++ {
				genSlice(z)
			}
		})
	}

	b := newBuilder()
	for z := 0; z < dims.K; z++ {
		for _, j := range jobsPerSlice[z] {
			c := faceCorners(j.min, r, j.dir)
			nface := cross(ms3.Sub(c[1], c[0]), ms3.Sub(c[3], c[0]))
			b.triangle(c[0], c[1], c[2], nface)
			b.triangle(c[0], c[2], c[3], nface)
		}
	}
	return b.finish()
}
