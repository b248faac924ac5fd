package volume

import (
	"sync"

	"github.com/soypat/geometry/ms3"

	"github.com/nyarurato/millsim/grid"
)

// sparseNode is one node of the sparse voxel octree. A nil *sparseNode
// always means "this entire subcube is material" (spec.md §3: "a null
// child implies all material"), at every level including the root. A
// non-nil node with children == nil is a leaf carrying a single uniform
// value over its subcube; a non-nil node with children != nil is
// internal, and each of its 8 entries follows the same nil-means-material
// convention recursively.
type sparseNode struct {
	material bool
	children *[8]*sparseNode
}

// Sparse is the sparse-voxel-octree occupancy store. It trades the
// Dense store's O(1) random access for O(levels) access (one step per
// octree level, levels = log2 of the octree side) and
// memory proportional to the number of distinct regions, which matters
// once Nx*Ny*Nz exceeds about 10^6 voxels (spec.md §6, use_sparse).
//
// The whole tree is protected by a single mutex: unlike the dense
// bitmap, where distinct voxels always live in independent machine
// words, an octree leaf spans a cube of voxels across all three axes,
// so two different Z-slices can share an ancestor node that a removal
// needs to split or merge. Splitting that safely across goroutines would
// need per-node locking for a module this size; instead, membership
// testing against the removal primitive (the expensive part) is
// parallelized across Z exactly as in Dense, and the resulting edits are
// applied to the tree in a single sequential pass protected by mu.
type Sparse struct {
	mu       sync.Mutex
	g        grid.Grid
	root     *sparseNode
	level    int // 2^level is the octree's cube side length
	notif    notifier
}

// NewSparse constructs a Sparse store fully filled with material.
func NewSparse(g grid.Grid) *Sparse {
	dims := g.Dims()
	maxDim := dims.I
	if dims.J > maxDim {
		maxDim = dims.J
	}
	if dims.K > maxDim {
		maxDim = dims.K
	}
	level := 0
	for (1 << uint(level)) < maxDim {
		level++
	}
	return &Sparse{g: g, level: level}
}

func (s *Sparse) Grid() grid.Grid { return s.g }

func (s *Sparse) octreeSide() int { return 1 << uint(s.level) }

func getRec(n *sparseNode, idx, lo grid.Index, size int) bool {
	if n == nil {
		return true
	}
	if n.children == nil {
		return n.material
	}
	half := size / 2
	octant, childLo := octantFor(idx, lo, half)
	return getRec(n.children[octant], idx, childLo, half)
}

func octantFor(idx, lo grid.Index, half int) (octant int, childLo grid.Index) {
	childLo = lo
	if idx.I >= lo.I+half {
		octant |= 1
		childLo.I += half
	}
	if idx.J >= lo.J+half {
		octant |= 2
		childLo.J += half
	}
	if idx.K >= lo.K+half {
		octant |= 4
		childLo.K += half
	}
	return octant, childLo
}

// IsMaterial reports voxel occupancy; out-of-range indices are empty (V1).
func (s *Sparse) IsMaterial(idx grid.Index) bool {
	if !s.g.InBounds(idx) {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return getRec(s.root, idx, grid.Index{}, s.octreeSide())
}

func (s *Sparse) IsMaterialAtWorld(p ms3.Vec) bool {
	return s.IsMaterial(s.g.WorldToVoxel(p))
}

// CountMaterial walks the tree once, clipping every node's cube against
// the grid's actual (Nx,Ny,Nz) dims (which need not be a power of two,
// unlike the octree's own cube) and summing material volume directly —
// O(leaves), as spec.md §9's supplemental note requires, rather than
// O(Nx*Ny*Nz).
func (s *Sparse) CountMaterial() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	dims := s.g.Dims()
	return countMaterialRec(s.root, grid.Index{}, s.octreeSide(), dims)
}

func countMaterialRec(n *sparseNode, lo grid.Index, size int, dims grid.Index) uint64 {
	hiI, hiJ, hiK := lo.I+size, lo.J+size, lo.K+size
	if hiI > dims.I {
		hiI = dims.I
	}
	if hiJ > dims.J {
		hiJ = dims.J
	}
	if hiK > dims.K {
		hiK = dims.K
	}
	if hiI <= lo.I || hiJ <= lo.J || hiK <= lo.K {
		return 0
	}
	volume := uint64(hiI-lo.I) * uint64(hiJ-lo.J) * uint64(hiK-lo.K)
	if n == nil {
		return volume
	}
	if n.children == nil {
		if n.material {
			return volume
		}
		return 0
	}
	half := size / 2
	var sum uint64
	for oct := 0; oct < 8; oct++ {
		childLo := lo
		if oct&1 != 0 {
			childLo.I += half
		}
		if oct&2 != 0 {
			childLo.J += half
		}
		if oct&4 != 0 {
			childLo.K += half
		}
		sum += countMaterialRec(n.children[oct], childLo, half, dims)
	}
	return sum
}

// setRec sets idx to material within the subtree rooted at *np (covering
// [lo, lo+size) on each axis), splitting or merging nodes as needed.
// Reports whether the voxel's value actually changed.
func setRec(np **sparseNode, idx, lo grid.Index, size int, material bool) bool {
	n := *np
	if size == 1 {
		cur := true
		if n != nil {
			cur = n.material
		}
		if cur == material {
			return false
		}
		if material {
			*np = nil
		} else {
			*np = &sparseNode{material: false}
		}
		return true
	}

	uniform, uniformVal := true, true
	if n != nil {
		if n.children == nil {
			uniformVal = n.material
		} else {
			uniform = false
		}
	}
	if uniform && uniformVal == material {
		return false
	}

	if n == nil || n.children == nil {
		// Split into 8 children preserving the current uniform value. A
		// material=true leaf can represent its children as all-nil (the
		// nil convention already means material); a material=false leaf
		// must instantiate explicit false leaves, since nil would wrongly
		// mean material.
		children := &[8]*sparseNode{}
		if !uniformVal {
			for i := range children {
				children[i] = &sparseNode{material: false}
			}
		}
		n = &sparseNode{children: children}
		*np = n
	}

	half := size / 2
	octant, childLo := octantFor(idx, lo, half)
	changed := setRec(&n.children[octant], idx, childLo, half, material)
	if changed {
		mergeIfUniform(n)
		if n.children == nil && n.material {
			*np = nil
		}
	}
	return changed
}

// mergeIfUniform collapses n's 8 children back into a single leaf if
// they all agree (nil counts as material=true).
func mergeIfUniform(n *sparseNode) {
	if n.children == nil {
		return
	}
	children := n.children
	first := true
	var val bool
	for _, c := range children {
		var cv bool
		if c == nil {
			cv = true
		} else if c.children == nil {
			cv = c.material
		} else {
			return // internal child: cannot merge
		}
		if first {
			val = cv
			first = false
		} else if cv != val {
			return
		}
	}
	n.children = nil
	n.material = val
}

func (s *Sparse) Subscribe(fn ChangeFunc) Subscription { return s.notif.subscribe(fn) }

// Set writes a single voxel, firing a single-voxel change event if it
// actually changed.
func (s *Sparse) Set(idx grid.Index, material bool) {
	if !s.g.InBounds(idx) {
		return
	}
	s.mu.Lock()
	changed := setRec(&s.root, idx, grid.Index{}, s.octreeSide(), material)
	s.mu.Unlock()
	if changed {
		s.notif.fire(idx, idx)
	}
}

// Clear restores every voxel to material.
func (s *Sparse) Clear() {
	s.mu.Lock()
	wasEmpty := s.root == nil
	s.root = nil
	s.mu.Unlock()
	if wasEmpty {
		return
	}
	dims := s.g.Dims()
	if dims.I == 0 {
		return
	}
	s.notif.fire(grid.Index{}, grid.Index{I: dims.I - 1, J: dims.J - 1, K: dims.K - 1})
}

func (s *Sparse) RemoveSphere(center ms3.Vec, radius float32) {
	min, max := sphereAABB(s.g, center, radius)
	s.removeWhere(min, max, func(p ms3.Vec) bool {
		return insideSphere(p, center, radius)
	})
}

func (s *Sparse) RemoveCylinder(start, end ms3.Vec, radius float32, flatEnds bool) {
	if segmentIsDegenerate(start, end) {
		s.RemoveSphere(start, radius)
		return
	}
	min, max := cylinderAABB(s.g, start, end, radius)
	s.removeWhere(min, max, func(p ms3.Vec) bool {
		return insideCylinder(p, start, end, radius, flatEnds)
	})
}

// removeWhere parallelizes the (read-only, embarrassingly-parallel)
// membership test across Z slices, then applies the resulting voxel
// edits to the tree in a single sequential, mutex-protected pass.
func (s *Sparse) removeWhere(min, max grid.Index, test func(p ms3.Vec) bool) {
	if grid.RegionEmpty(min, max) {
		return
	}
	type hit struct{ idx grid.Index }
	nSlices := max.K - min.K + 1
	hitsPerSlice := make([][]hit, nSlices)
	forEachZSlice(min, max, func(z int) {
		var hits []hit
		for y := min.J; y <= max.J; y++ {
			for x := min.I; x <= max.I; x++ {
				idx := grid.Index{I: x, J: y, K: z}
				if test(s.g.VoxelCenterWorld(idx)) {
					hits = append(hits, hit{idx})
				}
			}
		}
		hitsPerSlice[z-min.K] = hits
	})

	s.mu.Lock()
	var anyChanged bool
	for _, hits := range hitsPerSlice {
		for _, h := range hits {
			if setRec(&s.root, h.idx, grid.Index{}, s.octreeSide(), false) {
				anyChanged = true
			}
		}
	}
	s.mu.Unlock()

	if anyChanged {
		s.notif.fire(min, max)
	}
}
