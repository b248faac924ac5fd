// Package sdfgrid implements the SDF Engine component: a narrow-band
// signed distance field stored on a uniform grid, initialized by Fast
// Sweeping from a Volume Store (or filled directly for primitive-driven
// CSG workflows), with trilinear sampling, central-difference gradients,
// analytic primitive subtraction, and region-local recomputation driven
// by Volume Store change events.
package sdfgrid

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"

	"github.com/nyarurato/millsim/grid"
	"github.com/nyarurato/millsim/internal/fastmode"
	"github.com/nyarurato/millsim/volume"
)

// DefaultNarrowBandVoxels is the band half-width (in voxel counts)
// spec.md §6 names as the default for narrow_band_width.
const DefaultNarrowBandVoxels = 10

// Grid is the narrow-band signed-distance field. Sign convention (the
// only correct one, per spec.md §9): negative = empty/removed, positive
// = material. Values are stored and queried in world units, clamped to
// [-narrowBand, +narrowBand].
type Grid struct {
	g             grid.Grid
	dist          []float32
	narrowBand    float32 // world units
	narrowBandVox int
	fastMode      bool

	bound   volume.Store
	boundOn volume.Subscription
}

// Option configures Grid construction.
type Option func(*config)

type config struct {
	narrowBandVoxels int
	fastMode         bool
}

// WithNarrowBandVoxels overrides the default narrow-band half-width.
func WithNarrowBandVoxels(n int) Option {
	return func(c *config) { c.narrowBandVoxels = n }
}

// WithFastMode requests the coarse approximate solver even outside of
// MILLSIM_FAST_TESTS; the env var can only force it on, never off.
func WithFastMode(v bool) Option {
	return func(c *config) { c.fastMode = v }
}

func resolveConfig(opts []Option) config {
	c := config{narrowBandVoxels: DefaultNarrowBandVoxels}
	for _, o := range opts {
		o(&c)
	}
	if fastmode.Enabled() {
		c.fastMode = true
	}
	return c
}

func newGrid(g grid.Grid, c config) *Grid {
	return &Grid{
		g:             g,
		dist:          make([]float32, g.NumVoxels()),
		narrowBand:    float32(c.narrowBandVoxels) * g.Resolution(),
		narrowBandVox: c.narrowBandVoxels,
		fastMode:      c.fastMode,
	}
}

// Empty constructs an SDF grid for a fully-material ("empty stock" —
// nothing removed yet) workpiece: spec.md §4.4's second construction
// mode. No Fast Sweeping is necessary since the field is already
// uniform.
func Empty(g grid.Grid, opts ...Option) *Grid {
	sg := newGrid(g, resolveConfig(opts))
	for i := range sg.dist {
		sg.dist[i] = sg.narrowBand
	}
	return sg
}

// FromVolumeStore builds a full SDF by Fast Sweeping over vs's current
// occupancy (spec.md §4.4's first construction mode).
func FromVolumeStore(vs volume.Store, opts ...Option) *Grid {
	sg := newGrid(vs.Grid(), resolveConfig(opts))
	sg.recomputeFull(vs.IsMaterial)
	return sg
}

// Grid returns the underlying grid geometry.
func (sg *Grid) Grid() grid.Grid { return sg.g }

// NarrowBand returns the band half-width in world units.
func (sg *Grid) NarrowBand() float32 { return sg.narrowBand }

// FastMode reports whether this grid uses the coarse approximate solver.
func (sg *Grid) FastMode() bool { return sg.fastMode }

func (sg *Grid) flatIndex(idx grid.Index) int {
	dims := sg.g.Dims()
	return idx.I + idx.J*dims.I + idx.K*dims.I*dims.J
}

// DistanceAtIndex returns the signed distance at voxel (i,j,k). Indices
// outside the grid return a negative value whose magnitude is the
// clamped distance from that voxel's (extrapolated) center to the grid's
// bounding box (spec.md §4.4, query rule S4).
func (sg *Grid) DistanceAtIndex(idx grid.Index) float32 {
	if sg.g.InBounds(idx) {
		return sg.dist[sg.flatIndex(idx)]
	}
	center := sg.g.VoxelCenterWorld(idx)
	return -sg.g.DistanceToBounds(center)
}

// DistanceAtWorld trilinearly interpolates the signed distance at p
// across the 8 surrounding voxel indices.
func (sg *Grid) DistanceAtWorld(p ms3.Vec) float32 {
	res := sg.g.Resolution()
	rel := ms3.Sub(p, sg.g.Bounds().Min)
	// Voxel centers sit at (i+0.5)*res; continuous voxel coordinate of p:
	cx := rel.X/res - 0.5
	cy := rel.Y/res - 0.5
	cz := rel.Z/res - 0.5

	i0 := int(math32.Floor(cx))
	j0 := int(math32.Floor(cy))
	k0 := int(math32.Floor(cz))
	tx := cx - float32(i0)
	ty := cy - float32(j0)
	tz := cz - float32(k0)

	at := func(di, dj, dk int) float32 {
		return sg.DistanceAtIndex(grid.Index{I: i0 + di, J: j0 + dj, K: k0 + dk})
	}

	c000, c100 := at(0, 0, 0), at(1, 0, 0)
	c010, c110 := at(0, 1, 0), at(1, 1, 0)
	c001, c101 := at(0, 0, 1), at(1, 0, 1)
	c011, c111 := at(0, 1, 1), at(1, 1, 1)

	c00 := lerp(c000, c100, tx)
	c10 := lerp(c010, c110, tx)
	c01 := lerp(c001, c101, tx)
	c11 := lerp(c011, c111, tx)

	c0 := lerp(c00, c10, ty)
	c1 := lerp(c01, c11, ty)

	return lerp(c0, c1, tz)
}

func lerp(a, b, t float32) float32 { return a + t*(b-a) }

// GradientAtWorld estimates the SDF gradient at p via central
// differences with step h = resolution; if the result's magnitude is
// below 1e-6, it falls back to (0,1,0) per spec.md §4.4.
func (sg *Grid) GradientAtWorld(p ms3.Vec) ms3.Vec {
	h := sg.g.Resolution()
	gx := (sg.DistanceAtWorld(ms3.Add(p, ms3.Vec{X: h})) - sg.DistanceAtWorld(ms3.Sub(p, ms3.Vec{X: h}))) / (2 * h)
	gy := (sg.DistanceAtWorld(ms3.Add(p, ms3.Vec{Y: h})) - sg.DistanceAtWorld(ms3.Sub(p, ms3.Vec{Y: h}))) / (2 * h)
	gz := (sg.DistanceAtWorld(ms3.Add(p, ms3.Vec{Z: h})) - sg.DistanceAtWorld(ms3.Sub(p, ms3.Vec{Z: h}))) / (2 * h)
	v := ms3.Vec{X: gx, Y: gy, Z: gz}
	if ms3.Norm(v) < 1e-6 {
		return ms3.Vec{Y: 1}
	}
	return v
}
