package sweep

import (
	"github.com/soypat/geometry/ms3"

	"github.com/nyarurato/millsim/grid"
)

// Backend is the sum type spec.md §9 calls CutterBackend = { Voxel |
// Sdf }: anything that can absorb a sphere or cylinder subtraction. A
// Go interface stands in for the closed variant since both the Volume
// Store and the SDF Engine already expose exactly this method set —
// there is no vtable to avoid, just duck typing over the two concrete
// mutation targets. Both volume.Store and sdfgrid.Grid satisfy this
// interface without any adapter; Grid is already part of both method
// sets, so exposing it here costs nothing and lets Cut3Axis read the
// grid resolution spec.md §4.3 step 3 needs.
type Backend interface {
	Grid() grid.Grid
	RemoveSphere(center ms3.Vec, radius float32)
	RemoveCylinder(start, end ms3.Vec, radius float32, flatEnds bool)
}
