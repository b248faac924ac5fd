package sweep

import (
	"testing"

	"github.com/soypat/geometry/ms3"

	"github.com/nyarurato/millsim/grid"
	"github.com/nyarurato/millsim/volume"
)

func newTestGrid(t *testing.T, dim float32, res float32) grid.Grid {
	t.Helper()
	g, err := grid.New(ms3.Box{
		Min: ms3.Vec{X: -dim / 2, Y: -dim / 2, Z: -dim / 2},
		Max: ms3.Vec{X: dim / 2, Y: dim / 2, Z: dim / 2},
	}, res)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func TestFlatRadiusAtHeight(t *testing.T) {
	f := Flat{D: 4, L: 10}
	if f.RadiusAtHeight(0) != 2 || f.RadiusAtHeight(10) != 2 {
		t.Fatal("flat tool radius must be constant across its length")
	}
	if f.RadiusAtHeight(-1) != 0 || f.RadiusAtHeight(11) != 0 {
		t.Fatal("flat tool radius must be 0 outside [0,L]")
	}
}

func TestBallRadiusAtHeight(t *testing.T) {
	b := Ball{D: 4, L: 10}
	if got := b.RadiusAtHeight(0); got != 0 {
		t.Fatalf("ball tip radius at h=0 = %g, want 0", got)
	}
	if got := b.RadiusAtHeight(2); got != 2 {
		t.Fatalf("ball radius at h=r(=2) = %g, want 2", got)
	}
	if got := b.RadiusAtHeight(5); got != 2 {
		t.Fatalf("ball shaft radius at h=5 = %g, want 2", got)
	}
	if got := b.RadiusAtHeight(1); got <= 0 || got >= 2 {
		t.Fatalf("ball radius at h=1 (inside hemisphere) = %g, want in (0,2)", got)
	}
}

func TestOrientationDefaultDirection(t *testing.T) {
	o := Orientation{}
	d := o.Direction()
	want := ms3.Vec{Z: -1}
	if ms3.Norm(ms3.Sub(d, want)) > 1e-4 {
		t.Fatalf("default orientation direction = %+v, want %+v", d, want)
	}
}

// TestCut3AxisLinearFlatToolScenario2 mirrors spec.md §8 Scenario 2.
func TestCut3AxisLinearFlatToolScenario2(t *testing.T) {
	g := newTestGrid(t, 10, 1.0)
	vs := volume.NewDense(g)
	tool := Flat{D: 2, L: 5} // radius 1
	Cut3Axis(vs, tool, ms3.Vec{X: -2}, ms3.Vec{X: 2})

	if vs.IsMaterialAtWorld(ms3.Vec{}) {
		t.Fatal("voxel at origin should have been cut away")
	}
	if !vs.IsMaterialAtWorld(ms3.Vec{X: 3.5}) {
		t.Fatal("voxel at (3.5,0,0) is outside the cut path and should remain material")
	}
	if !vs.IsMaterialAtWorld(ms3.Vec{Y: 2}) {
		t.Fatal("voxel at (0,2,0) is beyond tool radius and should remain material")
	}
}

// TestCut3AxisLinearBallToolScenario3 mirrors spec.md §8 Scenario 3.
func TestCut3AxisLinearBallToolScenario3(t *testing.T) {
	g := newTestGrid(t, 10, 1.0)
	vs := volume.NewDense(g)
	tool := Ball{D: 2, L: 5} // radius 1
	Cut3Axis(vs, tool, ms3.Vec{X: -2}, ms3.Vec{X: 2})

	if vs.IsMaterialAtWorld(ms3.Vec{X: 2.5}) {
		t.Fatal("voxel at (2.5,0,0) should be cut away by the ball tool's rounded cap")
	}
	if !vs.IsMaterialAtWorld(ms3.Vec{X: 3.5}) {
		t.Fatal("voxel at (3.5,0,0) is beyond the capsule and should remain material")
	}
}

func TestCut3AxisRemovesMaterialAlongShaft(t *testing.T) {
	g := newTestGrid(t, 10, 1.0)
	vs := volume.NewDense(g)
	tool := Flat{D: 2, L: 3}
	before := vs.CountMaterial()
	Cut3Axis(vs, tool, ms3.Vec{X: -2}, ms3.Vec{X: 2})
	after := vs.CountMaterial()
	if after >= before {
		t.Fatalf("cut removed no material: before=%d after=%d", before, after)
	}
	// Shaft extends from z=0 to z=L along +Z from the tip path, so a
	// point directly above the cut at z=1.5 (within [0,L]) must also be
	// cut away by the shaft sweep.
	if vs.IsMaterialAtWorld(ms3.Vec{Z: 1.5}) {
		t.Fatal("shaft sweep should have removed material above the tip path")
	}
}

func TestPointCutRemovesTipAndShaft(t *testing.T) {
	g := newTestGrid(t, 10, 1.0)
	vs := volume.NewDense(g)
	tool := Flat{D: 2, L: 3}
	Cut3Axis(vs, tool, ms3.Vec{}, ms3.Vec{}) // zero-length motion: point cut
	if vs.IsMaterialAtWorld(ms3.Vec{}) {
		t.Fatal("point cut should remove material at the tip")
	}
	if vs.IsMaterialAtWorld(ms3.Vec{Z: 2}) {
		t.Fatal("point cut's vertical shaft should remove material above the tip")
	}
}

func TestCut5AxisRemovesAlongInterpolatedOrientation(t *testing.T) {
	g := newTestGrid(t, 10, 1.0)
	vs := volume.NewDense(g)
	tool := Ball{D: 2, L: 3}
	before := vs.CountMaterial()
	Cut5Axis(vs, tool, ms3.Vec{X: -2}, ms3.Vec{X: 2}, Orientation{}, Orientation{})
	after := vs.CountMaterial()
	if after >= before {
		t.Fatalf("5-axis cut removed no material: before=%d after=%d", before, after)
	}
	if vs.IsMaterialAtWorld(ms3.Vec{}) {
		t.Fatal("tip path of a straight 5-axis cut should remove material at the origin")
	}
}

func TestBridgeCount(t *testing.T) {
	if n := bridgeCount(10, 1, 1); n < 2 {
		t.Fatalf("bridgeCount must be at least 2, got %d", n)
	}
	if n := bridgeCount(0.01, 1, 1); n != 2 {
		t.Fatalf("bridgeCount for a tiny motion should floor to 2, got %d", n)
	}
}

// TestBackendAcceptsVolumeStore verifies volume.Store satisfies Backend
// structurally (no adapter required).
func TestBackendAcceptsVolumeStore(t *testing.T) {
	g := newTestGrid(t, 10, 1.0)
	var _ Backend = volume.NewDense(g)
	var _ Backend = volume.NewSparse(g)
}
