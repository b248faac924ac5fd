package mesh

import (
	"math"
	"testing"

	"github.com/soypat/geometry/ms3"

	"github.com/nyarurato/millsim/grid"
	"github.com/nyarurato/millsim/sdfgrid"
	"github.com/nyarurato/millsim/volume"
)

func newTestGrid(t *testing.T, dim, res float32) grid.Grid {
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

func checkInvariant7(t *testing.T, m Mesh) {
	t.Helper()
	if len(m.Indices)%3 != 0 {
		t.Fatalf("indices length %d not a multiple of 3", len(m.Indices))
	}
	for _, idx := range m.Indices {
		if int(idx) >= len(m.Positions) {
			t.Fatalf("index %d out of range for %d positions", idx, len(m.Positions))
		}
	}
}

func TestExtractFromVolumeShellClosureScenario5(t *testing.T) {
	g := newTestGrid(t, 10, 1.0) // 10^3, no removals (full stock)
	vs := volume.NewDense(g)
	m := ExtractFromVolume(vs)
	checkInvariant7(t, m)
	if len(m.Positions) == 0 || m.NumTriangles() == 0 {
		t.Fatal("mesh of an unmodified cube of stock must be non-empty")
	}
	if m.NumTriangles() <= 100 {
		t.Fatalf("expected >100 triangles for a 10^3 cube's 6 faces, got %d", m.NumTriangles())
	}
	bounds := g.Bounds()
	checkPlaneCoverage(t, m, bounds, g.Resolution())
}

func TestExtractFromSDFShellClosureScenario5(t *testing.T) {
	g := newTestGrid(t, 10, 1.0)
	vs := volume.NewDense(g)
	sg := sdfgrid.FromVolumeStore(vs, sdfgrid.WithNarrowBandVoxels(10))
	m := ExtractFromSDF(sg)
	checkInvariant7(t, m)
	if len(m.Positions) == 0 {
		t.Fatal("expected a non-empty mesh for an unmodified cube of stock")
	}
	if m.NumTriangles() <= 100 {
		t.Fatalf("expected >100 triangles, got %d", m.NumTriangles())
	}
	bounds := g.Bounds()
	checkPlaneCoverage(t, m, bounds, g.Resolution())
}

// checkPlaneCoverage verifies invariant 5: every one of the 6 grid-
// bounding planes has at least one mesh vertex within 1.25*r of it.
func checkPlaneCoverage(t *testing.T, m Mesh, bounds ms3.Box, r float32) {
	t.Helper()
	tol := 1.25 * r
	near := func(sel func(ms3.Vec) float32, plane float32) bool {
		for _, p := range m.Positions {
			if math.Abs(float64(sel(p)-plane)) <= float64(tol) {
				return true
			}
		}
		return false
	}
	checks := []struct {
		name  string
		sel   func(ms3.Vec) float32
		plane float32
	}{
		{"minX", func(v ms3.Vec) float32 { return v.X }, bounds.Min.X},
		{"maxX", func(v ms3.Vec) float32 { return v.X }, bounds.Max.X},
		{"minY", func(v ms3.Vec) float32 { return v.Y }, bounds.Min.Y},
		{"maxY", func(v ms3.Vec) float32 { return v.Y }, bounds.Max.Y},
		{"minZ", func(v ms3.Vec) float32 { return v.Z }, bounds.Min.Z},
		{"maxZ", func(v ms3.Vec) float32 { return v.Z }, bounds.Max.Z},
	}
	for _, c := range checks {
		if !near(c.sel, c.plane) {
			t.Errorf("no mesh vertex within %g of the %s plane", tol, c.name)
		}
	}
}

// TestWindingAgreesWithGradientInvariant6 exercises invariant 6: for
// every SDF-extracted triangle, the geometric face normal agrees with
// the average vertex gradient normal (the negated SDF gradient at each
// vertex, which points from material into empty).
func TestWindingAgreesWithGradientInvariant6(t *testing.T) {
	g := newTestGrid(t, 20, 1.0)
	vs := volume.NewDense(g)
	vs.RemoveSphere(ms3.Vec{}, 6)
	sg := sdfgrid.FromVolumeStore(vs)
	m := ExtractFromSDF(sg)
	if m.NumTriangles() == 0 {
		t.Fatal("expected a non-empty mesh for a sphere cut into stock")
	}
	for i := 0; i < len(m.Indices); i += 3 {
		i0, i1, i2 := m.Indices[i], m.Indices[i+1], m.Indices[i+2]
		v0, v1, v2 := m.Positions[i0], m.Positions[i1], m.Positions[i2]
		n0 := ms3.Scale(-1, sg.GradientAtWorld(v0))
		n1 := ms3.Scale(-1, sg.GradientAtWorld(v1))
		n2 := ms3.Scale(-1, sg.GradientAtWorld(v2))
		nface := cross(ms3.Sub(v1, v0), ms3.Sub(v2, v0))
		if ms3.Norm(nface) < 1e-9 {
			continue
		}
		avg := ms3.Add(ms3.Add(n0, n1), n2)
		if ms3.Norm(avg) < 1e-9 {
			continue
		}
		if ms3.Dot(ms3.Unit(nface), ms3.Unit(avg)) < -1e-3 {
			t.Fatalf("triangle winding disagrees with averaged vertex normal at indices %d,%d,%d", i0, i1, i2)
		}
	}
}

func TestExtractFromVolumeFaceExtrusionAfterSphereCut(t *testing.T) {
	g := newTestGrid(t, 20, 1.0)
	vs := volume.NewDense(g)
	vs.RemoveSphere(ms3.Vec{}, 6)
	m := ExtractFromVolume(vs)
	checkInvariant7(t, m)
	if m.NumTriangles() == 0 {
		t.Fatal("expected a non-empty mesh after a sphere cut")
	}
}

// TestNoNaNInMesh exercises the NaN failure mode: no output triangle may
// reference a NaN vertex or normal.
func TestNoNaNInMesh(t *testing.T) {
	g := newTestGrid(t, 10, 1.0)
	vs := volume.NewDense(g)
	vs.RemoveSphere(ms3.Vec{}, 3)
	sg := sdfgrid.FromVolumeStore(vs)
	m := ExtractFromSDF(sg)
	for _, p := range m.Positions {
		if math.IsNaN(float64(p.X)) || math.IsNaN(float64(p.Y)) || math.IsNaN(float64(p.Z)) {
			t.Fatal("mesh contains a NaN position")
		}
	}
	for _, n := range m.Normals {
		if math.IsNaN(float64(n.X)) || math.IsNaN(float64(n.Y)) || math.IsNaN(float64(n.Z)) {
			t.Fatal("mesh contains a NaN normal")
		}
	}
}

func TestExtractViaSDFConvenience(t *testing.T) {
	g := newTestGrid(t, 10, 1.0)
	vs := volume.NewDense(g)
	vs.RemoveSphere(ms3.Vec{}, 3)
	m := ExtractViaSDF(vs, 10)
	checkInvariant7(t, m)
	if m.NumTriangles() == 0 {
		t.Fatal("expected a non-empty mesh")
	}
}

func TestDualContouringNonEmptyAfterCut(t *testing.T) {
	g := newTestGrid(t, 10, 1.0)
	vs := volume.NewDense(g)
	vs.RemoveSphere(ms3.Vec{}, 3)
	sg := sdfgrid.FromVolumeStore(vs)
	m := ExtractDualContouring(sg)
	checkInvariant7(t, m)
	if m.NumTriangles() == 0 {
		t.Fatal("expected dual contouring to produce a non-empty mesh after a sphere cut")
	}
}

// TestRoundTripVolumeMatchesSDFInvariant8 checks invariant 8:
// face-extrusion and SDF-based extraction of the same cut stock must
// both enclose a positive volume, computed with the divergence-theorem
// integral in signedVolume, and the two volumes must differ by at most
// 5% of the larger one.
func TestRoundTripVolumeMatchesSDFInvariant8(t *testing.T) {
	g := newTestGrid(t, 20, 1.0)
	vs := volume.NewDense(g)
	vs.RemoveSphere(ms3.Vec{}, 6)

	mVol := ExtractFromVolume(vs)
	mSDF := ExtractViaSDF(vs, 10)

	volA := signedVolume(mVol)
	volB := signedVolume(mSDF)
	if volA <= 0 || volB <= 0 {
		t.Fatalf("expected positive enclosed volume, got %g and %g", volA, volB)
	}
	diff := math.Abs(float64(volA - volB))
	if diff > 0.05*math.Max(float64(volA), float64(volB)) {
		t.Fatalf("enclosed volumes differ by more than 5%%: %g vs %g", volA, volB)
	}
}

// signedVolume computes the mesh's enclosed volume via the divergence
// theorem: sum over triangles of dot(v0, cross(v1,v2))/6.
func signedVolume(m Mesh) float32 {
	var total float32
	for i := 0; i+2 < len(m.Indices); i += 3 {
		v0 := m.Positions[m.Indices[i]]
		v1 := m.Positions[m.Indices[i+1]]
		v2 := m.Positions[m.Indices[i+2]]
		total += ms3.Dot(v0, cross(v1, v2))
	}
	return total / 6
}
