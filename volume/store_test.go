package volume

import (
	"math"
	"testing"

	"github.com/soypat/geometry/ms3"

	"github.com/nyarurato/millsim/grid"
)

func newTestGrid(t *testing.T) grid.Grid {
	t.Helper()
	g, err := grid.New(ms3.Box{
		Min: ms3.Vec{X: -10, Y: -10, Z: -10},
		Max: ms3.Vec{X: 10, Y: 10, Z: 10},
	}, 1.0)
	if err != nil {
		t.Fatal(err)
	}
	return g
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	g := newTestGrid(t)
	return map[string]Store{
		"dense":  NewDense(g),
		"sparse": NewSparse(g),
	}
}

func TestClearRestoresFullCount(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			s.RemoveSphere(ms3.Vec{}, 3)
			s.Clear()
			want := uint64(20 * 20 * 20)
			if got := s.CountMaterial(); got != want {
				t.Fatalf("count = %d, want %d", got, want)
			}
		})
	}
}

func TestRemoveSphereScenario1(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			before := s.CountMaterial()
			s.RemoveSphere(ms3.Vec{}, 3.0)
			after := s.CountMaterial()
			removed := before - after
			// The continuous sphere volume is ~113.1, but removal is by
			// voxel center: centers lie on the half-integer lattice
			// (coordinates in {±0.5, ±1.5, ±2.5} here), and exactly
			// 17 sign-free combinations x 8 sign choices = 136 of them
			// are within distance 3 of the origin.
			if removed != 136 {
				t.Fatalf("removed = %d voxels, want 136", removed)
			}
			if s.IsMaterialAtWorld(ms3.Vec{}) {
				t.Fatal("center should be empty")
			}
			if !s.IsMaterial(grid.Index{I: 0, J: 0, K: 0}) {
				t.Fatal("far corner voxel (0,0,0) should remain material")
			}
		})
	}
}

func TestRemoveSphereInvariant2(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			center := ms3.Vec{X: 2, Y: -1, Z: 0.5}
			r := float32(4)
			s.RemoveSphere(center, r)
			g := newTestGrid(t)
			dims := g.Dims()
			sqrt3 := float32(math.Sqrt(3))
			for i := 0; i < dims.I; i++ {
				for j := 0; j < dims.J; j++ {
					for k := 0; k < dims.K; k++ {
						idx := grid.Index{I: i, J: j, K: k}
						p := g.VoxelCenterWorld(idx)
						d := ms3.Norm(ms3.Sub(p, center))
						mat := s.IsMaterial(idx)
						if d <= r && mat {
							t.Fatalf("voxel %+v within radius but still material", idx)
						}
						if d > r+sqrt3*1.0 && !mat {
							t.Fatalf("voxel %+v far outside radius but removed", idx)
						}
					}
				}
			}
		})
	}
}

func TestRemoveCylinderFlatTool(t *testing.T) {
	g, err := grid.New(ms3.Box{Min: ms3.Vec{X: -5, Y: -5, Z: -5}, Max: ms3.Vec{X: 5, Y: 5, Z: 5}}, 1.0)
	if err != nil {
		t.Fatal(err)
	}
	for name, s := range map[string]Store{"dense": NewDense(g), "sparse": NewSparse(g)} {
		t.Run(name, func(t *testing.T) {
			s.RemoveCylinder(ms3.Vec{X: -2}, ms3.Vec{X: 2}, 1, true)
			if s.IsMaterialAtWorld(ms3.Vec{}) {
				t.Fatal("(0,0,0) should be empty")
			}
			if !s.IsMaterialAtWorld(ms3.Vec{X: 3.5}) {
				t.Fatal("(3.5,0,0) should remain material (beyond flat end)")
			}
			if !s.IsMaterialAtWorld(ms3.Vec{Y: 2}) {
				t.Fatal("(0,2,0) should remain material (beyond radius)")
			}
		})
	}
}

func TestRemoveCylinderBallTool(t *testing.T) {
	g, err := grid.New(ms3.Box{Min: ms3.Vec{X: -5, Y: -5, Z: -5}, Max: ms3.Vec{X: 5, Y: 5, Z: 5}}, 1.0)
	if err != nil {
		t.Fatal(err)
	}
	for name, s := range map[string]Store{"dense": NewDense(g), "sparse": NewSparse(g)} {
		t.Run(name, func(t *testing.T) {
			s.RemoveCylinder(ms3.Vec{X: -2}, ms3.Vec{X: 2}, 1, false)
			if s.IsMaterialAtWorld(ms3.Vec{X: 2.5}) {
				t.Fatal("(2.5,0,0) should be empty within the capsule cap")
			}
			if !s.IsMaterialAtWorld(ms3.Vec{X: 3.5}) {
				t.Fatal("(3.5,0,0) should remain material")
			}
		})
	}
}

func TestRemoveCylinderDegenerateFallsBackToSphere(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			s.RemoveCylinder(ms3.Vec{X: 1}, ms3.Vec{X: 1 + 1e-8}, 2, true)
			if s.IsMaterialAtWorld(ms3.Vec{X: 1}) {
				t.Fatal("degenerate cylinder should remove a sphere at start")
			}
		})
	}
}

func TestEveryMutatorFiresOneEvent(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			var calls int
			sub := s.Subscribe(func(min, max grid.Index) { calls++ })
			defer sub.Unsubscribe()

			s.RemoveSphere(ms3.Vec{}, 2)
			if calls != 1 {
				t.Fatalf("RemoveSphere fired %d events, want 1", calls)
			}
			calls = 0

			s.RemoveCylinder(ms3.Vec{X: -3}, ms3.Vec{X: 3}, 1, true)
			if calls != 1 {
				t.Fatalf("RemoveCylinder fired %d events, want 1", calls)
			}
			calls = 0

			s.Set(grid.Index{I: 5, J: 5, K: 5}, false)
			if calls != 1 {
				t.Fatalf("Set fired %d events, want 1", calls)
			}
			calls = 0

			s.Clear()
			if calls != 1 {
				t.Fatalf("Clear fired %d events, want 1", calls)
			}
		})
	}
}

func TestMutatorNoOpFiresNoEvent(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			var calls int
			sub := s.Subscribe(func(min, max grid.Index) { calls++ })
			defer sub.Unsubscribe()

			// Setting an already-material voxel to material is a no-op.
			s.Set(grid.Index{I: 1, J: 1, K: 1}, true)
			if calls != 0 {
				t.Fatalf("no-op Set fired %d events, want 0", calls)
			}
		})
	}
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			var calls int
			sub := s.Subscribe(func(min, max grid.Index) { calls++ })
			sub.Unsubscribe()
			s.RemoveSphere(ms3.Vec{}, 2)
			if calls != 0 {
				t.Fatalf("calls after unsubscribe = %d, want 0", calls)
			}
			// Double-unsubscribe must not panic.
			sub.Unsubscribe()
		})
	}
}

func TestOutOfRangeIsEmpty(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			if s.IsMaterial(grid.Index{I: -1, J: 0, K: 0}) {
				t.Fatal("out-of-range index should read as empty")
			}
			if s.IsMaterial(grid.Index{I: 1000, J: 0, K: 0}) {
				t.Fatal("out-of-range index should read as empty")
			}
		})
	}
}

func TestDenseSparseAgree(t *testing.T) {
	g := newTestGrid(t)
	d := NewDense(g)
	s := NewSparse(g)
	d.RemoveSphere(ms3.Vec{X: 1, Y: -2}, 4)
	s.RemoveSphere(ms3.Vec{X: 1, Y: -2}, 4)
	d.RemoveCylinder(ms3.Vec{X: -3}, ms3.Vec{X: 3, Y: 2}, 1.5, false)
	s.RemoveCylinder(ms3.Vec{X: -3}, ms3.Vec{X: 3, Y: 2}, 1.5, false)

	if d.CountMaterial() != s.CountMaterial() {
		t.Fatalf("count mismatch: dense=%d sparse=%d", d.CountMaterial(), s.CountMaterial())
	}
	dims := g.Dims()
	for i := 0; i < dims.I; i += 3 {
		for j := 0; j < dims.J; j += 3 {
			for k := 0; k < dims.K; k += 3 {
				idx := grid.Index{I: i, J: j, K: k}
				if d.IsMaterial(idx) != s.IsMaterial(idx) {
					t.Fatalf("mismatch at %+v", idx)
				}
			}
		}
	}
}
