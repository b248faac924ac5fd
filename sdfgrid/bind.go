package sdfgrid

import (
	"github.com/chewxy/math32"

	"github.com/nyarurato/millsim/grid"
	"github.com/nyarurato/millsim/volume"
)

// BindToVolumeStore registers this Grid for vs's change events
// (spec.md §9's "cyclic references" note: a weak link, no ownership
// transfer). Each event dilates the changed region by
// ceil(narrowBand/resolution) voxels, clamps to the grid, and re-runs
// initialization + sweeping restricted to that subregion — the event
// callback runs synchronously on the mutating goroutine, so by the time
// BindToVolumeStore's caller's mutator call returns, this Grid already
// reflects it.
//
// Binding a Grid that is already bound first unbinds the previous
// subscription.
func (sg *Grid) BindToVolumeStore(vs volume.Store) {
	sg.Unbind()
	sg.bound = vs
	sg.boundOn = vs.Subscribe(func(min, max grid.Index) {
		sg.recomputeRegion(vs.IsMaterial, sg.dilate(min, max))
	})
}

// Unbind releases the change-event subscription, if any. The Volume
// Store is unaffected; it never held a reference to this Grid beyond the
// subscriber list entry Unbind just removed.
func (sg *Grid) Unbind() {
	if sg.bound == nil {
		return
	}
	sg.boundOn.Unsubscribe()
	sg.bound = nil
	sg.boundOn = volume.Subscription{}
}

// Bound reports whether this Grid is currently bound to a Volume Store.
func (sg *Grid) Bound() bool { return sg.bound != nil }

// dilate grows [min,max] by ceil(narrowBand/resolution) voxels per axis
// and clamps to the grid, per spec.md §4.4's region-update rule.
func (sg *Grid) dilate(min, max grid.Index) (grid.Index, grid.Index) {
	d := int(math32.Ceil(sg.narrowBand / sg.g.Resolution()))
	min.I -= d
	min.J -= d
	min.K -= d
	max.I += d
	max.J += d
	max.K += d
	return sg.g.ClampRegion(min, max)
}
