package sweep

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

// pointCutEps is the |p1-p0| threshold below which a linear motion
// degenerates to a point cut, per spec.md §4.3.
const pointCutEps = 1e-6

// Cut3Axis removes the volume swept by tool moving linearly from p0 to
// p1 with a fixed (vertical, +Z shaft) orientation, per spec.md §4.3's
// 3-axis decomposition: a tip cylinder, a shaft cylinder offset by the
// tool length along +Z, and n+1 bridging vertical cylinders connecting
// them.
func Cut3Axis(b Backend, tool Tool, p0, p1 ms3.Vec) {
	r := tool.Diameter() / 2
	if ms3.Norm(ms3.Sub(p1, p0)) < pointCutEps {
		pointCut(b, tool, p0, ms3.Vec{Z: 1})
		return
	}

	flatEnds := !tool.BallEnd()
	b.RemoveCylinder(p0, p1, r, flatEnds)

	shaft := ms3.Vec{Z: tool.Length()}
	b.RemoveCylinder(ms3.Add(p0, shaft), ms3.Add(p1, shaft), r, true)

	motion := ms3.Sub(p1, p0)
	dist := ms3.Norm(motion)
	n := bridgeCount(dist, r, b.Grid().Resolution())
	for i := 0; i <= n; i++ {
		t := float32(i) / float32(n)
		tip := ms3.Add(p0, ms3.Scale(t, motion))
		b.RemoveCylinder(tip, ms3.Add(tip, shaft), r, true)
	}
}

// Cut5Axis removes the volume swept by tool moving linearly from p0 to
// p1 while its orientation interpolates linearly from o0 to o1, per
// spec.md §4.3's 5-axis decomposition: a sequence of tip-sphere +
// shaft-cylinder removals at interpolated steps along the motion.
func Cut5Axis(b Backend, tool Tool, p0, p1 ms3.Vec, o0, o1 Orientation) {
	r := tool.Diameter() / 2
	if ms3.Norm(ms3.Sub(p1, p0)) < pointCutEps {
		// The shaft runs opposite to the tool direction, as in the loop
		// below (shaftEnd = tip - L*d).
		pointCut(b, tool, p0, ms3.Scale(-1, o0.Direction()))
		return
	}

	motion := ms3.Sub(p1, p0)
	dist := ms3.Norm(motion)
	steps := int(math32.Ceil(dist / (2.5 * r)))
	if steps < 1 {
		steps = 1
	}

	for i := 0; i <= steps; i++ {
		t := float32(i) / float32(steps)
		tip := ms3.Add(p0, ms3.Scale(t, motion))
		o := lerpOrientation(o0, o1, t)
		d := o.Direction()
		shaftEnd := ms3.Sub(tip, ms3.Scale(tool.Length(), d))
		b.RemoveSphere(tip, r)
		b.RemoveCylinder(tip, shaftEnd, r, true)
	}
}

// pointCut handles a zero-length motion: a tip sphere plus a single
// shaft cylinder along dir, per spec.md §4.3.
func pointCut(b Backend, tool Tool, tip ms3.Vec, dir ms3.Vec) {
	r := tool.Diameter() / 2
	b.RemoveSphere(tip, r)
	shaftEnd := ms3.Add(tip, ms3.Scale(tool.Length(), dir))
	b.RemoveCylinder(tip, shaftEnd, r, true)
}

// bridgeCount computes n = max(2, ceil(dist / min(R/2, 2r))) from
// spec.md §4.3 step 3, where R is the tool radius and r is the grid
// resolution.
func bridgeCount(dist, toolRadius, resolution float32) int {
	step := toolRadius / 2
	if alt := 2 * resolution; alt < step {
		step = alt
	}
	n := int(math32.Ceil(dist / step))
	if n < 2 {
		n = 2
	}
	return n
}
