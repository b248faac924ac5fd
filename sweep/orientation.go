package sweep

import "github.com/soypat/geometry/ms3"

// Orientation holds the Euler angles (radians, intrinsic Z then Y then
// X) of a 5-axis tool attitude relative to the default spindle-down
// pose.
type Orientation struct {
	Z, Y, X float32
}

// Direction returns the unit vector the tool points along: the default
// -Z axis rotated first by Z, then by Y, then by X.
func (o Orientation) Direction() ms3.Vec {
	v := ms3.Vec{Z: -1}
	v = ms3.RotationMat4(o.Z, ms3.Vec{Z: 1}).MulPosition(v)
	v = ms3.RotationMat4(o.Y, ms3.Vec{Y: 1}).MulPosition(v)
	v = ms3.RotationMat4(o.X, ms3.Vec{X: 1}).MulPosition(v)
	return v
}

// lerpOrientation linearly interpolates Euler angles component-wise;
// spec.md §4.3 calls for "tool orientation o(t) interpolated linearly
// between endpoints", so no quaternion slerp is required here.
func lerpOrientation(a, b Orientation, t float32) Orientation {
	return Orientation{
		Z: a.Z + t*(b.Z-a.Z),
		Y: a.Y + t*(b.Y-a.Y),
		X: a.X + t*(b.X-a.X),
	}
}
