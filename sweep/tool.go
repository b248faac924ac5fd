// Package sweep implements the Surface Sweep component: decomposing a
// linear tool motion into a sequence of primitive removals against
// either a Volume Store or an SDF Engine.
package sweep

import "github.com/chewxy/math32"

// Tool is the tagged union of cutter shapes this module understands:
// a flat (square) end mill or a ball-nose end mill, each parameterized
// by diameter and flute length. There is no abstract base type — a Go
// interface implemented by two small value types stands in for the
// source's Flat/Ball inheritance.
type Tool interface {
	// Diameter returns the tool's cutting diameter.
	Diameter() float32
	// Length returns the flute length.
	Length() float32
	// BallEnd reports whether the tip is hemispherical (true) or flat
	// (false) — this is exactly the flat_ends=!ball_end toggle the tip
	// sweep's cylinder removal needs.
	BallEnd() bool
	// RadiusAtHeight returns the tool's cross-sectional radius at height
	// h above the tip (h=0 at the very bottom). Outside [0, Length()]
	// the tool has no material, so the radius is 0.
	RadiusAtHeight(h float32) float32
}

// Flat is a square end mill: constant radius along its full length,
// flat bottom.
type Flat struct {
	D float32 // diameter
	L float32 // flute length
}

func (f Flat) Diameter() float32 { return f.D }
func (f Flat) Length() float32   { return f.L }
func (f Flat) BallEnd() bool     { return false }

func (f Flat) RadiusAtHeight(h float32) float32 {
	if h < 0 || h > f.L {
		return 0
	}
	return f.D / 2
}

// Ball is a ball-nose end mill: a hemispherical tip of radius D/2
// blending into a constant-radius shaft above it.
type Ball struct {
	D float32 // diameter
	L float32 // flute length
}

func (b Ball) Diameter() float32 { return b.D }
func (b Ball) Length() float32   { return b.L }
func (b Ball) BallEnd() bool     { return true }

func (b Ball) RadiusAtHeight(h float32) float32 {
	r := b.D / 2
	if h < 0 || h > b.L {
		return 0
	}
	if h >= r {
		return r
	}
	d := r - h
	return math32.Sqrt(r*r - d*d)
}
