// Package geometry provides the pure planar helpers the analyzer derives
// joint angles from. All functions are stateless.
package geometry

import "math"

// Point is a 2D position in image coordinates (y grows downward).
type Point struct {
	X, Y float64
}

// Angle returns the angle at vertex b between rays b→a and b→c, in degrees
// in the range [0, 180].
//
// If either ray has zero length (a or c coincides with b) the angle is
// undefined and Angle returns 0.
func Angle(a, b, c Point) float64 {
	bax, bay := a.X-b.X, a.Y-b.Y
	bcx, bcy := c.X-b.X, c.Y-b.Y

	baNorm := math.Hypot(bax, bay)
	bcNorm := math.Hypot(bcx, bcy)
	if baNorm == 0 || bcNorm == 0 {
		return 0
	}

	cos := (bax*bcx + bay*bcy) / (baNorm * bcNorm)
	return math.Acos(clamp(cos, -1, 1)) * 180 / math.Pi
}

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b Point) Point {
	return Point{X: (a.X + b.X) / 2, Y: (a.Y + b.Y) / 2}
}

// Above returns the point d units straight up from p in image coordinates.
// Used as the vertical reference when measuring a segment's lean.
func Above(p Point, d float64) Point {
	return Point{X: p.X, Y: p.Y - d}
}

// Distance returns the Euclidean distance between a and b.
func Distance(a, b Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
