// Package geometry converts between absolute surface coordinates and the
// normalized [0,1] space placements are stored in.
//
// Every conversion takes the Pitch it is relative to. There is no ambient
// screen size: callers re-measure and pass the new Pitch after a layout
// change.
package geometry

import "math"

// Pitch is the measured rendering surface for one layout pass.
type Pitch struct {
	Width      float64
	Height     float64
	MarkerSize float64
}

// New returns a Pitch of the given size.
func New(width, height, markerSize float64) Pitch {
	return Pitch{Width: width, Height: height, MarkerSize: markerSize}
}

// Measured reports whether the pitch has a usable, positive size.
func (p Pitch) Measured() bool {
	return p.Width > 0 && p.Height > 0 && !math.IsInf(p.Width, 0) && !math.IsInf(p.Height, 0)
}

// MaxX is the largest absolute x a marker's origin may take.
func (p Pitch) MaxX() float64 { return math.Max(0, p.Width-p.MarkerSize) }

// MaxY is the largest absolute y a marker's origin may take.
func (p Pitch) MaxY() float64 { return math.Max(0, p.Height-p.MarkerSize) }

// Point is an absolute position on the surface, in surface units.
type Point struct {
	X float64
	Y float64
}

// Add returns p translated by d.
func (p Point) Add(d Point) Point {
	return Point{X: p.X + d.X, Y: p.Y + d.Y}
}

// Sub returns p minus q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// ToNormalized divides each axis by the matching pitch dimension. The input
// is not clamped and neither is the output. The pitch must be measured.
func ToNormalized(absoluteX, absoluteY float64, pitch Pitch) (x, y float64) {
	return absoluteX / pitch.Width, absoluteY / pitch.Height
}

// ToAbsolute multiplies each normalized axis by the matching pitch dimension.
func ToAbsolute(x, y float64, pitch Pitch) (absoluteX, absoluteY float64) {
	return x * pitch.Width, y * pitch.Height
}

// AbsolutePoint is ToAbsolute returning a Point.
func AbsolutePoint(x, y float64, pitch Pitch) Point {
	ax, ay := ToAbsolute(x, y, pitch)
	return Point{X: ax, Y: ay}
}

// Clamp bounds each axis of p independently to
// [0, dimension-markerSize]. The second return is true when p was outside.
func Clamp(p Point, pitch Pitch) (Point, bool) {
	cx := clamp(p.X, 0, pitch.MaxX())
	cy := clamp(p.Y, 0, pitch.MaxY())
	return Point{X: cx, Y: cy}, cx != p.X || cy != p.Y
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
