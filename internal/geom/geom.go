// Package geom provides the screen-space types shared by the cursor mapper,
// the dispatcher and the desktop model.
package geom

import "math"

// Point is a position in screen pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Sub returns p - q.
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Size is a width/height pair in pixels.
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect is a window rectangle expressed the way inline styles carry it.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Right returns the x coordinate of the right edge.
func (r Rect) Right() float64 { return r.Left + r.Width }

// Bottom returns the y coordinate of the bottom edge.
func (r Rect) Bottom() float64 { return r.Top + r.Height }

// Contains reports whether p lies inside r (right and bottom edges exclusive).
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Left && p.X < r.Right() && p.Y >= r.Top && p.Y < r.Bottom()
}

// Inflate grows r by d on every side.
func (r Rect) Inflate(d float64) Rect {
	return Rect{Left: r.Left - d, Top: r.Top - d, Width: r.Width + 2*d, Height: r.Height + 2*d}
}

// Edge is a bit set of window edges grabbed by a resize.
type Edge uint8

const (
	EdgeNone   Edge = 0
	EdgeLeft   Edge = 1 << 0
	EdgeRight  Edge = 1 << 1
	EdgeTop    Edge = 1 << 2
	EdgeBottom Edge = 1 << 3
)

// Has reports whether all bits of o are set in e.
func (e Edge) Has(o Edge) bool { return e&o == o && o != EdgeNone }

// String returns the CSS-cursor style name of the edge set ("se", "w", ...).
func (e Edge) String() string {
	var s string
	if e.Has(EdgeTop) {
		s += "n"
	} else if e.Has(EdgeBottom) {
		s += "s"
	}
	if e.Has(EdgeRight) {
		s += "e"
	} else if e.Has(EdgeLeft) {
		s += "w"
	}
	if s == "" {
		return "none"
	}
	return s
}

// EdgeAt returns the edges of r that p is within threshold of.
// Points farther than threshold outside r, or deep inside it, return EdgeNone.
func EdgeAt(r Rect, p Point, threshold float64) Edge {
	if !r.Inflate(threshold).Contains(p) {
		return EdgeNone
	}

	var e Edge
	if math.Abs(p.X-r.Left) <= threshold {
		e |= EdgeLeft
	} else if math.Abs(p.X-r.Right()) <= threshold {
		e |= EdgeRight
	}
	if math.Abs(p.Y-r.Top) <= threshold {
		e |= EdgeTop
	} else if math.Abs(p.Y-r.Bottom()) <= threshold {
		e |= EdgeBottom
	}
	return e
}

// Clamp limits v to [lo, hi]. If hi < lo, lo wins.
func Clamp(v, lo, hi float64) float64 {
	if v > hi {
		v = hi
	}
	if v < lo {
		v = lo
	}
	return v
}
