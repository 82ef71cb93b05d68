// Package geom provides axis-aligned rectangle math in document space.
//
// Coordinates follow the y-up convention used by artboards: Top is greater
// than Bottom for any non-degenerate rectangle.
package geom

import (
	"fmt"
	"math"
)

// Rect is an axis-aligned box given by its four edges.
type Rect struct {
	Left   float64 `json:"left" yaml:"left"`
	Top    float64 `json:"top" yaml:"top"`
	Right  float64 `json:"right" yaml:"right"`
	Bottom float64 `json:"bottom" yaml:"bottom"`
}

// R is shorthand for Rect{left, top, right, bottom}.
func R(left, top, right, bottom float64) Rect {
	return Rect{Left: left, Top: top, Right: right, Bottom: bottom}
}

// Width returns Right - Left.
func (r Rect) Width() float64 { return r.Right - r.Left }

// Height returns Top - Bottom.
func (r Rect) Height() float64 { return r.Top - r.Bottom }

// Valid reports whether r has positive width and height.
func (r Rect) Valid() bool { return r.Left < r.Right && r.Top > r.Bottom }

// Translate returns r moved by (dx, dy).
func (r Rect) Translate(dx, dy float64) Rect {
	return Rect{Left: r.Left + dx, Top: r.Top + dy, Right: r.Right + dx, Bottom: r.Bottom + dy}
}

func (r Rect) String() string {
	return fmt.Sprintf("l: %g t: %g r: %g b: %g w: %g h: %g",
		math.Round(r.Left), math.Round(r.Top), math.Round(r.Right), math.Round(r.Bottom), r.Width(), r.Height())
}

// Intersects reports whether a and b overlap. Touching edges count as overlap.
func Intersects(a, b Rect) bool {
	return !(b.Left > a.Right ||
		b.Top < a.Bottom ||
		b.Right < a.Left ||
		b.Bottom > a.Top)
}

// Union returns the bounding box of a and b.
func Union(a, b Rect) Rect {
	return Rect{
		Left:   math.Min(a.Left, b.Left),
		Top:    math.Max(a.Top, b.Top),
		Right:  math.Max(a.Right, b.Right),
		Bottom: math.Min(a.Bottom, b.Bottom),
	}
}

// UnionAll folds Union over rs. ok is false when rs is empty.
func UnionAll(rs ...Rect) (out Rect, ok bool) {
	for i, r := range rs {
		if i == 0 {
			out = r
			continue
		}
		out = Union(out, r)
	}
	return out, len(rs) > 0
}

// Equal reports exact edge equality, with no tolerance.
func Equal(a, b Rect) bool {
	return a.Left == b.Left && a.Top == b.Top && a.Right == b.Right && a.Bottom == b.Bottom
}

// Clamp limits every edge of r to lie within bounds. For overlapping
// rectangles this is their intersection.
func Clamp(r, bounds Rect) Rect {
	if r.Left < bounds.Left {
		r.Left = bounds.Left
	}
	if r.Top > bounds.Top {
		r.Top = bounds.Top
	}
	if r.Right > bounds.Right {
		r.Right = bounds.Right
	}
	if r.Bottom < bounds.Bottom {
		r.Bottom = bounds.Bottom
	}
	return r
}
