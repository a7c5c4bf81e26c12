// Package geometry provides the integer screen-space primitives shared by
// the placement solver, the display model, and the native layer, plus the
// logical/physical scaling helpers used by the DPI adapter.
package geometry

import (
	"math"

	"github.com/cznic/mathutil"
)

// BaseDPI is the DPI at which logical and physical coordinates coincide.
const BaseDPI = 96

// Point is a position in physical (pixel) screen coordinates.
type Point struct {
	X int
	Y int
}

// Size is an extent in physical pixels.
type Size struct {
	Width  int
	Height int
}

// IsZero reports whether both dimensions are zero.
func (s Size) IsZero() bool { return s.Width == 0 && s.Height == 0 }

// Max returns the component-wise maximum of s and t.
func (s Size) Max(t Size) Size {
	return Size{mathutil.Max(s.Width, t.Width), mathutil.Max(s.Height, t.Height)}
}

// Min returns the component-wise minimum of s and t.
func (s Size) Min(t Size) Size {
	return Size{mathutil.Min(s.Width, t.Width), mathutil.Min(s.Height, t.Height)}
}

// SizeF is an extent in logical (DPI-independent) coordinates.
type SizeF struct {
	Width  float64
	Height float64
}

// PointF is a logical offset.
type PointF struct {
	X float64
	Y float64
}

// RectF is a rectangle in logical coordinates.
type RectF struct {
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Rect is a rectangle in physical screen coordinates.
type Rect struct {
	X      int
	Y      int
	Width  int
	Height int
}

// Right returns the exclusive right edge.
func (r Rect) Right() int { return r.X + r.Width }

// Bottom returns the exclusive bottom edge.
func (r Rect) Bottom() int { return r.Y + r.Height }

// Origin returns the top-left corner.
func (r Rect) Origin() Point { return Point{r.X, r.Y} }

// Size returns the rectangle's extent.
func (r Rect) Size() Size { return Size{r.Width, r.Height} }

// Empty reports whether the rectangle has no area.
func (r Rect) Empty() bool { return r.Width <= 0 || r.Height <= 0 }

// Intersect returns the intersection of r and s, or a zero Rect when they
// do not overlap.
func (r Rect) Intersect(s Rect) Rect {
	x1 := mathutil.Max(r.X, s.X)
	y1 := mathutil.Max(r.Y, s.Y)
	x2 := mathutil.Min(r.Right(), s.Right())
	y2 := mathutil.Min(r.Bottom(), s.Bottom())
	if x2 <= x1 || y2 <= y1 {
		return Rect{}
	}
	return Rect{x1, y1, x2 - x1, y2 - y1}
}

// IntersectionArea returns the overlap area of r and s in square pixels.
func (r Rect) IntersectionArea(s Rect) int {
	i := r.Intersect(s)
	return i.Width * i.Height
}

// Union returns the bounding box of r and s. A rectangle with no area does
// not contribute.
func (r Rect) Union(s Rect) Rect {
	if r.Empty() {
		return s
	}
	if s.Empty() {
		return r
	}
	x := mathutil.Min(r.X, s.X)
	y := mathutil.Min(r.Y, s.Y)
	return Rect{
		X:      x,
		Y:      y,
		Width:  mathutil.Max(r.Right(), s.Right()) - x,
		Height: mathutil.Max(r.Bottom(), s.Bottom()) - y,
	}
}

// ContainsRect reports whether s lies entirely inside r.
func (r Rect) ContainsRect(s Rect) bool {
	return s.X >= r.X && s.Y >= r.Y && s.Right() <= r.Right() && s.Bottom() <= r.Bottom()
}

// Scale converts a logical length to physical pixels at the given DPI.
func Scale(v float64, dpi int) int {
	return int(math.Round(v * float64(dpi) / BaseDPI))
}

// Unscale converts a physical length back to logical coordinates.
func Unscale(v int, dpi int) float64 {
	return float64(v) * BaseDPI / float64(dpi)
}

// ScaleSize converts a logical size to physical pixels at the given DPI.
func ScaleSize(s SizeF, dpi int) Size {
	return Size{Scale(s.Width, dpi), Scale(s.Height, dpi)}
}

// UnscaleSize converts a physical size to logical coordinates.
func UnscaleSize(s Size, dpi int) SizeF {
	return SizeF{Unscale(s.Width, dpi), Unscale(s.Height, dpi)}
}

// ScaleRect converts a logical rectangle to physical pixels at the given DPI.
func ScaleRect(r RectF, dpi int) Rect {
	return Rect{
		X:      Scale(r.X, dpi),
		Y:      Scale(r.Y, dpi),
		Width:  Scale(r.Width, dpi),
		Height: Scale(r.Height, dpi),
	}
}

// ClampSize clamps each dimension of s into [0, bound].
func ClampSize(s Size, bound Size) Size {
	return Size{
		Width:  mathutil.Clamp(s.Width, 0, bound.Width),
		Height: mathutil.Clamp(s.Height, 0, bound.Height),
	}
}
