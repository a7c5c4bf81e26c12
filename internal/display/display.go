// Package display models the attached physical displays: their full bounds,
// usable work areas, and DPI. The lookups here are pure so the placement
// solver and the size-limit clamping can be tested with synthetic displays.
package display

import "github.com/embery/winman/internal/geometry"

// Display represents one physical display.
type Display struct {
	ID       int
	Name     string
	Bounds   geometry.Rect // full pixel bounds in screen space
	WorkArea geometry.Rect // bounds minus panels, docks and other chrome
	DPI      int
}

// BestFor returns the display whose bounds have the greatest intersection
// area with rect. When rect overlaps no display the first display is
// returned. ok is false only when the display list is empty.
func BestFor(displays []Display, rect geometry.Rect) (Display, bool) {
	if len(displays) == 0 {
		return Display{}, false
	}
	best := displays[0]
	bestArea := 0
	for _, d := range displays {
		if area := d.Bounds.IntersectionArea(rect); area > bestArea {
			best = d
			bestArea = area
		}
	}
	return best, true
}

// VirtualBounds returns the bounding box of all display bounds. Reported
// window size limits are clamped to this region so no unbounded or negative
// size ever escapes to the window system.
func VirtualBounds(displays []Display) geometry.Rect {
	var r geometry.Rect
	for _, d := range displays {
		r = r.Union(d.Bounds)
	}
	return r
}

// Primary returns the display whose bounds contain the screen origin,
// falling back to the first display.
func Primary(displays []Display) (Display, bool) {
	if len(displays) == 0 {
		return Display{}, false
	}
	for _, d := range displays {
		if d.Bounds.X <= 0 && d.Bounds.Y <= 0 && d.Bounds.Right() > 0 && d.Bounds.Bottom() > 0 {
			return d, true
		}
	}
	return displays[0], true
}
