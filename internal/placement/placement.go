// Package placement computes where a dependent (popup) window goes on
// screen. Place is a pure function over integer screen-space rectangles:
// a popup frame is positioned against an anchor rectangle according to a
// pair of gravities and a logical offset, then adjusted to fit the usable
// area of the target display by flipping, sliding, or resizing, in that
// order of precedence, independently per axis.
package placement

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cznic/mathutil"

	"github.com/embery/winman/internal/geometry"
)

// Gravity selects an edge or corner of a rectangle. For the anchor it names
// the point on the anchor rectangle the popup attaches to; for the popup it
// names the direction the popup extends away from that point.
type Gravity int

const (
	GravityCenter Gravity = iota
	GravityTop
	GravityBottom
	GravityLeft
	GravityRight
	GravityTopLeft
	GravityTopRight
	GravityBottomLeft
	GravityBottomRight
)

var gravityNames = map[Gravity]string{
	GravityCenter:      "center",
	GravityTop:         "top",
	GravityBottom:      "bottom",
	GravityLeft:        "left",
	GravityRight:       "right",
	GravityTopLeft:     "top-left",
	GravityTopRight:    "top-right",
	GravityBottomLeft:  "bottom-left",
	GravityBottomRight: "bottom-right",
}

func (g Gravity) String() string {
	if s, ok := gravityNames[g]; ok {
		return s
	}
	return "unknown"
}

// ParseGravity converts a gravity name as accepted over IPC. Underscores
// are accepted in place of hyphens ("top_left" and "top-left" both parse).
func ParseGravity(s string) (Gravity, error) {
	name := strings.ReplaceAll(s, "_", "-")
	for g, n := range gravityNames {
		if n == name {
			return g, nil
		}
	}
	valid := make([]string, 0, len(gravityNames))
	for _, n := range gravityNames {
		valid = append(valid, n)
	}
	sort.Strings(valid)
	return 0, fmt.Errorf("unknown gravity %q (valid: %s)", s, strings.Join(valid, ", "))
}

// horiz decomposes the horizontal component: -1 left, 0 center, +1 right.
func (g Gravity) horiz() int {
	switch g {
	case GravityLeft, GravityTopLeft, GravityBottomLeft:
		return -1
	case GravityRight, GravityTopRight, GravityBottomRight:
		return 1
	}
	return 0
}

// vert decomposes the vertical component: -1 top, 0 center, +1 bottom.
func (g Gravity) vert() int {
	switch g {
	case GravityTop, GravityTopLeft, GravityTopRight:
		return -1
	case GravityBottom, GravityBottomLeft, GravityBottomRight:
		return 1
	}
	return 0
}

// Adjustment is the constraint-adjustment policy: which fallbacks may be
// applied, per axis, when the base placement overflows the output rectangle.
type Adjustment uint8

const (
	AdjustFlipX Adjustment = 1 << iota
	AdjustFlipY
	AdjustSlideX
	AdjustSlideY
	AdjustResizeX
	AdjustResizeY

	AdjustNone Adjustment = 0
	AdjustAll             = AdjustFlipX | AdjustFlipY | AdjustSlideX | AdjustSlideY | AdjustResizeX | AdjustResizeY
)

// Positioner is the rule set governing where a popup is placed relative to
// its owner. AnchorRect, when set, is in the owner's logical coordinate
// space relative to the owner's client area; when nil the owner's whole
// visible frame is the anchor. Offset is logical and is DPI-scaled at
// placement time.
type Positioner struct {
	AnchorRect *geometry.RectF
	Anchor     Gravity // edge of the anchor rectangle to attach to
	Gravity    Gravity // direction the popup extends from the anchor point
	Offset     geometry.PointF
	Adjustment Adjustment
}

// AnchorRect resolves the positioner's anchor rectangle into screen space.
// ownerClient is the owner's client rectangle and ownerFrame its visible
// frame rectangle, both in screen space; dpi is the owner's DPI. A
// positioner without an explicit anchor rectangle anchors to the whole
// owner frame.
func AnchorRect(p Positioner, ownerClient, ownerFrame geometry.Rect, dpi int) geometry.Rect {
	if p.AnchorRect == nil {
		return ownerFrame
	}
	scaled := geometry.ScaleRect(*p.AnchorRect, dpi)
	scaled.X += ownerClient.X
	scaled.Y += ownerClient.Y
	return scaled
}

// Place computes the final window rectangle for a popup frame of the given
// size placed against anchor inside output, all in the same physical
// screen-space coordinate system. dpi scales the positioner's logical
// offset. The function has no side effects and no dependency on live
// window state.
func Place(p Positioner, frame geometry.Size, anchor, output geometry.Rect, dpi int) geometry.Rect {
	offX := geometry.Scale(p.Offset.X, dpi)
	offY := geometry.Scale(p.Offset.Y, dpi)

	x, w := placeAxis(axisSpec{
		anchorLo: anchor.X,
		anchorHi: anchor.Right(),
		length:   frame.Width,
		anchorG:  p.Anchor.horiz(),
		childG:   p.Gravity.horiz(),
		offset:   offX,
		outLo:    output.X,
		outHi:    output.Right(),
		flip:     p.Adjustment&AdjustFlipX != 0,
		slide:    p.Adjustment&AdjustSlideX != 0,
		resize:   p.Adjustment&AdjustResizeX != 0,
	})
	y, h := placeAxis(axisSpec{
		anchorLo: anchor.Y,
		anchorHi: anchor.Bottom(),
		length:   frame.Height,
		anchorG:  p.Anchor.vert(),
		childG:   p.Gravity.vert(),
		offset:   offY,
		outLo:    output.Y,
		outHi:    output.Bottom(),
		flip:     p.Adjustment&AdjustFlipY != 0,
		slide:    p.Adjustment&AdjustSlideY != 0,
		resize:   p.Adjustment&AdjustResizeY != 0,
	})

	return geometry.Rect{X: x, Y: y, Width: w, Height: h}
}

type axisSpec struct {
	anchorLo, anchorHi  int
	length              int
	anchorG, childG     int
	offset              int
	outLo, outHi        int
	flip, slide, resize bool
}

// placeAxis solves one axis. The anchor point is the edge (or center) of
// the anchor interval selected by anchorG; the popup interval starts at,
// ends at, or is centered on that point according to childG.
func placeAxis(s axisSpec) (lo, length int) {
	lo = basePosition(s.anchorLo, s.anchorHi, s.length, s.anchorG, s.childG) + s.offset
	length = s.length

	fits := func(v int) bool { return v >= s.outLo && v+length <= s.outHi }
	if fits(lo) {
		return lo, length
	}

	// Flip: mirror the gravity pair across the anchor. Adopted only when it
	// fully resolves the overflow on this axis.
	if s.flip {
		flipped := basePosition(s.anchorLo, s.anchorHi, s.length, -s.anchorG, -s.childG) + s.offset
		if fits(flipped) {
			return flipped, length
		}
	}

	// Slide: translate by the minimum amount that fits. Impossible when the
	// popup is longer than the output extent.
	if s.slide && length <= s.outHi-s.outLo {
		lo = mathutil.Clamp(lo, s.outLo, s.outHi-length)
		return lo, length
	}

	// Resize: shrink from the overflowing edge down to the output boundary,
	// never growing the popup.
	if s.resize {
		newLo := mathutil.Max(lo, s.outLo)
		newHi := mathutil.Min(lo+length, s.outHi)
		if newHi > newLo {
			return newLo, newHi - newLo
		}
	}

	// Unresolvable: the popup is left clipped outside the output rectangle.
	return lo, length
}

func basePosition(anchorLo, anchorHi, length, anchorG, childG int) int {
	var point int
	switch anchorG {
	case -1:
		point = anchorLo
	case 1:
		point = anchorHi
	default:
		point = (anchorLo + anchorHi) / 2
	}
	switch childG {
	case -1:
		return point - length
	case 1:
		return point
	default:
		return point - length/2
	}
}
