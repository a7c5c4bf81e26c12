// Package native is the boundary to the underlying window system. The
// Platform interface collects the stateless utility calls the window layer
// consumes: window creation and manipulation, the geometry/DPI adapter, the
// display list, and default event handling. Concrete implementations live
// in internal/x11 (real) and internal/native/nativetest (in-memory).
package native

import (
	"github.com/embery/winman/internal/display"
	"github.com/embery/winman/internal/geometry"
)

// Handle is an opaque native window identifier. Zero means "no window".
type Handle uint32

// EventCode names a category of native window event.
type EventCode int

const (
	// EventClose is a request to close the window. Default handling
	// destroys it.
	EventClose EventCode = iota + 1
	// EventDestroyed signals that the window is being torn down but its
	// handle is still valid.
	EventDestroyed
	// EventFinalDestroy signals that the window is fully gone; this is the
	// last event delivered for a handle.
	EventFinalDestroy
	// EventDPIChanged carries a system-suggested window rectangle for the
	// new DPI in Event.Rect.
	EventDPIChanged
	// EventShown signals a visibility change. Param1 is 1 when becoming
	// visible; Param2 is nonzero when the change is owner-induced.
	EventShown
	// EventSizeLimits queries the window's size constraints. The handler
	// writes into Event.Limits.
	EventSizeLimits
	// EventResized signals a size change. Param1 carries a SizeKind.
	EventResized
	// EventActivated signals an activation change. Param1 is nonzero when
	// the window became active.
	EventActivated
	// EventFrameActivate asks how the window frame should be painted.
	// Param1 is 0 when the system wants to paint it inactive. A handled
	// result of 1 forces active rendering.
	EventFrameActivate
	// EventThemeChanged signals that the system theme preference changed.
	EventThemeChanged
)

var eventNames = map[EventCode]string{
	EventClose:         "close",
	EventDestroyed:     "destroyed",
	EventFinalDestroy:  "final-destroy",
	EventDPIChanged:    "dpi-changed",
	EventShown:         "shown",
	EventSizeLimits:    "size-limits",
	EventResized:       "resized",
	EventActivated:     "activated",
	EventFrameActivate: "frame-activate",
	EventThemeChanged:  "theme-changed",
}

func (c EventCode) String() string {
	if s, ok := eventNames[c]; ok {
		return s
	}
	return "unknown"
}

// SizeKind values carried in Param1 of EventResized.
const (
	SizeRestored int64 = iota
	SizeMinimized
	SizeMaximized
)

// SizeLimits is the out-parameter of an EventSizeLimits query.
type SizeLimits struct {
	Min *geometry.Size
	Max *geometry.Size
}

// Event is one native window event, normalized across backends.
type Event struct {
	Code   EventCode
	Param1 int64
	Param2 int64
	Rect   geometry.Rect // EventDPIChanged: suggested window rectangle
	Limits *SizeLimits   // EventSizeLimits: written by the handler
}

// Result is the outcome of handling an event. An unhandled result makes the
// caller fall back to the platform's default handling.
type Result struct {
	Handled bool
	Value   int64
}

// Unhandled is the zero Result.
var Unhandled = Result{}

// Handled wraps a value in a handled Result.
func Handled(v int64) Result { return Result{Handled: true, Value: v} }

// ShowCmd is a visibility/placement command.
type ShowCmd int

const (
	ShowNormal ShowCmd = iota
	ShowMaximized
	ShowMinimized
	ShowRestore
	ShowMaximize
	ShowMinimize
)

// Style is the native style a window is created with.
type Style int

const (
	StyleRegular Style = iota
	StylePopup
)

// Theme selects the frame decoration variant.
type Theme int

const (
	ThemeLight Theme = iota
	ThemeDark
)

// WindowConfig describes a window to create. A nil Rect requests
// system-default positioning; Size then supplies the frame size when known.
type WindowConfig struct {
	Style Style
	Title string
	Owner Handle
	Rect  *geometry.Rect
	Size  *geometry.Size
}

// EventSink consumes translated events from the native message pump.
// Returning an unhandled Result tells the pump the event was not consumed.
type EventSink func(Handle, *Event) Result

// Platform is the window-system backend. All calls are synchronous and run
// on the thread that owns the message pump. Geometry accessors report
// physical screen-space coordinates unless noted.
type Platform interface {
	// CreateWindow realizes a native top-level window.
	CreateWindow(cfg WindowConfig) (Handle, error)
	// CreateSurface realizes a rendering-surface window that is later
	// reparented into a top-level window's client area. Surfaces do not
	// emit events through the sink.
	CreateSurface(size geometry.Size) (Handle, error)
	// DestroyWindow tears the window down, emitting EventDestroyed and
	// EventFinalDestroy through the sink.
	DestroyWindow(h Handle)
	// RequestClose asks the window to close (EventClose).
	RequestClose(h Handle)
	// Show requests a visibility change, emitting EventShown before the
	// window becomes visible.
	Show(h Handle, cmd ShowCmd)
	// SetPlacement applies a show command without routing a visibility
	// event back through the sink.
	SetPlacement(h Handle, cmd ShowCmd)

	// SetRect moves and resizes without activating. For reparented content
	// windows the rectangle is relative to the parent's client area.
	SetRect(h Handle, r geometry.Rect)
	// Resize changes the frame size, keeping the current position.
	Resize(h Handle, s geometry.Size)
	// WindowRect is the raw window rectangle, including any drop shadow.
	WindowRect(h Handle) geometry.Rect
	// ClientRect is the client area in screen space.
	ClientRect(h Handle) geometry.Rect
	// FrameBounds is the visible frame: the window rectangle without
	// drop-shadow margins. Only meaningful on a realized window.
	FrameBounds(h Handle) geometry.Rect

	SetFocus(h Handle)
	IsEnabled(h Handle) bool
	// RedrawFrame forces a non-client repaint.
	RedrawFrame(h Handle)
	SetTitle(h Handle, title string)
	ApplyTheme(h Handle, t Theme)
	PreferredTheme() Theme
	// Reparent makes child a child of parent's client area.
	Reparent(child, parent Handle)

	// DPIForWindow reports the DPI context of h; a zero handle reports the
	// primary display's DPI.
	DPIForWindow(h Handle) int
	// FrameSizeForClientSize computes the full window size (including
	// non-client margins and any shadow) needed to contain a client area
	// of the given physical size under the given style.
	FrameSizeForClientSize(client geometry.Size, style Style, owner Handle) geometry.Size
	// VisibleFrameSize converts a full window size to the visible frame
	// size (shadow margins removed) for a window that is not yet realized.
	VisibleFrameSize(window geometry.Size, style Style, owner Handle) geometry.Size

	Displays() []display.Display
	// DefaultHandler performs the platform's default handling for an event
	// the window layer left unhandled.
	DefaultHandler(h Handle, ev *Event) Result
	// SetEventSink installs the consumer of pump events. Must be called
	// before any window is created.
	SetEventSink(sink EventSink)
}
