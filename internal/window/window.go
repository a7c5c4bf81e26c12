// Package window implements the per-window entity: archetype, ownership
// links, size constraints, and the message state machine driven by the
// native event pump. Entities are owned exclusively by the controller
// registry; owner and owned-set links between entities are non-owning
// observer references.
package window

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/embery/winman/internal/display"
	"github.com/embery/winman/internal/geometry"
	"github.com/embery/winman/internal/native"
	"github.com/embery/winman/internal/placement"
)

// Archetype is the fixed role of a window.
type Archetype int

const (
	// Regular windows are independent top-level windows. They never have
	// an owner.
	Regular Archetype = iota
	// Popups are transient windows placed relative to an owner.
	Popup
)

func (a Archetype) String() string {
	switch a {
	case Regular:
		return "regular"
	case Popup:
		return "popup"
	}
	return "unknown"
}

// State is the show state of a Regular window.
type State int

const (
	StateRestored State = iota
	StateMaximized
	StateMinimized
)

func (s State) String() string {
	switch s {
	case StateRestored:
		return "restored"
	case StateMaximized:
		return "maximized"
	case StateMinimized:
		return "minimized"
	}
	return "unknown"
}

// ParseState converts a state name as accepted over IPC and in config.
func ParseState(s string) (State, error) {
	switch s {
	case "restored":
		return StateRestored, nil
	case "maximized":
		return StateMaximized, nil
	case "minimized":
		return StateMinimized, nil
	}
	return 0, fmt.Errorf("unknown window state %q", s)
}

// Construction precondition violations.
var (
	ErrOwnerOnRegular       = errors.New("regular window cannot have an owner")
	ErrPositionerOnRegular  = errors.New("regular window cannot have a positioner")
	ErrPopupNeedsOwner      = errors.New("popup window requires an owner")
	ErrPopupNeedsPositioner = errors.New("popup window requires a positioner")
	ErrSizeConstraints      = errors.New("minimum size exceeds maximum size")
)

// unboundedDim stands in for a max-size component with no bound. Reported
// limits are clamped to the virtual screen, so it never leaks out.
const unboundedDim = math.MaxInt32

// Settings describes a window to construct. Sizes are logical.
type Settings struct {
	Archetype  Archetype
	Owner      *Window
	Positioner *placement.Positioner
	ClientSize geometry.SizeF
	MinSize    *geometry.SizeF
	MaxSize    *geometry.SizeF
	State      State // Regular only
	Title      string
}

// Window is one live native top-level window and its local state machine.
type Window struct {
	platform native.Platform
	log      *slog.Logger

	handle    native.Handle
	content   native.Handle
	archetype Archetype
	title     string

	owner       *Window
	owned       map[native.Handle]*Window
	ownedPopups int

	minSize *geometry.Size // physical
	maxSize *geometry.Size // physical; components may be unboundedDim

	state            State
	pendingShow      bool
	forceFrameActive bool
}

// New constructs and realizes a window. On any failure no native window is
// left behind and no owner link is established.
func New(p native.Platform, log *slog.Logger, s Settings) (*Window, error) {
	if log == nil {
		log = slog.Default()
	}
	switch s.Archetype {
	case Regular:
		if s.Owner != nil {
			return nil, ErrOwnerOnRegular
		}
		if s.Positioner != nil {
			return nil, ErrPositionerOnRegular
		}
	case Popup:
		if s.Owner == nil {
			return nil, ErrPopupNeedsOwner
		}
		if s.Positioner == nil {
			return nil, ErrPopupNeedsPositioner
		}
	}

	w := &Window{
		platform:    p,
		log:         log,
		archetype:   s.Archetype,
		title:       s.Title,
		owner:       s.Owner,
		owned:       make(map[native.Handle]*Window),
		state:       s.State,
		pendingShow: true,
	}

	var ownerHandle native.Handle
	if s.Owner != nil {
		ownerHandle = s.Owner.handle
	}
	dpi := p.DPIForWindow(ownerHandle)

	if err := w.resolveBounds(s, dpi); err != nil {
		return nil, err
	}

	client := w.clampClient(geometry.ScaleSize(s.ClientSize, dpi))
	style := native.StyleRegular
	if s.Archetype == Popup {
		style = native.StylePopup
	}
	frame := p.FrameSizeForClientSize(client, style, ownerHandle)

	cfg := native.WindowConfig{
		Style: style,
		Title: s.Title,
		Owner: ownerHandle,
	}
	if s.Owner != nil && s.Positioner != nil {
		anchor := placement.AnchorRect(*s.Positioner,
			p.ClientRect(ownerHandle), p.FrameBounds(ownerHandle), dpi)
		output := anchor
		if d, ok := display.BestFor(p.Displays(), anchor); ok {
			output = d.WorkArea
		}
		visible := p.VisibleFrameSize(frame, style, ownerHandle)
		placed := placement.Place(*s.Positioner, visible, anchor, output, dpi)
		cfg.Rect = &geometry.Rect{
			X: placed.X, Y: placed.Y,
			Width: frame.Width, Height: frame.Height,
		}
	} else {
		cfg.Size = &frame
	}

	h, err := p.CreateWindow(cfg)
	if err != nil {
		log.Error("window creation failed", "archetype", s.Archetype.String(), "error", err)
		return nil, fmt.Errorf("create window: %w", err)
	}
	w.handle = h

	// The drop-shadow margin is only queryable on a realized window. Shift
	// the window so the visible frame, not the raw rect, sits at the
	// requested origin.
	if cfg.Rect != nil {
		raw := p.WindowRect(h)
		fb := p.FrameBounds(h)
		dx, dy := raw.X-fb.X, raw.Y-fb.Y
		if dx != 0 || dy != 0 {
			p.SetRect(h, geometry.Rect{
				X: cfg.Rect.X + dx, Y: cfg.Rect.Y + dy,
				Width: raw.Width, Height: raw.Height,
			})
		}
	}

	content, err := p.CreateSurface(client)
	if err != nil {
		p.DestroyWindow(h)
		return nil, fmt.Errorf("create content surface: %w", err)
	}
	p.Reparent(content, h)
	p.SetRect(content, geometry.Rect{Width: client.Width, Height: client.Height})
	w.content = content

	if s.Owner != nil {
		s.Owner.owned[h] = w
		if s.Archetype == Popup {
			s.Owner.ownedPopups++
		}
	}
	p.ApplyTheme(h, p.PreferredTheme())

	log.Debug("window created",
		"handle", h, "archetype", s.Archetype.String(), "title", s.Title)
	return w, nil
}

// resolveBounds converts the optional logical min/max sizes to physical
// bounds, discarding infinite components, and validates min against max.
func (w *Window) resolveBounds(s Settings, dpi int) error {
	if s.MinSize != nil {
		min := geometry.Size{}
		if !math.IsInf(s.MinSize.Width, 0) {
			min.Width = geometry.Scale(s.MinSize.Width, dpi)
		}
		if !math.IsInf(s.MinSize.Height, 0) {
			min.Height = geometry.Scale(s.MinSize.Height, dpi)
		}
		if !min.IsZero() {
			w.minSize = &min
		}
	}
	if s.MaxSize != nil {
		max := geometry.Size{Width: unboundedDim, Height: unboundedDim}
		if !math.IsInf(s.MaxSize.Width, 0) {
			max.Width = geometry.Scale(s.MaxSize.Width, dpi)
		}
		if !math.IsInf(s.MaxSize.Height, 0) {
			max.Height = geometry.Scale(s.MaxSize.Height, dpi)
		}
		if max.Width != unboundedDim || max.Height != unboundedDim {
			w.maxSize = &max
		}
	}
	if w.minSize != nil && w.maxSize != nil {
		if w.minSize.Width > w.maxSize.Width || w.minSize.Height > w.maxSize.Height {
			return ErrSizeConstraints
		}
	}
	return nil
}

func (w *Window) clampClient(s geometry.Size) geometry.Size {
	if w.minSize != nil {
		s = s.Max(*w.minSize)
	}
	if w.maxSize != nil {
		s = s.Min(*w.maxSize)
	}
	return s
}

// Handle returns the native window handle.
func (w *Window) Handle() native.Handle { return w.handle }

// Content returns the handle of the parented rendering surface.
func (w *Window) Content() native.Handle { return w.content }

// Archetype returns the window's fixed role.
func (w *Window) Archetype() Archetype { return w.archetype }

// Owner returns the owning entity, nil for Regular windows.
func (w *Window) Owner() *Window { return w.owner }

// OwnedPopupCount returns the number of live popups owned by this window.
func (w *Window) OwnedPopupCount() int { return w.ownedPopups }

// OwnedHandles returns the handles of owned windows in ascending order.
func (w *Window) OwnedHandles() []native.Handle {
	hs := make([]native.Handle, 0, len(w.owned))
	for h := range w.owned {
		hs = append(hs, h)
	}
	sort.Slice(hs, func(i, j int) bool { return hs[i] < hs[j] })
	return hs
}

// Title returns the current title text.
func (w *Window) Title() string { return w.title }

// State returns the last recorded show state. Meaningful for Regular
// windows only.
func (w *Window) State() State { return w.state }

// Show makes the window visible. The first visibility event applies the
// show command derived from the recorded state.
func (w *Window) Show() {
	w.platform.Show(w.handle, native.ShowNormal)
}

// SetState records and applies a show state. Popups have no persisted
// state and ignore the call.
func (w *Window) SetState(s State) {
	if w.archetype != Regular {
		return
	}
	w.state = s
	if w.pendingShow {
		return
	}
	var cmd native.ShowCmd
	switch s {
	case StateMaximized:
		cmd = native.ShowMaximize
	case StateMinimized:
		cmd = native.ShowMinimize
	default:
		cmd = native.ShowRestore
	}
	w.platform.SetPlacement(w.handle, cmd)
}

// SetClientSize resizes the window so its client area has the given
// logical size, honoring the min/max bounds.
func (w *Window) SetClientSize(size geometry.SizeF) {
	dpi := w.platform.DPIForWindow(w.handle)
	client := w.clampClient(geometry.ScaleSize(size, dpi))
	var ownerHandle native.Handle
	style := native.StyleRegular
	if w.archetype == Popup {
		style = native.StylePopup
	}
	if w.owner != nil {
		ownerHandle = w.owner.handle
	}
	w.platform.Resize(w.handle, w.platform.FrameSizeForClientSize(client, style, ownerHandle))
}

// SetTitle updates the title text.
func (w *Window) SetTitle(title string) {
	w.title = title
	w.platform.SetTitle(w.handle, title)
}

// ClientSize returns the current client area in logical coordinates.
func (w *Window) ClientSize() geometry.SizeF {
	dpi := w.platform.DPIForWindow(w.handle)
	return geometry.UnscaleSize(w.platform.ClientRect(w.handle).Size(), dpi)
}

// RelativePosition returns the logical offset of this window's origin from
// its owner's origin. Zero for windows without an owner.
func (w *Window) RelativePosition() geometry.PointF {
	if w.owner == nil {
		return geometry.PointF{}
	}
	dpi := w.platform.DPIForWindow(w.handle)
	r := w.platform.WindowRect(w.handle)
	o := w.platform.WindowRect(w.owner.handle)
	return geometry.PointF{
		X: geometry.Unscale(r.X-o.X, dpi),
		Y: geometry.Unscale(r.Y-o.Y, dpi),
	}
}

// FirstEnabledDescendant returns this window if it is enabled, otherwise
// the first enabled window found depth-first through the owned tree, or
// nil when every window in the subtree is disabled.
func (w *Window) FirstEnabledDescendant() *Window {
	if w.platform.IsEnabled(w.handle) {
		return w
	}
	for _, h := range w.OwnedHandles() {
		if d := w.owned[h].FirstEnabledDescendant(); d != nil {
			return d
		}
	}
	return nil
}

// Destroy tears down the native window. Owned popups go down with it;
// unlinking happens in the destroy notification, which the pump delivers
// synchronously.
func (w *Window) Destroy() {
	w.platform.DestroyWindow(w.handle)
}

// CloseOwnedPopups closes every popup currently owned by this window and
// returns how many were removed. The popups leave the owned set before any
// close is requested so concurrent owner queries never see stale members;
// the popup count itself is decremented by each popup's own destroy
// notification.
func (w *Window) CloseOwnedPopups() int {
	if w.ownedPopups == 0 {
		return 0
	}
	before := w.ownedPopups

	popups := make([]*Window, 0, w.ownedPopups)
	for _, h := range w.OwnedHandles() {
		if o := w.owned[h]; o.archetype == Popup {
			popups = append(popups, o)
		}
	}
	for _, p := range popups {
		delete(w.owned, p.handle)
	}

	for _, p := range popups {
		// The popup's owner may sit deeper in the tree than the window this
		// was invoked on. Bracket that owner's frame flag so its title bar
		// does not flicker inactive while the popup goes away.
		owner := p.owner
		if owner != nil {
			owner.forceFrameActive = true
		}
		w.platform.RequestClose(p.handle)
		if owner != nil {
			owner.forceFrameActive = false
			if owner.ownedPopups == 0 {
				w.platform.RedrawFrame(owner.handle)
			}
		}
	}
	return before - w.ownedPopups
}

// dropPopup unlinks a destroyed popup. The owned-set entry may already be
// gone when the close came through CloseOwnedPopups; the count is
// decremented exactly once regardless.
func (w *Window) dropPopup(p *Window) {
	delete(w.owned, p.handle)
	if w.ownedPopups == 0 {
		panic("window: owned popup count underflow")
	}
	w.ownedPopups--
}

// HandleMessage is the single entry point for this window's local event
// handling. Cross-window bookkeeping and application forwarding happen in
// the controller; anything unhandled here falls back to the platform's
// default procedure.
func (w *Window) HandleMessage(ev *native.Event) native.Result {
	// A window without an attached view is still mid-construction; answer
	// minimally rather than acting on a half-built window.
	if w.content == 0 {
		return native.Handled(0)
	}

	switch ev.Code {
	case native.EventDestroyed:
		// Owned popups do not outlive their owner. Tear them down before
		// the owner unlinks, while this entity is still registered, so no
		// popup is left holding an owner link to a dead window. Each destroy
		// cascades synchronously through dropPopup.
		if w.ownedPopups > 0 {
			for _, h := range w.OwnedHandles() {
				if p := w.owned[h]; p != nil {
					p.Destroy()
				}
			}
		}
		if w.archetype == Popup && w.owner != nil {
			owner := w.owner
			owner.dropPopup(w)
			w.owner = nil
			if owner.ownedPopups == 0 {
				w.platform.SetFocus(owner.content)
			}
		}
		return native.Handled(0)

	case native.EventDPIChanged:
		// The suggested rectangle is taken verbatim; re-deriving it from
		// logical sizes would fight the system's per-monitor scaling.
		w.platform.SetRect(w.handle, ev.Rect)
		return native.Handled(0)

	case native.EventShown:
		if ev.Param1 != 0 && ev.Param2 == 0 && w.pendingShow {
			w.pendingShow = false
			w.platform.SetPlacement(w.handle, w.showCommand())
		}
		return native.Unhandled

	case native.EventSizeLimits:
		w.reportSizeLimits(ev)
		return native.Handled(0)

	case native.EventResized:
		client := w.platform.ClientRect(w.handle)
		w.platform.SetRect(w.content, geometry.Rect{
			Width: client.Width, Height: client.Height,
		})
		if w.archetype == Regular {
			switch ev.Param1 {
			case native.SizeMaximized:
				w.state = StateMaximized
			case native.SizeMinimized:
				w.state = StateMinimized
			case native.SizeRestored:
				w.state = StateRestored
			}
		}
		return native.Handled(0)

	case native.EventActivated:
		if ev.Param1 != 0 {
			w.platform.SetFocus(w.content)
		}
		return native.Handled(0)

	case native.EventFrameActivate:
		if w.archetype != Popup && ev.Param1 == 0 &&
			(w.ownedPopups > 0 || w.forceFrameActive) {
			return native.Handled(1)
		}
		return native.Unhandled

	case native.EventThemeChanged:
		w.platform.ApplyTheme(w.handle, w.platform.PreferredTheme())
		return native.Handled(0)
	}

	return native.Unhandled
}

func (w *Window) showCommand() native.ShowCmd {
	if w.archetype != Regular {
		return native.ShowNormal
	}
	switch w.state {
	case StateMaximized:
		return native.ShowMaximized
	case StateMinimized:
		return native.ShowMinimized
	}
	return native.ShowNormal
}

// reportSizeLimits answers a size-constraint query: the logical bounds
// adjusted by the non-client margin, each clamped to the virtual screen so
// no unbounded or off-screen size is ever reported.
func (w *Window) reportSizeLimits(ev *native.Event) {
	if ev.Limits == nil {
		return
	}
	outer := w.platform.WindowRect(w.handle)
	client := w.platform.ClientRect(w.handle)
	marginW := outer.Width - client.Width
	marginH := outer.Height - client.Height
	virtual := display.VirtualBounds(w.platform.Displays()).Size()

	if w.minSize != nil {
		min := geometry.ClampSize(geometry.Size{
			Width:  w.minSize.Width + marginW,
			Height: w.minSize.Height + marginH,
		}, virtual)
		ev.Limits.Min = &min
	}
	if w.maxSize != nil {
		max := geometry.ClampSize(geometry.Size{
			Width:  w.maxSize.Width + marginW,
			Height: w.maxSize.Height + marginH,
		}, virtual)
		ev.Limits.Max = &max
	}
}
