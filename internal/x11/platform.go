package x11

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"
	"github.com/BurntSushi/xgbutil/icccm"
	"github.com/BurntSushi/xgbutil/xwindow"

	"github.com/embery/winman/internal/display"
	"github.com/embery/winman/internal/geometry"
	"github.com/embery/winman/internal/native"
)

const iconicState = 3 // ICCCM WM_CHANGE_STATE argument

// _NET_WM_STATE actions.
const (
	stateRemove = 0
	stateAdd    = 1
)

// windowRecord tracks what the backend needs to know about a handle between
// calls: its style, whether it is a bare rendering surface, and whether its
// destroy notifications have already been delivered.
type windowRecord struct {
	style     native.Style
	surface   bool
	mapped    bool
	destroyed bool
}

// Platform implements native.Platform over an X11 connection. All methods
// must be called from the thread running the event loop.
type Platform struct {
	conn  *Connection
	log   *slog.Logger
	theme native.Theme
	sink  native.EventSink

	// Held around each top-level event dispatch when set.
	dispatchMu sync.Locker

	windows map[native.Handle]*windowRecord

	// frame extents of the most recently queried decorated window, used to
	// estimate frame sizes for windows that are not realized yet.
	lastExtents Insets
}

// Insets are per-edge frame margins in pixels.
type Insets struct {
	Left, Right, Top, Bottom int
}

// NewPlatform wraps an established connection. preferredTheme is the frame
// decoration variant reported to the window layer; X11 has no global dark
// mode switch, so the preference comes from configuration.
func NewPlatform(conn *Connection, log *slog.Logger, preferredTheme native.Theme) *Platform {
	if log == nil {
		log = slog.Default()
	}
	return &Platform{
		conn:    conn,
		log:     log,
		theme:   preferredTheme,
		windows: make(map[native.Handle]*windowRecord),
	}
}

func (p *Platform) emit(h native.Handle, ev *native.Event) native.Result {
	if p.sink == nil {
		return native.Unhandled
	}
	return p.sink(h, ev)
}

func (p *Platform) live(h native.Handle) *windowRecord {
	w := p.windows[h]
	if w == nil || w.destroyed {
		return nil
	}
	return w
}

func (p *Platform) CreateWindow(cfg native.WindowConfig) (native.Handle, error) {
	win, err := xwindow.Generate(p.conn.XUtil)
	if err != nil {
		return 0, fmt.Errorf("allocate window id: %w", err)
	}

	rect := geometry.Rect{X: 0, Y: 0, Width: 640, Height: 480}
	if cfg.Rect != nil {
		rect = *cfg.Rect
	} else if cfg.Size != nil {
		rect.Width = cfg.Size.Width
		rect.Height = cfg.Size.Height
	}

	// Popups are override-redirect so the window manager neither decorates
	// nor repositions them; regular windows get normal WM management.
	override := uint32(0)
	if cfg.Style == native.StylePopup {
		override = 1
	}
	err = win.CreateChecked(p.conn.Root, rect.X, rect.Y, rect.Width, rect.Height,
		xproto.CwOverrideRedirect|xproto.CwEventMask,
		override,
		uint32(xproto.EventMaskStructureNotify|
			xproto.EventMaskFocusChange|
			xproto.EventMaskPropertyChange))
	if err != nil {
		return 0, fmt.Errorf("create window: %w", err)
	}

	if cfg.Title != "" {
		if err := ewmh.WmNameSet(p.conn.XUtil, win.Id, cfg.Title); err != nil {
			p.log.Warn("failed to set window title", "error", err)
		}
	}
	if cfg.Owner != 0 {
		if err := icccm.WmTransientForSet(p.conn.XUtil, win.Id, xproto.Window(cfg.Owner)); err != nil {
			p.log.Warn("failed to set transient-for", "error", err)
		}
	}
	if cfg.Style == native.StylePopup {
		if err := ewmh.WmWindowTypeSet(p.conn.XUtil, win.Id,
			[]string{"_NET_WM_WINDOW_TYPE_POPUP_MENU"}); err != nil {
			p.log.Warn("failed to set window type", "error", err)
		}
	}
	// Opt into close requests via WM_DELETE_WINDOW so the window manager
	// sends a client message instead of killing the connection.
	if err := icccm.WmProtocolsSet(p.conn.XUtil, win.Id,
		[]string{"WM_DELETE_WINDOW"}); err != nil {
		p.log.Warn("failed to set WM protocols", "error", err)
	}

	h := native.Handle(win.Id)
	p.windows[h] = &windowRecord{style: cfg.Style}
	return h, nil
}

func (p *Platform) CreateSurface(size geometry.Size) (native.Handle, error) {
	win, err := xwindow.Generate(p.conn.XUtil)
	if err != nil {
		return 0, fmt.Errorf("allocate surface id: %w", err)
	}
	err = win.CreateChecked(p.conn.Root, 0, 0, size.Width, size.Height,
		xproto.CwEventMask, uint32(xproto.EventMaskExposure))
	if err != nil {
		return 0, fmt.Errorf("create surface: %w", err)
	}
	h := native.Handle(win.Id)
	p.windows[h] = &windowRecord{surface: true}
	return h, nil
}

func (p *Platform) DestroyWindow(h native.Handle) {
	w := p.live(h)
	if w == nil {
		return
	}
	w.destroyed = true
	// Destroy notifications are delivered synchronously here rather than
	// waiting for the asynchronous DestroyNotify, so the window layer's
	// teardown bookkeeping runs before any further event.
	if !w.surface {
		p.emit(h, &native.Event{Code: native.EventDestroyed})
		p.emit(h, &native.Event{Code: native.EventFinalDestroy})
	}
	xwindow.New(p.conn.XUtil, xproto.Window(h)).Destroy()
}

func (p *Platform) RequestClose(h native.Handle) {
	if p.live(h) == nil {
		return
	}
	p.emit(h, &native.Event{Code: native.EventClose})
}

func (p *Platform) Show(h native.Handle, cmd native.ShowCmd) {
	w := p.live(h)
	if w == nil {
		return
	}
	if !w.mapped && !w.surface {
		p.emit(h, &native.Event{Code: native.EventShown, Param1: 1})
	}
	w.mapped = true
	xwindow.New(p.conn.XUtil, xproto.Window(h)).Map()
	if cmd != native.ShowNormal {
		p.SetPlacement(h, cmd)
	}
}

func (p *Platform) SetPlacement(h native.Handle, cmd native.ShowCmd) {
	w := p.live(h)
	if w == nil {
		return
	}
	if !w.mapped {
		w.mapped = true
		xwindow.New(p.conn.XUtil, xproto.Window(h)).Map()
	}

	xu := p.conn.XUtil
	win := xproto.Window(h)
	kind := native.SizeRestored
	switch cmd {
	case native.ShowMaximized, native.ShowMaximize:
		ewmh.WmStateReq(xu, win, stateAdd, "_NET_WM_STATE_MAXIMIZED_HORZ")
		ewmh.WmStateReq(xu, win, stateAdd, "_NET_WM_STATE_MAXIMIZED_VERT")
		kind = native.SizeMaximized
	case native.ShowMinimized, native.ShowMinimize:
		if err := p.minimize(win); err != nil {
			p.log.Warn("minimize request failed", "handle", h, "error", err)
		}
		kind = native.SizeMinimized
	default:
		ewmh.WmStateReq(xu, win, stateRemove, "_NET_WM_STATE_MAXIMIZED_HORZ")
		ewmh.WmStateReq(xu, win, stateRemove, "_NET_WM_STATE_MAXIMIZED_VERT")
	}

	if !w.surface {
		p.emit(h, &native.Event{Code: native.EventResized, Param1: kind})
	}
}

// minimize sends an ICCCM WM_CHANGE_STATE client message; xgbutil has no
// helper for iconification.
func (p *Platform) minimize(win xproto.Window) error {
	atom, err := p.conn.Atom("WM_CHANGE_STATE")
	if err != nil {
		return err
	}
	ev := xproto.ClientMessageEvent{
		Format: 32,
		Window: win,
		Type:   atom,
		Data:   xproto.ClientMessageDataUnionData32New([]uint32{iconicState, 0, 0, 0, 0}),
	}
	return xproto.SendEventChecked(
		p.conn.XUtil.Conn(),
		false,
		p.conn.Root,
		xproto.EventMaskSubstructureRedirect|xproto.EventMaskSubstructureNotify,
		string(ev.Bytes()),
	).Check()
}

func (p *Platform) SetRect(h native.Handle, r geometry.Rect) {
	if p.live(h) == nil {
		return
	}
	xwindow.New(p.conn.XUtil, xproto.Window(h)).MoveResize(r.X, r.Y, r.Width, r.Height)
}

func (p *Platform) Resize(h native.Handle, s geometry.Size) {
	if p.live(h) == nil {
		return
	}
	xwindow.New(p.conn.XUtil, xproto.Window(h)).Resize(s.Width, s.Height)
}

func (p *Platform) WindowRect(h native.Handle) geometry.Rect {
	win := xwindow.New(p.conn.XUtil, xproto.Window(h))
	g, err := win.DecorGeometry()
	if err != nil {
		return geometry.Rect{}
	}
	return geometry.Rect{X: g.X(), Y: g.Y(), Width: g.Width(), Height: g.Height()}
}

func (p *Platform) ClientRect(h native.Handle) geometry.Rect {
	xu := p.conn.XUtil
	geom, err := xproto.GetGeometry(xu.Conn(), xproto.Drawable(h)).Reply()
	if err != nil {
		return geometry.Rect{}
	}
	translate, err := xproto.TranslateCoordinates(
		xu.Conn(), xproto.Window(h), p.conn.Root, 0, 0).Reply()
	if err != nil {
		return geometry.Rect{}
	}
	return geometry.Rect{
		X:     int(translate.DstX),
		Y:     int(translate.DstY),
		Width: int(geom.Width), Height: int(geom.Height),
	}
}

// FrameBounds equals the decorated window rectangle on X11: compositor drop
// shadows live outside the window, so there is no shadow margin to strip.
func (p *Platform) FrameBounds(h native.Handle) geometry.Rect {
	return p.WindowRect(h)
}

func (p *Platform) SetFocus(h native.Handle) {
	if p.live(h) == nil {
		return
	}
	err := xproto.SetInputFocusChecked(p.conn.XUtil.Conn(),
		xproto.InputFocusPointerRoot, xproto.Window(h), 0).Check()
	if err != nil {
		p.log.Warn("set focus failed", "handle", h, "error", err)
	}
}

// IsEnabled always reports true for live windows: X11 has no per-window
// input-disable flag comparable to other platforms.
func (p *Platform) IsEnabled(h native.Handle) bool {
	return p.live(h) != nil
}

func (p *Platform) RedrawFrame(h native.Handle) {
	if p.live(h) == nil {
		return
	}
	// The window manager owns the frame; clearing with exposures forces it
	// and the client area to repaint with the true activation state.
	xproto.ClearArea(p.conn.XUtil.Conn(), true, xproto.Window(h), 0, 0, 0, 0)
}

func (p *Platform) SetTitle(h native.Handle, title string) {
	if p.live(h) == nil {
		return
	}
	if err := ewmh.WmNameSet(p.conn.XUtil, xproto.Window(h), title); err != nil {
		p.log.Warn("failed to set window title", "handle", h, "error", err)
	}
}

// ApplyTheme sets _GTK_THEME_VARIANT, which GTK-based window managers and
// server-side decorators honor for dark/light frames.
func (p *Platform) ApplyTheme(h native.Handle, t native.Theme) {
	if p.live(h) == nil {
		return
	}
	variantAtom, err := p.conn.Atom("_GTK_THEME_VARIANT")
	if err != nil {
		p.log.Warn("theme variant atom unavailable", "error", err)
		return
	}
	utf8Atom, err := p.conn.Atom("UTF8_STRING")
	if err != nil {
		p.log.Warn("utf8 atom unavailable", "error", err)
		return
	}
	variant := "light"
	if t == native.ThemeDark {
		variant = "dark"
	}
	err = xproto.ChangePropertyChecked(p.conn.XUtil.Conn(), xproto.PropModeReplace,
		xproto.Window(h), variantAtom, utf8Atom, 8,
		uint32(len(variant)), []byte(variant)).Check()
	if err != nil {
		p.log.Warn("failed to set theme variant", "handle", h, "error", err)
	}
}

func (p *Platform) PreferredTheme() native.Theme { return p.theme }

func (p *Platform) Reparent(child, parent native.Handle) {
	err := xproto.ReparentWindowChecked(p.conn.XUtil.Conn(),
		xproto.Window(child), xproto.Window(parent), 0, 0).Check()
	if err != nil {
		p.log.Warn("reparent failed", "child", child, "parent", parent, "error", err)
		return
	}
	xwindow.New(p.conn.XUtil, xproto.Window(child)).Map()
}

func (p *Platform) DPIForWindow(h native.Handle) int {
	displays := p.Displays()
	if len(displays) == 0 {
		return geometry.BaseDPI
	}
	if h != 0 {
		if d, ok := display.BestFor(displays, p.WindowRect(h)); ok {
			return d.DPI
		}
	}
	if d, ok := display.Primary(displays); ok {
		return d.DPI
	}
	return geometry.BaseDPI
}

// frameExtents reports the window manager's decoration margins for a
// realized window, caching the last successful answer as the estimate for
// windows that do not exist yet.
func (p *Platform) frameExtents(h native.Handle) Insets {
	if h != 0 {
		if ext, err := ewmh.FrameExtentsGet(p.conn.XUtil, xproto.Window(h)); err == nil {
			in := Insets{
				Left: int(ext.Left), Right: int(ext.Right),
				Top: int(ext.Top), Bottom: int(ext.Bottom),
			}
			p.lastExtents = in
			return in
		}
	}
	return p.lastExtents
}

func (p *Platform) FrameSizeForClientSize(client geometry.Size, style native.Style, owner native.Handle) geometry.Size {
	if style == native.StylePopup {
		// Override-redirect windows carry no decorations.
		return client
	}
	in := p.frameExtents(owner)
	return geometry.Size{
		Width:  client.Width + in.Left + in.Right,
		Height: client.Height + in.Top + in.Bottom,
	}
}

// VisibleFrameSize is the identity on X11: the decorated rectangle is the
// visible frame.
func (p *Platform) VisibleFrameSize(window geometry.Size, style native.Style, owner native.Handle) geometry.Size {
	return window
}

func (p *Platform) DefaultHandler(h native.Handle, ev *native.Event) native.Result {
	if ev.Code == native.EventClose {
		p.DestroyWindow(h)
	}
	return native.Handled(0)
}

func (p *Platform) SetEventSink(sink native.EventSink) { p.sink = sink }
