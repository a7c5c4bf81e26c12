// Package nativetest provides a scripted in-memory native.Platform. It
// mimics the observable behavior of a real window system (synchronous
// event emission on show/resize/destroy, frame and shadow margins, a
// display list) so the window and controller layers can be exercised
// without a windowing connection.
package nativetest

import (
	"errors"
	"fmt"

	"github.com/embery/winman/internal/display"
	"github.com/embery/winman/internal/geometry"
	"github.com/embery/winman/internal/native"
)

// ErrCreateFailed is returned from CreateWindow when FailCreate is set.
var ErrCreateFailed = errors.New("nativetest: window creation failed")

// Insets are per-edge margins in pixels.
type Insets struct {
	Left, Top, Right, Bottom int
}

func (i Insets) width() int  { return i.Left + i.Right }
func (i Insets) height() int { return i.Top + i.Bottom }

// Window records the state of one fake native window.
type Window struct {
	Handle    native.Handle
	Config    native.WindowConfig
	Rect      geometry.Rect // raw window rect, shadow included
	Title     string
	Theme     native.Theme
	HasTheme  bool
	Parent    native.Handle
	Surface   bool
	Visible   bool
	Enabled   bool
	Destroyed bool

	ShowCmds   []native.ShowCmd
	Placements []native.ShowCmd
	Redraws    int
}

// Platform is the fake backend. The zero value is not usable; call New.
type Platform struct {
	DPI         int
	DisplayList []display.Display
	NonClient   Insets // client area to visible frame
	Shadow      Insets // visible frame to raw window rect
	Theme       native.Theme
	FailCreate  bool
	FailSurface bool

	DefaultPos  geometry.Point
	DefaultSize geometry.Size

	windows map[native.Handle]*Window
	next    native.Handle
	sink    native.EventSink

	FocusLog   []native.Handle
	DefaultLog []native.EventCode
	DestroyLog []native.Handle
	CloseLog   []native.Handle
}

// New returns a platform with a single 1920x1080 display at 96 DPI, a
// 40-pixel bottom panel carved out of the work area, conventional frame
// margins, and a 7-pixel drop shadow on the left, right and bottom edges.
func New() *Platform {
	return &Platform{
		DPI: geometry.BaseDPI,
		DisplayList: []display.Display{{
			ID:       0,
			Name:     "FAKE-0",
			Bounds:   geometry.Rect{X: 0, Y: 0, Width: 1920, Height: 1080},
			WorkArea: geometry.Rect{X: 0, Y: 0, Width: 1920, Height: 1040},
			DPI:      geometry.BaseDPI,
		}},
		NonClient:   Insets{Left: 8, Top: 31, Right: 8, Bottom: 8},
		Shadow:      Insets{Left: 7, Top: 0, Right: 7, Bottom: 7},
		DefaultPos:  geometry.Point{X: 100, Y: 100},
		DefaultSize: geometry.Size{Width: 640, Height: 480},
		windows:     make(map[native.Handle]*Window),
	}
}

// Window returns the record for h, destroyed or not, or nil.
func (p *Platform) Window(h native.Handle) *Window { return p.windows[h] }

// LiveWindows counts windows that have not been destroyed.
func (p *Platform) LiveWindows() int {
	n := 0
	for _, w := range p.windows {
		if !w.Destroyed {
			n++
		}
	}
	return n
}

func (p *Platform) live(h native.Handle) *Window {
	w := p.windows[h]
	if w == nil || w.Destroyed {
		return nil
	}
	return w
}

func (p *Platform) emit(h native.Handle, ev *native.Event) native.Result {
	if p.sink == nil {
		return native.Unhandled
	}
	return p.sink(h, ev)
}

func (p *Platform) CreateWindow(cfg native.WindowConfig) (native.Handle, error) {
	if p.FailCreate {
		return 0, ErrCreateFailed
	}
	p.next++
	h := p.next
	rect := geometry.Rect{
		X: p.DefaultPos.X, Y: p.DefaultPos.Y,
		Width: p.DefaultSize.Width, Height: p.DefaultSize.Height,
	}
	if cfg.Rect != nil {
		rect = *cfg.Rect
	} else if cfg.Size != nil {
		rect.Width = cfg.Size.Width
		rect.Height = cfg.Size.Height
	}
	p.windows[h] = &Window{
		Handle:  h,
		Config:  cfg,
		Rect:    rect,
		Title:   cfg.Title,
		Enabled: true,
	}
	return h, nil
}

func (p *Platform) CreateSurface(size geometry.Size) (native.Handle, error) {
	if p.FailCreate || p.FailSurface {
		return 0, ErrCreateFailed
	}
	p.next++
	h := p.next
	p.windows[h] = &Window{
		Handle:  h,
		Rect:    geometry.Rect{Width: size.Width, Height: size.Height},
		Surface: true,
		Enabled: true,
	}
	return h, nil
}

func (p *Platform) DestroyWindow(h native.Handle) {
	w := p.live(h)
	if w == nil {
		return
	}
	w.Destroyed = true
	w.Visible = false
	p.DestroyLog = append(p.DestroyLog, h)
	if !w.Surface {
		p.emit(h, &native.Event{Code: native.EventDestroyed})
		p.emit(h, &native.Event{Code: native.EventFinalDestroy})
	}
	// Reparented children go down with their parent.
	for _, child := range p.windows {
		if !child.Destroyed && child.Parent == h {
			p.DestroyWindow(child.Handle)
		}
	}
}

func (p *Platform) RequestClose(h native.Handle) {
	if p.live(h) == nil {
		return
	}
	p.CloseLog = append(p.CloseLog, h)
	p.emit(h, &native.Event{Code: native.EventClose})
}

func (p *Platform) Show(h native.Handle, cmd native.ShowCmd) {
	w := p.live(h)
	if w == nil {
		return
	}
	w.ShowCmds = append(w.ShowCmds, cmd)
	if !w.Visible && !w.Surface {
		p.emit(h, &native.Event{Code: native.EventShown, Param1: 1})
	}
	w.Visible = true
}

func (p *Platform) SetPlacement(h native.Handle, cmd native.ShowCmd) {
	w := p.live(h)
	if w == nil {
		return
	}
	w.Placements = append(w.Placements, cmd)
	w.Visible = true
	if w.Surface {
		return
	}
	kind := native.SizeRestored
	switch cmd {
	case native.ShowMaximized, native.ShowMaximize:
		kind = native.SizeMaximized
	case native.ShowMinimized, native.ShowMinimize:
		kind = native.SizeMinimized
	}
	p.emit(h, &native.Event{Code: native.EventResized, Param1: kind})
}

func (p *Platform) SetRect(h native.Handle, r geometry.Rect) {
	w := p.live(h)
	if w == nil {
		return
	}
	resized := r.Width != w.Rect.Width || r.Height != w.Rect.Height
	w.Rect = r
	if resized && !w.Surface {
		p.emit(h, &native.Event{Code: native.EventResized, Param1: native.SizeRestored})
	}
}

func (p *Platform) Resize(h native.Handle, s geometry.Size) {
	w := p.live(h)
	if w == nil {
		return
	}
	p.SetRect(h, geometry.Rect{X: w.Rect.X, Y: w.Rect.Y, Width: s.Width, Height: s.Height})
}

func (p *Platform) WindowRect(h native.Handle) geometry.Rect {
	if w := p.windows[h]; w != nil {
		return w.Rect
	}
	return geometry.Rect{}
}

func (p *Platform) FrameBounds(h native.Handle) geometry.Rect {
	w := p.windows[h]
	if w == nil {
		return geometry.Rect{}
	}
	if w.Surface {
		return w.Rect
	}
	return geometry.Rect{
		X:      w.Rect.X + p.Shadow.Left,
		Y:      w.Rect.Y + p.Shadow.Top,
		Width:  w.Rect.Width - p.Shadow.width(),
		Height: w.Rect.Height - p.Shadow.height(),
	}
}

// nonClient returns the frame margins for a window; popups are borderless
// so only the shadow separates their client area from the raw rect.
func (p *Platform) nonClient(w *Window) Insets {
	if w.Config.Style == native.StylePopup {
		return Insets{}
	}
	return p.NonClient
}

func (p *Platform) ClientRect(h native.Handle) geometry.Rect {
	w := p.windows[h]
	if w == nil {
		return geometry.Rect{}
	}
	if w.Surface {
		return w.Rect
	}
	nc := p.nonClient(w)
	fb := p.FrameBounds(h)
	return geometry.Rect{
		X:      fb.X + nc.Left,
		Y:      fb.Y + nc.Top,
		Width:  fb.Width - nc.width(),
		Height: fb.Height - nc.height(),
	}
}

func (p *Platform) SetFocus(h native.Handle) {
	if p.live(h) == nil {
		return
	}
	p.FocusLog = append(p.FocusLog, h)
}

func (p *Platform) IsEnabled(h native.Handle) bool {
	w := p.live(h)
	return w != nil && w.Enabled
}

func (p *Platform) RedrawFrame(h native.Handle) {
	if w := p.live(h); w != nil {
		w.Redraws++
	}
}

func (p *Platform) SetTitle(h native.Handle, title string) {
	if w := p.live(h); w != nil {
		w.Title = title
	}
}

func (p *Platform) ApplyTheme(h native.Handle, t native.Theme) {
	if w := p.live(h); w != nil {
		w.Theme = t
		w.HasTheme = true
	}
}

func (p *Platform) PreferredTheme() native.Theme { return p.Theme }

func (p *Platform) Reparent(child, parent native.Handle) {
	if w := p.live(child); w != nil {
		w.Parent = parent
	}
}

func (p *Platform) DPIForWindow(h native.Handle) int {
	if p.DPI > 0 {
		return p.DPI
	}
	return geometry.BaseDPI
}

func (p *Platform) FrameSizeForClientSize(client geometry.Size, style native.Style, owner native.Handle) geometry.Size {
	if style == native.StylePopup {
		return geometry.Size{
			Width:  client.Width + p.Shadow.width(),
			Height: client.Height + p.Shadow.height(),
		}
	}
	return geometry.Size{
		Width:  client.Width + p.NonClient.width() + p.Shadow.width(),
		Height: client.Height + p.NonClient.height() + p.Shadow.height(),
	}
}

func (p *Platform) VisibleFrameSize(window geometry.Size, style native.Style, owner native.Handle) geometry.Size {
	return geometry.Size{
		Width:  window.Width - p.Shadow.width(),
		Height: window.Height - p.Shadow.height(),
	}
}

func (p *Platform) Displays() []display.Display { return p.DisplayList }

func (p *Platform) DefaultHandler(h native.Handle, ev *native.Event) native.Result {
	p.DefaultLog = append(p.DefaultLog, ev.Code)
	if ev.Code == native.EventClose {
		p.DestroyWindow(h)
		return native.Handled(0)
	}
	return native.Handled(0)
}

func (p *Platform) SetEventSink(sink native.EventSink) { p.sink = sink }

// Deliver injects an event for h through the installed sink, the way the
// real message pump would, and returns the sink's result.
func (p *Platform) Deliver(h native.Handle, ev *native.Event) (native.Result, error) {
	if p.sink == nil {
		return native.Unhandled, fmt.Errorf("nativetest: no event sink installed")
	}
	return p.sink(h, ev), nil
}
