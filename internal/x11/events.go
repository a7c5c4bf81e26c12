package x11

import (
	"context"
	"fmt"
	"sync"

	"github.com/BurntSushi/xgb"
	"github.com/BurntSushi/xgb/randr"
	"github.com/BurntSushi/xgb/xproto"
	"github.com/BurntSushi/xgbutil/ewmh"

	"github.com/embery/winman/internal/native"
)

// Run blocks reading X events and routing them through the event sink until
// the context is canceled or the connection drops. It must run on the same
// goroutine that performs all other platform calls.
func (p *Platform) Run(ctx context.Context) error {
	conn := p.conn.XUtil.Conn()

	// Screen change notifications drive DPI re-evaluation.
	if err := randr.Init(conn); err == nil {
		randr.SelectInput(conn, p.conn.Root, randr.NotifyMaskScreenChange)
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		ev, xerr := conn.WaitForEvent()
		if ev == nil && xerr == nil {
			return fmt.Errorf("x11 connection closed")
		}
		if xerr != nil {
			p.log.Warn("x error", "error", xerr)
			continue
		}
		if p.dispatchMu != nil {
			p.dispatchMu.Lock()
			p.dispatch(ev)
			p.dispatchMu.Unlock()
		} else {
			p.dispatch(ev)
		}
	}
}

// SetDispatchLock installs a lock held around each event dispatch. The IPC
// server holds the same lock while driving windows, so native events never
// interleave with control commands. Operations started while the lock is
// held emit their events synchronously without reacquiring it.
func (p *Platform) SetDispatchLock(l sync.Locker) {
	p.dispatchMu = l
}

func (p *Platform) dispatch(ev xgb.Event) {
	switch e := ev.(type) {
	case xproto.ClientMessageEvent:
		p.onClientMessage(e)

	case xproto.ConfigureNotifyEvent:
		h := native.Handle(e.Window)
		if w := p.live(h); w != nil && !w.surface {
			p.emit(h, &native.Event{
				Code:   native.EventResized,
				Param1: p.sizeKind(e.Window),
			})
		}

	case xproto.FocusInEvent:
		h := native.Handle(e.Event)
		if w := p.live(h); w != nil && !w.surface {
			p.emit(h, &native.Event{Code: native.EventActivated, Param1: 1})
		}

	case xproto.FocusOutEvent:
		h := native.Handle(e.Event)
		if w := p.live(h); w != nil && !w.surface {
			p.emit(h, &native.Event{Code: native.EventActivated, Param1: 0})
		}

	case xproto.MapNotifyEvent:
		h := native.Handle(e.Window)
		if w := p.live(h); w != nil && !w.surface && !w.mapped {
			// Mapped from outside (e.g. by the window manager); deliver the
			// visibility transition the window layer is waiting on.
			w.mapped = true
			p.emit(h, &native.Event{Code: native.EventShown, Param1: 1})
		}

	case xproto.DestroyNotifyEvent:
		h := native.Handle(e.Window)
		w := p.windows[h]
		if w == nil {
			return
		}
		if !w.destroyed {
			// Destroyed externally, not through DestroyWindow.
			w.destroyed = true
			if !w.surface {
				p.emit(h, &native.Event{Code: native.EventDestroyed})
				p.emit(h, &native.Event{Code: native.EventFinalDestroy})
			}
		}
		delete(p.windows, h)

	case randr.ScreenChangeNotifyEvent:
		p.onScreenChange()
	}
}

// onClientMessage handles WM_PROTOCOLS: a WM_DELETE_WINDOW message is the
// window manager asking the window to close.
func (p *Platform) onClientMessage(e xproto.ClientMessageEvent) {
	protocols, err := p.conn.Atom("WM_PROTOCOLS")
	if err != nil || e.Type != protocols || e.Format != 32 {
		return
	}
	deleteWindow, err := p.conn.Atom("WM_DELETE_WINDOW")
	if err != nil {
		return
	}
	if xproto.Atom(e.Data.Data32[0]) != deleteWindow {
		return
	}
	h := native.Handle(e.Window)
	if p.live(h) == nil {
		return
	}
	p.emit(h, &native.Event{Code: native.EventClose})
}

// sizeKind inspects the window's EWMH state to classify a configure event.
func (p *Platform) sizeKind(win xproto.Window) int64 {
	states, err := ewmh.WmStateGet(p.conn.XUtil, win)
	if err != nil {
		return native.SizeRestored
	}
	horz, vert := false, false
	for _, s := range states {
		switch s {
		case "_NET_WM_STATE_MAXIMIZED_HORZ":
			horz = true
		case "_NET_WM_STATE_MAXIMIZED_VERT":
			vert = true
		case "_NET_WM_STATE_HIDDEN":
			return native.SizeMinimized
		}
	}
	if horz && vert {
		return native.SizeMaximized
	}
	return native.SizeRestored
}

// onScreenChange re-delivers each window's rectangle as a DPI change so the
// window layer repositions under the new monitor layout.
func (p *Platform) onScreenChange() {
	for h, w := range p.windows {
		if w.surface || w.destroyed {
			continue
		}
		p.emit(h, &native.Event{
			Code: native.EventDPIChanged,
			Rect: p.WindowRect(h),
		})
	}
}

// SetTheme updates the preferred frame variant and notifies every window so
// decorations re-derive it, mirroring a system theme broadcast.
func (p *Platform) SetTheme(t native.Theme) {
	p.theme = t
	for h, w := range p.windows {
		if w.surface || w.destroyed {
			continue
		}
		p.emit(h, &native.Event{Code: native.EventThemeChanged})
	}
}
