// Package controller owns every live window entity. It maps native handles
// to entities, allocates view identifiers for the embedding application,
// and bridges native events into the application callback, buffering any
// event that arrives before the application layer is ready.
package controller

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/embery/winman/internal/geometry"
	"github.com/embery/winman/internal/native"
	"github.com/embery/winman/internal/placement"
	"github.com/embery/winman/internal/window"
)

// Message is the application-facing form of a native event. The callback
// may set Result and Handled before returning; a handled message short-
// circuits default platform handling.
type Message struct {
	ViewID  int64
	Window  native.Handle
	Code    native.EventCode
	Param1  int64
	Param2  int64
	Result  int64
	Handled bool
}

// Callback receives messages synchronously on the pump thread. It must not
// block, and it may re-enter the controller (create or destroy windows)
// before returning.
type Callback func(*Message)

// CreateRequest describes a window to create. Sizes are logical. OwnerView
// identifies the owning window for popups; zero means no owner.
type CreateRequest struct {
	Archetype  window.Archetype
	OwnerView  int64
	Positioner *placement.Positioner
	ClientSize geometry.SizeF
	MinSize    *geometry.SizeF
	MaxSize    *geometry.SizeF
	State      window.State
	Title      string
}

// Controller is the process-wide window registry and event bridge. All
// methods must be called on the thread that owns the native message pump;
// there is no internal locking because there is no concurrent mutation.
type Controller struct {
	platform native.Platform
	log      *slog.Logger

	windows map[native.Handle]*window.Window
	views   map[int64]native.Handle
	viewOf  map[native.Handle]int64
	nextID  int64

	callback    Callback
	initialized bool
	pending     []*Message
}

// New builds a controller and installs it as the platform's event sink.
func New(p native.Platform, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	c := &Controller{
		platform: p,
		log:      log,
		windows:  make(map[native.Handle]*window.Window),
		views:    make(map[int64]native.Handle),
		viewOf:   make(map[native.Handle]int64),
	}
	p.SetEventSink(c.WindowProc)
	return c
}

// CreateWindow constructs and registers a window entity, returning the view
// identifier of its rendering surface. On failure nothing is registered and
// no identifier is consumed.
func (c *Controller) CreateWindow(req CreateRequest) (int64, error) {
	var owner *window.Window
	if req.OwnerView != 0 {
		owner = c.WindowForView(req.OwnerView)
		if owner == nil {
			return 0, fmt.Errorf("owner view %d does not exist", req.OwnerView)
		}
	}

	w, err := window.New(c.platform, c.log, window.Settings{
		Archetype:  req.Archetype,
		Owner:      owner,
		Positioner: req.Positioner,
		ClientSize: req.ClientSize,
		MinSize:    req.MinSize,
		MaxSize:    req.MaxSize,
		State:      req.State,
		Title:      req.Title,
	})
	if err != nil {
		c.log.Error("window creation failed", "error", err)
		return 0, err
	}

	c.nextID++
	id := c.nextID
	h := w.Handle()
	c.windows[h] = w
	c.views[id] = h
	c.viewOf[h] = id
	c.log.Info("window registered",
		"view", id, "handle", h, "archetype", req.Archetype.String())
	return id, nil
}

// Initialize installs the forwarding callback. Events buffered before this
// call are replayed in original arrival order, each exactly once; events
// arriving afterwards are forwarded immediately and never buffered. A
// second call is ignored.
func (c *Controller) Initialize(cb Callback) {
	if c.initialized {
		c.log.Warn("controller already initialized, ignoring")
		return
	}
	c.callback = cb
	c.initialized = true

	buffered := c.pending
	c.pending = nil
	for _, msg := range buffered {
		cb(msg)
	}
}

// Shutdown stops forwarding and destroys every registered window. Each
// destruction re-enters HandleMessage and unregisters itself, so the
// handles are snapshotted before iterating.
func (c *Controller) Shutdown() {
	c.callback = nil
	c.initialized = true

	handles := make([]native.Handle, 0, len(c.windows))
	for h := range c.windows {
		handles = append(handles, h)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
	for _, h := range handles {
		if w, ok := c.windows[h]; ok {
			w.Destroy()
		}
	}
}

// HandleMessage performs cross-window bookkeeping and forwards the event to
// the application. A handled result carries the callback's value; an
// unhandled result means the caller should continue with per-window and
// default handling.
func (c *Controller) HandleMessage(h native.Handle, ev *native.Event) native.Result {
	if ev.Code == native.EventFinalDestroy {
		// Remove from the registry first so re-entrant lookups during
		// teardown see the window as gone.
		delete(c.windows, h)
		defer func() {
			if id, ok := c.viewOf[h]; ok {
				delete(c.views, id)
				delete(c.viewOf, h)
			}
		}()
	}

	id, ok := c.viewOf[h]
	if !ok {
		c.log.Warn("event for unknown view", "handle", h, "event", ev.Code.String())
		return native.Unhandled
	}

	msg := &Message{
		ViewID: id,
		Window: h,
		Code:   ev.Code,
		Param1: ev.Param1,
		Param2: ev.Param2,
	}
	if !c.initialized {
		c.pending = append(c.pending, msg)
		return native.Unhandled
	}
	if c.callback == nil {
		return native.Unhandled
	}
	c.callback(msg)
	if msg.Handled {
		return native.Handled(msg.Result)
	}
	return native.Unhandled
}

// WindowProc is the event sink installed on the platform: application
// forwarding first, then the window's local state machine, then the
// platform default.
func (c *Controller) WindowProc(h native.Handle, ev *native.Event) native.Result {
	w := c.windows[h]
	if res := c.HandleMessage(h, ev); res.Handled {
		return res
	}
	if w != nil {
		if res := w.HandleMessage(ev); res.Handled {
			return res
		}
	}
	return c.platform.DefaultHandler(h, ev)
}

// WindowFor returns the entity registered under h, or nil.
func (c *Controller) WindowFor(h native.Handle) *window.Window {
	return c.windows[h]
}

// WindowForView resolves a view identifier to its entity, or nil.
func (c *Controller) WindowForView(id int64) *window.Window {
	h, ok := c.views[id]
	if !ok {
		return nil
	}
	return c.windows[h]
}

// ViewFor returns the view identifier for a handle, zero if unknown.
func (c *Controller) ViewFor(h native.Handle) int64 {
	return c.viewOf[h]
}

// Windows returns all registered entities in ascending handle order.
func (c *Controller) Windows() []*window.Window {
	handles := make([]native.Handle, 0, len(c.windows))
	for h := range c.windows {
		handles = append(handles, h)
	}
	sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
	ws := make([]*window.Window, len(handles))
	for i, h := range handles {
		ws[i] = c.windows[h]
	}
	return ws
}
