package controller

import (
	"testing"

	"github.com/embery/winman/internal/geometry"
	"github.com/embery/winman/internal/native"
	"github.com/embery/winman/internal/native/nativetest"
	"github.com/embery/winman/internal/placement"
	"github.com/embery/winman/internal/window"
)

func newController() (*Controller, *nativetest.Platform) {
	p := nativetest.New()
	return New(p, nil), p
}

func regularRequest() CreateRequest {
	return CreateRequest{
		Archetype:  window.Regular,
		ClientSize: geometry.SizeF{Width: 800, Height: 600},
	}
}

func popupRequest(ownerView int64) CreateRequest {
	return CreateRequest{
		Archetype: window.Popup,
		OwnerView: ownerView,
		Positioner: &placement.Positioner{
			Anchor:     placement.GravityTopLeft,
			Gravity:    placement.GravityBottomRight,
			Adjustment: placement.AdjustAll,
		},
		ClientSize: geometry.SizeF{Width: 200, Height: 100},
	}
}

func TestCreateWindow_RegistersByHandleAndView(t *testing.T) {
	c, _ := newController()

	id, err := c.CreateWindow(regularRequest())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id == 0 {
		t.Fatalf("expected nonzero view id")
	}
	w := c.WindowForView(id)
	if w == nil {
		t.Fatalf("view %d not resolvable", id)
	}
	if c.WindowFor(w.Handle()) != w {
		t.Fatalf("handle lookup does not match view lookup")
	}
	if c.ViewFor(w.Handle()) != id {
		t.Fatalf("reverse view lookup broken")
	}
}

func TestCreateWindow_FailureRegistersNothing(t *testing.T) {
	c, p := newController()
	p.FailCreate = true

	id, err := c.CreateWindow(regularRequest())
	if err == nil {
		t.Fatalf("expected creation failure")
	}
	if id != 0 {
		t.Fatalf("failure consumed view id %d", id)
	}
	if len(c.Windows()) != 0 {
		t.Fatalf("failed creation left a registry entry")
	}

	// Precondition violations surface the window package's errors.
	p.FailCreate = false
	if _, err := c.CreateWindow(CreateRequest{Archetype: window.Popup}); err == nil {
		t.Fatalf("expected precondition failure for ownerless popup")
	}
}

func TestCreateWindow_ResolvesOwnerView(t *testing.T) {
	c, _ := newController()
	ownerID, err := c.CreateWindow(regularRequest())
	if err != nil {
		t.Fatalf("owner creation: %v", err)
	}

	popupID, err := c.CreateWindow(popupRequest(ownerID))
	if err != nil {
		t.Fatalf("popup creation: %v", err)
	}
	owner := c.WindowForView(ownerID)
	popup := c.WindowForView(popupID)
	if popup.Owner() != owner {
		t.Fatalf("popup not linked to owner view")
	}

	if _, err := c.CreateWindow(popupRequest(9999)); err == nil {
		t.Fatalf("expected error for unknown owner view")
	}
}

func TestInitialize_ReplaysBufferedEventsInOrderExactlyOnce(t *testing.T) {
	c, _ := newController()
	id, err := c.CreateWindow(regularRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	w := c.WindowForView(id)

	// Show and two activations arrive before the application layer exists.
	w.Show()
	c.WindowProc(w.Handle(), &native.Event{Code: native.EventActivated, Param1: 1})
	c.WindowProc(w.Handle(), &native.Event{Code: native.EventThemeChanged})

	var got []native.EventCode
	c.Initialize(func(m *Message) {
		got = append(got, m.Code)
		if m.ViewID != id {
			t.Fatalf("buffered message carries view %d, want %d", m.ViewID, id)
		}
	})

	want := []native.EventCode{
		native.EventShown, native.EventResized,
		native.EventActivated, native.EventThemeChanged,
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d replayed events, got %d (%v)", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("replay order mismatch at %d: got %v, want %v", i, got, want)
		}
	}

	// Live events are forwarded immediately and the buffer is not replayed
	// again.
	c.WindowProc(w.Handle(), &native.Event{Code: native.EventActivated, Param1: 1})
	if len(got) != len(want)+1 || got[len(got)-1] != native.EventActivated {
		t.Fatalf("live event not forwarded exactly once: %v", got)
	}

	// A second Initialize is ignored.
	c.Initialize(func(m *Message) { t.Fatalf("second callback invoked") })
	c.WindowProc(w.Handle(), &native.Event{Code: native.EventThemeChanged})
	if got[len(got)-1] != native.EventThemeChanged {
		t.Fatalf("original callback lost after duplicate Initialize")
	}
}

func TestHandleMessage_UnknownViewIsDropped(t *testing.T) {
	c, _ := newController()
	called := false
	c.Initialize(func(m *Message) { called = true })

	res := c.WindowProc(native.Handle(77), &native.Event{Code: native.EventActivated})
	if res.Handled {
		t.Fatalf("unknown-view event reported handled before default handling")
	}
	if called {
		t.Fatalf("callback invoked for unknown view")
	}
}

func TestHandleMessage_CallbackResultShortCircuits(t *testing.T) {
	c, p := newController()
	id, err := c.CreateWindow(regularRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	w := c.WindowForView(id)

	// The application claims close events, so default destruction must not
	// run.
	c.Initialize(func(m *Message) {
		if m.Code == native.EventClose {
			m.Handled = true
			m.Result = 0
		}
	})

	p.RequestClose(w.Handle())
	if c.WindowFor(w.Handle()) == nil {
		t.Fatalf("handled close still destroyed the window")
	}
	if p.LiveWindows() == 0 {
		t.Fatalf("native window destroyed despite handled close")
	}
}

func TestHandleMessage_FinalDestroyUnregistersBeforeForwarding(t *testing.T) {
	c, _ := newController()
	id, err := c.CreateWindow(regularRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	w := c.WindowForView(id)
	h := w.Handle()

	var sawFinal bool
	c.Initialize(func(m *Message) {
		if m.Code == native.EventFinalDestroy {
			sawFinal = true
			if m.ViewID != id {
				t.Fatalf("final destroy for wrong view %d", m.ViewID)
			}
			// Re-entrant lookups during teardown must see the window gone.
			if c.WindowFor(h) != nil {
				t.Fatalf("registry still holds window during final destroy")
			}
		}
	})

	w.Destroy()
	if !sawFinal {
		t.Fatalf("final destroy never forwarded")
	}
	if c.WindowForView(id) != nil {
		t.Fatalf("view id still resolvable after destroy")
	}
}

func TestShutdown_DestroysAllWindowsAndStopsForwarding(t *testing.T) {
	c, p := newController()
	ownerID, err := c.CreateWindow(regularRequest())
	if err != nil {
		t.Fatalf("create owner: %v", err)
	}
	if _, err := c.CreateWindow(popupRequest(ownerID)); err != nil {
		t.Fatalf("create popup: %v", err)
	}
	if _, err := c.CreateWindow(regularRequest()); err != nil {
		t.Fatalf("create second regular: %v", err)
	}

	forwarded := 0
	c.Initialize(func(m *Message) { forwarded++ })
	forwardedBefore := forwarded

	c.Shutdown()
	if len(c.Windows()) != 0 {
		t.Fatalf("registry not empty after shutdown: %d", len(c.Windows()))
	}
	if p.LiveWindows() != 0 {
		t.Fatalf("%d native windows survived shutdown", p.LiveWindows())
	}
	if forwarded != forwardedBefore {
		t.Fatalf("callback invoked during shutdown")
	}
}

func TestShutdown_BeforeInitializeDropsEvents(t *testing.T) {
	c, _ := newController()
	if _, err := c.CreateWindow(regularRequest()); err != nil {
		t.Fatalf("create: %v", err)
	}

	c.Shutdown()
	c.Initialize(func(m *Message) { t.Fatalf("shutdown-era event replayed: %v", m.Code) })
}

func TestCallback_MayReenterController(t *testing.T) {
	c, _ := newController()
	ownerID, err := c.CreateWindow(regularRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	owner := c.WindowForView(ownerID)

	var popupID int64
	c.Initialize(func(m *Message) {
		if m.Code == native.EventActivated && popupID == 0 {
			popupID, err = c.CreateWindow(popupRequest(ownerID))
			if err != nil {
				t.Fatalf("re-entrant creation: %v", err)
			}
		}
	})

	c.WindowProc(owner.Handle(), &native.Event{Code: native.EventActivated, Param1: 1})
	if popupID == 0 || c.WindowForView(popupID) == nil {
		t.Fatalf("re-entrant creation did not register")
	}
	if owner.OwnedPopupCount() != 1 {
		t.Fatalf("re-entrant popup not linked")
	}
}
