package window

import (
	"errors"
	"math"
	"testing"

	"github.com/embery/winman/internal/geometry"
	"github.com/embery/winman/internal/native"
	"github.com/embery/winman/internal/native/nativetest"
	"github.com/embery/winman/internal/placement"
)

// pump wires entities to the fake platform the way the real message pump
// does: per-window local handling, then the platform default.
type pump struct {
	p       *nativetest.Platform
	windows map[native.Handle]*Window
}

func newPump() *pump {
	pu := &pump{p: nativetest.New(), windows: make(map[native.Handle]*Window)}
	pu.p.SetEventSink(func(h native.Handle, ev *native.Event) native.Result {
		w := pu.windows[h]
		if ev.Code == native.EventFinalDestroy {
			delete(pu.windows, h)
		}
		if w != nil {
			if res := w.HandleMessage(ev); res.Handled {
				return res
			}
		}
		return pu.p.DefaultHandler(h, ev)
	})
	return pu
}

func (pu *pump) create(t *testing.T, s Settings) *Window {
	t.Helper()
	w, err := New(pu.p, nil, s)
	if err != nil {
		t.Fatalf("unexpected creation error: %v", err)
	}
	pu.windows[w.Handle()] = w
	return w
}

func (pu *pump) deliver(t *testing.T, h native.Handle, ev *native.Event) native.Result {
	t.Helper()
	res, err := pu.p.Deliver(h, ev)
	if err != nil {
		t.Fatalf("deliver: %v", err)
	}
	return res
}

func popupPositioner() *placement.Positioner {
	return &placement.Positioner{
		Anchor:     placement.GravityTopLeft,
		Gravity:    placement.GravityBottomRight,
		Adjustment: placement.AdjustAll,
	}
}

func (pu *pump) createOwnerAndPopup(t *testing.T) (*Window, *Window) {
	t.Helper()
	owner := pu.create(t, Settings{
		Archetype:  Regular,
		ClientSize: geometry.SizeF{Width: 800, Height: 600},
	})
	popup := pu.create(t, Settings{
		Archetype:  Popup,
		Owner:      owner,
		Positioner: popupPositioner(),
		ClientSize: geometry.SizeF{Width: 200, Height: 100},
	})
	return owner, popup
}

func TestNew_PreconditionViolations(t *testing.T) {
	pu := newPump()
	owner := pu.create(t, Settings{
		Archetype:  Regular,
		ClientSize: geometry.SizeF{Width: 800, Height: 600},
	})
	before := pu.p.LiveWindows()

	cases := []struct {
		name     string
		settings Settings
		wantErr  error
	}{
		{
			name:     "regular with owner",
			settings: Settings{Archetype: Regular, Owner: owner},
			wantErr:  ErrOwnerOnRegular,
		},
		{
			name:     "regular with positioner",
			settings: Settings{Archetype: Regular, Positioner: popupPositioner()},
			wantErr:  ErrPositionerOnRegular,
		},
		{
			name:     "popup without owner",
			settings: Settings{Archetype: Popup, Positioner: popupPositioner()},
			wantErr:  ErrPopupNeedsOwner,
		},
		{
			name:     "popup without positioner",
			settings: Settings{Archetype: Popup, Owner: owner},
			wantErr:  ErrPopupNeedsPositioner,
		},
		{
			name: "min exceeds max",
			settings: Settings{
				Archetype:  Regular,
				ClientSize: geometry.SizeF{Width: 300, Height: 300},
				MinSize:    &geometry.SizeF{Width: 400, Height: 400},
				MaxSize:    &geometry.SizeF{Width: 200, Height: 200},
			},
			wantErr: ErrSizeConstraints,
		},
	}
	for _, tc := range cases {
		w, err := New(pu.p, nil, tc.settings)
		if !errors.Is(err, tc.wantErr) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.wantErr, err)
		}
		if w != nil {
			t.Fatalf("%s: expected nil window", tc.name)
		}
	}
	if got := pu.p.LiveWindows(); got != before {
		t.Fatalf("failed constructions left native windows: %d -> %d", before, got)
	}
	if owner.OwnedPopupCount() != 0 {
		t.Fatalf("failed constructions linked to owner: count=%d", owner.OwnedPopupCount())
	}
}

func TestNew_InfiniteBoundsAreDiscarded(t *testing.T) {
	pu := newPump()
	inf := math.Inf(1)
	w, err := New(pu.p, nil, Settings{
		Archetype:  Regular,
		ClientSize: geometry.SizeF{Width: 300, Height: 300},
		MinSize:    &geometry.SizeF{Width: inf, Height: inf},
		MaxSize:    &geometry.SizeF{Width: 200, Height: 200},
	})
	if err != nil {
		t.Fatalf("infinite min should be discarded, got error: %v", err)
	}
	if w == nil {
		t.Fatalf("expected a window")
	}
}

func TestNew_RegularWindow(t *testing.T) {
	pu := newPump()
	w := pu.create(t, Settings{
		Archetype:  Regular,
		ClientSize: geometry.SizeF{Width: 800, Height: 600},
		Title:      "main",
	})

	if w.Handle() == 0 || w.Content() == 0 {
		t.Fatalf("expected window and content handles, got %d/%d", w.Handle(), w.Content())
	}
	rec := pu.p.Window(w.Content())
	if rec.Parent != w.Handle() {
		t.Fatalf("content not reparented: parent=%d want %d", rec.Parent, w.Handle())
	}
	if got := pu.p.Window(w.Handle()).Title; got != "main" {
		t.Fatalf("expected title %q, got %q", "main", got)
	}
	if !pu.p.Window(w.Handle()).HasTheme {
		t.Fatalf("theme not applied at construction")
	}
	// Frame size is the 800x600 client area plus non-client margins plus
	// shadow: (800+16+14) x (600+39+7).
	if r := pu.p.WindowRect(w.Handle()); r.Width != 830 || r.Height != 646 {
		t.Fatalf("expected frame 830x646, got %dx%d", r.Width, r.Height)
	}
}

func TestNew_PopupLinksAndPlacement(t *testing.T) {
	pu := newPump()
	owner, popup := pu.createOwnerAndPopup(t)

	if popup.Owner() != owner {
		t.Fatalf("popup owner link missing")
	}
	if owner.OwnedPopupCount() != 1 {
		t.Fatalf("expected owned popup count 1, got %d", owner.OwnedPopupCount())
	}
	if hs := owner.OwnedHandles(); len(hs) != 1 || hs[0] != popup.Handle() {
		t.Fatalf("owned set does not contain popup: %v", hs)
	}

	// The anchor defaults to the owner's visible frame; with top-left /
	// bottom-right gravities the popup's visible frame starts exactly at
	// the anchor origin, even though the raw rect includes the shadow.
	anchor := pu.p.FrameBounds(owner.Handle())
	fb := pu.p.FrameBounds(popup.Handle())
	if fb.X != anchor.X || fb.Y != anchor.Y {
		t.Fatalf("expected popup visible frame at (%d,%d), got (%d,%d)",
			anchor.X, anchor.Y, fb.X, fb.Y)
	}
}

func TestNew_SurfaceFailureDestroysWindow(t *testing.T) {
	pu := newPump()
	pu.p.FailSurface = true
	_, err := New(pu.p, nil, Settings{
		Archetype:  Regular,
		ClientSize: geometry.SizeF{Width: 300, Height: 300},
	})
	if err == nil {
		t.Fatalf("expected surface creation failure")
	}
	if got := pu.p.LiveWindows(); got != 0 {
		t.Fatalf("expected no live windows after failed construction, got %d", got)
	}
}

func TestShow_AppliesPendingStateExactlyOnce(t *testing.T) {
	pu := newPump()
	w := pu.create(t, Settings{
		Archetype:  Regular,
		ClientSize: geometry.SizeF{Width: 800, Height: 600},
		State:      StateMaximized,
	})

	w.Show()
	rec := pu.p.Window(w.Handle())
	if len(rec.Placements) != 1 || rec.Placements[0] != native.ShowMaximized {
		t.Fatalf("expected single ShowMaximized placement, got %v", rec.Placements)
	}
	if w.State() != StateMaximized {
		t.Fatalf("state not preserved through show: %v", w.State())
	}

	// The latch clears permanently: a later visibility event applies no
	// further placement.
	pu.deliver(t, w.Handle(), &native.Event{Code: native.EventShown, Param1: 1})
	if len(rec.Placements) != 1 {
		t.Fatalf("pending show applied twice: %v", rec.Placements)
	}
}

func TestShow_OwnerInducedVisibilityKeepsLatch(t *testing.T) {
	pu := newPump()
	w := pu.create(t, Settings{
		Archetype:  Regular,
		ClientSize: geometry.SizeF{Width: 400, Height: 300},
	})

	pu.deliver(t, w.Handle(), &native.Event{Code: native.EventShown, Param1: 1, Param2: 1})
	rec := pu.p.Window(w.Handle())
	if len(rec.Placements) != 0 {
		t.Fatalf("owner-induced show should not apply placement: %v", rec.Placements)
	}

	w.Show()
	if len(rec.Placements) != 1 || rec.Placements[0] != native.ShowNormal {
		t.Fatalf("expected ShowNormal after real show, got %v", rec.Placements)
	}
}

func TestShow_PopupIgnoresState(t *testing.T) {
	pu := newPump()
	_, popup := pu.createOwnerAndPopup(t)

	popup.Show()
	rec := pu.p.Window(popup.Handle())
	if len(rec.Placements) != 1 || rec.Placements[0] != native.ShowNormal {
		t.Fatalf("expected plain ShowNormal for popup, got %v", rec.Placements)
	}
}

func TestHandleMessage_DPIChangeAcceptsSuggestedRect(t *testing.T) {
	pu := newPump()
	w := pu.create(t, Settings{
		Archetype:  Regular,
		ClientSize: geometry.SizeF{Width: 400, Height: 300},
	})

	suggested := geometry.Rect{X: 50, Y: 60, Width: 700, Height: 500}
	res := pu.deliver(t, w.Handle(), &native.Event{Code: native.EventDPIChanged, Rect: suggested})
	if !res.Handled {
		t.Fatalf("dpi change not handled")
	}
	if got := pu.p.WindowRect(w.Handle()); got != suggested {
		t.Fatalf("expected suggested rect %+v applied verbatim, got %+v", suggested, got)
	}
}

func TestHandleMessage_SizeLimits(t *testing.T) {
	pu := newPump()
	w := pu.create(t, Settings{
		Archetype:  Regular,
		ClientSize: geometry.SizeF{Width: 400, Height: 300},
		MinSize:    &geometry.SizeF{Width: 200, Height: 100},
		MaxSize:    &geometry.SizeF{Width: 800, Height: 600},
	})

	limits := &native.SizeLimits{}
	pu.deliver(t, w.Handle(), &native.Event{Code: native.EventSizeLimits, Limits: limits})

	// The non-client margin is 30x46 (frame borders plus title bar plus
	// shadow), so the reported window limits are the client limits plus
	// that margin.
	if limits.Min == nil || *limits.Min != (geometry.Size{Width: 230, Height: 146}) {
		t.Fatalf("expected min 230x146, got %+v", limits.Min)
	}
	if limits.Max == nil || *limits.Max != (geometry.Size{Width: 830, Height: 646}) {
		t.Fatalf("expected max 830x646, got %+v", limits.Max)
	}
}

func TestHandleMessage_SizeLimitsClampedToVirtualScreen(t *testing.T) {
	pu := newPump()
	w := pu.create(t, Settings{
		Archetype:  Regular,
		ClientSize: geometry.SizeF{Width: 400, Height: 300},
		MinSize:    &geometry.SizeF{Width: 5000, Height: 5000},
	})

	limits := &native.SizeLimits{}
	pu.deliver(t, w.Handle(), &native.Event{Code: native.EventSizeLimits, Limits: limits})
	if limits.Min == nil || *limits.Min != (geometry.Size{Width: 1920, Height: 1080}) {
		t.Fatalf("expected min clamped to 1920x1080, got %+v", limits.Min)
	}
	if limits.Max != nil {
		t.Fatalf("no max configured, got %+v", limits.Max)
	}
}

func TestHandleMessage_ResizeFillsContentAndMirrorsState(t *testing.T) {
	pu := newPump()
	w := pu.create(t, Settings{
		Archetype:  Regular,
		ClientSize: geometry.SizeF{Width: 400, Height: 300},
	})

	pu.deliver(t, w.Handle(), &native.Event{Code: native.EventResized, Param1: native.SizeMaximized})
	client := pu.p.ClientRect(w.Handle())
	content := pu.p.WindowRect(w.Content())
	if content.Width != client.Width || content.Height != client.Height {
		t.Fatalf("content %dx%d does not fill client %dx%d",
			content.Width, content.Height, client.Width, client.Height)
	}
	if w.State() != StateMaximized {
		t.Fatalf("maximize not mirrored into state: %v", w.State())
	}

	pu.deliver(t, w.Handle(), &native.Event{Code: native.EventResized, Param1: native.SizeRestored})
	if w.State() != StateRestored {
		t.Fatalf("restore not mirrored into state: %v", w.State())
	}
}

func TestHandleMessage_ActivationFocusesContent(t *testing.T) {
	pu := newPump()
	w := pu.create(t, Settings{
		Archetype:  Regular,
		ClientSize: geometry.SizeF{Width: 400, Height: 300},
	})

	pu.deliver(t, w.Handle(), &native.Event{Code: native.EventActivated, Param1: 1})
	if n := len(pu.p.FocusLog); n == 0 || pu.p.FocusLog[n-1] != w.Content() {
		t.Fatalf("expected focus on content %d, log=%v", w.Content(), pu.p.FocusLog)
	}
}

func TestHandleMessage_NoSurfaceAnswersMinimally(t *testing.T) {
	p := nativetest.New()
	// A window between native creation and surface attachment: no content.
	w := &Window{
		platform:  p,
		archetype: Regular,
		owned:     make(map[native.Handle]*Window),
	}

	codes := []native.EventCode{
		native.EventClose,
		native.EventDestroyed,
		native.EventFinalDestroy,
		native.EventDPIChanged,
		native.EventShown,
		native.EventSizeLimits,
		native.EventResized,
		native.EventActivated,
		native.EventFrameActivate,
		native.EventThemeChanged,
	}
	for _, code := range codes {
		res := w.HandleMessage(&native.Event{Code: code, Param1: 1})
		if !res.Handled || res.Value != 0 {
			t.Errorf("%s: got (handled=%v, value=%d), want minimal (true, 0)",
				code.String(), res.Handled, res.Value)
		}
	}

	if len(p.FocusLog) != 0 || len(p.DestroyLog) != 0 || len(p.CloseLog) != 0 || len(p.DefaultLog) != 0 {
		t.Fatalf("platform touched before surface attachment: focus=%v destroy=%v close=%v default=%v",
			p.FocusLog, p.DestroyLog, p.CloseLog, p.DefaultLog)
	}
}

func TestFrameActivate_ForcedWhileOwningPopups(t *testing.T) {
	pu := newPump()
	owner, popup := pu.createOwnerAndPopup(t)

	res := pu.deliver(t, owner.Handle(), &native.Event{Code: native.EventFrameActivate})
	if !res.Handled || res.Value != 1 {
		t.Fatalf("expected forced-active frame while owning a popup, got %+v", res)
	}

	// Popups never force their frame active.
	if res := popup.HandleMessage(&native.Event{Code: native.EventFrameActivate}); res.Handled {
		t.Fatalf("popup forced its frame active")
	}

	owner.CloseOwnedPopups()
	if res := owner.HandleMessage(&native.Event{Code: native.EventFrameActivate}); res.Handled {
		t.Fatalf("frame still forced active with no owned popups")
	}
}

func TestCloseOwnedPopups(t *testing.T) {
	pu := newPump()
	owner := pu.create(t, Settings{
		Archetype:  Regular,
		ClientSize: geometry.SizeF{Width: 800, Height: 600},
	})
	for i := 0; i < 2; i++ {
		pu.create(t, Settings{
			Archetype:  Popup,
			Owner:      owner,
			Positioner: popupPositioner(),
			ClientSize: geometry.SizeF{Width: 100, Height: 80},
		})
	}

	if got := owner.CloseOwnedPopups(); got != 2 {
		t.Fatalf("expected 2 popups closed, got %d", got)
	}
	if owner.OwnedPopupCount() != 0 || len(owner.OwnedHandles()) != 0 {
		t.Fatalf("owner still links popups: count=%d set=%v",
			owner.OwnedPopupCount(), owner.OwnedHandles())
	}
	if pu.p.Window(owner.Handle()).Redraws == 0 {
		t.Fatalf("owner frame not repainted after popup teardown")
	}
	if n := len(pu.p.FocusLog); n == 0 || pu.p.FocusLog[n-1] != owner.Content() {
		t.Fatalf("focus not restored to owner content, log=%v", pu.p.FocusLog)
	}

	if got := owner.CloseOwnedPopups(); got != 0 {
		t.Fatalf("expected no-op close to return 0, got %d", got)
	}
}

func TestDestroy_OnePopupOfTwo(t *testing.T) {
	pu := newPump()
	owner := pu.create(t, Settings{
		Archetype:  Regular,
		ClientSize: geometry.SizeF{Width: 800, Height: 600},
	})
	first := pu.create(t, Settings{
		Archetype:  Popup,
		Owner:      owner,
		Positioner: popupPositioner(),
		ClientSize: geometry.SizeF{Width: 100, Height: 80},
	})
	second := pu.create(t, Settings{
		Archetype:  Popup,
		Owner:      owner,
		Positioner: popupPositioner(),
		ClientSize: geometry.SizeF{Width: 100, Height: 80},
	})

	first.Destroy()
	if owner.OwnedPopupCount() != 1 {
		t.Fatalf("expected count 1 after closing one of two, got %d", owner.OwnedPopupCount())
	}
	if hs := owner.OwnedHandles(); len(hs) != 1 || hs[0] != second.Handle() {
		t.Fatalf("surviving popup unlinked: %v", hs)
	}
	// The forced-active condition holds until the count reaches zero.
	if res := owner.HandleMessage(&native.Event{Code: native.EventFrameActivate}); !res.Handled {
		t.Fatalf("frame force dropped while a popup is still owned")
	}

	second.Destroy()
	if owner.OwnedPopupCount() != 0 {
		t.Fatalf("expected count 0, got %d", owner.OwnedPopupCount())
	}
}

func TestDestroy_OwnerTearsDownOwnedPopups(t *testing.T) {
	pu := newPump()
	owner, popup := pu.createOwnerAndPopup(t)
	nested := pu.create(t, Settings{
		Archetype:  Popup,
		Owner:      popup,
		Positioner: popupPositioner(),
		ClientSize: geometry.SizeF{Width: 80, Height: 60},
	})

	owner.Destroy()

	if !pu.p.Window(popup.Handle()).Destroyed {
		t.Fatalf("popup native window still live after owner destruction")
	}
	if !pu.p.Window(nested.Handle()).Destroyed {
		t.Fatalf("transitively owned popup still live after owner destruction")
	}
	if popup.Owner() != nil || nested.Owner() != nil {
		t.Fatalf("popup still holds owner link after owner destruction")
	}
	if owner.OwnedPopupCount() != 0 {
		t.Fatalf("expected owned count 0 after teardown, got %d", owner.OwnedPopupCount())
	}
	// Every entity left the pump's registry, owner included.
	if len(pu.windows) != 0 {
		t.Fatalf("expected empty registry after owner destruction, got %d entries", len(pu.windows))
	}
	if n := pu.p.LiveWindows(); n != 0 {
		t.Fatalf("expected no live native windows, got %d", n)
	}
}

func TestSetStateAndSetClientSize(t *testing.T) {
	pu := newPump()
	w := pu.create(t, Settings{
		Archetype:  Regular,
		ClientSize: geometry.SizeF{Width: 400, Height: 300},
		MinSize:    &geometry.SizeF{Width: 200, Height: 150},
	})
	w.Show()

	w.SetState(StateMinimized)
	rec := pu.p.Window(w.Handle())
	if last := rec.Placements[len(rec.Placements)-1]; last != native.ShowMinimize {
		t.Fatalf("expected ShowMinimize placement, got %v", last)
	}
	if w.State() != StateMinimized {
		t.Fatalf("state not mirrored after minimize: %v", w.State())
	}

	w.SetState(StateRestored)
	w.SetClientSize(geometry.SizeF{Width: 600, Height: 400})
	if got := w.ClientSize(); got.Width != 600 || got.Height != 400 {
		t.Fatalf("expected client 600x400, got %+v", got)
	}

	// Requests below the minimum clamp up to it.
	w.SetClientSize(geometry.SizeF{Width: 50, Height: 50})
	if got := w.ClientSize(); got.Width != 200 || got.Height != 150 {
		t.Fatalf("expected clamped client 200x150, got %+v", got)
	}
}

func TestSetState_PopupIsNoop(t *testing.T) {
	pu := newPump()
	_, popup := pu.createOwnerAndPopup(t)
	popup.Show()

	before := len(pu.p.Window(popup.Handle()).Placements)
	popup.SetState(StateMaximized)
	if got := len(pu.p.Window(popup.Handle()).Placements); got != before {
		t.Fatalf("popup SetState applied a placement")
	}
	if popup.State() != StateRestored {
		t.Fatalf("popup recorded a state: %v", popup.State())
	}
}

func TestRelativePosition(t *testing.T) {
	pu := newPump()
	owner := pu.create(t, Settings{
		Archetype:  Regular,
		ClientSize: geometry.SizeF{Width: 800, Height: 600},
	})
	pos := popupPositioner()
	pos.Offset = geometry.PointF{X: 50, Y: 40}
	popup := pu.create(t, Settings{
		Archetype:  Popup,
		Owner:      owner,
		Positioner: pos,
		ClientSize: geometry.SizeF{Width: 100, Height: 80},
	})

	if rel := owner.RelativePosition(); rel != (geometry.PointF{}) {
		t.Fatalf("ownerless window reported offset %+v", rel)
	}
	rel := popup.RelativePosition()
	if rel.X != 50 || rel.Y != 40 {
		t.Fatalf("expected relative position (50,40), got %+v", rel)
	}
}

func TestFirstEnabledDescendant(t *testing.T) {
	pu := newPump()
	owner, popup := pu.createOwnerAndPopup(t)

	if got := owner.FirstEnabledDescendant(); got != owner {
		t.Fatalf("enabled window should return itself")
	}

	pu.p.Window(owner.Handle()).Enabled = false
	if got := owner.FirstEnabledDescendant(); got != popup {
		t.Fatalf("expected enabled popup, got %v", got)
	}

	pu.p.Window(popup.Handle()).Enabled = false
	if got := owner.FirstEnabledDescendant(); got != nil {
		t.Fatalf("expected nil with whole subtree disabled, got %v", got)
	}
}

func TestParseState(t *testing.T) {
	cases := []struct {
		in      string
		want    State
		wantErr bool
	}{
		{"restored", StateRestored, false},
		{"maximized", StateMaximized, false},
		{"minimized", StateMinimized, false},
		{"fullscreen", 0, true},
	}
	for _, tc := range cases {
		got, err := ParseState(tc.in)
		if tc.wantErr != (err != nil) {
			t.Fatalf("%q: unexpected error state: %v", tc.in, err)
		}
		if err == nil && got != tc.want {
			t.Fatalf("%q: expected %v, got %v", tc.in, tc.want, got)
		}
	}
}
