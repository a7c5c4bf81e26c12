package display

import (
	"testing"

	"github.com/embery/winman/internal/geometry"
)

func twoDisplays() []Display {
	return []Display{
		{ID: 0, Name: "DP-1", Bounds: geometry.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}, WorkArea: geometry.Rect{X: 0, Y: 0, Width: 1920, Height: 1040}, DPI: 96},
		{ID: 1, Name: "HDMI-1", Bounds: geometry.Rect{X: 1920, Y: 0, Width: 1280, Height: 1024}, WorkArea: geometry.Rect{X: 1920, Y: 0, Width: 1280, Height: 1024}, DPI: 96},
	}
}

func TestBestFor_PicksGreatestOverlap(t *testing.T) {
	displays := twoDisplays()

	// 200px on DP-1, 400px on HDMI-1 per row.
	d, ok := BestFor(displays, geometry.Rect{X: 1720, Y: 100, Width: 600, Height: 400})
	if !ok {
		t.Fatal("BestFor returned !ok with displays present")
	}
	if d.ID != 1 {
		t.Errorf("BestFor picked display %d, want 1", d.ID)
	}
}

func TestBestFor_NoOverlapFallsBackToFirst(t *testing.T) {
	displays := twoDisplays()

	d, ok := BestFor(displays, geometry.Rect{X: -5000, Y: -5000, Width: 100, Height: 100})
	if !ok || d.ID != 0 {
		t.Errorf("BestFor = (%d, %v), want (0, true)", d.ID, ok)
	}

	if _, ok := BestFor(nil, geometry.Rect{X: 0, Y: 0, Width: 10, Height: 10}); ok {
		t.Error("BestFor(nil) reported ok")
	}
}

func TestVirtualBounds_SpansAllDisplays(t *testing.T) {
	got := VirtualBounds(twoDisplays())
	want := geometry.Rect{X: 0, Y: 0, Width: 3200, Height: 1080}
	if got != want {
		t.Fatalf("VirtualBounds = %+v, want %+v", got, want)
	}
}

func TestPrimary_ContainsOrigin(t *testing.T) {
	displays := []Display{
		{ID: 0, Bounds: geometry.Rect{X: -1920, Y: 0, Width: 1920, Height: 1080}},
		{ID: 1, Bounds: geometry.Rect{X: 0, Y: 0, Width: 1920, Height: 1080}},
	}

	d, ok := Primary(displays)
	if !ok || d.ID != 1 {
		t.Errorf("Primary = (%d, %v), want (1, true)", d.ID, ok)
	}
}
