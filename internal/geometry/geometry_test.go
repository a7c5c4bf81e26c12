package geometry

import "testing"

func TestRect_Intersect(t *testing.T) {
	tests := []struct {
		name string
		a, b Rect
		want Rect
	}{
		{
			name: "overlapping",
			a:    Rect{0, 0, 100, 100},
			b:    Rect{50, 50, 100, 100},
			want: Rect{50, 50, 50, 50},
		},
		{
			name: "contained",
			a:    Rect{0, 0, 100, 100},
			b:    Rect{20, 20, 10, 10},
			want: Rect{20, 20, 10, 10},
		},
		{
			name: "disjoint",
			a:    Rect{0, 0, 100, 100},
			b:    Rect{200, 200, 50, 50},
			want: Rect{},
		},
		{
			name: "touching edges do not overlap",
			a:    Rect{0, 0, 100, 100},
			b:    Rect{100, 0, 50, 100},
			want: Rect{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.Intersect(tt.b); got != tt.want {
				t.Errorf("Intersect() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestRect_Union_IgnoresEmpty(t *testing.T) {
	a := Rect{0, 0, 1920, 1080}
	b := Rect{1920, 0, 1280, 1024}

	got := a.Union(b)
	want := Rect{0, 0, 3200, 1080}
	if got != want {
		t.Fatalf("Union() = %+v, want %+v", got, want)
	}

	if got := (Rect{}).Union(a); got != a {
		t.Errorf("empty.Union(a) = %+v, want %+v", got, a)
	}
	if got := a.Union(Rect{}); got != a {
		t.Errorf("a.Union(empty) = %+v, want %+v", got, a)
	}
}

func TestScale_RoundTrip(t *testing.T) {
	tests := []struct {
		logical float64
		dpi     int
		want    int
	}{
		{100, 96, 100},  // identity at base DPI
		{100, 144, 150}, // 1.5x
		{100, 120, 125}, // 1.25x
		{33, 144, 50},   // 49.5 rounds up
	}

	for _, tt := range tests {
		if got := Scale(tt.logical, tt.dpi); got != tt.want {
			t.Errorf("Scale(%g, %d) = %d, want %d", tt.logical, tt.dpi, got, tt.want)
		}
	}

	// Unscale inverts Scale when no rounding occurred.
	if got := Unscale(150, 144); got != 100 {
		t.Errorf("Unscale(150, 144) = %g, want 100", got)
	}
}

func TestClampSize(t *testing.T) {
	bound := Size{1920, 1080}

	if got := ClampSize(Size{5000, 500}, bound); got != (Size{1920, 500}) {
		t.Errorf("ClampSize wide = %+v", got)
	}
	if got := ClampSize(Size{-10, 2000}, bound); got != (Size{0, 1080}) {
		t.Errorf("ClampSize negative = %+v", got)
	}
}
