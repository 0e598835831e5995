package layout

import (
	"context"
	"testing"
)

func TestPlanScenario(t *testing.T) {
	g, err := Plan(context.Background(), scenarioPhoto, scenarioMargin, scenarioPage)
	if err != nil {
		t.Fatalf("Plan error: %v", err)
	}

	if g.Rows != 4 || g.Cols != 3 {
		t.Fatalf("grid = %dx%d, want 4x3", g.Rows, g.Cols)
	}
	if g.Capacity() != 12 {
		t.Errorf("Capacity() = %d, want 12", g.Capacity())
	}
	// spanW = 3*330-35 = 955, spanH = 4*448-35 = 1757
	if span := g.Span(); span != (Dimensions{955, 1757}) {
		t.Errorf("Span() = %v, want 955x1757", span)
	}
	if g.StartX != 122 || g.StartY != 21 {
		t.Errorf("start = (%d, %d), want (122, 21)", g.StartX, g.StartY)
	}

	want := []Placement{
		{122, 21}, {452, 21}, {782, 21},
		{122, 469}, {452, 469}, {782, 469},
		{122, 917}, {452, 917}, {782, 917},
		{122, 1365}, {452, 1365}, {782, 1365},
	}
	for i, p := range want {
		if g.Placements[i] != p {
			t.Errorf("Placements[%d] = %v, want %v", i, g.Placements[i], p)
		}
	}
}

func TestPlanEmpty(t *testing.T) {
	// Photo larger than the page in both orientations.
	g, err := Plan(context.Background(), Dimensions{2000, 2500}, 10, scenarioPage)
	if err != nil {
		t.Fatalf("Plan error: %v", err)
	}
	if !g.Empty() {
		t.Fatalf("expected empty grid, got %d placements", g.Capacity())
	}
	if g.Rows != 0 || g.Cols != 0 {
		t.Errorf("grid = %dx%d, want 0x0", g.Rows, g.Cols)
	}
	if g.Page != scenarioPage {
		t.Errorf("empty grid page = %v, want %v", g.Page, scenarioPage)
	}
	if g.Span() != (Dimensions{}) {
		t.Errorf("empty grid span = %v, want 0x0", g.Span())
	}
}

func TestPlanOneAxisTooSmall(t *testing.T) {
	// Fits 3 rows but zero columns in both orientations.
	g, err := Plan(context.Background(), Dimensions{150, 30}, 0, Dimensions{100, 120})
	if err != nil {
		t.Fatalf("Plan error: %v", err)
	}
	if !g.Empty() || g.Rows != 0 || g.Cols != 0 {
		t.Errorf("grid = %dx%d with %d placements, want empty", g.Rows, g.Cols, g.Capacity())
	}
}

func TestPackPageIgnoresRotation(t *testing.T) {
	photo := Dimensions{Width: 500, Height: 300}
	page := Dimensions{Width: 600, Height: 1000}

	g, err := PackPage(context.Background(), page, photo, 0)
	if err != nil {
		t.Fatalf("PackPage error: %v", err)
	}
	if g.Orientation != Nominal || g.Page != page {
		t.Errorf("PackPage should keep the given page, got %s %v", g.Orientation, g.Page)
	}
	if g.Rows != 3 || g.Cols != 1 {
		t.Errorf("grid = %dx%d, want 3x1", g.Rows, g.Cols)
	}

	if _, err := PackPage(context.Background(), page, Dimensions{0, 1}, 0); err == nil {
		t.Error("PackPage should reject a zero-width photo")
	}
}

func TestPackInvariants(t *testing.T) {
	ctx := context.Background()
	pages := []Dimensions{{1200, 1800}, {1500, 2100}, {2481, 3507}, {333, 777}}
	photos := []Dimensions{{295, 413}, {600, 600}, {413, 531}, {150, 97}, {2000, 90}}
	margins := []int{0, 1, 35, 120}

	for _, page := range pages {
		for _, photo := range photos {
			for _, m := range margins {
				g, err := Plan(ctx, photo, m, page)
				if err != nil {
					t.Fatalf("Plan(%v, %d, %v) error: %v", photo, m, page, err)
				}
				checkGrid(t, g)
			}
		}
	}
}

// checkGrid asserts non-overlap, in-bounds placement, exact margin spacing
// and centering within one pixel.
func checkGrid(t *testing.T, g Grid) {
	t.Helper()
	bounds := Dimensions{g.Page.Width, g.Page.Height}

	if g.Capacity() != g.Rows*g.Cols {
		t.Fatalf("%v: %d placements for %dx%d grid", bounds, g.Capacity(), g.Rows, g.Cols)
	}

	for i, p := range g.Placements {
		r := p.Rect(g.Photo)
		if r.Min.X < 0 || r.Min.Y < 0 || r.Max.X > bounds.Width || r.Max.Y > bounds.Height {
			t.Fatalf("placement %d %v outside page %v", i, r, bounds)
		}
		for j := i + 1; j < len(g.Placements); j++ {
			if r.Overlaps(g.Placements[j].Rect(g.Photo)) {
				t.Fatalf("placements %d and %d overlap", i, j)
			}
		}
	}

	for i := 1; i < len(g.Placements); i++ {
		prev, cur := g.Placements[i-1], g.Placements[i]
		if i%g.Cols != 0 && cur.X-prev.X != g.Photo.Width+g.Margin {
			t.Fatalf("column step %d, want %d", cur.X-prev.X, g.Photo.Width+g.Margin)
		}
		if i%g.Cols == 0 && cur.Y-prev.Y != g.Photo.Height+g.Margin {
			t.Fatalf("row step %d, want %d", cur.Y-prev.Y, g.Photo.Height+g.Margin)
		}
	}

	if g.Empty() {
		return
	}
	span := g.Span()
	left, right := g.StartX, g.Page.Width-span.Width-g.StartX
	top, bottom := g.StartY, g.Page.Height-span.Height-g.StartY
	if d := right - left; d < 0 || d > 1 {
		t.Errorf("%v: horizontal leftover %d/%d not centered", bounds, left, right)
	}
	if d := bottom - top; d < 0 || d > 1 {
		t.Errorf("%v: vertical leftover %d/%d not centered", bounds, top, bottom)
	}
}
