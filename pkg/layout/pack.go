package layout

import (
	"context"

	"github.com/matzehuels/idsheet/pkg/observability"
)

// Grid is a packed sheet: the active page, the photo cell size and the
// row-major origin of every copy.
type Grid struct {
	Page        Dimensions  `json:"page"`
	Photo       Dimensions  `json:"photo"`
	Margin      int         `json:"margin"`
	Orientation Orientation `json:"orientation"`
	Rows        int         `json:"rows"`
	Cols        int         `json:"cols"`
	StartX      int         `json:"start_x"`
	StartY      int         `json:"start_y"`
	Placements  []Placement `json:"placements"`
}

// Empty reports whether no photo fits on the page.
func (g Grid) Empty() bool { return len(g.Placements) == 0 }

// Capacity returns the number of placements.
func (g Grid) Capacity() int { return len(g.Placements) }

// Span returns the size of the packed block including internal margins.
func (g Grid) Span() Dimensions {
	return Dimensions{
		Width:  span(g.Cols, g.Photo.Width, g.Margin),
		Height: span(g.Rows, g.Photo.Height, g.Margin),
	}
}

// Pack lays out the rows and columns chosen by sel, centered on sel.Page.
func Pack(ctx context.Context, sel Selection, opts ...Option) Grid {
	o := buildOptions(opts)
	g := pack(sel.Page, sel.Photo, sel.Margin, sel.Rows, sel.Cols)
	g.Orientation = sel.Orientation
	report(ctx, o.hooks, g)
	return g
}

// PackPage packs page as given, without trying the rotated orientation.
func PackPage(ctx context.Context, page, photo Dimensions, margin int, opts ...Option) (Grid, error) {
	if err := validate(photo, margin, page); err != nil {
		return Grid{}, err
	}
	o := buildOptions(opts)
	rows, cols := CapacityFor(photo, margin, page)
	if err := checkCapacity(rows, cols); err != nil {
		return Grid{}, err
	}
	g := pack(page, photo, margin, rows, cols)
	g.Orientation = Nominal
	report(ctx, o.hooks, g)
	return g, nil
}

func pack(page, photo Dimensions, margin, rows, cols int) Grid {
	g := Grid{
		Page:   page,
		Photo:  photo,
		Margin: margin,
	}
	if rows <= 0 || cols <= 0 {
		return g
	}
	g.Rows, g.Cols = rows, cols

	spanW := span(cols, photo.Width, margin)
	spanH := span(rows, photo.Height, margin)
	g.StartX = max(0, (page.Width-spanW)/2)
	g.StartY = max(0, (page.Height-spanH)/2)

	stepX := photo.Width + margin
	stepY := photo.Height + margin
	g.Placements = make([]Placement, 0, rows*cols)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			g.Placements = append(g.Placements, Placement{
				X: g.StartX + c*stepX,
				Y: g.StartY + r*stepY,
			})
		}
	}
	return g
}

// span is n*(size+margin) - margin, or 0 for an empty axis.
func span(n, size, margin int) int {
	if n <= 0 {
		return 0
	}
	return n*(size+margin) - margin
}

func report(ctx context.Context, h observability.LayoutHooks, g Grid) {
	h.OnGridPacked(ctx, observability.PackEvent{
		PageWidth:  g.Page.Width,
		PageHeight: g.Page.Height,
		Rows:       g.Rows,
		Cols:       g.Cols,
		StartX:     g.StartX,
		StartY:     g.StartY,
		Placements: len(g.Placements),
	})
}
