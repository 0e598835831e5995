package layout

import (
	"context"

	"github.com/matzehuels/idsheet/pkg/observability"
)

// Selection is the outcome of comparing the nominal and rotated page.
type Selection struct {
	Photo       Dimensions  `json:"photo"`
	Margin      int         `json:"margin"`
	Nominal     Dimensions  `json:"nominal_page"`
	Page        Dimensions  `json:"page"` // active page
	Orientation Orientation `json:"orientation"`
	Rows        int         `json:"rows"`
	Cols        int         `json:"cols"`

	// Capacities of both candidates, kept for diagnostics.
	NominalCapacity int `json:"nominal_capacity"`
	RotatedCapacity int `json:"rotated_capacity"`
}

// Capacity returns the number of photos the active page holds.
func (s Selection) Capacity() int { return s.Rows * s.Cols }

// CapacityFor counts how many photos fit on page without building placements.
// It assumes validated inputs.
func CapacityFor(photo Dimensions, margin int, page Dimensions) (rows, cols int) {
	rows = page.Height / (photo.Height + margin)
	cols = page.Width / (photo.Width + margin)
	return rows, cols
}

// SelectOrientation picks the page orientation that fits more photos.
// The rotated page wins only with strictly greater capacity.
func SelectOrientation(ctx context.Context, photo Dimensions, margin int, page Dimensions, opts ...Option) (Selection, error) {
	if err := validate(photo, margin, page); err != nil {
		return Selection{}, err
	}
	o := buildOptions(opts)

	rotated := page.Rotate()
	nRows, nCols := CapacityFor(photo, margin, page)
	rRows, rCols := CapacityFor(photo, margin, rotated)

	sel := Selection{
		Photo:           photo,
		Margin:          margin,
		Nominal:         page,
		Page:            page,
		Orientation:     Nominal,
		Rows:            nRows,
		Cols:            nCols,
		NominalCapacity: nRows * nCols,
		RotatedCapacity: rRows * rCols,
	}
	if sel.RotatedCapacity > sel.NominalCapacity {
		sel.Page = rotated
		sel.Orientation = Rotated
		sel.Rows, sel.Cols = rRows, rCols
	}
	if err := checkCapacity(sel.Rows, sel.Cols); err != nil {
		return Selection{}, err
	}

	o.hooks.OnOrientationSelected(ctx, observability.OrientationEvent{
		PageWidth:       page.Width,
		PageHeight:      page.Height,
		PhotoWidth:      photo.Width,
		PhotoHeight:     photo.Height,
		Margin:          margin,
		NominalCapacity: sel.NominalCapacity,
		RotatedCapacity: sel.RotatedCapacity,
		Rotated:         sel.Orientation == Rotated,
	})
	return sel, nil
}
