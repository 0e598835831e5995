package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/matzehuels/idsheet/pkg/cache"
	"github.com/matzehuels/idsheet/pkg/errors"
	"github.com/matzehuels/idsheet/pkg/layout"
	"github.com/matzehuels/idsheet/pkg/units"
)

// Plan is the result of the convert, orient and pack stages.
type Plan struct {
	DPI       units.Resolution `json:"dpi"`
	PhotoSize units.Size       `json:"photo_size"`
	PageSize  units.Size       `json:"page_size"`
	Margin    units.Length     `json:"margin"`

	Selection layout.Selection `json:"selection"`
	Grid      layout.Grid      `json:"grid"`
}

// Empty reports whether no photo fits on the page.
func (p *Plan) Empty() bool { return p.Grid.Empty() }

// Hash returns a content hash of the plan, used in artifact cache keys.
func (p *Plan) Hash() string {
	data, _ := json.Marshal(p)
	return cache.Hash(data)
}

// Pixels holds the converted pixel inputs of a plan.
type Pixels struct {
	Photo  layout.Dimensions
	Page   layout.Dimensions // nominal orientation
	Margin int
}

// KeyOpts returns cache key options for the plan computed from p.
func (p Pixels) KeyOpts() cache.PlanKeyOpts {
	return cache.PlanKeyOpts{
		PhotoWidth:  p.Photo.Width,
		PhotoHeight: p.Photo.Height,
		Margin:      p.Margin,
		PageWidth:   p.Page.Width,
		PageHeight:  p.Page.Height,
	}
}

// Convert turns the physical sizes in opts into pixels. opts must have
// passed ValidateForPlan.
func Convert(opts Options) (Pixels, error) {
	dpi := units.Resolution(opts.DPI)

	var px Pixels
	var err error
	if px.Photo.Width, px.Photo.Height, err = units.SizeToPixels(opts.PhotoSize, dpi); err != nil {
		return Pixels{}, fmt.Errorf("photo size: %w", err)
	}
	if px.Photo.Width == 0 || px.Photo.Height == 0 {
		return Pixels{}, errors.New(errors.ErrCodeInvalidMeasurement,
			"photo %s rounds to %s at %d DPI", opts.PhotoSize, px.Photo, opts.DPI)
	}
	if px.Page.Width, px.Page.Height, err = units.SizeToPixels(opts.PageSize, dpi); err != nil {
		return Pixels{}, fmt.Errorf("page size: %w", err)
	}
	if px.Page.Width == 0 || px.Page.Height == 0 {
		return Pixels{}, errors.New(errors.ErrCodeInvalidMeasurement,
			"page %s rounds to %s at %d DPI", opts.PageSize, px.Page, opts.DPI)
	}
	if err := layout.CheckSize("photo", px.Photo); err != nil {
		return Pixels{}, err
	}
	if err := layout.CheckSize("page", px.Page); err != nil {
		return Pixels{}, err
	}
	if px.Margin, err = units.ToPixels(opts.MarginLength(), dpi); err != nil {
		return Pixels{}, fmt.Errorf("margin: %w", err)
	}
	return px, nil
}

// ComputePlan selects the orientation and packs the grid for px.
func ComputePlan(ctx context.Context, px Pixels, opts Options) (*Plan, error) {
	var lopts []layout.Option
	if opts.LayoutHooks != nil {
		lopts = append(lopts, layout.WithHooks(opts.LayoutHooks))
	}

	sel, err := layout.SelectOrientation(ctx, px.Photo, px.Margin, px.Page, lopts...)
	if err != nil {
		return nil, err
	}
	return &Plan{
		DPI:       units.Resolution(opts.DPI),
		PhotoSize: opts.PhotoSize,
		PageSize:  opts.PageSize,
		Margin:    opts.MarginLength(),
		Selection: sel,
		Grid:      layout.Pack(ctx, sel, lopts...),
	}, nil
}
