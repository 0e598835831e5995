package layout

import (
	"context"
	"fmt"
	"image"

	"github.com/matzehuels/idsheet/pkg/errors"
	"github.com/matzehuels/idsheet/pkg/observability"
)

// Size limits. A page or photo buffer holds at most MaxPixels pixels
// (1 GiB as RGBA) and neither side may exceed MaxSide.
const (
	MaxSide       = 1 << 16
	MaxPixels     = 1 << 28
	MaxPlacements = 1 << 16
)

// Dimensions is a pixel width and height.
type Dimensions struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rotate swaps width and height.
func (d Dimensions) Rotate() Dimensions { return Dimensions{Width: d.Height, Height: d.Width} }

// Area returns Width*Height.
func (d Dimensions) Area() int { return d.Width * d.Height }

func (d Dimensions) String() string { return fmt.Sprintf("%dx%dpx", d.Width, d.Height) }

// Orientation records which page candidate won the selection.
type Orientation string

const (
	Nominal Orientation = "nominal" // page as specified
	Rotated Orientation = "rotated" // page turned 90 degrees
)

// Placement is the top-left origin of one photo on the page.
type Placement struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Rect returns the rectangle a photo of the given size occupies at p.
func (p Placement) Rect(photo Dimensions) image.Rectangle {
	return image.Rect(p.X, p.Y, p.X+photo.Width, p.Y+photo.Height)
}

// Option configures a layout call.
type Option func(*options)

type options struct {
	hooks observability.LayoutHooks
}

// WithHooks sends diagnostic events to h instead of the globally registered
// layout hooks.
func WithHooks(h observability.LayoutHooks) Option {
	return func(o *options) {
		if h != nil {
			o.hooks = h
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{hooks: observability.Layout()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Plan selects the orientation with the larger capacity and packs it.
// It is SelectOrientation followed by Pack.
func Plan(ctx context.Context, photo Dimensions, margin int, page Dimensions, opts ...Option) (Grid, error) {
	sel, err := SelectOrientation(ctx, photo, margin, page, opts...)
	if err != nil {
		return Grid{}, err
	}
	return Pack(ctx, sel, opts...), nil
}

// validate checks the pixel inputs shared by selection and packing.
func validate(photo Dimensions, margin int, page Dimensions) error {
	if photo.Width <= 0 || photo.Height <= 0 {
		return errors.New(errors.ErrCodeInvalidMeasurement,
			"photo must be at least 1px in each direction, got %s", photo)
	}
	if margin < 0 {
		return errors.New(errors.ErrCodeInvalidMeasurement, "margin cannot be negative, got %dpx", margin)
	}
	if margin > MaxSide {
		return errors.New(errors.ErrCodeInvalidMeasurement, "margin %dpx exceeds %dpx", margin, MaxSide)
	}
	if page.Width <= 0 || page.Height <= 0 {
		return errors.New(errors.ErrCodeInvalidMeasurement,
			"page must be at least 1px in each direction, got %s", page)
	}
	if err := CheckSize("photo", photo); err != nil {
		return err
	}
	return CheckSize("page", page)
}

// CheckSize rejects dimensions whose pixel buffer would exceed MaxSide or
// MaxPixels. name labels the error message.
func CheckSize(name string, d Dimensions) error {
	if d.Width > MaxSide || d.Height > MaxSide {
		return errors.New(errors.ErrCodeInvalidMeasurement,
			"%s %s exceeds the %dpx side limit", name, d, MaxSide)
	}
	if d.Area() > MaxPixels {
		return errors.New(errors.ErrCodeInvalidMeasurement,
			"%s %s exceeds the %d pixel limit", name, d, MaxPixels)
	}
	return nil
}

// checkCapacity rejects grids with more than MaxPlacements cells.
func checkCapacity(rows, cols int) error {
	if rows*cols > MaxPlacements {
		return errors.New(errors.ErrCodeInvalidMeasurement,
			"%d x %d photos exceeds the limit of %d per sheet", rows, cols, MaxPlacements)
	}
	return nil
}
