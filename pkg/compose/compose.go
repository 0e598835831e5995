// Package compose paints a packed layout grid onto a white page.
//
// [Composite] scales the unit photo once to the grid's cell size and copies
// it into every placement. The resulting [Sheet] is freshly allocated per
// call and never modified afterwards, so concurrent runs share nothing.
package compose

import (
	"context"
	"image"
	"image/color"
	"strings"

	"golang.org/x/image/draw"

	"github.com/matzehuels/idsheet/pkg/errors"
	"github.com/matzehuels/idsheet/pkg/layout"
)

// Interpolation selects the resampling kernel used to scale the unit photo.
type Interpolation string

const (
	Nearest    Interpolation = "nearest"
	BiLinear   Interpolation = "bilinear"
	CatmullRom Interpolation = "catmullrom"
)

// DefaultInterpolation is used when none is configured.
const DefaultInterpolation = CatmullRom

// Interpolations lists the supported kernels.
var Interpolations = []Interpolation{Nearest, BiLinear, CatmullRom}

// ParseInterpolation resolves a kernel name. The empty string selects
// DefaultInterpolation.
func ParseInterpolation(s string) (Interpolation, error) {
	switch Interpolation(strings.ToLower(strings.TrimSpace(s))) {
	case "":
		return DefaultInterpolation, nil
	case Nearest:
		return Nearest, nil
	case BiLinear:
		return BiLinear, nil
	case CatmullRom, "catmull-rom":
		return CatmullRom, nil
	}
	return "", errors.New(errors.ErrCodeInvalidInput,
		"unknown interpolation %q (use nearest, bilinear or catmullrom)", s)
}

func (i Interpolation) scaler() draw.Scaler {
	switch i {
	case Nearest:
		return draw.NearestNeighbor
	case BiLinear:
		return draw.BiLinear
	default:
		return draw.CatmullRom
	}
}

// Background is the page fill color.
var Background = color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}

// Sheet is a fully composited page.
type Sheet struct {
	img  *image.RGBA
	grid layout.Grid
}

// Image returns the page raster. Callers must not modify it.
func (s *Sheet) Image() image.Image { return s.img }

// Grid returns the layout the sheet was painted from.
func (s *Sheet) Grid() layout.Grid { return s.grid }

// Bounds returns the page rectangle.
func (s *Sheet) Bounds() image.Rectangle { return s.img.Bounds() }

// Option configures Composite.
type Option func(*options)

type options struct {
	interp Interpolation
}

// WithInterpolation selects the kernel used to scale the unit photo.
func WithInterpolation(i Interpolation) Option {
	return func(o *options) {
		if i != "" {
			o.interp = i
		}
	}
}

// Composite paints unit into every placement of grid on a white page.
//
// unit must be non-nil with a non-empty area; otherwise Composite fails with
// ErrCodeMissingUnitImage before allocating anything. An empty grid yields an
// all-white page. A cancelled context aborts the run and returns no sheet.
func Composite(ctx context.Context, grid layout.Grid, unit image.Image, opts ...Option) (*Sheet, error) {
	if unit == nil || unit.Bounds().Empty() {
		return nil, errors.New(errors.ErrCodeMissingUnitImage, "no photo to place on the sheet")
	}
	if grid.Page.Width <= 0 || grid.Page.Height <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidMeasurement, "sheet page has no area: %s", grid.Page)
	}
	if !grid.Empty() && (grid.Photo.Width <= 0 || grid.Photo.Height <= 0) {
		return nil, errors.New(errors.ErrCodeInvalidMeasurement, "photo cell has no area: %s", grid.Photo)
	}

	o := options{interp: DefaultInterpolation}
	for _, opt := range opts {
		opt(&o)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	page := image.NewRGBA(image.Rect(0, 0, grid.Page.Width, grid.Page.Height))
	draw.Draw(page, page.Bounds(), image.NewUniform(Background), image.Point{}, draw.Src)

	if !grid.Empty() {
		cell := scale(unit, grid.Photo, o.interp)
		for i, p := range grid.Placements {
			if i%max(grid.Cols, 1) == 0 {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
			}
			draw.Draw(page, p.Rect(grid.Photo), cell, image.Point{}, draw.Src)
		}
	}

	return &Sheet{img: page, grid: grid}, nil
}

// scale resamples unit to exactly size. The cell is first filled white so a
// translucent photo composites onto the page color.
func scale(unit image.Image, size layout.Dimensions, interp Interpolation) *image.RGBA {
	cell := image.NewRGBA(image.Rect(0, 0, size.Width, size.Height))
	draw.Draw(cell, cell.Bounds(), image.NewUniform(Background), image.Point{}, draw.Src)
	interp.scaler().Scale(cell, cell.Bounds(), unit, unit.Bounds(), draw.Over, nil)
	return cell
}
