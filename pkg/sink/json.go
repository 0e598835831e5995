package sink

import (
	"encoding/json"

	"github.com/matzehuels/idsheet/pkg/errors"
	"github.com/matzehuels/idsheet/pkg/layout"
	"github.com/matzehuels/idsheet/pkg/units"
)

// JSONOption configures JSON rendering via [RenderJSON].
type JSONOption func(*jsonRenderer)

type jsonRenderer struct {
	dpi       units.Resolution
	photo     units.Size
	page      units.Size
	margin    units.Length
	hasInputs bool
}

// WithJSONResolution records the DPI the grid was computed at.
func WithJSONResolution(dpi units.Resolution) JSONOption {
	return func(r *jsonRenderer) { r.dpi = dpi }
}

// WithJSONSizes records the physical photo size, page size and margin.
func WithJSONSizes(photo, page units.Size, margin units.Length) JSONOption {
	return func(r *jsonRenderer) {
		r.photo, r.page, r.margin = photo, page, margin
		r.hasInputs = true
	}
}

type jsonOutput struct {
	Page        layout.Dimensions  `json:"page"`
	Photo       layout.Dimensions  `json:"photo"`
	Margin      int                `json:"margin"`
	Orientation layout.Orientation `json:"orientation"`
	Rows        int                `json:"rows"`
	Cols        int                `json:"cols"`
	StartX      int                `json:"start_x"`
	StartY      int                `json:"start_y"`
	Count       int                `json:"count"`
	Placements  []layout.Placement `json:"placements"`
	DPI         units.Resolution   `json:"dpi,omitempty"`
	Inputs      *jsonInputs        `json:"inputs,omitempty"`
}

type jsonInputs struct {
	Photo  units.Size   `json:"photo"`
	Page   units.Size   `json:"page"`
	Margin units.Length `json:"margin"`
}

// RenderJSON writes the grid as an indented JSON placement descriptor.
// Empty grids encode placements as an empty array, never null.
func RenderJSON(g layout.Grid, opts ...JSONOption) ([]byte, error) {
	var r jsonRenderer
	for _, opt := range opts {
		opt(&r)
	}

	out := jsonOutput{
		Page:        g.Page,
		Photo:       g.Photo,
		Margin:      g.Margin,
		Orientation: g.Orientation,
		Rows:        g.Rows,
		Cols:        g.Cols,
		StartX:      g.StartX,
		StartY:      g.StartY,
		Count:       len(g.Placements),
		Placements:  g.Placements,
		DPI:         r.dpi,
	}
	if out.Placements == nil {
		out.Placements = []layout.Placement{}
	}
	if r.hasInputs {
		out.Inputs = &jsonInputs{Photo: r.photo, Page: r.page, Margin: r.margin}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode json")
	}
	return data, nil
}
