package server

import (
	"net/http"

	"github.com/matzehuels/idsheet/pkg/buildinfo"
	"github.com/matzehuels/idsheet/pkg/layout"
	"github.com/matzehuels/idsheet/pkg/pipeline"
	"github.com/matzehuels/idsheet/pkg/units"
)

// emptyWarning is returned alongside layouts that place no photo.
const emptyWarning = "the photo does not fit on the page with this margin"

type healthResponse struct {
	Status string         `json:"status"`
	Build  buildinfo.Info `json:"build"`
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, healthResponse{Status: "ok", Build: buildinfo.Get()})
}

type presetsResponse struct {
	Page  map[string]units.Size `json:"page"`
	Photo map[string]units.Size `json:"photo"`
}

func (s *Server) presets(w http.ResponseWriter, r *http.Request) {
	page := s.cfg.Defaults.PagePresets
	if page == nil {
		page = units.DefaultPagePresets()
	}
	photo := s.cfg.Defaults.PhotoPresets
	if photo == nil {
		photo = units.DefaultPhotoPresets()
	}
	respondJSON(w, http.StatusOK, presetsResponse{Page: page, Photo: photo})
}

// layoutResponse describes a planned grid.
type layoutResponse struct {
	DPI         units.Resolution   `json:"dpi"`
	PhotoSize   units.Size         `json:"photo_size"`
	PageSize    units.Size         `json:"page_size"`
	Margin      units.Length       `json:"margin"`
	Page        layout.Dimensions  `json:"page"`
	Photo       layout.Dimensions  `json:"photo"`
	MarginPx    int                `json:"margin_px"`
	Orientation layout.Orientation `json:"orientation"`
	Rows        int                `json:"rows"`
	Cols        int                `json:"cols"`
	StartX      int                `json:"start_x"`
	StartY      int                `json:"start_y"`
	Count       int                `json:"count"`
	Placements  []layout.Placement `json:"placements"`
	Warning     string             `json:"warning,omitempty"`
}

func newLayoutResponse(p *pipeline.Plan) layoutResponse {
	g := p.Grid
	placements := g.Placements
	if placements == nil {
		placements = []layout.Placement{}
	}
	resp := layoutResponse{
		DPI:         p.DPI,
		PhotoSize:   p.PhotoSize,
		PageSize:    p.PageSize,
		Margin:      p.Margin,
		Page:        g.Page,
		Photo:       g.Photo,
		MarginPx:    g.Margin,
		Orientation: g.Orientation,
		Rows:        g.Rows,
		Cols:        g.Cols,
		StartX:      g.StartX,
		StartY:      g.StartY,
		Count:       g.Capacity(),
		Placements:  placements,
	}
	if p.Empty() {
		resp.Warning = emptyWarning
	}
	return resp
}

// layout plans a sheet without rendering it.
func (s *Server) layout(w http.ResponseWriter, r *http.Request) {
	opts := s.options()
	if err := decodeJSON(r, &opts); err != nil {
		s.respondError(w, r, err)
		return
	}
	plan, err := s.runner.Plan(r.Context(), opts)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newLayoutResponse(plan))
}

// options returns a fresh copy of the default pipeline options.
func (s *Server) options() pipeline.Options {
	opts := s.cfg.Defaults
	opts.Formats = append([]string(nil), opts.Formats...)
	opts.Logger = s.logger
	return opts
}
