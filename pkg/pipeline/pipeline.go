// Package pipeline provides the core sheet pipeline for idsheet.
//
// This package implements the complete convert → orient → pack → composite →
// export pipeline used by the CLI and the HTTP server. By centralizing this
// logic, both entry points resolve presets, apply defaults and cache results
// the same way.
//
// # Architecture
//
// The pipeline consists of five stages:
//
//  1. Convert: Resolve presets and convert physical sizes to pixels
//  2. Orient: Pick the page orientation that fits more photos
//  3. Pack: Center a margin-separated grid on the active page
//  4. Composite: Paint the unit photo into every cell of a white page
//  5. Export: Encode the sheet (PNG, JPEG) or the grid (JSON)
//
// Stages 1-3 form the plan and need no image. Each stage reports to
// [observability.PipelineHooks].
//
// # Usage
//
// Create a Runner and execute the pipeline:
//
//	runner := pipeline.NewRunner(cache, nil, logger)
//	opts := pipeline.Options{
//	    Photo:   "2.5x3.5cm",
//	    Page:    "4x6",
//	    DPI:     300,
//	    Margin:  "3mm",
//	    Formats: []string{"png"},
//	}
//	result, err := runner.Execute(ctx, opts, unit)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	png := result.Artifacts["png"]
//
// Plan only:
//
//	plan, err := runner.Plan(ctx, opts)
//	fmt.Println(plan.Grid.Capacity())
package pipeline

import (
	"io"
	"slices"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/idsheet/pkg/cache"
	"github.com/matzehuels/idsheet/pkg/compose"
	"github.com/matzehuels/idsheet/pkg/errors"
	"github.com/matzehuels/idsheet/pkg/observability"
	"github.com/matzehuels/idsheet/pkg/sink"
	"github.com/matzehuels/idsheet/pkg/units"
)

// =============================================================================
// Default Values - Single Source of Truth for CLI and API
// =============================================================================

const (
	// DefaultPhoto is the default photo preset (EU/UK passport).
	DefaultPhoto = "3.5x4.5"

	// DefaultPage is the default page preset.
	DefaultPage = "4x6"

	// DefaultDPI is the default print resolution.
	DefaultDPI = 300

	// DefaultMargin is the default gap between photos.
	DefaultMargin = "3mm"

	// DefaultQuality is the default JPEG quality.
	DefaultQuality = sink.DefaultQuality

	// MaxDPI is the highest accepted print resolution. Pixel sizes are
	// further bounded by layout.MaxSide and layout.MaxPixels.
	MaxDPI = 2400
)

// DefaultFormats are rendered when no format is requested.
var DefaultFormats = []string{string(sink.FormatPNG)}

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	string(sink.FormatPNG):  true,
	string(sink.FormatJPEG): true,
	string(sink.FormatJSON): true,
}

// =============================================================================
// Options - Pipeline Configuration
// =============================================================================

// Options contains all configuration for the sheet pipeline.
// This struct supports JSON serialization for API requests.
type Options struct {
	// Measurement options. Photo and Page are preset names or literal sizes
	// ("2.5x3.5cm"); PhotoSize and PageSize, when set, take precedence.
	Photo     string     `json:"photo,omitempty"`
	Page      string     `json:"page,omitempty"`
	PhotoSize units.Size `json:"photo_size"`
	PageSize  units.Size `json:"page_size"`
	DPI       int        `json:"dpi,omitempty"`
	Margin    string     `json:"margin,omitempty"`

	// Render options
	Formats       []string `json:"formats,omitempty"`
	Quality       int      `json:"quality,omitempty"`
	Interpolation string   `json:"interpolation,omitempty"`
	Refresh       bool     `json:"refresh,omitempty"`

	// Runtime options (not serialized)
	Logger       *log.Logger               `json:"-"`
	PagePresets  units.Presets             `json:"-"`
	PhotoPresets units.Presets             `json:"-"`
	LayoutHooks  observability.LayoutHooks `json:"-"`

	// resolved margin, set by ValidateForPlan
	marginLength units.Length

	// validated tracks whether ValidateAndSetDefaults has been called.
	validated bool
}

// Result contains the outputs of a pipeline run.
type Result struct {
	// Plan is the layout the sheet was built from.
	Plan *Plan

	// Sheet is the composited page. It is nil when every artifact came
	// from the cache.
	Sheet *compose.Sheet

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Empty reports whether no photo fit on the page.
func (r *Result) Empty() bool { return r.Plan == nil || r.Plan.Empty() }

// Stats contains pipeline execution statistics.
type Stats struct {
	Placements    int
	PlanTime      time.Duration
	CompositeTime time.Duration
	ExportTime    time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	PlanHit   bool // Whether the plan came from cache
	ExportHit bool // Whether all artifacts came from cache
}

// =============================================================================
// Validation Functions
// =============================================================================

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat,
			"invalid format: %q (must be one of: png, jpeg, json)", format)
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

// ValidateInterpolation checks that an interpolation name is valid.
func ValidateInterpolation(name string) error {
	_, err := compose.ParseInterpolation(name)
	return err
}

// =============================================================================
// Options Methods
// =============================================================================

// ValidateAndSetDefaults checks required fields and applies defaults for the full pipeline.
// This method is idempotent - calling it multiple times has the same effect as calling it once.
func (o *Options) ValidateAndSetDefaults() error {
	if o.validated {
		return nil
	}
	if err := o.ValidateForPlan(); err != nil {
		return err
	}
	if err := o.ValidateForRender(); err != nil {
		return err
	}
	o.validated = true
	return nil
}

// ValidateForPlan resolves presets and checks the measurement inputs.
func (o *Options) ValidateForPlan() error {
	if o.Photo == "" && o.PhotoSize.IsZero() {
		o.Photo = DefaultPhoto
	}
	if o.Page == "" && o.PageSize.IsZero() {
		o.Page = DefaultPage
	}
	if o.DPI == 0 {
		o.DPI = DefaultDPI
	}
	if o.Margin == "" {
		o.Margin = DefaultMargin
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	if o.DPI < 0 || o.DPI > MaxDPI {
		return errors.New(errors.ErrCodeInvalidMeasurement, "dpi must be between 1 and %d, got %d", MaxDPI, o.DPI)
	}

	if o.PhotoSize.IsZero() {
		presets := o.PhotoPresets
		if presets == nil {
			presets = units.DefaultPhotoPresets()
		}
		size, err := presets.Resolve(o.Photo)
		if err != nil {
			return err
		}
		o.PhotoSize = size
	}
	if o.PageSize.IsZero() {
		presets := o.PagePresets
		if presets == nil {
			presets = units.DefaultPagePresets()
		}
		size, err := presets.Resolve(o.Page)
		if err != nil {
			return err
		}
		o.PageSize = size
	}

	margin, err := units.ParseLength(o.Margin)
	if err != nil {
		return err
	}
	o.marginLength = margin
	return nil
}

// ValidateForRender validates and sets defaults for rendering.
func (o *Options) ValidateForRender() error {
	o.SetRenderDefaults()
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	if o.Quality < 1 || o.Quality > 100 {
		return errors.New(errors.ErrCodeInvalidInput, "quality must be between 1 and 100, got %d", o.Quality)
	}
	return ValidateInterpolation(o.Interpolation)
}

// SetRenderDefaults sets default values for rendering.
func (o *Options) SetRenderDefaults() {
	if len(o.Formats) == 0 {
		o.Formats = append([]string(nil), DefaultFormats...)
	}
	formats := make([]string, 0, len(o.Formats))
	for _, f := range o.Formats {
		if parsed, err := sink.ParseFormat(f); err == nil {
			f = string(parsed)
		}
		if !slices.Contains(formats, f) {
			formats = append(formats, f)
		}
	}
	o.Formats = formats
	if o.Quality == 0 {
		o.Quality = DefaultQuality
	}
	if o.Interpolation == "" {
		o.Interpolation = string(compose.DefaultInterpolation)
	}
	if o.Logger == nil {
		o.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
}

// MarginLength returns the parsed margin. It is valid after ValidateForPlan.
func (o *Options) MarginLength() units.Length { return o.marginLength }

// NeedsSheet reports whether any requested format encodes the sheet image.
func (o *Options) NeedsSheet() bool {
	for _, f := range o.Formats {
		if sink.Format(f).Raster() {
			return true
		}
	}
	return false
}

// ArtifactKeyOpts returns cache key options for artifact rendering.
func (o *Options) ArtifactKeyOpts(format, unitHash string) cache.ArtifactKeyOpts {
	opts := cache.ArtifactKeyOpts{Format: format}
	if sink.Format(format).Raster() {
		opts.UnitHash = unitHash
		opts.Interpolation = o.Interpolation
	}
	if format == string(sink.FormatJPEG) {
		opts.Quality = o.Quality
	}
	return opts
}
