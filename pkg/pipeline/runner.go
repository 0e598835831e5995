package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/idsheet/pkg/cache"
	"github.com/matzehuels/idsheet/pkg/compose"
	"github.com/matzehuels/idsheet/pkg/errors"
	"github.com/matzehuels/idsheet/pkg/observability"
	"github.com/matzehuels/idsheet/pkg/units"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use this to avoid duplicating caching logic.
//
// The Runner is stateless except for the cache and logger - it doesn't
// store pipeline results. Multiple goroutines can safely use the same
// Runner with different options.
type Runner struct {
	Cache  cache.Cache
	Keyer  cache.Keyer
	Logger *log.Logger

	// Hooks receives stage events. Defaults to the global pipeline hooks.
	Hooks observability.PipelineHooks

	// ArtifactTTL overrides cache.ArtifactTTL when positive.
	ArtifactTTL time.Duration
}

// NewRunner creates a runner with the given cache and keyer.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:  c,
		Keyer:  keyer,
		Logger: logger,
		Hooks:  observability.Pipeline(),
	}
}

// Execute runs the complete pipeline with caching. unit is the cropped photo;
// it may be nil only when every requested format is JSON.
func (r *Runner) Execute(ctx context.Context, opts Options, unit image.Image) (*Result, error) {
	if err := opts.ValidateAndSetDefaults(); err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}
	r.applyLogger(&opts)

	if opts.NeedsSheet() && (unit == nil || unit.Bounds().Empty()) {
		return nil, errors.New(errors.ErrCodeMissingUnitImage, "a photo is required to render %v", opts.Formats)
	}

	result := &Result{}

	// Stages 1-3: Plan
	planStart := time.Now()
	plan, planHit, err := r.PlanWithCacheInfo(ctx, opts)
	if err != nil {
		return nil, err
	}
	result.Plan = plan
	result.Stats.PlanTime = time.Since(planStart)
	result.Stats.Placements = plan.Grid.Capacity()
	result.CacheInfo.PlanHit = planHit

	// Stages 4-5: Composite and export
	artifacts, sheet, exportHit, err := r.RenderWithCacheInfo(ctx, plan, unit, opts, &result.Stats)
	if err != nil {
		return nil, err
	}
	result.Sheet = sheet
	result.Artifacts = artifacts
	result.CacheInfo.ExportHit = exportHit

	r.Logger.Info("rendered sheet",
		"formats", opts.Formats,
		"placements", result.Stats.Placements,
		"duration", result.Stats.CompositeTime+result.Stats.ExportTime)

	return result, nil
}

// PlanWithCacheInfo runs the convert, orient and pack stages with caching and
// returns cache hit info.
func (r *Runner) PlanWithCacheInfo(ctx context.Context, opts Options) (*Plan, bool, error) {
	if err := opts.ValidateForPlan(); err != nil {
		return nil, false, fmt.Errorf("invalid options: %w", err)
	}
	r.applyLogger(&opts)

	var px Pixels
	err := r.stage(ctx, observability.StageConvert, func() error {
		var err error
		px, err = Convert(opts)
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("convert: %w", err)
	}

	// Try cache first (unless refresh requested)
	cacheKey := r.Keyer.PlanKey(px.KeyOpts())
	if !opts.Refresh {
		if plan, ok := r.cachedPlan(ctx, cacheKey); ok {
			// Plans are keyed by pixels; keep the physical inputs of this request.
			plan.DPI = units.Resolution(opts.DPI)
			plan.PhotoSize, plan.PageSize, plan.Margin = opts.PhotoSize, opts.PageSize, opts.MarginLength()
			r.logPlan(plan, true)
			return plan, true, nil // Cache hit
		}
	}

	var plan *Plan
	err = r.stage(ctx, observability.StagePack, func() error {
		var err error
		plan, err = ComputePlan(ctx, px, opts)
		return err
	})
	if err != nil {
		return nil, false, fmt.Errorf("layout: %w", err)
	}

	// Cache the result
	if data, err := json.Marshal(plan); err == nil {
		if err := r.Cache.Set(ctx, cacheKey, data, cache.PlanTTL); err == nil {
			observability.Cache().OnCacheSet(ctx, cache.KeyTypePlan, len(data))
		}
	}

	r.logPlan(plan, false)
	return plan, false, nil // Cache miss
}

// Plan is a convenience wrapper that calls PlanWithCacheInfo and discards the cache hit info.
func (r *Runner) Plan(ctx context.Context, opts Options) (*Plan, error) {
	plan, _, err := r.PlanWithCacheInfo(ctx, opts)
	return plan, err
}

// RenderWithCacheInfo composites and exports a plan with caching and returns
// cache hit info. When every artifact is cached the sheet is not built and
// the returned sheet is nil. stats, if non-nil, receives stage timings.
func (r *Runner) RenderWithCacheInfo(ctx context.Context, plan *Plan, unit image.Image, opts Options, stats *Stats) (map[string][]byte, *compose.Sheet, bool, error) {
	if err := opts.ValidateForRender(); err != nil {
		return nil, nil, false, fmt.Errorf("invalid options: %w", err)
	}
	r.applyLogger(&opts)
	if stats == nil {
		stats = &Stats{}
	}

	planHash := plan.Hash()
	var unitHash string
	if unit != nil && opts.NeedsSheet() {
		unitHash = cache.HashImage(unit)
	}

	// Try to get all formats from cache
	if !opts.Refresh {
		artifacts := make(map[string][]byte, len(opts.Formats))
		for _, format := range opts.Formats {
			key := r.Keyer.ArtifactKey(planHash, opts.ArtifactKeyOpts(format, unitHash))
			data, hit, err := r.Cache.Get(ctx, key)
			if err != nil || !hit {
				observability.Cache().OnCacheMiss(ctx, cache.KeyTypeArtifact)
				break
			}
			observability.Cache().OnCacheHit(ctx, cache.KeyTypeArtifact)
			artifacts[format] = data
		}
		if len(artifacts) == len(opts.Formats) {
			return artifacts, nil, true, nil // All artifacts from cache
		}
	}

	// Stage 4: Composite
	var sheet *compose.Sheet
	if opts.NeedsSheet() {
		compositeStart := time.Now()
		err := r.stage(ctx, observability.StageComposite, func() error {
			var err error
			sheet, err = Composite(ctx, plan, unit, opts)
			return err
		})
		if err != nil {
			return nil, nil, false, fmt.Errorf("composite: %w", err)
		}
		stats.CompositeTime = time.Since(compositeStart)
	}

	// Stage 5: Export
	exportStart := time.Now()
	var artifacts map[string][]byte
	err := r.stage(ctx, observability.StageExport, func() error {
		var err error
		artifacts, err = Render(ctx, plan, sheet, opts)
		return err
	})
	if err != nil {
		return nil, nil, false, fmt.Errorf("export: %w", err)
	}
	stats.ExportTime = time.Since(exportStart)

	// Cache each format
	for format, data := range artifacts {
		key := r.Keyer.ArtifactKey(planHash, opts.ArtifactKeyOpts(format, unitHash))
		if err := r.Cache.Set(ctx, key, data, r.artifactTTL()); err == nil {
			observability.Cache().OnCacheSet(ctx, cache.KeyTypeArtifact, len(data))
		}
	}

	return artifacts, sheet, false, nil // Cache miss
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

func (r *Runner) cachedPlan(ctx context.Context, key string) (*Plan, bool) {
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, cache.KeyTypePlan)
		return nil, false
	}
	var plan Plan
	if err := json.Unmarshal(data, &plan); err != nil {
		// If deserialization fails, fall through to recompute
		observability.Cache().OnCacheMiss(ctx, cache.KeyTypePlan)
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, cache.KeyTypePlan)
	return &plan, true
}

func (r *Runner) logPlan(plan *Plan, cached bool) {
	g := plan.Grid
	if g.Empty() {
		r.Logger.Warn("nothing fits on the page",
			"photo", g.Photo,
			"page", plan.Selection.Nominal,
			"margin", g.Margin)
		return
	}
	r.Logger.Info("planned layout",
		"orientation", g.Orientation,
		"rows", g.Rows,
		"cols", g.Cols,
		"placements", g.Capacity(),
		"cached", cached)
}

func (r *Runner) artifactTTL() time.Duration {
	if r.ArtifactTTL > 0 {
		return r.ArtifactTTL
	}
	return cache.ArtifactTTL
}

// stage runs fn between pipeline hook events.
func (r *Runner) stage(ctx context.Context, s observability.Stage, fn func() error) error {
	hooks := r.Hooks
	if hooks == nil {
		hooks = observability.Pipeline()
	}
	hooks.OnStageStart(ctx, s)
	start := time.Now()
	err := fn()
	hooks.OnStageComplete(ctx, s, time.Since(start), err)
	return err
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
