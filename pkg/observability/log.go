package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks writes every event to a structured logger at debug level.
// It implements LayoutHooks, PipelineHooks, CacheHooks and HTTPHooks, so one
// value can be registered for all categories.
type LogHooks struct {
	Logger *log.Logger
}

// NewLogHooks creates log hooks writing to l. A nil logger uses log.Default().
func NewLogHooks(l *log.Logger) *LogHooks {
	if l == nil {
		l = log.Default()
	}
	return &LogHooks{Logger: l}
}

func (h *LogHooks) OnOrientationSelected(_ context.Context, ev OrientationEvent) {
	orientation := "nominal"
	if ev.Rotated {
		orientation = "rotated"
	}
	h.Logger.Debug("orientation selected",
		"orientation", orientation,
		"page", dims(ev.PageWidth, ev.PageHeight),
		"photo", dims(ev.PhotoWidth, ev.PhotoHeight),
		"margin", ev.Margin,
		"nominal", ev.NominalCapacity,
		"rotated", ev.RotatedCapacity)
}

func (h *LogHooks) OnGridPacked(_ context.Context, ev PackEvent) {
	if ev.Placements == 0 {
		h.Logger.Debug("grid empty: photo does not fit the page",
			"page", dims(ev.PageWidth, ev.PageHeight))
		return
	}
	h.Logger.Debug("grid packed",
		"rows", ev.Rows,
		"cols", ev.Cols,
		"start_x", ev.StartX,
		"start_y", ev.StartY,
		"placements", ev.Placements)
}

func (h *LogHooks) OnStageStart(_ context.Context, stage Stage) {
	h.Logger.Debug("stage started", "stage", stage)
}

func (h *LogHooks) OnStageComplete(_ context.Context, stage Stage, d time.Duration, err error) {
	if err != nil {
		h.Logger.Debug("stage failed", "stage", stage, "duration", d, "err", err)
		return
	}
	h.Logger.Debug("stage completed", "stage", stage, "duration", d)
}

func (h *LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.Logger.Debug("cache hit", "type", keyType)
}

func (h *LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.Logger.Debug("cache miss", "type", keyType)
}

func (h *LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.Logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (h *LogHooks) OnRequest(_ context.Context, method, path string) {
	h.Logger.Debug("request", "method", method, "path", path)
}

func (h *LogHooks) OnResponse(_ context.Context, method, path string, status int, d time.Duration) {
	h.Logger.Info("response", "method", method, "path", path, "status", status, "duration", d)
}

func dims(w, h int) [2]int { return [2]int{w, h} }

var (
	_ LayoutHooks   = (*LogHooks)(nil)
	_ PipelineHooks = (*LogHooks)(nil)
	_ CacheHooks    = (*LogHooks)(nil)
	_ HTTPHooks     = (*LogHooks)(nil)
)
