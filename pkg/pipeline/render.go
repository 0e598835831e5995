package pipeline

import (
	"context"
	"fmt"
	"image"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/idsheet/pkg/compose"
	"github.com/matzehuels/idsheet/pkg/sink"
)

// Composite paints unit onto the plan's grid.
func Composite(ctx context.Context, p *Plan, unit image.Image, opts Options) (*compose.Sheet, error) {
	interp, err := compose.ParseInterpolation(opts.Interpolation)
	if err != nil {
		return nil, err
	}
	return compose.Composite(ctx, p.Grid, unit, compose.WithInterpolation(interp))
}

// Render encodes the requested formats concurrently. sheet may be nil when
// only JSON is requested.
func Render(ctx context.Context, p *Plan, sheet *compose.Sheet, opts Options) (map[string][]byte, error) {
	var (
		mu        sync.Mutex
		artifacts = make(map[string][]byte, len(opts.Formats))
	)

	g, ctx := errgroup.WithContext(ctx)
	for _, format := range opts.Formats {
		format := format
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			data, err := renderFormat(p, sheet, sink.Format(format), opts)
			if err != nil {
				return fmt.Errorf("render %s: %w", format, err)
			}
			mu.Lock()
			artifacts[format] = data
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return artifacts, nil
}

func renderFormat(p *Plan, sheet *compose.Sheet, format sink.Format, opts Options) ([]byte, error) {
	switch format {
	case sink.FormatPNG:
		return sink.RenderPNG(sheet)
	case sink.FormatJPEG:
		return sink.RenderJPEG(sheet, sink.WithQuality(opts.Quality))
	case sink.FormatJSON:
		return sink.RenderJSON(p.Grid,
			sink.WithJSONResolution(p.DPI),
			sink.WithJSONSizes(p.PhotoSize, p.PageSize, p.Margin))
	}
	return nil, ValidateFormat(string(format))
}
