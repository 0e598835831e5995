// Package pkg provides the core libraries for idsheet, the ID photo sheet
// layout engine.
//
// # Overview
//
// idsheet tiles copies of a cropped ID photo onto a print page. Physical
// sizes (cm, mm, inches) are converted to pixels at the print resolution,
// the page orientation that fits the most copies is selected, the grid is
// centered on the page and the sheet is rendered as PNG, JPEG or a JSON
// description of the placements.
//
// # Architecture
//
// The typical data flow through idsheet:
//
//	photo size, page size, margin, DPI
//	         ↓
//	    [units] package (physical lengths → pixels)
//	         ↓
//	    [layout] package (orientation selection + grid packing)
//	         ↓
//	    [compose] package (paint the cropped unit into every cell)
//	         ↓
//	    [sink] package (PNG / JPEG / JSON)
//
// # Quick Start
//
// Plan and render a sheet in one call:
//
//	import (
//	    "context"
//	    "github.com/matzehuels/idsheet/pkg/pipeline"
//	)
//
//	runner := pipeline.NewRunner(nil, nil, nil)
//	result, err := runner.Execute(ctx, pipeline.Options{
//	    Photo:   "3.5x4.5",
//	    Page:    "4x6",
//	    DPI:     300,
//	    Margin:  "3mm",
//	    Formats: []string{"png"},
//	}, unit)
//	png := result.Artifacts["png"]
//
// Or drive the stages yourself:
//
//	sel, _ := layout.SelectOrientation(ctx, photo, margin, page)
//	grid := layout.Pack(ctx, sel)
//	sheet, _ := compose.Composite(ctx, grid, unit)
//	data, _ := sink.RenderPNG(sheet)
//
// # Main Packages
//
// ## Layout
//
// [units] - Lengths with units, parsing ("2.5x3.5cm"), named presets and the
// single rounding rule that turns a length into pixels.
//
// [layout] - Orientation selection and centered grid packing. Pure integer
// arithmetic; every placement lies inside the page.
//
// ## Rendering
//
// [crop] - Decoding uploads, choosing and validating crop regions, and
// scaling the crop to the photo's pixel size.
//
// [compose] - Compositing the unit image onto a white page at every
// placement.
//
// [sink] - Output formats (PNG, JPEG, JSON).
//
// ## Infrastructure
//
// [pipeline] - The complete convert → orient → pack → composite → export
// pipeline used by the CLI and the HTTP server, with plan and artifact
// caching.
//
// [cache] - Cache backends: file (CLI), Redis (shared servers) and a null
// cache.
//
// [session] - Crop sessions for the HTTP editor with memory and file stores.
//
// [config] - The TOML configuration file.
//
// [observability] - Optional hooks for layout decisions, pipeline stages,
// cache operations and HTTP requests.
//
// [errors] - Coded errors shared by every package.
//
// # Testing
//
// Run tests:
//
//	go test ./pkg/...                    # All tests
//	go test ./pkg/layout/...             # Specific package
//
// [units]: https://pkg.go.dev/github.com/matzehuels/idsheet/pkg/units
// [layout]: https://pkg.go.dev/github.com/matzehuels/idsheet/pkg/layout
// [crop]: https://pkg.go.dev/github.com/matzehuels/idsheet/pkg/crop
// [compose]: https://pkg.go.dev/github.com/matzehuels/idsheet/pkg/compose
// [sink]: https://pkg.go.dev/github.com/matzehuels/idsheet/pkg/sink
// [pipeline]: https://pkg.go.dev/github.com/matzehuels/idsheet/pkg/pipeline
// [cache]: https://pkg.go.dev/github.com/matzehuels/idsheet/pkg/cache
// [session]: https://pkg.go.dev/github.com/matzehuels/idsheet/pkg/session
// [config]: https://pkg.go.dev/github.com/matzehuels/idsheet/pkg/config
// [observability]: https://pkg.go.dev/github.com/matzehuels/idsheet/pkg/observability
// [errors]: https://pkg.go.dev/github.com/matzehuels/idsheet/pkg/errors
package pkg
