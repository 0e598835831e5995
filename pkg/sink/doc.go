// Package sink serializes composited sheets and their layouts.
//
// # Overview
//
// A "sink" turns a finished [compose.Sheet] or a [layout.Grid] into bytes:
//
//   - PNG: lossless raster of the sheet
//   - JPEG: lossy raster with configurable quality (default 90)
//   - JSON: placement descriptor for external tools
//
// Raster encoding goes through github.com/disintegration/imaging.
//
// Basic usage:
//
//	data, err := sink.RenderJPEG(sheet, sink.WithQuality(85))
//	name := sink.Filename(sink.FormatJPEG) // "id-photo-layout.jpg"
//
// # JSON Output
//
// [RenderJSON] writes the grid in pixels. [WithJSONResolution] and
// [WithJSONSizes] add the physical inputs the grid was computed from, so the
// descriptor is self-contained.
//
// [compose.Sheet]: github.com/matzehuels/idsheet/pkg/compose.Sheet
// [layout.Grid]: github.com/matzehuels/idsheet/pkg/layout.Grid
package sink
