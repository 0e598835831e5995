// Package layout decides how many photos fit on a sheet and where they go.
//
// Layout works purely in pixels. Callers convert physical sizes with
// [units.SizeToPixels] first, then hand the photo size, the margin and the
// nominal page size to [Plan], or run the two steps separately:
//
//	sel, err := layout.SelectOrientation(ctx, photo, margin, page)
//	grid := layout.Pack(ctx, sel)
//
// # Orientation
//
// [SelectOrientation] compares the nominal page (W, H) with the rotated page
// (H, W). Each candidate's capacity is floor(H/(h+m)) * floor(W/(w+m)).
// The rotated page is chosen only when it holds strictly more photos, so a
// tie always keeps the nominal page.
//
// # Packing
//
// [Pack] lays the winning rows and columns out as one block whose neighbours
// are exactly one margin apart, then centers the block on the page. Leftover
// space on opposite edges differs by at most one pixel. A page too small for
// even one photo produces an empty [Grid], which is a valid result.
//
// # Diagnostics
//
// Both steps report to [observability.LayoutHooks]. The globally registered
// hooks are used unless [WithHooks] overrides them for a call.
//
// [units.SizeToPixels]: github.com/matzehuels/idsheet/pkg/units.SizeToPixels
package layout
