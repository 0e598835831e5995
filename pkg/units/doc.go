// Package units converts physical print measurements to pixel counts.
//
// A [Length] pairs a value with a [Unit] (centimeters, millimeters or inches).
// Lengths are immutable values and never mix with pixels except through
// [ToPixels], which multiplies the length in inches by a [Resolution] (dots
// per inch) and rounds the result.
//
// # Rounding
//
// Rounding is round-half-away-from-zero ([math.Round]). Since lengths are
// never negative, this means a fractional part of exactly .5 always rounds up.
// The rule is fixed so that a layout computed twice from the same inputs
// yields the same pixel counts.
//
// # Presets
//
// [PagePreset] and [PhotoPreset] resolve common names ("4x6", "A4",
// "3.5x4.5") to a [Size]. Presets are a caller convenience: the layout
// engine itself only ever sees resolved sizes.
//
//	photo, _ := units.ParseSize("2.5x3.5cm")
//	w, h, err := units.SizeToPixels(photo, 300) // 295, 413
package units
