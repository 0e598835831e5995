package units

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/matzehuels/idsheet/pkg/errors"
)

// Unit is a physical length unit.
type Unit string

// Supported units.
const (
	Centimeter Unit = "cm"
	Millimeter Unit = "mm"
	Inch       Unit = "in"
)

// Conversion factors to inches.
const (
	CentimetersPerInch = 2.54
	MillimetersPerInch = 25.4
)

// Resolution is a print resolution in dots per inch.
type Resolution int

// Valid reports whether r is a usable resolution.
func (r Resolution) Valid() bool { return r > 0 }

// Length is a physical measurement.
type Length struct {
	Value float64
	Unit  Unit
}

// CM returns a length in centimeters.
func CM(v float64) Length { return Length{Value: v, Unit: Centimeter} }

// MM returns a length in millimeters.
func MM(v float64) Length { return Length{Value: v, Unit: Millimeter} }

// IN returns a length in inches.
func IN(v float64) Length { return Length{Value: v, Unit: Inch} }

// Inches returns the length expressed in inches.
func (l Length) Inches() (float64, error) {
	switch l.Unit {
	case Centimeter:
		return l.Value / CentimetersPerInch, nil
	case Millimeter:
		return l.Value / MillimetersPerInch, nil
	case Inch:
		return l.Value, nil
	default:
		return 0, errors.New(errors.ErrCodeInvalidMeasurement, "unknown unit %q", l.Unit)
	}
}

// IsZero reports whether the length has no value.
func (l Length) IsZero() bool { return l.Value == 0 }

// String formats the length as e.g. "2.5cm".
func (l Length) String() string {
	return strconv.FormatFloat(l.Value, 'f', -1, 64) + string(l.Unit)
}

// MarshalText implements encoding.TextMarshaler so lengths read as "3mm" in
// JSON and TOML.
func (l Length) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Length) UnmarshalText(text []byte) error {
	parsed, err := ParseLength(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Validate checks that the length is finite, non-negative and has a known unit.
func (l Length) Validate() error {
	if math.IsNaN(l.Value) || math.IsInf(l.Value, 0) {
		return errors.New(errors.ErrCodeInvalidMeasurement, "length %v is not a finite number", l.Value)
	}
	if l.Value < 0 {
		return errors.New(errors.ErrCodeInvalidMeasurement, "length cannot be negative: %s", l)
	}
	if _, err := l.Inches(); err != nil {
		return err
	}
	return nil
}

// ToPixels converts a length to a pixel count at resolution r:
// round(inches * r), rounding half away from zero.
func ToPixels(l Length, r Resolution) (int, error) {
	if !r.Valid() {
		return 0, errors.New(errors.ErrCodeInvalidMeasurement, "resolution must be a positive integer, got %d", r)
	}
	if err := l.Validate(); err != nil {
		return 0, err
	}
	in, _ := l.Inches()
	px := math.Round(in * float64(r))
	if px > math.MaxInt32 {
		return 0, errors.New(errors.ErrCodeInvalidMeasurement, "%s at %d DPI is too large", l, r)
	}
	return int(px), nil
}

// ParseUnit parses a unit suffix. "inch", "inches" and `"` are accepted for inches.
func ParseUnit(s string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cm":
		return Centimeter, nil
	case "mm":
		return Millimeter, nil
	case "in", "inch", "inches", `"`:
		return Inch, nil
	default:
		return "", errors.New(errors.ErrCodeInvalidMeasurement, "unknown unit %q (must be cm, mm or in)", s)
	}
}

// ParseLength parses strings like "3mm", "2.5 cm" or "0.125in".
func ParseLength(s string) (Length, error) {
	s = strings.TrimSpace(s)
	num, suffix := splitNumber(s)
	if num == "" {
		return Length{}, errors.New(errors.ErrCodeInvalidMeasurement, "invalid length %q", s)
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return Length{}, errors.Wrap(errors.ErrCodeInvalidMeasurement, err, "invalid length %q", s)
	}
	unit, err := ParseUnit(suffix)
	if err != nil {
		return Length{}, err
	}
	l := Length{Value: v, Unit: unit}
	if err := l.Validate(); err != nil {
		return Length{}, err
	}
	return l, nil
}

// splitNumber splits a leading decimal number from the rest of s.
func splitNumber(s string) (string, string) {
	i := 0
	for i < len(s) && (s[i] >= '0' && s[i] <= '9' || s[i] == '.' || (i == 0 && (s[i] == '-' || s[i] == '+'))) {
		i++
	}
	return s[:i], s[i:]
}

// Size is a rectangular physical size, e.g. a photo or a sheet of paper.
type Size struct {
	Width  Length `json:"width" toml:"width"`
	Height Length `json:"height" toml:"height"`
}

// String formats the size as e.g. "2.5cm x 3.5cm".
func (s Size) String() string {
	return fmt.Sprintf("%s x %s", s.Width, s.Height)
}

// IsZero reports whether neither side is set.
func (s Size) IsZero() bool { return s.Width.IsZero() && s.Height.IsZero() }

// ParseSize parses "WxH<unit>" (e.g. "2.5x3.5cm", "4x6in") or a size with a
// unit on each side ("100mmx6in").
func ParseSize(s string) (Size, error) {
	raw := strings.ToLower(strings.TrimSpace(s))
	parts := strings.SplitN(raw, "x", 2)
	if len(parts) != 2 {
		return Size{}, errors.New(errors.ErrCodeInvalidMeasurement, "invalid size %q (want WxH<unit>, e.g. 2.5x3.5cm)", s)
	}
	hNum, hUnit := splitNumber(strings.TrimSpace(parts[1]))
	h, err := ParseLength(hNum + hUnit)
	if err != nil {
		return Size{}, err
	}
	wStr := strings.TrimSpace(parts[0])
	if wNum, wUnit := splitNumber(wStr); strings.TrimSpace(wUnit) == "" {
		wStr = wNum + string(h.Unit)
	}
	w, err := ParseLength(wStr)
	if err != nil {
		return Size{}, err
	}
	return Size{Width: w, Height: h}, nil
}

// SizeToPixels converts both sides of a size at resolution r.
func SizeToPixels(s Size, r Resolution) (width, height int, err error) {
	if width, err = ToPixels(s.Width, r); err != nil {
		return 0, 0, fmt.Errorf("width: %w", err)
	}
	if height, err = ToPixels(s.Height, r); err != nil {
		return 0, 0, fmt.Errorf("height: %w", err)
	}
	return width, height, nil
}
