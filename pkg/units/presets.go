package units

import (
	"sort"
	"strings"

	"github.com/matzehuels/idsheet/pkg/errors"
)

// Built-in page presets (print paper sizes).
var pagePresets = map[string]Size{
	"4x6": {Width: IN(4), Height: IN(6)},
	"5x7": {Width: IN(5), Height: IN(7)},
	"A4":  {Width: IN(8.27), Height: IN(11.69)},
}

// Built-in photo presets (common ID photo sizes).
var photoPresets = map[string]Size{
	"2x2in":   {Width: IN(2), Height: IN(2)},     // US passport
	"3.5x4.5": {Width: CM(3.5), Height: CM(4.5)}, // EU / UK passport
	"2.5x3.5": {Width: CM(2.5), Height: CM(3.5)},
	"3x4":     {Width: CM(3), Height: CM(4)},
	"5x5":     {Width: CM(5), Height: CM(5)},
}

// Presets is a set of named sizes. The zero value is empty and usable.
type Presets map[string]Size

// DefaultPagePresets returns a copy of the built-in page presets.
func DefaultPagePresets() Presets { return clonePresets(pagePresets) }

// DefaultPhotoPresets returns a copy of the built-in photo presets.
func DefaultPhotoPresets() Presets { return clonePresets(photoPresets) }

func clonePresets(src map[string]Size) Presets {
	out := make(Presets, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// Add registers a named size, replacing any existing preset with that name.
func (p Presets) Add(name string, size Size) error {
	if err := errors.ValidatePresetName(name); err != nil {
		return err
	}
	if err := size.Width.Validate(); err != nil {
		return err
	}
	if err := size.Height.Validate(); err != nil {
		return err
	}
	p[name] = size
	return nil
}

// Names returns the preset names in sorted order.
func (p Presets) Names() []string {
	names := make([]string, 0, len(p))
	for k := range p {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Lookup finds a preset by name. Matching is case-insensitive so "a4" finds "A4".
func (p Presets) Lookup(name string) (Size, bool) {
	if s, ok := p[name]; ok {
		return s, true
	}
	for k, s := range p {
		if strings.EqualFold(k, name) {
			return s, true
		}
	}
	return Size{}, false
}

// Resolve returns the preset called name, or parses name as a literal size
// ("2.5x3.5cm") when no preset matches.
func (p Presets) Resolve(name string) (Size, error) {
	if name == "" {
		return Size{}, errors.New(errors.ErrCodeInvalidPreset, "size cannot be empty")
	}
	if s, ok := p.Lookup(name); ok {
		return s, nil
	}
	s, err := ParseSize(name)
	if err != nil {
		return Size{}, errors.Wrap(errors.ErrCodeInvalidPreset, err,
			"unknown preset %q (known: %s)", name, strings.Join(p.Names(), ", "))
	}
	return s, nil
}

// PagePreset resolves a built-in page preset or literal page size.
func PagePreset(name string) (Size, error) { return Presets(pagePresets).Resolve(name) }

// PhotoPreset resolves a built-in photo preset or literal photo size.
func PhotoPreset(name string) (Size, error) { return Presets(photoPresets).Resolve(name) }
