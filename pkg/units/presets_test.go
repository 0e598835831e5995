package units

import (
	"testing"

	"github.com/matzehuels/idsheet/pkg/errors"
)

func TestPagePreset(t *testing.T) {
	tests := []struct {
		name string
		want Size
	}{
		{"4x6", Size{IN(4), IN(6)}},
		{"5x7", Size{IN(5), IN(7)}},
		{"A4", Size{IN(8.27), IN(11.69)}},
		{"a4", Size{IN(8.27), IN(11.69)}},
		{"10x15cm", Size{CM(10), CM(15)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := PagePreset(tt.name)
			if err != nil {
				t.Fatalf("PagePreset(%q) error: %v", tt.name, err)
			}
			if got != tt.want {
				t.Errorf("PagePreset(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}

func TestPagePresetUnknown(t *testing.T) {
	_, err := PagePreset("letterish")
	if err == nil {
		t.Fatal("expected error for unknown preset")
	}
	if !errors.Is(err, errors.ErrCodeInvalidPreset) {
		t.Errorf("code = %v, want %v", errors.GetCode(err), errors.ErrCodeInvalidPreset)
	}

	if _, err := PagePreset(""); err == nil {
		t.Error("empty preset name should fail")
	}
}

func TestPhotoPreset(t *testing.T) {
	got, err := PhotoPreset("3.5x4.5")
	if err != nil {
		t.Fatalf("PhotoPreset error: %v", err)
	}
	if got != (Size{CM(3.5), CM(4.5)}) {
		t.Errorf("PhotoPreset(3.5x4.5) = %v", got)
	}

	got, err = PhotoPreset("2x2in")
	if err != nil {
		t.Fatalf("PhotoPreset error: %v", err)
	}
	if got != (Size{IN(2), IN(2)}) {
		t.Errorf("PhotoPreset(2x2in) = %v", got)
	}
}

func TestPresetsAdd(t *testing.T) {
	p := DefaultPagePresets()
	if err := p.Add("10x15", Size{CM(10), CM(15)}); err != nil {
		t.Fatalf("Add error: %v", err)
	}
	got, err := p.Resolve("10x15")
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if got != (Size{CM(10), CM(15)}) {
		t.Errorf("Resolve(10x15) = %v", got)
	}

	// Adding to a copy must not leak into the built-ins.
	if _, ok := Presets(pagePresets).Lookup("10x15"); ok {
		t.Error("DefaultPagePresets should return a copy")
	}

	if err := p.Add("bad name", Size{CM(1), CM(1)}); err == nil {
		t.Error("invalid preset name should fail")
	}
	if err := p.Add("neg", Size{CM(-1), CM(1)}); err == nil {
		t.Error("negative preset size should fail")
	}
}

func TestPresetsNamesSorted(t *testing.T) {
	names := DefaultPagePresets().Names()
	want := []string{"4x6", "5x7", "A4"}
	if len(names) != len(want) {
		t.Fatalf("Names() = %v, want %v", names, want)
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Names()[%d] = %q, want %q", i, names[i], want[i])
		}
	}
}
