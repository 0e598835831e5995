package compose

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/matzehuels/idsheet/pkg/errors"
	"github.com/matzehuels/idsheet/pkg/layout"
)

func solid(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	return img
}

func gradient(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 80, A: 255})
		}
	}
	return img
}

func plan(t *testing.T, photo layout.Dimensions, margin int, page layout.Dimensions) layout.Grid {
	t.Helper()
	g, err := layout.Plan(context.Background(), photo, margin, page)
	if err != nil {
		t.Fatalf("layout.Plan error: %v", err)
	}
	return g
}

var red = color.RGBA{R: 0xff, A: 0xff}

func TestCompositePaintsEveryCell(t *testing.T) {
	g := plan(t, layout.Dimensions{Width: 20, Height: 30}, 5, layout.Dimensions{Width: 100, Height: 120})
	if g.Empty() {
		t.Fatal("expected a non-empty grid")
	}

	sheet, err := Composite(context.Background(), g, solid(7, 9, red), WithInterpolation(Nearest))
	if err != nil {
		t.Fatalf("Composite error: %v", err)
	}

	if got := sheet.Bounds(); got != image.Rect(0, 0, 100, 120) {
		t.Fatalf("Bounds() = %v, want 100x120", got)
	}

	img := sheet.Image()
	for _, p := range g.Placements {
		r := p.Rect(g.Photo)
		for _, pt := range []image.Point{r.Min, {r.Max.X - 1, r.Max.Y - 1}, {r.Min.X + 10, r.Min.Y + 15}} {
			if got := color.RGBAModel.Convert(img.At(pt.X, pt.Y)); got != red {
				t.Fatalf("pixel %v inside cell = %v, want red", pt, got)
			}
		}
	}

	// Corners and gutters stay white.
	for _, pt := range []image.Point{{0, 0}, {99, 119}, {g.StartX + g.Photo.Width, g.StartY}} {
		if got := color.RGBAModel.Convert(img.At(pt.X, pt.Y)); got != Background {
			t.Errorf("pixel %v = %v, want white background", pt, got)
		}
	}

	if sheet.Grid().Capacity() != g.Capacity() {
		t.Errorf("Grid() capacity = %d, want %d", sheet.Grid().Capacity(), g.Capacity())
	}
}

func TestCompositeEmptyGridIsWhite(t *testing.T) {
	g := plan(t, layout.Dimensions{Width: 500, Height: 500}, 0, layout.Dimensions{Width: 40, Height: 60})
	if !g.Empty() {
		t.Fatalf("expected empty grid, got %d placements", g.Capacity())
	}

	sheet, err := Composite(context.Background(), g, solid(5, 5, red))
	if err != nil {
		t.Fatalf("Composite error: %v", err)
	}
	img := sheet.Image().(*image.RGBA)
	if img.Bounds().Dx() != 40 || img.Bounds().Dy() != 60 {
		t.Fatalf("sheet = %v, want 40x60", img.Bounds())
	}
	for i := 0; i < len(img.Pix); i++ {
		if img.Pix[i] != 0xff {
			t.Fatalf("byte %d = %#x, want all-white page", i, img.Pix[i])
		}
	}
}

func TestCompositeMissingUnitImage(t *testing.T) {
	g := plan(t, layout.Dimensions{Width: 20, Height: 30}, 5, layout.Dimensions{Width: 100, Height: 120})

	tests := []struct {
		name string
		unit image.Image
	}{
		{"nil", nil},
		{"zero width", image.NewRGBA(image.Rect(0, 0, 0, 10))},
		{"zero height", image.NewRGBA(image.Rect(0, 0, 10, 0))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sheet, err := Composite(context.Background(), g, tt.unit)
			if sheet != nil {
				t.Error("expected no sheet")
			}
			if !errors.Is(err, errors.ErrCodeMissingUnitImage) {
				t.Errorf("error = %v, want %s", err, errors.ErrCodeMissingUnitImage)
			}
		})
	}
}

func TestCompositeIdempotent(t *testing.T) {
	g := plan(t, layout.Dimensions{Width: 295, Height: 413}, 35, layout.Dimensions{Width: 1200, Height: 1800})
	unit := gradient(600, 840)

	for _, interp := range Interpolations {
		t.Run(string(interp), func(t *testing.T) {
			a, err := Composite(context.Background(), g, unit, WithInterpolation(interp))
			if err != nil {
				t.Fatalf("Composite error: %v", err)
			}
			b, err := Composite(context.Background(), g, unit, WithInterpolation(interp))
			if err != nil {
				t.Fatalf("Composite error: %v", err)
			}
			pa := a.Image().(*image.RGBA).Pix
			pb := b.Image().(*image.RGBA).Pix
			if !bytes.Equal(pa, pb) {
				t.Error("identical inputs produced different sheets")
			}
			if &pa[0] == &pb[0] {
				t.Error("runs must not share a page buffer")
			}
		})
	}
}

func TestCompositeCancelled(t *testing.T) {
	g := plan(t, layout.Dimensions{Width: 20, Height: 30}, 5, layout.Dimensions{Width: 100, Height: 120})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	sheet, err := Composite(ctx, g, solid(5, 5, red))
	if err == nil || sheet != nil {
		t.Fatalf("Composite on cancelled context = (%v, %v), want error and no sheet", sheet, err)
	}
}

func TestParseInterpolation(t *testing.T) {
	tests := []struct {
		in      string
		want    Interpolation
		wantErr bool
	}{
		{"", CatmullRom, false},
		{"nearest", Nearest, false},
		{"BiLinear", BiLinear, false},
		{"catmull-rom", CatmullRom, false},
		{"lanczos", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseInterpolation(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseInterpolation(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseInterpolation(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
