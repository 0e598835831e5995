// Package crop cuts the unit photo out of an uploaded source image.
//
// A crop region is an [image.Rectangle] in source pixel coordinates. The
// region is locked to the aspect ratio of the target photo size: use
// [DefaultRegion] for the initial box and [FitAspect] when the photo size
// changes. [Crop] cuts the region and resamples it to the exact pixel size
// the layout expects.
package crop

import (
	"image"
	"io"
	"math"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/webp" // register WebP decoder

	"github.com/matzehuels/idsheet/pkg/errors"
)

// AutoCropArea is the share of the largest aspect-locked box the default
// region covers.
const AutoCropArea = 0.8

// Decode reads a source image, applying its EXIF orientation.
// JPEG, PNG, GIF, TIFF, BMP and WebP are accepted.
func Decode(r io.Reader) (image.Image, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode image")
	}
	if img.Bounds().Empty() {
		return nil, errors.New(errors.ErrCodeMissingUnitImage, "image has no pixels")
	}
	return img, nil
}

// Open decodes the image file at path.
func Open(path string) (image.Image, error) {
	if err := errors.ValidatePath(path); err != nil {
		return nil, err
	}
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
	}
	if img.Bounds().Empty() {
		return nil, errors.New(errors.ErrCodeMissingUnitImage, "image %s has no pixels", path)
	}
	return img, nil
}

// Aspect returns width/height, or an INVALID_MEASUREMENT error when either
// side is not positive.
func Aspect(width, height int) (float64, error) {
	if width <= 0 || height <= 0 {
		return 0, errors.New(errors.ErrCodeInvalidMeasurement, "aspect needs positive sides, got %dx%d", width, height)
	}
	return float64(width) / float64(height), nil
}

// Crop cuts region out of src and resizes it to exactly width x height with a
// Lanczos filter. The region is clipped to the source bounds first.
func Crop(src image.Image, region image.Rectangle, width, height int) (image.Image, error) {
	if src == nil || src.Bounds().Empty() {
		return nil, errors.New(errors.ErrCodeMissingUnitImage, "no source image to crop")
	}
	if width <= 0 || height <= 0 {
		return nil, errors.New(errors.ErrCodeInvalidMeasurement, "crop output must be positive, got %dx%d", width, height)
	}
	r := region.Canon().Intersect(src.Bounds())
	if r.Empty() {
		return nil, errors.New(errors.ErrCodeInvalidRegion, "region %v lies outside image %v", region, src.Bounds())
	}
	return imaging.Resize(imaging.Crop(src, r), width, height, imaging.Lanczos), nil
}

// DefaultRegion returns the initial crop box for bounds: centered, with the
// given aspect, covering AutoCropArea of the largest box of that aspect.
func DefaultRegion(bounds image.Rectangle, aspect float64) image.Rectangle {
	w, h := largest(bounds.Dx(), bounds.Dy(), aspect)
	return centered(bounds, center(bounds), round(w*AutoCropArea), round(h*AutoCropArea))
}

// FitAspect re-fits region to a new aspect ratio around its center, keeping
// roughly the same area and staying inside bounds.
func FitAspect(region, bounds image.Rectangle, aspect float64) image.Rectangle {
	region = region.Canon().Intersect(bounds)
	if region.Empty() || !(aspect > 0) || math.IsInf(aspect, 0) {
		return DefaultRegion(bounds, aspect)
	}

	area := float64(region.Dx() * region.Dy())
	w := math.Sqrt(area * aspect)
	h := w / aspect

	// Shrink uniformly until the box fits the image.
	if maxW, maxH := largest(bounds.Dx(), bounds.Dy(), aspect); w > maxW {
		w, h = maxW, maxH
	}
	return centered(bounds, center(region), round(w), round(h))
}

// Validate checks that region is a non-empty box inside bounds.
func Validate(region, bounds image.Rectangle) error {
	if region.Empty() {
		return errors.New(errors.ErrCodeInvalidRegion, "region %v is empty", region)
	}
	if !region.In(bounds) {
		return errors.New(errors.ErrCodeInvalidRegion, "region %v exceeds image %v", region, bounds)
	}
	return nil
}

// largest returns the biggest w x h box of the given aspect inside a
// width x height area.
func largest(width, height int, aspect float64) (float64, float64) {
	fw, fh := float64(width), float64(height)
	if !(aspect > 0) || math.IsInf(aspect, 0) {
		return fw, fh
	}
	if fw/fh > aspect {
		return fh * aspect, fh
	}
	return fw, fw / aspect
}

func center(r image.Rectangle) image.Point {
	return image.Pt(r.Min.X+r.Dx()/2, r.Min.Y+r.Dy()/2)
}

// centered places a w x h box around c and shifts it back inside bounds.
func centered(bounds image.Rectangle, c image.Point, w, h int) image.Rectangle {
	w = max(1, min(w, bounds.Dx()))
	h = max(1, min(h, bounds.Dy()))
	x := min(max(c.X-w/2, bounds.Min.X), bounds.Max.X-w)
	y := min(max(c.Y-h/2, bounds.Min.Y), bounds.Max.Y-h)
	return image.Rect(x, y, x+w, y+h)
}

func round(f float64) int { return int(math.Round(f)) }
