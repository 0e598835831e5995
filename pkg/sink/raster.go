package sink

import (
	"bytes"

	"github.com/disintegration/imaging"

	"github.com/matzehuels/idsheet/pkg/compose"
	"github.com/matzehuels/idsheet/pkg/errors"
)

// DefaultQuality is the JPEG quality used when none is set.
const DefaultQuality = 90

// JPEGOption configures JPEG rendering.
type JPEGOption func(*jpegRenderer)

type jpegRenderer struct {
	quality int
}

// WithQuality sets the JPEG quality (1-100).
func WithQuality(q int) JPEGOption {
	return func(r *jpegRenderer) { r.quality = q }
}

// RenderPNG encodes the sheet as PNG.
func RenderPNG(s *compose.Sheet) ([]byte, error) {
	if s == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no sheet to render")
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, s.Image(), imaging.PNG); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode png")
	}
	return buf.Bytes(), nil
}

// RenderJPEG encodes the sheet as JPEG.
func RenderJPEG(s *compose.Sheet, opts ...JPEGOption) ([]byte, error) {
	if s == nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "no sheet to render")
	}
	r := jpegRenderer{quality: DefaultQuality}
	for _, opt := range opts {
		opt(&r)
	}
	if r.quality < 1 || r.quality > 100 {
		return nil, errors.New(errors.ErrCodeInvalidInput, "jpeg quality must be 1-100, got %d", r.quality)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, s.Image(), imaging.JPEG, imaging.JPEGQuality(r.quality)); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "encode jpeg")
	}
	return buf.Bytes(), nil
}
