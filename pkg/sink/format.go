package sink

import (
	"strings"

	"github.com/matzehuels/idsheet/pkg/errors"
)

// Format is an output format.
type Format string

const (
	FormatPNG  Format = "png"
	FormatJPEG Format = "jpeg"
	FormatJSON Format = "json"
)

// Formats lists every supported output format.
var Formats = []Format{FormatPNG, FormatJPEG, FormatJSON}

// BaseFilename is the stem of downloaded files.
const BaseFilename = "id-photo-layout"

// ParseFormat resolves a format name. "jpg" is accepted for JPEG.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "png":
		return FormatPNG, nil
	case "jpeg", "jpg":
		return FormatJPEG, nil
	case "json":
		return FormatJSON, nil
	}
	return "", errors.New(errors.ErrCodeInvalidFormat, "unsupported format %q (use png, jpeg or json)", s)
}

// Ext returns the file extension without a dot.
func (f Format) Ext() string {
	if f == FormatJPEG {
		return "jpg"
	}
	return string(f)
}

// ContentType returns the MIME type.
func (f Format) ContentType() string {
	switch f {
	case FormatPNG:
		return "image/png"
	case FormatJPEG:
		return "image/jpeg"
	case FormatJSON:
		return "application/json"
	}
	return "application/octet-stream"
}

// Raster reports whether the format encodes the sheet image.
func (f Format) Raster() bool { return f == FormatPNG || f == FormatJPEG }

// Filename returns the download name for f, e.g. "id-photo-layout.png".
func Filename(f Format) string { return BaseFilename + "." + f.Ext() }
