package sdimage

import (
	"fmt"
	"strings"

	"golang.org/x/image/draw"

	"github.com/jpfielding/sdimage.go/pkg/pixel"
)

// DefaultMaxFileSize bounds how many bytes one load may read from storage.
const DefaultMaxFileSize = 10 << 20

// warnFileSize flags sources that will be slow to pull off SD-class storage.
const warnFileSize = 5 << 20

// maxDimension rejects absurd header probes before a buffer is sized from them.
const maxDimension = 4096

// SourceFormat names the bitstream family of a source. Auto sniffs it from
// signature bytes.
type SourceFormat string

const (
	FormatAuto SourceFormat = "auto"
	FormatJPEG SourceFormat = "jpeg"
	FormatPNG  SourceFormat = "png"
	FormatRaw  SourceFormat = "raw"
)

// ParseSourceFormat reads a source format from config text. Empty means Auto.
func ParseSourceFormat(s string) (SourceFormat, error) {
	switch f := SourceFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatAuto:
		return FormatAuto, nil
	case FormatJPEG, FormatPNG, FormatRaw:
		return f, nil
	default:
		return "", fmt.Errorf("unknown source format %q", s)
	}
}

// Valid reports whether f is a known source format.
func (f SourceFormat) Valid() bool {
	switch f {
	case FormatAuto, FormatJPEG, FormatPNG, FormatRaw:
		return true
	}
	return false
}

// Filter selects the resize kernel.
type Filter string

const (
	FilterNearest  Filter = "nearest"
	FilterBilinear Filter = "bilinear"
)

// ParseFilter reads a filter from config text. Empty means nearest.
func ParseFilter(s string) (Filter, error) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FilterNearest:
		return FilterNearest, nil
	case FilterBilinear:
		return f, nil
	default:
		return "", fmt.Errorf("unknown filter %q", s)
	}
}

// Valid reports whether f is a known filter.
func (f Filter) Valid() bool {
	return f == FilterNearest || f == FilterBilinear
}

// Interpolator returns the x/image kernel backing this filter.
func (f Filter) Interpolator() draw.Interpolator {
	if f == FilterBilinear {
		return draw.BiLinear
	}
	return draw.NearestNeighbor
}

// Config describes one image source and the buffer it decodes into. It is
// fixed once a load begins.
type Config struct {
	// Path names the source within the Store.
	Path string

	// Format forces a bitstream family. Auto (the zero value) sniffs
	// signature bytes; a forced family that contradicts the signature fails
	// the load with ErrInvalidFormat.
	Format SourceFormat

	// PixelFormat and ByteOrder shape the destination buffer. They default
	// to RGB565 little-endian, the common display wire format.
	PixelFormat pixel.Format
	ByteOrder   pixel.ByteOrder

	// Width and Height declare source dimensions. Raw sources require them;
	// compressed sources take dimensions from the header probe instead.
	Width, Height int

	// ResizeWidth and ResizeHeight, when both set, scale the decoded image
	// to these output dimensions tile by tile.
	ResizeWidth, ResizeHeight int

	// Filter selects the resize kernel. Defaults to nearest.
	Filter Filter

	// MaxFileSize caps the bytes read per load. Defaults to DefaultMaxFileSize.
	MaxFileSize int64
}

func (c Config) normalized() Config {
	if c.Format == "" {
		c.Format = FormatAuto
	}
	if c.PixelFormat == "" {
		c.PixelFormat = pixel.RGB565
	}
	if c.ByteOrder == "" {
		c.ByteOrder = pixel.LittleEndian
	}
	if c.Filter == "" {
		c.Filter = FilterNearest
	}
	if c.MaxFileSize == 0 {
		c.MaxFileSize = DefaultMaxFileSize
	}
	return c
}

func (c Config) validate() error {
	if !c.Format.Valid() {
		return fmt.Errorf("unknown source format %q", c.Format)
	}
	if !c.PixelFormat.Valid() {
		return fmt.Errorf("unknown pixel format %q", c.PixelFormat)
	}
	if !c.ByteOrder.Valid() {
		return fmt.Errorf("unknown byte order %q", c.ByteOrder)
	}
	if !c.Filter.Valid() {
		return fmt.Errorf("unknown filter %q", c.Filter)
	}
	if c.Width < 0 || c.Height < 0 {
		return fmt.Errorf("negative dimensions %dx%d", c.Width, c.Height)
	}
	if (c.ResizeWidth > 0) != (c.ResizeHeight > 0) {
		return fmt.Errorf("resize requires both dimensions, got %dx%d", c.ResizeWidth, c.ResizeHeight)
	}
	if c.ResizeWidth < 0 || c.ResizeHeight < 0 {
		return fmt.Errorf("negative resize %dx%d", c.ResizeWidth, c.ResizeHeight)
	}
	if c.MaxFileSize < 0 {
		return fmt.Errorf("negative max file size %d", c.MaxFileSize)
	}
	return nil
}

// outputDims maps source dimensions to the final buffer dimensions.
func (c Config) outputDims(srcW, srcH int) (int, int) {
	if c.ResizeWidth > 0 && c.ResizeHeight > 0 {
		return c.ResizeWidth, c.ResizeHeight
	}
	return srcW, srcH
}
