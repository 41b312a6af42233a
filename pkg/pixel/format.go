// Package pixel defines the target pixel formats and the bounds-checked
// buffer decoded images are written into.
package pixel

import (
	"fmt"
	"strings"
)

// Format is a target pixel format.
type Format string

// Supported target formats.
const (
	RGB565 Format = "rgb565"
	RGB888 Format = "rgb888"
	RGBA   Format = "rgba"
)

// ParseFormat converts a config string to a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case RGB565, RGB888, RGBA:
		return f, nil
	default:
		return "", fmt.Errorf("pixel: unknown format %q", s)
	}
}

// Valid reports whether f is a supported format.
func (f Format) Valid() bool {
	return f == RGB565 || f == RGB888 || f == RGBA
}

// BytesPerPixel returns the storage cost of one pixel, 0 for unknown formats.
func (f Format) BytesPerPixel() int {
	switch f {
	case RGB565:
		return 2
	case RGB888:
		return 3
	case RGBA:
		return 4
	default:
		return 0
	}
}

// HasAlpha reports whether the format keeps an alpha channel.
func (f Format) HasAlpha() bool { return f == RGBA }

// Name returns a human-readable name for the format.
func (f Format) Name() string {
	switch f {
	case RGB565:
		return "RGB565"
	case RGB888:
		return "RGB888"
	case RGBA:
		return "RGBA"
	default:
		return string(f)
	}
}

// ByteOrder is the byte order of multi-byte pixel words. Only RGB565 words
// are order-sensitive; 8-bit-per-channel formats ignore it.
type ByteOrder string

// Supported byte orders.
const (
	LittleEndian ByteOrder = "little"
	BigEndian    ByteOrder = "big"
)

// ParseByteOrder converts a config string to a ByteOrder.
func ParseByteOrder(s string) (ByteOrder, error) {
	switch o := ByteOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case LittleEndian, BigEndian:
		return o, nil
	default:
		return "", fmt.Errorf("pixel: unknown byte order %q", s)
	}
}

// Valid reports whether o is a supported byte order.
func (o ByteOrder) Valid() bool {
	return o == LittleEndian || o == BigEndian
}

// Name returns a human-readable name for the byte order.
func (o ByteOrder) Name() string {
	switch o {
	case LittleEndian:
		return "Little Endian"
	case BigEndian:
		return "Big Endian"
	default:
		return string(o)
	}
}
