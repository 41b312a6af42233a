package pixel

import (
	"fmt"
	"image"
	"image/color"
)

// Buffer owns the destination bytes of one decoded image: dimensions, target
// format and byte order, and a pixel slice of exactly Width*Height*bpp. It
// implements image.Image and draw.Image so standard tooling can read from and
// scale into it without copies.
type Buffer struct {
	width  int
	height int
	format Format
	order  ByteOrder
	pix    []byte
}

// NewBuffer allocates a zeroed buffer for w x h pixels.
func NewBuffer(w, h int, f Format, o ByteOrder) (*Buffer, error) {
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("pixel: invalid dimensions %dx%d", w, h)
	}
	if !f.Valid() {
		return nil, fmt.Errorf("pixel: unknown format %q", f)
	}
	if !o.Valid() {
		return nil, fmt.Errorf("pixel: unknown byte order %q", o)
	}
	return &Buffer{
		width:  w,
		height: h,
		format: f,
		order:  o,
		pix:    make([]byte, w*h*f.BytesPerPixel()),
	}, nil
}

// FromRaw wraps raw, which must hold exactly w*h*bpp bytes already in the
// target format. The buffer takes ownership of raw.
func FromRaw(raw []byte, w, h int, f Format, o ByteOrder) (*Buffer, error) {
	b, err := NewBuffer(w, h, f, o)
	if err != nil {
		return nil, err
	}
	if len(raw) != len(b.pix) {
		return nil, fmt.Errorf("pixel: raw size %d, want %d", len(raw), len(b.pix))
	}
	b.pix = raw
	return b, nil
}

// Width returns the image width in pixels.
func (b *Buffer) Width() int { return b.width }

// Height returns the image height in pixels.
func (b *Buffer) Height() int { return b.height }

// Format returns the target pixel format.
func (b *Buffer) Format() Format { return b.format }

// Order returns the byte order of multi-byte pixel words.
func (b *Buffer) Order() ByteOrder { return b.order }

// Bytes returns the owned pixel slice.
func (b *Buffer) Bytes() []byte { return b.pix }

// Len returns the pixel slice length, always Width*Height*bpp.
func (b *Buffer) Len() int { return len(b.pix) }

// offset returns the byte offset of (x,y), or -1 out of bounds.
func (b *Buffer) offset(x, y int) int {
	if x < 0 || y < 0 || x >= b.width || y >= b.height {
		return -1
	}
	return (y*b.width + x) * b.format.BytesPerPixel()
}

// PixelAt returns the 8-bit channels at (x,y), zeros out of bounds.
func (b *Buffer) PixelAt(x, y int) (uint8, uint8, uint8, uint8) {
	return At(b.pix, b.offset(x, y), b.format, b.order)
}

// SetPixel writes the 8-bit channels at (x,y); out-of-bounds writes are
// dropped.
func (b *Buffer) SetPixel(x, y int, r, g, bl, a uint8) {
	Put(b.pix, b.offset(x, y), b.format, b.order, r, g, bl, a)
}

// DrawRGBA packs src into the buffer with src's top-left pixel landing at
// r.Min, clipping at the smaller of the two extents. It returns the count of
// writes dropped at the buffer bounds.
func (b *Buffer) DrawRGBA(r image.Rectangle, src *image.RGBA) int {
	sb := src.Bounds()
	w := min(r.Dx(), sb.Dx())
	h := min(r.Dy(), sb.Dy())
	rejected := 0
	for j := 0; j < h; j++ {
		row := src.Pix[src.PixOffset(sb.Min.X, sb.Min.Y+j):]
		for i := 0; i < w; i++ {
			o := i * 4
			ok := Put(b.pix, b.offset(r.Min.X+i, r.Min.Y+j), b.format, b.order,
				row[o], row[o+1], row[o+2], row[o+3])
			if !ok {
				rejected++
			}
		}
	}
	return rejected
}

// ColorModel returns the model quantizing colors the way the buffer stores
// them.
func (b *Buffer) ColorModel() color.Model {
	switch b.format {
	case RGB565:
		return color.ModelFunc(model565)
	case RGB888:
		return color.ModelFunc(model888)
	default:
		return color.RGBAModel
	}
}

// Bounds returns the buffer extent.
func (b *Buffer) Bounds() image.Rectangle {
	return image.Rect(0, 0, b.width, b.height)
}

// At returns the color at (x,y); out of bounds is zero.
func (b *Buffer) At(x, y int) color.Color {
	r, g, bl, a := b.PixelAt(x, y)
	return color.RGBA{R: r, G: g, B: bl, A: a}
}

// Set writes c at (x,y), quantizing to the buffer's format. Out-of-bounds
// writes are dropped.
func (b *Buffer) Set(x, y int, c color.Color) {
	r := color.RGBAModel.Convert(c).(color.RGBA)
	b.SetPixel(x, y, r.R, r.G, r.B, r.A)
}

func model565(c color.Color) color.Color {
	r := color.RGBAModel.Convert(c).(color.RGBA)
	pr, pg, pb := Unpack565(Pack565(r.R, r.G, r.B))
	return color.RGBA{R: pr, G: pg, B: pb, A: 0xff}
}

func model888(c color.Color) color.Color {
	r := color.RGBAModel.Convert(c).(color.RGBA)
	r.A = 0xff
	return r
}
