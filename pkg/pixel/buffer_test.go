package pixel

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ===== Construction =====

func TestNewBufferSizing(t *testing.T) {
	b, err := NewBuffer(100, 50, RGB565, LittleEndian)
	require.NoError(t, err)
	assert.Equal(t, 100*50*2, b.Len())
	assert.Equal(t, 100, b.Width())
	assert.Equal(t, 50, b.Height())

	_, err = NewBuffer(0, 50, RGB565, LittleEndian)
	assert.Error(t, err)
	_, err = NewBuffer(10, 10, Format("nope"), LittleEndian)
	assert.Error(t, err)
	_, err = NewBuffer(10, 10, RGBA, ByteOrder("middle"))
	assert.Error(t, err)
}

func TestFromRaw(t *testing.T) {
	raw := make([]byte, 4*2*3)
	raw[0] = 0x7f
	b, err := FromRaw(raw, 4, 2, RGB888, LittleEndian)
	require.NoError(t, err)
	assert.Equal(t, raw, b.Bytes(), "wraps without copying")

	_, err = FromRaw(raw[:5], 4, 2, RGB888, LittleEndian)
	assert.Error(t, err, "short raw data must be rejected here")
}

// ===== Pixel access =====

func TestSetPixelBounds(t *testing.T) {
	b, err := NewBuffer(4, 4, RGBA, LittleEndian)
	require.NoError(t, err)

	b.SetPixel(1, 2, 10, 20, 30, 40)
	r, g, bl, a := b.PixelAt(1, 2)
	assert.Equal(t, [4]uint8{10, 20, 30, 40}, [4]uint8{r, g, bl, a})

	// out-of-bounds writes are dropped, reads are zero
	b.SetPixel(4, 0, 9, 9, 9, 9)
	b.SetPixel(-1, 0, 9, 9, 9, 9)
	r, g, bl, a = b.PixelAt(4, 0)
	assert.Equal(t, [4]uint8{}, [4]uint8{r, g, bl, a})
	r, g, bl, a = b.PixelAt(0, -1)
	assert.Equal(t, [4]uint8{}, [4]uint8{r, g, bl, a})
}

func TestPixelAt565Endianness(t *testing.T) {
	b, err := NewBuffer(2, 1, RGB565, BigEndian)
	require.NoError(t, err)
	b.SetPixel(0, 0, 0xff, 0x00, 0x00, 0xff)

	// stored high byte first
	assert.Equal(t, []byte{0xf8, 0x00, 0x00, 0x00}, b.Bytes())
	r, _, _, _ := b.PixelAt(0, 0)
	assert.Equal(t, uint8(0xff), r)
}

func TestDrawRGBA(t *testing.T) {
	b, err := NewBuffer(4, 4, RGB888, LittleEndian)
	require.NoError(t, err)

	src := image.NewRGBA(image.Rect(0, 0, 2, 2))
	src.SetRGBA(0, 0, color.RGBA{1, 2, 3, 255})
	src.SetRGBA(1, 0, color.RGBA{4, 5, 6, 255})
	src.SetRGBA(0, 1, color.RGBA{7, 8, 9, 255})
	src.SetRGBA(1, 1, color.RGBA{10, 11, 12, 255})

	rejected := b.DrawRGBA(image.Rect(2, 2, 4, 4), src)
	assert.Zero(t, rejected)

	r, g, bl, _ := b.PixelAt(2, 2)
	assert.Equal(t, [3]uint8{1, 2, 3}, [3]uint8{r, g, bl})
	r, g, bl, _ = b.PixelAt(3, 3)
	assert.Equal(t, [3]uint8{10, 11, 12}, [3]uint8{r, g, bl})

	// landing partially outside counts rejects instead of failing
	rejected = b.DrawRGBA(image.Rect(3, 3, 5, 5), src)
	assert.Equal(t, 3, rejected)
}

// ===== image.Image interop =====

// TestBufferAsImage demonstrates that a Buffer can be handed to standard
// image tooling directly: encode to PNG, decode, and read back the same
// quantized channels.
func TestBufferAsImage(t *testing.T) {
	b, err := NewBuffer(3, 2, RGB565, LittleEndian)
	require.NoError(t, err)
	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			b.SetPixel(x, y, uint8(40*x), uint8(90*y), 200, 0xff)
		}
	}

	var out bytes.Buffer
	require.NoError(t, png.Encode(&out, b))

	decoded, err := png.Decode(&out)
	require.NoError(t, err)
	require.Equal(t, image.Rect(0, 0, 3, 2), decoded.Bounds())

	for y := 0; y < 2; y++ {
		for x := 0; x < 3; x++ {
			wr, wg, wb, _ := b.PixelAt(x, y)
			gr, gg, gb, _ := decoded.At(x, y).RGBA()
			assert.Equal(t, wr, uint8(gr>>8))
			assert.Equal(t, wg, uint8(gg>>8))
			assert.Equal(t, wb, uint8(gb>>8))
		}
	}
}

func TestBufferSetQuantizes(t *testing.T) {
	b, err := NewBuffer(1, 1, RGB565, LittleEndian)
	require.NoError(t, err)

	b.Set(0, 0, color.RGBA{R: 201, G: 101, B: 51, A: 255})
	r, g, bl, _ := b.PixelAt(0, 0)
	er, eg, eb := Unpack565(Pack565(201, 101, 51))
	assert.Equal(t, [3]uint8{er, eg, eb}, [3]uint8{r, g, bl})

	c := b.ColorModel().Convert(color.RGBA{R: 201, G: 101, B: 51, A: 255}).(color.RGBA)
	assert.Equal(t, er, c.R)
}
