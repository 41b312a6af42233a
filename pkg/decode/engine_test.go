package decode

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpfielding/sdimage.go/pkg/codec"
	"github.com/jpfielding/sdimage.go/pkg/pixel"
)

func quietLog() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

// flakyCodec paints a solid color and fails on demand. The engine re-parses
// once per tile, so call N is tile N.
type flakyCodec struct {
	w, h  int
	color [4]byte
	fail  map[int]bool
	calls int
}

func (c *flakyCodec) Name() string      { return "flaky" }
func (c *flakyCodec) Sniff([]byte) bool { return true }

func (c *flakyCodec) ProbeConfig([]byte) (codec.Config, error) {
	return codec.Config{Width: c.w, Height: c.h}, nil
}

func (c *flakyCodec) Decode(_ []byte, sink codec.SpanFunc) error {
	call := c.calls
	c.calls++
	if c.fail[call] {
		return errors.New("flaky: synthetic parse error")
	}
	row := bytes.Repeat(c.color[:], c.w)
	for y := 0; y < c.h; y++ {
		if err := sink(0, y, row); err != nil {
			return err
		}
	}
	return nil
}

// ===== Full decode =====

// TestDecodeIntoExact pushes a real PNG through a six-tile grid and expects
// the assembled output to match the source pixel for pixel.
func TestDecodeIntoExact(t *testing.T) {
	const w, h = 20, 14
	src := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			src.SetNRGBA(x, y, color.NRGBA{
				R: uint8(x * 12), G: uint8(y * 17), B: uint8((x + y) * 7), A: 0xff,
			})
		}
	}
	data := encodePNG(t, src)

	dst, err := pixel.NewBuffer(w, h, pixel.RGB888, pixel.LittleEndian)
	require.NoError(t, err)

	// 9000 bytes free fits an 8px working set (8292 with margin) but not 16px
	e := &Engine{Budget: FixedBudget{Free: 9000, Margin: 100}, Log: quietLog()}
	st, err := e.DecodeInto(context.Background(), dst, codec.PNG, data, codec.Config{Width: w, Height: h})
	require.NoError(t, err)

	assert.Equal(t, 8, st.Edge)
	assert.Equal(t, 6, st.Tiles)
	assert.Zero(t, st.Failed)
	assert.Zero(t, st.Rejected)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			want := src.NRGBAAt(x, y)
			r, g, b, a := dst.PixelAt(x, y)
			require.Equal(t, want.R, r, "red at %d,%d", x, y)
			require.Equal(t, want.G, g, "green at %d,%d", x, y)
			require.Equal(t, want.B, b, "blue at %d,%d", x, y)
			require.EqualValues(t, 0xff, a)
		}
	}
}

// ===== Tile failure tolerance =====

func TestDecodeIntoSkipsFailedTile(t *testing.T) {
	const w, h = 20, 14
	fc := &flakyCodec{w: w, h: h, color: [4]byte{0xc8, 0x64, 0x32, 0xff}, fail: map[int]bool{2: true}}

	dst, err := pixel.NewBuffer(w, h, pixel.RGBA, pixel.LittleEndian)
	require.NoError(t, err)

	e := &Engine{Budget: FixedBudget{Free: 9000, Margin: 100}, Log: quietLog()}
	st, err := e.DecodeInto(context.Background(), dst, fc, nil, codec.Config{Width: w, Height: h})
	require.NoError(t, err, "5 of 6 tiles is above the success threshold")
	assert.Equal(t, 1, st.Failed)

	// tile 2 covers x 16..19, y 0..7 and must stay untouched
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, b, a := dst.PixelAt(x, y)
			if x >= 16 && y < 8 {
				require.Zero(t, r, "failed tile leaked at %d,%d", x, y)
				require.Zero(t, a)
			} else {
				require.EqualValues(t, 0xc8, r, "at %d,%d", x, y)
				require.EqualValues(t, 0x64, g)
				require.EqualValues(t, 0x32, b)
				require.EqualValues(t, 0xff, a)
			}
		}
	}
}

func TestDecodeIntoTooManyFailures(t *testing.T) {
	const w, h = 20, 14
	fc := &flakyCodec{w: w, h: h, color: [4]byte{0xff, 0xff, 0xff, 0xff}, fail: map[int]bool{1: true, 4: true}}

	dst, err := pixel.NewBuffer(w, h, pixel.RGBA, pixel.LittleEndian)
	require.NoError(t, err)

	e := &Engine{Budget: FixedBudget{Free: 9000, Margin: 100}, Log: quietLog()}
	st, err := e.DecodeInto(context.Background(), dst, fc, nil, codec.Config{Width: w, Height: h})
	assert.ErrorIs(t, err, ErrTooManyTileFailures, "4 of 6 tiles is below the threshold")
	assert.Equal(t, 2, st.Failed)
}

// ===== Resize =====

// TestDecodeIntoUpscale checks nearest-neighbor 2x: each source pixel becomes
// an exact 2x2 block.
func TestDecodeIntoUpscale(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	src.SetNRGBA(0, 0, color.NRGBA{R: 0xff, A: 0xff})
	src.SetNRGBA(1, 0, color.NRGBA{G: 0xff, A: 0xff})
	src.SetNRGBA(0, 1, color.NRGBA{B: 0xff, A: 0xff})
	src.SetNRGBA(1, 1, color.NRGBA{R: 0xff, G: 0xff, A: 0xff})
	data := encodePNG(t, src)

	dst, err := pixel.NewBuffer(4, 4, pixel.RGBA, pixel.LittleEndian)
	require.NoError(t, err)

	e := &Engine{Budget: FixedBudget{Free: 64 << 20}, Log: quietLog()}
	st, err := e.DecodeInto(context.Background(), dst, codec.PNG, data, codec.Config{Width: 2, Height: 2})
	require.NoError(t, err)
	assert.Equal(t, 1, st.Tiles)

	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			want := src.NRGBAAt(x/2, y/2)
			r, g, b, a := dst.PixelAt(x, y)
			require.Equal(t, want.R, r, "at %d,%d", x, y)
			require.Equal(t, want.G, g, "at %d,%d", x, y)
			require.Equal(t, want.B, b, "at %d,%d", x, y)
			require.Equal(t, want.A, a, "at %d,%d", x, y)
		}
	}
}

// TestDecodeIntoTiledDownscale scales tile by tile and must leave no seams:
// a solid source fills every destination pixel.
func TestDecodeIntoTiledDownscale(t *testing.T) {
	const w, h = 20, 14
	fc := &flakyCodec{w: w, h: h, color: [4]byte{0x11, 0x22, 0x33, 0xff}}

	dst, err := pixel.NewBuffer(10, 7, pixel.RGBA, pixel.LittleEndian)
	require.NoError(t, err)

	e := &Engine{Budget: FixedBudget{Free: 9000, Margin: 100}, Log: quietLog()}
	st, err := e.DecodeInto(context.Background(), dst, fc, nil, codec.Config{Width: w, Height: h})
	require.NoError(t, err)
	assert.Equal(t, 6, st.Tiles)

	for y := 0; y < 7; y++ {
		for x := 0; x < 10; x++ {
			r, g, b, _ := dst.PixelAt(x, y)
			require.EqualValues(t, 0x11, r, "gap at %d,%d", x, y)
			require.EqualValues(t, 0x22, g)
			require.EqualValues(t, 0x33, b)
		}
	}
}

func TestScaleRectPartition(t *testing.T) {
	const sw, sh, dw, dh = 20, 14, 10, 7

	seen := make([]byte, dw*dh)
	for _, tl := range Grid(sw, sh, 8) {
		dr := scaleRect(tl.Rect(), sw, sh, dw, dh)
		for y := dr.Min.Y; y < dr.Max.Y; y++ {
			for x := dr.Min.X; x < dr.Max.X; x++ {
				seen[y*dw+x]++
			}
		}
	}
	for i, n := range seen {
		require.EqualValues(t, 1, n, "destination pixel %d covered %d times", i, n)
	}
}

// ===== Aborts =====

func TestDecodeIntoCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fc := &flakyCodec{w: 20, h: 14, color: [4]byte{0xff, 0, 0, 0xff}}
	dst, err := pixel.NewBuffer(20, 14, pixel.RGBA, pixel.LittleEndian)
	require.NoError(t, err)

	e := &Engine{Budget: FixedBudget{Free: 9000, Margin: 100}, Log: quietLog()}
	st, err := e.DecodeInto(ctx, dst, fc, nil, codec.Config{Width: 20, Height: 14})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 6, st.Tiles, "grid was planned before the abort")
	assert.Zero(t, fc.calls, "no tile decoded after cancellation")
}

func TestDecodeIntoInsufficientMemory(t *testing.T) {
	fc := &flakyCodec{w: 64, h: 64}
	dst, err := pixel.NewBuffer(64, 64, pixel.RGBA, pixel.LittleEndian)
	require.NoError(t, err)

	e := &Engine{Budget: FixedBudget{Free: 1000}, Log: quietLog()}
	_, err = e.DecodeInto(context.Background(), dst, fc, nil, codec.Config{Width: 64, Height: 64})
	assert.ErrorIs(t, err, ErrInsufficientMemory)
}
