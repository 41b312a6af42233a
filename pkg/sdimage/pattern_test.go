package sdimage

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpfielding/sdimage.go/pkg/pixel"
)

func patternBuffer(t *testing.T, family string, source []byte) *pixel.Buffer {
	t.Helper()
	buf, err := pixel.NewBuffer(48, 32, pixel.RGBA, pixel.LittleEndian)
	require.NoError(t, err)
	synthesize(buf, family, source)
	return buf
}

func TestPatternDeterministic(t *testing.T) {
	src := []byte("the same bytes every time")
	for _, family := range []string{"jpeg", "png", "raw"} {
		a := patternBuffer(t, family, src)
		b := patternBuffer(t, family, src)
		assert.True(t, bytes.Equal(a.Bytes(), b.Bytes()), family)
	}
}

func TestPatternVariesWithSource(t *testing.T) {
	a := patternBuffer(t, "jpeg", []byte("first source"))
	b := patternBuffer(t, "jpeg", []byte("a rather different second source"))
	assert.False(t, bytes.Equal(a.Bytes(), b.Bytes()))
}

func TestPatternShapes(t *testing.T) {
	src := []byte("shape probe")

	// png: red border
	p := patternBuffer(t, "png", src)
	r, g, b, a := p.PixelAt(0, 0)
	assert.EqualValues(t, 0xff, r)
	assert.Zero(t, g)
	assert.Zero(t, b)
	assert.EqualValues(t, 0xff, a)
	r, _, _, _ = p.PixelAt(47, 31)
	assert.EqualValues(t, 0xff, r, "border wraps all four edges")

	// jpeg: neighboring 8px blocks differ by the brightening step
	j := patternBuffer(t, "jpeg", src)
	r0, _, _, _ := j.PixelAt(0, 0)
	r1, _, _, _ := j.PixelAt(8, 0)
	assert.NotEqual(t, r0, r1)

	// plain gradient is monotone along x until the ramp wraps
	g0 := patternBuffer(t, "raw", src)
	ra, _, _, _ := g0.PixelAt(0, 16)
	rb, _, _, _ := g0.PixelAt(47, 16)
	assert.NotEqual(t, ra, rb)
}

func TestPatternFillsEveryPixel(t *testing.T) {
	// alpha is 0xff everywhere, so no pixel was left at the zero value
	p := patternBuffer(t, "png", []byte("x"))
	for y := 0; y < p.Height(); y++ {
		for x := 0; x < p.Width(); x++ {
			_, _, _, a := p.PixelAt(x, y)
			require.EqualValues(t, 0xff, a, "unfilled pixel at %d,%d", x, y)
		}
	}
}
