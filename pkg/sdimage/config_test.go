package sdimage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpfielding/sdimage.go/pkg/pixel"
)

func TestParseSourceFormat(t *testing.T) {
	for in, want := range map[string]SourceFormat{
		"":      FormatAuto,
		"auto":  FormatAuto,
		"JPEG":  FormatJPEG,
		" png ": FormatPNG,
		"raw":   FormatRaw,
	} {
		got, err := ParseSourceFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseSourceFormat("gif")
	assert.Error(t, err)
}

func TestParseFilter(t *testing.T) {
	for in, want := range map[string]Filter{
		"":         FilterNearest,
		"nearest":  FilterNearest,
		"Bilinear": FilterBilinear,
	} {
		got, err := ParseFilter(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFilter("lanczos")
	assert.Error(t, err)
}

func TestConfigDefaults(t *testing.T) {
	c := Config{Path: "x.jpg"}.normalized()

	assert.Equal(t, FormatAuto, c.Format)
	assert.Equal(t, pixel.RGB565, c.PixelFormat)
	assert.Equal(t, pixel.LittleEndian, c.ByteOrder)
	assert.Equal(t, FilterNearest, c.Filter)
	assert.EqualValues(t, DefaultMaxFileSize, c.MaxFileSize)
	assert.NoError(t, c.validate())
}

func TestConfigValidate(t *testing.T) {
	base := Config{}.normalized()

	bad := base
	bad.PixelFormat = "cmyk"
	assert.Error(t, bad.validate())

	bad = base
	bad.ByteOrder = "middle"
	assert.Error(t, bad.validate())

	bad = base
	bad.Width = -1
	assert.Error(t, bad.validate())

	bad = base
	bad.ResizeWidth = 64 // height missing
	assert.Error(t, bad.validate())

	bad = base
	bad.MaxFileSize = -1
	assert.Error(t, bad.validate())
}

func TestConfigOutputDims(t *testing.T) {
	c := Config{}
	w, h := c.outputDims(320, 240)
	assert.Equal(t, 320, w)
	assert.Equal(t, 240, h)

	c = Config{ResizeWidth: 64, ResizeHeight: 48}
	w, h = c.outputDims(320, 240)
	assert.Equal(t, 64, w)
	assert.Equal(t, 48, h)
}
