package codec

import (
	"bytes"
	"fmt"

	"github.com/gen2brain/jpegn"
)

// jpegMagic is the SOI marker prefix shared by all JPEG files.
var jpegMagic = []byte{0xff, 0xd8, 0xff}

// jpegCodec decodes baseline JPEG via github.com/gen2brain/jpegn. The
// library buffers the frame internally per call; the tile engine's budget
// governs its own staging, not codec internals.
type jpegCodec struct{}

func (jpegCodec) Name() string { return "jpeg" }

func (jpegCodec) Sniff(data []byte) bool {
	return bytes.HasPrefix(data, jpegMagic)
}

func (jpegCodec) ProbeConfig(data []byte) (Config, error) {
	cfg, err := jpegn.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Config{}, fmt.Errorf("jpeg: probe: %w", err)
	}
	return Config{Width: cfg.Width, Height: cfg.Height}, nil
}

func (jpegCodec) Decode(data []byte, sink SpanFunc) error {
	img, err := jpegn.Decode(bytes.NewReader(data), &jpegn.Options{ToRGBA: true})
	if err != nil {
		return fmt.Errorf("jpeg: decode: %w", err)
	}
	return emitSpans(img, sink)
}
