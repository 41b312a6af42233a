package codec

import (
	"bytes"
	"fmt"
	"image/png"
)

// pngMagic is the 8-byte PNG signature.
var pngMagic = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a}

// pngCodec decodes PNG via the standard library.
type pngCodec struct{}

func (pngCodec) Name() string { return "png" }

func (pngCodec) Sniff(data []byte) bool {
	return bytes.HasPrefix(data, pngMagic)
}

func (pngCodec) ProbeConfig(data []byte) (Config, error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Config{}, fmt.Errorf("png: probe: %w", err)
	}
	return Config{Width: cfg.Width, Height: cfg.Height}, nil
}

func (pngCodec) Decode(data []byte, sink SpanFunc) error {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("png: decode: %w", err)
	}
	return emitSpans(img, sink)
}
