package sdimage

import (
	"context"
	"log/slog"

	"golang.org/x/image/draw"

	"github.com/jpfielding/sdimage.go/pkg/codec"
	"github.com/jpfielding/sdimage.go/pkg/pixel"
)

// loadRaw handles headerless sources, where the payload already is pixel
// data in the destination format. Exact-size payloads are adopted without a
// copy; short ones are zero-padded and long ones truncated, both logged
// rather than rejected. No tile planning runs here, so raw sources never
// fall back to a pattern.
func (i *Image) loadRaw(ctx context.Context, log *slog.Logger, data []byte, src codec.Config, outW, outH int) (*pixel.Buffer, error) {
	i.setState(StateDecoding)

	expected := src.Width * src.Height * i.cfg.PixelFormat.BytesPerPixel()
	switch {
	case len(data) < expected:
		log.WarnContext(ctx, "raw payload short, zero padding", "have", len(data), "want", expected)
		padded := make([]byte, expected)
		copy(padded, data)
		data = padded
	case len(data) > expected:
		log.WarnContext(ctx, "raw payload long, truncating", "have", len(data), "want", expected)
		data = data[:expected]
	}

	view, err := pixel.FromRaw(data, src.Width, src.Height, i.cfg.PixelFormat, i.cfg.ByteOrder)
	if err != nil {
		return nil, err
	}
	if outW == src.Width && outH == src.Height {
		return view, nil
	}

	dst, err := pixel.NewBuffer(outW, outH, i.cfg.PixelFormat, i.cfg.ByteOrder)
	if err != nil {
		return nil, err
	}
	i.cfg.Filter.Interpolator().Scale(dst, dst.Bounds(), view, view.Bounds(), draw.Src, nil)
	return dst, nil
}
