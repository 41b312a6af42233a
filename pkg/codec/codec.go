// Package codec adapts external bitstream decoders behind one span-callback
// interface the tile engine can drive.
package codec

import (
	"image"
	"image/color"
)

// Config holds header-probed image properties.
type Config struct {
	Width  int
	Height int
}

// SpanFunc receives decoded pixels in row-major order: four bytes per pixel
// starting at column x of row y. The slice is only valid during the call.
type SpanFunc func(x, y int, rgba []byte) error

// Codec decodes one bitstream format. Decode always parses the entire
// bitstream from the start; callers wanting a sub-region filter spans in
// their sink.
type Codec interface {
	// Name returns the codec identifier ("jpeg", "png").
	Name() string
	// Sniff reports whether data begins with this codec's signature.
	Sniff(data []byte) bool
	// ProbeConfig parses dimensions from the headers without a full decode.
	ProbeConfig(data []byte) (Config, error)
	// Decode parses the whole bitstream and emits spans to sink. A sink
	// error aborts the decode and is returned as-is.
	Decode(data []byte, sink SpanFunc) error
}

var (
	codecs       []Codec
	codecsByName = map[string]Codec{}
)

// Register makes a codec discoverable by name and signature.
func Register(c Codec) {
	codecs = append(codecs, c)
	codecsByName[c.Name()] = c
}

// ByName returns a registered codec, nil when unknown.
func ByName(name string) Codec {
	return codecsByName[name]
}

// Detect returns the registered codec whose signature matches data, or nil
// when none claims it. Callers treat nil as raw pixel data.
func Detect(data []byte) Codec {
	for _, c := range codecs {
		if c.Sniff(data) {
			return c
		}
	}
	return nil
}

// Predefined codecs.
var (
	JPEG Codec = jpegCodec{}
	PNG  Codec = pngCodec{}
)

func init() {
	Register(JPEG)
	Register(PNG)
}

// emitSpans walks img top-down and feeds sink one row span at a time.
func emitSpans(img image.Image, sink SpanFunc) error {
	b := img.Bounds()
	switch im := img.(type) {
	case *image.RGBA:
		for y := 0; y < b.Dy(); y++ {
			off := im.PixOffset(b.Min.X, b.Min.Y+y)
			if err := sink(0, y, im.Pix[off:off+b.Dx()*4]); err != nil {
				return err
			}
		}
	case *image.NRGBA:
		for y := 0; y < b.Dy(); y++ {
			off := im.PixOffset(b.Min.X, b.Min.Y+y)
			if err := sink(0, y, im.Pix[off:off+b.Dx()*4]); err != nil {
				return err
			}
		}
	default:
		row := make([]byte, b.Dx()*4)
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
				row[x*4+0] = c.R
				row[x*4+1] = c.G
				row[x*4+2] = c.B
				row[x*4+3] = c.A
			}
			if err := sink(0, y, row); err != nil {
				return err
			}
		}
	}
	return nil
}
