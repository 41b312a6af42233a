package sdimage

import (
	"crypto/md5"

	"github.com/jpfielding/sdimage.go/pkg/pixel"
)

// synthesize fills buf with a pattern that is a pure function of the source
// bytes and dimensions. The shape follows the source family so a failed JPEG
// is distinguishable from a failed PNG on screen.
func synthesize(buf *pixel.Buffer, family string, source []byte) {
	sum := md5.Sum(source)
	switch family {
	case "jpeg":
		blockGradient(buf, sum)
	case "png":
		borderChecker(buf, sum)
	default:
		gradient(buf, sum)
	}
}

// ramp maps i in [0,n) onto the full channel range, phase shifted by off.
// The shift wraps, so different source bytes move the bands.
func ramp(i, n int, off uint8) uint8 {
	if n <= 1 {
		return off
	}
	return uint8(i*255/(n-1)) + off
}

func addClamp(v uint8, d int) uint8 {
	s := int(v) + d
	if s > 0xff {
		return 0xff
	}
	if s < 0 {
		return 0
	}
	return uint8(s)
}

func gradient(buf *pixel.Buffer, sum [md5.Size]byte) {
	w, h := buf.Width(), buf.Height()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			buf.SetPixel(x, y, ramp(x, w, sum[0]), ramp(y, h, sum[1]), ramp(x+y, w+h, sum[2]), 0xff)
		}
	}
}

// blockGradient is the JPEG-shaped pattern: the gradient with every other
// 8px block brightened, echoing the codec's block structure.
func blockGradient(buf *pixel.Buffer, sum [md5.Size]byte) {
	w, h := buf.Width(), buf.Height()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r := ramp(x, w, sum[0])
			g := ramp(y, h, sum[1])
			b := ramp(x+y, w+h, sum[2])
			if (x/8+y/8)%2 == 0 {
				r, g, b = addClamp(r, 40), addClamp(g, 40), addClamp(b, 40)
			}
			buf.SetPixel(x, y, r, g, b, 0xff)
		}
	}
}

// borderChecker is the PNG-shaped pattern: a red border around a white/blue
// checkerboard whose phase comes from the source hash.
func borderChecker(buf *pixel.Buffer, sum [md5.Size]byte) {
	const border, cell = 5, 16
	w, h := buf.Width(), buf.Height()
	phase := int(sum[3]) % 2
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			switch {
			case x < border || y < border || x >= w-border || y >= h-border:
				buf.SetPixel(x, y, 0xff, 0x00, 0x00, 0xff)
			case (x/cell+y/cell)%2 == phase:
				buf.SetPixel(x, y, 0xff, 0xff, 0xff, 0xff)
			default:
				// hash-tinted blue so distinct sources stay distinguishable
				buf.SetPixel(x, y, sum[4]>>1, sum[5]>>1, 0xff, 0xff)
			}
		}
	}
}
