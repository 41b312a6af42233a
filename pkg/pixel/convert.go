package pixel

// Pack565 quantizes 8-bit channels into one RGB565 word.
func Pack565(r, g, b uint8) uint16 {
	return uint16(r>>3)<<11 | uint16(g>>2)<<5 | uint16(b>>3)
}

// Unpack565 expands an RGB565 word back to 8-bit channels. Channels are
// expanded with bit replication so full-scale values survive a round trip.
func Unpack565(v uint16) (r, g, b uint8) {
	r5 := uint8(v >> 11 & 0x1f)
	g6 := uint8(v >> 5 & 0x3f)
	b5 := uint8(v & 0x1f)
	return r5<<3 | r5>>2, g6<<2 | g6>>4, b5<<3 | b5>>2
}

// Put writes one pixel at byte offset off in dst. Writes that would land
// past the end of dst are dropped; decode-time clipping at tile and image
// boundaries is expected to probe past the edge occasionally. The return
// reports whether the pixel was written.
func Put(dst []byte, off int, f Format, o ByteOrder, r, g, b, a uint8) bool {
	bpp := f.BytesPerPixel()
	if bpp == 0 || off < 0 || off+bpp > len(dst) {
		return false
	}
	switch f {
	case RGB565:
		v := Pack565(r, g, b)
		if o == BigEndian {
			dst[off] = byte(v >> 8)
			dst[off+1] = byte(v)
		} else {
			dst[off] = byte(v)
			dst[off+1] = byte(v >> 8)
		}
	case RGB888:
		dst[off] = r
		dst[off+1] = g
		dst[off+2] = b
	case RGBA:
		dst[off] = r
		dst[off+1] = g
		dst[off+2] = b
		dst[off+3] = a
	}
	return true
}

// At reads one pixel at byte offset off in src, returning zeros out of
// range. Formats without alpha report full opacity.
func At(src []byte, off int, f Format, o ByteOrder) (r, g, b, a uint8) {
	bpp := f.BytesPerPixel()
	if bpp == 0 || off < 0 || off+bpp > len(src) {
		return 0, 0, 0, 0
	}
	switch f {
	case RGB565:
		var v uint16
		if o == BigEndian {
			v = uint16(src[off])<<8 | uint16(src[off+1])
		} else {
			v = uint16(src[off+1])<<8 | uint16(src[off])
		}
		r, g, b = Unpack565(v)
		return r, g, b, 0xff
	case RGB888:
		return src[off], src[off+1], src[off+2], 0xff
	case RGBA:
		return src[off], src[off+1], src[off+2], src[off+3]
	default:
		return 0, 0, 0, 0
	}
}
