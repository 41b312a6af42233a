// Package sdimage loads compressed or raw images from slow block storage
// into caller-shaped pixel buffers without materializing more memory than a
// budget allows. Compressed sources decode tile by tile: the whole bitstream
// is re-parsed per tile and a clamping sink keeps only the tile's pixels,
// spending CPU to bound the working set to a single tile. When even the
// smallest tile cannot fit, the load degrades to a deterministic synthetic
// pattern instead of failing, so a display always has something valid to
// show.
package sdimage

import (
	"context"
	"path/filepath"

	"github.com/jpfielding/sdimage.go/pkg/pixel"
	"github.com/jpfielding/sdimage.go/pkg/storage"
)

// Source is the read surface a display consumer needs. Both *Image and
// *pixel.Buffer satisfy it; consumers should depend on nothing more.
type Source interface {
	Width() int
	Height() int
	Format() pixel.Format
	PixelAt(x, y int) (r, g, b, a uint8)
}

var (
	_ Source = (*Image)(nil)
	_ Source = (*pixel.Buffer)(nil)
)

// LoadFile is the one-shot path: decode the file at path with cfg and return
// the buffer. cfg.Path is taken from path.
func LoadFile(ctx context.Context, path string, cfg Config) (*pixel.Buffer, error) {
	cfg.Path = filepath.Base(path)
	img, err := New(storage.NewDirStore(filepath.Dir(path)), cfg)
	if err != nil {
		return nil, err
	}
	if err := img.Load(ctx); err != nil {
		return nil, err
	}
	return img.Decoded(), nil
}
