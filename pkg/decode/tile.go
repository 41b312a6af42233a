package decode

import (
	"errors"
	"fmt"
	"image"
)

// ErrInsufficientMemory means not even the smallest ladder edge fits the
// current budget. Images are never silently truncated to fit.
var ErrInsufficientMemory = errors.New("decode: insufficient memory for smallest tile")

// Tile is one rectangular sub-region of the source image decoded in a
// single bounded-memory pass.
type Tile struct {
	X, Y int
	W, H int
}

// Rect returns the tile extent as an image.Rectangle.
func (t Tile) Rect() image.Rectangle {
	return image.Rect(t.X, t.Y, t.X+t.W, t.Y+t.H)
}

// EdgeLadder holds the candidate tile edge lengths, largest first. Larger
// tiles mean fewer whole-bitstream re-parses, so the planner prefers them.
var EdgeLadder = [...]int{128, 64, 48, 32, 24, 16, 8}

// Per-tile working set model: one staged RGBA pixel costs four bytes, and
// the factor covers the scaled staging plus the codec's block bands over the
// tile rows.
const (
	bytesPerDecodePixel = 4
	workingSetFactor    = 32
)

// WorkingSet returns the modeled decode cost of one edge*edge tile.
func WorkingSet(edge int) uint64 {
	return uint64(edge) * uint64(edge) * bytesPerDecodePixel * workingSetFactor
}

// PlanEdge picks the largest ladder edge whose working set the budget
// accepts.
func PlanEdge(w, h int, b Budget) (int, error) {
	for _, edge := range EdgeLadder {
		if b.CanAllocate(WorkingSet(edge)) {
			return edge, nil
		}
	}
	s := b.Snapshot()
	smallest := EdgeLadder[len(EdgeLadder)-1]
	return 0, fmt.Errorf("%w: %dx%d needs %d bytes for edge %d, free %d with margin %d",
		ErrInsufficientMemory, w, h, WorkingSet(smallest), smallest, s.Free, s.Margin)
}

// Grid enumerates the row-major tile grid covering w x h, clipping the last
// column and row at the image edge. Tiles partition the image exactly.
func Grid(w, h, edge int) []Tile {
	if w <= 0 || h <= 0 || edge <= 0 {
		return nil
	}
	cols := (w + edge - 1) / edge
	rows := (h + edge - 1) / edge
	tiles := make([]Tile, 0, cols*rows)
	for ty := 0; ty < rows; ty++ {
		for tx := 0; tx < cols; tx++ {
			t := Tile{X: tx * edge, Y: ty * edge, W: edge, H: edge}
			if t.X+t.W > w {
				t.W = w - t.X
			}
			if t.Y+t.H > h {
				t.H = h - t.Y
			}
			tiles = append(tiles, t)
		}
	}
	return tiles
}
