package decode

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"golang.org/x/image/draw"

	"github.com/jpfielding/sdimage.go/pkg/codec"
	"github.com/jpfielding/sdimage.go/pkg/pixel"
)

// ErrTooManyTileFailures means fewer than SuccessThreshold of the grid
// decoded cleanly.
var ErrTooManyTileFailures = errors.New("decode: too many tile failures")

// SuccessThreshold is the fraction of tiles that must decode without a fatal
// codec error for the run to count as successful.
const SuccessThreshold = 0.8

// Stats summarizes one decode run.
type Stats struct {
	Edge     int
	Tiles    int
	Failed   int
	Rejected int // converter writes dropped at the buffer bounds
	Elapsed  time.Duration
}

// Engine runs the bounded-memory tile loop. The zero value uses a
// conservative system budget, no watchdog, and nearest-neighbor resampling.
type Engine struct {
	Budget   Budget
	Watchdog Watchdog
	// Interp resamples tiles when the destination dimensions differ from
	// the source. Nil means draw.NearestNeighbor.
	Interp draw.Interpolator
	Log    *slog.Logger
}

func (e *Engine) budget() Budget {
	if e.Budget != nil {
		return e.Budget
	}
	return SystemBudget{}
}

func (e *Engine) log() *slog.Logger {
	if e.Log != nil {
		return e.Log
	}
	return slog.Default()
}

// DecodeInto decodes data with c into dst. The source grid is planned from
// cfg; when dst's dimensions differ, each tile is scaled onto dst as it
// lands, so no full-resolution intermediate ever exists.
func (e *Engine) DecodeInto(ctx context.Context, dst *pixel.Buffer, c codec.Codec, data []byte, cfg codec.Config) (Stats, error) {
	start := time.Now()
	budget := e.budget()

	edge, err := PlanEdge(cfg.Width, cfg.Height, budget)
	if err != nil {
		return Stats{}, err
	}
	tiles := Grid(cfg.Width, cfg.Height, edge)
	st := Stats{Edge: edge, Tiles: len(tiles)}

	sched := NewScheduler(e.Watchdog, len(tiles))
	staging := image.NewRGBA(image.Rect(0, 0, edge, edge))
	resize := dst.Width() != cfg.Width || dst.Height() != cfg.Height
	interp := e.Interp
	if interp == nil {
		interp = draw.NearestNeighbor
	}

	snap := budget.Snapshot()
	e.log().DebugContext(ctx, "tile grid planned",
		"source", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height),
		"edge", edge, "tiles", len(tiles),
		"free", snap.Free, "margin", snap.Margin)

	progressEvery := 0
	if len(tiles) > 20 {
		progressEvery = max(1, len(tiles)/10)
	}

	for i, t := range tiles {
		if err := sched.Tick(ctx, i); err != nil {
			return st, err
		}
		if progressEvery > 0 && i > 0 && i%progressEvery == 0 {
			snap = budget.Snapshot()
			e.log().InfoContext(ctx, "decode progress",
				"tile", i, "total", len(tiles), "pct", i*100/len(tiles), "free", snap.Free)
		}

		view := staging.SubImage(image.Rect(0, 0, t.W, t.H)).(*image.RGBA)
		if err := e.decodeTile(c, data, t, view); err != nil {
			st.Failed++
			e.log().WarnContext(ctx, "tile decode failed",
				"tile", i, "x", t.X, "y", t.Y, "error", err)
			continue
		}

		if resize {
			dr := scaleRect(t.Rect(), cfg.Width, cfg.Height, dst.Width(), dst.Height())
			interp.Scale(dst, dr, view, view.Bounds(), draw.Src, nil)
		} else {
			st.Rejected += dst.DrawRGBA(t.Rect(), view)
		}
	}

	st.Elapsed = time.Since(start)
	if st.Rejected > 0 {
		e.log().WarnContext(ctx, "pixels clipped at buffer bounds", "count", st.Rejected)
	}
	ok := st.Tiles - st.Failed
	if float64(ok) < SuccessThreshold*float64(st.Tiles) {
		return st, fmt.Errorf("%w: %d/%d tiles decoded", ErrTooManyTileFailures, ok, st.Tiles)
	}
	e.log().DebugContext(ctx, "decode complete",
		"tiles", st.Tiles, "failed", st.Failed, "elapsed", st.Elapsed)
	return st, nil
}

// decodeTile re-parses the whole bitstream and stages only the spans that
// land inside t. CPU is spent once per tile so peak memory stays at one
// tile's working set; partial decode state never outlives the call.
func (e *Engine) decodeTile(c codec.Codec, data []byte, t Tile, view *image.RGBA) error {
	return c.Decode(data, func(x, y int, rgba []byte) error {
		if y < t.Y || y >= t.Y+t.H {
			return nil
		}
		n := len(rgba) / 4
		x0 := max(x, t.X)
		x1 := min(x+n, t.X+t.W)
		if x0 >= x1 {
			return nil
		}
		off := view.PixOffset(x0-t.X, y-t.Y)
		copy(view.Pix[off:off+(x1-x0)*4], rgba[(x0-x)*4:(x1-x)*4])
		return nil
	})
}

// scaleRect maps r in sw x sh source space onto the dw x dh destination
// grid. Neighboring source tiles land on neighboring destination rects with
// no gaps or overlap.
func scaleRect(r image.Rectangle, sw, sh, dw, dh int) image.Rectangle {
	return image.Rect(
		r.Min.X*dw/sw, r.Min.Y*dh/sh,
		r.Max.X*dw/sw, r.Max.Y*dh/sh,
	)
}
