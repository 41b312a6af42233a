package sdimage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jpfielding/sdimage.go/pkg/codec"
	"github.com/jpfielding/sdimage.go/pkg/decode"
	"github.com/jpfielding/sdimage.go/pkg/pixel"
	"github.com/jpfielding/sdimage.go/pkg/storage"
	"github.com/jpfielding/sdimage.go/pkg/util"
)

// Image loads one configured source from a Store into a pixel.Buffer through
// the bounded-memory tile engine. One load runs at a time; the accessors are
// safe to call from another goroutine while it runs, so a UI can poll state
// and keep drawing the previous frame.
type Image struct {
	// Budget gates tile sizing. Defaults to a SystemBudget with
	// decode.DefaultSystemLimit.
	Budget decode.Budget
	// Watchdog is fed between tiles.
	Watchdog decode.Watchdog
	// Log receives load progress. Defaults to slog.Default.
	Log *slog.Logger

	store storage.Store
	cfg   Config
	id    string

	loadMu sync.Mutex // serializes Load, LoadFrom, Reload, Unload

	mu    sync.RWMutex // guards the observable fields below
	path  string
	state State
	err   error
	buf   *pixel.Buffer
	stats decode.Stats
}

// New builds an Image over store with cfg defaults applied. The returned
// Image is Idle; nothing is read until Load.
func New(store storage.Store, cfg Config) (*Image, error) {
	if store == nil {
		return nil, errors.New("sdimage: nil store")
	}
	cfg = cfg.normalized()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("sdimage: config: %w", err)
	}
	return &Image{
		store: store,
		cfg:   cfg,
		id:    util.HashUUID(cfg),
		path:  cfg.Path,
		state: StateIdle,
	}, nil
}

// Config returns the normalized configuration.
func (i *Image) Config() Config { return i.cfg }

// State reports where the current or last load attempt got to.
func (i *Image) State() State {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.state
}

// Err returns the taxonomy error of the last failed load, nil otherwise.
func (i *Image) Err() error {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.err
}

// IsLoaded reports whether a decoded buffer is available.
func (i *Image) IsLoaded() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.state == StateLoaded
}

// Width returns the configured output width before a load and the decoded
// width after one.
func (i *Image) Width() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	w, _ := i.dims()
	return w
}

// Height is the counterpart of Width.
func (i *Image) Height() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	_, h := i.dims()
	return h
}

func (i *Image) dims() (int, int) {
	if i.buf != nil {
		return i.buf.Width(), i.buf.Height()
	}
	return i.cfg.outputDims(i.cfg.Width, i.cfg.Height)
}

// Format returns the destination pixel format.
func (i *Image) Format() pixel.Format { return i.cfg.PixelFormat }

// PixelAt reads one pixel. Unloaded images and out-of-bounds coordinates
// read as zeros, never as undefined memory.
func (i *Image) PixelAt(x, y int) (r, g, b, a uint8) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	if i.buf == nil {
		return 0, 0, 0, 0
	}
	return i.buf.PixelAt(x, y)
}

// Decoded returns the current buffer, nil unless loaded.
func (i *Image) Decoded() *pixel.Buffer {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.buf
}

// Stats reports tile counts from the last successful decode. Raw copies and
// fallback patterns leave it zero.
func (i *Image) Stats() decode.Stats {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.stats
}

// String is a one-line status suitable for dump-style CLI output.
func (i *Image) String() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	w, h := i.dims()
	return fmt.Sprintf("%s %dx%d %s/%s (%s)", i.path, w, h, i.cfg.PixelFormat, i.cfg.ByteOrder, i.state)
}

// Load reads, probes, plans and decodes the configured source.
func (i *Image) Load(ctx context.Context) error {
	i.loadMu.Lock()
	defer i.loadMu.Unlock()
	return i.load(ctx, i.currentPath())
}

// LoadFrom loads path instead of the configured source. The override
// persists, so a later Reload refreshes from it.
func (i *Image) LoadFrom(ctx context.Context, path string) error {
	i.loadMu.Lock()
	defer i.loadMu.Unlock()
	i.mu.Lock()
	i.path = path
	i.mu.Unlock()
	return i.load(ctx, path)
}

// Reload clears the current buffer and loads the source again.
func (i *Image) Reload(ctx context.Context) error {
	i.loadMu.Lock()
	defer i.loadMu.Unlock()
	i.unload()
	return i.load(ctx, i.currentPath())
}

// Unload releases the buffer and returns to Idle. Calling it again is a no-op.
func (i *Image) Unload() {
	i.loadMu.Lock()
	defer i.loadMu.Unlock()
	i.unload()
}

func (i *Image) unload() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.buf = nil
	i.err = nil
	i.stats = decode.Stats{}
	i.state = StateIdle
}

func (i *Image) currentPath() string {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.path
}

func (i *Image) setState(s State) {
	i.mu.Lock()
	i.state = s
	i.mu.Unlock()
}

func (i *Image) budget() decode.Budget {
	if i.Budget != nil {
		return i.Budget
	}
	return decode.SystemBudget{Limit: decode.DefaultSystemLimit}
}

func (i *Image) logger() *slog.Logger {
	if i.Log != nil {
		return i.Log
	}
	return slog.Default()
}

func (i *Image) load(ctx context.Context, name string) error {
	attempt := uuid.NewString()
	log := i.logger().With("image", i.id, "load", attempt, "path", name)
	start := time.Now()

	data, err := i.read(ctx, log, name)
	if err != nil {
		return i.fail(ctx, log, err)
	}

	src, c, err := i.probe(ctx, log, data)
	if err != nil {
		return i.fail(ctx, log, err)
	}

	outW, outH := i.cfg.outputDims(src.Width, src.Height)
	buf, stats, err := i.decode(ctx, log, data, c, src, outW, outH)
	if err != nil {
		return i.fail(ctx, log, err)
	}

	i.setState(StateFinalizing)
	if want := outW * outH * i.cfg.PixelFormat.BytesPerPixel(); buf.Len() != want {
		return i.fail(ctx, log, fmt.Errorf("%w: buffer is %d bytes, want %d", ErrSizeMismatch, buf.Len(), want))
	}

	i.mu.Lock()
	i.buf, i.stats, i.err, i.state = buf, stats, nil, StateLoaded
	i.mu.Unlock()

	log.InfoContext(ctx, "image loaded",
		"dims", fmt.Sprintf("%dx%d", outW, outH),
		"format", i.cfg.PixelFormat,
		"bytes", buf.Len(),
		"tiles", stats.Tiles,
		"failed", stats.Failed,
		"elapsed", time.Since(start))
	return nil
}

// fail maps err into the taxonomy, releases any buffer and parks the state
// machine in Failed. The caller stays unloaded.
func (i *Image) fail(ctx context.Context, log *slog.Logger, err error) error {
	err = classify(err)
	i.mu.Lock()
	i.buf = nil
	i.stats = decode.Stats{}
	i.err = err
	i.state = StateFailed
	i.mu.Unlock()
	log.ErrorContext(ctx, "image load failed", "error", err)
	return err
}

// read pulls the source bytes, enforcing the size ceiling before the read
// and again after transparent container inflation.
func (i *Image) read(ctx context.Context, log *slog.Logger, name string) ([]byte, error) {
	i.setState(StateReading)
	ceiling := i.cfg.MaxFileSize

	if !i.store.Exists(name) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}
	size, err := i.store.Size(name)
	if err != nil {
		return nil, err
	}
	if size > ceiling {
		return nil, fmt.Errorf("%w: %d bytes over the %d ceiling", ErrFileTooLarge, size, ceiling)
	}
	if size > warnFileSize {
		log.WarnContext(ctx, "large source file", "size", size)
	}

	data, err := i.store.ReadAll(ctx, name)
	if err != nil {
		return nil, err
	}
	if storage.IsCompressed(data) {
		inflated, err := storage.Decompress(data, uint64(ceiling))
		if err != nil {
			return nil, err
		}
		log.DebugContext(ctx, "inflated container", "compressed", len(data), "size", len(inflated))
		data = inflated
	}
	return data, nil
}

// probe resolves the codec and source dimensions. A nil codec means raw
// pixel data, whose dimensions must come from the configuration.
func (i *Image) probe(ctx context.Context, log *slog.Logger, data []byte) (codec.Config, codec.Codec, error) {
	i.setState(StateProbingFormat)

	var c codec.Codec
	switch i.cfg.Format {
	case FormatAuto:
		c = codec.Detect(data)
	case FormatRaw:
		c = nil
	default:
		c = codec.ByName(string(i.cfg.Format))
		if c == nil || !c.Sniff(data) {
			return codec.Config{}, nil, fmt.Errorf("%w: source is not %s", ErrInvalidFormat, i.cfg.Format)
		}
	}

	if c == nil {
		if i.cfg.Width <= 0 || i.cfg.Height <= 0 {
			return codec.Config{}, nil, fmt.Errorf("%w: raw source needs configured dimensions", ErrMissingDimensions)
		}
		log.DebugContext(ctx, "source probed", "codec", "raw", "width", i.cfg.Width, "height", i.cfg.Height)
		return codec.Config{Width: i.cfg.Width, Height: i.cfg.Height}, nil, nil
	}

	src, err := c.ProbeConfig(data)
	if err != nil {
		return codec.Config{}, nil, fmt.Errorf("%w: %w", ErrInvalidFormat, err)
	}
	if src.Width <= 0 || src.Height <= 0 || src.Width > maxDimension || src.Height > maxDimension {
		return codec.Config{}, nil, fmt.Errorf("%w: probed %dx%d outside 1..%d",
			ErrInvalidFormat, src.Width, src.Height, maxDimension)
	}
	log.DebugContext(ctx, "source probed", "codec", c.Name(), "width", src.Width, "height", src.Height)
	return src, c, nil
}

// decode produces the output buffer: raw copy, tiled decode, or the
// deterministic fallback pattern when no tile size fits the budget.
func (i *Image) decode(ctx context.Context, log *slog.Logger, data []byte, c codec.Codec, src codec.Config, outW, outH int) (*pixel.Buffer, decode.Stats, error) {
	i.setState(StatePlanning)

	if c == nil {
		buf, err := i.loadRaw(ctx, log, data, src, outW, outH)
		return buf, decode.Stats{}, err
	}

	budget := i.budget()
	if _, err := decode.PlanEdge(src.Width, src.Height, budget); err != nil {
		if !errors.Is(err, decode.ErrInsufficientMemory) {
			return nil, decode.Stats{}, err
		}
		buf, perr := i.pattern(ctx, log, data, c.Name(), outW, outH, err)
		return buf, decode.Stats{}, perr
	}

	i.setState(StateDecoding)
	buf, err := pixel.NewBuffer(outW, outH, i.cfg.PixelFormat, i.cfg.ByteOrder)
	if err != nil {
		return nil, decode.Stats{}, err
	}
	eng := &decode.Engine{
		Budget:   budget,
		Watchdog: i.Watchdog,
		Interp:   i.cfg.Filter.Interpolator(),
		Log:      log,
	}
	stats, err := eng.DecodeInto(ctx, buf, c, data, src)
	if errors.Is(err, decode.ErrInsufficientMemory) {
		// memory shrank between planning and the engine's own re-plan
		buf, perr := i.pattern(ctx, log, data, c.Name(), outW, outH, err)
		return buf, decode.Stats{}, perr
	}
	if err != nil {
		return nil, stats, err
	}
	return buf, stats, nil
}

// pattern fills a correctly sized buffer with a synthetic image derived from
// the source bytes. The caller always gets a valid frame, never a failure.
func (i *Image) pattern(ctx context.Context, log *slog.Logger, data []byte, family string, w, h int, cause error) (*pixel.Buffer, error) {
	log.WarnContext(ctx, "recovering with fallback pattern",
		"error", classify(cause), "seed", util.Md5ThenHex(data))
	buf, err := pixel.NewBuffer(w, h, i.cfg.PixelFormat, i.cfg.ByteOrder)
	if err != nil {
		return nil, err
	}
	synthesize(buf, family, data)
	return buf, nil
}
