package cmd

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jpfielding/sdimage.go/pkg/decode"
	"github.com/jpfielding/sdimage.go/pkg/pixel"
	"github.com/jpfielding/sdimage.go/pkg/sdimage"
	"github.com/jpfielding/sdimage.go/pkg/storage"
)

// NewLoadCmd runs the full bounded-memory decode against one file or a YAML
// manifest of images.
func NewLoadCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "load",
		Short: "decode an image through the tile engine",
		Long:  "decodes a file (or every entry of a YAML manifest) tile by tile under a memory budget, reporting the plan that ran and optionally exporting the buffer",
		RunE: func(cmd *cobra.Command, args []string) error {
			file, _ := cmd.Flags().GetString("file")
			man, _ := cmd.Flags().GetString("manifest")
			if file == "" && man == "" && len(args) > 0 {
				file = args[0]
			}
			budget, _ := cmd.Flags().GetUint64("budget")

			if man != "" {
				root, _ := cmd.Flags().GetString("root")
				return runManifest(ctx, man, root, budget)
			}
			if file == "" {
				return fmt.Errorf("a file or manifest is required. Use --file, --manifest, or provide a path as argument")
			}
			cfg, err := configFromFlags(cmd)
			if err != nil {
				return err
			}
			out, _ := cmd.Flags().GetString("out")
			return runLoad(ctx, file, cfg, budget, out)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringP("file", "f", "", "image file to decode")
	pf.StringP("manifest", "m", "", "YAML manifest of images to decode")
	pf.String("root", ".", "directory manifest paths are relative to")
	pf.String("format", "auto", "source format (auto|jpeg|png|raw)")
	pf.String("pixel-format", "rgb565", "output pixel format (rgb565|rgb888|rgba)")
	pf.String("byte-order", "little", "output byte order (little|big)")
	pf.Int("width", 0, "source width, required for raw sources")
	pf.Int("height", 0, "source height, required for raw sources")
	pf.Int("resize-width", 0, "output width (0 keeps the source width)")
	pf.Int("resize-height", 0, "output height (0 keeps the source height)")
	pf.String("filter", "nearest", "resize filter (nearest|bilinear)")
	pf.Uint64P("budget", "b", 0, "cap the decode working set to this many free bytes")
	pf.StringP("out", "o", "", "write the decoded buffer to a .png or .bin file")
	return cmd
}

func configFromFlags(cmd *cobra.Command) (sdimage.Config, error) {
	var cfg sdimage.Config
	var err error

	format, _ := cmd.Flags().GetString("format")
	if cfg.Format, err = sdimage.ParseSourceFormat(format); err != nil {
		return cfg, err
	}
	pf, _ := cmd.Flags().GetString("pixel-format")
	if cfg.PixelFormat, err = pixel.ParseFormat(pf); err != nil {
		return cfg, err
	}
	bo, _ := cmd.Flags().GetString("byte-order")
	if cfg.ByteOrder, err = pixel.ParseByteOrder(bo); err != nil {
		return cfg, err
	}
	filter, _ := cmd.Flags().GetString("filter")
	if cfg.Filter, err = sdimage.ParseFilter(filter); err != nil {
		return cfg, err
	}
	cfg.Width, _ = cmd.Flags().GetInt("width")
	cfg.Height, _ = cmd.Flags().GetInt("height")
	cfg.ResizeWidth, _ = cmd.Flags().GetInt("resize-width")
	cfg.ResizeHeight, _ = cmd.Flags().GetInt("resize-height")
	return cfg, nil
}

func runLoad(ctx context.Context, file string, cfg sdimage.Config, budget uint64, out string) error {
	cfg.Path = filepath.Base(file)
	img, err := sdimage.New(storage.NewDirStore(filepath.Dir(file)), cfg)
	if err != nil {
		return err
	}
	if budget > 0 {
		img.Budget = decode.FixedBudget{Free: budget}
	}
	if err := img.Load(ctx); err != nil {
		return err
	}

	buf := img.Decoded()
	st := img.Stats()
	fmt.Println("=== Decoded ===")
	fmt.Println(img)
	fmt.Printf("Bytes: %d\n", buf.Len())
	if st.Tiles > 0 {
		fmt.Printf("Tiles: %d (%dpx edge, %d failed)\n", st.Tiles, st.Edge, st.Failed)
		fmt.Printf("Elapsed: %s\n", st.Elapsed)
	}

	if out != "" {
		if err := writeOut(out, buf); err != nil {
			return fmt.Errorf("export: %w", err)
		}
		fmt.Printf("Wrote %s\n", out)
	}
	return nil
}

// writeOut exports the buffer: .png via the stdlib encoder (the buffer is an
// image.Image), anything else as the raw bytes.
func writeOut(path string, buf *pixel.Buffer) error {
	if strings.EqualFold(filepath.Ext(path), ".png") {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		return png.Encode(f, buf)
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

type manifest struct {
	Images []manifestImage `yaml:"images"`
}

// manifestImage mirrors the deployment YAML: one image entry per display slot.
type manifestImage struct {
	Path         string `yaml:"path"`
	Format       string `yaml:"format"`
	PixelFormat  string `yaml:"pixel_format"`
	ByteOrder    string `yaml:"byte_order"`
	Width        int    `yaml:"width"`
	Height       int    `yaml:"height"`
	ResizeWidth  int    `yaml:"resize_width"`
	ResizeHeight int    `yaml:"resize_height"`
	Filter       string `yaml:"filter"`
	MaxFileSize  int64  `yaml:"max_file_size"`
}

func (m manifestImage) config() (sdimage.Config, error) {
	cfg := sdimage.Config{
		Path:         m.Path,
		Width:        m.Width,
		Height:       m.Height,
		ResizeWidth:  m.ResizeWidth,
		ResizeHeight: m.ResizeHeight,
		MaxFileSize:  m.MaxFileSize,
	}
	var err error
	if cfg.Format, err = sdimage.ParseSourceFormat(m.Format); err != nil {
		return cfg, err
	}
	if cfg.Filter, err = sdimage.ParseFilter(m.Filter); err != nil {
		return cfg, err
	}
	if m.PixelFormat != "" {
		if cfg.PixelFormat, err = pixel.ParseFormat(m.PixelFormat); err != nil {
			return cfg, err
		}
	}
	if m.ByteOrder != "" {
		if cfg.ByteOrder, err = pixel.ParseByteOrder(m.ByteOrder); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}

func runManifest(ctx context.Context, path, root string, budget uint64) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read manifest: %w", err)
	}
	var m manifest
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return fmt.Errorf("parse manifest: %w", err)
	}
	if len(m.Images) == 0 {
		return fmt.Errorf("manifest lists no images")
	}

	store := storage.NewDirStore(root)
	failed := 0
	fmt.Printf("=== Manifest (%d images) ===\n", len(m.Images))
	for _, entry := range m.Images {
		img, err := manifestLoad(ctx, store, entry, budget)
		if err != nil {
			failed++
			fmt.Printf("FAIL %s: %v\n", entry.Path, err)
			continue
		}
		fmt.Printf("OK   %s\n", img)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d images failed", failed, len(m.Images))
	}
	return nil
}

func manifestLoad(ctx context.Context, store storage.Store, entry manifestImage, budget uint64) (*sdimage.Image, error) {
	cfg, err := entry.config()
	if err != nil {
		return nil, err
	}
	img, err := sdimage.New(store, cfg)
	if err != nil {
		return nil, err
	}
	if budget > 0 {
		img.Budget = decode.FixedBudget{Free: budget}
	}
	if err := img.Load(ctx); err != nil {
		return nil, err
	}
	return img, nil
}
