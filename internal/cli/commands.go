package cli

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/anas-shakeel/imgconv/internal/adjustments"
	"github.com/anas-shakeel/imgconv/internal/bmp"
	"github.com/anas-shakeel/imgconv/internal/filters"
	"github.com/anas-shakeel/imgconv/internal/img"
	"github.com/anas-shakeel/imgconv/internal/utils"
	"github.com/spf13/cobra"
)

// NewInfoCmd prints the header metadata of a bitmap without decoding pixels
func NewInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <file.bmp>",
		Short: "print bitmap metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			h, err := bmp.ReadHeader(f)
			if err != nil {
				return fmt.Errorf("%s: %w", args[0], err)
			}
			printMetadata(cmd.OutOrStdout(), args[0], h)
			return nil
		},
	}
}

// Print the Metadata of a bitmap (in human-readable format)
func printMetadata(w io.Writer, filename string, h *bmp.Header) {
	order := "bottom-up"
	if h.TopDown {
		order = "top-down"
	}
	fmt.Fprintf(w, "Filename: \t%v\n", filename)
	fmt.Fprintf(w, "Filesize: \t%v bytes\n", h.File.Size)
	fmt.Fprintf(w, "Width: \t\t%v px\n", h.Width)
	fmt.Fprintf(w, "Height: \t%v px\n", h.Rows)
	fmt.Fprintf(w, "RowOrder: \t%v\n", order)
	fmt.Fprintf(w, "BitCount: \t%vbits\n", h.Info.BitCount)
	fmt.Fprintf(w, "PixelOffset: \t%v bytes\n", h.File.OffBits)
	fmt.Fprintf(w, "PixelCount: \t%v pixels\n", h.Width*h.Rows)
	fmt.Fprintf(w, "Stride: \t%v bytes\n", h.Stride)
	fmt.Fprintf(w, "Padding: \t%v bytes\n", h.Padding)
	fmt.Fprintf(w, "Resolution: \t%vx%v px/m\n", h.Info.XPelsPerMeter, h.Info.YPelsPerMeter)
}

// NewPrintCmd renders a bitmap in the terminal. Use for small images only
func NewPrintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "print <file.bmp>",
		Short: "render a bitmap in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := load(cmd, args[0])
			if err != nil {
				return err
			}

			w := bufio.NewWriter(cmd.OutOrStdout())
			for y := range m.Height() {
				for _, c := range m.Line(y) {
					w.WriteString(utils.ColoredBlock("  ", int(c.R), int(c.G), int(c.B)))
				}
				w.WriteString("\n")
			}
			return w.Flush()
		},
	}
}

// NewCopyCmd re-encodes a bitmap, normalizing it to bottom-up rows
func NewCopyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "copy <in.bmp> <out.bmp>",
		Short: "decode and re-encode a bitmap",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.transform(cmd, args[0], args[1], func(m *img.Image) (*img.Image, error) {
				return m, nil
			})
		},
	}
}

func NewFilterCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filter <in.bmp> <out.bmp>",
		Short: "apply a color filter",
		Long: `Applies one color filter to every pixel.

Operations: invert, grayscale, luma, brightness, contrast, channel, expr.
expr takes per-channel expressions over r, g, b, x, y, width and height,
for example --r "255 - r" --g "g" --b "(x + y) % 256".`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			op, _ := flags.GetString("op")
			factor, _ := flags.GetFloat64("factor")
			method, _ := flags.GetString("method")
			channel, _ := flags.GetString("channel")
			exprR, _ := flags.GetString("r")
			exprG, _ := flags.GetString("g")
			exprB, _ := flags.GetString("b")

			return a.transform(cmd, args[0], args[1], func(m *img.Image) (*img.Image, error) {
				switch op {
				case "invert":
					filters.Invert(m)
				case "grayscale":
					filters.Grayscale(m)
				case "luma":
					filters.GrayscaleLuma(m)
				case "brightness":
					return m, filters.Brightness(m, factor, method)
				case "contrast":
					filters.Contrast(m, factor)
				case "channel":
					return filters.Channel(m, channel)
				case "expr":
					return m, filters.Expr(m, exprR, exprG, exprB)
				default:
					return nil, fmt.Errorf("unknown filter %q", op)
				}
				return m, nil
			})
		},
	}
	pf := cmd.Flags()
	pf.String("op", "", "filter to apply")
	pf.Float64("factor", 1, "brightness/contrast factor")
	pf.String("method", "add", "brightness method (add|multiply)")
	pf.String("channel", "red", "channel to keep (red|green|blue)")
	pf.String("r", "", "red channel expression")
	pf.String("g", "", "green channel expression")
	pf.String("b", "", "blue channel expression")
	cmd.MarkFlagRequired("op")
	return cmd
}

func NewCropCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crop <in.bmp> <out.bmp>",
		Short: "crop a region (0,0 is the top-left pixel)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			x, _ := flags.GetInt("x")
			y, _ := flags.GetInt("y")
			width, _ := flags.GetInt("width")
			height, _ := flags.GetInt("height")

			return a.transform(cmd, args[0], args[1], func(m *img.Image) (*img.Image, error) {
				return adjustments.Crop(m, x, y, width, height)
			})
		},
	}
	pf := cmd.Flags()
	pf.Int("x", 0, "left edge")
	pf.Int("y", 0, "top edge")
	pf.Int("width", 0, "region width")
	pf.Int("height", 0, "region height")
	cmd.MarkFlagRequired("width")
	cmd.MarkFlagRequired("height")
	return cmd
}

func NewFlipCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "flip <in.bmp> <out.bmp>",
		Short: "mirror an image",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			vertical, _ := cmd.Flags().GetBool("vertical")
			horizontal, _ := cmd.Flags().GetBool("horizontal")
			if !vertical && !horizontal {
				return fmt.Errorf("one of --vertical or --horizontal is required")
			}

			return a.transform(cmd, args[0], args[1], func(m *img.Image) (*img.Image, error) {
				if vertical {
					adjustments.FlipVertical(m)
				}
				if horizontal {
					adjustments.FlipHorizontal(m)
				}
				return m, nil
			})
		},
	}
	pf := cmd.Flags()
	pf.Bool("vertical", false, "flip top to bottom")
	pf.Bool("horizontal", false, "flip left to right")
	return cmd
}

// NewNewCmd writes a solid color bitmap
func NewNewCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "new <out.bmp>",
		Short: "create a solid color bitmap",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			width, _ := flags.GetInt("width")
			height, _ := flags.GetInt("height")
			hex, _ := flags.GetString("color")

			if width < 0 || height < 0 {
				return fmt.Errorf("invalid size %dx%d", width, height)
			}
			fill, err := parseColor(hex)
			if err != nil {
				return err
			}
			return a.save(cmd, args[0], img.New(width, height, fill))
		},
	}
	pf := cmd.Flags()
	pf.Int("width", 1, "width in pixels")
	pf.Int("height", 1, "height in pixels")
	pf.String("color", "000000", "fill color as RRGGBB hex")
	return cmd
}

// Parses RRGGBB (an optional leading # is allowed)
func parseColor(s string) (img.Color, error) {
	s = strings.TrimPrefix(s, "#")
	if len(s) != 6 {
		return img.Color{}, fmt.Errorf("invalid color %q: want RRGGBB", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return img.Color{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return img.Color{R: byte(v >> 16), G: byte(v >> 8), B: byte(v)}, nil
}

func load(cmd *cobra.Command, path string) (*img.Image, error) {
	ctx := cmd.Context()
	m, err := bmp.Load(path)
	if err != nil {
		slog.DebugContext(ctx, "load failed", "path", path, "error", err)
		return nil, err
	}
	slog.DebugContext(ctx, "loaded", "path", path, "width", m.Width(), "height", m.Height())
	return m, nil
}

func (a *app) save(cmd *cobra.Command, path string, m *img.Image) error {
	if err := bmp.SaveWith(path, m, a.encodeOptions()); err != nil {
		return err
	}
	slog.InfoContext(cmd.Context(), "saved", "path", path, "width", m.Width(), "height", m.Height())
	return nil
}

// Loads in, applies fn and saves the result to out
func (a *app) transform(cmd *cobra.Command, in, out string, fn func(*img.Image) (*img.Image, error)) error {
	m, err := load(cmd, in)
	if err != nil {
		return err
	}
	m, err = fn(m)
	if err != nil {
		return err
	}
	return a.save(cmd, out, m)
}
