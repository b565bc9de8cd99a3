package main

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zlib"
	"github.com/nfnt/resize"
	"github.com/spf13/cobra"

	"github.com/llehouerou/termgfx/internal/errmsg"
	"github.com/llehouerou/termgfx/internal/graphics"
	"github.com/llehouerou/termgfx/internal/kittyimg"
)

// Typical cell is about 8x16 pixels.
const (
	defaultCellWidth  = 8
	defaultCellHeight = 16
)

type sendOptions struct {
	id       uint32
	format   string
	compress bool
	medium   string
	fit      string
	quiet    int
}

// newSendCmd creates the "termgfx send" subcommand.
func newSendCmd(load configLoader) *cobra.Command {
	var opts sendOptions

	cmd := &cobra.Command{
		Use:   "send <image>",
		Short: "Write an image as kitty graphics escape sequences",
		Long: "Decode a PNG, JPEG or GIF file and write the escape sequences transmitting it.\n" +
			"Pixels are sent inline by default; --medium f, t or s writes them to a file,\n" +
			"a temporary file or a shared-memory object and sends its name instead.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			seq, err := buildTransmission(args[0], opts, cfg.GetGraphicsConfig().ShmDir)
			if err != nil {
				return opError(errmsg.OpEncodeImage, err)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), seq)
			return err
		},
	}

	cmd.Flags().Uint32Var(&opts.id, "id", 1, "client image id (0 for anonymous)")
	cmd.Flags().StringVar(&opts.format, "format", "png", "pixel format: png, rgba or rgb")
	cmd.Flags().BoolVar(&opts.compress, "compress", false, "zlib-compress the payload")
	cmd.Flags().StringVar(&opts.medium, "medium", "d", "transmission medium: d (inline), f (file), t (temporary file) or s (shared memory)")
	cmd.Flags().StringVar(&opts.fit, "fit", "", "scale down to fit COLSxROWS terminal cells")
	cmd.Flags().IntVar(&opts.quiet, "quiet", 0, "suppress terminal responses: 1 for OK, 2 for errors too")

	return cmd
}

// buildTransmission returns the escape sequences transmitting the image at
// path.
func buildTransmission(path string, opts sendOptions, shmDir string) (string, error) {
	img, err := decodeImageFile(path)
	if err != nil {
		return "", err
	}

	if opts.fit != "" {
		cols, rows, err := parseCells(opts.fit)
		if err != nil {
			return "", err
		}
		cellW, cellH := cellSize()
		//nolint:gosec // cell counts and sizes are small, no overflow risk
		img = resize.Thumbnail(uint(cols*cellW), uint(rows*cellH), img, resize.Lanczos3)
	}

	t := kittyimg.Transmit{ID: opts.id, Quiet: opts.quiet}
	payload, err := encodePixels(img, opts.format, &t)
	if err != nil {
		return "", err
	}

	if opts.compress {
		payload, err = deflate(payload)
		if err != nil {
			return "", err
		}
		t.Compression = graphics.CompressionZlib
	}

	switch opts.medium {
	case "d", "":
		return kittyimg.Encode(payload, t), nil
	case "f":
		name, err := writeTemp("", "termgfx-*.bin", payload)
		if err != nil {
			return "", err
		}
		return kittyimg.EncodePath(name, graphics.TransmitFile, t), nil
	case "t":
		// Terminals only delete temporary files whose name says so.
		name, err := writeTemp("", "tty-graphics-protocol-*", payload)
		if err != nil {
			return "", err
		}
		return kittyimg.EncodePath(name, graphics.TransmitTempFile, t), nil
	case "s":
		name := fmt.Sprintf("termgfx-%d-%d", os.Getpid(), opts.id)
		if err := os.WriteFile(filepath.Join(shmDir, name), payload, 0o600); err != nil {
			return "", fmt.Errorf("write shared memory: %w", err)
		}
		return kittyimg.EncodePath(name, graphics.TransmitShm, t), nil
	default:
		return "", fmt.Errorf("unknown medium %q", opts.medium)
	}
}

func decodeImageFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return img, nil
}

// parseCells parses "COLSxROWS".
func parseCells(s string) (cols, rows int, err error) {
	c, r, ok := strings.Cut(strings.ToLower(s), "x")
	if !ok {
		return 0, 0, fmt.Errorf("invalid cell size %q, want COLSxROWS", s)
	}
	cols, err = strconv.Atoi(c)
	if err != nil || cols <= 0 {
		return 0, 0, fmt.Errorf("invalid cell size %q, want COLSxROWS", s)
	}
	rows, err = strconv.Atoi(r)
	if err != nil || rows <= 0 {
		return 0, 0, fmt.Errorf("invalid cell size %q, want COLSxROWS", s)
	}
	return cols, rows, nil
}

// encodePixels serializes img in the requested format and fills in the
// format and geometry of t.
func encodePixels(img image.Image, format string, t *kittyimg.Transmit) ([]byte, error) {
	switch format {
	case "png":
		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, fmt.Errorf("encode png: %w", err)
		}
		t.Format = graphics.FormatPNG
		return buf.Bytes(), nil
	case "rgba", "rgb":
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}

	b := img.Bounds()
	nrgba := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(nrgba, nrgba.Bounds(), img, b.Min, draw.Src)
	t.Width, t.Height = b.Dx(), b.Dy()

	if format == "rgba" {
		t.Format = graphics.FormatRGBA
		return nrgba.Pix, nil
	}

	t.Format = graphics.FormatRGB
	out := make([]byte, 0, b.Dx()*b.Dy()*3)
	for i := 0; i < len(nrgba.Pix); i += 4 {
		out = append(out, nrgba.Pix[i], nrgba.Pix[i+1], nrgba.Pix[i+2])
	}
	return out, nil
}

func deflate(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}
	return buf.Bytes(), nil
}

func writeTemp(dir, pattern string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", err
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
