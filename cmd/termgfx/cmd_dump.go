package main

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/llehouerou/termgfx/internal/errmsg"
	"github.com/llehouerou/termgfx/internal/graphics"
)

var errImageNotLoaded = errors.New("image is not loaded")

// newDumpCmd creates the "termgfx dump" subcommand.
func newDumpCmd(load configLoader) *cobra.Command {
	var (
		id     uint32
		output string
	)

	cmd := &cobra.Command{
		Use:   "dump [stream]",
		Short: "Replay a stream and write one decoded image as PNG",
		Long:  "Replay an escape stream (a file, or stdin when omitted or \"-\") and write the\ndecoded pixels of the image with the given client id to a PNG file.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			r, closeFn, err := openStream(cmd, args)
			if err != nil {
				return err
			}
			defer closeFn()

			store, _, err := replay(cfg, r, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer store.Close()

			img, ok := store.ImageByClientID(id)
			if !ok {
				return fmt.Errorf("no image with id %d", id)
			}
			if err := writePNG(output, img); err != nil {
				return opError(errmsg.OpWriteImage, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %dx%d image %d to %s (%s)\n",
				img.Width, img.Height, id, output, humanize.IBytes(uint64(len(img.Data()))))
			return nil
		},
	}

	cmd.Flags().Uint32Var(&id, "id", 1, "client id of the image to write")
	cmd.Flags().StringVarP(&output, "output", "o", "image.png", "PNG file to write")

	return cmd
}

func writePNG(path string, img *graphics.Image) error {
	pixels, err := toNRGBA(img)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, pixels); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// toNRGBA converts stored pixel data back to an image. Decoded PNG data is
// stored bottom row first, raw pixels as transmitted.
func toNRGBA(img *graphics.Image) (*image.NRGBA, error) {
	data := img.Data()
	if data == nil {
		return nil, errImageNotLoaded
	}

	w, h := int(img.Width), int(img.Height)
	out := image.NewNRGBA(image.Rect(0, 0, w, h))

	bpp := 4
	if img.Format() == graphics.FormatRGB {
		bpp = 3
	}
	if len(data) < w*h*bpp {
		return nil, fmt.Errorf("pixel data holds %d bytes, want %d", len(data), w*h*bpp)
	}

	for y := range h {
		srcY := y
		if img.Format() == graphics.FormatPNG {
			srcY = h - 1 - y
		}
		src := data[srcY*w*bpp : (srcY+1)*w*bpp]
		dst := out.Pix[y*out.Stride : y*out.Stride+w*4]
		if bpp == 4 {
			copy(dst, src)
			continue
		}
		for x := range w {
			dst[x*4] = src[x*3]
			dst[x*4+1] = src[x*3+1]
			dst[x*4+2] = src[x*3+2]
			dst[x*4+3] = 0xff
		}
	}
	return out, nil
}
