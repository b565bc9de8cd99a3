package graphics

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/llehouerou/termgfx/internal/errmsg"
)

// inflateExact inflates a zlib stream that must produce exactly size
// bytes. A stream that ends early, runs long or fails its checksum is a
// decode error.
func inflateExact(src []byte, size int) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, newError(KindDecode, errmsg.OpInflate, err)
	}
	defer r.Close()

	out := make([]byte, size)
	if n, err := io.ReadFull(r, out); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			err = fmt.Errorf("stream ended after %d of %d bytes", n, size)
		}
		return nil, newError(KindDecode, errmsg.OpInflate, err)
	}

	var extra [1]byte
	switch n, err := io.ReadFull(r, extra[:]); {
	case n > 0:
		return nil, newError(KindDecode, errmsg.OpInflate,
			fmt.Errorf("stream holds more than %d bytes", size))
	case !errors.Is(err, io.EOF):
		return nil, newError(KindDecode, errmsg.OpInflate, err)
	}
	return out, nil
}

// inflateBounded inflates a zlib stream of unknown length, refusing to
// produce more than limit bytes.
func inflateBounded(src []byte, limit int) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return nil, newError(KindDecode, errmsg.OpInflate, err)
	}
	defer r.Close()

	out, err := io.ReadAll(io.LimitReader(r, int64(limit)+1))
	if err != nil {
		return nil, newError(KindDecode, errmsg.OpInflate, err)
	}
	if len(out) > limit {
		return nil, newError(KindResource, errmsg.OpInflate,
			fmt.Errorf("inflated data exceeds %d bytes", limit))
	}
	return out, nil
}

// decodePNG decodes a PNG into 8-bit non-premultiplied RGBA with the last
// scanline first. maxBytes bounds the decoded size and is checked against
// the header before any pixel data is decoded.
func decodePNG(src []byte, maxBytes int) (pixels []byte, width, height int, err error) {
	cfg, err := png.DecodeConfig(bytes.NewReader(src))
	if err != nil {
		return nil, 0, 0, newError(KindDecode, errmsg.OpDecodePNG, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, 0, 0, newError(KindDecode, errmsg.OpDecodePNG,
			fmt.Errorf("invalid dimensions %dx%d", cfg.Width, cfg.Height))
	}
	if uint64(cfg.Width)*uint64(cfg.Height) > uint64(maxBytes)/4 {
		return nil, 0, 0, newError(KindResource, errmsg.OpDecodePNG,
			fmt.Errorf("%dx%d image exceeds %d bytes", cfg.Width, cfg.Height, maxBytes))
	}

	img, err := png.Decode(bytes.NewReader(src))
	if err != nil {
		return nil, 0, 0, newError(KindDecode, errmsg.OpDecodePNG, err)
	}
	b := img.Bounds()
	return rgbaBottomUp(img), b.Dx(), b.Dy(), nil
}

// rgbaBottomUp flattens img into RGBA rows, last row first. 16-bit
// samples keep their high byte, gray is replicated into RGB, and images
// without alpha are filled with 0xff.
func rgbaBottomUp(img image.Image) []byte {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	stride := w * 4
	out := make([]byte, stride*h)

	for y := range h {
		row := out[(h-1-y)*stride : (h-y)*stride]
		sy := b.Min.Y + y

		switch src := img.(type) {
		case *image.NRGBA:
			off := src.PixOffset(b.Min.X, sy)
			copy(row, src.Pix[off:off+stride])

		case *image.NRGBA64:
			off := src.PixOffset(b.Min.X, sy)
			for x := range w * 4 {
				row[x] = src.Pix[off+2*x]
			}

		case *image.Gray:
			off := src.PixOffset(b.Min.X, sy)
			for x := range w {
				v := src.Pix[off+x]
				row[4*x], row[4*x+1], row[4*x+2], row[4*x+3] = v, v, v, 0xff
			}

		case *image.Gray16:
			off := src.PixOffset(b.Min.X, sy)
			for x := range w {
				v := src.Pix[off+2*x]
				row[4*x], row[4*x+1], row[4*x+2], row[4*x+3] = v, v, v, 0xff
			}

		default:
			for x := range w {
				c := color.NRGBAModel.Convert(img.At(b.Min.X+x, sy)).(color.NRGBA)
				row[4*x], row[4*x+1], row[4*x+2], row[4*x+3] = c.R, c.G, c.B, c.A
			}
		}
	}
	return out
}
