package graphics

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/png"
	"testing"

	"github.com/klauspost/compress/zlib"
	"github.com/stretchr/testify/require"
)

// recorder collects reported errors.
type recorder struct {
	errs []error
}

func (r *recorder) Report(err error) { r.errs = append(r.errs, err) }

func newTestStore(t *testing.T, opts ...Option) (*Store, *recorder) {
	t.Helper()
	rec := &recorder{}
	s := New(24, 80, append([]Option{WithReporter(rec)}, opts...)...)
	t.Cleanup(s.Close)
	return s, rec
}

// pattern returns n bytes that differ from their neighbours.
func pattern(n int, seed byte) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7) + seed
	}
	return b
}

func rgbaCommand(id, w, h uint32) *Command {
	return &Command{Action: ActionTransmit, ClientID: id, Format: FormatRGBA, Width: w, Height: h}
}

func deflate(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	_, err := zw.Write(data)
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

type pngChunk struct {
	typ  string
	data []byte
}

// buildPNG assembles a PNG by hand, for color types and bit depths the
// standard encoder never emits. Each row is filtered with filter type 0.
func buildPNG(t *testing.T, w, h int, colorType, bitDepth byte, rows [][]byte, extra ...pngChunk) []byte {
	t.Helper()
	var out bytes.Buffer
	out.WriteString("\x89PNG\r\n\x1a\n")

	writeChunk := func(c pngChunk) {
		var hdr [8]byte
		binary.BigEndian.PutUint32(hdr[:4], uint32(len(c.data)))
		copy(hdr[4:], c.typ)
		out.Write(hdr[:])
		out.Write(c.data)
		crc := crc32.NewIEEE()
		crc.Write([]byte(c.typ))
		crc.Write(c.data)
		var sum [4]byte
		binary.BigEndian.PutUint32(sum[:], crc.Sum32())
		out.Write(sum[:])
	}

	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:4], uint32(w))
	binary.BigEndian.PutUint32(ihdr[4:8], uint32(h))
	ihdr[8] = bitDepth
	ihdr[9] = colorType
	writeChunk(pngChunk{"IHDR", ihdr})
	for _, c := range extra {
		writeChunk(c)
	}

	var raw []byte
	for _, row := range rows {
		raw = append(raw, 0)
		raw = append(raw, row...)
	}
	writeChunk(pngChunk{"IDAT", deflate(t, raw)})
	writeChunk(pngChunk{"IEND", nil})
	return out.Bytes()
}

// pixelAt returns the RGBA pixel at (x, row) of a bottom-up buffer.
func pixelAt(data []byte, w, x, row int) [4]byte {
	off := (row*w + x) * 4
	return [4]byte{data[off], data[off+1], data[off+2], data[off+3]}
}
