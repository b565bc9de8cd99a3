package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llehouerou/termgfx/internal/graphics"
	"github.com/llehouerou/termgfx/internal/kittyimg"
)

// runCmd executes the root command with an empty configuration file.
func runCmd(t *testing.T, stdin string, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	cfgPath := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("[log]\nlevel = \"warn\"\n"), 0o600))

	root := newRootCmd()
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(append([]string{"--config", cfgPath}, args...))

	err = root.Execute()
	return out.String(), errOut.String(), err
}

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 40), G: uint8(y * 60), B: 200, A: 255})
		}
	}
	return img
}

func writeImage(t *testing.T, img image.Image) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.png")
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o600))
	return path
}

func feed(t *testing.T, stream string) *graphics.Store {
	t.Helper()
	store := graphics.New(24, 80)
	t.Cleanup(store.Close)
	stats, err := kittyimg.Feed(strings.NewReader(stream), store, nil)
	require.NoError(t, err)
	require.Zero(t, stats.Failed)
	require.Zero(t, stats.Malformed)
	return store
}

func TestSend_RGBA(t *testing.T) {
	src := gradient(6, 4)
	out, _, err := runCmd(t, "", "send", writeImage(t, src), "--format", "rgba", "--id", "7")
	require.NoError(t, err)

	img, ok := feed(t, out).ImageByClientID(7)
	require.True(t, ok)
	assert.Equal(t, uint32(6), img.Width)
	assert.Equal(t, uint32(4), img.Height)
	assert.Equal(t, src.Pix, img.Data())
}

func TestSend_RGBCompressed(t *testing.T) {
	src := gradient(5, 3)
	out, _, err := runCmd(t, "", "send", writeImage(t, src), "--format", "rgb", "--compress")
	require.NoError(t, err)
	assert.Contains(t, out, "o=z")

	img, ok := feed(t, out).ImageByClientID(1)
	require.True(t, ok)
	require.Len(t, img.Data(), 5*3*3)
	assert.False(t, img.Is4ByteAligned())
	assert.Equal(t, []byte{src.Pix[4], src.Pix[5], src.Pix[6]}, img.Data()[3:6])
}

func TestSend_Fit(t *testing.T) {
	out, _, err := runCmd(t, "", "send", writeImage(t, gradient(256, 256)), "--format", "rgba", "--fit", "1x1")
	require.NoError(t, err)

	img, ok := feed(t, out).ImageByClientID(1)
	require.True(t, ok)
	assert.Equal(t, img.Width, img.Height)
	assert.Less(t, img.Width, uint32(256))
}

func TestSend_Errors(t *testing.T) {
	path := writeImage(t, gradient(2, 2))

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "unknown format", args: []string{"send", path, "--format", "bmp"}, want: "unknown format"},
		{name: "unknown medium", args: []string{"send", path, "--medium", "x"}, want: "unknown medium"},
		{name: "bad fit", args: []string{"send", path, "--fit", "ten"}, want: "invalid cell size"},
		{name: "missing file", args: []string{"send", filepath.Join(t.TempDir(), "nope.png")}, want: "Failed to encode image"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCmd(t, "", tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestReplay_Summary(t *testing.T) {
	seq, _, err := runCmd(t, "", "send", writeImage(t, gradient(6, 4)), "--id", "3")
	require.NoError(t, err)
	// A chunked upload without a format, a foreign APC and a malformed command.
	stream := seq + "\x1b_Gm=1;AAAA\x1b\\" + "\x1b_Gm=0;AAAA\x1b\\" + "\x1b_Pnoise\x1b\\" + "\x1b_Gi=x;\x1b\\"

	out, stderr, err := runCmd(t, stream, "replay")
	require.NoError(t, err)

	assert.Contains(t, out, "handled 2, failed 1, malformed 1, ignored 1")
	assert.Contains(t, out, "6x4")
	assert.Contains(t, out, "png")
	assert.Contains(t, out, "96 B")
	assert.Contains(t, out, "loaded")
	assert.Contains(t, out, "partial")
	assert.Contains(t, stderr, "Failed to parse graphics command")
	assert.Contains(t, stderr, "unknown image format")
}

func TestReplay_FromFile(t *testing.T) {
	seq, _, err := runCmd(t, "", "send", writeImage(t, gradient(2, 2)), "--format", "rgba", "--id", "4")
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "stream.bin")
	require.NoError(t, os.WriteFile(path, []byte("$ cat img\n"+seq), 0o600))

	out, _, err := runCmd(t, "", "replay", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Images (1 of 64 slots)")
	assert.Contains(t, out, "rgba")
}

func TestReplay_Empty(t *testing.T) {
	out, _, err := runCmd(t, "no graphics here", "replay")
	require.NoError(t, err)
	assert.Contains(t, out, "none")
}

func TestDump_RoundTrip(t *testing.T) {
	for _, format := range []string{"png", "rgba", "rgb"} {
		t.Run(format, func(t *testing.T) {
			src := gradient(7, 5)
			seq, _, err := runCmd(t, "", "send", writeImage(t, src), "--format", format, "--id", "9")
			require.NoError(t, err)

			outPath := filepath.Join(t.TempDir(), "out.png")
			out, _, err := runCmd(t, seq, "dump", "--id", "9", "-o", outPath)
			require.NoError(t, err)
			assert.Contains(t, out, "Wrote 7x5 image 9")

			f, err := os.Open(outPath)
			require.NoError(t, err)
			defer f.Close()
			decoded, err := png.Decode(f)
			require.NoError(t, err)

			for y := range 5 {
				for x := range 7 {
					want := src.NRGBAAt(x, y)
					got := color.NRGBAModel.Convert(decoded.At(x, y)).(color.NRGBA)
					assert.Equal(t, want, got, "pixel %d,%d", x, y)
				}
			}
		})
	}
}

func TestDump_MissingImage(t *testing.T) {
	_, _, err := runCmd(t, "", "dump", "--id", "5", "-o", filepath.Join(t.TempDir(), "x.png"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no image with id 5")
}

func TestDump_NotLoaded(t *testing.T) {
	// First chunk of a chunked upload that never completes.
	stream := "\x1b_Ga=t,f=32,i=2,s=2,v=2,m=1;AAAA\x1b\\"

	_, _, err := runCmd(t, stream, "dump", "--id", "2", "-o", filepath.Join(t.TempDir(), "x.png"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to write image: image is not loaded")
}

func TestParseCells(t *testing.T) {
	tests := []struct {
		in         string
		cols, rows int
		wantErr    bool
	}{
		{in: "10x5", cols: 10, rows: 5},
		{in: "3X2", cols: 3, rows: 2},
		{in: "10", wantErr: true},
		{in: "0x5", wantErr: true},
		{in: "ax5", wantErr: true},
		{in: "5x-1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			cols, rows, err := parseCells(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.cols, cols)
			assert.Equal(t, tt.rows, rows)
		})
	}
}

func TestBadConfig(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "missing.toml"), "replay"})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to load configuration")
}
