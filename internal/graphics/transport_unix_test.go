//go:build unix

package graphics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func fileCommand(tt Transmission, id, w, h uint32) *Command {
	cmd := rgbaCommand(id, w, h)
	cmd.Transmission = tt
	return cmd
}

func TestTransport_File(t *testing.T) {
	s, rec := newTestStore(t)
	data := pattern(2*2*4, 0)
	path := writeFile(t, t.TempDir(), "image.rgba", data)

	require.NoError(t, s.HandleCommand(fileCommand(TransmitFile, 1, 2, 2), []byte(path)))

	img, _ := s.ImageByClientID(1)
	assert.True(t, img.Loaded())
	assert.Equal(t, data, img.Data())
	assert.Equal(t, stagingMapped, img.load.kind)
	assert.FileExists(t, path, "regular files are left in place")
	assert.Empty(t, rec.errs)
}

func TestTransport_FileIgnoresMoreFlag(t *testing.T) {
	s, _ := newTestStore(t)
	data := pattern(4, 0)
	path := writeFile(t, t.TempDir(), "image.rgba", data)
	cmd := fileCommand(TransmitFile, 1, 1, 1)
	cmd.More = true

	require.NoError(t, s.HandleCommand(cmd, []byte(path)))

	img, _ := s.ImageByClientID(1)
	assert.True(t, img.Loaded())
	assert.Zero(t, s.InProgress())
}

func TestTransport_TempFileIsUnlinked(t *testing.T) {
	s, _ := newTestStore(t)
	data := pattern(3*1*4, 0)
	path := writeFile(t, t.TempDir(), "tty-graphics-protocol-1", data)

	require.NoError(t, s.HandleCommand(fileCommand(TransmitTempFile, 1, 3, 1), []byte(path)))

	img, _ := s.ImageByClientID(1)
	assert.True(t, img.Loaded())
	assert.Equal(t, data, img.Data(), "mapping outlives the unlinked file")
	assert.NoFileExists(t, path)
}

func TestTransport_SharedMemory(t *testing.T) {
	shm := t.TempDir()
	s, _ := newTestStore(t, WithLimits(Limits{ShmDir: shm, AllowFileTransport: true}))
	data := pattern(2*2*4, 5)
	writeFile(t, shm, "termgfx-shm-1", data)

	require.NoError(t, s.HandleCommand(fileCommand(TransmitShm, 1, 2, 2), []byte("/termgfx-shm-1")))

	img, _ := s.ImageByClientID(1)
	assert.True(t, img.Loaded())
	assert.Equal(t, data, img.Data())
	assert.NoFileExists(t, filepath.Join(shm, "termgfx-shm-1"))
}

func TestTransport_SharedMemoryInvalidName(t *testing.T) {
	s, _ := newTestStore(t, WithLimits(Limits{ShmDir: t.TempDir(), AllowFileTransport: true}))

	for _, name := range []string{"/", "/a/b", "..", "/../etc"} {
		err := s.HandleCommand(fileCommand(TransmitShm, 1, 1, 1), []byte(name))
		assert.ErrorIs(t, err, ErrProtocol, "name %q", name)
	}
}

func TestTransport_CompressedFile(t *testing.T) {
	s, _ := newTestStore(t)
	pixels := pattern(4*4*4, 2)
	path := writeFile(t, t.TempDir(), "image.z", deflate(t, pixels))
	cmd := fileCommand(TransmitFile, 1, 4, 4)
	cmd.Compression = CompressionZlib

	require.NoError(t, s.HandleCommand(cmd, []byte(path)))

	img, _ := s.ImageByClientID(1)
	assert.Equal(t, pixels, img.Data())
	assert.Equal(t, stagingInline, img.load.kind, "decoded data replaces the mapping")
}

func TestTransport_Errors(t *testing.T) {
	dir := t.TempDir()
	empty := writeFile(t, dir, "empty", nil)
	short := writeFile(t, dir, "short", pattern(15, 0))

	tests := []struct {
		name    string
		payload string
		kind    error
		want    string
	}{
		{name: "missing file", payload: filepath.Join(dir, "missing"), kind: ErrTransport, want: "Failed to open image file '" + filepath.Join(dir, "missing") + "': "},
		{name: "empty file", payload: empty, kind: ErrTransport, want: "Failed to map image file '" + empty + "': file is empty"},
		{name: "directory", payload: dir, kind: ErrTransport},
		{name: "empty name", payload: "", kind: ErrProtocol, want: "empty file name"},
		{name: "insufficient data", payload: short, kind: ErrProtocol, want: "insufficient image data: 15 < 16"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, rec := newTestStore(t)

			err := s.HandleCommand(fileCommand(TransmitFile, 1, 2, 2), []byte(tt.payload))

			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			if tt.want != "" {
				assert.Contains(t, err.Error(), tt.want)
			}
			assert.Len(t, rec.errs, 1)
			img, _ := s.ImageByClientID(1)
			assert.False(t, img.Loaded())
		})
	}
}

func TestTransport_MissingTempFile(t *testing.T) {
	s, _ := newTestStore(t)
	path := filepath.Join(t.TempDir(), "missing")

	err := s.HandleCommand(fileCommand(TransmitTempFile, 1, 1, 1), []byte(path))

	assert.ErrorIs(t, err, ErrTransport)
}

func TestTransport_Disabled(t *testing.T) {
	s, _ := newTestStore(t, WithLimits(Limits{AllowFileTransport: false}))
	path := writeFile(t, t.TempDir(), "tmp", pattern(4, 0))

	err := s.HandleCommand(fileCommand(TransmitTempFile, 1, 1, 1), []byte(path))

	assert.ErrorIs(t, err, ErrProtocol)
	assert.FileExists(t, path)
}

func TestTransport_ReuseReleasesMapping(t *testing.T) {
	s, _ := newTestStore(t)
	dir := t.TempDir()
	first := writeFile(t, dir, "a", pattern(4, 1))
	second := writeFile(t, dir, "b", pattern(4, 2))

	require.NoError(t, s.HandleCommand(fileCommand(TransmitFile, 1, 1, 1), []byte(first)))
	img, _ := s.ImageByClientID(1)
	old := img.load.mapping

	require.NoError(t, s.HandleCommand(fileCommand(TransmitFile, 1, 1, 1), []byte(second)))

	assert.Nil(t, old.data, "previous mapping is unmapped")
	assert.Equal(t, pattern(4, 2), img.Data())
}
