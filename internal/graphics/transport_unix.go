//go:build unix

package graphics

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/llehouerou/termgfx/internal/errmsg"
)

// mapping is a private read-only memory map of a whole file.
type mapping struct {
	data []byte
}

func (m *mapping) close() error {
	if m.data == nil {
		return nil
	}
	err := unix.Munmap(m.data)
	m.data = nil
	return err
}

// mapFile opens path read-only and maps all of it. The descriptor is
// closed before returning whether or not the mapping succeeded; the
// mapping stays valid after that and after the path is unlinked.
func mapFile(path string) (*mapping, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, pathError(KindTransport, errmsg.OpOpenFile, path, err)
	}
	defer unix.Close(fd)

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		return nil, pathError(KindTransport, errmsg.OpStatFile, path, err)
	}
	if st.Size <= 0 {
		return nil, pathError(KindTransport, errmsg.OpMapFile, path, errEmptyFile)
	}
	if uint64(st.Size) > uint64(maxInt) {
		return nil, pathError(KindResource, errmsg.OpMapFile, path, fmt.Errorf("%d bytes", st.Size))
	}

	data, err := unix.Mmap(fd, 0, int(st.Size), unix.PROT_READ, unix.MAP_PRIVATE)
	if err != nil {
		return nil, pathError(KindTransport, errmsg.OpMapFile, path, err)
	}
	return &mapping{data: data}, nil
}

// unlinkPath removes a temporary file or shared-memory object from its
// namespace. Failures are ignored: the mapping no longer depends on it.
func unlinkPath(path string) {
	_ = unix.Unlink(path)
}

var errEmptyFile = errors.New("file is empty")
