//go:build !unix

package graphics

import (
	"errors"

	"github.com/llehouerou/termgfx/internal/errmsg"
)

type mapping struct {
	data []byte
}

func (m *mapping) close() error {
	m.data = nil
	return nil
}

func mapFile(path string) (*mapping, error) {
	return nil, pathError(KindTransport, errmsg.OpMapFile, path,
		errors.New("file transmission is not supported on this platform"))
}

func unlinkPath(string) {}
