package graphics

import (
	"errors"
	"path/filepath"
	"strings"

	"github.com/llehouerou/termgfx/internal/errmsg"
)

// readTransport maps the file, temporary file or shared-memory object
// named by payload. Temporary files and shared-memory objects are unlinked
// once opened, whether or not the mapping succeeded.
func (s *Store) readTransport(tt Transmission, payload []byte) (*mapping, error) {
	if !s.limits.AllowFileTransport {
		return nil, protocolErrorf(errmsg.OpTransmit, "%s transmission is disabled", tt)
	}

	name := strings.TrimRight(string(payload), "\x00")
	if name == "" {
		return nil, protocolErrorf(errmsg.OpTransmit, "empty %s name", tt)
	}

	path := name
	if tt == TransmitShm {
		var err error
		if path, err = s.shmPath(name); err != nil {
			return nil, err
		}
	}

	m, err := mapFile(path)
	if tt == TransmitTempFile || tt == TransmitShm {
		var e *Error
		if err == nil || !errors.As(err, &e) || e.Op != errmsg.OpOpenFile {
			unlinkPath(path)
		}
	}
	return m, err
}

// shmPath resolves a POSIX shared-memory object name to its path under
// the shared-memory directory. Names follow shm_open rules: an optional
// leading slash and no other slashes.
func (s *Store) shmPath(name string) (string, error) {
	trimmed := strings.TrimPrefix(name, "/")
	if trimmed == "" || strings.Contains(trimmed, "/") || trimmed == "." || trimmed == ".." {
		return "", protocolErrorf(errmsg.OpOpenShm, "invalid shared memory name %q", name)
	}
	return filepath.Join(s.limits.ShmDir, trimmed), nil
}
