package kittyimg

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"

	"github.com/llehouerou/termgfx/internal/graphics"
)

var (
	// ErrNotGraphics is returned for APC bodies that are not graphics
	// commands.
	ErrNotGraphics = errors.New("not a graphics command")
	// ErrMalformed is returned for graphics commands that cannot be parsed.
	ErrMalformed = errors.New("malformed graphics command")
)

// Parse parses an APC body of the form G<key>=<value>,...;<base64 payload>
// into a command and its decoded payload. Unknown keys are ignored.
func Parse(body []byte) (*graphics.Command, []byte, error) {
	if len(body) == 0 || body[0] != 'G' {
		return nil, nil, ErrNotGraphics
	}
	control, encoded, _ := bytes.Cut(body[1:], []byte{';'})

	cmd := &graphics.Command{}
	for kv := range bytes.SplitSeq(control, []byte{','}) {
		if len(kv) == 0 {
			continue
		}
		key, val, ok := bytes.Cut(kv, []byte{'='})
		if !ok || len(key) != 1 {
			return nil, nil, fmt.Errorf("%w: bad key %q", ErrMalformed, kv)
		}
		if err := setKey(cmd, key[0], val); err != nil {
			return nil, nil, err
		}
	}

	payload, err := decodePayload(encoded)
	if err != nil {
		return nil, nil, err
	}
	return cmd, payload, nil
}

func setKey(cmd *graphics.Command, key byte, val []byte) error {
	switch key {
	case 'a':
		c, err := char(key, val)
		cmd.Action = graphics.Action(c)
		return err
	case 't':
		c, err := char(key, val)
		cmd.Transmission = graphics.Transmission(c)
		return err
	case 'o':
		c, err := char(key, val)
		cmd.Compression = graphics.Compression(c)
		return err
	case 'f':
		n, err := uint32Value(key, val)
		cmd.Format = graphics.Format(n)
		return err
	case 'i':
		n, err := uint32Value(key, val)
		cmd.ClientID = n
		return err
	case 's':
		n, err := uint32Value(key, val)
		cmd.Width = n
		return err
	case 'v':
		n, err := uint32Value(key, val)
		cmd.Height = n
		return err
	case 'm':
		n, err := uint32Value(key, val)
		cmd.More = n == 1
		return err
	default:
		return nil
	}
}

func char(key byte, val []byte) (byte, error) {
	if len(val) != 1 {
		return 0, fmt.Errorf("%w: %c=%q is not a single character", ErrMalformed, key, val)
	}
	return val[0], nil
}

func uint32Value(key byte, val []byte) (uint32, error) {
	n, err := strconv.ParseUint(string(val), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %c=%q: %w", ErrMalformed, key, val, err)
	}
	return uint32(n), nil
}

// decodePayload accepts padded and unpadded base64.
func decodePayload(encoded []byte) ([]byte, error) {
	if len(encoded) == 0 {
		return nil, nil
	}
	enc := base64.StdEncoding
	if len(encoded)%4 != 0 {
		enc = base64.RawStdEncoding
	}
	payload := make([]byte, enc.DecodedLen(len(encoded)))
	n, err := enc.Decode(payload, encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: payload: %w", ErrMalformed, err)
	}
	return payload[:n], nil
}
