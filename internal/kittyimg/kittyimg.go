// Package kittyimg encodes and parses Kitty terminal graphics protocol
// escape sequences.
package kittyimg

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/llehouerou/termgfx/internal/graphics"
)

// Kitty graphics protocol escape sequences
const (
	escStart = "\x1b_G"
	escEnd   = "\x1b\\"

	chunkSize = 4096 // Max base64 bytes per escape sequence chunk
)

// Transmit describes one image transmission.
type Transmit struct {
	ID          uint32
	Format      graphics.Format
	Compression graphics.Compression
	// Width and Height are in pixels. They may be left at 0 for PNG.
	Width  int
	Height int
	// Quiet suppresses terminal responses: 1 for OK, 2 for errors too.
	Quiet int
}

// keys returns the control keys carried by the first chunk.
func (t Transmit) keys(medium graphics.Transmission) string {
	var sb strings.Builder
	sb.WriteString("a=t")
	fmt.Fprintf(&sb, ",f=%d", uint32(t.Format))
	if medium != graphics.TransmitDefault && medium != graphics.TransmitDirect {
		fmt.Fprintf(&sb, ",t=%c", byte(medium))
	}
	if t.Compression != graphics.CompressionNone {
		fmt.Fprintf(&sb, ",o=%c", byte(t.Compression))
	}
	if t.ID != 0 {
		fmt.Fprintf(&sb, ",i=%d", t.ID)
	}
	if t.Width > 0 {
		fmt.Fprintf(&sb, ",s=%d", t.Width)
	}
	if t.Height > 0 {
		fmt.Fprintf(&sb, ",v=%d", t.Height)
	}
	if t.Quiet > 0 {
		fmt.Fprintf(&sb, ",q=%d", t.Quiet)
	}
	return sb.String()
}

// Encode returns the escape sequences transmitting data inline. Large
// payloads are split into chunks; only the first carries the control keys
// and every chunk but the last has m=1.
func Encode(data []byte, t Transmit) string {
	encoded := base64.StdEncoding.EncodeToString(data)
	keys := t.keys(graphics.TransmitDirect)

	var sb strings.Builder
	for i := 0; i == 0 || i < len(encoded); i += chunkSize {
		end := min(i+chunkSize, len(encoded))
		chunk := encoded[i:end]

		// m=1 means more chunks follow, m=0 means last chunk
		more := 0
		if end < len(encoded) {
			more = 1
		}

		sb.WriteString(escStart)
		if i == 0 {
			// First chunk includes all parameters
			fmt.Fprintf(&sb, "%s,m=%d;", keys, more)
		} else {
			// Subsequent chunks only have m parameter
			fmt.Fprintf(&sb, "m=%d;", more)
		}
		sb.WriteString(chunk)
		sb.WriteString(escEnd)
	}
	return sb.String()
}

// EncodePath returns the escape sequence asking the terminal to read the
// image from a file, temporary file or shared-memory object.
func EncodePath(name string, medium graphics.Transmission, t Transmit) string {
	return escStart + t.keys(medium) + ";" +
		base64.StdEncoding.EncodeToString([]byte(name)) + escEnd
}

// EncodeImage encodes img as PNG and returns the inline transmission.
func EncodeImage(img image.Image, id uint32) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode png: %w", err)
	}
	return Encode(buf.Bytes(), Transmit{ID: id, Format: graphics.FormatPNG, Quiet: 2}), nil
}
