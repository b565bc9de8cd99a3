// Package graphics implements the terminal side of the kitty graphics
// protocol: an image store fed by transmit commands, with chunked inline
// uploads, file and shared-memory transports, and zlib/PNG decoding into
// display-ready RGBA buffers.
package graphics

import "fmt"

// Action selects what a command does.
type Action byte

// Transmission selects how payload bytes are delivered.
type Transmission byte

// Compression selects how the payload is compressed.
type Compression byte

// Format selects the pixel encoding of the payload.
type Format uint32

const (
	ActionNone     Action = 0 // treated as transmit
	ActionTransmit Action = 't'

	TransmitDefault  Transmission = 0 // treated as direct
	TransmitDirect   Transmission = 'd'
	TransmitFile     Transmission = 'f'
	TransmitTempFile Transmission = 't'
	TransmitShm      Transmission = 's'

	CompressionNone Compression = 0
	CompressionZlib Compression = 'z'

	FormatRGB  Format = 24
	FormatRGBA Format = 32
	FormatPNG  Format = 100
)

// Command is one parsed graphics command.
type Command struct {
	Action       Action
	ClientID     uint32
	Transmission Transmission
	Compression  Compression
	Format       Format
	Width        uint32
	Height       uint32
	// More is set when further inline chunks follow this one.
	More bool
}

// transmission resolves the default transmission type.
func (c *Command) transmission() Transmission {
	if c.Transmission == TransmitDefault {
		return TransmitDirect
	}
	return c.Transmission
}

func (a Action) String() string {
	if a == ActionNone {
		return "none"
	}
	return fmt.Sprintf("%q", rune(a))
}

func (t Transmission) String() string {
	switch t {
	case TransmitDefault, TransmitDirect:
		return "direct"
	case TransmitFile:
		return "file"
	case TransmitTempFile:
		return "temporary file"
	case TransmitShm:
		return "shared memory"
	default:
		return fmt.Sprintf("unknown(%q)", rune(t))
	}
}

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionZlib:
		return "zlib"
	default:
		return fmt.Sprintf("unknown(%q)", rune(c))
	}
}

func (f Format) String() string {
	switch f {
	case FormatRGB:
		return "rgb"
	case FormatRGBA:
		return "rgba"
	case FormatPNG:
		return "png"
	default:
		return fmt.Sprintf("unknown(%d)", uint32(f))
	}
}

// bytesPerPixel returns the decoded pixel size for a format, or 0 if the
// format is unknown. PNG always decodes to RGBA.
func (f Format) bytesPerPixel() int {
	switch f {
	case FormatRGB:
		return 3
	case FormatRGBA, FormatPNG:
		return 4
	default:
		return 0
	}
}
