// Package errmsg provides consistent error formatting for reported failures.
package errmsg

import "fmt"

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by domain.
const (
	// Command handling
	OpDispatch Op = "handle graphics command"
	OpTransmit Op = "transmit image"
	OpContinue Op = "continue chunked upload"

	// Transports
	OpOpenFile Op = "open image file"
	OpStatFile Op = "stat image file"
	OpMapFile  Op = "map image file"
	OpOpenShm  Op = "open shared memory"

	// Decoding
	OpInflate   Op = "inflate image data"
	OpDecodePNG Op = "decode PNG data"

	// Wire format
	OpParseCommand Op = "parse graphics command"
	OpEncodeImage  Op = "encode image"

	// Tooling
	OpLoadConfig Op = "load configuration"
	OpReadStream Op = "read escape stream"
	OpWriteImage Op = "write image"
)

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %v", op, err)
}

// FormatWith creates an error message with additional context.
func FormatWith(op Op, context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Format(op, err)
	}
	return fmt.Sprintf("Failed to %s '%s': %v", op, context, err)
}
