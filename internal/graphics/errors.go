package graphics

import (
	"errors"
	"fmt"

	"github.com/llehouerou/termgfx/internal/errmsg"
)

// Kind classifies a failure.
type Kind int

const (
	// KindTransport covers open, stat and map failures on file transports.
	KindTransport Kind = iota + 1
	// KindProtocol covers malformed or out-of-sequence commands.
	KindProtocol
	// KindDecode covers corrupt compressed streams and PNG data.
	KindDecode
	// KindResource covers allocations the store refuses to make.
	KindResource
)

// Sentinels for errors.Is matching on a Kind.
var (
	ErrTransport         = errors.New("transport error")
	ErrProtocol          = errors.New("protocol error")
	ErrDecode            = errors.New("decode error")
	ErrResourceExhausted = errors.New("resource exhausted")
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindProtocol:
		return "protocol"
	case KindDecode:
		return "decode"
	case KindResource:
		return "resource"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindTransport:
		return ErrTransport
	case KindProtocol:
		return ErrProtocol
	case KindDecode:
		return ErrDecode
	case KindResource:
		return ErrResourceExhausted
	default:
		return nil
	}
}

// Error is returned (and reported) for every failed command.
type Error struct {
	Kind Kind
	Op   errmsg.Op
	// Context names what the operation worked on, such as a file path.
	Context string
	Err     error
}

func (e *Error) Error() string {
	return errmsg.FormatWith(e.Op, e.Context, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the Kind sentinels.
func (e *Error) Is(target error) bool {
	return target != nil && target == e.Kind.sentinel()
}

// NewError returns an *Error, for collaborators that report failures
// through the same Reporter.
func NewError(kind Kind, op errmsg.Op, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func newError(kind Kind, op errmsg.Op, err error) *Error {
	return NewError(kind, op, err)
}

func pathError(kind Kind, op errmsg.Op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Context: path, Err: err}
}

func protocolErrorf(op errmsg.Op, format string, args ...any) *Error {
	return newError(KindProtocol, op, fmt.Errorf(format, args...))
}

// KindOf returns the Kind of err, or 0 if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}
