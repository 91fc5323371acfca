package transport

import (
	"errors"
	"fmt"
)

// Connection errors. Use errors.Is to test for them; every *Error also
// matches the sentinel of its Kind.
var (
	// ErrCreateFailed is returned when the socket or dialer cannot be built,
	// e.g. for an invalid address.
	ErrCreateFailed = errors.New("failed to create connection")

	// ErrConnectFailed is returned when the remote end cannot be reached.
	ErrConnectFailed = errors.New("failed to connect")

	// ErrIOFailed is returned when a send or receive fails.
	ErrIOFailed = errors.New("connection I/O failed")

	// ErrRemoteClosed is returned when the remote end closed the connection
	// in an orderly way. It also matches ErrIOFailed.
	ErrRemoteClosed = errors.New("connection closed by remote")

	// ErrTimeout is returned when a receive exceeds the read timeout.
	// It also matches ErrIOFailed.
	ErrTimeout = errors.New("receive timed out")

	// ErrInterrupted is returned by a receive that was unblocked by
	// Interrupt. It also matches ErrIOFailed.
	ErrInterrupted = errors.New("receive interrupted")

	// ErrBroken is returned for any use of a Conn after it has broken.
	ErrBroken = errors.New("connection is broken")

	// ErrNotConnected is returned by Send and ReceiveMore before Connect.
	ErrNotConnected = errors.New("connection is not established")

	// ErrInvalidProxyAddress is returned when the SOCKS5 proxy address is not
	// in host:port form.
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")
)

// Kind classifies an *Error.
type Kind int

const (
	// KindCreate means the connection could not be created.
	KindCreate Kind = iota

	// KindConnect means the connection could not be established.
	KindConnect

	// KindIO means a send or receive failed.
	KindIO
)

// String returns a short name for the kind.
func (k Kind) String() string {
	switch k {
	case KindCreate:
		return "create"
	case KindConnect:
		return "connect"
	case KindIO:
		return "io"
	default:
		return "unknown"
	}
}

// sentinel returns the package error matching k.
func (k Kind) sentinel() error {
	switch k {
	case KindCreate:
		return ErrCreateFailed
	case KindConnect:
		return ErrConnectFailed
	default:
		return ErrIOFailed
	}
}

// Error is a connection failure.
type Error struct {
	// Kind classifies the failure.
	Kind Kind

	// Op is the operation that failed ("dial", "send", "receive").
	Op string

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind.sentinel())
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind.sentinel(), e.Err)
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for e.Kind.
func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}
