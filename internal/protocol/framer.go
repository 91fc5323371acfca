package protocol

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/nao1215/jurisdata/internal/transport"
)

// DefaultBlockSize is the initial receive buffer capacity.
const DefaultBlockSize = 4096

// Complete reports whether data holds a balanced JSON document.
//
// One pass tracks brace depth and bracket depth outside of strings. A quote
// not preceded by a backslash toggles string mode; inside a string nothing
// else counts. An empty buffer is complete.
func Complete(data []byte) bool {
	braceDepth, bracketDepth := 0, 0
	inString := false
	var lastChar byte

	for _, ch := range data {
		if inString {
			if ch == '"' && lastChar != '\\' {
				inString = false
			}
		} else {
			switch ch {
			case '{':
				braceDepth++
			case '}':
				braceDepth--
			case '[':
				bracketDepth++
			case ']':
				bracketDepth--
			case '"':
				if lastChar != '\\' {
					inString = true
				}
			}
		}
		lastChar = ch
	}

	return !inString && braceDepth == 0 && bracketDepth == 0
}

// Receiver appends at least one received byte to buf per call.
// *transport.Conn implements it.
type Receiver interface {
	ReceiveMore(buf []byte) ([]byte, error)
}

// FramerOption configures a Framer.
type FramerOption func(*Framer)

// WithBlockSize sets the initial buffer capacity. Values below 1 keep the
// default.
func WithBlockSize(n int) FramerOption {
	return func(f *Framer) {
		if n > 0 {
			f.blockSize = n
		}
	}
}

// WithFramerLogger sets the logger. Defaults to slog.Default().
func WithFramerLogger(logger *slog.Logger) FramerOption {
	return func(f *Framer) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// Framer assembles one response from a stream of partial reads.
type Framer struct {
	blockSize int
	logger    *slog.Logger
}

// NewFramer creates a Framer.
func NewFramer(opts ...FramerOption) *Framer {
	f := &Framer{
		blockSize: DefaultBlockSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// BlockSize returns the initial buffer capacity.
func (f *Framer) BlockSize() int {
	return f.blockSize
}

// ReadMessage reads from r until the accumulated bytes form a complete
// message.
//
// An orderly remote close ends the message: the bytes read so far, possibly
// none, are returned without error. A read timeout returns the bytes read so
// far with ErrFramingTimeout. Any other receive error is returned as is.
//
// The buffer starts at the block size and doubles whenever a read leaves it
// full.
func (f *Framer) ReadMessage(r Receiver) ([]byte, error) {
	buf := make([]byte, 0, f.blockSize)

	for {
		if len(buf) == cap(buf) {
			grown := make([]byte, len(buf), 2*cap(buf))
			copy(grown, buf)
			buf = grown
		}

		before := len(buf)
		next, err := r.ReceiveMore(buf)
		if next != nil {
			buf = next
		}

		if err != nil {
			switch {
			case errors.Is(err, transport.ErrRemoteClosed):
				f.logger.Debug("remote closed connection", "bytes", len(buf))
				return buf, nil
			case errors.Is(err, transport.ErrTimeout):
				return buf, fmt.Errorf("%w after %d bytes: %w", ErrFramingTimeout, len(buf), err)
			default:
				return buf, err
			}
		}

		if len(buf) == before {
			// A read that adds nothing is treated as a close.
			return buf, nil
		}

		if Complete(buf) {
			f.logger.Debug("message complete", "bytes", len(buf))
			return buf, nil
		}
	}
}
