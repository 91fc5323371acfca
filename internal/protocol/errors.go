package protocol

import "errors"

var (
	// ErrFramingTimeout is returned when the read timeout expires before a
	// complete message arrived. The bytes read so far are returned with it.
	ErrFramingTimeout = errors.New("timed out waiting for a complete message")

	// ErrMalformedResponse is returned when a response is empty, is not a
	// JSON object, or lacks the success field.
	ErrMalformedResponse = errors.New("malformed discovery response")

	// ErrEmptyURL is returned when a request is built for an empty URL.
	ErrEmptyURL = errors.New("url must not be empty")
)
