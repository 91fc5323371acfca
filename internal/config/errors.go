package config

import "errors"

// Configuration validation errors returned by Config.Validate.
var (
	// ErrInvalidHost is returned when the discovery service host is empty.
	ErrInvalidHost = errors.New("invalid host: must not be empty")

	// ErrInvalidPort is returned when the port is outside 1-65535.
	ErrInvalidPort = errors.New("invalid port: must be between 1 and 65535")

	// ErrInvalidProxyAddress is returned when the SOCKS5 proxy is not host:port.
	ErrInvalidProxyAddress = errors.New("invalid proxy address: expected host:port")

	// ErrInvalidDialTimeout is returned when the dial timeout is not positive.
	ErrInvalidDialTimeout = errors.New("invalid dial timeout: must be positive")

	// ErrInvalidReadTimeout is returned when the read timeout is negative.
	// Use 0 to disable the read deadline.
	ErrInvalidReadTimeout = errors.New("invalid read timeout: must be non-negative")

	// ErrInvalidBlockSize is returned when the framer block size is not positive.
	ErrInvalidBlockSize = errors.New("invalid block size: must be positive")

	// ErrInvalidPollInterval is returned when the poll interval is not positive.
	ErrInvalidPollInterval = errors.New("invalid poll interval: must be positive")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")
)
