package discovery

import "errors"

var (
	// ErrCancelled is recorded when a run is cancelled before it could
	// store its result.
	ErrCancelled = errors.New("discovery cancelled")

	// ErrUnsuccessful is recorded when the service answers success:false.
	ErrUnsuccessful = errors.New("service reported an unsuccessful discovery")

	// ErrNoConnection is recorded when no usable connection exists and none
	// can be dialed.
	ErrNoConnection = errors.New("no usable connection to the discovery service")
)
