package winc

import "github.com/pkg/errors"

var (
	// ErrTimeout is returned when no terminal event arrived before the deadline.
	ErrTimeout = errors.New("timed out waiting for module event")

	// ErrNoShield is returned when the module is missing or its identity is wrong.
	ErrNoShield = errors.New("no wifi module present")

	// ErrNotInitialized is returned by drivers used before Init.
	ErrNotInitialized = errors.New("driver not initialized")

	// ErrReentrant is returned when a blocking call is made from an event handler.
	ErrReentrant = errors.New("blocking call from inside event handler")

	// ErrNoResult is returned when the module answered without a usable result.
	ErrNoResult = errors.New("no result")

	ErrInvalidHost = errors.New("invalid host name")

	ErrNotSupported = errors.New("not supported")
)
