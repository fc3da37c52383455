package engine

import (
	"errors"
)

var (
	// ErrStart is returned when the engine executable cannot be launched.
	// A session that failed to start is unusable.
	ErrStart = errors.New("engine: failed to start")

	// ErrExited is returned by Poll when the engine's output ends before
	// the session was closed.
	ErrExited = errors.New("engine: process exited")

	// ErrClosed is returned by Send after Close.
	ErrClosed = errors.New("engine: session closed")

	// ErrDefinition is returned when a load-network expression cannot be
	// read back into a network.
	ErrDefinition = errors.New("engine: malformed network definition")
)

// IsFatal reports whether err ends the session: the engine could not be
// started or has gone away. Uses errors.Is to handle wrapped errors.
func IsFatal(err error) bool {
	return errors.Is(err, ErrStart) || errors.Is(err, ErrExited)
}
