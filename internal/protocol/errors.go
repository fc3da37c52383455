package protocol

import (
	"errors"
	"fmt"
)

var (
	// ErrFlowActive is returned when starting an operation while another
	// one is still waiting for its reply. Overlapping flows are not allowed.
	ErrFlowActive = errors.New("protocol: another operation is in progress")

	// ErrNoNetwork is returned by operations that need a network when none
	// is loaded.
	ErrNoNetwork = errors.New("protocol: no network")
)

// EngineError is a failure reported by the engine, or an event the
// controller did not recognize. It records which flow was active when it
// arrived, since the engine's message does not say.
type EngineError struct {
	// Flow is the operation that was aborted, FlowNone if none was active.
	Flow Flow

	// Token is the flow token of the aborted operation.
	Token string

	// Message is the engine's text, or a description of the unknown event.
	Message string

	// Unknown is true when the event name or argument count was not
	// recognized, rather than an explicit error from the engine.
	Unknown bool
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	kind := "engine error"
	if e.Unknown {
		kind = "engine protocol error"
	}
	if e.Flow == FlowNone {
		return fmt.Sprintf("%s: %s", kind, e.Message)
	}
	return fmt.Sprintf("%s during %s: %s", kind, e.Flow, e.Message)
}

// IsUnknownCommand returns true if err is an EngineError for an
// unrecognized event. Uses errors.As to handle wrapped errors.
func IsUnknownCommand(err error) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Unknown
	}
	return false
}
