package store

// Direction tells which way a message travelled.
type Direction string

const (
	// DirectionOut is a command written to the engine.
	DirectionOut Direction = "out"

	// DirectionIn is an event read from the engine.
	DirectionIn Direction = "in"
)

// Session is one run of the engine.
type Session struct {
	// ID is a UUIDv7, so sessions sort by start time.
	ID string `json:"id"`

	// EnginePath is the executable the session talked to.
	EnginePath string `json:"engine_path"`

	// Label is free text, usually the network file being worked on.
	Label string `json:"label,omitempty"`
}

// Message is one recorded command or event.
type Message struct {
	SessionID string    `json:"session_id"`
	Seq       int64     `json:"seq"`
	Direction Direction `json:"direction"`

	// FlowToken is the controller's active flow when the message passed,
	// empty outside any flow.
	FlowToken string `json:"flow_token,omitempty"`

	Name string   `json:"name"`
	Args []string `json:"args"`

	// Text is the exact wire text for commands and the rendered event for
	// events.
	Text string `json:"text"`
}
