package protocol

// Algorithm is one inference algorithm offered by the engine.
type Algorithm struct {
	Name string `json:"name"`

	// HasParam is true when the algorithm takes an integer parameter.
	HasParam bool `json:"has_param"`
}

// Listener receives what the controller learns from the engine that is not
// a change to the network itself. It stands in for the editor's user
// interface.
type Listener interface {
	// Info carries a status message from the engine.
	Info(message string)

	// AlgorithmAdded is called for every add-algorithm reply.
	AlgorithmAdded(a Algorithm)

	// FlowCompleted is called when a load, save or query finishes.
	FlowCompleted(flow Flow, token string)

	// FlowFailed is called when the engine reports an error or sends an
	// unrecognized event. The active flow, if any, has been aborted.
	FlowFailed(err *EngineError)
}

// NopListener ignores everything.
type NopListener struct{}

func (NopListener) Info(string) {}

func (NopListener) AlgorithmAdded(Algorithm) {}

func (NopListener) FlowCompleted(Flow, string) {}

func (NopListener) FlowFailed(*EngineError) {}
