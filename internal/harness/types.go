package harness

import (
	"github.com/roach88/bayes/internal/netfile"
	"github.com/roach88/bayes/internal/protocol"
)

// TraceEvent is one recorded message.
type TraceEvent struct {
	Seq       int64    `json:"seq"`
	Direction string   `json:"direction"` // "out" or "in"
	FlowToken string   `json:"flow_token,omitempty"`
	Name      string   `json:"name"`
	Args      []string `json:"args,omitempty"`
	Text      string   `json:"text"`
}

// FlowOutcome is the end of one flow as reported to the listener.
type FlowOutcome struct {
	Flow  string `json:"flow"`
	Token string `json:"token,omitempty"`

	// Error is the engine's message for a failed flow, empty on success.
	Error string `json:"error,omitempty"`
}

// Failed reports whether the flow ended with an engine error.
func (o FlowOutcome) Failed() bool { return o.Error != "" }

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true if no step failed unexpectedly and every assertion held.
	Pass bool `json:"pass"`

	// Trace is the session transcript in recording order.
	Trace []TraceEvent `json:"trace"`

	// Errors contains step and assertion failures.
	Errors []string `json:"errors,omitempty"`

	// Flows lists completed and failed flows in the order they ended.
	Flows []FlowOutcome `json:"flows"`

	// Infos are the engine's info messages.
	Infos []string `json:"infos,omitempty"`

	// Algorithms are the algorithms known at the end.
	Algorithms []protocol.Algorithm `json:"algorithms,omitempty"`

	// Network is the final network, nil if none is loaded.
	Network *netfile.File `json:"network,omitempty"`

	// Posteriors holds each final node's query results, by node name.
	Posteriors map[string][]float64 `json:"posteriors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
		Flows:  []FlowOutcome{},
	}
}

// AddError adds a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// node returns the final node spec named name, or nil.
func (r *Result) node(name string) *netfile.NodeSpec {
	if r.Network == nil {
		return nil
	}
	for i := range r.Network.Nodes {
		if r.Network.Nodes[i].Name == name {
			return &r.Network.Nodes[i]
		}
	}
	return nil
}
