package testutil

import (
	"strconv"
	"sync"
)

// SequenceGenerator numbers flow tokens: prefix-1, prefix-2, ...
//
// Unlike protocol.FixedGenerator it never runs out, so a scenario can start
// any number of flows and still produce byte-identical transcripts.
//
// Thread-safety: SequenceGenerator is safe for concurrent use via internal mutex.
type SequenceGenerator struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequenceGenerator creates a numbering generator. If prefix is empty,
// "flow" is used.
//
// The prefix is typically set in the scenario YAML:
//
//	flow_token: "rain"
func NewSequenceGenerator(prefix string) *SequenceGenerator {
	if prefix == "" {
		prefix = "flow"
	}
	return &SequenceGenerator{prefix: prefix}
}

// Generate returns the next token.
//
// Implements protocol.FlowTokenGenerator interface.
func (g *SequenceGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return g.prefix + "-" + strconv.Itoa(g.n)
}
