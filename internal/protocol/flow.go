package protocol

import (
	"sync"

	"github.com/google/uuid"
)

// Flow is the logical operation the controller is waiting on.
type Flow int

const (
	// FlowNone means no operation is pending.
	FlowNone Flow = iota

	// FlowLoad is a load-file in progress, ended by load-file-done.
	FlowLoad

	// FlowSave is a save-file in progress, ended by file-save-done.
	FlowSave

	// FlowQuery is a query in progress, ended by query-done.
	FlowQuery
)

func (f Flow) String() string {
	switch f {
	case FlowNone:
		return "none"
	case FlowLoad:
		return "load"
	case FlowSave:
		return "save"
	case FlowQuery:
		return "query"
	default:
		return "unknown"
	}
}

// FlowTokenGenerator generates unique flow tokens for tagging the traffic
// of one operation. Implemented by UUIDv7Generator (production) and
// FixedGenerator (tests).
type FlowTokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 flow tokens.
//
// UUIDv7 embeds a timestamp in the most significant bits, so transcripts
// sorted by token are sorted by start time.
//
// Thread-safety: UUIDv7Generator is stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 and returns it as a hyphenated string.
//
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns predetermined flow tokens for testing.
//
// Thread-safety: FixedGenerator is safe for concurrent use via internal mutex.
type FixedGenerator struct {
	mu     sync.Mutex
	tokens []string
	idx    int
}

// NewFixedGenerator creates a generator that returns tokens in order.
//
// Example:
//
//	gen := NewFixedGenerator("flow-1", "flow-2")
//	gen.Generate() // "flow-1"
//	gen.Generate() // "flow-2"
//	gen.Generate() // panic: all tokens exhausted
func NewFixedGenerator(tokens ...string) *FixedGenerator {
	return &FixedGenerator{tokens: tokens}
}

// Generate returns the next predetermined token.
//
// Panics if all tokens have been consumed, to catch a test that starts more
// flows than it expects.
func (g *FixedGenerator) Generate() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.idx >= len(g.tokens) {
		panic("FixedGenerator: all tokens exhausted")
	}
	token := g.tokens[g.idx]
	g.idx++
	return token
}
