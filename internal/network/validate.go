package network

import (
	"fmt"
	"math"
	"strings"
)

// Problem levels.
const (
	LevelError   = "error"
	LevelWarning = "warning"
)

// sumTolerance is how far a conditional distribution may stray from 1.
const sumTolerance = 1e-6

// Problem is one finding of Validate.
type Problem struct {
	Node    string `json:"node,omitempty"` // Empty for network-wide problems
	Message string `json:"message"`
	Level   string `json:"level"` // "error" or "warning"
}

func (p Problem) String() string {
	if p.Node == "" {
		return p.Level + ": " + p.Message
	}
	return fmt.Sprintf("%s: %s: %s", p.Level, p.Node, p.Message)
}

// Validate runs the structural checks the engine expects to hold before a
// network is sent to it. Errors make the network unusable; warnings flag
// tables that will give meaningless answers.
func (g *Network) Validate() []Problem {
	var problems []Problem

	for _, cycle := range g.Cycles() {
		problems = append(problems, Problem{
			Message: "cycle " + strings.Join(cycle, " -> "),
			Level:   LevelError,
		})
	}

	seen := make(map[string]int)
	for _, n := range g.nodes {
		seen[n.name]++
		if seen[n.name] == 2 {
			problems = append(problems, Problem{
				Node:    n.name,
				Message: "duplicate node name",
				Level:   LevelError,
			})
		}
	}

	for _, n := range g.nodes {
		problems = append(problems, n.validate()...)
	}
	return problems
}

// HasErrors reports whether any problem is at error level.
func HasErrors(problems []Problem) bool {
	for _, p := range problems {
		if p.Level == LevelError {
			return true
		}
	}
	return false
}

func (n *Node) validate() []Problem {
	var problems []Problem
	add := func(level, format string, args ...any) {
		problems = append(problems, Problem{Node: n.name, Message: fmt.Sprintf(format, args...), Level: level})
	}

	if strings.TrimSpace(n.name) == "" {
		add(LevelError, "empty node name")
	}
	if len(n.values) == 0 {
		add(LevelWarning, "no values")
	}
	labels := make(map[string]bool)
	for _, v := range n.values {
		if labels[v] {
			add(LevelError, "duplicate value %q", v)
		}
		labels[v] = true
	}

	size := n.Layout().Size()
	if len(n.table) != size {
		add(LevelError, "table has %d entries, want %d", len(n.table), size)
		return problems
	}

	for i, p := range n.table {
		if !(p >= 0 && p <= 1) {
			add(LevelError, "probability %v at offset %d outside [0, 1]", p, i)
		}
	}

	// Each run of arity consecutive entries is one distribution over the
	// node's values for a fixed parent assignment.
	arity := len(n.values)
	for start := 0; arity > 0 && start < size; start += arity {
		sum := 0.0
		for _, p := range n.table[start : start+arity] {
			sum += p
		}
		if math.Abs(sum-1) > sumTolerance {
			add(LevelWarning, "distribution at offsets %d-%d sums to %g", start, start+arity-1, sum)
		}
	}
	return problems
}
