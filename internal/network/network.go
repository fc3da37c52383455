// Package network holds the Bayesian network being edited: nodes with their
// value lists and probability tables, and the directed edges between them.
//
// The graph enforces only local rules on edges: no self edges and at most
// one edge between any two nodes, in either direction. Acyclicity is not
// checked when an edge is added; CheckAcyclic and TopologicalOrder are
// separate operations for callers that need it.
package network

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrSelfEdge is returned when an edge would connect a node to itself.
	ErrSelfEdge = errors.New("network: self edge")

	// ErrDuplicateEdge is returned when two nodes are already connected in
	// either direction.
	ErrDuplicateEdge = errors.New("network: nodes already connected")

	// ErrNoEdge is returned when removing an edge that does not exist.
	ErrNoEdge = errors.New("network: no such edge")

	// ErrUnknownNode is returned when a node is not part of the network.
	ErrUnknownNode = errors.New("network: unknown node")

	// ErrValueIndex is returned for a value position outside the node's values.
	ErrValueIndex = errors.New("network: value index out of range")

	// ErrDuplicateValue is returned when a value label already exists on the node.
	ErrDuplicateValue = errors.New("network: duplicate value label")

	// ErrEmptyLabel is returned when a value label is blank.
	ErrEmptyLabel = errors.New("network: empty value label")

	// ErrProbability is returned for a probability outside [0, 1].
	ErrProbability = errors.New("network: probability out of range")
)

// Edge is a directed edge. To has From as a parent.
type Edge struct {
	From *Node
	To   *Node
}

// Network is a named collection of nodes and edges.
//
// A Network is owned by a single goroutine; it has no internal locking.
type Network struct {
	name  string
	nodes []*Node
	edges []Edge
}

// New creates an empty network.
func New(name string) *Network {
	return &Network{name: name}
}

// Name returns the network name.
func (g *Network) Name() string { return g.name }

// SetName renames the network.
func (g *Network) SetName(name string) { g.name = name }

// AddNode creates a node and appends it. Names are not required to be
// unique; Validate reports duplicates.
func (g *Network) AddNode(name string, values ...string) *Node {
	n := NewNode(name, values...)
	g.nodes = append(g.nodes, n)
	return n
}

// Node returns the first node named name, or nil.
func (g *Network) Node(name string) *Node {
	for _, n := range g.nodes {
		if n.name == name {
			return n
		}
	}
	return nil
}

// Nodes returns the nodes in insertion order.
func (g *Network) Nodes() []*Node { return slices.Clone(g.nodes) }

// Len returns the number of nodes.
func (g *Network) Len() int { return len(g.nodes) }

func (g *Network) contains(n *Node) bool {
	return n != nil && slices.Contains(g.nodes, n)
}

// RemoveNode deletes n and every edge touching it. Children of n lose it as
// a parent and have their tables rebuilt.
func (g *Network) RemoveNode(n *Node) error {
	if !g.contains(n) {
		return ErrUnknownNode
	}
	for _, e := range g.Edges() {
		if e.From == n || e.To == n {
			if err := g.RemoveEdge(e.From, e.To); err != nil {
				return err
			}
		}
	}
	g.nodes = slices.DeleteFunc(g.nodes, func(m *Node) bool { return m == n })
	return nil
}

// AddEdge makes from a parent of to. The new parent is appended last, and
// to's table is rebuilt zero-filled.
func (g *Network) AddEdge(from, to *Node) error {
	if !g.contains(from) || !g.contains(to) {
		return ErrUnknownNode
	}
	if from == to {
		return fmt.Errorf("add edge %s -> %s: %w", from.name, to.name, ErrSelfEdge)
	}
	if g.Connected(from, to) {
		return fmt.Errorf("add edge %s -> %s: %w", from.name, to.name, ErrDuplicateEdge)
	}
	g.edges = append(g.edges, Edge{From: from, To: to})
	to.parents = append(to.parents, from)
	from.children = append(from.children, to)
	to.rebuild()
	return nil
}

// AddEdgeByName is AddEdge with nodes looked up by name.
func (g *Network) AddEdgeByName(from, to string) error {
	f, t := g.Node(from), g.Node(to)
	if f == nil {
		return fmt.Errorf("add edge: %w: %s", ErrUnknownNode, from)
	}
	if t == nil {
		return fmt.Errorf("add edge: %w: %s", ErrUnknownNode, to)
	}
	return g.AddEdge(f, t)
}

// RemoveEdge deletes the edge from -> to and rebuilds to's table.
func (g *Network) RemoveEdge(from, to *Node) error {
	i := slices.IndexFunc(g.edges, func(e Edge) bool { return e.From == from && e.To == to })
	if i < 0 {
		return ErrNoEdge
	}
	g.edges = slices.Delete(g.edges, i, i+1)
	to.parents = slices.DeleteFunc(to.parents, func(p *Node) bool { return p == from })
	from.children = slices.DeleteFunc(from.children, func(c *Node) bool { return c == to })
	to.rebuild()
	return nil
}

// HasEdge reports whether the directed edge from -> to exists.
func (g *Network) HasEdge(from, to *Node) bool {
	return slices.ContainsFunc(g.edges, func(e Edge) bool { return e.From == from && e.To == to })
}

// Connected reports whether a and b share an edge in either direction.
func (g *Network) Connected(a, b *Node) bool {
	return g.HasEdge(a, b) || g.HasEdge(b, a)
}

// Edges returns the edges in insertion order.
func (g *Network) Edges() []Edge { return slices.Clone(g.edges) }

// EvidenceNodes returns the nodes that have evidence set, in node order.
func (g *Network) EvidenceNodes() []*Node {
	var out []*Node
	for _, n := range g.nodes {
		if _, ok := n.Evidence(); ok {
			out = append(out, n)
		}
	}
	return out
}

// ResetPosteriors clears query results on every node.
func (g *Network) ResetPosteriors() {
	for _, n := range g.nodes {
		n.ResetPosteriors()
	}
}
