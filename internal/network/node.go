package network

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/bayes/internal/cpt"
)

// DefaultValueLabel is the label given to a value inserted without one.
const DefaultValueLabel = "New value"

// Metadata keys for the editor position of a node.
const (
	MetaX = "x"
	MetaY = "y"
)

// Node is one random variable of a network.
//
// Its table is laid out by cpt.Layout with dimensions
// [parents..., self]. Any structural change (a parent added or removed, a
// value added or removed on this node or on a parent) discards the table
// and replaces it with zeros at the new size. Nothing is carried over.
type Node struct {
	name      string
	values    []string
	parents   []*Node
	children  []*Node
	table     []float64
	evidence  int
	posterior []float64
	meta      map[string]float64
}

// NewNode creates a detached node. Use Network.AddNode to place it in a network.
func NewNode(name string, values ...string) *Node {
	n := &Node{
		name:     name,
		values:   slices.Clone(values),
		evidence: -1,
		meta:     make(map[string]float64),
	}
	n.rebuild()
	return n
}

// Name returns the node name.
func (n *Node) Name() string { return n.name }

// SetName renames the node. Blank names are ignored.
func (n *Node) SetName(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	n.name = name
}

// Values returns a copy of the value labels in order.
func (n *Node) Values() []string { return slices.Clone(n.values) }

// Arity returns the number of values.
func (n *Node) Arity() int { return len(n.values) }

// ValueIndex returns the position of label, or -1.
func (n *Node) ValueIndex(label string) int {
	return slices.Index(n.values, label)
}

// SetValues replaces the whole value list.
//
// The table of this node and of every child is rebuilt, evidence is cleared
// and posteriors are reset.
func (n *Node) SetValues(values []string) {
	n.values = slices.Clone(values)
	n.valuesChanged()
}

// InsertValue inserts label at position pos (0 ≤ pos ≤ arity). An empty
// label becomes DefaultValueLabel.
func (n *Node) InsertValue(pos int, label string) error {
	if pos < 0 || pos > len(n.values) {
		return fmt.Errorf("insert value at %d: %w", pos, ErrValueIndex)
	}
	label = strings.TrimSpace(label)
	if label == "" {
		label = DefaultValueLabel
	}
	if n.ValueIndex(label) >= 0 {
		return fmt.Errorf("insert value %q: %w", label, ErrDuplicateValue)
	}
	n.values = slices.Insert(n.values, pos, label)
	n.valuesChanged()
	return nil
}

// RemoveValue removes the value at pos.
func (n *Node) RemoveValue(pos int) error {
	if pos < 0 || pos >= len(n.values) {
		return fmt.Errorf("remove value at %d: %w", pos, ErrValueIndex)
	}
	n.values = slices.Delete(n.values, pos, pos+1)
	n.valuesChanged()
	return nil
}

// RenameValue changes the label at pos. The table is kept.
// Labels are trimmed and must be non-empty and distinct.
func (n *Node) RenameValue(pos int, label string) error {
	if pos < 0 || pos >= len(n.values) {
		return fmt.Errorf("rename value at %d: %w", pos, ErrValueIndex)
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return fmt.Errorf("rename value at %d: %w", pos, ErrEmptyLabel)
	}
	if i := n.ValueIndex(label); i >= 0 && i != pos {
		return fmt.Errorf("rename value %q: %w", label, ErrDuplicateValue)
	}
	n.values[pos] = label
	return nil
}

func (n *Node) valuesChanged() {
	n.evidence = -1
	n.rebuild()
	for _, c := range n.children {
		c.rebuild()
	}
}

// rebuild zero-fills the table at the current layout size and resets the
// posteriors to one zero per value.
func (n *Node) rebuild() {
	n.table = make([]float64, n.Layout().Size())
	n.posterior = make([]float64, len(n.values))
}

// Parents returns the parents in insertion order.
func (n *Node) Parents() []*Node { return slices.Clone(n.parents) }

// ParentNames returns the parent names in insertion order.
func (n *Node) ParentNames() []string {
	names := make([]string, len(n.parents))
	for i, p := range n.parents {
		names[i] = p.name
	}
	return names
}

// Children returns the nodes this node is a parent of.
func (n *Node) Children() []*Node { return slices.Clone(n.children) }

// Layout returns the table layout for the current values and parents.
func (n *Node) Layout() cpt.Layout {
	arities := make([]int, len(n.parents))
	for i, p := range n.parents {
		arities[i] = len(p.values)
	}
	return cpt.NewLayout(len(n.values), arities...)
}

// Table returns a copy of the flat probability table.
func (n *Node) Table() []float64 { return slices.Clone(n.table) }

// SetTable replaces the table with exactly the given entries. The length is
// not checked against the layout; Network.Validate reports mismatches.
func (n *Node) SetTable(table []float64) {
	n.table = slices.Clone(table)
}

// Probability returns the entry at offset, or 0 when out of range.
func (n *Node) Probability(offset int) float64 {
	if offset < 0 || offset >= len(n.table) {
		return 0
	}
	return n.table[offset]
}

// SetProbability sets the entry at offset. p must lie in [0, 1].
func (n *Node) SetProbability(offset int, p float64) error {
	if offset < 0 || offset >= len(n.table) {
		return fmt.Errorf("set probability at %d: %w", offset, cpt.ErrOutOfRange)
	}
	if !(p >= 0 && p <= 1) {
		return fmt.Errorf("set probability %v: %w", p, ErrProbability)
	}
	n.table[offset] = p
	return nil
}

// ProbabilityAt returns the entry for an assignment of this node and its
// parents, given as value indices.
func (n *Node) ProbabilityAt(self int, parents []int) (float64, error) {
	off, err := n.Layout().Index(self, parents)
	if err != nil {
		return 0, err
	}
	return n.Probability(off), nil
}

// SetProbabilityAt sets the entry for an assignment given as value indices.
func (n *Node) SetProbabilityAt(self int, parents []int, p float64) error {
	off, err := n.Layout().Index(self, parents)
	if err != nil {
		return err
	}
	return n.SetProbability(off, p)
}

// Evidence returns the observed value index, if any.
func (n *Node) Evidence() (int, bool) {
	return n.evidence, n.evidence >= 0
}

// SetEvidence fixes the node to the value at index i.
func (n *Node) SetEvidence(i int) error {
	if i < 0 || i >= len(n.values) {
		return fmt.Errorf("set evidence %d: %w", i, ErrValueIndex)
	}
	n.evidence = i
	return nil
}

// ClearEvidence removes the observation.
func (n *Node) ClearEvidence() { n.evidence = -1 }

// ToggleEvidence sets evidence to i, or clears it when i is already set.
func (n *Node) ToggleEvidence(i int) error {
	if n.evidence == i {
		n.ClearEvidence()
		return nil
	}
	return n.SetEvidence(i)
}

// Posterior returns the query result for value i, 0 until set.
func (n *Node) Posterior(i int) float64 {
	if i < 0 || i >= len(n.posterior) {
		return 0
	}
	return n.posterior[i]
}

// Posteriors returns a copy of all query results.
func (n *Node) Posteriors() []float64 { return slices.Clone(n.posterior) }

// SetPosterior stores p for the value labelled label. It reports false when
// the node has no such value.
func (n *Node) SetPosterior(label string, p float64) bool {
	i := n.ValueIndex(label)
	if i < 0 {
		return false
	}
	n.posterior[i] = p
	return true
}

// ResetPosteriors sets all query results back to 0.
func (n *Node) ResetPosteriors() {
	clear(n.posterior)
}

// Meta returns a metadata value.
func (n *Node) Meta(key string) (float64, bool) {
	v, ok := n.meta[key]
	return v, ok
}

// SetMeta stores a metadata value.
func (n *Node) SetMeta(key string, v float64) { n.meta[key] = v }

// MetaKeys returns the metadata keys in sorted order.
func (n *Node) MetaKeys() []string {
	keys := make([]string, 0, len(n.meta))
	for k := range n.meta {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Position returns the editor coordinates stored under MetaX and MetaY.
func (n *Node) Position() (x, y float64) {
	return n.meta[MetaX], n.meta[MetaY]
}

// SetPosition stores the editor coordinates.
func (n *Node) SetPosition(x, y float64) {
	n.meta[MetaX] = x
	n.meta[MetaY] = y
}

// TableRow is one table entry labelled with value names.
type TableRow struct {
	Offset      int
	Value       string
	ParentNames []string
	Parents     []string
	P           float64
}

// Rows lists the table in offset order with each entry's assignment
// resolved to value labels.
func (n *Node) Rows() []TableRow {
	parentNames := n.ParentNames()
	layoutRows := n.Layout().Rows()
	rows := make([]TableRow, 0, len(layoutRows))
	for _, r := range layoutRows {
		labels := make([]string, len(r.Parents))
		for i, v := range r.Parents {
			labels[i] = n.parents[i].values[v]
		}
		rows = append(rows, TableRow{
			Offset:      r.Offset,
			Value:       n.values[r.Self],
			ParentNames: parentNames,
			Parents:     labels,
			P:           n.Probability(r.Offset),
		})
	}
	return rows
}
