// Package cpt maps a node's joint parent/self assignment onto the flat
// offset of its conditional probability table, and back.
//
// Dimensions are ordered [parent_1, ..., parent_k, self] with parents in
// insertion order. Offsets are row-major: the last dimension (self) varies
// fastest, so
//
//	offset = Σ_i assignment_i * Π_{j>i} arity_j
//
// The package is pure arithmetic and has no dependencies.
package cpt

import (
	"errors"
	"fmt"
)

// ErrOutOfRange is returned when a value index or offset falls outside its dimension.
var ErrOutOfRange = errors.New("cpt: index out of range")

// Layout describes the shape of one node's table.
//
// A Layout is immutable. Any structural change to the node (parents added,
// removed or reordered, values added or removed) produces a different Layout
// and therefore a different mapping.
type Layout struct {
	// dims holds arities in table order: parents first, self last.
	dims []int
}

// NewLayout creates a layout for a node with the given own arity and the
// arities of its parents in insertion order.
func NewLayout(self int, parents ...int) Layout {
	dims := make([]int, 0, len(parents)+1)
	dims = append(dims, parents...)
	dims = append(dims, self)
	return Layout{dims: dims}
}

// Size returns the number of entries in the table.
//
// A node without parents has size equal to its own arity. If any dimension
// has zero values the size is 0.
func (l Layout) Size() int {
	if len(l.dims) == 0 {
		return 0
	}
	size := 1
	for _, d := range l.dims {
		if d <= 0 {
			return 0
		}
		size *= d
	}
	return size
}

// SelfArity returns the arity of the node itself.
func (l Layout) SelfArity() int {
	if len(l.dims) == 0 {
		return 0
	}
	return l.dims[len(l.dims)-1]
}

// ParentArities returns a copy of the parent arities in table order.
func (l Layout) ParentArities() []int {
	if len(l.dims) == 0 {
		return nil
	}
	out := make([]int, len(l.dims)-1)
	copy(out, l.dims[:len(l.dims)-1])
	return out
}

// Index returns the flat offset of (self, parents).
//
// parents must have exactly one entry per parent dimension, in the same
// order the layout was built with.
func (l Layout) Index(self int, parents []int) (int, error) {
	if len(parents) != len(l.dims)-1 {
		return 0, fmt.Errorf("%w: got %d parent values, layout has %d parents",
			ErrOutOfRange, len(parents), len(l.dims)-1)
	}

	offset := 0
	for i, d := range l.dims {
		v := self
		if i < len(parents) {
			v = parents[i]
		}
		if v < 0 || v >= d {
			return 0, fmt.Errorf("%w: value %d in dimension %d (arity %d)", ErrOutOfRange, v, i, d)
		}
		offset = offset*d + v
	}
	return offset, nil
}

// Decompose is the inverse of Index.
//
// It peels dimensions off from the fastest-varying one (self) outward:
// value = offset % arity, offset /= arity.
func (l Layout) Decompose(offset int) (self int, parents []int, err error) {
	size := l.Size()
	if offset < 0 || offset >= size {
		return 0, nil, fmt.Errorf("%w: offset %d (table size %d)", ErrOutOfRange, offset, size)
	}

	parents = make([]int, len(l.dims)-1)
	rest := offset
	for i := len(l.dims) - 1; i >= 0; i-- {
		d := l.dims[i]
		v := rest % d
		rest /= d
		if i == len(l.dims)-1 {
			self = v
		} else {
			parents[i] = v
		}
	}
	return self, parents, nil
}

// Row is one decomposed table entry.
type Row struct {
	Offset  int
	Self    int
	Parents []int
}

// Rows enumerates every offset of the table in order together with its
// decomposed assignment.
func (l Layout) Rows() []Row {
	size := l.Size()
	rows := make([]Row, 0, size)
	for off := 0; off < size; off++ {
		self, parents, err := l.Decompose(off)
		if err != nil {
			// Unreachable: off is always inside [0, size).
			break
		}
		rows = append(rows, Row{Offset: off, Self: self, Parents: parents})
	}
	return rows
}

// Equal reports whether two layouts produce the same mapping.
func (l Layout) Equal(o Layout) bool {
	if len(l.dims) != len(o.dims) {
		return false
	}
	for i := range l.dims {
		if l.dims[i] != o.dims[i] {
			return false
		}
	}
	return true
}
