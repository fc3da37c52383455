package network

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rainWet builds Rain -> Wet with binary values and non-zero tables.
func rainWet(t *testing.T) (*Network, *Node, *Node) {
	t.Helper()
	g := New("Rain")
	rain := g.AddNode("Rain", "yes", "no")
	wet := g.AddNode("Wet", "yes", "no")
	require.NoError(t, g.AddEdge(rain, wet))
	rain.SetTable([]float64{0.2, 0.8})
	wet.SetTable([]float64{0.9, 0.1, 0.1, 0.9})
	return g, rain, wet
}

func TestNewNode_TableSizedToArity(t *testing.T) {
	n := NewNode("A", "x", "y", "z")
	assert.Equal(t, []float64{0, 0, 0}, n.Table())
	assert.Equal(t, []float64{0, 0, 0}, n.Posteriors())

	_, ok := n.Evidence()
	assert.False(t, ok, "new node has no evidence")

	empty := NewNode("E")
	assert.Empty(t, empty.Table())
}

func TestNetwork_AddEdge_RebuildsChildTable(t *testing.T) {
	g := New("net")
	a := g.AddNode("A", "a1", "a2", "a3")
	b := g.AddNode("B", "b1", "b2")
	b.SetTable([]float64{0.4, 0.6})

	require.NoError(t, g.AddEdge(a, b))

	assert.Equal(t, []*Node{a}, b.Parents())
	assert.Equal(t, []*Node{b}, a.Children())
	assert.Equal(t, make([]float64, 6), b.Table(), "table must be zero-filled at 3*2")
}

func TestNetwork_AddEdge_Rules(t *testing.T) {
	g := New("net")
	a := g.AddNode("A", "t", "f")
	b := g.AddNode("B", "t", "f")
	outsider := NewNode("X", "t")

	assert.ErrorIs(t, g.AddEdge(a, a), ErrSelfEdge)

	require.NoError(t, g.AddEdge(a, b))
	assert.ErrorIs(t, g.AddEdge(a, b), ErrDuplicateEdge, "parallel edge")
	assert.ErrorIs(t, g.AddEdge(b, a), ErrDuplicateEdge, "reverse edge between same pair")

	assert.ErrorIs(t, g.AddEdge(a, outsider), ErrUnknownNode)
	assert.ErrorIs(t, g.AddEdgeByName("A", "missing"), ErrUnknownNode)
	assert.ErrorIs(t, g.AddEdgeByName("missing", "A"), ErrUnknownNode)
}

func TestNetwork_ParentOrderIsInsertionOrder(t *testing.T) {
	g := New("net")
	c := g.AddNode("C", "c1", "c2")
	a := g.AddNode("A", "a1", "a2")
	b := g.AddNode("B", "b1", "b2", "b3")
	child := g.AddNode("Child", "y", "n")

	require.NoError(t, g.AddEdge(b, child))
	require.NoError(t, g.AddEdge(c, child))
	require.NoError(t, g.AddEdge(a, child))

	assert.Equal(t, []string{"B", "C", "A"}, child.ParentNames())
	assert.Equal(t, []int{3, 2, 2}, child.Layout().ParentArities())
	assert.Len(t, child.Table(), 3*2*2*2)
}

func TestNetwork_RemoveEdge_RestoresUnconditionalSize(t *testing.T) {
	g, rain, wet := rainWet(t)

	require.NoError(t, g.RemoveEdge(rain, wet))

	assert.Empty(t, wet.Parents())
	assert.Empty(t, rain.Children())
	assert.Equal(t, []float64{0, 0}, wet.Table())
	assert.Equal(t, []float64{0.2, 0.8}, rain.Table(), "parent table untouched")

	assert.ErrorIs(t, g.RemoveEdge(rain, wet), ErrNoEdge)
}

func TestNetwork_RemoveNode(t *testing.T) {
	g, rain, wet := rainWet(t)

	require.NoError(t, g.RemoveNode(rain))

	assert.Nil(t, g.Node("Rain"))
	assert.Equal(t, 1, g.Len())
	assert.Empty(t, g.Edges())
	assert.Empty(t, wet.Parents())
	assert.Equal(t, []float64{0, 0}, wet.Table())

	assert.ErrorIs(t, g.RemoveNode(rain), ErrUnknownNode)
}

func TestNode_ValueChangesRebuildSelfAndChildren(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(t *testing.T, rain *Node)
		arity  int
	}{
		{"insert", func(t *testing.T, rain *Node) { require.NoError(t, rain.InsertValue(1, "maybe")) }, 3},
		{"remove", func(t *testing.T, rain *Node) { require.NoError(t, rain.RemoveValue(0)) }, 1},
		{"replace", func(t *testing.T, rain *Node) { rain.SetValues([]string{"a", "b", "c", "d"}) }, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, rain, wet := rainWet(t)
			require.NoError(t, rain.SetEvidence(0))

			tt.mutate(t, rain)

			assert.Equal(t, make([]float64, tt.arity), rain.Table())
			assert.Equal(t, make([]float64, tt.arity*2), wet.Table())
			assert.Len(t, rain.Posteriors(), tt.arity)

			_, ok := rain.Evidence()
			assert.False(t, ok, "value change clears evidence")
		})
	}
}

func TestNode_RenameValueKeepsTable(t *testing.T) {
	_, rain, wet := rainWet(t)

	require.NoError(t, rain.RenameValue(0, "  raining  "))

	assert.Equal(t, []string{"raining", "no"}, rain.Values())
	assert.Equal(t, []float64{0.2, 0.8}, rain.Table())
	assert.Equal(t, []float64{0.9, 0.1, 0.1, 0.9}, wet.Table())

	assert.ErrorIs(t, rain.RenameValue(0, "   "), ErrEmptyLabel)
	assert.ErrorIs(t, rain.RenameValue(0, "no"), ErrDuplicateValue)
	assert.ErrorIs(t, rain.RenameValue(5, "x"), ErrValueIndex)
	require.NoError(t, rain.RenameValue(1, "no"), "renaming to own label is allowed")
}

func TestNode_InsertValue(t *testing.T) {
	n := NewNode("A", "x")

	require.NoError(t, n.InsertValue(1, ""))
	assert.Equal(t, []string{"x", DefaultValueLabel}, n.Values())

	assert.ErrorIs(t, n.InsertValue(0, DefaultValueLabel), ErrDuplicateValue)
	assert.ErrorIs(t, n.InsertValue(3, "y"), ErrValueIndex)
	assert.ErrorIs(t, n.RemoveValue(2), ErrValueIndex)
}

func TestNode_SetName(t *testing.T) {
	n := NewNode("A")
	n.SetName("  ")
	assert.Equal(t, "A", n.Name(), "blank names are ignored")
	n.SetName(" B ")
	assert.Equal(t, "B", n.Name())
}

func TestNode_Probabilities(t *testing.T) {
	_, _, wet := rainWet(t)

	p, err := wet.ProbabilityAt(1, []int{1})
	require.NoError(t, err)
	assert.Equal(t, 0.9, p)

	require.NoError(t, wet.SetProbabilityAt(1, []int{0}, 0.25))
	assert.Equal(t, 0.25, wet.Probability(1))

	assert.ErrorIs(t, wet.SetProbability(0, 1.5), ErrProbability)
	assert.ErrorIs(t, wet.SetProbability(0, -0.1), ErrProbability)
	assert.Error(t, wet.SetProbability(4, 0.5))
	assert.Equal(t, 0.0, wet.Probability(99))

	_, err = wet.ProbabilityAt(2, []int{0})
	assert.Error(t, err)
}

func TestNode_Evidence(t *testing.T) {
	n := NewNode("A", "x", "y")

	require.NoError(t, n.ToggleEvidence(1))
	i, ok := n.Evidence()
	assert.True(t, ok)
	assert.Equal(t, 1, i)

	require.NoError(t, n.ToggleEvidence(0))
	i, _ = n.Evidence()
	assert.Equal(t, 0, i, "toggling another value switches evidence")

	require.NoError(t, n.ToggleEvidence(0))
	_, ok = n.Evidence()
	assert.False(t, ok, "toggling the set value clears it")

	assert.ErrorIs(t, n.SetEvidence(2), ErrValueIndex)
}

func TestNode_Posteriors(t *testing.T) {
	n := NewNode("Rain", "yes", "no")

	assert.True(t, n.SetPosterior("yes", 0.3))
	assert.True(t, n.SetPosterior("no", 0.7))
	assert.False(t, n.SetPosterior("maybe", 0.1))

	assert.Equal(t, 0.3, n.Posterior(0))
	assert.Equal(t, 0.7, n.Posterior(1))
	assert.Equal(t, 0.0, n.Posterior(9))

	n.ResetPosteriors()
	assert.Equal(t, []float64{0, 0}, n.Posteriors())
}

func TestNode_Meta(t *testing.T) {
	n := NewNode("A")
	n.SetPosition(10, -4.5)
	n.SetMeta("weight", 2)

	x, y := n.Position()
	assert.Equal(t, 10.0, x)
	assert.Equal(t, -4.5, y)
	assert.Equal(t, []string{"weight", "x", "y"}, n.MetaKeys())

	v, ok := n.Meta("weight")
	assert.True(t, ok)
	assert.Equal(t, 2.0, v)
}

func TestNode_Rows(t *testing.T) {
	_, _, wet := rainWet(t)
	rows := wet.Rows()

	require.Len(t, rows, 4)
	assert.Equal(t, TableRow{
		Offset:      0,
		Value:       "yes",
		ParentNames: []string{"Rain"},
		Parents:     []string{"yes"},
		P:           0.9,
	}, rows[0])
	assert.Equal(t, "no", rows[3].Value)
	assert.Equal(t, []string{"no"}, rows[3].Parents)
	assert.Equal(t, 0.9, rows[3].P)
}

func TestNetwork_EvidenceNodes(t *testing.T) {
	g, rain, _ := rainWet(t)
	assert.Empty(t, g.EvidenceNodes())

	require.NoError(t, rain.SetEvidence(1))
	assert.Equal(t, []*Node{rain}, g.EvidenceNodes())
}

func TestNetwork_NodeLookupFirstMatch(t *testing.T) {
	g := New("net")
	first := g.AddNode("dup")
	g.AddNode("dup")
	assert.Same(t, first, g.Node("dup"))
	assert.Nil(t, g.Node("nope"))
}
