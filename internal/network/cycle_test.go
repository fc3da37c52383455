package network

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestCheckAcyclic_DAG tests that a diamond has no cycles.
func TestCheckAcyclic_DAG(t *testing.T) {
	g := New("diamond")
	a := g.AddNode("A", "t", "f")
	b := g.AddNode("B", "t", "f")
	c := g.AddNode("C", "t", "f")
	d := g.AddNode("D", "t", "f")
	require.NoError(t, g.AddEdge(a, b))
	require.NoError(t, g.AddEdge(a, c))
	require.NoError(t, g.AddEdge(b, d))
	require.NoError(t, g.AddEdge(c, d))

	assert.NoError(t, g.CheckAcyclic())
	assert.Empty(t, g.Cycles())
}

// TestCheckAcyclic_ThreeNodeCycle tests detection of A -> B -> C -> A.
func TestCheckAcyclic_ThreeNodeCycle(t *testing.T) {
	g := New("loop")
	a := g.AddNode("A", "t", "f")
	b := g.AddNode("B", "t", "f")
	c := g.AddNode("C", "t", "f")
	require.NoError(t, g.AddEdge(a, b))
	require.NoError(t, g.AddEdge(b, c))
	require.NoError(t, g.AddEdge(c, a), "edge creation does not check cycles")

	err := g.CheckAcyclic()
	require.Error(t, err)

	var cycleErr *CycleError
	require.True(t, errors.As(err, &cycleErr))
	assert.Equal(t, []string{"A", "B", "C", "A"}, cycleErr.Path)
	assert.Equal(t, "network: cycle A -> B -> C -> A", err.Error())
}

// TestCycles_DeadEndInsideComponent tests path reconstruction when a walk
// inside the component reaches a node whose only exits are already visited.
func TestCycles_DeadEndInsideComponent(t *testing.T) {
	g := New("tricky")
	a := g.AddNode("A")
	b := g.AddNode("B")
	c := g.AddNode("C")
	d := g.AddNode("D")
	// C tries D first; D only leads back to B
	require.NoError(t, g.AddEdge(a, b))
	require.NoError(t, g.AddEdge(b, c))
	require.NoError(t, g.AddEdge(c, d))
	require.NoError(t, g.AddEdge(d, b))
	require.NoError(t, g.AddEdge(c, a))

	cycles := g.Cycles()
	require.Len(t, cycles, 1)
	assert.Equal(t, []string{"A", "B", "C", "A"}, cycles[0])
}

func TestTopologicalOrder(t *testing.T) {
	g := New("net")
	wet := g.AddNode("Wet", "t", "f")
	rain := g.AddNode("Rain", "t", "f")
	sprinkler := g.AddNode("Sprinkler", "t", "f")
	require.NoError(t, g.AddEdge(rain, wet))
	require.NoError(t, g.AddEdge(sprinkler, wet))
	require.NoError(t, g.AddEdge(rain, sprinkler))

	order, err := g.TopologicalOrder()
	require.NoError(t, err)

	names := make([]string, len(order))
	for i, n := range order {
		names[i] = n.Name()
	}
	assert.Equal(t, []string{"Rain", "Sprinkler", "Wet"}, names)
}

func TestTopologicalOrder_Cycle(t *testing.T) {
	g := New("loop")
	a := g.AddNode("A")
	b := g.AddNode("B")
	c := g.AddNode("C")
	require.NoError(t, g.AddEdge(a, b))
	require.NoError(t, g.AddEdge(b, c))
	require.NoError(t, g.AddEdge(c, a))

	_, err := g.TopologicalOrder()
	var cycleErr *CycleError
	assert.ErrorAs(t, err, &cycleErr)
}

func TestValidate(t *testing.T) {
	g := New("net")
	a := g.AddNode("A", "t", "f")
	g.AddNode("A", "x", "x")
	b := g.AddNode("B")
	a.SetTable([]float64{0.5, 0.5})
	b.SetTable([]float64{1})

	problems := g.Validate()

	assert.Contains(t, problems, Problem{Node: "A", Message: "duplicate node name", Level: LevelError})
	assert.Contains(t, problems, Problem{Node: "A", Message: `duplicate value "x"`, Level: LevelError})
	assert.Contains(t, problems, Problem{Node: "B", Message: "no values", Level: LevelWarning})
	assert.Contains(t, problems, Problem{Node: "B", Message: "table has 1 entries, want 0", Level: LevelError})
	assert.True(t, HasErrors(problems))
}

func TestValidate_CleanNetwork(t *testing.T) {
	g := New("Rain")
	rain := g.AddNode("Rain", "yes", "no")
	wet := g.AddNode("Wet", "yes", "no")
	require.NoError(t, g.AddEdge(rain, wet))
	rain.SetTable([]float64{0.2, 0.8})
	wet.SetTable([]float64{0.9, 0.1, 0.1, 0.9})

	assert.Empty(t, g.Validate())
}

func TestValidate_Distributions(t *testing.T) {
	g := New("net")
	n := g.AddNode("N", "a", "b")
	n.SetTable([]float64{0.5, 0.6})

	problems := g.Validate()
	require.Len(t, problems, 1)
	assert.Equal(t, LevelWarning, problems[0].Level)
	assert.False(t, HasErrors(problems))

	n.SetTable([]float64{2, -1})
	assert.True(t, HasErrors(g.Validate()))
}

func TestValidate_ReportsCycle(t *testing.T) {
	g := New("loop")
	a := g.AddNode("A", "t")
	b := g.AddNode("B", "t")
	c := g.AddNode("C", "t")
	require.NoError(t, g.AddEdge(a, b))
	require.NoError(t, g.AddEdge(b, c))
	require.NoError(t, g.AddEdge(c, a))
	for _, n := range g.Nodes() {
		n.SetTable([]float64{1})
	}

	problems := g.Validate()
	require.Len(t, problems, 1)
	assert.Equal(t, Problem{Message: "cycle A -> B -> C -> A", Level: LevelError}, problems[0])
}
