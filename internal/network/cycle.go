package network

import (
	"fmt"
	"strings"
)

// CycleError reports a directed cycle.
type CycleError struct {
	Path []string // Cycle path: ["A", "B", "A"]
}

func (e *CycleError) Error() string {
	return "network: cycle " + strings.Join(e.Path, " -> ")
}

// adjacency maps node position -> positions of its children.
type adjacency [][]int

func (g *Network) adjacency() adjacency {
	pos := make(map[*Node]int, len(g.nodes))
	for i, n := range g.nodes {
		pos[n] = i
	}
	adj := make(adjacency, len(g.nodes))
	for _, e := range g.edges {
		adj[pos[e.From]] = append(adj[pos[e.From]], pos[e.To])
	}
	return adj
}

// Cycles returns every directed cycle as a path of node names that starts
// and ends at the same node.
//
// The algorithm:
//  1. Use Tarjan's algorithm to find strongly connected components
//  2. Report each component with more than one node as a cycle
//
// Self edges cannot be created, so single-node components are never cycles.
// A DAG returns nil.
func (g *Network) Cycles() [][]string {
	adj := g.adjacency()
	var cycles [][]string
	for _, scc := range tarjanSCC(adj) {
		if len(scc) < 2 {
			continue
		}
		path := reconstructCyclePath(scc, adj)
		names := make([]string, len(path))
		for i, p := range path {
			names[i] = g.nodes[p].name
		}
		cycles = append(cycles, names)
	}
	return cycles
}

// CheckAcyclic returns a *CycleError for the first cycle found, or nil.
func (g *Network) CheckAcyclic() error {
	cycles := g.Cycles()
	if len(cycles) == 0 {
		return nil
	}
	return &CycleError{Path: cycles[0]}
}

// TopologicalOrder returns the nodes ordered so that every parent precedes
// its children. Ties keep insertion order.
func (g *Network) TopologicalOrder() ([]*Node, error) {
	if err := g.CheckAcyclic(); err != nil {
		return nil, err
	}

	adj := g.adjacency()
	indegree := make([]int, len(g.nodes))
	for _, children := range adj {
		for _, c := range children {
			indegree[c]++
		}
	}

	// Kahn's algorithm, always taking the lowest ready position.
	order := make([]*Node, 0, len(g.nodes))
	done := make([]bool, len(g.nodes))
	for len(order) < len(g.nodes) {
		next := -1
		for i := range g.nodes {
			if !done[i] && indegree[i] == 0 {
				next = i
				break
			}
		}
		if next < 0 {
			// Unreachable after CheckAcyclic.
			return nil, fmt.Errorf("topological order: %w", &CycleError{})
		}
		done[next] = true
		order = append(order, g.nodes[next])
		for _, c := range adj[next] {
			indegree[c]--
		}
	}
	return order, nil
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in position order so results are deterministic.
func tarjanSCC(adj adjacency) [][]int {
	var (
		index   = 0
		stack   []int
		indices = make([]int, len(adj))
		lowlink = make([]int, len(adj))
		onStack = make([]bool, len(adj))
		sccs    [][]int
	)
	for i := range indices {
		indices[i] = -1
	}

	var strongConnect func(int)
	strongConnect = func(v int) {
		// Set the depth index for v
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range adj[v] {
			if indices[w] < 0 {
				// Successor w has not yet been visited; recurse on it
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				// Successor w is on stack and hence in the current SCC
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		// If v is a root node, pop the stack and create an SCC
		if lowlink[v] == indices[v] {
			var scc []int
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sccs = append(sccs, scc)
		}
	}

	for v := range adj {
		if indices[v] < 0 {
			strongConnect(v)
		}
	}
	return sccs
}

// reconstructCyclePath walks edges inside an SCC from its lowest position
// until it returns to the start.
//
// Every SCC with two or more members contains a cycle through any member,
// but a greedy walk can dead-end, so this does a DFS restricted to the SCC.
func reconstructCyclePath(scc []int, adj adjacency) []int {
	member := make(map[int]bool, len(scc))
	start := scc[0]
	for _, v := range scc {
		member[v] = true
		start = min(start, v)
	}

	visited := make(map[int]bool)
	var path []int
	var dfs func(int) bool
	dfs = func(v int) bool {
		visited[v] = true
		path = append(path, v)
		for _, w := range adj[v] {
			if w == start {
				path = append(path, start)
				return true
			}
			if member[w] && !visited[w] && dfs(w) {
				return true
			}
		}
		path = path[:len(path)-1]
		return false
	}
	dfs(start)
	return path
}
