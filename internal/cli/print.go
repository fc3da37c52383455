package cli

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/roach88/bayes/internal/network"
)

// printNetwork writes a one-line-per-node summary of g.
func printNetwork(w io.Writer, g *network.Network) {
	fmt.Fprintf(w, "network %s (%d nodes)\n", g.Name(), g.Len())
	for _, n := range g.Nodes() {
		line := fmt.Sprintf("  %s [%s]", n.Name(), strings.Join(n.Values(), " "))
		if parents := n.ParentNames(); len(parents) > 0 {
			line += " <- " + strings.Join(parents, ", ")
		}
		if i, ok := n.Evidence(); ok {
			line += " = " + n.Values()[i]
		}
		fmt.Fprintln(w, line)
	}
}

// printPosteriors writes each node's query results.
func printPosteriors(w io.Writer, g *network.Network) {
	for _, n := range g.Nodes() {
		values := n.Values()
		parts := make([]string, len(values))
		for i, v := range values {
			parts[i] = v + "=" + formatProbability(n.Posterior(i))
		}
		fmt.Fprintf(w, "%s\t%s\n", n.Name(), strings.Join(parts, " "))
	}
}

func formatProbability(p float64) string {
	return strconv.FormatFloat(p, 'g', 6, 64)
}

// posteriors returns the query results keyed by node name.
func posteriors(g *network.Network) map[string]map[string]float64 {
	out := make(map[string]map[string]float64, g.Len())
	for _, n := range g.Nodes() {
		m := make(map[string]float64, n.Arity())
		for i, v := range n.Values() {
			m[v] = n.Posterior(i)
		}
		out[n.Name()] = m
	}
	return out
}
