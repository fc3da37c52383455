package engine

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/bayes/internal/network"
	"github.com/roach88/bayes/internal/sexp"
)

// ParseLoadNetwork reads a load-network expression, as built by
// LoadNetworkCommand, back into a network.
//
// Parents are attached in the order listed before tables are set, so every
// table keeps the entries it was written with. Unknown keywords are
// ignored. Any structural problem is reported as ErrDefinition.
func ParseLoadNetwork(expr sexp.Expr) (*network.Network, error) {
	list, ok := expr.(sexp.List)
	if !ok || len(list) == 0 || !isSymbol(list[0], CmdLoadNetwork) {
		return nil, fmt.Errorf("%w: not a %s expression", ErrDefinition, CmdLoadNetwork)
	}

	g := network.New("")
	type pending struct {
		node    *network.Node
		parents []string
		table   []float64
	}
	var nodes []pending

	for i, item := range list[1:] {
		entry, ok := item.(sexp.List)
		if !ok || len(entry) == 0 {
			return nil, fmt.Errorf("%w: item %d is not a list", ErrDefinition, i)
		}
		props, err := plist(entry[1:])
		if err != nil {
			return nil, fmt.Errorf("%w: item %d: %w", ErrDefinition, i, err)
		}

		switch {
		case isSymbol(entry[0], "network"):
			name, _ := atomText(props[":name"])
			g.SetName(name)

		case isSymbol(entry[0], "node"):
			name, ok := atomText(props[":name"])
			if !ok || name == "" {
				return nil, fmt.Errorf("%w: node %d has no name", ErrDefinition, i)
			}
			values, err := texts(props[":vals"])
			if err != nil {
				return nil, fmt.Errorf("%w: node %s: vals: %w", ErrDefinition, name, err)
			}
			parents, err := texts(props[":parents"])
			if err != nil {
				return nil, fmt.Errorf("%w: node %s: parents: %w", ErrDefinition, name, err)
			}
			table, err := numbers(props[":table"])
			if err != nil {
				return nil, fmt.Errorf("%w: node %s: table: %w", ErrDefinition, name, err)
			}

			n := g.AddNode(name, values...)
			if meta, ok := props[":meta"].(sexp.List); ok {
				kv, err := plist(meta)
				if err != nil {
					return nil, fmt.Errorf("%w: node %s: meta: %w", ErrDefinition, name, err)
				}
				for k, v := range kv {
					text, _ := atomText(v)
					f, err := strconv.ParseFloat(text, 64)
					if err != nil {
						return nil, fmt.Errorf("%w: node %s: meta %s: %w", ErrDefinition, name, k, err)
					}
					n.SetMeta(strings.ToLower(strings.TrimPrefix(k, ":")), f)
				}
			}
			nodes = append(nodes, pending{node: n, parents: parents, table: table})

		default:
			return nil, fmt.Errorf("%w: unexpected item %s", ErrDefinition, entry[0])
		}
	}

	for _, p := range nodes {
		for _, parent := range p.parents {
			if err := g.AddEdgeByName(parent, p.node.Name()); err != nil {
				return nil, fmt.Errorf("%w: %s: parent %s: %w", ErrDefinition, p.node.Name(), parent, err)
			}
		}
	}
	for _, p := range nodes {
		if p.table != nil {
			p.node.SetTable(p.table)
		}
	}
	return g, nil
}

func isSymbol(e sexp.Expr, name string) bool {
	a, ok := e.(sexp.Atom)
	return ok && !a.Quoted && strings.EqualFold(a.Text, name)
}

func atomText(e sexp.Expr) (string, bool) {
	a, ok := e.(sexp.Atom)
	if !ok {
		return "", false
	}
	return a.Text, true
}

// plist reads alternating :keyword value pairs.
func plist(items []sexp.Expr) (map[string]sexp.Expr, error) {
	if len(items)%2 != 0 {
		return nil, errors.New("odd number of property items")
	}
	props := make(map[string]sexp.Expr, len(items)/2)
	for i := 0; i < len(items); i += 2 {
		key, ok := items[i].(sexp.Atom)
		if !ok || key.Quoted || !strings.HasPrefix(key.Text, ":") {
			return nil, fmt.Errorf("expected keyword, got %s", items[i])
		}
		props[strings.ToLower(key.Text)] = items[i+1]
	}
	return props, nil
}

// texts reads a list of atoms. A missing list reads as empty.
func texts(e sexp.Expr) ([]string, error) {
	if e == nil {
		return nil, nil
	}
	l, ok := e.(sexp.List)
	if !ok {
		return nil, fmt.Errorf("expected list, got %s", e)
	}
	out := make([]string, 0, len(l))
	for _, item := range l {
		s, ok := atomText(item)
		if !ok {
			return nil, fmt.Errorf("expected atom, got %s", item)
		}
		out = append(out, s)
	}
	return out, nil
}

func numbers(e sexp.Expr) ([]float64, error) {
	ss, err := texts(e)
	if err != nil || ss == nil {
		return nil, err
	}
	out := make([]float64, len(ss))
	for i, s := range ss {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, err
		}
		out[i] = f
	}
	return out, nil
}
