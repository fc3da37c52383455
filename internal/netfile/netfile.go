// Package netfile reads and writes network definitions on disk.
//
// Three formats are understood, chosen by file extension:
//
//	.yaml, .yml   YAML document (File)
//	.cue          CUE value checked against the #Network schema
//	.sexp, .lisp  a single load-network expression, as sent to the engine
//
// Names and value labels are normalized to Unicode NFC when read, so a
// label typed on one system matches the same label typed on another.
package netfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/bayes/internal/network"
)

var (
	// ErrUnknownFormat is returned for a path whose extension is not
	// recognized.
	ErrUnknownFormat = errors.New("netfile: unknown format")

	// ErrInvalid is returned when a definition parses but does not describe
	// a network: duplicate node names, an unknown parent.
	ErrInvalid = errors.New("netfile: invalid network")
)

// Format is an on-disk representation.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatCUE  Format = "cue"
	FormatSexp Format = "sexp"
)

// FormatOf returns the format for path's extension.
func FormatOf(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".cue":
		return FormatCUE, nil
	case ".sexp", ".lisp":
		return FormatSexp, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, filepath.Ext(path))
	}
}

// File is the document form of a network.
type File struct {
	Name  string     `yaml:"name" json:"name"`
	Nodes []NodeSpec `yaml:"nodes" json:"nodes"`
}

// NodeSpec is one node of a File.
type NodeSpec struct {
	Name    string   `yaml:"name" json:"name"`
	Values  []string `yaml:"values" json:"values"`
	Parents []string `yaml:"parents,omitempty" json:"parents,omitempty"`

	// Table is laid out with the node's own value varying fastest, then
	// each parent in order. Omitted means all zeros.
	Table []float64 `yaml:"table,omitempty" json:"table,omitempty"`

	// Meta holds editor metadata such as the x and y position.
	Meta map[string]float64 `yaml:"meta,omitempty" json:"meta,omitempty"`
}

// Load reads a network from path in the format its extension names.
func Load(path string) (*network.Network, error) {
	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read network file: %w", err)
	}
	g, err := Decode(data, format, filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return g, nil
}

// Decode parses data in the given format. name is used in error positions.
func Decode(data []byte, format Format, name string) (*network.Network, error) {
	switch format {
	case FormatYAML:
		f, err := decodeYAML(data)
		if err != nil {
			return nil, err
		}
		return Build(f)
	case FormatCUE:
		f, err := decodeCUE(data, name)
		if err != nil {
			return nil, err
		}
		return Build(f)
	case FormatSexp:
		g, err := decodeSexp(data)
		if err != nil {
			return nil, err
		}
		// Round-trip through File so sexp input is normalized like the rest.
		return Build(FromNetwork(g))
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Save writes g to path in the format its extension names.
func Save(path string, g *network.Network) error {
	format, err := FormatOf(path)
	if err != nil {
		return err
	}
	data, err := Encode(g, format)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write network file: %w", err)
	}
	return nil
}

// Encode renders g in the given format.
func Encode(g *network.Network, format Format) ([]byte, error) {
	switch format {
	case FormatYAML:
		return encodeYAML(FromNetwork(g))
	case FormatCUE:
		return encodeCUE(FromNetwork(g))
	case FormatSexp:
		return encodeSexp(g)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// Build creates a network from f. Node names, value labels and parent
// references are NFC-normalized. Parents are attached before tables are
// set, so a table given in f is kept as written.
func Build(f *File) (*network.Network, error) {
	g := network.New(nfc(f.Name))

	seen := make(map[string]bool, len(f.Nodes))
	for i, spec := range f.Nodes {
		name := nfc(spec.Name)
		if name == "" {
			return nil, fmt.Errorf("%w: node %d has no name", ErrInvalid, i)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate node %q", ErrInvalid, name)
		}
		seen[name] = true

		values := make([]string, len(spec.Values))
		for j, v := range spec.Values {
			values[j] = nfc(v)
		}
		n := g.AddNode(name, values...)
		for k, v := range spec.Meta {
			n.SetMeta(k, v)
		}
	}

	for _, spec := range f.Nodes {
		for _, parent := range spec.Parents {
			if err := g.AddEdgeByName(nfc(parent), nfc(spec.Name)); err != nil {
				return nil, fmt.Errorf("%w: %s: parent %q: %w", ErrInvalid, spec.Name, parent, err)
			}
		}
	}
	for _, spec := range f.Nodes {
		if spec.Table != nil {
			g.Node(nfc(spec.Name)).SetTable(spec.Table)
		}
	}
	return g, nil
}

// FromNetwork returns the document form of g.
func FromNetwork(g *network.Network) *File {
	f := &File{Name: g.Name(), Nodes: []NodeSpec{}}
	for _, n := range g.Nodes() {
		spec := NodeSpec{
			Name:    n.Name(),
			Values:  n.Values(),
			Parents: n.ParentNames(),
			Table:   n.Table(),
		}
		if len(spec.Parents) == 0 {
			spec.Parents = nil
		}
		if keys := n.MetaKeys(); len(keys) > 0 {
			spec.Meta = make(map[string]float64, len(keys))
			for _, k := range keys {
				spec.Meta[k], _ = n.Meta(k)
			}
		}
		if !slices.ContainsFunc(spec.Table, func(p float64) bool { return p != 0 }) {
			spec.Table = nil
		}
		f.Nodes = append(f.Nodes, spec)
	}
	return f
}

func nfc(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}
