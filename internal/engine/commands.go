package engine

import (
	"github.com/roach88/bayes/internal/network"
	"github.com/roach88/bayes/internal/wire"
)

// Outgoing command names.
const (
	CmdQuit        = "quit"
	CmdLoadFile    = "load-file"
	CmdSaveFile    = "save-file"
	CmdAlgorithms  = "algorithms"
	CmdQuery       = "query"
	CmdSetOption   = "set-option"
	CmdLoadNetwork = "load-network"
)

// Options understood by set-option.
const (
	OptionDiffSmallValue  = "diff-small-value"
	OptionDiffCheckPeriod = "diff-check-period"
)

// Observation is one evidence pair sent with a query.
type Observation struct {
	Node  string
	Value string
}

// QueryRequest describes a query command.
type QueryRequest struct {
	Algorithm string
	Param     int
	HasParam  bool
	Evidence  []Observation
}

// QuitCommand asks the engine to exit.
func QuitCommand() wire.Command {
	return wire.NewCommand(CmdQuit)
}

// LoadFileCommand asks the engine to read a network file and stream it back.
func LoadFileCommand(path string) wire.Command {
	return wire.NewCommand(CmdLoadFile, wire.String(path), wire.Bool(true))
}

// SaveFileCommand asks the engine to write the last defined network to path.
func SaveFileCommand(path string) wire.Command {
	return wire.NewCommand(CmdSaveFile, wire.String(path))
}

// AlgorithmsCommand asks the engine to list its inference algorithms.
func AlgorithmsCommand() wire.Command {
	return wire.NewCommand(CmdAlgorithms)
}

// SetOptionCommand sets an engine option.
func SetOptionCommand(name string, value wire.Arg) wire.Command {
	return wire.NewCommand(CmdSetOption, wire.String(name), value)
}

// QueryCommand builds
//
//	(query "algorithm" [param] ("node" "value")...)
func QueryCommand(q QueryRequest) wire.Command {
	args := []wire.Arg{wire.String(q.Algorithm)}
	if q.HasParam {
		args = append(args, wire.Int(q.Param))
	}
	for _, o := range q.Evidence {
		args = append(args, wire.Strings(o.Node, o.Value))
	}
	return wire.NewCommand(CmdQuery, args...)
}

// EvidenceOf collects the evidence set on g's nodes, in node order.
func EvidenceOf(g *network.Network) []Observation {
	var obs []Observation
	for _, n := range g.EvidenceNodes() {
		i, _ := n.Evidence()
		obs = append(obs, Observation{Node: n.Name(), Value: n.Values()[i]})
	}
	return obs
}

// LoadNetworkCommand describes g in full so the engine can replace its
// current network:
//
//	(load-network (network :name "N")
//	              (node :name "A" :vals ("a" "b") :parents ("P")
//	                    :table (0.1 0.9) :meta (:x 1 :y 2))
//	              ...)
//
// Type tags and keywords are written as bare symbols. Metadata keys are
// sorted.
func LoadNetworkCommand(g *network.Network) wire.Command {
	args := []wire.Arg{
		symbols(wire.List{}, "network", ":name", g.Name()),
	}

	for _, n := range g.Nodes() {
		meta := wire.List{}
		for _, k := range n.MetaKeys() {
			v, _ := n.Meta(k)
			meta = append(meta, wire.RawSymbol{}, wire.String(":"+k), wire.Float(v))
		}

		node := symbols(wire.List{}, "node", ":name", n.Name())
		node = append(node, wire.RawSymbol{}, wire.String(":vals"), wire.Strings(n.Values()...))
		node = append(node, wire.RawSymbol{}, wire.String(":parents"), wire.Strings(n.ParentNames()...))
		node = append(node, wire.RawSymbol{}, wire.String(":table"), wire.Floats(n.Table()))
		node = append(node, wire.RawSymbol{}, wire.String(":meta"), meta)
		args = append(args, node)
	}

	return wire.NewCommand(CmdLoadNetwork, args...)
}

// symbols appends a bare type tag, a bare keyword and a quoted value.
func symbols(l wire.List, tag, keyword, value string) wire.List {
	l = append(l, wire.Raw(tag)...)
	l = append(l, wire.Raw(keyword)...)
	return append(l, wire.String(value))
}

// Quit sends quit without closing the session.
func (s *Session) Quit() error { return s.SendCommand(QuitCommand()) }

// LoadFile sends load-file.
func (s *Session) LoadFile(path string) error { return s.SendCommand(LoadFileCommand(path)) }

// SaveFile sends save-file.
func (s *Session) SaveFile(path string) error { return s.SendCommand(SaveFileCommand(path)) }

// Algorithms sends algorithms.
func (s *Session) Algorithms() error { return s.SendCommand(AlgorithmsCommand()) }

// Query sends query.
func (s *Session) Query(q QueryRequest) error { return s.SendCommand(QueryCommand(q)) }

// SetOption sends set-option.
func (s *Session) SetOption(name string, value wire.Arg) error {
	return s.SendCommand(SetOptionCommand(name, value))
}

// LoadNetwork sends load-network for g.
func (s *Session) LoadNetwork(g *network.Network) error {
	return s.SendCommand(LoadNetworkCommand(g))
}
