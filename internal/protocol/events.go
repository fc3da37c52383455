package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/bayes/internal/network"
	"github.com/roach88/bayes/internal/wire"
)

// Incoming event names.
const (
	EvInfo         = "info"
	EvNetworkName  = "network-name"
	EvNodeName     = "node-name"
	EvNodeMeta     = "node-meta"
	EvNodeVals     = "node-vals"
	EvNodeTable    = "node-table"
	EvAddAlgorithm = "add-algorithm"
	EvNodeParent   = "node-parent"
	EvLoadFileDone = "load-file-done"
	EvSetval       = "setval"
	EvQueryDone    = "query-done"
	EvFileSaveDone = "file-save-done"
	EvError        = "error"
)

// NoParam is the add-algorithm marker for an algorithm without parameter.
const NoParam = "NIL"

// anyCount accepts any number of arguments.
const anyCount = -1

// eventRule is the argument-count contract of one event.
type eventRule struct {
	args    int  // Exact count, minimum if atLeast, or anyCount
	atLeast bool // args is a minimum
	handle  func(c *Controller, args []string)
}

func (r eventRule) accepts(n int) bool {
	switch {
	case r.args == anyCount:
		return true
	case r.atLeast:
		return n >= r.args
	default:
		return n == r.args
	}
}

var rules = map[string]eventRule{
	EvInfo:         {args: 1, handle: (*Controller).onInfo},
	EvNetworkName:  {args: 1, handle: (*Controller).onNetworkName},
	EvNodeName:     {args: 1, handle: (*Controller).onNodeName},
	EvNodeMeta:     {args: 3, handle: (*Controller).onNodeMeta},
	EvNodeVals:     {args: 3, atLeast: true, handle: (*Controller).onNodeVals},
	EvNodeTable:    {args: 3, atLeast: true, handle: (*Controller).onNodeTable},
	EvAddAlgorithm: {args: 2, handle: (*Controller).onAddAlgorithm},
	EvNodeParent:   {args: 2, handle: (*Controller).onNodeParent},
	EvLoadFileDone: {args: 0, handle: (*Controller).onLoadFileDone},
	EvSetval:       {args: 3, handle: (*Controller).onSetval},
	EvQueryDone:    {args: 0, handle: (*Controller).onQueryDone},
	EvFileSaveDone: {args: 0, handle: (*Controller).onFileSaveDone},
	EvError:        {args: anyCount, handle: (*Controller).onError},
}

// Handle applies one decoded engine event. It has the signature of
// engine.Handler.
//
// An event whose name is not known, or whose argument count does not match
// its contract, is treated like an engine error: the active flow is aborted
// and the listener is told. Events with arguments that do not parse (a
// number that is not a number, a node that does not exist) are ignored.
func (c *Controller) Handle(ev wire.Event) {
	rule, ok := rules[ev.Name]
	if !ok || !rule.accepts(len(ev.Args)) {
		c.logger.Warn("unknown command", "name", ev.Name, "args", len(ev.Args))
		c.fail(fmt.Sprintf("unknown command: %s (%d)", ev.Name, len(ev.Args)), true)
		return
	}
	rule.handle(c, ev.Args)
}

// ignore logs a well-formed event that could not be applied.
func (c *Controller) ignore(event, reason string, args []string) {
	c.logger.Debug("event ignored", "event", event, "reason", reason, "args", args)
}

// node looks up a node in the current network.
func (c *Controller) node(name string) *network.Node {
	if c.network == nil {
		return nil
	}
	return c.network.Node(name)
}

func (c *Controller) loading() bool {
	return c.flow == FlowLoad && c.network != nil
}

func (c *Controller) onInfo(args []string) {
	c.logger.Info("engine info", "message", args[0])
	c.listener.Info(args[0])
}

func (c *Controller) onNetworkName(args []string) {
	if !c.loading() {
		c.ignore(EvNetworkName, "not loading", args)
		return
	}
	c.network.SetName(args[0])
}

func (c *Controller) onNodeName(args []string) {
	if !c.loading() {
		c.ignore(EvNodeName, "not loading", args)
		return
	}
	c.network.AddNode(args[0])
}

func (c *Controller) onNodeMeta(args []string) {
	n := c.node(args[0])
	if n == nil {
		c.ignore(EvNodeMeta, "no such node", args)
		return
	}
	v, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		c.ignore(EvNodeMeta, "not a number", args)
		return
	}
	switch {
	case strings.EqualFold(args[1], ":x"):
		n.SetMeta(network.MetaX, v)
	case strings.EqualFold(args[1], ":y"):
		n.SetMeta(network.MetaY, v)
	default:
		c.ignore(EvNodeMeta, "unknown key", args)
	}
}

func (c *Controller) onNodeVals(args []string) {
	if !c.loading() {
		c.ignore(EvNodeVals, "not loading", args)
		return
	}
	n := c.node(args[0])
	if n == nil {
		c.ignore(EvNodeVals, "no such node", args)
		return
	}
	n.SetValues(args[1:])
}

func (c *Controller) onNodeTable(args []string) {
	n := c.node(args[0])
	if n == nil {
		c.ignore(EvNodeTable, "no such node", args)
		return
	}
	table := make([]float64, 0, len(args)-1)
	for _, a := range args[1:] {
		p, err := strconv.ParseFloat(a, 64)
		if err != nil {
			c.ignore(EvNodeTable, "not a number", args)
			return
		}
		table = append(table, p)
	}
	n.SetTable(table)
}

func (c *Controller) onAddAlgorithm(args []string) {
	a := Algorithm{Name: args[0], HasParam: args[1] != NoParam}
	c.algorithms = append(c.algorithms, a)
	c.listener.AlgorithmAdded(a)
}

// onNodeParent handles node-parent CHILD PARENT. The wire order is the
// reverse of the edge direction: the edge runs PARENT -> CHILD.
func (c *Controller) onNodeParent(args []string) {
	if c.network == nil {
		c.ignore(EvNodeParent, "no network", args)
		return
	}
	if err := c.network.AddEdgeByName(args[1], args[0]); err != nil {
		c.ignore(EvNodeParent, err.Error(), args)
	}
}

func (c *Controller) onLoadFileDone([]string) { c.complete(FlowLoad) }

func (c *Controller) onSetval(args []string) {
	n := c.node(args[0])
	if n == nil {
		c.ignore(EvSetval, "no such node", args)
		return
	}
	p, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		c.ignore(EvSetval, "not a number", args)
		return
	}
	if !n.SetPosterior(args[1], p) {
		c.ignore(EvSetval, "no such value", args)
	}
}

func (c *Controller) onQueryDone([]string) { c.complete(FlowQuery) }

func (c *Controller) onFileSaveDone([]string) { c.complete(FlowSave) }

func (c *Controller) onError(args []string) {
	c.fail(strings.Join(args, " "), false)
}
