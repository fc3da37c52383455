package protocol

import (
	"fmt"

	"github.com/roach88/bayes/internal/engine"
	"github.com/roach88/bayes/internal/sexp"
	"github.com/roach88/bayes/internal/wire"
)

// Replay applies a recorded outgoing command as if this controller had just
// sent it, without sending anything. Feeding a recorded session's commands
// to Replay and its events to Handle, in their original order, rebuilds the
// state the session ended with.
//
// token is the flow token the command was recorded under. A flow still
// active when a new one starts is dropped, since a recording can end or
// break mid-flow.
func (c *Controller) Replay(expr sexp.Expr, token string) error {
	cmd, ok := wire.Decode(expr)
	if !ok {
		return nil
	}

	switch cmd.Name {
	case engine.CmdLoadFile:
		if len(cmd.Args) == 0 {
			return fmt.Errorf("replay %s: missing path", cmd.Name)
		}
		c.restart(FlowLoad, token)
		c.openNetwork(cmd.Args[0])

	case engine.CmdLoadNetwork:
		g, err := engine.ParseLoadNetwork(expr)
		if err != nil {
			return fmt.Errorf("replay %s: %w", cmd.Name, err)
		}
		c.network = g

	case engine.CmdSaveFile:
		c.restart(FlowSave, token)

	case engine.CmdQuery:
		c.restart(FlowQuery, token)
		if c.network != nil {
			c.network.ResetPosteriors()
		}

	case engine.CmdAlgorithms:
		c.algorithms = nil

	default:
		c.logger.Debug("replay: no state change", "command", cmd.Name)
	}
	return nil
}

// restart starts f under token unless it is already the active flow, which
// is the case for the second and later commands of one save or query.
func (c *Controller) restart(f Flow, token string) {
	if c.flow == f && c.token == token {
		return
	}
	if c.flow != FlowNone {
		c.logger.Debug("replay: dropping unfinished flow", "flow", c.flow.String(), "token", c.token)
		c.Abort()
	}
	c.start(f, token)
}
