package protocol

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/roach88/bayes/internal/config"
	"github.com/roach88/bayes/internal/engine"
	"github.com/roach88/bayes/internal/network"
	"github.com/roach88/bayes/internal/wire"
)

// Sender writes commands to the engine. *engine.Session implements it.
type Sender interface {
	SendCommand(cmd wire.Command) error
}

// Controller interprets engine events against the network being edited and
// drives the load, save and query operations.
//
// The engine's replies carry no request identifiers, so the controller
// tracks which operation is active and allows only one at a time. It is
// driven from the same goroutine as the engine session and has no locking.
type Controller struct {
	sender   Sender
	listener Listener
	logger   *slog.Logger
	flowGen  FlowTokenGenerator
	diff     config.DiffConfig

	network  *network.Network
	previous *network.Network // restored if a load fails

	flow       Flow
	token      string
	algorithms []Algorithm
	lastErr    *EngineError
}

// Option configures a Controller.
type Option func(*Controller)

// WithListener sets the listener. Default: NopListener.
func WithListener(l Listener) Option {
	return func(c *Controller) {
		c.listener = l
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// WithFlowGenerator sets the flow token generator. Default: UUIDv7Generator.
func WithFlowGenerator(g FlowTokenGenerator) Option {
	return func(c *Controller) {
		c.flowGen = g
	}
}

// WithDiff sets the convergence options sent before a query that redefines
// the network.
func WithDiff(d config.DiffConfig) Option {
	return func(c *Controller) {
		c.diff = d
	}
}

// NewController creates a controller that sends through sender.
func NewController(sender Sender, opts ...Option) *Controller {
	c := &Controller{
		sender:   sender,
		listener: NopListener{},
		logger:   slog.Default(),
		flowGen:  UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Network returns the current network, or nil.
func (c *Controller) Network() *network.Network { return c.network }

// SetNetwork replaces the current network, for example with one read from
// a local file.
func (c *Controller) SetNetwork(g *network.Network) { c.network = g }

// Flow returns the active operation.
func (c *Controller) Flow() Flow { return c.flow }

// FlowToken returns the token of the active operation, or "".
func (c *Controller) FlowToken() string { return c.token }

// Idle reports whether no operation is waiting for the engine.
func (c *Controller) Idle() bool { return c.flow == FlowNone }

// Algorithms returns the algorithms reported since the last RequestAlgorithms.
func (c *Controller) Algorithms() []Algorithm {
	out := make([]Algorithm, len(c.algorithms))
	copy(out, c.algorithms)
	return out
}

// Err returns the most recent engine error, or nil.
func (c *Controller) Err() error {
	if c.lastErr == nil {
		return nil
	}
	return c.lastErr
}

// Open starts loading path through the engine into a fresh network named
// after the file. The network is filled in by the engine's replies and the
// flow ends with load-file-done.
func (c *Controller) Open(path string) (string, error) {
	if err := c.begin(FlowLoad); err != nil {
		return "", err
	}
	c.openNetwork(path)

	if err := c.send(engine.LoadFileCommand(path)); err != nil {
		c.network = c.previous
		c.previous = nil
		return "", err
	}
	return c.token, nil
}

// Save defines the current network in the engine and asks it to write the
// network to path. The flow ends with file-save-done.
func (c *Controller) Save(path string) (string, error) {
	if c.network == nil {
		return "", ErrNoNetwork
	}
	if err := c.begin(FlowSave); err != nil {
		return "", err
	}
	if err := c.send(engine.LoadNetworkCommand(c.network)); err != nil {
		return "", err
	}
	if err := c.send(engine.SaveFileCommand(path)); err != nil {
		return "", err
	}
	return c.token, nil
}

// QueryOptions selects the algorithm for a query.
type QueryOptions struct {
	Algorithm string
	Param     int
	HasParam  bool

	// Redefine sends the whole network and the diff options first, which
	// is needed after any edit since the last query.
	Redefine bool
}

// Query asks the engine for posteriors given the evidence set on the
// network's nodes. Posteriors are reset first; the flow ends with
// query-done.
func (c *Controller) Query(opts QueryOptions) (string, error) {
	if c.network == nil {
		return "", ErrNoNetwork
	}
	if err := c.begin(FlowQuery); err != nil {
		return "", err
	}
	c.network.ResetPosteriors()

	if opts.Redefine {
		if err := c.send(engine.LoadNetworkCommand(c.network)); err != nil {
			return "", err
		}
		if c.diff.SmallValue > 0 {
			cmd := engine.SetOptionCommand(engine.OptionDiffSmallValue, wire.Float(c.diff.SmallValue))
			if err := c.send(cmd); err != nil {
				return "", err
			}
		}
		if c.diff.CheckPeriod > 0 {
			cmd := engine.SetOptionCommand(engine.OptionDiffCheckPeriod, wire.Int(c.diff.CheckPeriod))
			if err := c.send(cmd); err != nil {
				return "", err
			}
		}
	}

	req := engine.QueryRequest{
		Algorithm: opts.Algorithm,
		Param:     opts.Param,
		HasParam:  opts.HasParam,
		Evidence:  engine.EvidenceOf(c.network),
	}
	if err := c.send(engine.QueryCommand(req)); err != nil {
		return "", err
	}
	return c.token, nil
}

// RequestAlgorithms clears the known algorithms and asks the engine to list
// them. Replies arrive as add-algorithm events; there is no end marker.
func (c *Controller) RequestAlgorithms() error {
	c.algorithms = nil
	return c.sender.SendCommand(engine.AlgorithmsCommand())
}

// Abort forgets the active operation without notifying the listener. Late
// replies for it are still applied.
func (c *Controller) Abort() {
	c.flow = FlowNone
	c.token = ""
	c.previous = nil
}

func (c *Controller) begin(f Flow) error {
	if c.flow != FlowNone {
		return fmt.Errorf("start %s: %w (%s)", f, ErrFlowActive, c.flow)
	}
	c.start(f, c.flowGen.Generate())
	return nil
}

func (c *Controller) start(f Flow, token string) {
	c.flow = f
	c.token = token
	c.lastErr = nil
	c.logger.Debug("flow started", "flow", f.String(), "token", token)
}

// openNetwork replaces the network with an empty one named after path and
// remembers the old one for a failed load.
func (c *Controller) openNetwork(path string) {
	c.previous = c.network
	c.network = network.New(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
}

// send writes cmd, abandoning the active flow if the write fails.
func (c *Controller) send(cmd wire.Command) error {
	if err := c.sender.SendCommand(cmd); err != nil {
		c.logger.Error("send failed", "command", cmd.Name, "flow", c.flow.String(), "error", err)
		c.flow = FlowNone
		c.token = ""
		return err
	}
	return nil
}

// complete ends flow f if it is the active one.
func (c *Controller) complete(f Flow) {
	if c.flow != f {
		c.logger.Debug("completion without matching flow", "flow", f.String(), "active", c.flow.String())
		return
	}
	token := c.token
	c.flow = FlowNone
	c.token = ""
	c.previous = nil
	c.logger.Debug("flow completed", "flow", f.String(), "token", token)
	c.listener.FlowCompleted(f, token)
}

// fail aborts the active flow and reports err. A failed load discards the
// partially loaded network and restores the one that was open before.
func (c *Controller) fail(message string, unknown bool) {
	err := &EngineError{
		Flow:    c.flow,
		Token:   c.token,
		Message: message,
		Unknown: unknown,
	}
	if c.flow == FlowLoad {
		c.network = c.previous
	}
	c.flow = FlowNone
	c.token = ""
	c.previous = nil
	c.lastErr = err

	c.logger.Warn("engine failure", "flow", err.Flow.String(), "token", err.Token, "error", message)
	c.listener.FlowFailed(err)
}
