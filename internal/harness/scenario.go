package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/bayes/internal/config"
)

// Scenario is a scripted conversation with a fake engine and the checks
// to run on its outcome.
type Scenario struct {
	// Name uniquely identifies this scenario. It names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Network is an optional network file loaded offline before the steps,
	// as if the user had built it in the editor. Relative paths are resolved
	// against the scenario file's directory.
	Network string `yaml:"network,omitempty"`

	// ChunkSize splits every engine reply into pieces of this many bytes.
	ChunkSize int `yaml:"chunk_size,omitempty"`

	// FlowToken is the prefix of the numbered flow tokens. Default: "flow".
	FlowToken string `yaml:"flow_token,omitempty"`

	// Diff holds the convergence options sent with redefining queries.
	Diff config.DiffConfig `yaml:"diff,omitempty"`

	// Engine maps a command name to the replies sent for it.
	Engine map[string][]string `yaml:"engine"`

	// Steps are executed in order; the engine's replies are processed
	// after each one.
	Steps []Step `yaml:"steps"`

	// Assertions validate the transcript and the final state.
	Assertions []Assertion `yaml:"assertions"`
}

// Step is one user action. Exactly one action field is set.
type Step struct {
	// Open loads a file through the engine.
	Open string `yaml:"open,omitempty"`

	// Save sends the network and asks the engine to write it to this path.
	Save string `yaml:"save,omitempty"`

	// Query runs inference with the evidence set so far.
	Query *QueryStep `yaml:"query,omitempty"`

	// Algorithms asks the engine to list its algorithms.
	Algorithms bool `yaml:"algorithms,omitempty"`

	// Evidence sets observed values by node name. An empty value clears
	// the node's evidence.
	Evidence map[string]string `yaml:"evidence,omitempty"`

	// Emit makes the engine write text without being asked.
	Emit string `yaml:"emit,omitempty"`

	// ExpectError is a substring of the error the step must return. Without
	// it any step error fails the scenario.
	ExpectError string `yaml:"expect_error,omitempty"`
}

// QueryStep selects the algorithm for a query step.
type QueryStep struct {
	Algorithm string `yaml:"algorithm"`

	// Param is sent after the algorithm name when set.
	Param *int `yaml:"param,omitempty"`

	// Redefine sends the network and diff options before the query.
	Redefine bool `yaml:"redefine,omitempty"`
}

// action names the step's action, or "" if none is set.
func (s Step) action() (string, int) {
	name, n := "", 0
	set := func(ok bool, a string) {
		if ok {
			name = a
			n++
		}
	}
	set(s.Open != "", "open")
	set(s.Save != "", "save")
	set(s.Query != nil, "query")
	set(s.Algorithms, "algorithms")
	set(s.Evidence != nil, "evidence")
	set(s.Emit != "", "emit")
	return name, n
}

// Assertion validates the transcript or the final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Name is a message name (trace_contains, trace_count).
	Name string `yaml:"name,omitempty"`

	// Direction restricts trace assertions to "out" or "in".
	Direction string `yaml:"direction,omitempty"`

	// Args are the exact message arguments (trace_contains). Omitted means
	// any arguments.
	Args []string `yaml:"args,omitempty"`

	// Names is the expected order of message names (trace_order).
	Names []string `yaml:"names,omitempty"`

	// Count is the expected number of messages (trace_count).
	Count int `yaml:"count,omitempty"`

	// Flow is "load", "save" or "query" (flow_completed, flow_failed).
	Flow string `yaml:"flow,omitempty"`

	// Message is a substring of the engine's error (flow_failed).
	Message string `yaml:"message,omitempty"`

	// Node names the final node (final_*).
	Node string `yaml:"node,omitempty"`

	// Value and Probability are checked by final_posterior.
	Value       string  `yaml:"value,omitempty"`
	Probability float64 `yaml:"probability,omitempty"`

	// Table is the expected CPT (final_table).
	Table []float64 `yaml:"table,omitempty"`

	// Parents are the expected parent names in order (final_parents).
	Parents []string `yaml:"parents,omitempty"`

	// Algorithms are the expected algorithm names in order (algorithms).
	Algorithms []string `yaml:"algorithms,omitempty"`
}

// Assertion type constants.
const (
	AssertTraceContains  = "trace_contains"
	AssertTraceOrder     = "trace_order"
	AssertTraceCount     = "trace_count"
	AssertFlowCompleted  = "flow_completed"
	AssertFlowFailed     = "flow_failed"
	AssertFinalParents   = "final_parents"
	AssertFinalTable     = "final_table"
	AssertFinalPosterior = "final_posterior"
	AssertAlgorithms     = "algorithms"
)

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
// A relative network path is resolved against the file's directory.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	// Strict decoding catches typos like "assertion:" vs "assertions:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if scenario.Network != "" && !filepath.IsAbs(scenario.Network) {
		scenario.Network = filepath.Join(filepath.Dir(path), scenario.Network)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	if s.ChunkSize < 0 {
		return fmt.Errorf("chunk_size must not be negative")
	}

	if s.Network != "" {
		if _, err := os.Stat(s.Network); os.IsNotExist(err) {
			return fmt.Errorf("network file not found: %s", s.Network)
		}
	}

	for i, step := range s.Steps {
		name, n := step.action()
		if n != 1 {
			return fmt.Errorf("steps[%d]: exactly one action is required, got %d", i, n)
		}
		if name == "query" && step.Query.Algorithm == "" {
			return fmt.Errorf("steps[%d].query: algorithm is required", i)
		}
	}

	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}

	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	if a.Type == "" {
		return fmt.Errorf("assertions[%d]: type is required", index)
	}

	switch a.Direction {
	case "", "out", "in":
	default:
		return fmt.Errorf("assertions[%d]: direction must be out or in, got %q", index, a.Direction)
	}

	switch a.Type {
	case AssertTraceContains:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for trace_contains", index)
		}
	case AssertTraceOrder:
		if len(a.Names) == 0 {
			return fmt.Errorf("assertions[%d]: names list is required for trace_order", index)
		}
	case AssertTraceCount:
		if a.Name == "" {
			return fmt.Errorf("assertions[%d]: name is required for trace_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for trace_count", index)
		}
	case AssertFlowCompleted, AssertFlowFailed:
		switch a.Flow {
		case "load", "save", "query":
		default:
			return fmt.Errorf("assertions[%d]: flow must be load, save or query for %s", index, a.Type)
		}
	case AssertFinalParents, AssertFinalTable:
		if a.Node == "" {
			return fmt.Errorf("assertions[%d]: node is required for %s", index, a.Type)
		}
	case AssertFinalPosterior:
		if a.Node == "" || a.Value == "" {
			return fmt.Errorf("assertions[%d]: node and value are required for final_posterior", index)
		}
	case AssertAlgorithms:
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}

	return nil
}
