package harness

import (
	"fmt"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// FormatTraceLine renders one message as
//
//	seq -> [token] (wire text)
//	seq <- [token] name args...
//
// Outgoing messages show the exact bytes written; incoming ones show the
// decoded event.
func FormatTraceLine(event TraceEvent) string {
	arrow := "<-"
	if event.Direction == "out" {
		arrow = "->"
	}
	return fmt.Sprintf("%d %s [%s] %s", event.Seq, arrow, event.FlowToken, event.Text)
}

// Transcript renders a trace one message per line. The output is
// deterministic for a deterministic scenario.
func Transcript(trace []TraceEvent) []byte {
	var buf strings.Builder
	for _, event := range trace {
		buf.WriteString(FormatTraceLine(event))
		buf.WriteByte('\n')
	}
	return []byte(buf.String())
}

// RunWithGolden executes a scenario and compares its transcript against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns the result so callers can check Pass and Errors as well.
// Test failure (via goldie) occurs if the transcript doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(scenario)
	if err != nil {
		return nil, err
	}
	AssertGolden(t, scenario.Name, result)
	return result, nil
}

// AssertGolden compares an already computed result's transcript against a
// golden file.
func AssertGolden(t *testing.T, name string, result *Result) {
	t.Helper()

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, Transcript(result.Trace))
}
