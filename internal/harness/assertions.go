package harness

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/roach88/bayes/internal/protocol"
)

// tolerance is the allowed difference when comparing probabilities.
const tolerance = 1e-9

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, event := range e.Trace {
			fmt.Fprintf(&buf, "  %s\n", FormatTraceLine(event))
		}
	}

	return buf.String()
}

// matchesDirection reports whether event passes the assertion's direction
// filter.
func matchesDirection(event TraceEvent, direction string) bool {
	return direction == "" || event.Direction == direction
}

// assertTraceContains checks if the trace contains a message with the
// given name and, when given, exactly the given arguments.
func assertTraceContains(trace []TraceEvent, assertion Assertion) error {
	for _, event := range trace {
		if event.Name != assertion.Name || !matchesDirection(event, assertion.Direction) {
			continue
		}
		if assertion.Args == nil || slices.Equal(event.Args, assertion.Args) {
			return nil
		}
	}

	expected := assertion.Name
	if assertion.Args != nil {
		expected = fmt.Sprintf("%s with args %v", assertion.Name, assertion.Args)
	}
	return &AssertionError{
		Type:     AssertTraceContains,
		Expected: expected,
		Actual:   "not found in trace",
		Trace:    trace,
	}
}

// assertTraceOrder checks if names appear in the specified order.
// Names don't need to be consecutive (intervening messages are allowed).
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	next := 0
	for _, event := range trace {
		if next == len(assertion.Names) {
			break
		}
		if matchesDirection(event, assertion.Direction) && event.Name == assertion.Names[next] {
			next++
		}
	}

	if next < len(assertion.Names) {
		return &AssertionError{
			Type:     AssertTraceOrder,
			Expected: fmt.Sprintf("messages in order: %v", assertion.Names),
			Actual:   fmt.Sprintf("%s not found after %v", assertion.Names[next], assertion.Names[:next]),
			Trace:    trace,
		}
	}
	return nil
}

// assertTraceCount checks if the name appears exactly the specified number
// of times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, event := range trace {
		if event.Name == assertion.Name && matchesDirection(event, assertion.Direction) {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Name),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertFlow checks that a flow of the given kind ended the expected way.
func assertFlow(result *Result, assertion Assertion) error {
	failed := assertion.Type == AssertFlowFailed
	for _, outcome := range result.Flows {
		if outcome.Flow != assertion.Flow || outcome.Failed() != failed {
			continue
		}
		if !failed || strings.Contains(outcome.Error, assertion.Message) {
			return nil
		}
	}

	expected := fmt.Sprintf("%s flow completed", assertion.Flow)
	if failed {
		expected = fmt.Sprintf("%s flow failed with %q", assertion.Flow, assertion.Message)
	}
	return &AssertionError{
		Type:     assertion.Type,
		Expected: expected,
		Actual:   fmt.Sprintf("flows: %v", result.Flows),
	}
}

func assertFinalParents(result *Result, assertion Assertion) error {
	n := result.node(assertion.Node)
	if n == nil {
		return missingNode(assertion)
	}
	if !slices.Equal(n.Parents, assertion.Parents) && (len(n.Parents) > 0 || len(assertion.Parents) > 0) {
		return &AssertionError{
			Type:     AssertFinalParents,
			Expected: fmt.Sprintf("%s parents %v", assertion.Node, assertion.Parents),
			Actual:   fmt.Sprintf("%v", n.Parents),
		}
	}
	return nil
}

func assertFinalTable(result *Result, assertion Assertion) error {
	n := result.node(assertion.Node)
	if n == nil {
		return missingNode(assertion)
	}
	if !floatsEqual(n.Table, assertion.Table) {
		return &AssertionError{
			Type:     AssertFinalTable,
			Expected: fmt.Sprintf("%s table %v", assertion.Node, assertion.Table),
			Actual:   fmt.Sprintf("%v", n.Table),
		}
	}
	return nil
}

func assertFinalPosterior(result *Result, assertion Assertion) error {
	n := result.node(assertion.Node)
	if n == nil {
		return missingNode(assertion)
	}
	i := slices.Index(n.Values, assertion.Value)
	if i < 0 {
		return &AssertionError{
			Type:     AssertFinalPosterior,
			Expected: fmt.Sprintf("%s to have value %q", assertion.Node, assertion.Value),
			Actual:   fmt.Sprintf("values %v", n.Values),
		}
	}
	got := result.Posteriors[assertion.Node][i]
	if math.Abs(got-assertion.Probability) > tolerance {
		return &AssertionError{
			Type:     AssertFinalPosterior,
			Expected: fmt.Sprintf("P(%s=%s) = %v", assertion.Node, assertion.Value, assertion.Probability),
			Actual:   fmt.Sprintf("%v", got),
		}
	}
	return nil
}

func assertAlgorithms(result *Result, assertion Assertion) error {
	names := algorithmNames(result.Algorithms)
	if !slices.Equal(names, assertion.Algorithms) && (len(names) > 0 || len(assertion.Algorithms) > 0) {
		return &AssertionError{
			Type:     AssertAlgorithms,
			Expected: fmt.Sprintf("%v", assertion.Algorithms),
			Actual:   fmt.Sprintf("%v", names),
		}
	}
	return nil
}

func missingNode(assertion Assertion) error {
	return &AssertionError{
		Type:     assertion.Type,
		Expected: fmt.Sprintf("final network to have node %q", assertion.Node),
		Actual:   "not found",
	}
}

// floatsEqual treats a nil table as all zeros, as network files do.
func floatsEqual(actual, expected []float64) bool {
	if len(actual) == 0 && !slices.ContainsFunc(expected, func(p float64) bool { return p != 0 }) {
		return true
	}
	if len(actual) != len(expected) {
		return false
	}
	for i := range actual {
		if math.Abs(actual[i]-expected[i]) > tolerance {
			return false
		}
	}
	return true
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceContains:
			err = assertTraceContains(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertFlowCompleted, AssertFlowFailed:
			err = assertFlow(result, assertion)
		case AssertFinalParents:
			err = assertFinalParents(result, assertion)
		case AssertFinalTable:
			err = assertFinalTable(result, assertion)
		case AssertFinalPosterior:
			err = assertFinalPosterior(result, assertion)
		case AssertAlgorithms:
			err = assertAlgorithms(result, assertion)
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

func algorithmNames(algs []protocol.Algorithm) []string {
	names := make([]string, len(algs))
	for i, a := range algs {
		names[i] = a.Name
	}
	return names
}
