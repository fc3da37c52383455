// Package harness runs scripted engine conversations as conformance tests.
//
// A scenario drives a protocol.Controller against a scripted fake engine,
// records every command and event in an in-memory transcript store, and
// checks the transcript and the final network against assertions.
//
// # Scenario Format
//
// Scenarios are defined in YAML files with the following structure:
//
//	name: rain_query
//	description: "Load Rain/Wet, observe Wet, query"
//	flow_token: rain
//	chunk_size: 7
//	diff: { small_value: 0.001, check_period: 50 }
//	engine:
//	  load-file:
//	    - "(network-name Rain)"
//	    - "(load-file-done)"
//	steps:
//	  - open: rain.net
//	  - evidence: { Wet: "yes" }
//	  - query: { algorithm: lazy, redefine: true }
//	assertions:
//	  - type: flow_completed
//	    flow: query
//	  - type: final_posterior
//	    node: Rain
//	    value: "yes"
//	    probability: 0.3
//
// engine maps a command name to the replies the fake engine writes each time
// that command arrives. Replies are split into chunk_size pieces when set.
//
// # Assertion Types
//
//   - trace_contains: a message with the given name (and args) was recorded
//   - trace_order: names appear in this order, not necessarily adjacent
//   - trace_count: a name appears exactly count times
//   - flow_completed: a flow of the given kind completed
//   - flow_failed: a flow failed, optionally with a message substring
//   - final_parents, final_table, final_posterior: state of a final node
//   - algorithms: the algorithms the engine offered, in order
//
// # Deterministic Testing
//
// Flow tokens are numbered from the scenario's flow_token prefix and the
// transcript is ordered by the recorder's logical seq, so the same scenario
// always produces a byte-identical transcript for golden comparison.
package harness
