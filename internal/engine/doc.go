// Package engine runs the external reasoning engine as a child process and
// speaks its S-expression protocol.
//
// ARCHITECTURE:
//
// A Session owns one Conn for its whole life. Outgoing commands are encoded
// by package wire and written immediately, one write per command. Replies
// are fed through a streaming sexp.Parser and every complete expression is
// decoded into a wire.Event and handed to the session's Handler in arrival
// order.
//
// Threading:
// The Process transport owns two reader goroutines that only copy raw bytes
// from the engine's stdout and stderr onto channels. Everything else
// (parsing, decoding, dispatch, and mutation of whatever the handler
// touches) happens on the goroutine that calls Poll, Pump or Close. A
// Session is therefore not safe for concurrent use, and needs no locks.
//
// Correlation:
// The protocol has no request identifiers. Replies are matched to requests
// purely by order, and there is no timeout: if the engine never answers,
// Poll waits until its context is cancelled. Cancelling a Poll never
// touches the engine process.
//
// Shutdown:
// Close sends quit, closes the engine's stdin, pumps whatever output is
// still buffered, and blocks until the process exits.
package engine
