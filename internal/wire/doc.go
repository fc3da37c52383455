// Package wire is the command codec for the reasoning engine's text protocol.
//
// Outgoing commands are encoded as one parenthesized line:
//
//	(load-file "rain.net" T)
//	(query "lazy-propagation" (Rain yes))
//
// Arguments are a sealed set of types (String, Int, Float, Bool, List and the
// RawSymbol marker). Strings are quoted and escaped unless they follow a
// RawSymbol, which is how the protocol writes bare symbols like node or
// :name.
//
// Incoming replies arrive as parsed expressions from package sexp and are
// flattened into an Event: a lower-cased name plus string arguments.
package wire
