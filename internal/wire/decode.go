package wire

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/bayes/internal/sexp"
)

// Event is a decoded reply from the engine. Arguments are always strings;
// numbers and booleans are not re-typed.
type Event struct {
	Name string
	Args []string
}

// String renders the event as space-separated tokens, for logs.
func (e Event) String() string {
	if len(e.Args) == 0 {
		return e.Name
	}
	return e.Name + " " + strings.Join(e.Args, " ")
}

// Decode flattens expr depth-first into atom tokens. Nested lists do not
// stop flattening: their atoms are appended in place and their structure is
// dropped. The first token, lower-cased, is the event name.
//
// ok is false when expr contains no atoms at all.
func Decode(expr sexp.Expr) (Event, bool) {
	tokens := Flatten(expr, nil)
	if len(tokens) == 0 {
		return Event{}, false
	}
	return Event{
		Name: cases.Lower(language.Und).String(tokens[0]),
		Args: tokens[1:],
	}, true
}

// Flatten appends the atom texts of expr to dst in depth-first order.
func Flatten(expr sexp.Expr, dst []string) []string {
	switch e := expr.(type) {
	case sexp.Atom:
		return append(dst, e.Text)
	case sexp.List:
		for _, child := range e {
			dst = Flatten(child, dst)
		}
	}
	return dst
}
