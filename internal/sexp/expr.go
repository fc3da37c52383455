// Package sexp parses the S-expression text the reasoning engine writes to
// its standard output.
//
// The parser is incremental: bytes arrive in arbitrary chunks and Feed
// returns whatever top-level expressions became complete, carrying any
// partial atom, string or list over to the next call. It recognizes only
// structure (lists, bare atoms, double-quoted strings with backslash escapes,
// whitespace); it assigns no meaning to what it reads.
package sexp

import "strings"

// Expr is a sealed interface for parsed expressions.
// Only Atom and List implement it.
type Expr interface {
	expr() // Sealed
	String() string
}

// Atom is a single token. Quoted is true when the token was read from a
// double-quoted string, in which case Text holds the unescaped contents.
type Atom struct {
	Text   string
	Quoted bool
}

func (Atom) expr() {}

// String renders the atom back as text. Quoted atoms are re-escaped.
func (a Atom) String() string {
	if !a.Quoted {
		return a.Text
	}
	s := strings.ReplaceAll(a.Text, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}

// List is a parenthesized sequence of expressions.
type List []Expr

func (List) expr() {}

// String renders the list with single spaces between elements.
func (l List) String() string {
	var b strings.Builder
	b.WriteByte('(')
	for i, e := range l {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(e.String())
	}
	b.WriteByte(')')
	return b.String()
}

// Sym is shorthand for an unquoted Atom.
func Sym(text string) Atom {
	return Atom{Text: text}
}

// Str is shorthand for a quoted Atom.
func Str(text string) Atom {
	return Atom{Text: text, Quoted: true}
}
