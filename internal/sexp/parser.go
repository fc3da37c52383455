package sexp

import (
	"errors"
)

// ErrIncomplete is returned by ParseAll when the input ends inside an
// expression.
var ErrIncomplete = errors.New("sexp: incomplete expression")

// Parser is an incremental S-expression reader.
//
// The zero value is ready to use. A Parser is not safe for concurrent use;
// the engine session drives it from a single goroutine.
type Parser struct {
	// stack holds the lists that are open, innermost last.
	stack []List

	// tok accumulates the bytes of the atom or string being read.
	tok []byte

	inAtom   bool
	inString bool
	escaped  bool
}

// Feed consumes chunk and returns the top-level expressions completed by it,
// in order. Input that does not yet form a complete expression is retained
// and continued by the next call.
//
// A bare top-level atom is complete only once a delimiter follows it, since
// more of it may still arrive.
func (p *Parser) Feed(chunk []byte) []Expr {
	var out []Expr
	for _, c := range chunk {
		if p.inString {
			p.stringByte(c, &out)
			continue
		}
		if p.inAtom {
			if !isDelimiter(c) {
				p.tok = append(p.tok, c)
				continue
			}
			p.emit(Atom{Text: string(p.tok)}, &out)
			p.inAtom = false
			p.tok = p.tok[:0]
		}

		switch {
		case isSpace(c):
		case c == '(':
			p.stack = append(p.stack, List{})
		case c == ')':
			if len(p.stack) == 0 {
				// Stray close paren at top level.
				continue
			}
			done := p.stack[len(p.stack)-1]
			p.stack = p.stack[:len(p.stack)-1]
			p.emit(done, &out)
		case c == '"':
			p.inString = true
			p.tok = p.tok[:0]
		default:
			p.inAtom = true
			p.tok = append(p.tok[:0], c)
		}
	}
	return out
}

func (p *Parser) stringByte(c byte, out *[]Expr) {
	switch {
	case p.escaped:
		p.tok = append(p.tok, c)
		p.escaped = false
	case c == '\\':
		p.escaped = true
	case c == '"':
		p.emit(Atom{Text: string(p.tok), Quoted: true}, out)
		p.inString = false
		p.tok = p.tok[:0]
	default:
		p.tok = append(p.tok, c)
	}
}

// emit attaches e to the innermost open list, or appends it to out when no
// list is open.
func (p *Parser) emit(e Expr, out *[]Expr) {
	if n := len(p.stack); n > 0 {
		p.stack[n-1] = append(p.stack[n-1], e)
		return
	}
	*out = append(*out, e)
}

// Pending reports whether partial input is being carried.
func (p *Parser) Pending() bool {
	return p.inAtom || p.inString || len(p.stack) > 0
}

// Depth returns the number of currently open lists.
func (p *Parser) Depth() int {
	return len(p.stack)
}

// Reset discards any carried partial input.
func (p *Parser) Reset() {
	p.stack = nil
	p.tok = p.tok[:0]
	p.inAtom = false
	p.inString = false
	p.escaped = false
}

// Flush completes a trailing bare top-level atom, which Feed holds back
// waiting for a delimiter. It returns nil when nothing can be completed.
func (p *Parser) Flush() []Expr {
	if !p.inAtom || len(p.stack) > 0 {
		return nil
	}
	a := Atom{Text: string(p.tok)}
	p.inAtom = false
	p.tok = p.tok[:0]
	return []Expr{a}
}

// ParseAll parses a complete input in one call.
func ParseAll(data []byte) ([]Expr, error) {
	var p Parser
	out := p.Feed(data)
	out = append(out, p.Flush()...)
	if p.Pending() {
		return out, ErrIncomplete
	}
	return out, nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f' || c == '\v'
}

func isDelimiter(c byte) bool {
	return isSpace(c) || c == '(' || c == ')' || c == '"'
}
