package netfile

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/ast"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/format"
	"cuelang.org/go/cue/token"
	"gopkg.in/yaml.v3"

	"github.com/roach88/bayes/internal/engine"
	"github.com/roach88/bayes/internal/network"
	"github.com/roach88/bayes/internal/sexp"
	"github.com/roach88/bayes/internal/wire"
)

//go:embed schema.cue
var schemaCUE string

// PositionError is a parse or schema error at a known place in a file.
type PositionError struct {
	Message string
	Pos     token.Pos
}

func (e *PositionError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return e.Message
}

func decodeYAML(data []byte) (*File, error) {
	var f File
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty file", ErrInvalid)
		}
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return &f, nil
}

func encodeYAML(f *File) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(f); err != nil {
		return nil, fmt.Errorf("encode YAML: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode YAML: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeCUE compiles data, unifies it with #Network and decodes the
// concrete result.
func decodeCUE(data []byte, name string) (*File, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	v := ctx.CompileBytes(data, cue.Filename(name))
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	unified := schema.LookupPath(cue.ParsePath("#Network")).Unify(v)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var f File
	if err := unified.Decode(&f); err != nil {
		return nil, formatCUEError(err)
	}
	return &f, nil
}

func encodeCUE(f *File) ([]byte, error) {
	ctx := cuecontext.New()
	v := ctx.Encode(f)
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("encode CUE: %w", err)
	}

	node := v.Syntax(cue.Final(), cue.Concrete(true))
	// Emit the fields at file level rather than as one braced struct.
	if s, ok := node.(*ast.StructLit); ok {
		node = &ast.File{Decls: s.Elts}
	}
	out, err := format.Node(node)
	if err != nil {
		return nil, fmt.Errorf("encode CUE: %w", err)
	}
	return out, nil
}

// formatCUEError keeps the first error and its position.
func formatCUEError(err error) error {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err
	}
	first := errs[0]
	pe := &PositionError{Message: first.Error()}
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		pe.Pos = positions[0]
	}
	return pe
}

func decodeSexp(data []byte) (*network.Network, error) {
	exprs, err := sexp.ParseAll(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", engine.CmdLoadNetwork, err)
	}
	if len(exprs) != 1 {
		return nil, fmt.Errorf("%w: want one %s expression, got %d", ErrInvalid, engine.CmdLoadNetwork, len(exprs))
	}
	return engine.ParseLoadNetwork(exprs[0])
}

func encodeSexp(g *network.Network) ([]byte, error) {
	return wire.Encode(engine.LoadNetworkCommand(g))
}
