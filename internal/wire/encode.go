package wire

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ErrNotFinite is returned when a Float argument is NaN or infinite.
var ErrNotFinite = errors.New("wire: float is not finite")

// Encode produces the wire text of cmd:
//
//	(name arg arg ...)\n
//
// The name is escaped but not quoted. Encoding is deterministic: the same
// command always yields the same bytes.
func Encode(cmd Command) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('(')
	buf.WriteString(Escape(cmd.Name))
	buf.WriteByte(' ')
	if err := encodeArgs(&buf, cmd.Args); err != nil {
		return nil, fmt.Errorf("encode %s: %w", cmd.Name, err)
	}
	buf.WriteString(")\n")
	return buf.Bytes(), nil
}

// Escape doubles backslashes and then escapes double quotes. The order
// matters: escaping quotes first would double the backslashes it inserts.
func Escape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

// encodeArgs writes args separated by single spaces. A RawSymbol writes
// nothing and marks the next argument as raw.
func encodeArgs(buf *bytes.Buffer, args []Arg) error {
	raw := false
	first := true
	for i, a := range args {
		if _, ok := a.(RawSymbol); ok {
			raw = true
			continue
		}
		if !first {
			buf.WriteByte(' ')
		}
		first = false
		if err := encodeArg(buf, a, raw); err != nil {
			return fmt.Errorf("arg %d: %w", i, err)
		}
		raw = false
	}
	return nil
}

func encodeArg(buf *bytes.Buffer, a Arg, raw bool) error {
	switch v := a.(type) {
	case String:
		if raw {
			buf.WriteString(string(v))
			return nil
		}
		buf.WriteByte('"')
		buf.WriteString(Escape(string(v)))
		buf.WriteByte('"')
	case Int:
		buf.WriteString(strconv.FormatInt(int64(v), 10))
	case Float:
		s, err := formatFloat(float64(v))
		if err != nil {
			return err
		}
		buf.WriteString(s)
	case Bool:
		if v {
			buf.WriteString("T")
		} else {
			buf.WriteString("NIL")
		}
	case List:
		buf.WriteByte('(')
		if err := encodeArgs(buf, v); err != nil {
			return err
		}
		buf.WriteByte(')')
	case nil:
		return fmt.Errorf("nil argument")
	default:
		return fmt.Errorf("unsupported argument type: %T", a)
	}
	return nil
}

func formatFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", fmt.Errorf("%w: %v", ErrNotFinite, f)
	}
	abs := math.Abs(f)
	if abs == 0 || (abs >= 1e-6 && abs < 1e21) {
		return strconv.FormatFloat(f, 'f', -1, 64), nil
	}
	return strconv.FormatFloat(f, 'g', -1, 64), nil
}
