package wire

// Arg is a sealed interface for outgoing command arguments.
// Only String, Int, Float, Bool, List and RawSymbol implement it.
type Arg interface {
	wireArg() // Sealed - only these types implement it
}

// String is encoded as a double-quoted, escaped string literal.
type String string

func (String) wireArg() {}

// Int is encoded as a decimal literal.
type Int int64

func (Int) wireArg() {}

// Float is encoded as the shortest decimal text that reads back to the same
// value. Scientific notation is used only for magnitudes outside
// [1e-6, 1e21). NaN and infinities cannot be encoded.
type Float float64

func (Float) wireArg() {}

// Bool is encoded as the Lisp literals T and NIL.
type Bool bool

func (Bool) wireArg() {}

// List is encoded as its elements wrapped in parentheses.
type List []Arg

func (List) wireArg() {}

// RawSymbol emits no token of its own. It makes the argument that follows it
// be written verbatim, without quoting or escaping, which is how bare
// symbols such as node or :name are injected into an argument stream.
type RawSymbol struct{}

func (RawSymbol) wireArg() {}

// Raw returns a raw-symbol marker followed by s, producing the bare token s.
func Raw(s string) []Arg {
	return []Arg{RawSymbol{}, String(s)}
}

// Strings builds a List of String arguments.
func Strings(ss ...string) List {
	l := make(List, len(ss))
	for i, s := range ss {
		l[i] = String(s)
	}
	return l
}

// Floats builds a List of Float arguments.
func Floats(fs []float64) List {
	l := make(List, len(fs))
	for i, f := range fs {
		l[i] = Float(f)
	}
	return l
}

// Command is an outgoing request: a name and its ordered arguments.
type Command struct {
	Name string
	Args []Arg
}

// NewCommand creates a Command.
func NewCommand(name string, args ...Arg) Command {
	return Command{Name: name, Args: args}
}

// String returns the encoded wire text without the trailing newline, or a
// placeholder when the command cannot be encoded.
func (c Command) String() string {
	b, err := Encode(c)
	if err != nil {
		return "(" + c.Name + " <unencodable>)"
	}
	return string(b[:len(b)-1])
}
