package object

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"bis/internal/ast"
)

const (
	NIL_OBJ     = "NIL"
	BOOLEAN_OBJ = "BOOLEAN"
	NUMBER_OBJ  = "NUMBER"
	STRING_OBJ  = "STRING"

	LIST_OBJ     = "LIST"
	FUNCTION_OBJ = "FUNCTION"
	BUILTIN_OBJ  = "BUILTIN"
)

var (
	NIL   = &Nil{}
	TRUE  = &Boolean{Value: true}
	FALSE = &Boolean{Value: false}
)

type ObjectType string

// Object is the closed set of runtime values. Only this package can add
// implementations.
type Object interface {
	Type() ObjectType
	Inspect() string
	sealed()
}

// Callable is implemented by *Function and *Builtin.
type Callable interface {
	Object
	// Arity is the exact argument count, or -1 for a variadic builtin.
	Arity() int
	Name() string
}

type Nil struct{}

func (n *Nil) Type() ObjectType { return NIL_OBJ }
func (n *Nil) Inspect() string  { return "nil" }
func (n *Nil) sealed()          {}

type Boolean struct {
	Value bool
}

func (b *Boolean) Type() ObjectType { return BOOLEAN_OBJ }
func (b *Boolean) Inspect() string  { return strconv.FormatBool(b.Value) }
func (b *Boolean) sealed()          {}

type Number struct {
	Value float64
}

func (n *Number) Type() ObjectType { return NUMBER_OBJ }
func (n *Number) Inspect() string  { return FormatNumber(n.Value) }
func (n *Number) sealed()          {}

type String struct {
	Value string
}

func (s *String) Type() ObjectType { return STRING_OBJ }
func (s *String) Inspect() string  { return s.Value }
func (s *String) sealed()          {}

// List is shared by reference: every copy of a list value sees writes made
// through any other copy.
type List struct {
	Elements []Object
}

func (l *List) Type() ObjectType { return LIST_OBJ }
func (l *List) Inspect() string {
	if len(l.Elements) == 0 {
		return "[ ]"
	}

	var out bytes.Buffer

	elements := []string{}
	for _, e := range l.Elements {
		elements = append(elements, e.Inspect())
	}

	out.WriteString("[ ")
	out.WriteString(strings.Join(elements, ", "))
	out.WriteString(" ]")

	return out.String()
}
func (l *List) sealed() {}

// Function is a user-defined function closed over the environment that was
// active when its declaration ran.
type Function struct {
	Declaration *ast.FunctionStatement
	Closure     *Environment
}

func (f *Function) Type() ObjectType { return FUNCTION_OBJ }
func (f *Function) Inspect() string  { return "<fn " + f.Declaration.Name.Lexeme + ">" }
func (f *Function) Arity() int       { return len(f.Declaration.Parameters) }
func (f *Function) Name() string     { return f.Declaration.Name.Lexeme }
func (f *Function) sealed()          {}

type BuiltinFunction func(args ...Object) (Object, error)

type Builtin struct {
	Fn          BuiltinFunction
	BuiltinName string
	ArgCount    int // -1 accepts any number of arguments
}

func (b *Builtin) Type() ObjectType { return BUILTIN_OBJ }
func (b *Builtin) Inspect() string  { return "<native fn " + b.BuiltinName + ">" }
func (b *Builtin) Arity() int       { return b.ArgCount }
func (b *Builtin) Name() string     { return b.BuiltinName }
func (b *Builtin) sealed()          {}

// IsTruthy reports the boolean meaning of obj: nil and false are falsy and
// everything else, 0 and "" included, is truthy.
func IsTruthy(obj Object) bool {
	switch o := obj.(type) {
	case *Nil:
		return false
	case *Boolean:
		return o.Value
	default:
		return true
	}
}

// Equal compares two values. Values of different types are never equal.
// Lists and functions compare by identity.
func Equal(a, b Object) bool {
	switch x := a.(type) {
	case *Nil:
		_, ok := b.(*Nil)
		return ok
	case *Boolean:
		y, ok := b.(*Boolean)
		return ok && x.Value == y.Value
	case *Number:
		y, ok := b.(*Number)
		return ok && x.Value == y.Value
	case *String:
		y, ok := b.(*String)
		return ok && x.Value == y.Value
	default:
		return a == b
	}
}

// FormatNumber renders n with six fractional digits and then strips trailing
// zeros and a trailing decimal point, so 2 prints as "2" and 2.5 as "2.5".
func FormatNumber(n float64) string {
	s := fmt.Sprintf("%f", n)
	if strings.ContainsRune(s, '.') {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s
}

func NativeBoolToBooleanObject(input bool) *Boolean {
	if input {
		return TRUE
	}
	return FALSE
}
