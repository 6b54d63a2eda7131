package evaluator

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"time"

	"bis/internal/ast"
	"bis/internal/diag"
	"bis/internal/object"
	"bis/internal/resolver"
	"bis/internal/token"
)

var (
	NIL   = object.NIL
	TRUE  = object.TRUE
	FALSE = object.FALSE
)

// DefaultMaxCallDepth bounds user function nesting when no option overrides it.
const DefaultMaxCallDepth = 2048

// RuntimeError aborts evaluation. Token locates the failure in the source.
type RuntimeError struct {
	Token   token.Token
	Message string
}

func (re *RuntimeError) Error() string {
	return fmt.Sprintf("[Line %d] Error: %s", re.Token.Line, re.Message)
}

func newRuntimeError(tok token.Token, format string, a ...interface{}) *RuntimeError {
	return &RuntimeError{Token: tok, Message: fmt.Sprintf(format, a...)}
}

type completionKind int

const (
	normal completionKind = iota
	returning
	breaking
	continuing
)

// completion is the outcome of executing a statement. Return, break and
// continue travel up as completions until a function call or loop absorbs
// them.
type completion struct {
	kind  completionKind
	value object.Object
}

var (
	normalCompletion   = completion{kind: normal, value: NIL}
	breakCompletion    = completion{kind: breaking, value: NIL}
	continueCompletion = completion{kind: continuing, value: NIL}
)

type Evaluator struct {
	Globals  *object.Environment
	envStack []*object.Environment

	locals resolver.Locals

	out          io.Writer
	now          func() time.Time
	maxCallDepth int
	callDepth    int
}

type Option func(*Evaluator)

// WithOutput sends print output to w instead of stdout.
func WithOutput(w io.Writer) Option {
	return func(e *Evaluator) { e.out = w }
}

// WithClock replaces the time source behind the clock builtin.
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) { e.now = now }
}

// WithMaxCallDepth sets the nesting limit for user function calls. Zero or
// less disables the limit.
func WithMaxCallDepth(depth int) Option {
	return func(e *Evaluator) { e.maxCallDepth = depth }
}

// New creates an evaluator whose global frame holds the clock and print
// builtins.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{
		Globals:      object.NewEnvironment(),
		locals:       resolver.Locals{},
		out:          os.Stdout,
		now:          time.Now,
		maxCallDepth: DefaultMaxCallDepth,
	}
	for _, opt := range opts {
		opt(e)
	}

	for name, builtin := range e.builtins() {
		e.Globals.Define(name, builtin)
	}
	e.envStack = []*object.Environment{e.Globals}
	return e
}

// Resolve merges a distance table produced by the resolver.
func (e *Evaluator) Resolve(locals resolver.Locals) {
	for expr, distance := range locals {
		e.locals[expr] = distance
	}
}

func (e *Evaluator) PushEnv(env *object.Environment) {
	e.envStack = append(e.envStack, env)
}

func (e *Evaluator) CurrentEnv() *object.Environment {
	if len(e.envStack) == 0 {
		panic("environment stack is empty")
	}
	return e.envStack[len(e.envStack)-1]
}

func (e *Evaluator) PopEnv() {
	if len(e.envStack) <= 1 {
		panic("attempted to pop the global environment")
	}
	e.envStack = e.envStack[:len(e.envStack)-1]
}

// Interpret executes stmts in order against the global frame and returns the
// value of the last statement. The first runtime error is recorded in diags,
// stops execution and is returned.
func (e *Evaluator) Interpret(stmts []ast.Statement, diags *diag.Collector) (object.Object, error) {
	var result object.Object = NIL

	for _, stmt := range stmts {
		c, err := e.execute(stmt)
		if err != nil {
			var rtErr *RuntimeError
			if errors.As(err, &rtErr) {
				diags.RuntimeError(rtErr.Token.Line, rtErr.Message)
				slog.Debug("runtime error",
					slog.Int("line", rtErr.Token.Line),
					slog.String("message", rtErr.Message))
			}
			return nil, err
		}

		if c.kind != normal {
			slog.Warn("control flow signal escaped to top level",
				slog.String("statement", stmt.String()))
			return c.value, nil
		}
		result = c.value
	}

	return result, nil
}

func (e *Evaluator) execute(stmt ast.Statement) (completion, error) {
	switch node := stmt.(type) {

	case *ast.ExpressionStatement:
		val, err := e.eval(node.Expression)
		if err != nil {
			return normalCompletion, err
		}
		return completion{kind: normal, value: val}, nil

	case *ast.PrintStatement:
		if _, err := e.eval(node.Call); err != nil {
			return normalCompletion, err
		}
		return normalCompletion, nil

	case *ast.VarStatement:
		var val object.Object = NIL
		if node.Initializer != nil {
			var err error
			if val, err = e.eval(node.Initializer); err != nil {
				return normalCompletion, err
			}
		}
		e.CurrentEnv().Define(node.Name.Lexeme, val)
		return normalCompletion, nil

	case *ast.BlockStatement:
		return e.executeBlock(node.Statements, object.NewEnclosedEnvironment(e.CurrentEnv()))

	case *ast.IfStatement:
		return e.executeIf(node)

	case *ast.WhileStatement:
		return e.executeWhile(node)

	case *ast.ForStatement:
		return e.executeFor(node)

	case *ast.FunctionStatement:
		fn := &object.Function{Declaration: node, Closure: e.CurrentEnv()}
		e.CurrentEnv().Define(node.Name.Lexeme, fn)
		return normalCompletion, nil

	case *ast.ReturnStatement:
		var val object.Object = NIL
		if node.ReturnValue != nil {
			var err error
			if val, err = e.eval(node.ReturnValue); err != nil {
				return normalCompletion, err
			}
		}
		return completion{kind: returning, value: val}, nil

	case *ast.BreakStatement:
		return breakCompletion, nil

	case *ast.ContinueStatement:
		return continueCompletion, nil

	case *ast.ClassStatement:
		slog.Debug("class declarations are not evaluated",
			slog.String("class", node.Name.Lexeme),
			slog.Int("line", node.Token.Line))
		return normalCompletion, nil
	}

	return normalCompletion, fmt.Errorf("unknown statement type %T", stmt)
}

// executeBlock runs stmts in env and restores the previous frame afterwards.
func (e *Evaluator) executeBlock(stmts []ast.Statement, env *object.Environment) (completion, error) {
	e.PushEnv(env)
	defer e.PopEnv()

	for _, stmt := range stmts {
		c, err := e.execute(stmt)
		if err != nil || c.kind != normal {
			return c, err
		}
	}
	return normalCompletion, nil
}

func (e *Evaluator) executeIf(node *ast.IfStatement) (completion, error) {
	branches := append([]ast.Branch{node.Main}, node.ElifClauses...)

	for _, branch := range branches {
		cond, err := e.eval(branch.Condition)
		if err != nil {
			return normalCompletion, err
		}
		if object.IsTruthy(cond) {
			return e.execute(branch.Body)
		}
	}

	if node.Else != nil {
		return e.execute(node.Else)
	}
	return normalCompletion, nil
}

func (e *Evaluator) executeWhile(node *ast.WhileStatement) (completion, error) {
	for {
		cond, err := e.eval(node.Condition)
		if err != nil {
			return normalCompletion, err
		}
		if !object.IsTruthy(cond) {
			return normalCompletion, nil
		}

		c, err := e.execute(node.Body)
		if err != nil {
			return c, err
		}
		switch c.kind {
		case breaking:
			return normalCompletion, nil
		case returning:
			return c, nil
		}
	}
}

// executeFor runs the whole loop in one frame so the initializer's variable is
// shared by every iteration. A missing condition loops until break or return.
func (e *Evaluator) executeFor(node *ast.ForStatement) (completion, error) {
	e.PushEnv(object.NewEnclosedEnvironment(e.CurrentEnv()))
	defer e.PopEnv()

	if node.Initializer != nil {
		if c, err := e.execute(node.Initializer); err != nil {
			return c, err
		}
	}

	for {
		if node.Condition != nil {
			cond, err := e.eval(node.Condition)
			if err != nil {
				return normalCompletion, err
			}
			if !object.IsTruthy(cond) {
				return normalCompletion, nil
			}
		}

		c, err := e.execute(node.Body)
		if err != nil {
			return c, err
		}
		switch c.kind {
		case breaking:
			return normalCompletion, nil
		case returning:
			return c, nil
		}

		// Reached after a normal pass and after continue.
		if node.Increment != nil {
			if _, err := e.eval(node.Increment); err != nil {
				return normalCompletion, err
			}
		}
	}
}

func (e *Evaluator) eval(expr ast.Expression) (object.Object, error) {
	switch node := expr.(type) {

	case *ast.NumberLiteral:
		return &object.Number{Value: node.Value}, nil

	case *ast.StringLiteral:
		return &object.String{Value: node.Value}, nil

	case *ast.Boolean:
		return object.NativeBoolToBooleanObject(node.Value), nil

	case *ast.Nil:
		return NIL, nil

	case *ast.GroupedExpression:
		return e.eval(node.Expression)

	case *ast.PrefixExpression:
		right, err := e.eval(node.Right)
		if err != nil {
			return nil, err
		}
		return e.evalPrefixExpression(node.Token, right)

	case *ast.InfixExpression:
		left, err := e.eval(node.Left)
		if err != nil {
			return nil, err
		}
		right, err := e.eval(node.Right)
		if err != nil {
			return nil, err
		}
		return e.evalInfixExpression(node.Token, left, right)

	case *ast.LogicalExpression:
		return e.evalLogicalExpression(node)

	case *ast.Identifier:
		return e.lookupVariable(node.Token, node)

	case *ast.AssignExpression:
		val, err := e.eval(node.Value)
		if err != nil {
			return nil, err
		}
		if err := e.assignVariable(node.Name, node, val); err != nil {
			return nil, err
		}
		return val, nil

	case *ast.CallExpression:
		return e.evalCallExpression(node)

	case *ast.ListLiteral:
		elements := make([]object.Object, 0, len(node.Elements))
		for _, el := range node.Elements {
			val, err := e.eval(el)
			if err != nil {
				return nil, err
			}
			elements = append(elements, val)
		}
		return &object.List{Elements: elements}, nil

	case *ast.IndexExpression:
		return e.evalIndexExpression(node)

	case *ast.UpdateExpression:
		return e.evalUpdateExpression(node)

	case *ast.GetExpression, *ast.SetExpression, *ast.ThisExpression, *ast.SuperExpression:
		return NIL, nil
	}

	return nil, fmt.Errorf("unknown expression type %T", expr)
}

func (e *Evaluator) evalPrefixExpression(op token.Token, right object.Object) (object.Object, error) {
	switch op.Type {
	case token.BANG:
		return object.NativeBoolToBooleanObject(!object.IsTruthy(right)), nil
	case token.MINUS:
		num, ok := right.(*object.Number)
		if !ok {
			return nil, newRuntimeError(op, "Operand must be a number.")
		}
		return &object.Number{Value: -num.Value}, nil
	}
	return nil, newRuntimeError(op, "Unknown operator: %s.", op.Lexeme)
}

func (e *Evaluator) evalInfixExpression(op token.Token, left, right object.Object) (object.Object, error) {
	switch op.Type {
	case token.EQ:
		return object.NativeBoolToBooleanObject(object.Equal(left, right)), nil
	case token.NOT_EQ:
		return object.NativeBoolToBooleanObject(!object.Equal(left, right)), nil
	case token.PLUS:
		return e.evalPlusExpression(op, left, right)
	}

	l, lok := left.(*object.Number)
	r, rok := right.(*object.Number)
	if !lok || !rok {
		return nil, newRuntimeError(op, "Operands must be numbers.")
	}

	switch op.Type {
	case token.MINUS:
		return &object.Number{Value: l.Value - r.Value}, nil
	case token.ASTERISK:
		return &object.Number{Value: l.Value * r.Value}, nil
	case token.SLASH:
		if r.Value == 0 {
			return nil, newRuntimeError(op, "Division by 0.")
		}
		return &object.Number{Value: l.Value / r.Value}, nil
	case token.LT:
		return object.NativeBoolToBooleanObject(l.Value < r.Value), nil
	case token.LT_EQ:
		return object.NativeBoolToBooleanObject(l.Value <= r.Value), nil
	case token.GT:
		return object.NativeBoolToBooleanObject(l.Value > r.Value), nil
	case token.GT_EQ:
		return object.NativeBoolToBooleanObject(l.Value >= r.Value), nil
	}
	return nil, newRuntimeError(op, "Unknown operator: %s.", op.Lexeme)
}

// evalPlusExpression adds numbers and concatenates strings. A number on
// either side of a string is formatted the way print shows it.
func (e *Evaluator) evalPlusExpression(op token.Token, left, right object.Object) (object.Object, error) {
	switch l := left.(type) {
	case *object.Number:
		switch r := right.(type) {
		case *object.Number:
			return &object.Number{Value: l.Value + r.Value}, nil
		case *object.String:
			return &object.String{Value: object.FormatNumber(l.Value) + r.Value}, nil
		}
	case *object.String:
		switch r := right.(type) {
		case *object.String:
			return &object.String{Value: l.Value + r.Value}, nil
		case *object.Number:
			return &object.String{Value: l.Value + object.FormatNumber(r.Value)}, nil
		}
	}
	return nil, newRuntimeError(op, "Operands must be of type string or number.")
}

// evalLogicalExpression short-circuits and yields the deciding operand
// itself rather than a boolean.
func (e *Evaluator) evalLogicalExpression(node *ast.LogicalExpression) (object.Object, error) {
	left, err := e.eval(node.Left)
	if err != nil {
		return nil, err
	}

	if node.Token.Type == token.OR {
		if object.IsTruthy(left) {
			return left, nil
		}
	} else if !object.IsTruthy(left) {
		return left, nil
	}

	return e.eval(node.Right)
}

func (e *Evaluator) lookupVariable(name token.Token, expr ast.Expression) (object.Object, error) {
	if distance, ok := e.locals[expr]; ok {
		if val, ok := e.CurrentEnv().GetAt(distance, name.Lexeme); ok {
			return val, nil
		}
		return nil, newRuntimeError(name, "Undefined variable '%s'.", name.Lexeme)
	}

	if val, ok := e.Globals.Get(name.Lexeme); ok {
		return val, nil
	}
	return nil, newRuntimeError(name, "Undefined variable '%s'.", name.Lexeme)
}

func (e *Evaluator) assignVariable(name token.Token, expr ast.Expression, val object.Object) error {
	var err error
	if distance, ok := e.locals[expr]; ok {
		_, err = e.CurrentEnv().AssignAt(distance, name.Lexeme, val)
	} else {
		_, err = e.Globals.Assign(name.Lexeme, val)
	}

	var undefined *object.UndefinedVariableError
	if errors.As(err, &undefined) {
		return newRuntimeError(name, "%s", undefined.Error())
	}
	return err
}

func (e *Evaluator) evalCallExpression(node *ast.CallExpression) (object.Object, error) {
	callee, err := e.eval(node.Function)
	if err != nil {
		return nil, err
	}

	args := make([]object.Object, 0, len(node.Arguments))
	for _, arg := range node.Arguments {
		val, err := e.eval(arg)
		if err != nil {
			return nil, err
		}
		args = append(args, val)
	}

	fn, ok := callee.(object.Callable)
	if !ok {
		return nil, newRuntimeError(node.Token, "Can only call functions, got %s.", callee.Type())
	}
	if arity := fn.Arity(); arity >= 0 && arity != len(args) {
		return nil, newRuntimeError(node.Token, "Expected %d arguments but got %d.", arity, len(args))
	}

	return e.applyFunction(node.Token, fn, args)
}

func (e *Evaluator) applyFunction(paren token.Token, fn object.Callable, args []object.Object) (object.Object, error) {
	switch fn := fn.(type) {
	case *object.Function:
		if e.maxCallDepth > 0 && e.callDepth >= e.maxCallDepth {
			return nil, newRuntimeError(paren, "Stack overflow.")
		}
		e.callDepth++
		defer func() { e.callDepth-- }()

		c, err := e.executeBlock(fn.Declaration.Body, e.extendFunctionEnv(fn, args))
		if err != nil {
			return nil, err
		}
		if c.kind == returning {
			return c.value, nil
		}
		return NIL, nil

	case *object.Builtin:
		val, err := fn.Fn(args...)
		if err != nil {
			return nil, newRuntimeError(paren, "%s", err.Error())
		}
		return val, nil
	}

	return nil, newRuntimeError(paren, "Can only call functions, got %s.", fn.Type())
}

// extendFunctionEnv creates the call frame. Its parent is the closure frame,
// not the caller's frame.
func (e *Evaluator) extendFunctionEnv(fn *object.Function, args []object.Object) *object.Environment {
	env := object.NewEnclosedEnvironment(fn.Closure)
	for i, param := range fn.Declaration.Parameters {
		env.Define(param.Lexeme, args[i])
	}
	return env
}

func (e *Evaluator) evalIndexExpression(node *ast.IndexExpression) (object.Object, error) {
	base, err := e.lookupVariable(node.Name, node)
	if err != nil {
		return nil, err
	}
	list, ok := base.(*object.List)
	if !ok {
		return nil, newRuntimeError(node.Name, "Object '%s' is not subscriptable.", node.Name.Lexeme)
	}

	indexObj, err := e.eval(node.Index)
	if err != nil {
		return nil, err
	}
	num, ok := indexObj.(*object.Number)
	if !ok || num.Value != math.Trunc(num.Value) || math.IsInf(num.Value, 0) {
		return nil, newRuntimeError(node.Name, "Indices must be integers.")
	}

	var val object.Object
	if node.Value != nil {
		if val, err = e.eval(node.Value); err != nil {
			return nil, err
		}
	}

	index := int(num.Value)
	size := len(list.Elements)
	position := index
	if position < 0 {
		position += size
	}
	if position < 0 || position >= size {
		return nil, newRuntimeError(node.Name, "Index out of range. Index is %d but object size is %d.", index, size)
	}

	if node.Value != nil {
		list.Elements[position] = val
		return val, nil
	}
	return list.Elements[position], nil
}

func (e *Evaluator) evalUpdateExpression(node *ast.UpdateExpression) (object.Object, error) {
	current, err := e.lookupVariable(node.Name, node)
	if err != nil {
		return nil, err
	}
	num, ok := current.(*object.Number)
	if !ok {
		verb := "increment"
		if node.Token.Type == token.DECREMENT {
			verb = "decrement"
		}
		return nil, newRuntimeError(node.Name, "Cannot %s non-number '%s'.", verb, node.Name.Lexeme)
	}

	updated := &object.Number{Value: num.Value + node.Delta()}
	if err := e.assignVariable(node.Name, node, updated); err != nil {
		return nil, err
	}

	if node.Prefix {
		return updated, nil
	}
	return num, nil
}
