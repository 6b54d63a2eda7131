// Package resolver performs the static scope pass that runs between parsing
// and evaluation.
//
// For every local variable reference it records how many lexical scopes lie
// between the reference and the declaration. The evaluator creates exactly one
// environment frame for each scope pushed here (blocks, function bodies and
// for statements), so walking that many parent links at run time lands on the
// declaring frame. References that resolve to no scope are globals and get no
// entry.
package resolver

import (
	"log/slog"

	"bis/internal/ast"
	"bis/internal/diag"
	"bis/internal/token"
)

// Locals maps a variable reference node to its scope distance. The node's
// pointer identity is the key.
type Locals map[ast.Expression]int

type FunctionKind int

const (
	KindNone FunctionKind = iota
	KindFunction
	KindMethod
)

type Resolver struct {
	// each scope maps a name to whether its initializer has finished
	scopes    []map[string]bool
	functions []FunctionKind
	loopDepth int

	locals Locals
	diags  *diag.Collector
}

func New(diags *diag.Collector) *Resolver {
	return &Resolver{
		functions: []FunctionKind{KindNone},
		locals:    Locals{},
		diags:     diags,
	}
}

// Resolve is a shorthand for New(diags).Resolve(stmts).
func Resolve(stmts []ast.Statement, diags *diag.Collector) Locals {
	return New(diags).Resolve(stmts)
}

// Resolve walks stmts and returns the accumulated distance table. It may be
// called repeatedly; entries from earlier calls are kept.
func (r *Resolver) Resolve(stmts []ast.Statement) Locals {
	r.resolveStatements(stmts)
	slog.Debug("resolved locals", slog.Int("count", len(r.locals)))
	return r.locals
}

func (r *Resolver) resolveStatements(stmts []ast.Statement) {
	for _, stmt := range stmts {
		r.resolveStatement(stmt)
	}
}

func (r *Resolver) resolveStatement(stmt ast.Statement) {
	switch s := stmt.(type) {
	case *ast.BlockStatement:
		r.beginScope()
		r.resolveStatements(s.Statements)
		r.endScope()

	case *ast.VarStatement:
		r.declare(s.Name)
		if s.Initializer != nil {
			r.resolveExpression(s.Initializer)
		}
		r.define(s.Name)

	case *ast.FunctionStatement:
		// Defined before the body so the function can call itself.
		r.declare(s.Name)
		r.define(s.Name)
		r.resolveFunction(s, KindFunction)

	case *ast.ClassStatement:
		if s.Superclass != nil && s.Superclass.Token.Lexeme == s.Name.Lexeme {
			r.diags.ErrorAt(diag.Resolve, s.Superclass.Token, "A class can't inherit from itself.")
		}
		for _, method := range s.Methods {
			r.resolveFunction(method, KindMethod)
		}

	case *ast.ExpressionStatement:
		r.resolveExpression(s.Expression)

	case *ast.PrintStatement:
		r.resolveExpression(s.Call)

	case *ast.IfStatement:
		r.resolveExpression(s.Main.Condition)
		r.resolveStatement(s.Main.Body)
		for _, branch := range s.ElifClauses {
			r.resolveExpression(branch.Condition)
			r.resolveStatement(branch.Body)
		}
		if s.Else != nil {
			r.resolveStatement(s.Else)
		}

	case *ast.WhileStatement:
		r.loopDepth++
		r.resolveExpression(s.Condition)
		r.resolveStatement(s.Body)
		r.loopDepth--

	case *ast.ForStatement:
		r.loopDepth++
		r.beginScope()
		if s.Initializer != nil {
			r.resolveStatement(s.Initializer)
		}
		if s.Condition != nil {
			r.resolveExpression(s.Condition)
		}
		if s.Increment != nil {
			r.resolveExpression(s.Increment)
		}
		r.resolveStatement(s.Body)
		r.endScope()
		r.loopDepth--

	case *ast.ReturnStatement:
		if r.functions[len(r.functions)-1] == KindNone {
			r.diags.ErrorAt(diag.Resolve, s.Token, "Can't return from top-level code.")
		}
		if s.ReturnValue != nil {
			r.resolveExpression(s.ReturnValue)
		}

	case *ast.BreakStatement:
		if r.loopDepth == 0 {
			r.diags.ErrorAt(diag.Resolve, s.Token, "Can't break outside of a loop.")
		}

	case *ast.ContinueStatement:
		if r.loopDepth == 0 {
			r.diags.ErrorAt(diag.Resolve, s.Token, "Can't continue outside of a loop.")
		}
	}
}

func (r *Resolver) resolveExpression(expr ast.Expression) {
	switch e := expr.(type) {
	case *ast.Identifier:
		if len(r.scopes) > 0 {
			if ready, ok := r.scopes[len(r.scopes)-1][e.Token.Lexeme]; ok && !ready {
				r.diags.ErrorAt(diag.Resolve, e.Token, "Can't read local variable in its own initializer.")
			}
		}
		r.resolveLocal(e, e.Token)

	case *ast.AssignExpression:
		r.resolveExpression(e.Value)
		r.resolveLocal(e, e.Name)

	case *ast.IndexExpression:
		r.resolveExpression(e.Index)
		if e.Value != nil {
			r.resolveExpression(e.Value)
		}
		r.resolveLocal(e, e.Name)

	case *ast.UpdateExpression:
		r.resolveLocal(e, e.Name)

	case *ast.InfixExpression:
		r.resolveExpression(e.Left)
		r.resolveExpression(e.Right)

	case *ast.LogicalExpression:
		r.resolveExpression(e.Left)
		r.resolveExpression(e.Right)

	case *ast.PrefixExpression:
		r.resolveExpression(e.Right)

	case *ast.GroupedExpression:
		r.resolveExpression(e.Expression)

	case *ast.CallExpression:
		r.resolveExpression(e.Function)
		for _, arg := range e.Arguments {
			r.resolveExpression(arg)
		}

	case *ast.ListLiteral:
		for _, el := range e.Elements {
			r.resolveExpression(el)
		}

	// Literals need nothing. Get, Set, This and Super are never evaluated,
	// so their operands are not resolved either.
	case *ast.NumberLiteral, *ast.StringLiteral, *ast.Boolean, *ast.Nil,
		*ast.GetExpression, *ast.SetExpression, *ast.ThisExpression, *ast.SuperExpression:
	}
}

// resolveFunction binds parameters and body in a single scope, matching the
// single frame the evaluator creates per call. Loop depth is cleared so a
// break inside a function cannot target a loop surrounding the declaration.
func (r *Resolver) resolveFunction(fn *ast.FunctionStatement, kind FunctionKind) {
	r.functions = append(r.functions, kind)
	enclosingLoops := r.loopDepth
	r.loopDepth = 0

	r.beginScope()
	for _, param := range fn.Parameters {
		r.declare(param)
		r.define(param)
	}
	r.resolveStatements(fn.Body)
	r.endScope()

	r.loopDepth = enclosingLoops
	r.functions = r.functions[:len(r.functions)-1]
}

func (r *Resolver) resolveLocal(expr ast.Expression, name token.Token) {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if _, ok := r.scopes[i][name.Lexeme]; ok {
			r.locals[expr] = len(r.scopes) - 1 - i
			return
		}
	}
}

func (r *Resolver) beginScope() {
	r.scopes = append(r.scopes, map[string]bool{})
}

func (r *Resolver) endScope() {
	r.scopes = r.scopes[:len(r.scopes)-1]
}

// declare adds name to the innermost scope as not yet ready. Globals are not
// tracked, so redeclaring a global is allowed.
func (r *Resolver) declare(name token.Token) {
	if len(r.scopes) == 0 {
		return
	}
	scope := r.scopes[len(r.scopes)-1]
	if _, ok := scope[name.Lexeme]; ok {
		r.diags.ErrorAt(diag.Resolve, name, "Variable with the name '"+name.Lexeme+"' already exists in this scope.")
		return
	}
	scope[name.Lexeme] = false
}

func (r *Resolver) define(name token.Token) {
	if len(r.scopes) == 0 {
		return
	}
	r.scopes[len(r.scopes)-1][name.Lexeme] = true
}
