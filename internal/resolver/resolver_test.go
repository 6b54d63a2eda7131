package resolver

import (
	"fmt"
	"testing"

	"bis/internal/ast"
	"bis/internal/diag"
	"bis/internal/lexer"
	"bis/internal/parser"
)

func resolveSource(t *testing.T, input string) ([]ast.Statement, Locals, *diag.Collector) {
	t.Helper()
	diags := diag.New()
	stmts := parser.Parse(lexer.Scan(input, diags), diags)
	if diags.HadError() {
		t.Fatalf("parse errors for %q: %v", input, diags.Diagnostics())
	}
	return stmts, Resolve(stmts, diags), diags
}

// references lists every variable reference in source order as "name@line".
// Each reference appears with the node used as its key in Locals.
type reference struct {
	label string
	node  ast.Expression
}

func references(stmts []ast.Statement) []reference {
	var refs []reference
	var walkExpr func(ast.Expression)
	var walkStmt func(ast.Statement)

	add := func(node ast.Expression, name string, line int) {
		refs = append(refs, reference{label: fmt.Sprintf("%s@%d", name, line), node: node})
	}

	walkExpr = func(expr ast.Expression) {
		switch e := expr.(type) {
		case *ast.Identifier:
			add(e, e.Token.Lexeme, e.Token.Line)
		case *ast.AssignExpression:
			walkExpr(e.Value)
			add(e, e.Name.Lexeme, e.Name.Line)
		case *ast.IndexExpression:
			walkExpr(e.Index)
			if e.Value != nil {
				walkExpr(e.Value)
			}
			add(e, e.Name.Lexeme, e.Name.Line)
		case *ast.UpdateExpression:
			add(e, e.Name.Lexeme, e.Name.Line)
		case *ast.InfixExpression:
			walkExpr(e.Left)
			walkExpr(e.Right)
		case *ast.LogicalExpression:
			walkExpr(e.Left)
			walkExpr(e.Right)
		case *ast.PrefixExpression:
			walkExpr(e.Right)
		case *ast.GroupedExpression:
			walkExpr(e.Expression)
		case *ast.CallExpression:
			walkExpr(e.Function)
			for _, a := range e.Arguments {
				walkExpr(a)
			}
		case *ast.ListLiteral:
			for _, el := range e.Elements {
				walkExpr(el)
			}
		}
	}

	walkStmt = func(stmt ast.Statement) {
		switch s := stmt.(type) {
		case *ast.ExpressionStatement:
			walkExpr(s.Expression)
		case *ast.PrintStatement:
			walkExpr(s.Call)
		case *ast.VarStatement:
			if s.Initializer != nil {
				walkExpr(s.Initializer)
			}
		case *ast.BlockStatement:
			for _, inner := range s.Statements {
				walkStmt(inner)
			}
		case *ast.IfStatement:
			walkExpr(s.Main.Condition)
			walkStmt(s.Main.Body)
			for _, b := range s.ElifClauses {
				walkExpr(b.Condition)
				walkStmt(b.Body)
			}
			if s.Else != nil {
				walkStmt(s.Else)
			}
		case *ast.WhileStatement:
			walkExpr(s.Condition)
			walkStmt(s.Body)
		case *ast.ForStatement:
			if s.Initializer != nil {
				walkStmt(s.Initializer)
			}
			if s.Condition != nil {
				walkExpr(s.Condition)
			}
			if s.Increment != nil {
				walkExpr(s.Increment)
			}
			walkStmt(s.Body)
		case *ast.FunctionStatement:
			for _, inner := range s.Body {
				walkStmt(inner)
			}
		case *ast.ReturnStatement:
			if s.ReturnValue != nil {
				walkExpr(s.ReturnValue)
			}
		}
	}

	for _, stmt := range stmts {
		walkStmt(stmt)
	}
	return refs
}

func TestResolvedDistances(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected map[string]int // label -> distance, -1 for global
	}{
		{
			name: "nested blocks",
			input: `var g = 0;
{
  var a = 1;
  {
    var b = a + g;
    print(b);
  }
}`,
			expected: map[string]int{"a@5": 1, "g@5": -1, "print@6": -1, "b@6": 0},
		},
		{
			name: "closure over outer function local",
			input: `fn outer() {
  var x = 1;
  fn inner() {
    x = x + 1;
    return x;
  }
  return inner;
}`,
			expected: map[string]int{"x@4": 1, "x@5": 1, "inner@7": 0},
		},
		{
			name: "parameters share the body scope",
			input: `fn f(a) {
  var b = a;
  { return a + b; }
}`,
			expected: map[string]int{"a@2": 0, "a@3": 1, "b@3": 1},
		},
		{
			name: "for clauses live in one scope around the body",
			input: `for (var i = 0; i < 3; i++) {
  print(i);
}`,
			expected: map[string]int{"i@1": 0, "print@2": -1, "i@2": 1},
		},
		{
			name: "while adds no scope",
			input: `{
  var n = 3;
  while (n > 0) n--;
}`,
			expected: map[string]int{"n@3": 0},
		},
		{
			name: "subscript base",
			input: `{
  var xs = [1, 2];
  { xs[0] = xs[1]; }
}`,
			expected: map[string]int{"xs@3": 1},
		},
		{
			name:     "globals are left unresolved",
			input:    "var a = 1; a = a + 1; a++;",
			expected: map[string]int{"a@1": -1},
		},
		{
			name: "recursive function sees itself",
			input: `{
  fn fact(n) {
    if (n < 2) return 1;
    return n * fact(n - 1);
  }
}`,
			expected: map[string]int{"n@3": 0, "n@4": 0, "fact@4": 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stmts, locals, diags := resolveSource(t, tt.input)
			if diags.HadError() {
				t.Fatalf("unexpected diagnostics: %v", diags.Diagnostics())
			}

			refs := references(stmts)
			seen := map[string]bool{}
			for _, ref := range refs {
				want, ok := tt.expected[ref.label]
				if !ok {
					continue
				}
				seen[ref.label] = true

				got, resolved := locals[ref.node]
				if want == -1 {
					if resolved {
						t.Errorf("%s: expected global, got distance %d", ref.label, got)
					}
					continue
				}
				if !resolved {
					t.Errorf("%s: expected distance %d, got no entry", ref.label, want)
					continue
				}
				if got != want {
					t.Errorf("%s: expected distance %d, got %d", ref.label, want, got)
				}
			}

			for label := range tt.expected {
				if !seen[label] {
					t.Errorf("reference %s not found in program", label)
				}
			}
		})
	}
}

func TestResolveErrors(t *testing.T) {
	tests := []struct {
		input    string
		expected []string
	}{
		{"{ var a = a; }", []string{"[Line 1] Error at 'a': Can't read local variable in its own initializer."}},
		{"fn f() { var a = 1; { var a = a + 1; } }", []string{"[Line 1] Error at 'a': Can't read local variable in its own initializer."}},
		{"{ var a = 1; var a = 2; }", []string{"[Line 1] Error at 'a': Variable with the name 'a' already exists in this scope."}},
		{"fn f(a, a) {}", []string{"[Line 1] Error at 'a': Variable with the name 'a' already exists in this scope."}},
		{"return 1;", []string{"[Line 1] Error at 'return': Can't return from top-level code."}},
		{"{ return; }", []string{"[Line 1] Error at 'return': Can't return from top-level code."}},
		{"break;", []string{"[Line 1] Error at 'break': Can't break outside of a loop."}},
		{"if (true) continue;", []string{"[Line 1] Error at 'continue': Can't continue outside of a loop."}},
		{"while (true) { fn f() { break; } }", []string{"[Line 1] Error at 'break': Can't break outside of a loop."}},
		{"class A < A {}", []string{"[Line 1] Error at 'A': A class can't inherit from itself."}},
		{"class A { m() { break; } }", []string{"[Line 1] Error at 'break': Can't break outside of a loop."}},
		{
			"break;\n{ var x = x; }\nreturn;",
			[]string{
				"[Line 1] Error at 'break': Can't break outside of a loop.",
				"[Line 2] Error at 'x': Can't read local variable in its own initializer.",
				"[Line 3] Error at 'return': Can't return from top-level code.",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, _, diags := resolveSource(t, tt.input)
			got := diags.Diagnostics()
			if len(got) != len(tt.expected) {
				t.Fatalf("expected %d diagnostics, got %d: %v", len(tt.expected), len(got), got)
			}
			for i, want := range tt.expected {
				if got[i].String() != want {
					t.Errorf("diagnostic[%d]: expected=%q, got=%q", i, want, got[i].String())
				}
				if got[i].Kind != diag.Resolve {
					t.Errorf("diagnostic[%d] kind = %s, want resolve", i, got[i].Kind)
				}
			}
		})
	}
}

func TestAcceptedPrograms(t *testing.T) {
	inputs := []string{
		"var a = a;",
		"var a = 1; var a = 2;",
		"{ var a = 1; { var a = 2; print(a); } }",
		"var a = 1; { var b = a; var a = b; }",
		"while (true) { break; }",
		"for (;;) { if (true) continue; else break; }",
		"fn f() { return 1; }",
		"fn f() { while (true) { fn g() { return; } break; } }",
		"class A { m() { return this.x; } }",
	}

	for _, input := range inputs {
		t.Run(input, func(t *testing.T) {
			_, _, diags := resolveSource(t, input)
			if diags.HadError() {
				t.Fatalf("unexpected diagnostics: %v", diags.Diagnostics())
			}
		})
	}
}

func TestResolveAccumulatesAcrossCalls(t *testing.T) {
	diags := diag.New()
	r := New(diags)

	first := parser.Parse(lexer.Scan("{ var a = 1; print(a); }", diags), diags)
	second := parser.Parse(lexer.Scan("{ var b = 2; print(b); }", diags), diags)

	r.Resolve(first)
	locals := r.Resolve(second)

	if len(locals) != 2 {
		t.Fatalf("expected 2 resolved references, got %d", len(locals))
	}
}
