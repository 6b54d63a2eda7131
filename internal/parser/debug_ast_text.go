package parser

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"bis/internal/ast"
)

// RenderASTAsText renders statements one per line, indented by nesting, and
// expressions as parenthesized prefix forms such as (+ 1 (* 2 3)). It is meant
// for checking precedence and scoping by eye.
func RenderASTAsText(node ast.Node, indent int) string {
	if node == nil || (reflect.ValueOf(node).Kind() == reflect.Ptr && reflect.ValueOf(node).IsNil()) {
		return "nil"
	}

	sp := strings.Repeat("  ", indent)

	switch n := node.(type) {
	case *ast.Program:
		return renderStatements(n.Statements, indent)

	case *ast.ExpressionStatement:
		return sp + RenderASTAsText(n.Expression, 0)

	case *ast.PrintStatement:
		return sp + "print " + RenderASTAsText(n.Call, 0)

	case *ast.VarStatement:
		if n.Initializer == nil {
			return sp + "var " + n.Name.Lexeme
		}
		return fmt.Sprintf("%svar %s = %s", sp, n.Name.Lexeme, RenderASTAsText(n.Initializer, 0))

	case *ast.BlockStatement:
		if len(n.Statements) == 0 {
			return sp + "{}"
		}
		return sp + "{\n" + renderStatements(n.Statements, indent+1) + "\n" + sp + "}"

	case *ast.IfStatement:
		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("%sif %s\n%s", sp, RenderASTAsText(n.Main.Condition, 0), RenderASTAsText(n.Main.Body, indent+1)))
		for _, b := range n.ElifClauses {
			sb.WriteString(fmt.Sprintf("\n%selif %s\n%s", sp, RenderASTAsText(b.Condition, 0), RenderASTAsText(b.Body, indent+1)))
		}
		if n.Else != nil {
			sb.WriteString(fmt.Sprintf("\n%selse\n%s", sp, RenderASTAsText(n.Else, indent+1)))
		}
		return sb.String()

	case *ast.WhileStatement:
		return fmt.Sprintf("%swhile %s\n%s", sp, RenderASTAsText(n.Condition, 0), RenderASTAsText(n.Body, indent+1))

	case *ast.ForStatement:
		init, cond, incr := "", "", ""
		if n.Initializer != nil {
			init = RenderASTAsText(n.Initializer, 0)
		}
		if n.Condition != nil {
			cond = RenderASTAsText(n.Condition, 0)
		}
		if n.Increment != nil {
			incr = RenderASTAsText(n.Increment, 0)
		}
		return fmt.Sprintf("%sfor (%s; %s; %s)\n%s", sp, init, cond, incr, RenderASTAsText(n.Body, indent+1))

	case *ast.FunctionStatement:
		params := []string{}
		for _, p := range n.Parameters {
			params = append(params, p.Lexeme)
		}
		return fmt.Sprintf("%sfn %s(%s)\n%s", sp, n.Name.Lexeme, strings.Join(params, ", "), renderBlock(n.Body, indent+1))

	case *ast.ReturnStatement:
		if n.ReturnValue == nil {
			return sp + "return"
		}
		return sp + "return " + RenderASTAsText(n.ReturnValue, 0)

	case *ast.BreakStatement:
		return sp + "break"

	case *ast.ContinueStatement:
		return sp + "continue"

	case *ast.ClassStatement:
		header := sp + "class " + n.Name.Lexeme
		if n.Superclass != nil {
			header += " < " + n.Superclass.Token.Lexeme
		}
		lines := []string{header}
		for _, m := range n.Methods {
			lines = append(lines, RenderASTAsText(m, indent+1))
		}
		return strings.Join(lines, "\n")

	case *ast.Identifier:
		return n.Token.Lexeme
	case *ast.NumberLiteral:
		return strconv.FormatFloat(n.Value, 'g', -1, 64)
	case *ast.StringLiteral:
		return n.Value
	case *ast.Boolean:
		return strconv.FormatBool(n.Value)
	case *ast.Nil:
		return "nil"
	case *ast.ThisExpression:
		return "this"

	case *ast.GroupedExpression:
		return parenthesize("group", n.Expression)
	case *ast.PrefixExpression:
		return parenthesize(n.Operator, n.Right)
	case *ast.InfixExpression:
		return parenthesize(n.Operator, n.Left, n.Right)
	case *ast.LogicalExpression:
		return parenthesize(n.Operator, n.Left, n.Right)
	case *ast.AssignExpression:
		return parenthesize("="+n.Name.Lexeme, n.Value)

	case *ast.CallExpression:
		return parenthesize("call", append([]ast.Expression{n.Function}, n.Arguments...)...)

	case *ast.ListLiteral:
		elems := []string{}
		for _, e := range n.Elements {
			elems = append(elems, RenderASTAsText(e, 0))
		}
		return "(list [ " + strings.Join(elems, " ") + " ])"

	case *ast.IndexExpression:
		if n.Value == nil {
			return fmt.Sprintf("([] %s %s)", n.Name.Lexeme, RenderASTAsText(n.Index, 0))
		}
		return fmt.Sprintf("([]= %s %s %s)", n.Name.Lexeme, RenderASTAsText(n.Index, 0), RenderASTAsText(n.Value, 0))

	case *ast.UpdateExpression:
		if n.Prefix {
			return fmt.Sprintf("(%s %s)", n.Token.Lexeme, n.Name.Lexeme)
		}
		return fmt.Sprintf("(%s %s post)", n.Token.Lexeme, n.Name.Lexeme)

	case *ast.GetExpression:
		return fmt.Sprintf("(. %s %s)", RenderASTAsText(n.Object, 0), n.Name.Lexeme)
	case *ast.SetExpression:
		return fmt.Sprintf("(= %s %s %s)", RenderASTAsText(n.Object, 0), n.Name.Lexeme, RenderASTAsText(n.Value, 0))
	case *ast.SuperExpression:
		return "(super " + n.Method.Lexeme + ")"

	default:
		return fmt.Sprintf("<unknown:%T>", n)
	}
}

func parenthesize(name string, exprs ...ast.Expression) string {
	var sb strings.Builder
	sb.WriteString("(" + name)
	for _, e := range exprs {
		sb.WriteString(" ")
		sb.WriteString(RenderASTAsText(e, 0))
	}
	sb.WriteString(")")
	return sb.String()
}

func renderStatements(stmts []ast.Statement, indent int) string {
	lines := make([]string, 0, len(stmts))
	for _, s := range stmts {
		lines = append(lines, RenderASTAsText(s, indent))
	}
	return strings.Join(lines, "\n")
}

func renderBlock(stmts []ast.Statement, indent int) string {
	if len(stmts) == 0 {
		return strings.Repeat("  ", indent) + "(empty)"
	}
	return renderStatements(stmts, indent)
}
