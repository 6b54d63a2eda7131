package parser

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"

	"bis/internal/ast"
	"bis/internal/token"
)

// WalkAST converts an AST into plain maps and slices for JSON output. The
// shape is stable so tools can diff dumps between runs.
func WalkAST(node ast.Node) interface{} {
	if node == nil || (reflect.ValueOf(node).Kind() == reflect.Ptr && reflect.ValueOf(node).IsNil()) {
		return nil
	}

	switch n := node.(type) {
	case *ast.Program:
		return map[string]interface{}{
			"type":       "Program",
			"statements": walkStatements(n.Statements),
		}

	case *ast.ExpressionStatement:
		return map[string]interface{}{
			"type":       "ExpressionStatement",
			"line":       n.Token.Line,
			"expression": WalkAST(n.Expression),
		}

	case *ast.PrintStatement:
		return map[string]interface{}{
			"type": "PrintStatement",
			"line": n.Token.Line,
			"call": WalkAST(n.Call),
		}

	case *ast.VarStatement:
		return map[string]interface{}{
			"type":        "VarStatement",
			"line":        n.Token.Line,
			"name":        n.Name.Lexeme,
			"initializer": WalkAST(n.Initializer),
		}

	case *ast.BlockStatement:
		return map[string]interface{}{
			"type":       "BlockStatement",
			"line":       n.Token.Line,
			"statements": walkStatements(n.Statements),
		}

	case *ast.IfStatement:
		branches := make([]interface{}, 0, len(n.ElifClauses)+1)
		for _, b := range append([]ast.Branch{n.Main}, n.ElifClauses...) {
			branches = append(branches, map[string]interface{}{
				"condition": WalkAST(b.Condition),
				"body":      WalkAST(b.Body),
			})
		}
		return map[string]interface{}{
			"type":     "IfStatement",
			"line":     n.Token.Line,
			"branches": branches,
			"else":     WalkAST(n.Else),
		}

	case *ast.WhileStatement:
		return map[string]interface{}{
			"type":      "WhileStatement",
			"line":      n.Token.Line,
			"condition": WalkAST(n.Condition),
			"body":      WalkAST(n.Body),
		}

	case *ast.ForStatement:
		return map[string]interface{}{
			"type":        "ForStatement",
			"line":        n.Token.Line,
			"initializer": WalkAST(n.Initializer),
			"condition":   WalkAST(n.Condition),
			"increment":   WalkAST(n.Increment),
			"body":        WalkAST(n.Body),
		}

	case *ast.FunctionStatement:
		return map[string]interface{}{
			"type":       "FunctionStatement",
			"line":       n.Token.Line,
			"name":       n.Name.Lexeme,
			"parameters": lexemes(n.Parameters),
			"body":       walkStatements(n.Body),
		}

	case *ast.ReturnStatement:
		return map[string]interface{}{
			"type":        "ReturnStatement",
			"line":        n.Token.Line,
			"returnValue": WalkAST(n.ReturnValue),
		}

	case *ast.BreakStatement:
		return map[string]interface{}{"type": "BreakStatement", "line": n.Token.Line}

	case *ast.ContinueStatement:
		return map[string]interface{}{"type": "ContinueStatement", "line": n.Token.Line}

	case *ast.ClassStatement:
		methods := make([]interface{}, len(n.Methods))
		for i, m := range n.Methods {
			methods[i] = WalkAST(m)
		}
		return map[string]interface{}{
			"type":       "ClassStatement",
			"line":       n.Token.Line,
			"name":       n.Name.Lexeme,
			"superclass": WalkAST(n.Superclass),
			"methods":    methods,
		}

	case *ast.Identifier:
		return map[string]interface{}{
			"type": "Identifier",
			"line": n.Token.Line,
			"name": n.Token.Lexeme,
		}

	case *ast.Boolean:
		return map[string]interface{}{
			"type":  "Boolean",
			"value": n.Value,
		}

	case *ast.Nil:
		return map[string]interface{}{"type": "Nil"}

	case *ast.NumberLiteral:
		return map[string]interface{}{
			"type":  "NumberLiteral",
			"token": n.TokenLiteral(),
			"value": n.Value,
		}

	case *ast.StringLiteral:
		return map[string]interface{}{
			"type":  "StringLiteral",
			"value": n.Value,
		}

	case *ast.GroupedExpression:
		return map[string]interface{}{
			"type":       "GroupedExpression",
			"expression": WalkAST(n.Expression),
		}

	case *ast.PrefixExpression:
		return map[string]interface{}{
			"type":     "PrefixExpression",
			"line":     n.Token.Line,
			"operator": n.Operator,
			"right":    WalkAST(n.Right),
		}

	case *ast.InfixExpression:
		return map[string]interface{}{
			"type":     "InfixExpression",
			"line":     n.Token.Line,
			"left":     WalkAST(n.Left),
			"operator": n.Operator,
			"right":    WalkAST(n.Right),
		}

	case *ast.LogicalExpression:
		return map[string]interface{}{
			"type":     "LogicalExpression",
			"line":     n.Token.Line,
			"left":     WalkAST(n.Left),
			"operator": n.Operator,
			"right":    WalkAST(n.Right),
		}

	case *ast.AssignExpression:
		return map[string]interface{}{
			"type":  "AssignExpression",
			"line":  n.Token.Line,
			"name":  n.Name.Lexeme,
			"value": WalkAST(n.Value),
		}

	case *ast.CallExpression:
		args := make([]interface{}, len(n.Arguments))
		for i, arg := range n.Arguments {
			args[i] = WalkAST(arg)
		}
		return map[string]interface{}{
			"type":      "CallExpression",
			"line":      n.Token.Line,
			"function":  WalkAST(n.Function),
			"arguments": args,
		}

	case *ast.ListLiteral:
		elements := make([]interface{}, len(n.Elements))
		for i, el := range n.Elements {
			elements[i] = WalkAST(el)
		}
		return map[string]interface{}{
			"type":     "ListLiteral",
			"line":     n.Token.Line,
			"elements": elements,
		}

	case *ast.IndexExpression:
		return map[string]interface{}{
			"type":  "IndexExpression",
			"line":  n.Token.Line,
			"name":  n.Name.Lexeme,
			"index": WalkAST(n.Index),
			"value": WalkAST(n.Value),
		}

	case *ast.UpdateExpression:
		return map[string]interface{}{
			"type":     "UpdateExpression",
			"line":     n.Token.Line,
			"operator": n.Token.Lexeme,
			"name":     n.Name.Lexeme,
			"prefix":   n.Prefix,
		}

	case *ast.GetExpression:
		return map[string]interface{}{
			"type":   "GetExpression",
			"object": WalkAST(n.Object),
			"name":   n.Name.Lexeme,
		}

	case *ast.SetExpression:
		return map[string]interface{}{
			"type":   "SetExpression",
			"object": WalkAST(n.Object),
			"name":   n.Name.Lexeme,
			"value":  WalkAST(n.Value),
		}

	case *ast.ThisExpression:
		return map[string]interface{}{"type": "ThisExpression"}

	case *ast.SuperExpression:
		return map[string]interface{}{
			"type":   "SuperExpression",
			"method": n.Method.Lexeme,
		}

	default:
		return map[string]interface{}{
			"type": "Unknown",
			"node": fmt.Sprintf("%T", n),
		}
	}
}

func walkStatements(stmts []ast.Statement) []interface{} {
	out := make([]interface{}, len(stmts))
	for i, s := range stmts {
		out[i] = WalkAST(s)
	}
	return out
}

func lexemes(tokens []token.Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		out[i] = t.Lexeme
	}
	return out
}

func RenderASTAsJSON(node ast.Node) (string, error) {
	astMap := WalkAST(node)
	buf := new(bytes.Buffer)
	encoder := json.NewEncoder(buf)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)

	if err := encoder.Encode(astMap); err != nil {
		return "", fmt.Errorf("failed to encode JSON: %w", err)
	}
	return buf.String(), nil
}
