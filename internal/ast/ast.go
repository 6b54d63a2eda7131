package ast

import (
	"bytes"
	"strconv"
	"strings"

	"bis/internal/token"
)

// The base Node interface
type Node interface {
	TokenLiteral() string
	String() string
}

type Statement interface {
	Node
	statementNode()
}

type Expression interface {
	Node
	expressionNode()
}

type Program struct {
	Statements []Statement
}

func (p *Program) TokenLiteral() string {
	if len(p.Statements) > 0 {
		return p.Statements[0].TokenLiteral()
	}
	return ""
}

func (p *Program) String() string {
	var out bytes.Buffer

	for _, s := range p.Statements {
		out.WriteString(s.String())
	}

	return out.String()
}

// Statements

type ExpressionStatement struct {
	Token      token.Token // the first token of the expression
	Expression Expression
}

func (es *ExpressionStatement) statementNode()       {}
func (es *ExpressionStatement) TokenLiteral() string { return es.Token.Lexeme }
func (es *ExpressionStatement) String() string {
	if es.Expression != nil {
		return es.Expression.String() + ";"
	}
	return ""
}

// PrintStatement wraps the call to the global `print` native.
type PrintStatement struct {
	Token token.Token // the 'print' token
	Call  *CallExpression
}

func (ps *PrintStatement) statementNode()       {}
func (ps *PrintStatement) TokenLiteral() string { return ps.Token.Lexeme }
func (ps *PrintStatement) String() string       { return ps.Call.String() + ";" }

type VarStatement struct {
	Token       token.Token // the token.VAR token
	Name        token.Token
	Initializer Expression // nil when the variable starts as nil
}

func (vs *VarStatement) statementNode()       {}
func (vs *VarStatement) TokenLiteral() string { return vs.Token.Lexeme }
func (vs *VarStatement) String() string {
	var out bytes.Buffer

	out.WriteString("var " + vs.Name.Lexeme)
	if vs.Initializer != nil {
		out.WriteString(" = ")
		out.WriteString(vs.Initializer.String())
	}
	out.WriteString(";")

	return out.String()
}

type BlockStatement struct {
	Token      token.Token // the { token
	Statements []Statement
}

func (bs *BlockStatement) statementNode()       {}
func (bs *BlockStatement) TokenLiteral() string { return bs.Token.Lexeme }
func (bs *BlockStatement) String() string {
	var out bytes.Buffer

	out.WriteString("{ ")
	for _, s := range bs.Statements {
		out.WriteString(s.String())
		out.WriteString(" ")
	}
	out.WriteString("}")

	return out.String()
}

// Branch is one condition/body pair of an if statement.
type Branch struct {
	Condition Expression
	Body      Statement
}

type IfStatement struct {
	Token       token.Token // the 'if' token
	Main        Branch
	ElifClauses []Branch
	Else        Statement // optional
}

func (is *IfStatement) statementNode()       {}
func (is *IfStatement) TokenLiteral() string { return is.Token.Lexeme }
func (is *IfStatement) String() string {
	var out bytes.Buffer

	out.WriteString("if (" + is.Main.Condition.String() + ") " + is.Main.Body.String())
	for _, b := range is.ElifClauses {
		out.WriteString(" elif (" + b.Condition.String() + ") " + b.Body.String())
	}
	if is.Else != nil {
		out.WriteString(" else " + is.Else.String())
	}

	return out.String()
}

type WhileStatement struct {
	Token     token.Token
	Condition Expression
	Body      Statement
}

func (ws *WhileStatement) statementNode()       {}
func (ws *WhileStatement) TokenLiteral() string { return ws.Token.Lexeme }
func (ws *WhileStatement) String() string {
	return "while (" + ws.Condition.String() + ") " + ws.Body.String()
}

// ForStatement keeps every clause optional. A missing condition loops until
// a break or return.
type ForStatement struct {
	Token       token.Token
	Initializer Statement
	Condition   Expression
	Increment   Expression
	Body        Statement
}

func (fs *ForStatement) statementNode()       {}
func (fs *ForStatement) TokenLiteral() string { return fs.Token.Lexeme }
func (fs *ForStatement) String() string {
	var out bytes.Buffer

	out.WriteString("for (")
	if fs.Initializer != nil {
		out.WriteString(fs.Initializer.String())
	} else {
		out.WriteString(";")
	}
	if fs.Condition != nil {
		out.WriteString(" " + fs.Condition.String())
	}
	out.WriteString(";")
	if fs.Increment != nil {
		out.WriteString(" " + fs.Increment.String())
	}
	out.WriteString(") ")
	out.WriteString(fs.Body.String())

	return out.String()
}

type FunctionStatement struct {
	Token      token.Token // the 'fn' token
	Name       token.Token
	Parameters []token.Token
	Body       []Statement
}

func (fs *FunctionStatement) statementNode()       {}
func (fs *FunctionStatement) TokenLiteral() string { return fs.Token.Lexeme }
func (fs *FunctionStatement) String() string {
	var out bytes.Buffer

	params := []string{}
	for _, p := range fs.Parameters {
		params = append(params, p.Lexeme)
	}

	out.WriteString("fn " + fs.Name.Lexeme)
	out.WriteString("(")
	out.WriteString(strings.Join(params, ", "))
	out.WriteString(") { ")
	for _, s := range fs.Body {
		out.WriteString(s.String())
		out.WriteString(" ")
	}
	out.WriteString("}")

	return out.String()
}

type ReturnStatement struct {
	Token       token.Token // the 'return' token
	ReturnValue Expression  // optional
}

func (rs *ReturnStatement) statementNode()       {}
func (rs *ReturnStatement) TokenLiteral() string { return rs.Token.Lexeme }
func (rs *ReturnStatement) String() string {
	if rs.ReturnValue != nil {
		return "return " + rs.ReturnValue.String() + ";"
	}
	return "return;"
}

type BreakStatement struct {
	Token token.Token
}

func (bs *BreakStatement) statementNode()       {}
func (bs *BreakStatement) TokenLiteral() string { return bs.Token.Lexeme }
func (bs *BreakStatement) String() string       { return "break;" }

type ContinueStatement struct {
	Token token.Token
}

func (cs *ContinueStatement) statementNode()       {}
func (cs *ContinueStatement) TokenLiteral() string { return cs.Token.Lexeme }
func (cs *ContinueStatement) String() string       { return "continue;" }

// ClassStatement is parsed but never evaluated.
type ClassStatement struct {
	Token      token.Token
	Name       token.Token
	Superclass *Identifier
	Methods    []*FunctionStatement
}

func (cs *ClassStatement) statementNode()       {}
func (cs *ClassStatement) TokenLiteral() string { return cs.Token.Lexeme }
func (cs *ClassStatement) String() string {
	var out bytes.Buffer

	out.WriteString("class " + cs.Name.Lexeme)
	if cs.Superclass != nil {
		out.WriteString(" < " + cs.Superclass.String())
	}
	out.WriteString(" { ")
	for _, m := range cs.Methods {
		out.WriteString(strings.TrimPrefix(m.String(), "fn "))
		out.WriteString(" ")
	}
	out.WriteString("}")

	return out.String()
}

// Expressions

type Identifier struct {
	Token token.Token // the token.IDENT token
}

func (i *Identifier) expressionNode()      {}
func (i *Identifier) TokenLiteral() string { return i.Token.Lexeme }
func (i *Identifier) String() string       { return i.Token.Lexeme }

type Boolean struct {
	Token token.Token
	Value bool
}

func (b *Boolean) expressionNode()      {}
func (b *Boolean) TokenLiteral() string { return b.Token.Lexeme }
func (b *Boolean) String() string       { return b.Token.Lexeme }

type Nil struct {
	Token token.Token
}

func (n *Nil) expressionNode()      {}
func (n *Nil) TokenLiteral() string { return n.Token.Lexeme }
func (n *Nil) String() string       { return n.Token.Lexeme }

type NumberLiteral struct {
	Token token.Token
	Value float64
}

func (n *NumberLiteral) expressionNode()      {}
func (n *NumberLiteral) TokenLiteral() string { return n.Token.Lexeme }
func (n *NumberLiteral) String() string       { return n.Token.Lexeme }

type StringLiteral struct {
	Token token.Token
	Value string // without the surrounding quotes
}

func (s *StringLiteral) expressionNode()      {}
func (s *StringLiteral) TokenLiteral() string { return s.Token.Lexeme }
func (s *StringLiteral) String() string       { return strconv.Quote(s.Value) }

type GroupedExpression struct {
	Token      token.Token // the ( token
	Expression Expression
}

func (g *GroupedExpression) expressionNode()      {}
func (g *GroupedExpression) TokenLiteral() string { return g.Token.Lexeme }
func (g *GroupedExpression) String() string       { return "(" + g.Expression.String() + ")" }

type PrefixExpression struct {
	Token    token.Token // The prefix token, e.g. ! or -
	Operator string
	Right    Expression
}

func (pe *PrefixExpression) expressionNode()      {}
func (pe *PrefixExpression) TokenLiteral() string { return pe.Token.Lexeme }
func (pe *PrefixExpression) String() string {
	return "(" + pe.Operator + pe.Right.String() + ")"
}

type InfixExpression struct {
	Token    token.Token // The operator token, e.g. +
	Left     Expression
	Operator string
	Right    Expression
}

func (ie *InfixExpression) expressionNode()      {}
func (ie *InfixExpression) TokenLiteral() string { return ie.Token.Lexeme }
func (ie *InfixExpression) String() string {
	return "(" + ie.Left.String() + " " + ie.Operator + " " + ie.Right.String() + ")"
}

// LogicalExpression is `and` / `or`; kept apart from InfixExpression because
// the right operand is evaluated lazily.
type LogicalExpression struct {
	Token    token.Token
	Left     Expression
	Operator string
	Right    Expression
}

func (le *LogicalExpression) expressionNode()      {}
func (le *LogicalExpression) TokenLiteral() string { return le.Token.Lexeme }
func (le *LogicalExpression) String() string {
	return "(" + le.Left.String() + " " + le.Operator + " " + le.Right.String() + ")"
}

type AssignExpression struct {
	Token token.Token // the = token
	Name  token.Token
	Value Expression
}

func (ae *AssignExpression) expressionNode()      {}
func (ae *AssignExpression) TokenLiteral() string { return ae.Token.Lexeme }
func (ae *AssignExpression) String() string {
	return ae.Name.Lexeme + " = " + ae.Value.String()
}

type CallExpression struct {
	Token     token.Token // the closing ) token, used to report call errors
	Function  Expression  // Identifier or any expression producing a callable
	Arguments []Expression
}

func (ce *CallExpression) expressionNode()      {}
func (ce *CallExpression) TokenLiteral() string { return ce.Token.Lexeme }
func (ce *CallExpression) String() string {
	args := []string{}
	for _, a := range ce.Arguments {
		args = append(args, a.String())
	}
	return ce.Function.String() + "(" + strings.Join(args, ", ") + ")"
}

type ListLiteral struct {
	Token    token.Token // the '[' token
	Elements []Expression
}

func (ll *ListLiteral) expressionNode()      {}
func (ll *ListLiteral) TokenLiteral() string { return ll.Token.Lexeme }
func (ll *ListLiteral) String() string {
	elements := []string{}
	for _, el := range ll.Elements {
		elements = append(elements, el.String())
	}
	return "[" + strings.Join(elements, ", ") + "]"
}

// IndexExpression reads `name[index]`, or writes it when Value is set.
type IndexExpression struct {
	Token token.Token // the '[' token
	Name  token.Token
	Index Expression
	Value Expression // nil for a read
}

func (ie *IndexExpression) expressionNode()      {}
func (ie *IndexExpression) TokenLiteral() string { return ie.Token.Lexeme }
func (ie *IndexExpression) String() string {
	s := ie.Name.Lexeme + "[" + ie.Index.String() + "]"
	if ie.Value != nil {
		s += " = " + ie.Value.String()
	}
	return s
}

// UpdateExpression is ++ / -- applied to a plain identifier.
type UpdateExpression struct {
	Token  token.Token // the ++ or -- token
	Name   token.Token
	Prefix bool
}

func (ue *UpdateExpression) expressionNode()      {}
func (ue *UpdateExpression) TokenLiteral() string { return ue.Token.Lexeme }
func (ue *UpdateExpression) String() string {
	if ue.Prefix {
		return ue.Token.Lexeme + ue.Name.Lexeme
	}
	return ue.Name.Lexeme + ue.Token.Lexeme
}

// Delta is +1 for ++ and -1 for --.
func (ue *UpdateExpression) Delta() float64 {
	if ue.Token.Type == token.DECREMENT {
		return -1
	}
	return 1
}

// Placeholders for the reserved object syntax. They parse but evaluate to nil.

type GetExpression struct {
	Token  token.Token // the '.' token
	Object Expression
	Name   token.Token
}

func (ge *GetExpression) expressionNode()      {}
func (ge *GetExpression) TokenLiteral() string { return ge.Token.Lexeme }
func (ge *GetExpression) String() string       { return ge.Object.String() + "." + ge.Name.Lexeme }

type SetExpression struct {
	Token  token.Token
	Object Expression
	Name   token.Token
	Value  Expression
}

func (se *SetExpression) expressionNode()      {}
func (se *SetExpression) TokenLiteral() string { return se.Token.Lexeme }
func (se *SetExpression) String() string {
	return se.Object.String() + "." + se.Name.Lexeme + " = " + se.Value.String()
}

type ThisExpression struct {
	Token token.Token
}

func (te *ThisExpression) expressionNode()      {}
func (te *ThisExpression) TokenLiteral() string { return te.Token.Lexeme }
func (te *ThisExpression) String() string       { return "this" }

type SuperExpression struct {
	Token  token.Token
	Method token.Token
}

func (se *SuperExpression) expressionNode()      {}
func (se *SuperExpression) TokenLiteral() string { return se.Token.Lexeme }
func (se *SuperExpression) String() string       { return "super." + se.Method.Lexeme }
