package parser

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"bis/internal/ast"
	"bis/internal/diag"
	"bis/internal/token"
)

// MaxArguments caps parameter lists, argument lists and list literals. Going
// over it is reported but does not stop the parse.
const MaxArguments = 255

// ErrParse marks a grammar violation that unwinds to the enclosing declaration.
var ErrParse = errors.New("parse error")

type Parser struct {
	tokens  []token.Token
	current int
	diags   *diag.Collector
}

func New(tokens []token.Token, diags *diag.Collector) *Parser {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != token.EOF {
		line := 1
		if len(tokens) > 0 {
			line = tokens[len(tokens)-1].Line
		}
		tokens = append(tokens, token.Token{Type: token.EOF, Line: line})
	}
	return &Parser{tokens: tokens, diags: diags}
}

// Parse is a shorthand for New(tokens, diags).ParseProgram().Statements.
func Parse(tokens []token.Token, diags *diag.Collector) []ast.Statement {
	return New(tokens, diags).ParseProgram().Statements
}

// ParseProgram parses every declaration up to EOF. Declarations that fail to
// parse are dropped after their diagnostic is recorded.
func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{}
	program.Statements = []ast.Statement{}

	for !p.isAtEnd() {
		if stmt := p.declaration(); stmt != nil {
			program.Statements = append(program.Statements, stmt)
		}
	}

	slog.Debug("parsed program",
		slog.Int("statements", len(program.Statements)),
		slog.Int("diagnostics", p.diags.Len()))
	return program
}

func (p *Parser) declaration() ast.Statement {
	stmt, err := p.parseDeclaration()
	if err != nil {
		p.synchronize()
		return nil
	}
	return stmt
}

func (p *Parser) parseDeclaration() (ast.Statement, error) {
	switch {
	case p.match(token.VAR):
		return p.parseVarStatement()
	case p.match(token.FUNCTION):
		return p.parseFunction("function")
	case p.match(token.CLASS):
		return p.parseClassStatement()
	}
	return p.parseStatement()
}

func (p *Parser) parseStatement() (ast.Statement, error) {
	switch {
	case p.match(token.FOR):
		return p.parseForStatement()
	case p.match(token.IF):
		return p.parseIfStatement()
	case p.match(token.PRINT):
		return p.parsePrintStatement()
	case p.match(token.RETURN):
		return p.parseReturnStatement()
	case p.match(token.WHILE):
		return p.parseWhileStatement()
	case p.match(token.LBRACE):
		tok := p.previous()
		statements, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return &ast.BlockStatement{Token: tok, Statements: statements}, nil
	case p.match(token.BREAK):
		tok := p.previous()
		if _, err := p.consume(token.SEMICOLON, "Expect ';' after break."); err != nil {
			return nil, err
		}
		return &ast.BreakStatement{Token: tok}, nil
	case p.match(token.CONTINUE):
		tok := p.previous()
		if _, err := p.consume(token.SEMICOLON, "Expect ';' after continue."); err != nil {
			return nil, err
		}
		return &ast.ContinueStatement{Token: tok}, nil
	}
	return p.parseExpressionStatement()
}

func (p *Parser) parseVarStatement() (ast.Statement, error) {
	stmt := &ast.VarStatement{Token: p.previous()}

	name, err := p.consume(token.IDENT, "Expect variable name.")
	if err != nil {
		return nil, err
	}
	stmt.Name = name

	if p.match(token.ASSIGN) {
		if stmt.Initializer, err = p.parseExpression(); err != nil {
			return nil, err
		}
	}

	if _, err := p.consume(token.SEMICOLON, "Expect ';' after variable declaration."); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseFunction(kind string) (*ast.FunctionStatement, error) {
	fn := &ast.FunctionStatement{Token: p.previous()}

	name, err := p.consume(token.IDENT, "Expect "+kind+" name.")
	if err != nil {
		return nil, err
	}
	fn.Name = name

	if _, err := p.consume(token.LPAREN, "Expect '(' after "+kind+" name."); err != nil {
		return nil, err
	}

	fn.Parameters = []token.Token{}
	if !p.check(token.RPAREN) {
		for {
			if len(fn.Parameters) >= MaxArguments {
				p.errorAt(p.peek(), fmt.Sprintf("Can't have more than %d parameters.", MaxArguments))
			}
			param, err := p.consume(token.IDENT, "Expect parameter name.")
			if err != nil {
				return nil, err
			}
			fn.Parameters = append(fn.Parameters, param)
			if !p.match(token.COMMA) {
				break
			}
		}
	}

	if _, err := p.consume(token.RPAREN, "Expect ')' after parameters."); err != nil {
		return nil, err
	}
	if _, err := p.consume(token.LBRACE, "Expect '{' before "+kind+" body."); err != nil {
		return nil, err
	}

	if fn.Body, err = p.parseBlock(); err != nil {
		return nil, err
	}
	return fn, nil
}

func (p *Parser) parseClassStatement() (ast.Statement, error) {
	stmt := &ast.ClassStatement{Token: p.previous()}

	name, err := p.consume(token.IDENT, "Expect class name.")
	if err != nil {
		return nil, err
	}
	stmt.Name = name

	if p.match(token.LT) {
		superName, err := p.consume(token.IDENT, "Expect superclass name.")
		if err != nil {
			return nil, err
		}
		stmt.Superclass = &ast.Identifier{Token: superName}
	}

	if _, err := p.consume(token.LBRACE, "Expect '{' before class body."); err != nil {
		return nil, err
	}

	for !p.check(token.RBRACE) && !p.isAtEnd() {
		method, err := p.parseFunction("method")
		if err != nil {
			return nil, err
		}
		stmt.Methods = append(stmt.Methods, method)
	}

	if _, err := p.consume(token.RBRACE, "Expect '}' after class body."); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseForStatement() (ast.Statement, error) {
	stmt := &ast.ForStatement{Token: p.previous()}

	if _, err := p.consume(token.LPAREN, "Expect '(' after 'for'."); err != nil {
		return nil, err
	}

	var err error
	switch {
	case p.match(token.SEMICOLON):
	case p.match(token.VAR):
		stmt.Initializer, err = p.parseVarStatement()
	default:
		stmt.Initializer, err = p.parseExpressionStatement()
	}
	if err != nil {
		return nil, err
	}

	if !p.check(token.SEMICOLON) {
		if stmt.Condition, err = p.parseExpression(); err != nil {
			return nil, err
		}
	}
	if _, err := p.consume(token.SEMICOLON, "Expect ';' after loop condition."); err != nil {
		return nil, err
	}

	if !p.check(token.RPAREN) {
		if stmt.Increment, err = p.parseExpression(); err != nil {
			return nil, err
		}
	}
	if _, err := p.consume(token.RPAREN, "Expect ')' after for clauses."); err != nil {
		return nil, err
	}

	if stmt.Body, err = p.parseStatement(); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseIfStatement() (ast.Statement, error) {
	stmt := &ast.IfStatement{Token: p.previous()}

	main, err := p.parseBranch("if")
	if err != nil {
		return nil, err
	}
	stmt.Main = main

	for p.match(token.ELIF) {
		branch, err := p.parseBranch("elif")
		if err != nil {
			return nil, err
		}
		stmt.ElifClauses = append(stmt.ElifClauses, branch)
	}

	if p.match(token.ELSE) {
		if stmt.Else, err = p.parseStatement(); err != nil {
			return nil, err
		}
	}
	return stmt, nil
}

func (p *Parser) parseBranch(keyword string) (ast.Branch, error) {
	if _, err := p.consume(token.LPAREN, "Expect '(' after '"+keyword+"'."); err != nil {
		return ast.Branch{}, err
	}
	condition, err := p.parseExpression()
	if err != nil {
		return ast.Branch{}, err
	}
	if _, err := p.consume(token.RPAREN, "Expect ')' after '"+keyword+"' condition."); err != nil {
		return ast.Branch{}, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return ast.Branch{}, err
	}
	return ast.Branch{Condition: condition, Body: body}, nil
}

// parsePrintStatement turns `print(a, b);` into a call of the global print
// native, so print goes through the ordinary call path.
func (p *Parser) parsePrintStatement() (ast.Statement, error) {
	keyword := p.previous()

	if !p.match(token.LPAREN) {
		return nil, p.errorAt(keyword, "Expect '(' after 'print'.")
	}

	callee := &ast.Identifier{Token: token.Token{Type: token.IDENT, Lexeme: keyword.Lexeme, Line: keyword.Line}}
	call, err := p.finishCall(callee)
	if err != nil {
		return nil, err
	}

	if _, err := p.consume(token.SEMICOLON, "Expect ';' after print statement."); err != nil {
		return nil, err
	}
	return &ast.PrintStatement{Token: keyword, Call: call}, nil
}

func (p *Parser) parseReturnStatement() (ast.Statement, error) {
	stmt := &ast.ReturnStatement{Token: p.previous()}

	if !p.check(token.SEMICOLON) {
		value, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		stmt.ReturnValue = value
	}

	if _, err := p.consume(token.SEMICOLON, "Expect ';' after return value."); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseWhileStatement() (ast.Statement, error) {
	stmt := &ast.WhileStatement{Token: p.previous()}

	if _, err := p.consume(token.LPAREN, "Expect '(' after 'while'."); err != nil {
		return nil, err
	}
	condition, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	stmt.Condition = condition
	if _, err := p.consume(token.RPAREN, "Expect ')' after condition."); err != nil {
		return nil, err
	}

	if stmt.Body, err = p.parseStatement(); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseExpressionStatement() (ast.Statement, error) {
	stmt := &ast.ExpressionStatement{Token: p.peek()}

	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	stmt.Expression = expr

	if _, err := p.consume(token.SEMICOLON, "Expect ';' after expression."); err != nil {
		return nil, err
	}
	return stmt, nil
}

func (p *Parser) parseBlock() ([]ast.Statement, error) {
	statements := []ast.Statement{}

	for !p.check(token.RBRACE) && !p.isAtEnd() {
		if stmt := p.declaration(); stmt != nil {
			statements = append(statements, stmt)
		}
	}

	if _, err := p.consume(token.RBRACE, "Expect '}' after block."); err != nil {
		return nil, err
	}
	return statements, nil
}

// synchronize discards tokens until the start of the next statement so one
// malformed statement produces one diagnostic.
func (p *Parser) synchronize() {
	p.advance()

	for !p.isAtEnd() {
		if p.previous().Type == token.SEMICOLON {
			return
		}

		switch p.peek().Type {
		case token.CLASS, token.FUNCTION, token.VAR, token.FOR, token.IF,
			token.WHILE, token.PRINT, token.RETURN, token.BREAK:
			return
		}

		p.advance()
	}
}

func (p *Parser) match(types ...token.TokenType) bool {
	for _, t := range types {
		if p.check(t) {
			p.advance()
			return true
		}
	}
	return false
}

func (p *Parser) consume(t token.TokenType, message string) (token.Token, error) {
	if p.check(t) {
		return p.advance(), nil
	}
	return token.Token{}, p.errorAt(p.peek(), message)
}

func (p *Parser) check(t token.TokenType) bool {
	if p.isAtEnd() {
		return false
	}
	return p.peek().Type == t
}

func (p *Parser) checkNext(t token.TokenType) bool {
	if p.current+1 >= len(p.tokens) {
		return false
	}
	return p.tokens[p.current+1].Type == t
}

func (p *Parser) advance() token.Token {
	if !p.isAtEnd() {
		p.current++
	}
	return p.previous()
}

func (p *Parser) isAtEnd() bool {
	return p.peek().Type == token.EOF
}

func (p *Parser) peek() token.Token {
	return p.tokens[p.current]
}

func (p *Parser) previous() token.Token {
	if p.current == 0 {
		return p.tokens[0]
	}
	return p.tokens[p.current-1]
}

// errorAt records a diagnostic at tok and returns an error wrapping ErrParse.
// Callers that can keep going simply drop the returned error.
func (p *Parser) errorAt(tok token.Token, message string) error {
	p.diags.ErrorAt(diag.Parse, tok, message)
	return fmt.Errorf("%w: line %d: %s", ErrParse, tok.Line, message)
}

func parseNumber(tok token.Token) (float64, error) {
	return strconv.ParseFloat(tok.Lexeme, 64)
}

func (p *Parser) parseExpression() (ast.Expression, error) {
	return p.parseAssignment()
}

func (p *Parser) parseAssignment() (ast.Expression, error) {
	expr, err := p.parseOr()
	if err != nil {
		return nil, err
	}

	if !p.match(token.ASSIGN) {
		return expr, nil
	}

	equals := p.previous()
	value, err := p.parseAssignment()
	if err != nil {
		return nil, err
	}

	switch target := expr.(type) {
	case *ast.Identifier:
		return &ast.AssignExpression{Token: equals, Name: target.Token, Value: value}, nil
	case *ast.IndexExpression:
		if target.Value == nil {
			return &ast.IndexExpression{Token: target.Token, Name: target.Name, Index: target.Index, Value: value}, nil
		}
	case *ast.GetExpression:
		return &ast.SetExpression{Token: equals, Object: target.Object, Name: target.Name, Value: value}, nil
	}

	// Reported but not fatal: the parse continues with the right-hand side.
	p.errorAt(equals, "Invalid assignment target.")
	return value, nil
}

func (p *Parser) parseOr() (ast.Expression, error) {
	expr, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.match(token.OR) {
		operator := p.previous()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		expr = &ast.LogicalExpression{Token: operator, Left: expr, Operator: operator.Lexeme, Right: right}
	}
	return expr, nil
}

func (p *Parser) parseAnd() (ast.Expression, error) {
	expr, err := p.parseEquality()
	if err != nil {
		return nil, err
	}

	for p.match(token.AND) {
		operator := p.previous()
		right, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		expr = &ast.LogicalExpression{Token: operator, Left: expr, Operator: operator.Lexeme, Right: right}
	}
	return expr, nil
}

func (p *Parser) parseEquality() (ast.Expression, error) {
	return p.parseBinary(p.parseComparison, token.EQ, token.NOT_EQ)
}

func (p *Parser) parseComparison() (ast.Expression, error) {
	return p.parseBinary(p.parseTerm, token.LT, token.LT_EQ, token.GT, token.GT_EQ)
}

func (p *Parser) parseTerm() (ast.Expression, error) {
	return p.parseBinary(p.parseFactor, token.PLUS, token.MINUS)
}

func (p *Parser) parseFactor() (ast.Expression, error) {
	return p.parseBinary(p.parseUnary, token.ASTERISK, token.SLASH)
}

// parseBinary parses a left-associative chain of the given operators with
// operands produced by next.
func (p *Parser) parseBinary(next func() (ast.Expression, error), operators ...token.TokenType) (ast.Expression, error) {
	expr, err := next()
	if err != nil {
		return nil, err
	}

	for p.match(operators...) {
		operator := p.previous()
		right, err := next()
		if err != nil {
			return nil, err
		}
		expr = &ast.InfixExpression{Token: operator, Left: expr, Operator: operator.Lexeme, Right: right}
	}
	return expr, nil
}

func (p *Parser) parseUnary() (ast.Expression, error) {
	if p.match(token.BANG, token.MINUS) {
		operator := p.previous()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return &ast.PrefixExpression{Token: operator, Operator: operator.Lexeme, Right: right}, nil
	}
	return p.parsePrefixUpdate()
}

func (p *Parser) parsePrefixUpdate() (ast.Expression, error) {
	if !p.match(token.INCREMENT, token.DECREMENT) {
		return p.parsePostfixUpdate()
	}

	operator := p.previous()
	name, err := p.consume(token.IDENT, "Operators '++' and '--' must be applied to an lvalue operand.")
	if err != nil {
		return nil, err
	}
	if p.check(token.INCREMENT) || p.check(token.DECREMENT) {
		return nil, p.errorAt(p.peek(), "Operators '++' and '--' cannot be concatenated.")
	}
	return &ast.UpdateExpression{Token: operator, Name: name, Prefix: true}, nil
}

func (p *Parser) parsePostfixUpdate() (ast.Expression, error) {
	expr, err := p.parseCall()
	if err != nil {
		return nil, err
	}

	if !p.match(token.INCREMENT, token.DECREMENT) {
		return expr, nil
	}

	operator := p.previous()
	ident, ok := expr.(*ast.Identifier)
	if !ok {
		return nil, p.errorAt(operator, "Operators '++' and '--' must be applied to an lvalue operand.")
	}
	if p.match(token.INCREMENT, token.DECREMENT) {
		return nil, p.errorAt(p.previous(), "Operators '++' and '--' cannot be concatenated.")
	}
	return &ast.UpdateExpression{Token: operator, Name: ident.Token, Prefix: false}, nil
}

func (p *Parser) parseCall() (ast.Expression, error) {
	expr, err := p.parseSubscript()
	if err != nil {
		return nil, err
	}

	for {
		switch {
		case p.match(token.LPAREN):
			if expr, err = p.finishCall(expr); err != nil {
				return nil, err
			}
		case p.match(token.PERIOD):
			dot := p.previous()
			name, err := p.consume(token.IDENT, "Expect property name after '.'.")
			if err != nil {
				return nil, err
			}
			expr = &ast.GetExpression{Token: dot, Object: expr, Name: name}
		default:
			return expr, nil
		}
	}
}

func (p *Parser) finishCall(callee ast.Expression) (*ast.CallExpression, error) {
	arguments := []ast.Expression{}

	if !p.check(token.RPAREN) {
		for {
			if len(arguments) >= MaxArguments {
				p.errorAt(p.peek(), fmt.Sprintf("Can't have more than %d arguments.", MaxArguments))
			}
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			arguments = append(arguments, arg)
			if !p.match(token.COMMA) {
				break
			}
		}
	}

	paren, err := p.consume(token.RPAREN, "Expect ')' after arguments.")
	if err != nil {
		return nil, err
	}
	return &ast.CallExpression{Token: paren, Function: callee, Arguments: arguments}, nil
}

// parseSubscript handles `name[index]`. Only a plain identifier can be
// subscripted.
func (p *Parser) parseSubscript() (ast.Expression, error) {
	if !(p.check(token.IDENT) && p.checkNext(token.LBRACKET)) {
		return p.parsePrimary()
	}

	name := p.advance()
	bracket := p.advance()
	index, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.consume(token.RBRACKET, "Expect ']' after index."); err != nil {
		return nil, err
	}
	return &ast.IndexExpression{Token: bracket, Name: name, Index: index}, nil
}

func (p *Parser) parsePrimary() (ast.Expression, error) {
	switch {
	case p.match(token.FALSE):
		return &ast.Boolean{Token: p.previous(), Value: false}, nil
	case p.match(token.TRUE):
		return &ast.Boolean{Token: p.previous(), Value: true}, nil
	case p.match(token.NIL):
		return &ast.Nil{Token: p.previous()}, nil
	case p.match(token.NUMBER):
		tok := p.previous()
		value, err := parseNumber(tok)
		if err != nil {
			return nil, p.errorAt(tok, fmt.Sprintf("Could not parse %q as number.", tok.Lexeme))
		}
		return &ast.NumberLiteral{Token: tok, Value: value}, nil
	case p.match(token.STRING):
		tok := p.previous()
		return &ast.StringLiteral{Token: tok, Value: tok.Lexeme[1 : len(tok.Lexeme)-1]}, nil
	case p.match(token.THIS):
		return &ast.ThisExpression{Token: p.previous()}, nil
	case p.match(token.SUPER):
		keyword := p.previous()
		if _, err := p.consume(token.PERIOD, "Expect '.' after 'super'."); err != nil {
			return nil, err
		}
		method, err := p.consume(token.IDENT, "Expect superclass method name.")
		if err != nil {
			return nil, err
		}
		return &ast.SuperExpression{Token: keyword, Method: method}, nil
	case p.match(token.IDENT):
		return &ast.Identifier{Token: p.previous()}, nil
	case p.match(token.LPAREN):
		paren := p.previous()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.consume(token.RPAREN, "Expect ')' after expression."); err != nil {
			return nil, err
		}
		return &ast.GroupedExpression{Token: paren, Expression: expr}, nil
	case p.match(token.LBRACKET):
		return p.parseListLiteral()
	}

	return nil, p.errorAt(p.peek(), "Expect expression.")
}

func (p *Parser) parseListLiteral() (ast.Expression, error) {
	list := &ast.ListLiteral{Token: p.previous(), Elements: []ast.Expression{}}

	if !p.check(token.RBRACKET) {
		for {
			if len(list.Elements) >= MaxArguments {
				p.errorAt(p.peek(), fmt.Sprintf("Can't have more than %d elements in a list.", MaxArguments))
			}
			el, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			list.Elements = append(list.Elements, el)
			if !p.match(token.COMMA) {
				break
			}
		}
	}

	if _, err := p.consume(token.RBRACKET, "Expect ']' after list elements."); err != nil {
		return nil, err
	}
	return list, nil
}
