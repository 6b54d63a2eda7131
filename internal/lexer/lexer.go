package lexer

import (
	"fmt"
	"unicode/utf8"

	"bis/internal/diag"
	"bis/internal/token"
)

type Lexer struct {
	input        string
	position     int  // current byte position in input (points to start of current rune)
	readPosition int  // next byte position in input (start of next rune)
	ch           rune // current rune under examination; 0 means EOF
	line         int

	diags *diag.Collector
}

func New(input string, diags *diag.Collector) *Lexer {
	l := &Lexer{input: input, line: 1, diags: diags}
	l.readChar()
	return l
}

// Scan tokenizes the whole input. The result always ends with an EOF token.
func Scan(input string, diags *diag.Collector) []token.Token {
	l := New(input, diags)
	var tokens []token.Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == token.EOF {
			return tokens
		}
	}
}

func (l *Lexer) NextToken() token.Token {
	for {
		l.skipWhitespace()

		start := l.position
		switch l.ch {
		case 0:
			return token.Token{Type: token.EOF, Lexeme: "", Line: l.line}
		case '(':
			return l.single(token.LPAREN, start)
		case ')':
			return l.single(token.RPAREN, start)
		case '{':
			return l.single(token.LBRACE, start)
		case '}':
			return l.single(token.RBRACE, start)
		case '[':
			return l.single(token.LBRACKET, start)
		case ']':
			return l.single(token.RBRACKET, start)
		case ',':
			return l.single(token.COMMA, start)
		case '.':
			return l.single(token.PERIOD, start)
		case ';':
			return l.single(token.SEMICOLON, start)
		case '*':
			return l.single(token.ASTERISK, start)
		case '/':
			return l.single(token.SLASH, start)
		case '-':
			return l.handleCompoundToken(token.MINUS, '-', token.DECREMENT)
		case '+':
			return l.handleCompoundToken(token.PLUS, '+', token.INCREMENT)
		case '!':
			return l.handleCompoundToken(token.BANG, '=', token.NOT_EQ)
		case '=':
			return l.handleCompoundToken(token.ASSIGN, '=', token.EQ)
		case '<':
			return l.handleCompoundToken(token.LT, '=', token.LT_EQ)
		case '>':
			return l.handleCompoundToken(token.GT, '=', token.GT_EQ)
		case '"':
			tok, ok := l.readString()
			if ok {
				return tok
			}
		default:
			if isDigit(l.ch) {
				return l.readNumber()
			}
			if isLetter(l.ch) {
				line := l.line
				ident := l.readIdentifier()
				return token.Token{Type: token.LookupIdent(ident), Lexeme: ident, Line: line}
			}
			l.diags.Add(diag.Lex, l.line, "", fmt.Sprintf("Unexpected character: '%c'.", l.ch))
			l.readChar()
		}
	}
}

func (l *Lexer) single(t token.TokenType, start int) token.Token {
	line := l.line
	l.readChar()
	return token.Token{Type: t, Lexeme: l.input[start:l.position], Line: line}
}

func (l *Lexer) handleCompoundToken(
	t token.TokenType,
	ch1 rune,
	t1 token.TokenType,
) token.Token {
	startPosition := l.position
	if l.peekChar() == ch1 {
		l.readChar()
		return l.single(t1, startPosition)
	}
	return l.single(t, startPosition)
}

func (l *Lexer) skipWhitespace() {
	for {
		switch l.ch {
		case ' ', '\t', '\r':
			l.readChar()
		case '\n':
			l.line++
			l.readChar()
		case '/':
			if l.peekChar() == '/' {
				l.skipToLineEnd()
			} else {
				return
			}
		default:
			return
		}
	}
}

func (l *Lexer) skipToLineEnd() {
	for l.ch != '\n' && l.ch != 0 {
		l.readChar()
	}
}

// readChar advances by one UTF-8 rune, updating byte positions
func (l *Lexer) readChar() {
	if l.readPosition >= len(l.input) {
		l.ch = 0
		l.position = len(l.input)
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.readPosition:])
	l.ch = r
	l.position = l.readPosition
	l.readPosition += size
}

// peekChar returns the next rune without advancing; returns 0 at EOF
func (l *Lexer) peekChar() rune {
	if l.readPosition >= len(l.input) {
		return 0
	}
	r, _ := utf8.DecodeRuneInString(l.input[l.readPosition:])
	return r
}

// readIdentifier returns the substring (bytes) covering the identifier runes
func (l *Lexer) readIdentifier() string {
	start := l.position
	for isLetter(l.ch) || isDigit(l.ch) {
		l.readChar()
	}
	return l.input[start:l.position]
}

func (l *Lexer) readNumber() token.Token {
	start := l.position
	line := l.line
	for isDigit(l.ch) {
		l.readChar()
	}
	if l.ch == '.' && isDigit(l.peekChar()) {
		l.readChar()
		for isDigit(l.ch) {
			l.readChar()
		}
	}
	return token.Token{Type: token.NUMBER, Lexeme: l.input[start:l.position], Line: line}
}

// readString consumes a double-quoted string. Strings may span lines; the
// token carries the line the string started on.
func (l *Lexer) readString() (token.Token, bool) {
	start := l.position
	line := l.line
	l.readChar() // opening quote
	for l.ch != '"' && l.ch != 0 {
		if l.ch == '\n' {
			l.line++
		}
		l.readChar()
	}
	if l.ch == 0 {
		l.diags.Add(diag.Lex, l.line, "", "Unterminated string.")
		return token.Token{}, false
	}
	l.readChar() // closing quote
	return token.Token{Type: token.STRING, Lexeme: l.input[start:l.position], Line: line}, true
}

func isLetter(ch rune) bool {
	return 'a' <= ch && ch <= 'z' || 'A' <= ch && ch <= 'Z' || ch == '_'
}

func isDigit(ch rune) bool {
	return '0' <= ch && ch <= '9'
}
