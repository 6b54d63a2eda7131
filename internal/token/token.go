package token

import "fmt"

type TokenType string

const (
	EOF = "EOF"

	// Identifiers + literals
	IDENT  = "IDENT"  // add, foobar, x, y, ...
	NUMBER = "NUMBER" // 1343456, 3.14
	STRING = "STRING" // "foobar"

	// Operators
	ASSIGN    = "="
	PLUS      = "+"
	MINUS     = "-"
	BANG      = "!"
	ASTERISK  = "*"
	SLASH     = "/"
	INCREMENT = "++"
	DECREMENT = "--"
	LT        = "<"
	LT_EQ     = "<="
	GT        = ">"
	GT_EQ     = ">="
	EQ        = "=="
	NOT_EQ    = "!="
	PERIOD    = "."
	COMMA     = ","
	SEMICOLON = ";"
	LPAREN    = "("
	RPAREN    = ")"
	LBRACE    = "{"
	RBRACE    = "}"
	LBRACKET  = "["
	RBRACKET  = "]"

	// Keywords
	AND      = "AND"
	OR       = "OR"
	CLASS    = "CLASS"
	IF       = "IF"
	ELIF     = "ELIF"
	ELSE     = "ELSE"
	TRUE     = "TRUE"
	FALSE    = "FALSE"
	FUNCTION = "FUNCTION"
	FOR      = "FOR"
	WHILE    = "WHILE"
	NIL      = "NIL"
	PRINT    = "PRINT"
	RETURN   = "RETURN"
	SUPER    = "SUPER"
	THIS     = "THIS"
	VAR      = "VAR"
	BREAK    = "BREAK"
	CONTINUE = "CONTINUE"
)

// Token is immutable once the scanner has produced it.
type Token struct {
	Type   TokenType
	Lexeme string // the exact source text, quotes included for strings
	Line   int
}

func (t Token) String() string {
	return fmt.Sprintf("%s %q line %d", t.Type, t.Lexeme, t.Line)
}

var keywords = map[string]TokenType{
	// constants
	"nil":   NIL,
	"true":  TRUE,
	"false": FALSE,

	// declarations
	"fn":    FUNCTION,
	"var":   VAR,
	"class": CLASS,
	"this":  THIS,
	"super": SUPER,

	// flow control
	"if":       IF,
	"elif":     ELIF,
	"else":     ELSE,
	"for":      FOR,
	"while":    WHILE,
	"return":   RETURN,
	"break":    BREAK,
	"continue": CONTINUE,
	"and":      AND,
	"or":       OR,

	"print": PRINT,
}

func LookupIdent(ident string) TokenType {
	if tok, ok := keywords[ident]; ok {
		return tok
	}
	return IDENT
}
