package lexer

import (
	"testing"

	"bis/internal/diag"
	"bis/internal/token"
)

func TestNextToken(t *testing.T) {
	input := `var five = 5;
var ten = 10.5;

fn add(x, y) {
  return x + y;
}
// comment
!- / * 5;
5 < 10 > 5 <= 4 >= 3;
a == b != c;
i++; --j;
if (x) {} elif (y) {} else {}
while (true) { break; continue; }
[1, "two"];
this.x; super.y;
class and or nil false print for
"multi
line"
`

	tests := []struct {
		expectedType   token.TokenType
		expectedLexeme string
		expectedLine   int
	}{
		{token.VAR, "var", 1},
		{token.IDENT, "five", 1},
		{token.ASSIGN, "=", 1},
		{token.NUMBER, "5", 1},
		{token.SEMICOLON, ";", 1},
		{token.VAR, "var", 2},
		{token.IDENT, "ten", 2},
		{token.ASSIGN, "=", 2},
		{token.NUMBER, "10.5", 2},
		{token.SEMICOLON, ";", 2},
		{token.FUNCTION, "fn", 4},
		{token.IDENT, "add", 4},
		{token.LPAREN, "(", 4},
		{token.IDENT, "x", 4},
		{token.COMMA, ",", 4},
		{token.IDENT, "y", 4},
		{token.RPAREN, ")", 4},
		{token.LBRACE, "{", 4},
		{token.RETURN, "return", 5},
		{token.IDENT, "x", 5},
		{token.PLUS, "+", 5},
		{token.IDENT, "y", 5},
		{token.SEMICOLON, ";", 5},
		{token.RBRACE, "}", 6},
		{token.BANG, "!", 8},
		{token.MINUS, "-", 8},
		{token.SLASH, "/", 8},
		{token.ASTERISK, "*", 8},
		{token.NUMBER, "5", 8},
		{token.SEMICOLON, ";", 8},
		{token.NUMBER, "5", 9},
		{token.LT, "<", 9},
		{token.NUMBER, "10", 9},
		{token.GT, ">", 9},
		{token.NUMBER, "5", 9},
		{token.LT_EQ, "<=", 9},
		{token.NUMBER, "4", 9},
		{token.GT_EQ, ">=", 9},
		{token.NUMBER, "3", 9},
		{token.SEMICOLON, ";", 9},
		{token.IDENT, "a", 10},
		{token.EQ, "==", 10},
		{token.IDENT, "b", 10},
		{token.NOT_EQ, "!=", 10},
		{token.IDENT, "c", 10},
		{token.SEMICOLON, ";", 10},
		{token.IDENT, "i", 11},
		{token.INCREMENT, "++", 11},
		{token.SEMICOLON, ";", 11},
		{token.DECREMENT, "--", 11},
		{token.IDENT, "j", 11},
		{token.SEMICOLON, ";", 11},
		{token.IF, "if", 12},
		{token.LPAREN, "(", 12},
		{token.IDENT, "x", 12},
		{token.RPAREN, ")", 12},
		{token.LBRACE, "{", 12},
		{token.RBRACE, "}", 12},
		{token.ELIF, "elif", 12},
		{token.LPAREN, "(", 12},
		{token.IDENT, "y", 12},
		{token.RPAREN, ")", 12},
		{token.LBRACE, "{", 12},
		{token.RBRACE, "}", 12},
		{token.ELSE, "else", 12},
		{token.LBRACE, "{", 12},
		{token.RBRACE, "}", 12},
		{token.WHILE, "while", 13},
		{token.LPAREN, "(", 13},
		{token.TRUE, "true", 13},
		{token.RPAREN, ")", 13},
		{token.LBRACE, "{", 13},
		{token.BREAK, "break", 13},
		{token.SEMICOLON, ";", 13},
		{token.CONTINUE, "continue", 13},
		{token.SEMICOLON, ";", 13},
		{token.RBRACE, "}", 13},
		{token.LBRACKET, "[", 14},
		{token.NUMBER, "1", 14},
		{token.COMMA, ",", 14},
		{token.STRING, `"two"`, 14},
		{token.RBRACKET, "]", 14},
		{token.SEMICOLON, ";", 14},
		{token.THIS, "this", 15},
		{token.PERIOD, ".", 15},
		{token.IDENT, "x", 15},
		{token.SEMICOLON, ";", 15},
		{token.SUPER, "super", 15},
		{token.PERIOD, ".", 15},
		{token.IDENT, "y", 15},
		{token.SEMICOLON, ";", 15},
		{token.CLASS, "class", 16},
		{token.AND, "and", 16},
		{token.OR, "or", 16},
		{token.NIL, "nil", 16},
		{token.FALSE, "false", 16},
		{token.PRINT, "print", 16},
		{token.FOR, "for", 16},
		{token.STRING, "\"multi\nline\"", 17},
		{token.EOF, "", 19},
	}

	diags := diag.New()
	l := New(input, diags)

	for i, tt := range tests {
		tok := l.NextToken()

		if tok.Type != tt.expectedType {
			t.Fatalf("tests[%d] - tokentype wrong. expected=%q, got=%q (%q)",
				i, tt.expectedType, tok.Type, tok.Lexeme)
		}
		if tok.Lexeme != tt.expectedLexeme {
			t.Fatalf("tests[%d] - lexeme wrong. expected=%q, got=%q",
				i, tt.expectedLexeme, tok.Lexeme)
		}
		if tok.Line != tt.expectedLine {
			t.Fatalf("tests[%d] - line wrong for %q. expected=%d, got=%d",
				i, tok.Lexeme, tt.expectedLine, tok.Line)
		}
	}

	if diags.HadError() {
		t.Fatalf("unexpected diagnostics: %v", diags.Diagnostics())
	}
}

func TestScanLinesAreMonotonicAndTerminated(t *testing.T) {
	inputs := []string{
		"",
		"\n\n\n",
		"var a = 1;\n// only a comment\nprint(a);",
		"\"unterminated\n\nstring",
		"@ # $\nvar x;",
	}

	for _, input := range inputs {
		tokens := Scan(input, diag.New())
		if len(tokens) == 0 {
			t.Fatalf("Scan(%q) returned no tokens", input)
		}
		if last := tokens[len(tokens)-1]; last.Type != token.EOF {
			t.Fatalf("Scan(%q) last token = %q, want EOF", input, last.Type)
		}
		for i := 1; i < len(tokens); i++ {
			if tokens[i].Line < tokens[i-1].Line {
				t.Fatalf("Scan(%q) line went backwards at %d: %d after %d",
					input, i, tokens[i].Line, tokens[i-1].Line)
			}
		}
	}
}

func TestLexErrorsAreRecordedAndScanningContinues(t *testing.T) {
	diags := diag.New()
	tokens := Scan("var a = 1 @ 2;\n\"open", diags)

	if !diags.HadError() {
		t.Fatalf("expected lex errors to be recorded")
	}
	got := diags.Diagnostics()
	if len(got) != 2 {
		t.Fatalf("expected 2 diagnostics, got %d: %v", len(got), got)
	}
	if got[0].Message != "Unexpected character: '@'." || got[0].Line != 1 {
		t.Errorf("unexpected first diagnostic: %v", got[0])
	}
	if got[1].Message != "Unterminated string." || got[1].Line != 2 {
		t.Errorf("unexpected second diagnostic: %v", got[1])
	}

	var types []token.TokenType
	for _, tok := range tokens {
		types = append(types, tok.Type)
	}
	want := []token.TokenType{token.VAR, token.IDENT, token.ASSIGN, token.NUMBER, token.NUMBER, token.SEMICOLON, token.EOF}
	if len(types) != len(want) {
		t.Fatalf("token types = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("token types = %v, want %v", types, want)
		}
	}
}
