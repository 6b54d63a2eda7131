package diag

import (
	"bytes"
	"testing"

	"bis/internal/token"
)

func TestDiagnosticFormat(t *testing.T) {
	c := New()
	c.ErrorAt(Parse, token.Token{Type: token.IDENT, Lexeme: "x", Line: 3}, "Expect ';'.")
	c.ErrorAt(Parse, token.Token{Type: token.EOF, Line: 4}, "Expect '}' after block.")
	c.Add(Lex, 5, "", "Unterminated string.")

	var out bytes.Buffer
	c.Report(&out)

	want := "[Line 3] Error at 'x': Expect ';'.\n" +
		"[Line 4] Error at end: Expect '}' after block.\n" +
		"[Line 5] Error: Unterminated string.\n"
	if out.String() != want {
		t.Fatalf("Report:\n%q\nwant:\n%q", out.String(), want)
	}
}

func TestFlagsAndReset(t *testing.T) {
	c := New()
	c.RuntimeError(7, "Division by 0.")
	if c.HadError() || !c.HadRuntimeError() {
		t.Fatalf("runtime error should only set the runtime flag")
	}

	c.Add(Resolve, 1, "", "Can't return from top-level code.")
	if !c.HadError() || c.Len() != 2 {
		t.Fatalf("static error not recorded: %v", c.Diagnostics())
	}

	snapshot := c.Diagnostics()
	c.Reset()
	if c.HadError() || c.HadRuntimeError() || c.Len() != 0 {
		t.Fatalf("Reset left state behind: %v", c.Diagnostics())
	}
	if len(snapshot) != 2 || snapshot[0].Kind != Runtime {
		t.Fatalf("Diagnostics should return a copy, got %v", snapshot)
	}
}
