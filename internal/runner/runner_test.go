package runner

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"bis/internal/ast"
	"bis/internal/evaluator"
	"bis/internal/journal"
)

type fakeRecorder struct {
	entries []journal.Entry
	err     error
}

func (f *fakeRecorder) Record(_ context.Context, e journal.Entry) error {
	f.entries = append(f.entries, e)
	return f.err
}

func newTestRunner(out *bytes.Buffer, opts ...Option) *Runner {
	return New(append([]Option{WithEvaluatorOptions(evaluator.WithOutput(out))}, opts...)...)
}

func TestRunExitCodes(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		exitCode int
		output   string
	}{
		{"ok", `print("hi");`, ExitOK, "hi "},
		{"lex error", `var a = 1 @;`, ExitStaticError, ""},
		{"parse error", `var = 1;`, ExitStaticError, ""},
		{"resolve error", `return 1;`, ExitStaticError, ""},
		{"static error skips execution", "print(1);\nbreak;", ExitStaticError, ""},
		{"runtime error", `print(1); nil + 1; print(2);`, ExitRuntimeError, "1 "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			res := newTestRunner(&out).Run(context.Background(), tt.name, tt.source)
			if res.ExitCode != tt.exitCode {
				t.Fatalf("exit code: expected=%d, got=%d (%v)", tt.exitCode, res.ExitCode, res.Diagnostics)
			}
			if out.String() != tt.output {
				t.Errorf("output: expected=%q, got=%q", tt.output, out.String())
			}
			if tt.exitCode != ExitOK && len(res.Diagnostics) == 0 {
				t.Errorf("expected diagnostics for a failed run")
			}
		})
	}
}

func TestRunnerKeepsGlobalsAndResetsDiagnostics(t *testing.T) {
	var out bytes.Buffer
	r := newTestRunner(&out)
	ctx := context.Background()

	if res := r.Run(ctx, "<repl>", "var n = 1;"); res.ExitCode != ExitOK {
		t.Fatalf("first run failed: %v", res.Diagnostics)
	}
	if res := r.Run(ctx, "<repl>", "n +;"); res.ExitCode != ExitStaticError {
		t.Fatalf("expected a parse error, got %d", res.ExitCode)
	}

	res := r.Run(ctx, "<repl>", "fn twice(x) { return x * 2; } twice(n + 1);")
	if res.ExitCode != ExitOK || len(res.Diagnostics) != 0 {
		t.Fatalf("diagnostics leaked between runs: %v", res.Diagnostics)
	}
	if res.Value.Inspect() != "4" {
		t.Fatalf("expected 4, got %s", res.Value.Inspect())
	}
}

func TestIncomplete(t *testing.T) {
	tests := []struct {
		source     string
		incomplete bool
	}{
		{"fn f() {", true},
		{"print(1", true},
		{"var a = 1", true},
		{"var = 1;", false},
		{"1;", false},
	}

	for _, tt := range tests {
		t.Run(tt.source, func(t *testing.T) {
			var out bytes.Buffer
			res := newTestRunner(&out).Run(context.Background(), "<repl>", tt.source)
			if res.Incomplete() != tt.incomplete {
				t.Fatalf("Incomplete() = %v, diagnostics %v", res.Incomplete(), res.Diagnostics)
			}
		})
	}
}

func TestRunRecordsToJournal(t *testing.T) {
	var out bytes.Buffer
	rec := &fakeRecorder{}
	r := newTestRunner(&out, WithRecorder(rec))
	ctx := context.Background()

	r.Run(ctx, "a.bis", "1 / 0;")
	r.Run(ctx, "<repl>", "fn f() {")

	if len(rec.entries) != 1 {
		t.Fatalf("expected only the complete run to be recorded, got %d", len(rec.entries))
	}
	e := rec.entries[0]
	if e.Name != "a.bis" || e.Source != "1 / 0;" || e.ExitCode != ExitRuntimeError {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if len(e.Diagnostics) != 1 || e.Diagnostics[0] != "[Line 1] Error: Division by 0." {
		t.Fatalf("unexpected diagnostics: %q", e.Diagnostics)
	}
}

func TestRecorderFailureDoesNotFailRun(t *testing.T) {
	var out bytes.Buffer
	r := newTestRunner(&out, WithRecorder(&fakeRecorder{err: errors.New("disk full")}))
	if res := r.Run(context.Background(), "x", "print(1);"); res.ExitCode != ExitOK {
		t.Fatalf("expected ExitOK, got %d", res.ExitCode)
	}
}

func TestRunFileMissing(t *testing.T) {
	var out bytes.Buffer
	res := newTestRunner(&out).RunFile(context.Background(), filepath.Join(t.TempDir(), "nope.bis"))
	if res.ExitCode != ExitIOError || res.Err == nil {
		t.Fatalf("expected an I/O failure, got %d (%v)", res.ExitCode, res.Err)
	}
}

func TestOnParsedSeesStatements(t *testing.T) {
	var out bytes.Buffer
	r := newTestRunner(&out)
	var seen int
	r.OnParsed = func(stmts []ast.Statement) { seen = len(stmts) }

	r.Run(context.Background(), "x", "var a = 1; print(a);")
	if seen != 2 {
		t.Fatalf("expected 2 statements, got %d", seen)
	}
}

func TestReport(t *testing.T) {
	var out bytes.Buffer
	res := newTestRunner(&out).Run(context.Background(), "x", "var a = 1;\nvar b = ;")

	var plain, withSource bytes.Buffer
	Report(&plain, res, false)
	Report(&withSource, res, true)

	if plain.String() != "[Line 2] Error at ';': Expect expression.\n" {
		t.Fatalf("unexpected report: %q", plain.String())
	}
	if !strings.Contains(withSource.String(), "  >    2 | var b = ;") {
		t.Fatalf("expected source context, got %q", withSource.String())
	}
}

func TestIncompleteProbeDoesNotExecute(t *testing.T) {
	if !Incomplete("while (true) {") {
		t.Fatalf("an open block should be incomplete")
	}
	if Incomplete("print(1);") {
		t.Fatalf("a finished statement is complete")
	}
	if Incomplete("1 @;") {
		t.Fatalf("lex errors alone do not make input incomplete")
	}
}
