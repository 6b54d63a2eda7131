// Package runner drives a source text through scanning, parsing, resolution
// and evaluation, and maps the outcome to a process exit code.
package runner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"bis/internal/ast"
	"bis/internal/diag"
	"bis/internal/evaluator"
	"bis/internal/journal"
	"bis/internal/lexer"
	"bis/internal/object"
	"bis/internal/parser"
	"bis/internal/resolver"
	"bis/internal/util"
)

// Exit codes follow sysexits.h.
const (
	ExitOK           = 0
	ExitUsage        = 64
	ExitStaticError  = 65
	ExitRuntimeError = 70
	ExitIOError      = 74
)

// Recorder stores a finished run. *journal.Store satisfies it.
type Recorder interface {
	Record(ctx context.Context, e journal.Entry) error
}

type Result struct {
	Source      string
	Statements  []ast.Statement
	Value       object.Object
	Diagnostics []diag.Diagnostic
	ExitCode    int
	Err         error
}

// Incomplete reports whether parsing stopped at end of input, which means more
// lines could complete the program.
func (r Result) Incomplete() bool {
	for _, d := range r.Diagnostics {
		if d.Kind == diag.Parse && d.Where == "at end" {
			return true
		}
	}
	return false
}

// Runner keeps one evaluator so consecutive runs share globals.
type Runner struct {
	eval     *evaluator.Evaluator
	diags    *diag.Collector
	recorder Recorder
	now      func() time.Time

	// OnParsed, when set, sees the statements of a run before they are
	// resolved.
	OnParsed func(stmts []ast.Statement)
}

type Option func(*Runner)

func WithRecorder(rec Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

func WithEvaluatorOptions(opts ...evaluator.Option) Option {
	return func(r *Runner) { r.eval = evaluator.New(opts...) }
}

func New(opts ...Option) *Runner {
	r := &Runner{diags: diag.New(), now: time.Now}
	for _, opt := range opts {
		opt(r)
	}
	if r.eval == nil {
		r.eval = evaluator.New()
	}
	return r
}

// Run executes source. Static errors prevent execution; the first runtime
// error stops it.
func (r *Runner) Run(ctx context.Context, name, source string) Result {
	r.diags.Reset()
	started := r.now()

	res := r.run(source)
	res.Source = source
	res.Diagnostics = r.diags.Diagnostics()

	slog.Debug("run finished",
		slog.String("name", name),
		slog.Int("exit_code", res.ExitCode),
		slog.Int("diagnostics", len(res.Diagnostics)))

	if r.recorder != nil && !res.Incomplete() {
		entry := journal.Entry{
			Name:        name,
			Source:      source,
			StartedAt:   started,
			Duration:    r.now().Sub(started),
			ExitCode:    res.ExitCode,
			Diagnostics: formatDiagnostics(res.Diagnostics),
		}
		if err := r.recorder.Record(ctx, entry); err != nil {
			slog.Warn("failed to record run", slog.String("name", name), slog.Any("error", err))
		}
	}
	return res
}

func (r *Runner) run(source string) Result {
	tokens := lexer.Scan(source, r.diags)
	slog.Debug("scanned", slog.Int("tokens", len(tokens)))

	stmts := parser.Parse(tokens, r.diags)
	if r.OnParsed != nil {
		r.OnParsed(stmts)
	}
	if r.diags.HadError() {
		return Result{Statements: stmts, ExitCode: ExitStaticError}
	}

	locals := resolver.Resolve(stmts, r.diags)
	if r.diags.HadError() {
		return Result{Statements: stmts, ExitCode: ExitStaticError}
	}
	r.eval.Resolve(locals)

	val, err := r.eval.Interpret(stmts, r.diags)
	if err != nil {
		return Result{Statements: stmts, ExitCode: ExitRuntimeError, Err: err}
	}
	return Result{Statements: stmts, Value: val, ExitCode: ExitOK}
}

// RunFile reads path and runs its contents. A read failure yields ExitIOError.
func (r *Runner) RunFile(ctx context.Context, path string) Result {
	src, err := os.ReadFile(path)
	if err != nil {
		return Result{ExitCode: ExitIOError, Err: fmt.Errorf("read %s: %w", path, err)}
	}
	return r.Run(ctx, path, string(src))
}

func formatDiagnostics(ds []diag.Diagnostic) []string {
	out := make([]string, 0, len(ds))
	for _, d := range ds {
		out = append(out, d.String())
	}
	return out
}

// Report writes the diagnostics of res to w, one per line. With showSource
// each diagnostic is followed by the source lines leading up to it.
func Report(w io.Writer, res Result, showSource bool) {
	for _, d := range res.Diagnostics {
		fmt.Fprintln(w, d.String())
		if showSource && res.Source != "" && d.Line > 0 {
			fmt.Fprintln(w, util.GetContextLines(res.Source, d.Line))
		}
	}
}

// Incomplete parses source with a scratch collector and reports whether it
// ends before a statement is finished.
func Incomplete(source string) bool {
	diags := diag.New()
	parser.Parse(lexer.Scan(source, diags), diags)
	return Result{Diagnostics: diags.Diagnostics()}.Incomplete()
}
