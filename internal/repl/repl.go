package repl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/peterh/liner"

	"bis/internal/ast"
	"bis/internal/runner"
)

const (
	PROMPT      = ">> "
	CONT_PROMPT = ".. "

	DefaultHistoryFile = ".bis_history"
)

// prompter reads one line of input. *liner.State implements it.
type prompter interface {
	Prompt(prompt string) (string, error)
}

type Session struct {
	Runner     *runner.Runner
	Out        io.Writer
	Err        io.Writer
	ShowSource bool
}

// Eval runs one complete chunk of input and reports whether the session
// should end.
func (s *Session) Eval(ctx context.Context, code string) (quit bool) {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return false
	}
	if strings.HasPrefix(trimmed, ":") {
		switch strings.ToLower(trimmed) {
		case ":quit", ":q":
			return true
		default:
			fmt.Fprintln(s.Out, "unknown command. Type :quit to exit.")
		}
		return false
	}

	res := s.Runner.Run(ctx, "<repl>", code)
	if len(res.Diagnostics) > 0 {
		runner.Report(s.Err, res, s.ShowSource)
		return false
	}
	if echoes(res) {
		fmt.Fprintln(s.Out, res.Value.Inspect())
	}
	return false
}

// echoes reports whether the run ended with a bare expression statement.
func echoes(res runner.Result) bool {
	if res.Value == nil || len(res.Statements) == 0 {
		return false
	}
	_, ok := res.Statements[len(res.Statements)-1].(*ast.ExpressionStatement)
	return ok
}

// readChunk keeps prompting while the accumulated input is an unfinished
// statement. ok is false at end of input.
func readChunk(p prompter) (code string, ok bool) {
	var b strings.Builder

	for {
		prompt := PROMPT
		if b.Len() > 0 {
			prompt = CONT_PROMPT
		}
		line, err := p.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			return "", false
		}
		if err != nil {
			return "", true
		}

		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(line)

		src := b.String()
		if strings.TrimSpace(src) == "" || !runner.Incomplete(src) {
			return src, true
		}
	}
}

func (s *Session) loop(ctx context.Context, p prompter, onChunk func(string)) {
	for {
		code, ok := readChunk(p)
		if !ok {
			fmt.Fprintln(s.Out)
			return
		}
		if strings.TrimSpace(code) != "" && onChunk != nil {
			onChunk(code)
		}
		if s.Eval(ctx, code) {
			return
		}
	}
}

// HistoryPath resolves name against the home directory unless it is already
// absolute.
func HistoryPath(name string) string {
	if name == "" {
		name = DefaultHistoryFile
	}
	if filepath.IsAbs(name) {
		return name
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return name
	}
	return filepath.Join(home, name)
}

// Start runs an interactive session on the terminal with line editing and a
// history file.
func Start(ctx context.Context, s *Session, historyFile string) {
	ln := liner.NewLiner()
	defer ln.Close()
	ln.SetCtrlCAborts(true)

	histPath := HistoryPath(historyFile)
	if f, err := os.Open(histPath); err == nil {
		_, _ = ln.ReadHistory(f)
		_ = f.Close()
	}
	defer func() {
		if f, err := os.Create(histPath); err == nil {
			_, _ = ln.WriteHistory(f)
			_ = f.Close()
		}
	}()

	s.loop(ctx, ln, func(code string) {
		ln.AppendHistory(strings.ReplaceAll(code, "\n", " "))
	})
}
