// Package diag collects the diagnostics produced while scanning, parsing,
// resolving and running a program.
//
// A Collector is created by the caller and handed by pointer to every stage of
// the pipeline. Static diagnostics accumulate; a runtime error is recorded once
// and ends the run. The caller inspects HadError and HadRuntimeError to decide
// whether to execute at all and which exit code to use.
package diag

import (
	"fmt"
	"io"

	"bis/internal/token"
)

type Kind int

const (
	Lex Kind = iota
	Parse
	Resolve
	Runtime
)

var kindNames = [...]string{"lex", "parse", "resolve", "runtime"}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Diagnostic is a single message tied to a source line.
type Diagnostic struct {
	Kind    Kind
	Line    int
	Where   string // "at 'x'", "at end" or empty
	Message string
}

func (d Diagnostic) String() string {
	if d.Where == "" {
		return fmt.Sprintf("[Line %d] Error: %s", d.Line, d.Message)
	}
	return fmt.Sprintf("[Line %d] Error %s: %s", d.Line, d.Where, d.Message)
}

type Collector struct {
	list            []Diagnostic
	hadError        bool
	hadRuntimeError bool
}

func New() *Collector {
	return &Collector{}
}

// Add records a static diagnostic that has no token to point at.
func (c *Collector) Add(kind Kind, line int, where, message string) {
	c.list = append(c.list, Diagnostic{Kind: kind, Line: line, Where: where, Message: message})
	if kind == Runtime {
		c.hadRuntimeError = true
	} else {
		c.hadError = true
	}
}

// ErrorAt records a diagnostic located at tok.
func (c *Collector) ErrorAt(kind Kind, tok token.Token, message string) {
	where := "at '" + tok.Lexeme + "'"
	if tok.Type == token.EOF {
		where = "at end"
	}
	c.Add(kind, tok.Line, where, message)
}

func (c *Collector) RuntimeError(line int, message string) {
	c.Add(Runtime, line, "", message)
}

// HadError reports whether a lex, parse or resolve error was recorded.
func (c *Collector) HadError() bool { return c.hadError }

func (c *Collector) HadRuntimeError() bool { return c.hadRuntimeError }

func (c *Collector) Diagnostics() []Diagnostic {
	out := make([]Diagnostic, len(c.list))
	copy(out, c.list)
	return out
}

func (c *Collector) Len() int { return len(c.list) }

// Report writes every recorded diagnostic, one per line.
func (c *Collector) Report(w io.Writer) {
	for _, d := range c.list {
		fmt.Fprintln(w, d.String())
	}
}

// Reset clears the collector so it can be reused for another run (the REPL
// reuses one collector per session).
func (c *Collector) Reset() {
	c.list = c.list[:0]
	c.hadError = false
	c.hadRuntimeError = false
}
