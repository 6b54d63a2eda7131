package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
)

// Levels below slog.LevelDebug and above slog.LevelError extend slog's range
// with trace and none.
const (
	LevelTrace = slog.LevelDebug - 4
	LevelNone  = slog.LevelError + 100
)

// ParseLevel maps trace, debug, info, warn, error and none to a slog level.
// Unknown names disable logging.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "trace":
		return LevelTrace
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return LevelNone
	}
}

// fileWriter is the log destination. Reopen swaps the file under the lock so
// a rotated log keeps receiving records.
type fileWriter struct {
	mu   sync.Mutex
	path string
	file *os.File
	out  io.Writer
}

func (w *fileWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.out.Write(p)
}

func (w *fileWriter) reopen() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	fh, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if w.file != nil {
		w.file.Close()
	}
	w.file = fh
	w.out = fh
	return nil
}

type Logger struct {
	*slog.Logger
	writer *fileWriter
	sigs   chan os.Signal
}

// New builds a JSON logger at level writing to logFile, or to stderr when
// logFile is empty or cannot be opened.
func New(level, logFile string) *Logger {
	w := &fileWriter{out: os.Stderr}

	if logFile != "" {
		w.path = logFile
		if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "failed to create log directory for '%s': %v; falling back to stderr\n", logFile, err)
			w.path = ""
		} else if err := w.reopen(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file '%s': %v; falling back to stderr\n", logFile, err)
			w.path = ""
		}
	}

	l := &Logger{
		Logger: slog.New(newHandler(w, ParseLevel(level))),
		writer: w,
	}
	l.setupLogRotation()
	return l
}

func newHandler(w io.Writer, level slog.Level) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(_ []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl <= LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	})
}

// setupLogRotation reopens the log file on SIGHUP:
//
//	mv bis.log bis.bak && kill -HUP <pid>
func (l *Logger) setupLogRotation() {
	if l.writer.path == "" {
		return
	}

	l.sigs = make(chan os.Signal, 1)
	signal.Notify(l.sigs, syscall.SIGHUP)
	go func() {
		for range l.sigs {
			if err := l.writer.reopen(); err != nil {
				fmt.Fprintf(os.Stderr, "could not reopen log file: %v\n", err)
			}
		}
	}()
}

// Close stops listening for SIGHUP and closes the log file.
func (l *Logger) Close() error {
	if l.sigs != nil {
		signal.Stop(l.sigs)
		close(l.sigs)
		l.sigs = nil
	}

	l.writer.mu.Lock()
	defer l.writer.mu.Unlock()
	if l.writer.file == nil {
		return nil
	}
	err := l.writer.file.Close()
	l.writer.file = nil
	l.writer.out = os.Stderr
	return err
}
