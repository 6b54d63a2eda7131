package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "journal.db")
	s, err := Open(context.Background(), "sqlite3", dsn)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	start := time.UnixMilli(1700000000123)

	entries := []Entry{
		{Name: "a.bis", Source: "print(1);", StartedAt: start, Duration: 5 * time.Millisecond},
		{Name: "b.bis", Source: "1 / 0;", StartedAt: start, ExitCode: 70,
			Diagnostics: []string{"[Line 1] Error: Division by 0."}},
		{Name: "<repl>", Source: "var x = 1;", StartedAt: start},
	}
	for _, e := range entries {
		if err := s.Record(ctx, e); err != nil {
			t.Fatalf("Record(%s): %v", e.Name, err)
		}
	}

	got, err := s.Recent(ctx, 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].Name != "<repl>" || got[1].Name != "b.bis" {
		t.Fatalf("expected newest first, got %q then %q", got[0].Name, got[1].Name)
	}

	b := got[1]
	if b.ExitCode != 70 {
		t.Errorf("exit code: expected 70, got %d", b.ExitCode)
	}
	if len(b.Diagnostics) != 1 || b.Diagnostics[0] != "[Line 1] Error: Division by 0." {
		t.Errorf("unexpected diagnostics: %q", b.Diagnostics)
	}
	if b.Digest != Digest("1 / 0;") {
		t.Errorf("digest not computed from source: %s", b.Digest)
	}
	if !b.StartedAt.Equal(start) {
		t.Errorf("started_at: expected %v, got %v", start, b.StartedAt)
	}
	if got[0].Diagnostics != nil {
		t.Errorf("expected no diagnostics, got %q", got[0].Diagnostics)
	}
}

func TestOpenIsIdempotent(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		s, err := Open(ctx, "sqlite3", dsn)
		if err != nil {
			t.Fatalf("Open #%d: %v", i, err)
		}
		if err := s.Record(ctx, Entry{Name: "x", Source: "nil;"}); err != nil {
			t.Fatalf("Record #%d: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(ctx, "sqlite3", dsn)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	got, err := s.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected both runs to survive reopening, got %d", len(got))
	}
}

func TestOpenUnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "")
	if !errors.Is(err, ErrUnsupportedDriver) {
		t.Fatalf("expected ErrUnsupportedDriver, got %v", err)
	}
}

func TestRebindDollar(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"SELECT 1", "SELECT 1"},
		{"LIMIT ?", "LIMIT $1"},
		{"VALUES (?, ?, ?)", "VALUES ($1, $2, $3)"},
	}
	for _, tt := range tests {
		if got := rebindDollar(tt.input); got != tt.expected {
			t.Errorf("rebindDollar(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestDigest(t *testing.T) {
	// sha256("")
	const empty = "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := Digest(""); got != empty {
		t.Fatalf("Digest(\"\") = %s", got)
	}
	if Digest("a") == Digest("b") {
		t.Fatalf("distinct sources share a digest")
	}
}
