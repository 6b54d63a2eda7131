// Package journal records each program run in a SQL database.
//
// The store speaks to SQLite, MySQL and PostgreSQL through database/sql. Only
// the table definition and the placeholder syntax differ between them.
package journal

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

var ErrUnsupportedDriver = errors.New("unsupported journal driver")

type dialect struct {
	idColumn     string
	textType     string
	dollarParams bool
}

var dialects = map[string]dialect{
	"sqlite3":  {idColumn: "id INTEGER PRIMARY KEY AUTOINCREMENT", textType: "TEXT"},
	"mysql":    {idColumn: "id BIGINT AUTO_INCREMENT PRIMARY KEY", textType: "LONGTEXT"},
	"postgres": {idColumn: "id BIGSERIAL PRIMARY KEY", textType: "TEXT", dollarParams: true},
}

// Entry is one recorded run.
type Entry struct {
	ID          int64
	Name        string
	Source      string
	Digest      string
	StartedAt   time.Time
	Duration    time.Duration
	ExitCode    int
	Diagnostics []string
}

type Store struct {
	db      *sql.DB
	driver  string
	dialect dialect
}

// Open connects with the named driver, checks the connection and creates the
// runs table when it does not exist yet.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s journal: %w", driver, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s journal: %w", driver, err)
	}

	s := &Store{db: db, driver: driver, dialect: d}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}

	slog.Debug("journal opened", slog.String("driver", driver))
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS runs (
	%s,
	name %s NOT NULL,
	source %s NOT NULL,
	digest VARCHAR(64) NOT NULL,
	started_at BIGINT NOT NULL,
	duration_ms BIGINT NOT NULL,
	exit_code INTEGER NOT NULL,
	diagnostics %s NOT NULL
)`, s.dialect.idColumn, s.dialect.textType, s.dialect.textType, s.dialect.textType)

	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create runs table: %w", err)
	}
	return nil
}

// Record inserts e. A missing digest is computed from the source and a zero
// start time becomes now.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.Digest == "" {
		e.Digest = Digest(e.Source)
	}
	if e.StartedAt.IsZero() {
		e.StartedAt = time.Now()
	}

	query := s.rebind(`INSERT INTO runs (name, source, digest, started_at, duration_ms, exit_code, diagnostics)
VALUES (?, ?, ?, ?, ?, ?, ?)`)

	_, err := s.db.ExecContext(ctx, query,
		e.Name,
		e.Source,
		e.Digest,
		e.StartedAt.UnixMilli(),
		e.Duration.Milliseconds(),
		e.ExitCode,
		strings.Join(e.Diagnostics, "\n"),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// Recent returns up to n entries, newest first.
func (s *Store) Recent(ctx context.Context, n int) ([]Entry, error) {
	query := s.rebind(`SELECT id, name, source, digest, started_at, duration_ms, exit_code, diagnostics
FROM runs ORDER BY id DESC LIMIT ?`)

	rows, err := s.db.QueryContext(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e           Entry
			startedAt   int64
			durationMs  int64
			diagnostics string
		)
		if err := rows.Scan(&e.ID, &e.Name, &e.Source, &e.Digest, &startedAt, &durationMs, &e.ExitCode, &diagnostics); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		e.StartedAt = time.UnixMilli(startedAt)
		e.Duration = time.Duration(durationMs) * time.Millisecond
		if diagnostics != "" {
			e.Diagnostics = strings.Split(diagnostics, "\n")
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return entries, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders as $1, $2, ... for drivers that need it.
func (s *Store) rebind(query string) string {
	if !s.dialect.dollarParams {
		return query
	}
	return rebindDollar(query)
}

func rebindDollar(query string) string {
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

// Digest is the hex SHA-256 of source.
func Digest(source string) string {
	sum := sha256.Sum256([]byte(source))
	return hex.EncodeToString(sum[:])
}
