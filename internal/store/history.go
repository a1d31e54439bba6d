package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when no entry has the requested trace ID.
var ErrNotFound = errors.New("translation not found")

// Entry is one recorded translation.
type Entry struct {
	Seq         int64     `json:"seq"`
	TraceID     string    `json:"trace_id"`
	Query       string    `json:"query"`
	SQL         string    `json:"sql"`
	Dialect     string    `json:"dialect"`
	Fingerprint string    `json:"schema_fingerprint"`
	Cached      bool      `json:"cached"`
	CreatedAt   time.Time `json:"created_at"`
}

// Record appends e to the history. Seq is assigned by the database and
// ignored on input. A second entry with the same trace ID is silently
// ignored.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.TraceID == "" {
		return fmt.Errorf("record translation: trace ID is required")
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO translations
		(trace_id, query, sql, dialect, schema_fingerprint, cached, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(trace_id) DO NOTHING
	`,
		e.TraceID,
		e.Query,
		e.SQL,
		e.Dialect,
		e.Fingerprint,
		boolToInt(e.Cached),
		e.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("record translation: %w", err)
	}
	return nil
}

// Get returns the entry recorded under traceID, or ErrNotFound.
func (s *Store) Get(ctx context.Context, traceID string) (Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT seq, trace_id, query, sql, dialect, schema_fingerprint, cached, created_at
		FROM translations
		WHERE trace_id = ?
	`, traceID)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, traceID)
	}
	return e, err
}

// Recent returns up to limit entries, newest first. A non-empty fingerprint
// restricts the listing to translations against that schema.
//
// Returns an empty slice (not nil) when there are no entries.
func (s *Store) Recent(ctx context.Context, limit int, fingerprint string) ([]Entry, error) {
	if limit <= 0 {
		return []Entry{}, nil
	}

	query := `
		SELECT seq, trace_id, query, sql, dialect, schema_fingerprint, cached, created_at
		FROM translations
	`
	args := []any{}
	if fingerprint != "" {
		query += " WHERE schema_fingerprint = ?"
		args = append(args, fingerprint)
	}
	query += " ORDER BY seq DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query translations: %w", err)
	}
	defer rows.Close()

	entries := []Entry{}
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate translations: %w", err)
	}
	return entries, nil
}

// Count returns the number of recorded translations.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM translations").Scan(&n); err != nil {
		return 0, fmt.Errorf("count translations: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (Entry, error) {
	var (
		e         Entry
		cached    int
		createdAt string
	)
	if err := row.Scan(&e.Seq, &e.TraceID, &e.Query, &e.SQL, &e.Dialect, &e.Fingerprint, &cached, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scan translation: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Entry{}, fmt.Errorf("scan translation %s: created_at: %w", e.TraceID, err)
	}
	e.Cached = cached == 1
	e.CreatedAt = t
	return e, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
