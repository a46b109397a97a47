package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"rollsink/internal/logging"
)

// Entry is one journaled lifecycle event.
type Entry struct {
	ID      int64
	At      time.Time
	Session string
	Kind    string
	Path    string
	Detail  string
}

// Store manages the SQLite-backed event journal.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the journal at path.
func Open(path string) (*Store, error) {
	if err := logging.EnsureDir(path); err != nil {
		return nil, fmt.Errorf("ensure journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open history db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path reports the on-disk location of the journal.
func (s *Store) Path() string {
	return s.path
}

// Append records an entry. The caller's timestamp is used when set so
// journaled times match the event, not the insert.
func (s *Store) Append(ctx context.Context, entry Entry) error {
	at := entry.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO events (at, session, kind, path, detail) VALUES (?, ?, ?, ?, ?)",
		at.UTC().Format(time.RFC3339Nano),
		entry.Session,
		entry.Kind,
		entry.Path,
		entry.Detail,
	)
	if err != nil {
		return fmt.Errorf("append history entry: %w", err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, at, session, kind, path, detail FROM events ORDER BY id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var at string
		if err := rows.Scan(&entry.ID, &at, &entry.Session, &entry.Kind, &entry.Path, &entry.Detail); err != nil {
			return entries, fmt.Errorf("scan history entry: %w", err)
		}
		if parsed, parseErr := time.Parse(time.RFC3339Nano, at); parseErr == nil {
			entry.At = parsed
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return entries, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

// Prune removes entries older than the cutoff and reports how many were
// deleted.
func (s *Store) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM events WHERE at <= ?",
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count pruned history rows: %w", err)
	}
	return removed, nil
}
