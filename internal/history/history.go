// Package history records extracted items in a local SQLite database so
// users can revisit what they resolved.
package history

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Entry is one recorded extraction.
type Entry struct {
	Provider  string
	ID        string
	Title     string
	URL       string
	Extracted time.Time
}

// Store wraps the history database.
type Store struct {
	db *sql.DB
}

// Open creates or opens the history database at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening history database: %w", err)
	}

	const schema = `
CREATE TABLE IF NOT EXISTS extractions (
	provider   TEXT NOT NULL,
	id         TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	url        TEXT NOT NULL DEFAULT '',
	extracted  INTEGER NOT NULL,
	PRIMARY KEY (provider, id)
);`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Record inserts or refreshes an entry. Re-extracting an item bumps its
// timestamp instead of duplicating the row.
func (s *Store) Record(e Entry) error {
	when := e.Extracted
	if when.IsZero() {
		when = time.Now()
	}

	_, err := s.db.Exec(`
INSERT INTO extractions (provider, id, title, url, extracted)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (provider, id) DO UPDATE SET
	title = excluded.title,
	url = excluded.url,
	extracted = excluded.extracted`,
		e.Provider, e.ID, e.Title, e.URL, when.Unix())
	if err != nil {
		return fmt.Errorf("recording extraction: %w", err)
	}
	return nil
}

// Recent returns the most recently extracted entries, newest first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.Query(`
SELECT provider, id, title, url, extracted
FROM extractions ORDER BY extracted DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var ts int64
		if err := rows.Scan(&e.Provider, &e.ID, &e.Title, &e.URL, &ts); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		e.Extracted = time.Unix(ts, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Clear removes all entries.
func (s *Store) Clear() error {
	_, err := s.db.Exec(`DELETE FROM extractions`)
	if err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
