// Package bundle persists transformed scripts in a single SQLite file, so
// scripts can be transformed where the sources live and pushed to Redis from
// somewhere else, later. The bundle carries everything registration needs:
// qualified name, content hash, and the transformed source.
package bundle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/luacall/luacall/internal/config"
	"github.com/luacall/luacall/pkg/luacall"
)

const schema = `
CREATE TABLE IF NOT EXISTS scripts (
	name       TEXT PRIMARY KEY,
	sha        TEXT NOT NULL,
	source     TEXT NOT NULL,
	raw        TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL
);`

// Entry is one bundled script. Name is the qualified registry name.
type Entry struct {
	Name      string
	Sha       string
	Source    string
	Raw       string
	UpdatedAt time.Time
}

// Handle returns the registry value for the entry.
func (e Entry) Handle() string {
	return config.HandlePrefix + e.Sha
}

// Store is an open bundle file.
type Store struct {
	db *sql.DB
}

// Open opens or creates a bundle at the given path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening bundle: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("preparing bundle schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Put upserts a transformed script. Last writer wins, like the registry.
func (s *Store) Put(sc *luacall.Script) error {
	_, err := s.db.Exec(`
INSERT INTO scripts (name, sha, source, raw, updated_at) VALUES (?, ?, ?, ?, ?)
ON CONFLICT(name) DO UPDATE SET
	sha = excluded.sha,
	source = excluded.source,
	raw = excluded.raw,
	updated_at = excluded.updated_at`,
		sc.Qualified(), sc.Sha, sc.Source, sc.Raw,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("storing %s: %w", sc.Qualified(), err)
	}
	return nil
}

// PutAll bundles every script of a library.
func (s *Store) PutAll(lib *luacall.Library) (int, error) {
	n := 0
	for _, sc := range lib.Scripts() {
		if err := s.Put(sc); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Get fetches one entry by qualified name.
func (s *Store) Get(name string) (Entry, bool, error) {
	var e Entry
	var updated string
	err := s.db.QueryRow(
		`SELECT name, sha, source, raw, updated_at FROM scripts WHERE name = ?`, name).
		Scan(&e.Name, &e.Sha, &e.Source, &e.Raw, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("reading %s: %w", name, err)
	}
	e.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	return e, true, nil
}

// List returns every entry, ordered by name.
func (s *Store) List() ([]Entry, error) {
	rows, err := s.db.Query(
		`SELECT name, sha, source, raw, updated_at FROM scripts ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing bundle: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var updated string
		if err := rows.Scan(&e.Name, &e.Sha, &e.Source, &e.Raw, &updated); err != nil {
			return nil, fmt.Errorf("scanning bundle row: %w", err)
		}
		e.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Push loads every bundled script into the host and registers it, returning
// how many were pushed.
func (s *Store) Push(ctx context.Context, host luacall.Host) (int, error) {
	entries, err := s.List()
	if err != nil {
		return 0, err
	}
	pushed := 0
	for _, e := range entries {
		if _, err := host.ScriptLoad(ctx, e.Source); err != nil {
			return pushed, fmt.Errorf("loading %s: %w", e.Name, err)
		}
		if err := host.HSet(ctx, config.RegistryKey, e.Name, e.Handle()); err != nil {
			return pushed, fmt.Errorf("registering %s: %w", e.Name, err)
		}
		pushed++
	}
	return pushed, nil
}
