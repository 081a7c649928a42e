// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package linkcache persists resolved candidate links in SQLite so that a
// paper title resolved once is never sent to the search index again, across
// conferences and runs.
package linkcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/paper-downloader/pkg/types"
)

// Store is a title-keyed cache of candidate links.
type Store struct {
	db *sql.DB
}

// NewStore opens or creates the cache database at path.
func NewStore(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS links (
		title TEXT PRIMARY KEY,
		links TEXT NOT NULL,
		resolved_at TEXT NOT NULL
	)`)
	return err
}

// Get returns the cached links for title. ok is false when the title has
// never been stored.
func (s *Store) Get(ctx context.Context, title string) (links []types.Candidate, ok bool, err error) {
	var raw string
	err = s.db.QueryRowContext(ctx, `SELECT links FROM links WHERE title = ?`, title).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("reading links for %q: %w", title, err)
	}
	if err := json.Unmarshal([]byte(raw), &links); err != nil {
		return nil, false, fmt.Errorf("decoding links for %q: %w", title, err)
	}
	if links == nil {
		links = []types.Candidate{}
	}
	return links, true, nil
}

// Put stores links for title, replacing any previous entry.
func (s *Store) Put(ctx context.Context, title string, links []types.Candidate) error {
	if links == nil {
		links = []types.Candidate{}
	}
	data, err := json.Marshal(links)
	if err != nil {
		return fmt.Errorf("encoding links: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO links (title, links, resolved_at) VALUES (?, ?, ?)
		 ON CONFLICT(title) DO UPDATE SET links = excluded.links, resolved_at = excluded.resolved_at`,
		title, string(data), time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("storing links for %q: %w", title, err)
	}
	return nil
}

// Len returns the number of cached titles.
func (s *Store) Len(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM links`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting links: %w", err)
	}
	return n, nil
}
