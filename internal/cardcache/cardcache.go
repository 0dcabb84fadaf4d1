// Package cardcache persists resolved card metadata in a local SQLite
// database so lookups survive restarts.
package cardcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/arenalog/arenalog-go/internal/resolve"
)

// Store is a resolve.Store backed by SQLite.
type Store struct {
	db *sql.DB
}

var _ resolve.Store = (*Store)(nil)

// Open opens (creating if needed) the cache database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open card cache: %w", err)
	}
	// Serialize writers; workers share this handle.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// init creates the schema
func (s *Store) init() error {
	schema := `
		CREATE TABLE IF NOT EXISTS cards (
			key INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			mana_cost TEXT NOT NULL DEFAULT '',
			type_line TEXT NOT NULL DEFAULT '',
			oracle_text TEXT NOT NULL DEFAULT '',
			updated_at TEXT NOT NULL
		);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create card cache schema: %w", err)
	}
	return nil
}

// Get returns the cached card for key, or resolve.ErrNotFound.
func (s *Store) Get(ctx context.Context, key int) (resolve.Card, error) {
	c := resolve.Card{Key: key}
	err := s.db.QueryRowContext(ctx,
		`SELECT name, mana_cost, type_line, oracle_text FROM cards WHERE key = ?`, key,
	).Scan(&c.Name, &c.ManaCost, &c.TypeLine, &c.OracleText)
	if errors.Is(err, sql.ErrNoRows) {
		return resolve.Card{}, resolve.ErrNotFound
	}
	if err != nil {
		return resolve.Card{}, fmt.Errorf("reading card %d: %w", key, err)
	}
	return c, nil
}

// Put inserts or replaces the cached entry for c.Key.
func (s *Store) Put(ctx context.Context, c resolve.Card) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO cards (key, name, mana_cost, type_line, oracle_text, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			name = excluded.name,
			mana_cost = excluded.mana_cost,
			type_line = excluded.type_line,
			oracle_text = excluded.oracle_text,
			updated_at = excluded.updated_at`,
		c.Key, c.Name, c.ManaCost, c.TypeLine, c.OracleText, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("writing card %d: %w", c.Key, err)
	}
	return nil
}

// Count returns the number of cached cards.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cards`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting cards: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
