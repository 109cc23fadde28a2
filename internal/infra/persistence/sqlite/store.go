// Package sqlite persists the model catalog to a SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"fluxcore/internal/infra/persistence/memory"
	"fluxcore/pkg/domain"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.ModelCatalog = (*Store)(nil)

// DefaultPath is used when NewStore receives an empty path.
const DefaultPath = "fluxcore.db"

// Store writes every accepted entry through to a single SQLite table and
// serves reads from the embedded in-memory catalog.
type Store struct {
	*memory.Store
	db   *sql.DB
	mu   sync.Mutex
	path string
}

// NewStore opens (or creates) the database at path and hydrates the catalog
// from any existing rows.
func NewStore(ctx context.Context, path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS catalog (
		entry_key TEXT PRIMARY KEY,
		payload BLOB NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create catalog table: %w", err)
	}
	s := &Store{Store: memory.NewStore(), db: db, path: path}
	if err := s.load(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) load(ctx context.Context) error {
	rows, err := s.db.QueryContext(ctx, `SELECT entry_key, payload FROM catalog`)
	if err != nil {
		return fmt.Errorf("select catalog: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var e memory.Entry
		if err := rows.Scan(&e.Key, &e.Payload); err != nil {
			return fmt.Errorf("scan: %w", err)
		}
		if err := s.Apply(e); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *Store) persist(ctx context.Context, prepare func() (memory.Entry, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := prepare()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO catalog(entry_key, payload) VALUES(?, ?) ON CONFLICT(entry_key) DO UPDATE SET payload=excluded.payload`,
		e.Key, e.Payload); err != nil {
		return fmt.Errorf("upsert %s: %w", e.Key, err)
	}
	return s.Apply(e)
}

// SaveModel validates, persists and then caches the model.
func (s *Store) SaveModel(ctx context.Context, model domain.Model) error {
	return s.persist(ctx, func() (memory.Entry, error) { return s.PrepareModel(model) })
}

// SaveSolution persists a named solution for an existing model.
func (s *Store) SaveSolution(ctx context.Context, modelID, name string, sol domain.Solution) error {
	return s.persist(ctx, func() (memory.Entry, error) { return s.PrepareSolution(modelID, name, sol) })
}

// SaveVariability persists a named variability result for an existing model.
func (s *Store) SaveVariability(ctx context.Context, modelID, name string, res domain.VariabilityResult) error {
	return s.persist(ctx, func() (memory.Entry, error) { return s.PrepareVariability(modelID, name, res) })
}

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }
