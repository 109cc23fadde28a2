// Package postgres persists the model catalog to Postgres through the pgx
// database/sql driver.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"fluxcore/internal/infra/persistence/memory"
	"fluxcore/pkg/domain"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.ModelCatalog = (*Store)(nil)

const (
	defaultDriver = "pgx"
	// DefaultDSN is used when NewStore receives an empty DSN.
	DefaultDSN = "postgres://localhost/fluxcore?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// Store writes accepted entries to the catalog table and serves reads from the
// embedded in-memory catalog.
type Store struct {
	*memory.Store
	db *sql.DB
	mu sync.Mutex
}

// NewStore connects using dsn, ensures the catalog table exists and hydrates
// the in-memory catalog from it.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = DefaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	s := &Store{Store: memory.NewStore(), db: db}
	if err := s.init(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) init(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	ddl := `CREATE TABLE IF NOT EXISTS catalog (
		entry_key TEXT PRIMARY KEY,
		payload JSONB NOT NULL
	)`
	if _, err := s.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure catalog table: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, `SELECT entry_key, payload FROM catalog`)
	if err != nil {
		return fmt.Errorf("select catalog: %w", err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var e memory.Entry
		if err := rows.Scan(&e.Key, &e.Payload); err != nil {
			return fmt.Errorf("scan catalog: %w", err)
		}
		if err := s.Apply(e); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate catalog: %w", err)
	}
	return nil
}

func (s *Store) persist(ctx context.Context, prepare func() (memory.Entry, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, err := prepare()
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO catalog(entry_key, payload) VALUES($1, $2) ON CONFLICT(entry_key) DO UPDATE SET payload=EXCLUDED.payload`,
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

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying sql.DB for integration testing hooks.
func (s *Store) DB() *sql.DB { return s.db }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}
