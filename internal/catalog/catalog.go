// Package catalog selects a model catalog driver. It is the only package
// besides tests allowed to import internal/infra/persistence.
package catalog

import (
	"context"
	"fmt"

	"fluxcore/internal/infra/persistence/memory"
	"fluxcore/internal/infra/persistence/postgres"
	"fluxcore/internal/infra/persistence/sqlite"
	"fluxcore/pkg/domain"
)

// Driver names a catalog backend.
type Driver string

const (
	DriverMemory   Driver = "memory"
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Config selects and configures a driver. An empty Driver selects memory.
type Config struct {
	Driver      Driver
	SQLitePath  string
	PostgresDSN string
}

// Open returns the catalog described by cfg.
func Open(ctx context.Context, cfg Config) (domain.ModelCatalog, error) {
	switch cfg.Driver {
	case "", DriverMemory:
		return memory.NewStore(), nil
	case DriverSQLite:
		return sqlite.NewStore(ctx, cfg.SQLitePath)
	case DriverPostgres:
		return postgres.NewStore(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown catalog driver %q", cfg.Driver)
	}
}

// NewMemory returns an empty in-memory catalog.
func NewMemory() domain.ModelCatalog { return memory.NewStore() }
