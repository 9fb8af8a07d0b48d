// Package repository selects and constructs the storage backend.
package repository

import (
	"context"
	"fmt"
	"log/slog"

	"promptvault/internal/config"
	"promptvault/internal/domain/repositories"
	"promptvault/internal/repository/file"
	"promptvault/internal/repository/memory"
	"promptvault/internal/repository/postgres"
)

// NewStore builds the backend named by cfg.Backend. The caller owns the
// returned store and must Close it on shutdown.
func NewStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (repositories.ItemStore, error) {
	switch cfg.Backend {
	case "memory":
		return memory.New(logger), nil

	case "file":
		store, err := file.Open(cfg.StorePath, logger)
		if err != nil {
			return nil, fmt.Errorf("open file store: %w", err)
		}
		return store, nil

	case "postgres":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("postgres backend requires DATABASE_URL")
		}
		pool, err := postgres.CreateConnectionPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("create connection pool: %w", err)
		}
		store := postgres.NewStore(&postgres.StoreConfig{
			Pool:   pool,
			Tables: postgres.NewTableNames(cfg.TablePrefix),
			Logger: logger,
		})
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unknown backend %q (want memory, file, or postgres)", cfg.Backend)
	}
}
