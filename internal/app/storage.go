package app

import (
	"context"
	"fmt"

	"article-sync/internal/config"
	"article-sync/internal/observability"
	"article-sync/internal/storage"
	"article-sync/internal/storage/mssql"
	"article-sync/internal/storage/postgres"
)

// OpenRepository connects to the run audit store named by storage.driver.
// It returns nil without error when auditing is disabled.
func OpenRepository(ctx context.Context, cfg *config.Config, logger *observability.Logger) (storage.Repository, error) {
	var (
		repo storage.Repository
		err  error
	)

	switch cfg.Storage.Driver {
	case "":
		return nil, nil
	case "mssql":
		logger.Info("Creating SQL Server audit repository")
		repo, err = mssql.NewRepository(cfg.Storage.DSN, cfg.GetCommandTimeout(), logger)
	case "postgres":
		logger.Info("Creating PostgreSQL audit repository")
		repo, err = postgres.NewRepository(cfg.Storage.DSN, cfg.GetCommandTimeout(), logger)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s repository: %w", cfg.Storage.Driver, err)
	}

	if err := repo.EnsureSchema(ctx); err != nil {
		_ = repo.Close()
		return nil, err
	}
	return repo, nil
}
