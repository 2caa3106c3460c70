package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"article-sync/internal/observability"
	"article-sync/internal/storage"
)

type Repository struct {
	db             *sql.DB
	commandTimeout time.Duration
	logger         *observability.Logger
}

func NewRepository(dsn string, commandTimeout time.Duration, logger *observability.Logger) (*Repository, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewRepositoryFromDB(db, commandTimeout, logger), nil
}

// NewRepositoryFromDB wraps an already opened handle.
func NewRepositoryFromDB(db *sql.DB, commandTimeout time.Duration, logger *observability.Logger) *Repository {
	return &Repository{
		db:             db,
		commandTimeout: commandTimeout,
		logger:         logger,
	}
}

func (r *Repository) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	query := `
		CREATE TABLE IF NOT EXISTS sync_runs (
			id           BIGSERIAL PRIMARY KEY,
			run_id       UUID NOT NULL,
			started_at   TIMESTAMPTZ NOT NULL,
			finished_at  TIMESTAMPTZ NOT NULL,
			source_host  TEXT NOT NULL,
			bytes_read   INTEGER NOT NULL,
			rows_parsed  INTEGER NOT NULL,
			retained     INTEGER NOT NULL,
			published    INTEGER NOT NULL,
			outcome      TEXT NOT NULL,
			checksum     CHAR(64) NOT NULL,
			error_text   TEXT,
			artifact_uri TEXT
		)
	`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

func (r *Repository) RecordRun(ctx context.Context, run *storage.SyncRun) error {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	query := `
		INSERT INTO sync_runs
			(run_id, started_at, finished_at, source_host, bytes_read, rows_parsed,
			 retained, published, outcome, checksum, error_text, artifact_uri)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.db.ExecContext(ctx, query,
		run.RunID,
		run.StartedAt,
		run.FinishedAt,
		run.SourceHost,
		run.BytesRead,
		run.RowsParsed,
		run.Retained,
		run.Published,
		run.Outcome,
		run.Checksum,
		nullString(run.ErrorText),
		nullString(run.ArtifactURI),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

func (r *Repository) LastPublishedRun(ctx context.Context) (*storage.SyncRun, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	query := `
		SELECT run_id::text, started_at, finished_at, source_host, bytes_read, rows_parsed,
			retained, published, outcome, checksum, error_text, artifact_uri
		FROM sync_runs
		WHERE outcome = $1
		ORDER BY finished_at DESC
		LIMIT 1
	`

	var (
		run         storage.SyncRun
		errorText   sql.NullString
		artifactURI sql.NullString
	)
	err := r.db.QueryRowContext(ctx, query, storage.OutcomePublished).Scan(
		&run.RunID, &run.StartedAt, &run.FinishedAt, &run.SourceHost, &run.BytesRead,
		&run.RowsParsed, &run.Retained, &run.Published, &run.Outcome, &run.Checksum,
		&errorText, &artifactURI,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrNoRuns
		}
		return nil, fmt.Errorf("failed to query database: %w", err)
	}
	run.ErrorText = errorText.String
	run.ArtifactURI = artifactURI.String

	return &run, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
