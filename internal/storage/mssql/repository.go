package mssql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/microsoft/go-mssqldb"

	"article-sync/internal/observability"
	"article-sync/internal/storage"
)

type Repository struct {
	db             *sql.DB
	commandTimeout time.Duration
	logger         *observability.Logger
}

func NewRepository(dsn string, commandTimeout time.Duration, logger *observability.Logger) (*Repository, error) {
	db, err := sql.Open("sqlserver", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Тестируем соединение
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

// EnsureSchema создаёт TblSyncRuns при первом запуске
func (r *Repository) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	query := `
		IF OBJECT_ID(N'dbo.TblSyncRuns', N'U') IS NULL
		CREATE TABLE dbo.TblSyncRuns (
			[UID]         INT IDENTITY(1,1) PRIMARY KEY,
			[RunID]       UNIQUEIDENTIFIER NOT NULL,
			[StartedAt]   DATETIME2 NOT NULL,
			[FinishedAt]  DATETIME2 NOT NULL,
			[SourceHost]  NVARCHAR(255) NOT NULL,
			[BytesRead]   INT NOT NULL,
			[RowsParsed]  INT NOT NULL,
			[Retained]    INT NOT NULL,
			[Published]   INT NOT NULL,
			[Outcome]     NVARCHAR(32) NOT NULL,
			[CheckSum]    CHAR(64) NOT NULL,
			[ErrorText]   NVARCHAR(MAX) NULL,
			[ArtifactURI] NVARCHAR(1024) NULL
		);
	`
	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to ensure schema: %w", err)
	}
	return nil
}

// RecordRun сохраняет итог запуска
func (r *Repository) RecordRun(ctx context.Context, run *storage.SyncRun) error {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	query := `
		INSERT INTO dbo.TblSyncRuns
			([RunID], [StartedAt], [FinishedAt], [SourceHost], [BytesRead], [RowsParsed],
			 [Retained], [Published], [Outcome], [CheckSum], [ErrorText], [ArtifactURI])
		VALUES
			(@RunID, @StartedAt, @FinishedAt, @SourceHost, @BytesRead, @RowsParsed,
			 @Retained, @Published, @Outcome, @CheckSum, @ErrorText, @ArtifactURI);
	`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			r.logger.Error("Failed to close statement", "error", err.Error())
		}
	}()

	_, err = stmt.ExecContext(ctx,
		sql.Named("RunID", run.RunID),
		sql.Named("StartedAt", run.StartedAt),
		sql.Named("FinishedAt", run.FinishedAt),
		sql.Named("SourceHost", run.SourceHost),
		sql.Named("BytesRead", run.BytesRead),
		sql.Named("RowsParsed", run.RowsParsed),
		sql.Named("Retained", run.Retained),
		sql.Named("Published", run.Published),
		sql.Named("Outcome", run.Outcome),
		sql.Named("CheckSum", run.Checksum),
		sql.Named("ErrorText", nullString(run.ErrorText)),
		sql.Named("ArtifactURI", nullString(run.ArtifactURI)),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	return nil
}

// LastPublishedRun возвращает последний запуск с записью артефакта
func (r *Repository) LastPublishedRun(ctx context.Context) (*storage.SyncRun, error) {
	ctx, cancel := context.WithTimeout(ctx, r.commandTimeout)
	defer cancel()

	query := `
		SELECT TOP 1 CONVERT(NVARCHAR(36), [RunID]), [StartedAt], [FinishedAt], [SourceHost], [BytesRead],
			[RowsParsed], [Retained], [Published], [Outcome], [CheckSum], [ErrorText], [ArtifactURI]
		FROM dbo.TblSyncRuns
		WHERE [Outcome] = @Outcome
		ORDER BY [FinishedAt] DESC
	`

	stmt, err := r.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() {
		if err := stmt.Close(); err != nil {
			r.logger.Error("Failed to close statement", "error", err.Error())
		}
	}()

	var (
		run         storage.SyncRun
		errorText   sql.NullString
		artifactURI sql.NullString
	)
	err = stmt.QueryRowContext(ctx, sql.Named("Outcome", storage.OutcomePublished)).Scan(
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

// Close закрывает соединение с БД
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
