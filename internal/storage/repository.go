package storage

import (
	"context"
	"errors"
	"time"
)

// OutcomePublished marks runs that replaced the artifact.
const OutcomePublished = "published"

// ErrNoRuns is returned when the audit table holds no matching run.
var ErrNoRuns = errors.New("no recorded runs")

// SyncRun представляет один запуск синхронизации для журнала аудита.
type SyncRun struct {
	RunID       string
	StartedAt   time.Time
	FinishedAt  time.Time
	SourceHost  string
	BytesRead   int
	RowsParsed  int
	Retained    int
	Published   int
	Outcome     string
	Checksum    string // SHA256 опубликованного набора (64 символа)
	ErrorText   string
	ArtifactURI string
}

// Repository интерфейс для журнала запусков
type Repository interface {
	// EnsureSchema создаёт таблицу журнала, если её нет
	EnsureSchema(ctx context.Context) error

	// RecordRun сохраняет итог запуска
	RecordRun(ctx context.Context, run *SyncRun) error

	// LastPublishedRun возвращает последний запуск, который записал артефакт
	LastPublishedRun(ctx context.Context) (*SyncRun, error)

	Close() error
}
