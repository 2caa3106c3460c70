package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/google/uuid"

	"article-sync/internal/article"
	"article-sync/internal/config"
	"article-sync/internal/fetcher"
	"article-sync/internal/normalize"
	"article-sync/internal/observability"
	"article-sync/internal/publisher"
	"article-sync/internal/sheet"
	"article-sync/internal/storage"
)

// OutcomeFailed marks a run that stopped on an error.
const OutcomeFailed = "failed"

type Orchestrator struct {
	cfg     *config.Config
	logger  *observability.Logger
	console *observability.Console
	metrics *observability.Metrics
	fetcher *fetcher.Fetcher
	parser  *sheet.Parser
	repo    storage.Repository
	clock   func() time.Time
	newID   func() string
}

// Summary describes a single run.
type Summary struct {
	RunID        string
	StartedAt    time.Time
	FinishedAt   time.Time
	BytesFetched int
	RowsParsed   int
	Retained     int
	Published    int
	Outcome      string
	Checksum     string
	Output       string
}

// NewOrchestrator wires the pipeline stages. repo may be nil when run
// auditing is disabled.
func NewOrchestrator(
	cfg *config.Config,
	logger *observability.Logger,
	console *observability.Console,
	metrics *observability.Metrics,
	repo storage.Repository,
) *Orchestrator {
	if console == nil {
		console = observability.NewConsole(io.Discard)
	}
	if metrics == nil {
		metrics = observability.NewMetrics()
	}
	return &Orchestrator{
		cfg:     cfg,
		logger:  logger,
		console: console,
		metrics: metrics,
		fetcher: fetcher.NewFetcher(cfg, logger),
		parser:  sheet.NewParser(),
		repo:    repo,
		clock:   time.Now,
		newID:   uuid.NewString,
	}
}

// WithClock заменяет источник времени (для тестов и воспроизводимых запусков).
func (o *Orchestrator) WithClock(clock func() time.Time) *Orchestrator {
	o.clock = clock
	return o
}

// Run выполняет один проход fetch → parse → normalize → publish.
// Summary возвращается и при ошибке, с Outcome = failed.
func (o *Orchestrator) Run(ctx context.Context) (summary *Summary, err error) {
	started := o.clock()
	summary = &Summary{
		RunID:     o.newID(),
		StartedAt: started,
		Outcome:   OutcomeFailed,
	}
	logger := o.logger.With("run_id", summary.RunID)
	host := sourceHost(o.cfg.Source.URL)

	defer func() {
		summary.FinishedAt = o.clock()
		o.finish(ctx, logger, summary, host, err)
	}()

	logger.Info("Starting sync",
		"source_host", host,
		"output", o.cfg.Publish.OutputPath,
		"dry_run", o.cfg.Publish.DryRun,
	)
	o.console.Step("Fetching sheet from %s", host)

	// Фетчим таблицу
	resp, err := o.fetcher.Fetch(ctx, o.cfg.Source.URL)
	if err != nil {
		logger.Error("Fetch failed", "source_host", host, "error", err.Error())
		o.console.Fail("Fetch failed: %v", err)
		return summary, err
	}
	summary.BytesFetched = len(resp.Body)
	o.metrics.ObserveFetch(summary.BytesFetched)
	logger.Info("Fetched sheet",
		"status", resp.StatusCode,
		"bytes", summary.BytesFetched,
		"content_type", resp.ContentType,
	)
	o.console.Success("Fetched %d bytes", summary.BytesFetched)

	// Парсим CSV
	table, err := o.parser.Parse(resp.Body)
	if err != nil {
		logger.Error("Parse failed", "error", err.Error())
		o.console.Fail("Parse failed: %v", err)
		return summary, err
	}

	// Один штамп времени на весь запуск
	normalizer := normalize.NewNormalizer(o.cfg.Schema, func() time.Time { return started })
	records, stats := normalizer.Normalize(table)
	summary.RowsParsed = stats.Rows
	summary.Retained = stats.Retained
	o.metrics.ObserveParse(stats.Rows, stats.Retained)
	logger.Info("Parsed sheet",
		"columns", len(table.Header),
		"rows", stats.Rows,
		"retained", stats.Retained,
		"discarded", stats.Discarded,
	)
	o.console.Success("Parsed %d rows, %d articles with a title", stats.Rows, stats.Retained)

	result, err := o.newPublisher().Publish(records)
	if err != nil {
		logger.Error("Publish failed", "output", o.cfg.Publish.OutputPath, "error", err.Error())
		o.console.Fail("Write failed: %v", err)
		return summary, err
	}
	summary.Published = result.Published
	summary.Checksum = result.Checksum
	summary.Outcome = string(result.Outcome)
	summary.Output = result.Output
	o.metrics.ObservePublish(result.Published)

	switch result.Outcome {
	case publisher.OutcomeGuarded:
		o.console.Warn("No published articles found, %s left untouched", o.cfg.Publish.OutputPath)
		o.reportLastPublish(ctx, logger)
	case publisher.OutcomeDryRun:
		o.console.Success("Dry run: %d published articles (%d bytes) not written", result.Published, result.Bytes)
	default:
		o.console.Success("Wrote %d published articles to %s", result.Published, result.Output)
		if result.Index != "" {
			o.console.Success("Index page updated: %s", result.Index)
		}
	}

	return summary, nil
}

func (o *Orchestrator) newPublisher() *publisher.Publisher {
	return publisher.NewPublisher(publisher.Options{
		OutputPath:     o.cfg.Publish.OutputPath,
		IndexPath:      o.cfg.Publish.IndexPath,
		DryRun:         o.cfg.Publish.DryRun,
		PublishedValue: o.cfg.Schema.PublishedValue,
		DefaultAuthor:  o.cfg.Publish.DefaultAuthor,
		SiteTitle:      o.cfg.Publish.SiteTitle,
		Accessor: article.Accessor{
			TitleField:  o.cfg.Schema.TitleField,
			StatusField: o.cfg.Schema.StatusField,
		},
	}, o.logger, o.clock)
}

// finish записывает метрики и журнал аудита. Ошибки здесь не влияют на итог запуска.
func (o *Orchestrator) finish(ctx context.Context, logger *observability.Logger, summary *Summary, host string, runErr error) {
	o.metrics.ObserveRun(summary.Outcome, runErr == nil, summary.StartedAt, summary.FinishedAt)

	if path := o.cfg.Observability.MetricsPath; path != "" {
		if err := o.metrics.WriteTextfile(path); err != nil {
			logger.Warn("Failed to write metrics", "path", path, "error", err.Error())
		}
	}

	if o.repo != nil {
		run := &storage.SyncRun{
			RunID:       summary.RunID,
			StartedAt:   summary.StartedAt.UTC(),
			FinishedAt:  summary.FinishedAt.UTC(),
			SourceHost:  host,
			BytesRead:   summary.BytesFetched,
			RowsParsed:  summary.RowsParsed,
			Retained:    summary.Retained,
			Published:   summary.Published,
			Outcome:     summary.Outcome,
			Checksum:    summary.Checksum,
			ArtifactURI: summary.Output,
		}
		if runErr != nil {
			run.ErrorText = runErr.Error()
		}
		// Аудит пишем даже после отмены context
		if err := o.repo.RecordRun(context.WithoutCancel(ctx), run); err != nil {
			logger.Warn("Failed to record run", "error", err.Error())
		}
	}

	logger.Info("Sync finished",
		"outcome", summary.Outcome,
		"published", summary.Published,
		"checksum", summary.Checksum,
		"duration", summary.FinishedAt.Sub(summary.StartedAt),
	)
}

func (o *Orchestrator) reportLastPublish(ctx context.Context, logger *observability.Logger) {
	if o.repo == nil {
		return
	}
	last, err := o.repo.LastPublishedRun(ctx)
	if err != nil {
		if !errors.Is(err, storage.ErrNoRuns) {
			logger.Warn("Failed to read last published run", "error", err.Error())
		}
		return
	}
	logger.Warn("Artifact is stale",
		"last_published_at", last.FinishedAt.Format(time.RFC3339),
		"last_published", last.Published,
		"last_checksum", last.Checksum,
	)
	o.console.Warn("Last successful publish: %s (%d articles)", last.FinishedAt.Format(time.RFC3339), last.Published)
}

func sourceHost(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "unknown"
	}
	return u.Host
}

func (s *Summary) String() string {
	return fmt.Sprintf("run %s: %s, %d/%d published", s.RunID, s.Outcome, s.Published, s.Retained)
}
