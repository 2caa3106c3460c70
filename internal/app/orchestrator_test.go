package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"article-sync/internal/config"
	"article-sync/internal/fetcher"
	"article-sync/internal/observability"
	"article-sync/internal/sheet"
	"article-sync/internal/storage"
)

const exampleSheet = "Title,Status,First Paragraph,Second Paragraph\n" +
	"Hello,Published,Para A,Para B\n" +
	"Draft one,draft,x,y\n" +
	",published,no title,dropped\n"

var fixedTime = time.Date(2025, 10, 18, 9, 30, 0, 0, time.UTC)

type fakeRepository struct {
	mu        sync.Mutex
	runs      []*storage.SyncRun
	recordErr error
	last      *storage.SyncRun
	lastCalls int
}

func (f *fakeRepository) EnsureSchema(ctx context.Context) error { return nil }

func (f *fakeRepository) RecordRun(ctx context.Context, run *storage.SyncRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, run)
	return f.recordErr
}

func (f *fakeRepository) LastPublishedRun(ctx context.Context) (*storage.SyncRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastCalls++
	if f.last == nil {
		return nil, storage.ErrNoRuns
	}
	return f.last, nil
}

func (f *fakeRepository) Close() error { return nil }

func serveSheet(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestConfig(t *testing.T, sourceURL string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Source.URL = sourceURL
	cfg.HTTP.TotalTimeoutMS = 5000
	cfg.Publish.OutputPath = filepath.Join(dir, "articles.json")
	return cfg
}

func newTestOrchestrator(cfg *config.Config, repo storage.Repository, console *bytes.Buffer) *Orchestrator {
	var c *observability.Console
	if console != nil {
		c = observability.NewConsole(console)
	}
	o := NewOrchestrator(cfg, observability.NewNopLogger(), c, nil, repo)
	o.newID = func() string { return "00000000-0000-0000-0000-000000000001" }
	return o.WithClock(func() time.Time { return fixedTime })
}

func TestRunPublishesExample(t *testing.T) {
	srv := serveSheet(t, http.StatusOK, exampleSheet)
	cfg := newTestConfig(t, srv.URL)
	cfg.Observability.MetricsPath = filepath.Join(t.TempDir(), "article_sync.prom")
	repo := &fakeRepository{}
	var out bytes.Buffer

	summary, err := newTestOrchestrator(cfg, repo, &out).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "published", summary.Outcome)
	assert.Equal(t, 3, summary.RowsParsed)
	assert.Equal(t, 2, summary.Retained)
	assert.Equal(t, 1, summary.Published)
	assert.Equal(t, len(exampleSheet), summary.BytesFetched)
	assert.Len(t, summary.Checksum, 64)
	assert.Equal(t, cfg.Publish.OutputPath, summary.Output)

	data, err := os.ReadFile(cfg.Publish.OutputPath)
	require.NoError(t, err)
	var articles []map[string]string
	require.NoError(t, json.Unmarshal(data, &articles))
	require.Len(t, articles, 1)
	assert.Equal(t, map[string]string{
		"Title":            "Hello",
		"Status":           "Published",
		"First Paragraph":  "Para A",
		"Second Paragraph": "Para B",
		"content":          "Para A\n\nPara B",
		"id":               "1",
		"last_updated":     "2025-10-18T09:30:00.000Z",
	}, articles[0])

	assert.Contains(t, out.String(), "Wrote 1 published articles")

	metrics, err := os.ReadFile(cfg.Observability.MetricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "article_sync_last_run_success 1")
	assert.Contains(t, string(metrics), "article_sync_records_published 1")

	require.Len(t, repo.runs, 1)
	run := repo.runs[0]
	assert.Equal(t, "00000000-0000-0000-0000-000000000001", run.RunID)
	assert.Equal(t, storage.OutcomePublished, run.Outcome)
	assert.Equal(t, summary.Checksum, run.Checksum)
	assert.Equal(t, cfg.Publish.OutputPath, run.ArtifactURI)
	assert.Empty(t, run.ErrorText)
}

func TestRunFetchFailureKeepsArtifact(t *testing.T) {
	srv := serveSheet(t, http.StatusNotFound, "not found")
	cfg := newTestConfig(t, srv.URL)
	previous := []byte("[{\"Title\":\"Live\"}]\n")
	require.NoError(t, os.WriteFile(cfg.Publish.OutputPath, previous, 0o644))
	repo := &fakeRepository{}

	summary, err := newTestOrchestrator(cfg, repo, nil).Run(context.Background())
	require.Error(t, err)

	var fetchErr *fetcher.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
	assert.Equal(t, OutcomeFailed, summary.Outcome)

	data, err := os.ReadFile(cfg.Publish.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, previous, data)

	require.Len(t, repo.runs, 1)
	assert.Equal(t, OutcomeFailed, repo.runs[0].Outcome)
	assert.Contains(t, repo.runs[0].ErrorText, "404")
}

func TestRunParseFailure(t *testing.T) {
	srv := serveSheet(t, http.StatusOK, "")
	cfg := newTestConfig(t, srv.URL)

	summary, err := newTestOrchestrator(cfg, nil, nil).Run(context.Background())
	var parseErr *sheet.ParseError
	require.ErrorAs(t, err, &parseErr)
	assert.ErrorIs(t, err, sheet.ErrNoHeader)
	assert.Equal(t, OutcomeFailed, summary.Outcome)

	_, statErr := os.Stat(cfg.Publish.OutputPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunKeepsRowsWithStrayQuotes(t *testing.T) {
	srv := serveSheet(t, http.StatusOK, "Title,Status\n"+
		"Good article,published\n"+
		"5\" ribeye guide,published\n"+
		"Another,published\n")
	cfg := newTestConfig(t, srv.URL)

	summary, err := newTestOrchestrator(cfg, nil, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "published", summary.Outcome)
	assert.Equal(t, 3, summary.Published)

	data, err := os.ReadFile(cfg.Publish.OutputPath)
	require.NoError(t, err)
	var articles []map[string]string
	require.NoError(t, json.Unmarshal(data, &articles))
	require.Len(t, articles, 3)
	assert.Equal(t, "5\" ribeye guide", articles[1]["Title"])
	assert.Equal(t, "2", articles[1]["id"])
}

func TestRunGuard(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "header only", body: "Title,Status,First Paragraph,Second Paragraph\n"},
		{name: "only drafts", body: "Title,Status\nA,draft\nB,Draft\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := serveSheet(t, http.StatusOK, tt.body)
			cfg := newTestConfig(t, srv.URL)
			previous := []byte("[{\"Title\":\"Live\"}]\n")
			require.NoError(t, os.WriteFile(cfg.Publish.OutputPath, previous, 0o644))

			repo := &fakeRepository{last: &storage.SyncRun{
				FinishedAt: fixedTime.Add(-time.Hour),
				Published:  4,
			}}
			var out bytes.Buffer

			summary, err := newTestOrchestrator(cfg, repo, &out).Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, "guarded", summary.Outcome)
			assert.Zero(t, summary.Published)
			assert.Empty(t, summary.Output)

			data, err := os.ReadFile(cfg.Publish.OutputPath)
			require.NoError(t, err)
			assert.Equal(t, previous, data)

			assert.Equal(t, 1, repo.lastCalls)
			assert.Contains(t, out.String(), "left untouched")
			assert.Contains(t, out.String(), "Last successful publish")
		})
	}
}

func TestRunIdempotent(t *testing.T) {
	srv := serveSheet(t, http.StatusOK, exampleSheet)
	cfg := newTestConfig(t, srv.URL)
	o := newTestOrchestrator(cfg, nil, nil)

	first, err := o.Run(context.Background())
	require.NoError(t, err)
	firstData, err := os.ReadFile(cfg.Publish.OutputPath)
	require.NoError(t, err)

	second, err := o.Run(context.Background())
	require.NoError(t, err)
	secondData, err := os.ReadFile(cfg.Publish.OutputPath)
	require.NoError(t, err)

	assert.Equal(t, firstData, secondData)
	assert.Equal(t, first.Checksum, second.Checksum)

	later, err := o.WithClock(func() time.Time { return fixedTime.Add(24 * time.Hour) }).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first.Checksum, later.Checksum)
}

func TestRunDryRun(t *testing.T) {
	srv := serveSheet(t, http.StatusOK, exampleSheet)
	cfg := newTestConfig(t, srv.URL)
	cfg.Publish.DryRun = true

	summary, err := newTestOrchestrator(cfg, nil, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "dry_run", summary.Outcome)
	assert.Equal(t, 1, summary.Published)

	_, statErr := os.Stat(cfg.Publish.OutputPath)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunAuditFailureIsNotFatal(t *testing.T) {
	srv := serveSheet(t, http.StatusOK, exampleSheet)
	cfg := newTestConfig(t, srv.URL)
	repo := &fakeRepository{recordErr: errors.New("database is down")}

	summary, err := newTestOrchestrator(cfg, repo, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "published", summary.Outcome)
	assert.Len(t, repo.runs, 1)
}

func TestRunCanceledContext(t *testing.T) {
	srv := serveSheet(t, http.StatusOK, exampleSheet)
	cfg := newTestConfig(t, srv.URL)
	repo := &fakeRepository{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestOrchestrator(cfg, repo, nil).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, repo.runs, 1, "the audit row is written after cancellation")
}

func TestOpenRepositoryDisabled(t *testing.T) {
	repo, err := OpenRepository(context.Background(), config.Default(), observability.NewNopLogger())
	require.NoError(t, err)
	assert.Nil(t, repo)
}

func TestOpenRepositoryUnknownDriver(t *testing.T) {
	cfg := config.Default()
	cfg.Storage.Driver = "sqlite"
	_, err := OpenRepository(context.Background(), cfg, observability.NewNopLogger())
	assert.Error(t, err)
}

func TestGracefulShutdownOnSignal(t *testing.T) {
	ctx, cancel := GracefulShutdown(context.Background(), observability.NewNopLogger())
	defer cancel()

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGTERM))

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context was not canceled by SIGTERM")
	}
}

func TestGracefulShutdownCancel(t *testing.T) {
	ctx, cancel := GracefulShutdown(context.Background(), observability.NewNopLogger())
	cancel()
	<-ctx.Done()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
