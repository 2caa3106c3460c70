package publisher

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"article-sync/internal/article"
	"article-sync/internal/checksum"
	"article-sync/internal/observability"
)

type Outcome string

const (
	// OutcomePublished: the artifact was replaced.
	OutcomePublished Outcome = "published"
	// OutcomeGuarded: nothing was published, the artifact was left untouched.
	OutcomeGuarded Outcome = "guarded"
	// OutcomeDryRun: the artifact was built but not written.
	OutcomeDryRun Outcome = "dry_run"
)

const artifactPerm = 0o644

type Options struct {
	OutputPath     string
	IndexPath      string
	DryRun         bool
	PublishedValue string
	DefaultAuthor  string
	SiteTitle      string
	Accessor       article.Accessor
}

type Result struct {
	Outcome   Outcome
	Total     int
	Published int
	Checksum  string
	Bytes     int
	Output    string
	Index     string
}

type Publisher struct {
	opts     Options
	logger   *observability.Logger
	checksum *checksum.Generator
	clock    func() time.Time
}

func NewPublisher(opts Options, logger *observability.Logger, clock func() time.Time) *Publisher {
	if clock == nil {
		clock = time.Now
	}
	return &Publisher{
		opts:     opts,
		logger:   logger,
		checksum: checksum.NewGenerator(),
		clock:    clock,
	}
}

// Publish filters records, then either writes the published set or, when it
// is empty, leaves every existing output file alone. Everything is rendered
// in memory before the first write.
func (p *Publisher) Publish(records []*article.Record) (*Result, error) {
	published := Filter(records, p.opts.Accessor, p.opts.PublishedValue)

	result := &Result{
		Total:     len(records),
		Published: len(published),
		Checksum:  p.checksum.GenerateSetHash(published),
	}

	if len(published) == 0 {
		result.Outcome = OutcomeGuarded
		p.logger.Warn("No published records, keeping existing artifact",
			"total_records", len(records),
			"output", p.opts.OutputPath,
		)
		return result, nil
	}

	data, err := MarshalArtifact(published)
	if err != nil {
		return nil, err
	}
	result.Bytes = len(data)

	var index []byte
	if p.opts.IndexPath != "" {
		index, err = RenderIndex(published, IndexOptions{
			SiteTitle:     p.opts.SiteTitle,
			DefaultAuthor: p.opts.DefaultAuthor,
			Accessor:      p.opts.Accessor,
		}, p.opts.IndexPath, p.opts.OutputPath, p.clock())
		if err != nil {
			return nil, err
		}
	}

	if p.opts.DryRun {
		result.Outcome = OutcomeDryRun
		p.logger.Info("Dry run, artifact not written",
			"published", len(published),
			"bytes", len(data),
			"checksum", result.Checksum,
		)
		return result, nil
	}

	if err := WriteFileAtomic(p.opts.OutputPath, data, artifactPerm); err != nil {
		return nil, fmt.Errorf("write artifact %s: %w", p.opts.OutputPath, err)
	}
	result.Output = p.opts.OutputPath

	if index != nil {
		if err := WriteFileAtomic(p.opts.IndexPath, index, artifactPerm); err != nil {
			return nil, fmt.Errorf("write index %s: %w", p.opts.IndexPath, err)
		}
		result.Index = p.opts.IndexPath
	}

	result.Outcome = OutcomePublished
	p.logger.Info("Artifact written",
		"output", p.opts.OutputPath,
		"index", p.opts.IndexPath,
		"published", len(published),
		"bytes", len(data),
		"checksum", result.Checksum,
	)
	return result, nil
}

// MarshalArtifact renders records as an indented JSON array. HTML characters
// are kept literal and non-ASCII text is written as UTF-8.
func MarshalArtifact(records []*article.Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("marshal artifact: %w", err)
	}
	return buf.Bytes(), nil
}
