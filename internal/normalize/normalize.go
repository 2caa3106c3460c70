package normalize

import (
	"strconv"
	"strings"
	"time"

	"article-sync/internal/article"
	"article-sync/internal/config"
	"article-sync/internal/sheet"
)

// Clock returns the processing time stamped on every record of a run.
type Clock func() time.Time

type Normalizer struct {
	schema config.SchemaConfig
	clock  Clock
}

func NewNormalizer(schema config.SchemaConfig, clock Clock) *Normalizer {
	if clock == nil {
		clock = time.Now
	}
	return &Normalizer{schema: schema, clock: clock}
}

// Stats counts what happened to the rows of one table.
type Stats struct {
	Rows      int
	Retained  int
	Discarded int
}

// layout describes where the canonical columns sit in this run's header.
type layout struct {
	header []string
	title  int
	first  int
	second int
}

func (n *Normalizer) layoutFor(header []string) layout {
	l := layout{
		header: header,
		title:  article.MatchColumn(header, n.schema.TitleField),
		first:  article.MatchColumn(header, n.schema.FirstParagraphField),
		second: article.MatchColumn(header, n.schema.SecondParagraphField),
	}
	// Без колонки заголовка берём первую колонку.
	if l.title < 0 && len(header) > 0 {
		l.title = 0
	}
	return l
}

// Normalize turns table rows into records. Rows with an empty title are
// dropped and do not consume an id; ids of the rest are contiguous from 1.
// The result is never nil.
func (n *Normalizer) Normalize(table *sheet.Table) ([]*article.Record, Stats) {
	records := make([]*article.Record, 0, len(table.Rows))
	stats := Stats{Rows: len(table.Rows)}

	l := n.layoutFor(table.Header)
	stamp := n.clock().UTC().Format(article.TimestampLayout)

	for _, row := range table.Rows {
		rec := buildRecord(l, row.Fields)
		if l.column(rec, l.title) == "" {
			stats.Discarded++
			continue
		}

		if l.first >= 0 && l.second >= 0 {
			rec.Set(article.FieldContent, JoinParagraphs(l.column(rec, l.first), l.column(rec, l.second)))
		}
		rec.Set(article.FieldID, strconv.Itoa(len(records)+1))
		rec.Set(article.FieldLastUpdated, stamp)

		records = append(records, rec)
	}

	stats.Retained = len(records)
	return records, stats
}

// buildRecord zips header names with values. Duplicate names keep the last
// value at the position of the first occurrence; cells past the header land
// under column_<n>.
func buildRecord(l layout, fields []string) *article.Record {
	rec := article.NewRecord()
	for i, name := range l.header {
		rec.Set(name, cell(fields, i))
	}
	for i := len(l.header); i < len(fields); i++ {
		rec.Set(sheet.SyntheticColumn(i+1), strings.TrimSpace(fields[i]))
	}
	return rec
}

// column reads the value stored under the header name at index i, so that
// duplicate headers resolve the same way as in the record itself.
func (l layout) column(rec *article.Record, i int) string {
	if i < 0 || i >= len(l.header) {
		return ""
	}
	return rec.Value(l.header[i])
}

// JoinParagraphs склеивает два абзаца через пустую строку.
func JoinParagraphs(first, second string) string {
	return strings.TrimSpace(first + "\n\n" + second)
}

func cell(fields []string, i int) string {
	if i < 0 || i >= len(fields) {
		return ""
	}
	return strings.TrimSpace(fields[i])
}
