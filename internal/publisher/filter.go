package publisher

import (
	"article-sync/internal/article"
)

// Filter returns the records whose status equals published (case-insensitive,
// trimmed), in input order. Records without a status column are excluded.
func Filter(records []*article.Record, acc article.Accessor, published string) []*article.Record {
	out := make([]*article.Record, 0, len(records))
	for _, rec := range records {
		if acc.HasStatus(rec, published) {
			out = append(out, rec)
		}
	}
	return out
}
