package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"strconv"

	"article-sync/internal/article"
)

type Generator struct {
	// excluded keys do not contribute to the hash
	excluded map[string]bool
}

// NewGenerator ignores last_updated by default, so that two runs over the same
// sheet content produce the same hash.
func NewGenerator(excluded ...string) *Generator {
	if len(excluded) == 0 {
		excluded = []string{article.FieldLastUpdated}
	}
	g := &Generator{excluded: make(map[string]bool, len(excluded))}
	for _, k := range excluded {
		g.excluded[k] = true
	}
	return g
}

// GenerateSetHash генерирует SHA256 хеш набора записей.
// Каждое поле пишется как длина|ключ|длина|значение, так что границы полей
// однозначны, а порядок ключей и записей учитывается.
func (g *Generator) GenerateSetHash(records []*article.Record) string {
	h := sha256.New()
	writeInt(h, len(records))
	for _, rec := range records {
		g.writeRecord(h, rec)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func (g *Generator) writeRecord(h hash.Hash, rec *article.Record) {
	keys := rec.Keys()
	n := 0
	for _, k := range keys {
		if !g.excluded[k] {
			n++
		}
	}
	writeInt(h, n)
	for _, k := range keys {
		if g.excluded[k] {
			continue
		}
		writeString(h, k)
		writeString(h, rec.Value(k))
	}
}

func writeString(h hash.Hash, s string) {
	writeInt(h, len(s))
	_, _ = h.Write([]byte(s))
}

func writeInt(h hash.Hash, n int) {
	_, _ = h.Write([]byte(strconv.Itoa(n)))
	_, _ = h.Write([]byte{'|'})
}
