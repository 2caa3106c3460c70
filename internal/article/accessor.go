package article

import (
	"strings"
)

// Accessor reads canonical fields whose column names come from configuration.
// Column names match exactly first, then case-insensitively, so a sheet
// owner retyping "Title" as "title" does not break publishing.
type Accessor struct {
	TitleField  string
	StatusField string
}

// Title returns the trimmed title. When the record has no title column the
// first column stands in for it.
func (a Accessor) Title(r *Record) string {
	if v, ok := Lookup(r, a.TitleField); ok {
		return strings.TrimSpace(v)
	}
	if len(r.keys) == 0 {
		return ""
	}
	return strings.TrimSpace(r.values[r.keys[0]])
}

// HasStatus reports whether the record's status equals want, ignoring case
// and surrounding whitespace. A record without a status column never matches.
func (a Accessor) HasStatus(r *Record, want string) bool {
	v, ok := Lookup(r, a.StatusField)
	if !ok {
		return false
	}
	return strings.ToLower(strings.TrimSpace(v)) == strings.ToLower(strings.TrimSpace(want))
}

// Lookup finds name among the record keys, exact match first.
func Lookup(r *Record, name string) (string, bool) {
	if v, ok := r.values[name]; ok {
		return v, true
	}
	for _, k := range r.keys {
		if strings.EqualFold(k, name) {
			return r.values[k], true
		}
	}
	return "", false
}

// MatchColumn returns the index of name in header, exact match first, or -1.
func MatchColumn(header []string, name string) int {
	for i, h := range header {
		if h == name {
			return i
		}
	}
	for i, h := range header {
		if strings.EqualFold(h, name) {
			return i
		}
	}
	return -1
}
