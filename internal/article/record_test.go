package article

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordOrderAndOverwrite(t *testing.T) {
	r := NewRecord()
	r.Set("Title", "First")
	r.Set("Status", "draft")
	r.Set("Title", "Second")

	assert.Equal(t, []string{"Title", "Status"}, r.Keys())
	assert.Equal(t, "Second", r.Value("Title"))

	_, ok := r.Get("missing")
	assert.False(t, ok)
	assert.Equal(t, "", r.Value("missing"))
}

func TestRecordMarshalJSON(t *testing.T) {
	r := NewRecord()
	r.Set("Title", "Fish & Chips <daily>")
	r.Set("Notes", "line1\nline2 \"quoted\"")
	r.Set(FieldID, "1")

	data, err := r.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"Title":"Fish & Chips <daily>","Notes":"line1\nline2 \"quoted\"","id":"1"}`, string(data))

	var back Record
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, r.Keys(), back.Keys())
	for _, k := range r.Keys() {
		assert.Equal(t, r.Value(k), back.Value(k))
	}
}

func TestRecordUnmarshalRejectsNonObject(t *testing.T) {
	var r Record
	assert.Error(t, json.Unmarshal([]byte(`["a"]`), &r))
	assert.Error(t, json.Unmarshal([]byte(`{"a":1}`), &r))
}

func TestAccessor(t *testing.T) {
	acc := Accessor{TitleField: "Title", StatusField: "Status"}

	r := NewRecord()
	r.Set("title", "  Lower-case header ")
	r.Set("STATUS", " Published ")
	assert.Equal(t, "Lower-case header", acc.Title(r))
	assert.True(t, acc.HasStatus(r, "PUBLISHED"))

	noTitle := NewRecord()
	noTitle.Set("Headline", "From first column")
	noTitle.Set("Body", "x")
	assert.Equal(t, "From first column", acc.Title(noTitle))
	assert.False(t, acc.HasStatus(noTitle, "published"))

	assert.Equal(t, "", acc.Title(NewRecord()))
}

func TestMatchColumn(t *testing.T) {
	header := []string{"title", "Title", "Status"}
	assert.Equal(t, 1, MatchColumn(header, "Title"))
	assert.Equal(t, 2, MatchColumn(header, "status"))
	assert.Equal(t, -1, MatchColumn(header, "Date"))
}
