package sheet

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	raw := "\uFEFF Title , Status,,First Paragraph\n" +
		"Hello,Published,x,\"Para, with comma\"\n" +
		"\n" +
		"Short,draft\n" +
		"Long,draft,a,b,extra\n"

	table, err := NewParser().Parse(raw)
	require.NoError(t, err)

	assert.Equal(t, []string{"Title", "Status", "column_3", "First Paragraph"}, table.Header)
	require.Len(t, table.Rows, 3)
	assert.Equal(t, []string{"Hello", "Published", "x", "Para, with comma"}, table.Rows[0].Fields)
	assert.Equal(t, 2, table.Rows[0].Line)
	assert.Equal(t, []string{"Short", "draft"}, table.Rows[1].Fields)
	assert.Equal(t, 4, table.Rows[1].Line)
	assert.Len(t, table.Rows[2].Fields, 5)
}

func TestParseMultilineCell(t *testing.T) {
	raw := "Title,Body\n\"Multi\",\"line one\nline two\"\nNext,row\n"

	table, err := NewParser().Parse(raw)
	require.NoError(t, err)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "line one\nline two", table.Rows[0].Fields[1])
	assert.Equal(t, 4, table.Rows[1].Line)
}

func TestParseHeaderOnly(t *testing.T) {
	table, err := NewParser().Parse("Title,Status\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"Title", "Status"}, table.Header)
	assert.Empty(t, table.Rows)
}

func TestParseToleratesStrayQuotes(t *testing.T) {
	raw := "Title,Status\n" +
		"Good article,published\n" +
		"5\" ribeye guide,published\n" +
		"He said \"hi\",draft\n" +
		"Another,published\n"

	table, err := NewParser().Parse(raw)
	require.NoError(t, err)
	require.Len(t, table.Rows, 4)
	assert.Equal(t, []string{"Good article", "published"}, table.Rows[0].Fields)
	assert.Equal(t, []string{"5\" ribeye guide", "published"}, table.Rows[1].Fields)
	assert.Equal(t, 3, table.Rows[1].Line)
	assert.Equal(t, []string{"He said \"hi\"", "draft"}, table.Rows[2].Fields)
	assert.Equal(t, []string{"Another", "published"}, table.Rows[3].Fields)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		wantErr  error
		wantLine int
	}{
		{name: "empty", raw: "", wantErr: ErrNoHeader},
		{name: "blank lines only", raw: "\n\n", wantErr: ErrNoHeader},
		{name: "invalid utf8", raw: "Title\n\xff\xfe\n", wantErr: ErrInvalidUTF8},
		{name: "bom only", raw: "\uFEFF", wantErr: ErrNoHeader},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := NewParser().Parse(tt.raw)
			require.Error(t, err)
			assert.Nil(t, table)

			var parseErr *ParseError
			require.True(t, errors.As(err, &parseErr))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			}
			assert.Equal(t, tt.wantLine, parseErr.Line)
		})
	}
}
