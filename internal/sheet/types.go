package sheet

import (
	"fmt"
)

// Table is a decoded delimited-text payload. Header holds trimmed column
// names; rows keep their raw, untrimmed cells and may be shorter or longer
// than the header.
type Table struct {
	Header []string
	Rows   []Row
}

type Row struct {
	Line   int
	Fields []string
}

// ParseError reports input that cannot be read as a table at all.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("parse: line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("parse: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// SyntheticColumn names a column that has no usable header, by its 1-based
// position.
func SyntheticColumn(pos int) string {
	return fmt.Sprintf("column_%d", pos)
}
