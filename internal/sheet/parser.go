package sheet

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

var (
	ErrNoHeader    = errors.New("input has no header row")
	ErrInvalidUTF8 = errors.New("input is not valid UTF-8")
)

const utf8BOM = "\uFEFF"

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

// Parse разбирает CSV: первая непустая строка — заголовок.
// Rows with a different field count than the header are kept as is, and a
// stray quote inside an unquoted cell stays part of the value.
func (p *Parser) Parse(raw string) (*Table, error) {
	if !utf8.ValidString(raw) {
		return nil, &ParseError{Err: ErrInvalidUTF8}
	}
	raw = strings.TrimPrefix(raw, utf8BOM)

	r := csv.NewReader(strings.NewReader(raw))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, &ParseError{Err: ErrNoHeader}
	}
	if err != nil {
		return nil, wrapCSVError(err)
	}

	table := &Table{Header: normalizeHeader(header)}

	for {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, wrapCSVError(err)
		}
		line, _ := r.FieldPos(0)
		table.Rows = append(table.Rows, Row{Line: line, Fields: fields})
	}

	return table, nil
}

// normalizeHeader trims names and fills blank ones with their position.
func normalizeHeader(header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = SyntheticColumn(i + 1)
		}
		out[i] = h
	}
	return out
}

func wrapCSVError(err error) error {
	var csvErr *csv.ParseError
	if errors.As(err, &csvErr) {
		return &ParseError{Line: csvErr.Line, Err: fmt.Errorf("column %d: %w", csvErr.Column, csvErr.Err)}
	}
	return &ParseError{Err: err}
}
