package sreport

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Defaults matching sreport's parsable AccountUtilizationByUser layout
const (
	DefaultHeaderLines = 4
	DefaultColumn      = 5
	DefaultColumnName  = "Used"
)

const fieldSeparator = "|"

// Report is the result of reading one sreport output
type Report struct {
	Total   float64
	Rows    int // rows that contributed a value
	Skipped int // non-empty rows with a missing or non-numeric value
}

// Parser sums the usage column of a pipe-delimited sreport output
type Parser struct {
	headerLines int
	column      int
	columnName  string
}

// NewParser returns a parser that drops headerLines preamble lines and
// reads the value at column. When columnName is set and a header row
// naming it is found, the column is taken from that row instead.
func NewParser(headerLines, column int, columnName string) (*Parser, error) {
	if headerLines < 0 {
		return nil, fmt.Errorf("header lines must be >= 0, got %d", headerLines)
	}
	if column < 0 {
		return nil, fmt.Errorf("value column must be >= 0, got %d", column)
	}
	return &Parser{
		headerLines: headerLines,
		column:      column,
		columnName:  strings.TrimSpace(columnName),
	}, nil
}

// DefaultParser returns a parser for the stock sreport layout
func DefaultParser() *Parser {
	return &Parser{
		headerLines: DefaultHeaderLines,
		column:      DefaultColumn,
		columnName:  DefaultColumnName,
	}
}

// Parse sums the value column of out. Malformed rows contribute zero.
// A header row naming the value column is only recognised before the
// first data row.
func (p *Parser) Parse(out []byte) Report {
	var report Report

	column := p.column
	seenData := false
	for lineNo, raw := range bytes.Split(out, []byte("\n")) {
		if lineNo < p.headerLines {
			continue
		}

		line := strings.TrimRight(string(raw), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}

		fields := strings.Split(line, fieldSeparator)
		if !seenData {
			if idx, ok := p.headerIndex(fields); ok {
				column = idx
				continue
			}
		}
		seenData = true

		if column >= len(fields) {
			report.Skipped++
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(fields[column]), 64)
		if err != nil {
			report.Skipped++
			continue
		}
		report.Total += v
		report.Rows++
	}

	return report
}

// headerIndex reports the position of the named value column if fields is a header row
func (p *Parser) headerIndex(fields []string) (int, bool) {
	if p.columnName == "" {
		return 0, false
	}
	for i, f := range fields {
		if strings.TrimSpace(f) == p.columnName {
			return i, true
		}
	}
	return 0, false
}
