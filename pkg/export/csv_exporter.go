package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Table is an ordered tabular export: rows are positional and must match the header width.
type Table struct {
	Headers []string
	Rows    [][]string
}

// Append adds a row, padding or truncating it to the header width.
func (t *Table) Append(values ...string) {
	row := make([]string, len(t.Headers))
	copy(row, values)
	t.Rows = append(t.Rows, row)
}

// CSVExporter renders tables into CSV bytes.
type CSVExporter struct {
	// Comma overrides the field delimiter; zero means ','.
	Comma rune
}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the table.
func (e *CSVExporter) Render(table Table) ([]byte, error) {
	if len(table.Headers) == 0 {
		return nil, fmt.Errorf("csv requires at least one header")
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	if e.Comma != 0 {
		writer.Comma = e.Comma
	}
	if err := writer.Write(table.Headers); err != nil {
		return nil, fmt.Errorf("write csv headers: %w", err)
	}
	for i, row := range table.Rows {
		if len(row) != len(table.Headers) {
			return nil, fmt.Errorf("csv row %d has %d fields, want %d", i+1, len(row), len(table.Headers))
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("write csv row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
