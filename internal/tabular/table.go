// Package tabular reads and writes the header-plus-rows files exchanged with
// the extractor and persisted as the canonical snapshot.
package tabular

import (
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/unicode/norm"
)

// Table is a header row plus data rows.
type Table struct {
	Header []string
	Rows   [][]string

	index map[string]int
}

// NewTable builds a Table and indexes its header.
func NewTable(header []string, rows [][]string) *Table {
	t := &Table{Header: header, Rows: rows, index: make(map[string]int, len(header))}
	for i, col := range header {
		key := normalizeCol(col)
		if _, dup := t.index[key]; !dup {
			t.index[key] = i
		}
	}
	return t
}

// Has reports whether the header contains the named column.
func (t *Table) Has(col string) bool {
	_, ok := t.index[normalizeCol(col)]
	return ok
}

// Get returns the named column of row, or "" when the column or cell is absent.
func (t *Table) Get(row []string, col string) string {
	idx, ok := t.index[normalizeCol(col)]
	if !ok || idx >= len(row) {
		return ""
	}
	return row[idx]
}

// Read loads a CSV or XLSX file, chosen by extension.
func Read(path string) (*Table, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		rows, err := ReadXLSX(path, XLSXOptions{})
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			return nil, eris.Errorf("tabular: %s has no header row", path)
		}
		return NewTable(rows[0], rows[1:]), nil
	case ".csv", "":
		return ReadCSV(path)
	default:
		return nil, eris.Errorf("tabular: unsupported file type %q", filepath.Ext(path))
	}
}

// normalizeCol makes header matching insensitive to case, surrounding
// whitespace and Unicode composition.
func normalizeCol(s string) string {
	s = strings.TrimPrefix(s, "\ufeff")
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(s)))
}
