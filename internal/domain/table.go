package domain

import (
	"strconv"
	"strings"
)

// FirstDataRow is the sheet position of the first row after the header.
const FirstDataRow = 2

// Table is the raw content of a store table.
type Table struct {
	Header []string
	Rows   [][]string
}

// Record is one data row keyed by de-duplicated header names.
type Record struct {
	Row    int
	Values map[string]string
}

// Get returns the trimmed value of column name, or "" when absent.
func (r Record) Get(name string) string {
	return strings.TrimSpace(r.Values[name])
}

// Records returns every data row keyed by UniqueHeaders(t.Header). Short rows
// are padded with blanks and cells beyond the header are ignored.
func (t Table) Records() []Record {
	names := UniqueHeaders(t.Header)
	out := make([]Record, 0, len(t.Rows))
	for i, row := range t.Rows {
		values := make(map[string]string, len(names))
		for j, name := range names {
			if j < len(row) {
				values[name] = row[j]
			} else {
				values[name] = ""
			}
		}
		out = append(out, Record{Row: i + FirstDataRow, Values: values})
	}
	return out
}

// RowAt returns the cells at sheet position row.
func (t Table) RowAt(row int) ([]string, bool) {
	i := row - FirstDataRow
	if i < 0 || i >= len(t.Rows) {
		return nil, false
	}
	return t.Rows[i], true
}

// ColumnIndex returns the 1-based position of the named column, or 0.
func (t Table) ColumnIndex(name string) int {
	for i, h := range UniqueHeaders(t.Header) {
		if h == name {
			return i + 1
		}
	}
	return 0
}

// UniqueHeaders trims header names, names blank ones "Unnamed" and suffixes
// repeats with ".1", ".2", ... in order of appearance.
func UniqueHeaders(header []string) []string {
	seen := make(map[string]int, len(header))
	out := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(h)
		if h == "" {
			h = "Unnamed"
		}
		if n, ok := seen[h]; ok {
			seen[h] = n + 1
			out[i] = h + "." + strconv.Itoa(n+1)
			continue
		}
		seen[h] = 0
		out[i] = h
	}
	return out
}

// PadRow returns row extended with blanks to width cells.
func PadRow(row []string, width int) []string {
	if len(row) >= width {
		return row
	}
	out := make([]string, width)
	copy(out, row)
	return out
}
