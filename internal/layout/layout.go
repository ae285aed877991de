// Package layout infers fixed-width column boundaries from a header line.
//
// Fixed-width files carry no delimiters; the only structural information is
// the position of each canonical field name in the header. Inference runs
// once per stream, on the first non-blank line, and the resulting layout is
// immutable for the remainder of that stream.
package layout

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"recordconv/internal/record"
)

// ErrNoColumns is returned when a non-blank header line contains none of the
// canonical field names. Without at least one anchor the layout cannot be
// inferred and the stream must be abandoned.
var ErrNoColumns = errors.New("no canonical columns found in header line")

// Column is one inferred fixed-width column: the canonical field it carries
// and its [Start, End) character range over the header line.
type Column struct {
	Field record.Field
	Start int
	End   int
}

// Layout is the ordered set of inferred columns for one stream.
// Missing lists the canonical fields that were not found in the header;
// they resolve to default values for every data line. A non-empty Missing
// is advisory, not an error.
type Layout struct {
	Columns []Column
	Missing []record.Field
}

// Infer derives column boundaries from a fixed-width header line.
//
// Each canonical field name is searched for in canonical order, starting just
// past the previous match's start offset so a name cannot re-match inside an
// already-claimed header token. Found columns are sorted by start offset
// (headers need not list fields in canonical order); each column ends where
// the next begins, and the last ends at the right-trimmed header length.
//
// The search is positional, not semantic: it anchors on the literal header
// text and never inspects the data under a column.
func Infer(header string) (Layout, error) {
	trimmed := strings.TrimRight(header, " \t\r")
	if trimmed == "" {
		return Layout{}, fmt.Errorf("%w: header line is blank", ErrNoColumns)
	}

	var cols []Column
	searchFrom := 0
	for _, f := range record.Fields {
		idx := strings.Index(trimmed[searchFrom:], string(f))
		if idx < 0 {
			continue
		}
		start := searchFrom + idx
		cols = append(cols, Column{Field: f, Start: start})
		searchFrom = start + 1
	}

	if len(cols) == 0 {
		return Layout{}, fmt.Errorf("%w: %q", ErrNoColumns, trimmed)
	}

	sort.Slice(cols, func(i, j int) bool { return cols[i].Start < cols[j].Start })

	for i := range cols {
		if i+1 < len(cols) {
			cols[i].End = cols[i+1].Start
		} else {
			cols[i].End = len(trimmed)
		}
	}

	lay := Layout{Columns: cols}
	for _, f := range record.Fields {
		if !lay.has(f) {
			lay.Missing = append(lay.Missing, f)
		}
	}
	return lay, nil
}

func (l Layout) has(f record.Field) bool {
	for _, c := range l.Columns {
		if c.Field == f {
			return true
		}
	}
	return false
}

// Slice extracts the raw value for column i from a data line.
//
// A line shorter than the column's start yields the empty string; a line
// shorter than the column's end is clamped. The last column is unbounded on
// the right, so data lines longer than the header are not truncated.
func (l Layout) Slice(line string, i int) string {
	c := l.Columns[i]
	if c.Start >= len(line) {
		return ""
	}
	end := c.End
	if i == len(l.Columns)-1 || end > len(line) {
		end = len(line)
	}
	return line[c.Start:end]
}
