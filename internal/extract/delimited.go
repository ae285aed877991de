package extract

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"recordconv/internal/record"
)

func init() {
	Register(FormatDefinition{
		Key:   "csv",
		Label: "Delimited text",
		New: func(opts Options) Extractor {
			return &delimited{comma: opts.delimiter()}
		},
	})
}

// delimited extracts records from delimiter-separated text.
//
// Tokenization — quoting, escaping, the delimiter itself — belongs to
// encoding/csv; this strategy only maps observed header names onto canonical
// fields and hands each cell to the normalizer. The first row is always the
// header row.
type delimited struct {
	comma rune
}

func (d *delimited) Extract(ctx context.Context, r io.Reader, emit EmitFunc) (Warnings, error) {
	cr := csv.NewReader(r)
	cr.Comma = d.comma
	cr.FieldsPerRecord = -1 // rows may be ragged; gaps become defaults

	header, err := cr.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header row: %w", err)
	}

	// Map each observed column position to its canonical field.
	// Non-canonical columns get no mapping and are discarded per row.
	fieldAt := make(map[int]record.Field, len(header))
	for i, h := range header {
		if f, ok := record.FieldFor(h); ok {
			fieldAt[i] = f
		}
	}

	var warnings Warnings
	if len(fieldAt) < len(record.Fields) {
		warnings = append(warnings,
			fmt.Sprintf("header matched %d of %d canonical columns; the rest default",
				len(fieldAt), len(record.Fields)))
	}

	for line := 2; ; line++ {
		if err := ctx.Err(); err != nil {
			return warnings, err
		}

		row, err := cr.Read()
		if err == io.EOF {
			return warnings, nil
		}
		if err != nil {
			// Malformed syntax (e.g. unterminated quote) kills the stream;
			// silently dropping rows would corrupt the output.
			return warnings, fmt.Errorf("parse row %d: %w", line, err)
		}

		if isBlankRow(row) {
			continue
		}

		// Walk positions in order so a duplicated header deterministically
		// resolves to its last occurrence.
		raw := make(map[record.Field]string, len(fieldAt))
		for pos := 0; pos < len(row); pos++ {
			if f, ok := fieldAt[pos]; ok {
				raw[f] = row[pos]
			}
		}
		if err := emit(record.Build(raw)); err != nil {
			return warnings, err
		}
	}
}

func isBlankRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
