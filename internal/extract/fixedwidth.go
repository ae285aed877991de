package extract

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"recordconv/internal/layout"
	"recordconv/internal/record"
	"recordconv/internal/stream"
)

func init() {
	Register(FormatDefinition{
		Key:   "prn",
		Label: "Fixed-width text",
		New: func(opts Options) Extractor {
			return &fixedWidth{}
		},
	})
}

// fixedWidthChunkSize is the read buffer size for fixed-width input.
// Correctness does not depend on it: the line buffer reassembles lines
// across any chunk boundary.
const fixedWidthChunkSize = 32 * 1024

// fixedWidth extracts records from positional text.
//
// The first non-blank line is the header; its layout is inferred once and
// slices every following line. Credit Limit values in this format are
// integer minor units (cents) and are divided by 100 before normalization.
type fixedWidth struct {
	layout *layout.Layout
}

func (fw *fixedWidth) Extract(ctx context.Context, r io.Reader, emit EmitFunc) (Warnings, error) {
	var warnings Warnings
	var buf stream.LineBuffer
	chunk := make([]byte, fixedWidthChunkSize)

	for {
		if err := ctx.Err(); err != nil {
			return warnings, err
		}

		n, readErr := r.Read(chunk)
		for _, line := range buf.Feed(chunk[:n]) {
			w, err := fw.line(line, emit)
			warnings = append(warnings, w...)
			if err != nil {
				return warnings, err
			}
		}

		if readErr == io.EOF {
			if tail, ok := buf.Flush(); ok {
				w, err := fw.line(tail, emit)
				warnings = append(warnings, w...)
				if err != nil {
					return warnings, err
				}
			}
			return warnings, nil
		}
		if readErr != nil {
			return warnings, fmt.Errorf("read input: %w", readErr)
		}
	}
}

// line handles one reassembled line: the first non-blank line fixes the
// layout, every later non-blank line becomes a record.
func (fw *fixedWidth) line(line string, emit EmitFunc) (Warnings, error) {
	if strings.TrimSpace(line) == "" {
		// Blank lines are skipped both before and after the header.
		return nil, nil
	}

	if fw.layout == nil {
		lay, err := layout.Infer(line)
		if err != nil {
			return nil, fmt.Errorf("infer fixed-width layout: %w", err)
		}
		fw.layout = &lay

		var warnings Warnings
		for _, f := range lay.Missing {
			warnings = append(warnings,
				fmt.Sprintf("column %q not found in header; every row defaults it", f))
		}
		return warnings, nil
	}

	raw := make(map[record.Field]string, len(fw.layout.Columns))
	for i, col := range fw.layout.Columns {
		v := strings.TrimSpace(fw.layout.Slice(line, i))
		if col.Field == record.FieldCreditLimit {
			v = fromMinorUnits(v)
		}
		raw[col.Field] = v
	}
	return nil, emit(record.Build(raw))
}

// fromMinorUnits converts an integer cent amount to a decimal string.
// This format's Credit Limit convention: "10000" means 100.00. Values that
// are not plain integers pass through untouched and take their chances with
// the normalizer.
func fromMinorUnits(v string) string {
	cents, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return v
	}
	return strconv.FormatFloat(float64(cents)/100, 'f', -1, 64)
}
