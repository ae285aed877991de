// Package extract turns raw input streams into canonical records.
//
// Each input format is a strategy behind the one Extractor interface:
// delimited text delegates tokenization to encoding/csv, fixed-width text
// infers its column layout from the header line and slices every data line
// by position. Adding an input format means registering a new strategy, not
// touching the existing ones.
package extract

import (
	"context"
	"io"

	"recordconv/internal/record"
)

// EmitFunc receives each canonical record as it is produced, in input order.
// Returning an error aborts the extraction; the error propagates unchanged.
type EmitFunc func(record.Record) error

// Warnings collects advisory conditions that do not stop a conversion,
// such as canonical columns missing from a fixed-width header.
type Warnings []string

// Extractor reads an input stream to completion, emitting zero or one
// canonical record per logical input line. A returned error is fatal for
// the stream: no further records follow and partial output must not be
// trusted.
type Extractor interface {
	Extract(ctx context.Context, r io.Reader, emit EmitFunc) (Warnings, error)
}

// Options carries per-conversion extractor settings.
type Options struct {
	// Delimiter is the field separator for delimited input.
	// Zero selects the default comma.
	Delimiter rune
}

func (o Options) delimiter() rune {
	if o.Delimiter == 0 {
		return ','
	}
	return o.Delimiter
}
