// Package pipeline composes one conversion: a hygiene-wrapped input stream,
// an extractor chosen by input format, and a renderer chosen by output
// format. Records flow through in input order; the pipeline never reorders,
// batches, or deduplicates.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"recordconv/internal/extract"
	"recordconv/internal/record"
	"recordconv/internal/render"
	"recordconv/internal/stream"
)

// Options selects the formats and tuning for one conversion.
type Options struct {
	// From is the input format key ("csv", "prn").
	From string

	// To is the output format key ("json", "html").
	To string

	// Delimiter applies to delimited input only; zero means comma.
	Delimiter rune

	// Size is the total input size in bytes when known, for byte-based
	// progress. Zero or negative means unknown.
	Size int64

	// Progress, when set, is called after each emitted record.
	Progress func(records int, bytesRead int64, percent int)
}

// Result summarizes a finished conversion.
type Result struct {
	Records  int
	Warnings extract.Warnings
	Duration time.Duration
}

// Convert reads records from r and writes the converted document to w.
//
// On a fatal error the output is truncated mid-document and must be
// discarded by the caller; the returned Result still carries the warnings
// and record count observed before the failure. Cancellation surfaces as
// ctx's error and never leaves a partially written record: the context is
// checked before each record write.
func Convert(ctx context.Context, r io.Reader, w io.Writer, opts Options) (*Result, error) {
	start := time.Now()

	ex, err := extract.New(opts.From, extract.Options{Delimiter: opts.Delimiter})
	if err != nil {
		return nil, err
	}
	rn, err := render.New(opts.To, w)
	if err != nil {
		return nil, err
	}

	cr := stream.Wrap(r, opts.Size)

	if err := rn.Begin(); err != nil {
		return nil, fmt.Errorf("begin output: %w", err)
	}

	records := 0
	emit := func(rec record.Record) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := rn.Record(rec); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
		records++
		if opts.Progress != nil {
			opts.Progress(records, cr.BytesRead, cr.Percent())
		}
		return nil
	}

	warnings, err := ex.Extract(ctx, cr, emit)
	res := &Result{Records: records, Warnings: warnings, Duration: time.Since(start)}
	if err != nil {
		return res, err
	}

	if err := rn.End(); err != nil {
		return res, fmt.Errorf("finish output: %w", err)
	}
	res.Duration = time.Since(start)
	return res, nil
}
