// Command recordconv converts tabular personal-record files between formats.
//
// Usage:
//
//	recordconv -from csv -to html -in people.csv -out people.html
//
// With -in/-out omitted it reads stdin and writes stdout, so it composes in
// shell pipelines. Warnings go to stderr; a fatal error exits non-zero after
// printing a user-facing message.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	"recordconv/internal/core"
	"recordconv/internal/extract"
	"recordconv/internal/pipeline"
	"recordconv/internal/render"
)

func main() {
	var (
		from      = flag.String("from", "csv", "input format: "+strings.Join(extract.Keys(), ", "))
		to        = flag.String("to", "json", "output format: "+strings.Join(render.Keys(), ", "))
		delimiter = flag.String("delimiter", "", "field delimiter for delimited input (default comma; \"tab\" for tab)")
		inPath    = flag.String("in", "", "input file (default stdin)")
		outPath   = flag.String("out", "", "output file (default stdout)")
		quiet     = flag.Bool("quiet", false, "suppress warnings")
	)
	flag.Parse()

	if err := run(*from, *to, *delimiter, *inPath, *outPath, *quiet); err != nil {
		fmt.Fprintln(os.Stderr, "recordconv:", core.FormatUserError(err))
		os.Exit(1)
	}
}

func run(from, to, delimiter, inPath, outPath string, quiet bool) error {
	// Ctrl-C aborts the conversion; partial output must not be trusted.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d, err := parseDelimiter(delimiter)
	if err != nil {
		return err
	}

	var in io.Reader = os.Stdin
	var size int64
	if inPath != "" {
		f, err := os.Open(inPath)
		if err != nil {
			return err
		}
		defer f.Close()
		if info, err := f.Stat(); err == nil {
			size = info.Size()
		}
		in = f
	}

	var out io.Writer = os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	res, err := pipeline.Convert(ctx, in, out, pipeline.Options{
		From:      from,
		To:        to,
		Delimiter: d,
		Size:      size,
	})

	if res != nil && !quiet {
		for _, warn := range res.Warnings {
			fmt.Fprintln(os.Stderr, "warning:", warn)
		}
	}
	if err != nil {
		// The document may be truncated mid-stream; remove a half-written
		// output file rather than leave it behind.
		if outPath != "" {
			os.Remove(outPath)
		}
		return err
	}

	if !quiet {
		fmt.Fprintf(os.Stderr, "%d records converted in %s\n", res.Records, res.Duration.Round(time.Millisecond))
	}
	return nil
}

// parseDelimiter interprets the -delimiter flag.
// Empty selects the format default; "tab" and "\t" select a tab.
func parseDelimiter(v string) (rune, error) {
	switch v {
	case "":
		return 0, nil
	case "tab", `\t`:
		return '\t', nil
	}

	if utf8.RuneCountInString(v) != 1 {
		return 0, fmt.Errorf("invalid delimiter %q: must be a single character", v)
	}
	d, _ := utf8.DecodeRuneInString(v)
	return d, nil
}
