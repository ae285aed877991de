package extract

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"recordconv/internal/layout"
	"recordconv/internal/record"
)

const prnHeader = "Name            Address               Postcode Phone         Credit Limit Birthday"

func prnLine(name, address, postcode, phone, credit, birthday string) string {
	return pad(name, 16) + pad(address, 22) + pad(postcode, 9) +
		pad(phone, 14) + pad(credit, 13) + birthday
}

func pad(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	return s + strings.Repeat(" ", width-len(s))
}

func TestFixedWidthBasic(t *testing.T) {
	input := prnHeader + "\n" +
		prnLine("Johnson, John", "Voorstraat 32", "3122gg", "020 3849381", "1000000", "19870101") + "\n" +
		prnLine("Anderson, Paul", "Dorpsplein 3A", "4532 AA", "030 3458986", "10909300", "19651203") + "\n"

	records, warnings, err := runExtractor(t, "prn", input, Options{})
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	first := records[0]
	if first[record.FieldName] != "Johnson, John" {
		t.Errorf("Name = %q", first[record.FieldName])
	}
	if first[record.FieldCreditLimit] != "10000.00" {
		t.Errorf("Credit Limit = %q, want 10000.00 (minor units divided)", first[record.FieldCreditLimit])
	}
	if first[record.FieldBirthday] != "1987-01-01" {
		t.Errorf("Birthday = %q, want 1987-01-01", first[record.FieldBirthday])
	}

	second := records[1]
	if second[record.FieldCreditLimit] != "109093.00" {
		t.Errorf("Credit Limit = %q, want 109093.00", second[record.FieldCreditLimit])
	}
}

func TestFixedWidthFractionalCents(t *testing.T) {
	input := prnHeader + "\n" +
		prnLine("Jane", "Street 1", "1234 AB", "0612345678", "5450", "20000105") + "\n"

	records, _, err := runExtractor(t, "prn", input, Options{})
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if records[0][record.FieldCreditLimit] != "54.50" {
		t.Errorf("Credit Limit = %q, want 54.50", records[0][record.FieldCreditLimit])
	}
}

func TestFixedWidthBlankLines(t *testing.T) {
	input := "\n\n" + prnHeader + "\n" +
		"\n" +
		prnLine("Jane", "Street 1", "1234 AB", "0612345678", "100", "20000105") + "\n" +
		"   \n"

	records, _, err := runExtractor(t, "prn", input, Options{})
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
}

func TestFixedWidthNoTrailingNewline(t *testing.T) {
	input := prnHeader + "\n" +
		prnLine("Jane", "Street 1", "1234 AB", "0612345678", "100", "20000105")

	records, _, err := runExtractor(t, "prn", input, Options{})
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1 (trailing partial line)", len(records))
	}
}

func TestFixedWidthShortLine(t *testing.T) {
	input := prnHeader + "\n" + "Jane\n"

	records, _, err := runExtractor(t, "prn", input, Options{})
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	rec := records[0]
	if rec[record.FieldName] != "Jane" {
		t.Errorf("Name = %q, want Jane", rec[record.FieldName])
	}
	if rec[record.FieldAddress] != "" {
		t.Errorf("Address = %q, want empty", rec[record.FieldAddress])
	}
	if rec[record.FieldCreditLimit] != "0.00" {
		t.Errorf("Credit Limit = %q, want 0.00", rec[record.FieldCreditLimit])
	}
}

func TestFixedWidthPartialHeaderWarns(t *testing.T) {
	input := "Name      Postcode\n" +
		pad("Jane", 10) + "1234 AB\n"

	records, warnings, err := runExtractor(t, "prn", input, Options{})
	if err != nil {
		t.Fatalf("Extract() error: %v", err)
	}
	if len(warnings) != 4 {
		t.Errorf("got %d warnings, want 4 (one per missing column): %v", len(warnings), warnings)
	}
	if records[0][record.FieldPostcode] != "1234AB" {
		t.Errorf("Postcode = %q, want 1234AB", records[0][record.FieldPostcode])
	}
	if records[0][record.FieldPhone] != "" {
		t.Errorf("Phone = %q, want defaulted empty", records[0][record.FieldPhone])
	}
}

func TestFixedWidthUninferableHeaderFatal(t *testing.T) {
	input := "Vorname  Anschrift\nrow data here\n"

	records, _, err := runExtractor(t, "prn", input, Options{})
	if !errors.Is(err, layout.ErrNoColumns) {
		t.Errorf("error = %v, want ErrNoColumns", err)
	}
	if len(records) != 0 {
		t.Errorf("got %d records, want 0", len(records))
	}
}

// chunkReader yields its input in fixed-size pieces to exercise line
// reassembly across chunk boundaries.
type chunkReader struct {
	data []byte
	size int
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.data) == 0 {
		return 0, io.EOF
	}
	n := c.size
	if n > len(c.data) {
		n = len(c.data)
	}
	if n > len(p) {
		n = len(p)
	}
	copy(p, c.data[:n])
	c.data = c.data[n:]
	return n, nil
}

func TestFixedWidthChunkedInput(t *testing.T) {
	input := prnHeader + "\n" +
		prnLine("Johnson, John", "Voorstraat 32", "3122gg", "020 3849381", "1000000", "19870101") + "\n" +
		prnLine("Anderson, Paul", "Dorpsplein 3A", "4532 AA", "030 3458986", "10909300", "19651203") + "\n"

	var baseline []record.Record
	ex, _ := New("prn", Options{})
	_, err := ex.Extract(context.Background(), strings.NewReader(input), func(r record.Record) error {
		baseline = append(baseline, r)
		return nil
	})
	if err != nil {
		t.Fatalf("baseline Extract() error: %v", err)
	}

	for _, size := range []int{1, 2, 7, 64} {
		var got []record.Record
		ex, _ := New("prn", Options{})
		_, err := ex.Extract(context.Background(),
			&chunkReader{data: []byte(input), size: size},
			func(r record.Record) error {
				got = append(got, r)
				return nil
			})
		if err != nil {
			t.Fatalf("chunk size %d: Extract() error: %v", size, err)
		}
		if len(got) != len(baseline) {
			t.Fatalf("chunk size %d: got %d records, want %d", size, len(got), len(baseline))
		}
		for i := range got {
			for _, f := range record.Fields {
				if got[i][f] != baseline[i][f] {
					t.Errorf("chunk size %d record %d field %s: %q != %q",
						size, i, f, got[i][f], baseline[i][f])
				}
			}
		}
	}
}
