package record

// normalize.go contains the per-field canonicalization rules.
//
// Normalization is total: a value that fails field-specific parsing falls
// back to a defined default or to a trimmed copy of the raw input, never to
// an error. Fatal conditions (malformed files, uninferable layouts) are the
// extractors' concern, not this file's.

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Birthday input shapes, tried in order. First match wins.
var (
	// D/M/YYYY or DD/MM/YYYY (day first)
	birthdaySlashRegex = regexp.MustCompile(`^(\d{1,2})/(\d{1,2})/(\d{4})$`)

	// YYYYMMDD, eight contiguous digits
	birthdayCompactRegex = regexp.MustCompile(`^(\d{4})(\d{2})(\d{2})$`)

	// YYYY-M-D or YYYY-MM-DD
	birthdayISORegex = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})$`)
)

// nonDigitRegex strips punctuation from phone numbers.
var nonDigitRegex = regexp.MustCompile(`\D`)

// Normalize canonicalizes a raw value for the given field.
//
// It never fails: unrecognized input shapes fall back to a trimmed copy of
// the raw value. Fields outside the canonical six get the verbatim-trim
// treatment. Use Default for values that are absent from the input entirely;
// Normalize assumes the value was present.
func Normalize(f Field, raw string) string {
	switch f {
	case FieldPostcode:
		return normalizePostcode(raw)
	case FieldPhone:
		return normalizePhone(raw)
	case FieldCreditLimit:
		return normalizeCreditLimit(raw)
	case FieldBirthday:
		return normalizeBirthday(raw)
	default:
		// Name, Address, and non-canonical headers: trimmed verbatim.
		// Internal punctuation is structurally meaningful and preserved.
		return strings.TrimSpace(raw)
	}
}

// normalizePostcode trims, strips internal whitespace, and uppercases.
// "4532 AA" and "4532aa" both normalize to "4532AA".
func normalizePostcode(raw string) string {
	return strings.ToUpper(strings.Join(strings.Fields(raw), ""))
}

// normalizePhone strips all non-digit characters. A leading "+" on the
// trimmed input is an international prefix and survives normalization.
func normalizePhone(raw string) string {
	s := strings.TrimSpace(raw)
	digits := nonDigitRegex.ReplaceAllString(s, "")
	if strings.HasPrefix(s, "+") {
		return "+" + digits
	}
	return digits
}

// normalizeCreditLimit parses a decimal amount and reformats it with exactly
// two fractional digits. A comma is accepted as an alternate decimal
// separator. Anything unparseable normalizes to the Credit Limit default.
func normalizeCreditLimit(raw string) string {
	s := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Default(FieldCreditLimit)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// normalizeBirthday rewrites the three accepted date shapes to YYYY-MM-DD.
// An unrecognized shape is returned trimmed but otherwise unchanged; this
// leniency is load-bearing for callers that round-trip dirty data.
// TODO: consider a strict mode that rejects unrecognized shapes.
func normalizeBirthday(raw string) string {
	s := strings.TrimSpace(raw)

	if m := birthdaySlashRegex.FindStringSubmatch(s); m != nil {
		return formatISODate(m[3], m[2], m[1])
	}
	if m := birthdayCompactRegex.FindStringSubmatch(s); m != nil {
		return formatISODate(m[1], m[2], m[3])
	}
	if m := birthdayISORegex.FindStringSubmatch(s); m != nil {
		return formatISODate(m[1], m[2], m[3])
	}

	return s
}

// formatISODate zero-pads month and day to two digits.
// Inputs are digit strings captured by the birthday regexes.
func formatISODate(year, month, day string) string {
	m, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	return fmt.Sprintf("%s-%02d-%02d", year, m, d)
}
