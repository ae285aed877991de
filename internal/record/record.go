// Package record defines the canonical personal-record schema and the
// normalization rules that map raw field values onto it.
//
// Every record produced by the conversion engine carries exactly the six
// canonical fields, in this order: Name, Address, Postcode, Phone,
// Credit Limit, Birthday. Input columns that do not match a canonical field
// are discarded; canonical fields missing from the input receive a per-field
// default so downstream serializers never see a partial record.
package record

import "strings"

// Field identifies one of the six canonical record fields.
// The string value is the exact header text used in fixed-width layout
// inference and tabular output.
type Field string

const (
	FieldName        Field = "Name"
	FieldAddress     Field = "Address"
	FieldPostcode    Field = "Postcode"
	FieldPhone       Field = "Phone"
	FieldCreditLimit Field = "Credit Limit"
	FieldBirthday    Field = "Birthday"
)

// Fields lists the canonical fields in output order.
// Fixed-width layout inference and the HTML table header follow this order.
var Fields = []Field{
	FieldName,
	FieldAddress,
	FieldPostcode,
	FieldPhone,
	FieldCreditLimit,
	FieldBirthday,
}

// Record maps each canonical field to its normalized string value.
// A Record built through New or Build always contains all six keys.
type Record map[Field]string

// New returns a record with every canonical field set to its default value.
func New() Record {
	rec := make(Record, len(Fields))
	for _, f := range Fields {
		rec[f] = Default(f)
	}
	return rec
}

// Default returns the value substituted for a canonical field that is absent
// from the raw input: "0.00" for Credit Limit, the empty string otherwise.
func Default(f Field) string {
	if f == FieldCreditLimit {
		return "0.00"
	}
	return ""
}

// Build normalizes a set of raw values into a complete record.
// Fields present in raw are normalized; fields absent from raw receive
// their default value. Non-canonical keys in raw are ignored.
func Build(raw map[Field]string) Record {
	rec := make(Record, len(Fields))
	for _, f := range Fields {
		if v, ok := raw[f]; ok {
			rec[f] = Normalize(f, v)
		} else {
			rec[f] = Default(f)
		}
	}
	return rec
}

// FieldFor matches a raw header name against the canonical fields,
// case-insensitively. Returns false for headers that are not canonical.
func FieldFor(header string) (Field, bool) {
	header = strings.TrimSpace(header)
	for _, f := range Fields {
		if strings.EqualFold(header, string(f)) {
			return f, true
		}
	}
	return "", false
}

// Headers returns the canonical field names as strings, in output order.
func Headers() []string {
	out := make([]string, len(Fields))
	for i, f := range Fields {
		out[i] = string(f)
	}
	return out
}
