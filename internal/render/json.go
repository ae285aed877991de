package render

import (
	"encoding/json"
	"fmt"
	"io"

	"recordconv/internal/record"
)

func init() {
	Register(FormatDefinition{
		Key:         "json",
		Label:       "Structured JSON",
		ContentType: "application/json",
		New:         func(w io.Writer) Renderer { return &jsonRenderer{w: w} },
	})
}

// jsonObject fixes the key set and key order of one serialized record.
// The tags are the canonical column names, spaces included.
type jsonObject struct {
	Name        string `json:"Name"`
	Address     string `json:"Address"`
	Postcode    string `json:"Postcode"`
	Phone       string `json:"Phone"`
	CreditLimit string `json:"Credit Limit"`
	Birthday    string `json:"Birthday"`
}

// jsonRenderer streams a JSON array, one object per record.
// Zero records yields the literal empty array.
type jsonRenderer struct {
	w       io.Writer
	written bool
}

func (jr *jsonRenderer) Begin() error {
	_, err := io.WriteString(jr.w, "[")
	return err
}

func (jr *jsonRenderer) Record(rec record.Record) error {
	obj := jsonObject{
		Name:        rec[record.FieldName],
		Address:     rec[record.FieldAddress],
		Postcode:    rec[record.FieldPostcode],
		Phone:       rec[record.FieldPhone],
		CreditLimit: rec[record.FieldCreditLimit],
		Birthday:    rec[record.FieldBirthday],
	}

	data, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}

	sep := "\n  "
	if jr.written {
		sep = ",\n  "
	}
	jr.written = true

	if _, err := io.WriteString(jr.w, sep); err != nil {
		return err
	}
	_, err = jr.w.Write(data)
	return err
}

func (jr *jsonRenderer) End() error {
	if !jr.written {
		_, err := io.WriteString(jr.w, "]\n")
		return err
	}
	_, err := io.WriteString(jr.w, "\n]\n")
	return err
}
