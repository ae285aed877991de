package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"nil error", nil, ""},
		{"layout inference", errors.New(`no canonical columns found in header line: "foo bar"`), "LAY001"},
		{"bad row", fmt.Errorf("parse row 7: %w", errors.New("bare quote")), "CSV001"},
		{"bad header", errors.New("read header row: unexpected EOF"), "CSV002"},
		{"unknown input", errors.New("unknown input format: xlsx"), "FMT001"},
		{"unknown output", errors.New("unknown output format: xml"), "FMT002"},
		{"too large", errors.New("file too large"), "FILE001"},
		{"empty file", errors.New("empty file"), "FILE002"},
		{"no file", errors.New("no file provided"), "FILE003"},
		{"job expired", errors.New("job not found: abc"), "JOB001"},
		{"busy", ErrTooManyConversions, "JOB002"},
		{"cancelled", context.Canceled, "JOB003"},
		{"timed out", context.DeadlineExceeded, "JOB004"},
		{"rate limited", errors.New("rate limit exceeded"), "RATE001"},
		{"unmatched", errors.New("something exploded"), "ERR000"},
		{"case insensitive", errors.New("UNKNOWN INPUT FORMAT: CSV2"), "FMT001"},
		{"wrapped", fmt.Errorf("start job: %w", errors.New("unknown output format: pdf")), "FMT002"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError(%v).Code = %q, want %q", tt.err, got.Code, tt.wantCode)
			}
			if tt.wantCode != "" && got.Message == "" {
				t.Error("mapped message is empty")
			}
			if tt.wantCode != "" && got.Action == "" {
				t.Error("mapped action is empty")
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	got := FormatUserError(errors.New("unknown input format: xlsx"))
	if !strings.Contains(got, "Code: FMT001") {
		t.Errorf("FormatUserError = %q, want code reference", got)
	}
	if !strings.Contains(got, ". ") {
		t.Errorf("FormatUserError = %q, want message and action", got)
	}

	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
}

func TestIsUserFacing(t *testing.T) {
	if !IsUserFacing(ErrTooManyConversions) {
		t.Error("known pattern should be user-facing")
	}
	if IsUserFacing(errors.New("segfault in flux capacitor")) {
		t.Error("unmatched error should not be user-facing")
	}
	if IsUserFacing(nil) {
		t.Error("nil error should not be user-facing")
	}
}

func TestUserError(t *testing.T) {
	technical := errors.New("unknown input format: xlsx")
	ue := NewUserError(technical)

	if ue.Error() != "The input format is not supported" {
		t.Errorf("Error() = %q", ue.Error())
	}
	if !errors.Is(ue, technical) {
		t.Error("UserError should unwrap to the technical error")
	}
	if ue.User.Code != "FMT001" {
		t.Errorf("Code = %q, want FMT001", ue.User.Code)
	}

	if NewUserError(nil) != nil {
		t.Error("NewUserError(nil) should be nil")
	}
}
