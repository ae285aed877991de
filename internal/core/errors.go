package core

// errors.go defines user-friendly error messages with codes for support
// reference. When users encounter errors, they can quote the error code to
// support staff for faster diagnosis.
//
// Error codes are grouped by category:
//
//	LAY001  - No columns: header line contains no canonical column names
//	CSV001  - Bad row: a delimited row could not be parsed
//	CSV002  - Bad header: the delimited header row could not be parsed
//	FMT001  - Unknown input format
//	FMT002  - Unknown output format
//	FILE001 - File too large
//	FILE002 - Empty file
//	FILE003 - No file provided
//	JOB001  - Job not found (expired or never existed)
//	JOB002  - System busy: too many conversions in progress
//	JOB003  - Conversion cancelled
//	JOB004  - Conversion timed out
//	RATE001 - Rate limited
//	ERR000  - Fallback when no specific pattern matches
//
// Patterns are matched case-insensitively using strings.Contains. The first
// matching pattern wins, so more specific patterns come before general ones.
// When a user reports ERR000, check the application logs for the original
// technical error.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user
// messages. The first matching pattern wins, so order matters.
var errorPatterns = []errorPattern{
	// Layout inference (LAY001)
	{
		pattern: "no canonical columns",
		msg: UserMessage{
			Message: "No recognizable columns found in the header line",
			Action:  "Check that the first line names the expected columns",
			Code:    "LAY001",
		},
	},

	// Delimited parsing (CSV001-CSV002)
	{
		pattern: "parse row",
		msg: UserMessage{
			Message: "A row in the file could not be parsed",
			Action:  "Check for unbalanced quotes near the reported row",
			Code:    "CSV001",
		},
	},
	{
		pattern: "read header row",
		msg: UserMessage{
			Message: "The header row could not be parsed",
			Action:  "Check that the first line is a valid header",
			Code:    "CSV002",
		},
	},

	// Format selection (FMT001-FMT002)
	{
		pattern: "unknown input format",
		msg: UserMessage{
			Message: "The input format is not supported",
			Action:  "Use one of the listed input formats",
			Code:    "FMT001",
		},
	},
	{
		pattern: "unknown output format",
		msg: UserMessage{
			Message: "The output format is not supported",
			Action:  "Use one of the listed output formats",
			Code:    "FMT002",
		},
	},

	// File errors (FILE001-FILE003)
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "File exceeds the maximum size limit",
			Action:  "Split the file into smaller chunks",
			Code:    "FILE001",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The uploaded file is empty",
			Action:  "Upload a file with a header line and data rows",
			Code:    "FILE002",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a file to convert",
			Code:    "FILE003",
		},
	},

	// Job lifecycle (JOB001-JOB004)
	{
		pattern: "job not found",
		msg: UserMessage{
			Message: "Conversion job not found",
			Action:  "The job may have expired. Please start a new conversion",
			Code:    "JOB001",
		},
	},
	{
		pattern: "too many concurrent conversions",
		msg: UserMessage{
			Message: "System is busy processing other conversions",
			Action:  "Please wait a moment and try again",
			Code:    "JOB002",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "Conversion was cancelled",
			Action:  "Start a new conversion when ready",
			Code:    "JOB003",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Conversion timed out",
			Action:  "Try converting a smaller file or try again later",
			Code:    "JOB004",
		},
	},

	// Rate limiting (RATE001)
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It searches through known error patterns (case-insensitive) and returns
// the first match. If no pattern matches, a generic fallback message with
// code ERR000 is returned.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether an error matches a known pattern and should
// be shown to users as-is, rather than the generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	msg := MapError(err)
	return msg.Code != defaultMessage.Code
}

// UserError wraps a technical error with a user-friendly message.
// The original error is preserved for logging while providing a clean
// message for display.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError creates a UserError by mapping a technical error to a
// user-friendly message. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
