package core

import (
	"time"
)

// JobPhase indicates the current stage of a conversion job.
type JobPhase string

const (
	PhaseStarting   JobPhase = "starting"
	PhaseConverting JobPhase = "converting"
	PhaseComplete   JobPhase = "complete"
	PhaseFailed     JobPhase = "failed"
	PhaseCancelled  JobPhase = "cancelled"
)

// ConvertProgress represents the current state of a conversion job.
type ConvertProgress struct {
	JobID    string   `json:"jobId"`
	From     string   `json:"from"`
	To       string   `json:"to"`
	Phase    JobPhase `json:"phase"`
	FileName string   `json:"fileName,omitempty"`
	Records  int      `json:"records"`
	Error    string   `json:"error,omitempty"` // Non-empty if Phase is PhaseFailed

	// Byte-based progress; BytesTotal is zero when the input size is unknown.
	BytesRead  int64 `json:"bytesRead"`
	BytesTotal int64 `json:"bytesTotal"`
}

// Percent returns the progress as a percentage (0-100), or 0 when the total
// input size is unknown.
func (p ConvertProgress) Percent() int {
	if p.BytesTotal > 0 {
		return int((p.BytesRead * 100) / p.BytesTotal)
	}
	return 0
}

// ConvertResult contains the final result of a conversion job.
type ConvertResult struct {
	JobID       string        `json:"jobId"`
	From        string        `json:"from"`
	To          string        `json:"to"`
	FileName    string        `json:"fileName,omitempty"`
	ContentType string        `json:"contentType"`
	Records     int           `json:"records"`
	Warnings    []string      `json:"warnings,omitempty"`
	Duration    time.Duration `json:"duration"`
	Error       string        `json:"error,omitempty"` // Non-empty if the job failed

	// Output is the converted document. Empty when the job failed; a failed
	// conversion never ships a truncated document.
	Output []byte `json:"-"`
}
