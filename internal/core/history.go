package core

// history.go records completed conversions in Postgres. History is an
// optional concern: the service runs fully without a database, in which case
// Record is a no-op and Recent returns an empty list.

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DefaultHistoryLimit caps how many entries Recent returns by default.
const DefaultHistoryLimit = 50

// History stores one row per finished conversion job.
type History struct {
	pool *pgxpool.Pool
}

// NewHistory creates a history store backed by pool. A nil pool yields a
// disabled store whose methods are no-ops.
func NewHistory(pool *pgxpool.Pool) *History {
	return &History{pool: pool}
}

// Enabled reports whether conversions are being recorded.
func (h *History) Enabled() bool {
	return h != nil && h.pool != nil
}

const historySchema = `
CREATE TABLE IF NOT EXISTS conversion_history (
	id            UUID PRIMARY KEY,
	source_format TEXT NOT NULL,
	output_format TEXT NOT NULL,
	file_name     TEXT,
	record_count  INT NOT NULL,
	warning_count INT NOT NULL,
	duration_ms   INT NOT NULL,
	error         TEXT,
	converted_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

// EnsureSchema creates the history table if it does not exist.
func (h *History) EnsureSchema(ctx context.Context) error {
	if !h.Enabled() {
		return nil
	}
	if _, err := h.pool.Exec(ctx, historySchema); err != nil {
		return fmt.Errorf("create conversion_history table: %w", err)
	}
	return nil
}

// Record inserts one finished job. Errors here must not fail a job that
// already completed; callers log and move on.
func (h *History) Record(ctx context.Context, res *ConvertResult) error {
	if !h.Enabled() {
		return nil
	}

	var id pgtype.UUID
	if err := id.Scan(res.JobID); err != nil {
		return fmt.Errorf("invalid job ID: %w", err)
	}

	fileName := pgtype.Text{String: res.FileName, Valid: res.FileName != ""}
	jobErr := pgtype.Text{String: res.Error, Valid: res.Error != ""}

	_, err := h.pool.Exec(ctx, `
		INSERT INTO conversion_history
			(id, source_format, output_format, file_name,
			 record_count, warning_count, duration_ms, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, res.From, res.To, fileName,
		res.Records, len(res.Warnings), res.Duration.Milliseconds(), jobErr,
	)
	if err != nil {
		return fmt.Errorf("insert conversion history: %w", err)
	}
	return nil
}

// HistoryEntry is one recorded conversion.
type HistoryEntry struct {
	ID           string    `json:"id"`
	SourceFormat string    `json:"sourceFormat"`
	OutputFormat string    `json:"outputFormat"`
	FileName     string    `json:"fileName,omitempty"`
	RecordCount  int       `json:"recordCount"`
	WarningCount int       `json:"warningCount"`
	DurationMs   int64     `json:"durationMs"`
	Error        string    `json:"error,omitempty"`
	ConvertedAt  time.Time `json:"convertedAt"`
}

// Recent returns the most recent conversions, newest first. With history
// disabled it returns an empty list, not an error.
func (h *History) Recent(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if !h.Enabled() {
		return []HistoryEntry{}, nil
	}
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}

	rows, err := h.pool.Query(ctx, `
		SELECT id, source_format, output_format, file_name,
		       record_count, warning_count, duration_ms, error, converted_at
		FROM conversion_history
		ORDER BY converted_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("query conversion history: %w", err)
	}
	defer rows.Close()

	entries := make([]HistoryEntry, 0, limit)
	for rows.Next() {
		var (
			id          pgtype.UUID
			fileName    pgtype.Text
			jobErr      pgtype.Text
			convertedAt pgtype.Timestamptz
			e           HistoryEntry
		)
		err := rows.Scan(&id, &e.SourceFormat, &e.OutputFormat, &fileName,
			&e.RecordCount, &e.WarningCount, &e.DurationMs, &jobErr, &convertedAt)
		if err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}

		if id.Valid {
			e.ID = fmt.Sprintf("%x-%x-%x-%x-%x",
				id.Bytes[0:4], id.Bytes[4:6], id.Bytes[6:8],
				id.Bytes[8:10], id.Bytes[10:16])
		}
		e.FileName = fileName.String
		e.Error = jobErr.String
		e.ConvertedAt = convertedAt.Time
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history rows: %w", err)
	}
	return entries, nil
}
