package report

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/gi8lino/issuetab/internal/flatten"

	"github.com/google/uuid"
)

// Report summarizes one flattening run.
type Report struct {
	RunID          string           `json:"runId"`
	StartedAt      time.Time        `json:"startedAt"`
	DurationMS     int64            `json:"durationMs"`
	Source         string           `json:"source"`
	Format         string           `json:"format"`
	ProjectionHash string           `json:"projectionHash,omitempty"`
	Counts         flatten.Snapshot `json:"counts"`
	Aborted        bool             `json:"aborted,omitempty"`
	Error          string           `json:"error,omitempty"`
}

// New starts a report for a run reading from source and writing format.
func New(source, format string) *Report {
	return &Report{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Source:    source,
		Format:    format,
	}
}

// Finish records the duration, final counters and terminal error, if any.
func (r *Report) Finish(counts flatten.Snapshot, runErr error) {
	r.DurationMS = time.Since(r.StartedAt).Milliseconds()
	r.Counts = counts
	if runErr != nil {
		r.Aborted = true
		r.Error = runErr.Error()
	}
}

// WriteFile writes the report as indented JSON to path.
func (r *Report) WriteFile(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

// LogArgs returns key-value pairs for the run summary log line.
func (r *Report) LogArgs() []any {
	args := []any{
		"runID", r.RunID,
		"records", r.Counts.Records,
		"rows", r.Counts.Rows,
		"parseErrors", r.Counts.ParseErrors,
		"durationMs", r.DurationMS,
	}
	if r.Aborted {
		args = append(args, "aborted", true)
	}
	return args
}
