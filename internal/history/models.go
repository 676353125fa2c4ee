package history

import (
	"time"

	"mediasort/internal/dating"
	"mediasort/internal/sorter"
)

// Run is one recorded sort run.
type Run struct {
	ID          string    `json:"id"`
	Source      string    `json:"source"`
	Destination string    `json:"destination"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Total       int       `json:"total"`
	Moved       int       `json:"moved"`
	Planned     int       `json:"planned"`
	Failed      int       `json:"failed"`
	DryRun      bool      `json:"dry_run"`
	// Interrupted marks runs that were cancelled before every file was processed.
	Interrupted bool `json:"interrupted"`
}

// Duration is the wall time of the run.
func (r Run) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }

// Entry is one recorded file outcome.
type Entry struct {
	RunID       string        `json:"run_id"`
	Seq         int           `json:"seq"`
	Source      string        `json:"source"`
	Destination string        `json:"destination,omitempty"`
	Date        string        `json:"date"`
	DateSource  dating.Source `json:"date_source"`
	DateField   string        `json:"date_field,omitempty"`
	State       sorter.State  `json:"state"`
	ErrorKind   string        `json:"error_kind,omitempty"`
	Error       string        `json:"error,omitempty"`
}
