package sorter

import (
	"time"

	"mediasort/internal/dating"
	"mediasort/internal/fileutil"
	"mediasort/internal/media"
)

// State is the terminal state of one file.
type State string

const (
	StateMoved  State = "moved"
	StateFailed State = "failed"
	// StatePlanned is the terminal state of a dry run.
	StatePlanned State = "planned"
)

// Failure stages.
const (
	StagePlan = "plan"
	StageMove = "move"
)

// Outcome is the result for one scanned file.
type Outcome struct {
	File        media.File      `json:"-"`
	Source      string          `json:"source"`
	Date        dating.Resolved `json:"-"`
	DateText    string          `json:"date"`
	DateSource  dating.Source   `json:"date_source"`
	DateField   string          `json:"date_field,omitempty"`
	State       State           `json:"state"`
	Destination string          `json:"destination,omitempty"`
	Collided    bool            `json:"collided,omitempty"`
	Stage       string          `json:"stage,omitempty"`
	Kind        string          `json:"kind,omitempty"`
	Err         error           `json:"-"`
	Reason      string          `json:"reason,omitempty"`
}

func newOutcome(f media.File, res dating.Resolved) Outcome {
	out := Outcome{
		File:       f,
		Source:     f.Path,
		Date:       res,
		DateSource: res.Source,
		DateField:  res.Field,
		DateText:   string(dating.SourceUnknown),
	}
	if res.Known() {
		out.DateText = res.Date.String()
	}
	return out
}

func (o *Outcome) fail(stage string, err error) {
	o.State = StateFailed
	o.Stage = stage
	o.Err = err
	o.Reason = err.Error()
	if kind := fileutil.KindOf(err); kind != "" {
		o.Kind = string(kind)
	} else {
		o.Kind = stage
	}
}

// Report summarizes a run. Outcomes are in scan order.
type Report struct {
	RunID       string    `json:"run_id"`
	Source      string    `json:"source"`
	Destination string    `json:"destination"`
	DryRun      bool      `json:"dry_run"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
	Outcomes    []Outcome `json:"outcomes"`
	Summary     Summary   `json:"summary"`
}

// Summary counts outcomes by state.
type Summary struct {
	Total   int `json:"total"`
	Moved   int `json:"moved"`
	Planned int `json:"planned"`
	Failed  int `json:"failed"`
}

func (r *Report) summarize() {
	s := Summary{Total: len(r.Outcomes)}
	for _, o := range r.Outcomes {
		switch o.State {
		case StateMoved:
			s.Moved++
		case StatePlanned:
			s.Planned++
		case StateFailed:
			s.Failed++
		}
	}
	r.Summary = s
}

// Failures returns the failed outcomes in scan order.
func (r *Report) Failures() []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.State == StateFailed {
			out = append(out, o)
		}
	}
	return out
}

// OK reports whether no file failed.
func (r *Report) OK() bool { return r.Summary.Failed == 0 }

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration { return r.FinishedAt.Sub(r.StartedAt) }
