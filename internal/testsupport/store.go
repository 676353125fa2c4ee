package testsupport

import (
	"context"
	"testing"
	"time"

	"mediasort/internal/config"
	"mediasort/internal/dating"
	"mediasort/internal/history"
	"mediasort/internal/media"
	"mediasort/internal/sorter"
)

// MustOpenHistory opens a history.Store for tests and registers cleanup.
func MustOpenHistory(t testing.TB, cfg *config.Config) *history.Store {
	t.Helper()

	store, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("history.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewReport builds a report with one moved and one failed outcome.
func NewReport(t testing.TB, runID string, started time.Time) *sorter.Report {
	t.Helper()

	moved := sorter.Outcome{
		File:        media.File{Path: "/src/a.jpg"},
		Source:      "/src/a.jpg",
		DateText:    "2022-01-15",
		DateSource:  dating.SourceCaptureMetadata,
		DateField:   dating.FieldDateTimeOriginal,
		State:       sorter.StateMoved,
		Destination: "/dst/2022-01-15/a.jpg",
	}
	failed := sorter.Outcome{
		File:       media.File{Path: "/src/b.jpg"},
		Source:     "/src/b.jpg",
		DateText:   "unknown",
		DateSource: dating.SourceUnknown,
		State:      sorter.StateFailed,
		Stage:      sorter.StageMove,
		Kind:       "permission",
		Reason:     "permission denied",
	}
	return &sorter.Report{
		RunID:       runID,
		Source:      "/src",
		Destination: "/dst",
		StartedAt:   started,
		FinishedAt:  started.Add(2 * time.Second),
		Outcomes:    []sorter.Outcome{moved, failed},
		Summary:     sorter.Summary{Total: 2, Moved: 1, Failed: 1},
	}
}

// RecordRun stores report or fails the test.
func RecordRun(t testing.TB, store *history.Store, report *sorter.Report) {
	t.Helper()
	if err := store.RecordRun(context.Background(), report, false); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
}
