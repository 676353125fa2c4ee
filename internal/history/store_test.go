package history_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"mediasort/internal/dating"
	"mediasort/internal/history"
	"mediasort/internal/sorter"
	"mediasort/internal/testsupport"
)

func TestRecordRunRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	started := time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC)
	report := testsupport.NewReport(t, "run-1", started)
	testsupport.RecordRun(t, store, report)

	runs, err := store.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}
	run := runs[0]
	if run.ID != "run-1" || run.Source != "/src" || run.Destination != "/dst" {
		t.Fatalf("unexpected run %#v", run)
	}
	if run.Total != 2 || run.Moved != 1 || run.Failed != 1 || run.DryRun || run.Interrupted {
		t.Fatalf("unexpected counts %#v", run)
	}
	if !run.StartedAt.Equal(started) || run.Duration() != 2*time.Second {
		t.Fatalf("unexpected timestamps %v / %v", run.StartedAt, run.Duration())
	}

	entries, err := store.RunEntries(ctx, "run-1")
	if err != nil {
		t.Fatalf("RunEntries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Seq != 0 || entries[0].State != sorter.StateMoved || entries[0].DateSource != dating.SourceCaptureMetadata {
		t.Fatalf("unexpected first entry %#v", entries[0])
	}
	if entries[0].Destination != "/dst/2022-01-15/a.jpg" || entries[0].DateField != dating.FieldDateTimeOriginal {
		t.Fatalf("unexpected first entry %#v", entries[0])
	}
	if entries[1].State != sorter.StateFailed || entries[1].ErrorKind != "permission" || entries[1].Destination != "" {
		t.Fatalf("unexpected second entry %#v", entries[1])
	}
}

func TestListRunsNewestFirstWithLimit(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)

	base := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "middle", "new"} {
		testsupport.RecordRun(t, store, testsupport.NewReport(t, id, base.Add(time.Duration(i)*time.Hour)))
	}

	runs, err := store.ListRuns(context.Background(), 2)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "new" || runs[1].ID != "middle" {
		t.Fatalf("unexpected order %#v", runs)
	}
}

func TestFindRunByPrefix(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	now := time.Now()
	testsupport.RecordRun(t, store, testsupport.NewReport(t, "abc123", now))
	testsupport.RecordRun(t, store, testsupport.NewReport(t, "abd456", now.Add(time.Minute)))

	tests := []struct {
		name    string
		query   string
		wantID  string
		wantErr error
	}{
		{name: "exact", query: "abc123", wantID: "abc123"},
		{name: "unique prefix", query: "abd", wantID: "abd456"},
		{name: "ambiguous prefix", query: "ab", wantErr: history.ErrAmbiguousRunID},
		{name: "missing", query: "zzz", wantErr: history.ErrRunNotFound},
		{name: "empty", query: "", wantErr: history.ErrRunNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			run, err := store.FindRun(ctx, tc.query)
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("expected %v, got %v", tc.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("FindRun failed: %v", err)
			}
			if run.ID != tc.wantID {
				t.Fatalf("expected %s, got %s", tc.wantID, run.ID)
			}
		})
	}
}

func TestRecordRunRejectsDuplicateID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)

	report := testsupport.NewReport(t, "dup", time.Now())
	testsupport.RecordRun(t, store, report)
	if err := store.RecordRun(context.Background(), report, false); err == nil {
		t.Fatal("expected error recording the same run twice")
	}
	entries, err := store.RunEntries(context.Background(), "dup")
	if err != nil {
		t.Fatalf("RunEntries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected failed insert to leave 2 entries, got %d", len(entries))
	}
}

func TestClearRemovesEverything(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)
	ctx := context.Background()

	testsupport.RecordRun(t, store, testsupport.NewReport(t, "one", time.Now()))
	testsupport.RecordRun(t, store, testsupport.NewReport(t, "two", time.Now()))

	removed, err := store.Clear(ctx)
	if err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	runs, err := store.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected no runs, got %d", len(runs))
	}
	entries, err := store.RunEntries(ctx, "one")
	if err != nil {
		t.Fatalf("RunEntries failed: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected no entries, got %d", len(entries))
	}
}

func TestOpenReusesExistingDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first, err := history.Open(cfg)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	testsupport.RecordRun(t, first, testsupport.NewReport(t, "persisted", time.Now()))
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second := testsupport.MustOpenHistory(t, cfg)
	if _, err := second.FindRun(context.Background(), "persisted"); err != nil {
		t.Fatalf("expected run to persist: %v", err)
	}
	if second.Path() != cfg.Paths.HistoryDB {
		t.Fatalf("unexpected path %s", second.Path())
	}
}

func TestOpenDisabled(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithoutHistory())
	if _, err := history.Open(cfg); !errors.Is(err, history.ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}

func TestRecordsEngineReport(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenHistory(t, cfg)

	src := t.TempDir()
	dst := t.TempDir()
	ts := time.Date(2021, time.March, 3, 12, 0, 0, 0, time.Local)
	testsupport.WriteFileAt(t, filepath.Join(src, "a.jpg"), "a", ts)

	s := sorter.New(sorter.WithOptions(sorter.OptionsFromConfig(cfg)))
	report, err := s.Run(context.Background(), src, dst)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	testsupport.RecordRun(t, store, report)

	entries, err := store.RunEntries(context.Background(), report.RunID)
	if err != nil {
		t.Fatalf("RunEntries failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Date != "2021-03-03" || entries[0].DateSource != dating.SourceFileSystem {
		t.Fatalf("unexpected entries %#v", entries)
	}
}
