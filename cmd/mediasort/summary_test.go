package main

import (
	"errors"
	"strings"
	"testing"
	"time"

	"mediasort/internal/dating"
	"mediasort/internal/sorter"
)

func TestFormatCountUsesGrouping(t *testing.T) {
	if got := formatCount(1234567); got != "1,234,567" {
		t.Fatalf("formatCount = %q", got)
	}
	if got := plural(1, "file"); got != "1 file" {
		t.Fatalf("plural(1) = %q", got)
	}
	if got := plural(1200, "file"); got != "1,200 files" {
		t.Fatalf("plural(1200) = %q", got)
	}
}

func TestRenderSortSummary(t *testing.T) {
	started := time.Date(2024, time.May, 1, 10, 0, 0, 0, time.UTC)
	report := &sorter.Report{
		RunID:       "abcdef12-3456",
		Destination: "/dst",
		StartedAt:   started,
		FinishedAt:  started.Add(1500 * time.Millisecond),
		Outcomes: []sorter.Outcome{
			{Source: "/src/a.jpg", DateText: "2024-05-01", DateSource: dating.SourceCaptureMetadata, State: sorter.StateMoved, Destination: "/dst/2024-05-01/a.jpg"},
			{Source: "/src/b.jpg", DateText: "unknown", DateSource: dating.SourceUnknown, State: sorter.StateFailed, Stage: sorter.StageMove, Kind: "permission", Err: errors.New("denied"), Reason: "denied"},
		},
		Summary: sorter.Summary{Total: 2, Moved: 1, Failed: 1},
	}

	out := renderSortSummary(report, true, false)
	for _, want := range []string{
		"== Run abcdef12-3456 ==",
		"[ERROR] 1 of 2 files moved, 1 failed",
		"1.5s",
		"Capture metadata",
		"2024-05-01/a.jpg",
		"Failures",
		"permission",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("summary missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, ansiReset) {
		t.Fatal("summary should not contain colour codes when colorize is false")
	}
}

func TestRenderBanner(t *testing.T) {
	got := renderBanner("0123456789", 3, "/in", "/out", true)
	want := "mediasort dry run | run 01234567 | 3 files from /in into /out"
	if got != want {
		t.Fatalf("renderBanner = %q, want %q", got, want)
	}
}
