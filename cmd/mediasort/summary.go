package main

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"mediasort/internal/dating"
	"mediasort/internal/sorter"
)

var (
	numberPrinter = message.NewPrinter(language.English)
	titleCaser    = cases.Title(language.English)
)

func formatCount(n int) string {
	return numberPrinter.Sprintf("%d", n)
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return formatCount(n) + " " + noun + "s"
}

// renderSortSummary renders the report of one run. With details every file is
// listed; otherwise only failures are.
func renderSortSummary(report *sorter.Report, details, colorize bool) string {
	var b strings.Builder

	for _, line := range renderSectionHeader("Run "+report.RunID, colorize) {
		b.WriteString(line + "\n")
	}
	b.WriteString(renderStatusLine("Result", summaryKind(report), summaryMessage(report), colorize) + "\n")
	b.WriteString(renderStatusLine("Duration", statusInfo, report.Duration().Round(time.Millisecond).String(), colorize) + "\n\n")

	sum := report.Summary
	stateRows := [][]string{}
	if report.DryRun {
		stateRows = append(stateRows, []string{titleCaser.String(string(sorter.StatePlanned)), formatCount(sum.Planned)})
	} else {
		stateRows = append(stateRows, []string{titleCaser.String(string(sorter.StateMoved)), formatCount(sum.Moved)})
	}
	stateRows = append(stateRows,
		[]string{titleCaser.String(string(sorter.StateFailed)), formatCount(sum.Failed)},
		[]string{"Total", formatCount(sum.Total)},
	)
	b.WriteString(renderTable("", []string{"State", "Files"}, stateRows, []columnAlignment{alignLeft, alignRight}))
	b.WriteString("\n")

	sources := countSources(report.Outcomes)
	sourceRows := make([][]string, 0, len(sources))
	for _, src := range []dating.Source{dating.SourceCaptureMetadata, dating.SourceFileSystem, dating.SourceUnknown} {
		sourceRows = append(sourceRows, []string{sourceLabel(src), formatCount(sources[src])})
	}
	b.WriteString(renderTable("", []string{"Date source", "Files"}, sourceRows, []columnAlignment{alignLeft, alignRight}))
	b.WriteString("\n")

	if details && len(report.Outcomes) > 0 {
		rows := make([][]string, 0, len(report.Outcomes))
		for _, out := range report.Outcomes {
			rows = append(rows, []string{
				filepath.Base(out.Source),
				out.DateText,
				sourceLabel(out.DateSource),
				relativeDestination(report.Destination, out.Destination),
				titleCaser.String(string(out.State)),
			})
		}
		b.WriteString(renderTable("Files", []string{"File", "Date", "Source", "Destination", "State"}, rows, nil))
		b.WriteString("\n")
	}

	if failures := report.Failures(); len(failures) > 0 {
		rows := make([][]string, 0, len(failures))
		for _, out := range failures {
			rows = append(rows, []string{filepath.Base(out.Source), out.Stage, out.Kind, out.Reason})
		}
		b.WriteString(renderTable("Failures", []string{"File", "Stage", "Kind", "Reason"}, rows, nil))
		b.WriteString("\n")
	}
	return b.String()
}

func summaryKind(report *sorter.Report) statusKind {
	switch {
	case report.Summary.Failed > 0:
		return statusError
	case report.Summary.Total == 0:
		return statusInfo
	default:
		return statusOK
	}
}

func summaryMessage(report *sorter.Report) string {
	sum := report.Summary
	if sum.Total == 0 {
		return "no files to sort"
	}
	verb := "moved"
	done := sum.Moved
	if report.DryRun {
		verb = "planned"
		done = sum.Planned
	}
	msg := fmt.Sprintf("%s of %s %s", formatCount(done), plural(sum.Total, "file"), verb)
	if sum.Failed > 0 {
		msg += fmt.Sprintf(", %s failed", formatCount(sum.Failed))
	}
	return msg
}

func countSources(outcomes []sorter.Outcome) map[dating.Source]int {
	counts := make(map[dating.Source]int, 3)
	for _, out := range outcomes {
		counts[out.DateSource]++
	}
	return counts
}

func sourceLabel(source dating.Source) string {
	switch source {
	case dating.SourceCaptureMetadata:
		return "Capture metadata"
	case dating.SourceFileSystem:
		return "Filesystem"
	default:
		return "Unknown"
	}
}

func relativeDestination(root, path string) string {
	if path == "" {
		return "-"
	}
	if rel, err := filepath.Rel(root, path); err == nil {
		return rel
	}
	return path
}
