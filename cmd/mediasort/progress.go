package main

import (
	"fmt"
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"mediasort/internal/sorter"
)

// progressObserver prints the startup banner and drives a progress bar while
// files are processed. The bar is only drawn on an interactive terminal.
type progressObserver struct {
	out         io.Writer
	source      string
	destination string
	dryRun      bool
	showBanner  bool
	showBar     bool
	bar         *progressbar.ProgressBar
}

func newProgressObserver(out io.Writer, source, destination string, dryRun, showBanner, showBar bool) *progressObserver {
	return &progressObserver{
		out:         out,
		source:      source,
		destination: destination,
		dryRun:      dryRun,
		showBanner:  showBanner,
		showBar:     showBar,
	}
}

func (o *progressObserver) RunStarted(runID string, total int) {
	if o.showBanner {
		fmt.Fprintln(o.out, renderBanner(runID, total, o.source, o.destination, o.dryRun))
	}
	if !o.showBar || total == 0 {
		return
	}
	description := "Sorting"
	if o.dryRun {
		description = "Planning"
	}
	o.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(o.out),
		progressbar.OptionSetDescription(description),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

func (o *progressObserver) FileDone(sorter.Outcome, int, int) {
	if o.bar != nil {
		_ = o.bar.Add(1)
	}
}

func (o *progressObserver) RunFinished(*sorter.Report) {
	if o.bar != nil {
		_ = o.bar.Finish()
	}
}

func renderBanner(runID string, total int, source, destination string, dryRun bool) string {
	mode := "sorting"
	if dryRun {
		mode = "dry run"
	}
	return fmt.Sprintf("mediasort %s | run %s | %s from %s into %s",
		mode, shortID(runID), plural(total, "file"), source, destination)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
