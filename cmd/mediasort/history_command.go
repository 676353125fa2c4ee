package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"mediasort/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var jsonOutput bool

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded sort runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				runs, err := store.ListRuns(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, runs)
				}
				out := cmd.OutOrStdout()
				if len(runs) == 0 {
					fmt.Fprintln(out, "No runs recorded")
					return nil
				}
				fmt.Fprintln(out, renderRunTable(runs))
				return nil
			})
		},
	}
	historyCmd.Flags().IntVarP(&limit, "limit", "l", 20, "Maximum number of runs to list (0 for all)")
	historyCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print runs as JSON")

	historyCmd.AddCommand(newHistoryShowCommand(ctx))
	historyCmd.AddCommand(newHistoryClearCommand(ctx))
	return historyCmd
}

func newHistoryShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show the per-file outcomes of one run (an id prefix is enough)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				run, err := store.FindRun(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				entries, err := store.RunEntries(cmd.Context(), run.ID)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, struct {
						Run     history.Run     `json:"run"`
						Entries []history.Entry `json:"entries"`
					}{run, entries})
				}

				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				for _, line := range renderSectionHeader("Run "+run.ID, colorize) {
					fmt.Fprintln(out, line)
				}
				fmt.Fprintln(out, renderStatusLine("Source", statusInfo, run.Source, colorize))
				fmt.Fprintln(out, renderStatusLine("Destination", statusInfo, run.Destination, colorize))
				fmt.Fprintln(out, renderStatusLine("Started", statusInfo, formatRunTime(run.StartedAt), colorize))
				fmt.Fprintln(out, renderStatusLine("Dry run", statusInfo, yesNo(run.DryRun), colorize))
				if run.Interrupted {
					fmt.Fprintln(out, renderStatusLine("Interrupted", statusWarn, "run was cancelled before every file was processed", colorize))
				}
				fmt.Fprintln(out)
				if len(entries) == 0 {
					fmt.Fprintln(out, "No files were processed")
					return nil
				}
				fmt.Fprintln(out, renderEntryTable(run.Destination, entries))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run as JSON")
	return cmd
}

func newHistoryClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every recorded run",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withHistory(func(store *history.Store) error {
				removed, err := store.Clear(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", plural(int(removed), "run"))
				return nil
			})
		},
	}
}

func (c *commandContext) withHistory(fn func(*history.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := history.Open(cfg)
	if errors.Is(err, history.ErrDisabled) {
		return errors.New("history is disabled; set history.enabled = true in the configuration")
	}
	if err != nil {
		return fmt.Errorf("open history: %w", err)
	}
	defer store.Close()
	return fn(store)
}

func renderRunTable(runs []history.Run) string {
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			shortID(run.ID),
			formatRunTime(run.StartedAt),
			run.Source,
			run.Destination,
			formatCount(run.Moved + run.Planned),
			formatCount(run.Failed),
			yesNo(run.DryRun),
			run.Duration().Round(time.Millisecond).String(),
		})
	}
	headers := []string{"ID", "Started", "Source", "Destination", "Sorted", "Failed", "Dry run", "Duration"}
	aligns := []columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignRight}
	return renderTable("", headers, rows, aligns)
}

func renderEntryTable(root string, entries []history.Entry) string {
	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		detail := relativeDestination(root, entry.Destination)
		if entry.Error != "" {
			detail = entry.ErrorKind + ": " + entry.Error
		}
		rows = append(rows, []string{
			strconv.Itoa(entry.Seq + 1),
			filepath.Base(entry.Source),
			entry.Date,
			sourceLabel(entry.DateSource),
			titleCaser.String(string(entry.State)),
			detail,
		})
	}
	headers := []string{"#", "File", "Date", "Source", "State", "Destination / error"}
	aligns := []columnAlignment{alignRight}
	return renderTable("", headers, rows, aligns)
}

func formatRunTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04:05")
}
