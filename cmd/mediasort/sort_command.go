package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"mediasort/internal/config"
	"mediasort/internal/history"
	"mediasort/internal/logging"
	"mediasort/internal/sorter"
)

func newSortCommand(ctx *commandContext) *cobra.Command {
	var (
		dryRun     bool
		workers    int
		extensions []string
		noProgress bool
		jsonOutput bool
		details    bool
	)

	cmd := &cobra.Command{
		Use:   "sort <source> <destination>",
		Short: "Move files from source into dated folders under destination",
		Long: `Move every file directly inside <source> into <destination>/<YYYY-MM-DD>/,
using the capture date embedded in the file when present and the filesystem
timestamp otherwise. Files without any usable date go to <destination>/Unknown/.
Existing files are never overwritten; clashing names get a _1, _2, ... suffix.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			opts := sorter.OptionsFromConfig(cfg)
			flags := cmd.Flags()
			if flags.Changed("dry-run") {
				opts.DryRun = dryRun
			}
			if flags.Changed("workers") {
				if workers < 1 {
					return fmt.Errorf("--workers must be at least 1, got %d", workers)
				}
				opts.Workers = workers
			}
			if flags.Changed("ext") {
				opts.Extensions = config.NormalizeExtensions(extensions)
			}

			stderr := cmd.ErrOrStderr()
			showBar := !noProgress && !jsonOutput && isTerminal(stderr)
			logger, err := ctx.newLogger(cmd, showBar)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			observer := newProgressObserver(stderr, args[0], args[1], opts.DryRun, !jsonOutput, showBar)
			s := sorter.New(
				sorter.WithOptions(opts),
				sorter.WithLogger(logger),
				sorter.WithObserver(observer),
			)
			report, runErr := s.Run(runCtx, args[0], args[1])
			if report == nil {
				return runErr
			}

			interrupted := errors.Is(runErr, context.Canceled)
			recordHistory(context.WithoutCancel(runCtx), cfg, logger, report, interrupted)

			if jsonOutput {
				if err := writeJSON(cmd, report); err != nil {
					return err
				}
			} else {
				fmt.Fprint(cmd.OutOrStdout(), renderSortSummary(report, details, shouldColorize(cmd.OutOrStdout())))
			}

			if runErr != nil {
				return runErr
			}
			if failed := report.Summary.Failed; failed > 0 {
				return fmt.Errorf("%s could not be sorted; they were left in %s", plural(failed, "file"), report.Source)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&dryRun, "dry-run", "n", false, "Plan destinations without creating folders or moving files")
	cmd.Flags().IntVarP(&workers, "workers", "w", 1, "Number of files processed concurrently")
	cmd.Flags().StringSliceVar(&extensions, "ext", nil, "Only sort these extensions (comma separated, e.g. jpg,heic)")
	cmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable the progress bar")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run report as JSON")
	cmd.Flags().BoolVar(&details, "details", false, "List every file in the summary")
	return cmd
}

// recordHistory stores report in the ledger. Failures only produce a warning;
// the files have already been moved.
func recordHistory(ctx context.Context, cfg *config.Config, logger *slog.Logger, report *sorter.Report, interrupted bool) {
	store, err := history.Open(cfg)
	if errors.Is(err, history.ErrDisabled) {
		return
	}
	if err != nil {
		logging.WarnWithContext(logger, "history ledger unavailable", "history_open_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check paths.history_db or set history.enabled = false"),
			logging.String(logging.FieldImpact, "this run is not recorded in history"),
		)
		return
	}
	defer store.Close()

	if err := store.RecordRun(ctx, report, interrupted); err != nil {
		logging.WarnWithContext(logger, "failed to record run", "history_write_failed",
			logging.String(logging.FieldRunID, report.RunID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "this run is not recorded in history"),
		)
	}
}
