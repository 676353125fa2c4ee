package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"mediasort/internal/dating"
	"mediasort/internal/sorter"
)

var (
	// ErrRunNotFound is returned when no run matches an id or prefix.
	ErrRunNotFound = errors.New("run not found")
	// ErrAmbiguousRunID is returned when a prefix matches several runs.
	ErrAmbiguousRunID = errors.New("run id prefix is ambiguous")
)

const runColumns = "id, source, destination, started_at, finished_at, total, moved, planned, failed, dry_run, interrupted"

// RecordRun stores report and its outcomes in one transaction. interrupted
// marks a run that was cancelled part way.
func (s *Store) RecordRun(ctx context.Context, report *sorter.Report, interrupted bool) error {
	if report == nil {
		return errors.New("record run: nil report")
	}
	ctx = ensureContext(ctx)
	return retryOnBusy(ctx, func() error {
		return s.recordRunTx(ctx, report, interrupted)
	})
}

func (s *Store) recordRunTx(ctx context.Context, report *sorter.Report, interrupted bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin record tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	sum := report.Summary
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.RunID,
		report.Source,
		report.Destination,
		formatTime(report.StartedAt),
		formatTime(report.FinishedAt),
		sum.Total,
		sum.Moved,
		sum.Planned,
		sum.Failed,
		boolToInt(report.DryRun),
		boolToInt(interrupted),
	); err != nil {
		return fmt.Errorf("insert run %s: %w", report.RunID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO outcomes
		(run_id, seq, source, destination, date, date_source, date_field, state, error_kind, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare outcome insert: %w", err)
	}
	defer stmt.Close()

	for i, out := range report.Outcomes {
		if _, err := stmt.ExecContext(ctx,
			report.RunID,
			i,
			out.Source,
			nullableString(out.Destination),
			out.DateText,
			string(out.DateSource),
			nullableString(out.DateField),
			string(out.State),
			nullableString(out.Kind),
			nullableString(out.Reason),
		); err != nil {
			return fmt.Errorf("insert outcome %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run %s: %w", report.RunID, err)
	}
	return nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	ctx = ensureContext(ctx)
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// FindRun returns the run whose id equals idOrPrefix, or the single run whose
// id starts with it.
func (s *Store) FindRun(ctx context.Context, idOrPrefix string) (Run, error) {
	ctx = ensureContext(ctx)
	if idOrPrefix == "" {
		return Run{}, ErrRunNotFound
	}
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, idOrPrefix)
	run, err := scanRun(row)
	if err == nil {
		return run, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Run{}, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE substr(id, 1, ?) = ? LIMIT 2`,
		len(idOrPrefix), idOrPrefix,
	)
	if err != nil {
		return Run{}, fmt.Errorf("find run %s: %w", idOrPrefix, err)
	}
	defer rows.Close()

	var matches []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return Run{}, err
		}
		matches = append(matches, run)
	}
	if err := rows.Err(); err != nil {
		return Run{}, err
	}
	switch len(matches) {
	case 0:
		return Run{}, fmt.Errorf("%w: %s", ErrRunNotFound, idOrPrefix)
	case 1:
		return matches[0], nil
	default:
		return Run{}, fmt.Errorf("%w: %s", ErrAmbiguousRunID, idOrPrefix)
	}
}

// RunEntries returns the outcomes of runID in scan order.
func (s *Store) RunEntries(ctx context.Context, runID string) ([]Entry, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, seq, source, destination, date, date_source,
		date_field, state, error_kind, error FROM outcomes WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("list outcomes for %s: %w", runID, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			entry       Entry
			destination sql.NullString
			dateField   sql.NullString
			errorKind   sql.NullString
			errorText   sql.NullString
			dateSource  string
			state       string
		)
		if err := rows.Scan(
			&entry.RunID,
			&entry.Seq,
			&entry.Source,
			&destination,
			&entry.Date,
			&dateSource,
			&dateField,
			&state,
			&errorKind,
			&errorText,
		); err != nil {
			return nil, err
		}
		entry.Destination = destination.String
		entry.DateField = dateField.String
		entry.ErrorKind = errorKind.String
		entry.Error = errorText.String
		entry.DateSource = dating.Source(dateSource)
		entry.State = sorter.State(state)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Clear deletes every recorded run and returns how many were removed.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	ctx = ensureContext(ctx)
	var removed int64
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin clear tx: %w", err)
		}
		defer func() { _ = tx.Rollback() }()
		if _, err := tx.ExecContext(ctx, `DELETE FROM outcomes`); err != nil {
			return fmt.Errorf("clear outcomes: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM runs`)
		if err != nil {
			return fmt.Errorf("clear runs: %w", err)
		}
		if removed, err = res.RowsAffected(); err != nil {
			return err
		}
		return tx.Commit()
	})
	return removed, err
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		run         Run
		startedRaw  string
		finishedRaw string
		dryRun      int
		interrupted int
	)
	if err := scanner.Scan(
		&run.ID,
		&run.Source,
		&run.Destination,
		&startedRaw,
		&finishedRaw,
		&run.Total,
		&run.Moved,
		&run.Planned,
		&run.Failed,
		&dryRun,
		&interrupted,
	); err != nil {
		return Run{}, err
	}
	run.DryRun = dryRun != 0
	run.Interrupted = interrupted != 0
	if started, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = started
	}
	if finished, err := parseTimeString(finishedRaw); err == nil {
		run.FinishedAt = finished
	}
	return run, nil
}

// timeLayout keeps a fixed-width fraction so stored values sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
