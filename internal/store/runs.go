package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const defaultRunListLimit = 50

// RecordRunStart inserts a new run row and returns it with a fresh id.
func (s *Store) RecordRunStart(ctx context.Context, service, instance string, dryRun bool) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		Service:   service,
		Instance:  instance,
		DryRun:    dryRun,
		StartedAt: time.Now().UTC(),
	}

	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO runs (id, service, instance, dry_run, started_at)
         VALUES (?, ?, ?, ?, ?)`,
		run.ID,
		run.Service,
		run.Instance,
		boolToInt(run.DryRun),
		run.StartedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// RecordRunFinish closes out a run with its counters and optional error text.
func (s *Store) RecordRunFinish(ctx context.Context, id string, counters Counters, errorMessage string) error {
	if id == "" {
		return errors.New("run id is empty")
	}
	_, err := s.execWithRetry(
		ctx,
		`UPDATE runs
         SET finished_at = ?, total = ?, updated = ?, planned = ?, skipped = ?,
             searched = ?, failed = ?, error_message = ?
         WHERE id = ?`,
		time.Now().UTC().Format(time.RFC3339Nano),
		counters.Total,
		counters.Updated,
		counters.Planned,
		counters.Skipped,
		counters.Searched,
		counters.Failed,
		nullableString(errorMessage),
		id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	return nil
}

// GetRun fetches a run by identifier, nil when absent.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = defaultRunListLimit
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, id LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

const runColumns = "id, service, instance, dry_run, started_at, finished_at, total, updated, planned, skipped, searched, failed, error_message"

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		id          string
		service     string
		instance    string
		dryRun      int
		startedRaw  string
		finishedRaw sql.NullString
		counters    Counters
		errMessage  sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&service,
		&instance,
		&dryRun,
		&startedRaw,
		&finishedRaw,
		&counters.Total,
		&counters.Updated,
		&counters.Planned,
		&counters.Skipped,
		&counters.Searched,
		&counters.Failed,
		&errMessage,
	); err != nil {
		return nil, err
	}

	run := &Run{
		ID:           id,
		Service:      service,
		Instance:     instance,
		DryRun:       dryRun != 0,
		Counters:     counters,
		ErrorMessage: errMessage.String,
	}
	if started, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = started
	}
	if finishedRaw.Valid {
		if finished, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = &finished
		}
	}
	return run, nil
}
