package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// RunStatus is the lifecycle state of one language run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// RunRecord is the history entry for one language processed by a pipeline run.
// Runs sharing a BatchID were started by the same invocation.
type RunRecord struct {
	ID           string
	BatchID      string
	Language     string
	Units        int
	Status       RunStatus
	ArtifactPath string
	ErrorMessage string
	FailureKind  string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// Duration returns how long the run took, or zero while it is running.
func (r RunRecord) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

const runColumns = "id, batch_id, language, units, status, artifact_path, error_message, failure_kind, started_at, finished_at"

// NewRun records the start of a language run. Status defaults to running and
// StartedAt to now.
func (s *Store) NewRun(ctx context.Context, run RunRecord) error {
	if run.ID == "" {
		return errors.New("run id is required")
	}
	if run.Status == "" {
		run.Status = RunRunning
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}
	_, err := s.execWithRetry(ctx,
		`INSERT INTO runs (`+runColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.BatchID,
		run.Language,
		run.Units,
		run.Status,
		nullableString(run.ArtifactPath),
		nullableString(run.ErrorMessage),
		nullableString(run.FailureKind),
		nullableTime(run.StartedAt),
		nullableTime(run.FinishedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun stamps the outcome of a run.
func (s *Store) FinishRun(ctx context.Context, id string, status RunStatus, artifactPath, errorMessage, failureKind string) error {
	res, err := s.execWithRetry(ctx,
		`UPDATE runs
         SET status = ?, artifact_path = ?, error_message = ?, failure_kind = ?, finished_at = ?
         WHERE id = ?`,
		status,
		nullableString(artifactPath),
		nullableString(errorMessage),
		nullableString(failureKind),
		now(),
		id,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("finish run: unknown id %s", id)
	}
	return nil
}

// GetRun returns a run by id, or nil when it does not exist.
func (s *Store) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	ctx = ensureContext(ctx)
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

// ListRuns returns the most recent runs first. A limit <= 0 returns all rows.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	ctx = ensureContext(ctx)
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*RunRecord, error) {
	var (
		run          RunRecord
		status       string
		artifactPath sql.NullString
		errorMessage sql.NullString
		failureKind  sql.NullString
		startedRaw   sql.NullString
		finishedRaw  sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&run.BatchID,
		&run.Language,
		&run.Units,
		&status,
		&artifactPath,
		&errorMessage,
		&failureKind,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)
	run.ArtifactPath = artifactPath.String
	run.ErrorMessage = errorMessage.String
	run.FailureKind = failureKind.String
	if started, err := parseTimeString(startedRaw.String); err == nil {
		run.StartedAt = started
	}
	if finished, err := parseTimeString(finishedRaw.String); err == nil {
		run.FinishedAt = finished
	}
	return &run, nil
}
