package state

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Adr1an04/boomai/pkg/models"
)

// RunRunning is the status of a run that has started but not finished.
const RunRunning = "running"

// RunInterrupted marks a run the process never finished.
const RunInterrupted = "interrupted"

// ErrRunNotFound is returned when a run id is unknown.
var ErrRunNotFound = errors.New("run not found")

// Run is one journaled orchestration.
type Run struct {
	ID         string     `json:"id"`
	Input      string     `json:"input"`
	Policy     string     `json:"policy"`
	Status     string     `json:"status"`
	Message    string     `json:"message"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Duration returns how long the run took, or zero while it is running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// StartRun records a new run in the running state.
func (db *DB) StartRun(ctx context.Context, runID, input, policy string, startedAt time.Time) error {
	_, err := db.Exec(ctx, `
		INSERT INTO runs (id, input, policy, status, started_at)
		VALUES (?, ?, ?, ?, ?)
	`, runID, input, policy, RunRunning, formatTime(startedAt))
	if err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	return nil
}

// RecordStep stores one executed step. Recording the same step twice
// replaces the earlier row.
func (db *DB) RecordStep(ctx context.Context, runID string, step models.StepRecord) error {
	var votes sql.NullString
	if step.Votes != nil {
		data, err := json.Marshal(step.Votes)
		if err != nil {
			return fmt.Errorf("marshal votes: %w", err)
		}
		votes = sql.NullString{String: string(data), Valid: true}
	}

	_, err := db.Exec(ctx, `
		INSERT OR REPLACE INTO steps (run_id, step_id, text, rendered, kind, tool, strategy, result, verdict, votes, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, runID, step.ID, step.Text, step.Rendered, string(step.Kind), string(step.Tool),
		step.Strategy, step.Result, step.Verdict, votes, step.Failed)
	if err != nil {
		return fmt.Errorf("record step %d: %w", step.ID, err)
	}
	return nil
}

// FinishRun stores the terminal status and message of a run.
func (db *DB) FinishRun(ctx context.Context, runID string, status models.StatusKind, message string, finishedAt time.Time) error {
	result, err := db.Exec(ctx, `
		UPDATE runs SET status = ?, message = ?, finished_at = ?
		WHERE id = ?
	`, string(status), message, formatTime(finishedAt), runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", runID, ErrRunNotFound)
	}
	return nil
}

// GetRun retrieves a run by id.
func (db *DB) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := db.QueryRow(ctx, `
		SELECT id, input, policy, status, message, started_at, finished_at
		FROM runs WHERE id = ?
	`, runID)

	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get run %s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return r, nil
}

// ListRuns returns the most recent runs first. A non-positive limit
// returns every run.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `
		SELECT id, input, policy, status, message, started_at, finished_at
		FROM runs ORDER BY started_at DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// Steps returns the recorded steps of a run in execution order.
func (db *DB) Steps(ctx context.Context, runID string) ([]models.StepRecord, error) {
	rows, err := db.Query(ctx, `
		SELECT step_id, text, rendered, kind, tool, strategy, result, verdict, votes, failed
		FROM steps WHERE run_id = ? ORDER BY step_id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("list steps: %w", err)
	}
	defer rows.Close()

	var steps []models.StepRecord
	for rows.Next() {
		var s models.StepRecord
		var kind, tool string
		var votes sql.NullString
		if err := rows.Scan(&s.ID, &s.Text, &s.Rendered, &kind, &tool, &s.Strategy, &s.Result, &s.Verdict, &votes, &s.Failed); err != nil {
			return nil, fmt.Errorf("scan step: %w", err)
		}
		s.Kind = models.StepKind(kind)
		s.Tool = models.ToolKind(tool)
		if votes.Valid {
			var v models.VoteStats
			if err := json.Unmarshal([]byte(votes.String), &v); err != nil {
				return nil, fmt.Errorf("decode votes for step %d: %w", s.ID, err)
			}
			s.Votes = &v
		}
		steps = append(steps, s)
	}
	return steps, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var r Run
	var startedAt string
	var finishedAt sql.NullString
	if err := s.Scan(&r.ID, &r.Input, &r.Policy, &r.Status, &r.Message, &startedAt, &finishedAt); err != nil {
		return nil, err
	}
	r.StartedAt, _ = parseTime(startedAt)
	r.FinishedAt = parseNullableTime(finishedAt)
	return &r, nil
}

// MarkInterrupted closes out runs left in the running state by a process
// that exited before finishing them. Returns the ids it updated.
func (db *DB) MarkInterrupted(ctx context.Context, now time.Time) ([]string, error) {
	var ids []string
	err := db.Transaction(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `SELECT id FROM runs WHERE status = ? ORDER BY started_at`, RunRunning)
		if err != nil {
			return fmt.Errorf("find running runs: %w", err)
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("scan run id: %w", err)
			}
			ids = append(ids, id)
		}
		if err := rows.Close(); err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE runs SET status = ?, message = ?, finished_at = ?
			WHERE status = ?
		`, RunInterrupted, "The run was interrupted.", formatTime(now), RunRunning)
		if err != nil {
			return fmt.Errorf("mark interrupted: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}
