package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/taskpilot-dev/taskpilot/internal/taskdb"
)

const taskColumns = `id, title, description, priority, type, status, dependency_ids, branch, assigned_worker, action_log, updated_at`

// ListTasks returns every task visible to the orchestrator.
func (s *Store) ListTasks(ctx context.Context) ([]taskdb.Task, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+taskColumns+` FROM tasks ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("taskdb/postgres: list tasks: %w", err)
	}
	defer rows.Close()

	var out []taskdb.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("taskdb/postgres: scan task: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// GetTask returns a single task by id.
func (s *Store) GetTask(ctx context.Context, id string) (taskdb.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return taskdb.Task{}, taskdb.ErrNotFound
	}
	if err != nil {
		return taskdb.Task{}, fmt.Errorf("taskdb/postgres: get task: %w", err)
	}
	return t, nil
}

// UpdateTaskStatus transitions a task's status, recording who changed it.
func (s *Store) UpdateTaskStatus(ctx context.Context, id string, status taskdb.Status, changedBy string) error {
	now := time.Now()
	entry := taskdb.ActionLogEntry{
		Timestamp: now,
		Actor:     changedBy,
		Summary:   "status -> " + string(status),
		Success:   true,
	}
	entryJSON, err := json.Marshal([]taskdb.ActionLogEntry{entry})
	if err != nil {
		return fmt.Errorf("taskdb/postgres: marshal action log entry: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks
		SET status = $1,
		    updated_at = $2,
		    action_log = action_log || $3::jsonb
		WHERE id = $4`,
		status, now, entryJSON, id)
	if err != nil {
		return fmt.Errorf("taskdb/postgres: update task status: %w", err)
	}
	return requireRowAffected(res)
}

// UpdateTask applies a partial field patch.
func (s *Store) UpdateTask(ctx context.Context, id string, patch taskdb.TaskPatch, changedBy string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("taskdb/postgres: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var t taskdb.Task
	row := tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1 FOR UPDATE`, id)
	if t, err = scanTask(row); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return taskdb.ErrNotFound
		}
		return fmt.Errorf("taskdb/postgres: lock task: %w", err)
	}

	if patch.Branch != nil {
		t.Branch = *patch.Branch
	}
	if patch.DependencyIDs != nil {
		t.DependencyIDs = append([]string(nil), (*patch.DependencyIDs)...)
	}
	if patch.Title != nil {
		t.Title = *patch.Title
	}
	if patch.Description != nil {
		t.Description = *patch.Description
	}
	if patch.Priority != nil {
		t.Priority = *patch.Priority
	}
	t.UpdatedAt = time.Now()
	t.ActionLog = append(t.ActionLog, taskdb.ActionLogEntry{
		Timestamp: t.UpdatedAt,
		Actor:     changedBy,
		Summary:   "task updated",
		Success:   true,
	})

	depsJSON, err := json.Marshal(t.DependencyIDs)
	if err != nil {
		return fmt.Errorf("taskdb/postgres: marshal dependency ids: %w", err)
	}
	logJSON, err := json.Marshal(t.ActionLog)
	if err != nil {
		return fmt.Errorf("taskdb/postgres: marshal action log: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE tasks
		SET title = $1, description = $2, priority = $3, branch = $4,
		    dependency_ids = $5::jsonb, action_log = $6::jsonb, updated_at = $7
		WHERE id = $8`,
		t.Title, t.Description, t.Priority, t.Branch, depsJSON, logJSON, t.UpdatedAt, id)
	if err != nil {
		return fmt.Errorf("taskdb/postgres: update task: %w", err)
	}

	return tx.Commit()
}

// ClaimTask atomically assigns a task to workerID, mirroring
// internal/taskdb/memory.Store.ClaimTask's conflict and dependency checks
// inside a SELECT ... FOR UPDATE transaction.
func (s *Store) ClaimTask(ctx context.Context, id string, workerID string) (taskdb.Task, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return taskdb.Task{}, fmt.Errorf("taskdb/postgres: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1 FOR UPDATE`, id)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return taskdb.Task{}, taskdb.ErrNotFound
	}
	if err != nil {
		return taskdb.Task{}, fmt.Errorf("taskdb/postgres: lock task: %w", err)
	}

	if t.AssignedWorker != "" && t.AssignedWorker != workerID {
		return taskdb.Task{}, taskdb.ErrClaimConflict
	}
	if t.Status != taskdb.StatusTodo && t.Status != taskdb.StatusInProgress {
		return taskdb.Task{}, taskdb.ErrClaimConflict
	}
	for _, depID := range t.DependencyIDs {
		dep, err := getTaskForUpdate(ctx, tx, depID)
		if err != nil || (dep.Status != taskdb.StatusDone && dep.Status != taskdb.StatusInvalid) {
			return taskdb.Task{}, taskdb.ErrClaimConflict
		}
	}

	t.AssignedWorker = workerID
	if t.Status == taskdb.StatusTodo {
		t.Status = taskdb.StatusInProgress
	}
	t.UpdatedAt = time.Now()

	_, err = tx.ExecContext(ctx, `
		UPDATE tasks
		SET assigned_worker = $1, status = $2, updated_at = $3
		WHERE id = $4`,
		t.AssignedWorker, t.Status, t.UpdatedAt, id)
	if err != nil {
		return taskdb.Task{}, fmt.Errorf("taskdb/postgres: claim task: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return taskdb.Task{}, fmt.Errorf("taskdb/postgres: commit claim: %w", err)
	}
	return t, nil
}

// AppendActionLog appends an opaque entry to a task's action log.
func (s *Store) AppendActionLog(ctx context.Context, taskID string, entry taskdb.ActionLogEntry) error {
	entryJSON, err := json.Marshal([]taskdb.ActionLogEntry{entry})
	if err != nil {
		return fmt.Errorf("taskdb/postgres: marshal action log entry: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET action_log = action_log || $1::jsonb WHERE id = $2`,
		entryJSON, taskID)
	if err != nil {
		return fmt.Errorf("taskdb/postgres: append action log: %w", err)
	}
	return requireRowAffected(res)
}

func getTaskForUpdate(ctx context.Context, tx *sql.Tx, id string) (taskdb.Task, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = $1 FOR UPDATE`, id)
	return scanTask(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (taskdb.Task, error) {
	var t taskdb.Task
	var depsJSON, logJSON []byte
	if err := row.Scan(
		&t.ID, &t.Title, &t.Description, &t.Priority, &t.Type, &t.Status,
		&depsJSON, &t.Branch, &t.AssignedWorker, &logJSON, &t.UpdatedAt,
	); err != nil {
		return taskdb.Task{}, err
	}
	if len(depsJSON) > 0 {
		if err := json.Unmarshal(depsJSON, &t.DependencyIDs); err != nil {
			return taskdb.Task{}, fmt.Errorf("unmarshal dependency_ids: %w", err)
		}
	}
	if len(logJSON) > 0 {
		if err := json.Unmarshal(logJSON, &t.ActionLog); err != nil {
			return taskdb.Task{}, fmt.Errorf("unmarshal action_log: %w", err)
		}
	}
	return t, nil
}

func requireRowAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("taskdb/postgres: rows affected: %w", err)
	}
	if n == 0 {
		return taskdb.ErrNotFound
	}
	return nil
}

var _ taskdb.Store = (*Store)(nil)
