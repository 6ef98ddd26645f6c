// Package memory provides an in-memory taskdb.Store, used by unit tests and
// as the backend for local/single-process runs (cmd/orchestratord selects
// it when ORCHESTRATOR_TEST_MODE is set; it starts with no tasks).
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/taskpilot-dev/taskpilot/internal/taskdb"
)

// Store is a mutex-guarded map implementation of taskdb.Store.
type Store struct {
	mu    sync.Mutex
	tasks map[string]taskdb.Task
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{tasks: make(map[string]taskdb.Task)}
}

// Seed pre-populates the store — used by tests to set up fixtures.
func (s *Store) Seed(tasks ...taskdb.Task) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range tasks {
		s.tasks[t.ID] = t
	}
}

// ListTasks returns a snapshot copy of every task.
func (s *Store) ListTasks(_ context.Context) ([]taskdb.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]taskdb.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t)
	}
	return out, nil
}

// GetTask returns a single task by id.
func (s *Store) GetTask(_ context.Context, id string) (taskdb.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return taskdb.Task{}, taskdb.ErrNotFound
	}
	return t, nil
}

// UpdateTaskStatus transitions a task's status.
func (s *Store) UpdateTaskStatus(_ context.Context, id string, status taskdb.Status, changedBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return taskdb.ErrNotFound
	}
	t.Status = status
	t.UpdatedAt = time.Now()
	t.ActionLog = append(t.ActionLog, taskdb.ActionLogEntry{
		Timestamp: t.UpdatedAt,
		Actor:     changedBy,
		Summary:   "status -> " + string(status),
		Success:   true,
	})
	s.tasks[id] = t
	return nil
}

// UpdateTask applies a partial field patch.
func (s *Store) UpdateTask(_ context.Context, id string, patch taskdb.TaskPatch, changedBy string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok {
		return taskdb.ErrNotFound
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
	s.tasks[id] = t
	return nil
}

// ClaimTask atomically assigns a task to workerID when eligible.
func (s *Store) ClaimTask(_ context.Context, id string, workerID string) (taskdb.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return taskdb.Task{}, taskdb.ErrNotFound
	}
	if t.AssignedWorker != "" && t.AssignedWorker != workerID {
		return taskdb.Task{}, taskdb.ErrClaimConflict
	}
	if t.Status != taskdb.StatusTodo && t.Status != taskdb.StatusInProgress {
		return taskdb.Task{}, taskdb.ErrClaimConflict
	}
	for _, depID := range t.DependencyIDs {
		dep, exists := s.tasks[depID]
		if !exists || (dep.Status != taskdb.StatusDone && dep.Status != taskdb.StatusInvalid) {
			return taskdb.Task{}, taskdb.ErrClaimConflict
		}
	}

	t.AssignedWorker = workerID
	if t.Status == taskdb.StatusTodo {
		t.Status = taskdb.StatusInProgress
	}
	t.UpdatedAt = time.Now()
	s.tasks[id] = t
	return t, nil
}

// AppendActionLog appends an opaque entry to a task's action log.
func (s *Store) AppendActionLog(_ context.Context, taskID string, entry taskdb.ActionLogEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[taskID]
	if !ok {
		return taskdb.ErrNotFound
	}
	t.ActionLog = append(t.ActionLog, entry)
	s.tasks[taskID] = t
	return nil
}

var _ taskdb.Store = (*Store)(nil)
