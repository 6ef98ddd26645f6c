package taskdb

import (
	"context"
	"errors"
)

// Sentinel errors callers branch on: small, typed conditions rather than
// opaque wrapped errors.
var (
	// ErrNotFound indicates no task exists with the given id.
	ErrNotFound = errors.New("taskdb: task not found")

	// ErrClaimConflict indicates a claim was rejected because another
	// worker holds the task, its status is not claimable, or its
	// dependencies are unsatisfied.
	ErrClaimConflict = errors.New("taskdb: claim rejected")

	// ErrClaimStale indicates the claim target no longer matches the
	// caller's view of the task (lease expired or status changed).
	ErrClaimStale = errors.New("taskdb: claim stale")
)

// ClaimRejectReason classifies why ClaimTask failed, for worker-loop
// bookkeeping.
type ClaimRejectReason string

// Claim rejection reasons.
const (
	ClaimRejectOwnedByOther    ClaimRejectReason = "claimed-by-other"
	ClaimRejectNonClaimable    ClaimRejectReason = "non-claimable-status"
	ClaimRejectDepsUnsatisfied ClaimRejectReason = "deps-unsatisfied"
	ClaimRejectStale           ClaimRejectReason = "stale"
)

// Store is the contract the core consumes from the task database.
// Reference adapters live in ./memory and ./postgres.
type Store interface {
	// ListTasks returns every task visible to the orchestrator.
	ListTasks(ctx context.Context) ([]Task, error)

	// GetTask returns a single task by id.
	GetTask(ctx context.Context, id string) (Task, error)

	// UpdateTaskStatus transitions a task's status, recording who changed it.
	UpdateTaskStatus(ctx context.Context, id string, status Status, changedBy string) error

	// UpdateTask patches arbitrary fields (branch, dependencies, metadata).
	UpdateTask(ctx context.Context, id string, patch TaskPatch, changedBy string) error

	// ClaimTask atomically assigns a task to workerID. Succeeds only if the
	// task is unassigned or already assigned to workerID, its status is
	// todo or in-progress, and its dependencies are satisfied.
	ClaimTask(ctx context.Context, id string, workerID string) (Task, error)

	// AppendActionLog appends an opaque entry to a task's action log.
	AppendActionLog(ctx context.Context, taskID string, entry ActionLogEntry) error
}

// TaskPatch carries optional field updates for UpdateTask. Nil fields are
// left untouched.
type TaskPatch struct {
	Branch        *string
	DependencyIDs *[]string
	Title         *string
	Description   *string
	Priority      *Priority
}
