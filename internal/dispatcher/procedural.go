package dispatcher

import (
	"context"
	"fmt"

	"github.com/taskpilot-dev/taskpilot/internal/branch"
	"github.com/taskpilot-dev/taskpilot/internal/preflight"
	"github.com/taskpilot-dev/taskpilot/internal/taskdb"
)

// isProceduralTransition reports whether transition is a QA-run transition
// backed by a deterministic shell stage — never an agent turn.
func isProceduralTransition(transition string) bool {
	_, ok := preflight.Stages[transition]
	return ok
}

// dispatchProcedural runs the deterministic QA stage for in.Transition and
// synthesizes its execution result with no LLM call.
func (d *Dispatcher) dispatchProcedural(ctx context.Context, in Input) (Outcome, error) {
	if in.Task != nil {
		if err := d.checkoutTaskBranch(ctx, in.Transition, in.Task); err != nil {
			return Outcome{}, err
		}
	}

	result, err := preflight.Run(ctx, d.deps.WorkspaceRoot, in.Transition)
	if err != nil {
		return Outcome{}, fmt.Errorf("dispatcher: procedural run %q: %w", in.Transition, err)
	}

	_, patch, report := preflight.Synthesize(in.Transition, result)

	summary := d.mask(report.Summary)
	report.TestReport.Notes = d.mask(report.TestReport.Notes)

	if in.Task != nil {
		entry := taskdb.ActionLogEntry{
			Actor:   "procedural-qa",
			Summary: summary,
			Success: result.Pass,
		}
		if err := d.deps.Tasks.AppendActionLog(ctx, in.Task.ID, entry); err != nil {
			d.deps.Logger.Warn("dispatcher: append action log failed", "task", in.Task.ID, "error", err)
		}
	}

	merged := map[string]any(patch)
	lastTestResult := "failed"
	if result.Pass {
		lastTestResult = "passed"
	}
	merged["lastTestResult"] = lastTestResult
	merged["testReport"] = report.TestReport
	mergeTaskContext(merged, in.Task)

	return Outcome{ContextPatch: merged, Success: result.Pass, Summary: summary}, nil
}

// checkoutTaskBranch resolves a task's branch name (deriving one if the
// task record has none yet) and ensures it is checked out before
// branch-requiring work runs.
func (d *Dispatcher) checkoutTaskBranch(ctx context.Context, transition string, task *taskdb.Task) error {
	if d.deps.Branches == nil {
		return nil
	}
	name := task.Branch
	if name == "" {
		name = branch.DeriveName(task.ID, task.Title)
	}
	if err := d.deps.Branches.EnsureTaskBranchCheckedOut(ctx, transition, name); err != nil {
		return fmt.Errorf("dispatcher: checking out branch for %q: %w", transition, err)
	}
	return nil
}

// mergeTaskContext writes the post-dispatch task-identity keys required
// after any transition that acted on a task: currentTaskId,
// currentTask, and currentTaskBranch.
func mergeTaskContext(patch map[string]any, task *taskdb.Task) {
	if task == nil {
		return
	}
	patch["currentTaskId"] = task.ID
	patch["currentTask"] = task
	if task.Branch != "" {
		patch["currentTaskBranch"] = task.Branch
	} else {
		patch["currentTaskBranch"] = branch.DeriveName(task.ID, task.Title)
	}
}
