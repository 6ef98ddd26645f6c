package dispatcher

import (
	"context"

	"github.com/taskpilot-dev/taskpilot/internal/taskdb"
	"github.com/taskpilot-dev/taskpilot/internal/workflow"
)

// dispatchControl handles tests-passing and pick-up-next-task: neither
// touches the agent runtime or procedural QA. tests-passing additionally
// marks the task done, returns to main, and clears every context key tied
// to the task it just closed; pick-up-next-task only clears the transient
// QA keys a previous procedural run left behind.
func (d *Dispatcher) dispatchControl(ctx context.Context, in Input) (Outcome, error) {
	patch := map[string]any{
		"mechanicalQaPreflightResults": nil,
		"mechanicalTestLintResults":    nil,
		"mechanicalQaPreflightStage":   nil,
		"lastTestResult":               nil,
		"testReport":                   nil,
	}

	if in.Transition != workflow.TransitionTestsPassing {
		return Outcome{ContextPatch: patch, Success: true, Summary: in.Transition}, nil
	}

	if in.Task != nil {
		if err := d.deps.Tasks.UpdateTaskStatus(ctx, in.Task.ID, taskdb.StatusDone, "workflow"); err != nil {
			return Outcome{}, err
		}
		if d.deps.Branches != nil {
			if err := d.deps.Branches.CheckoutMainBranch(ctx, in.Transition); err != nil {
				d.deps.Logger.Warn("dispatcher: checkout main branch failed", "transition", in.Transition, "error", err)
			}
		}
	}

	patch["currentTaskId"] = nil
	patch["currentTask"] = nil
	patch["currentTaskBranch"] = nil
	patch["testStatus"] = nil
	patch["e2eTestResultStatus"] = nil
	patch["e2e-test-result-status"] = nil
	patch["e2eTestResults"] = nil
	patch["e2e-test-results"] = nil
	patch["e2eTestFailureInvestigationReport"] = nil
	patch["e2e-test-failure-investigation-report"] = nil
	patch["mechanicalQaPreflightUpdatedAt"] = nil

	return Outcome{ContextPatch: patch, Success: true, Summary: in.Transition}, nil
}
