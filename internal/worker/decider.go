package worker

import (
	"github.com/taskpilot-dev/taskpilot/internal/selector"
	"github.com/taskpilot-dev/taskpilot/internal/taskdb"
	"github.com/taskpilot-dev/taskpilot/internal/workflow"
)

// decision is the decider's result: a transition name and whether it was
// chosen by the decider (as opposed to being the state's only edge).
type decision struct {
	transition string
	isDecider  bool
	ok         bool // false means "no transition available, sleep and continue"
}

// qaOutcomeStates lists every state whose two outgoing edges are a QA-pass
// forward edge and a QA-fail remediation edge, keyed by which transition is
// "the failure edge" — decided purely from ctx["lastTestResult"], a
// decider specialized for the mechanical QA chain rather
// than an LLM choice).
var qaOutcomeStates = map[string]struct{ forward, failed string }{
	workflow.StateLintCompleted:      {workflow.TransitionRunTypecheck, workflow.TransitionLintFailed},
	workflow.StateTypecheckCompleted: {workflow.TransitionRunUnitTests, workflow.TransitionTypecheckFailed},
	workflow.StateUnitTestsCompleted: {workflow.TransitionRunE2ETests, workflow.TransitionUnitTestsFailed},
	workflow.StateE2ETestsCompleted:  {workflow.TransitionEnsureCoverage, workflow.TransitionE2ETestsFailed},
	workflow.StateCoverageCompleted:  {workflow.TransitionTestsPassing, workflow.TransitionCoverageFailed},
}

// decide chooses the next transition given the current state, the full
// task list, and the workflow context.
// For states with exactly one outgoing edge, that edge always fires. For
// the QA pass/fail pairs, ctx["lastTestResult"] picks the edge. For the
// two multi-way states (tasks-prepared, stories-prioritized) a one-shot
// review gate runs before the graph's forward edge, tracked by a context
// flag the worker sets once that review transition dispatches.
func decide(g *workflow.Graph, state string, tasks []taskdb.Task, ctx map[string]any) decision {
	def, ok := g.State(state)
	if !ok || len(def.Transitions) == 0 {
		return decision{}
	}

	if pair, isQA := qaOutcomeStates[state]; isQA {
		if lastTestResult(ctx) == "failed" {
			return decision{transition: pair.failed, ok: true}
		}
		return decision{transition: pair.forward, ok: true}
	}

	switch state {
	case workflow.StateTasksPrepared:
		return decideTasksPrepared(tasks, ctx)
	case workflow.StateStoriesPrioritized:
		return decideStoriesPrioritized(ctx)
	}

	if len(def.Transitions) == 1 {
		for name := range def.Transitions {
			return decision{transition: name, isDecider: name == def.DeciderName, ok: true}
		}
	}

	// Unreached for the built-in graph; any future multi-edge state needs
	// its own case above — an unknown decider outcome is log-and-skip-tick
	// at the caller.
	return decision{}
}

func lastTestResult(ctx map[string]any) string {
	v, _ := ctx["lastTestResult"].(string)
	return v
}

// decideTasksPrepared picks among close-invalid-task, review-task-validity
// (the decider edge, run once per fresh batch), need-more-tasks, and
// begin-implementation.
func decideTasksPrepared(tasks []taskdb.Task, ctx map[string]any) decision {
	if _, ok := selector.SelectInvalidTaskForClosure(tasks); ok {
		return decision{transition: workflow.TransitionCloseInvalidTask, ok: true}
	}

	_, hasCandidate := selector.SelectTaskForState(selector.Input{
		Tasks:      tasks,
		TargetType: taskdb.TypeImplementation,
	})
	if !hasCandidate {
		if reviewed, _ := ctx["taskValidityReviewed"].(bool); !reviewed {
			return decision{transition: workflow.TransitionReviewTaskValidity, isDecider: true, ok: true}
		}
		return decision{transition: workflow.TransitionNeedMoreTasks, ok: true}
	}
	return decision{transition: workflow.TransitionBeginImplementation, ok: true}
}

// decideStoriesPrioritized picks between review-story-coverage (the
// decider edge, run once per fresh batch) and refine-into-tasks.
func decideStoriesPrioritized(ctx map[string]any) decision {
	if reviewed, _ := ctx["storyCoverageReviewed"].(bool); !reviewed {
		return decision{transition: workflow.TransitionReviewStoryCoverage, isDecider: true, ok: true}
	}
	return decision{transition: workflow.TransitionRefineIntoTasks, ok: true}
}

// reviewFlagFor names the context flag a one-shot decider review
// transition sets after it dispatches, so decide() doesn't pick it again
// for this batch.
func reviewFlagFor(transition string) (string, bool) {
	switch transition {
	case workflow.TransitionReviewTaskValidity:
		return "taskValidityReviewed", true
	case workflow.TransitionReviewStoryCoverage:
		return "storyCoverageReviewed", true
	default:
		return "", false
	}
}

// classifyClaimRejection infers why ClaimTask rejected id — the Store
// interface doesn't return the reason directly, so the worker loop
// re-derives it from the task list for logging.
func classifyClaimRejection(id, workerID string, tasks []taskdb.Task) taskdb.ClaimRejectReason {
	byID := make(map[string]taskdb.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	t, ok := byID[id]
	if !ok {
		return taskdb.ClaimRejectStale
	}
	if t.AssignedWorker != "" && t.AssignedWorker != workerID {
		return taskdb.ClaimRejectOwnedByOther
	}
	if t.Status != taskdb.StatusTodo && t.Status != taskdb.StatusInProgress {
		return taskdb.ClaimRejectNonClaimable
	}
	for _, depID := range t.DependencyIDs {
		dep, exists := byID[depID]
		if !exists || (dep.Status != taskdb.StatusDone && dep.Status != taskdb.StatusInvalid) {
			return taskdb.ClaimRejectDepsUnsatisfied
		}
	}
	return taskdb.ClaimRejectStale
}
