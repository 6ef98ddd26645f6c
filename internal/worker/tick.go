package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/taskpilot-dev/taskpilot/internal/contextstore"
	"github.com/taskpilot-dev/taskpilot/internal/dispatcher"
	"github.com/taskpilot-dev/taskpilot/internal/selector"
	"github.com/taskpilot-dev/taskpilot/internal/taskdb"
	"github.com/taskpilot-dev/taskpilot/internal/workflow"
)

// Dependencies wires one Worker (and its owning Pool) to the rest of the
// orchestrator core.
type Dependencies struct {
	Tasks      taskdb.Store
	Contexts   contextstore.Store
	Graph      *workflow.Graph
	Dispatcher *dispatcher.Dispatcher
	Logger     *slog.Logger
}

const maxClaimRetries = 5

// tick runs one full iteration of the worker loop's step sequence. It
// returns an error only for conditions the caller should log and then
// sleep normally for — every internal failure is caught and folded into a
// log line; all exceptions inside a tick are caught, logged, and the loop
// continues.
func (w *Worker) tick(ctx context.Context) error {
	// Step 1: load tasks.
	tasks, err := w.deps.Tasks.ListTasks(ctx)
	if err != nil {
		return fmt.Errorf("worker: listing tasks: %w", err)
	}

	// Step 2: resolve the Workflow Context, running auto-recovery once per
	// context if this worker has no in-memory state yet.
	wfCtx, err := w.deps.Contexts.Get(ctx, w.cfg.ContextID)
	if err != nil {
		return fmt.Errorf("worker: loading context %q: %w", w.cfg.ContextID, err)
	}
	if w.state == "" {
		w.state = workflow.StateThemesProposed
	}
	if (w.state == workflow.StateThemesProposed || w.state == workflow.StateNewFeatureProposed) &&
		!w.cfg.ClaimMode && !truthy(wfCtx["autoRecovered"]) {
		recovered := selector.DeriveRecoveryState(tasks)
		patch := map[string]any{"autoRecovered": true}
		if recovered.TaskID != "" {
			if t, err := w.deps.Tasks.GetTask(ctx, recovered.TaskID); err == nil {
				patch["currentTaskId"] = t.ID
				patch["currentTask"] = t
				if t.Branch != "" {
					patch["currentTaskBranch"] = t.Branch
				}
			}
		}
		w.state = recovered.State
		wfCtx, err = w.deps.Contexts.Patch(ctx, w.cfg.ContextID, patch)
		if err != nil {
			return fmt.Errorf("worker: persisting auto-recovery patch: %w", err)
		}
	}

	// Step 3: invoke the decider.
	dec := decide(w.deps.Graph, w.state, tasks, wfCtx)
	w.deps.Logger.Info("tick", "worker", w.id, "state", w.state, "transition", dec.transition, "tasks", len(tasks))
	if !dec.ok {
		w.deps.Logger.Warn("worker: no transition available for state, sleeping", "worker", w.id, "state", w.state)
		return nil
	}

	// Step 4: resolve next state / target type.
	nextState := w.deps.Graph.NextState(w.state, dec.transition)
	targetType := w.deps.Graph.TargetTypeFor(w.state, dec.transition)

	// Step 5: resolve the task.
	preferredID, _ := wfCtx["currentTaskId"].(string)
	preferPreferred := workflow.QATrackedTransitions[dec.transition]
	excluded := map[string]bool{}
	transition := dec.transition

	var task *taskdb.Task
	for attempt := 0; attempt < maxClaimRetries; attempt++ {
		candidate, found := selector.SelectTaskForState(selector.Input{
			Tasks:                         tasks,
			TargetType:                    targetType,
			PreferredTaskID:               preferredID,
			PreferPreferred:               preferPreferred,
			RestrictInProgressToPreferred: w.cfg.ClaimMode,
			ExcludedIDs:                   excluded,
		})

		// Step 5b/5c: walk the fallback chain (e.g. begin-implementation's
		// declared fallback to need-more-tasks) while the transition
		// requires a task and none was found.
		if !found && !w.deps.Graph.CanRunWithoutTask(transition) {
			if fb, ok := w.deps.Graph.FallbackTransition(w.state, transition); ok {
				transition = fb
				targetType = w.deps.Graph.TargetTypeFor(w.state, transition)
				continue
			}
		}

		// Step 5d: still nothing and the transition needs a task — throttled
		// no-task heartbeat, then stop this tick.
		if !found && !w.deps.Graph.CanRunWithoutTask(transition) {
			w.maybeLogNoTaskWait()
			return nil
		}

		if !found {
			break // transition runs without a task (e.g. need-more-tasks)
		}

		// Step 5e: claim mode.
		if !w.cfg.ClaimMode {
			task = &candidate
			break
		}
		claimed, err := w.deps.Tasks.ClaimTask(ctx, candidate.ID, w.id)
		if err == nil {
			task = &claimed
			break
		}
		if err != taskdb.ErrClaimConflict {
			return fmt.Errorf("worker: claiming task %q: %w", candidate.ID, err)
		}
		reason := classifyClaimRejection(candidate.ID, w.id, tasks)
		w.deps.Logger.Warn("worker: claim rejected", "worker", w.id, "task", candidate.ID, "reason", reason)
		excluded[candidate.ID] = true
	}

	// Step 6: nothing runnable at all and we're idling on pick-up-next-task
	// — skip the tick rather than dispatching a no-op.
	if transition == workflow.TransitionPickUpNextTask && !anyRunnable(tasks) {
		return nil
	}

	// Step 7: dispatch.
	outcome, err := w.deps.Dispatcher.Dispatch(ctx, dispatcher.Input{
		State:      w.state,
		Transition: transition,
		Task:       task,
		Context:    wfCtx,
	})
	if err != nil {
		return fmt.Errorf("worker: dispatching %q: %w", transition, err)
	}

	patch := outcome.ContextPatch
	if patch == nil {
		patch = map[string]any{}
	}
	if flag, ok := reviewFlagFor(transition); ok && outcome.Success {
		patch[flag] = true
	}
	if len(patch) > 0 {
		if _, err := w.deps.Contexts.Patch(ctx, w.cfg.ContextID, patch); err != nil {
			return fmt.Errorf("worker: persisting context patch: %w", err)
		}
	}

	// Step 8: advance the in-memory token state.
	w.state = nextState

	w.mu.Lock()
	w.ticksProcessed++
	w.lastActivity = time.Now()
	w.mu.Unlock()

	return nil
}

func anyRunnable(tasks []taskdb.Task) bool {
	byID := make(map[string]taskdb.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}
	for _, t := range tasks {
		if taskdb.Runnable(t, byID) {
			return true
		}
	}
	return false
}

func truthy(v any) bool {
	b, _ := v.(bool)
	return b
}

func (w *Worker) maybeLogNoTaskWait() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if time.Since(w.lastNoTaskLog) < w.cfg.NoTaskHeartbeatInterval {
		return
	}
	w.lastNoTaskLog = time.Now()
	w.deps.Logger.Info("worker: no runnable task for state, waiting", "worker", w.id, "state", w.state)
}
