// Package selector chooses which task a worker should act on next.
// Every function here is pure — no I/O, no clock reads — so the worker
// loop and its tests can drive it with an in-memory task
// list.
package selector

import (
	"sort"

	"github.com/taskpilot-dev/taskpilot/internal/taskdb"
)

// Input bundles the parameters selectTaskForState consumes.
type Input struct {
	Tasks                      []taskdb.Task
	TargetType                 taskdb.Type // empty means "no type filter"
	PreferredTaskID            string      // empty means "no preference"
	PreferPreferred            bool
	RestrictInProgressToPreferred bool // true in claim mode
	ExcludedIDs                map[string]bool
}

func typeMatches(want, got taskdb.Type) bool {
	if want == "" {
		return true
	}
	if want == got {
		return true
	}
	if want.IsImplementationLike() && got.IsImplementationLike() {
		return true
	}
	if want.IsTestingLike() && got.IsTestingLike() {
		return true
	}
	return false
}

func dependenciesSatisfied(t taskdb.Task, byID map[string]taskdb.Task) bool {
	for _, depID := range t.DependencyIDs {
		dep, ok := byID[depID]
		if !ok {
			return false
		}
		if dep.Status != taskdb.StatusDone && dep.Status != taskdb.StatusInvalid {
			return false
		}
	}
	return true
}

// SelectTaskForState implements the task selection algorithm.
func SelectTaskForState(in Input) (taskdb.Task, bool) {
	byID := make(map[string]taskdb.Task, len(in.Tasks))
	for _, t := range in.Tasks {
		byID[t.ID] = t
	}

	// Step 1: filter done (except theme) and invalid; in claim mode,
	// exclude in-progress tasks that aren't the preferred one.
	active := make([]taskdb.Task, 0, len(in.Tasks))
	for _, t := range in.Tasks {
		if in.ExcludedIDs[t.ID] {
			continue
		}
		if t.Status == taskdb.StatusDone && t.Type != taskdb.TypeTheme {
			continue
		}
		if t.Status == taskdb.StatusInvalid {
			continue
		}
		if in.RestrictInProgressToPreferred && t.Status == taskdb.StatusInProgress && t.ID != in.PreferredTaskID {
			continue
		}
		active = append(active, t)
	}

	// Step 2: no target type means "first active task".
	if in.TargetType == "" {
		if len(active) == 0 {
			return taskdb.Task{}, false
		}
		sortByPriorityThenTitle(active)
		return active[0], true
	}

	// Step 3: preferred task short-circuit.
	if in.PreferredTaskID != "" {
		if preferred, ok := byID[in.PreferredTaskID]; ok && !in.ExcludedIDs[preferred.ID] {
			matches := typeMatches(in.TargetType, preferred.Type)
			if matches && (in.PreferPreferred || preferred.Status == taskdb.StatusInProgress || dependenciesSatisfied(preferred, byID)) {
				return preferred, true
			}
		}
	}

	// Step 4: candidates matching target type with satisfied dependencies.
	candidates := filterCandidates(active, in.TargetType, byID)

	// Step 5: testing fallback to implementation-typed active tasks.
	if len(candidates) == 0 && in.TargetType.IsTestingLike() {
		candidates = filterCandidates(active, taskdb.TypeImplementation, byID)
	}

	if len(candidates) == 0 {
		return taskdb.Task{}, false
	}
	sortByPriorityThenTitle(candidates)
	return candidates[0], true
}

func filterCandidates(active []taskdb.Task, targetType taskdb.Type, byID map[string]taskdb.Task) []taskdb.Task {
	out := make([]taskdb.Task, 0, len(active))
	for _, t := range active {
		if !typeMatches(targetType, t.Type) {
			continue
		}
		if !dependenciesSatisfied(t, byID) {
			continue
		}
		out = append(out, t)
	}
	return out
}

// SelectInvalidTaskForClosure implements the special closure path:
// implementation-typed, todo, text-incomplete tasks ordered by priority
// then title.
func SelectInvalidTaskForClosure(tasks []taskdb.Task) (taskdb.Task, bool) {
	candidates := make([]taskdb.Task, 0, len(tasks))
	for _, t := range tasks {
		if !t.Type.IsImplementationLike() {
			continue
		}
		if t.Status != taskdb.StatusTodo {
			continue
		}
		if !taskdb.DescriptionIncomplete(t.Description) {
			continue
		}
		candidates = append(candidates, t)
	}
	if len(candidates) == 0 {
		return taskdb.Task{}, false
	}
	sortByPriorityThenTitle(candidates)
	return candidates[0], true
}

func sortByPriorityThenTitle(tasks []taskdb.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if tasks[i].Priority != tasks[j].Priority {
			return tasks[i].Priority.Less(tasks[j].Priority)
		}
		return tasks[i].Title < tasks[j].Title
	})
}
