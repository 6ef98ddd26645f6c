package selector

import "github.com/taskpilot-dev/taskpilot/internal/taskdb"

// Recovered is the (state, taskId) pair DeriveRecoveryState infers when a
// worker starts with no persisted context, via state derivation for
// auto-recovery.
type Recovered struct {
	State  string
	TaskID string // empty when the recovered state carries no specific task
}

// DeriveRecoveryState inspects the task list and infers a plausible
// workflow state to resume from, preferring the most concrete work in
// flight. Dependencies are resolved against tasks itself; a dependency id
// not present in tasks counts as unsatisfied.
func DeriveRecoveryState(tasks []taskdb.Task) Recovered {
	byID := make(map[string]taskdb.Task, len(tasks))
	for _, t := range tasks {
		byID[t.ID] = t
	}

	for _, t := range tasks {
		if t.Type.IsImplementationLike() && t.Status == taskdb.StatusInProgress {
			return Recovered{State: "task-in-progress", TaskID: t.ID}
		}
	}

	for _, t := range tasks {
		if t.Type.IsImplementationLike() && t.Status == taskdb.StatusTodo && dependenciesSatisfied(t, byID) {
			return Recovered{State: "tasks-prepared"}
		}
	}

	mostSpecific := taskdb.Type("")
	for _, t := range tasks {
		switch t.Type {
		case taskdb.TypeStory:
			mostSpecific = taskdb.TypeStory
		case taskdb.TypeFeature:
			if mostSpecific != taskdb.TypeStory {
				mostSpecific = taskdb.TypeFeature
			}
		case taskdb.TypeInitiative:
			if mostSpecific == "" || mostSpecific == taskdb.TypeTheme {
				mostSpecific = taskdb.TypeInitiative
			}
		case taskdb.TypeTheme:
			if mostSpecific == "" {
				mostSpecific = taskdb.TypeTheme
			}
		}
	}

	switch mostSpecific {
	case taskdb.TypeStory:
		return Recovered{State: "stories-prioritized"}
	case taskdb.TypeFeature:
		return Recovered{State: "features-prioritized"}
	case taskdb.TypeInitiative:
		return Recovered{State: "initiatives-prioritized"}
	default:
		return Recovered{State: "themes-prioritized"}
	}
}
