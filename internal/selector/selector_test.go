package selector

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taskpilot-dev/taskpilot/internal/taskdb"
)

func TestSelectTaskForStateNoTargetType(t *testing.T) {
	tasks := []taskdb.Task{
		{ID: "b", Title: "bbb", Priority: taskdb.PriorityLow, Status: taskdb.StatusTodo},
		{ID: "a", Title: "aaa", Priority: taskdb.PriorityHigh, Status: taskdb.StatusTodo},
	}
	got, ok := SelectTaskForState(Input{Tasks: tasks})
	assert.True(t, ok)
	assert.Equal(t, "a", got.ID, "high priority sorts first")
}

func TestSelectTaskForStateTypeAndDependencies(t *testing.T) {
	tasks := []taskdb.Task{
		{ID: "dep", Type: taskdb.TypeImplementation, Status: taskdb.StatusTodo},
		{ID: "blocked", Type: taskdb.TypeImplementation, Status: taskdb.StatusTodo, DependencyIDs: []string{"dep"}},
		{ID: "ready", Type: taskdb.TypeImplementation, Status: taskdb.StatusTodo},
	}
	got, ok := SelectTaskForState(Input{Tasks: tasks, TargetType: taskdb.TypeImplementation})
	assert.True(t, ok)
	assert.Equal(t, "ready", got.ID, "blocked task must be skipped")
}

func TestSelectTaskForStatePreferredShortCircuit(t *testing.T) {
	tasks := []taskdb.Task{
		{ID: "preferred", Type: taskdb.TypeImplementation, Status: taskdb.StatusInProgress},
		{ID: "other", Type: taskdb.TypeImplementation, Status: taskdb.StatusTodo, Priority: taskdb.PriorityHigh},
	}
	got, ok := SelectTaskForState(Input{
		Tasks:           tasks,
		TargetType:      taskdb.TypeImplementation,
		PreferredTaskID: "preferred",
	})
	assert.True(t, ok)
	assert.Equal(t, "preferred", got.ID, "in-progress preferred task wins even over a higher-priority candidate")
}

func TestSelectTaskForStateClaimModeExcludesOtherInProgress(t *testing.T) {
	tasks := []taskdb.Task{
		{ID: "mine", Type: taskdb.TypeImplementation, Status: taskdb.StatusInProgress},
		{ID: "theirs", Type: taskdb.TypeImplementation, Status: taskdb.StatusInProgress},
		{ID: "open", Type: taskdb.TypeImplementation, Status: taskdb.StatusTodo},
	}
	got, ok := SelectTaskForState(Input{
		Tasks:                         tasks,
		TargetType:                    taskdb.TypeImplementation,
		PreferredTaskID:               "mine",
		RestrictInProgressToPreferred: true,
	})
	assert.True(t, ok)
	assert.Equal(t, "mine", got.ID)
}

func TestSelectTaskForStateTestingFallsBackToImplementation(t *testing.T) {
	tasks := []taskdb.Task{
		{ID: "impl", Type: taskdb.TypeImplementation, Status: taskdb.StatusTodo},
	}
	got, ok := SelectTaskForState(Input{Tasks: tasks, TargetType: taskdb.TypeTesting})
	assert.True(t, ok)
	assert.Equal(t, "impl", got.ID)
}

func TestSelectTaskForStateExcludesDoneAndInvalid(t *testing.T) {
	tasks := []taskdb.Task{
		{ID: "done", Type: taskdb.TypeImplementation, Status: taskdb.StatusDone},
		{ID: "invalid", Type: taskdb.TypeImplementation, Status: taskdb.StatusInvalid},
		{ID: "theme-done", Type: taskdb.TypeTheme, Status: taskdb.StatusDone},
	}
	_, ok := SelectTaskForState(Input{Tasks: tasks, TargetType: taskdb.TypeImplementation})
	assert.False(t, ok, "no implementation candidates remain")

	got, ok := SelectTaskForState(Input{Tasks: tasks, TargetType: taskdb.TypeTheme})
	assert.True(t, ok, "done themes remain eligible — only non-theme done tasks are excluded")
	assert.Equal(t, "theme-done", got.ID)
}

func TestSelectInvalidTaskForClosure(t *testing.T) {
	tasks := []taskdb.Task{
		{ID: "ok", Type: taskdb.TypeImplementation, Status: taskdb.StatusTodo, Description: "do the thing"},
		{ID: "blank", Type: taskdb.TypeImplementation, Status: taskdb.StatusTodo, Description: "   "},
		{ID: "in-progress-blank", Type: taskdb.TypeImplementation, Status: taskdb.StatusInProgress, Description: ""},
	}
	got, ok := SelectInvalidTaskForClosure(tasks)
	assert.True(t, ok)
	assert.Equal(t, "blank", got.ID)
}

func TestDeriveRecoveryState(t *testing.T) {
	inProgress := []taskdb.Task{
		{ID: "t1", Type: taskdb.TypeImplementation, Status: taskdb.StatusInProgress},
	}
	assert.Equal(t, Recovered{State: "task-in-progress", TaskID: "t1"}, DeriveRecoveryState(inProgress))

	prepared := []taskdb.Task{
		{ID: "t1", Type: taskdb.TypeImplementation, Status: taskdb.StatusTodo},
	}
	assert.Equal(t, Recovered{State: "tasks-prepared"}, DeriveRecoveryState(prepared))

	stories := []taskdb.Task{
		{ID: "s1", Type: taskdb.TypeStory, Status: taskdb.StatusTodo},
	}
	assert.Equal(t, Recovered{State: "stories-prioritized"}, DeriveRecoveryState(stories))

	assert.Equal(t, Recovered{State: "themes-prioritized"}, DeriveRecoveryState(nil))
}
