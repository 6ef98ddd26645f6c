package dispatcher

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskpilot-dev/taskpilot/internal/taskdb"
	"github.com/taskpilot-dev/taskpilot/internal/taskdb/memory"
)

func newTestDispatcher(t *testing.T) (*Dispatcher, *memory.Store) {
	t.Helper()
	store := memory.New()
	d := New(Dependencies{
		Tasks:  store,
		Logger: slog.Default(),
	})
	return d, store
}

func TestDispatchControlClearsQAContext(t *testing.T) {
	d, _ := newTestDispatcher(t)

	outcome, err := d.Dispatch(context.Background(), Input{
		State:      "tests-completed",
		Transition: "tests-passing",
	})
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Nil(t, outcome.ContextPatch["lastTestResult"])
	assert.Contains(t, outcome.ContextPatch, "mechanicalQaPreflightResults")
}

func TestDispatchControlTestsPassingMarksTaskDoneAndClearsContext(t *testing.T) {
	d, store := newTestDispatcher(t)
	store.Seed(taskdb.Task{
		ID: "task-1", Title: "Do the thing", Type: taskdb.TypeImplementation, Status: taskdb.StatusInProgress,
	})
	task, err := store.GetTask(context.Background(), "task-1")
	require.NoError(t, err)

	outcome, err := d.Dispatch(context.Background(), Input{
		State:      "tests-completed",
		Transition: "tests-passing",
		Task:       &task,
	})
	require.NoError(t, err)
	assert.True(t, outcome.Success)

	updated, err := store.GetTask(context.Background(), "task-1")
	require.NoError(t, err)
	assert.Equal(t, taskdb.StatusDone, updated.Status)

	assert.Nil(t, outcome.ContextPatch["currentTaskId"])
	assert.Nil(t, outcome.ContextPatch["currentTask"])
	assert.Nil(t, outcome.ContextPatch["currentTaskBranch"])
	assert.Nil(t, outcome.ContextPatch["testStatus"])
	assert.Nil(t, outcome.ContextPatch["e2eTestResultStatus"])
	assert.Nil(t, outcome.ContextPatch["e2eTestResults"])
	assert.Nil(t, outcome.ContextPatch["e2eTestFailureInvestigationReport"])
	assert.Nil(t, outcome.ContextPatch["mechanicalQaPreflightUpdatedAt"])
}

func TestDispatchControlPickUpNextTask(t *testing.T) {
	d, _ := newTestDispatcher(t)
	task := &taskdb.Task{ID: "task-1", Title: "Do the thing"}

	outcome, err := d.Dispatch(context.Background(), Input{
		State:      "task-in-progress",
		Transition: "pick-up-next-task",
		Task:       task,
	})
	require.NoError(t, err)
	assert.True(t, outcome.Success)
}
