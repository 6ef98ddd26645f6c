package dispatcher

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskpilot-dev/taskpilot/internal/masking"
	"github.com/taskpilot-dev/taskpilot/internal/taskdb"
	"github.com/taskpilot-dev/taskpilot/internal/taskdb/memory"
)

func TestDispatchProceduralSkipsWithNoPlaywrightConfig(t *testing.T) {
	store := memory.New()
	task := taskdb.Task{ID: "task-1", Title: "Ship the checkout flow", Status: taskdb.StatusInProgress}
	store.Seed(task)

	d := New(Dependencies{
		Tasks:         store,
		WorkspaceRoot: t.TempDir(),
		Logger:        slog.Default(),
	})

	outcome, err := d.Dispatch(context.Background(), Input{
		State:      "e2e-tests-completed",
		Transition: "run-e2e-tests",
		Task:       &task,
	})
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Equal(t, "passed", outcome.ContextPatch["lastTestResult"])
	assert.Equal(t, task.ID, outcome.ContextPatch["currentTaskId"])

	got, err := store.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	require.Len(t, got.ActionLog, 1)
	assert.Equal(t, "procedural-qa", got.ActionLog[0].Actor)
	assert.True(t, got.ActionLog[0].Success)
}

func TestDispatcherMaskPassesThroughWithNoMaskerConfigured(t *testing.T) {
	d := New(Dependencies{Tasks: memory.New(), Logger: slog.Default()})
	assert.Equal(t, "Bearer sk-abc123", d.mask("Bearer sk-abc123"))
}

func TestDispatcherMaskRedactsWithMaskerConfigured(t *testing.T) {
	d := New(Dependencies{Tasks: memory.New(), Logger: slog.Default(), Masker: masking.New()})
	got := d.mask("Authorization: Bearer sk-abc123DEF456.ghi")
	assert.NotContains(t, got, "sk-abc123DEF456.ghi")
}

func TestIsProceduralTransition(t *testing.T) {
	assert.True(t, isProceduralTransition("run-lint"))
	assert.True(t, isProceduralTransition("run-e2e-tests"))
	assert.False(t, isProceduralTransition("begin-implementation"))
	assert.False(t, isProceduralTransition("tests-passing"))
}
