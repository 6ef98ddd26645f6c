package worker

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskpilot-dev/taskpilot/internal/agentsession"
	"github.com/taskpilot-dev/taskpilot/internal/contextstore"
	"github.com/taskpilot-dev/taskpilot/internal/dispatcher"
	"github.com/taskpilot-dev/taskpilot/internal/profile"
	"github.com/taskpilot-dev/taskpilot/internal/profile/overridestore"
	"github.com/taskpilot-dev/taskpilot/internal/prompt"
	"github.com/taskpilot-dev/taskpilot/internal/taskdb"
	"github.com/taskpilot-dev/taskpilot/internal/taskdb/memory"
	"github.com/taskpilot-dev/taskpilot/internal/workflow"
)

// stubAgentRunner always reports success without touching a real agent
// runtime, so tick tests can drive begin-implementation without an ACP
// subprocess.
type stubAgentRunner struct{}

func (stubAgentRunner) Run(_ context.Context, _ agentsession.Input) (agentsession.Completion, error) {
	return agentsession.Completion{Success: true, Text: "Test status: passed\n"}, nil
}

func newTestWorker(t *testing.T, store *memory.Store, contexts contextstore.Store, cfg Config) *Worker {
	t.Helper()
	profiles := profile.New(overridestore.NewMemory())
	d := dispatcher.New(dispatcher.Dependencies{
		Tasks:    store,
		Contexts: contexts,
		Graph:    workflow.Builtin(),
		Profiles: profiles,
		Prompts:  prompt.New(t.TempDir()),
		Agents:   stubAgentRunner{},
		Logger:   slog.Default(),
	})
	deps := Dependencies{
		Tasks:      store,
		Contexts:   contexts,
		Graph:      workflow.Builtin(),
		Dispatcher: d,
		Logger:     slog.Default(),
	}
	return New("worker-test", deps, cfg)
}

func TestTickBootstrapsStateAndAdvances(t *testing.T) {
	store := memory.New()
	contexts := contextstore.NewMemory()
	w := newTestWorker(t, store, contexts, Config{ContextID: "default"})

	require.Empty(t, w.state)
	err := w.tick(context.Background())
	require.NoError(t, err)

	// With no tasks seeded, DeriveRecoveryState resumes at
	// themes-prioritized; research requires a task (an initiative) and
	// none exists yet, so the tick waits rather than advancing further.
	assert.Equal(t, workflow.StateThemesPrioritized, w.state)

	ctxMap, err := contexts.Get(context.Background(), "default")
	require.NoError(t, err)
	assert.Equal(t, true, ctxMap["autoRecovered"])
}

func TestTickPickUpNextTaskSkipsWhenNothingRunnable(t *testing.T) {
	store := memory.New()
	store.Seed(taskdb.Task{ID: "t1", Type: taskdb.TypeImplementation, Status: taskdb.StatusDone})
	contexts := contextstore.NewMemory()
	w := newTestWorker(t, store, contexts, Config{ContextID: "default"})
	w.state = workflow.StateTestsCompleted

	err := w.tick(context.Background())
	require.NoError(t, err)

	// No runnable implementation task exists, so the tick must skip rather
	// than advance past tests-completed.
	assert.Equal(t, workflow.StateTestsCompleted, w.state)
}

func TestTickControlTransitionClearsContextAndAdvances(t *testing.T) {
	store := memory.New()
	store.Seed(taskdb.Task{ID: "t1", Type: taskdb.TypeImplementation, Status: taskdb.StatusInProgress})
	contexts := contextstore.NewMemory()
	_, err := contexts.Patch(context.Background(), "default", map[string]any{
		"lastTestResult": "passed",
		"autoRecovered":  true,
		"currentTaskId":  "t1",
	})
	require.NoError(t, err)

	w := newTestWorker(t, store, contexts, Config{ContextID: "default"})
	w.state = workflow.StateCoverageCompleted

	err = w.tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, workflow.StateTestsCompleted, w.state)

	ctxMap, err := contexts.Get(context.Background(), "default")
	require.NoError(t, err)
	assert.Nil(t, ctxMap["lastTestResult"])
}

func TestTickClaimModeExcludesRejectedCandidate(t *testing.T) {
	store := memory.New()
	store.Seed(
		taskdb.Task{ID: "owned", Type: taskdb.TypeImplementation, Status: taskdb.StatusTodo, AssignedWorker: "someone-else", Priority: taskdb.PriorityHigh, Description: "add the owned feature"},
		taskdb.Task{ID: "free", Type: taskdb.TypeImplementation, Status: taskdb.StatusTodo, Priority: taskdb.PriorityLow, Description: "add the free feature"},
	)
	contexts := contextstore.NewMemory()
	_, err := contexts.Patch(context.Background(), "default", map[string]any{"autoRecovered": true})
	require.NoError(t, err)

	w := newTestWorker(t, store, contexts, Config{ContextID: "default", ClaimMode: true})
	w.state = workflow.StateTasksPrepared
	_, err = contexts.Patch(context.Background(), "default", map[string]any{"taskValidityReviewed": true})
	require.NoError(t, err)

	err = w.tick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, workflow.StateTaskInProgress, w.state)

	free, err := store.GetTask(context.Background(), "free")
	require.NoError(t, err)
	assert.Equal(t, "worker-test", free.AssignedWorker)

	owned, err := store.GetTask(context.Background(), "owned")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", owned.AssignedWorker)
}

func TestAnyRunnable(t *testing.T) {
	assert.False(t, anyRunnable(nil))
	assert.True(t, anyRunnable([]taskdb.Task{{ID: "t1", Type: taskdb.TypeImplementation, Status: taskdb.StatusTodo}}))
	assert.False(t, anyRunnable([]taskdb.Task{{ID: "t1", Type: taskdb.TypeImplementation, Status: taskdb.StatusDone}}))
}
