package dispatcher

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskpilot-dev/taskpilot/internal/agentsession"
	"github.com/taskpilot-dev/taskpilot/internal/masking"
	"github.com/taskpilot-dev/taskpilot/internal/profile"
	"github.com/taskpilot-dev/taskpilot/internal/profile/overridestore"
	"github.com/taskpilot-dev/taskpilot/internal/prompt"
	"github.com/taskpilot-dev/taskpilot/internal/taskdb"
	"github.com/taskpilot-dev/taskpilot/internal/taskdb/memory"
	"github.com/taskpilot-dev/taskpilot/internal/workflow"
)

// stubAgentRunner returns whatever completion the test wired up, and
// records the last Input it was called with so assertions can inspect it.
type stubAgentRunner struct {
	completion agentsession.Completion
	err        error
	lastInput  agentsession.Input
	calls      int
}

func (s *stubAgentRunner) Run(_ context.Context, in agentsession.Input) (agentsession.Completion, error) {
	s.calls++
	s.lastInput = in
	return s.completion, s.err
}

func testGraph() *workflow.Graph {
	return workflow.New(
		map[string]workflow.StateDef{
			"task-in-progress": {
				Name:           "task-in-progress",
				DefaultProfile: profile.NameSeniorDeveloper,
				TargetType:     taskdb.TypeImplementation,
				Transitions: map[string]string{
					"begin-implementation": "lint-completed",
					"lint-failed":          "task-in-progress",
				},
			},
		},
		map[string]workflow.Transition{
			"begin-implementation": {Name: "begin-implementation"},
			"lint-failed":          {Name: "lint-failed"},
		},
	)
}

func testProfileRegistry() *profile.Registry {
	return profile.New(overridestore.NewMemory())
}

func newAgentTestDispatcher(t *testing.T, runner AgentRunner) (*Dispatcher, *memory.Store) {
	t.Helper()
	store := memory.New()
	d := New(Dependencies{
		Tasks:    store,
		Profiles: testProfileRegistry(),
		Prompts:  prompt.New(""),
		Agents:   runner,
		Graph:    testGraph(),
		Logger:   slog.Default(),
	})
	return d, store
}

func TestDispatchAgentSuccessInfersTestOutcome(t *testing.T) {
	task := taskdb.Task{ID: "task-1", Title: "Wire up checkout", Status: taskdb.StatusInProgress}
	runner := &stubAgentRunner{completion: agentsession.Completion{
		Success:    true,
		Text:       "Done.\nTest status: passed\n",
		StopReason: "end_turn",
	}}
	d, store := newAgentTestDispatcher(t, runner)
	store.Seed(task)

	outcome, err := d.Dispatch(context.Background(), Input{
		State:      "task-in-progress",
		Transition: "lint-failed",
		Task:       &task,
	})
	require.NoError(t, err)
	assert.True(t, outcome.Success)
	assert.Equal(t, "passed", outcome.ContextPatch["lastTestResult"])
	assert.Equal(t, 1, runner.calls)
	assert.True(t, runner.lastInput.AllowFileEdits)

	got, err := store.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	require.Len(t, got.ActionLog, 1)
	assert.Equal(t, profile.NameSeniorDeveloper, got.ActionLog[0].Actor)
}

func TestDispatchAgentFailurePropagatesError(t *testing.T) {
	task := taskdb.Task{ID: "task-2", Title: "Wire up checkout", Status: taskdb.StatusInProgress}
	runner := &stubAgentRunner{completion: agentsession.Completion{
		Success: false,
		Error:   "agent turn exceeded its 10 minute deadline",
	}}
	d, store := newAgentTestDispatcher(t, runner)
	store.Seed(task)

	outcome, err := d.Dispatch(context.Background(), Input{
		State:      "task-in-progress",
		Transition: "begin-implementation",
		Task:       &task,
	})
	require.NoError(t, err)
	assert.False(t, outcome.Success)
	assert.Equal(t, "agent turn exceeded its 10 minute deadline", outcome.ContextPatch["lastAgentError"])
}

func TestDispatchAgentMasksSecretsInErrorAndLog(t *testing.T) {
	task := taskdb.Task{ID: "task-3", Title: "Wire up checkout", Status: taskdb.StatusInProgress}
	runner := &stubAgentRunner{completion: agentsession.Completion{
		Success: false,
		Error:   `request to https://api.example.com failed: Authorization: Bearer sk-abc123DEF456.ghi`,
	}}
	store := memory.New()
	d := New(Dependencies{
		Tasks:    store,
		Profiles: testProfileRegistry(),
		Prompts:  prompt.New(""),
		Agents:   runner,
		Graph:    testGraph(),
		Logger:   slog.Default(),
		Masker:   masking.New(),
	})
	store.Seed(task)

	outcome, err := d.Dispatch(context.Background(), Input{
		State:      "task-in-progress",
		Transition: "begin-implementation",
		Task:       &task,
	})
	require.NoError(t, err)
	assert.False(t, outcome.Success)
	assert.NotContains(t, outcome.ContextPatch["lastAgentError"], "sk-abc123DEF456.ghi")
	assert.Contains(t, outcome.ContextPatch["lastAgentError"], "[MASKED_TOKEN]")
	assert.NotContains(t, outcome.Summary, "sk-abc123DEF456.ghi")

	got, err := store.GetTask(context.Background(), task.ID)
	require.NoError(t, err)
	require.Len(t, got.ActionLog, 1)
	assert.NotContains(t, got.ActionLog[0].Summary, "sk-abc123DEF456.ghi")
}

func TestDispatchAgentUnknownProfileErrors(t *testing.T) {
	graph := workflow.New(
		map[string]workflow.StateDef{
			"mystery-state": {Name: "mystery-state", DefaultProfile: "no-such-profile", Transitions: map[string]string{"do-something": "mystery-state"}},
		},
		map[string]workflow.Transition{"do-something": {Name: "do-something"}},
	)
	d := New(Dependencies{
		Tasks:    memory.New(),
		Profiles: testProfileRegistry(),
		Prompts:  prompt.New(""),
		Agents:   &stubAgentRunner{},
		Graph:    graph,
		Logger:   slog.Default(),
	})

	_, err := d.Dispatch(context.Background(), Input{State: "mystery-state", Transition: "do-something"})
	assert.Error(t, err)
}
