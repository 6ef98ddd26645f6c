package worker

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taskpilot-dev/taskpilot/internal/taskdb"
	"github.com/taskpilot-dev/taskpilot/internal/workflow"
)

func TestDecideQAOutcomeStatesFollowLastTestResult(t *testing.T) {
	g := workflow.Builtin()

	dec := decide(g, workflow.StateLintCompleted, nil, map[string]any{"lastTestResult": "passed"})
	assert.True(t, dec.ok)
	assert.Equal(t, workflow.TransitionRunTypecheck, dec.transition)

	dec = decide(g, workflow.StateLintCompleted, nil, map[string]any{"lastTestResult": "failed"})
	assert.True(t, dec.ok)
	assert.Equal(t, workflow.TransitionLintFailed, dec.transition)

	dec = decide(g, workflow.StateCoverageCompleted, nil, map[string]any{"lastTestResult": "failed"})
	assert.Equal(t, workflow.TransitionCoverageFailed, dec.transition)
}

func TestDecideSingleEdgeStatesAlwaysFire(t *testing.T) {
	g := workflow.Builtin()

	dec := decide(g, workflow.StateThemesProposed, nil, nil)
	assert.True(t, dec.ok)
	assert.Equal(t, workflow.TransitionPrioritizeThemes, dec.transition)
	assert.False(t, dec.isDecider)
}

func TestDecideUnknownStateIsNotOK(t *testing.T) {
	g := workflow.Builtin()
	dec := decide(g, "no-such-state", nil, nil)
	assert.False(t, dec.ok)
}

func TestDecideTasksPreparedClosesInvalidTaskFirst(t *testing.T) {
	g := workflow.Builtin()
	tasks := []taskdb.Task{
		{ID: "t1", Type: taskdb.TypeImplementation, Status: taskdb.StatusTodo, Description: ""},
	}
	dec := decide(g, workflow.StateTasksPrepared, tasks, nil)
	assert.True(t, dec.ok)
	assert.Equal(t, workflow.TransitionCloseInvalidTask, dec.transition)
}

func TestDecideTasksPreparedReviewsOnceThenNeedsMoreTasks(t *testing.T) {
	g := workflow.Builtin()

	dec := decide(g, workflow.StateTasksPrepared, nil, map[string]any{})
	assert.True(t, dec.ok)
	assert.True(t, dec.isDecider)
	assert.Equal(t, workflow.TransitionReviewTaskValidity, dec.transition)

	dec = decide(g, workflow.StateTasksPrepared, nil, map[string]any{"taskValidityReviewed": true})
	assert.True(t, dec.ok)
	assert.False(t, dec.isDecider)
	assert.Equal(t, workflow.TransitionNeedMoreTasks, dec.transition)
}

func TestDecideTasksPreparedBeginsImplementationWithCandidate(t *testing.T) {
	g := workflow.Builtin()
	tasks := []taskdb.Task{
		{ID: "t1", Type: taskdb.TypeImplementation, Status: taskdb.StatusTodo, Description: "wire up the thing"},
	}
	dec := decide(g, workflow.StateTasksPrepared, tasks, map[string]any{"taskValidityReviewed": true})
	assert.True(t, dec.ok)
	assert.Equal(t, workflow.TransitionBeginImplementation, dec.transition)
}

func TestDecideStoriesPrioritizedReviewsOnceThenRefines(t *testing.T) {
	g := workflow.Builtin()

	dec := decide(g, workflow.StateStoriesPrioritized, nil, nil)
	assert.True(t, dec.isDecider)
	assert.Equal(t, workflow.TransitionReviewStoryCoverage, dec.transition)

	dec = decide(g, workflow.StateStoriesPrioritized, nil, map[string]any{"storyCoverageReviewed": true})
	assert.False(t, dec.isDecider)
	assert.Equal(t, workflow.TransitionRefineIntoTasks, dec.transition)
}

func TestReviewFlagFor(t *testing.T) {
	flag, ok := reviewFlagFor(workflow.TransitionReviewTaskValidity)
	assert.True(t, ok)
	assert.Equal(t, "taskValidityReviewed", flag)

	flag, ok = reviewFlagFor(workflow.TransitionReviewStoryCoverage)
	assert.True(t, ok)
	assert.Equal(t, "storyCoverageReviewed", flag)

	_, ok = reviewFlagFor(workflow.TransitionRunLint)
	assert.False(t, ok)
}

func TestClassifyClaimRejection(t *testing.T) {
	tasks := []taskdb.Task{
		{ID: "owned", Status: taskdb.StatusTodo, AssignedWorker: "worker-a"},
		{ID: "done", Status: taskdb.StatusDone},
		{ID: "blocked", Status: taskdb.StatusTodo, DependencyIDs: []string{"done-dep"}},
		{ID: "done-dep", Status: taskdb.StatusTodo},
	}

	assert.Equal(t, taskdb.ClaimRejectOwnedByOther, classifyClaimRejection("owned", "worker-b", tasks))
	assert.Equal(t, taskdb.ClaimRejectNonClaimable, classifyClaimRejection("done", "worker-b", tasks))
	assert.Equal(t, taskdb.ClaimRejectDepsUnsatisfied, classifyClaimRejection("blocked", "worker-b", tasks))
	assert.Equal(t, taskdb.ClaimRejectStale, classifyClaimRejection("missing", "worker-b", tasks))
}
