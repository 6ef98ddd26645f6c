package prompt

import (
	"github.com/taskpilot-dev/taskpilot/internal/preflight"
	"github.com/taskpilot-dev/taskpilot/internal/profile"
	"github.com/taskpilot-dev/taskpilot/internal/taskdb"
)

// transitionsWithoutSummary is the set of transitions exempted from the
// progress-summary block.
var transitionsWithoutSummary = map[string]bool{
	"review-task-validity":  true,
	"close-invalid-task":    true,
	"review-story-coverage": true,
}

// Input carries everything the Builder needs to compose one prompt. Fields
// are individually optional — a zero value simply omits that block.
type Input struct {
	Profile    profile.Profile
	State      string
	Transition string
	IsDecider  bool

	// WorkflowHintApplies is true when Profile is the state's default
	// profile, per point 4.
	WorkflowHintApplies bool
	WorkflowHint        string

	SelectedTask *taskdb.Task

	TestReport *preflight.TestReport

	// FailurePacket is set only for QA failure transitions (*-failed).
	FailurePacket string

	MechanicalPreflight *preflight.ProceduralReport

	PrefetchedTasks []taskdb.Task

	// ReferencePromptFiles are file names (relative to the workspace's
	// prompts/ directory) this profile wants appended, per point 10.
	ReferencePromptFiles []string

	// IsCodingProfile adds the coding-conventions rules of point 11.
	IsCodingProfile bool

	// Context is the merged execution-context map passed to
	// Profile.TaskPrompt (point 14).
	Context map[string]any
}

func needsSummary(transition string) bool {
	return !transitionsWithoutSummary[transition]
}
