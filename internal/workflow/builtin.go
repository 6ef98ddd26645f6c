package workflow

import "github.com/taskpilot-dev/taskpilot/internal/taskdb"

// Profile names referenced by the built-in graph. Mirrors
// internal/profile/builtin.go's names — kept as plain strings here (as a
// builtin agent config's map keys would be) to avoid a profile<->workflow
// import cycle.
const (
	ProfilePrioritizationLead   = "prioritization-lead"
	ProfileProductRefiner       = "product-refiner"
	ProfileSeniorDeveloper      = "senior-developer"
	ProfileQAPreflightRunner    = "qa-preflight-runner"
	ProfileQAE2EInvestigator    = "qa-e2e-failure-investigation-specialist"
	ProfileTaskValidityReviewer = "task-validity-reviewer"
)

// Builtin returns the compiled-in workflow graph. A deployment may layer
// profile/target-type overrides on top of this table via YAML
// (internal/config), but the shape of the graph itself is a Go literal —
// a plain lookup table.
func Builtin() *Graph {
	return New(builtinStates(), builtinTransitions())
}

func builtinStates() map[string]StateDef {
	return map[string]StateDef{
		StateThemesProposed: {
			Name:           StateThemesProposed,
			DefaultProfile: ProfilePrioritizationLead,
			TargetType:     taskdb.TypeTheme,
			PromptHint:     "Prioritize the proposed themes.",
			Transitions: map[string]string{
				TransitionPrioritizeThemes: StateThemesPrioritized,
			},
		},
		StateThemesPrioritized: {
			Name:           StateThemesPrioritized,
			DefaultProfile: ProfileProductRefiner,
			TargetType:     taskdb.TypeInitiative,
			Transitions: map[string]string{
				TransitionResearch: StateFeaturesProposed,
			},
		},
		StateFeaturesProposed: {
			Name:           StateFeaturesProposed,
			DefaultProfile: ProfilePrioritizationLead,
			TargetType:     taskdb.TypeFeature,
			PromptHint:     "Prioritize the proposed features.",
			Transitions: map[string]string{
				TransitionPrioritizeFeatures: StateFeaturesPrioritized,
			},
		},
		StateFeaturesPrioritized: {
			Name:           StateFeaturesPrioritized,
			DefaultProfile: ProfileProductRefiner,
			TargetType:     taskdb.TypeStory,
			Transitions: map[string]string{
				TransitionDoUXResearch: StateStoriesProposed,
			},
		},
		StateStoriesProposed: {
			Name:           StateStoriesProposed,
			DefaultProfile: ProfilePrioritizationLead,
			TargetType:     taskdb.TypeStory,
			PromptHint:     "Prioritize the proposed stories.",
			Transitions: map[string]string{
				TransitionPrioritizeStories: StateStoriesPrioritized,
			},
		},
		StateStoriesPrioritized: {
			Name:           StateStoriesPrioritized,
			DefaultProfile: ProfileProductRefiner,
			TargetType:     taskdb.TypeStory,
			DeciderName:    TransitionReviewStoryCoverage,
			Transitions: map[string]string{
				TransitionRefineIntoTasks:     StateTasksPrepared,
				TransitionReviewStoryCoverage: StateStoriesPrioritized,
			},
		},
		StateTasksPrepared: {
			Name:           StateTasksPrepared,
			DefaultProfile: ProfileSeniorDeveloper,
			TargetType:     taskdb.TypeImplementation,
			DeciderName:    TransitionReviewTaskValidity,
			Transitions: map[string]string{
				TransitionBeginImplementation: StateTaskInProgress,
				TransitionReviewTaskValidity:  StateTasksPrepared,
				TransitionCloseInvalidTask:    StateTasksPrepared,
				TransitionNeedMoreTasks:       StateStoriesPrioritized,
			},
		},
		StateTaskInProgress: {
			Name:           StateTaskInProgress,
			DefaultProfile: ProfileQAPreflightRunner,
			TargetType:     taskdb.TypeImplementation,
			Transitions: map[string]string{
				TransitionRunLint: StateLintCompleted,
			},
		},
		StateLintCompleted: {
			Name:           StateLintCompleted,
			DefaultProfile: ProfileQAPreflightRunner,
			TargetType:     taskdb.TypeImplementation,
			Transitions: map[string]string{
				TransitionRunTypecheck: StateTypecheckCompleted,
				TransitionLintFailed:   StateTaskInProgress,
			},
		},
		StateTypecheckCompleted: {
			Name:           StateTypecheckCompleted,
			DefaultProfile: ProfileQAPreflightRunner,
			TargetType:     taskdb.TypeImplementation,
			Transitions: map[string]string{
				TransitionRunUnitTests:    StateUnitTestsCompleted,
				TransitionTypecheckFailed: StateTaskInProgress,
			},
		},
		StateUnitTestsCompleted: {
			Name:           StateUnitTestsCompleted,
			DefaultProfile: ProfileQAPreflightRunner,
			TargetType:     taskdb.TypeImplementation,
			Transitions: map[string]string{
				TransitionRunE2ETests:     StateE2ETestsCompleted,
				TransitionUnitTestsFailed: StateTaskInProgress,
			},
		},
		StateE2ETestsCompleted: {
			Name:           StateE2ETestsCompleted,
			DefaultProfile: ProfileQAPreflightRunner,
			TargetType:     taskdb.TypeImplementation,
			Transitions: map[string]string{
				TransitionEnsureCoverage: StateCoverageCompleted,
				TransitionE2ETestsFailed: StateTaskInProgress,
			},
		},
		StateCoverageCompleted: {
			Name:           StateCoverageCompleted,
			DefaultProfile: ProfileQAPreflightRunner,
			TargetType:     taskdb.TypeImplementation,
			Transitions: map[string]string{
				TransitionTestsPassing:   StateTestsCompleted,
				TransitionCoverageFailed: StateTaskInProgress,
			},
		},
		StateTestsCompleted: {
			Name:           StateTestsCompleted,
			DefaultProfile: ProfileSeniorDeveloper,
			TargetType:     taskdb.TypeImplementation,
			Transitions: map[string]string{
				TransitionPickUpNextTask: StateTasksPrepared,
			},
		},
		StateNewFeatureProposed: {
			Name:           StateNewFeatureProposed,
			DefaultProfile: ProfilePrioritizationLead,
			TargetType:     taskdb.TypeFeature,
			Transitions: map[string]string{
				TransitionPrioritizeFeatures: StateFeaturesPrioritized,
			},
		},
	}
}

func builtinTransitions() map[string]Transition {
	return map[string]Transition{
		TransitionPrioritizeThemes: {
			Name: TransitionPrioritizeThemes, TargetTypeOverride: taskdb.TypeTheme,
		},
		TransitionPrioritizeFeatures: {
			Name: TransitionPrioritizeFeatures, TargetTypeOverride: taskdb.TypeFeature,
		},
		TransitionPrioritizeStories: {
			Name: TransitionPrioritizeStories, TargetTypeOverride: taskdb.TypeStory,
		},
		TransitionResearch: {
			Name: TransitionResearch, DescriptionNeededInPrompt: true,
		},
		TransitionDoUXResearch: {
			Name: TransitionDoUXResearch, DescriptionNeededInPrompt: true,
		},
		TransitionRefineIntoTasks: {
			Name: TransitionRefineIntoTasks, TargetTypeOverride: taskdb.TypeStory,
			DescriptionNeededInPrompt: true,
		},
		TransitionNeedMoreTasks: {
			Name: TransitionNeedMoreTasks, AllowedWithoutTask: true,
			DescriptionNeededInPrompt: true,
		},
		TransitionBeginImplementation: {
			Name: TransitionBeginImplementation, TargetTypeOverride: taskdb.TypeImplementation,
			NeedsTaskSnapshot: true,
			Fallbacks:         []string{TransitionNeedMoreTasks},
		},
		TransitionRunLint: {
			Name: TransitionRunLint, TargetTypeOverride: taskdb.TypeImplementation,
			ProfileOverride: ProfileQAPreflightRunner, NeedsTaskSnapshot: true,
		},
		TransitionRunTypecheck: {
			Name: TransitionRunTypecheck, TargetTypeOverride: taskdb.TypeImplementation,
			ProfileOverride: ProfileQAPreflightRunner, NeedsTaskSnapshot: true,
		},
		TransitionRunUnitTests: {
			Name: TransitionRunUnitTests, TargetTypeOverride: taskdb.TypeImplementation,
			ProfileOverride: ProfileQAPreflightRunner, NeedsTaskSnapshot: true,
		},
		TransitionRunE2ETests: {
			Name: TransitionRunE2ETests, TargetTypeOverride: taskdb.TypeTesting,
			ProfileOverride: ProfileQAPreflightRunner, NeedsTaskSnapshot: true,
		},
		TransitionEnsureCoverage: {
			Name: TransitionEnsureCoverage, TargetTypeOverride: taskdb.TypeImplementation,
			ProfileOverride: ProfileQAPreflightRunner, NeedsTaskSnapshot: true,
		},
		TransitionLintFailed: {
			Name: TransitionLintFailed, ProfileOverride: ProfileSeniorDeveloper,
			NeedsTaskSnapshot: true, DescriptionNeededInPrompt: true,
		},
		TransitionTypecheckFailed: {
			Name: TransitionTypecheckFailed, ProfileOverride: ProfileSeniorDeveloper,
			NeedsTaskSnapshot: true, DescriptionNeededInPrompt: true,
		},
		TransitionUnitTestsFailed: {
			Name: TransitionUnitTestsFailed, ProfileOverride: ProfileSeniorDeveloper,
			NeedsTaskSnapshot: true, DescriptionNeededInPrompt: true,
		},
		TransitionE2ETestsFailed: {
			Name: TransitionE2ETestsFailed, ProfileOverride: ProfileSeniorDeveloper,
			NeedsTaskSnapshot: true, DescriptionNeededInPrompt: true,
		},
		TransitionCoverageFailed: {
			Name: TransitionCoverageFailed, ProfileOverride: ProfileSeniorDeveloper,
			NeedsTaskSnapshot: true, DescriptionNeededInPrompt: true,
		},
		TransitionTestsPassing: {
			Name: TransitionTestsPassing, NeedsTaskSnapshot: true,
		},
		TransitionPickUpNextTask: {
			Name: TransitionPickUpNextTask, AllowedWithoutTask: true,
		},
		TransitionCloseInvalidTask: {
			Name: TransitionCloseInvalidTask, ProfileOverride: ProfileTaskValidityReviewer,
		},
		TransitionReviewTaskValidity: {
			Name: TransitionReviewTaskValidity, ProfileOverride: ProfileTaskValidityReviewer,
			AllowedWithoutTask: true,
		},
		TransitionReviewStoryCoverage: {
			Name: TransitionReviewStoryCoverage, ProfileOverride: ProfileProductRefiner,
			AllowedWithoutTask: true,
		},
	}
}
