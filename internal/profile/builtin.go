package profile

import "fmt"

// Profile names. Mirrors internal/workflow/builtin.go's plain-string
// constants of the same values — duplicated rather than imported to avoid
// a profile<->workflow dependency cycle (workflow.Builtin() needs these
// names too, and workflow must stay free of a profile import).
const (
	NamePrioritizationLead   = "prioritization-lead"
	NameProductRefiner       = "product-refiner"
	NameSeniorDeveloper      = "senior-developer"
	NameQAPreflightRunner    = "qa-preflight-runner"
	NameQAE2EInvestigator    = "qa-e2e-failure-investigation-specialist"
	NameTaskValidityReviewer = "task-validity-reviewer"
)

// Builtin returns the compiled-in set of profiles, keyed by name. A
// deployment layers persisted Override records on top via Registry; the
// table itself is a Go literal, same as workflow.Builtin()'s graph.
func Builtin() map[string]Profile {
	return map[string]Profile{
		NamePrioritizationLead: {
			Name:           NamePrioritizationLead,
			RoleLabel:      "Prioritization Lead",
			Capabilities:   []string{"prioritize", "rank", "triage"},
			ConcurrencyCap: 1,
			Priority:       0,
			DefaultRuntime: RuntimeCodex,
			DefaultModel:   "gpt-5-codex",
			DefaultSystemPrompt: `You are the prioritization lead for a product development pipeline.
Given a set of proposed items of one type (themes, features, or stories), rank them by
strategic value and feasibility, assign or confirm priority, and flag any that should be
rejected or merged with an existing item. Be decisive: every item must end up ranked.`,
			TaskPrompt: prioritizationPrompt,
			MCPServers: []MCPServerRef{taskManagerServer()},
		},
		NameProductRefiner: {
			Name:           NameProductRefiner,
			RoleLabel:      "Product Refiner",
			Capabilities:   []string{"decompose", "research", "write-prd"},
			ConcurrencyCap: 1,
			Priority:       1,
			DefaultRuntime: RuntimeCodex,
			DefaultModel:   "gpt-5-codex",
			DefaultSystemPrompt: `You are a product refiner. You turn a higher-level item (an initiative or a
prioritized feature/story) into the next level down: features from initiatives, user
stories from features, or implementation/testing tasks from stories. Follow the PRD
standard already used in this repository's existing specs — same section headers,
same markdown conventions — and write dependencies explicitly by task id.`,
			TaskPrompt: refinementPrompt,
			MCPServers: []MCPServerRef{taskManagerServer()},
		},
		NameSeniorDeveloper: {
			Name:           NameSeniorDeveloper,
			RoleLabel:      "Senior Developer",
			Capabilities:   []string{"implement", "edit-files", "run-commands", "fix-failures"},
			ConcurrencyCap: 4,
			Priority:       2,
			DefaultRuntime: RuntimeCodex,
			DefaultModel:   "gpt-5-codex",
			DefaultSystemPrompt: `You are a senior developer picking up one task at a time from the task board.
Read the task's full description and its dependencies' outcomes before writing code.
Make the smallest correct change that satisfies the task; do not expand scope. When a
QA stage reports a failure, fix the root cause, not the symptom.`,
			TaskPrompt: implementationPrompt,
			MCPServers: []MCPServerRef{taskManagerServer()},
		},
		NameQAPreflightRunner: {
			Name:           NameQAPreflightRunner,
			RoleLabel:      "QA Preflight Runner",
			Capabilities:   []string{"run-commands"},
			ConcurrencyCap: 4,
			Priority:       2,
			DefaultRuntime: RuntimeCodex,
			DefaultModel:   "gpt-5-codex",
			DefaultSystemPrompt: `You run one mechanical QA stage (lint, typecheck, unit tests, e2e tests, or
coverage) for the task currently in progress and report the verbatim result. You do not
fix failures yourself; the orchestrator routes failures back to implementation.`,
			TaskPrompt: preflightPrompt,
			MCPServers: []MCPServerRef{taskManagerServer()},
		},
		NameQAE2EInvestigator: {
			Name:           NameQAE2EInvestigator,
			RoleLabel:      "E2E Failure Investigation Specialist",
			Capabilities:   []string{"investigate", "run-commands", "read-logs"},
			ConcurrencyCap: 1,
			Priority:       2,
			DefaultRuntime: RuntimeCodex,
			DefaultModel:   "gpt-5-codex",
			DefaultSystemPrompt: `You investigate an end-to-end test failure that the mechanical preflight run
could not explain well enough to act on. Reproduce the failure, inspect logs and
screenshots if present, and identify the suspected root cause precisely enough for a
developer to fix it without re-running the investigation.`,
			TaskPrompt: e2eInvestigationPrompt,
			MCPServers: []MCPServerRef{taskManagerServer()},
		},
		NameTaskValidityReviewer: {
			Name:           NameTaskValidityReviewer,
			RoleLabel:      "Task Validity Reviewer",
			Capabilities:   []string{"review", "close-invalid"},
			ConcurrencyCap: 1,
			Priority:       1,
			DefaultRuntime: RuntimeCodex,
			DefaultModel:   "gpt-5-codex",
			DefaultSystemPrompt: `You review prepared tasks for validity before development picks them up: is the
description complete and actionable, are its dependencies real and satisfiable, is it
still needed given what has shipped since? Close tasks that are no longer valid with a
reason; leave the rest untouched.`,
			TaskPrompt: validityReviewPrompt,
			MCPServers: []MCPServerRef{taskManagerServer()},
		},
	}
}

func taskManagerServer() MCPServerRef {
	return MCPServerRef{
		Name:      "task-manager",
		Transport: "stdio",
		BaseToolNames: []string{
			"list_tasks", "get_task", "create_task", "update_task",
			"claim_task", "append_action_log",
		},
	}
}

func prioritizationPrompt(ctx map[string]any) string {
	return fmt.Sprintf("Rank the pending %v items below by strategic value and feasibility.\n\n%s",
		ctx["targetType"], renderTaskList(ctx))
}

func refinementPrompt(ctx map[string]any) string {
	return fmt.Sprintf("Decompose the following item into its next-level children.\n\n%s", renderTaskList(ctx))
}

func implementationPrompt(ctx map[string]any) string {
	return fmt.Sprintf("Implement the task below.\n\n%s\n\n%s", renderCurrentTask(ctx), renderLastFailure(ctx))
}

func preflightPrompt(ctx map[string]any) string {
	return fmt.Sprintf("Run the QA stage for the task below and report the result verbatim.\n\n%s", renderCurrentTask(ctx))
}

func e2eInvestigationPrompt(ctx map[string]any) string {
	return fmt.Sprintf("Investigate the following end-to-end test failure.\n\n%s\n\n%v", renderCurrentTask(ctx), ctx["lastTestResult"])
}

func validityReviewPrompt(ctx map[string]any) string {
	return fmt.Sprintf("Review the following prepared tasks for validity.\n\n%s", renderTaskList(ctx))
}

func renderTaskList(ctx map[string]any) string {
	if v, ok := ctx["taskList"]; ok {
		return fmt.Sprintf("%v", v)
	}
	return "(no tasks provided)"
}

func renderCurrentTask(ctx map[string]any) string {
	if v, ok := ctx["currentTask"]; ok {
		return fmt.Sprintf("%v", v)
	}
	return "(no current task in context)"
}

func renderLastFailure(ctx map[string]any) string {
	if v, ok := ctx["lastTestResult"]; ok && v != nil {
		return fmt.Sprintf("Last QA result: %v", v)
	}
	return ""
}
