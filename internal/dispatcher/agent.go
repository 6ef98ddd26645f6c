package dispatcher

import (
	"context"
	"fmt"
	"strings"

	"github.com/taskpilot-dev/taskpilot/internal/agentsession"
	"github.com/taskpilot-dev/taskpilot/internal/mcptools"
	"github.com/taskpilot-dev/taskpilot/internal/preflight"
	"github.com/taskpilot-dev/taskpilot/internal/profile"
	"github.com/taskpilot-dev/taskpilot/internal/prompt"
	"github.com/taskpilot-dev/taskpilot/internal/taskdb"
	"github.com/taskpilot-dev/taskpilot/internal/workflow"
)

// isAgentEditTransition reports whether transition is one the filesystem
// capability (readTextFile/writeTextFile) is granted for — beginning
// implementation and every remediation turn that follows a QA failure,
// the same set branch.requiresBranch acts on minus the procedural run-*
// transitions.
func isAgentEditTransition(transition string) bool {
	return transition == "begin-implementation" || strings.HasSuffix(transition, "-failed")
}

// dispatchAgent resolves the executing profile, composes the turn's prompt,
// runs it through the Agent Session Driver, and folds the result into a
// context patch.
func (d *Dispatcher) dispatchAgent(ctx context.Context, in Input, transition string, task *taskdb.Task) (Outcome, error) {
	completion, prof, err := d.runAgentTurn(ctx, in, transition, task, "")
	if err != nil {
		return Outcome{}, err
	}

	patch := d.contextPatchFromCompletion(transition, task, completion)

	summary := d.mask(summarizeCompletion(completion))

	if task != nil {
		entry := taskdb.ActionLogEntry{
			Actor:   prof.Name,
			Summary: summary,
			Success: completion.Success,
		}
		if err := d.deps.Tasks.AppendActionLog(ctx, task.ID, entry); err != nil {
			d.deps.Logger.Warn("dispatcher: append action log failed", "task", task.ID, "error", err)
		}
	}

	return Outcome{ContextPatch: patch, Success: completion.Success, Summary: summary}, nil
}

// runAgentTurn resolves the profile for state/transition, optionally checks
// out the task's branch, builds the prompt, and runs one agent session
// turn. extraPrefix, if non-empty, is prepended to the composed prompt (the
// e2e investigation flow uses this to inject the investigation report).
func (d *Dispatcher) runAgentTurn(ctx context.Context, in Input, transition string, task *taskdb.Task, extraPrefix string) (agentsession.Completion, profile.Profile, error) {
	profileName := d.deps.Graph.ProfileFor(in.State, transition)
	prof, ok := d.deps.Profiles.Get(profileName)
	if !ok {
		return agentsession.Completion{}, profile.Profile{}, fmt.Errorf("dispatcher: no profile registered for %q", profileName)
	}

	if task != nil && isAgentEditTransition(transition) {
		if err := d.checkoutTaskBranch(ctx, transition, task); err != nil {
			return agentsession.Completion{}, prof, err
		}
	}

	required := prompt.RequiredBaseTools(transition)
	advertised := d.buildAdvertisedTools(ctx, prof)

	promptIn := prompt.Input{
		Profile:         prof,
		State:           in.State,
		Transition:      transition,
		IsDecider:       isDeciderTransition(d, in.State, transition),
		SelectedTask:    task,
		TestReport:      testReportFromContext(in.Context),
		IsCodingProfile: prof.Name == profile.NameSeniorDeveloper,
		Context:         in.Context,
	}
	if hint, ok := in.Context["workflowHint"].(string); ok && hint != "" {
		promptIn.WorkflowHintApplies = true
		promptIn.WorkflowHint = hint
	}
	if report, ok := investigationReportFromContext(in.Context); ok {
		promptIn.FailurePacket = report
	}

	text := d.deps.Prompts.Build(promptIn)
	if extraPrefix != "" {
		text = extraPrefix + "\n\n" + text
	}

	completion, err := d.deps.Agents.Run(ctx, agentsession.Input{
		Profile:           prof,
		Prompt:            text,
		Transition:        transition,
		AllowFileEdits:    isAgentEditTransition(transition),
		MCPServers:        prof.MCPServers,
		AdvertisedTools:   advertised,
		RequiredBaseTools: required,
	})
	if err != nil {
		return agentsession.Completion{}, prof, fmt.Errorf("dispatcher: agent turn for %q failed: %w", transition, err)
	}
	return completion, prof, nil
}

func isDeciderTransition(d *Dispatcher, state, transition string) bool {
	name, ok := d.deps.Graph.DeciderFor(state)
	return ok && name == transition
}

// buildAdvertisedTools resolves, for each of a profile's declared MCP
// servers, the exact runtime-facing tool names this core's naming
// convention produces for every base tool name the server actually
// advertises — used by the agent session driver's tool-call correctness
// retries.
func (d *Dispatcher) buildAdvertisedTools(ctx context.Context, prof profile.Profile) []string {
	if d.deps.MCP == nil {
		return nil
	}
	var advertised []string
	for _, server := range prof.MCPServers {
		tools, err := d.deps.MCP.ListTools(ctx, server.Name)
		if err != nil {
			d.deps.Logger.Warn("dispatcher: listing MCP tools failed", "server", server.Name, "error", err)
			continue
		}
		available := make(map[string]bool, len(tools))
		for _, t := range tools {
			available[t.Name] = true
		}
		for _, base := range server.BaseToolNames {
			if !available[base] {
				continue
			}
			advertised = append(advertised, mcptools.ExactToolNames(server.Name, base)...)
		}
	}
	return advertised
}

// contextPatchFromCompletion builds the post-turn context patch: task
// identity keys, plus lastTestResult/testReport inferred from the raw
// completion text when no procedural outcome already set them (only
// agent-run QA transitions produce this inference; no separate testStatus
// key is written). begin-implementation
// and every other non-QA-tracked transition instead clear lastTestResult/
// testReport, so a stale result from a prior QA cycle never survives into
// a new one.
func (d *Dispatcher) contextPatchFromCompletion(transition string, task *taskdb.Task, completion agentsession.Completion) map[string]any {
	patch := map[string]any{}
	mergeTaskContext(patch, task)

	if !completion.Success {
		patch["lastAgentError"] = d.mask(completion.Error)
		return patch
	}

	if transition == workflow.TransitionBeginImplementation || !workflow.QATrackedTransitions[transition] {
		patch["lastTestResult"] = nil
		patch["testReport"] = nil
		return patch
	}

	if status, report, ok := inferTestOutcome(completion.Text); ok {
		report.Notes = d.mask(report.Notes)
		patch["lastTestResult"] = status
		patch["testReport"] = report
	}

	return patch
}

func summarizeCompletion(c agentsession.Completion) string {
	if !c.Success {
		return c.Error
	}
	if c.StopReason != "" {
		return fmt.Sprintf("stop_reason=%s tool_calls=%d", c.StopReason, c.MCPToolCallCount+c.NonMCPToolCallCount)
	}
	return "completed"
}

func testReportFromContext(ctx map[string]any) *preflight.TestReport {
	raw, ok := ctx["testReport"]
	if !ok {
		return nil
	}
	report, ok := raw.(preflight.TestReport)
	if !ok {
		return nil
	}
	return &report
}

func investigationReportFromContext(ctx map[string]any) (string, bool) {
	for _, key := range []string{"e2eTestFailureInvestigationReport", "e2e-test-failure-investigation-report"} {
		if v, ok := ctx[key].(string); ok && v != "" {
			return v, true
		}
	}
	return "", false
}
