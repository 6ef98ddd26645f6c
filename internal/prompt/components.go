package prompt

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/taskpilot-dev/taskpilot/internal/mcptools"
	"github.com/taskpilot-dev/taskpilot/internal/taskdb"
)

// systemPromptBlock is prompt part 1.
func systemPromptBlock(in Input) string {
	return in.Profile.DefaultSystemPrompt
}

// transitionSOPBlock is prompt part 2.
func transitionSOPBlock(in Input) string {
	role := "transition-executor"
	if in.IsDecider {
		role = "decider"
	}
	return fmt.Sprintf(
		"Transition SOP: state=%s transition=%s role=%s. Execute this transition only. "+
			"Prefer prefetched context over redundant tool calls. Minimize tool calls. Use exact tool names.",
		in.State, in.Transition, role)
}

// mcpToolingBlock is prompt part 3.
func mcpToolingBlock(in Input) string {
	required := requiredBaseTools(in.Transition)
	requiredSet := make(map[string]bool, len(required))
	for _, r := range required {
		requiredSet[r] = true
	}

	var b strings.Builder
	b.WriteString("MCP tooling:\n")
	for _, server := range in.Profile.MCPServers {
		for _, base := range server.BaseToolNames {
			if !requiredSet[base] {
				continue
			}
			exact := mcptools.ExactToolNames(server.Name, base)
			fmt.Fprintf(&b, "- %s -> %s\n", base, strings.Join(exact, " or "))
		}
	}
	b.WriteString(
		"The ACP-exposed tool list is authoritative. Map each base tool name above to its exact\n" +
			"advertised name; never invent a variant spelling; never claim a tool is missing when its\n" +
			"exact name is visible in the advertised tool list. Resource-discovery calls " +
			"(codex/list_mcp_resources, */read_mcp_resource, *_templates) never substitute for a\n" +
			"task-manager operation.")
	return b.String()
}

// workflowHintBlock is prompt part 4.
func workflowHintBlock(in Input) string {
	if !in.WorkflowHintApplies || in.WorkflowHint == "" {
		return ""
	}
	return "Workflow hint: " + in.WorkflowHint
}

// selectedTaskContextBlock is prompt part 5.
func selectedTaskContextBlock(in Input) string {
	if in.SelectedTask == nil {
		return ""
	}
	t := in.SelectedTask
	return fmt.Sprintf("Selected task: id=%s type=%s status=%s priority=%s\nTitle: %s\nDescription: %s",
		t.ID, t.Type, t.Status, t.Priority, t.Title, t.Description)
}

// testReportBlock is prompt part 6.
func testReportBlock(in Input) string {
	if in.TestReport == nil {
		return ""
	}
	r := in.TestReport
	var b strings.Builder
	b.WriteString("Test report:\n")
	if len(r.FailedTests) > 0 {
		fmt.Fprintf(&b, "Failed tests: %s\n", strings.Join(r.FailedTests, "; "))
	}
	if len(r.ReproSteps) > 0 {
		fmt.Fprintf(&b, "Repro steps: %s\n", strings.Join(r.ReproSteps, "; "))
	}
	if r.SuspectedRootCause != "" {
		fmt.Fprintf(&b, "Suspected root cause: %s\n", r.SuspectedRootCause)
	}
	if r.Notes != "" {
		fmt.Fprintf(&b, "Notes: %s\n", r.Notes)
	}
	return strings.TrimRight(b.String(), "\n")
}

// failurePacketBlock is prompt part 7 — only present for QA failure
// transitions (*-failed), where in.FailurePacket is set by the caller.
func failurePacketBlock(in Input) string {
	if in.FailurePacket == "" {
		return ""
	}
	return "Failure packet:\n" + in.FailurePacket
}

// mechanicalPreflightBlock is prompt part 8.
func mechanicalPreflightBlock(in Input) string {
	if in.MechanicalPreflight == nil {
		return ""
	}
	r := in.MechanicalPreflight
	return fmt.Sprintf("Mechanical preflight result: stage=%s status=%s\n%s", r.Stage, r.Status, r.Summary)
}

// prefetchedListBlock is prompt part 9.
func prefetchedListBlock(in Input) string {
	if len(in.PrefetchedTasks) == 0 {
		return ""
	}
	sorted := make([]taskdb.Task, len(in.PrefetchedTasks))
	copy(sorted, in.PrefetchedTasks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	var b strings.Builder
	b.WriteString("Prefetched list_tasks result:\n")
	for _, t := range sorted {
		fmt.Fprintf(&b, "- %s [%s/%s] %s\n", t.ID, t.Type, t.Status, t.Title)
	}
	return strings.TrimRight(b.String(), "\n")
}

// referencePromptBlock is prompt part 10: profile-specific reference files
// loaded from <workspaceRoot>/prompts/<name>, resolved once per build.
func referencePromptBlock(workspaceRoot string, files []string) string {
	if workspaceRoot == "" || len(files) == 0 {
		return ""
	}
	var b strings.Builder
	for _, name := range files {
		content, err := os.ReadFile(filepath.Join(workspaceRoot, "prompts", name))
		if err != nil {
			continue // missing reference prompts are skipped, not fatal
		}
		fmt.Fprintf(&b, "--- %s ---\n%s\n", name, strings.TrimRight(string(content), "\n"))
	}
	return strings.TrimRight(b.String(), "\n")
}

// projectRulesBlock is prompt part 11.
func projectRulesBlock(in Input) string {
	var b strings.Builder
	b.WriteString("Project rules: follow this repository's existing conventions; never restart the daemon directly.")
	if in.IsCodingProfile {
		b.WriteString(
			"\nCoding conventions: 4-space indent, double quotes, functional style, ESM with explicit extensions.")
	}
	return b.String()
}

// guardrailsBlock is prompt part 12.
func guardrailsBlock() string {
	return "Resolution guardrails: if the task is already implemented, say so and propose a follow-up task;\n" +
		"if a file read is permission-denied, say so and proceed; if the sandbox blocks a command,\n" +
		"say so and state the exact command you would have run."
}

// summaryInstructionBlock is prompt part 13.
func summaryInstructionBlock(in Input) string {
	if !needsSummary(in.Transition) {
		return ""
	}
	return `End your response with a line starting exactly "Summary:" followed by one sentence.`
}

// taskPromptBlock is prompt part 14.
func taskPromptBlock(in Input) string {
	if in.Profile.TaskPrompt == nil {
		return ""
	}
	return in.Profile.TaskPrompt(in.Context)
}
