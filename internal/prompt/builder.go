// Package prompt implements the Prompt Builder: the deterministic,
// side-effect-free composition of an agent session's prompt from a
// profile's system prompt, transition bookkeeping, MCP tooling guidance,
// and optional context blocks, adapted from a prompt package's approach:
// small pure block functions joined with
// strings.Builder, each independently unit-testable.
package prompt

import "strings"

// Builder composes prompts for one workspace root (used to resolve
// on-disk reference prompt files).
type Builder struct {
	workspaceRoot string
}

// New creates a Builder rooted at workspaceRoot. An empty root disables
// reference-prompt loading (point 10 is simply omitted).
func New(workspaceRoot string) *Builder {
	return &Builder{workspaceRoot: workspaceRoot}
}

// Build composes the full prompt using a fixed 14-part ordering.
// Empty blocks are dropped entirely rather than leaving blank sections.
func (b *Builder) Build(in Input) string {
	blocks := []string{
		systemPromptBlock(in),
		transitionSOPBlock(in),
		mcpToolingBlock(in),
		workflowHintBlock(in),
		selectedTaskContextBlock(in),
		testReportBlock(in),
		failurePacketBlock(in),
		mechanicalPreflightBlock(in),
		prefetchedListBlock(in),
		referencePromptBlock(b.workspaceRoot, in.ReferencePromptFiles),
		projectRulesBlock(in),
		guardrailsBlock(),
		summaryInstructionBlock(in),
		taskPromptBlock(in),
	}

	var nonEmpty []string
	for _, block := range blocks {
		if strings.TrimSpace(block) != "" {
			nonEmpty = append(nonEmpty, block)
		}
	}
	return strings.Join(nonEmpty, "\n\n")
}
