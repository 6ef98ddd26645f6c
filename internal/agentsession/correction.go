package agentsession

import (
	"fmt"
	"strings"
)

// missingToolPhrases are substrings that, found in an agent's message text,
// suggest it believes a tool it actually has is unavailable.
var missingToolPhrases = []string{
	"don't have access to",
	"do not have access to",
	"no access to",
	"is not available",
	"are not available",
	"tool is missing",
	"tools are missing",
	"cannot find a tool",
	"no such tool",
}

func assertsMissingTools(text string) bool {
	lower := strings.ToLower(text)
	for _, phrase := range missingToolPhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

// reviewOnlyTransitions are the transitions exempted from the
// "a required MCP call must have happened" retry trigger — they decide
// without necessarily mutating task state.
var reviewOnlyTransitions = map[string]bool{
	"review-task-validity":  true,
	"review-story-coverage": true,
	"pick-up-next-task":     true,
}

func requiresMCPExecution(transition string) bool {
	return !reviewOnlyTransitions[transition]
}

// correctionPrompt returns the text of the next correction turn to submit,
// and whether one is needed at all, by checking the tool-call correctness
// triggers in priority order: a false claim of missing tools,
// a required operation never invoked, and resource-discovery-only MCP
// activity standing in for the real one.
func correctionPrompt(in Input, st turnState) (string, bool) {
	if assertsMissingTools(st.text.String()) && len(in.AdvertisedTools) > 0 {
		return falseMissingToolsCorrection(in.AdvertisedTools), true
	}

	if requiresMCPExecution(in.Transition) && len(in.AdvertisedTools) > 0 &&
		len(in.RequiredBaseTools) > 0 && !anyRequiredToolCalled(in.RequiredBaseTools, st.toolCallTitles) {
		return missingRequiredCallCorrection(in.RequiredBaseTools, in.AdvertisedTools), true
	}

	if onlyResourceDiscoveryCalls(st.toolCallTitles) {
		return resourceDiscoveryOnlyCorrection(in.RequiredBaseTools), true
	}

	return "", false
}

func falseMissingToolsCorrection(advertised []string) string {
	var b strings.Builder
	b.WriteString("The tools you said were unavailable are present on this session. ")
	b.WriteString("The exact tool names exposed to you are:\n")
	for _, name := range advertised {
		fmt.Fprintf(&b, "- %s\n", name)
	}
	b.WriteString("Call the appropriate one directly instead of asking for a substitute or giving up.")
	return b.String()
}

func missingRequiredCallCorrection(required, advertised []string) string {
	var b strings.Builder
	b.WriteString("This turn did not invoke a required task-manager operation. ")
	b.WriteString("Before finishing, call one of:\n")
	for _, name := range required {
		fmt.Fprintf(&b, "- %s\n", name)
	}
	b.WriteString("using its exact advertised name from:\n")
	for _, name := range advertised {
		fmt.Fprintf(&b, "- %s\n", name)
	}
	return b.String()
}

func resourceDiscoveryOnlyCorrection(required []string) string {
	var b strings.Builder
	b.WriteString("Listing or reading MCP resources is not a substitute for performing the task-manager operation itself. ")
	if len(required) > 0 {
		b.WriteString("Call one of:\n")
		for _, name := range required {
			fmt.Fprintf(&b, "- %s\n", name)
		}
	} else {
		b.WriteString("Perform the actual operation this transition requires, not just discovery calls.")
	}
	return b.String()
}

// finalEnforcementFailure builds the Completion returned when the
// correction-turn budget is exhausted and the session still has not
// performed the required operation.
func finalEnforcementFailure(in Input, st turnState) Completion {
	var b strings.Builder
	b.WriteString("agent session exhausted its correction turns without invoking a required operation")
	if len(in.RequiredBaseTools) > 0 {
		b.WriteString(": required one of ")
		b.WriteString(strings.Join(in.RequiredBaseTools, ", "))
	}
	if len(st.toolCallTitles) > 0 {
		b.WriteString("; observed tool calls: ")
		b.WriteString(strings.Join(st.toolCallTitles, ", "))
	}
	return Completion{
		Success:             false,
		Error:               b.String(),
		Text:                st.text.String(),
		ModelName:           st.modelName,
		StopReason:          st.stopReason,
		ToolCallTitles:      st.toolCallTitles,
		MCPToolCallCount:    st.mcpCount,
		NonMCPToolCallCount: st.nonMCPCount,
	}
}
