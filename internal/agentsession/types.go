// Package agentsession implements the Agent Session Driver: spawning a
// runtime subprocess for a profile's declared runtime flavor,
// running one prompt turn over internal/acp's JSON-RPC session, and
// enforcing the tool-call correctness retry policy before returning a
// completion.
package agentsession

import (
	"github.com/taskpilot-dev/taskpilot/internal/profile"
)

// Launcher is how a runtime flavor is spawned — the command and fixed args
// for the `codex` or `opencode` binary, supplied by the caller of New.
type Launcher struct {
	Command string
	Args    []string
	Env     []string
}

// Input is everything one turn needs.
type Input struct {
	Profile    profile.Profile
	Prompt     string
	Transition string

	// AllowFileEdits gates both readTextFile and writeTextFile capabilities
	// together — true iff the transition is an agent-edit transition.
	AllowFileEdits bool

	SandboxPolicy  string
	ApprovalPolicy string

	MCPServers []profile.MCPServerRef

	// AdvertisedTools is the exact tool name list the core observed from
	// the MCP client for this profile's declared servers; used by the
	// tool-call correctness retries.
	AdvertisedTools []string

	// RequiredBaseTools is requiredBaseTools(Transition) from the prompt
	// builder's table — passed in rather than recomputed so internal/prompt
	// stays the single source of truth for the table.
	RequiredBaseTools []string
}

// Completion is the driver's result for one call to Run.
type Completion struct {
	Success bool
	Error   string

	Text       string
	ModelName  string
	StopReason string

	ToolCallTitles      []string
	MCPToolCallCount    int
	NonMCPToolCallCount int
}
