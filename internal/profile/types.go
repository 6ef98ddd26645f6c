// Package profile implements the Profile Registry: built-in agent personas
// merged with persisted overrides, and the in-memory processing state each
// one accumulates while the core runs.
package profile

import (
	"errors"
	"time"
)

// RuntimeFlavor selects the agent runtime an agent session is spawned under.
type RuntimeFlavor string

// Runtime flavor values.
const (
	RuntimeCodex    RuntimeFlavor = "codex"
	RuntimeOpenCode RuntimeFlavor = "opencode"
)

// IsValid reports whether f is one of the known runtime flavors.
func (f RuntimeFlavor) IsValid() bool {
	switch f {
	case RuntimeCodex, RuntimeOpenCode:
		return true
	default:
		return false
	}
}

// TaskPromptFunc is the deterministic function from a merged execution
// context map to a task prompt, as carried by Profile.TaskPrompt.
type TaskPromptFunc func(context map[string]any) string

// MCPServerRef is one entry of a profile's declared MCP server list.
type MCPServerRef struct {
	Name          string
	Transport     string
	Command       string
	Args          []string
	Env           map[string]string
	URL           string
	BaseToolNames []string
}

// SandboxHints carries optional sandbox/approval policy passed through to
// the agent runtime when a session is spawned for this profile.
type SandboxHints struct {
	SandboxPolicy  string
	ApprovalPolicy string
}

// Profile is a named agent persona: identity, declared capabilities, and
// the defaults a session spawned under it starts with.
type Profile struct {
	Name                string
	RoleLabel           string
	Capabilities        []string
	ConcurrencyCap      int
	Priority            int // lower = higher strategic rank
	DefaultRuntime      RuntimeFlavor
	DefaultModel        string
	DefaultSystemPrompt string
	TaskPrompt          TaskPromptFunc
	MCPServers          []MCPServerRef
	Sandbox             *SandboxHints
}

// Override is a persisted, partial override for one profile. Zero-value
// fields mean "no override for this field" — an Override with every field
// empty is equivalent to no override and is deleted by the store.
type Override struct {
	ProfileName      string
	Runtime          RuntimeFlavor
	Model            string
	SystemPrompt     string
	TaskPromptPrefix string
	UpdatedAt        time.Time
}

// IsEmpty reports whether o carries no actual override data.
func (o Override) IsEmpty() bool {
	return o.Runtime == "" && o.Model == "" && o.SystemPrompt == "" && o.TaskPromptPrefix == ""
}

// ProcessingRecord is one entry of a profile's rolling processing history.
type ProcessingRecord struct {
	Timestamp time.Time
	Duration  time.Duration
	Success   bool
}

// State is the in-memory, per-profile operating state the registry tracks
// alongside the (mostly static) Profile record.
type State struct {
	Active            bool
	InFlight          int
	Completed         int
	Failed            int
	History           []ProcessingRecord // rolling last-100
	AvgProcessingTime time.Duration
	QueueSize         int
	LastActivity      time.Time
}

// Snapshot is the Registry's read API shape: a profile's built-in defaults,
// its current override (if any), the merged effective profile, and when the
// override was last applied.
type Snapshot struct {
	Defaults  Profile
	Override  *Override
	Effective Profile
	UpdatedAt *time.Time
}

// ErrNotFound is returned when a profile name has no built-in definition.
var ErrNotFound = errors.New("profile: not found")

const historyLimit = 100
