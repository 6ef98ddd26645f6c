// Package taskdb defines the contract the orchestrator core consumes from
// the external task database, plus reference adapters (in-memory and
// Postgres) used for local development, tests, and single-process runs.
//
// The task database itself — CRUD, the dependency graph, its storage
// engine — lives outside the core. Only the contract in this file and
// the Store interface in store.go are part of the core.
package taskdb

import (
	"strings"
	"time"
)

// Priority orders tasks within a type. Unspecified sorts last.
type Priority string

// Priority values, ordered high to low.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// rank returns a lower-is-better sort key; unknown/empty priorities sort last.
func (p Priority) rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// Less reports whether p should sort before other (higher priority first).
func (p Priority) Less(other Priority) bool {
	return p.rank() < other.rank()
}

// Status is a task's lifecycle state.
type Status string

// Status values.
const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in-progress"
	StatusDone       Status = "done"
	StatusInvalid    Status = "invalid"
)

// Type is the kind of work a task represents. TaskSelector aliases
// implementation/task and testing/integration when matching target types.
type Type string

// Type values.
const (
	TypeTheme          Type = "theme"
	TypeInitiative     Type = "initiative"
	TypeFeature        Type = "feature"
	TypeStory          Type = "story"
	TypeImplementation Type = "implementation"
	TypeTask           Type = "task"
	TypeTesting        Type = "testing"
	TypeIntegration    Type = "integration"
)

// IsValid reports whether t is one of the known task types.
func (t Type) IsValid() bool {
	switch t {
	case TypeTheme, TypeInitiative, TypeFeature, TypeStory, TypeImplementation, TypeTask, TypeTesting, TypeIntegration:
		return true
	default:
		return false
	}
}

// IsImplementationLike reports whether t is treated as implementation work
// (implementation and its task alias) when matching a target type.
func (t Type) IsImplementationLike() bool {
	return t == TypeImplementation || t == TypeTask
}

// IsTestingLike reports whether t is treated as testing work (testing and
// its integration alias) when matching a target type.
func (t Type) IsTestingLike() bool {
	return t == TypeTesting || t == TypeIntegration
}

// ActionLogEntry is one opaque entry in a task's action log.
type ActionLogEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Actor     string         `json:"actor"`
	Summary   string         `json:"summary"`
	Success   bool           `json:"success"`
	Extra     map[string]any `json:"extra,omitempty"`
}

// Task is the external task record the core reads and patches.
type Task struct {
	ID             string
	Title          string
	Description    string
	Priority       Priority
	Type           Type
	Status         Status
	DependencyIDs  []string
	Branch         string
	AssignedWorker string
	ActionLog      []ActionLogEntry
	UpdatedAt      time.Time
}

// dependencySatisfied reports whether a dependency reference is satisfied: done, or
// invalid (invalid dependencies no longer block downstream work).
func (t Task) dependencySatisfied(status Status) bool {
	return status == StatusDone || status == StatusInvalid
}

// Runnable reports whether a task is runnable: implementation-typed, todo
// or in-progress, and every dependency resolved.
func Runnable(t Task, byID map[string]Task) bool {
	if !t.Type.IsImplementationLike() {
		return false
	}
	if t.Status != StatusTodo && t.Status != StatusInProgress {
		return false
	}
	for _, depID := range t.DependencyIDs {
		dep, ok := byID[depID]
		if !ok {
			return false
		}
		if !dep.dependencySatisfied(dep.Status) {
			return false
		}
	}
	return true
}

// DescriptionIncomplete reports whether a task's description is empty or a
// known placeholder — used by selectInvalidTaskForClosure.
func DescriptionIncomplete(description string) bool {
	trimmed := strings.ToLower(strings.TrimSpace(description))
	if trimmed == "" {
		return true
	}
	switch trimmed {
	case "todo", "tbd", "t.b.d.", "n/a", "na", "...", "placeholder":
		return true
	}
	return false
}
