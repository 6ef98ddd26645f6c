package prompt

import "strings"

// RequiredBaseTools exports requiredBaseTools for callers outside the
// package — the transition dispatcher and agent session driver need the
// same table to build a turn's required-operation list, and this stays the
// single source of truth for it.
func RequiredBaseTools(transition string) []string {
	return requiredBaseTools(transition)
}

// requiredBaseTools implements the "required base tools per transition
// kind" table. Transition kinds are recognized by exact name or
// prefix, matching the table's own notation (`prioritize-*`, `run-*`, etc).
func requiredBaseTools(transition string) []string {
	switch {
	case strings.HasPrefix(transition, "prioritize-"):
		return []string{"list_tasks", "update_task_priority"}
	case transition == "research" || transition == "refine-into-tasks" ||
		transition == "do-ux-research" || transition == "need-more-tasks":
		return []string{"list_tasks", "get_task", "create_task", "update_task"}
	case transition == "begin-implementation" || strings.HasSuffix(transition, "-failed"):
		return []string{"update_task_status", "get_file_context", "update_context"}
	case strings.HasPrefix(transition, "run-"):
		return []string{"update_context", "update_task_status", "get_file_context"}
	case transition == "close-invalid-task":
		return []string{"update_task_status"}
	case transition == "review-task-validity" || transition == "review-story-coverage" ||
		transition == "pick-up-next-task":
		return []string{"list_tasks", "get_task"}
	default:
		return defaultBaseTools
	}
}

// defaultBaseTools is the "default: full set" row of the table.
var defaultBaseTools = []string{
	"list_tasks", "get_task", "create_task", "update_task", "update_task_priority",
	"update_task_status", "claim_task", "append_action_log", "get_file_context",
	"update_context",
}
