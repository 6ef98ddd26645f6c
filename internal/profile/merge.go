package profile

// applyOverride returns the effective profile for defaults with ov layered
// on top: override fields win when non-empty; a non-empty taskPromptPrefix
// wraps (not replaces) the default task-prompt builder.
func applyOverride(defaults Profile, ov *Override) Profile {
	if ov == nil {
		return defaults
	}
	effective := defaults
	if ov.Runtime != "" {
		effective.DefaultRuntime = ov.Runtime
	}
	if ov.Model != "" {
		effective.DefaultModel = ov.Model
	}
	if ov.SystemPrompt != "" {
		effective.DefaultSystemPrompt = ov.SystemPrompt
	}
	if ov.TaskPromptPrefix != "" {
		prefix := ov.TaskPromptPrefix
		defaultBuilder := defaults.TaskPrompt
		effective.TaskPrompt = func(context map[string]any) string {
			return prefix + "\n\n" + defaultBuilder(context)
		}
	}
	return effective
}
