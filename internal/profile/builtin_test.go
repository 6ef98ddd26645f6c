package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltinCoversAllNames(t *testing.T) {
	profiles := Builtin()
	for _, name := range []string{
		NamePrioritizationLead, NameProductRefiner, NameSeniorDeveloper,
		NameQAPreflightRunner, NameQAE2EInvestigator, NameTaskValidityReviewer,
	} {
		p, ok := profiles[name]
		require.True(t, ok, "missing profile %q", name)
		assert.Equal(t, name, p.Name)
		assert.NotEmpty(t, p.DefaultSystemPrompt)
		require.NotNil(t, p.TaskPrompt)
		assert.True(t, p.DefaultRuntime.IsValid())
	}
}

func TestTaskPromptRendersContext(t *testing.T) {
	p := Builtin()[NameSeniorDeveloper]
	out := p.TaskPrompt(map[string]any{"currentTask": "task-1: fix the thing"})
	assert.Contains(t, out, "task-1: fix the thing")
}
