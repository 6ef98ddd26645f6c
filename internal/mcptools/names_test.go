package mcptools

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExactToolNames(t *testing.T) {
	names := ExactToolNames("task-manager", "list_tasks")
	assert.Contains(t, names, "functions.mcp__task-manager__list_tasks")
	assert.Contains(t, names, "functions.mcp__task_manager__list_tasks")
}

func TestExactToolNamesNoDashes(t *testing.T) {
	names := ExactToolNames("filesystem", "get_file_context")
	assert.Equal(t, []string{"functions.mcp__filesystem__get_file_context"}, names)
}

func TestIsResourceDiscoveryTool(t *testing.T) {
	assert.True(t, IsResourceDiscoveryTool("codex/list_mcp_resources"))
	assert.True(t, IsResourceDiscoveryTool("codex/read_mcp_resource"))
	assert.True(t, IsResourceDiscoveryTool("functions.mcp__server__resource_templates"))
	assert.False(t, IsResourceDiscoveryTool("functions.mcp__task-manager__list_tasks"))
}
