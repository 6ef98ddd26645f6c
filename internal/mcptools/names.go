package mcptools

import "strings"

// ExactToolNames returns the candidate exact tool names an agent runtime is
// likely to expose for a declared base tool name on a server:
// "functions.mcp__{server}__{tool}" (and a "_" variant of the server name
// when it contains dashes). The prompt builder uses this to name the exact
// tools in the prompt, and the dispatcher uses it to build the advertised
// tool list it hands to the agent session driver.
func ExactToolNames(server, baseTool string) []string {
	primary := "functions.mcp__" + server + "__" + baseTool
	names := []string{primary}

	underscored := strings.ReplaceAll(server, "-", "_")
	if underscored != server {
		names = append(names, "functions.mcp__"+underscored+"__"+baseTool)
	}
	return names
}

// IsResourceDiscoveryTool reports whether toolName is one of the
// resource-discovery operations that must never substitute for a
// task-manager operation.
func IsResourceDiscoveryTool(toolName string) bool {
	lower := strings.ToLower(toolName)
	switch {
	case strings.Contains(lower, "list_mcp_resources"):
		return true
	case strings.Contains(lower, "read_mcp_resource"):
		return true
	case strings.HasSuffix(lower, "_templates"):
		return true
	}
	return false
}
