package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskpilot-dev/taskpilot/internal/profile"
	"github.com/taskpilot-dev/taskpilot/internal/taskdb"
)

func TestInitializeWithNoFilePresentReturnsBuiltinDefaults(t *testing.T) {
	cfg, err := Initialize(context.Background(), t.TempDir())
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, profile.Builtin(), cfg.ProfileDefaults)
	assert.NotNil(t, cfg.Graph)
	assert.Equal(t, 1, cfg.Worker.WorkerCount)
	assert.Equal(t, 10*time.Second, cfg.Worker.PollInterval)
}

func TestInitializeAppliesMCPServerOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, fileName, `
mcp_servers:
  task-manager:
    command: /usr/local/bin/task-manager
    args: ["--stdio"]
    env:
      TASK_MANAGER_TOKEN: ${TASK_MANAGER_TOKEN}
`)
	t.Setenv("TASK_MANAGER_TOKEN", "secret-token")

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	p, ok := cfg.ProfileDefaults[profile.NamePrioritizationLead]
	require.True(t, ok)
	require.Len(t, p.MCPServers, 1)
	ref := p.MCPServers[0]
	assert.Equal(t, "task-manager", ref.Name)
	assert.Equal(t, "/usr/local/bin/task-manager", ref.Command)
	assert.Equal(t, []string{"--stdio"}, ref.Args)
	assert.Equal(t, "secret-token", ref.Env["TASK_MANAGER_TOKEN"])
	assert.Equal(t, "stdio", ref.Transport, "transport left untouched when not overridden")
}

func TestInitializeAppliesGraphOverrides(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, fileName, `
graph:
  profiles:
    begin-implementation: senior-developer
  target_types:
    begin-implementation: task
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	transition, ok := cfg.Graph.Transition("begin-implementation")
	require.True(t, ok)
	assert.Equal(t, "senior-developer", transition.ProfileOverride)
	assert.Equal(t, taskdb.TypeTask, transition.TargetTypeOverride)
}

func TestInitializeRejectsUnknownTargetType(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, fileName, `
graph:
  target_types:
    begin-implementation: not-a-real-type
`)

	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown target type")
}

func TestInitializeMergesQueueConfig(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, fileName, `
queue:
  worker_count: 4
  poll_interval: 2s
  claim_mode: true
  context_id: team-a
`)

	cfg, err := Initialize(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.Worker.WorkerCount)
	assert.Equal(t, 2*time.Second, cfg.Worker.PollInterval)
	assert.True(t, cfg.Worker.ClaimMode)
	assert.Equal(t, "team-a", cfg.Worker.ContextID)
	// Unset fields fall back to DefaultConfig().
	assert.Equal(t, 60*time.Second, cfg.Worker.NoTaskHeartbeatInterval)
}

func TestInitializeRejectsMalformedYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, fileName, "queue: [this is not a mapping")

	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidYAML)
}

func TestInitializeRejectsBadDuration(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, fileName, `
queue:
  poll_interval: "not-a-duration"
`)

	_, err := Initialize(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "poll_interval")
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600))
}
