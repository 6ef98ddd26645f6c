package agentsession

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taskpilot-dev/taskpilot/internal/agentsession/fakeruntime"
	"github.com/taskpilot-dev/taskpilot/internal/profile"
)

// fakeRuntimeEnvVar, when set to "1", tells TestMain to behave as the fake
// runtime subprocess instead of running the package's tests — the re-exec
// gate SPEC_FULL.md's §6.A calls for.
const fakeRuntimeEnvVar = "AGENTSESSION_FAKE_RUNTIME"

func TestMain(m *testing.M) {
	if os.Getenv(fakeRuntimeEnvVar) == "1" {
		var script fakeruntime.Script
		if raw := os.Getenv(fakeruntime.ScriptEnvVar); raw != "" {
			_ = json.Unmarshal([]byte(raw), &script)
		}
		_ = fakeruntime.Run(os.Stdin, os.Stdout, script)
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func launcherFor(t *testing.T, script fakeruntime.Script) Launcher {
	t.Helper()
	raw, err := json.Marshal(script)
	require.NoError(t, err)
	return Launcher{
		Command: os.Args[0],
		Env: append(append([]string{}, os.Environ()...),
			fakeRuntimeEnvVar+"=1",
			fakeruntime.ScriptEnvVar+"="+string(raw),
		),
	}
}

func testProfile() profile.Profile {
	return profile.Profile{
		Name:           "senior-developer",
		DefaultRuntime: profile.RuntimeCodex,
		DefaultModel:   "gpt-5-codex",
	}
}

func rawEvent(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	return raw
}

func TestRunSuccessfulTurn(t *testing.T) {
	script := fakeruntime.Script{Turns: []fakeruntime.Turn{
		{
			Events: []fakeruntime.Event{
				{Method: "agent_message_chunk", Params: rawEvent(t, map[string]string{"text": "hello world"})},
				{Method: "tool_call", Params: rawEvent(t, map[string]string{
					"id": "1", "title": "functions.mcp__task-manager__update_task_status", "status": "completed",
				})},
				{Method: "turn_complete", Params: rawEvent(t, map[string]string{"stopReason": "end_turn"})},
			},
			Result: rawEvent(t, map[string]string{"model": "gpt-5-codex"}),
		},
	}}

	d := New(map[string]Launcher{string(profile.RuntimeCodex): launcherFor(t, script)})

	completion, err := d.Run(context.Background(), Input{
		Profile:           testProfile(),
		Prompt:            "do the thing",
		Transition:        "begin-implementation",
		AdvertisedTools:   []string{"functions.mcp__task-manager__update_task_status"},
		RequiredBaseTools: []string{"update_task_status"},
	})
	require.NoError(t, err)
	assert.True(t, completion.Success)
	assert.Equal(t, "hello world", completion.Text)
	assert.Equal(t, "gpt-5-codex", completion.ModelName)
	assert.Equal(t, 1, completion.MCPToolCallCount)
	assert.Equal(t, "end_turn", completion.StopReason)
}

func TestRunMissingRequiredCallTriggersCorrectionThenSucceeds(t *testing.T) {
	script := fakeruntime.Script{Turns: []fakeruntime.Turn{
		{
			Events: []fakeruntime.Event{
				{Method: "agent_message_chunk", Params: rawEvent(t, map[string]string{"text": "looking around"})},
				{Method: "turn_complete", Params: rawEvent(t, map[string]string{"stopReason": "end_turn"})},
			},
			Result: rawEvent(t, map[string]string{}),
		},
		{
			Events: []fakeruntime.Event{
				{Method: "tool_call", Params: rawEvent(t, map[string]string{
					"id": "1", "title": "functions.mcp__task-manager__update_task_status", "status": "completed",
				})},
				{Method: "turn_complete", Params: rawEvent(t, map[string]string{"stopReason": "end_turn"})},
			},
			Result: rawEvent(t, map[string]string{}),
		},
	}}

	d := New(map[string]Launcher{string(profile.RuntimeCodex): launcherFor(t, script)})

	completion, err := d.Run(context.Background(), Input{
		Profile:           testProfile(),
		Prompt:            "do the thing",
		Transition:        "begin-implementation",
		AdvertisedTools:   []string{"functions.mcp__task-manager__update_task_status"},
		RequiredBaseTools: []string{"update_task_status"},
	})
	require.NoError(t, err)
	assert.True(t, completion.Success)
	assert.Equal(t, 1, completion.MCPToolCallCount)
}

func TestRunExhaustsCorrectionsReturnsFailure(t *testing.T) {
	noCallTurn := fakeruntime.Turn{
		Events: []fakeruntime.Event{
			{Method: "turn_complete", Params: rawEvent(t, map[string]string{"stopReason": "end_turn"})},
		},
		Result: rawEvent(t, map[string]string{}),
	}
	script := fakeruntime.Script{Turns: []fakeruntime.Turn{noCallTurn, noCallTurn, noCallTurn, noCallTurn}}

	d := New(map[string]Launcher{string(profile.RuntimeCodex): launcherFor(t, script)})

	completion, err := d.Run(context.Background(), Input{
		Profile:           testProfile(),
		Prompt:            "do the thing",
		Transition:        "begin-implementation",
		AdvertisedTools:   []string{"functions.mcp__task-manager__update_task_status"},
		RequiredBaseTools: []string{"update_task_status"},
	})
	require.NoError(t, err)
	assert.False(t, completion.Success)
	assert.NotEmpty(t, completion.Error)
}

func TestRunDeadlineExceeded(t *testing.T) {
	script := fakeruntime.Script{Turns: []fakeruntime.Turn{{Hang: true}}}

	d := New(map[string]Launcher{string(profile.RuntimeCodex): launcherFor(t, script)})

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	completion, err := d.Run(ctx, Input{
		Profile:    testProfile(),
		Prompt:     "do the thing",
		Transition: "begin-implementation",
	})
	require.NoError(t, err)
	assert.False(t, completion.Success)
	assert.Contains(t, completion.Error, "deadline")
}

func TestRunUnknownRuntimeFlavor(t *testing.T) {
	d := New(map[string]Launcher{})
	_, err := d.Run(context.Background(), Input{Profile: testProfile()})
	require.Error(t, err)
}
