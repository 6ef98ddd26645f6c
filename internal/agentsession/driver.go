package agentsession

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/taskpilot-dev/taskpilot/internal/acp"
)

// MaxTurnDuration is the hard wall-clock deadline imposed on a single
// prompt turn, including every correction turn it spawns.
const MaxTurnDuration = 10 * time.Minute

// maxCorrectionTurns bounds the tool-call correctness retry policy to at
// most three extra turns on the same session.
const maxCorrectionTurns = 3

// Driver runs one agent session per call to Run: spawn the runtime
// subprocess for the profile's declared flavor, initialize it, submit a
// prompt turn, and enforce the tool-call correctness retry policy before
// handing back a Completion. Every code path — success, runtime error, or
// deadline — tears the subprocess down.
type Driver struct {
	launchers map[string]Launcher
}

// New builds a Driver. launchers maps a profile.RuntimeFlavor string value
// (e.g. "codex", "opencode") to the command used to spawn it; entries are
// supplied by the caller (cmd/orchestratord builds them from environment
// variables).
func New(launchers map[string]Launcher) *Driver {
	return &Driver{launchers: launchers}
}

// Run executes one logical turn — the initial prompt plus any correction
// turns the tool-call correctness policy demands — against a fresh runtime
// subprocess, and always releases that subprocess before returning.
func (d *Driver) Run(ctx context.Context, in Input) (Completion, error) {
	launcher, ok := d.launchers[string(in.Profile.DefaultRuntime)]
	if !ok {
		return Completion{}, fmt.Errorf("agentsession: no launcher configured for runtime flavor %q", in.Profile.DefaultRuntime)
	}

	session, err := acp.Start(ctx, acp.Options{Command: launcher.Command, Args: launcher.Args, Env: launcher.Env})
	if err != nil {
		return Completion{}, fmt.Errorf("agentsession: spawning runtime: %w", err)
	}
	defer func() { _ = session.Close() }()

	turnCtx, cancel := context.WithTimeout(ctx, MaxTurnDuration)
	defer cancel()

	if err := session.Call(turnCtx, "initialize", initializeParams(in), nil); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return deadlineCompletion(), nil
		}
		return Completion{}, fmt.Errorf("agentsession: initialize failed: %w", err)
	}

	state, err := d.runTurn(turnCtx, session, promptParams(in, in.Prompt))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return deadlineCompletion(), nil
		}
		return Completion{}, fmt.Errorf("agentsession: prompt turn failed: %w", err)
	}

	for attempt := 0; attempt < maxCorrectionTurns; attempt++ {
		correction, needed := correctionPrompt(in, state)
		if !needed {
			break
		}
		state, err = d.runTurn(turnCtx, session, promptParams(in, correction))
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return deadlineCompletion(), nil
			}
			return Completion{}, fmt.Errorf("agentsession: correction turn failed: %w", err)
		}
	}

	if _, stillNeeded := correctionPrompt(in, state); stillNeeded {
		return finalEnforcementFailure(in, state), nil
	}

	if state.stopReason != "" && state.text.Len() == 0 && len(state.toolCallTitles) == 0 {
		return Completion{
			Success:    false,
			Error:      "runtime ended the turn with no output and no tool calls; the selected model is likely invalid or unavailable",
			ModelName:  state.modelName,
			StopReason: state.stopReason,
		}, nil
	}

	return Completion{
		Success:             true,
		Text:                state.text.String(),
		ModelName:           state.modelName,
		StopReason:          state.stopReason,
		ToolCallTitles:      state.toolCallTitles,
		MCPToolCallCount:    state.mcpCount,
		NonMCPToolCallCount: state.nonMCPCount,
	}, nil
}

func deadlineCompletion() Completion {
	return Completion{
		Success: false,
		Error:   "agent turn exceeded its 10 minute deadline",
	}
}

// promptCallResult carries a "prompt" call's outcome from the goroutine that
// issues it back to runTurn's single state-owning goroutine — state itself
// is never touched outside that goroutine.
type promptCallResult struct {
	raw json.RawMessage
	err error
}

// runTurn submits one "prompt" request and folds its session/update
// notification stream into a turnState until a turn_complete event arrives
// (after which the prompt call's own result is still awaited, since it may
// carry the model name), the prompt call itself returns, or ctx is done.
// Only this goroutine ever mutates the returned turnState.
func (d *Driver) runTurn(ctx context.Context, session *acp.Session, params promptRequest) (turnState, error) {
	var state turnState

	callDone := make(chan promptCallResult, 1)
	go func() {
		var raw json.RawMessage
		err := session.Call(ctx, "prompt", params, &raw)
		callDone <- promptCallResult{raw: raw, err: err}
	}()

	for {
		select {
		case n, ok := <-session.Notifications:
			if !ok {
				return state, errors.New("agentsession: runtime closed before the turn completed")
			}
			if state.applyNotification(n) {
				select {
				case result := <-callDone:
					if result.err == nil {
						state.applyPromptResult(result.raw)
					}
				case <-ctx.Done():
				}
				return state, nil
			}
		case result := <-callDone:
			if result.err != nil {
				return state, result.err
			}
			state.applyPromptResult(result.raw)
			// The prompt call returned without an explicit turn_complete
			// event; treat the turn as finished with whatever was observed.
			return state, nil
		case <-ctx.Done():
			return state, ctx.Err()
		}
	}
}
