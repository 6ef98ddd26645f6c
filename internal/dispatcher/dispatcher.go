// Package dispatcher implements the Transition Dispatcher: given a
// resolved state, transition, and optional task, it runs one of
// three dispatch shapes — a control no-op, a procedural QA run, or an
// agent session — and returns the workflow-context patch the worker loop
// should persist.
package dispatcher

import (
	"context"
	"log/slog"

	"github.com/taskpilot-dev/taskpilot/internal/agentsession"
	"github.com/taskpilot-dev/taskpilot/internal/branch"
	"github.com/taskpilot-dev/taskpilot/internal/contextstore"
	"github.com/taskpilot-dev/taskpilot/internal/masking"
	"github.com/taskpilot-dev/taskpilot/internal/mcptools"
	"github.com/taskpilot-dev/taskpilot/internal/profile"
	"github.com/taskpilot-dev/taskpilot/internal/prompt"
	"github.com/taskpilot-dev/taskpilot/internal/taskdb"
	"github.com/taskpilot-dev/taskpilot/internal/workflow"
)

// AgentRunner is the Agent Session Driver's interface as the dispatcher
// consumes it — narrowed so tests can substitute a stub.
type AgentRunner interface {
	Run(ctx context.Context, in agentsession.Input) (agentsession.Completion, error)
}

// Dependencies wires the dispatcher to the rest of the orchestrator core.
type Dependencies struct {
	Tasks         taskdb.Store
	Contexts      contextstore.Store
	Profiles      *profile.Registry
	Branches      *branch.Manager
	Prompts       *prompt.Builder
	Agents        AgentRunner
	Graph         *workflow.Graph
	MCP           *mcptools.Client
	WorkspaceRoot string
	WorkerID      string
	Logger        *slog.Logger

	// Masker redacts secrets from agent/QA output before it is logged or
	// persisted to context. Optional — a nil Masker disables redaction,
	// which tests that don't care about it can rely on.
	Masker *masking.Service
}

// Input is one tick's worth of already-resolved dispatch parameters — the
// worker loop resolves state/transition/task before calling Dispatch.
type Input struct {
	State      string
	Transition string
	Task       *taskdb.Task // nil when the transition runs without a task
	Context    map[string]any
}

// Outcome is what the worker loop persists and logs after one dispatch.
type Outcome struct {
	ContextPatch map[string]any
	Success      bool
	Summary      string
}

// Dispatcher routes one transition to its dispatch shape.
type Dispatcher struct {
	deps Dependencies
}

// New builds a Dispatcher from its dependencies.
func New(deps Dependencies) *Dispatcher {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Dispatcher{deps: deps}
}

// Dispatch runs in.Transition to completion and returns the context patch
// to persist.
func (d *Dispatcher) Dispatch(ctx context.Context, in Input) (Outcome, error) {
	switch {
	case isControlTransition(in.Transition):
		return d.dispatchControl(ctx, in)
	case isProceduralTransition(in.Transition):
		return d.dispatchProcedural(ctx, in)
	case in.Transition == workflow.TransitionE2ETestsFailed:
		return d.dispatchE2EInvestigation(ctx, in)
	default:
		return d.dispatchAgent(ctx, in, in.Transition, in.Task)
	}
}

// mask redacts text through the configured Masker, or returns it unchanged
// if none is configured.
func (d *Dispatcher) mask(text string) string {
	if d.deps.Masker == nil {
		return text
	}
	return d.deps.Masker.Mask(text)
}

func isControlTransition(transition string) bool {
	return transition == workflow.TransitionTestsPassing || transition == workflow.TransitionPickUpNextTask
}
