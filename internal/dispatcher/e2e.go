package dispatcher

import (
	"context"
	"fmt"

	"github.com/taskpilot-dev/taskpilot/internal/agentsession"
	"github.com/taskpilot-dev/taskpilot/internal/profile"
	"github.com/taskpilot-dev/taskpilot/internal/prompt"
	"github.com/taskpilot-dev/taskpilot/internal/taskdb"
	"github.com/taskpilot-dev/taskpilot/internal/textutil"
	"github.com/taskpilot-dev/taskpilot/internal/workflow"
)

// investigationTransition names the read-only sub-turn the e2e-tests-failed
// two-phase flow runs first — it never appears as a graph edge, only as
// the label this package's own turns and logging use.
const investigationTransition = "e2e-failure-investigation"

// dispatchE2EInvestigation implements the two-phase flow for
// e2e-tests-failed: a qa-e2e-failure-investigation-specialist turn runs
// first, read-only, to produce a failure investigation report; then the
// normal senior-developer remediation turn runs with that report injected
// into its context. The injected report is always built from the
// investigation turn's raw output; a report the turn writes to the
// workflow context itself is not read.
func (d *Dispatcher) dispatchE2EInvestigation(ctx context.Context, in Input) (Outcome, error) {
	investigation, err := d.runInvestigationTurn(ctx, in)
	if err != nil {
		return Outcome{}, err
	}

	report := d.mask(investigationReport(investigation))

	devIn := in
	devIn.Context = cloneContext(in.Context)
	devIn.Context["e2eTestFailureInvestigationReport"] = report
	devIn.Context["e2e-test-failure-investigation-report"] = report

	completion, prof, err := d.runAgentTurn(ctx, devIn, workflow.TransitionE2ETestsFailed, in.Task, "")
	if err != nil {
		return Outcome{}, err
	}

	patch := d.contextPatchFromCompletion(workflow.TransitionE2ETestsFailed, in.Task, completion)
	patch["e2eTestFailureInvestigationReport"] = report
	patch["e2e-test-failure-investigation-report"] = report

	summary := d.mask(summarizeCompletion(completion))

	if in.Task != nil {
		entry := taskdb.ActionLogEntry{
			Actor:   prof.Name,
			Summary: summary,
			Success: completion.Success,
		}
		if err := d.deps.Tasks.AppendActionLog(ctx, in.Task.ID, entry); err != nil {
			d.deps.Logger.Warn("dispatcher: append action log failed", "task", in.Task.ID, "error", err)
		}
	}

	return Outcome{ContextPatch: patch, Success: completion.Success, Summary: summary}, nil
}

// runInvestigationTurn runs the e2e failure investigation specialist's
// session directly against its profile — it is read-only (no filesystem
// edit capability, no branch checkout) and not a graph edge, so it bypasses
// runAgentTurn's graph-based profile resolution.
func (d *Dispatcher) runInvestigationTurn(ctx context.Context, in Input) (agentsession.Completion, error) {
	prof, ok := d.deps.Profiles.Get(profile.NameQAE2EInvestigator)
	if !ok {
		return agentsession.Completion{}, fmt.Errorf("dispatcher: no profile registered for %q", profile.NameQAE2EInvestigator)
	}

	required := prompt.RequiredBaseTools(investigationTransition)
	advertised := d.buildAdvertisedTools(ctx, prof)

	text := d.deps.Prompts.Build(prompt.Input{
		Profile:      prof,
		State:        in.State,
		Transition:   investigationTransition,
		SelectedTask: in.Task,
		TestReport:   testReportFromContext(in.Context),
		Context:      in.Context,
	})

	return d.deps.Agents.Run(ctx, agentsession.Input{
		Profile:           prof,
		Prompt:            text,
		Transition:        investigationTransition,
		AllowFileEdits:    false,
		MCPServers:        prof.MCPServers,
		AdvertisedTools:   advertised,
		RequiredBaseTools: required,
	})
}

// investigationReport returns a bounded copy of the investigation turn's
// raw output, or a bounded note that the turn did not complete. It does not
// parse the output for a structured report.
func investigationReport(completion agentsession.Completion) string {
	if !completion.Success {
		return textutil.Truncate(fmt.Sprintf("e2e failure investigation turn did not complete: %s", completion.Error), textutil.InvestigationReportLimit)
	}
	return textutil.Truncate(completion.Text, textutil.InvestigationReportLimit)
}

func cloneContext(ctx map[string]any) map[string]any {
	out := make(map[string]any, len(ctx)+2)
	for k, v := range ctx {
		out[k] = v
	}
	return out
}
