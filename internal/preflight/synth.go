package preflight

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/taskpilot-dev/taskpilot/internal/textutil"
)

// TestReport is the structured failure summary carried in both the
// procedural QA report and, for run-e2e-tests, the workflow context's
// testReport / e2eTestResults shape.
type TestReport struct {
	FailedTests        []string `json:"failedTests"`
	ReproSteps         []string `json:"reproSteps"`
	SuspectedRootCause string   `json:"suspectedRootCause"`
	Notes              string   `json:"notes"`
}

// SyntheticResult stands in for an agent execution result when a
// procedural QA transition runs — no LLM call is ever made.
type SyntheticResult struct {
	Success bool
	Output  string
	Error   string
	Summary string
}

// ContextPatch is the set of workflow-context keys a procedural run writes.
type ContextPatch map[string]any

// ProceduralReport documents one procedural QA run for the activity log.
type ProceduralReport struct {
	Transition     string
	Stage          string
	Status         string // "pass" | "fail"
	Summary        string
	FullOutput     string
	TestReport     TestReport
	CommandResults []CommandResult
	CoverageReport *TestReport
}

var (
	playwrightNumberedLine = regexp.MustCompile(`(?m)^\s*\d+\)\s+.+$`)
	playwrightFailedLine   = regexp.MustCompile(`(?mi)^\s*fail(ed)?\b.*$`)
	playwrightArrowLine    = regexp.MustCompile(`(?m)^\s*\[.*\]\s*›.*$`)

	maxPlaywrightFindings = 24
)

// Synthesize turns a preflight Result into the synthetic execution result,
// context patch, and activity-log report a QA-run transition produces —
// with no LLM involvement.
func Synthesize(transition string, result Result) (SyntheticResult, ContextPatch, ProceduralReport) {
	status := "fail"
	if result.Pass {
		status = "pass"
	}

	report := buildTestReport(transition, result)

	summary := fmt.Sprintf("%s %s", result.Stage, status)
	synthetic := SyntheticResult{
		Success: result.Pass,
		Output:  result.Aggregate,
		Summary: summary,
	}
	if !result.Pass {
		synthetic.Error = report.Notes
	}

	patch := ContextPatch{
		"mechanicalQaPreflightResults": result.Aggregate,
		"mechanicalTestLintResults":    result.Aggregate,
		"mechanicalQaPreflightStage":   result.Stage,
		"mechanicalQaPreflightUpdatedAt": time.Now().UTC().Format(time.RFC3339),
	}

	procedural := ProceduralReport{
		Transition:     transition,
		Stage:          result.Stage,
		Status:         status,
		Summary:        summary,
		FullOutput:     result.Aggregate,
		TestReport:     report,
		CommandResults: result.Commands,
	}

	if transition == "run-e2e-tests" {
		e2eStatus := "FAILED"
		if result.Pass {
			e2eStatus = "PASSED"
		}
		e2eResults := map[string]any{
			"status":             e2eStatus,
			"failedTests":        report.FailedTests,
			"reproSteps":         report.ReproSteps,
			"suspectedRootCause": report.SuspectedRootCause,
			"notes":              report.Notes,
			"commandResults":     result.Commands,
		}
		patch["e2eTestResultStatus"] = e2eStatus
		patch["e2e-test-result-status"] = e2eStatus
		patch["e2eTestResults"] = e2eResults
		patch["e2e-test-results"] = e2eResults
	}

	if transition == "ensure-coverage" {
		coverage := report
		procedural.CoverageReport = &coverage
	}

	return synthetic, patch, procedural
}

func buildTestReport(transition string, result Result) TestReport {
	var failedTests []string
	var reproSteps []string

	if stageCommand(result) != "" {
		reproSteps = append(reproSteps, stageCommand(result))
	}

	seen := make(map[string]bool)
	for _, c := range result.Commands {
		if c.Command != "" && !seen[c.Command] {
			seen[c.Command] = true
			reproSteps = append(reproSteps, c.Command)
		}
		if c.Succeeded() {
			continue
		}
		entry := fmt.Sprintf("%s: %s", c.Label, c.Command)
		switch {
		case c.ErrorMessage != "":
			entry = fmt.Sprintf("%s (%s)", entry, c.ErrorMessage)
		case c.ExitCode != nil:
			entry = fmt.Sprintf("%s (exitCode=%d)", entry, *c.ExitCode)
		}
		failedTests = append(failedTests, entry)
	}

	if transition == "run-e2e-tests" {
		failedTests = append(failedTests, extractPlaywrightFindings(result)...)
	}
	failedTests = dedupeBounded(failedTests, maxPlaywrightFindings)

	rootCause := fmt.Sprintf("%s completed without errors", result.Stage)
	if len(failedTests) > 0 {
		rootCause = failedTests[0]
	}

	return TestReport{
		FailedTests:        failedTests,
		ReproSteps:         dedupeBounded(reproSteps, len(reproSteps)),
		SuspectedRootCause: rootCause,
		Notes:              textutil.Truncate(result.Aggregate, textutil.NotesLimit),
	}
}

func stageCommand(result Result) string {
	if len(result.Commands) == 0 {
		return ""
	}
	return result.Commands[0].Command
}

func extractPlaywrightFindings(result Result) []string {
	var findings []string
	for _, c := range result.Commands {
		combined := c.Stdout + "\n" + c.Stderr
		for _, pattern := range []*regexp.Regexp{playwrightNumberedLine, playwrightFailedLine, playwrightArrowLine} {
			for _, line := range pattern.FindAllString(combined, -1) {
				findings = append(findings, strings.TrimSpace(line))
			}
		}
	}
	return findings
}

func dedupeBounded(items []string, limit int) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if seen[item] {
			continue
		}
		seen[item] = true
		out = append(out, item)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out
}
