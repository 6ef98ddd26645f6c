package dispatcher

import (
	"regexp"
	"strings"

	"github.com/taskpilot-dev/taskpilot/internal/preflight"
	"github.com/taskpilot-dev/taskpilot/internal/textutil"
)

// Line patterns an agent turn's free text is expected to emit when it ran
// its own tests rather than going through a procedural QA stage — pre-
// compiled once at package init, the same shape
// pkg/masking/pattern.go uses for its built-in regex table.
var (
	testStatusPattern  = regexp.MustCompile(`(?im)^\s*test status\s*:\s*(passed|failed)\s*$`)
	failedTestsPattern = regexp.MustCompile(`(?im)^\s*failed tests?\s*:\s*(.+)$`)
	reproStepsPattern  = regexp.MustCompile(`(?im)^\s*repro steps?\s*:\s*(.+)$`)
	rootCausePattern   = regexp.MustCompile(`(?im)^\s*suspected root cause\s*:\s*(.+)$`)

	// failureSnippetPattern catches ad-hoc failure lines an agent's free
	// text carries even when it never emits an explicit "Failed tests:"
	// line: error/timeout wording and typed diagnostic codes (e.g. TS2345,
	// E0308, PY-001).
	failureSnippetPattern = regexp.MustCompile(`(?im)^.*\b(error|exception|panic|fail(?:ed|ure)?|timed? ?out|deadline exceeded|[A-Z]{1,4}[0-9]{3,5})\b.*$`)
)

// maxFailureSnippets bounds how many harvested lines feed FailedTests.
const maxFailureSnippets = 20

// inferTestOutcome parses an agent turn's free text for the "Test status:",
// "Failed tests:", "Repro steps:", and "Suspected root cause:" lines an
// agent turn is expected to emit, used only when no procedural QA outcome
// already populated the workflow context's lastTestResult/testReport. When the
// text carries no explicit "Failed tests:" line, it falls back to
// harvesting lines matching error/timeout wording or typed diagnostic
// codes. Reports ok=false when the text carries no recognizable test
// status line at all.
func inferTestOutcome(text string) (status string, report preflight.TestReport, ok bool) {
	statusMatch := testStatusPattern.FindStringSubmatch(text)
	if statusMatch == nil {
		return "", preflight.TestReport{}, false
	}
	status = strings.ToLower(statusMatch[1])

	failedTests := splitListLine(failedTestsPattern, text)
	if len(failedTests) == 0 {
		failedTests = harvestFailureSnippets(text)
	}

	report = preflight.TestReport{
		FailedTests: failedTests,
		ReproSteps:  splitListLine(reproStepsPattern, text),
		Notes:       textutil.Truncate(text, textutil.NotesLimit),
	}
	if m := rootCausePattern.FindStringSubmatch(text); m != nil {
		report.SuspectedRootCause = strings.TrimSpace(m[1])
	}
	return status, report, true
}

// harvestFailureSnippets scans text line by line for error/timeout wording
// or typed diagnostic codes, returning at most maxFailureSnippets trimmed
// lines in order of appearance.
func harvestFailureSnippets(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		if !failureSnippetPattern.MatchString(line) {
			continue
		}
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
		if len(out) >= maxFailureSnippets {
			break
		}
	}
	return out
}

// splitListLine extracts a pattern's captured line and splits it on commas
// or semicolons into individual trimmed entries.
func splitListLine(pattern *regexp.Regexp, text string) []string {
	m := pattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	raw := strings.FieldsFunc(m[1], func(r rune) bool { return r == ',' || r == ';' })
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
