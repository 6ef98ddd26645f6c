// Package preflight runs the deterministic shell commands backing a QA-run
// transition — lint, typecheck, unit tests, end-to-end
// tests, coverage — and reports a pass/fail result with bounded output
// capture.
package preflight

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/taskpilot-dev/taskpilot/internal/textutil"
)

// CommandResult is the outcome of one shell command within a stage.
type CommandResult struct {
	Label         string
	Command       string
	ExitCode      *int // nil if the process never exited (spawn error)
	StdoutPreview string
	StderrPreview string
	Stdout        string
	Stderr        string
	ErrorMessage  string
}

// Succeeded reports whether the command exited zero with no spawn error.
func (r CommandResult) Succeeded() bool {
	return r.ErrorMessage == "" && r.ExitCode != nil && *r.ExitCode == 0
}

// Result is the overall outcome of a preflight run for one transition.
type Result struct {
	Stage     string
	Pass      bool
	Commands  []CommandResult
	Aggregate string
	Skipped   bool // true for the e2e-no-config synthesized pass
}

// StageConfig names one QA stage: its label, shell command, and timeout.
type StageConfig struct {
	Label   string
	Command string
	Timeout time.Duration
}

// Stages maps a QA-run transition name to its stage configuration.
var Stages = map[string]StageConfig{
	"run-lint": {
		Label:   "lint",
		Command: "yarn run lint",
		Timeout: 5 * time.Minute,
	},
	"run-typecheck": {
		Label:   "typecheck",
		Command: "yarn run typecheck",
		Timeout: 5 * time.Minute,
	},
	"run-unit-tests": {
		Label:   "unit-tests",
		Command: "yarn run test",
		Timeout: 10 * time.Minute,
	},
	"run-e2e-tests": {
		Label:   "e2e-tests",
		Command: "npx playwright test",
		Timeout: 15 * time.Minute,
	},
	"ensure-coverage": {
		Label:   "coverage",
		Command: "yarn run test -- --coverage",
		Timeout: 15 * time.Minute,
	},
}

var playwrightConfigNames = []string{
	"playwright.config.ts",
	"playwright.config.js",
	"playwright.config.mjs",
}

// Run executes the stage associated with transition inside workspaceRoot.
// It never returns a Go error for command failures — those are reflected
// in Result.Pass; the returned error is reserved for an unknown transition.
func Run(ctx context.Context, workspaceRoot, transition string) (Result, error) {
	stage, ok := Stages[transition]
	if !ok {
		return Result{}, fmt.Errorf("preflight: no stage configured for transition %q", transition)
	}

	if transition == "run-e2e-tests" && !hasPlaywrightConfig(workspaceRoot) {
		return Result{
			Stage:     stage.Label,
			Pass:      true,
			Skipped:   true,
			Aggregate: "no playwright.config.{ts,js,mjs} found in workspace root; e2e tests skipped",
		}, nil
	}

	cmd, err := runOne(ctx, workspaceRoot, stage.Label, stage.Command, stage.Timeout)
	if err != nil {
		return Result{
			Stage:     stage.Label,
			Pass:      false,
			Commands:  nil,
			Aggregate: textutil.Truncate(fmt.Sprintf("preflight stage %q failed before completion: %v", stage.Label, err), textutil.AggregateLimit),
		}, nil
	}

	return Result{
		Stage:     stage.Label,
		Pass:      cmd.Succeeded(),
		Commands:  []CommandResult{cmd},
		Aggregate: renderAggregate(stage.Label, []CommandResult{cmd}),
	}, nil
}

func hasPlaywrightConfig(workspaceRoot string) bool {
	for _, name := range playwrightConfigNames {
		if info, err := os.Stat(filepath.Join(workspaceRoot, name)); err == nil && !info.IsDir() {
			return true
		}
	}
	return false
}

func runOne(ctx context.Context, workspaceRoot, label, command string, timeout time.Duration) (CommandResult, error) {
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, "sh", "-c", command)
	cmd.Dir = workspaceRoot

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	result := CommandResult{
		Label:         label,
		Command:       command,
		Stdout:        stdout.String(),
		Stderr:        stderr.String(),
		StdoutPreview: textutil.Truncate(stdout.String(), textutil.PreviewLimit),
		StderrPreview: textutil.Truncate(stderr.String(), textutil.PreviewLimit),
	}

	if runErr == nil {
		code := cmd.ProcessState.ExitCode()
		result.ExitCode = &code
		return result, nil
	}

	if runCtx.Err() == context.DeadlineExceeded {
		// The context killed the process before it could exit on its own;
		// exec reports this as an *exec.ExitError with ExitCode()==-1, but
		// that's not a real exit code — leave ExitCode nil.
		result.ErrorMessage = fmt.Sprintf("command timed out after %s", timeout)
		return result, nil
	}

	if exitErr, ok := runErr.(*exec.ExitError); ok {
		code := exitErr.ExitCode()
		result.ExitCode = &code
		return result, nil
	}

	// The process never produced an exit code (spawn failure, etc.) —
	// ExitCode stays nil.
	result.ErrorMessage = runErr.Error()
	return result, nil
}

func renderAggregate(stageLabel string, commands []CommandResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "stage=%s\n", stageLabel)
	for _, c := range commands {
		fmt.Fprintf(&b, "--- %s (%s) ---\n", c.Label, c.Command)
		if c.ErrorMessage != "" {
			fmt.Fprintf(&b, "error: %s\n", c.ErrorMessage)
		} else {
			fmt.Fprintf(&b, "exit=%d\n", *c.ExitCode)
		}
		if c.StdoutPreview != "" {
			fmt.Fprintf(&b, "stdout:\n%s\n", c.StdoutPreview)
		}
		if c.StderrPreview != "" {
			fmt.Fprintf(&b, "stderr:\n%s\n", c.StderrPreview)
		}
	}
	return textutil.Truncate(b.String(), textutil.AggregateLimit)
}
