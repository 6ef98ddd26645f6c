// Package branch implements the per-task git branch lifecycle: deriving
// a branch name from a task, checking it out or creating
// it, and returning to main at well-defined boundaries. All VCS access in
// the orchestrator core goes through this package.
package branch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"sync"
)

// BranchError wraps a failed git invocation with the command's stderr
// attached, so callers can surface an actionable message.
type BranchError struct {
	Op     string
	Stderr string
	Err    error
}

func (e *BranchError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("branch: %s: %v: %s", e.Op, e.Err, e.Stderr)
	}
	return fmt.Sprintf("branch: %s: %v", e.Op, e.Err)
}

func (e *BranchError) Unwrap() error { return e.Err }

// requiresBranch is the set of transitions ensureTaskBranchCheckedOut acts
// on: begin-implementation, every run-* QA transition, and every *-failed
// remediation transition.
func requiresBranch(transition string) bool {
	if transition == "begin-implementation" {
		return true
	}
	if strings.HasPrefix(transition, "run-") {
		return true
	}
	if strings.HasSuffix(transition, "-failed") {
		return true
	}
	return false
}

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// sanitizeSegment lower-cases s, collapses runs of non-alphanumeric
// characters to a single "-", and trims leading/trailing dashes.
func sanitizeSegment(s string) string {
	lower := strings.ToLower(s)
	collapsed := nonAlnum.ReplaceAllString(lower, "-")
	return strings.Trim(collapsed, "-")
}

// DeriveName builds the implementation branch name for a task:
// "implementation/{sanitized-id-without-task-prefix}-{sanitized-title}",
// lower-cased, collapsed, trimmed, capped at 120 characters.
func DeriveName(taskID, title string) string {
	id := strings.TrimPrefix(taskID, "task-")
	sanitizedID := sanitizeSegment(id)
	sanitizedTitle := sanitizeSegment(title)

	name := "implementation/" + sanitizedID
	if sanitizedTitle != "" {
		name += "-" + sanitizedTitle
	}
	if len(name) > 120 {
		name = strings.TrimRight(name[:120], "-")
	}
	return name
}

// Manager serializes VCS access with a package-level-style mutex (one per
// Manager instance — see SPEC_FULL.md's resolution of the VCS
// serialization open question), running the git CLI in repoPath.
type Manager struct {
	mu      sync.Mutex
	repoPath string
	gitPath string
}

// New constructs a Manager rooted at repoPath, resolving the git binary on
// PATH.
func New(repoPath string) (*Manager, error) {
	gitPath, err := exec.LookPath("git")
	if err != nil {
		return nil, &BranchError{Op: "resolve-git-binary", Err: err}
	}
	return &Manager{repoPath: repoPath, gitPath: gitPath}, nil
}

func (m *Manager) run(ctx context.Context, op string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, m.gitPath, args...)
	cmd.Dir = m.repoPath

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", &BranchError{Op: op, Stderr: strings.TrimSpace(stderr.String()), Err: err}
	}
	return strings.TrimSpace(stdout.String()), nil
}

func (m *Manager) branchExists(ctx context.Context, name string) (bool, error) {
	cmd := exec.CommandContext(ctx, m.gitPath, "rev-parse", "--verify", "--quiet", "refs/heads/"+name)
	cmd.Dir = m.repoPath
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return false, nil
		}
		return false, &BranchError{Op: "branch-exists", Err: err}
	}
	return true, nil
}

func (m *Manager) currentBranch(ctx context.Context) (string, error) {
	return m.run(ctx, "current-branch", "rev-parse", "--abbrev-ref", "HEAD")
}

// EnsureTaskBranchCheckedOut checks out or creates a task's branch,
// acting only for branch-requiring transitions.
// For begin-implementation, it checks out the branch if it exists, else
// creates and checks it out. For every other branch-requiring transition,
// it fails with an actionable error if the branch does not already exist.
func (m *Manager) EnsureTaskBranchCheckedOut(ctx context.Context, transition, branchName string) error {
	if !requiresBranch(transition) {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	exists, err := m.branchExists(ctx, branchName)
	if err != nil {
		return err
	}

	if transition == "begin-implementation" {
		if exists {
			_, err := m.run(ctx, "checkout", "checkout", branchName)
			return err
		}
		_, err := m.run(ctx, "checkout-create", "checkout", "-b", branchName)
		return err
	}

	if !exists {
		return &BranchError{
			Op:  "checkout",
			Err: fmt.Errorf("branch %q does not exist; begin-implementation should have created it", branchName),
		}
	}
	_, err = m.run(ctx, "checkout", "checkout", branchName)
	return err
}

// CheckoutMainBranch checks out the main branch: a no-op if already on
// main. reason is accepted for call-site logging only.
func (m *Manager) CheckoutMainBranch(ctx context.Context, reason string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.currentBranch(ctx)
	if err != nil {
		return err
	}
	if current == "main" {
		return nil
	}
	_, err = m.run(ctx, "checkout-main", "checkout", "main")
	return err
}
