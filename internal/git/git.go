// Package git shells out to the git binary for the small set of
// operations the vault needs. All functions take the working tree
// directory explicitly rather than relying on the process CWD.
package git

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// ErrNothingToCommit is returned by Commit when the index has no staged
// changes. Callers decide whether that is fatal; the run orchestrator
// treats it as a failed commit step.
var ErrNothingToCommit = errors.New("nothing to commit")

// IsRepo reports whether dir is inside a git working tree.
func IsRepo(dir string) bool {
	cmd := exec.Command("git", "rev-parse", "--git-dir")
	cmd.Dir = dir
	return cmd.Run() == nil
}

// Head returns the SHA of HEAD in dir.
func Head(dir string) (string, error) {
	cmd := exec.Command("git", "rev-parse", "HEAD")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git rev-parse HEAD: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// IsDirty reports whether dir has uncommitted changes (staged or not).
func IsDirty(dir string) (bool, error) {
	cmd := exec.Command("git", "status", "--porcelain")
	cmd.Dir = dir
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return false, fmt.Errorf("git status: %w", err)
	}
	return len(strings.TrimSpace(stdout.String())) > 0, nil
}

// AddAll stages every pending change in dir.
func AddAll(dir string) error {
	cmd := exec.Command("git", "add", "-A", ".")
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git add -A: %w\nstderr: %s", err, stderr.String())
	}
	return nil
}

// Commit creates a commit in dir with the given message. Returns
// ErrNothingToCommit when the index is clean.
func Commit(dir, message string) error {
	// diff --cached exits 0 when the index matches HEAD.
	check := exec.Command("git", "diff", "--cached", "--quiet")
	check.Dir = dir
	if err := check.Run(); err == nil {
		return ErrNothingToCommit
	}

	cmd := exec.Command("git", "commit", "-m", message)
	cmd.Dir = dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git commit: %w\nstderr: %s", err, stderr.String())
	}
	return nil
}

// LastCommitMessage returns the subject of the most recent commit in dir.
func LastCommitMessage(dir string) (string, error) {
	cmd := exec.Command("git", "log", "-1", "--pretty=%s")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		return "", fmt.Errorf("git log: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// CommitCount returns the number of commits reachable from HEAD in dir.
// A repository with no commits yet reports zero.
func CommitCount(dir string) (int, error) {
	cmd := exec.Command("git", "rev-list", "--count", "HEAD")
	cmd.Dir = dir
	out, err := cmd.Output()
	if err != nil {
		// rev-list fails before the first commit exists.
		return 0, nil
	}
	var n int
	if _, err := fmt.Sscanf(strings.TrimSpace(string(out)), "%d", &n); err != nil {
		return 0, fmt.Errorf("parsing rev-list output: %w", err)
	}
	return n, nil
}
