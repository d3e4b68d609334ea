// Package testutil holds helpers shared by tests.
package testutil

import (
	"os/exec"
	"testing"
)

// InitGitRepo initializes a git repository in dir with a local identity so
// commits succeed in bare CI environments. Skips the test when git is not
// installed.
func InitGitRepo(t *testing.T, dir string) {
	t.Helper()
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
	RunGit(t, dir, "init", "-q")
	RunGit(t, dir, "config", "user.email", "test@example.com")
	RunGit(t, dir, "config", "user.name", "test")
	RunGit(t, dir, "config", "commit.gpgsign", "false")
}

// RunGit runs a git command in dir and fails the test on a non-zero exit.
func RunGit(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("git %v: %v\n%s", args, err, out)
	}
}
