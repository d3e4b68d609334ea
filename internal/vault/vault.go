// Package vault manages the on-disk layout of the preservation vault: a
// version-controlled tree of per-run directories keyed by a UTC timestamp.
package vault

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Artifact names inside a run directory.
const (
	RelayFile      = "relay.json"
	LoggerFile     = "logger.json"
	EvaluationFile = "evaluation.json"
	OutputsDir     = "outputs"
)

// EvaluationSource is the fixed-name evaluation snapshot expected in the
// invocation's working directory.
const EvaluationSource = "codex_evaluation.json"

// runIDLayout formats run IDs as a date directory over a time-of-day
// directory, second granularity. Two runs in the same second share an ID;
// the vault does not guard against that (last writer wins).
const runIDLayout = "2006-01-02/150405"

// NewRunID derives a run identifier from t in UTC.
func NewRunID(t time.Time) string {
	return t.UTC().Format(runIDLayout)
}

// ParseRunID reports whether id is a well-formed run identifier.
func ParseRunID(id string) (time.Time, error) {
	t, err := time.Parse(runIDLayout, id)
	if err != nil {
		return time.Time{}, fmt.Errorf("malformed run id %q: %w", id, err)
	}
	return t, nil
}

// Vault is a preservation vault rooted at a directory that is expected to
// be (or live inside) a git working tree.
type Vault struct {
	Root string
}

// New returns a vault rooted at root.
func New(root string) *Vault {
	return &Vault{Root: root}
}

// RunsDir returns the directory holding all run directories.
func (v *Vault) RunsDir() string {
	return filepath.Join(v.Root, "runs")
}

// RunDir returns the directory for the given run ID.
func (v *Vault) RunDir(id string) string {
	return filepath.Join(v.RunsDir(), filepath.FromSlash(id))
}

// LockPath returns the lock file guarding the vault's commit sequence.
func (v *Vault) LockPath() string {
	return filepath.Join(v.Root, ".vault.lock")
}

// CreateRun creates the run directory and its outputs subdirectory,
// idempotently, and returns the run directory path.
func (v *Vault) CreateRun(id string) (string, error) {
	runDir := v.RunDir(id)
	if err := os.MkdirAll(filepath.Join(runDir, OutputsDir), 0755); err != nil {
		return "", fmt.Errorf("creating run dir %s: %w", runDir, err)
	}
	return runDir, nil
}

// CopyEvaluation copies the evaluation snapshot at src into runDir under
// the canonical artifact name. A missing source is an error; an existing
// destination is overwritten.
func CopyEvaluation(src, runDir string) error {
	in, err := os.Open(src) // #nosec G304 - operator-supplied path
	if err != nil {
		return fmt.Errorf("evaluation source: %w", err)
	}
	defer in.Close()

	dst := filepath.Join(runDir, EvaluationFile)
	out, err := os.Create(dst) // #nosec G304 - run dir owned by this process
	if err != nil {
		return fmt.Errorf("evaluation copy: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("evaluation copy: %w", err)
	}
	return out.Close()
}
