// Package digest aggregates vault runs into a single report: one summary
// line per run, newest first, built from whatever artifacts each run
// directory actually contains.
package digest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/metamegacodex/codex/internal/vault"
)

// Summary condenses one run directory.
type Summary struct {
	RunDir             string            `json:"run_dir"`
	Timestamp          *time.Time        `json:"timestamp"`
	Persona            string            `json:"persona"`
	Role               string            `json:"role"`
	Pipeline           []string          `json:"pipeline"`
	Outputs            map[string]string `json:"outputs"`
	EvaluationSchema   any               `json:"evaluation_schema"`
	EvaluationCriteria int               `json:"evaluation_criteria"`
	LoggerPresent      bool              `json:"logger_present"`
}

// History records what the digest covered.
type History struct {
	VaultPath string `json:"vault_path"`
	Limit     int    `json:"limit,omitempty"`
}

// Digest is the aggregate report.
type Digest struct {
	GeneratedAt time.Time      `json:"generated_at"`
	Environment map[string]any `json:"environment"`
	RunCount    int            `json:"run_count"`
	Runs        []Summary      `json:"runs"`
	History     *History       `json:"history,omitempty"`
}

// Options configures digest generation.
type Options struct {
	VaultDir    string
	Limit       int // 0 means unlimited
	Environment map[string]any
	History     bool
}

// Generate builds a digest over the runs in the vault. Run directories may
// sit directly under runs/ or one level deeper (the date/time split); both
// layouts are scanned. Runs missing individual artifacts still appear with
// the corresponding fields zeroed.
func Generate(opts Options) (*Digest, error) {
	runDirs, err := collectRunDirs(opts.VaultDir)
	if err != nil {
		return nil, err
	}

	sort.Sort(sort.Reverse(sort.StringSlice(runDirs)))
	if opts.Limit > 0 && len(runDirs) > opts.Limit {
		runDirs = runDirs[:opts.Limit]
	}

	summaries := make([]Summary, len(runDirs))
	var g errgroup.Group
	for i, dir := range runDirs {
		g.Go(func() error {
			summaries[i] = summarize(dir)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	d := &Digest{
		GeneratedAt: time.Now().UTC(),
		Environment: opts.Environment,
		RunCount:    len(summaries),
		Runs:        summaries,
	}
	if opts.History {
		d.History = &History{VaultPath: opts.VaultDir, Limit: opts.Limit}
	}
	return d, nil
}

func collectRunDirs(vaultDir string) ([]string, error) {
	runsRoot := filepath.Join(vaultDir, "runs")
	entries, err := os.ReadDir(runsRoot)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading vault runs %s: %w", runsRoot, err)
	}

	var dirs []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		candidate := filepath.Join(runsRoot, entry.Name())
		if _, err := os.Stat(filepath.Join(candidate, vault.RelayFile)); err == nil {
			dirs = append(dirs, candidate)
			continue
		}
		nested, err := os.ReadDir(candidate)
		if err != nil {
			continue
		}
		for _, sub := range nested {
			if sub.IsDir() {
				dirs = append(dirs, filepath.Join(candidate, sub.Name()))
			}
		}
	}
	return dirs, nil
}

func summarize(runDir string) Summary {
	var relay struct {
		Timestamp *time.Time        `json:"timestamp"`
		Persona   string            `json:"persona"`
		Role      string            `json:"role"`
		Pipeline  []string          `json:"pipeline"`
		Outputs   map[string]string `json:"outputs"`
	}
	loadJSON(filepath.Join(runDir, vault.RelayFile), &relay)

	var evaluation struct {
		SchemaVersion any   `json:"schema_version"`
		Criteria      []any `json:"criteria"`
	}
	loadJSON(filepath.Join(runDir, vault.EvaluationFile), &evaluation)

	loggerPresent := false
	if info, err := os.Stat(filepath.Join(runDir, vault.LoggerFile)); err == nil && info.Size() > 0 {
		loggerPresent = true
	}

	return Summary{
		RunDir:             runDir,
		Timestamp:          relay.Timestamp,
		Persona:            relay.Persona,
		Role:               relay.Role,
		Pipeline:           relay.Pipeline,
		Outputs:            relay.Outputs,
		EvaluationSchema:   evaluation.SchemaVersion,
		EvaluationCriteria: len(evaluation.Criteria),
		LoggerPresent:      loggerPresent,
	}
}

// loadJSON decodes path into v, leaving v untouched when the file is
// absent or malformed. Digest generation is best-effort per artifact.
func loadJSON(path string, v any) {
	data, err := os.ReadFile(path) // #nosec G304 - vault paths enumerated by this package
	if err != nil {
		return
	}
	_ = json.Unmarshal(data, v)
}
