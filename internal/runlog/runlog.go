// Package runlog implements the logging stage: it reads a run's relay
// report, sanitizes the payload per logger policy, optionally captures an
// environment record, and persists the result as logger.json.
package runlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/metamegacodex/codex/internal/git"
	"github.com/metamegacodex/codex/internal/policy"
	"github.com/metamegacodex/codex/internal/vault"
)

// Environment captures where a run executed.
type Environment struct {
	Platform  string `json:"platform"`
	GoVersion string `json:"go_version"`
	Hostname  string `json:"hostname"`
	GitSHA    string `json:"git_sha,omitempty"`
}

// Record is the logger's artifact, persisted as logger.json.
type Record struct {
	Timestamp   time.Time         `json:"timestamp"`
	RunDir      string            `json:"run_dir"`
	Persona     string            `json:"persona"`
	Role        string            `json:"role"`
	Pipeline    []string          `json:"pipeline"`
	Payload     map[string]any    `json:"payload"`
	Outputs     map[string]string `json:"outputs"`
	Environment *Environment      `json:"environment,omitempty"`
}

// relayView is the subset of relay.json the logger consumes. Decoded
// loosely so external relay implementations with extra fields still log.
type relayView struct {
	Persona  string            `json:"persona"`
	Role     string            `json:"role"`
	Pipeline []string          `json:"pipeline"`
	Payload  map[string]any    `json:"payload"`
	Outputs  map[string]string `json:"outputs"`
}

// Write runs the logging stage against runDir and returns the record it
// persisted. A missing relay.json is an error: the relay stage owns
// creating the run directory.
func Write(runDir string, recordEnv bool, pol policy.Logger) (*Record, error) {
	abs, err := filepath.Abs(runDir)
	if err != nil {
		return nil, fmt.Errorf("resolving run dir: %w", err)
	}

	relayPath := filepath.Join(abs, vault.RelayFile)
	data, err := os.ReadFile(relayPath) // #nosec G304 - run dir owned by this pipeline
	if err != nil {
		return nil, fmt.Errorf("relay output %s not found: %w", relayPath, err)
	}

	var view relayView
	if err := json.Unmarshal(data, &view); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", relayPath, err)
	}

	sanitized, _ := Redact(view.Payload, pol.RedactKeys).(map[string]any)

	record := &Record{
		Timestamp: time.Now().UTC(),
		RunDir:    abs,
		Persona:   view.Persona,
		Role:      view.Role,
		Pipeline:  view.Pipeline,
		Payload:   sanitized,
		Outputs:   view.Outputs,
	}
	if recordEnv {
		env := collectEnvironment(abs)
		record.Environment = &env
	}

	out, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding log record: %w", err)
	}
	logPath := filepath.Join(abs, vault.LoggerFile)
	if err := os.WriteFile(logPath, append(out, '\n'), 0644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", logPath, err)
	}
	return record, nil
}

// Redacted is the placeholder written over sensitive payload values.
const Redacted = "***REDACTED***"

// Redact walks v and replaces the value of any map key named in keys with
// the Redacted placeholder. Maps and slices are copied, scalars returned
// as-is.
func Redact(v any, keys []string) any {
	if len(keys) == 0 {
		return v
	}
	sensitive := make(map[string]bool, len(keys))
	for _, k := range keys {
		sensitive[k] = true
	}
	return redactValue(v, sensitive)
}

func redactValue(v any, sensitive map[string]bool) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			if sensitive[k] {
				out[k] = Redacted
				continue
			}
			out[k] = redactValue(inner, sensitive)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = redactValue(inner, sensitive)
		}
		return out
	default:
		return v
	}
}

// collectEnvironment gathers the host facts recorded alongside a run. The
// git SHA comes from the run directory's enclosing repository and is
// omitted when unresolvable.
func collectEnvironment(runDir string) Environment {
	env := Environment{
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
		GoVersion: runtime.Version(),
	}
	if host, err := os.Hostname(); err == nil {
		env.Hostname = host
	}
	if sha, err := git.Head(runDir); err == nil {
		env.GitSHA = sha
	}
	return env
}
