// Package relay implements the relay stage: it resolves a stack for a
// persona/role pair, runs the executor against the request payload, writes
// the executor output into the run directory, and produces the relay
// report that anchors every downstream artifact.
package relay

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/metamegacodex/codex/internal/executor"
	"github.com/metamegacodex/codex/internal/policy"
	"github.com/metamegacodex/codex/internal/stack"
	"github.com/metamegacodex/codex/internal/vault"
)

// Pipeline names the stages of a full run, in order. Recorded verbatim in
// relay reports so downstream consumers can tell which stage wrote what.
var Pipeline = []string{"relay", "executor", "logger", "evaluation", "digest"}

// Options configures one relay invocation.
type Options struct {
	Persona   string
	Role      string
	Payload   string // JSON object text; empty means "{}"
	StacksDir string
	StackFile string // optional explicit stack path
	RunDir    string
	BaseDir   string // resolution base for relative paths; CWD when empty
}

// AppliedPolicies echoes the policy sections that shaped a run.
type AppliedPolicies struct {
	Relay    policy.Relay    `json:"relay"`
	Executor policy.Executor `json:"executor"`
}

// Report is the relay's primary output, persisted as relay.json.
type Report struct {
	Timestamp  time.Time         `json:"timestamp"`
	StackFile  string            `json:"stack_file"`
	Persona    string            `json:"persona"`
	Role       string            `json:"role"`
	Pipeline   []string          `json:"pipeline"`
	Invariants map[string]any    `json:"cfms_invariants"`
	Meta       map[string]any    `json:"meta"`
	Payload    map[string]any    `json:"payload"`
	Outputs    map[string]string `json:"outputs"`
	Policies   AppliedPolicies   `json:"policies_applied"`
}

// Run executes the relay stage and returns its report. The run directory
// (and its outputs subdirectory) is created if absent.
func Run(opts Options, pol *policy.Policies) (*Report, error) {
	if pol == nil {
		pol = &policy.Policies{}
	}
	if opts.BaseDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolving working directory: %w", err)
		}
		opts.BaseDir = cwd
	}

	stacksDir := opts.StacksDir
	if !filepath.IsAbs(stacksDir) {
		stacksDir = filepath.Join(opts.BaseDir, stacksDir)
	}
	if _, err := os.Stat(stacksDir); err != nil {
		return nil, fmt.Errorf("stacks directory %s does not exist", stacksDir)
	}

	s, err := stack.Discover(opts.Persona, opts.Role, stacksDir, opts.StackFile, opts.BaseDir)
	if err != nil {
		return nil, err
	}

	payload, err := parsePayload(opts.Payload, pol.Relay.MaxPayloadBytes)
	if err != nil {
		return nil, err
	}

	exec, err := executor.New(s, pol.Executor)
	if err != nil {
		return nil, err
	}
	result, err := exec.Run(payload)
	if err != nil {
		return nil, err
	}

	runDir := opts.RunDir
	if !filepath.IsAbs(runDir) {
		runDir = filepath.Join(opts.BaseDir, runDir)
	}
	if err := os.MkdirAll(filepath.Join(runDir, vault.OutputsDir), 0755); err != nil {
		return nil, fmt.Errorf("creating run dir %s: %w", runDir, err)
	}

	agentName := result.Meta.AgentName
	if agentName == "" {
		agentName = "agent"
	}
	outputPath := filepath.Join(runDir, vault.OutputsDir, agentName+".json")
	if err := writeJSON(outputPath, result); err != nil {
		return nil, err
	}

	outputRef := outputPath
	if rel, err := filepath.Rel(opts.BaseDir, outputPath); err == nil && !filepath.IsAbs(rel) {
		outputRef = filepath.ToSlash(rel)
	}

	return &Report{
		Timestamp:  result.Meta.GeneratedAt,
		StackFile:  s.Path,
		Persona:    opts.Persona,
		Role:       opts.Role,
		Pipeline:   Pipeline,
		Invariants: s.Invariants,
		Meta:       s.Meta,
		Payload:    payload,
		Outputs:    map[string]string{"executor": outputRef},
		Policies: AppliedPolicies{
			Relay:    pol.Relay,
			Executor: pol.Executor,
		},
	}, nil
}

// parsePayload decodes the payload text, enforcing the relay size cap and
// requiring a JSON object at the top level.
func parsePayload(text string, maxBytes int) (map[string]any, error) {
	if text == "" {
		text = "{}"
	}
	if maxBytes > 0 && len(text) > maxBytes {
		return nil, fmt.Errorf("payload exceeds relay policy limit of %d bytes", maxBytes)
	}

	var payload map[string]any
	if err := json.Unmarshal([]byte(text), &payload); err != nil {
		return nil, fmt.Errorf("payload must be a JSON object: %w", err)
	}
	if payload == nil {
		payload = map[string]any{}
	}
	return payload, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
