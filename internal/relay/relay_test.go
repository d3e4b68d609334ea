package relay_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/metamegacodex/codex/internal/policy"
	"github.com/metamegacodex/codex/internal/relay"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStacks(t *testing.T) (base, stacksDir string) {
	t.Helper()
	base = t.TempDir()
	stacksDir = filepath.Join(base, "stacks")
	require.NoError(t, os.MkdirAll(stacksDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(stacksDir, "kim.yaml"), []byte(`
routing:
  persona: kim
  role: advisor
agents:
  - name: kim-advisor
    model: sonnet
meta:
  owner: platform
cfms_invariants:
  append_only: true
`), 0644))
	return base, stacksDir
}

func TestRunProducesReportAndOutput(t *testing.T) {
	base, _ := setupStacks(t)

	report, err := relay.Run(relay.Options{
		Persona:   "kim",
		Role:      "advisor",
		Payload:   `{"context": "standup", "objectives": ["ship"]}`,
		StacksDir: "stacks",
		RunDir:    filepath.Join(base, "run"),
		BaseDir:   base,
	}, &policy.Policies{})
	require.NoError(t, err)

	assert.Equal(t, "kim", report.Persona)
	assert.Equal(t, "advisor", report.Role)
	assert.Equal(t, relay.Pipeline, report.Pipeline)
	assert.Equal(t, "platform", report.Meta["owner"])
	assert.Equal(t, true, report.Invariants["append_only"])
	assert.False(t, report.Timestamp.IsZero())
	assert.Equal(t, "run/outputs/kim-advisor.json", report.Outputs["executor"])

	// The executor result landed under outputs/.
	data, err := os.ReadFile(filepath.Join(base, "run", "outputs", "kim-advisor.json"))
	require.NoError(t, err)
	var result map[string]any
	require.NoError(t, json.Unmarshal(data, &result))
	meta := result["meta"].(map[string]any)
	assert.Equal(t, "kim-advisor", meta["agent_name"])
}

func TestRunDefaultsEmptyPayload(t *testing.T) {
	base, _ := setupStacks(t)

	report, err := relay.Run(relay.Options{
		Persona:   "kim",
		Role:      "advisor",
		StacksDir: "stacks",
		RunDir:    filepath.Join(base, "run"),
		BaseDir:   base,
	}, nil)
	require.NoError(t, err)
	assert.Empty(t, report.Payload)
}

func TestRunRejectsNonObjectPayload(t *testing.T) {
	base, _ := setupStacks(t)

	_, err := relay.Run(relay.Options{
		Persona:   "kim",
		Role:      "advisor",
		Payload:   `[1, 2, 3]`,
		StacksDir: "stacks",
		RunDir:    filepath.Join(base, "run"),
		BaseDir:   base,
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JSON object")
}

func TestRunEnforcesPayloadCap(t *testing.T) {
	base, _ := setupStacks(t)

	_, err := relay.Run(relay.Options{
		Persona:   "kim",
		Role:      "advisor",
		Payload:   `{"context": "this payload is comfortably over the cap"}`,
		StacksDir: "stacks",
		RunDir:    filepath.Join(base, "run"),
		BaseDir:   base,
	}, &policy.Policies{Relay: policy.Relay{MaxPayloadBytes: 16}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "relay policy limit")
}

func TestRunMissingStacksDir(t *testing.T) {
	base := t.TempDir()
	_, err := relay.Run(relay.Options{
		Persona:   "kim",
		Role:      "advisor",
		StacksDir: "stacks",
		RunDir:    filepath.Join(base, "run"),
		BaseDir:   base,
	}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestRunExplicitStackFile(t *testing.T) {
	base, stacksDir := setupStacks(t)
	require.NoError(t, os.WriteFile(filepath.Join(stacksDir, "other.yaml"), []byte(`
routing:
  persona: alex
  role: planner
agents:
  - name: alex-planner
    model: haiku
`), 0644))

	report, err := relay.Run(relay.Options{
		Persona:   "alex",
		Role:      "planner",
		StacksDir: "stacks",
		StackFile: "other.yaml",
		RunDir:    filepath.Join(base, "run"),
		BaseDir:   base,
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(stacksDir, "other.yaml"), report.StackFile)
	assert.Equal(t, "run/outputs/alex-planner.json", report.Outputs["executor"])
}
