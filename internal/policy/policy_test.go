package policy_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/metamegacodex/codex/internal/policy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileYieldsZeroPolicies(t *testing.T) {
	p, err := policy.Load(filepath.Join(t.TempDir(), "policies.yaml"))
	require.NoError(t, err)
	assert.Zero(t, p.Relay.MaxPayloadBytes)
	assert.Empty(t, p.Executor.DefaultActions)
	assert.Empty(t, p.Logger.RedactKeys)
}

func TestLoadFullDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policies.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
relay:
  max_payload_bytes: 4096
executor:
  summary_prefix: Advisor Insight
  default_actions:
    - Review the routing table
logger:
  redact_keys: [token, api_key]
digest:
  max_runs: 25
  include_history: true
`), 0644))

	p, err := policy.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4096, p.Relay.MaxPayloadBytes)
	assert.Equal(t, "Advisor Insight", p.Executor.SummaryPrefix)
	assert.Equal(t, []string{"Review the routing table"}, p.Executor.DefaultActions)
	assert.Equal(t, []string{"token", "api_key"}, p.Logger.RedactKeys)
	assert.Equal(t, 25, p.Digest.MaxRuns)
	assert.True(t, p.Digest.IncludeHistory)
}

func TestLoadMalformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policies.yaml")
	require.NoError(t, os.WriteFile(path, []byte("relay: [not, a, mapping"), 0644))

	_, err := policy.Load(path)
	require.Error(t, err)
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, policy.FileName), []byte("relay:\n  max_payload_bytes: 10\n"), 0644))

	p, err := policy.LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 10, p.Relay.MaxPayloadBytes)
}
