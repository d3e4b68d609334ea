package digest_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/metamegacodex/codex/internal/digest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeRun(t *testing.T, vaultDir, id string, relay, evaluation, logger string) string {
	t.Helper()
	runDir := filepath.Join(vaultDir, "runs", filepath.FromSlash(id))
	require.NoError(t, os.MkdirAll(runDir, 0755))
	if relay != "" {
		require.NoError(t, os.WriteFile(filepath.Join(runDir, "relay.json"), []byte(relay), 0644))
	}
	if evaluation != "" {
		require.NoError(t, os.WriteFile(filepath.Join(runDir, "evaluation.json"), []byte(evaluation), 0644))
	}
	if logger != "" {
		require.NoError(t, os.WriteFile(filepath.Join(runDir, "logger.json"), []byte(logger), 0644))
	}
	return runDir
}

func TestGenerateEmptyVault(t *testing.T) {
	d, err := digest.Generate(digest.Options{VaultDir: t.TempDir()})
	require.NoError(t, err)
	assert.Zero(t, d.RunCount)
	assert.Empty(t, d.Runs)
	assert.False(t, d.GeneratedAt.IsZero())
}

func TestGenerateSummarizesNestedRuns(t *testing.T) {
	vaultDir := t.TempDir()
	writeRun(t, vaultDir, "2026-08-29/090000",
		`{"timestamp": "2026-08-29T09:00:00Z", "persona": "kim", "role": "advisor", "pipeline": ["relay"], "outputs": {"executor": "outputs/kim-advisor.json"}}`,
		`{"schema_version": 3, "criteria": [{}, {}, {}]}`,
		`{"logged": true}`)
	writeRun(t, vaultDir, "2026-08-30/120000",
		`{"timestamp": "2026-08-30T12:00:00Z", "persona": "alex", "role": "planner"}`,
		"", "")

	d, err := digest.Generate(digest.Options{VaultDir: vaultDir})
	require.NoError(t, err)
	require.Equal(t, 2, d.RunCount)

	// Newest first.
	assert.Equal(t, "alex", d.Runs[0].Persona)
	assert.False(t, d.Runs[0].LoggerPresent)
	assert.Nil(t, d.Runs[0].EvaluationSchema)

	older := d.Runs[1]
	assert.Equal(t, "kim", older.Persona)
	assert.Equal(t, "advisor", older.Role)
	require.NotNil(t, older.Timestamp)
	assert.Equal(t, 9, older.Timestamp.UTC().Hour())
	assert.EqualValues(t, 3, older.EvaluationSchema)
	assert.Equal(t, 3, older.EvaluationCriteria)
	assert.True(t, older.LoggerPresent)
}

func TestGenerateFlatRunLayout(t *testing.T) {
	vaultDir := t.TempDir()
	runDir := filepath.Join(vaultDir, "runs", "adhoc")
	require.NoError(t, os.MkdirAll(runDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(runDir, "relay.json"), []byte(`{"persona": "kim"}`), 0644))

	d, err := digest.Generate(digest.Options{VaultDir: vaultDir})
	require.NoError(t, err)
	require.Equal(t, 1, d.RunCount)
	assert.Equal(t, runDir, d.Runs[0].RunDir)
}

func TestGenerateLimitAndHistory(t *testing.T) {
	vaultDir := t.TempDir()
	writeRun(t, vaultDir, "2026-08-28/080000", `{"persona": "a"}`, "", "")
	writeRun(t, vaultDir, "2026-08-29/080000", `{"persona": "b"}`, "", "")
	writeRun(t, vaultDir, "2026-08-30/080000", `{"persona": "c"}`, "", "")

	d, err := digest.Generate(digest.Options{
		VaultDir: vaultDir,
		Limit:    2,
		History:  true,
		Environment: map[string]any{
			"region": "local",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, d.RunCount)
	assert.Equal(t, "c", d.Runs[0].Persona)
	assert.Equal(t, "b", d.Runs[1].Persona)
	require.NotNil(t, d.History)
	assert.Equal(t, vaultDir, d.History.VaultPath)
	assert.Equal(t, 2, d.History.Limit)
	assert.Equal(t, "local", d.Environment["region"])
}
