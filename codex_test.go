package codex_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	codex "github.com/metamegacodex/codex"
	"github.com/metamegacodex/codex/internal/testutil"
	"github.com/metamegacodex/codex/internal/vault"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecuteMissingStack(t *testing.T) {
	_, err := codex.Execute(context.Background(), codex.Options{BaseDir: t.TempDir()})
	assert.ErrorIs(t, err, codex.ErrMissingStack)
}

func TestExecuteAndDigestRoundTrip(t *testing.T) {
	base := t.TempDir()

	require.NoError(t, os.MkdirAll(filepath.Join(base, "stacks"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(base, "stacks", "kim.yaml"), []byte(`
routing:
  persona: kim
  role: advisor
agents:
  - name: kim-advisor
    model: sonnet
`), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(base, vault.EvaluationSource),
		[]byte(`{"criteria": []}`), 0644))

	vaultRoot := filepath.Join(base, "PreservationVault")
	require.NoError(t, os.MkdirAll(vaultRoot, 0755))
	testutil.InitGitRepo(t, vaultRoot)

	res, err := codex.Execute(context.Background(), codex.Options{
		StackFile: "kim.yaml",
		BaseDir:   base,
	})
	require.NoError(t, err)
	require.NotEmpty(t, res.RunID)

	d, err := codex.GenerateDigest(codex.DigestOptions{VaultDir: vaultRoot})
	require.NoError(t, err)
	assert.Equal(t, 1, d.RunCount)
	require.Len(t, d.Runs, 1)
	assert.Equal(t, "kim", d.Runs[0].Persona)
}
