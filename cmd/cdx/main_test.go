package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubcommandsRegistered(t *testing.T) {
	want := []string{"run", "relay", "log", "exec", "digest", "version"}
	have := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		have[c.Name()] = true
	}
	for _, name := range want {
		assert.True(t, have[name], "missing subcommand %s", name)
	}
}

func TestRunCommandArgBounds(t *testing.T) {
	require.Error(t, runCmd.Args(runCmd, nil))
	require.NoError(t, runCmd.Args(runCmd, []string{"kim.yaml"}))
	require.NoError(t, runCmd.Args(runCmd, []string{"kim.yaml", "kim", "advisor", "{}"}))
	require.Error(t, runCmd.Args(runCmd, []string{"kim.yaml", "kim", "advisor", "{}", "extra"}))
}

func TestExecCommandFlags(t *testing.T) {
	require.NotNil(t, execCmd.Flags().Lookup("stack-file"))
	require.NotNil(t, execCmd.Flags().Lookup("payload"))
}
