package stack_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/metamegacodex/codex/internal/stack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeStack(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadPlainStack(t *testing.T) {
	dir := t.TempDir()
	path := writeStack(t, dir, "advisor.yaml", `
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
`)

	s, err := stack.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "kim", s.Routing.Persona)
	assert.Equal(t, "advisor", s.Routing.Role)
	require.Len(t, s.Agents, 1)
	assert.Equal(t, "kim-advisor", s.Agents[0].Name)
	assert.Equal(t, "sonnet", s.Agents[0].Model)
	assert.Equal(t, "platform", s.Meta["owner"])
	assert.Equal(t, true, s.Invariants["append_only"])
	assert.Equal(t, path, s.Path)
}

func TestLoadMergesIncludes(t *testing.T) {
	dir := t.TempDir()
	writeStack(t, dir, "base.yaml", `
routing:
  persona: base
  role: advisor
meta:
  owner: platform
  tier: shared
agents:
  - name: base-agent
    model: haiku
`)
	path := writeStack(t, dir, "kim.yaml", `
include:
  - base.yaml
routing:
  persona: kim
meta:
  tier: dedicated
`)

	s, err := stack.Load(path)
	require.NoError(t, err)

	// Including file wins on conflicts; untouched keys survive the merge.
	assert.Equal(t, "kim", s.Routing.Persona)
	assert.Equal(t, "advisor", s.Routing.Role)
	assert.Equal(t, "platform", s.Meta["owner"])
	assert.Equal(t, "dedicated", s.Meta["tier"])
	require.Len(t, s.Agents, 1)
	assert.Equal(t, "base-agent", s.Agents[0].Name)
}

func TestLoadIncludeChainIsDepthFirst(t *testing.T) {
	dir := t.TempDir()
	writeStack(t, dir, "a.yaml", "meta:\n  from: a\n  a: true\n")
	writeStack(t, dir, "b.yaml", "include: [a.yaml]\nmeta:\n  from: b\n  b: true\n")
	path := writeStack(t, dir, "c.yaml", "include: [b.yaml]\nmeta:\n  from: c\n")

	s, err := stack.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "c", s.Meta["from"])
	assert.Equal(t, true, s.Meta["a"])
	assert.Equal(t, true, s.Meta["b"])
}

func TestLoadDetectsIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	writeStack(t, dir, "left.yaml", "include: [right.yaml]\n")
	path := writeStack(t, dir, "right.yaml", "include: [left.yaml]\n")

	_, err := stack.Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circular stack include")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := stack.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestDiscoverByRouting(t *testing.T) {
	dir := t.TempDir()
	writeStack(t, dir, "alpha.yaml", "routing:\n  persona: alex\n  role: planner\n")
	writeStack(t, dir, "bravo.yaml", "routing:\n  persona: kim\n  role: advisor\nagents:\n  - name: kim-advisor\n    model: sonnet\n")

	s, err := stack.Discover("kim", "advisor", dir, "", dir)
	require.NoError(t, err)
	assert.Equal(t, "kim", s.Routing.Persona)
	require.Len(t, s.Agents, 1)
}

func TestDiscoverNoMatch(t *testing.T) {
	dir := t.TempDir()
	writeStack(t, dir, "alpha.yaml", "routing:\n  persona: alex\n  role: planner\n")

	_, err := stack.Discover("kim", "advisor", dir, "", dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no stack found")
}

func TestDiscoverExplicitRelativeToStacksDir(t *testing.T) {
	base := t.TempDir()
	stacks := filepath.Join(base, "stacks")
	require.NoError(t, os.MkdirAll(stacks, 0755))
	writeStack(t, stacks, "kim.yaml", "routing:\n  persona: kim\n  role: advisor\n")

	s, err := stack.Discover("kim", "advisor", stacks, "kim.yaml", base)
	require.NoError(t, err)
	assert.Equal(t, "kim", s.Routing.Persona)
}

func TestDiscoverExplicitMissing(t *testing.T) {
	base := t.TempDir()
	_, err := stack.Discover("kim", "advisor", base, "missing.yaml", base)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestPrimaryAgent(t *testing.T) {
	s := &stack.Stack{Agents: []stack.Agent{{Name: "one", Model: "sonnet"}, {Name: "two"}}}
	agent, err := s.PrimaryAgent()
	require.NoError(t, err)
	assert.Equal(t, "one", agent.Name)

	empty := &stack.Stack{Path: "x.yaml"}
	_, err = empty.PrimaryAgent()
	require.Error(t, err)
}
