// Package stack loads and resolves persona stack descriptors.
//
// A stack is a YAML file describing the routing (persona/role pair), the
// agents available to the executor, and free-form metadata and invariants
// carried through to run artifacts. Stacks compose via an `include:` list:
// included files are merged depth-first, with the including file winning on
// conflicts.
package stack

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Routing identifies which persona/role pair a stack serves.
type Routing struct {
	Persona string `yaml:"persona" json:"persona"`
	Role    string `yaml:"role" json:"role"`
}

// Agent describes one executor agent declared by a stack.
type Agent struct {
	Name  string `yaml:"name" json:"name"`
	Model string `yaml:"model" json:"model"`
}

// Stack is a fully resolved stack descriptor (all includes merged).
type Stack struct {
	Routing    Routing        `yaml:"routing" json:"routing"`
	Agents     []Agent        `yaml:"agents" json:"agents"`
	Meta       map[string]any `yaml:"meta" json:"meta"`
	Invariants map[string]any `yaml:"cfms_invariants" json:"cfms_invariants"`

	// Path is the file the stack was loaded from (absolute).
	Path string `yaml:"-" json:"-"`
}

// IsEmpty reports whether the stack carries no configuration at all.
func (s *Stack) IsEmpty() bool {
	return s.Routing == (Routing{}) && len(s.Agents) == 0 && len(s.Meta) == 0 && len(s.Invariants) == 0
}

// PrimaryAgent returns the first declared agent. Stacks must declare at
// least one agent to be executable; Load does not enforce this so that
// discovery can still inspect routing-only fragments.
func (s *Stack) PrimaryAgent() (Agent, error) {
	if len(s.Agents) == 0 {
		return Agent{}, fmt.Errorf("stack %s declares no agents", s.Path)
	}
	return s.Agents[0], nil
}

// Load reads the stack file at path and resolves its include chain.
func Load(path string) (*Stack, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving stack path: %w", err)
	}

	merged, err := loadMerged(abs, nil)
	if err != nil {
		return nil, err
	}

	// Round-trip the merged document through YAML to get the typed view.
	// Merging happens on generic maps so that unknown keys survive include
	// resolution instead of being dropped by an early typed decode.
	raw, err := yaml.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("re-encoding merged stack %s: %w", abs, err)
	}

	var s Stack
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("decoding stack %s: %w", abs, err)
	}
	s.Path = abs
	return &s, nil
}

// loadMerged loads one stack document as a generic map, recursively merging
// its includes. ancestry tracks the include chain for cycle detection.
func loadMerged(path string, ancestry []string) (map[string]any, error) {
	for _, seen := range ancestry {
		if seen == path {
			cycle := append(append([]string{}, ancestry...), path)
			return nil, fmt.Errorf("circular stack include: %s", strings.Join(cycle, " -> "))
		}
	}

	data, err := os.ReadFile(path) // #nosec G304 - stack path supplied by operator
	if err != nil {
		return nil, fmt.Errorf("reading stack %s: %w", path, err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing stack %s: %w", path, err)
	}

	merged := map[string]any{}
	for _, name := range includeList(doc) {
		includePath := name
		if !filepath.IsAbs(includePath) {
			includePath = filepath.Join(filepath.Dir(path), includePath)
		}
		sub, err := loadMerged(includePath, append(ancestry, path))
		if err != nil {
			return nil, err
		}
		merged = deepMerge(merged, sub)
	}

	delete(doc, "include")
	return deepMerge(merged, doc), nil
}

func includeList(doc map[string]any) []string {
	raw, ok := doc["include"]
	if !ok || raw == nil {
		return nil
	}
	list, ok := raw.([]any)
	if !ok {
		return []string{fmt.Sprint(raw)}
	}
	names := make([]string, 0, len(list))
	for _, item := range list {
		names = append(names, fmt.Sprint(item))
	}
	return names
}

// deepMerge merges incoming over base. Nested maps merge recursively;
// every other value (scalars, lists) is replaced wholesale.
func deepMerge(base, incoming map[string]any) map[string]any {
	result := make(map[string]any, len(base)+len(incoming))
	for k, v := range base {
		result[k] = v
	}
	for k, v := range incoming {
		baseMap, baseOK := result[k].(map[string]any)
		incomingMap, incomingOK := v.(map[string]any)
		if baseOK && incomingOK {
			result[k] = deepMerge(baseMap, incomingMap)
			continue
		}
		result[k] = v
	}
	return result
}

// Discover locates a stack for the given persona/role pair.
//
// When explicit is non-empty it names the stack file directly: tried as an
// absolute path, then relative to baseDir, then relative to stacksDir.
// Otherwise every *.yaml in stacksDir is loaded in sorted order and the
// first whose routing matches wins.
func Discover(persona, role, stacksDir, explicit, baseDir string) (*Stack, error) {
	if explicit != "" {
		target := explicit
		if !filepath.IsAbs(target) {
			candidate := filepath.Join(baseDir, explicit)
			if _, err := os.Stat(candidate); err == nil {
				target = candidate
			} else {
				target = filepath.Join(stacksDir, explicit)
			}
		}
		if _, err := os.Stat(target); err != nil {
			return nil, fmt.Errorf("stack file %s does not exist", target)
		}
		return Load(target)
	}

	entries, err := filepath.Glob(filepath.Join(stacksDir, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("scanning stacks dir %s: %w", stacksDir, err)
	}
	sort.Strings(entries)

	for _, candidate := range entries {
		s, err := Load(candidate)
		if err != nil {
			return nil, err
		}
		if s.Routing.Persona == persona && s.Routing.Role == role {
			return s, nil
		}
	}
	return nil, fmt.Errorf("no stack found for persona=%s role=%s in %s", persona, role, stacksDir)
}
