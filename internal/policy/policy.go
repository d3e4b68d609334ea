// Package policy loads the runtime policy file that tunes the relay,
// executor, logger, and digest stages. A missing policy file is not an
// error: every stage has usable zero-value behavior.
package policy

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// FileName is the canonical policy file name under the config directory.
const FileName = "policies.yaml"

// Relay caps what the relay accepts on the wire.
type Relay struct {
	// MaxPayloadBytes rejects payloads larger than this many encoded
	// bytes. Zero disables the check.
	MaxPayloadBytes int `yaml:"max_payload_bytes" json:"max_payload_bytes,omitempty"`
}

// Executor shapes generated advisories.
type Executor struct {
	SummaryPrefix  string   `yaml:"summary_prefix" json:"summary_prefix,omitempty"`
	DefaultActions []string `yaml:"default_actions" json:"default_actions,omitempty"`
}

// Logger controls payload sanitization in run logs.
type Logger struct {
	RedactKeys []string `yaml:"redact_keys" json:"redact_keys,omitempty"`
}

// Digest controls the aggregate report.
type Digest struct {
	MaxRuns        int  `yaml:"max_runs" json:"max_runs,omitempty"`
	IncludeHistory bool `yaml:"include_history" json:"include_history,omitempty"`
}

// Policies is the full policy document.
type Policies struct {
	Relay    Relay    `yaml:"relay" json:"relay"`
	Executor Executor `yaml:"executor" json:"executor"`
	Logger   Logger   `yaml:"logger" json:"logger"`
	Digest   Digest   `yaml:"digest" json:"digest"`
}

// Load reads policies from path. A missing file yields zero policies and
// no error; a malformed file is an error.
func Load(path string) (*Policies, error) {
	data, err := os.ReadFile(path) // #nosec G304 - policy path from config
	if os.IsNotExist(err) {
		return &Policies{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading policies: %w", err)
	}

	var p Policies
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing policies %s: %w", path, err)
	}
	return &p, nil
}

// LoadDir loads policies from the conventional location under configDir.
func LoadDir(configDir string) (*Policies, error) {
	return Load(filepath.Join(configDir, FileName))
}
