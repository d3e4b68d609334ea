// Package config wires viper over the codex config file and CDX_* env
// vars. Flags bound by the CLI take precedence, then env, then the config
// file, then the defaults registered here.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config keys. Dashes in keys map to underscores in env vars
// (CDX_STACKS_DIR overrides stacks-dir).
const (
	KeyVault       = "vault"
	KeyStacksDir   = "stacks-dir"
	KeyConfigDir   = "config-dir"
	KeyPersona     = "persona"
	KeyRole        = "role"
	KeyPayload     = "payload"
	KeyRecordEnv   = "record-env"
	KeyLockTimeout = "lock-timeout"

	// External step commands. Empty means run the step in-process.
	KeyRelayCommand  = "relay-command"
	KeyLoggerCommand = "logger-command"
)

// Defaults for the orchestrator's invocation parameters.
const (
	DefaultVault   = "PreservationVault"
	DefaultStacks  = "stacks"
	DefaultConfig  = "config"
	DefaultPersona = "kim"
	DefaultRole    = "advisor"
	DefaultPayload = "{}"
)

// Initialize sets defaults, binds CDX_* env vars, and reads codex.yaml
// from the config directory or CWD if present. A missing config file is
// fine; a malformed one is an error.
func Initialize() error {
	viper.SetDefault(KeyVault, DefaultVault)
	viper.SetDefault(KeyStacksDir, DefaultStacks)
	viper.SetDefault(KeyConfigDir, DefaultConfig)
	viper.SetDefault(KeyPersona, DefaultPersona)
	viper.SetDefault(KeyRole, DefaultRole)
	viper.SetDefault(KeyPayload, DefaultPayload)
	viper.SetDefault(KeyRecordEnv, true)
	viper.SetDefault(KeyLockTimeout, 30*time.Second)
	viper.SetDefault(KeyRelayCommand, "")
	viper.SetDefault(KeyLoggerCommand, "")

	viper.SetEnvPrefix("CDX")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	viper.AutomaticEnv()

	viper.SetConfigName("codex")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(DefaultConfig)
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("reading codex.yaml: %w", err)
	}
	return nil
}

// LoadEnvironment reads the free-form environment descriptor embedded in
// digest reports. A missing file yields nil and no error.
func LoadEnvironment(path string) (map[string]any, error) {
	data, err := os.ReadFile(path) // #nosec G304 - config path from settings
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading environment config: %w", err)
	}

	var env map[string]any
	if err := yaml.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("parsing environment config %s: %w", path, err)
	}
	return env, nil
}
