package orchestrator

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/metamegacodex/codex/internal/policy"
	"github.com/metamegacodex/codex/internal/relay"
)

// ExternalRelay runs the relay stage as an external command. The command's
// stdout is captured verbatim and becomes relay.json; its stderr passes
// through. A non-zero exit aborts the run.
type ExternalRelay struct {
	Command []string // argv; flags are appended
	Dir     string   // working directory; BaseDir when empty
}

// ParseCommand splits a configured command string into argv. Fields are
// whitespace-separated; shell quoting is not interpreted.
func ParseCommand(s string) []string {
	return strings.Fields(s)
}

func (e ExternalRelay) Run(ctx context.Context, opts relay.Options, _ *policy.Policies) ([]byte, error) {
	if len(e.Command) == 0 {
		return nil, fmt.Errorf("external relay command is empty")
	}
	args := append([]string{}, e.Command[1:]...)
	args = append(args,
		"--persona", opts.Persona,
		"--role", opts.Role,
		"--payload", opts.Payload,
		"--stacks-dir", opts.StacksDir,
		"--run-dir", opts.RunDir,
	)
	if opts.StackFile != "" {
		args = append(args, "--stack-file", opts.StackFile)
	}

	cmd := exec.CommandContext(ctx, e.Command[0], args...)
	cmd.Dir = e.dir(opts.BaseDir)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("relay command %s: %w", e.Command[0], err)
	}
	return stdout.Bytes(), nil
}

func (e ExternalRelay) dir(base string) string {
	if e.Dir != "" {
		return e.Dir
	}
	return base
}

// ExternalLogger runs the logging stage as an external command against the
// run directory. A non-zero exit aborts the run.
type ExternalLogger struct {
	Command []string
	Dir     string
}

func (e ExternalLogger) Run(ctx context.Context, runDir string, recordEnv bool, _ policy.Logger) error {
	if len(e.Command) == 0 {
		return fmt.Errorf("external logger command is empty")
	}
	args := append([]string{}, e.Command[1:]...)
	args = append(args, "--run-dir", runDir)
	if recordEnv {
		args = append(args, "--record-env")
	}

	cmd := exec.CommandContext(ctx, e.Command[0], args...)
	cmd.Dir = e.Dir
	cmd.Stdout = os.Stderr
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("logger command %s: %w", e.Command[0], err)
	}
	return nil
}
