package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/metamegacodex/codex/internal/policy"
	"github.com/metamegacodex/codex/internal/relay"
	"github.com/metamegacodex/codex/internal/runlog"
)

// RelayStep produces the relay report for a run. The returned bytes are
// written verbatim to relay.json.
type RelayStep interface {
	Run(ctx context.Context, opts relay.Options, pol *policy.Policies) ([]byte, error)
}

// LogStep records the run log for a run directory.
type LogStep interface {
	Run(ctx context.Context, runDir string, recordEnv bool, pol policy.Logger) error
}

// inprocRelay runs the relay stage in-process.
type inprocRelay struct{}

func (inprocRelay) Run(_ context.Context, opts relay.Options, pol *policy.Policies) ([]byte, error) {
	report, err := relay.Run(opts, pol)
	if err != nil {
		return nil, err
	}
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding relay report: %w", err)
	}
	return append(data, '\n'), nil
}

// inprocLogger runs the logging stage in-process.
type inprocLogger struct{}

func (inprocLogger) Run(_ context.Context, runDir string, recordEnv bool, pol policy.Logger) error {
	_, err := runlog.Write(runDir, recordEnv, pol)
	return err
}
