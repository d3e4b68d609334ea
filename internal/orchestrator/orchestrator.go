// Package orchestrator sequences a full codex run: relay, logging,
// evaluation snapshot, and the vault commit. Each stage is a function
// returning an error; the first failure aborts the sequence. Nothing
// written before the failure is rolled back, and no commit is made.
//
// The vault repository's index is shared mutable state. The commit
// sequence takes an advisory file lock so concurrent invocations cannot
// interleave their add/commit pairs; callers must still expect run-ID
// collisions when two runs start within the same second.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/metamegacodex/codex/internal/debug"
	"github.com/metamegacodex/codex/internal/git"
	"github.com/metamegacodex/codex/internal/lockfile"
	"github.com/metamegacodex/codex/internal/policy"
	"github.com/metamegacodex/codex/internal/relay"
	"github.com/metamegacodex/codex/internal/telemetry"
	"github.com/metamegacodex/codex/internal/vault"
)

// ErrMissingStack is returned when the required stack descriptor path is
// absent. No filesystem side effects have occurred when it is returned.
var ErrMissingStack = errors.New("stack descriptor path is required")

// Options are the invocation parameters of one run. StackFile is
// required; everything else has a documented default.
type Options struct {
	StackFile string // required: stack descriptor path

	Persona string // default "kim"
	Role    string // default "advisor"
	Payload string // default "{}"; passed through uninterpreted

	VaultRoot        string // default "PreservationVault"
	StacksDir        string // default "stacks"
	ConfigDir        string // default "config"
	EvaluationSource string // default "codex_evaluation.json" under BaseDir
	BaseDir          string // resolution base for relative paths; CWD when empty

	SkipEnvRecord bool          // skip the logger's environment record
	LockTimeout   time.Duration // default 30s wait for the vault lock

	Clock func() time.Time // test hook; defaults to time.Now
}

func (o Options) withDefaults() (Options, error) {
	if o.StackFile == "" {
		return o, ErrMissingStack
	}
	if o.Persona == "" {
		o.Persona = "kim"
	}
	if o.Role == "" {
		o.Role = "advisor"
	}
	if o.Payload == "" {
		o.Payload = "{}"
	}
	if o.VaultRoot == "" {
		o.VaultRoot = "PreservationVault"
	}
	if o.StacksDir == "" {
		o.StacksDir = "stacks"
	}
	if o.ConfigDir == "" {
		o.ConfigDir = "config"
	}
	if o.EvaluationSource == "" {
		o.EvaluationSource = vault.EvaluationSource
	}
	if o.BaseDir == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return o, fmt.Errorf("resolving working directory: %w", err)
		}
		o.BaseDir = cwd
	}
	if o.LockTimeout == 0 {
		o.LockTimeout = 30 * time.Second
	}
	if o.Clock == nil {
		o.Clock = time.Now
	}
	return o, nil
}

func (o Options) abs(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(o.BaseDir, path)
}

// Result describes a completed run.
type Result struct {
	RunID         string
	RunDir        string
	CommitMessage string
}

// Orchestrator executes runs. Zero-value steps mean in-process relay and
// logging; see SetRelayStep/SetLogStep for external commands.
type Orchestrator struct {
	opts     Options
	policies *policy.Policies
	relay    RelayStep
	logger   LogStep
	tracer   trace.Tracer
}

// New validates opts and loads the policy file from the config directory.
// ErrMissingStack is returned before any side effect when the stack path
// is absent.
func New(opts Options) (*Orchestrator, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	pol, err := policy.LoadDir(opts.abs(opts.ConfigDir))
	if err != nil {
		return nil, err
	}
	return &Orchestrator{
		opts:     opts,
		policies: pol,
		relay:    inprocRelay{},
		logger:   inprocLogger{},
		tracer:   telemetry.Tracer("orchestrator"),
	}, nil
}

// SetRelayStep replaces the in-process relay stage.
func (o *Orchestrator) SetRelayStep(s RelayStep) {
	if s != nil {
		o.relay = s
	}
}

// SetLogStep replaces the in-process logging stage.
func (o *Orchestrator) SetLogStep(s LogStep) {
	if s != nil {
		o.logger = s
	}
}

// Execute runs the full sequence. On failure the run directory and any
// artifacts written so far stay on disk for post-mortem inspection, and
// the vault history gains no commit.
func (o *Orchestrator) Execute(ctx context.Context) (*Result, error) {
	ctx, span := o.tracer.Start(ctx, "codex.run")
	defer span.End()

	runID := vault.NewRunID(o.opts.Clock())
	span.SetAttributes(
		attribute.String("codex.run_id", runID),
		attribute.String("codex.persona", o.opts.Persona),
		attribute.String("codex.role", o.opts.Role),
	)

	v := vault.New(o.opts.abs(o.opts.VaultRoot))
	runDir, err := v.CreateRun(runID)
	if err != nil {
		return nil, err
	}
	debug.Logf("run %s: created %s\n", runID, runDir)

	if err := o.runRelay(ctx, runDir); err != nil {
		return nil, fmt.Errorf("relay step: %w", err)
	}
	if err := o.runLogger(ctx, runDir); err != nil {
		return nil, fmt.Errorf("logging step: %w", err)
	}
	if err := o.copyEvaluation(ctx, runDir); err != nil {
		return nil, err
	}

	message := "codex run " + runID
	if err := o.commit(ctx, v, message); err != nil {
		return nil, fmt.Errorf("vault commit: %w", err)
	}

	return &Result{RunID: runID, RunDir: runDir, CommitMessage: message}, nil
}

func (o *Orchestrator) runRelay(ctx context.Context, runDir string) error {
	ctx, span := o.tracer.Start(ctx, "codex.relay")
	defer span.End()

	report, err := o.relay.Run(ctx, relay.Options{
		Persona:   o.opts.Persona,
		Role:      o.opts.Role,
		Payload:   o.opts.Payload,
		StacksDir: o.opts.StacksDir,
		StackFile: o.opts.StackFile,
		RunDir:    runDir,
		BaseDir:   o.opts.BaseDir,
	}, o.policies)
	if err != nil {
		return err
	}
	relayPath := filepath.Join(runDir, vault.RelayFile)
	if err := os.WriteFile(relayPath, report, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", relayPath, err)
	}
	return nil
}

func (o *Orchestrator) runLogger(ctx context.Context, runDir string) error {
	ctx, span := o.tracer.Start(ctx, "codex.logger")
	defer span.End()
	return o.logger.Run(ctx, runDir, !o.opts.SkipEnvRecord, o.policies.Logger)
}

func (o *Orchestrator) copyEvaluation(ctx context.Context, runDir string) error {
	_, span := o.tracer.Start(ctx, "codex.evaluation")
	defer span.End()
	return vault.CopyEvaluation(o.opts.abs(o.opts.EvaluationSource), runDir)
}

func (o *Orchestrator) commit(ctx context.Context, v *vault.Vault, message string) error {
	ctx, span := o.tracer.Start(ctx, "codex.commit")
	defer span.End()

	lock, err := lockfile.AcquireWait(ctx, v.LockPath(), o.opts.LockTimeout)
	if err != nil {
		return fmt.Errorf("acquiring vault lock: %w", err)
	}
	defer lock.Release()

	if err := git.AddAll(v.Root); err != nil {
		return err
	}
	return git.Commit(v.Root, message)
}
