// Package codex provides a minimal public API for embedding the run
// orchestrator in other Go programs.
//
// Most automation should shell out to the cdx binary; this package exports
// only the types and entry points needed to drive runs programmatically,
// for example from a scheduler that wants the Result back without parsing
// CLI output.
package codex

import (
	"context"

	"github.com/metamegacodex/codex/internal/digest"
	"github.com/metamegacodex/codex/internal/orchestrator"
)

// Core types for driving runs
type (
	Options = orchestrator.Options
	Result  = orchestrator.Result
)

// ErrMissingStack is returned by Execute when no stack descriptor path is
// given. No filesystem side effects have occurred when it is returned.
var ErrMissingStack = orchestrator.ErrMissingStack

// Execute performs one full run with the given options and returns the
// run's identity and commit message.
func Execute(ctx context.Context, opts Options) (*Result, error) {
	o, err := orchestrator.New(opts)
	if err != nil {
		return nil, err
	}
	return o.Execute(ctx)
}

// Digest types for consuming vault summaries
type (
	DigestOptions = digest.Options
	Digest        = digest.Digest
)

// GenerateDigest summarizes the runs recorded in a vault.
func GenerateDigest(opts DigestOptions) (*Digest, error) {
	return digest.Generate(opts)
}
