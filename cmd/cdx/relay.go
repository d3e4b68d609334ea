package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/metamegacodex/codex/internal/config"
	"github.com/metamegacodex/codex/internal/debug"
	"github.com/metamegacodex/codex/internal/policy"
	"github.com/metamegacodex/codex/internal/relay"
	"github.com/metamegacodex/codex/internal/ui"
	"github.com/metamegacodex/codex/internal/vault"
)

var relayCmd = &cobra.Command{
	Use:   "relay",
	Short: "Run the relay stage against a run directory",
	Long: `Resolve a stack for the persona/role pair, run its executor against
the payload, and write relay.json plus the executor output into the run
directory. This is the same stage "cdx run" performs first; standalone it
is useful for replaying or debugging a single stage.

Examples:
  cdx relay --run-dir PreservationVault/runs/2026-08-30/140502
  cdx relay --persona kim --role advisor --payload '{"context": "x"}' --run-dir out
`,
	Run: func(cmd *cobra.Command, args []string) {
		persona, _ := cmd.Flags().GetString("persona")
		role, _ := cmd.Flags().GetString("role")
		payload, _ := cmd.Flags().GetString("payload")
		stackFile, _ := cmd.Flags().GetString("stack-file")
		runDir, _ := cmd.Flags().GetString("run-dir")
		if runDir == "" {
			fatal("--run-dir is required")
		}

		pol, err := policy.LoadDir(viper.GetString(config.KeyConfigDir))
		if err != nil {
			fatal("%v", err)
		}

		report, err := relay.Run(relay.Options{
			Persona:   persona,
			Role:      role,
			Payload:   payload,
			StacksDir: viper.GetString(config.KeyStacksDir),
			StackFile: stackFile,
			RunDir:    runDir,
		}, pol)
		if err != nil {
			fatal("%v", err)
		}

		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			fatal("encoding relay report: %v", err)
		}
		data = append(data, '\n')
		relayPath := filepath.Join(runDir, vault.RelayFile)
		if err := os.WriteFile(relayPath, data, 0644); err != nil {
			fatal("writing %s: %v", relayPath, err)
		}

		// The report goes to stdout so cdx itself satisfies the external
		// relay-command contract; status decoration stays on stderr.
		fmt.Print(string(data))
		if !debug.IsQuiet() {
			fmt.Fprintf(os.Stderr, "%s relay complete %s\n", ui.Pass(ui.IconPass), ui.Dim(relayPath))
		}
	},
}

func init() {
	relayCmd.Flags().String("persona", config.DefaultPersona, "Persona to route")
	relayCmd.Flags().String("role", config.DefaultRole, "Role to route")
	relayCmd.Flags().String("payload", config.DefaultPayload, "Request payload (JSON object)")
	relayCmd.Flags().String("stack-file", "", "Explicit stack descriptor path (skips discovery)")
	relayCmd.Flags().String("run-dir", "", "Run directory to write artifacts into (required)")
	rootCmd.AddCommand(relayCmd)
}
