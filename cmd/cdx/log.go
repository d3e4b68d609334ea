package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/metamegacodex/codex/internal/config"
	"github.com/metamegacodex/codex/internal/policy"
	"github.com/metamegacodex/codex/internal/runlog"
	"github.com/metamegacodex/codex/internal/ui"
	"github.com/metamegacodex/codex/internal/vault"
)

var logCmd = &cobra.Command{
	Use:   "log",
	Short: "Write the run log for a run directory",
	Long: `Read relay.json from the run directory, redact sensitive payload
keys per the logger policy, and write logger.json alongside it. With
--record-env the log includes a snapshot of the execution environment
(platform, hostname, git revision).

Examples:
  cdx log --run-dir PreservationVault/runs/2026-08-30/140502
  cdx log --run-dir out --record-env=false
`,
	Run: func(cmd *cobra.Command, args []string) {
		runDir, _ := cmd.Flags().GetString("run-dir")
		if runDir == "" {
			fatal("--run-dir is required")
		}
		recordEnv, _ := cmd.Flags().GetBool("record-env")

		pol, err := policy.LoadDir(viper.GetString(config.KeyConfigDir))
		if err != nil {
			fatal("%v", err)
		}

		record, err := runlog.Write(runDir, recordEnv, pol.Logger)
		if err != nil {
			fatal("%v", err)
		}

		if jsonOutput {
			outputJSON(record)
			return
		}
		fmt.Printf("%s run log written\n", ui.Pass(ui.IconPass))
		fmt.Printf("  %s\n", ui.Dim(filepath.Join(runDir, vault.LoggerFile)))
	},
}

func init() {
	logCmd.Flags().String("run-dir", "", "Run directory containing relay.json (required)")
	logCmd.Flags().Bool("record-env", true, "Include the environment record")
	rootCmd.AddCommand(logCmd)
}
