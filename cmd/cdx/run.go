package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/metamegacodex/codex/internal/config"
	"github.com/metamegacodex/codex/internal/orchestrator"
	"github.com/metamegacodex/codex/internal/ui"
)

var runCmd = &cobra.Command{
	Use:   "run <stack-file> [persona] [role] [payload]",
	Short: "Execute a full run and commit it to the vault",
	Long: `Execute a full run: relay the request through the stack's executor,
write the run log, snapshot the evaluation criteria, and commit the
artifacts to the vault's git history.

Positional arguments after the stack file default to the configured
persona (kim), role (advisor), and an empty JSON payload.

Examples:
  cdx run stacks/kim.yaml
  cdx run kim.yaml kim advisor '{"context": "quarterly review"}'
  cdx run kim.yaml --skip-env-record
`,
	Args: cobra.RangeArgs(1, 4),
	Run: func(cmd *cobra.Command, args []string) {
		opts := orchestrator.Options{
			StackFile:   args[0],
			Persona:     viper.GetString(config.KeyPersona),
			Role:        viper.GetString(config.KeyRole),
			Payload:     viper.GetString(config.KeyPayload),
			VaultRoot:   viper.GetString(config.KeyVault),
			StacksDir:   viper.GetString(config.KeyStacksDir),
			ConfigDir:   viper.GetString(config.KeyConfigDir),
			LockTimeout: viper.GetDuration(config.KeyLockTimeout),
		}
		if len(args) > 1 {
			opts.Persona = args[1]
		}
		if len(args) > 2 {
			opts.Role = args[2]
		}
		if len(args) > 3 {
			opts.Payload = args[3]
		}

		skipEnv, _ := cmd.Flags().GetBool("skip-env-record")
		opts.SkipEnvRecord = skipEnv || !viper.GetBool(config.KeyRecordEnv)

		o, err := orchestrator.New(opts)
		if err != nil {
			if errors.Is(err, orchestrator.ErrMissingStack) {
				fatal("a stack descriptor path is required")
			}
			fatal("%v", err)
		}

		if relayCmdStr := viper.GetString(config.KeyRelayCommand); relayCmdStr != "" {
			o.SetRelayStep(orchestrator.ExternalRelay{Command: orchestrator.ParseCommand(relayCmdStr)})
		}
		if logCmdStr := viper.GetString(config.KeyLoggerCommand); logCmdStr != "" {
			o.SetLogStep(orchestrator.ExternalLogger{Command: orchestrator.ParseCommand(logCmdStr)})
		}

		res, err := o.Execute(cmd.Context())
		if err != nil {
			fatal("%v", err)
		}

		if jsonOutput {
			outputJSON(res)
			return
		}
		fmt.Printf("%s run %s committed\n", ui.Pass(ui.IconPass), res.RunID)
		fmt.Printf("  %s\n", ui.Dim(res.RunDir))
	},
}

func init() {
	runCmd.Flags().Bool("skip-env-record", false, "Skip the environment record in the run log")
	rootCmd.AddCommand(runCmd)
}
