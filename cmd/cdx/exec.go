package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/metamegacodex/codex/internal/config"
	"github.com/metamegacodex/codex/internal/executor"
	"github.com/metamegacodex/codex/internal/policy"
	"github.com/metamegacodex/codex/internal/stack"
)

var execCmd = &cobra.Command{
	Use:   "exec",
	Short: "Run a stack's executor and print its advisory",
	Long: `Load a stack descriptor, run its primary agent's executor against
the payload, and print the advisory result as JSON. Nothing is written to
the vault; this is a dry-run view of what the relay stage would produce.

Examples:
  cdx exec --stack-file stacks/kim.yaml
  cdx exec --stack-file stacks/kim.yaml --payload '{"context": "release readiness", "objectives": ["ship 0.3"]}'
`,
	Run: func(cmd *cobra.Command, args []string) {
		stackFile, _ := cmd.Flags().GetString("stack-file")
		if stackFile == "" {
			fatal("--stack-file is required")
		}
		payloadText, _ := cmd.Flags().GetString("payload")

		s, err := stack.Load(stackFile)
		if err != nil {
			fatal("%v", err)
		}

		var payload map[string]any
		if err := json.Unmarshal([]byte(payloadText), &payload); err != nil {
			fatal("payload must be a JSON object: %v", err)
		}

		pol, err := policy.LoadDir(viper.GetString(config.KeyConfigDir))
		if err != nil {
			fatal("%v", err)
		}

		exe, err := executor.New(s, pol.Executor)
		if err != nil {
			fatal("%v", err)
		}
		result, err := exe.Run(payload)
		if err != nil {
			fatal("%v", err)
		}

		// Always JSON; the advisory is structured data.
		data, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			fatal("encoding advisory: %v", err)
		}
		fmt.Println(string(data))
	},
}

func init() {
	execCmd.Flags().String("stack-file", "", "Stack descriptor path (required)")
	execCmd.Flags().String("payload", config.DefaultPayload, "Request payload (JSON object)")
	rootCmd.AddCommand(execCmd)
}
