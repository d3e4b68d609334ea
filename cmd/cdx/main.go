package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/metamegacodex/codex/internal/config"
	"github.com/metamegacodex/codex/internal/debug"
	"github.com/metamegacodex/codex/internal/telemetry"
)

var (
	jsonOutput  bool
	verboseFlag bool // Enable verbose/debug output
	quietFlag   bool // Suppress non-essential output
)

func init() {
	// Initialize viper configuration
	if err := config.Initialize(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to initialize config: %v\n", err)
	}

	rootCmd.PersistentFlags().String("vault", "", "Preservation vault path (default: PreservationVault)")
	rootCmd.PersistentFlags().String("stacks-dir", "", "Stack descriptor directory (default: stacks)")
	rootCmd.PersistentFlags().String("config-dir", "", "Policy/config directory (default: config)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable verbose/debug output")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress non-essential output (errors only)")

	// Flags override env/config/defaults only when actually set.
	_ = viper.BindPFlag(config.KeyVault, rootCmd.PersistentFlags().Lookup("vault"))
	_ = viper.BindPFlag(config.KeyStacksDir, rootCmd.PersistentFlags().Lookup("stacks-dir"))
	_ = viper.BindPFlag(config.KeyConfigDir, rootCmd.PersistentFlags().Lookup("config-dir"))

	rootCmd.Flags().BoolP("version", "V", false, "Print version information")
}

var rootCmd = &cobra.Command{
	Use:   "cdx",
	Short: "cdx - Run orchestrator for the preservation vault",
	Long:  `Orchestrates advisory runs: relay, logging, evaluation snapshot, and a git commit of the vault. Every run leaves a timestamped artifact directory under the vault.`,
	Run: func(cmd *cobra.Command, args []string) {
		if v, _ := cmd.Flags().GetBool("version"); v {
			fmt.Printf("cdx version %s (%s)\n", Version, Build)
			return
		}
		_ = cmd.Help()
	},
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		debug.SetVerbose(verboseFlag)
		debug.SetQuiet(quietFlag)

		if err := telemetry.Init(cmd.Context(), "cdx", Version); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: telemetry init failed: %v\n", err)
		}
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		telemetry.Shutdown(ctx)
	},
}

// outputJSON prints v as indented JSON on stdout.
func outputJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: encoding JSON output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
