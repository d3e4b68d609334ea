package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/metamegacodex/codex/internal/config"
	"github.com/metamegacodex/codex/internal/debug"
	"github.com/metamegacodex/codex/internal/digest"
	"github.com/metamegacodex/codex/internal/policy"
	"github.com/metamegacodex/codex/internal/ui"
)

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Summarize the runs recorded in the vault",
	Long: `Aggregate the vault's run history into a single digest: one summary
per run, newest first. The digest embeds the environment descriptor from
the config directory when one exists.

With --watch the digest is regenerated whenever a new run lands in the
vault, which keeps a dashboard file current while runs execute.

Examples:
  cdx digest
  cdx digest --limit 10 --output digest.json
  cdx digest --watch --output digest.json
`,
	Run: func(cmd *cobra.Command, args []string) {
		limit, _ := cmd.Flags().GetInt("limit")
		output, _ := cmd.Flags().GetString("output")
		history, _ := cmd.Flags().GetBool("history")
		watch, _ := cmd.Flags().GetBool("watch")

		vaultDir := viper.GetString(config.KeyVault)
		configDir := viper.GetString(config.KeyConfigDir)
		env, err := config.LoadEnvironment(filepath.Join(configDir, "environment.yaml"))
		if err != nil {
			fatal("%v", err)
		}

		pol, err := policy.LoadDir(configDir)
		if err != nil {
			fatal("%v", err)
		}
		if limit == 0 {
			limit = pol.Digest.MaxRuns
		}
		if !cmd.Flags().Changed("history") {
			history = pol.Digest.IncludeHistory
		}

		opts := digest.Options{
			VaultDir:    vaultDir,
			Limit:       limit,
			Environment: env,
			History:     history,
		}

		if watch && output == "" {
			fatal("--watch requires --output")
		}

		if err := writeDigest(opts, output); err != nil {
			fatal("%v", err)
		}

		if watch {
			if err := watchDigest(cmd, opts, output); err != nil {
				fatal("%v", err)
			}
		}
	},
}

func writeDigest(opts digest.Options, output string) error {
	d, err := digest.Generate(opts)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding digest: %w", err)
	}
	data = append(data, '\n')

	if output == "" {
		fmt.Print(string(data))
		return nil
	}
	if err := os.WriteFile(output, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}
	if !debug.IsQuiet() {
		fmt.Printf("%s digest: %d runs %s\n", ui.Pass(ui.IconPass), d.RunCount, ui.Dim(output))
	}
	return nil
}

// watchDigest regenerates the digest when run directories change. New date
// directories are added to the watch as they appear, so runs landing under
// a fresh date are picked up without a restart.
func watchDigest(cmd *cobra.Command, opts digest.Options, output string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer watcher.Close()

	runsDir := filepath.Join(opts.VaultDir, "runs")
	if err := os.MkdirAll(runsDir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", runsDir, err)
	}
	if err := watcher.Add(runsDir); err != nil {
		return fmt.Errorf("watching %s: %w", runsDir, err)
	}
	entries, err := os.ReadDir(runsDir)
	if err != nil {
		return fmt.Errorf("reading %s: %w", runsDir, err)
	}
	for _, e := range entries {
		if e.IsDir() {
			_ = watcher.Add(filepath.Join(runsDir, e.Name()))
		}
	}

	// Debounce: a run landing writes several files in quick succession.
	var timer *time.Timer
	pending := make(chan struct{}, 1)
	fire := func() {
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(500*time.Millisecond, func() {
			select {
			case pending <- struct{}{}:
			default:
			}
		})
	}

	fmt.Printf("watching %s\n", ui.Dim(runsDir))
	for {
		select {
		case <-cmd.Context().Done():
			return nil
		case <-pending:
			if err := writeDigest(opts, output); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: digest regeneration failed: %v\n", err)
			}
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = watcher.Add(event.Name)
				}
			}
			if event.Has(fsnotify.Create) || event.Has(fsnotify.Write) || event.Has(fsnotify.Remove) {
				debug.Logf("digest watch: %s %s\n", event.Op, event.Name)
				fire()
			}
		case werr, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			fmt.Fprintf(os.Stderr, "Warning: watcher: %v\n", werr)
		}
	}
}

func init() {
	digestCmd.Flags().Int("limit", 0, "Maximum runs to include (0 = all)")
	digestCmd.Flags().String("output", "", "Write digest to file instead of stdout")
	digestCmd.Flags().Bool("history", false, "Include the history section (vault path and limit)")
	digestCmd.Flags().Bool("watch", false, "Keep regenerating as new runs land (requires --output)")
	rootCmd.AddCommand(digestCmd)
}
