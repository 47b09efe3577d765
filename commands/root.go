// Package commands defines the paj-fetcher command line interface.
package commands

import (
	"fmt"
	"os"

	"github.com/dbnomics-fetchers/paj-fetcher/config"
	"github.com/dbnomics-fetchers/paj-fetcher/logging"
	"github.com/spf13/cobra"
)

func rootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "paj-fetcher",
		Short: "Fetch and convert Petroleum Association of Japan statistics",
		Long: `paj-fetcher downloads the statistical workbooks published by the
Petroleum Association of Japan and converts them into a JSON layout
(provider.json, category_tree.json, per-dataset dataset.json and
series.jsonl).

The pipeline runs in two steps: download fetches raw workbooks into a
source directory, convert turns a source directory into JSON. Serve
exposes a converted directory over HTTP.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(downloadCmd())
	cmd.AddCommand(convertCmd())
	cmd.AddCommand(serveCmd())

	return cmd
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig loads the environment configuration and initializes the
// shared logger. Every subcommand starts here.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logging.Init(cfg.LogDir, logging.ParseLevel(cfg.LogLevel))
	return cfg, nil
}
