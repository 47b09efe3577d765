package commands

import (
	"fmt"

	"github.com/dbnomics-fetchers/paj-fetcher/fetcher"
	"github.com/spf13/cobra"
)

func downloadCmd() *cobra.Command {
	var (
		full        bool
		limit       int
		concurrency int
	)

	cmd := &cobra.Command{
		Use:   "download <source-dir>",
		Short: "Download the published workbooks into a source directory",
		Long: `Download scrapes the statistics page for workbook links and fetches
each workbook into <source-dir>/<index>/. The source directory must
already exist.

Progress is journaled in <source-dir>/events.jsonl: resources that
already succeeded are skipped on the next run, failed ones are
retried. Use --full to re-download everything.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if concurrency > 0 {
				cfg.DownloadConcurrency = concurrency
			}

			catalog := fetcher.NewCatalog(cfg)
			resources, err := catalog.Resources(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list resources: %w", err)
			}

			downloader := fetcher.NewDownloader(cfg)
			return downloader.Run(cmd.Context(), args[0], resources, fetcher.Options{
				Full:  full,
				Limit: limit,
			})
		},
	}

	cmd.Flags().BoolVar(&full, "full", false, "Re-download resources that already succeeded")
	cmd.Flags().IntVar(&limit, "limit", 0, "Download at most this many resources (0 = all)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Concurrent downloads (0 = configured default)")

	return cmd
}
