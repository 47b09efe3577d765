package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dbnomics-fetchers/paj-fetcher/converter"
	"github.com/dbnomics-fetchers/paj-fetcher/data"
	"github.com/dbnomics-fetchers/paj-fetcher/fetcher"
	"github.com/dbnomics-fetchers/paj-fetcher/logging"
	"github.com/dbnomics-fetchers/paj-fetcher/scheduler"
	"github.com/dbnomics-fetchers/paj-fetcher/server"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	var sourceDir string

	cmd := &cobra.Command{
		Use:   "serve <target-dir>",
		Short: "Serve a converted directory over HTTP",
		Long: `Serve loads the converted JSON layout from <target-dir> into memory
and exposes it over HTTP, refreshing once a day.

Without --source, a refresh re-reads <target-dir> from disk. With
--source, a refresh runs the full pipeline first: download into the
source directory, convert it into <target-dir>, then reload.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			targetDir := args[0]

			container := data.NewContainer()
			var refresher *pipelineRefresher
			if sourceDir != "" {
				refresher = &pipelineRefresher{
					container:  container,
					catalog:    fetcher.NewCatalog(cfg),
					downloader: fetcher.NewDownloader(cfg),
					sourceDir:  sourceDir,
					targetDir:  targetDir,
				}
			} else {
				refresher = &pipelineRefresher{container: container, targetDir: targetDir}
			}

			sched := scheduler.New(container, refresher, cfg.RefreshAt)
			if err := sched.Start(); err != nil {
				return err
			}
			defer sched.Stop()

			srv := server.NewServer(cfg, container)

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

			errs := make(chan error, 1)
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errs <- err
				}
			}()

			select {
			case err := <-errs:
				return fmt.Errorf("server failed: %w", err)
			case <-quit:
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}

	cmd.Flags().StringVar(&sourceDir, "source", "",
		"Source directory; when set, refreshes run download and convert before reloading")

	return cmd
}

// pipelineRefresher reloads the container from the target directory,
// optionally running the download and convert steps first.
type pipelineRefresher struct {
	container  *data.Container
	catalog    *fetcher.Catalog
	downloader *fetcher.Downloader
	sourceDir  string
	targetDir  string
}

func (p *pipelineRefresher) Refresh(ctx context.Context) error {
	if p.sourceDir != "" {
		resources, err := p.catalog.Resources(ctx)
		if err != nil {
			return fmt.Errorf("failed to list resources: %w", err)
		}
		if err := p.downloader.Run(ctx, p.sourceDir, resources, fetcher.Options{}); err != nil {
			logging.Warn("Download finished with failures, converting what succeeded", "error", err)
		}
		if err := converter.Run(p.sourceDir, p.targetDir); err != nil {
			return fmt.Errorf("conversion failed: %w", err)
		}
	}
	return p.container.LoadFromDir(p.targetDir)
}
