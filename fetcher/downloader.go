package fetcher

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dbnomics-fetchers/paj-fetcher/config"
	"github.com/dbnomics-fetchers/paj-fetcher/logging"
	"github.com/dbnomics-fetchers/paj-fetcher/metrics"
	"golang.org/x/sync/errgroup"
)

// Downloader fetches catalog resources into the source directory.
type Downloader struct {
	client      *http.Client
	concurrency int
	userAgent   string
}

func NewDownloader(cfg *config.Config) *Downloader {
	return &Downloader{
		client: &http.Client{
			Timeout: time.Duration(cfg.HTTPTimeoutSeconds) * time.Second,
		},
		concurrency: cfg.DownloadConcurrency,
		userAgent:   cfg.UserAgent,
	}
}

// Options control one download run.
type Options struct {
	// Full re-downloads every resource, ignoring the journal.
	Full bool
	// Limit caps the number of resources processed (0 = no cap).
	Limit int
}

// Run downloads every resource that is not already journaled as a success.
// One failing resource does not stop the others; the run fails at the end if
// any resource failed.
func (d *Downloader) Run(ctx context.Context, sourceDir string, resources []Resource, opts Options) error {
	info, err := os.Stat(sourceDir)
	if err != nil {
		return fmt.Errorf("source directory %s not found: %w", sourceDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("source path %s is not a directory", sourceDir)
	}

	events, err := LoadEvents(sourceDir)
	if err != nil {
		return err
	}

	journal, err := OpenJournal(sourceDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := journal.Close(); err != nil {
			logging.Warn("Failed to close journal", "error", err)
		}
	}()

	pending := make([]Resource, 0, len(resources))
	for _, r := range resources {
		if !opts.Full {
			if e, ok := events[r.ID]; ok && e.Status == StatusSuccess {
				logging.Debug("Resource already downloaded, skipping", "id", r.ID)
				continue
			}
		}
		pending = append(pending, r)
		if opts.Limit > 0 && len(pending) >= opts.Limit {
			break
		}
	}

	logging.Info("Starting download",
		"resources", len(resources),
		"pending", len(pending),
		"skipped", len(resources)-len(pending),
		"concurrency", d.concurrency)

	var mu sync.Mutex
	var failures []error

	var g errgroup.Group
	g.SetLimit(d.concurrency)

	for _, r := range pending {
		r := r
		g.Go(func() error {
			bytes, err := d.fetchResource(ctx, sourceDir, r)
			event := Event{ResourceID: r.ID, Status: StatusSuccess, Bytes: bytes}
			if err != nil {
				metrics.DownloadFailures.Inc()
				event.Status = StatusFailure
				event.Message = err.Error()
				mu.Lock()
				failures = append(failures, err)
				mu.Unlock()
			} else {
				metrics.ResourcesDownloaded.Inc()
				metrics.DownloadBytes.Add(float64(bytes))
			}
			if err := journal.Append(event); err != nil {
				logging.Warn("Failed to journal resource", "id", r.ID, "error", err)
			}
			return nil
		})
	}
	// Goroutines report through failures, never through errgroup.
	_ = g.Wait()

	if len(failures) > 0 {
		logging.Error("Download errors occurred", "errors", failures)
		return fmt.Errorf("download errors: %v", failures)
	}

	logging.Info("Download completed", "downloaded", len(pending))
	return nil
}

// fetchResource streams one workbook to <source-dir>/<index>/<name>.
// A partial file is removed on failure.
func (d *Downloader) fetchResource(ctx context.Context, sourceDir string, r Resource) (int64, error) {
	dir := filepath.Join(sourceDir, r.Index)
	// The index comes from a scraped href; never let it climb out of the
	// source directory.
	rel, err := filepath.Rel(sourceDir, dir)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(os.PathSeparator)) {
		return 0, fmt.Errorf("invalid resource index: %s", r.Index)
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return 0, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	logging.Info("Downloading file", "url", r.URL, "dir", dir)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to build request for %s: %w", r.URL, err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to download %s: %w", r.URL, err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Warn("Failed to close response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%s returned status %d", r.URL, resp.StatusCode)
	}

	dest := filepath.Join(dir, r.Name)
	outFile, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("failed to create file %s: %w", dest, err)
	}

	written, err := io.Copy(outFile, resp.Body)
	if closeErr := outFile.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		if removeErr := os.Remove(dest); removeErr != nil {
			logging.Warn("Failed to remove partial file", "path", dest, "error", removeErr)
		}
		return 0, fmt.Errorf("failed to write %s: %w", dest, err)
	}

	logging.Debug("File downloaded", "path", dest, "bytes", written)
	return written, nil
}
