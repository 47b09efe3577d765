// Package converter turns downloaded PAJ workbooks into the JSON dataset
// layout consumed downstream.
package converter

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/dbnomics-fetchers/paj-fetcher/converter/entities"
	"github.com/dbnomics-fetchers/paj-fetcher/logging"
	"github.com/dbnomics-fetchers/paj-fetcher/metrics"
	"github.com/dbnomics-fetchers/paj-fetcher/validation"
)

// Provider is written as provider.json at the root of the target directory.
var Provider = entities.Provider{
	Code:    "PAJ",
	Name:    "Petroleum Association of Japan",
	Region:  "Japan",
	Website: "https://www.paj.gr.jp",
}

// Downloaded workbooks are named <date>_<original-filename> by the
// downloader; the source directory may cache several revisions.
var datedWorkbookRe = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})_(.+)$`)

// Run converts every dataset found in sourceDir into targetDir. Both
// directories must already exist; dataset subdirectories of targetDir are
// created on demand.
func Run(sourceDir, targetDir string) error {
	for _, dir := range []string{sourceDir, targetDir} {
		info, err := os.Stat(dir)
		if err != nil {
			return fmt.Errorf("directory %s not found: %w", dir, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("path %s is not a directory", dir)
		}
	}

	start := time.Now()

	indexes, err := datasetIndexes(sourceDir)
	if err != nil {
		return err
	}
	if len(indexes) == 0 {
		return fmt.Errorf("no dataset directories in %s, run download first", sourceDir)
	}

	logging.Info("Starting conversion", "source", sourceDir, "target", targetDir, "datasets", len(indexes))

	// Convert every dataset concurrently, collecting errors.
	type result struct {
		dataset entities.Dataset
		series  []entities.Series
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	var errs []error
	results := make(map[string]result)

	for _, index := range indexes {
		index := index
		wg.Add(1)
		go func() {
			defer wg.Done()
			dataset, series, err := convertDataset(sourceDir, index)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return
			}
			results[dataset.Code] = result{dataset: dataset, series: series}
		}()
	}
	wg.Wait()

	if len(errs) > 0 {
		logging.Error("Conversion errors occurred", "errors", errs)
		return fmt.Errorf("conversion errors: %v", errs)
	}

	// Data quality report before anything is written.
	byDataset := make(map[string][]entities.Series, len(results))
	for code, r := range results {
		byDataset[code] = r.series
	}
	logQualityReport(validation.NewDataValidator().ReportQuality(byDataset))

	// Root files
	if err := writeJSON(filepath.Join(targetDir, "provider.json"), Provider); err != nil {
		return err
	}

	tree := make([]entities.CategoryNode, 0, len(results))
	datasets := make([]string, 0, len(results))
	for code := range results {
		datasets = append(datasets, code)
	}
	sort.Strings(datasets)
	for _, code := range datasets {
		tree = append(tree, entities.CategoryNode{Code: code, Name: results[code].dataset.Name})
	}
	if err := writeJSON(filepath.Join(targetDir, "category_tree.json"), tree); err != nil {
		return err
	}

	// Dataset directories
	for _, code := range datasets {
		r := results[code]
		dir := filepath.Join(targetDir, code)
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("failed to create dataset directory %s: %w", dir, err)
		}
		if err := writeJSON(filepath.Join(dir, "dataset.json"), r.dataset); err != nil {
			return err
		}
		if err := writeSeriesJSONL(filepath.Join(dir, "series.jsonl"), r.series); err != nil {
			return err
		}
		metrics.DatasetsConverted.Inc()
	}

	elapsed := time.Since(start)
	metrics.ConvertDuration.Observe(elapsed.Seconds())
	logging.Info("Conversion completed", "datasets", len(datasets), "duration", elapsed.String())
	return nil
}

// datasetIndexes lists the index subdirectories of the source dir. Plain
// files (the journal, stray downloads) are ignored.
func datasetIndexes(sourceDir string) ([]string, error) {
	entries, err := os.ReadDir(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read source directory %s: %w", sourceDir, err)
	}

	var indexes []string
	for _, entry := range entries {
		if entry.IsDir() {
			indexes = append(indexes, entry.Name())
		}
	}
	sort.Strings(indexes)
	return indexes, nil
}

// convertDataset converts the newest workbook of one index directory.
func convertDataset(sourceDir, index string) (entities.Dataset, []entities.Series, error) {
	dir := filepath.Join(sourceDir, index)
	entries, err := os.ReadDir(dir)
	if err != nil {
		return entities.Dataset{}, nil, fmt.Errorf("failed to read dataset directory %s: %w", dir, err)
	}

	// The date prefix is YYYY-MM-DD, so the lexically greatest name is the
	// newest revision.
	var newest string
	for _, entry := range entries {
		if entry.IsDir() || !datedWorkbookRe.MatchString(entry.Name()) {
			continue
		}
		if entry.Name() > newest {
			newest = entry.Name()
		}
	}
	if newest == "" {
		return entities.Dataset{}, nil, fmt.Errorf("no downloaded workbook in %s", dir)
	}

	m := datedWorkbookRe.FindStringSubmatch(newest)
	updatedAt, filename := m[1], m[2]

	tables, err := readWorkbook(filepath.Join(dir, newest))
	if err != nil {
		return entities.Dataset{}, nil, err
	}
	if len(tables) == 0 {
		return entities.Dataset{}, nil, fmt.Errorf("workbook %s has no tabular data", newest)
	}

	qualify := len(tables) > 1
	var series []entities.Series
	for _, table := range tables {
		series = append(series, seriesFromTable(table, qualify)...)
	}

	refs := make([]entities.SeriesRef, 0, len(series))
	for _, s := range series {
		refs = append(refs, entities.SeriesRef{Code: s.Code, Name: s.Name})
	}

	dataset := entities.Dataset{
		Code:      "paj-" + index,
		Name:      strings.SplitN(filename, ".", 2)[0],
		UpdatedAt: updatedAt,
		Series:    refs,
	}

	logging.Info("Dataset converted", "code", dataset.Code, "workbook", newest, "series", len(series))
	return dataset, series, nil
}

func logQualityReport(report *validation.QualityReport) {
	if len(report.EmptyDatasets) > 0 {
		logging.Warn("Datasets without series",
			"count", len(report.EmptyDatasets),
			"datasets", report.EmptyDatasets)
	}
	if len(report.DuplicateSeriesCodes) > 0 {
		logging.Warn("Duplicate series codes detected",
			"datasets", len(report.DuplicateSeriesCodes),
			"codes", report.DuplicateSeriesCodes)
	}
	if len(report.InvalidSeries) > 0 {
		logging.Warn("Invalid series detected",
			"count", len(report.InvalidSeries),
			"series", report.InvalidSeries)
	}
	if len(report.NAOnlySeries) > 0 {
		logging.Warn("Series with only NA observations",
			"count", len(report.NAOnlySeries),
			"series", report.NAOnlySeries)
	}
}

// writeJSON writes v as indented JSON via a temp file and rename, so a
// crashed run never leaves a truncated file behind.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}
	return writeAtomic(path, func(w *bufio.Writer) error {
		if _, err := w.Write(data); err != nil {
			return err
		}
		return w.WriteByte('\n')
	})
}

// writeSeriesJSONL writes one JSON object per line, sorted by series code.
func writeSeriesJSONL(path string, series []entities.Series) error {
	sorted := make([]entities.Series, len(series))
	copy(sorted, series)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Code < sorted[j].Code })

	return writeAtomic(path, func(w *bufio.Writer) error {
		for _, s := range sorted {
			line, err := json.Marshal(s)
			if err != nil {
				return err
			}
			if _, err := w.Write(line); err != nil {
				return err
			}
			if err := w.WriteByte('\n'); err != nil {
				return err
			}
		}
		return nil
	})
}

func writeAtomic(path string, fill func(*bufio.Writer) error) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}

	w := bufio.NewWriter(tmp)
	err = fill(w)
	if err == nil {
		err = w.Flush()
	}
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to close temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to rename temp file to %s: %w", path, err)
	}
	return nil
}
