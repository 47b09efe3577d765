package data

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dbnomics-fetchers/paj-fetcher/converter/entities"
	"github.com/dbnomics-fetchers/paj-fetcher/logging"
)

// LoadFromDir reads the converted layout (provider.json, category_tree.json,
// per-dataset dataset.json + series.jsonl) into the container.
func (c *Container) LoadFromDir(targetDir string) error {
	if !c.BeginUpdate() {
		logging.Info("Update already in progress, skipping...")
		return nil
	}
	defer c.EndUpdate()

	var provider entities.Provider
	if err := readJSONFile(filepath.Join(targetDir, "provider.json"), &provider); err != nil {
		return err
	}

	var tree []entities.CategoryNode
	if err := readJSONFile(filepath.Join(targetDir, "category_tree.json"), &tree); err != nil {
		return err
	}

	datasets := make([]entities.Dataset, 0, len(tree))
	series := make(map[string][]entities.Series, len(tree))
	for _, node := range tree {
		dir := filepath.Join(targetDir, node.Code)

		var dataset entities.Dataset
		if err := readJSONFile(filepath.Join(dir, "dataset.json"), &dataset); err != nil {
			return err
		}

		datasetSeries, err := readSeriesFile(filepath.Join(dir, "series.jsonl"))
		if err != nil {
			return err
		}

		datasets = append(datasets, dataset)
		series[dataset.Code] = datasetSeries
	}

	c.UpdateData(provider, datasets, series)
	logging.Info("Converted data loaded", "dir", targetDir, "datasets", len(datasets))
	return nil
}

func readJSONFile(path string, v any) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(content, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", path, err)
	}
	return nil
}

func readSeriesFile(path string) ([]entities.Series, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logging.Warn("Failed to close series file", "path", path, "error", err)
		}
	}()

	var series []entities.Series
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var s entities.Series
		if err := json.Unmarshal(line, &s); err != nil {
			return nil, fmt.Errorf("corrupt series line in %s: %w", path, err)
		}
		series = append(series, s)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return series, nil
}
