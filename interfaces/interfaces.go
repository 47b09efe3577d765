// Package interfaces defines the contracts between the serve-mode pieces so
// they can be tested with fakes.
package interfaces

import (
	"context"
	"time"

	"github.com/dbnomics-fetchers/paj-fetcher/converter/entities"
)

// DataStore provides thread-safe access to the converted data with atomic
// swaps for zero-downtime refreshes.
type DataStore interface {
	GetProvider() entities.Provider
	GetDatasets() []entities.Dataset
	GetDataset(code string) (entities.Dataset, bool)
	GetSeries(datasetCode string) ([]entities.Series, bool)
	GetLastUpdated() time.Time
	IsUpdating() bool

	UpdateData(provider entities.Provider, datasets []entities.Dataset,
		series map[string][]entities.Series)
	BeginUpdate() bool
	EndUpdate()
}

// Refresher re-runs the pipeline (or reloads its output) behind serve mode.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// Scheduler drives periodic refreshes and staleness monitoring.
type Scheduler interface {
	Start() error
	Stop()
}
