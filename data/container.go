// Package data holds the converted datasets in memory for serve mode.
package data

import (
	"sync/atomic"
	"time"

	"github.com/dbnomics-fetchers/paj-fetcher/converter/entities"
	"github.com/dbnomics-fetchers/paj-fetcher/interfaces"
	"github.com/dbnomics-fetchers/paj-fetcher/logging"
)

// Compile-time check
var _ interfaces.DataStore = (*Container)(nil)

// Container stores everything behind atomic values so readers never block
// and refreshes swap the data in one step.
type Container struct {
	provider    atomic.Value // entities.Provider
	datasets    atomic.Value // []entities.Dataset
	datasetsMap atomic.Value // map[string]entities.Dataset
	series      atomic.Value // map[string][]entities.Series
	lastUpdated atomic.Value // time.Time
	updating    atomic.Bool
}

func NewContainer() *Container {
	c := &Container{}
	c.provider.Store(entities.Provider{})
	c.datasets.Store(make([]entities.Dataset, 0))
	c.datasetsMap.Store(make(map[string]entities.Dataset))
	c.series.Store(make(map[string][]entities.Series))
	c.lastUpdated.Store(time.Time{})
	return c
}

func (c *Container) GetProvider() entities.Provider {
	if v, ok := c.provider.Load().(entities.Provider); ok {
		return v
	}
	logging.Warn("Provider is not loaded")
	return entities.Provider{}
}

func (c *Container) GetDatasets() []entities.Dataset {
	if v, ok := c.datasets.Load().([]entities.Dataset); ok {
		return v
	}
	logging.Warn("Dataset list is empty or invalid")
	return []entities.Dataset{}
}

func (c *Container) GetDataset(code string) (entities.Dataset, bool) {
	if m, ok := c.datasetsMap.Load().(map[string]entities.Dataset); ok {
		dataset, found := m[code]
		return dataset, found
	}
	logging.Warn("Dataset map is empty or invalid")
	return entities.Dataset{}, false
}

func (c *Container) GetSeries(datasetCode string) ([]entities.Series, bool) {
	if m, ok := c.series.Load().(map[string][]entities.Series); ok {
		series, found := m[datasetCode]
		return series, found
	}
	logging.Warn("Series map is empty or invalid")
	return nil, false
}

func (c *Container) GetLastUpdated() time.Time {
	if v, ok := c.lastUpdated.Load().(time.Time); ok {
		return v
	}
	return time.Time{}
}

func (c *Container) IsUpdating() bool {
	return c.updating.Load()
}

// UpdateData swaps in a fresh snapshot.
func (c *Container) UpdateData(provider entities.Provider, datasets []entities.Dataset, series map[string][]entities.Series) {
	datasetsMap := make(map[string]entities.Dataset, len(datasets))
	for _, d := range datasets {
		datasetsMap[d.Code] = d
	}

	c.provider.Store(provider)
	c.datasets.Store(datasets)
	c.datasetsMap.Store(datasetsMap)
	c.series.Store(series)
	c.lastUpdated.Store(time.Now())
}

// BeginUpdate reports whether the caller won the right to refresh; a false
// return means another refresh is already running.
func (c *Container) BeginUpdate() bool {
	return c.updating.CompareAndSwap(false, true)
}

func (c *Container) EndUpdate() {
	c.updating.Store(false)
}
