// Package scheduler drives periodic refreshes of the served data.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/dbnomics-fetchers/paj-fetcher/interfaces"
	"github.com/dbnomics-fetchers/paj-fetcher/logging"
	"github.com/go-co-op/gocron"
)

// Scheduler refreshes the data store once a day through the injected
// Refresher and warns when the data goes stale.
type Scheduler struct {
	store     interfaces.DataStore
	refresher interfaces.Refresher
	refreshAt string
	scheduler *gocron.Scheduler
	stopWatch chan struct{}
}

func New(store interfaces.DataStore, refresher interfaces.Refresher, refreshAt string) *Scheduler {
	return &Scheduler{
		store:     store,
		refresher: refresher,
		refreshAt: refreshAt,
		scheduler: gocron.NewScheduler(time.Local),
		stopWatch: make(chan struct{}),
	}
}

// Start performs an initial refresh, then schedules the daily one.
func (s *Scheduler) Start() error {
	if err := s.refresh(); err != nil {
		logging.Error("Failed to perform initial data load", "error", err)
		return fmt.Errorf("initial data load failed: %w", err)
	}

	_, err := s.scheduler.Every(1).Days().At(s.refreshAt).Do(func() {
		if err := s.refresh(); err != nil {
			logging.Error("Failed to refresh data", "error", err)
		}
	})
	if err != nil {
		logging.Error("Failed to schedule refresh", "error", err)
		return fmt.Errorf("failed to schedule refresh: %w", err)
	}

	s.scheduler.StartAsync()
	s.startStalenessMonitoring()

	return nil
}

// Stop stops the scheduler and the staleness watchdog.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	close(s.stopWatch)
}

func (s *Scheduler) refresh() error {
	start := time.Now()
	logging.Info("Starting data refresh", "at", start.Format(time.RFC3339))

	if err := s.refresher.Refresh(context.Background()); err != nil {
		return err
	}

	logging.Info("Data refresh completed",
		"duration", time.Since(start).String(),
		"datasets", len(s.store.GetDatasets()))
	return nil
}

// startStalenessMonitoring warns when the store has not been refreshed
// for more than a day (plus slack for a slow fetch).
func (s *Scheduler) startStalenessMonitoring() {
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopWatch:
				return
			case <-ticker.C:
				lastUpdate := s.store.GetLastUpdated()
				if time.Since(lastUpdate) > 25*time.Hour {
					logging.Warn("Data hasn't been refreshed in over 25 hours",
						"last_updated", lastUpdate.Format(time.RFC3339))
				}
			}
		}
	}()
}
