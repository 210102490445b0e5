package metrics

import (
	"time"

	"media-boards/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	Stats() Stats
}

// Stats holds the current workspace statistics
type Stats struct {
	Materialized int
	Pending      int
	Folders      int
	Window       int
	Fallback     bool
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	// Collect immediately on start
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.Stats()

	WorkspaceAssets.WithLabelValues("materialized").Set(float64(stats.Materialized))
	WorkspaceAssets.WithLabelValues("pending").Set(float64(stats.Pending))
	WorkspaceFolders.Set(float64(stats.Folders))
	WorkspaceWindow.Set(float64(stats.Window))
	if stats.Fallback {
		WorkspaceFallback.Set(1)
	} else {
		WorkspaceFallback.Set(0)
	}

	logging.Debug("Metrics collected: materialized=%d, pending=%d, folders=%d, window=%d",
		stats.Materialized, stats.Pending, stats.Folders, stats.Window)
}
