package metrics

import (
	"time"

	"image-resize-ai/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	GetStats() Stats
}

// StatsFunc adapts a plain function to StatsProvider.
type StatsFunc func() Stats

// GetStats calls f.
func (f StatsFunc) GetStats() Stats { return f() }

// Stats holds the current statistics
type Stats struct {
	CacheEntries int
	CacheBytes   int64
	JobsByStatus map[string]int
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

	stats := c.statsProvider.GetStats()

	CacheEntries.Set(float64(stats.CacheEntries))
	CacheSizeBytes.Set(float64(stats.CacheBytes))
	for _, status := range []string{"submitted", "running", "completed", "failed"} {
		JobsByStatus.WithLabelValues(status).Set(float64(stats.JobsByStatus[status]))
	}

	logging.Debug("Metrics collected: cache_entries=%d, cache_bytes=%d, jobs=%v",
		stats.CacheEntries, stats.CacheBytes, stats.JobsByStatus)
}
