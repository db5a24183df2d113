package metrics

import (
	"context"
	"time"

	"media-picker/internal/logging"
)

// StatsProvider is implemented by the media index.
type StatsProvider interface {
	Stats(ctx context.Context) (Stats, error)
}

// Stats holds the current index statistics
type Stats struct {
	TotalImages     int
	TotalVideos     int
	TotalBuckets    int
	OpenConnections int
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

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stats, err := c.statsProvider.Stats(ctx)
	if err != nil {
		logging.Warn("metrics collector: failed to read index stats: %v", err)
		return
	}

	MediaIndexRows.WithLabelValues("image").Set(float64(stats.TotalImages))
	MediaIndexRows.WithLabelValues("video").Set(float64(stats.TotalVideos))
	MediaIndexBuckets.Set(float64(stats.TotalBuckets))
	DBConnectionsOpen.Set(float64(stats.OpenConnections))

	logging.Debug("Metrics collected: images=%d videos=%d buckets=%d",
		stats.TotalImages, stats.TotalVideos, stats.TotalBuckets)
}
