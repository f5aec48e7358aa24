package broker

import (
	"context"
	"time"

	"github.com/runinator/runinator/pkg/metrics"
)

// MetricsCollector periodically snapshots a Broker's queue/inflight/dedupe
// sizes into gauges on a ticker-driven refresh.
type MetricsCollector struct {
	broker   *Broker
	interval time.Duration
}

// NewMetricsCollector builds a collector that samples b every interval.
func NewMetricsCollector(b *Broker, interval time.Duration) *MetricsCollector {
	return &MetricsCollector{broker: b, interval: interval}
}

// Run samples metrics on a ticker until ctx is cancelled.
func (c *MetricsCollector) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.sample()
	for {
		select {
		case <-ticker.C:
			c.sample()
		case <-ctx.Done():
			return
		}
	}
}

func (c *MetricsCollector) sample() {
	stats := c.broker.Snapshot()
	metrics.BrokerQueueDepth.Set(float64(stats.QueueDepth))
	metrics.BrokerInFlightDepth.Set(float64(stats.InflightDepth))
	metrics.BrokerDedupeKeysTracked.Set(float64(stats.DedupeSize))
}
