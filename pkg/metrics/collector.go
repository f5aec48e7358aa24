package metrics

import (
	"time"

	"github.com/runinator/runinator/pkg/types"
)

// TaskLister is the one storage.Store method the Collector reads. It is
// declared here rather than importing pkg/storage, which (through
// pkg/locator and pkg/gossip) imports this package.
type TaskLister interface {
	ListTasks() ([]*types.ScheduledTask, error)
}

// Collector periodically samples the metadata store into the task gauges
// in metrics.go. It is owned by the web service binary;
// scheduler/broker/worker processes update their own gauges inline
// instead of polling, since their state already lives in memory.
type Collector struct {
	store  TaskLister
	stopCh chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(store TaskLister) *Collector {
	return &Collector{
		store:  store,
		stopCh: make(chan struct{}),
	}
}

// Start begins collecting metrics
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectTaskMetrics()
}

func (c *Collector) collectTaskMetrics() {
	tasks, err := c.store.ListTasks()
	if err != nil {
		return
	}

	var enabled, disabled, inBlackout float64
	now := time.Now().Unix()

	for _, task := range tasks {
		if task.Enabled {
			enabled++
		} else {
			disabled++
		}
		if task.InBlackout(now) {
			inBlackout++
		}
	}

	ScheduledTasksTotal.WithLabelValues("true").Set(enabled)
	ScheduledTasksTotal.WithLabelValues("false").Set(disabled)
	TasksInBlackoutTotal.Set(inBlackout)
}
