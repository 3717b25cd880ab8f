package healthendpoint

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// CounterCollector holds a set of named counters that components bump
// as they work, the sweeper uses it to count sweeps and anomalies.
type CounterCollector interface {
	prometheus.Collector
	AddCounters(counterOpts ...prometheus.CounterOpts)
	Add(counterOpts prometheus.CounterOpts, count int64)
}

func NewCounterCollector() CounterCollector {
	return &counterCollector{
		counterMap: map[string]prometheus.Counter{},
	}
}

type counterCollector struct {
	counterMap map[string]prometheus.Counter
	sync.RWMutex
}

func (c *counterCollector) AddCounters(counterOpts ...prometheus.CounterOpts) {
	c.Lock()
	defer c.Unlock()
	for _, opts := range counterOpts {
		fullName := counterFullName(opts)
		if _, exists := c.counterMap[fullName]; exists {
			continue
		}
		c.counterMap[fullName] = prometheus.NewCounter(opts)
	}
}

func (c *counterCollector) Describe(ch chan<- *prometheus.Desc) {
	c.RLock()
	defer c.RUnlock()
	for _, counter := range c.counterMap {
		ch <- counter.Desc()
	}
}

func (c *counterCollector) Collect(ch chan<- prometheus.Metric) {
	c.RLock()
	defer c.RUnlock()
	for _, counter := range c.counterMap {
		ch <- counter
	}
}

// Add is a no-op for counters never registered with AddCounters.
func (c *counterCollector) Add(counterOpts prometheus.CounterOpts, count int64) {
	c.RLock()
	defer c.RUnlock()
	if counter, exists := c.counterMap[counterFullName(counterOpts)]; exists {
		counter.Add(float64(count))
	}
}

func counterFullName(counterOpts prometheus.CounterOpts) string {
	return counterOpts.Namespace + "_" + counterOpts.Subsystem + "_" + counterOpts.Name
}
