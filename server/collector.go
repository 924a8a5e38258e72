package server

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/chazu/lispcore/lisp"
)

// DefaultGCInterval is the default period between pending-collection checks.
const DefaultGCInterval = 30 * time.Second

// Collector periodically runs pending collections on a worker's heap.
// Allocation only marks a collection as pending; the collector is the
// safepoint that acts on it between requests.
type Collector struct {
	worker   *HeapWorker
	interval time.Duration
	enabled  atomic.Bool
	stop     chan struct{}
	stopped  chan struct{}
	mu       sync.Mutex // protects start/stop lifecycle

	sweepCount atomic.Uint64
	lastStats  atomic.Pointer[lisp.Stats]
}

// NewCollector creates a collector for worker. A non-positive interval
// selects DefaultGCInterval.
func NewCollector(worker *HeapWorker, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = DefaultGCInterval
	}
	c := &Collector{
		worker:   worker,
		interval: interval,
	}
	c.enabled.Store(true)
	return c
}

// Start begins the periodic loop. Calling Start twice is a no-op.
func (c *Collector) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stop != nil {
		return
	}
	c.stop = make(chan struct{})
	c.stopped = make(chan struct{})

	stopCh := c.stop
	stoppedCh := c.stopped
	go c.loop(stopCh, stoppedCh)
}

// Stop halts the loop and waits for it to finish. It is safe to call Stop
// multiple times or on a collector that was never started.
func (c *Collector) Stop() {
	c.mu.Lock()
	stopCh := c.stop
	stoppedCh := c.stopped
	c.stop = nil
	c.stopped = nil
	c.mu.Unlock()

	if stopCh != nil {
		close(stopCh)
		<-stoppedCh
	}
}

// SetEnabled enables or disables collection. When disabled, the loop
// still ticks but does nothing.
func (c *Collector) SetEnabled(enabled bool) {
	c.enabled.Store(enabled)
}

// IsEnabled reports whether collection is enabled.
func (c *Collector) IsEnabled() bool {
	return c.enabled.Load()
}

// Interval returns the tick period.
func (c *Collector) Interval() time.Duration {
	return c.interval
}

// SweepCount returns the number of collections that actually ran.
func (c *Collector) SweepCount() uint64 {
	return c.sweepCount.Load()
}

// LastStats returns the statistics of the most recent collection run by
// this collector, or nil.
func (c *Collector) LastStats() *lisp.Stats {
	return c.lastStats.Load()
}

// CollectNow runs a collection on the worker immediately. With force unset
// it only collects when one is pending; the result is then nil if nothing
// ran.
func (c *Collector) CollectNow(force bool) (*lisp.Stats, error) {
	res, err := c.worker.Do(func(cx *lisp.Context) (any, error) {
		return cx.GarbageCollect(force), nil
	})
	if err != nil {
		return nil, err
	}
	st := res.(*lisp.Stats)
	if st != nil {
		c.sweepCount.Add(1)
		c.lastStats.Store(st)
	}
	return st, nil
}

func (c *Collector) loop(stopCh <-chan struct{}, stoppedCh chan struct{}) {
	defer close(stoppedCh)

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if !c.enabled.Load() {
				continue
			}
			if _, err := c.CollectNow(false); err != nil {
				log.Errorf("periodic collection: %s", err)
			}
		}
	}
}
