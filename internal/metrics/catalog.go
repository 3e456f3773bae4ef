package metrics

import (
	"sync/atomic"
	"time"
)

// Catalog tracks calls made through the catalog gate.
type Catalog struct {
	calls    atomic.Int64
	failures atomic.Int64
	timeouts atomic.Int64

	latency *Histogram
	wait    *Histogram
}

// NewCatalog creates an empty set of catalog metrics.
func NewCatalog() *Catalog {
	return &Catalog{
		latency: NewHistogram(1024),
		wait:    NewHistogram(1024),
	}
}

// ObserveCall records one finished call. wait is the time spent queued and
// spaced before the call started.
func (c *Catalog) ObserveCall(wait, duration time.Duration, err error, timedOut bool) {
	c.calls.Add(1)
	if err != nil {
		c.failures.Add(1)
	}
	if timedOut {
		c.timeouts.Add(1)
	}
	c.wait.Record(wait)
	c.latency.Record(duration)
}

// CatalogSnapshot is a serializable view of Catalog.
type CatalogSnapshot struct {
	Calls    int64   `json:"calls"`
	Failures int64   `json:"failures"`
	Timeouts int64   `json:"timeouts"`
	Latency  Summary `json:"latency"`
	Wait     Summary `json:"queue_wait"`
}

// Snapshot returns the current counters and latency summaries.
func (c *Catalog) Snapshot() CatalogSnapshot {
	return CatalogSnapshot{
		Calls:    c.calls.Load(),
		Failures: c.failures.Load(),
		Timeouts: c.timeouts.Load(),
		Latency:  c.latency.Summary(),
		Wait:     c.wait.Summary(),
	}
}
