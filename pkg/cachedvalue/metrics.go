package cachedvalue

import "sync/atomic"

// Metrics tracks cache traffic with atomic counters. The observability
// package scrapes these into prometheus gauges; keeping the hot path free of
// prometheus calls keeps GetOrCompute cheap.
type Metrics struct {
	name      string
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

func newMetrics(name string) *Metrics {
	return &Metrics{name: name}
}

// Name returns the cache label used in metrics output.
func (m *Metrics) Name() string { return m.name }

func (m *Metrics) recordHit()      { m.hits.Add(1) }
func (m *Metrics) recordMiss()     { m.misses.Add(1) }
func (m *Metrics) recordEviction() { m.evictions.Add(1) }
