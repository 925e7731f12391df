package statemap

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like
// Prometheus.
type MetricsCollector interface {
	// RecordFindOrAdd is called after each FindOrAdd operation. hit is true
	// when the key was already present.
	RecordFindOrAdd(duration time.Duration, hit bool)

	// RecordSetOrAdd is called after each SetOrAdd operation. overwrote is
	// true when an existing value was replaced.
	RecordSetOrAdd(duration time.Duration, overwrote bool)

	// RecordLookup is called after each Contains or Value operation.
	RecordLookup(duration time.Duration, hit bool)

	// RecordResize is called after each completed resize.
	RecordResize(oldCapacity, newCapacity uint64, duration time.Duration)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordFindOrAdd(time.Duration, bool)        {}
func (NoopMetricsCollector) RecordSetOrAdd(time.Duration, bool)         {}
func (NoopMetricsCollector) RecordLookup(time.Duration, bool)           {}
func (NoopMetricsCollector) RecordResize(uint64, uint64, time.Duration) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	FindOrAddCount      atomic.Int64
	FindOrAddHits       atomic.Int64
	FindOrAddTotalNanos atomic.Int64
	SetOrAddCount       atomic.Int64
	SetOrAddOverwrites  atomic.Int64
	LookupCount         atomic.Int64
	LookupHits          atomic.Int64
	LookupTotalNanos    atomic.Int64
	ResizeCount         atomic.Int64
	ResizeTotalNanos    atomic.Int64
}

// RecordFindOrAdd implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFindOrAdd(duration time.Duration, hit bool) {
	b.FindOrAddCount.Add(1)
	b.FindOrAddTotalNanos.Add(duration.Nanoseconds())
	if hit {
		b.FindOrAddHits.Add(1)
	}
}

// RecordSetOrAdd implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSetOrAdd(duration time.Duration, overwrote bool) {
	b.SetOrAddCount.Add(1)
	if overwrote {
		b.SetOrAddOverwrites.Add(1)
	}
}

// RecordLookup implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLookup(duration time.Duration, hit bool) {
	b.LookupCount.Add(1)
	b.LookupTotalNanos.Add(duration.Nanoseconds())
	if hit {
		b.LookupHits.Add(1)
	}
}

// RecordResize implements MetricsCollector.
func (b *BasicMetricsCollector) RecordResize(oldCapacity, newCapacity uint64, duration time.Duration) {
	b.ResizeCount.Add(1)
	b.ResizeTotalNanos.Add(duration.Nanoseconds())
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		FindOrAddCount:     b.FindOrAddCount.Load(),
		FindOrAddHits:      b.FindOrAddHits.Load(),
		FindOrAddAvgNanos:  avg(b.FindOrAddTotalNanos.Load(), b.FindOrAddCount.Load()),
		SetOrAddCount:      b.SetOrAddCount.Load(),
		SetOrAddOverwrites: b.SetOrAddOverwrites.Load(),
		LookupCount:        b.LookupCount.Load(),
		LookupHits:         b.LookupHits.Load(),
		LookupAvgNanos:     avg(b.LookupTotalNanos.Load(), b.LookupCount.Load()),
		ResizeCount:        b.ResizeCount.Load(),
		ResizeAvgNanos:     avg(b.ResizeTotalNanos.Load(), b.ResizeCount.Load()),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	FindOrAddCount     int64
	FindOrAddHits      int64
	FindOrAddAvgNanos  int64
	SetOrAddCount      int64
	SetOrAddOverwrites int64
	LookupCount        int64
	LookupHits         int64
	LookupAvgNanos     int64
	ResizeCount        int64
	ResizeAvgNanos     int64
}
