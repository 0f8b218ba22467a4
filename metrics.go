package offheap

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems like Prometheus.
type MetricsCollector interface {
	// RecordStore is called after each store.
	// size is the encoded size, reused reports placement into freed space.
	RecordStore(size uint64, reused bool, duration time.Duration, err error)

	// RecordFetch is called after each fetch.
	RecordFetch(size uint64, duration time.Duration, err error)

	// RecordRemove is called after each remove.
	RecordRemove(duration time.Duration, err error)

	// RecordGC is called after each collection cycle.
	RecordGC(collected int, duration time.Duration)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordStore(uint64, bool, time.Duration, error) {}
func (NoopMetricsCollector) RecordFetch(uint64, time.Duration, error)       {}
func (NoopMetricsCollector) RecordRemove(time.Duration, error)              {}
func (NoopMetricsCollector) RecordGC(int, time.Duration)                    {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	StoreCount      atomic.Int64
	StoreErrors     atomic.Int64
	StoreReused     atomic.Int64
	StoreBytes      atomic.Int64
	StoreTotalNanos atomic.Int64
	FetchCount      atomic.Int64
	FetchErrors     atomic.Int64
	FetchBytes      atomic.Int64
	FetchTotalNanos atomic.Int64
	RemoveCount     atomic.Int64
	RemoveErrors    atomic.Int64
	GCCount         atomic.Int64
	GCCollected     atomic.Int64
	GCTotalNanos    atomic.Int64
}

// RecordStore implements MetricsCollector.
func (b *BasicMetricsCollector) RecordStore(size uint64, reused bool, duration time.Duration, err error) {
	b.StoreCount.Add(1)
	b.StoreTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.StoreErrors.Add(1)
		return
	}
	b.StoreBytes.Add(int64(size)) //nolint:gosec // bounded by arena capacity
	if reused {
		b.StoreReused.Add(1)
	}
}

// RecordFetch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFetch(size uint64, duration time.Duration, err error) {
	b.FetchCount.Add(1)
	b.FetchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.FetchErrors.Add(1)
		return
	}
	b.FetchBytes.Add(int64(size)) //nolint:gosec // bounded by arena capacity
}

// RecordRemove implements MetricsCollector.
func (b *BasicMetricsCollector) RecordRemove(duration time.Duration, err error) {
	b.RemoveCount.Add(1)
	if err != nil {
		b.RemoveErrors.Add(1)
	}
}

// RecordGC implements MetricsCollector.
func (b *BasicMetricsCollector) RecordGC(collected int, duration time.Duration) {
	b.GCCount.Add(1)
	b.GCCollected.Add(int64(collected))
	b.GCTotalNanos.Add(duration.Nanoseconds())
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		StoreCount:    b.StoreCount.Load(),
		StoreErrors:   b.StoreErrors.Load(),
		StoreReused:   b.StoreReused.Load(),
		StoreBytes:    b.StoreBytes.Load(),
		StoreAvgNanos: avg(b.StoreTotalNanos.Load(), b.StoreCount.Load()),
		FetchCount:    b.FetchCount.Load(),
		FetchErrors:   b.FetchErrors.Load(),
		FetchBytes:    b.FetchBytes.Load(),
		FetchAvgNanos: avg(b.FetchTotalNanos.Load(), b.FetchCount.Load()),
		RemoveCount:   b.RemoveCount.Load(),
		RemoveErrors:  b.RemoveErrors.Load(),
		GCCount:       b.GCCount.Load(),
		GCCollected:   b.GCCollected.Load(),
		GCAvgNanos:    avg(b.GCTotalNanos.Load(), b.GCCount.Load()),
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
	StoreCount    int64
	StoreErrors   int64
	StoreReused   int64
	StoreBytes    int64
	StoreAvgNanos int64
	FetchCount    int64
	FetchErrors   int64
	FetchBytes    int64
	FetchAvgNanos int64
	RemoveCount   int64
	RemoveErrors  int64
	GCCount       int64
	GCCollected   int64
	GCAvgNanos    int64
}
