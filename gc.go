package offheap

import (
	"context"
	"time"
)

// CollectGarbage tombstones every object the root no longer reaches and
// returns how many were collected. Adjacent free blocks are coalesced first.
// Cycles unreachable from the root are collected as a whole.
func (a *Allocator) CollectGarbage() (int, error) {
	start := time.Now()

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return 0, ErrNotInitialized
	}

	res := a.collector.Collect()

	a.metrics.RecordGC(res.Collected, time.Since(start))
	a.logger.LogGC(context.Background(), res.Merged, int(res.Reachable), res.Collected) //nolint:gosec // bounded by block count
	return res.Collected, nil
}
