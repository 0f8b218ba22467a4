package offheap

import (
	"github.com/hupe1980/offheap/internal/arena"
	"github.com/hupe1980/offheap/internal/directory"
)

// Stats is a point-in-time view of an allocator.
type Stats struct {
	Capacity  uint64
	Used      uint64 // bytes held by live objects
	Free      uint64 // Capacity - Used
	HighWater uint64 // end of the furthest appended block

	Directory directory.Stats
	Arena     arena.Stats
}

// Fragmented reports whether some freed space sits below the high-water mark.
func (s Stats) Fragmented() bool {
	return s.Directory.DeletedBytes > 0
}

// Stats returns allocator statistics. It returns the zero value once closed.
func (a *Allocator) Stats() Stats {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return Stats{}
	}

	used := a.dir.TotalSize()
	return Stats{
		Capacity:  a.capacity,
		Used:      used,
		Free:      a.capacity - used,
		HighWater: a.offset,
		Directory: a.dir.Stats(),
		Arena:     a.arena.Stats(),
	}
}
