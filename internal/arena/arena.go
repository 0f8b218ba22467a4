package arena

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hupe1980/offheap/internal/conv"
	"github.com/hupe1980/offheap/internal/mmap"
)

// MemoryAcquirer is an interface for acquiring memory.
type MemoryAcquirer interface {
	AcquireMemory(ctx context.Context, amount int64) error
	ReleaseMemory(amount int64)
}

var (
	// ErrOutOfBounds is returned when an access reaches past the capacity.
	ErrOutOfBounds = errors.New("arena: access out of bounds")
	// ErrClosed is returned when the arena has been released.
	ErrClosed = errors.New("arena: closed")
	// ErrInvalidCapacity is returned for a non-positive capacity.
	ErrInvalidCapacity = errors.New("arena: capacity must be positive")
)

// defaultAcquireTimeout bounds the wait for budget when ctx has no deadline.
const defaultAcquireTimeout = 100 * time.Millisecond

// Stats tracks arena traffic.
type Stats struct {
	Capacity     uint64
	Writes       uint64
	Reads        uint64
	BytesWritten uint64
	BytesRead    uint64
}

type atomicStats struct {
	Writes       atomic.Uint64
	Reads        atomic.Uint64
	BytesWritten atomic.Uint64
	BytesRead    atomic.Uint64
}

// Arena is a fixed-capacity off-heap byte region.
type Arena struct {
	capacity uint64
	mapping  *mmap.Mapping
	acquirer MemoryAcquirer
	stats    atomicStats
	closed   atomic.Bool
}

// Option is a configuration option for Arena.
type Option func(*Arena)

// WithMemoryAcquirer sets the memory acquirer for the arena.
// The full capacity is acquired in New and released in Close.
func WithMemoryAcquirer(acquirer MemoryAcquirer) Option {
	return func(a *Arena) {
		a.acquirer = acquirer
	}
}

// New maps an arena of exactly capacity bytes.
func New(ctx context.Context, capacity int, opts ...Option) (*Arena, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}

	capacityU64, err := conv.IntToUint64(capacity)
	if err != nil {
		return nil, err
	}

	a := &Arena{capacity: capacityU64}
	for _, opt := range opts {
		opt(a)
	}

	if a.acquirer != nil {
		if _, ok := ctx.Deadline(); !ok {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, defaultAcquireTimeout)
			defer cancel()
		}
		if err := a.acquirer.AcquireMemory(ctx, int64(capacity)); err != nil {
			return nil, fmt.Errorf("arena: acquire %d bytes: %w", capacity, err)
		}
	}

	mapping, err := mmap.MapAnon(capacity)
	if err != nil {
		if a.acquirer != nil {
			a.acquirer.ReleaseMemory(int64(capacity))
		}
		return nil, fmt.Errorf("failed to map anonymous memory for arena: %w", err)
	}
	// Objects are placed wherever free space is found, not streamed.
	_ = mapping.Advise(mmap.AccessRandom)

	a.mapping = mapping
	return a, nil
}

// Capacity returns the size of the region in bytes.
func (a *Arena) Capacity() uint64 {
	return a.capacity
}

// Write copies p into the region starting at off.
func (a *Arena) Write(off uint64, p []byte) error {
	if a.closed.Load() {
		return ErrClosed
	}
	n := uint64(len(p))
	if !a.inBounds(off, n) {
		return fmt.Errorf("%w: write [%d, +%d) capacity %d", ErrOutOfBounds, off, n, a.capacity)
	}
	if n == 0 {
		return nil
	}

	off64, err := conv.Uint64ToInt64(off)
	if err != nil {
		return err
	}
	if _, err := a.mapping.WriteAt(p, off64); err != nil {
		return translateMappingError(err)
	}

	a.stats.Writes.Add(1)
	a.stats.BytesWritten.Add(n)
	return nil
}

// Read returns a copy of n bytes starting at off.
// The copy stays valid after the arena is closed.
func (a *Arena) Read(off, n uint64) ([]byte, error) {
	if a.closed.Load() {
		return nil, ErrClosed
	}
	if !a.inBounds(off, n) {
		return nil, fmt.Errorf("%w: read [%d, +%d) capacity %d", ErrOutOfBounds, off, n, a.capacity)
	}

	offInt, err := conv.Uint64ToInt(off)
	if err != nil {
		return nil, err
	}
	nInt, err := conv.Uint64ToInt(n)
	if err != nil {
		return nil, err
	}

	region, err := a.mapping.Region(offInt, nInt)
	if err != nil {
		return nil, translateMappingError(err)
	}

	out := make([]byte, nInt)
	copy(out, region.Bytes())

	a.stats.Reads.Add(1)
	a.stats.BytesRead.Add(n)
	return out, nil
}

// inBounds reports whether [off, off+n) lies inside the region.
// Written so that off+n cannot overflow.
func (a *Arena) inBounds(off, n uint64) bool {
	return off <= a.capacity && n <= a.capacity-off
}

// Stats returns the current arena statistics.
func (a *Arena) Stats() Stats {
	return Stats{
		Capacity:     a.capacity,
		Writes:       a.stats.Writes.Load(),
		Reads:        a.stats.Reads.Load(),
		BytesWritten: a.stats.BytesWritten.Load(),
		BytesRead:    a.stats.BytesRead.Load(),
	}
}

// Closed reports whether the arena has been released.
func (a *Arena) Closed() bool {
	return a.closed.Load()
}

// Close unmaps the region and returns the capacity to the acquirer.
// Only the first call has an effect. All data becomes unreachable.
func (a *Arena) Close() error {
	if a.closed.Swap(true) {
		return nil
	}

	err := a.mapping.Close()

	if a.acquirer != nil {
		a.acquirer.ReleaseMemory(int64(a.capacity)) //nolint:gosec // capacity came from an int
	}
	return err
}

func (a *Arena) String() string {
	stats := a.Stats()
	return fmt.Sprintf(
		"Arena{capacity: %d, writes: %d (%d bytes), reads: %d (%d bytes), closed: %t}",
		stats.Capacity,
		stats.Writes, stats.BytesWritten,
		stats.Reads, stats.BytesRead,
		a.closed.Load(),
	)
}

func translateMappingError(err error) error {
	switch {
	case errors.Is(err, mmap.ErrClosed):
		return fmt.Errorf("%w: %w", ErrClosed, err)
	case errors.Is(err, mmap.ErrOutOfBounds):
		return fmt.Errorf("%w: %w", ErrOutOfBounds, err)
	default:
		return err
	}
}
