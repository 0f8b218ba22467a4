package gc

import (
	"log/slog"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/hupe1980/offheap/internal/directory"
)

// Result describes a single collection cycle.
type Result struct {
	Merged    int    // free runs coalesced before marking
	Reachable uint64 // live blocks reached from the root
	Collected int    // blocks tombstoned by the sweep
}

// Collector runs collection cycles against a directory.
// It is not safe for concurrent use; callers serialize access to the
// directory themselves.
type Collector struct {
	dir    *directory.Directory
	logger *slog.Logger
}

// Option configures a Collector.
type Option func(*Collector)

// WithLogger sets the logger for cycle summaries.
func WithLogger(l *slog.Logger) Option {
	return func(c *Collector) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a collector over dir.
func New(dir *directory.Directory, opts ...Option) *Collector {
	c := &Collector{
		dir:    dir,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Mark returns the addresses of every live block reachable from the root.
// The root itself is not part of the result.
func (c *Collector) Mark() *roaring64.Bitmap {
	visited := roaring64.New()

	root := c.dir.Root()
	stack := root.Children()

	for len(stack) > 0 {
		addr := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if addr == directory.RootAddr || visited.Contains(addr) {
			continue
		}
		b, ok := c.dir.Lookup(addr)
		if !ok || b.Deleted {
			continue
		}
		visited.Add(addr)

		children := b.Children()
		// Push in reverse so links are walked in insertion order.
		for i := len(children) - 1; i >= 0; i-- {
			if !visited.Contains(children[i]) {
				stack = append(stack, children[i])
			}
		}
	}

	return visited
}

// Collect coalesces free space, marks from the root and tombstones every
// live block that was not reached.
func (c *Collector) Collect() Result {
	var res Result

	res.Merged = c.dir.MergeDeleted()

	reachable := c.Mark()
	res.Reachable = reachable.GetCardinality()

	var garbage []uint64
	c.dir.Ascend(func(b *directory.Block) bool {
		if b.Root || b.Deleted {
			return true
		}
		if !reachable.Contains(b.Addr) {
			garbage = append(garbage, b.Addr)
		}
		return true
	})

	res.Collected = c.dir.RemoveAll(garbage)

	c.logger.Debug("collection cycle",
		"merged", res.Merged,
		"reachable", res.Reachable,
		"collected", res.Collected,
	)
	return res
}
