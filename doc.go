// Package offheap stores encoded Go values in a fixed-capacity region of
// memory that lives outside the Go heap.
//
// An Allocator owns one anonymous memory mapping (the arena). Every stored
// value is encoded with a codec.Codec and placed as a block: a contiguous
// byte range with a generated name and a type tag. Blocks are kept in an
// address-ordered directory. Removing a value leaves a tombstone in place;
// adjacent tombstones are coalesced, and later stores reuse the first run of
// free space large enough to hold them before appending at the high-water mark.
//
// # Quick Start
//
//	ctx := context.Background()
//	a, _ := offheap.Open(ctx, offheap.WithCapacity(1<<20))
//	defer a.Close()
//
//	name, _ := a.Store(Point{X: 1, Y: 2})
//	p, _ := offheap.Get[Point](a, name)
//
// # Object Graphs
//
// New objects hang directly off a synthetic root. Link moves a child under a
// parent; Unlink drops the edge again. CollectGarbage marks everything
// reachable from the root and tombstones the rest, cycles included:
//
//	parent, _ := a.Store(Node{ID: 1})
//	child, _ := a.Store(Node{ID: 2})
//	_ = a.Link(parent, child)
//	_ = a.Unlink(parent, child)
//	n, _ := a.CollectGarbage() // n == 1
//
// # Inspection
//
// Dump renders the directory in address order. ExportReport writes the same
// report to a blobstore.Store (local directory, MinIO or S3).
//
// # Resource Control
//
// WithResourceController charges the arena capacity against a shared memory
// budget, so several allocators in one process cannot exceed it together.
//
// # Concurrency
//
// All Allocator methods are safe for concurrent use.
package offheap
