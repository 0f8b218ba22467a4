// Package directory tracks every extent of an arena as a Block.
//
// Blocks are kept in a btree ordered by address, with a secondary index from
// name to live block. Deleted blocks stay in the tree as tombstones: they
// describe free space that Insert can reuse and MergeDeleted can coalesce.
//
// # Placement
//
// Insert scans deleted blocks in address order and accumulates a run while
// consecutive extents are adjacent. The first run whose size reaches the
// request wins (first-fit); the candidate moves to the start of the run and
// any remainder becomes a deleted filler block. If no run is large enough the
// candidate keeps the address its caller assigned.
//
// # Links
//
// Blocks form a directed graph. Links are stored as addresses, never as
// pointers, and a synthetic root block (RootAddr) is the default parent of
// every top-level object.
//
// A Directory is not safe for concurrent use.
package directory
