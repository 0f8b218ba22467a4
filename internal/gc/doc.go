// Package gc implements mark-and-sweep collection over a block directory.
//
// The object graph is rooted at the directory's root block. Every live block
// that cannot be reached from the root through links is tombstoned. Cycles are
// handled with an explicit visited set keyed by block address.
package gc
