// Package testutil provides testing utilities for the allocator.
//
// This package is intended for use in tests and benchmarks only.
//
// # Random Workloads
//
//	rng := testutil.NewRNG(seed)
//	sizes := rng.Sizes(100, 1, 64)   // object sizes in [1, 64]
//	payload := rng.Payload(32)       // Raw value of 32 random bytes
//
// # Fixed-Layout Encoding
//
// RawCodec stores Raw values verbatim, so an object of n bytes occupies
// exactly n bytes of the arena. Tests use it to reason about addresses.
//
//	a, _ := offheap.Open(ctx, offheap.WithCodec(testutil.RawCodec{}))
//	name, _ := a.Store(testutil.Fill(16, 'a'))
package testutil
