// Package resource enforces process-wide limits shared by allocators.
//
// A single Controller can be handed to many allocators. It caps the total
// arena capacity mapped at once, bounds the number of concurrent report
// exports and throttles the bytes those exports write.
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes:   256 << 20,
//	    IOLimitBytesPerSec: 8 << 20,
//	})
//	a, _ := offheap.Open(ctx, offheap.WithCapacity(64<<20), offheap.WithResourceController(rc))
package resource
