// Package arena provides the fixed-capacity byte region that backs an allocator.
//
// The region is a single anonymous mapping obtained once at construction and
// released once by Close. It lives outside the Go heap: the Go garbage
// collector neither scans nor moves it.
//
// # Features
//
//   - Off-heap storage via mmap (no GC pressure)
//   - Flat addressing: every byte is identified by its offset from the base
//   - Bounds-checked Read and Write; ErrOutOfBounds on overflow
//   - Optional MemoryAcquirer to charge the capacity against a shared budget
//
// # Safety
//
// Arena holds no placement policy and no lock. Callers serialize access; the
// allocator does so with its own mutex.
package arena
