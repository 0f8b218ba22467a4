// Package mmap provides memory mappings for the arena and for report files.
//
// # Anonymous Mappings
//
// MapAnon creates read-write anonymous mappings. The arena uses one such
// mapping as its backing store, so stored objects live outside the Go heap
// and are never scanned or moved by the Go garbage collector.
//
// # File Mappings
//
// Open maps an existing file read-only. The local blob store uses it to read
// exported reports back without copying.
//
// # Platform Support
//
//   - Unix (Linux, macOS, BSD): mmap(2) with madvise(2) for access hints
//   - Windows: VirtualAlloc for anonymous memory, MapViewOfFile for files
//
// # Thread Safety
//
// Close is idempotent and protected by an atomic flag. Callers must ensure no
// goroutine touches Bytes() after Close returns.
package mmap
