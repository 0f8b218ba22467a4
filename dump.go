package offheap

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/hupe1980/offheap/blobstore"
	"github.com/hupe1980/offheap/internal/directory"
	"github.com/hupe1980/offheap/resource"
)

const deletedLabel = "_deleted_"

// Dump renders the allocator state: a capacity line, a free line, then one
// line per tracked block in address order with the root last.
//
//	Total: [1024] bytes
//	Free:  [1000] bytes
//	Point_0 : size [24], address [0x0], class [main.Point]
func (a *Allocator) Dump() string {
	var buf bytes.Buffer
	_ = a.WriteReport(&buf)
	return buf.String()
}

// String implements fmt.Stringer.
func (a *Allocator) String() string {
	return a.Dump()
}

// WriteReport writes the dump to w.
func (a *Allocator) WriteReport(w io.Writer) error {
	a.mu.Lock()
	report := a.render()
	a.mu.Unlock()

	_, err := w.Write(report)
	return err
}

// ExportReport writes the dump to name in store. Concurrent exports are
// bounded, and the upload is throttled by the configured resource controller.
func (a *Allocator) ExportReport(ctx context.Context, store blobstore.Store, name string) (err error) {
	var n int
	defer func() {
		a.logger.LogExport(ctx, name, n, err)
	}()

	if err := a.resources.AcquireExport(ctx); err != nil {
		return err
	}
	defer a.resources.ReleaseExport()

	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return ErrNotInitialized
	}
	report := a.render()
	a.mu.Unlock()

	blob, err := store.Create(ctx, name)
	if err != nil {
		return fmt.Errorf("offheap: create report %s: %w", name, err)
	}

	n, err = resource.NewRateLimitedWriter(ctx, blob, a.resources).Write(report)
	if err != nil {
		_ = blob.Close()
		return fmt.Errorf("offheap: write report %s: %w", name, err)
	}
	if err := blob.Close(); err != nil {
		return fmt.Errorf("offheap: commit report %s: %w", name, err)
	}
	return nil
}

// render must be called with a.mu held.
func (a *Allocator) render() []byte {
	var buf bytes.Buffer
	if a.closed {
		fmt.Fprintf(&buf, "Total: [%d] bytes\n", 0)
		fmt.Fprintf(&buf, "Free:  [%d] bytes\n", 0)
		return buf.Bytes()
	}

	fmt.Fprintf(&buf, "Total: [%d] bytes\n", a.capacity)
	fmt.Fprintf(&buf, "Free:  [%d] bytes\n", a.free())

	a.dir.Ascend(func(b *directory.Block) bool {
		writeBlock(&buf, b)
		return true
	})
	return buf.Bytes()
}

func writeBlock(w io.Writer, b *directory.Block) {
	name := b.Name
	if b.Deleted {
		name = deletedLabel
	}
	class := b.TypeTag
	if class == "" {
		class = "-"
	}
	fmt.Fprintf(w, "%s : size [%d], address [0x%X], class [%s]\n", name, b.Size, b.Addr, class)
}
