package offheap

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"time"

	"github.com/hupe1980/offheap/codec"
	"github.com/hupe1980/offheap/internal/arena"
	"github.com/hupe1980/offheap/internal/directory"
	"github.com/hupe1980/offheap/internal/gc"
	"github.com/hupe1980/offheap/resource"
)

// Allocator places encoded objects into a fixed-capacity off-heap arena.
//
// Every stored object gets a block in an address-ordered directory and is
// attached under a synthetic root. Objects can be linked into a graph;
// CollectGarbage tombstones whatever the root no longer reaches.
//
// All methods are safe for concurrent use. A single mutex serializes them.
type Allocator struct {
	mu sync.Mutex

	arena     *arena.Arena
	dir       *directory.Directory
	collector *gc.Collector

	codec     codec.Codec
	logger    *Logger
	metrics   MetricsCollector
	resources *resource.Controller

	capacity uint64
	offset   uint64 // high-water mark of appended blocks
	seq      uint64 // name counter
	closed   bool
}

// Open maps a new arena and returns an allocator over it.
// The arena is released by Close.
func Open(ctx context.Context, optFns ...Option) (*Allocator, error) {
	o := applyOptions(optFns)
	if o.capacity <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidCapacity, o.capacity)
	}

	var arenaOpts []arena.Option
	if o.resources != nil {
		arenaOpts = append(arenaOpts, arena.WithMemoryAcquirer(o.resources))
	}

	ar, err := arena.New(ctx, o.capacity, arenaOpts...)
	if err != nil {
		return nil, translateError(err)
	}

	dir := directory.New(directory.WithLogger(o.logger.Logger))

	a := &Allocator{
		arena:     ar,
		dir:       dir,
		collector: gc.New(dir, gc.WithLogger(o.logger.Logger)),
		codec:     o.codec,
		logger:    o.logger,
		metrics:   o.metricsCollector,
		resources: o.resources,
		capacity:  ar.Capacity(),
	}
	dir.Root()

	o.logger.InfoContext(ctx, "allocator opened",
		"capacity", a.capacity,
		"codec", a.codec.Name(),
	)
	return a, nil
}

// Store encodes v into the arena and returns the generated name.
//
// The object is attached under the root. It is placed into the first run of
// freed space large enough to hold it, or appended after the last block.
// A failed store leaves the allocator unchanged.
func (a *Allocator) Store(v any) (name string, err error) {
	start := time.Now()
	var (
		size   uint64
		reused bool
		addr   uint64
	)
	defer func() {
		a.metrics.RecordStore(size, reused, time.Since(start), err)
		a.logger.LogStore(context.Background(), name, size, addr, reused, err)
	}()

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return "", ErrNotInitialized
	}

	data, err := a.codec.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("offheap: encode %T: %w", v, err)
	}
	if len(data) == 0 {
		return "", ErrEmptyObject
	}
	size = uint64(len(data))

	if free := a.free(); size > free {
		return "", &OutOfMemoryError{Requested: size, Free: free}
	}

	typ := valueType(v)
	candidate := &directory.Block{
		Size:    size,
		Addr:    a.offset,
		Name:    fmt.Sprintf("%s_%x", simpleName(typ), a.seq),
		TypeTag: typeTag(typ),
	}

	block, reused, err := a.dir.InsertWithin(candidate, a.capacity)
	if errors.Is(err, directory.ErrNoSpace) {
		return "", &OutOfMemoryError{Requested: size, Free: a.free()}
	}
	if err != nil {
		return "", translateError(err)
	}
	addr = block.Addr

	if err := a.arena.Write(block.Addr, data); err != nil {
		if reused {
			a.dir.Remove(block)
		} else {
			a.dir.Forget(block)
		}
		return "", translateError(err)
	}
	a.seq++
	if !reused {
		a.offset += size
	}

	a.dir.Attach(block)
	a.dir.MergeDeleted()

	return block.Name, nil
}

// Fetch decodes the object stored under name into v, which must be a
// non-nil pointer. Fetching into a *any skips the type check.
func (a *Allocator) Fetch(name string, v any) (err error) {
	start := time.Now()
	var size uint64
	defer func() {
		a.metrics.RecordFetch(size, time.Since(start), err)
	}()

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrNotInitialized
	}

	b, err := a.dir.Get(name)
	if err != nil {
		return translateError(err)
	}
	if err := checkTarget(b, v); err != nil {
		return err
	}

	data, err := a.arena.Read(b.Addr, b.Size)
	if err != nil {
		return translateError(err)
	}
	size = b.Size

	if err := a.codec.Unmarshal(data, v); err != nil {
		return fmt.Errorf("offheap: decode %s: %w", name, err)
	}
	return nil
}

// Get fetches the object stored under name as a T.
func Get[T any](a *Allocator, name string) (T, error) {
	var v T
	if err := a.Fetch(name, &v); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// Object is a stored object handed to a FetchGraph visitor.
type Object struct {
	Name string
	Type string
	Size uint64
	Addr uint64

	data  []byte
	codec codec.Codec
}

// Decode decodes the object into v.
func (o Object) Decode(v any) error {
	return o.codec.Unmarshal(o.data, v)
}

// Bytes returns a copy of the encoded object.
func (o Object) Bytes() []byte {
	return append([]byte(nil), o.data...)
}

// FetchGraph visits the object stored under name and every object reachable
// from it through links, depth first in link order, each at most once.
// Returning an error from visit stops the walk and returns that error.
//
// visit runs with the allocator locked and must not call back into it.
func (a *Allocator) FetchGraph(name string, visit func(Object) error) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrNotInitialized
	}

	start, err := a.dir.Get(name)
	if err != nil {
		return translateError(err)
	}

	seen := make(map[uint64]struct{})
	stack := []*directory.Block{start}

	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, ok := seen[b.Addr]; ok {
			continue
		}
		seen[b.Addr] = struct{}{}

		data, err := a.arena.Read(b.Addr, b.Size)
		if err != nil {
			return translateError(err)
		}
		if err := visit(Object{
			Name:  b.Name,
			Type:  b.TypeTag,
			Size:  b.Size,
			Addr:  b.Addr,
			data:  data,
			codec: a.codec,
		}); err != nil {
			return err
		}

		children := a.dir.Children(b)
		for i := len(children) - 1; i >= 0; i-- {
			if c := children[i]; !c.Deleted {
				stack = append(stack, c)
			}
		}
	}
	return nil
}

// Remove tombstones the object stored under name. Links to it are dropped.
// The space is reused by later stores once it is part of a large enough run.
func (a *Allocator) Remove(name string) (err error) {
	start := time.Now()
	defer func() {
		a.metrics.RecordRemove(time.Since(start), err)
		a.logger.LogRemove(context.Background(), name, err)
	}()

	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrNotInitialized
	}

	b, err := a.dir.Get(name)
	if err != nil {
		return translateError(err)
	}
	a.dir.Remove(b)
	return nil
}

// Link makes child reachable through parent and detaches child from the root.
func (a *Allocator) Link(parent, child string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrNotInitialized
	}

	p, err := a.dir.Get(parent)
	if err != nil {
		return translateError(err)
	}
	c, err := a.dir.Get(child)
	if err != nil {
		return translateError(err)
	}

	a.dir.Link(p, c)
	return nil
}

// Unlink drops the first link from parent to child. Unlinking a child that
// parent does not reference is a no-op. The child is not reattached to the
// root; unless something else reaches it, the next collection reclaims it.
func (a *Allocator) Unlink(parent, child string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrNotInitialized
	}

	p, err := a.dir.Get(parent)
	if err != nil {
		return translateError(err)
	}

	a.dir.Unlink(p, child)
	return nil
}

// Free returns capacity minus the bytes held by live objects.
func (a *Allocator) Free() uint64 {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return 0
	}
	return a.free()
}

func (a *Allocator) free() uint64 {
	return a.capacity - a.dir.TotalSize()
}

// Capacity returns the arena size in bytes.
func (a *Allocator) Capacity() uint64 {
	return a.capacity
}

// Roots returns the names of the objects attached directly under the root.
func (a *Allocator) Roots() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	return names(a.dir.Children(a.dir.Root()))
}

// Children returns the names of the objects linked from name, in link order.
func (a *Allocator) Children(name string) ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil, ErrNotInitialized
	}

	b, err := a.dir.Get(name)
	if err != nil {
		return nil, translateError(err)
	}
	return names(a.dir.Children(b)), nil
}

// Verify checks the directory invariants against the arena.
// A non-nil result means the allocator state is corrupt.
func (a *Allocator) Verify() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ErrNotInitialized
	}
	if a.offset > a.capacity {
		return fmt.Errorf("%w: high-water mark %d past capacity %d", directory.ErrCorrupt, a.offset, a.capacity)
	}
	return a.dir.Verify(a.offset)
}

// Close clears the directory and releases the arena. Only the first call has
// an effect; every other method returns ErrNotInitialized afterwards.
func (a *Allocator) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}
	a.closed = true

	a.dir.Clear()
	err := a.arena.Close()

	a.logger.Info("allocator closed", "capacity", a.capacity)
	return err
}

func names(blocks []*directory.Block) []string {
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		if !b.Deleted {
			out = append(out, b.Name)
		}
	}
	return out
}

func valueType(v any) reflect.Type {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}

// simpleName is the unqualified type name used as the name prefix.
func simpleName(t reflect.Type) string {
	switch {
	case t == nil:
		return "nil"
	case t.Name() != "":
		return t.Name()
	default:
		return t.String()
	}
}

// typeTag is the package-qualified type name recorded with each block.
func typeTag(t reflect.Type) string {
	switch {
	case t == nil:
		return "nil"
	case t.Name() != "" && t.PkgPath() != "":
		return t.PkgPath() + "." + t.Name()
	default:
		return t.String()
	}
}

func checkTarget(b *directory.Block, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return fmt.Errorf("%w: got %T", ErrInvalidTarget, v)
	}

	t := rv.Type().Elem()
	if t.Kind() == reflect.Interface {
		return nil
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if tag := typeTag(t); tag != b.TypeTag {
		return &TypeMismatchError{Name: b.Name, Stored: b.TypeTag, Target: tag}
	}
	return nil
}
