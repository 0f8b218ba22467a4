package directory

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/btree"
)

// btreeDegree is the fan-out of the address tree.
const btreeDegree = 32

// Stats is a point-in-time summary of the directory.
type Stats struct {
	Blocks       int    // tracked blocks, root excluded
	Live         int    // live blocks, root excluded
	Deleted      int    // tombstones and free blocks
	UsedBytes    uint64 // sum of live block sizes
	DeletedBytes uint64 // sum of deleted block sizes
	LargestFree  uint64 // largest single deleted block
}

// Directory is the address-ordered collection of blocks.
type Directory struct {
	blocks *btree.BTreeG[*Block]
	names  map[string]*Block
	used   uint64
	root   *Block
	logger *slog.Logger
}

// Option configures a Directory.
type Option func(*Directory)

// WithLogger sets the logger used for placement decisions.
func WithLogger(l *slog.Logger) Option {
	return func(d *Directory) {
		if l != nil {
			d.logger = l
		}
	}
}

// New creates an empty directory.
func New(opts ...Option) *Directory {
	d := &Directory{
		blocks: btree.NewG[*Block](btreeDegree, byAddr),
		names:  make(map[string]*Block),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Insert stores a live block, reusing the first run of adjacent deleted
// blocks that is large enough. It returns the stored block, whose address may
// differ from the candidate's, and whether reused space was taken.
func (d *Directory) Insert(candidate *Block) (*Block, bool, error) {
	return d.InsertWithin(candidate, RootAddr)
}

// InsertWithin is Insert for an extent of limit bytes. When no free run
// fits, the candidate must end at or before limit, else ErrNoSpace is
// returned and the directory is unchanged.
func (d *Directory) InsertWithin(candidate *Block, limit uint64) (*Block, bool, error) {
	if candidate == nil || candidate.Root || candidate.Deleted {
		return nil, false, ErrInvalidBlock
	}
	if candidate.Size == 0 {
		return nil, false, ErrZeroSize
	}
	if candidate.Name == RootName {
		return nil, false, fmt.Errorf("%w: %s", ErrDuplicateName, candidate.Name)
	}
	if _, ok := d.names[candidate.Name]; ok {
		return nil, false, fmt.Errorf("%w: %s", ErrDuplicateName, candidate.Name)
	}

	block := candidate
	reused := false

	if run, total := d.findRun(candidate.Size); len(run) > 0 {
		start := run[0].Addr
		d.logger.Debug("reusing free run",
			"blocks", len(run),
			"bytes", total,
			"addr", start,
			"size", candidate.Size,
		)

		for _, b := range run {
			d.blocks.Delete(b)
		}

		block = candidate.cloneAt(start)
		reused = true

		if total > block.Size {
			d.blocks.ReplaceOrInsert(newFreeBlock(block.End(), total-block.Size))
		}
	} else {
		if candidate.Addr == RootAddr || candidate.Size > RootAddr-candidate.Addr {
			return nil, false, fmt.Errorf("%w: %d", ErrAddressInUse, candidate.Addr)
		}
		if candidate.Addr > limit || candidate.Size > limit-candidate.Addr {
			return nil, false, fmt.Errorf("%w: %d bytes at %d, limit %d", ErrNoSpace, candidate.Size, candidate.Addr, limit)
		}
		if d.blocks.Has(addrKey(candidate.Addr)) {
			return nil, false, fmt.Errorf("%w: %d", ErrAddressInUse, candidate.Addr)
		}
	}

	d.blocks.ReplaceOrInsert(block)
	d.names[block.Name] = block
	d.used += block.Size

	return block, reused, nil
}

// findRun returns the first run of adjacent deleted blocks whose combined
// size reaches required, together with that combined size.
func (d *Directory) findRun(required uint64) ([]*Block, uint64) {
	var (
		run     []*Block
		sum     uint64
		prevEnd uint64
	)

	d.blocks.Ascend(func(b *Block) bool {
		if b.Root {
			return true
		}
		if !b.Deleted {
			run, sum = run[:0], 0
			return true
		}
		if len(run) > 0 && b.Addr != prevEnd {
			run, sum = run[:0], 0
		}
		run = append(run, b)
		sum += b.Size
		prevEnd = b.End()
		return sum < required
	})

	if sum < required {
		return nil, 0
	}
	return run, sum
}


// Remove tombstones the block stored at b's extent. It is a no-op for the
// root, for unknown extents and for blocks that are already deleted.
// It reports whether a block was tombstoned.
func (d *Directory) Remove(b *Block) bool {
	if b == nil || b.Root {
		return false
	}
	cur, ok := d.blocks.Get(addrKey(b.Addr))
	if !ok || cur.Deleted || !cur.Equal(b) {
		return false
	}

	d.tombstone(cur)
	d.scrub(map[uint64]struct{}{cur.Addr: {}})
	return true
}

// RemoveAll tombstones every live block at the given addresses with a single
// pass over the link lists. It returns the number of blocks tombstoned.
func (d *Directory) RemoveAll(addrs []uint64) int {
	gone := make(map[uint64]struct{}, len(addrs))
	for _, addr := range addrs {
		cur, ok := d.blocks.Get(addrKey(addr))
		if !ok || cur.Deleted || cur.Root {
			continue
		}
		d.tombstone(cur)
		gone[addr] = struct{}{}
	}
	if len(gone) > 0 {
		d.scrub(gone)
	}
	return len(gone)
}

// Forget drops a live block that was appended and never written, as if it
// had not been inserted. It reports whether the block was dropped.
func (d *Directory) Forget(b *Block) bool {
	if b == nil || b.Root {
		return false
	}
	cur, ok := d.blocks.Get(addrKey(b.Addr))
	if !ok || cur != b || cur.Deleted {
		return false
	}

	d.blocks.Delete(cur)
	delete(d.names, cur.Name)
	d.used -= cur.Size
	d.scrub(map[uint64]struct{}{cur.Addr: {}})
	return true
}

func (d *Directory) tombstone(b *Block) {
	b.Deleted = true
	b.children = nil
	if d.names[b.Name] == b {
		delete(d.names, b.Name)
	}
	d.used -= b.Size
}

// scrub removes links to the given addresses from every block.
func (d *Directory) scrub(gone map[uint64]struct{}) {
	d.blocks.Ascend(func(b *Block) bool {
		if len(b.children) > 0 {
			b.children = slices.DeleteFunc(b.children, func(addr uint64) bool {
				_, ok := gone[addr]
				return ok
			})
		}
		return true
	})
}

// Get resolves a name to its live block.
func (d *Directory) Get(name string) (*Block, error) {
	b, ok := d.names[name]
	if !ok || b.Root {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return b, nil
}

// Lookup returns the block stored at addr.
func (d *Directory) Lookup(addr uint64) (*Block, bool) {
	return d.blocks.Get(addrKey(addr))
}

// MergeDeleted replaces each maximal run of two or more adjacent deleted
// blocks with a single deleted block spanning the run. Lone deleted blocks
// are left untouched. It returns the number of runs merged.
func (d *Directory) MergeDeleted() int {
	var (
		runs    [][]*Block
		cur     []*Block
		prevEnd uint64
	)

	flush := func() {
		if len(cur) > 1 {
			runs = append(runs, cur)
		}
		cur = nil
	}

	d.blocks.Ascend(func(b *Block) bool {
		if b.Root || !b.Deleted {
			flush()
			return true
		}
		if len(cur) > 0 && b.Addr != prevEnd {
			flush()
		}
		cur = append(cur, b)
		prevEnd = b.End()
		return true
	})
	flush()

	for _, run := range runs {
		start := run[0].Addr
		end := run[len(run)-1].End()
		for _, b := range run {
			d.blocks.Delete(b)
		}
		d.blocks.ReplaceOrInsert(newFreeBlock(start, end-start))
	}

	if len(runs) > 0 {
		d.logger.Debug("merged deleted blocks", "runs", len(runs))
	}
	return len(runs)
}

// Root returns the root block, creating it on first use.
func (d *Directory) Root() *Block {
	if d.root == nil {
		d.root = &Block{
			Addr: RootAddr,
			Name: RootName,
			Root: true,
		}
		d.blocks.ReplaceOrInsert(d.root)
	}
	return d.root
}

// Link appends child to parent's links and detaches child from the root.
func (d *Directory) Link(parent, child *Block) {
	parent.children = append(parent.children, child.Addr)
	if parent != d.Root() {
		d.Root().unlinkAddr(child.Addr)
	}
}

// Attach makes b a top-level block under the root.
func (d *Directory) Attach(b *Block) {
	root := d.Root()
	root.children = append(root.children, b.Addr)
}

// Unlink drops parent's first link to the live block named child.
// It reports whether a link was removed.
func (d *Directory) Unlink(parent *Block, child string) bool {
	for _, addr := range parent.children {
		b, ok := d.blocks.Get(addrKey(addr))
		if ok && !b.Deleted && b.Name == child {
			return parent.unlinkAddr(addr)
		}
	}
	return false
}

// Children resolves the links of b to blocks.
func (d *Directory) Children(b *Block) []*Block {
	out := make([]*Block, 0, len(b.children))
	for _, addr := range b.children {
		if c, ok := d.blocks.Get(addrKey(addr)); ok {
			out = append(out, c)
		}
	}
	return out
}

// TotalSize returns the sum of live block sizes.
func (d *Directory) TotalSize() uint64 {
	return d.used
}

// Len returns the number of tracked blocks, root included.
func (d *Directory) Len() int {
	return d.blocks.Len()
}

// Ascend calls fn for every block in address order until fn returns false.
func (d *Directory) Ascend(fn func(*Block) bool) {
	d.blocks.Ascend(fn)
}

// Blocks returns every tracked block in address order.
func (d *Directory) Blocks() []*Block {
	out := make([]*Block, 0, d.blocks.Len())
	d.blocks.Ascend(func(b *Block) bool {
		out = append(out, b)
		return true
	})
	return out
}

// Stats summarizes the directory.
func (d *Directory) Stats() Stats {
	var s Stats
	d.blocks.Ascend(func(b *Block) bool {
		if b.Root {
			return true
		}
		s.Blocks++
		if b.Deleted {
			s.Deleted++
			s.DeletedBytes += b.Size
			s.LargestFree = max(s.LargestFree, b.Size)
		} else {
			s.Live++
		}
		return true
	})
	s.UsedBytes = d.used
	return s
}

// Clear drops every block, the root included.
func (d *Directory) Clear() {
	d.blocks.Clear(false)
	clear(d.names)
	d.used = 0
	d.root = nil
}
