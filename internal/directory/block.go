package directory

import (
	"fmt"
	"math"
	"slices"
)

const (
	// RootAddr is the sentinel address of the root block.
	// It sorts after every real offset and is never backed by arena bytes.
	RootAddr uint64 = math.MaxUint64

	// RootName is the synthetic name of the root block.
	RootName = "root_block"

	// DeletedName names filler and merged free blocks.
	DeletedName = "deleted"
)

// Block is one tracked extent of the arena.
type Block struct {
	Size    uint64
	Addr    uint64
	Name    string
	TypeTag string
	Deleted bool
	Root    bool

	children []uint64
}

// End returns the first address after the block.
func (b *Block) End() uint64 {
	return b.Addr + b.Size
}

// Equal reports whether both blocks cover the same extent.
// Name, type and state do not take part in identity.
func (b *Block) Equal(o *Block) bool {
	if b == nil || o == nil {
		return b == o
	}
	return b.Size == o.Size && b.Addr == o.Addr
}

// Children returns the addresses linked from b, in link order.
func (b *Block) Children() []uint64 {
	return slices.Clone(b.children)
}

// NumChildren returns the number of outgoing links.
func (b *Block) NumChildren() int {
	return len(b.children)
}

// cloneAt copies b to a new address.
func (b *Block) cloneAt(addr uint64) *Block {
	return &Block{
		Size:     b.Size,
		Addr:     addr,
		Name:     b.Name,
		TypeTag:  b.TypeTag,
		Deleted:  b.Deleted,
		Root:     b.Root,
		children: slices.Clone(b.children),
	}
}

// unlinkAddr drops the first link to addr and reports whether one existed.
func (b *Block) unlinkAddr(addr uint64) bool {
	i := slices.Index(b.children, addr)
	if i < 0 {
		return false
	}
	b.children = slices.Delete(b.children, i, i+1)
	return true
}

func (b *Block) String() string {
	return fmt.Sprintf("%d - %d - %t - %s", b.Addr, b.End(), b.Deleted, b.Name)
}

func newFreeBlock(addr, size uint64) *Block {
	return &Block{
		Addr:    addr,
		Size:    size,
		Name:    DeletedName,
		Deleted: true,
	}
}

func byAddr(a, b *Block) bool {
	return a.Addr < b.Addr
}

func addrKey(addr uint64) *Block {
	return &Block{Addr: addr}
}
