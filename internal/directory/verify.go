package directory

import (
	"fmt"

	"github.com/bits-and-blooms/bitset"
)

// Verify checks the structural invariants against an arena prefix of
// extent bytes:
//
//   - every non-root block lies inside [0, extent)
//   - no two blocks overlap, live or deleted
//   - the blocks cover [0, extent) without gaps
//   - the name index holds exactly the live non-root blocks
//   - links point at live blocks only
//   - used accounting equals the sum of live sizes
func (d *Directory) Verify(extent uint64) error {
	covered := bitset.New(uint(extent))

	var (
		live     int
		liveSize uint64
		err      error
	)

	d.blocks.Ascend(func(b *Block) bool {
		if b.Root {
			if b != d.root || b.Deleted || b.Size != 0 {
				err = fmt.Errorf("%w: malformed root block %s", ErrCorrupt, b)
				return false
			}
			return true
		}
		if b.Size == 0 {
			err = fmt.Errorf("%w: empty block at %d", ErrCorrupt, b.Addr)
			return false
		}
		if b.Addr >= extent || b.Size > extent-b.Addr {
			err = fmt.Errorf("%w: block %s exceeds extent %d", ErrCorrupt, b, extent)
			return false
		}
		for i := b.Addr; i < b.End(); i++ {
			if covered.Test(uint(i)) {
				err = fmt.Errorf("%w: block %s overlaps at %d", ErrCorrupt, b, i)
				return false
			}
			covered.Set(uint(i))
		}
		if b.Deleted {
			if len(b.children) > 0 {
				err = fmt.Errorf("%w: deleted block %s has links", ErrCorrupt, b)
				return false
			}
			return true
		}

		live++
		liveSize += b.Size
		if d.names[b.Name] != b {
			err = fmt.Errorf("%w: live block %s not indexed by name", ErrCorrupt, b)
			return false
		}
		return true
	})
	if err != nil {
		return err
	}

	if got := covered.Count(); got != uint(extent) {
		return fmt.Errorf("%w: blocks cover %d of %d bytes", ErrCorrupt, got, extent)
	}
	if live != len(d.names) {
		return fmt.Errorf("%w: %d live blocks but %d names", ErrCorrupt, live, len(d.names))
	}
	if liveSize != d.used {
		return fmt.Errorf("%w: live bytes %d but accounted %d", ErrCorrupt, liveSize, d.used)
	}

	d.blocks.Ascend(func(b *Block) bool {
		for _, addr := range b.children {
			c, ok := d.blocks.Get(addrKey(addr))
			if !ok || c.Deleted || c.Root {
				err = fmt.Errorf("%w: block %s links to missing block %d", ErrCorrupt, b, addr)
				return false
			}
		}
		return true
	})
	return err
}
