package directory

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// appendBlocks inserts live blocks back to back starting at offset 0 and
// returns them with the resulting high-water mark.
func appendBlocks(t *testing.T, d *Directory, sizes ...uint64) ([]*Block, uint64) {
	t.Helper()

	var (
		out []*Block
		off uint64
	)
	for i, size := range sizes {
		b, reused, err := d.Insert(&Block{
			Size:    size,
			Addr:    off,
			Name:    fmt.Sprintf("obj_%d", i),
			TypeTag: "test.Obj",
		})
		require.NoError(t, err)
		require.False(t, reused)
		d.Attach(b)
		out = append(out, b)
		off += size
	}
	return out, off
}

func countDeleted(d *Directory) int {
	return d.Stats().Deleted
}

func TestInsert_Append(t *testing.T) {
	d := New()
	blocks, extent := appendBlocks(t, d, 10, 20, 30)

	assert.Equal(t, uint64(60), d.TotalSize())
	assert.Equal(t, uint64(60), extent)
	assert.Equal(t, uint64(30), blocks[2].Addr)
	require.NoError(t, d.Verify(extent))

	got, err := d.Get("obj_1")
	require.NoError(t, err)
	assert.Same(t, blocks[1], got)
}

func TestInsert_Errors(t *testing.T) {
	d := New()
	_, extent := appendBlocks(t, d, 8)

	t.Run("duplicate name", func(t *testing.T) {
		_, _, err := d.Insert(&Block{Size: 4, Addr: extent, Name: "obj_0"})
		assert.ErrorIs(t, err, ErrDuplicateName)
		assert.Equal(t, uint64(8), d.TotalSize())
	})

	t.Run("root name", func(t *testing.T) {
		_, _, err := d.Insert(&Block{Size: 4, Addr: extent, Name: RootName})
		assert.ErrorIs(t, err, ErrDuplicateName)
	})

	t.Run("zero size", func(t *testing.T) {
		_, _, err := d.Insert(&Block{Size: 0, Addr: extent, Name: "empty"})
		assert.ErrorIs(t, err, ErrZeroSize)
	})

	t.Run("address in use", func(t *testing.T) {
		_, _, err := d.Insert(&Block{Size: 4, Addr: 0, Name: "clash"})
		assert.ErrorIs(t, err, ErrAddressInUse)
	})

	t.Run("invalid candidates", func(t *testing.T) {
		_, _, err := d.Insert(nil)
		assert.ErrorIs(t, err, ErrInvalidBlock)
		_, _, err = d.Insert(&Block{Size: 4, Addr: extent, Name: "r", Root: true})
		assert.ErrorIs(t, err, ErrInvalidBlock)
		_, _, err = d.Insert(&Block{Size: 4, Addr: extent, Name: "x", Deleted: true})
		assert.ErrorIs(t, err, ErrInvalidBlock)
	})

	require.NoError(t, d.Verify(extent))
}

func TestInsert_ReusesFirstFittingRun(t *testing.T) {
	d := New()
	blocks, extent := appendBlocks(t, d, 10, 10, 10, 10, 10, 10)

	// Free runs: [10,20) alone and [30,50) as two adjacent tombstones.
	require.True(t, d.Remove(blocks[1]))
	require.True(t, d.Remove(blocks[3]))
	require.True(t, d.Remove(blocks[4]))

	// 21 bytes fit no run, and the extent has no room left.
	before := snapshot(d)
	_, _, err := d.InsertWithin(&Block{Size: 21, Addr: extent, Name: "none"}, extent)
	require.ErrorIs(t, err, ErrNoSpace)
	assert.Equal(t, before, snapshot(d))

	// 15 bytes do not fit the first run but fit the second.
	b, reused, err := d.Insert(&Block{Size: 15, Addr: extent, Name: "big"})
	require.NoError(t, err)
	assert.True(t, reused)
	assert.Equal(t, uint64(30), b.Addr)

	filler, ok := d.Lookup(45)
	require.True(t, ok)
	assert.True(t, filler.Deleted)
	assert.Equal(t, uint64(5), filler.Size)
	assert.Equal(t, DeletedName, filler.Name)

	// 8 bytes take the first run, the earliest in address order.
	small, reused, err := d.Insert(&Block{Size: 8, Addr: extent, Name: "small"})
	require.NoError(t, err)
	assert.True(t, reused)
	assert.Equal(t, uint64(10), small.Addr)

	require.NoError(t, d.Verify(extent))
	assert.Equal(t, uint64(10*3+15+8), d.TotalSize())
}

func TestInsert_ExactFitLeavesNoFiller(t *testing.T) {
	d := New()
	blocks, extent := appendBlocks(t, d, 16, 16, 16)
	d.Remove(blocks[1])

	b, reused, err := d.Insert(&Block{Size: 16, Addr: extent, Name: "exact"})
	require.NoError(t, err)
	assert.True(t, reused)
	assert.Equal(t, uint64(16), b.Addr)
	assert.Zero(t, countDeleted(d))
	require.NoError(t, d.Verify(extent))
}

func TestInsert_RunTooSmallAppends(t *testing.T) {
	d := New()
	blocks, extent := appendBlocks(t, d, 4, 4, 4)
	d.Remove(blocks[0])
	d.Remove(blocks[2])

	// Two 4-byte holes separated by a live block never form an 8-byte run.
	b, reused, err := d.Insert(&Block{Size: 8, Addr: extent, Name: "wide"})
	require.NoError(t, err)
	assert.False(t, reused)
	assert.Equal(t, extent, b.Addr)
	assert.Equal(t, 2, countDeleted(d))
	require.NoError(t, d.Verify(extent+8))
}

func TestInsert_RunSpansMultipleTombstones(t *testing.T) {
	d := New()
	blocks, extent := appendBlocks(t, d, 5, 5, 5, 5)
	for _, b := range blocks[:3] {
		d.Remove(b)
	}

	// The run is accepted once it first reaches 12 bytes: 5+5+5.
	b, reused, err := d.Insert(&Block{Size: 12, Addr: extent, Name: "spanning"})
	require.NoError(t, err)
	assert.True(t, reused)
	assert.Equal(t, uint64(0), b.Addr)

	filler, ok := d.Lookup(12)
	require.True(t, ok)
	assert.Equal(t, uint64(3), filler.Size)
	require.NoError(t, d.Verify(extent))
}

func TestRemove(t *testing.T) {
	d := New()
	blocks, extent := appendBlocks(t, d, 10, 20)

	t.Run("tombstones and drops the name", func(t *testing.T) {
		require.True(t, d.Remove(blocks[0]))
		assert.True(t, blocks[0].Deleted)
		assert.Equal(t, uint64(20), d.TotalSize())

		_, err := d.Get("obj_0")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("is idempotent", func(t *testing.T) {
		assert.False(t, d.Remove(blocks[0]))
		assert.Equal(t, uint64(20), d.TotalSize())
	})

	t.Run("ignores root and unknown extents", func(t *testing.T) {
		assert.False(t, d.Remove(d.Root()))
		assert.False(t, d.Remove(&Block{Addr: 999, Size: 1}))
		assert.False(t, d.Remove(&Block{Addr: 10, Size: 5}))
		assert.False(t, d.Remove(nil))
		assert.Equal(t, uint64(20), d.TotalSize())
	})

	t.Run("drops links to the removed block", func(t *testing.T) {
		assert.NotContains(t, d.Root().Children(), uint64(0))
		assert.Contains(t, d.Root().Children(), uint64(10))
	})

	require.NoError(t, d.Verify(extent))
}

func TestRemoveAll(t *testing.T) {
	d := New()
	blocks, extent := appendBlocks(t, d, 3, 3, 3, 3)
	d.Link(blocks[0], blocks[1])
	d.Link(blocks[1], blocks[2])

	n := d.RemoveAll([]uint64{blocks[1].Addr, blocks[2].Addr, blocks[2].Addr, RootAddr, 1234})
	assert.Equal(t, 2, n)
	assert.Empty(t, blocks[0].Children())
	assert.Equal(t, uint64(6), d.TotalSize())
	require.NoError(t, d.Verify(extent))
}

func TestForget(t *testing.T) {
	d := New()
	blocks, _ := appendBlocks(t, d, 4, 4)
	d.Link(blocks[0], blocks[1])

	tail, reused, err := d.InsertWithin(&Block{Size: 4, Addr: 8, Name: "tail"}, 12)
	require.NoError(t, err)
	require.False(t, reused)
	d.Link(blocks[0], tail)

	require.True(t, d.Forget(tail))
	assert.False(t, d.Forget(tail))

	_, ok := d.Lookup(8)
	assert.False(t, ok)
	_, err = d.Get("tail")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, []uint64{4}, blocks[0].Children())
	assert.Equal(t, uint64(8), d.TotalSize())

	assert.False(t, d.Forget(d.Root()))
	assert.False(t, d.Forget(nil))
	require.True(t, d.Remove(blocks[1]))
	assert.False(t, d.Forget(blocks[1]))

	require.NoError(t, d.Verify(8))
}

func TestGet_Root(t *testing.T) {
	d := New()
	root := d.Root()
	assert.Same(t, root, d.Root())
	assert.True(t, root.Root)
	assert.Equal(t, RootAddr, root.Addr)

	_, err := d.Get(RootName)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMergeDeleted(t *testing.T) {
	t.Run("adjacent tombstones become one block", func(t *testing.T) {
		d := New()
		blocks, extent := appendBlocks(t, d, 1, 2, 3, 4, 5, 6)
		for _, b := range blocks[1:5] {
			d.Remove(b)
		}
		require.Equal(t, 4, countDeleted(d))

		assert.Equal(t, 1, d.MergeDeleted())
		require.Equal(t, 1, countDeleted(d))

		merged, ok := d.Lookup(1)
		require.True(t, ok)
		assert.True(t, merged.Deleted)
		assert.Equal(t, uint64(14), merged.Size)
		require.NoError(t, d.Verify(extent))
	})

	t.Run("lone tombstone is untouched", func(t *testing.T) {
		d := New()
		blocks, extent := appendBlocks(t, d, 4, 4, 4)
		d.Remove(blocks[1])

		assert.Zero(t, d.MergeDeleted())
		b, ok := d.Lookup(4)
		require.True(t, ok)
		assert.Same(t, blocks[1], b)
		require.NoError(t, d.Verify(extent))
	})

	t.Run("separate runs merge separately", func(t *testing.T) {
		d := New()
		blocks, extent := appendBlocks(t, d, 2, 2, 2, 2, 2, 2, 2)
		for _, i := range []int{0, 1, 3, 5, 6} {
			d.Remove(blocks[i])
		}

		assert.Equal(t, 2, d.MergeDeleted())
		assert.Equal(t, 3, countDeleted(d))
		require.NoError(t, d.Verify(extent))
	})

	t.Run("is idempotent", func(t *testing.T) {
		d := New()
		blocks, _ := appendBlocks(t, d, 3, 3, 3, 3)
		d.Remove(blocks[1])
		d.Remove(blocks[2])

		d.MergeDeleted()
		first := snapshot(d)
		assert.Zero(t, d.MergeDeleted())
		assert.Equal(t, first, snapshot(d))
	})
}

func snapshot(d *Directory) []string {
	var out []string
	d.Ascend(func(b *Block) bool {
		out = append(out, b.String())
		return true
	})
	return out
}

func TestLinkUnlink(t *testing.T) {
	d := New()
	blocks, extent := appendBlocks(t, d, 4, 4, 4)
	root := d.Root()
	require.Equal(t, 3, root.NumChildren())

	d.Link(blocks[0], blocks[1])
	d.Link(blocks[0], blocks[2])
	assert.Equal(t, 1, root.NumChildren())
	assert.Equal(t, []uint64{4, 8}, blocks[0].Children())

	children := d.Children(blocks[0])
	require.Len(t, children, 2)
	assert.Same(t, blocks[1], children[0])

	assert.True(t, d.Unlink(blocks[0], "obj_2"))
	assert.False(t, d.Unlink(blocks[0], "obj_2"))
	assert.False(t, d.Unlink(blocks[0], "nope"))
	assert.Equal(t, []uint64{4}, blocks[0].Children())

	require.NoError(t, d.Verify(extent))
}

func TestBlock_Equal(t *testing.T) {
	a := &Block{Addr: 8, Size: 4, Name: "a"}
	b := &Block{Addr: 8, Size: 4, Name: "b", Deleted: true}
	c := &Block{Addr: 8, Size: 5, Name: "a"}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(nil))
}

func TestStatsAndClear(t *testing.T) {
	d := New()
	blocks, _ := appendBlocks(t, d, 10, 20, 30)
	d.Remove(blocks[1])

	s := d.Stats()
	assert.Equal(t, 3, s.Blocks)
	assert.Equal(t, 2, s.Live)
	assert.Equal(t, 1, s.Deleted)
	assert.Equal(t, uint64(40), s.UsedBytes)
	assert.Equal(t, uint64(20), s.DeletedBytes)
	assert.Equal(t, uint64(20), s.LargestFree)
	assert.Equal(t, 4, d.Len())
	assert.Len(t, d.Blocks(), 4)

	d.Clear()
	assert.Zero(t, d.Len())
	assert.Zero(t, d.TotalSize())
	_, err := d.Get("obj_0")
	assert.ErrorIs(t, err, ErrNotFound)

	d.Root()
	assert.Equal(t, 1, d.Len())
}

func TestVerify_DetectsCorruption(t *testing.T) {
	t.Run("gap", func(t *testing.T) {
		d := New()
		_, extent := appendBlocks(t, d, 4, 4)
		assert.ErrorIs(t, d.Verify(extent+4), ErrCorrupt)
	})

	t.Run("overlap", func(t *testing.T) {
		d := New()
		_, extent := appendBlocks(t, d, 4, 4)
		d.blocks.ReplaceOrInsert(newFreeBlock(2, 4))
		assert.ErrorIs(t, d.Verify(extent), ErrCorrupt)
	})

	t.Run("accounting", func(t *testing.T) {
		d := New()
		_, extent := appendBlocks(t, d, 4, 4)
		d.used++
		assert.ErrorIs(t, d.Verify(extent), ErrCorrupt)
	})

	t.Run("dangling link", func(t *testing.T) {
		d := New()
		blocks, extent := appendBlocks(t, d, 4, 4)
		blocks[0].children = append(blocks[0].children, 400)
		assert.ErrorIs(t, d.Verify(extent), ErrCorrupt)
	})
}
