package blobstore

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/offheap/internal/fs"
)

func TestLocalStore_Lifecycle(t *testing.T) {
	tmpDir := t.TempDir()
	store := NewLocalStore(tmpDir)
	ctx := t.Context()

	// 1. Create a blob
	blobName := "reports/dump-001.txt"
	data := []byte("hello world, this is a test report")

	w, err := store.Create(ctx, blobName)
	require.NoError(t, err)

	n, err := w.Write(data)
	require.NoError(t, err)
	require.Equal(t, len(data), n)

	// Not visible before Close.
	_, err = store.Open(ctx, blobName)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, w.Close())
	require.ErrorIs(t, w.Close(), io.ErrClosedPipe)

	_, err = os.Stat(filepath.Join(tmpDir, "reports", "dump-001.txt"))
	require.NoError(t, err)

	// 2. Open and ReadAt
	blob, err := store.Open(ctx, blobName)
	require.NoError(t, err)
	defer blob.Close()

	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 5)
	n, err = blob.ReadAt(buf, 6)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	require.Equal(t, "world", string(buf))

	mapped, ok := blob.(Mappable)
	require.True(t, ok)
	raw, err := mapped.Bytes()
	require.NoError(t, err)
	require.Equal(t, data, raw)

	// 3. List
	require.NoError(t, store.Put(ctx, "reports/dump-002.txt", []byte("second")))
	require.NoError(t, store.Put(ctx, "other.txt", []byte("x")))

	names, err := store.List(ctx, "reports/")
	require.NoError(t, err)
	require.Equal(t, []string{"reports/dump-001.txt", "reports/dump-002.txt"}, names)

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)

	// 4. Delete
	require.NoError(t, store.Delete(ctx, "reports/dump-002.txt"))
	require.NoError(t, store.Delete(ctx, "reports/dump-002.txt"))

	_, err = store.Open(ctx, "reports/dump-002.txt")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStore_ListMissingRoot(t *testing.T) {
	store := NewLocalStore(filepath.Join(t.TempDir(), "missing"))

	names, err := store.List(t.Context(), "")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestLocalStore_EmptyBlob(t *testing.T) {
	store := NewLocalStore(t.TempDir())
	require.NoError(t, store.Put(t.Context(), "empty", nil))

	data, err := ReadAll(t.Context(), store, "empty")
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestLocalStore_FaultsLeaveNoBlob(t *testing.T) {
	tests := []struct {
		name  string
		fault fs.Fault
	}{
		{"write", fs.Fault{FailAfterBytes: 4}},
		{"sync", fs.Fault{FailAfterBytes: -1, FailOnSync: true}},
		{"close", fs.Fault{FailAfterBytes: -1, FailOnClose: true}},
		{"rename", fs.Fault{FailAfterBytes: -1, FailOnRename: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			ffs := fs.NewFaultyFS(nil)
			ffs.AddRule("report", tt.fault)
			store := NewLocalStore(dir, WithFileSystem(ffs))

			err := store.Put(t.Context(), "report", []byte("payload"))
			require.ErrorIs(t, err, fs.ErrInjected)

			_, err = store.Open(t.Context(), "report")
			assert.ErrorIs(t, err, ErrNotFound)

			entries, err := os.ReadDir(dir)
			require.NoError(t, err)
			assert.Empty(t, entries)
		})
	}
}
