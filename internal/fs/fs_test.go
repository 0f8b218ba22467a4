package fs

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFS(t *testing.T) {
	tmp := t.TempDir()
	lfs := LocalFS{}

	dir := filepath.Join(tmp, "subdir")
	require.NoError(t, lfs.MkdirAll(dir, 0o755))

	fpath := filepath.Join(dir, "test.txt")
	f, err := lfs.OpenFile(fpath, os.O_CREATE|os.O_WRONLY, 0o644)
	require.NoError(t, err)

	_, err = f.Write([]byte("hello"))
	assert.NoError(t, err)
	assert.NoError(t, f.Sync())
	assert.NoError(t, f.Close())

	entries, err := lfs.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "test.txt", entries[0].Name())

	newPath := filepath.Join(dir, "renamed.txt")
	require.NoError(t, lfs.Rename(fpath, newPath))

	data, err := os.ReadFile(newPath)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, lfs.Remove(newPath))
	_, err = os.Stat(newPath)
	assert.True(t, os.IsNotExist(err))

	_, err = lfs.OpenFile(filepath.Join(tmp, "missing", "x"), os.O_WRONLY, 0)
	assert.Error(t, err)
}

func TestFaultyFS(t *testing.T) {
	tmp := t.TempDir()
	ffs := NewFaultyFS(LocalFS{})
	ffs.AddRule("faulty", Fault{FailAfterBytes: 5, FailOnSync: true})

	fpath := filepath.Join(tmp, "faulty.txt")
	f, err := ffs.OpenFile(fpath, os.O_CREATE|os.O_WRONLY, 0o644)
	require.NoError(t, err)

	// Write 5 bytes - OK
	n, err := f.Write([]byte("hello"))
	assert.NoError(t, err)
	assert.Equal(t, 5, n)

	// Write 1 byte - Fail
	n, err = f.Write([]byte("!"))
	assert.ErrorIs(t, err, ErrInjected)
	assert.Equal(t, 0, n)

	assert.ErrorIs(t, f.Sync(), ErrInjected)
	assert.NoError(t, f.Close())

	// Files without a rule are untouched.
	clean, err := ffs.OpenFile(filepath.Join(tmp, "clean.txt"), os.O_CREATE|os.O_RDWR, 0644)
	require.NoError(t, err)
	_, err = clean.Write([]byte("hello world"))
	assert.NoError(t, err)
	assert.NoError(t, clean.Sync())
	assert.NoError(t, clean.Close())

	// Renames without a rule delegate.
	assert.NoError(t, ffs.Rename(fpath, fpath+".renamed"))
	_, err = os.Stat(fpath + ".renamed")
	assert.NoError(t, err)
}

func TestFaultyFS_CustomErrors(t *testing.T) {
	tmp := t.TempDir()
	boom := errors.New("boom")

	ffs := NewFaultyFS(nil)
	ffs.AddRule("close", Fault{FailAfterBytes: -1, FailOnClose: true, Err: boom})
	ffs.AddRule("rename", Fault{FailAfterBytes: -1, FailOnRename: true})

	f, err := ffs.OpenFile(filepath.Join(tmp, "close.txt"), os.O_CREATE|os.O_RDWR, 0644)
	require.NoError(t, err)
	assert.ErrorIs(t, f.Close(), boom)

	src := filepath.Join(tmp, "src.txt")
	require.NoError(t, os.WriteFile(src, []byte("x"), 0644))
	assert.ErrorIs(t, ffs.Rename(src, filepath.Join(tmp, "rename.txt")), ErrInjected)
	_, err = os.Stat(src)
	assert.NoError(t, err)
}

func TestFaultyFS_Delegation(t *testing.T) {
	tmp := t.TempDir()
	ffs := NewFaultyFS(LocalFS{})

	dir := filepath.Join(tmp, "subdir")
	require.NoError(t, ffs.MkdirAll(dir, 0o755))

	fpath := filepath.Join(dir, "test.txt")
	require.NoError(t, os.WriteFile(fpath, nil, 0o644))

	entries, err := ffs.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	require.NoError(t, ffs.Remove(fpath))
	entries, err = ffs.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
