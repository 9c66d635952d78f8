package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSystemStore_RoundTrip(t *testing.T) {
	root := t.TempDir()
	store := NewFileSystemStore(root)
	ctx := context.Background()

	require.NoError(t, store.PutObject(ctx, "deeds", "raw/county/page 1.tif", []byte("data")))

	_, err := os.Stat(filepath.Join(root, "deeds", "raw", "county", "page 1.tif"))
	require.NoError(t, err)

	data, err := store.GetObject(ctx, "deeds", "raw/county/page 1.tif")
	require.NoError(t, err)
	assert.Equal(t, []byte("data"), data)
}

func TestFileSystemStore_NotFound(t *testing.T) {
	store := NewFileSystemStore(t.TempDir())
	_, err := store.GetObject(context.Background(), "deeds", "nope.tif")
	assert.ErrorIs(t, err, ErrObjectNotFound)
}

func TestFileSystemStore_KeysStayInsideRoot(t *testing.T) {
	root := t.TempDir()
	store := NewFileSystemStore(root)

	require.NoError(t, store.PutObject(context.Background(), "deeds", "../../escape.tif", []byte("x")))
	_, err := os.Stat(filepath.Join(root, "deeds", "escape.tif"))
	assert.NoError(t, err, "parent references are clamped to the bucket directory")
}

func TestFileSystemStore_InvalidNames(t *testing.T) {
	store := NewFileSystemStore(t.TempDir())
	ctx := context.Background()

	assert.Error(t, store.PutObject(ctx, "", "k", nil))
	assert.Error(t, store.PutObject(ctx, "a/b", "k", nil))
	assert.Error(t, store.PutObject(ctx, "..", "k", nil))
	assert.Error(t, store.PutObject(ctx, "deeds", "", nil))
}

func TestNewObjectStore(t *testing.T) {
	ctx := context.Background()

	store, err := NewObjectStore(ctx, Config{Type: TypeFileSystem, Root: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileSystemStore{}, store)

	_, err = NewObjectStore(ctx, Config{Type: TypeFileSystem})
	assert.Error(t, err)

	_, err = NewObjectStore(ctx, Config{Type: "ftp"})
	assert.Error(t, err)
}
