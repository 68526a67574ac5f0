package blobstore

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/scalareval/internal/cache"
)

func testStore(t *testing.T, store BlobStore) {
	t.Helper()
	ctx := context.Background()

	data := []byte("hello world, this is a test blob for scalareval")
	require.NoError(t, store.Put(ctx, "sets/a.bin", data))
	require.NoError(t, store.Put(ctx, "sets/b.bin", []byte("b")))
	require.NoError(t, store.Put(ctx, "other.bin", []byte("o")))

	names, err := store.List(ctx, "sets/")
	require.NoError(t, err)
	assert.Equal(t, []string{"sets/a.bin", "sets/b.bin"}, names)

	blob, err := store.Open(ctx, "sets/a.bin")
	require.NoError(t, err)
	defer blob.Close()
	assert.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, 5)
	n, err := blob.ReadAt(ctx, buf, 6)
	require.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, "world", string(buf))

	n, err = blob.ReadAt(ctx, make([]byte, 10), int64(len(data))-3)
	assert.Equal(t, 3, n)
	assert.Equal(t, io.EOF, err)

	all, err := io.ReadAll(NewReader(ctx, blob))
	require.NoError(t, err)
	assert.Equal(t, data, all)

	_, err = store.Open(ctx, "missing.bin")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLocalStore(t *testing.T) {
	dir := t.TempDir()
	store := NewLocalStore(dir)
	testStore(t, store)

	_, err := os.Stat(filepath.Join(dir, "sets", "a.bin"))
	require.NoError(t, err)

	blob, err := store.Open(context.Background(), "other.bin")
	require.NoError(t, err)
	defer blob.Close()

	m, ok := blob.(Mappable)
	require.True(t, ok)
	b, err := m.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "o", string(b))
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestMemoryStore_Mappable(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	src := []byte("abc")
	require.NoError(t, store.Put(ctx, "x", src))
	src[0] = 'z'

	blob, err := store.Open(ctx, "x")
	require.NoError(t, err)
	m, ok := blob.(Mappable)
	require.True(t, ok)
	data, err := m.Bytes()
	require.NoError(t, err)
	assert.Equal(t, "abc", string(data))
}

func TestReader_SmallReads(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "x", []byte("0123456789")))
	blob, err := store.Open(ctx, "x")
	require.NoError(t, err)

	r := NewReader(ctx, blob)
	r.max = 3
	all, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(all))
}

func TestCachingStore(t *testing.T) {
	testStore(t, NewCachingStore(NewMemoryStore(), cache.NewLRU(1<<20, nil), 4))
}

func TestCachingStore_ServesFromCache(t *testing.T) {
	ctx := context.Background()
	c := cache.NewLRU(1<<20, nil)
	store := NewCachingStore(NewMemoryStore(), c, 4)
	require.NoError(t, store.Put(ctx, "x", []byte("0123456789")))

	blob, err := store.Open(ctx, "x")
	require.NoError(t, err)
	defer blob.Close()

	buf := make([]byte, 6)
	_, err = blob.ReadAt(ctx, buf, 2)
	require.NoError(t, err)
	assert.Equal(t, "234567", string(buf))
	assert.Equal(t, 2, c.Len())

	_, missesBefore := c.Stats()
	_, err = blob.ReadAt(ctx, buf, 2)
	require.NoError(t, err)
	_, missesAfter := c.Stats()
	assert.Equal(t, missesBefore, missesAfter)

	// Put replaces content and drops stale blocks.
	require.NoError(t, store.Put(ctx, "x", []byte("abcdefghij")))
	assert.Equal(t, 0, c.Len())
	blob2, err := store.Open(ctx, "x")
	require.NoError(t, err)
	defer blob2.Close()
	_, err = blob2.ReadAt(ctx, buf, 2)
	require.NoError(t, err)
	assert.Equal(t, "cdefgh", string(buf))
}

func TestCachingStore_CacheRefuses(t *testing.T) {
	ctx := context.Background()
	c := cache.NewLRU(1, nil)
	store := NewCachingStore(NewMemoryStore(), c, 4)
	require.NoError(t, store.Put(ctx, "x", []byte("0123456789")))

	blob, err := store.Open(ctx, "x")
	require.NoError(t, err)
	defer blob.Close()

	all, err := io.ReadAll(NewReader(ctx, blob))
	require.NoError(t, err)
	assert.Equal(t, "0123456789", string(all))
	assert.Equal(t, 0, c.Len())
}
