package s3

import (
	"context"
	"io"
	"testing"

	"github.com/hupe1980/kernelgo/blobstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_PutOpenRead(t *testing.T) {
	ctx := context.Background()
	client := newFakeS3Client()
	store := NewStore(client, "bucket", "/snapshots/")

	require.NoError(t, store.Put(ctx, "snap/MANIFEST", []byte("hello world")))
	assert.Contains(t, client.objects, "snapshots/snap/MANIFEST")
	assert.Equal(t, computeCRC32C([]byte("hello world")), client.checksums["snapshots/snap/MANIFEST"])

	blob, err := store.Open(ctx, "snap/MANIFEST")
	require.NoError(t, err)
	defer blob.Close()
	assert.Equal(t, int64(11), blob.Size())

	buf := make([]byte, 5)
	n, err := blob.ReadAt(ctx, buf, 6)
	require.NoError(t, err)
	assert.Equal(t, "world", string(buf[:n]))

	// Reads running past the end report EOF with the partial data.
	buf = make([]byte, 10)
	n, err = blob.ReadAt(ctx, buf, 6)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, "world", string(buf[:n]))

	rc, err := blob.ReadRange(ctx, 0, 5)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "hello", string(got))
}

func TestStore_ChecksumDisabled(t *testing.T) {
	client := newFakeS3Client()
	cfg := DefaultUploadConfig()
	cfg.EnableChecksum = false
	store := NewStore(client, "bucket", "", WithUploadConfig(cfg))

	require.NoError(t, store.Put(context.Background(), "a", []byte("x")))
	assert.Empty(t, client.checksums["a"])
}

func TestStore_OpenMissing(t *testing.T) {
	store := NewStore(newFakeS3Client(), "bucket", "root")
	_, err := store.Open(context.Background(), "missing")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}

func TestStore_CreateStreams(t *testing.T) {
	ctx := context.Background()
	client := newFakeS3Client()
	store := NewStore(client, "bucket", "root")

	w, err := store.Create(ctx, "data/block-0")
	require.NoError(t, err)
	_, err = w.Write([]byte("abc"))
	require.NoError(t, err)
	_, err = w.Write([]byte("def"))
	require.NoError(t, err)
	require.NoError(t, w.Sync())
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	data, err := blobstore.ReadAll(ctx, store, "data/block-0")
	require.NoError(t, err)
	assert.Equal(t, "abcdef", string(data))

	_, err = w.Write([]byte("late"))
	assert.Error(t, err)
}

func TestStore_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newFakeS3Client(), "bucket", "root")

	for _, name := range []string{"b/2", "a/1", "b/1"} {
		require.NoError(t, store.Put(ctx, name, []byte(name)))
	}

	names, err := store.List(ctx, "b/")
	require.NoError(t, err)
	assert.Equal(t, []string{"b/1", "b/2"}, names)

	all, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a/1", "b/1", "b/2"}, all)

	require.NoError(t, store.Delete(ctx, "b/1"))
	require.NoError(t, store.Delete(ctx, "b/1"))

	names, err = store.List(ctx, "b/")
	require.NoError(t, err)
	assert.Equal(t, []string{"b/2"}, names)
}

func TestStore_EmptyBlob(t *testing.T) {
	ctx := context.Background()
	store := NewStore(newFakeS3Client(), "bucket", "")

	require.NoError(t, store.Put(ctx, "empty", nil))
	data, err := blobstore.ReadAll(ctx, store, "empty")
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestComputeCRC32C(t *testing.T) {
	// CRC32C("123456789") = 0xE3069283
	assert.Equal(t, "4waSgw==", computeCRC32C([]byte("123456789")))
}
