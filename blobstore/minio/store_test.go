package minio

import (
	"context"
	"io"
	"os"
	"testing"

	"github.com/hupe1980/kernelgo/blobstore"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, endpoint string) *minio.Client {
	t.Helper()
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4("minioadmin", "minioadmin", ""),
		Secure: false,
	})
	require.NoError(t, err)
	return client
}

func TestStore_Keys(t *testing.T) {
	client := newClient(t, "localhost:9000")

	s := NewStore(client, "bucket", "/snapshots/", WithPartSize(16<<20), WithRegion("eu-west-1"))
	assert.Equal(t, "snapshots/snap/MANIFEST", s.key("snap/MANIFEST"))
	assert.Equal(t, "snap/MANIFEST", s.relative("snapshots/snap/MANIFEST"))
	assert.Equal(t, uint64(16<<20), s.putOptions().PartSize)
	assert.Equal(t, ContentType, s.putOptions().ContentType)
	assert.Equal(t, "eu-west-1", s.region)

	root := NewStore(client, "bucket", "")
	assert.Equal(t, "a/b", root.key("a/b"))
	assert.Equal(t, "a/b", root.relative("a/b"))
}

func TestBlob_EmptyRange(t *testing.T) {
	b := &minioBlob{size: 0}

	rc, err := b.ReadRange(context.Background(), 0, 10)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Empty(t, data)

	_, err = b.ReadAt(context.Background(), make([]byte, 1), 0)
	assert.ErrorIs(t, err, io.EOF)
}

// TestStore_Integration requires a running MinIO instance.
// Set KERNELGO_MINIO_ENDPOINT to override localhost:9000.
func TestStore_Integration(t *testing.T) {
	endpoint := os.Getenv("KERNELGO_MINIO_ENDPOINT")
	if endpoint == "" {
		endpoint = "localhost:9000"
	}
	client := newClient(t, endpoint)
	ctx := context.Background()

	if _, err := client.ListBuckets(ctx); err != nil {
		t.Skipf("MinIO not available: %v", err)
	}

	store := NewStore(client, "test-kernelgo", "test-prefix/")
	require.NoError(t, store.EnsureBucket(ctx))

	data := []byte("hello minio world")
	require.NoError(t, store.Put(ctx, "test.bin", data))

	blob, err := store.Open(ctx, "test.bin")
	require.NoError(t, err)
	require.Equal(t, int64(len(data)), blob.Size())

	buf := make([]byte, len(data))
	n, err := blob.ReadAt(ctx, buf, 0)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.Equal(t, data, buf)

	rc, err := blob.ReadRange(ctx, 6, 5)
	require.NoError(t, err)
	part, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "minio", string(part))
	require.NoError(t, rc.Close())
	require.NoError(t, blob.Close())

	names, err := store.List(ctx, "")
	require.NoError(t, err)
	assert.Contains(t, names, "test.bin")

	require.NoError(t, store.Delete(ctx, "test.bin"))
	_, err = store.Open(ctx, "test.bin")
	require.ErrorIs(t, err, blobstore.ErrNotFound)

	wb, err := store.Create(ctx, "stream.bin")
	require.NoError(t, err)
	_, err = wb.Write([]byte("streamed data"))
	require.NoError(t, err)
	require.NoError(t, wb.Close())

	streamed, err := blobstore.ReadAll(ctx, store, "stream.bin")
	require.NoError(t, err)
	assert.Equal(t, "streamed data", string(streamed))

	_ = store.Delete(ctx, "stream.bin")
}
