package persistence

import (
	"context"
	"errors"
	"path"
	"testing"
	"time"

	"github.com/hupe1980/kernelgo/blobstore"
	"github.com/hupe1980/kernelgo/codec"
	"github.com/hupe1980/kernelgo/dtype"
	"github.com/hupe1980/kernelgo/internal/resource"
	"github.com/hupe1980/kernelgo/table"
	"github.com/hupe1980/kernelgo/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func register(t *testing.T, tbl *table.Table, data any, name string) {
	t.Helper()
	require.NoError(t, tbl.Register(testutil.MustPut(t, tbl, data), name))
}

func TestSnapshotter_SaveLoad(t *testing.T) {
	rng := testutil.NewRNG(42)
	ints := rng.Int64s(5000, -1000, 1000)
	uints := rng.Uint64s(300)
	floats := rng.Float64s(7000, -1, 1)
	mask := rng.Bools(999, 0.3)

	for _, c := range []Compression{CompressionNone, CompressionLZ4, CompressionZSTD} {
		t.Run(c.String(), func(t *testing.T) {
			ctx := t.Context()
			store := blobstore.NewMemoryStore()
			snap := New(store, WithCompression(c), WithBlockSize(4096), WithConcurrency(2))

			src := table.New()
			register(t, src, ints, "ints")
			register(t, src, uints, "uints")
			register(t, src, floats, "floats")
			register(t, src, mask, "mask")
			register(t, src, []int64{}, "empty")
			testutil.MustPut(t, src, []int64{1, 2, 3}) // unregistered, not saved

			m, err := snap.Save(ctx, src, "snap")
			require.NoError(t, err)
			assert.Equal(t, []string{"empty", "floats", "ints", "mask", "uints"}, m.Names())
			assert.Equal(t, c, m.Compression)

			dst := table.New()
			loaded, err := snap.Load(ctx, dst, "snap")
			require.NoError(t, err)
			assert.Equal(t, m.Generation, loaded.Generation)

			assert.Equal(t, []string{"empty", "floats", "ints", "mask", "uints"}, dst.ListRegistry())
			assertArray(t, dst, "ints", ints)
			assertArray(t, dst, "uints", uints)
			assertArray(t, dst, "floats", floats)
			assertArray(t, dst, "mask", mask)

			empty, err := dst.Resolve("empty")
			require.NoError(t, err)
			assert.Equal(t, dtype.Int64, empty.DType())
			assert.Equal(t, 0, empty.Len())
		})
	}
}

func assertArray[T dtype.Element](t *testing.T, tbl *table.Table, name string, want []T) {
	t.Helper()
	a, err := tbl.Resolve(name)
	require.NoError(t, err)
	assert.Equal(t, want, table.Values[T](a))
}

func TestSnapshotter_SaveNamed(t *testing.T) {
	ctx := t.Context()
	snap := New(blobstore.NewMemoryStore())

	src := table.New()
	name := testutil.MustPut(t, src, []float64{1.5, 2.5})
	register(t, src, []int64{7}, "other")

	m, err := snap.Save(ctx, src, "named", name)
	require.NoError(t, err)
	assert.Equal(t, []string{name}, m.Names())

	dst := table.New()
	_, err = snap.Load(ctx, dst, "named")
	require.NoError(t, err)
	assert.True(t, dst.IsRegistered(name))
	assert.False(t, dst.IsRegistered("other"))
}

func TestSnapshotter_SaveUnknownName(t *testing.T) {
	snap := New(blobstore.NewMemoryStore())

	_, err := snap.Save(t.Context(), table.New(), "snap", "missing")
	var undef *table.ErrUndefinedSymbol
	assert.ErrorAs(t, err, &undef)
}

func TestSnapshotter_SaveDuplicateName(t *testing.T) {
	store := blobstore.NewMemoryStore()
	snap := New(store)
	src := table.New()
	register(t, src, []int64{1, 2}, "x")

	_, err := snap.Save(t.Context(), src, "snap", "x", "x")
	var re *table.ErrRegistration
	require.ErrorAs(t, err, &re)
	assert.Equal(t, "x", re.Name)

	blobs, err := store.List(t.Context(), "")
	require.NoError(t, err)
	assert.Empty(t, blobs)

	_, err = snap.Load(t.Context(), table.New(), "snap")
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestSnapshotter_LoadMissing(t *testing.T) {
	snap := New(blobstore.NewMemoryStore())

	_, err := snap.Load(t.Context(), table.New(), "nothing")
	assert.ErrorIs(t, err, ErrNoSnapshot)
}

func TestSnapshotter_LoadNameConflict(t *testing.T) {
	ctx := t.Context()
	snap := New(blobstore.NewMemoryStore())
	rc := resource.NewController(resource.Config{})

	src := table.New()
	register(t, src, []int64{1, 2}, "a")
	register(t, src, []int64{3, 4}, "b")
	_, err := snap.Save(ctx, src, "snap")
	require.NoError(t, err)

	dst := table.New(table.WithController(rc))
	register(t, dst, []float64{9}, "b")
	before := rc.MemoryUsage()

	_, err = snap.Load(ctx, dst, "snap")
	var reg *table.ErrRegistration
	require.ErrorAs(t, err, &reg)
	assert.Equal(t, "b", reg.Name)

	// Nothing from the snapshot is published and its memory is returned.
	assert.False(t, dst.IsRegistered("a"))
	assert.Equal(t, 1, dst.Len())
	assert.Equal(t, before, rc.MemoryUsage())
}

func TestSnapshotter_LoadOverBudget(t *testing.T) {
	ctx := t.Context()
	snap := New(blobstore.NewMemoryStore())

	src := table.New()
	register(t, src, make([]int64, 100), "big")
	_, err := snap.Save(ctx, src, "snap")
	require.NoError(t, err)

	dst := table.New(table.WithController(resource.NewController(resource.Config{MemoryLimitBytes: 100})))
	_, err = snap.Load(ctx, dst, "snap")
	assert.ErrorIs(t, err, resource.ErrMemoryLimitExceeded)
	assert.Equal(t, 0, dst.Len())
}

func TestSnapshotter_DetectsCorruption(t *testing.T) {
	ctx := t.Context()
	store := blobstore.NewMemoryStore()
	snap := New(store, WithCompression(CompressionNone))

	src := table.New()
	register(t, src, []int64{1, 2, 3, 4}, "a")
	m, err := snap.Save(ctx, src, "snap")
	require.NoError(t, err)

	name := path.Join("snap", m.Arrays[0].Blob)
	data, err := blobstore.ReadAll(ctx, store, name)
	require.NoError(t, err)
	data[len(data)-1] ^= 0xff
	require.NoError(t, store.Put(ctx, name, data))

	_, err = snap.Load(ctx, table.New(), "snap")
	assert.ErrorIs(t, err, ErrCorrupt)

	var mismatch *ChecksumMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, m.Arrays[0].CRC32C, mismatch.Expected)
}

func TestSnapshotter_NewGenerationReplacesOld(t *testing.T) {
	ctx := t.Context()
	store := blobstore.NewMemoryStore()

	now := time.Unix(100, 0)
	snap := New(store)
	snap.now = func() time.Time { return now }

	src := table.New()
	register(t, src, []int64{1}, "a")

	first, err := snap.Save(ctx, src, "snap")
	require.NoError(t, err)

	// Same clock reading: the generation still advances.
	second, err := snap.Save(ctx, src, "snap")
	require.NoError(t, err)
	assert.Greater(t, second.Generation, first.Generation)

	names, err := store.List(ctx, "snap/")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"snap/" + second.Generation + "/0.arr",
		"snap/" + second.Generation + "/MANIFEST",
		"snap/CURRENT",
	}, names)
}

func TestSnapshotter_ManifestCodec(t *testing.T) {
	ctx := t.Context()
	store := blobstore.NewMemoryStore()

	src := table.New()
	register(t, src, []bool{true}, "m")

	_, err := New(store, WithCodec(codec.JSON{})).Save(ctx, src, "/snap/")
	require.NoError(t, err)

	current, err := blobstore.ReadAll(ctx, store, "snap/CURRENT")
	require.NoError(t, err)
	p, err := parsePointer(current)
	require.NoError(t, err)
	assert.Equal(t, "json", p.Codec)

	// A snapshotter with a different default codec still reads it.
	m, err := New(store).ReadManifest(ctx, "snap")
	require.NoError(t, err)
	assert.Equal(t, []string{"m"}, m.Names())
	assert.Equal(t, dtype.Bool, m.Arrays[0].DType)
}

type failingStore struct {
	blobstore.BlobStore
	failOn string
}

func (s *failingStore) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	if path.Base(name) == s.failOn {
		return nil, errors.New("disk full")
	}
	return s.BlobStore.Create(ctx, name)
}

func TestSnapshotter_FailedSaveCleansUp(t *testing.T) {
	ctx := t.Context()
	mem := blobstore.NewMemoryStore()
	snap := New(&failingStore{BlobStore: mem, failOn: "1.arr"}, WithConcurrency(1))

	src := table.New()
	register(t, src, []int64{1}, "a")
	register(t, src, []int64{2}, "b")

	_, err := snap.Save(ctx, src, "snap")
	require.Error(t, err)

	names, err := mem.List(ctx, "snap/")
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestSnapshotter_RateLimitedIO(t *testing.T) {
	ctx := t.Context()
	rc := resource.NewController(resource.Config{IOLimitBytesPerSec: 1 << 30, MaxBackgroundWorkers: 1})
	snap := New(blobstore.NewMemoryStore(), WithController(rc))

	src := table.New()
	register(t, src, testutil.Arange(0, 1, 1000), "r")
	_, err := snap.Save(ctx, src, "snap")
	require.NoError(t, err)

	dst := table.New()
	_, err = snap.Load(ctx, dst, "snap")
	require.NoError(t, err)
	assertArray(t, dst, "r", testutil.Arange(0, 1, 1000))

	// The background slot is released after each job.
	assert.True(t, rc.TryAcquireBackground())
	rc.ReleaseBackground()
}

func TestNextGeneration(t *testing.T) {
	now := time.Unix(0, 255)
	assert.Equal(t, "00000000000000ff", nextGeneration("", now))
	assert.Equal(t, "0000000000000101", nextGeneration("0000000000000100", now))
}
