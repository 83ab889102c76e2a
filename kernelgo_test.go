package kernelgo

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hupe1980/kernelgo/blobstore"
	"github.com/hupe1980/kernelgo/dtype"
	"github.com/hupe1980/kernelgo/engine"
	"github.com/hupe1980/kernelgo/persistence"
	"github.com/hupe1980/kernelgo/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, opts ...Option) *Engine {
	t.Helper()
	e := New(append([]Option{WithWorkers(2, 4)}, opts...)...)
	t.Cleanup(func() { _ = e.Close() })
	return e
}

func nameOf(t *testing.T, descriptor string) string {
	t.Helper()
	rest, ok := strings.CutPrefix(descriptor, "created ")
	require.True(t, ok, descriptor)
	name, _, ok := strings.Cut(rest, ":")
	require.True(t, ok, descriptor)
	return name
}

func TestEngine_CreateExecuteValues(t *testing.T) {
	e := newTestEngine(t)
	ctx := t.Context()

	desc, err := e.Create(dtype.Int64, []int64{1, 2, 3, 4})
	require.NoError(t, err)
	x := nameOf(t, desc)
	assert.Equal(t, "created "+x+":int64:4", desc)

	desc, err = e.Execute(ctx, "cumsum", engine.Array(x))
	require.NoError(t, err)
	vals, err := e.Values(nameOf(t, desc))
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 6, 10}, vals)

	desc, err = e.Execute(ctx, "fmod", engine.Array(x), engine.Value(dtype.Float(3)))
	require.NoError(t, err)
	vals, err = e.Values(nameOf(t, desc))
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 0, 1}, vals)
}

func TestEngine_ValuesAreCopies(t *testing.T) {
	e := newTestEngine(t)

	desc, err := e.Create(dtype.Float64, []float64{1, 2})
	require.NoError(t, err)
	name := nameOf(t, desc)

	vals, err := e.Values(name)
	require.NoError(t, err)
	vals.([]float64)[0] = 99

	again, err := e.Values(name)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, again)
}

func TestEngine_CreateFromDecodedJSON(t *testing.T) {
	e := newTestEngine(t)

	tests := []struct {
		dt     dtype.DType
		values []any
		want   any
	}{
		{dtype.Int64, []any{1.0, -2.0, "3"}, []int64{1, -2, 3}},
		{dtype.UInt64, []any{7.0, "18446744073709551615"}, []uint64{7, 18446744073709551615}},
		{dtype.Float64, []any{0.5, 2, "1e3"}, []float64{0.5, 2, 1000}},
		{dtype.Bool, []any{true, false, "true"}, []bool{true, false, true}},
		{dtype.Int64, []any{}, []int64{}},
	}

	for _, tt := range tests {
		t.Run(tt.dt.String(), func(t *testing.T) {
			desc, err := e.Create(tt.dt, tt.values)
			require.NoError(t, err)
			got, err := e.Values(nameOf(t, desc))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEngine_CreateRejectsBadValues(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Create(dtype.Int64, []any{1.5})
	assert.Equal(t, KindInvalidRequest, KindOf(err))

	_, err = e.Create(dtype.UInt64, []any{-1.0})
	assert.Equal(t, KindInvalidRequest, KindOf(err))

	_, err = e.Create(dtype.Float64, []any{true})
	assert.Equal(t, KindInvalidRequest, KindOf(err))

	_, err = e.Create(dtype.Int64, []float64{1})
	assert.Equal(t, KindInvalidRequest, KindOf(err))

	_, err = e.Create(dtype.Int64, "nope")
	assert.Equal(t, KindUnrecognizedType, KindOf(err))

	assert.Empty(t, e.List())
}

func TestEngine_Hash128Descriptor(t *testing.T) {
	e := newTestEngine(t)

	desc, err := e.Create(dtype.UInt64, []uint64{1, 2, 3})
	require.NoError(t, err)

	out, err := e.Execute(t.Context(), "hash128", engine.Array(nameOf(t, desc)))
	require.NoError(t, err)

	parts := strings.Split(out, "+")
	require.Len(t, parts, 2)
	for _, p := range parts {
		assert.True(t, strings.HasSuffix(p, ":uint64:3"), p)
	}
	assert.Len(t, e.List(), 3)
}

func TestEngine_Registry(t *testing.T) {
	e := newTestEngine(t)

	desc, err := e.Create(dtype.Bool, []bool{true, false})
	require.NoError(t, err)
	tmp, err := e.Create(dtype.Bool, []bool{true})
	require.NoError(t, err)

	require.NoError(t, e.Register(nameOf(t, desc), "mask"))
	assert.True(t, e.IsRegistered("mask"))
	assert.Equal(t, []string{"mask"}, e.ListRegistry())

	attached, err := e.Attach("mask")
	require.NoError(t, err)
	assert.Equal(t, "created mask:bool:2", attached)

	info, err := e.Info("mask")
	require.NoError(t, err)
	assert.Equal(t, table.Info{Name: "mask", DType: dtype.Bool, Size: 2, Bytes: 2, Registered: true}, info)

	assert.Equal(t, 1, e.Clear())
	_, err = e.Describe(nameOf(t, tmp))
	assert.Equal(t, KindUndefinedSymbol, KindOf(err))

	err = e.Register("mask", "mask2")
	assert.Equal(t, KindRegistration, KindOf(err))

	require.NoError(t, e.Unregister("mask"))
	_, err = e.Attach("mask")
	assert.Equal(t, KindRegistration, KindOf(err))

	require.NoError(t, e.Delete("mask"))
	assert.Empty(t, e.List())
	assert.Equal(t, int64(0), e.MemoryUsage())
}

func TestEngine_ErrorKinds(t *testing.T) {
	e := newTestEngine(t)
	ctx := t.Context()

	a, err := e.Create(dtype.Int64, []int64{1, 2, 3})
	require.NoError(t, err)
	b, err := e.Create(dtype.Int64, []int64{1, 2, 3, 4})
	require.NoError(t, err)
	f, err := e.Create(dtype.Float64, []float64{1, 2, 3, 4})
	require.NoError(t, err)

	_, err = e.Execute(ctx, "arctan2", engine.Array(nameOf(t, a)), engine.Array(nameOf(t, f)))
	assert.Equal(t, KindSizeMismatch, KindOf(err))

	_, err = e.Execute(ctx, "fmod", engine.Array(nameOf(t, a)), engine.Array(nameOf(t, a)))
	assert.Equal(t, KindNotImplemented, KindOf(err))

	_, err = e.Execute(ctx, "sin", engine.Array("nope"))
	assert.Equal(t, KindUndefinedSymbol, KindOf(err))

	_, err = e.Execute(ctx, "frobnicate", engine.Array(nameOf(t, b)))
	assert.Equal(t, KindInvalidRequest, KindOf(err))

	assert.Len(t, e.List(), 3)
}

func TestEngine_MemoryLimit(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	var logs bytes.Buffer
	e := newTestEngine(t,
		WithMemoryLimit(40),
		WithMetricsCollector(metrics),
		WithLogger(NewJSONLogger(&logs, -8)),
	)

	desc, err := e.Create(dtype.Int64, []int64{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, int64(24), e.MemoryUsage())

	_, err = e.Execute(t.Context(), "cumsum", engine.Array(nameOf(t, desc)))
	require.Error(t, err)
	assert.Equal(t, KindOutOfMemory, KindOf(err))

	var oom *engine.ErrOutOfMemory
	require.True(t, errors.As(err, &oom))
	assert.Equal(t, int64(24), oom.Requested)
	assert.Equal(t, int64(40), oom.Budget)

	assert.Len(t, e.List(), 1)
	assert.Equal(t, int64(24), e.MemoryUsage())

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.ExecuteCount)
	assert.Equal(t, int64(1), stats.ExecuteErrors)
	assert.Equal(t, int64(1), stats.RejectedCount)
	assert.Equal(t, int64(24), stats.RejectedBytes)

	assert.Contains(t, logs.String(), "request rejected by memory guard")
	assert.Contains(t, logs.String(), `"kind":"OutOfMemory"`)

	_, err = e.Create(dtype.Int64, []int64{1, 2, 3})
	assert.Equal(t, KindOutOfMemory, KindOf(err))
}

func TestEngine_Config(t *testing.T) {
	e := newTestEngine(t, WithMemoryLimit(1<<20))

	cfg := e.Config()
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 4, cfg.Grain)
	assert.Equal(t, int64(1<<20), cfg.MemoryLimit)
	assert.Equal(t, "lz4", cfg.Compression)
	assert.False(t, cfg.Persistence)
	assert.Contains(t, cfg.Ops, "where")
	assert.Contains(t, cfg.Ops, "hash128")
	assert.NotEmpty(t, cfg.System.OS)
}

func TestEngine_SaveLoad(t *testing.T) {
	store := blobstore.NewMemoryStore()
	metrics := &BasicMetricsCollector{}
	ctx := t.Context()

	src := newTestEngine(t,
		WithBlobStore(store),
		WithCompression(persistence.CompressionZSTD),
		WithMetricsCollector(metrics),
	)
	desc, err := src.Create(dtype.Float64, []float64{1.5, 2.5, 3.5})
	require.NoError(t, err)
	require.NoError(t, src.Register(nameOf(t, desc), "prices"))

	m, err := src.Save(ctx, "nightly")
	require.NoError(t, err)
	assert.Equal(t, []string{"prices"}, m.Names())

	dst := newTestEngine(t, WithBlobStore(store))
	_, err = dst.Load(ctx, "nightly")
	require.NoError(t, err)
	assert.True(t, dst.IsRegistered("prices"))

	vals, err := dst.Values("prices")
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 2.5, 3.5}, vals)

	_, err = dst.Load(ctx, "nightly")
	assert.Equal(t, KindRegistration, KindOf(err))

	_, err = dst.Load(ctx, "missing")
	assert.Equal(t, KindNoSnapshot, KindOf(err))

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.SaveCount)
	assert.Equal(t, int64(1), stats.SnapshotArrays)
}

func TestEngine_NoStore(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Save(t.Context(), "x")
	assert.ErrorIs(t, err, ErrNoStore)
	_, err = e.Load(t.Context(), "x")
	assert.ErrorIs(t, err, ErrNoStore)
}

func TestEngine_Closed(t *testing.T) {
	e := New()
	desc, err := e.Create(dtype.Int64, []int64{1})
	require.NoError(t, err)

	require.NoError(t, e.Close())
	require.NoError(t, e.Close())

	_, err = e.Execute(t.Context(), "abs", engine.Array(nameOf(t, desc)))
	assert.ErrorIs(t, err, ErrClosed)

	vals, err := e.Values(nameOf(t, desc))
	require.NoError(t, err)
	assert.Equal(t, []int64{1}, vals)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindInternal, KindOf(nil))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	assert.Equal(t, KindCanceled, KindOf(ctx.Err()))
	assert.Equal(t, KindCorrupt, KindOf(persistence.ErrCorrupt))
	assert.Equal(t, KindUnrecognizedType, KindOf(&dtype.ErrUnrecognizedType{Name: "int8"}))

	p := PayloadOf(&table.ErrUndefinedSymbol{Name: "x"})
	assert.Equal(t, KindUndefinedSymbol, p.Kind)
	assert.Contains(t, p.Message, "x")

	text, err := KindSizeMismatch.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "SizeMismatch", string(text))
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewJSONLogger(&buf, -8).WithOp("sin").WithRequestID("r1")

	l.LogExecute(t.Context(), "sin(id_1)", "created id_2:float64:3", nil)
	l.LogSnapshot(t.Context(), "save", "nightly", 2, nil)
	l.LogSnapshot(t.Context(), "load", "nightly", 0, persistence.ErrCorrupt)

	out := buf.String()
	assert.Contains(t, out, `"request_id":"r1"`)
	assert.Contains(t, out, "request executed")
	assert.Contains(t, out, "snapshot save completed")
	assert.Contains(t, out, "snapshot load failed")

	NoopLogger().LogExecute(t.Context(), "x", "", errors.New("ignored"))
}
