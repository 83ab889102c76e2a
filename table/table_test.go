package table

import (
	"fmt"
	"sync"
	"testing"

	"github.com/hupe1980/kernelgo/dtype"
	"github.com/hupe1980/kernelgo/internal/resource"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_AllocateIsInvisibleUntilPublished(t *testing.T) {
	rc := resource.NewController(resource.Config{})
	tbl := New(WithController(rc))

	a, err := tbl.Allocate(dtype.Float64, 4)
	require.NoError(t, err)
	assert.Equal(t, "id_1", a.Name())
	assert.Equal(t, 4, a.Len())
	assert.Equal(t, int64(32), a.Bytes())
	assert.Len(t, Values[float64](a), 4)
	assert.Nil(t, Values[int64](a))
	assert.Equal(t, int64(32), rc.MemoryUsage())

	_, err = tbl.Resolve(a.Name())
	var us *ErrUndefinedSymbol
	require.ErrorAs(t, err, &us)
	assert.Equal(t, "id_1", us.Name)

	require.NoError(t, tbl.Publish(a))
	got, err := tbl.Resolve(a.Name())
	require.NoError(t, err)
	assert.Same(t, a, got)
	assert.Equal(t, int64(32), tbl.MemoryUsage())

	assert.ErrorIs(t, tbl.Publish(a), ErrAlreadyPublished)
}

func TestTable_AllocateRejectsBadInput(t *testing.T) {
	tbl := New()

	_, err := tbl.Allocate(dtype.Invalid, 1)
	var ut *dtype.ErrUnrecognizedType
	assert.ErrorAs(t, err, &ut)

	_, err = tbl.Allocate(dtype.Int64, -1)
	assert.ErrorIs(t, err, ErrInvalidLength)
}

func TestTable_Describe(t *testing.T) {
	tbl := New()

	a, err := tbl.Put([]uint64{1, 2, 3})
	require.NoError(t, err)

	desc, err := tbl.Describe(a.Name())
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("created %s:uint64:3", a.Name()), desc)

	_, err = tbl.Describe("nope")
	var us *ErrUndefinedSymbol
	assert.ErrorAs(t, err, &us)
}

func TestTable_PutCopiesInput(t *testing.T) {
	tbl := New()

	in := []int64{1, 2, 3}
	a, err := tbl.Put(in)
	require.NoError(t, err)
	in[0] = 99
	assert.Equal(t, []int64{1, 2, 3}, Values[int64](a))

	_, err = tbl.Put([]string{"x"})
	var ut *dtype.ErrUnrecognizedType
	assert.ErrorAs(t, err, &ut)

	empty, err := tbl.Put([]bool{})
	require.NoError(t, err)
	assert.Equal(t, 0, empty.Len())
	assert.Equal(t, dtype.Bool, empty.DType())
}

func TestTable_PutIsAdmissionControlled(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 16})
	tbl := New(WithController(rc))

	_, err := tbl.Put([]float64{1, 2, 3})
	assert.ErrorIs(t, err, resource.ErrMemoryLimitExceeded)
	assert.Equal(t, int64(0), rc.MemoryUsage())
	assert.Empty(t, tbl.List())
}

func TestTable_ReservationCoversAllocation(t *testing.T) {
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 100})
	tbl := New(WithController(rc))

	res, err := rc.Reserve(48)
	require.NoError(t, err)

	a, err := tbl.Allocate(dtype.UInt64, 3, WithReservation(res))
	require.NoError(t, err)
	b, err := tbl.Allocate(dtype.UInt64, 3, WithReservation(res))
	require.NoError(t, err)
	res.Release()

	assert.Equal(t, int64(48), rc.MemoryUsage())

	require.NoError(t, tbl.Publish(a, b))
	require.NoError(t, tbl.Delete(a.Name()))
	require.NoError(t, tbl.Delete(b.Name()))
	assert.Equal(t, int64(0), rc.MemoryUsage())
}

func TestTable_DiscardReleasesUnpublished(t *testing.T) {
	rc := resource.NewController(resource.Config{})
	tbl := New(WithController(rc))

	a, err := tbl.Allocate(dtype.Int64, 10)
	require.NoError(t, err)
	b, err := tbl.Allocate(dtype.Int64, 10)
	require.NoError(t, err)
	require.NoError(t, tbl.Publish(b))

	tbl.Discard(a, b, nil)
	tbl.Discard(a)
	assert.Equal(t, int64(80), rc.MemoryUsage())
	assert.ErrorIs(t, tbl.Publish(a), ErrAlreadyPublished)
}

func TestTable_PublishOrderAndIDs(t *testing.T) {
	tbl := New()

	aux, err := tbl.Allocate(dtype.UInt64, 3)
	require.NoError(t, err)
	primary, err := tbl.Allocate(dtype.UInt64, 3)
	require.NoError(t, err)

	require.NoError(t, tbl.Publish(aux, primary))
	assert.Less(t, aux.ID(), primary.ID())
	assert.Equal(t, []string{aux.Name(), primary.Name()}, tbl.List())
	assert.Equal(t, 2, tbl.Len())
}

func TestTable_ConcurrentAllocationsGetDistinctNames(t *testing.T) {
	tbl := New()

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		names = map[string]struct{}{}
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := tbl.Put([]int64{1})
			if err != nil {
				return
			}
			mu.Lock()
			names[a.Name()] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, names, 32)
	assert.Equal(t, 32, tbl.Len())
}

func TestTable_DeleteAndInfo(t *testing.T) {
	rc := resource.NewController(resource.Config{})
	tbl := New(WithController(rc))

	a, err := tbl.Put([]bool{true, false})
	require.NoError(t, err)

	info, err := tbl.Info(a.Name())
	require.NoError(t, err)
	assert.Equal(t, Info{Name: a.Name(), DType: dtype.Bool, Size: 2, Bytes: 2}, info)

	require.NoError(t, tbl.Delete(a.Name()))
	assert.Equal(t, int64(0), rc.MemoryUsage())

	var us *ErrUndefinedSymbol
	assert.ErrorAs(t, tbl.Delete(a.Name()), &us)
	_, err = tbl.Info(a.Name())
	assert.ErrorAs(t, err, &us)
}

func TestDataOf(t *testing.T) {
	tests := []struct {
		data any
		dt   dtype.DType
		n    int
		ok   bool
	}{
		{[]int64{1, 2}, dtype.Int64, 2, true},
		{[]uint64{1}, dtype.UInt64, 1, true},
		{[]float64{}, dtype.Float64, 0, true},
		{[]bool{true, false, true}, dtype.Bool, 3, true},
		{[]int32{1}, dtype.Invalid, 0, false},
		{nil, dtype.Invalid, 0, false},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%T", tt.data), func(t *testing.T) {
			dt, n, ok := DataOf(tt.data)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.dt, dt)
			assert.Equal(t, tt.n, n)
		})
	}
}
