package table

import (
	"fmt"
	"sync/atomic"

	"github.com/hupe1980/kernelgo/dtype"
)

// Array is one typed, fixed-length array owned by the table.
//
// The backing slice is mutable until the array is published and must be
// treated as read-only afterwards.
type Array struct {
	id    uint32
	name  atomic.Pointer[string] // swapped by Register while readers format descriptors
	dtype dtype.DType
	size  int
	data  any
	bytes int64

	published bool
	released  bool
}

// ID returns the table-assigned id.
func (a *Array) ID() uint32 { return a.id }

// Name returns the array's current name.
func (a *Array) Name() string {
	if p := a.name.Load(); p != nil {
		return *p
	}
	return ""
}

func (a *Array) rename(name string) { a.name.Store(&name) }

// DType returns the element type.
func (a *Array) DType() dtype.DType { return a.dtype }

// Len returns the number of elements.
func (a *Array) Len() int { return a.size }

// Bytes returns the bytes the array holds against the memory budget.
func (a *Array) Bytes() int64 { return a.bytes }

// Data returns the backing slice: []int64, []uint64, []float64 or []bool.
func (a *Array) Data() any { return a.data }

// Descriptor formats the creation descriptor "created <name>:<dtype>:<size>".
func (a *Array) Descriptor() string {
	return fmt.Sprintf("created %s:%s:%d", a.Name(), a.dtype, a.size)
}

// Values returns the backing slice of a as []T, or nil if T does not match
// the array's dtype.
func Values[T dtype.Element](a *Array) []T {
	if a == nil {
		return nil
	}
	v, _ := a.data.([]T)
	return v
}

// Info is a snapshot of an array's metadata.
type Info struct {
	Name       string      `json:"name"`
	DType      dtype.DType `json:"dtype"`
	Size       int         `json:"size"`
	Bytes      int64       `json:"bytes"`
	Registered bool        `json:"registered"`
}

func makeData(dt dtype.DType, n int) any {
	switch dt {
	case dtype.Int64:
		return make([]int64, n)
	case dtype.UInt64:
		return make([]uint64, n)
	case dtype.Float64:
		return make([]float64, n)
	case dtype.Bool:
		return make([]bool, n)
	default:
		return nil
	}
}

// DataOf reports the dtype and length of a supported backing slice:
// []int64, []uint64, []float64 or []bool.
func DataOf(data any) (dtype.DType, int, bool) {
	switch v := data.(type) {
	case []int64:
		return dtype.Int64, len(v), true
	case []uint64:
		return dtype.UInt64, len(v), true
	case []float64:
		return dtype.Float64, len(v), true
	case []bool:
		return dtype.Bool, len(v), true
	default:
		return dtype.Invalid, 0, false
	}
}

func copyData(data any) any {
	switch v := data.(type) {
	case []int64:
		return append([]int64(nil), v...)
	case []uint64:
		return append([]uint64(nil), v...)
	case []float64:
		return append([]float64(nil), v...)
	case []bool:
		return append([]bool(nil), v...)
	default:
		return nil
	}
}
