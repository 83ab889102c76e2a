package engine

import (
	"testing"

	"github.com/hupe1980/kernelgo/dtype"
	"github.com/stretchr/testify/assert"
)

func TestRegistry_BinaryCoverage(t *testing.T) {
	count := func(op string) int {
		n := 0
		for _, a := range dtype.All {
			for _, b := range dtype.All {
				if Supported(op, a, b) {
					n++
				}
			}
		}
		return n
	}

	assert.Equal(t, 9, count("arctan2"))
	assert.Equal(t, 5, count("fmod"))
	assert.False(t, Supported("fmod", dtype.Int64, dtype.Int64))
	assert.False(t, Supported("fmod", dtype.UInt64, dtype.Int64))
	assert.True(t, Supported("fmod", dtype.UInt64, dtype.Float64))
}

func TestRegistry_UnaryRestrictions(t *testing.T) {
	assert.True(t, Supported("isnan", dtype.Float64))
	assert.False(t, Supported("isnan", dtype.Int64))

	for _, op := range []string{"popcount", "clz", "ctz", "parity"} {
		assert.True(t, Supported(op, dtype.Int64), op)
		assert.True(t, Supported(op, dtype.UInt64), op)
		assert.False(t, Supported(op, dtype.Float64), op)
		assert.False(t, Supported(op, dtype.Bool), op)
	}

	assert.True(t, Supported("cumsum", dtype.Bool))
	assert.False(t, Supported("hash64", dtype.Bool))
	assert.False(t, Supported("sin", dtype.Bool))
	assert.False(t, Supported("sin", dtype.Float64, dtype.Float64))
}

func TestRegistry_WhereCoverage(t *testing.T) {
	for _, dt := range dtype.All {
		assert.True(t, Supported("where", dtype.Bool, dt, dt), dt.String())
		assert.False(t, Supported("where", dtype.Int64, dt, dt), dt.String())
	}
	assert.False(t, Supported("where", dtype.Bool, dtype.Int64, dtype.UInt64))
}

func TestRegistry_Ops(t *testing.T) {
	ops := Ops()
	assert.Contains(t, ops, "hash128")
	assert.Contains(t, ops, "where")
	assert.Contains(t, ops, "arccosh")
	assert.IsIncreasing(t, ops)
}

func TestShapeOf(t *testing.T) {
	v, s := Array("a"), Value(dtype.Int(1))

	tests := []struct {
		operands []Operand
		want     Shape
	}{
		{[]Operand{v}, ShapeUnary},
		{[]Operand{s}, ShapeInvalid},
		{[]Operand{v, v}, ShapeBinaryVV},
		{[]Operand{v, s}, ShapeBinaryVS},
		{[]Operand{s, v}, ShapeBinarySV},
		{[]Operand{s, s}, ShapeInvalid},
		{[]Operand{v, v, v}, ShapeTernaryVVV},
		{[]Operand{v, v, s}, ShapeTernaryVVS},
		{[]Operand{v, s, v}, ShapeTernaryVSV},
		{[]Operand{v, s, s}, ShapeTernaryVSS},
		{[]Operand{s, v, v}, ShapeInvalid},
		{nil, ShapeInvalid},
	}
	for _, tt := range tests {
		got := ShapeOf(tt.operands)
		assert.Equal(t, tt.want, got, NewRequest("x", tt.operands...).String())
		if got != ShapeInvalid {
			assert.Equal(t, len(tt.operands), got.Arity())
		}
	}
}
