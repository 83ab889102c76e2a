package dtype

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Scalar is a small tagged value used wherever a request supplies a single
// value in place of an array operand.
//
// Only the field matching DType is meaningful.
type Scalar struct {
	DType DType   `json:"dtype"`
	I64   int64   `json:"i,omitempty"`
	U64   uint64  `json:"u,omitempty"`
	F64   float64 `json:"f,omitempty"`
	B     bool    `json:"b,omitempty"`
}

// Int returns an Int64 scalar.
func Int(v int64) Scalar { return Scalar{DType: Int64, I64: v} }

// Uint returns a UInt64 scalar.
func Uint(v uint64) Scalar { return Scalar{DType: UInt64, U64: v} }

// Float returns a Float64 scalar.
func Float(v float64) Scalar { return Scalar{DType: Float64, F64: v} }

// Boolean returns a Bool scalar.
func Boolean(v bool) Scalar { return Scalar{DType: Bool, B: v} }

// ParseScalar decodes the textual value of a scalar of the given dtype.
func ParseScalar(value string, d DType) (Scalar, error) {
	value = strings.TrimSpace(value)
	switch d {
	case Int64:
		v, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return Scalar{}, fmt.Errorf("parse %s scalar %q: %w", d, value, err)
		}
		return Int(v), nil
	case UInt64:
		v, err := strconv.ParseUint(value, 10, 64)
		if err != nil {
			return Scalar{}, fmt.Errorf("parse %s scalar %q: %w", d, value, err)
		}
		return Uint(v), nil
	case Float64:
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return Scalar{}, fmt.Errorf("parse %s scalar %q: %w", d, value, err)
		}
		return Float(v), nil
	case Bool:
		v, err := strconv.ParseBool(strings.ToLower(value))
		if err != nil {
			return Scalar{}, fmt.Errorf("parse %s scalar %q: %w", d, value, err)
		}
		return Boolean(v), nil
	default:
		return Scalar{}, &ErrUnrecognizedType{Name: d.String()}
	}
}

// String formats the scalar value without its dtype.
func (s Scalar) String() string {
	switch s.DType {
	case Int64:
		return strconv.FormatInt(s.I64, 10)
	case UInt64:
		return strconv.FormatUint(s.U64, 10)
	case Float64:
		return strconv.FormatFloat(s.F64, 'g', -1, 64)
	case Bool:
		return strconv.FormatBool(s.B)
	default:
		return "invalid"
	}
}

// Key returns a stable representation including the dtype, e.g. "f:3ff0000000000000".
func (s Scalar) Key() string {
	switch s.DType {
	case Int64:
		return "i:" + strconv.FormatInt(s.I64, 10)
	case UInt64:
		return "u:" + strconv.FormatUint(s.U64, 10)
	case Float64:
		return "f:" + strconv.FormatUint(math.Float64bits(s.F64), 16)
	case Bool:
		if s.B {
			return "b:1"
		}
		return "b:0"
	default:
		return "invalid"
	}
}

// Value extracts the scalar as Go type T. ok is false when T does not match DType.
func Value[T Element](s Scalar) (v T, ok bool) {
	if Of[T]() != s.DType {
		return v, false
	}
	switch s.DType {
	case Int64:
		return any(s.I64).(T), true
	case UInt64:
		return any(s.U64).(T), true
	case Float64:
		return any(s.F64).(T), true
	case Bool:
		return any(s.B).(T), true
	}
	return v, false
}
