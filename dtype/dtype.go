// Package dtype defines the runtime element-type tags of shared arrays and the
// tagged scalar values that accompany array operands in requests.
package dtype

import (
	"fmt"
	"strings"
)

// DType identifies the element type stored in an array.
type DType uint8

const (
	// Invalid represents an unknown or unset dtype.
	Invalid DType = iota
	// Int64 represents signed 64-bit integers.
	Int64
	// UInt64 represents unsigned 64-bit integers.
	UInt64
	// Float64 represents IEEE-754 double precision floats.
	Float64
	// Bool represents booleans.
	Bool
)

// All lists every valid dtype in tag order.
var All = []DType{Int64, UInt64, Float64, Bool}

// Numeric lists the dtypes accepted by arithmetic kernels.
var Numeric = []DType{Int64, UInt64, Float64}

// String returns the canonical lower-case name ("int64", "uint64", ...).
func (d DType) String() string {
	switch d {
	case Int64:
		return "int64"
	case UInt64:
		return "uint64"
	case Float64:
		return "float64"
	case Bool:
		return "bool"
	default:
		return "invalid"
	}
}

// Size returns the element size in bytes.
func (d DType) Size() int64 {
	switch d {
	case Int64, UInt64, Float64:
		return 8
	case Bool:
		return 1
	default:
		return 0
	}
}

// Valid reports whether d is one of the supported dtypes.
func (d DType) Valid() bool {
	return d >= Int64 && d <= Bool
}

// MarshalText implements encoding.TextMarshaler.
func (d DType) MarshalText() ([]byte, error) {
	if !d.Valid() {
		return nil, &ErrUnrecognizedType{Name: fmt.Sprintf("dtype(%d)", uint8(d))}
	}
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *DType) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// Parse resolves a dtype name. Common aliases ("int", "float", "uint") are accepted.
func Parse(name string) (DType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "int64", "int", "i64":
		return Int64, nil
	case "uint64", "uint", "u64":
		return UInt64, nil
	case "float64", "float", "f64":
		return Float64, nil
	case "bool", "boolean":
		return Bool, nil
	default:
		return Invalid, &ErrUnrecognizedType{Name: name}
	}
}

// Element is the set of Go types backing array storage.
type Element interface {
	~int64 | ~uint64 | ~float64 | ~bool
}

// Of returns the dtype tag of the Go element type T.
func Of[T Element]() DType {
	var zero T
	switch any(zero).(type) {
	case int64:
		return Int64
	case uint64:
		return UInt64
	case float64:
		return Float64
	case bool:
		return Bool
	default:
		return Invalid
	}
}

// ErrUnrecognizedType is returned when a dtype name or tag is not supported.
type ErrUnrecognizedType struct {
	Name string
}

func (e *ErrUnrecognizedType) Error() string {
	return fmt.Sprintf("unrecognized type: %s", e.Name)
}
