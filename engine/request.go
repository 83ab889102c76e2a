package engine

import (
	"fmt"
	"strings"

	"github.com/hupe1980/kernelgo/dtype"
)

// Operand is either the name of a table array or a scalar value.
type Operand struct {
	Name   string
	Scalar *dtype.Scalar
}

// Array returns an operand referring to a table array.
func Array(name string) Operand {
	return Operand{Name: name}
}

// Value returns a scalar operand.
func Value(s dtype.Scalar) Operand {
	return Operand{Scalar: &s}
}

// IsScalar reports whether the operand is a scalar.
func (o Operand) IsScalar() bool { return o.Scalar != nil }

func (o Operand) String() string {
	if o.Scalar != nil {
		return fmt.Sprintf("%s(%s)", o.Scalar.DType, o.Scalar)
	}
	return o.Name
}

// Request is one kernel invocation.
type Request struct {
	Op       string
	Operands []Operand
}

// NewRequest builds a request.
func NewRequest(op string, operands ...Operand) Request {
	return Request{Op: op, Operands: operands}
}

func (r Request) String() string {
	parts := make([]string, len(r.Operands))
	for i, o := range r.Operands {
		parts[i] = o.String()
	}
	return r.Op + "(" + strings.Join(parts, ", ") + ")"
}

// Shape is the vector/scalar layout of a request's operands.
type Shape uint8

const (
	// ShapeInvalid is a layout no operation accepts.
	ShapeInvalid Shape = iota
	// ShapeUnary is a single vector.
	ShapeUnary
	// ShapeBinaryVV is vector op vector.
	ShapeBinaryVV
	// ShapeBinaryVS is vector op scalar.
	ShapeBinaryVS
	// ShapeBinarySV is scalar op vector.
	ShapeBinarySV
	// ShapeTernaryVVV is a vector condition with two vector values.
	ShapeTernaryVVV
	// ShapeTernaryVVS is a vector condition, vector value, scalar value.
	ShapeTernaryVVS
	// ShapeTernaryVSV is a vector condition, scalar value, vector value.
	ShapeTernaryVSV
	// ShapeTernaryVSS is a vector condition with two scalar values.
	ShapeTernaryVSS
)

func (s Shape) String() string {
	switch s {
	case ShapeUnary:
		return "unary"
	case ShapeBinaryVV:
		return "binary-vv"
	case ShapeBinaryVS:
		return "binary-vs"
	case ShapeBinarySV:
		return "binary-sv"
	case ShapeTernaryVVV:
		return "ternary-vvv"
	case ShapeTernaryVVS:
		return "ternary-vvs"
	case ShapeTernaryVSV:
		return "ternary-vsv"
	case ShapeTernaryVSS:
		return "ternary-vss"
	default:
		return "invalid"
	}
}

// Arity returns the number of operands of the shape.
func (s Shape) Arity() int {
	switch s {
	case ShapeUnary:
		return 1
	case ShapeBinaryVV, ShapeBinaryVS, ShapeBinarySV:
		return 2
	case ShapeTernaryVVV, ShapeTernaryVVS, ShapeTernaryVSV, ShapeTernaryVSS:
		return 3
	default:
		return 0
	}
}

// ShapeOf infers the shape from the operand kinds. At least one operand of
// every shape is a vector, and the ternary condition always is.
func ShapeOf(operands []Operand) Shape {
	sig := make([]byte, len(operands))
	for i, o := range operands {
		if o.IsScalar() {
			sig[i] = 's'
		} else {
			sig[i] = 'v'
		}
	}
	switch string(sig) {
	case "v":
		return ShapeUnary
	case "vv":
		return ShapeBinaryVV
	case "vs":
		return ShapeBinaryVS
	case "sv":
		return ShapeBinarySV
	case "vvv":
		return ShapeTernaryVVV
	case "vvs":
		return ShapeTernaryVVS
	case "vsv":
		return ShapeTernaryVSV
	case "vss":
		return ShapeTernaryVSS
	default:
		return ShapeInvalid
	}
}
