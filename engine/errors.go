package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/hupe1980/kernelgo/dtype"
)

// ErrInvalidRequest is returned for malformed requests: unknown operations,
// wrong operand counts or shapes an operation does not accept.
var ErrInvalidRequest = errors.New("invalid request")

// ErrSizeMismatch is returned when vector operands differ in length.
type ErrSizeMismatch struct {
	Op    string
	Sizes []int
}

func (e *ErrSizeMismatch) Error() string {
	return fmt.Sprintf("%s: size mismatch %v", e.Op, e.Sizes)
}

// ErrNotImplemented is returned when no kernel is registered for the
// operation and operand dtypes.
type ErrNotImplemented struct {
	Op     string
	DTypes []dtype.DType
}

func (e *ErrNotImplemented) Error() string {
	names := make([]string, len(e.DTypes))
	for i, d := range e.DTypes {
		names[i] = d.String()
	}
	return fmt.Sprintf("%s not implemented for (%s)", e.Op, strings.Join(names, ","))
}

// ErrOutOfMemory is returned when the memory guard rejects a request.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrOutOfMemory struct {
	Requested int64
	Budget    int64
	cause     error
}

func (e *ErrOutOfMemory) Error() string {
	return fmt.Sprintf("out of memory: request needs %d bytes, budget is %d", e.Requested, e.Budget)
}

func (e *ErrOutOfMemory) Unwrap() error { return e.cause }

func invalidf(op, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidRequest, op, fmt.Sprintf(format, args...))
}
