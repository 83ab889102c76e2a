package table

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidLength is returned when an allocation length is negative.
	ErrInvalidLength = errors.New("invalid array length")

	// ErrAlreadyPublished is returned when an array is published or discarded twice.
	ErrAlreadyPublished = errors.New("array already published")
)

// ErrUndefinedSymbol is returned when a name does not resolve to an array.
type ErrUndefinedSymbol struct {
	Name string
}

func (e *ErrUndefinedSymbol) Error() string {
	return fmt.Sprintf("undefined symbol: %s", e.Name)
}

// ErrRegistration is returned when a registry operation conflicts with the
// current table state.
type ErrRegistration struct {
	Name   string
	Reason string
}

func (e *ErrRegistration) Error() string {
	return fmt.Sprintf("registration of %s failed: %s", e.Name, e.Reason)
}
