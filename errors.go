package kernelgo

import (
	"context"
	"errors"

	"github.com/hupe1980/kernelgo/dtype"
	"github.com/hupe1980/kernelgo/engine"
	"github.com/hupe1980/kernelgo/internal/resource"
	"github.com/hupe1980/kernelgo/persistence"
	"github.com/hupe1980/kernelgo/table"
)

var (
	// ErrNoStore is returned by Save and Load when no blob store is configured.
	ErrNoStore = errors.New("no blob store configured")

	// ErrClosed is returned when the engine has been closed.
	ErrClosed = errors.New("engine closed")
)

// Kind classifies an error for transports that cannot carry Go error values.
type Kind uint8

const (
	// KindInternal is any error not covered by another kind.
	KindInternal Kind = iota
	KindInvalidRequest
	KindUndefinedSymbol
	KindRegistration
	KindSizeMismatch
	KindNotImplemented
	KindOutOfMemory
	KindUnrecognizedType
	KindNoSnapshot
	KindCorrupt
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindInvalidRequest:
		return "InvalidRequest"
	case KindUndefinedSymbol:
		return "UndefinedSymbol"
	case KindRegistration:
		return "Registration"
	case KindSizeMismatch:
		return "SizeMismatch"
	case KindNotImplemented:
		return "NotImplemented"
	case KindOutOfMemory:
		return "OutOfMemory"
	case KindUnrecognizedType:
		return "UnrecognizedType"
	case KindNoSnapshot:
		return "NoSnapshot"
	case KindCorrupt:
		return "Corrupt"
	case KindCanceled:
		return "Canceled"
	default:
		return "Internal"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// KindOf classifies err. A nil error is KindInternal.
func KindOf(err error) Kind {
	var (
		undefined   *table.ErrUndefinedSymbol
		registered  *table.ErrRegistration
		mismatch    *engine.ErrSizeMismatch
		unsupported *engine.ErrNotImplemented
		oom         *engine.ErrOutOfMemory
		unknownType *dtype.ErrUnrecognizedType
	)

	switch {
	case err == nil:
		return KindInternal
	case errors.As(err, &undefined):
		return KindUndefinedSymbol
	case errors.As(err, &registered):
		return KindRegistration
	case errors.As(err, &mismatch):
		return KindSizeMismatch
	case errors.As(err, &unsupported):
		return KindNotImplemented
	case errors.As(err, &oom), errors.Is(err, resource.ErrMemoryLimitExceeded):
		return KindOutOfMemory
	case errors.As(err, &unknownType):
		return KindUnrecognizedType
	case errors.Is(err, engine.ErrInvalidRequest),
		errors.Is(err, table.ErrInvalidLength),
		errors.Is(err, ErrNoStore):
		return KindInvalidRequest
	case errors.Is(err, persistence.ErrNoSnapshot):
		return KindNoSnapshot
	case errors.Is(err, persistence.ErrCorrupt),
		errors.Is(err, persistence.ErrInvalidMagic),
		errors.Is(err, persistence.ErrInvalidVersion):
		return KindCorrupt
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindInternal
	}
}

// ErrorPayload is the transport form of an error.
type ErrorPayload struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// PayloadOf converts err into its transport form.
func PayloadOf(err error) ErrorPayload {
	return ErrorPayload{Kind: KindOf(err), Message: err.Error()}
}
