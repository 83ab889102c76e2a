package persistence

import (
	"encoding/binary"
	"fmt"
	"math"
	"unsafe"

	"github.com/hupe1980/kernelgo/dtype"
)

// littleEndian reports whether the host stores words little-endian, in which
// case numeric slices are viewed as bytes without copying.
var littleEndian = isLittleEndian()

func isLittleEndian() bool {
	var test uint16 = 0x0001
	return *(*byte)(unsafe.Pointer(&test)) == 1
}

type word interface {
	int64 | uint64 | float64
}

// wordBytes views a slice of 8-byte words as bytes.
func wordBytes[T word](v []T) []byte {
	if len(v) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&v[0])), len(v)*8)
}

func bitsOf[T word](x T) uint64 {
	switch v := any(x).(type) {
	case float64:
		return math.Float64bits(v)
	case int64:
		return uint64(v)
	default:
		return any(x).(uint64)
	}
}

func fromBits[T word](b uint64) T {
	var zero T
	switch any(zero).(type) {
	case float64:
		return any(math.Float64frombits(b)).(T)
	case int64:
		return any(int64(b)).(T)
	default:
		return any(b).(T)
	}
}

func encodeWords[T word](v []T) []byte {
	if littleEndian {
		return wordBytes(v)
	}
	out := make([]byte, 0, len(v)*8)
	for _, x := range v {
		out = binary.LittleEndian.AppendUint64(out, bitsOf(x))
	}
	return out
}

func decodeWords[T word](dst []T, raw []byte) {
	if littleEndian {
		copy(wordBytes(dst), raw)
		return
	}
	for i := range dst {
		dst[i] = fromBits[T](binary.LittleEndian.Uint64(raw[i*8:]))
	}
}

// payloadOf returns the little-endian byte image of an array's values.
func payloadOf(data any) ([]byte, error) {
	switch v := data.(type) {
	case []int64:
		return encodeWords(v), nil
	case []uint64:
		return encodeWords(v), nil
	case []float64:
		return encodeWords(v), nil
	case []bool:
		out := make([]byte, len(v))
		for i, b := range v {
			if b {
				out[i] = 1
			}
		}
		return out, nil
	default:
		return nil, &dtype.ErrUnrecognizedType{Name: fmt.Sprintf("%T", data)}
	}
}

// fillPayload decodes a byte image produced by payloadOf into data.
func fillPayload(data any, raw []byte) error {
	switch v := data.(type) {
	case []int64:
		decodeWords(v, raw)
	case []uint64:
		decodeWords(v, raw)
	case []float64:
		decodeWords(v, raw)
	case []bool:
		for i, b := range raw {
			if b > 1 {
				return fmt.Errorf("%w: invalid bool byte 0x%02x", ErrCorrupt, b)
			}
			v[i] = b == 1
		}
	default:
		return &dtype.ErrUnrecognizedType{Name: fmt.Sprintf("%T", data)}
	}
	return nil
}
