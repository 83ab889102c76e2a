package persistence

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/hupe1980/kernelgo/dtype"
)

const (
	// MagicNumber identifies array blobs (ASCII: "KGA1").
	MagicNumber = 0x4b474131
	// Version is the current array blob and manifest format version.
	Version = 1

	// DefaultBlockSize is the raw size of one compressed block.
	DefaultBlockSize = 256 * 1024

	headerSize = 20
)

var (
	ErrInvalidMagic   = errors.New("invalid magic number")
	ErrInvalidVersion = errors.New("unsupported version")
	// ErrCorrupt is returned when snapshot data fails validation.
	ErrCorrupt = errors.New("corrupt snapshot")
	// ErrNoSnapshot is returned when a prefix has no committed snapshot.
	ErrNoSnapshot = errors.New("no snapshot")
)

// header prefixes every array blob.
//
//	magic u32 | version u16 | compression u8 | dtype u8 | count u64 | block size u32
type header struct {
	Compression Compression
	DType       dtype.DType
	Count       uint64
	BlockSize   uint32
}

func (h header) append(dst []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, MagicNumber)
	dst = binary.LittleEndian.AppendUint16(dst, Version)
	dst = append(dst, byte(h.Compression), byte(h.DType))
	dst = binary.LittleEndian.AppendUint64(dst, h.Count)
	return binary.LittleEndian.AppendUint32(dst, h.BlockSize)
}

func parseHeader(b []byte) (header, error) {
	if len(b) < headerSize {
		return header{}, fmt.Errorf("%w: blob too small for header", ErrCorrupt)
	}
	if binary.LittleEndian.Uint32(b[0:]) != MagicNumber {
		return header{}, ErrInvalidMagic
	}
	if v := binary.LittleEndian.Uint16(b[4:]); v != Version {
		return header{}, fmt.Errorf("%w: %d", ErrInvalidVersion, v)
	}

	h := header{
		Compression: Compression(b[6]),
		DType:       dtype.DType(b[7]),
		Count:       binary.LittleEndian.Uint64(b[8:]),
		BlockSize:   binary.LittleEndian.Uint32(b[16:]),
	}
	if h.Compression > CompressionZSTD {
		return header{}, fmt.Errorf("%w: unknown compression %d", ErrCorrupt, uint8(h.Compression))
	}
	if !h.DType.Valid() {
		return header{}, fmt.Errorf("%w: unknown dtype %d", ErrCorrupt, uint8(h.DType))
	}
	if h.BlockSize == 0 && h.Count > 0 {
		return header{}, fmt.Errorf("%w: zero block size", ErrCorrupt)
	}
	return h, nil
}

// encodeBlocks frames the raw payload as blocks of at most blockSize bytes.
func encodeBlocks(dst, payload []byte, c Compression, blockSize int) ([]byte, error) {
	for len(payload) > 0 {
		n := min(blockSize, len(payload))
		var err error
		if dst, err = appendBlock(dst, payload[:n], c); err != nil {
			return nil, err
		}
		payload = payload[n:]
	}
	return dst, nil
}

// decodeBlocks fills raw from the framed blocks in src.
func decodeBlocks(raw, src []byte, c Compression, blockSize int) error {
	for len(raw) > 0 {
		n := min(blockSize, len(raw))
		used, err := readBlock(raw[:n], src, c)
		if err != nil {
			return err
		}
		raw = raw[n:]
		src = src[used:]
	}
	if len(src) != 0 {
		return fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, len(src))
	}
	return nil
}
