package persistence

import (
	"encoding/binary"
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression selects the block compression algorithm.
type Compression uint8

const (
	// CompressionNone stores blocks raw.
	CompressionNone Compression = 0
	// CompressionLZ4 uses LZ4 block compression (fast).
	CompressionLZ4 Compression = 1
	// CompressionZSTD uses ZSTD block compression (better ratio).
	CompressionZSTD Compression = 2
)

// String returns "none", "lz4" or "zstd".
func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZ4:
		return "lz4"
	case CompressionZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("compression(%d)", uint8(c))
	}
}

// ParseCompression resolves a compression name. The empty string means none.
func ParseCompression(name string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none":
		return CompressionNone, nil
	case "lz4":
		return CompressionLZ4, nil
	case "zstd":
		return CompressionZSTD, nil
	default:
		return CompressionNone, fmt.Errorf("unknown compression %q", name)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Compression) MarshalText() ([]byte, error) {
	if c > CompressionZSTD {
		return nil, fmt.Errorf("unknown compression %d", uint8(c))
	}
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Compression) UnmarshalText(text []byte) error {
	v, err := ParseCompression(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

var (
	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func getZstdEncoder() (*zstd.Encoder, error) {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder), nil
	}
	return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
}

func getZstdDecoder() (*zstd.Decoder, error) {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder), nil
	}
	return zstd.NewReader(nil)
}

const blockHeaderSize = 8

// appendBlock frames one block onto dst. Blocks that do not shrink below 90%
// of their raw size are stored raw.
func appendBlock(dst, data []byte, c Compression) ([]byte, error) {
	var compressed []byte

	switch c {
	case CompressionLZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, err
		}
		compressed = buf[:n]
	case CompressionZSTD:
		enc, err := getZstdEncoder()
		if err != nil {
			return nil, err
		}
		compressed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	}

	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9 {
		dst = binary.LittleEndian.AppendUint32(dst, uint32(len(data)))
		dst = binary.LittleEndian.AppendUint32(dst, 0)
		return append(dst, data...), nil
	}

	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(data)))
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(compressed)))
	return append(dst, compressed...), nil
}

// readBlock decodes the block at the start of src into dst and returns the
// number of src bytes consumed. dst must be exactly the block's raw size.
func readBlock(dst, src []byte, c Compression) (int, error) {
	if len(src) < blockHeaderSize {
		return 0, fmt.Errorf("%w: block too small for header", ErrCorrupt)
	}

	raw := binary.LittleEndian.Uint32(src[0:])
	packed := binary.LittleEndian.Uint32(src[4:])
	if int(raw) != len(dst) {
		return 0, fmt.Errorf("%w: block holds %d bytes, expected %d", ErrCorrupt, raw, len(dst))
	}
	src = src[blockHeaderSize:]

	if packed == 0 {
		if len(src) < int(raw) {
			return 0, fmt.Errorf("%w: block data too small", ErrCorrupt)
		}
		copy(dst, src[:raw])
		return blockHeaderSize + int(raw), nil
	}

	if len(src) < int(packed) {
		return 0, fmt.Errorf("%w: compressed block data too small", ErrCorrupt)
	}
	data := src[:packed]

	switch c {
	case CompressionLZ4:
		n, err := lz4.UncompressBlock(data, dst)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		if n != len(dst) {
			return 0, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
		}
	case CompressionZSTD:
		dec, err := getZstdDecoder()
		if err != nil {
			return 0, err
		}
		out, err := dec.DecodeAll(data, dst[:0])
		zstdDecoderPool.Put(dec)
		if err != nil {
			return 0, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		if len(out) != len(dst) {
			return 0, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
		}
	default:
		return 0, fmt.Errorf("%w: compressed block in %s blob", ErrCorrupt, c)
	}
	return blockHeaderSize + int(packed), nil
}
