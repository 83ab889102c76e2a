package persistence

import (
	"fmt"
	"hash"
	"io"

	kghash "github.com/hupe1980/kernelgo/internal/hash"
)

// ChecksumWriter wraps an io.Writer and computes a running CRC32C checksum.
type ChecksumWriter struct {
	w       io.Writer
	hash    hash.Hash32
	written int64
}

// NewChecksumWriter creates a new checksumming writer.
func NewChecksumWriter(w io.Writer) *ChecksumWriter {
	return &ChecksumWriter{
		w:    w,
		hash: kghash.NewCRC32C(),
	}
}

// Write implements io.Writer.
func (cw *ChecksumWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	if n > 0 {
		_, _ = cw.hash.Write(p[:n])
		cw.written += int64(n)
	}
	return n, err
}

// Sum returns the checksum of everything written so far.
func (cw *ChecksumWriter) Sum() uint32 {
	return cw.hash.Sum32()
}

// Written returns the number of bytes written so far.
func (cw *ChecksumWriter) Written() int64 {
	return cw.written
}

// ChecksumReader wraps an io.Reader and computes a running CRC32C checksum.
type ChecksumReader struct {
	r    io.Reader
	hash hash.Hash32
}

// NewChecksumReader creates a new checksumming reader.
func NewChecksumReader(r io.Reader) *ChecksumReader {
	return &ChecksumReader{
		r:    r,
		hash: kghash.NewCRC32C(),
	}
}

// Read implements io.Reader.
func (cr *ChecksumReader) Read(p []byte) (int, error) {
	n, err := cr.r.Read(p)
	if n > 0 {
		_, _ = cr.hash.Write(p[:n])
	}
	return n, err
}

// Sum returns the checksum of everything read so far.
func (cr *ChecksumReader) Sum() uint32 {
	return cr.hash.Sum32()
}

// Verify checks the computed checksum against the expected value.
func (cr *ChecksumReader) Verify(blob string, expected uint32) error {
	if actual := cr.Sum(); actual != expected {
		return &ChecksumMismatchError{Blob: blob, Expected: expected, Actual: actual}
	}
	return nil
}

// ChecksumMismatchError is returned when a blob fails checksum verification.
type ChecksumMismatchError struct {
	Blob     string
	Expected uint32
	Actual   uint32
}

func (e *ChecksumMismatchError) Error() string {
	return fmt.Sprintf("checksum mismatch in %s: expected 0x%08x, got 0x%08x", e.Blob, e.Expected, e.Actual)
}

// Is makes checksum mismatches match ErrCorrupt.
func (e *ChecksumMismatchError) Is(target error) bool {
	return target == ErrCorrupt
}
