// Package bolt provides a blobstore.BlobStore backed by a single bbolt
// database file. It suits daemons that want durable snapshots without a
// directory tree or an object store.
package bolt

import (
	"bytes"
	"context"
	"io"
	"strings"
	"time"

	"github.com/hupe1980/kernelgo/blobstore"
	bolt "go.etcd.io/bbolt"
)

var bucketName = []byte("blobs")

// Store implements blobstore.BlobStore on a bbolt database.
type Store struct {
	db *bolt.DB
}

// Open opens (creating if needed) the database at filename.
func Open(filename string) (*Store, error) {
	db, err := bolt.Open(filename, 0o644, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketName)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Open reads a blob. The whole value is copied out of the transaction.
func (s *Store) Open(_ context.Context, name string) (blobstore.Blob, error) {
	var data []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bucketName).Get([]byte(name))
		if v == nil {
			return blobstore.ErrNotFound
		}
		data = bytes.Clone(v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &blob{data: data}, nil
}

// Create buffers writes and stores the blob on Close.
func (s *Store) Create(ctx context.Context, name string) (blobstore.WritableBlob, error) {
	return &writableBlob{ctx: ctx, s: s, name: name}, nil
}

// Put writes a blob in one transaction.
func (s *Store) Put(_ context.Context, name string, data []byte) error {
	if data == nil {
		data = []byte{}
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(name), data)
	})
}

// Delete removes a blob.
func (s *Store) Delete(_ context.Context, name string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(name))
	})
}

// List returns blob names with the given prefix in key order.
func (s *Store) List(_ context.Context, prefix string) ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketName).Cursor()
		p := []byte(prefix)
		for k, _ := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, _ = c.Next() {
			names = append(names, string(k))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

type blob struct {
	data []byte
}

func (b *blob) ReadAt(_ context.Context, p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(b.data)) {
		return 0, io.EOF
	}
	n := copy(p, b.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (b *blob) Close() error { return nil }

func (b *blob) Size() int64 { return int64(len(b.data)) }

func (b *blob) ReadRange(_ context.Context, off, length int64) (io.ReadCloser, error) {
	size := int64(len(b.data))
	if off < 0 || off >= size || length <= 0 {
		return io.NopCloser(strings.NewReader("")), nil
	}
	end := min(off+length, size)
	return io.NopCloser(bytes.NewReader(b.data[off:end])), nil
}

type writableBlob struct {
	ctx  context.Context
	s    *Store
	name string
	buf  bytes.Buffer
}

func (w *writableBlob) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *writableBlob) Sync() error { return nil }

func (w *writableBlob) Close() error {
	return w.s.Put(w.ctx, w.name, w.buf.Bytes())
}
