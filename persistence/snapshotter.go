package persistence

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"runtime"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/kernelgo/blobstore"
	"github.com/hupe1980/kernelgo/codec"
	"github.com/hupe1980/kernelgo/internal/conv"
	"github.com/hupe1980/kernelgo/internal/resource"
	"github.com/hupe1980/kernelgo/table"
)

// Option configures a Snapshotter.
type Option func(*Snapshotter)

// WithCodec sets the codec used for new manifests.
func WithCodec(c codec.Codec) Option {
	return func(s *Snapshotter) {
		if c != nil {
			s.codec = c
		}
	}
}

// WithCompression sets the block compression for new snapshots.
func WithCompression(c Compression) Option {
	return func(s *Snapshotter) {
		s.compression = c
	}
}

// WithBlockSize sets the raw block size. Values <= 0 use DefaultBlockSize.
func WithBlockSize(n int) Option {
	return func(s *Snapshotter) {
		if n > 0 {
			s.blockSize = n
		}
	}
}

// WithConcurrency bounds the number of arrays encoded or decoded at once.
func WithConcurrency(n int) Option {
	return func(s *Snapshotter) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithController routes snapshot IO through the controller's rate limiter and
// background job slots.
func WithController(rc *resource.Controller) Option {
	return func(s *Snapshotter) {
		s.rc = rc
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Snapshotter) {
		s.logger = l
	}
}

// Snapshotter saves and loads table arrays.
type Snapshotter struct {
	store       blobstore.BlobStore
	codec       codec.Codec
	compression Compression
	blockSize   int
	concurrency int
	rc          *resource.Controller
	logger      *slog.Logger
	now         func() time.Time
}

// New creates a snapshotter writing to store.
func New(store blobstore.BlobStore, opts ...Option) *Snapshotter {
	s := &Snapshotter{
		store:       store,
		codec:       codec.Default,
		compression: CompressionLZ4,
		blockSize:   DefaultBlockSize,
		concurrency: runtime.GOMAXPROCS(0),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save writes the named arrays under prefix and commits them by rewriting
// prefix/CURRENT. With no names, every registered array is saved.
// Arrays are saved under the names given, which need not be registered.
func (s *Snapshotter) Save(ctx context.Context, tbl *table.Table, prefix string, names ...string) (*Manifest, error) {
	prefix = strings.Trim(prefix, "/")

	if err := s.rc.AcquireBackground(ctx); err != nil {
		return nil, err
	}
	defer s.rc.ReleaseBackground()

	if len(names) == 0 {
		names = tbl.ListRegistry()
	}
	seen := make(map[string]struct{}, len(names))
	arrays := make([]*table.Array, len(names))
	for i, name := range names {
		if _, dup := seen[name]; dup {
			return nil, &table.ErrRegistration{Name: name, Reason: "duplicate name"}
		}
		seen[name] = struct{}{}
		a, err := tbl.Resolve(name)
		if err != nil {
			return nil, err
		}
		arrays[i] = a
	}

	prev, err := s.readPointer(ctx, prefix)
	if err != nil && !errors.Is(err, ErrNoSnapshot) {
		return nil, err
	}

	m := &Manifest{
		Version:     Version,
		Generation:  nextGeneration(prev.generation(), s.now()),
		Created:     s.now().UTC(),
		Compression: s.compression,
		Arrays:      make([]Entry, len(arrays)),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, a := range arrays {
		blob := path.Join(m.Generation, strconv.Itoa(i)+".arr")
		g.Go(func() error {
			e, err := s.writeArray(gctx, path.Join(prefix, blob), a)
			if err != nil {
				return err
			}
			e.Name = names[i]
			e.Blob = blob
			m.Arrays[i] = e
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.removeGeneration(ctx, prefix, m.Generation)
		return nil, err
	}

	if err := s.commit(ctx, prefix, m); err != nil {
		s.removeGeneration(ctx, prefix, m.Generation)
		return nil, err
	}

	if old := prev.generation(); old != "." && old != m.Generation {
		s.removeGeneration(ctx, prefix, old)
	}

	if s.logger != nil {
		s.logger.Debug("snapshot committed", "prefix", prefix, "generation", m.Generation)
	}
	return m, nil
}

func (s *Snapshotter) commit(ctx context.Context, prefix string, m *Manifest) error {
	data, err := s.codec.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	p := pointer{Manifest: path.Join(m.Generation, manifestName), Codec: s.codec.Name()}
	if err := s.store.Put(ctx, path.Join(prefix, p.Manifest), data); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	if err := s.store.Put(ctx, path.Join(prefix, currentName), []byte(p.String())); err != nil {
		return fmt.Errorf("commit %s: %w", currentName, err)
	}
	return nil
}

func (s *Snapshotter) writeArray(ctx context.Context, name string, a *table.Array) (Entry, error) {
	payload, err := payloadOf(a.Data())
	if err != nil {
		return Entry{}, err
	}

	blockSize, err := conv.IntToUint32(s.blockSize)
	if err != nil {
		return Entry{}, err
	}
	h := header{
		Compression: s.compression,
		DType:       a.DType(),
		Count:       uint64(a.Len()),
		BlockSize:   blockSize,
	}
	buf := h.append(make([]byte, 0, headerSize+len(payload)/2))
	if buf, err = encodeBlocks(buf, payload, s.compression, s.blockSize); err != nil {
		return Entry{}, fmt.Errorf("encode %s: %w", name, err)
	}

	w, err := s.store.Create(ctx, name)
	if err != nil {
		return Entry{}, err
	}
	cw := NewChecksumWriter(resource.NewRateLimitedWriter(ctx, w, s.rc))
	if _, err := cw.Write(buf); err != nil {
		_ = w.Close()
		return Entry{}, fmt.Errorf("write %s: %w", name, err)
	}
	if err := w.Close(); err != nil {
		return Entry{}, fmt.Errorf("write %s: %w", name, err)
	}

	return Entry{
		DType:  a.DType(),
		Size:   a.Len(),
		Bytes:  cw.Written(),
		CRC32C: cw.Sum(),
	}, nil
}

// removeGeneration deletes every blob of a generation. Failures are logged
// and otherwise ignored; leftover blobs are unreachable from CURRENT.
func (s *Snapshotter) removeGeneration(ctx context.Context, prefix, gen string) {
	ctx = context.WithoutCancel(ctx)
	dir := path.Join(prefix, gen) + "/"

	names, err := s.store.List(ctx, dir)
	if err == nil {
		for _, name := range names {
			if derr := s.store.Delete(ctx, name); derr != nil && err == nil {
				err = derr
			}
		}
	}
	if err != nil && s.logger != nil {
		s.logger.Warn("snapshot cleanup failed", "prefix", prefix, "generation", gen, "error", err)
	}
}

func (s *Snapshotter) readPointer(ctx context.Context, prefix string) (pointer, error) {
	data, err := blobstore.ReadAll(ctx, s.store, path.Join(prefix, currentName))
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return pointer{}, fmt.Errorf("%w under %q", ErrNoSnapshot, prefix)
		}
		return pointer{}, err
	}
	return parsePointer(data)
}

// ReadManifest returns the committed manifest under prefix.
func (s *Snapshotter) ReadManifest(ctx context.Context, prefix string) (*Manifest, error) {
	prefix = strings.Trim(prefix, "/")

	p, err := s.readPointer(ctx, prefix)
	if err != nil {
		return nil, err
	}
	c, err := codec.ByName(p.Codec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	data, err := blobstore.ReadAll(ctx, s.store, path.Join(prefix, p.Manifest))
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var m Manifest
	if err := c.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("%w: decode manifest: %v", ErrCorrupt, err)
	}
	if m.Version != Version {
		return nil, fmt.Errorf("%w: manifest version %d", ErrInvalidVersion, m.Version)
	}
	return &m, nil
}

// Load reads the committed snapshot under prefix and publishes its arrays as
// registered arrays under their saved names. Nothing is published unless
// every array loads and no saved name is already taken.
func (s *Snapshotter) Load(ctx context.Context, tbl *table.Table, prefix string) (*Manifest, error) {
	prefix = strings.Trim(prefix, "/")

	if err := s.rc.AcquireBackground(ctx); err != nil {
		return nil, err
	}
	defer s.rc.ReleaseBackground()

	m, err := s.ReadManifest(ctx, prefix)
	if err != nil {
		return nil, err
	}

	arrays := make([]*table.Array, len(m.Arrays))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, e := range m.Arrays {
		g.Go(func() error {
			a, err := s.readArray(gctx, tbl, path.Join(prefix, e.Blob), e)
			if err != nil {
				return err
			}
			arrays[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		discard(tbl, arrays)
		return nil, err
	}

	if err := tbl.PublishRegistered(arrays, m.Names()); err != nil {
		discard(tbl, arrays)
		return nil, err
	}

	return m, nil
}

func discard(tbl *table.Table, arrays []*table.Array) {
	for _, a := range arrays {
		if a != nil {
			tbl.Discard(a)
		}
	}
}

func (s *Snapshotter) readArray(ctx context.Context, tbl *table.Table, name string, e Entry) (*table.Array, error) {
	blob, err := s.store.Open(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer func() { _ = blob.Close() }()

	rc, err := blob.ReadRange(ctx, 0, blob.Size())
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	defer func() { _ = rc.Close() }()

	cr := NewChecksumReader(resource.NewRateLimitedReader(ctx, rc, s.rc))
	data, err := io.ReadAll(cr)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if err := cr.Verify(name, e.CRC32C); err != nil {
		return nil, err
	}

	h, err := parseHeader(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	count, err := conv.Uint64ToInt(h.Count)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, name, err)
	}
	if h.DType != e.DType || count != e.Size {
		return nil, fmt.Errorf("%w: %s holds %s[%d], manifest says %s[%d]",
			ErrCorrupt, name, h.DType, count, e.DType, e.Size)
	}
	blockSize, err := conv.Uint32ToInt(h.BlockSize)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorrupt, name, err)
	}

	raw := make([]byte, int64(count)*e.DType.Size())
	if err := decodeBlocks(raw, data[headerSize:], h.Compression, blockSize); err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	a, err := tbl.Allocate(e.DType, e.Size, table.WithAdmission())
	if err != nil {
		return nil, err
	}
	if err := fillPayload(a.Data(), raw); err != nil {
		tbl.Discard(a)
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return a, nil
}

// nextGeneration returns a hex generation id ordered after prev.
func nextGeneration(prev string, now time.Time) string {
	g := uint64(now.UnixNano())
	if p, err := strconv.ParseUint(prev, 16, 64); err == nil && g <= p {
		g = p + 1
	}
	return fmt.Sprintf("%016x", g)
}
