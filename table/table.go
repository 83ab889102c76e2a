package table

import (
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/hupe1980/kernelgo/dtype"
	"github.com/hupe1980/kernelgo/internal/resource"
)

// Option configures a Table.
type Option func(*Table)

// WithController charges array memory to rc.
func WithController(rc *resource.Controller) Option {
	return func(t *Table) {
		t.rc = rc
	}
}

// WithLogger sets the logger used for table lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(t *Table) {
		t.logger = l
	}
}

// Table is a concurrency-safe map from names to published arrays.
type Table struct {
	mu     sync.RWMutex
	byName map[string]*Array
	byID   map[uint32]*Array

	live       *roaring.Bitmap
	registered *roaring.Bitmap

	nextID atomic.Uint32
	held   atomic.Int64

	rc     *resource.Controller
	logger *slog.Logger
}

// New creates an empty table.
func New(opts ...Option) *Table {
	t := &Table{
		byName:     make(map[string]*Array),
		byID:       make(map[uint32]*Array),
		live:       roaring.New(),
		registered: roaring.New(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// AllocOption configures a single allocation.
type AllocOption func(*allocConfig)

type allocConfig struct {
	res   *resource.Reservation
	admit bool
}

// WithReservation draws the allocation's bytes from a reservation made by the
// caller's admission check. Bytes not covered by the reservation are tracked
// without a limit check.
func WithReservation(res *resource.Reservation) AllocOption {
	return func(c *allocConfig) {
		c.res = res
	}
}

// WithAdmission checks the allocation against the memory limit.
func WithAdmission() AllocOption {
	return func(c *allocConfig) {
		c.admit = true
	}
}

// Allocate creates a zeroed array under a fresh name. The array is not
// visible to Resolve until it is published.
func (t *Table) Allocate(dt dtype.DType, n int, opts ...AllocOption) (*Array, error) {
	if !dt.Valid() {
		return nil, &dtype.ErrUnrecognizedType{Name: dt.String()}
	}
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLength, n)
	}

	var cfg allocConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	bytes := dt.Size() * int64(n)
	if err := t.charge(bytes, cfg); err != nil {
		return nil, err
	}

	id := t.nextID.Add(1)
	a := &Array{
		id:    id,
		dtype: dt,
		size:  n,
		data:  makeData(dt, n),
		bytes: bytes,
	}
	a.rename("id_" + strconv.FormatUint(uint64(id), 10))
	return a, nil
}

func (t *Table) charge(bytes int64, cfg allocConfig) error {
	covered := cfg.res.Take(bytes)
	rest := bytes - covered
	if rest <= 0 {
		return nil
	}
	if cfg.admit {
		if err := t.rc.AcquireMemory(rest); err != nil {
			t.rc.ReleaseMemory(covered)
			return err
		}
		return nil
	}
	t.rc.TrackMemory(rest)
	return nil
}

// Put copies data into a new published array. data must be one of []int64,
// []uint64, []float64 or []bool. The allocation is subject to the memory limit.
func (t *Table) Put(data any) (*Array, error) {
	dt, n, ok := DataOf(data)
	if !ok {
		return nil, &dtype.ErrUnrecognizedType{Name: fmt.Sprintf("%T", data)}
	}

	a, err := t.Allocate(dt, n, WithAdmission())
	if err != nil {
		return nil, err
	}
	a.data = copyData(data)
	if a.data == nil {
		a.data = makeData(dt, 0)
	}

	if err := t.Publish(a); err != nil {
		t.Discard(a)
		return nil, err
	}
	return a, nil
}

// Publish makes arrays visible in one critical section, in argument order.
func (t *Table) Publish(arrays ...*Array) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, a := range arrays {
		if a.published || a.released {
			return fmt.Errorf("%w: %s", ErrAlreadyPublished, a.Name())
		}
		if _, exists := t.byName[a.Name()]; exists {
			return &ErrRegistration{Name: a.Name(), Reason: "name already in use"}
		}
	}

	for _, a := range arrays {
		t.insertLocked(a)
	}
	return nil
}

// PublishRegistered publishes arrays under the given user names and marks
// them registered. Either every array is published or none is.
func (t *Table) PublishRegistered(arrays []*Array, names []string) error {
	if len(arrays) != len(names) {
		return fmt.Errorf("publish registered: %d arrays for %d names", len(arrays), len(names))
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	seen := make(map[string]struct{}, len(names))
	for i, a := range arrays {
		if a.published || a.released {
			return fmt.Errorf("%w: %s", ErrAlreadyPublished, a.Name())
		}
		if _, exists := t.byName[names[i]]; exists {
			return &ErrRegistration{Name: names[i], Reason: "name already in use"}
		}
		if _, dup := seen[names[i]]; dup {
			return &ErrRegistration{Name: names[i], Reason: "duplicate name"}
		}
		seen[names[i]] = struct{}{}
	}

	for i, a := range arrays {
		a.rename(names[i])
		t.insertLocked(a)
		t.registered.Add(a.id)
	}
	return nil
}

func (t *Table) insertLocked(a *Array) {
	a.published = true
	t.byName[a.Name()] = a
	t.byID[a.id] = a
	t.live.Add(a.id)
	t.held.Add(a.bytes)
}

// Discard releases arrays that were allocated but never published.
// Published arrays are left untouched.
func (t *Table) Discard(arrays ...*Array) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for _, a := range arrays {
		if a == nil || a.published || a.released {
			continue
		}
		a.released = true
		t.rc.ReleaseMemory(a.bytes)
	}
}

// Resolve returns the published array with the given name.
func (t *Table) Resolve(name string) (*Array, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	a, ok := t.byName[name]
	if !ok {
		return nil, &ErrUndefinedSymbol{Name: name}
	}
	return a, nil
}

// Describe returns the creation descriptor of a published array.
func (t *Table) Describe(name string) (string, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	a, ok := t.byName[name]
	if !ok {
		return "", &ErrUndefinedSymbol{Name: name}
	}
	return a.Descriptor(), nil
}

// Info returns the metadata of a published array.
func (t *Table) Info(name string) (Info, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	a, ok := t.byName[name]
	if !ok {
		return Info{}, &ErrUndefinedSymbol{Name: name}
	}
	return t.infoLocked(a), nil
}

func (t *Table) infoLocked(a *Array) Info {
	return Info{
		Name:       a.Name(),
		DType:      a.dtype,
		Size:       a.size,
		Bytes:      a.bytes,
		Registered: t.registered.Contains(a.id),
	}
}

// Delete removes an array and releases its memory.
func (t *Table) Delete(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	a, ok := t.byName[name]
	if !ok {
		return &ErrUndefinedSymbol{Name: name}
	}
	t.removeLocked(a)
	if t.logger != nil {
		t.logger.Debug("array deleted", "name", name, "bytes", a.bytes)
	}
	return nil
}

// Clear removes every array that is not registered and returns how many were removed.
func (t *Table) Clear() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	doomed := roaring.AndNot(t.live, t.registered)
	n := 0
	it := doomed.Iterator()
	for it.HasNext() {
		if a, ok := t.byID[it.Next()]; ok {
			t.removeLocked(a)
			n++
		}
	}
	if t.logger != nil {
		t.logger.Debug("table cleared", "removed", n)
	}
	return n
}

func (t *Table) removeLocked(a *Array) {
	delete(t.byName, a.Name())
	delete(t.byID, a.id)
	t.live.Remove(a.id)
	t.registered.Remove(a.id)
	t.held.Add(-a.bytes)
	a.released = true
	t.rc.ReleaseMemory(a.bytes)
}

// List returns the names of all published arrays, sorted.
func (t *Table) List() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	names := make([]string, 0, len(t.byName))
	for name := range t.byName {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Len returns the number of published arrays.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return int(t.live.GetCardinality())
}

// MemoryUsage returns the bytes held by published arrays.
func (t *Table) MemoryUsage() int64 {
	return t.held.Load()
}
