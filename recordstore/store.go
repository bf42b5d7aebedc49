// Package recordstore provides CRUD access to a collection of records
// serialized as a JSON array under one key of a medium.Medium.
//
// Every operation waits for an artificial delay before touching the medium,
// standing in for a network round-trip, and then performs a full
// read-modify-write of the collection. There is no locking: overlapping
// mutations on the same key race and the last write wins.
package recordstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/stevemurr/mockdb/medium"
)

const (
	// DefaultTimeout is the artificial latency applied to every operation.
	DefaultTimeout = 1500 * time.Millisecond

	// DefaultCapacity is the medium size at which Create refuses to write.
	DefaultCapacity = 5 * 1024 * 1024
)

// ErrStorageFull is returned by Create when the medium is estimated to be
// at or over capacity.
var ErrStorageFull = errors.New("storage is full")

// Store is a single named collection of T.
type Store[T Record] struct {
	medium   medium.Medium
	key      string
	timeout  time.Duration
	delay    func(time.Duration)
	capacity int
	log      *zap.Logger
}

// Option configures a Store.
type Option func(*options)

type options struct {
	timeout  time.Duration
	delay    func(time.Duration)
	capacity int
	log      *zap.Logger
}

// WithTimeout sets the artificial latency.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithDelay replaces the function used to wait out the latency. Tests pass
// a no-op.
func WithDelay(fn func(time.Duration)) Option {
	return func(o *options) { o.delay = fn }
}

// WithCapacity sets the medium usage, in bytes, at which Create fails.
func WithCapacity(n int) Option {
	return func(o *options) { o.capacity = n }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

// New returns a Store for the collection under storageKey.
func New[T Record](m medium.Medium, storageKey string, opts ...Option) *Store[T] {
	o := options{
		timeout:  DefaultTimeout,
		delay:    time.Sleep,
		capacity: DefaultCapacity,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store[T]{
		medium:   m,
		key:      storageKey,
		timeout:  o.timeout,
		delay:    o.delay,
		capacity: o.capacity,
		log:      o.log.With(zap.String("collection", storageKey)),
	}
}

// Key returns the storage key of the collection.
func (s *Store[T]) Key() string {
	return s.key
}

func (s *Store[T]) wait() {
	if s.timeout > 0 {
		s.delay(s.timeout)
	}
}

// load reads the whole collection. An absent key is an empty collection.
func (s *Store[T]) load() ([]T, error) {
	raw, ok, err := s.medium.GetItem(s.key)
	if err != nil {
		return nil, fmt.Errorf("read collection %q: %w", s.key, err)
	}
	if !ok || raw == "" {
		return []T{}, nil
	}
	var items []T
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, fmt.Errorf("decode collection %q: %w", s.key, err)
	}
	if items == nil {
		items = []T{}
	}
	return items, nil
}

// save rewrites the whole collection.
func (s *Store[T]) save(items []T) error {
	b, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode collection %q: %w", s.key, err)
	}
	if err := s.medium.SetItem(s.key, string(b)); err != nil {
		return fmt.Errorf("write collection %q: %w", s.key, err)
	}
	return nil
}

func (s *Store[T]) full() (bool, error) {
	used, err := medium.Usage(s.medium)
	if err != nil {
		return false, fmt.Errorf("measure usage: %w", err)
	}
	return used >= s.capacity, nil
}

func indexOf[T Record](items []T, id string) int {
	for i, item := range items {
		if item.RecordID() == id {
			return i
		}
	}
	return -1
}

// Create appends item to the collection and returns it. Identifiers are not
// checked for uniqueness; a duplicate is appended after the original and is
// shadowed by it for Read, Update and Delete.
//
// The capacity check measures the medium before the write and ignores the
// size of item.
func (s *Store[T]) Create(item T) (T, error) {
	var zero T
	s.wait()

	full, err := s.full()
	if err != nil {
		return zero, err
	}
	if full {
		s.log.Warn("create rejected", zap.String("id", item.RecordID()), zap.Error(ErrStorageFull))
		return zero, ErrStorageFull
	}

	items, err := s.load()
	if err != nil {
		return zero, err
	}
	items = append(items, item)
	if err := s.save(items); err != nil {
		return zero, err
	}
	s.log.Debug("created", zap.String("id", item.RecordID()), zap.Int("size", len(items)))
	return item, nil
}

// Read returns the first record with the given id. ok is false if there is
// none.
func (s *Store[T]) Read(id string) (item T, ok bool, err error) {
	s.wait()
	items, err := s.load()
	if err != nil {
		return item, false, err
	}
	i := indexOf(items, id)
	if i < 0 {
		return item, false, nil
	}
	return items[i], true, nil
}

// Update replaces the first record sharing item's id, keeping its position.
// ok is false, and nothing is written, if no record matches.
func (s *Store[T]) Update(item T) (updated T, ok bool, err error) {
	s.wait()
	items, err := s.load()
	if err != nil {
		return updated, false, err
	}
	i := indexOf(items, item.RecordID())
	if i < 0 {
		return updated, false, nil
	}
	items[i] = item
	if err := s.save(items); err != nil {
		return updated, false, err
	}
	s.log.Debug("updated", zap.String("id", item.RecordID()), zap.Int("index", i))
	return item, true, nil
}

// Modify applies fn to the first record with the given id and writes the
// result back in place, all within one delay and one read-modify-write.
// fn must not change the identifier. ok is false, and nothing is written,
// if no record matches.
func (s *Store[T]) Modify(id string, fn func(*T)) (modified T, ok bool, err error) {
	s.wait()
	items, err := s.load()
	if err != nil {
		return modified, false, err
	}
	i := indexOf(items, id)
	if i < 0 {
		return modified, false, nil
	}
	fn(&items[i])
	if err := s.save(items); err != nil {
		return modified, false, err
	}
	s.log.Debug("modified", zap.String("id", id), zap.Int("index", i))
	return items[i], true, nil
}

// Delete removes the first record with the given id. Returns true if one
// was removed.
func (s *Store[T]) Delete(id string) (bool, error) {
	s.wait()
	items, err := s.load()
	if err != nil {
		return false, err
	}
	i := indexOf(items, id)
	if i < 0 {
		return false, nil
	}
	items = append(items[:i], items[i+1:]...)
	if err := s.save(items); err != nil {
		return false, err
	}
	s.log.Debug("deleted", zap.String("id", id))
	return true, nil
}

// List returns the whole collection in insertion order.
func (s *Store[T]) List() ([]T, error) {
	s.wait()
	return s.load()
}
