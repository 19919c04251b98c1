// Package inmem provides a key-value backend held entirely in memory.
package inmem

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dekarrin/sms"
)

// ErrQuotaExceeded is returned by Set when storing a value would take the
// Store over its MaxBytes.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// Store is an in-memory key-value store. It is safe for concurrent use.
//
// Its zero-value should not be used; call New to get a Store ready for use.
type Store struct {
	// MaxBytes limits the total size of all keys and values held. Zero or
	// less means no limit.
	MaxBytes int

	mtx    sync.RWMutex
	closed bool
	items  map[string]string
	size   int
}

// New creates a new empty Store with no size limit.
func New() *Store {
	return &Store{items: map[string]string{}}
}

func (s *Store) check(ctx context.Context) error {
	if s.closed {
		return sms.WrapStorageError(sms.ErrClosed)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	if err := s.check(ctx); err != nil {
		return "", false, err
	}

	v, ok := s.items[key]
	return v, ok, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if err := s.check(ctx); err != nil {
		return err
	}

	newSize := s.size + len(value)
	if old, ok := s.items[key]; ok {
		newSize -= len(old)
	} else {
		newSize += len(key)
	}

	if s.MaxBytes > 0 && newSize > s.MaxBytes {
		return sms.WrapStorageErrorf(ErrQuotaExceeded, "set %q: %d bytes over limit of %d", key, newSize-s.MaxBytes, s.MaxBytes)
	}

	if s.items == nil {
		s.items = map[string]string{}
	}
	s.items[key] = value
	s.size = newSize
	return nil
}

func (s *Store) Remove(ctx context.Context, key string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if err := s.check(ctx); err != nil {
		return err
	}

	if old, ok := s.items[key]; ok {
		s.size -= len(key) + len(old)
		delete(s.items, key)
	}
	return nil
}

func (s *Store) Keys(ctx context.Context) ([]string, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	if err := s.check(ctx); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Size returns the total number of bytes of keys and values held.
func (s *Store) Size() int {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return s.size
}

// Close marks the Store as closed and drops its contents. Calling Close more
// than once has no effect.
func (s *Store) Close() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.closed = true
	s.items = nil
	s.size = 0
	return nil
}

func (s *Store) String() string {
	if s == nil {
		return "inmem.Store<nil>"
	}
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	if s.closed {
		return "inmem.Store<(CLOSED)>"
	}
	return fmt.Sprintf("inmem.Store<%d keys, %d bytes>", len(s.items), s.size)
}
