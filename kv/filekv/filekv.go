// Package filekv provides a key-value backend that keeps its entire keyspace in
// memory and writes it to a single file on disk after every change.
//
// Use [Open] to create a [Store] that persists to a file. The file is encoded
// with REZI. Before each write, the previous file is copied to a backup beside
// it with ".bak" appended to its name; the backup is removed once the new data
// has been written successfully.
package filekv

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/dekarrin/rezi/v2"
	"github.com/dekarrin/sms"
)

// Store is a key-value store persisted to a single data file. It is safe for
// concurrent use.
//
// The zero-value is an empty in-memory Store whose changes are not written to
// disk. Store must not be copied once created.
type Store struct {
	// DataFile is the file on disk that the Store writes its data to after
	// every change. It is set automatically when the Store is created with a
	// call to [Open].
	//
	// If set to the empty string, nothing is written to disk.
	DataFile string

	mtx    sync.RWMutex
	closed bool
	items  map[string]string
}

// Open creates a new Store that persists to the given data file. If the file
// already exists, its entire contents are loaded into the returned Store. If it
// does not exist, it is created with an empty keyspace.
//
// If file is the empty string, the Store is opened in in-memory mode.
func Open(file string) (*Store, error) {
	s := &Store{}
	if file == "" {
		return s, nil
	}

	data, err := os.ReadFile(file)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read file: %w", err)
	}

	if err == nil {
		s, err = Import(data)
		if err != nil {
			// a write may have been cut off; fall back to the last good copy
			restored, rErr := RestoreBackup(file)
			if rErr != nil || !restored {
				return nil, fmt.Errorf("load data: %w", err)
			}
			return Open(file)
		}
		s.DataFile = file
	} else {
		// write the empty store now so that a later write failing due to
		// permissions is caught at open time.
		s.DataFile = file
		if err := s.persistUnsafe(); err != nil {
			return nil, fmt.Errorf("create new: %w", err)
		}
	}

	return s, nil
}

// Import loads the given data bytes into a new in-memory Store. The data bytes
// must have been created by a prior call to [Store.Export].
func Import(data []byte) (*Store, error) {
	s := &Store{}

	_, err := rezi.Dec(data, s)
	if err != nil {
		return nil, sms.WrapStorageError(err, sms.ErrDecodingFailure.Error())
	}
	return s, nil
}

// MarshalBinary converts the keyspace to its REZI-encoded bytes.
//
// This function is not concurrent safe and requires a read lock. Callers
// should use [Store.Export] instead.
func (s *Store) MarshalBinary() ([]byte, error) {
	if s == nil {
		return []byte{}, nil
	}

	items := s.items
	if items == nil {
		items = map[string]string{}
	}

	return rezi.Enc(items)
}

// UnmarshalBinary sets the keyspace from bytes created by MarshalBinary.
//
// This function is not concurrent safe and requires a write lock. Callers
// should use [Open] or [Import] instead.
func (s *Store) UnmarshalBinary(data []byte) error {
	if s == nil {
		return fmt.Errorf("cannot unmarshal to nil Store")
	}

	rr, err := rezi.NewReader(bytes.NewBuffer(data), nil)
	if err != nil {
		return err
	}

	var items map[string]string
	err = rr.Dec(&items)
	if err != nil {
		return rezi.Wrapf(0, "items: %s", err)
	}

	if items == nil {
		items = map[string]string{}
	}
	s.items = items
	return nil
}

// Export returns all data as bytes that can be later loaded with [Import].
func (s *Store) Export() ([]byte, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	if s.closed {
		return nil, sms.WrapStorageError(sms.ErrClosed)
	}
	return rezi.Enc(s)
}

// persistUnsafe writes the keyspace to DataFile. It assumes the caller holds
// the write lock.
func (s *Store) persistUnsafe() error {
	if s.DataFile == "" {
		return nil
	}

	buFile, err := createFileBackup(s.DataFile)
	if err != nil {
		if os.IsNotExist(err) {
			buFile = ""
		} else {
			return fmt.Errorf("create backup: %w", err)
		}
	}

	data, err := rezi.Enc(s)
	if err != nil {
		return fmt.Errorf("encode data: %w", err)
	}

	wf, err := os.Create(s.DataFile)
	if err != nil {
		return fmt.Errorf("create data file: %w", err)
	}
	defer wf.Close()

	w := bufio.NewWriter(wf)
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write data file: %w", err)
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("write data file: %w", err)
	}

	if buFile != "" {
		os.Remove(buFile)
	}

	return nil
}

// mutate applies fn to the keyspace and persists the result if fn reports a
// change. If persisting fails, key is restored to what it was before fn was
// applied.
func (s *Store) mutate(ctx context.Context, key string, fn func(items map[string]string) bool) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	if s.closed {
		return sms.WrapStorageError(sms.ErrClosed)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.items == nil {
		s.items = map[string]string{}
	}

	old, existed := s.items[key]
	if !fn(s.items) {
		return nil
	}

	if err := s.persistUnsafe(); err != nil {
		if existed {
			s.items[key] = old
		} else {
			delete(s.items, key)
		}
		return sms.WrapStorageErrorf(err, "persist %q", key)
	}

	return nil
}

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	if s.closed {
		return "", false, sms.WrapStorageError(sms.ErrClosed)
	}
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	v, ok := s.items[key]
	return v, ok, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	return s.mutate(ctx, key, func(items map[string]string) bool {
		items[key] = value
		return true
	})
}

func (s *Store) Remove(ctx context.Context, key string) error {
	return s.mutate(ctx, key, func(items map[string]string) bool {
		if _, ok := items[key]; !ok {
			return false
		}
		delete(items, key)
		return true
	})
}

func (s *Store) Keys(ctx context.Context) ([]string, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	if s.closed {
		return nil, sms.WrapStorageError(sms.ErrClosed)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys, nil
}

// Close ends use of the Store. Every change has already been written to disk,
// so Close only releases the keyspace. After Close returns, the Store cannot be
// used again. Calling Close on a closed Store has no effect.
func (s *Store) Close() error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	s.closed = true
	s.items = nil
	return nil
}

func (s *Store) String() string {
	if s == nil {
		return "filekv.Store<nil>"
	}
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	keyCount := len(s.items)
	keyS := "s"
	if keyCount == 1 {
		keyS = ""
	}

	var sb strings.Builder

	sb.WriteString("filekv.Store<")
	if s.closed {
		sb.WriteString("(CLOSED), ")
	}
	sb.WriteString(fmt.Sprintf("%d key%s", keyCount, keyS))
	if s.DataFile == "" {
		sb.WriteString(", in-memory")
	} else {
		sb.WriteString(fmt.Sprintf(", %q", s.DataFile))
	}
	sb.WriteRune('>')
	return sb.String()
}
