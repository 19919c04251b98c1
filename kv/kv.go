// Package kv defines the key-value substrate that entity collections are
// persisted to, along with connection to the configured backend.
package kv

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/dekarrin/sms"
	"github.com/dekarrin/sms/kv/filekv"
	"github.com/dekarrin/sms/kv/inmem"
	"github.com/dekarrin/sms/kv/sqlite"
)

// Backend is a string-to-string key-value store. Implementations must be safe
// for concurrent use. Every method of a Backend that has been closed returns
// an error that is sms.ErrClosed.
type Backend interface {
	// Get returns the value stored at key. ok is false if there is no value
	// for key; this is not an error.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set stores value at key, replacing any existing value.
	Set(ctx context.Context, key, value string) error

	// Remove deletes key. Removing a key that does not exist is not an error.
	Remove(ctx context.Context, key string) error

	// Keys returns every key currently stored, in ascending order.
	Keys(ctx context.Context) ([]string, error)

	// Close releases all resources held by the Backend.
	Close() error
}

// Connector opens a Backend for a Storage config.
type Connector func(sms.Storage) (Backend, error)

// Registry holds registered Connectors for each StorageType.
//
// The zero value can be immediately used and will have the built-in
// connectors available. This can be disabled by setting DisableDefaults to
// true before attempting to use it.
type Registry struct {
	DisableDefaults bool

	mtx sync.Mutex
	reg map[sms.StorageType]Connector
}

func (r *Registry) initDefaults() {
	if r.reg != nil {
		return
	}

	r.reg = map[sms.StorageType]Connector{}
	if r.DisableDefaults {
		return
	}

	r.reg[sms.StorageInMemory] = func(sms.Storage) (Backend, error) {
		return inmem.New(), nil
	}
	r.reg[sms.StorageSQLite] = func(st sms.Storage) (Backend, error) {
		err := os.MkdirAll(st.Dir, 0770)
		if err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}

		store, err := sqlite.Open(st.Dir)
		if err != nil {
			return nil, fmt.Errorf("initialize sqlite: %w", err)
		}
		return store, nil
	}
	r.reg[sms.StorageFile] = func(st sms.Storage) (Backend, error) {
		err := os.MkdirAll(st.Dir, 0770)
		if err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}

		file := st.File
		if file == "" {
			file = sms.DefaultStorageFile
		}

		store, err := filekv.Open(filepath.Join(st.Dir, file))
		if err != nil {
			return nil, fmt.Errorf("initialize file store: %w", err)
		}
		return store, nil
	}
}

// Register sets the Connector used for the given StorageType. Registering a
// type that already has a Connector replaces it.
func (r *Registry) Register(t sms.StorageType, connector Connector) error {
	if connector == nil {
		return fmt.Errorf("connector function cannot be nil")
	}
	if t == sms.StorageNone || t == "" {
		return fmt.Errorf("cannot register connector for %q storage", t)
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.initDefaults()

	r.reg[t] = connector
	return nil
}

// List returns an alphabetized list of all StorageTypes with a registered
// Connector.
func (r *Registry) List() []sms.StorageType {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	r.initDefaults()

	types := make([]sms.StorageType, 0, len(r.reg))
	for t := range r.reg {
		types = append(types, t)
	}

	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// Connect validates st and opens a Backend for it with the registered
// Connector.
func (r *Registry) Connect(st sms.Storage) (Backend, error) {
	if err := st.Validate(); err != nil {
		return nil, err
	}

	r.mtx.Lock()
	r.initDefaults()
	connector, ok := r.reg[st.Type]
	r.mtx.Unlock()

	if !ok {
		return nil, fmt.Errorf("%q storage has no registered connector", st.Type)
	}

	return connector(st)
}

var defaultRegistry = &Registry{}

// Open connects to the Backend described by st using the built-in connectors.
func Open(st sms.Storage) (Backend, error) {
	return defaultRegistry.Connect(st)
}
