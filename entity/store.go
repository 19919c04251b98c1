// Package entity provides the generic record store that every domain service
// of the school management system persists through. Each entity type ("students",
// "bills", ...) is one collection of Records kept as a JSON array under a single
// key of a kv.Backend.
//
// All writes to one entity type are serialized, so concurrent callers never
// lose an update. Writes that span two entity types are two separate
// operations; a failure between them can leave the collections out of step and
// callers that care must reconcile it themselves.
package entity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dekarrin/sms"
	"github.com/dekarrin/sms/internal/logging"
	"github.com/dekarrin/sms/kv"
)

// Options configures a Store. The zero value gives the default key prefix, no
// latency, timestamp IDs, the system clock, and no logging.
type Options struct {
	// Prefix is prepended to an entity type to get its storage key. Defaults
	// to sms.DefaultKeyPrefix.
	Prefix string

	// Latency is waited before every operation.
	Latency time.Duration

	// IDs generates IDs for records created without one.
	IDs IDGenerator

	// Now is the clock used for createdAt and updatedAt.
	Now func() time.Time

	Log sms.Logger
}

// DeleteResult is the outcome of a successful Delete.
type DeleteResult struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

// DeleteManyResult is the outcome of DeleteMany. DeletedCount is the number of
// records that were actually removed; RequestedCount is the number of IDs that
// were asked for.
type DeleteManyResult struct {
	Success        bool `json:"success"`
	DeletedCount   int  `json:"deletedCount"`
	RequestedCount int  `json:"requestedCount"`
}

// CollectionStat describes the stored state of one entity type.
type CollectionStat struct {
	EntityType string
	Key        string
	Count      int
	Bytes      int
	Corrupt    bool
}

// Store is a collection store over a kv.Backend. It is safe for concurrent use.
// Use New or Open to create one.
type Store struct {
	backend kv.Backend
	prefix  string
	latency time.Duration
	ids     IDGenerator
	now     func() time.Time
	log     sms.Logger

	locksMtx sync.Mutex
	locks    map[string]*sync.RWMutex

	closed atomic.Bool
}

// New creates a Store that persists to backend. opts may be nil.
func New(backend kv.Backend, opts *Options) *Store {
	if opts == nil {
		opts = &Options{}
	}

	s := &Store{
		backend: backend,
		prefix:  opts.Prefix,
		latency: opts.Latency,
		ids:     opts.IDs,
		now:     opts.Now,
		log:     opts.Log,
		locks:   map[string]*sync.RWMutex{},
	}

	if s.prefix == "" {
		s.prefix = sms.DefaultKeyPrefix
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.ids == nil {
		s.ids = TimestampIDs{Now: s.now}
	}
	if s.log == nil {
		s.log = logging.NoOpLogger{}
	}

	return s
}

// Open connects to the backend described by cfg and returns a Store over it.
// Unset values in cfg take their defaults.
func Open(cfg sms.Config, log sms.Logger) (*Store, error) {
	cfg = cfg.FillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, sms.NewError(fmt.Sprintf("invalid config: %s", err.Error()), sms.ErrBadArgument)
	}

	ids, err := GeneratorFor(cfg.IDScheme)
	if err != nil {
		return nil, err
	}

	backend, err := kv.Open(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("connect to %s storage: %w", cfg.Storage.Type, err)
	}

	return New(backend, &Options{
		Prefix:  cfg.KeyPrefix,
		Latency: cfg.Latency(),
		IDs:     ids,
		Log:     logging.WithPrefix(log, "[store]"),
	}), nil
}

// Close closes the Store and its backend. Any further operation fails with an
// error that is sms.ErrClosed.
func (s *Store) Close() error {
	if s.closed.Swap(true) {
		return nil
	}
	return s.backend.Close()
}

// Now returns the current time according to the Store's clock.
func (s *Store) Now() time.Time {
	return s.now()
}

// Key returns the storage key for an entity type.
func (s *Store) Key(entityType string) string {
	return s.prefix + entityType
}

// GetAll returns every record of entityType in stored order. A collection that
// was never written, or whose stored value cannot be decoded, is empty.
func (s *Store) GetAll(ctx context.Context, entityType string) ([]Record, error) {
	records, err := s.read(ctx, "get all", entityType)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// GetByID returns the first record of entityType whose id is id. If there is
// none, the error is a *sms.NotFoundError.
func (s *Store) GetByID(ctx context.Context, entityType, id string) (Record, error) {
	records, err := s.read(ctx, "get", entityType)
	if err != nil {
		return nil, err
	}

	if idx := indexOf(records, id); idx >= 0 {
		return records[idx], nil
	}
	return nil, s.wrap("get", entityType, &sms.NotFoundError{EntityType: entityType, ID: id})
}

// Create appends a new record to entityType and returns it as stored. The id
// of rec is used if set and must not already exist in the collection;
// otherwise one is generated. createdAt and updatedAt are set to now.
func (s *Store) Create(ctx context.Context, entityType string, rec Record) (Record, error) {
	var created Record

	err := s.modify(ctx, "create", entityType, func(records []Record) ([]Record, bool, error) {
		newRec := rec.Clone()
		if newRec == nil {
			newRec = Record{}
		}

		id := newRec.ID()
		if id != "" {
			if indexOf(records, id) >= 0 {
				return nil, false, &sms.ConflictError{EntityType: entityType, ID: id}
			}
		} else {
			var err error
			id, err = s.newID(records)
			if err != nil {
				return nil, false, err
			}
		}
		newRec[FieldID] = id

		ts := FormatTime(s.now())
		newRec[FieldCreatedAt] = ts
		newRec[FieldUpdatedAt] = ts

		norm, err := normalize(newRec)
		if err != nil {
			return nil, false, err
		}

		created = norm
		return append(records, norm.Clone()), true, nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Tracef("created %s %q", entityType, created.ID())
	return created, nil
}

// Update shallowly merges patch over the first record of entityType with the
// given id and returns the result. The record keeps its id whatever patch
// says, and updatedAt is always moved forward. If there is no such record, the
// error is a *sms.NotFoundError.
func (s *Store) Update(ctx context.Context, entityType, id string, patch Record) (Record, error) {
	var updated Record

	err := s.modify(ctx, "update", entityType, func(records []Record) ([]Record, bool, error) {
		idx := indexOf(records, id)
		if idx < 0 {
			return nil, false, &sms.NotFoundError{EntityType: entityType, ID: id}
		}

		existing := records[idx]
		merged := existing.Merge(patch)
		merged[FieldID] = existing[FieldID]
		merged[FieldUpdatedAt] = FormatTime(s.nextUpdatedAt(existing))

		norm, err := normalize(merged)
		if err != nil {
			return nil, false, err
		}

		records[idx] = norm
		updated = norm.Clone()
		return records, true, nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Tracef("updated %s %q", entityType, id)
	return updated, nil
}

// Delete removes every record of entityType with the given id. If there are
// none, the error is a *sms.NotFoundError.
func (s *Store) Delete(ctx context.Context, entityType, id string) (DeleteResult, error) {
	err := s.modify(ctx, "delete", entityType, func(records []Record) ([]Record, bool, error) {
		kept := removeIDs(records, map[string]bool{id: true})
		if len(kept) == len(records) {
			return nil, false, &sms.NotFoundError{EntityType: entityType, ID: id}
		}
		return kept, true, nil
	})
	if err != nil {
		return DeleteResult{}, err
	}

	s.log.Tracef("deleted %s %q", entityType, id)
	return DeleteResult{Success: true, ID: id}, nil
}

// DeleteMany removes every record of entityType whose id is one of ids. IDs
// that match nothing are ignored; the result tells how many were removed.
func (s *Store) DeleteMany(ctx context.Context, entityType string, ids []string) (DeleteManyResult, error) {
	result := DeleteManyResult{Success: true, RequestedCount: len(ids)}

	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}

	err := s.modify(ctx, "delete many", entityType, func(records []Record) ([]Record, bool, error) {
		kept := removeIDs(records, set)
		result.DeletedCount = len(records) - len(kept)
		return kept, result.DeletedCount > 0, nil
	})
	if err != nil {
		return DeleteManyResult{}, err
	}

	s.log.Tracef("deleted %d of %d requested %s", result.DeletedCount, result.RequestedCount, entityType)
	return result, nil
}

// SaveAll replaces the whole collection of entityType with records, exactly as
// given. No ids or timestamps are added.
func (s *Store) SaveAll(ctx context.Context, entityType string, records []Record) error {
	return s.modify(ctx, "save all", entityType, func([]Record) ([]Record, bool, error) {
		if records == nil {
			return []Record{}, true, nil
		}
		return records, true, nil
	})
}

// Query returns every record of entityType that matches f, in stored order. A
// nil f matches every record.
func (s *Store) Query(ctx context.Context, entityType string, f Filter) ([]Record, error) {
	records, err := s.read(ctx, "query", entityType)
	if err != nil {
		return nil, err
	}
	if f == nil {
		return records, nil
	}

	matched := []Record{}
	for _, r := range records {
		if f.Matches(r) {
			matched = append(matched, r)
		}
	}
	return matched, nil
}

// FindOne returns the first record of entityType that matches f. found is false
// if nothing matches; that is not an error.
func (s *Store) FindOne(ctx context.Context, entityType string, f Filter) (rec Record, found bool, err error) {
	records, err := s.read(ctx, "find one", entityType)
	if err != nil {
		return nil, false, err
	}

	for _, r := range records {
		if f == nil || f.Matches(r) {
			return r, true, nil
		}
	}
	return nil, false, nil
}

// Count returns the number of records of entityType that match f, or of all
// records if f is nil.
func (s *Store) Count(ctx context.Context, entityType string, f Filter) (int, error) {
	records, err := s.Query(ctx, entityType, f)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// HasData returns whether entityType has at least one record. It never fails;
// any error reading the collection is logged and reported as no data.
func (s *Store) HasData(ctx context.Context, entityType string) bool {
	records, err := s.read(ctx, "has data", entityType)
	if err != nil {
		s.log.Warnf("has data %s: %s", entityType, err.Error())
		return false
	}
	return len(records) > 0
}

// Clear removes the stored collection of entityType.
func (s *Store) Clear(ctx context.Context, entityType string) error {
	if err := s.begin(ctx, "clear", entityType); err != nil {
		return err
	}

	lock := s.lockFor(entityType)
	lock.Lock()
	defer lock.Unlock()

	if err := s.backend.Remove(ctx, s.Key(entityType)); err != nil {
		return s.wrap("clear", entityType, storageError(err))
	}

	s.log.Debugf("cleared %s", entityType)
	return nil
}

// ClearAll removes every collection stored under the Store's prefix. Keys of
// the backend that do not start with the prefix are left alone.
func (s *Store) ClearAll(ctx context.Context) error {
	types, err := s.EntityTypes(ctx)
	if err != nil {
		return err
	}

	for _, t := range types {
		if err := s.Clear(ctx, t); err != nil {
			return err
		}
	}
	return nil
}

// InitDefaultData saves defaults as the collection of entityType only if that
// collection is currently empty. Defaults missing an id get one generated, and
// missing createdAt or updatedAt are set to now. It returns whether anything
// was written.
//
// A blank id, createdAt, or updatedAt counts as missing.
func (s *Store) InitDefaultData(ctx context.Context, entityType string, defaults []Record) (bool, error) {
	var seeded bool

	err := s.modify(ctx, "init default data", entityType, func(records []Record) ([]Record, bool, error) {
		if len(records) > 0 || len(defaults) == 0 {
			return nil, false, nil
		}

		ts := FormatTime(s.now())
		seed := make([]Record, 0, len(defaults))
		for _, d := range defaults {
			rec := d.Clone()
			if rec == nil {
				rec = Record{}
			}

			id := rec.ID()
			if id == "" {
				var err error
				id, err = s.newID(seed)
				if err != nil {
					return nil, false, err
				}
			} else if indexOf(seed, id) >= 0 {
				return nil, false, &sms.ConflictError{EntityType: entityType, ID: id}
			}
			rec[FieldID] = id

			if idString(rec[FieldCreatedAt]) == "" {
				rec[FieldCreatedAt] = ts
			}
			if idString(rec[FieldUpdatedAt]) == "" {
				rec[FieldUpdatedAt] = ts
			}

			norm, err := normalize(rec)
			if err != nil {
				return nil, false, err
			}
			seed = append(seed, norm)
		}

		seeded = true
		return seed, true, nil
	})
	if err != nil {
		return false, err
	}

	if seeded {
		s.log.Debugf("seeded %s with %d default record(s)", entityType, len(defaults))
	}
	return seeded, nil
}

// EntityTypes returns the entity types that have a stored collection, sorted.
func (s *Store) EntityTypes(ctx context.Context) ([]string, error) {
	if err := s.begin(ctx, "list", "entity types"); err != nil {
		return nil, err
	}

	keys, err := s.backend.Keys(ctx)
	if err != nil {
		return nil, s.wrap("list", "entity types", storageError(err))
	}

	types := []string{}
	for _, k := range keys {
		if strings.HasPrefix(k, s.prefix) && len(k) > len(s.prefix) {
			types = append(types, strings.TrimPrefix(k, s.prefix))
		}
	}
	sort.Strings(types)
	return types, nil
}

// Stat reports the stored size and record count of entityType.
func (s *Store) Stat(ctx context.Context, entityType string) (CollectionStat, error) {
	st := CollectionStat{EntityType: entityType, Key: s.Key(entityType)}

	if err := s.begin(ctx, "stat", entityType); err != nil {
		return st, err
	}

	lock := s.lockFor(entityType)
	lock.RLock()
	defer lock.RUnlock()

	raw, ok, err := s.backend.Get(ctx, st.Key)
	if err != nil {
		return st, s.wrap("stat", entityType, storageError(err))
	}
	if !ok {
		return st, nil
	}

	records, decodeErr := decodeCollection(raw)
	st.Bytes = len(raw)
	st.Count = len(records)
	st.Corrupt = decodeErr != nil
	return st, nil
}

// begin performs the checks and artificial wait that precede every operation.
func (s *Store) begin(ctx context.Context, op, entityType string) error {
	if s.closed.Load() {
		return s.wrap(op, entityType, sms.ErrClosed)
	}
	if entityType == "" {
		return s.wrap(op, "", sms.NewError("entity type must not be empty", sms.ErrBadArgument))
	}

	s.log.Tracef("%s %s", op, entityType)

	if s.latency <= 0 {
		if err := ctx.Err(); err != nil {
			return s.wrap(op, entityType, err)
		}
		return nil
	}

	timer := time.NewTimer(s.latency)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return s.wrap(op, entityType, ctx.Err())
	}
}

// read loads the collection of entityType under its read lock.
func (s *Store) read(ctx context.Context, op, entityType string) ([]Record, error) {
	if err := s.begin(ctx, op, entityType); err != nil {
		return nil, err
	}

	lock := s.lockFor(entityType)
	lock.RLock()
	defer lock.RUnlock()

	records, err := s.load(ctx, entityType)
	if err != nil {
		return nil, s.wrap(op, entityType, err)
	}
	return records, nil
}

// modify runs one read-modify-write cycle on the collection of entityType while
// holding its write lock. fn receives the current records and returns the new
// ones, whether they need to be saved, and any error.
func (s *Store) modify(ctx context.Context, op, entityType string, fn func(records []Record) ([]Record, bool, error)) error {
	if err := s.begin(ctx, op, entityType); err != nil {
		return err
	}

	lock := s.lockFor(entityType)
	lock.Lock()
	defer lock.Unlock()

	records, err := s.load(ctx, entityType)
	if err != nil {
		return s.wrap(op, entityType, err)
	}

	newRecords, changed, err := fn(records)
	if err != nil {
		return s.wrap(op, entityType, err)
	}
	if !changed {
		return nil
	}

	if err := s.save(ctx, entityType, newRecords); err != nil {
		return s.wrap(op, entityType, err)
	}
	return nil
}

// load must be called with the entity type's lock held.
func (s *Store) load(ctx context.Context, entityType string) ([]Record, error) {
	raw, ok, err := s.backend.Get(ctx, s.Key(entityType))
	if err != nil {
		return nil, storageError(err)
	}
	if !ok {
		return []Record{}, nil
	}

	records, err := decodeCollection(raw)
	if err != nil {
		s.log.Warnf("stored %s collection is corrupt; treating as empty: %s", entityType, err.Error())
		return []Record{}, nil
	}
	return records, nil
}

// save must be called with the entity type's write lock held.
func (s *Store) save(ctx context.Context, entityType string, records []Record) error {
	if records == nil {
		records = []Record{}
	}

	data, err := json.Marshal(records)
	if err != nil {
		return sms.NewError(fmt.Sprintf("records are not JSON-encodable: %s", err.Error()), sms.ErrBadArgument)
	}

	if err := s.backend.Set(ctx, s.Key(entityType), string(data)); err != nil {
		return storageError(err)
	}
	return nil
}

func (s *Store) lockFor(entityType string) *sync.RWMutex {
	s.locksMtx.Lock()
	defer s.locksMtx.Unlock()

	lock, ok := s.locks[entityType]
	if !ok {
		lock = &sync.RWMutex{}
		s.locks[entityType] = lock
	}
	return lock
}

func (s *Store) newID(existing []Record) (string, error) {
	for i := 0; i < maxIDAttempts; i++ {
		id, err := s.ids.NewID()
		if err != nil {
			return "", err
		}
		if indexOf(existing, id) < 0 {
			return id, nil
		}
	}
	return "", fmt.Errorf("could not generate a unique ID after %d attempts", maxIDAttempts)
}

// nextUpdatedAt gives the updatedAt for a new revision of rec, which is now
// unless that would not be after the current updatedAt.
func (s *Store) nextUpdatedAt(rec Record) time.Time {
	now := s.now().UTC().Truncate(time.Millisecond)
	if prev, ok := rec.UpdatedAt(); ok && !now.After(prev) {
		now = prev.UTC().Truncate(time.Millisecond).Add(time.Millisecond)
	}
	return now
}

func (s *Store) wrap(op, entityType string, err error) error {
	return sms.NewError(strings.TrimSpace(op+" "+entityType), err)
}

// decodeCollection decodes a stored collection. Null entries are dropped. An
// error is returned if raw is not a JSON array of objects.
func decodeCollection(raw string) ([]Record, error) {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(items))
	for i := range items {
		var r Record
		if err := json.Unmarshal(items[i], &r); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		if r == nil {
			continue
		}
		records = append(records, r)
	}
	return records, nil
}

func storageError(err error) error {
	if errors.Is(err, sms.ErrStorage) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return sms.WrapStorageError(err)
}

func indexOf(records []Record, id string) int {
	for i := range records {
		if records[i].ID() == id {
			return i
		}
	}
	return -1
}

func removeIDs(records []Record, ids map[string]bool) []Record {
	kept := make([]Record, 0, len(records))
	for _, r := range records {
		if !ids[r.ID()] {
			kept = append(kept, r)
		}
	}
	return kept
}
