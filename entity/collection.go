package entity

import (
	"context"
)

// Collection is a typed view of one entity type of a Store. T is converted to
// and from Records through its JSON encoding, so its json tags name the stored
// fields. T should have fields tagged "id", "createdAt", and "updatedAt" to see
// the values the Store assigns.
type Collection[T any] struct {
	store      *Store
	entityType string
}

// NewCollection returns the Collection of T stored as entityType in store.
func NewCollection[T any](store *Store, entityType string) Collection[T] {
	return Collection[T]{store: store, entityType: entityType}
}

// EntityType returns the entity type the Collection is bound to.
func (c Collection[T]) EntityType() string {
	return c.entityType
}

// Store returns the Store the Collection reads and writes.
func (c Collection[T]) Store() *Store {
	return c.store
}

// All returns every item in stored order.
func (c Collection[T]) All(ctx context.Context) ([]T, error) {
	records, err := c.store.GetAll(ctx, c.entityType)
	if err != nil {
		return nil, err
	}
	return fromRecords[T](records)
}

// Get returns the item with the given id. If there is none, the error is a
// *sms.NotFoundError.
func (c Collection[T]) Get(ctx context.Context, id string) (T, error) {
	r, err := c.store.GetByID(ctx, c.entityType, id)
	if err != nil {
		var zero T
		return zero, err
	}
	return FromRecord[T](r)
}

// Create stores item as a new record and returns it with the id and timestamps
// the Store assigned.
func (c Collection[T]) Create(ctx context.Context, item T) (T, error) {
	var zero T

	r, err := ToRecord(item)
	if err != nil {
		return zero, err
	}

	created, err := c.store.Create(ctx, c.entityType, r)
	if err != nil {
		return zero, err
	}
	return FromRecord[T](created)
}

// Update applies patch to the item with the given id. patch is anything that
// ToRecord accepts; only the fields present in its encoding are changed, so a
// struct patch should use pointer fields tagged omitempty.
func (c Collection[T]) Update(ctx context.Context, id string, patch any) (T, error) {
	var zero T

	p, err := ToRecord(patch)
	if err != nil {
		return zero, err
	}

	updated, err := c.store.Update(ctx, c.entityType, id, p)
	if err != nil {
		return zero, err
	}
	return FromRecord[T](updated)
}

// Delete removes the item with the given id.
func (c Collection[T]) Delete(ctx context.Context, id string) error {
	_, err := c.store.Delete(ctx, c.entityType, id)
	return err
}

// DeleteMany removes all items with the given ids and returns how many were
// removed.
func (c Collection[T]) DeleteMany(ctx context.Context, ids []string) (int, error) {
	res, err := c.store.DeleteMany(ctx, c.entityType, ids)
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// Find returns every item whose record matches f. A nil f matches all.
func (c Collection[T]) Find(ctx context.Context, f Filter) ([]T, error) {
	records, err := c.store.Query(ctx, c.entityType, f)
	if err != nil {
		return nil, err
	}
	return fromRecords[T](records)
}

// FindOne returns the first item whose record matches f.
func (c Collection[T]) FindOne(ctx context.Context, f Filter) (T, bool, error) {
	var zero T

	r, found, err := c.store.FindOne(ctx, c.entityType, f)
	if err != nil || !found {
		return zero, found, err
	}

	item, err := FromRecord[T](r)
	if err != nil {
		return zero, false, err
	}
	return item, true, nil
}

// Count returns the number of items whose record matches f. A nil f counts
// all.
func (c Collection[T]) Count(ctx context.Context, f Filter) (int, error) {
	return c.store.Count(ctx, c.entityType, f)
}

// Records returns the raw records of the Collection.
func (c Collection[T]) Records(ctx context.Context) ([]Record, error) {
	return c.store.GetAll(ctx, c.entityType)
}

// Seed stores defaults only if the Collection is empty. It returns whether
// anything was written.
func (c Collection[T]) Seed(ctx context.Context, defaults []T) (bool, error) {
	records := make([]Record, len(defaults))
	for i := range defaults {
		r, err := ToRecord(defaults[i])
		if err != nil {
			return false, err
		}
		records[i] = r
	}
	return c.store.InitDefaultData(ctx, c.entityType, records)
}

func fromRecords[T any](records []Record) ([]T, error) {
	items := make([]T, len(records))
	for i := range records {
		item, err := FromRecord[T](records[i])
		if err != nil {
			return nil, err
		}
		items[i] = item
	}
	return items, nil
}
