package entity

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/dekarrin/sms"
	"github.com/dekarrin/sms/kv/inmem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testClock is a clock that only moves when told to.
type testClock struct {
	mtx sync.Mutex
	t   time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2024, time.September, 2, 8, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mtx.Lock()
	defer c.mtx.Unlock()
	c.t = c.t.Add(d)
}

// seqIDs hands out "id1", "id2", ... or the values in queue first.
type seqIDs struct {
	mtx   sync.Mutex
	n     int
	queue []string
}

func (g *seqIDs) NewID() (string, error) {
	g.mtx.Lock()
	defer g.mtx.Unlock()
	if len(g.queue) > 0 {
		id := g.queue[0]
		g.queue = g.queue[1:]
		return id, nil
	}
	g.n++
	return fmt.Sprintf("id%d", g.n), nil
}

// failingBackend fails every call with err.
type failingBackend struct {
	err error
}

func (b failingBackend) Get(context.Context, string) (string, bool, error) { return "", false, b.err }
func (b failingBackend) Set(context.Context, string, string) error         { return b.err }
func (b failingBackend) Remove(context.Context, string) error              { return b.err }
func (b failingBackend) Keys(context.Context) ([]string, error)            { return nil, b.err }
func (b failingBackend) Close() error                                      { return nil }

func newTestStore(t *testing.T) (*Store, *inmem.Store, *testClock) {
	backend := inmem.New()
	clock := newTestClock()
	s := New(backend, &Options{Now: clock.Now, IDs: &seqIDs{}})
	t.Cleanup(func() { s.Close() })
	return s, backend, clock
}

func Test_Store_GetAll(t *testing.T) {
	testCases := []struct {
		name   string
		stored *string
		expect []Record
	}{
		{
			name:   "never written",
			expect: []Record{},
		},
		{
			name:   "empty array",
			stored: ptr("[]"),
			expect: []Record{},
		},
		{
			name:   "null",
			stored: ptr("null"),
			expect: []Record{},
		},
		{
			name:   "records in stored order",
			stored: ptr(`[{"id":"b","n":1},{"id":"a","n":2}]`),
			expect: []Record{{"id": "b", "n": 1.0}, {"id": "a", "n": 2.0}},
		},
		{
			name:   "null entries dropped",
			stored: ptr(`[{"id":"a"},null]`),
			expect: []Record{{"id": "a"}},
		},
		{
			name:   "not JSON",
			stored: ptr("{{{ not json"),
			expect: []Record{},
		},
		{
			name:   "not an array",
			stored: ptr(`{"id":"a"}`),
			expect: []Record{},
		},
		{
			name:   "array of non-objects",
			stored: ptr(`[1, 2, 3]`),
			expect: []Record{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			ctx := context.Background()
			s, backend, _ := newTestStore(t)

			if tc.stored != nil {
				require.NoError(t, backend.Set(ctx, "sms_students", *tc.stored))
			}

			actual, err := s.GetAll(ctx, "students")

			assert.NoError(err)
			assert.Equal(tc.expect, actual)
		})
	}
}

func Test_Store_Create(t *testing.T) {
	t.Run("assigns id and timestamps", func(t *testing.T) {
		assert := assert.New(t)
		ctx := context.Background()
		s, _, _ := newTestStore(t)

		actual, err := s.Create(ctx, "students", Record{"firstName": "Ama", "surname": "Owusu"})
		if !assert.NoError(err) {
			return
		}

		assert.Equal(Record{
			"id":        "id1",
			"firstName": "Ama",
			"surname":   "Owusu",
			"createdAt": "2024-09-02T08:00:00.000Z",
			"updatedAt": "2024-09-02T08:00:00.000Z",
		}, actual)
		assert.NotContains(actual, "status")
	})

	t.Run("caller id wins", func(t *testing.T) {
		assert := assert.New(t)
		ctx := context.Background()
		s, _, _ := newTestStore(t)

		actual, err := s.Create(ctx, "classes", Record{"id": "basic-1", "name": "Basic 1"})

		assert.NoError(err)
		assert.Equal("basic-1", actual["id"])
	})

	t.Run("non-string caller id is stored as string", func(t *testing.T) {
		assert := assert.New(t)
		ctx := context.Background()
		s, _, _ := newTestStore(t)

		actual, err := s.Create(ctx, "classes", Record{"id": 12})

		assert.NoError(err)
		assert.Equal("12", actual["id"])
	})

	t.Run("numbers come back as float64", func(t *testing.T) {
		assert := assert.New(t)
		ctx := context.Background()
		s, _, _ := newTestStore(t)

		actual, err := s.Create(ctx, "bills", Record{"total": 150})

		assert.NoError(err)
		assert.Equal(150.0, actual["total"])
	})

	t.Run("duplicate caller id is a conflict", func(t *testing.T) {
		assert := assert.New(t)
		ctx := context.Background()
		s, _, _ := newTestStore(t)

		_, err := s.Create(ctx, "students", Record{"id": "STU0001", "firstName": "Ama"})
		require.NoError(t, err)

		_, err = s.Create(ctx, "students", Record{"id": "STU0001", "firstName": "Kofi"})

		assert.ErrorIs(err, sms.ErrConflict)
		var conflict *sms.ConflictError
		if assert.ErrorAs(err, &conflict) {
			assert.Equal("students", conflict.EntityType)
			assert.Equal("STU0001", conflict.ID)
		}

		all, err := s.GetAll(ctx, "students")
		assert.NoError(err)
		assert.Len(all, 1)
		assert.Equal("Ama", all[0]["firstName"])
	})

	t.Run("generated id collision is retried", func(t *testing.T) {
		assert := assert.New(t)
		ctx := context.Background()
		backend := inmem.New()
		ids := &seqIDs{queue: []string{"x", "x", "y"}}
		s := New(backend, &Options{IDs: ids})

		first, err := s.Create(ctx, "news", Record{})
		require.NoError(t, err)
		second, err := s.Create(ctx, "news", Record{})
		require.NoError(t, err)

		assert.Equal("x", first.ID())
		assert.Equal("y", second.ID())
	})

	t.Run("generator that only collides gives up", func(t *testing.T) {
		assert := assert.New(t)
		ctx := context.Background()
		queue := make([]string, maxIDAttempts+1)
		for i := range queue {
			queue[i] = "same"
		}
		s := New(inmem.New(), &Options{IDs: &seqIDs{queue: queue}})

		_, err := s.Create(ctx, "news", Record{})
		require.NoError(t, err)
		_, err = s.Create(ctx, "news", Record{})

		assert.Error(err)
	})

	t.Run("unencodable record", func(t *testing.T) {
		assert := assert.New(t)
		ctx := context.Background()
		s, _, _ := newTestStore(t)

		_, err := s.Create(ctx, "students", Record{"fn": func() {}})

		assert.ErrorIs(err, sms.ErrBadArgument)
	})

	t.Run("caller record is not modified", func(t *testing.T) {
		assert := assert.New(t)
		ctx := context.Background()
		s, _, _ := newTestStore(t)

		input := Record{"firstName": "Ama"}
		_, err := s.Create(ctx, "students", input)

		assert.NoError(err)
		assert.Equal(Record{"firstName": "Ama"}, input)
	})

	t.Run("empty entity type", func(t *testing.T) {
		assert := assert.New(t)
		ctx := context.Background()
		s, _, _ := newTestStore(t)

		_, err := s.Create(ctx, "", Record{})

		assert.ErrorIs(err, sms.ErrBadArgument)
	})
}

func Test_Store_roundTrip(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := New(inmem.New(), nil)

	created, err := s.Create(ctx, "staff", Record{
		"firstName": "Kwame",
		"salary":    2500.5,
		"subjects":  []any{"Maths", "Science"},
		"address":   map[string]any{"town": "Kumasi"},
	})
	if !assert.NoError(err) {
		return
	}

	actual, err := s.GetByID(ctx, "staff", created.ID())

	assert.NoError(err)
	assert.Equal(created, actual)
}

func Test_Store_GetByID_notFound(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s, _, _ := newTestStore(t)

	_, err := s.GetByID(ctx, "students", "nope")

	assert.ErrorIs(err, sms.ErrNotFound)
	var nf *sms.NotFoundError
	if assert.ErrorAs(err, &nf) {
		assert.Equal("students", nf.EntityType)
		assert.Equal("nope", nf.ID)
	}
	assert.Contains(err.Error(), "get students")
}

func Test_Store_Update(t *testing.T) {
	t.Run("shallow merge", func(t *testing.T) {
		assert := assert.New(t)
		ctx := context.Background()
		s, _, clock := newTestStore(t)

		created, err := s.Create(ctx, "things", Record{"a": 1, "b": 2})
		require.NoError(t, err)
		clock.Advance(5 * time.Second)

		actual, err := s.Update(ctx, "things", created.ID(), Record{"b": 3})
		if !assert.NoError(err) {
			return
		}

		assert.Equal(1.0, actual["a"])
		assert.Equal(3.0, actual["b"])
		assert.Equal(created.ID(), actual.ID())
		assert.Equal(created["createdAt"], actual["createdAt"])
		assert.Equal("2024-09-02T08:00:05.000Z", actual["updatedAt"])

		stored, err := s.GetByID(ctx, "things", created.ID())
		assert.NoError(err)
		assert.Equal(actual, stored)
	})

	t.Run("id cannot be changed", func(t *testing.T) {
		assert := assert.New(t)
		ctx := context.Background()
		s, _, _ := newTestStore(t)

		created, err := s.Create(ctx, "things", Record{"a": 1})
		require.NoError(t, err)

		actual, err := s.Update(ctx, "things", created.ID(), Record{"id": "hijack", "updatedAt": "1999-01-01T00:00:00.000Z"})

		assert.NoError(err)
		assert.Equal(created.ID(), actual.ID())
		assert.NotEqual("1999-01-01T00:00:00.000Z", actual["updatedAt"])

		_, err = s.GetByID(ctx, "things", "hijack")
		assert.ErrorIs(err, sms.ErrNotFound)
	})

	t.Run("updatedAt strictly increases when clock has not moved", func(t *testing.T) {
		assert := assert.New(t)
		ctx := context.Background()
		s, _, _ := newTestStore(t)

		created, err := s.Create(ctx, "things", Record{"a": 1})
		require.NoError(t, err)

		first, err := s.Update(ctx, "things", created.ID(), Record{"a": 2})
		require.NoError(t, err)
		second, err := s.Update(ctx, "things", created.ID(), Record{"a": 3})
		require.NoError(t, err)

		assert.Equal("2024-09-02T08:00:00.001Z", first["updatedAt"])
		assert.Equal("2024-09-02T08:00:00.002Z", second["updatedAt"])
	})

	t.Run("not found", func(t *testing.T) {
		assert := assert.New(t)
		ctx := context.Background()
		s, _, _ := newTestStore(t)

		_, err := s.Update(ctx, "things", "missing", Record{"a": 1})

		assert.ErrorIs(err, sms.ErrNotFound)
	})
}

func Test_Store_Delete(t *testing.T) {
	t.Run("removes exactly the target", func(t *testing.T) {
		assert := assert.New(t)
		ctx := context.Background()
		s, _, _ := newTestStore(t)

		x, err := s.Create(ctx, "students", Record{"n": "X"})
		require.NoError(t, err)
		y, err := s.Create(ctx, "students", Record{"n": "Y"})
		require.NoError(t, err)

		res, err := s.Delete(ctx, "students", x.ID())
		if !assert.NoError(err) {
			return
		}
		assert.Equal(DeleteResult{Success: true, ID: x.ID()}, res)

		all, err := s.GetAll(ctx, "students")
		assert.NoError(err)
		assert.Equal([]Record{y}, all)

		_, err = s.GetByID(ctx, "students", x.ID())
		assert.ErrorIs(err, sms.ErrNotFound)
	})

	t.Run("removes every record with the id", func(t *testing.T) {
		assert := assert.New(t)
		ctx := context.Background()
		s, _, _ := newTestStore(t)

		require.NoError(t, s.SaveAll(ctx, "students", []Record{{"id": "dup"}, {"id": "keep"}, {"id": "dup"}}))

		_, err := s.Delete(ctx, "students", "dup")
		assert.NoError(err)

		all, err := s.GetAll(ctx, "students")
		assert.NoError(err)
		assert.Equal([]Record{{"id": "keep"}}, all)
	})

	t.Run("not found", func(t *testing.T) {
		assert := assert.New(t)
		ctx := context.Background()
		s, _, _ := newTestStore(t)

		_, err := s.Delete(ctx, "students", "ghost")

		assert.ErrorIs(err, sms.ErrNotFound)
	})
}

func Test_Store_DeleteMany(t *testing.T) {
	testCases := []struct {
		name       string
		ids        []string
		expect     DeleteManyResult
		expectLeft []string
	}{
		{
			name:       "all present",
			ids:        []string{"a", "c"},
			expect:     DeleteManyResult{Success: true, DeletedCount: 2, RequestedCount: 2},
			expectLeft: []string{"b"},
		},
		{
			name:       "some unknown",
			ids:        []string{"a", "zz", "yy"},
			expect:     DeleteManyResult{Success: true, DeletedCount: 1, RequestedCount: 3},
			expectLeft: []string{"b", "c"},
		},
		{
			name:       "none present",
			ids:        []string{"zz"},
			expect:     DeleteManyResult{Success: true, DeletedCount: 0, RequestedCount: 1},
			expectLeft: []string{"a", "b", "c"},
		},
		{
			name:       "no ids",
			ids:        nil,
			expect:     DeleteManyResult{Success: true},
			expectLeft: []string{"a", "b", "c"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			ctx := context.Background()
			s, _, _ := newTestStore(t)
			require.NoError(t, s.SaveAll(ctx, "payments", []Record{{"id": "a"}, {"id": "b"}, {"id": "c"}}))

			actual, err := s.DeleteMany(ctx, "payments", tc.ids)
			if !assert.NoError(err) {
				return
			}

			assert.Equal(tc.expect, actual)

			all, err := s.GetAll(ctx, "payments")
			assert.NoError(err)
			left := make([]string, len(all))
			for i := range all {
				left[i] = all[i].ID()
			}
			assert.Equal(tc.expectLeft, left)
		})
	}
}

func Test_Store_SaveAll(t *testing.T) {
	t.Run("stored verbatim", func(t *testing.T) {
		assert := assert.New(t)
		ctx := context.Background()
		s, backend, _ := newTestStore(t)

		err := s.SaveAll(ctx, "subjects", []Record{{"name": "Maths"}, {"id": "eng", "name": "English"}})
		if !assert.NoError(err) {
			return
		}

		raw, ok, err := backend.Get(ctx, "sms_subjects")
		assert.NoError(err)
		assert.True(ok)
		assert.JSONEq(`[{"name":"Maths"},{"id":"eng","name":"English"}]`, raw)
	})

	t.Run("nil saves an empty array", func(t *testing.T) {
		assert := assert.New(t)
		ctx := context.Background()
		s, backend, _ := newTestStore(t)

		assert.NoError(s.SaveAll(ctx, "subjects", nil))

		raw, _, err := backend.Get(ctx, "sms_subjects")
		assert.NoError(err)
		assert.Equal("[]", raw)
	})
}

func Test_Store_Query(t *testing.T) {
	records := []Record{
		{"id": "1", "status": "active", "class": "Basic 1"},
		{"id": "2", "status": "inactive", "class": "Basic 1"},
		{"id": "3", "status": "active", "class": "Basic 2"},
		{"id": "4", "status": "graduated"},
		{"id": "5", "status": "active", "class": "Basic 1"},
	}

	testCases := []struct {
		name      string
		filter    Filter
		expectIDs []string
	}{
		{
			name:      "nil filter",
			filter:    nil,
			expectIDs: []string{"1", "2", "3", "4", "5"},
		},
		{
			name:      "single field",
			filter:    Where{"status": Equals("active")},
			expectIDs: []string{"1", "3", "5"},
		},
		{
			name:      "two fields",
			filter:    Where{"status": Equals("active"), "class": Equals("Basic 1")},
			expectIDs: []string{"1", "5"},
		},
		{
			name:      "missing field",
			filter:    Where{"class": IsNull()},
			expectIDs: []string{"4"},
		},
		{
			name:      "func",
			filter:    Func(func(r Record) bool { return r.ID() > "3" }),
			expectIDs: []string{"4", "5"},
		},
		{
			name:      "nothing matches",
			filter:    Where{"status": Equals("expelled")},
			expectIDs: []string{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)
			ctx := context.Background()
			s, _, _ := newTestStore(t)
			require.NoError(t, s.SaveAll(ctx, "students", records))

			actual, err := s.Query(ctx, "students", tc.filter)
			if !assert.NoError(err) {
				return
			}

			ids := make([]string, len(actual))
			for i := range actual {
				ids[i] = actual[i].ID()
				if tc.filter != nil {
					assert.True(tc.filter.Matches(actual[i]))
				}
			}
			assert.Equal(tc.expectIDs, ids)
		})
	}
}

func Test_Store_FindOne(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s, _, _ := newTestStore(t)
	require.NoError(t, s.SaveAll(ctx, "staff", []Record{
		{"id": "1", "role": "non-teaching"},
		{"id": "2", "role": "teaching"},
		{"id": "3", "role": "teaching"},
	}))

	found, ok, err := s.FindOne(ctx, "staff", Where{"role": Equals("teaching")})
	assert.NoError(err)
	assert.True(ok)
	assert.Equal("2", found.ID())

	missing, ok, err := s.FindOne(ctx, "staff", Where{"role": Equals("janitor")})
	assert.NoError(err)
	assert.False(ok)
	assert.Nil(missing)
}

func Test_Store_Count(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s, _, _ := newTestStore(t)
	require.NoError(t, s.SaveAll(ctx, "students", []Record{
		{"id": "1", "status": "active"},
		{"id": "2", "status": "inactive"},
		{"id": "3", "status": "active"},
		{"id": "4", "status": "inactive"},
		{"id": "5", "status": "graduated"},
	}))

	all, err := s.Count(ctx, "students", nil)
	assert.NoError(err)
	assert.Equal(5, all)

	active, err := s.Count(ctx, "students", Func(func(r Record) bool { return r["status"] == "active" }))
	assert.NoError(err)
	assert.Equal(2, active)
}

func Test_Store_corruptCollection(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s, backend, _ := newTestStore(t)
	require.NoError(t, backend.Set(ctx, "sms_students", "<<corrupt>>"))

	all, err := s.GetAll(ctx, "students")
	assert.NoError(err)
	assert.Empty(all)

	n, err := s.Count(ctx, "students", nil)
	assert.NoError(err)
	assert.Equal(0, n)

	assert.False(s.HasData(ctx, "students"))

	// writing starts over from empty
	created, err := s.Create(ctx, "students", Record{"firstName": "Ama"})
	assert.NoError(err)
	all, err = s.GetAll(ctx, "students")
	assert.NoError(err)
	assert.Equal([]Record{created}, all)
}

func Test_Store_HasData(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s, _, _ := newTestStore(t)

	assert.False(s.HasData(ctx, "news"))

	_, err := s.Create(ctx, "news", Record{"title": "Speech day"})
	require.NoError(t, err)

	assert.True(s.HasData(ctx, "news"))
	assert.False(s.HasData(ctx, "reminders"))
}

func Test_Store_HasData_backendFailure(t *testing.T) {
	assert := assert.New(t)

	s := New(failingBackend{err: errors.New("disk on fire")}, nil)

	assert.False(s.HasData(context.Background(), "news"))
}

func Test_Store_Clear(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s, backend, _ := newTestStore(t)
	require.NoError(t, s.SaveAll(ctx, "news", []Record{{"id": "1"}}))
	require.NoError(t, s.SaveAll(ctx, "staff", []Record{{"id": "1"}}))

	assert.NoError(s.Clear(ctx, "news"))

	keys, err := backend.Keys(ctx)
	assert.NoError(err)
	assert.Equal([]string{"sms_staff"}, keys)

	// clearing again is fine
	assert.NoError(s.Clear(ctx, "news"))
}

func Test_Store_ClearAll(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s, backend, _ := newTestStore(t)
	require.NoError(t, s.SaveAll(ctx, "news", []Record{{"id": "1"}}))
	require.NoError(t, s.SaveAll(ctx, "staff", []Record{{"id": "1"}}))
	require.NoError(t, backend.Set(ctx, "other_app", "keep me"))

	assert.NoError(s.ClearAll(ctx))

	keys, err := backend.Keys(ctx)
	assert.NoError(err)
	assert.Equal([]string{"other_app"}, keys)
}

func Test_Store_InitDefaultData(t *testing.T) {
	t.Run("idempotent", func(t *testing.T) {
		assert := assert.New(t)
		ctx := context.Background()
		s, _, _ := newTestStore(t)
		defaults := []Record{{"id": "basic-1", "name": "Basic 1"}, {"id": "basic-2", "name": "Basic 2"}}

		seeded, err := s.InitDefaultData(ctx, "classes", defaults)
		assert.NoError(err)
		assert.True(seeded)

		seeded, err = s.InitDefaultData(ctx, "classes", defaults)
		assert.NoError(err)
		assert.False(seeded)

		all, err := s.GetAll(ctx, "classes")
		assert.NoError(err)
		assert.Len(all, 2)
	})

	t.Run("fills in missing fields only", func(t *testing.T) {
		assert := assert.New(t)
		ctx := context.Background()
		s, _, _ := newTestStore(t)

		_, err := s.InitDefaultData(ctx, "subjects", []Record{
			{"name": "Maths"},
			{"id": "eng", "name": "English", "createdAt": "2020-01-01T00:00:00.000Z", "updatedAt": ""},
		})
		require.NoError(t, err)

		all, err := s.GetAll(ctx, "subjects")
		if !assert.NoError(err) || !assert.Len(all, 2) {
			return
		}

		assert.Equal("id1", all[0].ID())
		assert.Equal("2024-09-02T08:00:00.000Z", all[0]["createdAt"])
		assert.Equal("eng", all[1].ID())
		assert.Equal("2020-01-01T00:00:00.000Z", all[1]["createdAt"])
		assert.Equal("2024-09-02T08:00:00.000Z", all[1]["updatedAt"])
	})

	t.Run("non-empty collection is untouched", func(t *testing.T) {
		assert := assert.New(t)
		ctx := context.Background()
		s, _, _ := newTestStore(t)
		_, err := s.Create(ctx, "classes", Record{"name": "Custom"})
		require.NoError(t, err)

		seeded, err := s.InitDefaultData(ctx, "classes", []Record{{"name": "Basic 1"}})

		assert.NoError(err)
		assert.False(seeded)
		all, _ := s.GetAll(ctx, "classes")
		assert.Len(all, 1)
		assert.Equal("Custom", all[0]["name"])
	})

	t.Run("duplicate ids in defaults", func(t *testing.T) {
		assert := assert.New(t)
		ctx := context.Background()
		s, _, _ := newTestStore(t)

		_, err := s.InitDefaultData(ctx, "classes", []Record{{"id": "a"}, {"id": "a"}})

		assert.ErrorIs(err, sms.ErrConflict)
		assert.False(s.HasData(ctx, "classes"))
	})
}

func Test_Store_EntityTypes(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s, backend, _ := newTestStore(t)
	require.NoError(t, s.SaveAll(ctx, "students", nil))
	require.NoError(t, s.SaveAll(ctx, "bills", nil))
	require.NoError(t, backend.Set(ctx, "unrelated", "x"))
	require.NoError(t, backend.Set(ctx, "sms_", "x"))

	actual, err := s.EntityTypes(ctx)

	assert.NoError(err)
	assert.Equal([]string{"bills", "students"}, actual)
}

func Test_Store_Stat(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s, backend, _ := newTestStore(t)
	require.NoError(t, backend.Set(ctx, "sms_news", `[{"id":"1"},{"id":"2"}]`))
	require.NoError(t, backend.Set(ctx, "sms_bad", `nope`))

	st, err := s.Stat(ctx, "news")
	assert.NoError(err)
	assert.Equal(CollectionStat{EntityType: "news", Key: "sms_news", Count: 2, Bytes: 23}, st)

	st, err = s.Stat(ctx, "bad")
	assert.NoError(err)
	assert.True(st.Corrupt)
	assert.Equal(0, st.Count)

	st, err = s.Stat(ctx, "missing")
	assert.NoError(err)
	assert.Equal(CollectionStat{EntityType: "missing", Key: "sms_missing"}, st)
}

func Test_Store_customPrefix(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	backend := inmem.New()
	s := New(backend, &Options{Prefix: "school_"})

	_, err := s.Create(ctx, "students", Record{})
	assert.NoError(err)

	_, ok, err := backend.Get(ctx, "school_students")
	assert.NoError(err)
	assert.True(ok)
	assert.Equal("school_students", s.Key("students"))
}

func Test_Store_storageErrors(t *testing.T) {
	ctx := context.Background()
	s := New(failingBackend{err: errors.New("quota exceeded")}, nil)

	testCases := []struct {
		name string
		op   func() error
	}{
		{name: "GetAll", op: func() error { _, err := s.GetAll(ctx, "x"); return err }},
		{name: "Create", op: func() error { _, err := s.Create(ctx, "x", Record{}); return err }},
		{name: "SaveAll", op: func() error { return s.SaveAll(ctx, "x", nil) }},
		{name: "Clear", op: func() error { return s.Clear(ctx, "x") }},
		{name: "EntityTypes", op: func() error { _, err := s.EntityTypes(ctx); return err }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert := assert.New(t)

			err := tc.op()

			assert.ErrorIs(err, sms.ErrStorage)
		})
	}
}

func Test_Store_quotaExceeded(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	backend := inmem.New()
	backend.MaxBytes = 64
	s := New(backend, nil)

	_, err := s.Create(ctx, "notes", Record{"body": "this note is far too long to fit into sixty-four bytes of storage"})

	assert.ErrorIs(err, sms.ErrStorage)
	assert.ErrorIs(err, inmem.ErrQuotaExceeded)
	assert.False(s.HasData(ctx, "notes"))
}

func Test_Store_concurrentCreates(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()
	s := New(inmem.New(), nil)

	const workers = 20
	const perWorker = 10

	var wg sync.WaitGroup
	errs := make(chan error, workers*perWorker)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if _, err := s.Create(ctx, "payments", Record{"worker": w, "i": i}); err != nil {
					errs <- err
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(err)
	}

	n, err := s.Count(ctx, "payments", nil)
	assert.NoError(err)
	assert.Equal(workers*perWorker, n)
}

func Test_Store_latency(t *testing.T) {
	t.Run("waits before operating", func(t *testing.T) {
		assert := assert.New(t)
		s := New(inmem.New(), &Options{Latency: 20 * time.Millisecond})

		start := time.Now()
		_, err := s.GetAll(context.Background(), "students")

		assert.NoError(err)
		assert.GreaterOrEqual(time.Since(start), 20*time.Millisecond)
	})

	t.Run("cancelled context aborts the wait", func(t *testing.T) {
		assert := assert.New(t)
		s := New(inmem.New(), &Options{Latency: time.Hour})

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := s.Create(ctx, "students", Record{})

		assert.ErrorIs(err, context.Canceled)
	})

	t.Run("cancelled context without latency", func(t *testing.T) {
		assert := assert.New(t)
		s := New(inmem.New(), nil)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := s.GetAll(ctx, "students")

		assert.ErrorIs(err, context.Canceled)
	})
}

func Test_Store_Close(t *testing.T) {
	assert := assert.New(t)
	s := New(inmem.New(), nil)

	assert.NoError(s.Close())
	assert.NoError(s.Close())

	_, err := s.GetAll(context.Background(), "students")
	assert.ErrorIs(err, sms.ErrClosed)
}

func Test_Open(t *testing.T) {
	assert := assert.New(t)
	ctx := context.Background()

	cfg := sms.Config{
		Storage:  sms.Storage{Type: sms.StorageFile, Dir: t.TempDir()},
		IDScheme: sms.IDUUID,
	}

	s, err := Open(cfg, nil)
	if !assert.NoError(err) {
		return
	}

	created, err := s.Create(ctx, "students", Record{"firstName": "Ama"})
	assert.NoError(err)
	assert.Len(created.ID(), 36)
	assert.NoError(s.Close())

	// reopen sees the same data
	s, err = Open(cfg, nil)
	if !assert.NoError(err) {
		return
	}
	defer s.Close()

	actual, err := s.GetByID(ctx, "students", created.ID())
	assert.NoError(err)
	assert.Equal(created, actual)
}

func Test_Open_invalidConfig(t *testing.T) {
	assert := assert.New(t)

	_, err := Open(sms.Config{IDScheme: "serial"}, nil)

	assert.ErrorIs(err, sms.ErrBadArgument)
}

func ptr[E any](v E) *E {
	return &v
}
