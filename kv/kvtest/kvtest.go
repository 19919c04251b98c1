// Package kvtest provides a conformance suite that every kv backend is tested
// against.
package kvtest

import (
	"context"
	"testing"

	"github.com/dekarrin/sms"
	"github.com/stretchr/testify/assert"
)

// Backend is the method set exercised by Run. It matches kv.Backend; it is
// repeated here so that backend packages can use the suite without importing
// kv.
type Backend interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Keys(ctx context.Context) ([]string, error)
	Close() error
}

// Run runs the conformance suite. newBackend must return a new, empty Backend
// each time it is called.
func Run(t *testing.T, newBackend func(t *testing.T) Backend) {
	ctx := context.Background()

	t.Run("get missing key", func(t *testing.T) {
		assert := assert.New(t)
		b := newBackend(t)
		defer b.Close()

		v, ok, err := b.Get(ctx, "sms_students")

		assert.NoError(err)
		assert.False(ok)
		assert.Equal("", v)
	})

	t.Run("set then get", func(t *testing.T) {
		assert := assert.New(t)
		b := newBackend(t)
		defer b.Close()

		if !assert.NoError(b.Set(ctx, "sms_students", `[{"id":"1"}]`)) {
			return
		}

		v, ok, err := b.Get(ctx, "sms_students")
		assert.NoError(err)
		assert.True(ok)
		assert.Equal(`[{"id":"1"}]`, v)
	})

	t.Run("set overwrites", func(t *testing.T) {
		assert := assert.New(t)
		b := newBackend(t)
		defer b.Close()

		assert.NoError(b.Set(ctx, "k", "one"))
		assert.NoError(b.Set(ctx, "k", "two"))

		v, ok, err := b.Get(ctx, "k")
		assert.NoError(err)
		assert.True(ok)
		assert.Equal("two", v)

		keys, err := b.Keys(ctx)
		assert.NoError(err)
		assert.Equal([]string{"k"}, keys)
	})

	t.Run("empty string value is present", func(t *testing.T) {
		assert := assert.New(t)
		b := newBackend(t)
		defer b.Close()

		assert.NoError(b.Set(ctx, "k", ""))

		v, ok, err := b.Get(ctx, "k")
		assert.NoError(err)
		assert.True(ok)
		assert.Equal("", v)
	})

	t.Run("remove", func(t *testing.T) {
		assert := assert.New(t)
		b := newBackend(t)
		defer b.Close()

		assert.NoError(b.Set(ctx, "a", "1"))
		assert.NoError(b.Set(ctx, "b", "2"))
		assert.NoError(b.Remove(ctx, "a"))

		_, ok, err := b.Get(ctx, "a")
		assert.NoError(err)
		assert.False(ok)

		keys, err := b.Keys(ctx)
		assert.NoError(err)
		assert.Equal([]string{"b"}, keys)
	})

	t.Run("remove missing key is not an error", func(t *testing.T) {
		assert := assert.New(t)
		b := newBackend(t)
		defer b.Close()

		assert.NoError(b.Remove(ctx, "nope"))
	})

	t.Run("keys are sorted", func(t *testing.T) {
		assert := assert.New(t)
		b := newBackend(t)
		defer b.Close()

		for _, k := range []string{"sms_staff", "other", "sms_bills", "sms_students"} {
			if !assert.NoError(b.Set(ctx, k, "[]")) {
				return
			}
		}

		keys, err := b.Keys(ctx)
		assert.NoError(err)
		assert.Equal([]string{"other", "sms_bills", "sms_staff", "sms_students"}, keys)
	})

	t.Run("empty backend has no keys", func(t *testing.T) {
		assert := assert.New(t)
		b := newBackend(t)
		defer b.Close()

		keys, err := b.Keys(ctx)
		assert.NoError(err)
		assert.Empty(keys)
	})

	t.Run("closed backend fails", func(t *testing.T) {
		assert := assert.New(t)
		b := newBackend(t)

		assert.NoError(b.Set(ctx, "k", "v"))
		assert.NoError(b.Close())
		assert.NoError(b.Close(), "second close should be a no-op")

		_, _, err := b.Get(ctx, "k")
		assert.ErrorIs(err, sms.ErrClosed)
		assert.ErrorIs(b.Set(ctx, "k", "v"), sms.ErrClosed)
		assert.ErrorIs(b.Remove(ctx, "k"), sms.ErrClosed)
		_, err = b.Keys(ctx)
		assert.ErrorIs(err, sms.ErrClosed)
	})
}
