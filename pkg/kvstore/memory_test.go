package kvstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Set and Get", func(t *testing.T) {
		store := NewMemoryStore()

		err := store.Set(ctx, "otp:13800138000", "123456", time.Minute)
		assert.NoError(t, err)

		val, err := store.Get(ctx, "otp:13800138000")
		assert.NoError(t, err)
		assert.Equal(t, "123456", val)
	})

	t.Run("Get missing key", func(t *testing.T) {
		store := NewMemoryStore()

		_, err := store.Get(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Expired key is gone", func(t *testing.T) {
		now := time.Now()
		clock := func() time.Time { return now }
		store := NewMemoryStoreWithClock(func() time.Time { return clock() })

		err := store.Set(ctx, "k", "v", 5*time.Minute)
		assert.NoError(t, err)

		// 时间推进到过期之后
		clock = func() time.Time { return now.Add(6 * time.Minute) }

		_, err = store.Get(ctx, "k")
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = store.TTL(ctx, "k")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("TTL reports remaining time", func(t *testing.T) {
		now := time.Now()
		store := NewMemoryStoreWithClock(func() time.Time { return now })

		err := store.Set(ctx, "k", "v", 5*time.Minute)
		assert.NoError(t, err)

		ttl, err := store.TTL(ctx, "k")
		assert.NoError(t, err)
		assert.Equal(t, 5*time.Minute, ttl)
	})

	t.Run("Key without TTL never expires", func(t *testing.T) {
		store := NewMemoryStore()

		err := store.Set(ctx, "k", "v", 0)
		assert.NoError(t, err)

		ttl, err := store.TTL(ctx, "k")
		assert.NoError(t, err)
		assert.Equal(t, time.Duration(0), ttl)
	})

	t.Run("Delete removes key", func(t *testing.T) {
		store := NewMemoryStore()

		_ = store.Set(ctx, "k", "v", time.Minute)
		err := store.Delete(ctx, "k")
		assert.NoError(t, err)

		_, err = store.Get(ctx, "k")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
