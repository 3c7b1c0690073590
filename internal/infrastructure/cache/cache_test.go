package cache

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/productivity-api/internal/application/ports"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newRedisCache(t *testing.T) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisFromClient(client), mr
}

// Ambas implementaciones deben comportarse igual para el mismo guion.
func implementations(t *testing.T) map[string]ports.Cache {
	r, _ := newRedisCache(t)
	return map[string]ports.Cache{
		"memory": NewMemory(),
		"redis":  r,
	}
}

func TestCache_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	for name, c := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := c.Get(ctx, "refresh_token:u1")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, c.Set(ctx, "refresh_token:u1", "tok", time.Hour))
			v, ok, err := c.Get(ctx, "refresh_token:u1")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "tok", v)

			require.NoError(t, c.Delete(ctx, "refresh_token:u1"))
			_, ok, _ = c.Get(ctx, "refresh_token:u1")
			assert.False(t, ok)
		})
	}
}

func TestCache_Increment(t *testing.T) {
	ctx := context.Background()
	for name, c := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			n, err := c.Increment(ctx, "rate_limit:x", 1, time.Minute)
			require.NoError(t, err)
			assert.Equal(t, int64(1), n)
			n, err = c.Increment(ctx, "rate_limit:x", 2, time.Minute)
			require.NoError(t, err)
			assert.Equal(t, int64(3), n)
		})
	}
}

func TestCache_NotificationQueueKeepsNewest(t *testing.T) {
	ctx := context.Background()
	for name, c := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 105; i++ {
				require.NoError(t, c.LPush(ctx, "notifications:u1", strconv.Itoa(i)))
				require.NoError(t, c.LTrim(ctx, "notifications:u1", 0, 99))
			}
			items, err := c.LRange(ctx, "notifications:u1", 0, -1)
			require.NoError(t, err)
			require.Len(t, items, 100)
			assert.Equal(t, "104", items[0], "el más reciente primero")
			assert.Equal(t, "5", items[99], "los 5 más antiguos se descartan")
		})
	}
}

func TestCache_Hash(t *testing.T) {
	ctx := context.Background()
	for name, c := range implementations(t) {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, c.HSet(ctx, "user_status", "u1", "online"))
			require.NoError(t, c.HSet(ctx, "user_status", "u2", "online"))
			v, ok, err := c.HGet(ctx, "user_status", "u1")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "online", v)

			require.NoError(t, c.HDel(ctx, "user_status", "u1"))
			all, err := c.HGetAll(ctx, "user_status")
			require.NoError(t, err)
			assert.Equal(t, map[string]string{"u2": "online"}, all)
		})
	}
}

func TestMemory_LazyExpiry(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)}
	m := NewMemory().WithClock(clock.now)

	require.NoError(t, m.Set(ctx, "k", "v", time.Minute))
	n, err := m.Increment(ctx, "w", 1, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	clock.advance(59 * time.Second)
	_, ok, _ := m.Get(ctx, "k")
	assert.True(t, ok)

	clock.advance(time.Second)
	_, ok, _ = m.Get(ctx, "k")
	assert.False(t, ok, "expira exactamente al cumplirse el TTL")

	n, err = m.Increment(ctx, "w", 1, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "la ventana expirada reinicia el contador")
}

func TestMemory_WritesPurgeExpiredWindows(t *testing.T) {
	ctx := context.Background()
	clock := &fakeClock{t: time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)}
	m := NewMemory().WithClock(clock.now)

	for w := 0; w < 50; w++ {
		for ip := 0; ip < 20; ip++ {
			key := "rate_limit:api:10.0.0." + strconv.Itoa(ip) + ":" + strconv.Itoa(w)
			_, err := m.Increment(ctx, key, 1, 15*time.Minute)
			require.NoError(t, err)
		}
		clock.advance(15 * time.Minute)
	}
	assert.Equal(t, 20, m.Len(), "solo sobreviven las claves de la última ventana")

	_, err := m.Increment(ctx, "rate_limit:api:10.0.0.1:50", 1, 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Len())

	require.NoError(t, m.Close())
	assert.Zero(t, m.Len())
}

func TestRedis_ExpiryIsNative(t *testing.T) {
	ctx := context.Background()
	r, mr := newRedisCache(t)

	_, err := r.Increment(ctx, "rate_limit:w", 1, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, time.Minute, mr.TTL(KeyPrefix+"rate_limit:w"))

	mr.FastForward(time.Minute)
	_, ok, err := r.Get(ctx, "rate_limit:w")
	require.NoError(t, err)
	assert.False(t, ok)
}
