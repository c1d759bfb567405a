package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionIDIsUnique(t *testing.T) {
	a, b := NewSessionID(), NewSessionID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestMemorySessionStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemorySessionStore(time.Hour)

	_, found, err := store.Get(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Set(ctx, "sid", 42))
	userID, found, err := store.Get(ctx, "sid")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(42), userID)

	require.NoError(t, store.Clear(ctx, "sid"))
	_, found, err = store.Get(ctx, "sid")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Clear(ctx, "sid"))
}

func TestMemorySessionStoreSlidingExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	store := NewMemorySessionStore(time.Hour)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Set(ctx, "sid", 1))

	// Touching the session at 50 minutes pushes expiry to 1h50m.
	now = now.Add(50 * time.Minute)
	_, found, _ := store.Get(ctx, "sid")
	require.True(t, found)

	now = now.Add(50 * time.Minute)
	_, found, _ = store.Get(ctx, "sid")
	require.True(t, found)

	now = now.Add(time.Hour)
	_, found, _ = store.Get(ctx, "sid")
	assert.False(t, found)
	assert.Empty(t, store.sessions)
}

func newMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestRedisSessionStore(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newMiniRedis(t)
	store := NewRedisSessionStore(rdb, time.Hour)

	require.NoError(t, store.Set(ctx, "abc", 7))
	assert.True(t, mr.Exists("session:abc"))
	got, err := mr.Get("session:abc")
	require.NoError(t, err)
	assert.Equal(t, "7", got)
	assert.Equal(t, time.Hour, mr.TTL("session:abc"))

	userID, found, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, int64(7), userID)

	require.NoError(t, store.Clear(ctx, "abc"))
	_, found, err = store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisSessionStoreSlidingExpiry(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newMiniRedis(t)
	store := NewRedisSessionStore(rdb, time.Hour)

	require.NoError(t, store.Set(ctx, "abc", 7))

	mr.FastForward(50 * time.Minute)
	_, found, err := store.Get(ctx, "abc")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, time.Hour, mr.TTL("session:abc"))

	mr.FastForward(61 * time.Minute)
	_, found, err = store.Get(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisSessionStoreCorruptValue(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newMiniRedis(t)
	store := NewRedisSessionStore(rdb, time.Hour)

	require.NoError(t, mr.Set("session:bad", "not-a-number"))
	_, _, err := store.Get(ctx, "bad")
	assert.Error(t, err)
}
