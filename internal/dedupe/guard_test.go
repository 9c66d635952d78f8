package dedupe

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGuard(t *testing.T, cfg Config) (*RedisGuard, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	guard := NewRedisGuard(client, cfg)
	t.Cleanup(func() { _ = guard.Close() })
	return guard, mr
}

func TestRedisGuard_CompletedEventIsDuplicate(t *testing.T) {
	guard, mr := newTestGuard(t, Config{TTL: time.Hour})
	ctx := context.Background()

	first, err := guard.Acquire(ctx, "bucket/a.tif@etag1")
	require.NoError(t, err)
	assert.True(t, first)
	require.NoError(t, guard.Complete(ctx, "bucket/a.tif@etag1"))

	second, err := guard.Acquire(ctx, "bucket/a.tif@etag1")
	require.NoError(t, err)
	assert.False(t, second)

	other, err := guard.Acquire(ctx, "bucket/a.tif@etag2")
	require.NoError(t, err)
	assert.True(t, other, "a new object version is a new event")

	key := DefaultKeyPrefix + "bucket/a.tif@etag1"
	value, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, stateDone, value)
	assert.Equal(t, time.Hour, mr.TTL(key))
}

func TestRedisGuard_UnfinishedClaimFailsLoudly(t *testing.T) {
	guard, mr := newTestGuard(t, Config{TTL: time.Hour, ClaimTTL: time.Minute})
	ctx := context.Background()

	ok, err := guard.Acquire(ctx, "id")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, time.Minute, mr.TTL(DefaultKeyPrefix+"id"))

	ok, err = guard.Acquire(ctx, "id")
	assert.ErrorIs(t, err, ErrInProgress)
	assert.False(t, ok)

	// The run that held the claim died without completing it
	mr.FastForward(2 * time.Minute)

	ok, err = guard.Acquire(ctx, "id")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisGuard_DoneExpiresAfterTTL(t *testing.T) {
	guard, mr := newTestGuard(t, Config{TTL: time.Minute})
	ctx := context.Background()

	ok, err := guard.Acquire(ctx, "id")
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, guard.Complete(ctx, "id"))

	mr.FastForward(2 * time.Minute)

	ok, err = guard.Acquire(ctx, "id")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisGuard_Release(t *testing.T) {
	guard, _ := newTestGuard(t, Config{})
	ctx := context.Background()

	_, err := guard.Acquire(ctx, "id")
	require.NoError(t, err)
	require.NoError(t, guard.Release(ctx, "id"))

	ok, err := guard.Acquire(ctx, "id")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisGuard_Defaults(t *testing.T) {
	guard, _ := newTestGuard(t, Config{})
	assert.Equal(t, DefaultTTL, guard.ttl)
	assert.Equal(t, DefaultClaimTTL, guard.claimTTL)
	assert.Equal(t, DefaultKeyPrefix, guard.prefix)
}

func TestRedisGuard_ServerDown(t *testing.T) {
	guard, mr := newTestGuard(t, Config{})
	mr.Close()

	_, err := guard.Acquire(context.Background(), "id")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInProgress)
}

func TestNewGuard(t *testing.T) {
	guard, err := NewGuard(Config{})
	require.NoError(t, err)
	ok, err := guard.Acquire(context.Background(), "anything")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, guard.Complete(context.Background(), "anything"))

	_, err = NewGuard(Config{Type: TypeRedis})
	assert.Error(t, err, "redis without address")

	_, err = NewGuard(Config{Type: "memcached"})
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	guard, err = NewGuard(Config{Type: TypeRedis, Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = guard.Close() })
	ok, err = guard.Acquire(context.Background(), "x")
	require.NoError(t, err)
	assert.True(t, ok)
}
