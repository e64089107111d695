package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aimd54/reward-economy/internal/config"
)

func setupRedis(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	c := NewFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestRedisCache_GetSetDel(t *testing.T) {
	c, _ := setupRedis(t)
	ctx := context.Background()

	val, err := c.Get(ctx, "missing")
	require.NoError(t, err)
	assert.Empty(t, val)

	require.NoError(t, c.Set(ctx, "k", "v", 0))
	val, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "v", val)

	require.NoError(t, c.Del(ctx, "k"))
	require.NoError(t, c.Del(ctx))
	val, err = c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Empty(t, val)
}

func TestRedisCache_SetExpires(t *testing.T) {
	c, mr := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))
	mr.FastForward(2 * time.Minute)

	val, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Empty(t, val)
}

func TestRedisCache_SetNX(t *testing.T) {
	c, mr := setupRedis(t)
	ctx := context.Background()

	ok, err := c.SetNX(ctx, "lock", "a", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.SetNX(ctx, "lock", "b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(time.Minute + time.Second)

	ok, err = c.SetNX(ctx, "lock", "b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisCache_DelIfValue(t *testing.T) {
	c, mr := setupRedis(t)
	ctx := context.Background()

	ok, err := c.DelIfValue(ctx, "lock", "a")
	require.NoError(t, err)
	assert.False(t, ok, "missing key")

	require.NoError(t, c.Set(ctx, "lock", "a", time.Minute))
	ok, err = c.DelIfValue(ctx, "lock", "b")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, mr.Exists("lock"))

	ok, err = c.DelIfValue(ctx, "lock", "a")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.False(t, mr.Exists("lock"))
}

func TestRedisCache_Health(t *testing.T) {
	c, mr := setupRedis(t)

	assert.NoError(t, c.Health(context.Background()))

	mr.Close()
	assert.Error(t, c.Health(context.Background()))
}

func TestNewRedisCache(t *testing.T) {
	mr := miniredis.RunT(t)

	host, port := mr.Host(), mr.Server().Addr().Port
	c, err := NewRedisCache(&config.RedisConfig{Host: host, Port: port, PoolSize: 2})
	require.NoError(t, err)
	defer c.Close()

	assert.NoError(t, c.Health(context.Background()))

	_, err = NewRedisCache(&config.RedisConfig{Host: "127.0.0.1", Port: 1})
	assert.Error(t, err)
}
