package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/campus-connect/internal/cache"
	"github.com/oggyb/campus-connect/internal/config"
)

func setupCache(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()
	c := cache.NewRedisCache(cfg)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestLikeCount_MissSetInvalidate(t *testing.T) {
	ctx := context.Background()
	c, mr := setupCache(t)

	_, ok, err := c.GetLikeCount(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.SetLikeCount(ctx, "u1", 7))
	n, ok, err := c.GetLikeCount(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.EqualValues(t, 7, n)
	assert.Equal(t, cache.LikeCountTTL, mr.TTL(c.KeyForLikeCount("u1")))

	require.NoError(t, c.InvalidateLikeCount(ctx, "u1"))
	_, ok, err = c.GetLikeCount(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClaim_FirstCallerWins(t *testing.T) {
	ctx := context.Background()
	c, mr := setupCache(t)

	ok, err := c.Claim(ctx, "notify:u1:match:a:b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Claim(ctx, "notify:u1:match:a:b", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	mr.FastForward(2 * time.Minute)
	ok, err = c.Claim(ctx, "notify:u1:match:a:b", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
