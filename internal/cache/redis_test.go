package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/muzz-matchmaker/internal/cache"
	"github.com/oggyb/muzz-matchmaker/internal/config"
)

func setupCache(t *testing.T) (*cache.RedisCache, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()
	cfg.Match.LikeCountTTL = time.Minute

	c := cache.NewRedisCache(cfg)
	t.Cleanup(func() { _ = c.Close() })
	require.NoError(t, c.Ping(context.Background()))
	return c, mr
}

func TestIncomingLikes_MissSetHit(t *testing.T) {
	ctx := context.Background()
	c, mr := setupCache(t)

	_, ok, err := c.GetIncomingLikes(ctx, 42)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.SetIncomingLikes(ctx, 42, 7))
	assert.Equal(t, time.Minute, mr.TTL("likes:incoming:42"))

	n, ok, err := c.GetIncomingLikes(ctx, 42)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(7), n)
}

func TestIncomingLikes_GarbageIsMiss(t *testing.T) {
	ctx := context.Background()
	c, mr := setupCache(t)

	require.NoError(t, mr.Set("likes:incoming:1", "not-a-number"))
	_, ok, err := c.GetIncomingLikes(ctx, 1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestInvalidateIncomingLikes(t *testing.T) {
	ctx := context.Background()
	c, mr := setupCache(t)

	require.NoError(t, c.SetIncomingLikes(ctx, 1, 3))
	require.NoError(t, c.SetIncomingLikes(ctx, 2, 4))
	require.NoError(t, c.SetIncomingLikes(ctx, 3, 5))

	require.NoError(t, c.InvalidateIncomingLikes(ctx, 1, 2))
	assert.False(t, mr.Exists("likes:incoming:1"))
	assert.False(t, mr.Exists("likes:incoming:2"))
	assert.True(t, mr.Exists("likes:incoming:3"))

	assert.NoError(t, c.InvalidateIncomingLikes(ctx))
}

func TestPublishAndForward(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	c, _ := setupCache(t)

	got := make(chan string, 1)
	err := c.StartForwarder(ctx, "events", nil, func(payload []byte) {
		got <- string(payload)
	})
	require.NoError(t, err)

	require.NoError(t, c.Publish(ctx, "events", []byte(`{"hello":"world"}`)))

	select {
	case p := <-got:
		assert.Equal(t, `{"hello":"world"}`, p)
	case <-time.After(2 * time.Second):
		t.Fatal("payload not forwarded")
	}
}

func TestStartForwarder_RequiresCallback(t *testing.T) {
	c, _ := setupCache(t)
	assert.Error(t, c.StartForwarder(context.Background(), "events", nil, nil))
}
