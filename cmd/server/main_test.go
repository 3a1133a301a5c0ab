package main

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/muzz-matchmaker/internal/config"
	"github.com/oggyb/muzz-matchmaker/internal/logger"
)

func testConfig(t *testing.T, redisAddr string) *config.Config {
	t.Helper()

	cfg := config.New()
	cfg.App.ENV = "test"
	cfg.DB.Driver = "sqlite"
	cfg.DB.SQLitePath = filepath.Join(t.TempDir(), "server.db")
	cfg.Redis.Addr = redisAddr
	cfg.GRPC.Host = "127.0.0.1"
	cfg.GRPC.Port = "0"
	cfg.Presence.Relay = true
	cfg.Presence.Channel = "test:chat-events"
	return cfg
}

// TestRun_RelayAndServerShareLifecycle: the relay subscribes while the server
// runs and both wind down on cancel.
func TestRun_RelayAndServerShareLifecycle(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := testConfig(t, mr.Addr())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- run(ctx, cfg, logger.Discard()) }()

	require.Eventually(t, func() bool {
		return mr.PubSubNumSub(cfg.Presence.Channel)[cfg.Presence.Channel] == 1
	}, 5*time.Second, 20*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("run did not return after cancel")
	}

	assert.Eventually(t, func() bool {
		return mr.PubSubNumSub(cfg.Presence.Channel)[cfg.Presence.Channel] == 0
	}, 5*time.Second, 20*time.Millisecond)
}

func TestRun_RedisUnavailable(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	addr := mr.Addr()
	mr.Close()

	err = run(context.Background(), testConfig(t, addr), logger.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect to redis")
}

func TestRun_UnknownDriver(t *testing.T) {
	cfg := testConfig(t, "127.0.0.1:0")
	cfg.DB.Driver = "oracle"

	err := run(context.Background(), cfg, logger.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "init db")
}
