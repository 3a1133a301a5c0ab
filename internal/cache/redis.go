package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oggyb/muzz-matchmaker/internal/config"
)

type RedisCache struct {
	Client *redis.Client
	ttl    time.Duration
}

// NewRedisCache initializes Redis client from config.
// Only Addr is mandatory, Password/DB are optional.
func NewRedisCache(cfg *config.Config) *RedisCache {
	opts := &redis.Options{
		Addr:        cfg.Redis.Addr,
		DialTimeout: 5 * time.Second,
	}
	if cfg.Redis.Password != "" {
		opts.Password = cfg.Redis.Password
	}
	if cfg.Redis.DB != 0 {
		opts.DB = cfg.Redis.DB
	}

	ttl := cfg.Match.LikeCountTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &RedisCache{Client: redis.NewClient(opts), ttl: ttl}
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.Client.Close()
}

func (c *RedisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return c.Client.Set(ctx, key, value, ttl).Err()
}

func (c *RedisCache) Get(ctx context.Context, key string) (string, error) {
	return c.Client.Get(ctx, key).Result()
}

func (c *RedisCache) Del(ctx context.Context, keys ...string) error {
	return c.Client.Del(ctx, keys...).Err()
}

// KeyForIncomingLikes generates the Redis key for a user's waiting-like count.
func (c *RedisCache) KeyForIncomingLikes(userID uint64) string {
	return fmt.Sprintf("likes:incoming:%d", userID)
}

// SetIncomingLikes stores the count and always refreshes the TTL.
func (c *RedisCache) SetIncomingLikes(ctx context.Context, userID uint64, count int64) error {
	return c.Client.Set(ctx, c.KeyForIncomingLikes(userID), count, c.ttl).Err()
}

// GetIncomingLikes returns the cached count; ok is false on a cache miss.
func (c *RedisCache) GetIncomingLikes(ctx context.Context, userID uint64) (count int64, ok bool, err error) {
	key := c.KeyForIncomingLikes(userID)
	val, err := c.Client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil // cache miss
	} else if err != nil {
		return 0, false, err
	}

	count, err = strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, nil // garbage counts as a miss
	}
	// refresh TTL on access
	_ = c.Client.Expire(ctx, key, c.ttl).Err()
	return count, true, nil
}

// InvalidateIncomingLikes drops the cached counts of the given users.
func (c *RedisCache) InvalidateIncomingLikes(ctx context.Context, userIDs ...uint64) error {
	if len(userIDs) == 0 {
		return nil
	}
	keys := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		keys = append(keys, c.KeyForIncomingLikes(id))
	}
	return c.Del(ctx, keys...)
}

// Publish sends a raw payload on a pub/sub channel.
func (c *RedisCache) Publish(ctx context.Context, channel string, payload []byte) error {
	return c.Client.Publish(ctx, channel, payload).Err()
}

// StartForwarder subscribes to channel and feeds every payload to onMsg from a
// background goroutine until ctx is done. It returns once the subscription is
// confirmed by the server.
func (c *RedisCache) StartForwarder(ctx context.Context, channel string, log *slog.Logger, onMsg func(payload []byte)) error {
	if onMsg == nil {
		return fmt.Errorf("onMsg callback required")
	}

	sub := c.Client.Subscribe(ctx, channel)

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					if log != nil {
						log.Warn("redis subscription closed", "channel", channel)
					}
					return
				}
				onMsg([]byte(m.Payload))
			}
		}
	}()

	return nil
}
