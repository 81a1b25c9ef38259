package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupeKeyPrefix = "webhook:handled:"

type redisSetter interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisEventDeduper records which webhook side effects have run. Entries
// expire after the gateway's redelivery window.
type RedisEventDeduper struct {
	client redisSetter
}

func NewRedisEventDeduper(client *redis.Client) *RedisEventDeduper {
	return &RedisEventDeduper{client: client}
}

func (d *RedisEventDeduper) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := d.client.SetNX(ctx, dedupeKeyPrefix+key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to claim webhook key %s: %w", key, err)
	}
	return ok, nil
}

func (d *RedisEventDeduper) Release(ctx context.Context, key string) error {
	if err := d.client.Del(ctx, dedupeKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to release webhook key %s: %w", key, err)
	}
	return nil
}
