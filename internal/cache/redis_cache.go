package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisStatusCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisStatusCache(rdb *redis.Client, ttl time.Duration) *RedisStatusCache {
	return &RedisStatusCache{rdb: rdb, ttl: ttl}
}

func statusKey(externalID string) string {
	return fmt.Sprintf("sms:status:%s", externalID)
}

func (c *RedisStatusCache) StoreStatus(ctx context.Context, externalID string, snap StatusSnapshot) error {
	snap.UpdatedAt = snap.UpdatedAt.UTC()

	b, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	return c.rdb.Set(ctx, statusKey(externalID), b, c.ttl).Err()
}

func (c *RedisStatusCache) GetStatus(ctx context.Context, externalID string) (*StatusSnapshot, error) {
	raw, err := c.rdb.Get(ctx, statusKey(externalID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var snap StatusSnapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}
