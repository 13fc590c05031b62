package checkin

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const columnCachePrefix = "expo:columns:"

// RedisColumnCache shares discovered ColumnSets between service instances.
type RedisColumnCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisColumnCache returns a cache whose entries expire after ttl
// (zero keeps them until evicted).
func NewRedisColumnCache(client redis.Cmdable, ttl time.Duration) *RedisColumnCache {
	return &RedisColumnCache{client: client, ttl: ttl}
}

func (c *RedisColumnCache) Get(ctx context.Context, collection string) (ColumnSet, bool, error) {
	raw, err := c.client.Get(ctx, columnCachePrefix+collection).Bytes()
	if errors.Is(err, redis.Nil) {
		return ColumnSet{}, false, nil
	}
	if err != nil {
		return ColumnSet{}, false, err
	}
	var set ColumnSet
	if err := json.Unmarshal(raw, &set); err != nil {
		return ColumnSet{}, false, err
	}
	return set, true, nil
}

func (c *RedisColumnCache) Set(ctx context.Context, collection string, set ColumnSet) error {
	raw, err := json.Marshal(set)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, columnCachePrefix+collection, raw, c.ttl).Err()
}
