package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

// GetString returns the cached value, or "" on a miss. Cache failures
// are not distinguished from misses; callers fall back to the database.
func GetString(ctx context.Context, rdb *redis.Client, key string) string {
	s, err := rdb.Get(ctx, key).Result()
	if err != nil {
		return ""
	}
	return s
}

func Set(ctx context.Context, rdb *redis.Client, key string, value any, ttl time.Duration) {
	_ = rdb.Set(ctx, key, value, ttl).Err()
}

func Delete(ctx context.Context, rdb *redis.Client, keys ...string) {
	_ = rdb.Del(ctx, keys...).Err()
}
