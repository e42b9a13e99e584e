package access

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisAttemptStore keeps attempt counters in Redis so they are shared by
// every handler and survive across processes. Keys expire on their own.
type RedisAttemptStore struct {
	rdb *redis.Client
}

func NewRedisAttemptStore(rdb *redis.Client) *RedisAttemptStore {
	return &RedisAttemptStore{rdb: rdb}
}

func (s *RedisAttemptStore) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	count, err := s.rdb.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	// Set the expiry only when the key is fresh so the window slides from
	// the first failure, not the last.
	if count == 1 {
		if err := s.rdb.Expire(ctx, key, window).Err(); err != nil {
			return count, err
		}
	}
	return count, nil
}

func (s *RedisAttemptStore) Count(ctx context.Context, key string) (int64, error) {
	count, err := s.rdb.Get(ctx, key).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	return count, err
}

func (s *RedisAttemptStore) Clear(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, key).Err()
}
