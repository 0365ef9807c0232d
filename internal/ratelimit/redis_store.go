package ratelimit

import (
	"context"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisStore shares window entries across instances. The counter lives in a
// plain string key whose TTL carries the window reset time.
type RedisStore struct {
	c      *redis.Client
	prefix string
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(c *redis.Client) *RedisStore {
	return &RedisStore{c: c, prefix: "ratelimit:"}
}

func (s *RedisStore) Get(ctx context.Context, id string) (Entry, bool, error) {
	key := s.prefix + id

	val, err := s.c.Get(ctx, key).Result()
	if err == redis.Nil {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, err
	}

	ttl, err := s.c.PTTL(ctx, key).Result()
	if err != nil {
		return Entry{}, false, err
	}
	if ttl <= 0 {
		// key without expiry is treated as an already-expired window
		return Entry{}, false, nil
	}

	count, err := strconv.Atoi(val)
	if err != nil {
		return Entry{}, false, err
	}
	return Entry{Count: count, ResetAt: time.Now().Add(ttl)}, true, nil
}

func (s *RedisStore) Set(ctx context.Context, id string, e Entry) error {
	ttl := time.Until(e.ResetAt)
	if ttl <= 0 {
		ttl = time.Millisecond
	}
	return s.c.Set(ctx, s.prefix+id, strconv.Itoa(e.Count), ttl).Err()
}

func (s *RedisStore) Incr(ctx context.Context, id string) (int, error) {
	n, err := s.c.Incr(ctx, s.prefix+id).Result()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
