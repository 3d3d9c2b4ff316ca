package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisStore struct {
	Client *redis.Client
}

func NewRedisStore(opt *redis.Options) *RedisStore {
	return &RedisStore{Client: redis.NewClient(opt)}
}

var _ Store = (*RedisStore)(nil)

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := s.Client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return s.Client.Set(ctx, key, value, ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.Client.Del(ctx, key).Err()
}

func (s *RedisStore) Incr(ctx context.Context, key string) (int64, error) {
	return s.Client.Incr(ctx, key).Result()
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.Client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.Client.Close()
}
