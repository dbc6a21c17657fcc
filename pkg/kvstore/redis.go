package kvstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisStore Redis 实现
type redisStore struct {
	rdb    *redis.Client
	prefix string
}

// NewRedisStore 创建 Redis 键值存储
func NewRedisStore(rdb *redis.Client, prefix string) Store {
	return &redisStore{rdb: rdb, prefix: prefix}
}

func (s *redisStore) key(k string) string {
	return s.prefix + k
}

func (s *redisStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.rdb.Set(ctx, s.key(key), value, ttl).Err()
}

func (s *redisStore) Get(ctx context.Context, key string) (string, error) {
	val, err := s.rdb.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	return val, err
}

func (s *redisStore) Delete(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.key(key)).Err()
}

func (s *redisStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := s.rdb.TTL(ctx, s.key(key)).Result()
	if err != nil {
		return 0, err
	}
	// go-redis 对特殊返回值不做秒转换：-2 表示键不存在，-1 表示无过期时间
	switch ttl {
	case -2 * time.Nanosecond:
		return 0, ErrNotFound
	case -1 * time.Nanosecond:
		return 0, nil
	}
	return ttl, nil
}
