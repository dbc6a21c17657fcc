package kvstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound 键不存在或已过期
var ErrNotFound = errors.New("kvstore: key not found")

// Store 带过期时间的键值存储
// 生产环境使用 Redis 实现，测试使用内存实现
type Store interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error

	// TTL 返回键的剩余存活时间，键不存在时返回 ErrNotFound
	TTL(ctx context.Context, key string) (time.Duration, error)
}
