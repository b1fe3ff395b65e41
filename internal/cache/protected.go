package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	ri "github.com/redis/go-redis/v9"

	"PushOrShame/storage/redis"
)

const (
	// 空值缓存标识
	emptyValueFlag = "__EMPTY__"
	emptyValueTTL  = time.Minute
	// TTL 随机抖动上限，防止同时过期
	ttlJitterMax = 30 * time.Second
)

// ProtectedCache 带空值保护的 JSON 读缓存
type ProtectedCache struct {
	keyPrefix string
	ttl       time.Duration
}

func NewProtectedCache(keyPrefix string, ttl time.Duration) *ProtectedCache {
	return &ProtectedCache{keyPrefix: keyPrefix, ttl: ttl}
}

// Set value 为 nil 时写入空值标识
func (pc *ProtectedCache) Set(ctx context.Context, key string, value interface{}) error {
	cacheKey := redis.Key(pc.keyPrefix, key)

	if value == nil {
		return redis.Client().Set(ctx, cacheKey, emptyValueFlag, emptyValueTTL).Err()
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}

	ttl := pc.ttl + time.Duration(rand.Int63n(int64(ttlJitterMax)))
	return redis.Client().Set(ctx, cacheKey, data, ttl).Err()
}

// Get 返回 (命中, 是否空值, error)
func (pc *ProtectedCache) Get(ctx context.Context, key string, dest interface{}) (hit bool, empty bool, err error) {
	cacheKey := redis.Key(pc.keyPrefix, key)

	data, err := redis.Client().Get(ctx, cacheKey).Result()
	if err == ri.Nil {
		return false, false, nil
	}
	if err != nil {
		return false, false, fmt.Errorf("failed to get cache: %w", err)
	}

	if data == emptyValueFlag {
		return true, true, nil
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return false, false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, false, nil
}

func (pc *ProtectedCache) Delete(ctx context.Context, key string) error {
	return redis.Client().Del(ctx, redis.Key(pc.keyPrefix, key)).Err()
}

// StatsSnapshotCache 参与者统计快照，检查提交后失效
var StatsSnapshotCache = NewProtectedCache("participant:stats", 10*time.Minute)
