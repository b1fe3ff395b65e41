package cache

import (
	"context"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"PushOrShame/storage/redis"
)

// 分布式锁：SET NX PX + 持有者 token，释放时比对 token 再删除，
// 过期后被他人重新持有的锁不会被误删
const lockPrefix = "lock"

var unlockScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// TryLock 返回的 release 可以重复调用
func TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error) {
	fullKey := redis.Key(lockPrefix, key)
	token := uuid.NewString()

	ok, err = redis.Client().SetNX(ctx, fullKey, token, ttl).Result()
	if err != nil || !ok {
		return func() {}, ok, err
	}

	released := false
	release = func() {
		if released {
			return
		}
		released = true
		// 调用方 ctx 可能已取消，释放锁不能跟着失败
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
		defer cancel()
		_ = unlockScript.Run(releaseCtx, redis.Client(), []string{fullKey}, token).Err()
	}
	return release, true, nil
}

// RedisLocker 以接口形式提供 TryLock
type RedisLocker struct{}

func (RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	return TryLock(ctx, key, ttl)
}
