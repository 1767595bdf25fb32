package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrNotHeld 释放一把不属于自己的锁
var ErrNotHeld = errors.New("lock not held")

// DistributedLock 定义分布式锁接口
type DistributedLock interface {
	// Acquire 尝试获取锁，成功时返回持有者 token
	Acquire(ctx context.Context, key string, ttl time.Duration) (token string, ok bool, err error)

	// Release 只在 token 匹配时释放
	Release(ctx context.Context, key, token string) error
}

// RedisLock 基于 Redis SET NX 的实现，多个进程共用同一账户时串行化 nonce 分配
type RedisLock struct {
	client *redis.Client
	prefix string
}

func NewRedisLock(client *redis.Client) *RedisLock {
	return &RedisLock{client: client, prefix: "lock:"}
}

// 校验归属后再删除
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

func (l *RedisLock) Acquire(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, l.prefix+key, token, ttl).Result()
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	return token, true, nil
}

func (l *RedisLock) Release(ctx context.Context, key, token string) error {
	n, err := releaseScript.Run(ctx, l.client, []string{l.prefix + key}, token).Int()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotHeld
	}
	return nil
}

// MemoryLock 进程内实现，单进程或测试使用
type MemoryLock struct {
	mu    sync.Mutex
	held  map[string]memoryEntry
	nowFn func() time.Time
}

type memoryEntry struct {
	token   string
	expires time.Time
}

func NewMemoryLock() *MemoryLock {
	return &MemoryLock{held: make(map[string]memoryEntry), nowFn: time.Now}
}

func (l *MemoryLock) Acquire(_ context.Context, key string, ttl time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.nowFn()
	if e, ok := l.held[key]; ok && now.Before(e.expires) {
		return "", false, nil
	}
	token := uuid.NewString()
	l.held[key] = memoryEntry{token: token, expires: now.Add(ttl)}
	return token, true, nil
}

func (l *MemoryLock) Release(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.held[key]
	if !ok || e.token != token {
		return ErrNotHeld
	}
	delete(l.held, key)
	return nil
}

// Wait 每隔 retry 尝试一次，直到拿到锁或 ctx 结束
// 返回的 unlock 使用独立的 context，调用方 ctx 已取消时也能释放
func Wait(ctx context.Context, l DistributedLock, key string, ttl, retry time.Duration) (unlock func() error, err error) {
	token, ok, err := l.Acquire(ctx, key, ttl)
	if err != nil {
		return nil, err
	}
	if !ok {
		ticker := time.NewTicker(retry)
		defer ticker.Stop()
		for !ok {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-ticker.C:
			}
			token, ok, err = l.Acquire(ctx, key, ttl)
			if err != nil {
				return nil, err
			}
		}
	}
	return func() error {
		releaseCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		return l.Release(releaseCtx, key, token)
	}, nil
}
