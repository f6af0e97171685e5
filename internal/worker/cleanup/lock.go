package cleanup

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Locker はクリーンアップの多重実行を防ぐロックを抽象化するインターフェース。
// 取得できなかった場合はacquired=falseを返し、エラーにはしない。
type Locker interface {
	TryLock(ctx context.Context) (unlock func(context.Context) error, acquired bool, err error)
}

// LocalLocker はプロセス内の多重実行を防ぐLocker。
// レプリカが1つの場合に使用する。
type LocalLocker struct {
	mu sync.Mutex
}

// NewLocalLocker は新しいLocalLockerを生成する。
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{}
}

// TryLock はロックを試行する。
func (l *LocalLocker) TryLock(context.Context) (func(context.Context) error, bool, error) {
	if !l.mu.TryLock() {
		return nil, false, nil
	}
	return func(context.Context) error {
		l.mu.Unlock()
		return nil
	}, true, nil
}

const (
	// DefaultLockKey はRedis上のロックキー。
	DefaultLockKey = "accounts:cleanup:lock"
	// DefaultLockTTL はロックの有効期限。ワーカーが異常終了しても翌日の実行までに解放される。
	DefaultLockTTL = 24 * time.Hour
)

// releaseScript は自分が取得したロックのみを削除する。
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker は複数レプリカ間で多重実行を防ぐLocker。
// SET NX PXで取得し、トークンが一致する場合のみ解放する。
type RedisLocker struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

// NewRedisLocker は新しいRedisLockerを生成する。
// keyが空の場合はDefaultLockKey、ttlが0以下の場合はDefaultLockTTLを使用する。
func NewRedisLocker(client redis.UniversalClient, key string, ttl time.Duration) *RedisLocker {
	if key == "" {
		key = DefaultLockKey
	}
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	return &RedisLocker{client: client, key: key, ttl: ttl}
}

// TryLock はロックを試行する。
func (l *RedisLocker) TryLock(ctx context.Context) (func(context.Context) error, bool, error) {
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire cleanup lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}

	return func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.client, []string{l.key}, token).Err(); err != nil {
			return fmt.Errorf("failed to release cleanup lock: %w", err)
		}
		return nil
	}, true, nil
}
