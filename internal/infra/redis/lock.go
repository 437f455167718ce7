// File: internal/infra/redis/lock.go
package redis

import (
	"context"
	"time"

	"courseforge/internal/domain"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// SourceLocker serializes concurrent first-time generation requests for the
// same source across replicas. Best effort only: the partial unique index on
// generation_jobs is what actually enforces the invariant.
type RedisLocker struct {
	cli *redis.Client
}

func NewLocker(c *Client) *RedisLocker {
	return &RedisLocker{cli: c.cli}
}

func (l *RedisLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, error) {
	token := uuid.NewString()
	for i := 0; i < 5; i++ {
		ok, err := l.cli.SetNX(ctx, key, token, ttl).Result()
		if err != nil {
			continue
		}
		if ok {
			return token, nil
		}
		time.Sleep(50 * time.Millisecond) // wait before retrying
	}
	return "", domain.ErrLockUnavailable
}

var luaUnlock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
else
	return 0
end`)

func (l *RedisLocker) Unlock(ctx context.Context, key, token string) error {
	_, err := luaUnlock.Run(ctx, l.cli, []string{key}, token).Result()
	return err
}

// SourceLockKey names the lock guarding first-time requests for a source.
func SourceLockKey(sourceID string) string {
	return "gen:source:" + sourceID
}
