// Package lock provides a Redis-backed per-alarm lock so that the daemon and
// CLI invocations on other hosts serialize transitions on the same alarm.
package lock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/julianstephens/chime/internal/constants"
	"github.com/julianstephens/chime/internal/logger"
)

var ErrLockTimeout = errors.New("timed out waiting for alarm lock")

// releaseScript deletes the key only if it still holds our token, so an
// expired lock re-acquired by someone else is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type RedisLocker struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
	retry  time.Duration
}

// NewRedisLocker holds each lock for at most ttl and waits at most wait to
// acquire one.
func NewRedisLocker(client *redis.Client, ttl, wait time.Duration) *RedisLocker {
	return &RedisLocker{
		client: client,
		ttl:    ttl,
		wait:   wait,
		retry:  50 * time.Millisecond,
	}
}

func key(alarmID string) string {
	return fmt.Sprintf("%s:lock:alarm:%s", constants.AppName, alarmID)
}

func (l *RedisLocker) Lock(ctx context.Context, alarmID string) (func(), error) {
	k := key(alarmID)
	token := uuid.NewString()

	if l.wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}

	for {
		ok, err := l.client.SetNX(ctx, k, token, l.ttl).Result()
		if err != nil {
			if ctx.Err() != nil {
				return nil, lockErr(ctx, alarmID)
			}
			return nil, fmt.Errorf("failed to acquire lock for %s: %w", alarmID, err)
		}
		if ok {
			return func() { l.release(k, token) }, nil
		}

		select {
		case <-ctx.Done():
			return nil, lockErr(ctx, alarmID)
		case <-time.After(l.retry):
		}
	}
}

func lockErr(ctx context.Context, alarmID string) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s", ErrLockTimeout, alarmID)
	}
	return ctx.Err()
}

func (l *RedisLocker) release(k, token string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := releaseScript.Run(ctx, l.client, []string{k}, token).Err(); err != nil {
		// the TTL frees it eventually
		logger.Warn("Failed to release alarm lock", "key", k, "error", err)
	}
}
