package redisclient

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrLockNotAcquired = errors.New("generation lock not acquired")

// Locker serializes slot generation per specialist. Generation is already
// safe against concurrent runs through the store's duplicate-skip, so the
// lock only avoids wasted duplicate work, not corruption.
type Locker interface {
	WithGenerationLock(ctx context.Context, specialistID int64, fn func(ctx context.Context) error) error
}

type generationLocker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewGenerationLocker(client *redis.Client, ttl time.Duration) Locker {
	return &generationLocker{
		client: client,
		ttl:    ttl,
	}
}

func (l *generationLocker) WithGenerationLock(ctx context.Context, specialistID int64, fn func(ctx context.Context) error) error {
	key := fmt.Sprintf("lock:slotgen:%d", specialistID)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return fmt.Errorf("acquire generation lock: %w", err)
	}
	if !ok {
		return ErrLockNotAcquired
	}

	defer func() {
		_ = l.release(ctx, key, token)
	}()

	ctxWithTimeout, cancel := context.WithTimeout(ctx, l.ttl)
	defer cancel()

	return fn(ctxWithTimeout)
}

var unlockScript = redis.NewScript(`
local val = redis.call("GET", KEYS[1])
if val == ARGV[1] then
  return redis.call("DEL", KEYS[1])
else
  return 0
end
`)

func (l *generationLocker) release(ctx context.Context, key, token string) error {
	_, err := unlockScript.Run(ctx, l.client, []string{key}, token).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("release generation lock: %w", err)
	}
	return nil
}
