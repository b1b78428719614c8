package redis

import (
	"context"
	"fmt"
	"ms-events/internal/logger"
	"ms-events/internal/utils"
	"time"

	"github.com/go-redis/redis/v8"
)

const lockKeyPrefix = "registration_lock:"

// Locker serialises registration changes for one (user, event) pair across instances.
type Locker struct {
	Client *redis.Client
	TTL    time.Duration
	Logger *logger.Logger
}

func NewLocker(client *redis.Client, ttl time.Duration, log *logger.Logger) *Locker {
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	return &Locker{
		Client: client,
		TTL:    ttl,
		Logger: log,
	}
}

func lockKey(userID string, eventID int) string {
	return fmt.Sprintf("%s%s:%d", lockKeyPrefix, userID, eventID)
}

// Lock takes the lock if it is free. The returned token is needed to unlock it.
func (l *Locker) Lock(ctx context.Context, userID string, eventID int) (string, bool, error) {
	token := utils.GenerateLockToken()
	ok, err := l.Client.SetNX(ctx, lockKey(userID, eventID), token, l.TTL).Result()
	if err != nil {
		return "", false, fmt.Errorf("acquire registration lock: %w", err)
	}
	if !ok {
		l.Logger.Debug("REDIS", fmt.Sprintf("Registration lock busy for user=%s event=%d", userID, eventID))
		return "", false, nil
	}
	return token, true, nil
}

// unlockScript deletes the key only while it still holds the caller's token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Unlock releases the lock only if token still owns it.
func (l *Locker) Unlock(ctx context.Context, userID string, eventID int, token string) error {
	key := lockKey(userID, eventID)
	released, err := unlockScript.Run(ctx, l.Client, []string{key}, token).Int()
	if err != nil {
		return fmt.Errorf("release registration lock: %w", err)
	}
	if released == 0 {
		l.Logger.Debug("REDIS", fmt.Sprintf("Registration lock for user=%s event=%d already expired or taken over", userID, eventID))
	}
	return nil
}
