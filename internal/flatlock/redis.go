package flatlock

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/flateze/flateze/internal/logger"
)

const keyPrefix = "flateze:lock:flat:"

// releaseScript deletes the key only if it still holds our token, so an
// expired lock taken over by another process is left alone.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisLocker locks flats across processes with SET NX and a TTL.
type RedisLocker struct {
	rdb redis.UniversalClient
	ttl time.Duration
	log logger.Logger
}

// NewRedisLocker creates a locker. ttl bounds how long a crashed holder can
// keep a flat locked and must exceed the ingestion timeout.
func NewRedisLocker(rdb redis.UniversalClient, ttl time.Duration, log logger.Logger) *RedisLocker {
	return &RedisLocker{rdb: rdb, ttl: ttl, log: log}
}

func (l *RedisLocker) Acquire(ctx context.Context, flatID string) (func(), error) {
	key := keyPrefix + flatID
	token := uuid.NewString()

	ok, err := l.rdb.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquiring lock for %s: %w", flatID, err)
	}
	if !ok {
		return nil, ErrLocked
	}

	return func() {
		// The caller's context may already be done when releasing.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, l.rdb, []string{key}, token).Err(); err != nil {
			l.log.Warnw("releasing flat lock", "flat_id", flatID, "error", err)
		}
	}, nil
}
