// Package lock provides a Redis-backed export guard shared by all replicas.
package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/xid"

	"itinerary-pdf/internal/domain"
	"itinerary-pdf/internal/infra/logging"
)

const keyPrefix = "export-lock:"

// releaseScript deletes the key only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard rejects a second export for a key while the first holds the
// lock. Locks expire after ttl so a crashed replica cannot block forever.
type RedisGuard struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisGuard returns a guard on rdb. A non-positive ttl defaults to two
// minutes.
func NewRedisGuard(rdb *redis.Client, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisGuard{rdb: rdb, ttl: ttl}
}

// TryAcquire takes the lock for key. It returns domain.ErrExportInProgress
// when another holder owns it.
func (g *RedisGuard) TryAcquire(ctx context.Context, key string) (func(), error) {
	k := keyPrefix + key
	token := xid.New().String()

	ok, err := g.rdb.SetNX(ctx, k, token, g.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire export lock %s: %w", key, err)
	}
	if !ok {
		return nil, domain.ErrExportInProgress
	}

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, g.rdb, []string{k}, token).Err(); err != nil {
			logging.Warn("Export lock release failed", "key", key, "error", err)
		}
	}, nil
}
