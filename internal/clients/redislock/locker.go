// Package redislock is the distributed per-learner lock behind the run
// engine's concurrency guard. One redis key per learner, SET NX with a hold
// TTL, bounded acquisition wait, token-checked release.
package redislock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/courseflow-backend/internal/logger"
	"github.com/yungbote/courseflow-backend/internal/utils"
)

const keyPrefix = "run_lock:"

// releaseScript deletes the lock only if the caller still owns it, so an
// expired-and-retaken lock is never released by the old holder.
var releaseScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
  return redis.call("del", KEYS[1])
end
return 0
`)

type Locker struct {
	log     *logger.Logger
	rdb     *goredis.Client
	holdTTL time.Duration
	waitTTL time.Duration
}

func New(log *logger.Logger) (*Locker, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(utils.GetEnv("REDIS_ADDR", "", log))
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	holdSeconds := utils.GetEnvAsInt("RUN_LOCK_HOLD_SECONDS", 5, log)
	waitSeconds := utils.GetEnvAsInt("RUN_LOCK_WAIT_SECONDS", 3, log)

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &Locker{
		log:     log.With("component", "RunLocker"),
		rdb:     rdb,
		holdTTL: time.Duration(holdSeconds) * time.Second,
		waitTTL: time.Duration(waitSeconds) * time.Second,
	}, nil
}

// Acquire tries to take the learner's lock within the bounded wait. ok=false
// means somebody else holds it past the wait window; err means the provider
// itself failed. Either way the caller decides whether to degrade.
func (l *Locker) Acquire(ctx context.Context, key string) (release func(), ok bool, err error) {
	fullKey := keyPrefix + key
	token := uuid.NewString()
	deadline := time.Now().Add(l.waitTTL)

	for {
		set, err := l.rdb.SetNX(ctx, fullKey, token, l.holdTTL).Result()
		if err != nil {
			return nil, false, fmt.Errorf("lock setnx: %w", err)
		}
		if set {
			return func() {
				releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				if err := releaseScript.Run(releaseCtx, l.rdb, []string{fullKey}, token).Err(); err != nil {
					l.log.Warn("lock release failed", "key", fullKey, "error", err)
				}
			}, true, nil
		}
		if time.Now().After(deadline) {
			return nil, false, nil
		}
		select {
		case <-ctx.Done():
			return nil, false, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func (l *Locker) Close() error {
	if l == nil || l.rdb == nil {
		return nil
	}
	return l.rdb.Close()
}
