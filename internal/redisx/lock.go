package redisx

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ariefcatur/go-storefront/internal/apperr"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// release deletes the lock only while it still holds our token.
var release = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker is a cart.Locker shared by every API instance. A holder that dies
// loses the lock after TTL.
type Locker struct {
	Redis *redis.Client
	TTL   time.Duration
	// Wait bounds how long Lock retries before giving up with Conflict.
	Wait  time.Duration
	Retry time.Duration
	Log   zerolog.Logger
}

func NewLocker(rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *Locker {
	if ttl <= 0 {
		ttl = TTLLock
	}
	return &Locker{Redis: rdb, TTL: ttl, Wait: ttl, Retry: 25 * time.Millisecond, Log: log}
}

func (l *Locker) Lock(ctx context.Context, key string) (func(), error) {
	k := fmt.Sprintf(KeyLock, key)
	token := uuid.NewString()
	deadline := time.Now().Add(l.Wait)

	for {
		ok, err := l.Redis.SetNX(ctx, k, token, l.TTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire %s: %w", k, err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return nil, apperr.Conflict("another request is updating this cart, please retry")
		}
		select {
		case <-time.After(l.Retry):
		case <-ctx.Done():
			return nil, fmt.Errorf("acquire %s: %w", k, ctx.Err())
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			// the caller's ctx may already be cancelled
			rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := release.Run(rctx, l.Redis, []string{k}, token).Err(); err != nil && !errors.Is(err, redis.Nil) {
				l.Log.Warn().Err(err).Str("key", k).Msg("release lock")
			}
		})
	}, nil
}
