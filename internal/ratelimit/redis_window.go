package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/ariefcatur/go-storefront/internal/redisx"
	"github.com/redis/go-redis/v9"
)

// RedisFixedWindow shares the counters between API instances. Each window is
// one INCR key that expires with the window.
type RedisFixedWindow struct {
	Redis *redis.Client
	cfg   Config
	now   func() time.Time
}

func NewRedisFixedWindow(rdb *redis.Client, cfg Config) *RedisFixedWindow {
	if cfg.Requests <= 0 || cfg.Window <= 0 {
		cfg = DefaultConfig()
	}
	return &RedisFixedWindow{Redis: rdb, cfg: cfg, now: time.Now}
}

func (r *RedisFixedWindow) Allow(ctx context.Context, subject string) (bool, error) {
	idx := r.now().UnixNano() / int64(r.cfg.Window)
	key := fmt.Sprintf(redisx.KeyRateLimit, subject, idx)

	pipe := r.Redis.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, r.cfg.Window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit %s: %w", subject, err)
	}
	return incr.Val() <= int64(r.cfg.Requests), nil
}
