package redisx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// setNewer stores an order body unless the cached one carries a newer
// version. KEYS[1] order key; ARGV version, body, ttl in ms.
var setNewer = redis.NewScript(`
local cur = redis.call("HGET", KEYS[1], "v")
if cur and tonumber(cur) > tonumber(ARGV[1]) then
	return 0
end
redis.call("HSET", KEYS[1], "v", ARGV[1], "body", ARGV[2])
redis.call("PEXPIRE", KEYS[1], ARGV[3])
return 1
`)

// OrderCache keeps order JSON in Redis, versioned by UpdatedAt. Failures
// degrade to cache misses; the database stays the source of truth.
type OrderCache struct {
	Redis *redis.Client
	TTL   time.Duration
	Log   zerolog.Logger
}

func NewOrderCache(rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *OrderCache {
	if ttl <= 0 {
		ttl = TTLOrderCache
	}
	return &OrderCache{Redis: rdb, TTL: ttl, Log: log}
}

func (c *OrderCache) Get(ctx context.Context, id string) (*orders.Order, bool) {
	b, err := c.Redis.HGet(ctx, fmt.Sprintf(KeyOrder, id), "body").Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.Log.Warn().Err(err).Str("order_id", id).Msg("order cache get")
		}
		return nil, false
	}
	var o orders.Order
	if err := json.Unmarshal(b, &o); err != nil {
		c.Log.Warn().Err(err).Str("order_id", id).Msg("order cache decode")
		return nil, false
	}
	return &o, true
}

func (c *OrderCache) Set(ctx context.Context, o *orders.Order) {
	b, err := json.Marshal(o)
	if err != nil {
		return
	}
	keys := []string{fmt.Sprintf(KeyOrder, o.ID)}
	err = setNewer.Run(ctx, c.Redis, keys, o.UpdatedAt.UnixMicro(), b, c.TTL.Milliseconds()).Err()
	if err != nil {
		c.Log.Warn().Err(err).Str("order_id", o.ID).Msg("order cache set")
	}
}

func (c *OrderCache) Invalidate(ctx context.Context, id string) {
	if err := c.Redis.Del(ctx, fmt.Sprintf(KeyOrder, id)).Err(); err != nil {
		c.Log.Warn().Err(err).Str("order_id", id).Msg("order cache invalidate")
	}
}
