package redisx

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Dedup remembers processed event ids per consuming service.
type Dedup struct {
	Redis   *redis.Client
	Service string
}

// Claim marks eventID as in progress. It reports false when another delivery
// already claimed it.
func (d *Dedup) Claim(ctx context.Context, eventID string) (bool, error) {
	return d.Redis.SetNX(ctx, fmt.Sprintf(KeyDedup, d.Service, eventID), "1", TTLDedup).Result()
}

// Forget drops a claim so a failed event can be redelivered and retried.
func (d *Dedup) Forget(ctx context.Context, eventID string) error {
	return d.Redis.Del(ctx, fmt.Sprintf(KeyDedup, d.Service, eventID)).Err()
}
