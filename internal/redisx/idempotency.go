package redisx

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Idempotency maps a customer's Idempotency-Key to the order it created.
type Idempotency struct {
	Redis *redis.Client
}

func (i *Idempotency) Lookup(ctx context.Context, customerID, key string) (string, bool, error) {
	id, err := i.Redis.Get(ctx, fmt.Sprintf(KeyIdemOrderCreate, customerID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}

func (i *Idempotency) Remember(ctx context.Context, customerID, key, orderID string) error {
	return i.Redis.Set(ctx, fmt.Sprintf(KeyIdemOrderCreate, customerID, key), orderID, TTLIdempotency).Err()
}
