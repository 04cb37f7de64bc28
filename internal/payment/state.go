package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

type MemoryState struct {
	mu      sync.RWMutex
	intents map[string]Intent
}

func NewMemoryState() *MemoryState {
	return &MemoryState{intents: make(map[string]Intent)}
}

func (m *MemoryState) Load(_ context.Context, id string) (Intent, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	in, ok := m.intents[id]
	if !ok {
		return Intent{}, fmt.Errorf("%s: %w", id, ErrIntentNotFound)
	}
	return in, nil
}

func (m *MemoryState) Store(_ context.Context, in Intent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.intents[in.ID] = in
	return nil
}

const keyIntent = "sandbox:intent:%s"

// RedisState keeps sandbox intents in Redis for a week.
type RedisState struct {
	Redis *redis.Client
	TTL   time.Duration
}

func (r *RedisState) Load(ctx context.Context, id string) (Intent, error) {
	b, err := r.Redis.Get(ctx, fmt.Sprintf(keyIntent, id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Intent{}, fmt.Errorf("%s: %w", id, ErrIntentNotFound)
	}
	if err != nil {
		return Intent{}, err
	}
	var in Intent
	if err := json.Unmarshal(b, &in); err != nil {
		return Intent{}, fmt.Errorf("decode intent %s: %w", id, err)
	}
	return in, nil
}

func (r *RedisState) Store(ctx context.Context, in Intent) error {
	b, err := json.Marshal(in)
	if err != nil {
		return err
	}
	ttl := r.TTL
	if ttl == 0 {
		ttl = 7 * 24 * time.Hour
	}
	return r.Redis.Set(ctx, fmt.Sprintf(keyIntent, in.ID), b, ttl).Err()
}
