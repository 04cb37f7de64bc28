// Package ratelimit caps requests per subject (customer or client IP) with a
// fixed window counter, in process or in Redis.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

type Limiter interface {
	Allow(ctx context.Context, subject string) (bool, error)
}

type Config struct {
	Requests int
	Window   time.Duration
}

func DefaultConfig() Config {
	return Config{Requests: 120, Window: time.Minute}
}

type Driver string

const (
	DriverMemory Driver = "memory"
	DriverRedis  Driver = "redis"
)

func ParseDriver(s string) (Driver, error) {
	switch Driver(s) {
	case DriverMemory, DriverRedis:
		return Driver(s), nil
	case "":
		return DriverMemory, nil
	}
	return "", fmt.Errorf("unknown rate limit driver %q", s)
}
