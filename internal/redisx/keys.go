package redisx

import "time"

const (
	// Idempotent checkout: idem:order:create:{customer_id}:{idempotency_key} -> order_id
	KeyIdemOrderCreate = "idem:order:create:%s:%s"

	// Order cache: order:{order_id} -> order JSON
	KeyOrder = "order:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"

	// Mutation lock: lock:{key} -> owner token
	KeyLock = "lock:%s"

	// Fixed window counter: ratelimit:{subject}:{window_index}
	KeyRateLimit = "ratelimit:%s:%d"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLOrderCache  = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
	TTLLock        = 10 * time.Second
)
