package ports

import (
	"context"
	"time"
)

// Port: a key/value store for encoded planner responses.
// Implementations must treat a missing or expired key as a miss, not an error.
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, body []byte, ttl time.Duration) error
}
