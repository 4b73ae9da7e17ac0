// Package cache provides a small read-through cache for dashboard summaries.
// Backed by Redis when REDIS_URL is configured, otherwise a no-op.
package cache

import (
	"context"
	"time"
)

// Cache stores serialized values under string keys with a TTL.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

// Noop satisfies Cache without storing anything. Used when Redis is absent so
// callers never branch on cache availability.
type Noop struct{}

func (Noop) Get(ctx context.Context, key string) ([]byte, bool)                 { return nil, false }
func (Noop) Set(ctx context.Context, key string, value []byte, _ time.Duration) {}
func (Noop) Delete(ctx context.Context, key string)                             {}
