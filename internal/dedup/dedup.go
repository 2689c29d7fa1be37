// Package dedup suppresses broker redeliveries of messages that were already
// processed. The broker gives at-least-once transport; the guard keeps a
// duplicate redelivery from fanning out a second set of notification rows.
// It never adds retry: a message that failed processing was still acked and
// recorded, so delivery stays best-effort.
package dedup

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"
)

// Guard records processed message IDs and answers whether an ID was seen before.
type Guard interface {
	// Seen marks id as processed and reports whether it had been marked already.
	Seen(ctx context.Context, id string) (bool, error)
}

const keyPrefix = "notifier:msg:"

// RedisGuard stores processed IDs in Redis with a TTL, so the working set
// stays bounded and survives a service restart.
type RedisGuard struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisGuard(client *redis.Client, ttl time.Duration) *RedisGuard {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisGuard{client: client, ttl: ttl}
}

// Seen uses SETNX so the check-and-mark is a single atomic round trip.
func (g *RedisGuard) Seen(ctx context.Context, id string) (bool, error) {
	ok, err := g.client.SetNX(ctx, keyPrefix+id, "1", g.ttl).Result()
	if err != nil {
		return false, err
	}
	return !ok, nil
}

// NoopGuard is used when no Redis address is configured: every message is
// treated as first-seen, matching plain at-least-once consumption.
type NoopGuard struct{}

func (NoopGuard) Seen(context.Context, string) (bool, error) { return false, nil }

var (
	_ Guard = (*RedisGuard)(nil)
	_ Guard = NoopGuard{}
)
