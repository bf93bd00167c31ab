// Package dedup claims processed webhook event ids in Redis so redelivered
// events are acknowledged without being handled twice.
package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// KeyTemplate is dedup:{source}:{event_id}.
const KeyTemplate = "dedup:%s:%s"

// TTL bounds how long a claimed event id is remembered. Stripe stops
// retrying well before this.
var TTL = 48 * time.Hour

type store interface {
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// Claimer records event ids for one event source.
type Claimer struct {
	rdb    store
	source string
}

// NewRedisClient returns a client with short timeouts; a dedup lookup must
// never hold a webhook request for long.
func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

func New(rdb store, source string) *Claimer {
	return &Claimer{rdb: rdb, source: source}
}

func (c *Claimer) key(eventID string) string {
	return fmt.Sprintf(KeyTemplate, c.source, eventID)
}

// Claim reports true when the caller is the first to see eventID.
func (c *Claimer) Claim(ctx context.Context, eventID string) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, c.key(eventID), "1", TTL).Result()
	if err != nil {
		return false, fmt.Errorf("claim event %s: %w", eventID, err)
	}
	return ok, nil
}

// Release forgets eventID so a redelivery is processed again.
func (c *Claimer) Release(ctx context.Context, eventID string) error {
	if err := c.rdb.Del(ctx, c.key(eventID)).Err(); err != nil {
		return fmt.Errorf("release event %s: %w", eventID, err)
	}
	return nil
}
