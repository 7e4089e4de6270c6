// Package quota keeps per-user monthly download counters in redis. The
// counters are informational and never block a download.
package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Counters expire a little after the month they describe.
const retention = 40 * 24 * time.Hour

type Counter struct {
	rdb    *redis.Client
	prefix string
	now    func() time.Time
}

// NewCounter returns a counter; a nil client turns every call into a no-op.
func NewCounter(rdb *redis.Client, prefix string) *Counter {
	if prefix == "" {
		prefix = "download_quota"
	}
	return &Counter{rdb: rdb, prefix: prefix, now: time.Now}
}

func (c *Counter) Key(userID uuid.UUID, at time.Time) string {
	return fmt.Sprintf("%s:%s:%s", c.prefix, userID, at.UTC().Format("2006-01"))
}

// Increment bumps the caller's counter for the current month.
func (c *Counter) Increment(ctx context.Context, userID uuid.UUID) (int64, error) {
	if c.rdb == nil {
		return 0, nil
	}

	key := c.Key(userID, c.now())
	pipe := c.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, retention)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("increment %s: %w", key, err)
	}
	return incr.Val(), nil
}

func (c *Counter) Current(ctx context.Context, userID uuid.UUID) (int64, error) {
	if c.rdb == nil {
		return 0, nil
	}

	n, err := c.rdb.Get(ctx, c.Key(userID, c.now())).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}
