// Package throttle counts requests per key in fixed windows kept in Redis.
package throttle

import (
	"context"
	"time"

	"github.com/dmitrijs2005/rooftop/internal/logging"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "rooftop:throttle:"

// Limiter allows at most limit calls per key in each window. It fails open:
// when Redis is unreachable every call is allowed.
type Limiter struct {
	client redis.Cmdable
	limit  int64
	window time.Duration
	log    logging.Logger
}

// New returns a Limiter over client. A nil client allows everything.
func New(client redis.Cmdable, limit int, window time.Duration, log logging.Logger) *Limiter {
	return &Limiter{client: client, limit: int64(limit), window: window, log: log}
}

// NewRedisClient builds a client for addr, or returns nil when addr is empty.
func NewRedisClient(addr, password string, db int) *redis.Client {
	if addr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// Allow records one call for key and reports whether it is within the limit.
func (l *Limiter) Allow(ctx context.Context, key string) bool {
	if l == nil || l.client == nil || l.limit <= 0 {
		return true
	}

	k := keyPrefix + key

	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.Incr(ctx, k)
		p.ExpireNX(ctx, k, l.window)
		return nil
	})
	if err != nil {
		l.log.Warn(ctx, "throttle unavailable, allowing request", "key", key, "error", err)
		return true
	}

	return incr.Val() <= l.limit
}
