package throttle

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dmitrijs2005/rooftop/internal/logging"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, client
}

func TestLimiter_CountsPerKeyWithinWindow(t *testing.T) {
	mr, client := newTestClient(t)

	l := New(client, 2, time.Hour, logging.Nop{})
	ctx := context.Background()

	assert.True(t, l.Allow(ctx, "verify:a@x.com"))
	assert.True(t, l.Allow(ctx, "verify:a@x.com"))
	assert.False(t, l.Allow(ctx, "verify:a@x.com"))
	assert.True(t, l.Allow(ctx, "verify:b@x.com"))

	assert.Equal(t, time.Hour, mr.TTL(keyPrefix+"verify:a@x.com"))
}

func TestLimiter_WindowIsNotExtendedByLaterCalls(t *testing.T) {
	mr, client := newTestClient(t)

	l := New(client, 1, time.Hour, logging.Nop{})
	ctx := context.Background()

	require.True(t, l.Allow(ctx, "reset:a@x.com"))
	mr.FastForward(40 * time.Minute)
	require.False(t, l.Allow(ctx, "reset:a@x.com"))
	assert.Equal(t, 20*time.Minute, mr.TTL(keyPrefix+"reset:a@x.com"))

	mr.FastForward(21 * time.Minute)
	assert.True(t, l.Allow(ctx, "reset:a@x.com"))
}

func TestLimiter_FailsOpen(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	client := redis.NewClient(&redis.Options{Addr: addr, DialTimeout: 100 * time.Millisecond, MaxRetries: -1})
	defer client.Close()

	l := New(client, 1, time.Hour, logging.Nop{})
	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow(context.Background(), "k"))
	}
}

func TestLimiter_DisabledVariants(t *testing.T) {
	var nilLimiter *Limiter
	assert.True(t, nilLimiter.Allow(context.Background(), "k"))
	assert.True(t, New(nil, 1, time.Hour, logging.Nop{}).Allow(context.Background(), "k"))
	assert.Nil(t, NewRedisClient("", "", 0))
}
