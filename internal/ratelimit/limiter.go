// Package ratelimit throttles dispatched actions per session (or, before
// login, per remote address) at the lobby tier. This guards the lobby
// against a single misbehaving connection hammering the store through
// repeated create-room/upload-game calls; it is not part of spec.md's wire
// contract and never changes an action's result, only whether it runs.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	redisstore "github.com/ulule/limiter/v3/drivers/store/redis"
)

// Limiter throttles one key (session id or remote addr) to a fixed rate.
type Limiter struct {
	inner *limiter.Limiter
}

// New builds a Limiter allowing `rate` actions per `period`. When
// redisAddr is non-empty the limiter shares state through Redis (so
// multiple lobby processes behind a load balancer would share counters);
// otherwise it falls back to an in-process memory store.
func New(redisAddr string, rate int64, period time.Duration) (*Limiter, error) {
	store, err := newStore(redisAddr)
	if err != nil {
		return nil, err
	}
	rt := limiter.Rate{Period: period, Limit: rate}
	return &Limiter{inner: limiter.New(store, rt)}, nil
}

func newStore(redisAddr string) (limiter.Store, error) {
	if redisAddr == "" {
		return memory.NewStore(), nil
	}
	client := redis.NewClient(&redis.Options{Addr: redisAddr})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("ratelimit: connecting to redis at %s: %w", redisAddr, err)
	}
	return redisstore.NewStoreWithOptions(client, limiter.StoreOptions{Prefix: "arcadehost-ratelimit"})
}

// Allow reports whether key is still under its rate limit, consuming one
// unit of budget either way.
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	ctxRes, err := l.inner.Get(ctx, key)
	if err != nil {
		return false, err
	}
	return !ctxRes.Reached, nil
}
