package cache

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ewilliams-labs/songmatch/internal/core/ports"
	"github.com/ewilliams-labs/songmatch/internal/logging"
)

const keyPrefix = "songmatch:"

// Redis shares cached results between API replicas. Cache failures are
// logged and treated as misses.
type Redis struct {
	client redis.UniversalClient
	ttl    time.Duration
}

var _ ports.ResultCache = (*Redis)(nil)

func NewRedis(client redis.UniversalClient, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Redis{client: client, ttl: ttl}
}

// Ping verifies connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	b, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logging.Warn().Err(err).Str("key", key).Msg("cache get failed")
		}
		return nil, false
	}
	return b, true
}

func (r *Redis) Set(ctx context.Context, key string, value []byte) {
	if err := r.client.Set(ctx, keyPrefix+key, value, r.ttl).Err(); err != nil {
		logging.Warn().Err(err).Str("key", key).Msg("cache set failed")
	}
}
